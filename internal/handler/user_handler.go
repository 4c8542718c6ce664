package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"projecthub/internal/apperr"
	"projecthub/internal/middleware"
	"projecthub/internal/model"
	"projecthub/internal/service"
	"projecthub/pkg/logger"
	"projecthub/prometheus"
)

// UserHandler exposes tenant user management endpoints.
type UserHandler struct {
	svc *service.UserService
}

// NewUserHandler creates the user handler.
func NewUserHandler(svc *service.UserService) *UserHandler {
	return &UserHandler{svc: svc}
}

// Create adds a user to a tenant.
func (h *UserHandler) Create(c echo.Context) error {
	log := logger.FromContext(c)

	caller, ok := middleware.CallerFrom(c)
	if !ok {
		return fail(c, apperr.New(apperr.Unauthenticated, "authentication required"))
	}
	tenantID, err := pathID(c, "tenantId")
	if err != nil {
		return fail(c, err)
	}

	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		FullName string `json:"full_name"`
		Role     string `json:"role,omitempty"`
	}
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse user create request", zap.Error(err))
		return fail(c, apperr.New(apperr.InvalidInput, "invalid request"))
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	user, err := h.svc.Create(caller, tenantID, service.UserCreateInput{
		Email:     req.Email,
		Password:  req.Password,
		FullName:  req.FullName,
		Role:      model.Role(req.Role),
		IPAddress: c.RealIP(),
	})
	if err != nil {
		return fail(c, err)
	}
	return respond(c, http.StatusCreated, "User created successfully", user)
}

// List returns a tenant's users.
func (h *UserHandler) List(c echo.Context) error {
	caller, ok := middleware.CallerFrom(c)
	if !ok {
		return fail(c, apperr.New(apperr.Unauthenticated, "authentication required"))
	}
	tenantID, err := pathID(c, "tenantId")
	if err != nil {
		return fail(c, err)
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	result, err := h.svc.List(caller, tenantID, service.UserListQuery{
		PageQuery: service.PageQuery{Page: queryInt(c, "page", 1), Limit: queryInt(c, "limit", 10)},
		Search:    c.QueryParam("search"),
		Role:      c.QueryParam("role"),
	})
	if err != nil {
		return fail(c, err)
	}
	return respond(c, http.StatusOK, "", result)
}

// Update applies a partial user update.
func (h *UserHandler) Update(c echo.Context) error {
	log := logger.FromContext(c)

	caller, ok := middleware.CallerFrom(c)
	if !ok {
		return fail(c, apperr.New(apperr.Unauthenticated, "authentication required"))
	}
	userID, err := pathID(c, "userId")
	if err != nil {
		return fail(c, err)
	}

	var req struct {
		FullName *string `json:"full_name,omitempty"`
		Role     *string `json:"role,omitempty"`
		IsActive *bool   `json:"is_active,omitempty"`
		Password *string `json:"password,omitempty"`
	}
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse user update request", zap.Error(err))
		return fail(c, apperr.New(apperr.InvalidInput, "invalid request"))
	}

	in := service.UserUpdateInput{
		FullName:  req.FullName,
		IsActive:  req.IsActive,
		Password:  req.Password,
		IPAddress: c.RealIP(),
	}
	if req.Role != nil {
		role := model.Role(*req.Role)
		in.Role = &role
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	user, err := h.svc.Update(caller, userID, in)
	if err != nil {
		return fail(c, err)
	}
	return respond(c, http.StatusOK, "User updated successfully", user)
}

// Delete removes a user from their tenant.
func (h *UserHandler) Delete(c echo.Context) error {
	caller, ok := middleware.CallerFrom(c)
	if !ok {
		return fail(c, apperr.New(apperr.Unauthenticated, "authentication required"))
	}
	userID, err := pathID(c, "userId")
	if err != nil {
		return fail(c, err)
	}

	defer prometheus.TrackDBOperation("delete")(time.Now())
	if err := h.svc.Delete(caller, userID, c.RealIP()); err != nil {
		return fail(c, err)
	}
	return respond(c, http.StatusOK, "User deleted successfully", nil)
}
