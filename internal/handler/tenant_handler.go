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

// TenantHandler exposes the tenant directory and self-service
// endpoints.
type TenantHandler struct {
	svc *service.TenantService
}

// NewTenantHandler creates the tenant handler.
func NewTenantHandler(svc *service.TenantService) *TenantHandler {
	return &TenantHandler{svc: svc}
}

// List returns the tenant directory (super-admin only).
func (h *TenantHandler) List(c echo.Context) error {
	caller, ok := middleware.CallerFrom(c)
	if !ok {
		return fail(c, apperr.New(apperr.Unauthenticated, "authentication required"))
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	result, err := h.svc.List(caller, service.TenantListQuery{
		PageQuery:        service.PageQuery{Page: queryInt(c, "page", 1), Limit: queryInt(c, "limit", 10)},
		Status:           c.QueryParam("status"),
		SubscriptionPlan: c.QueryParam("subscription_plan"),
	})
	if err != nil {
		return fail(c, err)
	}
	return respond(c, http.StatusOK, "", result)
}

// Get returns one tenant with usage stats.
func (h *TenantHandler) Get(c echo.Context) error {
	caller, ok := middleware.CallerFrom(c)
	if !ok {
		return fail(c, apperr.New(apperr.Unauthenticated, "authentication required"))
	}
	tenantID, err := pathID(c, "tenantId")
	if err != nil {
		return fail(c, err)
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	result, err := h.svc.Get(caller, tenantID)
	if err != nil {
		return fail(c, err)
	}
	return respond(c, http.StatusOK, "", result)
}

// Update applies a tenant metadata update.
func (h *TenantHandler) Update(c echo.Context) error {
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
		Name             *string `json:"name,omitempty"`
		Status           *string `json:"status,omitempty"`
		SubscriptionPlan *string `json:"subscription_plan,omitempty"`
		MaxUsers         *int    `json:"max_users,omitempty"`
		MaxProjects      *int    `json:"max_projects,omitempty"`
	}
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse tenant update request", zap.Error(err))
		return fail(c, apperr.New(apperr.InvalidInput, "invalid request"))
	}

	in := service.TenantUpdateInput{
		Name:        req.Name,
		MaxUsers:    req.MaxUsers,
		MaxProjects: req.MaxProjects,
		IPAddress:   c.RealIP(),
	}
	if req.Status != nil {
		status := model.TenantStatus(*req.Status)
		in.Status = &status
	}
	if req.SubscriptionPlan != nil {
		plan := model.SubscriptionPlan(*req.SubscriptionPlan)
		in.SubscriptionPlan = &plan
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	tenant, err := h.svc.Update(caller, tenantID, in)
	if err != nil {
		return fail(c, err)
	}
	return respond(c, http.StatusOK, "Tenant updated successfully", tenant)
}
