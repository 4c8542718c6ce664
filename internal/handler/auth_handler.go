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

// AuthHandler exposes login, registration and session endpoints.
type AuthHandler struct {
	svc *service.AuthService
}

// NewAuthHandler creates the auth handler.
func NewAuthHandler(svc *service.AuthService) *AuthHandler {
	return &AuthHandler{svc: svc}
}

// Login authenticates a user, optionally pinned to a tenant.
func (h *AuthHandler) Login(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.LoginCounter.Inc()

	var req struct {
		Email           string `json:"email"`
		Password        string `json:"password"`
		TenantSubdomain string `json:"tenant_subdomain,omitempty"`
		TenantID        *uint  `json:"tenant_id,omitempty"`
	}
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse login request", zap.Error(err))
		prometheus.RecordAuthError("invalid_request")
		return fail(c, apperr.New(apperr.InvalidInput, "invalid request"))
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	result, err := h.svc.Login(service.LoginInput{
		Email:           req.Email,
		Password:        req.Password,
		TenantSubdomain: req.TenantSubdomain,
		TenantID:        req.TenantID,
		IPAddress:       c.RealIP(),
	})
	if err != nil {
		prometheus.RecordAuthError("login_failed")
		return fail(c, err)
	}

	return respond(c, http.StatusOK, "", result)
}

// Register provisions a new tenant with its first admin user.
func (h *AuthHandler) Register(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RegisterCounter.Inc()

	var req struct {
		TenantName    string `json:"tenant_name"`
		Subdomain     string `json:"subdomain"`
		Plan          string `json:"plan,omitempty"`
		AdminEmail    string `json:"admin_email"`
		AdminPassword string `json:"admin_password"`
		AdminFullName string `json:"admin_full_name"`
	}
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse registration request", zap.Error(err))
		prometheus.RecordAuthError("invalid_request")
		return fail(c, apperr.New(apperr.InvalidInput, "invalid request"))
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	result, err := h.svc.Register(service.RegisterInput{
		TenantName:    req.TenantName,
		Subdomain:     req.Subdomain,
		Plan:          model.SubscriptionPlan(req.Plan),
		AdminEmail:    req.AdminEmail,
		AdminPassword: req.AdminPassword,
		AdminFullName: req.AdminFullName,
		IPAddress:     c.RealIP(),
	})
	if err != nil {
		prometheus.RecordAuthError("registration_failed")
		return fail(c, err)
	}

	return respond(c, http.StatusCreated, "Tenant registered successfully", result)
}

// Me returns the current user's projection.
func (h *AuthHandler) Me(c echo.Context) error {
	user, ok := middleware.UserFrom(c)
	if !ok {
		return fail(c, apperr.New(apperr.Unauthenticated, "authentication required"))
	}
	return respond(c, http.StatusOK, "", h.svc.Me(user, middleware.TenantFrom(c)))
}

// Logout records the logout event.
func (h *AuthHandler) Logout(c echo.Context) error {
	user, ok := middleware.UserFrom(c)
	if !ok {
		return fail(c, apperr.New(apperr.Unauthenticated, "authentication required"))
	}
	h.svc.Logout(user, c.RealIP())
	return respond(c, http.StatusOK, "Logged out successfully", nil)
}
