package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"projecthub/internal/apperr"
	"projecthub/internal/middleware"
	"projecthub/internal/service"
	"projecthub/pkg/logger"
	"projecthub/prometheus"
)

// ProjectHandler exposes project management endpoints.
type ProjectHandler struct {
	svc *service.ProjectService
}

// NewProjectHandler creates the project handler.
func NewProjectHandler(svc *service.ProjectService) *ProjectHandler {
	return &ProjectHandler{svc: svc}
}

// Create adds a project to a tenant.
func (h *ProjectHandler) Create(c echo.Context) error {
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
		Name        string `json:"name"`
		Description string `json:"description,omitempty"`
	}
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse project create request", zap.Error(err))
		return fail(c, apperr.New(apperr.InvalidInput, "invalid request"))
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	project, err := h.svc.Create(caller, tenantID, service.ProjectCreateInput{
		Name:        req.Name,
		Description: req.Description,
		IPAddress:   c.RealIP(),
	})
	if err != nil {
		return fail(c, err)
	}
	return respond(c, http.StatusCreated, "Project created successfully", project)
}

// List returns a tenant's projects.
func (h *ProjectHandler) List(c echo.Context) error {
	caller, ok := middleware.CallerFrom(c)
	if !ok {
		return fail(c, apperr.New(apperr.Unauthenticated, "authentication required"))
	}
	tenantID, err := pathID(c, "tenantId")
	if err != nil {
		return fail(c, err)
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	result, err := h.svc.List(caller, tenantID, service.ProjectListQuery{
		PageQuery: service.PageQuery{Page: queryInt(c, "page", 1), Limit: queryInt(c, "limit", 10)},
		Status:    c.QueryParam("status"),
	})
	if err != nil {
		return fail(c, err)
	}
	return respond(c, http.StatusOK, "", result)
}

// Update applies a partial project update.
func (h *ProjectHandler) Update(c echo.Context) error {
	log := logger.FromContext(c)

	caller, ok := middleware.CallerFrom(c)
	if !ok {
		return fail(c, apperr.New(apperr.Unauthenticated, "authentication required"))
	}
	projectID, err := pathID(c, "projectId")
	if err != nil {
		return fail(c, err)
	}

	var req struct {
		Name        *string `json:"name,omitempty"`
		Description *string `json:"description,omitempty"`
		Status      *string `json:"status,omitempty"`
	}
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse project update request", zap.Error(err))
		return fail(c, apperr.New(apperr.InvalidInput, "invalid request"))
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	project, err := h.svc.Update(caller, projectID, service.ProjectUpdateInput{
		Name:        req.Name,
		Description: req.Description,
		Status:      req.Status,
		IPAddress:   c.RealIP(),
	})
	if err != nil {
		return fail(c, err)
	}
	return respond(c, http.StatusOK, "Project updated successfully", project)
}

// Delete removes a project and its tasks.
func (h *ProjectHandler) Delete(c echo.Context) error {
	caller, ok := middleware.CallerFrom(c)
	if !ok {
		return fail(c, apperr.New(apperr.Unauthenticated, "authentication required"))
	}
	projectID, err := pathID(c, "projectId")
	if err != nil {
		return fail(c, err)
	}

	defer prometheus.TrackDBOperation("delete")(time.Now())
	if err := h.svc.Delete(caller, projectID, c.RealIP()); err != nil {
		return fail(c, err)
	}
	return respond(c, http.StatusOK, "Project deleted successfully", nil)
}
