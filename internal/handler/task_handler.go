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

// TaskHandler exposes task management endpoints.
type TaskHandler struct {
	svc *service.TaskService
}

// NewTaskHandler creates the task handler.
func NewTaskHandler(svc *service.TaskService) *TaskHandler {
	return &TaskHandler{svc: svc}
}

// Create adds a task to a project.
func (h *TaskHandler) Create(c echo.Context) error {
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
		Title       string     `json:"title"`
		Description string     `json:"description,omitempty"`
		Priority    string     `json:"priority,omitempty"`
		DueDate     *time.Time `json:"due_date,omitempty"`
		AssignedTo  *uint      `json:"assigned_to,omitempty"`
	}
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse task create request", zap.Error(err))
		return fail(c, apperr.New(apperr.InvalidInput, "invalid request"))
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	task, err := h.svc.Create(caller, projectID, service.TaskCreateInput{
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
		DueDate:     req.DueDate,
		AssignedTo:  req.AssignedTo,
		IPAddress:   c.RealIP(),
	})
	if err != nil {
		return fail(c, err)
	}
	return respond(c, http.StatusCreated, "Task created successfully", task)
}

// List returns a project's tasks.
func (h *TaskHandler) List(c echo.Context) error {
	caller, ok := middleware.CallerFrom(c)
	if !ok {
		return fail(c, apperr.New(apperr.Unauthenticated, "authentication required"))
	}
	projectID, err := pathID(c, "projectId")
	if err != nil {
		return fail(c, err)
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	result, err := h.svc.List(caller, projectID, service.TaskListQuery{
		PageQuery: service.PageQuery{Page: queryInt(c, "page", 1), Limit: queryInt(c, "limit", 10)},
		Status:    c.QueryParam("status"),
		Priority:  c.QueryParam("priority"),
	})
	if err != nil {
		return fail(c, err)
	}
	return respond(c, http.StatusOK, "", result)
}

// Update applies a partial task update. Sending "unassign": true
// clears the assignee.
func (h *TaskHandler) Update(c echo.Context) error {
	log := logger.FromContext(c)

	caller, ok := middleware.CallerFrom(c)
	if !ok {
		return fail(c, apperr.New(apperr.Unauthenticated, "authentication required"))
	}
	taskID, err := pathID(c, "taskId")
	if err != nil {
		return fail(c, err)
	}

	var req struct {
		Title       *string    `json:"title,omitempty"`
		Description *string    `json:"description,omitempty"`
		Status      *string    `json:"status,omitempty"`
		Priority    *string    `json:"priority,omitempty"`
		DueDate     *time.Time `json:"due_date,omitempty"`
		AssignedTo  *uint      `json:"assigned_to,omitempty"`
		Unassign    bool       `json:"unassign,omitempty"`
	}
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse task update request", zap.Error(err))
		return fail(c, apperr.New(apperr.InvalidInput, "invalid request"))
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	task, err := h.svc.Update(caller, taskID, service.TaskUpdateInput{
		Title:         req.Title,
		Description:   req.Description,
		Status:        req.Status,
		Priority:      req.Priority,
		DueDate:       req.DueDate,
		AssignedTo:    req.AssignedTo,
		ClearAssignee: req.Unassign,
		IPAddress:     c.RealIP(),
	})
	if err != nil {
		return fail(c, err)
	}
	return respond(c, http.StatusOK, "Task updated successfully", task)
}

// Delete removes a task.
func (h *TaskHandler) Delete(c echo.Context) error {
	caller, ok := middleware.CallerFrom(c)
	if !ok {
		return fail(c, apperr.New(apperr.Unauthenticated, "authentication required"))
	}
	taskID, err := pathID(c, "taskId")
	if err != nil {
		return fail(c, err)
	}

	defer prometheus.TrackDBOperation("delete")(time.Now())
	if err := h.svc.Delete(caller, taskID, c.RealIP()); err != nil {
		return fail(c, err)
	}
	return respond(c, http.StatusOK, "Task deleted successfully", nil)
}
