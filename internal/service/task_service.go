package service

import (
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"projecthub/internal/apperr"
	"projecthub/internal/audit"
	"projecthub/internal/authz"
	"projecthub/internal/model"
)

// TaskService handles task management inside a project.
type TaskService struct {
	db    *gorm.DB
	audit *audit.Recorder
	log   *zap.Logger
}

// NewTaskService wires task operations.
func NewTaskService(db *gorm.DB, rec *audit.Recorder, log *zap.Logger) *TaskService {
	return &TaskService{db: db, audit: rec, log: log}
}

// TaskCreateInput creates a task under a project. The task inherits
// the project's tenant.
type TaskCreateInput struct {
	Title       string
	Description string
	Priority    string
	DueDate     *time.Time
	AssignedTo  *uint
	IPAddress   string
}

// Create adds a task to a project.
func (s *TaskService) Create(caller authz.Caller, projectID uint, in TaskCreateInput) (*model.Task, error) {
	project, err := s.loadProject(projectID)
	if err != nil {
		return nil, err
	}

	if err := authz.Allow(caller, authz.OpTaskCreate, authz.Resource{TenantID: &project.TenantID}); err != nil {
		return nil, err
	}

	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return nil, apperr.New(apperr.InvalidInput, "title is required")
	}
	if in.Priority == "" {
		in.Priority = "medium"
	}
	if err := s.checkAssignee(in.AssignedTo, project.TenantID); err != nil {
		return nil, err
	}

	task := model.Task{
		TenantID:    project.TenantID,
		ProjectID:   project.ID,
		Title:       in.Title,
		Description: in.Description,
		Status:      "todo",
		Priority:    in.Priority,
		DueDate:     in.DueDate,
		AssignedTo:  in.AssignedTo,
	}
	if err := s.db.Create(&task).Error; err != nil {
		return nil, apperr.Wrap("create task", err)
	}

	s.audit.Record(audit.Entry{
		TenantID:   &task.TenantID,
		UserID:     &caller.UserID,
		Action:     model.ActionCreateTask,
		EntityType: "task",
		EntityID:   task.ID,
		IPAddress:  in.IPAddress,
	})

	s.log.Info("task created",
		zap.Uint("project_id", project.ID),
		zap.Uint("task_id", task.ID))

	return &task, nil
}

// TaskListQuery filters a project's task listing.
type TaskListQuery struct {
	PageQuery
	Status   string
	Priority string
}

// TaskList is one page of tasks.
type TaskList struct {
	Tasks      []model.Task `json:"tasks"`
	Pagination Pagination   `json:"pagination"`
}

// List returns a project's tasks.
func (s *TaskService) List(caller authz.Caller, projectID uint, q TaskListQuery) (*TaskList, error) {
	project, err := s.loadProject(projectID)
	if err != nil {
		return nil, err
	}

	if err := authz.Allow(caller, authz.OpTaskList, authz.Resource{TenantID: &project.TenantID}); err != nil {
		return nil, err
	}
	q.normalize()

	db := s.db.Model(&model.Task{}).Where("project_id = ?", projectID)
	if q.Status != "" {
		db = db.Where("status = ?", q.Status)
	}
	if q.Priority != "" {
		db = db.Where("priority = ?", q.Priority)
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, apperr.Wrap("count tasks", err)
	}

	var tasks []model.Task
	if err := db.Order("created_at DESC").Offset(q.offset()).Limit(q.Limit).Find(&tasks).Error; err != nil {
		return nil, apperr.Wrap("list tasks", err)
	}

	return &TaskList{Tasks: tasks, Pagination: paginate(q.PageQuery, total)}, nil
}

// TaskUpdateInput is a partial task update. ClearAssignee removes the
// current assignee; AssignedTo sets a new one.
type TaskUpdateInput struct {
	Title         *string
	Description   *string
	Status        *string
	Priority      *string
	DueDate       *time.Time
	AssignedTo    *uint
	ClearAssignee bool
	IPAddress     string
}

// Update applies a task update.
func (s *TaskService) Update(caller authz.Caller, taskID uint, in TaskUpdateInput) (*model.Task, error) {
	var task model.Task
	if err := s.db.First(&task, taskID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.NotFound, "task not found")
		}
		return nil, apperr.Wrap("load task", err)
	}

	if err := authz.Allow(caller, authz.OpTaskUpdate, authz.Resource{TenantID: &task.TenantID}); err != nil {
		return nil, err
	}

	if in.Title != nil && *in.Title != "" {
		task.Title = *in.Title
	}
	if in.Description != nil {
		task.Description = *in.Description
	}
	if in.Status != nil && *in.Status != "" {
		task.Status = *in.Status
	}
	if in.Priority != nil && *in.Priority != "" {
		task.Priority = *in.Priority
	}
	if in.DueDate != nil {
		task.DueDate = in.DueDate
	}
	if in.ClearAssignee {
		task.AssignedTo = nil
	} else if in.AssignedTo != nil {
		if err := s.checkAssignee(in.AssignedTo, task.TenantID); err != nil {
			return nil, err
		}
		task.AssignedTo = in.AssignedTo
	}

	if err := s.db.Save(&task).Error; err != nil {
		return nil, apperr.Wrap("update task", err)
	}

	s.audit.Record(audit.Entry{
		TenantID:   &task.TenantID,
		UserID:     &caller.UserID,
		Action:     model.ActionUpdateTask,
		EntityType: "task",
		EntityID:   task.ID,
		IPAddress:  in.IPAddress,
	})

	return &task, nil
}

// Delete removes a task.
func (s *TaskService) Delete(caller authz.Caller, taskID uint, ip string) error {
	var task model.Task
	if err := s.db.First(&task, taskID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.New(apperr.NotFound, "task not found")
		}
		return apperr.Wrap("load task", err)
	}

	if err := authz.Allow(caller, authz.OpTaskDelete, authz.Resource{TenantID: &task.TenantID}); err != nil {
		return err
	}

	if err := s.db.Delete(&model.Task{}, task.ID).Error; err != nil {
		return apperr.Wrap("delete task", err)
	}

	s.audit.Record(audit.Entry{
		TenantID:   &task.TenantID,
		UserID:     &caller.UserID,
		Action:     model.ActionDeleteTask,
		EntityType: "task",
		EntityID:   task.ID,
		IPAddress:  ip,
	})

	return nil
}

func (s *TaskService) loadProject(projectID uint) (*model.Project, error) {
	var project model.Project
	if err := s.db.First(&project, projectID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.NotFound, "project not found")
		}
		return nil, apperr.Wrap("load project", err)
	}
	return &project, nil
}

// checkAssignee enforces that an assignee, if set, is a user of the
// task's tenant.
func (s *TaskService) checkAssignee(assignedTo *uint, tenantID uint) error {
	if assignedTo == nil {
		return nil
	}
	var count int64
	err := s.db.Model(&model.User{}).Where("id = ? AND tenant_id = ?", *assignedTo, tenantID).Count(&count).Error
	if err != nil {
		return apperr.Wrap("check assignee", err)
	}
	if count == 0 {
		return apperr.New(apperr.InvalidInput, "assignee must be a user of the same tenant")
	}
	return nil
}
