package service

import (
	"errors"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"projecthub/internal/apperr"
	"projecthub/internal/audit"
	"projecthub/internal/authz"
	"projecthub/internal/model"
	"projecthub/internal/quota"
)

// ProjectService handles project management inside a tenant.
type ProjectService struct {
	db    *gorm.DB
	quota *quota.Guard
	audit *audit.Recorder
	log   *zap.Logger
}

// NewProjectService wires project operations.
func NewProjectService(db *gorm.DB, g *quota.Guard, rec *audit.Recorder, log *zap.Logger) *ProjectService {
	return &ProjectService{db: db, quota: g, audit: rec, log: log}
}

// ProjectCreateInput creates a project in a tenant.
type ProjectCreateInput struct {
	Name        string
	Description string
	IPAddress   string
}

// Create adds a project, subject to the tenant's project quota.
func (s *ProjectService) Create(caller authz.Caller, tenantID uint, in ProjectCreateInput) (*model.Project, error) {
	if err := authz.Allow(caller, authz.OpProjectCreate, authz.Resource{TenantID: &tenantID}); err != nil {
		return nil, err
	}

	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return nil, apperr.New(apperr.InvalidInput, "name is required")
	}

	project := model.Project{
		TenantID:    tenantID,
		Name:        in.Name,
		Description: in.Description,
		Status:      "active",
		CreatedBy:   caller.UserID,
	}

	err := s.quota.Reserve(tenantID, quota.KindProjects, func(tx *gorm.DB) error {
		if err := tx.Create(&project).Error; err != nil {
			return apperr.Wrap("create project", err)
		}
		return nil
	})
	if err != nil {
		return nil, apperr.From(err)
	}

	s.audit.Record(audit.Entry{
		TenantID:   &tenantID,
		UserID:     &caller.UserID,
		Action:     model.ActionCreateProject,
		EntityType: "project",
		EntityID:   project.ID,
		IPAddress:  in.IPAddress,
	})

	s.log.Info("project created",
		zap.Uint("tenant_id", tenantID),
		zap.Uint("project_id", project.ID))

	return &project, nil
}

// ProjectListQuery filters a tenant's project listing.
type ProjectListQuery struct {
	PageQuery
	Status string
}

// ProjectList is one page of projects.
type ProjectList struct {
	Projects   []model.Project `json:"projects"`
	Pagination Pagination      `json:"pagination"`
}

// List returns the tenant's projects.
func (s *ProjectService) List(caller authz.Caller, tenantID uint, q ProjectListQuery) (*ProjectList, error) {
	if err := authz.Allow(caller, authz.OpProjectList, authz.Resource{TenantID: &tenantID}); err != nil {
		return nil, err
	}
	q.normalize()

	db := s.db.Model(&model.Project{}).Where("tenant_id = ?", tenantID)
	if q.Status != "" {
		db = db.Where("status = ?", q.Status)
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, apperr.Wrap("count projects", err)
	}

	var projects []model.Project
	if err := db.Order("created_at DESC").Offset(q.offset()).Limit(q.Limit).Find(&projects).Error; err != nil {
		return nil, apperr.Wrap("list projects", err)
	}

	return &ProjectList{Projects: projects, Pagination: paginate(q.PageQuery, total)}, nil
}

// ProjectUpdateInput is a partial project update.
type ProjectUpdateInput struct {
	Name        *string
	Description *string
	Status      *string
	IPAddress   string
}

// Update applies a project update.
func (s *ProjectService) Update(caller authz.Caller, projectID uint, in ProjectUpdateInput) (*model.Project, error) {
	var project model.Project
	if err := s.db.First(&project, projectID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.NotFound, "project not found")
		}
		return nil, apperr.Wrap("load project", err)
	}

	if err := authz.Allow(caller, authz.OpProjectUpdate, authz.Resource{TenantID: &project.TenantID}); err != nil {
		return nil, err
	}

	if in.Name != nil && *in.Name != "" {
		project.Name = *in.Name
	}
	if in.Description != nil {
		project.Description = *in.Description
	}
	if in.Status != nil && *in.Status != "" {
		project.Status = *in.Status
	}

	if err := s.db.Save(&project).Error; err != nil {
		return nil, apperr.Wrap("update project", err)
	}

	s.audit.Record(audit.Entry{
		TenantID:   &project.TenantID,
		UserID:     &caller.UserID,
		Action:     model.ActionUpdateProject,
		EntityType: "project",
		EntityID:   project.ID,
		IPAddress:  in.IPAddress,
	})

	return &project, nil
}

// Delete removes a project and its tasks in one transaction.
func (s *ProjectService) Delete(caller authz.Caller, projectID uint, ip string) error {
	var project model.Project
	if err := s.db.First(&project, projectID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.New(apperr.NotFound, "project not found")
		}
		return apperr.Wrap("load project", err)
	}

	if err := authz.Allow(caller, authz.OpProjectDelete, authz.Resource{TenantID: &project.TenantID}); err != nil {
		return err
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("project_id = ?", project.ID).Delete(&model.Task{}).Error; err != nil {
			return apperr.Wrap("delete project tasks", err)
		}
		if err := tx.Delete(&model.Project{}, project.ID).Error; err != nil {
			return apperr.Wrap("delete project", err)
		}
		return nil
	})
	if err != nil {
		return apperr.From(err)
	}

	s.audit.Record(audit.Entry{
		TenantID:   &project.TenantID,
		UserID:     &caller.UserID,
		Action:     model.ActionDeleteProject,
		EntityType: "project",
		EntityID:   project.ID,
		IPAddress:  ip,
	})

	s.log.Info("project deleted",
		zap.Uint("project_id", project.ID),
		zap.Uint("by_user", caller.UserID))

	return nil
}
