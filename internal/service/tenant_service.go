package service

import (
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"projecthub/internal/apperr"
	"projecthub/internal/audit"
	"projecthub/internal/authz"
	"projecthub/internal/model"
)

// TenantService handles the tenant directory and tenant self-service.
type TenantService struct {
	db    *gorm.DB
	audit *audit.Recorder
	log   *zap.Logger
}

// NewTenantService wires tenant operations.
func NewTenantService(db *gorm.DB, rec *audit.Recorder, log *zap.Logger) *TenantService {
	return &TenantService{db: db, audit: rec, log: log}
}

// TenantStats is the usage summary attached to tenant detail views.
type TenantStats struct {
	TotalUsers    int64 `json:"total_users"`
	TotalProjects int64 `json:"total_projects"`
	TotalTasks    int64 `json:"total_tasks"`
}

// TenantDetails is a tenant plus its usage stats.
type TenantDetails struct {
	model.Tenant
	Stats TenantStats `json:"stats"`
}

// TenantListQuery filters the tenant directory listing.
type TenantListQuery struct {
	PageQuery
	Status           string
	SubscriptionPlan string
}

// TenantList is one page of the tenant directory.
type TenantList struct {
	Tenants    []TenantDetails `json:"tenants"`
	Pagination Pagination      `json:"pagination"`
}

// List returns the tenant directory. Super-admin only.
func (s *TenantService) List(caller authz.Caller, q TenantListQuery) (*TenantList, error) {
	if err := authz.Allow(caller, authz.OpTenantList, authz.Resource{}); err != nil {
		return nil, err
	}
	q.normalize()

	db := s.db.Model(&model.Tenant{})
	if q.Status != "" {
		db = db.Where("status = ?", q.Status)
	}
	if q.SubscriptionPlan != "" {
		db = db.Where("subscription_plan = ?", q.SubscriptionPlan)
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, apperr.Wrap("count tenants", err)
	}

	var tenants []model.Tenant
	if err := db.Order("created_at DESC").Offset(q.offset()).Limit(q.Limit).Find(&tenants).Error; err != nil {
		return nil, apperr.Wrap("list tenants", err)
	}

	out := TenantList{Tenants: make([]TenantDetails, 0, len(tenants)), Pagination: paginate(q.PageQuery, total)}
	for i := range tenants {
		stats, err := s.stats(tenants[i].ID)
		if err != nil {
			return nil, err
		}
		out.Tenants = append(out.Tenants, TenantDetails{Tenant: tenants[i], Stats: stats})
	}
	return &out, nil
}

// Get returns one tenant with usage stats.
func (s *TenantService) Get(caller authz.Caller, tenantID uint) (*TenantDetails, error) {
	if err := authz.Allow(caller, authz.OpTenantView, authz.Resource{TenantID: &tenantID}); err != nil {
		return nil, err
	}

	var tenant model.Tenant
	if err := s.db.First(&tenant, tenantID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.NotFound, "tenant not found")
		}
		return nil, apperr.Wrap("load tenant", err)
	}

	stats, err := s.stats(tenantID)
	if err != nil {
		return nil, err
	}
	return &TenantDetails{Tenant: tenant, Stats: stats}, nil
}

func (s *TenantService) stats(tenantID uint) (TenantStats, error) {
	var st TenantStats
	if err := s.db.Model(&model.User{}).Where("tenant_id = ?", tenantID).Count(&st.TotalUsers).Error; err != nil {
		return st, apperr.Wrap("count users", err)
	}
	if err := s.db.Model(&model.Project{}).Where("tenant_id = ?", tenantID).Count(&st.TotalProjects).Error; err != nil {
		return st, apperr.Wrap("count projects", err)
	}
	if err := s.db.Model(&model.Task{}).Where("tenant_id = ?", tenantID).Count(&st.TotalTasks).Error; err != nil {
		return st, apperr.Wrap("count tasks", err)
	}
	return st, nil
}

// TenantUpdateInput is a partial tenant update. Name is self-service;
// everything else is restricted to super admins.
type TenantUpdateInput struct {
	Name             *string
	Status           *model.TenantStatus
	SubscriptionPlan *model.SubscriptionPlan
	MaxUsers         *int
	MaxProjects      *int
	IPAddress        string
}

func (in *TenantUpdateInput) touchesRestricted() bool {
	return in.Status != nil || in.SubscriptionPlan != nil || in.MaxUsers != nil || in.MaxProjects != nil
}

// Update applies a tenant metadata update. A tenant_admin touching any
// restricted field is Forbidden, never silently ignored. Changing the
// plan without explicit limits applies the plan's default quotas.
func (s *TenantService) Update(caller authz.Caller, tenantID uint, in TenantUpdateInput) (*model.Tenant, error) {
	op := authz.OpTenantUpdate
	if in.touchesRestricted() {
		op = authz.OpTenantManage
	}
	if err := authz.Allow(caller, op, authz.Resource{TenantID: &tenantID}); err != nil {
		return nil, err
	}

	if in.Status != nil && !in.Status.Valid() {
		return nil, apperr.New(apperr.InvalidInput, "unknown tenant status")
	}
	if in.SubscriptionPlan != nil && !in.SubscriptionPlan.Valid() {
		return nil, apperr.New(apperr.InvalidInput, "unknown subscription plan")
	}
	if in.MaxUsers != nil && *in.MaxUsers < 1 {
		return nil, apperr.New(apperr.InvalidInput, "max_users must be positive")
	}
	if in.MaxProjects != nil && *in.MaxProjects < 1 {
		return nil, apperr.New(apperr.InvalidInput, "max_projects must be positive")
	}

	var tenant model.Tenant
	if err := s.db.First(&tenant, tenantID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.NotFound, "tenant not found")
		}
		return nil, apperr.Wrap("load tenant", err)
	}

	if in.Name != nil && *in.Name != "" {
		tenant.Name = *in.Name
	}
	if in.Status != nil {
		tenant.Status = *in.Status
	}
	if in.SubscriptionPlan != nil && *in.SubscriptionPlan != tenant.SubscriptionPlan {
		tenant.SubscriptionPlan = *in.SubscriptionPlan
		defaults := model.PlanDefaults[*in.SubscriptionPlan]
		tenant.MaxUsers = defaults.MaxUsers
		tenant.MaxProjects = defaults.MaxProjects
	}
	if in.MaxUsers != nil {
		tenant.MaxUsers = *in.MaxUsers
	}
	if in.MaxProjects != nil {
		tenant.MaxProjects = *in.MaxProjects
	}

	if err := s.db.Save(&tenant).Error; err != nil {
		return nil, apperr.Wrap("update tenant", err)
	}

	s.audit.Record(audit.Entry{
		TenantID:   &tenant.ID,
		UserID:     &caller.UserID,
		Action:     model.ActionUpdateTenant,
		EntityType: "tenant",
		EntityID:   tenant.ID,
		IPAddress:  in.IPAddress,
	})

	s.log.Info("tenant updated",
		zap.Uint("tenant_id", tenant.ID),
		zap.Uint("by_user", caller.UserID))

	return &tenant, nil
}
