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
	"projecthub/pkg/password"
)

// UserService handles tenant user management.
type UserService struct {
	db    *gorm.DB
	quota *quota.Guard
	audit *audit.Recorder
	log   *zap.Logger
}

// NewUserService wires user operations.
func NewUserService(db *gorm.DB, g *quota.Guard, rec *audit.Recorder, log *zap.Logger) *UserService {
	return &UserService{db: db, quota: g, audit: rec, log: log}
}

// UserCreateInput provisions a new user inside a tenant.
type UserCreateInput struct {
	Email     string
	Password  string
	FullName  string
	Role      model.Role
	IPAddress string
}

// Create adds a user to the tenant, subject to the tenant's user
// quota. The quota check and the insert run in one serialized
// transaction.
func (s *UserService) Create(caller authz.Caller, tenantID uint, in UserCreateInput) (*model.User, error) {
	if err := authz.Allow(caller, authz.OpUserCreate, authz.Resource{TenantID: &tenantID}); err != nil {
		return nil, err
	}

	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.FullName = strings.TrimSpace(in.FullName)
	if in.Role == "" {
		in.Role = model.RoleUser
	}
	switch {
	case !emailRe.MatchString(in.Email):
		return nil, apperr.New(apperr.InvalidInput, "a valid email is required")
	case len(in.Password) < 8:
		return nil, apperr.New(apperr.InvalidInput, "password must be at least 8 characters")
	case in.FullName == "":
		return nil, apperr.New(apperr.InvalidInput, "full name is required")
	case in.Role != model.RoleUser && in.Role != model.RoleTenantAdmin:
		return nil, apperr.New(apperr.InvalidInput, "role must be user or tenant_admin")
	}

	hash, err := password.Hash(in.Password)
	if err != nil {
		return nil, apperr.Wrap("hash password", err)
	}

	user := model.User{
		Email:        in.Email,
		PasswordHash: hash,
		FullName:     in.FullName,
		Role:         in.Role,
		TenantID:     &tenantID,
		IsActive:     true,
	}

	err = s.quota.Reserve(tenantID, quota.KindUsers, func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&model.User{}).Where("email = ? AND tenant_id = ?", in.Email, tenantID).Count(&count).Error; err != nil {
			return apperr.Wrap("check email", err)
		}
		if count > 0 {
			return apperr.New(apperr.Conflict, "email already exists in this tenant")
		}
		if err := tx.Create(&user).Error; err != nil {
			return apperr.Wrap("create user", err)
		}
		return nil
	})
	if err != nil {
		return nil, apperr.From(err)
	}

	s.audit.Record(audit.Entry{
		TenantID:   &tenantID,
		UserID:     &caller.UserID,
		Action:     model.ActionCreateUser,
		EntityType: "user",
		EntityID:   user.ID,
		IPAddress:  in.IPAddress,
	})

	s.log.Info("user created",
		zap.Uint("tenant_id", tenantID),
		zap.Uint("user_id", user.ID),
		zap.String("role", string(user.Role)))

	return &user, nil
}

// UserListQuery filters a tenant's user listing.
type UserListQuery struct {
	PageQuery
	Search string
	Role   string
}

// UserList is one page of tenant users.
type UserList struct {
	Users      []model.User `json:"users"`
	Pagination Pagination   `json:"pagination"`
}

// List returns the tenant's users.
func (s *UserService) List(caller authz.Caller, tenantID uint, q UserListQuery) (*UserList, error) {
	if err := authz.Allow(caller, authz.OpUserList, authz.Resource{TenantID: &tenantID}); err != nil {
		return nil, err
	}
	q.normalize()

	db := s.db.Model(&model.User{}).Where("tenant_id = ?", tenantID)
	if q.Search != "" {
		pattern := "%" + strings.ToLower(q.Search) + "%"
		db = db.Where("LOWER(full_name) LIKE ? OR LOWER(email) LIKE ?", pattern, pattern)
	}
	if q.Role != "" {
		db = db.Where("role = ?", q.Role)
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, apperr.Wrap("count users", err)
	}

	var users []model.User
	if err := db.Order("created_at DESC").Offset(q.offset()).Limit(q.Limit).Find(&users).Error; err != nil {
		return nil, apperr.Wrap("list users", err)
	}

	return &UserList{Users: users, Pagination: paginate(q.PageQuery, total)}, nil
}

// UserUpdateInput is a partial user update. Role and active-state
// changes are admin-only; a regular user may change only their own
// full name.
type UserUpdateInput struct {
	FullName  *string
	Role      *model.Role
	IsActive  *bool
	Password  *string
	IPAddress string
}

// Update applies a user update under the field-level rules.
func (s *UserService) Update(caller authz.Caller, userID uint, in UserUpdateInput) (*model.User, error) {
	var target model.User
	if err := s.db.First(&target, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.NotFound, "user not found")
		}
		return nil, apperr.Wrap("load user", err)
	}

	if err := authz.Allow(caller, authz.OpUserUpdate, authz.Resource{TenantID: target.TenantID, UserID: target.ID}); err != nil {
		return nil, err
	}

	// Role, active-state and password changes are reserved for
	// tenant admins; a regular user's self-update is name-only.
	if caller.Role != model.RoleTenantAdmin {
		if in.Role != nil || in.IsActive != nil || in.Password != nil {
			return nil, apperr.New(apperr.Forbidden, "only tenant_admin can update restricted fields")
		}
	}

	if in.Role != nil {
		if *in.Role != model.RoleUser && *in.Role != model.RoleTenantAdmin {
			return nil, apperr.New(apperr.InvalidInput, "role must be user or tenant_admin")
		}
		target.Role = *in.Role
	}
	if in.IsActive != nil {
		target.IsActive = *in.IsActive
	}
	if in.FullName != nil && *in.FullName != "" {
		target.FullName = *in.FullName
	}
	if in.Password != nil {
		if len(*in.Password) < 8 {
			return nil, apperr.New(apperr.InvalidInput, "password must be at least 8 characters")
		}
		hash, err := password.Hash(*in.Password)
		if err != nil {
			return nil, apperr.Wrap("hash password", err)
		}
		target.PasswordHash = hash
	}

	if err := s.db.Save(&target).Error; err != nil {
		return nil, apperr.Wrap("update user", err)
	}

	s.audit.Record(audit.Entry{
		TenantID:   target.TenantID,
		UserID:     &caller.UserID,
		Action:     model.ActionUpdateUser,
		EntityType: "user",
		EntityID:   target.ID,
		IPAddress:  in.IPAddress,
	})

	return &target, nil
}

// Delete removes a user and clears their task assignments in one
// transaction. Deleting one's own account is always Forbidden.
func (s *UserService) Delete(caller authz.Caller, userID uint, ip string) error {
	var target model.User
	if err := s.db.First(&target, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.New(apperr.NotFound, "user not found")
		}
		return apperr.Wrap("load user", err)
	}

	if err := authz.Allow(caller, authz.OpUserDelete, authz.Resource{TenantID: target.TenantID, UserID: target.ID}); err != nil {
		return err
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.Task{}).Where("assigned_to = ?", target.ID).Update("assigned_to", nil).Error; err != nil {
			return apperr.Wrap("unassign tasks", err)
		}
		if err := tx.Delete(&model.User{}, target.ID).Error; err != nil {
			return apperr.Wrap("delete user", err)
		}
		return nil
	})
	if err != nil {
		return apperr.From(err)
	}

	s.audit.Record(audit.Entry{
		TenantID:   target.TenantID,
		UserID:     &caller.UserID,
		Action:     model.ActionDeleteUser,
		EntityType: "user",
		EntityID:   target.ID,
		IPAddress:  ip,
	})

	s.log.Info("user deleted",
		zap.Uint("user_id", target.ID),
		zap.Uint("by_user", caller.UserID))

	return nil
}
