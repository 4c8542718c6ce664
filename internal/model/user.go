package model

import (
	"time"
)

// Role is a user's role. The set is closed so that authorization
// decisions can match exhaustively over it.
type Role string

const (
	RoleSuperAdmin  Role = "super_admin"
	RoleTenantAdmin Role = "tenant_admin"
	RoleUser        Role = "user"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleSuperAdmin, RoleTenantAdmin, RoleUser:
		return true
	}
	return false
}

// User represents the user model stored in the database.
//
// TenantID is nil only for super admins; everyone else belongs to
// exactly one tenant. The same email may exist once per tenant plus
// once more as a tenant-less super admin, hence the composite unique
// index on (email, tenant_id).
type User struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	Email        string    `json:"email" gorm:"type:varchar(100);not null;uniqueIndex:idx_users_email_tenant"`
	PasswordHash string    `json:"-" gorm:"type:varchar(255);not null"`
	FullName     string    `json:"full_name" gorm:"type:varchar(100);not null"`
	Role         Role      `json:"role" gorm:"type:varchar(20);not null;default:'user'"`
	TenantID     *uint     `json:"tenant_id,omitempty" gorm:"index;uniqueIndex:idx_users_email_tenant"`
	IsActive     bool      `json:"is_active" gorm:"not null;default:true"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
