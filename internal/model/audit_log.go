package model

import (
	"time"
)

// Audit action names. Stable strings, persisted as-is.
const (
	ActionLogin         = "LOGIN"
	ActionLogout        = "LOGOUT"
	ActionCreateTenant  = "CREATE_TENANT"
	ActionUpdateTenant  = "UPDATE_TENANT"
	ActionCreateUser    = "CREATE_USER"
	ActionUpdateUser    = "UPDATE_USER"
	ActionDeleteUser    = "DELETE_USER"
	ActionCreateProject = "CREATE_PROJECT"
	ActionUpdateProject = "UPDATE_PROJECT"
	ActionDeleteProject = "DELETE_PROJECT"
	ActionCreateTask    = "CREATE_TASK"
	ActionUpdateTask    = "UPDATE_TASK"
	ActionDeleteTask    = "DELETE_TASK"
)

// AuditLog is an append-only record of a privileged state change.
// TenantID is never zero: tenant-less super-admin actions are not
// recorded (audit scope is tenant-relative only). Rows are never
// updated or deleted by this service.
type AuditLog struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	TenantID   uint      `json:"tenant_id" gorm:"index;not null"`
	UserID     *uint     `json:"user_id,omitempty"`
	Action     string    `json:"action" gorm:"type:varchar(50);not null"`
	EntityType string    `json:"entity_type" gorm:"type:varchar(50)"`
	EntityID   uint      `json:"entity_id"`
	IPAddress  string    `json:"ip_address" gorm:"type:varchar(45)"`
	CreatedAt  time.Time `json:"created_at"`
}
