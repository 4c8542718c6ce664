package model

import (
	"time"
)

// TenantStatus is the lifecycle state of a tenant. Tenants are never
// hard-deleted in this design; suspension is handled through status.
type TenantStatus string

const (
	TenantActive    TenantStatus = "active"
	TenantSuspended TenantStatus = "suspended"
	TenantTrial     TenantStatus = "trial"
)

// SubscriptionPlan determines the tenant's resource quotas.
type SubscriptionPlan string

const (
	PlanFree       SubscriptionPlan = "free"
	PlanPro        SubscriptionPlan = "pro"
	PlanEnterprise SubscriptionPlan = "enterprise"
)

// PlanQuota holds per-plan default resource limits.
type PlanQuota struct {
	MaxUsers    int
	MaxProjects int
}

// PlanDefaults maps each subscription plan to its default quotas.
// Consumed by tenant registration and by super-admin plan changes.
var PlanDefaults = map[SubscriptionPlan]PlanQuota{
	PlanFree:       {MaxUsers: 5, MaxProjects: 3},
	PlanPro:        {MaxUsers: 25, MaxProjects: 15},
	PlanEnterprise: {MaxUsers: 100, MaxProjects: 50},
}

// Valid reports whether p is a known subscription plan.
func (p SubscriptionPlan) Valid() bool {
	_, ok := PlanDefaults[p]
	return ok
}

// Valid reports whether s is a known tenant status.
func (s TenantStatus) Valid() bool {
	switch s {
	case TenantActive, TenantSuspended, TenantTrial:
		return true
	}
	return false
}

// Tenant represents an isolated customer account. Users, projects and
// tasks all hang off a tenant through their tenant_id; every read and
// write of those resources must be filtered by it.
type Tenant struct {
	ID               uint             `json:"id" gorm:"primaryKey"`
	Name             string           `json:"name" gorm:"type:varchar(100);not null"`
	Subdomain        string           `json:"subdomain" gorm:"type:varchar(63);uniqueIndex;not null"`
	Status           TenantStatus     `json:"status" gorm:"type:varchar(20);not null;default:'active'"`
	SubscriptionPlan SubscriptionPlan `json:"subscription_plan" gorm:"type:varchar(20);not null;default:'free'"`
	MaxUsers         int              `json:"max_users" gorm:"not null"`
	MaxProjects      int              `json:"max_projects" gorm:"not null"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}
