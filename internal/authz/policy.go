// Package authz is the single authorization decision point. Every
// handler path goes through Allow before touching a resource, so no
// code path can forget a check. Decisions are pure: they depend only
// on the caller's identity and the target resource's facts.
package authz

import (
	"projecthub/internal/apperr"
	"projecthub/internal/model"
)

// Operation names a policy-gated action.
type Operation string

const (
	OpTenantList Operation = "tenant.list"
	OpTenantView Operation = "tenant.view"
	// OpTenantUpdate covers tenant self-service metadata, which is
	// restricted to the name field.
	OpTenantUpdate Operation = "tenant.update"
	// OpTenantManage covers the restricted tenant fields: status,
	// subscription plan and quota limits.
	OpTenantManage Operation = "tenant.manage"

	OpProjectCreate Operation = "project.create"
	OpProjectList   Operation = "project.list"
	OpProjectUpdate Operation = "project.update"
	OpProjectDelete Operation = "project.delete"

	OpTaskCreate Operation = "task.create"
	OpTaskList   Operation = "task.list"
	OpTaskUpdate Operation = "task.update"
	OpTaskDelete Operation = "task.delete"

	OpUserCreate Operation = "user.create"
	OpUserList   Operation = "user.list"
	OpUserUpdate Operation = "user.update"
	OpUserDelete Operation = "user.delete"
)

// Caller is the authenticated identity making a request.
type Caller struct {
	UserID   uint
	TenantID *uint
	Role     model.Role
}

// Resource describes the target of an operation. TenantID is the
// owning tenant (nil only when the target itself is tenant-less).
// UserID is set when the target is a user record.
type Resource struct {
	TenantID *uint
	UserID   uint
}

// CallerFor builds a Caller from a resolved user.
func CallerFor(u *model.User) Caller {
	return Caller{UserID: u.ID, TenantID: u.TenantID, Role: u.Role}
}

var (
	errForbidden = apperr.New(apperr.Forbidden, "forbidden")
	errSelfOp    = apperr.New(apperr.Forbidden, "cannot delete your own account")
)

// Allow decides whether caller may perform op against res. It returns
// nil to allow, or a Forbidden taxonomy error. The tenant-isolation
// check always runs before any role check so a cross-tenant caller
// learns nothing about the resource.
func Allow(caller Caller, op Operation, res Resource) error {
	// Rule 2: tenant isolation. A mismatched tenant is Forbidden
	// regardless of role; only super_admin crosses tenants.
	if caller.Role != model.RoleSuperAdmin && op != OpTenantList {
		if caller.TenantID == nil || res.TenantID == nil || *caller.TenantID != *res.TenantID {
			return errForbidden
		}
	}

	// Rule 6: deleting one's own user record is always Forbidden,
	// independent of role, to avoid self-lockout.
	if op == OpUserDelete && res.UserID == caller.UserID {
		return errSelfOp
	}

	switch caller.Role {
	case model.RoleSuperAdmin:
		return allowSuperAdmin(op)
	case model.RoleTenantAdmin:
		return allowTenantAdmin(op)
	case model.RoleUser:
		return allowUser(caller, op, res)
	}
	return errForbidden
}

// Rule 1: super_admin manages the tenant directory and has read-only
// visibility into tenant content. Content mutations require a tenant
// context a super_admin by definition lacks.
func allowSuperAdmin(op Operation) error {
	switch op {
	case OpTenantList, OpTenantView, OpTenantUpdate, OpTenantManage,
		OpProjectList, OpTaskList, OpUserList:
		return nil
	}
	return errForbidden
}

// Rule 3: tenant_admin has full content control within its own tenant
// (isolation already established above) plus name-only tenant updates.
func allowTenantAdmin(op Operation) error {
	switch op {
	case OpTenantView, OpTenantUpdate,
		OpProjectCreate, OpProjectList, OpProjectUpdate, OpProjectDelete,
		OpTaskCreate, OpTaskList, OpTaskUpdate, OpTaskDelete,
		OpUserCreate, OpUserList, OpUserUpdate, OpUserDelete:
		return nil
	}
	return errForbidden
}

// Rule 4: a regular user reads projects and tasks, creates and updates
// tasks, and touches only its own user record.
func allowUser(caller Caller, op Operation, res Resource) error {
	switch op {
	case OpProjectList, OpTaskList, OpTaskCreate, OpTaskUpdate:
		return nil
	case OpUserUpdate:
		if res.UserID == caller.UserID {
			return nil
		}
	}
	return errForbidden
}
