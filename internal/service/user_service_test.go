package service

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"projecthub/internal/apperr"
	"projecthub/internal/model"
	"projecthub/internal/quota"
	"projecthub/pkg/password"
)

func newUserService(t *testing.T, db *gorm.DB) *UserService {
	t.Helper()
	return NewUserService(db, newTestGuard(db), newTestRecorder(t, db), zap.NewNop())
}

func TestUserCreate(t *testing.T) {
	db := openTestDB(t)
	svc := newUserService(t, db)
	tenant := seedTenant(t, db, "acme", 5, 3)
	admin := seedUser(t, db, &tenant.ID, "admin@acme.test", model.RoleTenantAdmin)

	user, err := svc.Create(adminCaller(admin.ID, tenant.ID), tenant.ID, UserCreateInput{
		Email:    "New.Member@Acme.Test",
		Password: "password123",
		FullName: "New Member",
	})
	require.NoError(t, err)
	assert.Equal(t, "new.member@acme.test", user.Email)
	assert.Equal(t, model.RoleUser, user.Role)
	assert.True(t, user.IsActive)
	assert.True(t, password.Verify("password123", user.PasswordHash))
}

func TestUserCreateQuotaBoundary(t *testing.T) {
	db := openTestDB(t)
	svc := newUserService(t, db)
	tenant := seedTenant(t, db, "acme", 3, 3)
	admin := seedUser(t, db, &tenant.ID, "admin@acme.test", model.RoleTenantAdmin)
	caller := adminCaller(admin.ID, tenant.ID)

	// The admin already counts against the quota of 3.
	for i := 0; i < 2; i++ {
		_, err := svc.Create(caller, tenant.ID, UserCreateInput{
			Email:    fmt.Sprintf("u%d@acme.test", i),
			Password: "password123",
			FullName: fmt.Sprintf("User %d", i),
		})
		require.NoError(t, err)
	}

	_, err := svc.Create(caller, tenant.ID, UserCreateInput{
		Email:    "overflow@acme.test",
		Password: "password123",
		FullName: "One Too Many",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, quota.ErrLimitReached)
	assert.Equal(t, apperr.CodeLimitReached, apperr.From(err).Code)
}

func TestUserCreateDuplicateEmailInTenant(t *testing.T) {
	db := openTestDB(t)
	svc := newUserService(t, db)
	tenant := seedTenant(t, db, "acme", 5, 3)
	admin := seedUser(t, db, &tenant.ID, "admin@acme.test", model.RoleTenantAdmin)

	_, err := svc.Create(adminCaller(admin.ID, tenant.ID), tenant.ID, UserCreateInput{
		Email:    "admin@acme.test",
		Password: "password123",
		FullName: "Duplicate",
	})
	require.Error(t, err)
	assert.Equal(t, apperr.Conflict, apperr.KindOf(err))
}

func TestUserCreateSameEmailDifferentTenants(t *testing.T) {
	db := openTestDB(t)
	svc := newUserService(t, db)
	acme := seedTenant(t, db, "acme", 5, 3)
	globex := seedTenant(t, db, "globex", 5, 3)
	acmeAdmin := seedUser(t, db, &acme.ID, "admin@acme.test", model.RoleTenantAdmin)
	globexAdmin := seedUser(t, db, &globex.ID, "admin@globex.test", model.RoleTenantAdmin)

	_, err := svc.Create(adminCaller(acmeAdmin.ID, acme.ID), acme.ID, UserCreateInput{
		Email: "shared@example.test", Password: "password123", FullName: "Shared A",
	})
	require.NoError(t, err)

	_, err = svc.Create(adminCaller(globexAdmin.ID, globex.ID), globex.ID, UserCreateInput{
		Email: "shared@example.test", Password: "password123", FullName: "Shared B",
	})
	require.NoError(t, err)
}

func TestUserCreateRejectsSuperAdminRole(t *testing.T) {
	db := openTestDB(t)
	svc := newUserService(t, db)
	tenant := seedTenant(t, db, "acme", 5, 3)
	admin := seedUser(t, db, &tenant.ID, "admin@acme.test", model.RoleTenantAdmin)

	_, err := svc.Create(adminCaller(admin.ID, tenant.ID), tenant.ID, UserCreateInput{
		Email:    "sneaky@acme.test",
		Password: "password123",
		FullName: "Sneaky",
		Role:     model.RoleSuperAdmin,
	})
	require.Error(t, err)
	assert.Equal(t, apperr.InvalidInput, apperr.KindOf(err))
}

func TestUserCreateMemberForbidden(t *testing.T) {
	db := openTestDB(t)
	svc := newUserService(t, db)
	tenant := seedTenant(t, db, "acme", 5, 3)
	member := seedUser(t, db, &tenant.ID, "member@acme.test", model.RoleUser)

	_, err := svc.Create(memberCaller(member.ID, tenant.ID), tenant.ID, UserCreateInput{
		Email: "new@acme.test", Password: "password123", FullName: "New",
	})
	assert.Equal(t, apperr.Forbidden, apperr.KindOf(err))
}

func TestUserListSearchAndFilter(t *testing.T) {
	db := openTestDB(t)
	svc := newUserService(t, db)
	tenant := seedTenant(t, db, "acme", 10, 3)
	admin := seedUser(t, db, &tenant.ID, "admin@acme.test", model.RoleTenantAdmin)
	seedUser(t, db, &tenant.ID, "alice@acme.test", model.RoleUser)
	seedUser(t, db, &tenant.ID, "bob@acme.test", model.RoleUser)

	caller := adminCaller(admin.ID, tenant.ID)

	result, err := svc.List(caller, tenant.ID, UserListQuery{Search: "ALICE"})
	require.NoError(t, err)
	require.Len(t, result.Users, 1)
	assert.Equal(t, "alice@acme.test", result.Users[0].Email)

	result, err = svc.List(caller, tenant.ID, UserListQuery{Role: "tenant_admin"})
	require.NoError(t, err)
	require.Len(t, result.Users, 1)
	assert.Equal(t, admin.ID, result.Users[0].ID)
}

func TestUserUpdateSelfNameOnly(t *testing.T) {
	db := openTestDB(t)
	svc := newUserService(t, db)
	tenant := seedTenant(t, db, "acme", 5, 3)
	member := seedUser(t, db, &tenant.ID, "member@acme.test", model.RoleUser)
	caller := memberCaller(member.ID, tenant.ID)

	name := "Renamed Member"
	updated, err := svc.Update(caller, member.ID, UserUpdateInput{FullName: &name})
	require.NoError(t, err)
	assert.Equal(t, "Renamed Member", updated.FullName)

	role := model.RoleTenantAdmin
	_, err = svc.Update(caller, member.ID, UserUpdateInput{Role: &role})
	require.Error(t, err)
	assert.Equal(t, apperr.Forbidden, apperr.KindOf(err))

	active := false
	_, err = svc.Update(caller, member.ID, UserUpdateInput{IsActive: &active})
	assert.Equal(t, apperr.Forbidden, apperr.KindOf(err))
}

func TestUserUpdateOtherUserForbiddenForMember(t *testing.T) {
	db := openTestDB(t)
	svc := newUserService(t, db)
	tenant := seedTenant(t, db, "acme", 5, 3)
	member := seedUser(t, db, &tenant.ID, "member@acme.test", model.RoleUser)
	other := seedUser(t, db, &tenant.ID, "other@acme.test", model.RoleUser)

	name := "Hijacked"
	_, err := svc.Update(memberCaller(member.ID, tenant.ID), other.ID, UserUpdateInput{FullName: &name})
	assert.Equal(t, apperr.Forbidden, apperr.KindOf(err))
}

func TestUserUpdateByAdmin(t *testing.T) {
	db := openTestDB(t)
	svc := newUserService(t, db)
	tenant := seedTenant(t, db, "acme", 5, 3)
	admin := seedUser(t, db, &tenant.ID, "admin@acme.test", model.RoleTenantAdmin)
	member := seedUser(t, db, &tenant.ID, "member@acme.test", model.RoleUser)

	role := model.RoleTenantAdmin
	active := false
	pw := "newpassword456"
	updated, err := svc.Update(adminCaller(admin.ID, tenant.ID), member.ID, UserUpdateInput{
		Role:     &role,
		IsActive: &active,
		Password: &pw,
	})
	require.NoError(t, err)
	assert.Equal(t, model.RoleTenantAdmin, updated.Role)
	assert.False(t, updated.IsActive)
	assert.True(t, password.Verify("newpassword456", updated.PasswordHash))
}

func TestUserUpdateCrossTenantForbidden(t *testing.T) {
	db := openTestDB(t)
	svc := newUserService(t, db)
	acme := seedTenant(t, db, "acme", 5, 3)
	globex := seedTenant(t, db, "globex", 5, 3)
	acmeAdmin := seedUser(t, db, &acme.ID, "admin@acme.test", model.RoleTenantAdmin)
	victim := seedUser(t, db, &globex.ID, "victim@globex.test", model.RoleUser)

	name := "Hijacked"
	_, err := svc.Update(adminCaller(acmeAdmin.ID, acme.ID), victim.ID, UserUpdateInput{FullName: &name})
	assert.Equal(t, apperr.Forbidden, apperr.KindOf(err))
}

func TestUserDeleteUnassignsTasks(t *testing.T) {
	db := openTestDB(t)
	svc := newUserService(t, db)
	tenant := seedTenant(t, db, "acme", 5, 3)
	admin := seedUser(t, db, &tenant.ID, "admin@acme.test", model.RoleTenantAdmin)
	member := seedUser(t, db, &tenant.ID, "member@acme.test", model.RoleUser)
	project := seedProject(t, db, tenant.ID, admin.ID, "launch")

	task := seedTask(t, db, tenant.ID, project.ID, "assigned work")
	require.NoError(t, db.Model(&model.Task{}).Where("id = ?", task.ID).
		Update("assigned_to", member.ID).Error)

	require.NoError(t, svc.Delete(adminCaller(admin.ID, tenant.ID), member.ID, "10.0.0.1"))

	var fresh model.Task
	require.NoError(t, db.First(&fresh, task.ID).Error)
	assert.Nil(t, fresh.AssignedTo)

	err := db.First(&model.User{}, member.ID).Error
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestUserSelfDeleteForbidden(t *testing.T) {
	db := openTestDB(t)
	svc := newUserService(t, db)
	tenant := seedTenant(t, db, "acme", 5, 3)
	admin := seedUser(t, db, &tenant.ID, "admin@acme.test", model.RoleTenantAdmin)

	err := svc.Delete(adminCaller(admin.ID, tenant.ID), admin.ID, "10.0.0.1")
	require.Error(t, err)
	assert.Equal(t, apperr.Forbidden, apperr.KindOf(err))

	// Still there.
	require.NoError(t, db.First(&model.User{}, admin.ID).Error)
}

func TestUserDeleteNotFound(t *testing.T) {
	db := openTestDB(t)
	svc := newUserService(t, db)
	tenant := seedTenant(t, db, "acme", 5, 3)
	admin := seedUser(t, db, &tenant.ID, "admin@acme.test", model.RoleTenantAdmin)

	err := svc.Delete(adminCaller(admin.ID, tenant.ID), 999, "10.0.0.1")
	assert.Equal(t, apperr.NotFound, apperr.KindOf(err))
}
