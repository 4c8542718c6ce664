package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"projecthub/internal/apperr"
	"projecthub/internal/model"
	"projecthub/pkg/config"
	"projecthub/pkg/jwtutil"
)

func newAuthService(t *testing.T, db *gorm.DB) *AuthService {
	t.Helper()
	jwt := jwtutil.New(&config.JWTConfig{SigningKey: "test-key", ExpirationHours: 24})
	return NewAuthService(db, jwt, newTestRecorder(t, db), zap.NewNop())
}

func TestRegisterDefaultsToFreePlan(t *testing.T) {
	db := openTestDB(t)
	svc := newAuthService(t, db)

	result, err := svc.Register(RegisterInput{
		TenantName:    "Acme Inc",
		Subdomain:     "acme",
		AdminEmail:    "admin@acme.test",
		AdminPassword: "password123",
		AdminFullName: "Ada Admin",
	})
	require.NoError(t, err)

	assert.Equal(t, model.PlanFree, result.Tenant.SubscriptionPlan)
	assert.Equal(t, 5, result.Tenant.MaxUsers)
	assert.Equal(t, 3, result.Tenant.MaxProjects)
	assert.Equal(t, model.RoleTenantAdmin, result.Admin.Role)

	var tenant model.Tenant
	require.NoError(t, db.First(&tenant, result.Tenant.ID).Error)
	assert.Equal(t, model.TenantActive, tenant.Status)

	var admin model.User
	require.NoError(t, db.First(&admin, result.Admin.ID).Error)
	assert.True(t, admin.IsActive)
	require.NotNil(t, admin.TenantID)
	assert.Equal(t, tenant.ID, *admin.TenantID)
	assert.NotEqual(t, "password123", admin.PasswordHash)
}

func TestRegisterPlanQuotas(t *testing.T) {
	db := openTestDB(t)
	svc := newAuthService(t, db)

	result, err := svc.Register(RegisterInput{
		TenantName:    "Big Corp",
		Subdomain:     "bigcorp",
		Plan:          model.PlanEnterprise,
		AdminEmail:    "admin@bigcorp.test",
		AdminPassword: "password123",
		AdminFullName: "Bo Boss",
	})
	require.NoError(t, err)
	assert.Equal(t, 100, result.Tenant.MaxUsers)
	assert.Equal(t, 50, result.Tenant.MaxProjects)
}

func TestRegisterDuplicateSubdomain(t *testing.T) {
	db := openTestDB(t)
	svc := newAuthService(t, db)
	seedTenant(t, db, "acme", 5, 3)

	_, err := svc.Register(RegisterInput{
		TenantName:    "Other Acme",
		Subdomain:     "acme",
		AdminEmail:    "other@acme.test",
		AdminPassword: "password123",
		AdminFullName: "Olly Other",
	})
	require.Error(t, err)
	assert.Equal(t, apperr.Conflict, apperr.KindOf(err))

	// The failed registration must not leave a partial admin behind.
	var count int64
	require.NoError(t, db.Model(&model.User{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}

func TestRegisterValidation(t *testing.T) {
	db := openTestDB(t)
	svc := newAuthService(t, db)

	cases := []struct {
		name string
		in   RegisterInput
	}{
		{"missing tenant name", RegisterInput{Subdomain: "a", AdminEmail: "a@b.c", AdminPassword: "password123", AdminFullName: "A"}},
		{"bad subdomain", RegisterInput{TenantName: "A", Subdomain: "Not Valid!", AdminEmail: "a@b.c", AdminPassword: "password123", AdminFullName: "A"}},
		{"bad email", RegisterInput{TenantName: "A", Subdomain: "a", AdminEmail: "nope", AdminPassword: "password123", AdminFullName: "A"}},
		{"short password", RegisterInput{TenantName: "A", Subdomain: "a", AdminEmail: "a@b.c", AdminPassword: "short", AdminFullName: "A"}},
		{"unknown plan", RegisterInput{TenantName: "A", Subdomain: "a", Plan: "platinum", AdminEmail: "a@b.c", AdminPassword: "password123", AdminFullName: "A"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Register(tc.in)
			require.Error(t, err)
			assert.Equal(t, apperr.InvalidInput, apperr.KindOf(err))
		})
	}
}

func TestLoginWithTenantSubdomain(t *testing.T) {
	db := openTestDB(t)
	svc := newAuthService(t, db)
	tenant := seedTenant(t, db, "acme", 5, 3)
	user := seedUser(t, db, &tenant.ID, "u@acme.test", model.RoleUser)

	result, err := svc.Login(LoginInput{
		Email:           "u@acme.test",
		Password:        "password123",
		TenantSubdomain: "acme",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, result.Token)
	assert.Equal(t, int64(24*60*60), result.ExpiresIn)
	assert.Equal(t, user.ID, result.User.ID)
	require.NotNil(t, result.Tenant)
	assert.Equal(t, tenant.ID, result.Tenant.ID)
}

func TestLoginPinnedTenantNeverFallsBack(t *testing.T) {
	db := openTestDB(t)
	svc := newAuthService(t, db)
	acme := seedTenant(t, db, "acme", 5, 3)
	other := seedTenant(t, db, "other", 5, 3)
	seedUser(t, db, &acme.ID, "u@acme.test", model.RoleUser)

	// Correct credentials, wrong tenant: invalid credentials, not a
	// fallback to the tenant the user actually belongs to.
	_, err := svc.Login(LoginInput{
		Email:           "u@acme.test",
		Password:        "password123",
		TenantSubdomain: other.Subdomain,
	})
	require.Error(t, err)
	assert.Equal(t, apperr.Unauthenticated, apperr.KindOf(err))
}

func TestLoginWrongPassword(t *testing.T) {
	db := openTestDB(t)
	svc := newAuthService(t, db)
	tenant := seedTenant(t, db, "acme", 5, 3)
	seedUser(t, db, &tenant.ID, "u@acme.test", model.RoleUser)

	_, err := svc.Login(LoginInput{
		Email:           "u@acme.test",
		Password:        "wrong-password",
		TenantSubdomain: "acme",
	})
	require.Error(t, err)
	assert.Equal(t, apperr.Unauthenticated, apperr.KindOf(err))
}

func TestLoginInactiveUserLooksLikeBadPassword(t *testing.T) {
	db := openTestDB(t)
	svc := newAuthService(t, db)
	tenant := seedTenant(t, db, "acme", 5, 3)
	user := seedUser(t, db, &tenant.ID, "u@acme.test", model.RoleUser)
	require.NoError(t, db.Model(&model.User{}).Where("id = ?", user.ID).Update("is_active", false).Error)

	_, err := svc.Login(LoginInput{
		Email:           "u@acme.test",
		Password:        "password123",
		TenantSubdomain: "acme",
	})
	require.Error(t, err)
	e := apperr.From(err)
	assert.Equal(t, apperr.Unauthenticated, e.Kind)
	assert.Equal(t, apperr.CodeUnauthenticated, e.Code)
}

func TestLoginSuspendedTenant(t *testing.T) {
	db := openTestDB(t)
	svc := newAuthService(t, db)
	tenant := seedTenant(t, db, "acme", 5, 3)
	seedUser(t, db, &tenant.ID, "u@acme.test", model.RoleUser)
	require.NoError(t, db.Model(&model.Tenant{}).Where("id = ?", tenant.ID).
		Update("status", model.TenantSuspended).Error)

	_, err := svc.Login(LoginInput{
		Email:           "u@acme.test",
		Password:        "password123",
		TenantSubdomain: "acme",
	})
	require.Error(t, err)
	e := apperr.From(err)
	assert.Equal(t, apperr.Forbidden, e.Kind)
	assert.Equal(t, apperr.CodeTenantNotActive, e.Code)
}

func TestLoginUnknownTenant(t *testing.T) {
	db := openTestDB(t)
	svc := newAuthService(t, db)

	_, err := svc.Login(LoginInput{
		Email:           "u@acme.test",
		Password:        "password123",
		TenantSubdomain: "ghost",
	})
	assert.Equal(t, apperr.NotFound, apperr.KindOf(err))
}

func TestLoginSuperAdminWithoutTenant(t *testing.T) {
	db := openTestDB(t)
	svc := newAuthService(t, db)
	admin := seedUser(t, db, nil, "root@projecthub.test", model.RoleSuperAdmin)

	result, err := svc.Login(LoginInput{
		Email:    "root@projecthub.test",
		Password: "password123",
	})
	require.NoError(t, err)
	assert.Equal(t, admin.ID, result.User.ID)
	assert.Nil(t, result.Tenant)
	assert.Nil(t, result.User.TenantID)
}

func TestLoginAmbiguousEmailNeedsTenant(t *testing.T) {
	db := openTestDB(t)
	svc := newAuthService(t, db)
	tenant := seedTenant(t, db, "acme", 5, 3)
	seedUser(t, db, &tenant.ID, "u@acme.test", model.RoleUser)

	// The email exists in a tenant but no tenant was named: the caller
	// is told to disambiguate rather than being logged in or denied.
	_, err := svc.Login(LoginInput{
		Email:    "u@acme.test",
		Password: "password123",
	})
	require.Error(t, err)
	e := apperr.From(err)
	assert.Equal(t, apperr.Unauthenticated, e.Kind)
	assert.Equal(t, apperr.CodeTenantRequired, e.Code)
}

func TestLoginUnknownEmail(t *testing.T) {
	db := openTestDB(t)
	svc := newAuthService(t, db)

	_, err := svc.Login(LoginInput{Email: "nobody@nowhere.test", Password: "password123"})
	require.Error(t, err)
	e := apperr.From(err)
	assert.Equal(t, apperr.Unauthenticated, e.Kind)
	assert.Equal(t, apperr.CodeUnauthenticated, e.Code)
}

func TestLoginValidatesInput(t *testing.T) {
	db := openTestDB(t)
	svc := newAuthService(t, db)

	_, err := svc.Login(LoginInput{Email: "not-an-email", Password: "x"})
	assert.Equal(t, apperr.InvalidInput, apperr.KindOf(err))

	_, err = svc.Login(LoginInput{Email: "a@b.c", Password: ""})
	assert.Equal(t, apperr.InvalidInput, apperr.KindOf(err))
}

func TestLoginWritesAuditEntry(t *testing.T) {
	db := openTestDB(t)
	jwt := jwtutil.New(&config.JWTConfig{SigningKey: "test-key", ExpirationHours: 24})
	rec := newTestRecorder(t, db)
	svc := NewAuthService(db, jwt, rec, zap.NewNop())

	tenant := seedTenant(t, db, "acme", 5, 3)
	user := seedUser(t, db, &tenant.ID, "u@acme.test", model.RoleUser)

	_, err := svc.Login(LoginInput{
		Email:           "u@acme.test",
		Password:        "password123",
		TenantSubdomain: "acme",
		IPAddress:       "10.1.2.3",
	})
	require.NoError(t, err)
	rec.Close()

	var rows []model.AuditLog
	require.NoError(t, db.Where("action = ?", model.ActionLogin).Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, tenant.ID, rows[0].TenantID)
	require.NotNil(t, rows[0].UserID)
	assert.Equal(t, user.ID, *rows[0].UserID)
	assert.Equal(t, "10.1.2.3", rows[0].IPAddress)
}
