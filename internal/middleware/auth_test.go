package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"projecthub/internal/identity"
	"projecthub/internal/model"
	"projecthub/pkg/config"
	"projecthub/pkg/jwtutil"
)

func setupAuth(t *testing.T) (*gorm.DB, *jwtutil.JWT, echo.MiddlewareFunc) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&model.Tenant{}, &model.User{}))

	jwt := jwtutil.New(&config.JWTConfig{SigningKey: "test-key", ExpirationHours: 1})
	return db, jwt, Auth(identity.NewResolver(db, jwt))
}

func runAuth(t *testing.T, mw echo.MiddlewareFunc, header string) (*httptest.ResponseRecorder, echo.Context, bool) {
	t.Helper()

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	reached := false
	handler := mw(func(c echo.Context) error {
		reached = true
		return c.NoContent(http.StatusOK)
	})
	require.NoError(t, handler(c))
	return rec, c, reached
}

func TestAuthMissingHeader(t *testing.T) {
	_, _, mw := setupAuth(t)
	rec, _, reached := runAuth(t, mw, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, reached)
}

func TestAuthBadFormat(t *testing.T) {
	_, jwt, mw := setupAuth(t)
	token, err := jwt.Issue(1, nil, model.RoleSuperAdmin)
	require.NoError(t, err)

	rec, _, reached := runAuth(t, mw, token) // no "Bearer " prefix
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, reached)
}

func TestAuthInvalidToken(t *testing.T) {
	_, _, mw := setupAuth(t)
	rec, _, reached := runAuth(t, mw, "Bearer garbage")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, reached)
}

func TestAuthResolvesCaller(t *testing.T) {
	db, jwt, mw := setupAuth(t)

	tenant := model.Tenant{
		Name: "acme", Subdomain: "acme",
		Status: model.TenantActive, SubscriptionPlan: model.PlanFree,
		MaxUsers: 5, MaxProjects: 3,
	}
	require.NoError(t, db.Create(&tenant).Error)
	user := model.User{
		Email: "u@acme.test", PasswordHash: "x", FullName: "U",
		Role: model.RoleTenantAdmin, TenantID: &tenant.ID, IsActive: true,
	}
	require.NoError(t, db.Create(&user).Error)

	token, err := jwt.Issue(user.ID, user.TenantID, user.Role)
	require.NoError(t, err)

	rec, c, reached := runAuth(t, mw, "Bearer "+token)
	require.True(t, reached)
	assert.Equal(t, http.StatusOK, rec.Code)

	caller, ok := CallerFrom(c)
	require.True(t, ok)
	assert.Equal(t, user.ID, caller.UserID)
	assert.Equal(t, model.RoleTenantAdmin, caller.Role)

	gotUser, ok := UserFrom(c)
	require.True(t, ok)
	assert.Equal(t, user.ID, gotUser.ID)

	gotTenant := TenantFrom(c)
	require.NotNil(t, gotTenant)
	assert.Equal(t, tenant.ID, gotTenant.ID)
}

func TestAuthDeactivatedUserGets403(t *testing.T) {
	db, jwt, mw := setupAuth(t)

	user := model.User{
		Email: "root@test", PasswordHash: "x", FullName: "Root",
		Role: model.RoleSuperAdmin, IsActive: true,
	}
	require.NoError(t, db.Create(&user).Error)

	token, err := jwt.Issue(user.ID, nil, user.Role)
	require.NoError(t, err)
	require.NoError(t, db.Model(&model.User{}).Where("id = ?", user.ID).Update("is_active", false).Error)

	rec, _, reached := runAuth(t, mw, "Bearer "+token)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.False(t, reached)
}
