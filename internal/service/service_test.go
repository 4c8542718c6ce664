package service

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"projecthub/internal/audit"
	"projecthub/internal/model"
	"projecthub/internal/quota"
	"projecthub/pkg/password"
)

// openTestDB opens an in-memory database with the full schema. The
// pool is capped at one connection so every query sees the same
// in-memory store.
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&model.Tenant{},
		&model.User{},
		&model.Project{},
		&model.Task{},
		&model.AuditLog{},
	))
	return db
}

func newTestRecorder(t *testing.T, db *gorm.DB) *audit.Recorder {
	t.Helper()
	rec := audit.NewRecorder(db, zap.NewNop(), 64)
	t.Cleanup(rec.Close)
	return rec
}

func newTestGuard(db *gorm.DB) *quota.Guard {
	return quota.NewGuard(db)
}

func seedTenant(t *testing.T, db *gorm.DB, subdomain string, maxUsers, maxProjects int) *model.Tenant {
	t.Helper()
	tenant := model.Tenant{
		Name:             subdomain,
		Subdomain:        subdomain,
		Status:           model.TenantActive,
		SubscriptionPlan: model.PlanFree,
		MaxUsers:         maxUsers,
		MaxProjects:      maxProjects,
	}
	require.NoError(t, db.Create(&tenant).Error)
	return &tenant
}

func seedUser(t *testing.T, db *gorm.DB, tenantID *uint, email string, role model.Role) *model.User {
	t.Helper()
	hash, err := password.Hash("password123")
	require.NoError(t, err)
	user := model.User{
		Email:        email,
		PasswordHash: hash,
		FullName:     "Test User",
		Role:         role,
		TenantID:     tenantID,
		IsActive:     true,
	}
	require.NoError(t, db.Create(&user).Error)
	return &user
}

func seedProject(t *testing.T, db *gorm.DB, tenantID, createdBy uint, name string) *model.Project {
	t.Helper()
	project := model.Project{
		TenantID:  tenantID,
		Name:      name,
		Status:    "active",
		CreatedBy: createdBy,
	}
	require.NoError(t, db.Create(&project).Error)
	return &project
}

func seedTask(t *testing.T, db *gorm.DB, tenantID, projectID uint, title string) *model.Task {
	t.Helper()
	task := model.Task{
		TenantID:  tenantID,
		ProjectID: projectID,
		Title:     title,
		Status:    "todo",
		Priority:  "medium",
	}
	require.NoError(t, db.Create(&task).Error)
	return &task
}
