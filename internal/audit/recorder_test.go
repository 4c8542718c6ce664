package audit

import (
	"fmt"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"projecthub/internal/model"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&model.AuditLog{}))
	return db
}

func TestRecordWritesEntry(t *testing.T) {
	db := openTestDB(t)
	r := NewRecorder(db, zap.NewNop(), 16)

	tenantID, userID := uint(1), uint(2)
	r.Record(Entry{
		TenantID:   &tenantID,
		UserID:     &userID,
		Action:     model.ActionCreateProject,
		EntityType: "project",
		EntityID:   7,
		IPAddress:  "10.0.0.1",
	})
	r.Close()

	var rows []model.AuditLog
	require.NoError(t, db.Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, uint(1), rows[0].TenantID)
	require.NotNil(t, rows[0].UserID)
	assert.Equal(t, uint(2), *rows[0].UserID)
	assert.Equal(t, model.ActionCreateProject, rows[0].Action)
	assert.Equal(t, "project", rows[0].EntityType)
	assert.Equal(t, uint(7), rows[0].EntityID)
	assert.Equal(t, "10.0.0.1", rows[0].IPAddress)
}

func TestRecordDropsTenantlessEntries(t *testing.T) {
	db := openTestDB(t)
	r := NewRecorder(db, zap.NewNop(), 16)

	userID := uint(1)
	r.Record(Entry{
		TenantID:   nil,
		UserID:     &userID,
		Action:     model.ActionUpdateTenant,
		EntityType: "tenant",
		EntityID:   3,
	})
	r.Close()

	var count int64
	require.NoError(t, db.Model(&model.AuditLog{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}

func TestCloseDrainsQueueInOrder(t *testing.T) {
	db := openTestDB(t)
	r := NewRecorder(db, zap.NewNop(), 64)

	tenantID := uint(1)
	for i := 0; i < 20; i++ {
		r.Record(Entry{
			TenantID:   &tenantID,
			Action:     model.ActionCreateTask,
			EntityType: "task",
			EntityID:   uint(i + 1),
		})
	}
	r.Close()

	var rows []model.AuditLog
	require.NoError(t, db.Order("id").Find(&rows).Error)
	require.Len(t, rows, 20)
	for i, row := range rows {
		assert.Equal(t, uint(i+1), row.EntityID, fmt.Sprintf("row %d out of order", i))
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	r := NewRecorder(db, zap.NewNop(), 4)
	r.Close()
	r.Close()
}
