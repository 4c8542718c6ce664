package model

import (
	"time"
)

// Task belongs to a project and inherits the project's tenant.
// AssignedTo, when set, must reference a user in the same tenant.
type Task struct {
	ID          uint       `json:"id" gorm:"primaryKey"`
	TenantID    uint       `json:"tenant_id" gorm:"index;not null"`
	ProjectID   uint       `json:"project_id" gorm:"index;not null"`
	Title       string     `json:"title" gorm:"type:varchar(200);not null"`
	Description string     `json:"description" gorm:"type:text"`
	Status      string     `json:"status" gorm:"type:varchar(20);not null;default:'todo'"`
	Priority    string     `json:"priority" gorm:"type:varchar(20);not null;default:'medium'"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	AssignedTo  *uint      `json:"assigned_to,omitempty" gorm:"index"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}
