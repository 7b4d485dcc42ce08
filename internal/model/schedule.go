package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PreventiveSchedule is a recurring maintenance plan bound to one asset.
// Each time a generated work order is closed, LastRunDate moves to the closure
// time and NextDueDate advances by FrequencyDays from that moment. A late
// completion therefore does not compound delay into the next cycle.
type PreventiveSchedule struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Title         string    `gorm:"type:varchar(255);not null" json:"title"`
	Details       string    `gorm:"type:text" json:"details"`
	AssetID       uuid.UUID `gorm:"type:uuid;not null;index" json:"asset_id"`
	Asset         *Asset    `gorm:"foreignKey:AssetID" json:"asset,omitempty"`
	Frequency     string    `gorm:"type:varchar(50);not null" json:"frequency"` // Semantic label: weekly, monthly...
	FrequencyDays int       `gorm:"type:int;not null" json:"frequency_days"`

	NextDueDate time.Time  `gorm:"not null;index" json:"next_due_date"`
	LastRunDate *time.Time `json:"last_run_date"`

	// Optional technician assigned by default to generated work orders
	DefaultAssigneeID *uuid.UUID `gorm:"type:uuid" json:"default_assignee_id"`
	DefaultAssignee   *User      `gorm:"foreignKey:DefaultAssigneeID" json:"default_assignee,omitempty"`

	Category   WorkOrderCategory  `gorm:"type:varchar(20);not null;default:'MECHANICAL'" json:"category"`
	Priority   Priority           `gorm:"type:varchar(10);not null;default:'MEDIUM'" json:"priority"`
	Activities []ScheduleActivity `gorm:"foreignKey:ScheduleID" json:"activities,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (s *PreventiveSchedule) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// IsDue reports whether the schedule should produce a work order as of now
func (s *PreventiveSchedule) IsDue(now time.Time) bool {
	return !s.NextDueDate.After(now)
}

// ScheduleActivity is one ordered required activity of a preventive schedule.
// Generated work orders copy these into their checklist.
type ScheduleActivity struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ScheduleID  uuid.UUID `gorm:"type:uuid;not null;index" json:"schedule_id"`
	Position    int       `gorm:"not null;default:0" json:"position"`
	Description string    `gorm:"type:varchar(255);not null" json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

func (a *ScheduleActivity) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
