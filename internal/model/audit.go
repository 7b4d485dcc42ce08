package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	ActionCreateWorkOrder   = "CREATE_WORK_ORDER"
	ActionApproveWorkOrder  = "APPROVE_WORK_ORDER"
	ActionStartWorkOrder    = "START_WORK_ORDER"
	ActionPauseWorkOrder    = "PAUSE_WORK_ORDER"
	ActionResumeWorkOrder   = "RESUME_WORK_ORDER"
	ActionCompleteWorkOrder = "COMPLETE_WORK_ORDER"
	ActionMarkDoneWorkOrder = "MARK_DONE_WORK_ORDER"
	ActionReviewWorkOrder   = "REVIEW_WORK_ORDER"
	ActionCancelWorkOrder   = "CANCEL_WORK_ORDER"

	ActionSubmitEWO         = "SUBMIT_EWO"
	ActionGenerateDueWork   = "GENERATE_DUE_WORK_ORDERS"
	ActionAddMeasurement    = "ADD_MEASUREMENT"
	ActionReassignComponent = "REASSIGN_COMPONENT"
	ActionScrapComponent    = "SCRAP_COMPONENT"
	ActionAdjustStock       = "ADJUST_STOCK"
)

// AuditLog tracks Who, What, and When for critical system changes
type AuditLog struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID     *uuid.UUID `gorm:"type:uuid;index" json:"user_id"` // Nullable gracefully if automated job
	User       *User      `gorm:"foreignKey:UserID" json:"user"`
	Action     string     `gorm:"type:varchar(50);not null;index" json:"action"`
	EntityID   string     `gorm:"type:varchar(50);index" json:"entity_id"`        // Reference string (uuid/code)
	EntityName string     `gorm:"type:varchar(255)" json:"entity_name,omitempty"` // Human readable name
	Details    string     `gorm:"type:jsonb" json:"details"`                      // Serialized JSON payload of the action
	CreatedAt  time.Time  `gorm:"index" json:"created_at"`
}

func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
