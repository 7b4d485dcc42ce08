package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// EWO is the mandatory post-incident report gating closure of work orders
// whose cumulative labor hours exceed the configured threshold. One-to-one
// with its work order; its existence implies EWOFilled on the work order.
type EWO struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	WorkOrderID uuid.UUID `gorm:"type:uuid;uniqueIndex;not null" json:"work_order_id"`

	CauseAnalysis    string `gorm:"type:text;not null" json:"cause_analysis"`
	AppliedSolution  string `gorm:"type:text;not null" json:"applied_solution"`
	PreventiveAction string `gorm:"type:text" json:"preventive_action"`

	NeedsFollowUp  bool   `gorm:"not null;default:false" json:"needs_follow_up"`
	FollowUpDetail string `gorm:"type:text" json:"follow_up_detail"`

	SubmittedByID uuid.UUID `gorm:"type:uuid;not null" json:"submitted_by_id"`
	SubmittedBy   *User     `gorm:"foreignKey:SubmittedByID" json:"submitted_by,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (e *EWO) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
