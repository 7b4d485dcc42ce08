package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// WorkOrderStatus is the closed set of lifecycle states a work order can be in.
type WorkOrderStatus string

const (
	WorkOrderStatusPendingApproval WorkOrderStatus = "PENDING_APPROVAL"
	WorkOrderStatusOpen            WorkOrderStatus = "OPEN"
	WorkOrderStatusAssigned        WorkOrderStatus = "ASSIGNED"
	WorkOrderStatusInProgress      WorkOrderStatus = "IN_PROGRESS"
	WorkOrderStatusOnHold          WorkOrderStatus = "ON_HOLD"
	WorkOrderStatusPendingReview   WorkOrderStatus = "PENDING_REVIEW"
	WorkOrderStatusCompleted       WorkOrderStatus = "COMPLETED"
	WorkOrderStatusClosed          WorkOrderStatus = "CLOSED"
	WorkOrderStatusCanceled        WorkOrderStatus = "CANCELED"
)

// WorkOrderType classifies how the work order originated.
type WorkOrderType string

const (
	WorkOrderTypeFault   WorkOrderType = "FAULT"
	WorkOrderTypeRoutine WorkOrderType = "ROUTINE"
	WorkOrderTypeRequest WorkOrderType = "REQUEST"
)

// WorkOrderCategory is the maintenance discipline of the task.
type WorkOrderCategory string

const (
	CategoryMechanical   WorkOrderCategory = "MECHANICAL"
	CategoryElectrical   WorkOrderCategory = "ELECTRICAL"
	CategoryHydraulic    WorkOrderCategory = "HYDRAULIC"
	CategoryPneumatic    WorkOrderCategory = "PNEUMATIC"
	CategoryOther        WorkOrderCategory = "OTHER"
	CategoryAISuggestion WorkOrderCategory = "AI_SUGGESTION"
)

// Priority levels for work orders
type Priority string

const (
	PriorityHigh   Priority = "HIGH"
	PriorityMedium Priority = "MEDIUM"
	PriorityLow    Priority = "LOW"
)

// WorkOrder represents a single maintenance task from creation to archival
type WorkOrder struct {
	ID       uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	Code     string            `gorm:"type:varchar(30);uniqueIndex;not null" json:"code"`
	Title    string            `gorm:"type:varchar(255);not null" json:"title"`
	Details  string            `gorm:"type:text" json:"details"`
	Type     WorkOrderType     `gorm:"type:varchar(20);not null" json:"type"`
	Category WorkOrderCategory `gorm:"type:varchar(20);not null" json:"category"`
	Priority Priority          `gorm:"type:varchar(10);not null;default:'MEDIUM'" json:"priority"`
	Status   WorkOrderStatus   `gorm:"type:varchar(20);not null;index" json:"status"`

	AssetID   uuid.UUID `gorm:"type:uuid;not null;index" json:"asset_id"`
	Asset     *Asset    `gorm:"foreignKey:AssetID" json:"asset,omitempty"`
	AssetName string    `gorm:"type:varchar(255)" json:"asset_name"` // Denormalized for list views

	RequestedByID *uuid.UUID `gorm:"type:uuid;index" json:"requested_by_id"`
	RequestedBy   *User      `gorm:"foreignKey:RequestedByID" json:"requested_by,omitempty"`
	AssignedToID  *uuid.UUID `gorm:"type:uuid;index" json:"assigned_to_id"`
	AssignedTo    *User      `gorm:"foreignKey:AssignedToID" json:"assigned_to,omitempty"`
	ValidatedByID *uuid.UUID `gorm:"type:uuid" json:"validated_by_id"`
	ValidatedBy   *User      `gorm:"foreignKey:ValidatedByID" json:"validated_by,omitempty"`

	// Set when the work order was generated from a preventive schedule
	OriginScheduleID *uuid.UUID          `gorm:"type:uuid;index" json:"origin_schedule_id"`
	OriginSchedule   *PreventiveSchedule `gorm:"foreignKey:OriginScheduleID" json:"origin_schedule,omitempty"`

	// References the work order this one follows up on (EWO follow-up requests)
	FollowUpOfID *uuid.UUID `gorm:"type:uuid" json:"follow_up_of_id"`

	EWOFilled bool `gorm:"not null;default:false" json:"ewo_filled"`
	EWO       *EWO `gorm:"foreignKey:WorkOrderID" json:"ewo,omitempty"`

	Checklist []ChecklistItem  `gorm:"foreignKey:WorkOrderID" json:"checklist,omitempty"`
	Parts     []WorkOrderPart  `gorm:"foreignKey:WorkOrderID" json:"parts,omitempty"`
	LaborLogs []LaborLog       `gorm:"foreignKey:WorkOrderID" json:"labor_logs,omitempty"`
	Timers    []WorkOrderTimer `gorm:"foreignKey:WorkOrderID" json:"timers,omitempty"`

	StartedAt   *time.Time     `json:"started_at"`
	CompletedAt *time.Time     `json:"completed_at"`
	ClosedAt    *time.Time     `json:"closed_at"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

func (w *WorkOrder) BeforeCreate(tx *gorm.DB) error {
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	return nil
}

// IsTerminal reports whether the work order reached a final state
func (w *WorkOrder) IsTerminal() bool {
	return w.Status == WorkOrderStatusClosed || w.Status == WorkOrderStatusCanceled
}

// TotalLaborHours sums hours over all labor logs. Used by the EWO closure guard.
func (w *WorkOrder) TotalLaborHours() float64 {
	var total float64
	for _, l := range w.LaborLogs {
		total += l.Hours
	}
	return total
}

// ChecklistComplete reports whether every checklist item has been ticked off
func (w *WorkOrder) ChecklistComplete() bool {
	for _, item := range w.Checklist {
		if !item.Completed {
			return false
		}
	}
	return true
}

// RunningTimer returns the open timer session, if any
func (w *WorkOrder) RunningTimer() *WorkOrderTimer {
	for i := range w.Timers {
		if w.Timers[i].EndedAt == nil {
			return &w.Timers[i]
		}
	}
	return nil
}

// ChecklistItem is a single required activity on a work order
type ChecklistItem struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	WorkOrderID uuid.UUID  `gorm:"type:uuid;not null;index" json:"work_order_id"`
	Position    int        `gorm:"not null;default:0" json:"position"`
	Description string     `gorm:"type:varchar(255);not null" json:"description"`
	Completed   bool       `gorm:"not null;default:false" json:"completed"`
	CompletedAt *time.Time `json:"completed_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (c *ChecklistItem) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// WorkOrderPart records a spare part consumed by a work order
type WorkOrderPart struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	WorkOrderID uuid.UUID       `gorm:"type:uuid;not null;index" json:"work_order_id"`
	SparePartID uuid.UUID       `gorm:"type:uuid;not null;index" json:"spare_part_id"`
	SparePart   *SparePart      `gorm:"foreignKey:SparePartID" json:"spare_part,omitempty"`
	Quantity    int             `gorm:"type:int;not null" json:"quantity"`
	UnitCost    decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"unit_cost"`
	CreatedAt   time.Time       `json:"created_at"`
}

func (p *WorkOrderPart) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// LaborLog records hours a technician spent on a work order
type LaborLog struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	WorkOrderID  uuid.UUID `gorm:"type:uuid;not null;index" json:"work_order_id"`
	TechnicianID uuid.UUID `gorm:"type:uuid;not null;index" json:"technician_id"`
	Technician   *User     `gorm:"foreignKey:TechnicianID" json:"technician,omitempty"`
	Hours        float64   `gorm:"type:decimal(6,2);not null" json:"hours"`
	WorkDate     time.Time `gorm:"not null" json:"work_date"`
	Note         string    `gorm:"type:text" json:"note"`
	CreatedAt    time.Time `json:"created_at"`
}

func (l *LaborLog) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}

// WorkOrderTimer tracks an active work session between start and pause/completion
type WorkOrderTimer struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	WorkOrderID uuid.UUID  `gorm:"type:uuid;not null;index" json:"work_order_id"`
	StartedByID uuid.UUID  `gorm:"type:uuid;not null" json:"started_by_id"`
	StartedAt   time.Time  `gorm:"not null" json:"started_at"`
	EndedAt     *time.Time `json:"ended_at"`
	DurationMin int        `gorm:"type:int;not null;default:0" json:"duration_min"`
	CreatedAt   time.Time  `json:"created_at"`
}

func (t *WorkOrderTimer) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
