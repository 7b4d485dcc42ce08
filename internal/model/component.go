package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ComponentType identifies the kind of wear-tracked part
type ComponentType string

const (
	ComponentTypeScrew  ComponentType = "SCREW"
	ComponentTypeBarrel ComponentType = "BARREL"
)

// ComponentStatus is the wear bucket derived from the latest measurement
type ComponentStatus string

const (
	ComponentStatusOptimal           ComponentStatus = "OPTIMAL"
	ComponentStatusWarning           ComponentStatus = "WARNING"
	ComponentStatusNeedsNitriding    ComponentStatus = "NEEDS_NITRIDING"
	ComponentStatusNeedsRegeneration ComponentStatus = "NEEDS_REGENERATION"
	ComponentStatusToOrder           ComponentStatus = "TO_ORDER"
	ComponentStatusCritical          ComponentStatus = "CRITICAL"
)

// Warehouse names the two physical storage locations for components
type Warehouse string

const (
	WarehouseRetinato Warehouse = "RETINATO"
	WarehouseMagliato Warehouse = "MAGLIATO"
)

// Screw deviation thresholds in millimeters, first match wins
var (
	screwWarningFrom    = decimal.RequireFromString("0.4")
	screwNitridingFrom  = decimal.RequireFromString("0.5")
	screwNitridingTo    = decimal.RequireFromString("0.6")
	screwRegenerationTo = decimal.RequireFromString("1.0")
	barrelToOrderFrom   = decimal.RequireFromString("0.7")
	barrelToOrderTo     = decimal.RequireFromString("0.8")
)

// ClassifyWear maps the deviation of a measured value from the nominal
// diameter to a wear status bucket. The deviation is the absolute difference
// in millimeters.
//
// Screws: <0.4 OPTIMAL, 0.4-<0.5 WARNING, 0.5-0.6 NEEDS_NITRIDING,
// >0.6-1.0 NEEDS_REGENERATION, >1.0 CRITICAL.
// Barrels: <0.7 OPTIMAL, 0.7-0.8 TO_ORDER, >0.8 CRITICAL.
func ClassifyWear(componentType ComponentType, nominal, measured decimal.Decimal) ComponentStatus {
	deviation := measured.Sub(nominal).Abs()

	if componentType == ComponentTypeBarrel {
		switch {
		case deviation.LessThan(barrelToOrderFrom):
			return ComponentStatusOptimal
		case deviation.LessThanOrEqual(barrelToOrderTo):
			return ComponentStatusToOrder
		default:
			return ComponentStatusCritical
		}
	}

	switch {
	case deviation.LessThan(screwWarningFrom):
		return ComponentStatusOptimal
	case deviation.LessThan(screwNitridingFrom):
		return ComponentStatusWarning
	case deviation.LessThanOrEqual(screwNitridingTo):
		return ComponentStatusNeedsNitriding
	case deviation.LessThanOrEqual(screwRegenerationTo):
		return ComponentStatusNeedsRegeneration
	default:
		return ComponentStatusCritical
	}
}

// IsScrapEligible reports whether a status allows flagging the component as scrap
func (s ComponentStatus) IsScrapEligible() bool {
	return s == ComponentStatusCritical
}

// Component is a wear-tracked screw or barrel, stored in one of the two
// warehouses or mounted on an asset
type Component struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	Code            string          `gorm:"type:varchar(50);uniqueIndex;not null" json:"code"`
	Type            ComponentType   `gorm:"type:varchar(10);not null;index" json:"type"`
	NominalDiameter decimal.Decimal `gorm:"type:decimal(8,2);not null" json:"nominal_diameter"` // mm
	Status          ComponentStatus `gorm:"type:varchar(20);not null;default:'OPTIMAL'" json:"status"`
	IsScrapped      bool            `gorm:"not null;default:false" json:"is_scrapped"`
	Warehouse       Warehouse       `gorm:"type:varchar(10);not null" json:"warehouse"`

	// Non-nil while the component is mounted on an asset
	AssignedAssetID *uuid.UUID `gorm:"type:uuid;index" json:"assigned_asset_id"`
	AssignedAsset   *Asset     `gorm:"foreignKey:AssignedAssetID" json:"assigned_asset,omitempty"`

	Measurements []Measurement `gorm:"foreignKey:ComponentID" json:"measurements,omitempty"`

	Notes     string         `gorm:"type:text" json:"notes"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (c *Component) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// LatestMeasurement returns the most recent measurement, or nil when none exist.
// Assumes Measurements are loaded ordered by measured_at.
func (c *Component) LatestMeasurement() *Measurement {
	if len(c.Measurements) == 0 {
		return nil
	}
	return &c.Measurements[len(c.Measurements)-1]
}

// Measurement is an appended diameter reading on a component. Measurements
// are never removed.
type Measurement struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	ComponentID uuid.UUID       `gorm:"type:uuid;not null;index" json:"component_id"`
	Value       decimal.Decimal `gorm:"type:decimal(8,2);not null" json:"value"` // mm
	MeasuredAt  time.Time       `gorm:"not null;index" json:"measured_at"`
	OperatorID  uuid.UUID       `gorm:"type:uuid;not null" json:"operator_id"`
	Operator    *User           `gorm:"foreignKey:OperatorID" json:"operator,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

func (m *Measurement) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
