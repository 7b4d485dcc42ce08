package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// SparePart is a stocked consumable drawn by work orders
type SparePart struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	SKU          string          `gorm:"type:varchar(100);uniqueIndex;not null" json:"sku"`
	Name         string          `gorm:"type:varchar(255);not null" json:"name"`
	Location     string          `gorm:"type:varchar(100)" json:"location"` // Shelf / bin
	CurrentStock int             `gorm:"type:int;not null;default:0" json:"current_stock"`
	MinStock     int             `gorm:"type:int;not null;default:0" json:"min_stock"`
	UnitCost     decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"unit_cost"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
	DeletedAt    gorm.DeletedAt  `gorm:"index" json:"-"`
}

func (p *SparePart) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// IsBelowMinStock reports whether stock dropped under the alert threshold
func (p *SparePart) IsBelowMinStock() bool {
	return p.MinStock > 0 && p.CurrentStock < p.MinStock
}
