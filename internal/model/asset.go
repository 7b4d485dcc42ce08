package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AssetStatus constants
type AssetStatus string

const (
	AssetStatusRunning     AssetStatus = "RUNNING"
	AssetStatusStopped     AssetStatus = "STOPPED"
	AssetStatusMaintenance AssetStatus = "MAINTENANCE"
	AssetStatusRetired     AssetStatus = "RETIRED"
)

// Asset represents a tracked industrial machine in the plant
type Asset struct {
	ID           uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Code         string         `gorm:"type:varchar(50);uniqueIndex;not null" json:"code"`
	Name         string         `gorm:"type:varchar(255);not null" json:"name"`
	Manufacturer string         `gorm:"type:varchar(255)" json:"manufacturer"`
	SerialNumber string         `gorm:"type:varchar(100)" json:"serial_number"`
	Area         string         `gorm:"type:varchar(100)" json:"area"` // Plant area / production line
	Status       AssetStatus    `gorm:"type:varchar(20);not null;default:'RUNNING'" json:"status"`
	InstalledAt  *time.Time     `json:"installed_at"`
	Notes        string         `gorm:"type:text" json:"notes"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

func (a *Asset) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
