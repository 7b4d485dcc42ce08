package database

import (
	"log"

	"cmms-backend/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// NewConnection initializes a new connection pool using GORM
func NewConnection(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	if err := Migrate(db); err != nil {
		log.Println("WARNING: Failed to auto-migrate models:", err)
	}

	return db, nil
}

// Migrate runs auto-migration for all core models. Shared with the test setup.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.User{},
		&model.RefreshToken{},
		&model.Asset{},
		&model.WorkOrder{},
		&model.ChecklistItem{},
		&model.WorkOrderPart{},
		&model.LaborLog{},
		&model.WorkOrderTimer{},
		&model.PreventiveSchedule{},
		&model.ScheduleActivity{},
		&model.EWO{},
		&model.Component{},
		&model.Measurement{},
		&model.SparePart{},
		&model.Notification{},
		&model.AuditLog{},
	)
}
