package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Notification is an in-app message for one user, also pushed over the
// websocket hub when the recipient is connected
type Notification struct {
	ID      uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID  uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	User    *User     `gorm:"foreignKey:UserID" json:"-"`
	Title   string    `gorm:"type:varchar(255);not null" json:"title"`
	Message string    `gorm:"type:text;not null" json:"message"`
	Link    string    `gorm:"type:varchar(255)" json:"link"` // Frontend route to the related entity

	ReadAt    *time.Time `json:"read_at"`
	CreatedAt time.Time  `json:"created_at"`
}

func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return nil
}
