package models

import (
	"time"
)

// SystemLog is the operator audit trail. IPs are only ever stored hashed.
type SystemLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	EventType string    `gorm:"size:50;not null;index" json:"event_type"`
	AccountID *uint     `gorm:"index" json:"account_id"`
	IPHash    string    `gorm:"size:64" json:"-"`
	Details   string    `gorm:"type:text" json:"details"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}
