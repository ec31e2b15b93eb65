package models

import (
	"time"
)

// ProviderCategories lists the organization kinds accepted at registration.
var ProviderCategories = []string{
	"Medical",
	"Legal Aid",
	"NGO",
	"Security",
	"Counseling",
	"Shelter",
}

type Provider struct {
	ID                uint       `gorm:"primaryKey" json:"id"`
	Name              string     `gorm:"size:200;not null;index" json:"name"`
	Category          string     `gorm:"size:50;not null;index" json:"category"`
	Address           string     `gorm:"type:text;not null" json:"address"`
	ContactPhone      string     `gorm:"size:20;not null" json:"contact_phone"`
	ContactEmail      string     `gorm:"size:120;not null" json:"contact_email"`
	Description       string     `gorm:"type:text" json:"description"`
	IsVerified        bool       `gorm:"not null;default:false;index" json:"is_verified"`
	VerifiedAt        *time.Time `json:"verified_at"`
	ResponseTimeHours int        `gorm:"default:24" json:"response_time_hours"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

func IsProviderCategory(c string) bool {
	for _, v := range ProviderCategories {
		if v == c {
			return true
		}
	}
	return false
}
