package models

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

type VerificationStatus string

const (
	VerificationApproved VerificationStatus = "Approved"
	VerificationRevoked  VerificationStatus = "Revoked"
)

var ErrImmutableRecord = errors.New("verification records are append-only")

// VerificationRecord is the audit trail of provider verification decisions.
type VerificationRecord struct {
	ID                  uint               `gorm:"primaryKey" json:"id"`
	ProviderID          uint               `gorm:"not null;index" json:"provider_id"`
	Provider            Provider           `gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;" json:"-"`
	VerifiedByAccountID uint               `gorm:"not null;index" json:"verified_by_account_id"`
	VerifiedBy          Account            `gorm:"foreignKey:VerifiedByAccountID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;" json:"-"`
	Status              VerificationStatus `gorm:"type:varchar(20);not null" json:"status"`
	Notes               string             `gorm:"type:text" json:"notes"`
	CreatedAt           time.Time          `json:"created_at"`
}

func (VerificationRecord) BeforeUpdate(tx *gorm.DB) error {
	return ErrImmutableRecord
}

func (VerificationRecord) BeforeDelete(tx *gorm.DB) error {
	return ErrImmutableRecord
}
