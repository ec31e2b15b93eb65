package models

import (
	"time"
)

type AidStatus string

const (
	AidPending  AidStatus = "Pending"
	AidApproved AidStatus = "Approved"
	AidRejected AidStatus = "Rejected"
	AidProvided AidStatus = "Provided"
)

type AidType string

const (
	AidFinancial  AidType = "Financial"
	AidMedical    AidType = "Medical"
	AidLegal      AidType = "Legal"
	AidShelter    AidType = "Shelter"
	AidCounseling AidType = "Counseling"
)

var AidTypes = []AidType{AidFinancial, AidMedical, AidLegal, AidShelter, AidCounseling}

func (t AidType) Valid() bool {
	for _, v := range AidTypes {
		if v == t {
			return true
		}
	}
	return false
}

type Urgency string

const (
	UrgencyNormal   Urgency = "Normal"
	UrgencyUrgent   Urgency = "Urgent"
	UrgencyCritical Urgency = "Critical"
)

func (u Urgency) Valid() bool {
	return u == UrgencyNormal || u == UrgencyUrgent || u == UrgencyCritical
}

// AidRequest is a specific assistance ask attached to a report.
// Amount is only meaningful for financial aid.
type AidRequest struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	ReportID       uint       `gorm:"not null;index" json:"report_id"`
	Report         Report     `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	AidType        AidType    `gorm:"type:varchar(50);not null;index" json:"aid_type"`
	Amount         *float64   `json:"amount,omitempty"`
	Description    string     `gorm:"type:text" json:"description"`
	Urgency        Urgency    `gorm:"type:varchar(20);not null;default:'Normal'" json:"urgency"`
	Status         AidStatus  `gorm:"type:varchar(20);not null;default:'Pending';index" json:"status"`
	ProofReference *string    `gorm:"size:255" json:"proof_reference,omitempty"`
	DecidedAt      *time.Time `json:"decided_at,omitempty"`
	ProvidedAt     *time.Time `json:"provided_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}
