package models

import (
	"time"
)

type ReportStatus string

const (
	ReportPending  ReportStatus = "Pending"
	ReportReviewed ReportStatus = "Reviewed"
	ReportAssigned ReportStatus = "Assigned"
	ReportClosed   ReportStatus = "Closed"
)

// ReportStatuses is in lifecycle order.
var ReportStatuses = []ReportStatus{ReportPending, ReportReviewed, ReportAssigned, ReportClosed}

// Rank returns the position of s in the lifecycle, or -1 for an unknown status.
func (s ReportStatus) Rank() int {
	for i, v := range ReportStatuses {
		if v == s {
			return i
		}
	}
	return -1
}

func (s ReportStatus) Valid() bool {
	return s.Rank() >= 0
}

type Priority string

const (
	PriorityLow      Priority = "Low"
	PriorityMedium   Priority = "Medium"
	PriorityHigh     Priority = "High"
	PriorityCritical Priority = "Critical"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

// ReportCategories is the fixed set offered on the submission form.
var ReportCategories = []string{
	"Assault",
	"Domestic Violence",
	"Sexual Violence",
	"Kidnapping",
	"Theft",
	"Fraud",
	"Harassment",
	"Medical",
	"Other",
}

func IsReportCategory(c string) bool {
	for _, v := range ReportCategories {
		if v == c {
			return true
		}
	}
	return false
}

// Report is an anonymous incident record. It never references an Account;
// the tracking code is its only external handle.
type Report struct {
	ID                 uint         `gorm:"primaryKey" json:"-"`
	TrackingCode       string       `gorm:"size:64;uniqueIndex;not null" json:"tracking_code"`
	Category           string       `gorm:"size:50;not null;index" json:"category"`
	Description        string       `gorm:"type:text;not null" json:"description"`
	Location           string       `gorm:"size:200;not null;index" json:"location"`
	Latitude           *float64     `json:"latitude,omitempty"`
	Longitude          *float64     `json:"longitude,omitempty"`
	IncidentDate       time.Time    `gorm:"not null;index" json:"incident_date"`
	Status             ReportStatus `gorm:"type:varchar(20);not null;default:'Pending';index" json:"status"`
	Priority           Priority     `gorm:"type:varchar(20);not null;default:'Medium';index" json:"priority"`
	AssignedProviderID *uint        `gorm:"index" json:"-"`
	AssignedProvider   *Provider    `gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;" json:"-"`
	AssignedAt         *time.Time   `json:"assigned_at,omitempty"`
	ClosedAt           *time.Time   `json:"closed_at,omitempty"`
	IPHash             string       `gorm:"size:64" json:"-"`
	SubmittedAt        time.Time    `gorm:"not null;index" json:"submitted_at"`
	UpdatedAt          time.Time    `json:"updated_at"`
}

// ReportUpdate is a status change or note visible to the reporter on the tracking page.
type ReportUpdate struct {
	ID                 uint         `gorm:"primaryKey" json:"id"`
	ReportID           uint         `gorm:"not null;index" json:"-"`
	Report             Report       `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	Status             ReportStatus `gorm:"type:varchar(20);not null" json:"status"`
	Message            string       `gorm:"type:text;not null" json:"message"`
	CreatedByAccountID *uint        `gorm:"index" json:"-"`
	CreatedAt          time.Time    `json:"created_at"`
}

type ReportAttachment struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	ReportID         uint      `gorm:"not null;index" json:"-"`
	Report           Report    `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	Filename         string    `gorm:"size:255;not null;uniqueIndex" json:"filename"`
	OriginalFilename string    `gorm:"size:255;not null" json:"original_filename"`
	ContentType      string    `gorm:"size:100" json:"content_type"`
	Size             int64     `json:"size"`
	CreatedAt        time.Time `json:"created_at"`
}
