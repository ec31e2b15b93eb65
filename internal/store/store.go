// Package store is the persistence boundary. The gorm implementation backs
// production; memstore backs tests.
package store

import (
	"context"
	"errors"
	"time"

	"safenet/internal/models"
)

var (
	ErrNotFound  = errors.New("store: not found")
	ErrDuplicate = errors.New("store: duplicate key")
)

type ProviderFilter struct {
	Category     string
	VerifiedOnly bool
	Limit        int
}

type ReportFilter struct {
	Status     models.ReportStatus
	ProviderID *uint
	Limit      int
}

type AidFilter struct {
	ReportID   *uint
	ProviderID *uint
	Status     models.AidStatus
	Limit      int
}

// ReportCounts holds report totals keyed by status.
type ReportCounts map[models.ReportStatus]int64

func (c ReportCounts) Total() int64 {
	var n int64
	for _, v := range c {
		n += v
	}
	return n
}

type Store interface {
	// Tx runs fn inside one transaction. fn must only use the Store it is given.
	Tx(ctx context.Context, fn func(Store) error) error

	CreateAccount(ctx context.Context, a *models.Account) error
	GetAccount(ctx context.Context, id uint) (*models.Account, error)
	GetAccountByLogin(ctx context.Context, login string) (*models.Account, error)
	TouchLastLogin(ctx context.Context, id uint, at time.Time) error
	ListAccountsByProvider(ctx context.Context, providerID uint) ([]models.Account, error)
	CountAdmins(ctx context.Context) (int64, error)

	CreateProvider(ctx context.Context, p *models.Provider) error
	GetProvider(ctx context.Context, id uint) (*models.Provider, error)
	SetProviderVerification(ctx context.Context, id uint, verified bool, verifiedAt *time.Time) error
	ListProviders(ctx context.Context, f ProviderFilter) ([]models.Provider, error)
	CountProviders(ctx context.Context, verifiedOnly bool) (int64, error)

	CreateVerificationRecord(ctx context.Context, r *models.VerificationRecord) error
	ListVerificationRecords(ctx context.Context, providerID uint) ([]models.VerificationRecord, error)

	CreateReport(ctx context.Context, r *models.Report) error
	GetReport(ctx context.Context, id uint) (*models.Report, error)
	// GetReportForUpdate locks the row until the surrounding Tx ends.
	GetReportForUpdate(ctx context.Context, id uint) (*models.Report, error)
	GetReportByTrackingCode(ctx context.Context, code string) (*models.Report, error)
	UpdateReport(ctx context.Context, r *models.Report) error
	ListReports(ctx context.Context, f ReportFilter) ([]models.Report, error)
	CountReports(ctx context.Context, providerID *uint) (ReportCounts, error)

	CreateReportUpdate(ctx context.Context, u *models.ReportUpdate) error
	ListReportUpdates(ctx context.Context, reportID uint) ([]models.ReportUpdate, error)

	CreateAttachment(ctx context.Context, a *models.ReportAttachment) error
	ListAttachments(ctx context.Context, reportID uint) ([]models.ReportAttachment, error)

	CreateAidRequest(ctx context.Context, r *models.AidRequest) error
	GetAidRequest(ctx context.Context, id uint) (*models.AidRequest, error)
	GetAidRequestForUpdate(ctx context.Context, id uint) (*models.AidRequest, error)
	UpdateAidRequest(ctx context.Context, r *models.AidRequest) error
	ListAidRequests(ctx context.Context, f AidFilter) ([]models.AidRequest, error)
	CountAidRequests(ctx context.Context, providerID *uint, status models.AidStatus) (int64, error)

	CreateSystemLog(ctx context.Context, l *models.SystemLog) error
	ListSystemLogs(ctx context.Context, limit int) ([]models.SystemLog, error)
}
