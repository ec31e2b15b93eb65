package services

import (
	"time"

	"go.uber.org/zap"

	"safenet/internal/store"
)

// Services bundles every domain service around one store handle.
type Services struct {
	Accounts  *AccountService
	Providers *ProviderService
	Reports   *ReportService
	Aid       *AidService
	Stats     *StatsService
	Audit     *Auditor
	Files     *AttachmentStorage
}

type Options struct {
	UploadDir string
	StatsTTL  time.Duration
}

func New(st store.Store, log *zap.Logger, opts Options) (*Services, error) {
	if opts.StatsTTL <= 0 {
		opts.StatsTTL = 10 * time.Second
	}
	stats, err := NewStatsService(st, opts.StatsTTL)
	if err != nil {
		return nil, err
	}
	audit := NewAuditor(st, log)
	files := NewAttachmentStorage(opts.UploadDir)

	return &Services{
		Accounts:  NewAccountService(st, audit),
		Providers: NewProviderService(st, audit, stats),
		Reports:   NewReportService(st, audit, stats, files, log),
		Aid:       NewAidService(st, audit, stats),
		Stats:     stats,
		Audit:     audit,
		Files:     files,
	}, nil
}
