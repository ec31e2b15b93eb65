package services

import (
	"context"

	"go.uber.org/zap"

	"safenet/internal/models"
	"safenet/internal/store"
)

// Audit event types.
const (
	EventLogin               = "login"
	EventLoginFailed         = "login_failed"
	EventLogout              = "logout"
	EventReportSubmitted     = "report_submitted"
	EventReportReviewed      = "report_reviewed"
	EventReportAssigned      = "report_assigned"
	EventReportStatusChanged = "report_status_changed"
	EventProviderRegistered  = "provider_registered"
	EventProviderVerified    = "provider_verified"
	EventProviderRevoked     = "provider_revoked"
	EventAccountCreated      = "account_created"
	EventAidRequested        = "aid_requested"
	EventAidDecided          = "aid_decided"
	EventAidProvided         = "aid_provided"
)

type AuditEvent struct {
	Type      string
	AccountID *uint
	IPHash    string
	Details   string
}

// Auditor writes operator audit events to the system log table and to zap.
// A failed write is logged and never fails the caller.
type Auditor struct {
	st  store.Store
	log *zap.Logger
}

func NewAuditor(st store.Store, log *zap.Logger) *Auditor {
	return &Auditor{st: st, log: log}
}

func (a *Auditor) Record(ctx context.Context, ev AuditEvent) {
	fields := []zap.Field{
		zap.String("event", ev.Type),
		zap.String("details", ev.Details),
	}
	if ev.AccountID != nil {
		fields = append(fields, zap.Uint("account_id", *ev.AccountID))
	}
	if ev.IPHash != "" {
		fields = append(fields, zap.String("ip_hash", ev.IPHash))
	}
	a.log.Info("audit", fields...)

	entry := models.SystemLog{
		EventType: ev.Type,
		AccountID: ev.AccountID,
		IPHash:    ev.IPHash,
		Details:   ev.Details,
	}
	if err := a.st.CreateSystemLog(ctx, &entry); err != nil {
		a.log.Error("audit write failed", zap.String("event", ev.Type), zap.Error(err))
	}
}

// Recent returns the newest entries for the admin dashboard.
func (a *Auditor) Recent(ctx context.Context, actor Actor, limit int) ([]models.SystemLog, error) {
	if err := actor.requireAdmin(); err != nil {
		return nil, err
	}
	return a.st.ListSystemLogs(ctx, limit)
}
