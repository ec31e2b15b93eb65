package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"safenet/internal/models"
	"safenet/internal/store"
	"safenet/internal/store/memstore"
)

type fixture struct {
	svc   *Services
	st    *memstore.Store
	admin Actor
	dir   string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := memstore.New()
	dir := t.TempDir()
	svc, err := New(st, zap.NewNop(), Options{UploadDir: dir})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	admin := &models.Account{Username: "admin", Email: "admin@example.org", PasswordHash: "x", Role: models.RoleAdmin, IsActive: true}
	if err := st.CreateAccount(context.Background(), admin); err != nil {
		t.Fatalf("create admin: %v", err)
	}
	return &fixture{svc: svc, st: st, admin: ActorFromAccount(admin), dir: dir}
}

// newEmptyServices builds services over a store with no accounts at all.
func newEmptyServices(t *testing.T) *Services {
	t.Helper()
	svc, err := New(memstore.New(), zap.NewNop(), Options{UploadDir: t.TempDir()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return svc
}

// provider creates a provider with one account and returns the provider and
// an Actor for that account.
func (f *fixture) provider(t *testing.T, name string, verified bool) (*models.Provider, Actor) {
	t.Helper()
	ctx := context.Background()
	p := &models.Provider{
		Name:              name,
		Category:          "Medical",
		Address:           "1 Main St",
		ContactPhone:      "+1 555 0100",
		ContactEmail:      strings.ToLower(strings.ReplaceAll(name, " ", "")) + "@example.org",
		ResponseTimeHours: 24,
	}
	if err := f.st.CreateProvider(ctx, p); err != nil {
		t.Fatalf("create provider: %v", err)
	}
	if verified {
		now := time.Now()
		if err := f.st.SetProviderVerification(ctx, p.ID, true, &now); err != nil {
			t.Fatalf("verify provider: %v", err)
		}
		p.IsVerified = true
		p.VerifiedAt = &now
	}
	pid := p.ID
	a := &models.Account{
		Username:     fmt.Sprintf("staff%d", p.ID),
		Email:        fmt.Sprintf("staff%d@example.org", p.ID),
		PasswordHash: "x",
		Role:         models.RoleProvider,
		ProviderID:   &pid,
		IsActive:     true,
	}
	if err := f.st.CreateAccount(ctx, a); err != nil {
		t.Fatalf("create account: %v", err)
	}
	return p, ActorFromAccount(a)
}

func validSubmission() SubmitReportInput {
	return SubmitReportInput{
		Category:     "Theft",
		Description:  "My phone was taken at the bus stop.",
		Location:     "Central bus station",
		IncidentDate: time.Now().Add(-24 * time.Hour),
		IPHash:       "iphash",
	}
}

func (f *fixture) submit(t *testing.T) *models.Report {
	t.Helper()
	r, err := f.svc.Reports.Submit(context.Background(), validSubmission())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	return r
}

// assigned returns a report assigned to a fresh verified provider.
func (f *fixture) assigned(t *testing.T) (*models.Report, *models.Provider, Actor) {
	t.Helper()
	p, actor := f.provider(t, fmt.Sprintf("Clinic %d", time.Now().UnixNano()), true)
	r := f.submit(t)
	r, err := f.svc.Reports.Assign(context.Background(), f.admin, r.ID, p.ID, "")
	if err != nil {
		t.Fatalf("Assign: %v", err)
	}
	return r, p, actor
}

func (f *fixture) report(t *testing.T, id uint) *models.Report {
	t.Helper()
	r, err := f.st.GetReport(context.Background(), id)
	if err != nil {
		t.Fatalf("GetReport: %v", err)
	}
	return r
}

func (f *fixture) logsOfType(t *testing.T, event string) []models.SystemLog {
	t.Helper()
	logs, err := f.st.ListSystemLogs(context.Background(), 1000)
	if err != nil {
		t.Fatalf("ListSystemLogs: %v", err)
	}
	var out []models.SystemLog
	for _, l := range logs {
		if l.EventType == event {
			out = append(out, l)
		}
	}
	return out
}

func upload(name, contentType, body string) Upload {
	return Upload{
		Filename:    name,
		ContentType: contentType,
		Size:        int64(len(body)),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(strings.NewReader(body)), nil
		},
	}
}

func wantErr(t *testing.T, err, target error) {
	t.Helper()
	if !errors.Is(err, target) {
		t.Fatalf("expected %v, got %v", target, err)
	}
}

var _ store.Store = (*memstore.Store)(nil)
