// Package memstore is an in-process store.Store used by tests.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"safenet/internal/models"
	"safenet/internal/store"
)

var _ store.Store = (*Store)(nil)

type tables struct {
	seq           uint
	accounts      map[uint]models.Account
	providers     map[uint]models.Provider
	verifications map[uint]models.VerificationRecord
	reports       map[uint]models.Report
	updates       map[uint]models.ReportUpdate
	attachments   map[uint]models.ReportAttachment
	aid           map[uint]models.AidRequest
	logs          map[uint]models.SystemLog
}

func (t *tables) clone() *tables {
	out := &tables{seq: t.seq}
	out.accounts = copyMap(t.accounts)
	out.providers = copyMap(t.providers)
	out.verifications = copyMap(t.verifications)
	out.reports = copyMap(t.reports)
	out.updates = copyMap(t.updates)
	out.attachments = copyMap(t.attachments)
	out.aid = copyMap(t.aid)
	out.logs = copyMap(t.logs)
	return out
}

func copyMap[V any](m map[uint]V) map[uint]V {
	out := make(map[uint]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Store keeps every table in maps guarded by one mutex. Transactions are
// serialized and roll back by restoring a snapshot.
type Store struct {
	txMu sync.Mutex
	mu   sync.RWMutex
	t    *tables

	// FailOn makes the named method return the given error, for rollback tests.
	FailOn map[string]error
}

func New() *Store {
	return &Store{t: (&tables{}).clone()}
}

func (s *Store) fail(op string) error {
	if s.FailOn == nil {
		return nil
	}
	return s.FailOn[op]
}

func (s *Store) nextID() uint {
	s.t.seq++
	return s.t.seq
}

func (s *Store) Tx(ctx context.Context, fn func(store.Store) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	snapshot := s.t.clone()
	s.mu.RUnlock()

	if err := fn(s); err != nil {
		s.mu.Lock()
		s.t = snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

// Accounts

func (s *Store) CreateAccount(ctx context.Context, a *models.Account) error {
	if err := s.fail("CreateAccount"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range s.t.accounts {
		if v.Username == a.Username || v.Email == a.Email {
			return store.ErrDuplicate
		}
	}
	a.ID = s.nextID()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	s.t.accounts[a.ID] = *a
	return nil
}

func (s *Store) GetAccount(ctx context.Context, id uint) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.t.accounts[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &a, nil
}

func (s *Store) GetAccountByLogin(ctx context.Context, login string) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.t.accounts {
		if a.Username == login || a.Email == login {
			return &a, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) TouchLastLogin(ctx context.Context, id uint, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.t.accounts[id]
	if !ok {
		return store.ErrNotFound
	}
	a.LastLoginAt = &at
	s.t.accounts[id] = a
	return nil
}

func (s *Store) ListAccountsByProvider(ctx context.Context, providerID uint) ([]models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Account
	for _, a := range s.t.accounts {
		if a.ProviderID != nil && *a.ProviderID == providerID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func (s *Store) CountAdmins(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int64
	for _, a := range s.t.accounts {
		if a.Role == models.RoleAdmin {
			n++
		}
	}
	return n, nil
}

// Providers

func (s *Store) CreateProvider(ctx context.Context, p *models.Provider) error {
	if err := s.fail("CreateProvider"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p.ID = s.nextID()
	now := time.Now()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	s.t.providers[p.ID] = *p
	return nil
}

func (s *Store) GetProvider(ctx context.Context, id uint) (*models.Provider, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.t.providers[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &p, nil
}

func (s *Store) SetProviderVerification(ctx context.Context, id uint, verified bool, verifiedAt *time.Time) error {
	if err := s.fail("SetProviderVerification"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.t.providers[id]
	if !ok {
		return store.ErrNotFound
	}
	p.IsVerified = verified
	p.VerifiedAt = verifiedAt
	p.UpdatedAt = time.Now()
	s.t.providers[id] = p
	return nil
}

func (s *Store) ListProviders(ctx context.Context, f store.ProviderFilter) ([]models.Provider, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Provider
	for _, p := range s.t.providers {
		if f.VerifiedOnly && !p.IsVerified {
			continue
		}
		if f.Category != "" && p.Category != f.Category {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return strings.Compare(out[i].Name, out[j].Name) < 0 })
	return limit(out, f.Limit), nil
}

func (s *Store) CountProviders(ctx context.Context, verifiedOnly bool) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int64
	for _, p := range s.t.providers {
		if !verifiedOnly || p.IsVerified {
			n++
		}
	}
	return n, nil
}

// Verification records

func (s *Store) CreateVerificationRecord(ctx context.Context, r *models.VerificationRecord) error {
	if err := s.fail("CreateVerificationRecord"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.t.providers[r.ProviderID]; !ok {
		return store.ErrNotFound
	}
	r.ID = s.nextID()
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	s.t.verifications[r.ID] = *r
	return nil
}

func (s *Store) ListVerificationRecords(ctx context.Context, providerID uint) ([]models.VerificationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.VerificationRecord
	for _, r := range s.t.verifications {
		if r.ProviderID == providerID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

// Reports

func (s *Store) CreateReport(ctx context.Context, r *models.Report) error {
	if err := s.fail("CreateReport"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range s.t.reports {
		if v.TrackingCode == r.TrackingCode {
			return store.ErrDuplicate
		}
	}
	r.ID = s.nextID()
	now := time.Now()
	if r.SubmittedAt.IsZero() {
		r.SubmittedAt = now
	}
	r.UpdatedAt = now
	s.t.reports[r.ID] = *r
	return nil
}

func (s *Store) GetReport(ctx context.Context, id uint) (*models.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.t.reports[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &r, nil
}

// GetReportForUpdate needs no row lock; transactions are already serialized.
func (s *Store) GetReportForUpdate(ctx context.Context, id uint) (*models.Report, error) {
	if err := s.fail("GetReportForUpdate"); err != nil {
		return nil, err
	}
	return s.GetReport(ctx, id)
}

func (s *Store) GetReportByTrackingCode(ctx context.Context, code string) (*models.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.t.reports {
		if r.TrackingCode == code {
			return &r, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) UpdateReport(ctx context.Context, r *models.Report) error {
	if err := s.fail("UpdateReport"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.t.reports[r.ID]
	if !ok {
		return store.ErrNotFound
	}
	cur.Status = r.Status
	cur.Priority = r.Priority
	cur.AssignedProviderID = r.AssignedProviderID
	cur.AssignedAt = r.AssignedAt
	cur.ClosedAt = r.ClosedAt
	cur.UpdatedAt = time.Now()
	r.UpdatedAt = cur.UpdatedAt
	s.t.reports[r.ID] = cur
	return nil
}

func (s *Store) ListReports(ctx context.Context, f store.ReportFilter) ([]models.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Report
	for _, r := range s.t.reports {
		if f.Status != "" && r.Status != f.Status {
			continue
		}
		if f.ProviderID != nil && (r.AssignedProviderID == nil || *r.AssignedProviderID != *f.ProviderID) {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return limit(out, f.Limit), nil
}

func (s *Store) CountReports(ctx context.Context, providerID *uint) (store.ReportCounts, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := store.ReportCounts{}
	for _, st := range models.ReportStatuses {
		out[st] = 0
	}
	for _, r := range s.t.reports {
		if providerID != nil && (r.AssignedProviderID == nil || *r.AssignedProviderID != *providerID) {
			continue
		}
		out[r.Status]++
	}
	return out, nil
}

func (s *Store) CreateReportUpdate(ctx context.Context, u *models.ReportUpdate) error {
	if err := s.fail("CreateReportUpdate"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.t.reports[u.ReportID]; !ok {
		return store.ErrNotFound
	}
	u.ID = s.nextID()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now()
	}
	s.t.updates[u.ID] = *u
	return nil
}

func (s *Store) ListReportUpdates(ctx context.Context, reportID uint) ([]models.ReportUpdate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.ReportUpdate
	for _, u := range s.t.updates {
		if u.ReportID == reportID {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (s *Store) CreateAttachment(ctx context.Context, a *models.ReportAttachment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.t.reports[a.ReportID]; !ok {
		return store.ErrNotFound
	}
	a.ID = s.nextID()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	s.t.attachments[a.ID] = *a
	return nil
}

func (s *Store) ListAttachments(ctx context.Context, reportID uint) ([]models.ReportAttachment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.ReportAttachment
	for _, a := range s.t.attachments {
		if a.ReportID == reportID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Aid requests

func (s *Store) CreateAidRequest(ctx context.Context, r *models.AidRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.t.reports[r.ReportID]; !ok {
		return store.ErrNotFound
	}
	r.ID = s.nextID()
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	s.t.aid[r.ID] = *r
	return nil
}

func (s *Store) GetAidRequest(ctx context.Context, id uint) (*models.AidRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.t.aid[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &r, nil
}

func (s *Store) GetAidRequestForUpdate(ctx context.Context, id uint) (*models.AidRequest, error) {
	if err := s.fail("GetAidRequestForUpdate"); err != nil {
		return nil, err
	}
	return s.GetAidRequest(ctx, id)
}

func (s *Store) UpdateAidRequest(ctx context.Context, r *models.AidRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.t.aid[r.ID]
	if !ok {
		return store.ErrNotFound
	}
	cur.Status = r.Status
	cur.ProofReference = r.ProofReference
	cur.DecidedAt = r.DecidedAt
	cur.ProvidedAt = r.ProvidedAt
	s.t.aid[r.ID] = cur
	return nil
}

func (s *Store) matchAid(r models.AidRequest, providerID *uint) bool {
	if providerID == nil {
		return true
	}
	rep, ok := s.t.reports[r.ReportID]
	return ok && rep.AssignedProviderID != nil && *rep.AssignedProviderID == *providerID
}

func (s *Store) ListAidRequests(ctx context.Context, f store.AidFilter) ([]models.AidRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.AidRequest
	for _, r := range s.t.aid {
		if f.ReportID != nil && r.ReportID != *f.ReportID {
			continue
		}
		if f.Status != "" && r.Status != f.Status {
			continue
		}
		if !s.matchAid(r, f.ProviderID) {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return limit(out, f.Limit), nil
}

func (s *Store) CountAidRequests(ctx context.Context, providerID *uint, status models.AidStatus) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int64
	for _, r := range s.t.aid {
		if status != "" && r.Status != status {
			continue
		}
		if s.matchAid(r, providerID) {
			n++
		}
	}
	return n, nil
}

// System log

func (s *Store) CreateSystemLog(ctx context.Context, l *models.SystemLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l.ID = s.nextID()
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now()
	}
	s.t.logs[l.ID] = *l
	return nil
}

func (s *Store) ListSystemLogs(ctx context.Context, n int) ([]models.SystemLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.SystemLog
	for _, l := range s.t.logs {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if n <= 0 {
		n = 50
	}
	return limit(out, n), nil
}

func limit[T any](in []T, n int) []T {
	if n > 0 && len(in) > n {
		return in[:n]
	}
	return in
}
