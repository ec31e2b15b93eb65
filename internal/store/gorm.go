package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"safenet/internal/models"
)

const uniqueViolation = "23505"

var _ Store = (*GormStore)(nil)

// GormStore implements Store on a relational database through gorm.
type GormStore struct {
	db *gorm.DB
}

func NewGorm(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Tx(ctx context.Context, fn func(Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{db: tx})
	})
}

func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicate
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrDuplicate
	}
	return err
}

func (s *GormStore) create(ctx context.Context, v interface{}) error {
	return translate(s.db.WithContext(ctx).Omit(clause.Associations).Create(v).Error)
}

// Accounts

func (s *GormStore) CreateAccount(ctx context.Context, a *models.Account) error {
	return s.create(ctx, a)
}

func (s *GormStore) GetAccount(ctx context.Context, id uint) (*models.Account, error) {
	var a models.Account
	if err := s.db.WithContext(ctx).First(&a, id).Error; err != nil {
		return nil, translate(err)
	}
	return &a, nil
}

func (s *GormStore) GetAccountByLogin(ctx context.Context, login string) (*models.Account, error) {
	var a models.Account
	err := s.db.WithContext(ctx).
		Where("username = ? OR email = ?", login, login).
		First(&a).Error
	if err != nil {
		return nil, translate(err)
	}
	return &a, nil
}

func (s *GormStore) TouchLastLogin(ctx context.Context, id uint, at time.Time) error {
	return translate(s.db.WithContext(ctx).
		Model(&models.Account{}).
		Where("id = ?", id).
		Update("last_login_at", at).Error)
}

func (s *GormStore) ListAccountsByProvider(ctx context.Context, providerID uint) ([]models.Account, error) {
	var out []models.Account
	err := s.db.WithContext(ctx).
		Where("provider_id = ?", providerID).
		Order("username ASC").
		Find(&out).Error
	return out, translate(err)
}

func (s *GormStore) CountAdmins(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.Account{}).Where("role = ?", models.RoleAdmin).Count(&n).Error
	return n, translate(err)
}

// Providers

func (s *GormStore) CreateProvider(ctx context.Context, p *models.Provider) error {
	return s.create(ctx, p)
}

func (s *GormStore) GetProvider(ctx context.Context, id uint) (*models.Provider, error) {
	var p models.Provider
	if err := s.db.WithContext(ctx).First(&p, id).Error; err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (s *GormStore) SetProviderVerification(ctx context.Context, id uint, verified bool, verifiedAt *time.Time) error {
	res := s.db.WithContext(ctx).
		Model(&models.Provider{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"is_verified": verified,
			"verified_at": verifiedAt,
		})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) ListProviders(ctx context.Context, f ProviderFilter) ([]models.Provider, error) {
	q := s.db.WithContext(ctx).Model(&models.Provider{})
	if f.VerifiedOnly {
		q = q.Where("is_verified = ?", true)
	}
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	var out []models.Provider
	err := q.Order("name ASC").Find(&out).Error
	return out, translate(err)
}

func (s *GormStore) CountProviders(ctx context.Context, verifiedOnly bool) (int64, error) {
	q := s.db.WithContext(ctx).Model(&models.Provider{})
	if verifiedOnly {
		q = q.Where("is_verified = ?", true)
	}
	var n int64
	err := q.Count(&n).Error
	return n, translate(err)
}

// Verification records

func (s *GormStore) CreateVerificationRecord(ctx context.Context, r *models.VerificationRecord) error {
	return s.create(ctx, r)
}

func (s *GormStore) ListVerificationRecords(ctx context.Context, providerID uint) ([]models.VerificationRecord, error) {
	var out []models.VerificationRecord
	err := s.db.WithContext(ctx).
		Where("provider_id = ?", providerID).
		Order("created_at DESC, id DESC").
		Find(&out).Error
	return out, translate(err)
}

// Reports

func (s *GormStore) CreateReport(ctx context.Context, r *models.Report) error {
	return s.create(ctx, r)
}

func (s *GormStore) GetReport(ctx context.Context, id uint) (*models.Report, error) {
	var r models.Report
	if err := s.db.WithContext(ctx).First(&r, id).Error; err != nil {
		return nil, translate(err)
	}
	return &r, nil
}

func (s *GormStore) GetReportForUpdate(ctx context.Context, id uint) (*models.Report, error) {
	var r models.Report
	err := s.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&r, id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &r, nil
}

func (s *GormStore) GetReportByTrackingCode(ctx context.Context, code string) (*models.Report, error) {
	var r models.Report
	if err := s.db.WithContext(ctx).Where("tracking_code = ?", code).First(&r).Error; err != nil {
		return nil, translate(err)
	}
	return &r, nil
}

// UpdateReport writes the lifecycle fields only. Submission content is immutable.
func (s *GormStore) UpdateReport(ctx context.Context, r *models.Report) error {
	r.UpdatedAt = time.Now()
	res := s.db.WithContext(ctx).
		Model(r).
		Omit(clause.Associations).
		Select("status", "priority", "assigned_provider_id", "assigned_at", "closed_at", "updated_at").
		Updates(r)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) ListReports(ctx context.Context, f ReportFilter) ([]models.Report, error) {
	q := s.db.WithContext(ctx).Model(&models.Report{})
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.ProviderID != nil {
		q = q.Where("assigned_provider_id = ?", *f.ProviderID)
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	var out []models.Report
	err := q.Order("submitted_at DESC, id DESC").Find(&out).Error
	return out, translate(err)
}

func (s *GormStore) CountReports(ctx context.Context, providerID *uint) (ReportCounts, error) {
	type row struct {
		Status models.ReportStatus
		N      int64
	}
	var rows []row
	q := s.db.WithContext(ctx).Model(&models.Report{}).Select("status, count(*) AS n").Group("status")
	if providerID != nil {
		q = q.Where("assigned_provider_id = ?", *providerID)
	}
	if err := q.Scan(&rows).Error; err != nil {
		return nil, translate(err)
	}
	out := ReportCounts{}
	for _, st := range models.ReportStatuses {
		out[st] = 0
	}
	for _, r := range rows {
		out[r.Status] = r.N
	}
	return out, nil
}

func (s *GormStore) CreateReportUpdate(ctx context.Context, u *models.ReportUpdate) error {
	return s.create(ctx, u)
}

func (s *GormStore) ListReportUpdates(ctx context.Context, reportID uint) ([]models.ReportUpdate, error) {
	var out []models.ReportUpdate
	err := s.db.WithContext(ctx).
		Where("report_id = ?", reportID).
		Order("created_at DESC, id DESC").
		Find(&out).Error
	return out, translate(err)
}

func (s *GormStore) CreateAttachment(ctx context.Context, a *models.ReportAttachment) error {
	return s.create(ctx, a)
}

func (s *GormStore) ListAttachments(ctx context.Context, reportID uint) ([]models.ReportAttachment, error) {
	var out []models.ReportAttachment
	err := s.db.WithContext(ctx).Where("report_id = ?", reportID).Order("id ASC").Find(&out).Error
	return out, translate(err)
}

// Aid requests

func (s *GormStore) CreateAidRequest(ctx context.Context, r *models.AidRequest) error {
	return s.create(ctx, r)
}

func (s *GormStore) GetAidRequest(ctx context.Context, id uint) (*models.AidRequest, error) {
	var r models.AidRequest
	if err := s.db.WithContext(ctx).First(&r, id).Error; err != nil {
		return nil, translate(err)
	}
	return &r, nil
}

func (s *GormStore) GetAidRequestForUpdate(ctx context.Context, id uint) (*models.AidRequest, error) {
	var r models.AidRequest
	err := s.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&r, id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &r, nil
}

func (s *GormStore) UpdateAidRequest(ctx context.Context, r *models.AidRequest) error {
	res := s.db.WithContext(ctx).
		Model(r).
		Omit(clause.Associations).
		Select("status", "proof_reference", "decided_at", "provided_at").
		Updates(r)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) aidQuery(ctx context.Context, providerID *uint) *gorm.DB {
	q := s.db.WithContext(ctx).Model(&models.AidRequest{})
	if providerID != nil {
		assigned := s.db.Model(&models.Report{}).Select("id").Where("assigned_provider_id = ?", *providerID)
		q = q.Where("report_id IN (?)", assigned)
	}
	return q
}

func (s *GormStore) ListAidRequests(ctx context.Context, f AidFilter) ([]models.AidRequest, error) {
	q := s.aidQuery(ctx, f.ProviderID)
	if f.ReportID != nil {
		q = q.Where("report_id = ?", *f.ReportID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	var out []models.AidRequest
	err := q.Order("created_at DESC, id DESC").Find(&out).Error
	return out, translate(err)
}

func (s *GormStore) CountAidRequests(ctx context.Context, providerID *uint, status models.AidStatus) (int64, error) {
	q := s.aidQuery(ctx, providerID)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var n int64
	err := q.Count(&n).Error
	return n, translate(err)
}

// System log

func (s *GormStore) CreateSystemLog(ctx context.Context, l *models.SystemLog) error {
	return s.create(ctx, l)
}

func (s *GormStore) ListSystemLogs(ctx context.Context, limit int) ([]models.SystemLog, error) {
	if limit <= 0 {
		limit = 50
	}
	var out []models.SystemLog
	err := s.db.WithContext(ctx).Order("created_at DESC, id DESC").Limit(limit).Find(&out).Error
	return out, translate(err)
}
