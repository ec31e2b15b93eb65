package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"safenet/internal/models"
	"safenet/internal/store"
	"safenet/internal/utils"
)

const (
	maxDescriptionLen = 5000
	maxLocationLen    = 200
	maxNoteLen        = 2000
	codeAttempts      = 5
)

type SubmitReportInput struct {
	Category     string
	Description  string
	Location     string
	IncidentDate time.Time
	Latitude     *float64
	Longitude    *float64
	IPHash       string
	Attachments  []Upload
}

// PublicProvider is the part of a provider a reporter may see.
type PublicProvider struct {
	Name              string
	Category          string
	ContactPhone      string
	ContactEmail      string
	ResponseTimeHours int
}

type PublicUpdate struct {
	Status    models.ReportStatus
	Message   string
	CreatedAt time.Time
}

// TrackResult is everything the tracking page shows. It carries no staff identity.
type TrackResult struct {
	TrackingCode string
	Category     string
	Status       models.ReportStatus
	Priority     models.Priority
	SubmittedAt  time.Time
	Provider     *PublicProvider
	Updates      []PublicUpdate
}

type ReportDetail struct {
	Report      *models.Report
	Provider    *models.Provider
	Updates     []models.ReportUpdate
	AidRequests []models.AidRequest
	Attachments []models.ReportAttachment
}

type ReportService struct {
	st      store.Store
	audit   *Auditor
	stats   *StatsService
	files   *AttachmentStorage
	log     *zap.Logger
	newCode func() (string, error)
	now     func() time.Time
}

func NewReportService(st store.Store, audit *Auditor, stats *StatsService, files *AttachmentStorage, log *zap.Logger) *ReportService {
	return &ReportService{
		st:      st,
		audit:   audit,
		stats:   stats,
		files:   files,
		log:     log,
		newCode: utils.NewTrackingCode,
		now:     time.Now,
	}
}

func (s *ReportService) validateSubmission(in *SubmitReportInput) error {
	in.Category = strings.TrimSpace(in.Category)
	in.Description = utils.SanitizeText(in.Description)
	in.Location = utils.SanitizeText(in.Location)

	if !models.IsReportCategory(in.Category) {
		return invalid("category", "Please choose a category from the list.")
	}
	if in.Description == "" {
		return invalid("description", "Please describe what happened.")
	}
	if len(in.Description) > maxDescriptionLen {
		return invalid("description", "Description is too long.")
	}
	if in.Location == "" {
		return invalid("location", "Please give an approximate location.")
	}
	if len(in.Location) > maxLocationLen {
		return invalid("location", "Location is too long.")
	}
	if in.IncidentDate.IsZero() {
		return invalid("incident_date", "Please give the date of the incident.")
	}
	// a day of slack for reporters whose local date is ahead of the server's
	if in.IncidentDate.After(s.now().Add(24 * time.Hour)) {
		return invalid("incident_date", "The incident date cannot be in the future.")
	}
	if (in.Latitude == nil) != (in.Longitude == nil) {
		return invalid("coordinates", "Provide both latitude and longitude, or neither.")
	}
	if in.Latitude != nil {
		lat, lng := *in.Latitude, *in.Longitude
		if math.IsNaN(lat) || math.IsNaN(lng) || lat < -90 || lat > 90 || lng < -180 || lng > 180 {
			return invalid("coordinates", "Coordinates are out of range.")
		}
	}
	return validateUploads(in.Attachments)
}

// Submit records an anonymous report and returns it with its tracking code.
func (s *ReportService) Submit(ctx context.Context, in SubmitReportInput) (*models.Report, error) {
	if err := s.validateSubmission(&in); err != nil {
		return nil, err
	}

	var stored []string
	for _, u := range in.Attachments {
		name, err := s.files.Save(u)
		if err != nil {
			s.files.Remove(stored...)
			return nil, err
		}
		stored = append(stored, name)
	}

	var report *models.Report
	var err error
	for attempt := 0; attempt < codeAttempts; attempt++ {
		report, err = s.insert(ctx, in, stored)
		if !errors.Is(err, store.ErrDuplicate) {
			break
		}
		s.log.Warn("tracking code collision, retrying", zap.Int("attempt", attempt+1))
	}
	if err != nil {
		s.files.Remove(stored...)
		return nil, fmt.Errorf("submit report: %w", err)
	}

	reportsSubmitted.WithLabelValues(report.Category).Inc()
	s.stats.Invalidate()
	s.audit.Record(ctx, AuditEvent{
		Type:    EventReportSubmitted,
		IPHash:  in.IPHash,
		Details: fmt.Sprintf("report %d category=%s", report.ID, report.Category),
	})
	return report, nil
}

func (s *ReportService) insert(ctx context.Context, in SubmitReportInput, stored []string) (*models.Report, error) {
	code, err := s.newCode()
	if err != nil {
		return nil, fmt.Errorf("generate tracking code: %w", err)
	}
	now := s.now()
	report := &models.Report{
		TrackingCode: code,
		Category:     in.Category,
		Description:  in.Description,
		Location:     in.Location,
		Latitude:     in.Latitude,
		Longitude:    in.Longitude,
		IncidentDate: in.IncidentDate,
		Status:       models.ReportPending,
		Priority:     models.PriorityMedium,
		IPHash:       in.IPHash,
		SubmittedAt:  now,
	}
	err = s.st.Tx(ctx, func(tx store.Store) error {
		if err := tx.CreateReport(ctx, report); err != nil {
			return err
		}
		for i, name := range stored {
			a := &models.ReportAttachment{
				ReportID:         report.ID,
				Filename:         name,
				OriginalFilename: utils.SanitizeText(in.Attachments[i].Filename),
				ContentType:      normalizeContentType(in.Attachments[i].ContentType),
				Size:             in.Attachments[i].Size,
			}
			if err := tx.CreateAttachment(ctx, a); err != nil {
				return err
			}
		}
		return tx.CreateReportUpdate(ctx, &models.ReportUpdate{
			ReportID: report.ID,
			Status:   models.ReportPending,
			Message:  "Report received. It will be reviewed by our response team.",
		})
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}

// Track looks a report up by tracking code. Unknown codes are ErrNotFound
// and never return partial data.
func (s *ReportService) Track(ctx context.Context, code string) (*TrackResult, error) {
	code = strings.TrimSpace(code)
	if !utils.LooksLikeTrackingCode(code) {
		return nil, ErrNotFound
	}
	r, err := s.st.GetReportByTrackingCode(ctx, code)
	if err != nil {
		return nil, notFound("report", err)
	}

	res := &TrackResult{
		TrackingCode: r.TrackingCode,
		Category:     r.Category,
		Status:       r.Status,
		Priority:     r.Priority,
		SubmittedAt:  r.SubmittedAt,
	}
	if r.AssignedProviderID != nil {
		p, err := s.st.GetProvider(ctx, *r.AssignedProviderID)
		if err != nil {
			return nil, fmt.Errorf("load assigned provider: %w", err)
		}
		res.Provider = &PublicProvider{
			Name:              p.Name,
			Category:          p.Category,
			ContactPhone:      p.ContactPhone,
			ContactEmail:      p.ContactEmail,
			ResponseTimeHours: p.ResponseTimeHours,
		}
	}
	updates, err := s.st.ListReportUpdates(ctx, r.ID)
	if err != nil {
		return nil, fmt.Errorf("load report updates: %w", err)
	}
	for _, u := range updates {
		res.Updates = append(res.Updates, PublicUpdate{Status: u.Status, Message: u.Message, CreatedAt: u.CreatedAt})
	}
	return res, nil
}

// Review moves a pending report to Reviewed and optionally sets its priority.
func (s *ReportService) Review(ctx context.Context, actor Actor, reportID uint, priority models.Priority, note string) (*models.Report, error) {
	if err := actor.requireAdmin(); err != nil {
		return nil, err
	}
	note = utils.SanitizeText(note)
	if priority != "" && !priority.Valid() {
		return nil, invalid("priority", "Unknown priority.")
	}
	if len(note) > maxNoteLen {
		return nil, invalid("note", "Note is too long.")
	}

	var report *models.Report
	err := s.st.Tx(ctx, func(tx store.Store) error {
		r, err := tx.GetReportForUpdate(ctx, reportID)
		if err != nil {
			return notFound("report", err)
		}
		if r.Status != models.ReportPending {
			return invalidState("Only pending reports can be reviewed; this report is %s.", r.Status)
		}
		r.Status = models.ReportReviewed
		if priority != "" {
			r.Priority = priority
		}
		if err := tx.UpdateReport(ctx, r); err != nil {
			return err
		}
		msg := "Your report has been reviewed by our response team."
		if note != "" {
			msg = note
		}
		report = r
		return tx.CreateReportUpdate(ctx, &models.ReportUpdate{
			ReportID:           r.ID,
			Status:             r.Status,
			Message:            msg,
			CreatedByAccountID: actor.accountRef(),
		})
	})
	if err != nil {
		return nil, err
	}
	s.transitioned(ctx, actor, EventReportReviewed, report, "")
	return report, nil
}

// Assign routes a report to a verified provider. Re-assigning an Assigned
// report moves it to the new provider.
func (s *ReportService) Assign(ctx context.Context, actor Actor, reportID, providerID uint, note string) (*models.Report, error) {
	if err := actor.requireAdmin(); err != nil {
		return nil, err
	}
	note = utils.SanitizeText(note)
	if len(note) > maxNoteLen {
		return nil, invalid("note", "Note is too long.")
	}

	var report *models.Report
	var providerName string
	err := s.st.Tx(ctx, func(tx store.Store) error {
		r, err := tx.GetReportForUpdate(ctx, reportID)
		if err != nil {
			return notFound("report", err)
		}
		if r.Status == models.ReportClosed {
			return invalidState("This report is closed and cannot be assigned.")
		}
		p, err := tx.GetProvider(ctx, providerID)
		if err != nil {
			return notFound("provider", err)
		}
		if !p.IsVerified {
			return fmt.Errorf("provider %d is not verified: %w", p.ID, ErrNotFound)
		}

		now := s.now()
		r.Status = models.ReportAssigned
		r.AssignedProviderID = &p.ID
		r.AssignedAt = &now
		if err := tx.UpdateReport(ctx, r); err != nil {
			return err
		}
		msg := fmt.Sprintf("Your report has been assigned to %s.", p.Name)
		if note != "" {
			msg += " " + note
		}
		report, providerName = r, p.Name
		return tx.CreateReportUpdate(ctx, &models.ReportUpdate{
			ReportID:           r.ID,
			Status:             r.Status,
			Message:            msg,
			CreatedByAccountID: actor.accountRef(),
		})
	})
	if err != nil {
		return nil, err
	}
	s.transitioned(ctx, actor, EventReportAssigned, report, "provider="+providerName)
	return report, nil
}

// UpdateStatus lets the assigned provider or an admin move a report forward
// and leave a note for the reporter. Status never moves backwards and Closed
// is terminal.
func (s *ReportService) UpdateStatus(ctx context.Context, actor Actor, reportID uint, status models.ReportStatus, note string) (*models.Report, error) {
	note = utils.SanitizeText(note)

	var report *models.Report
	err := s.st.Tx(ctx, func(tx store.Store) error {
		r, err := tx.GetReportForUpdate(ctx, reportID)
		if err != nil {
			return notFound("report", err)
		}
		if !actor.CanActOn(r) {
			return ErrForbidden
		}
		if !status.Valid() {
			return invalid("status", "Unknown status.")
		}
		if len(note) > maxNoteLen {
			return invalid("note", "Note is too long.")
		}
		if err := checkTransition(r, status); err != nil {
			return err
		}
		if status == r.Status && note == "" {
			return invalid("note", "Add a note or choose a new status.")
		}

		if status != r.Status {
			r.Status = status
			if status == models.ReportClosed {
				now := s.now()
				r.ClosedAt = &now
			}
			if err := tx.UpdateReport(ctx, r); err != nil {
				return err
			}
		}
		msg := note
		if msg == "" {
			msg = fmt.Sprintf("Status changed to %s.", status)
		}
		report = r
		return tx.CreateReportUpdate(ctx, &models.ReportUpdate{
			ReportID:           r.ID,
			Status:             r.Status,
			Message:            msg,
			CreatedByAccountID: actor.accountRef(),
		})
	})
	if err != nil {
		return nil, err
	}
	s.transitioned(ctx, actor, EventReportStatusChanged, report, "")
	return report, nil
}

func checkTransition(r *models.Report, to models.ReportStatus) error {
	if r.Status == models.ReportClosed {
		return invalidState("This report is closed.")
	}
	if to.Rank() < r.Status.Rank() {
		return invalidState("A %s report cannot go back to %s.", r.Status, to)
	}
	if to == models.ReportAssigned && r.AssignedProviderID == nil {
		return invalidState("Assign a provider to move this report to Assigned.")
	}
	return nil
}

func (s *ReportService) transitioned(ctx context.Context, actor Actor, event string, r *models.Report, extra string) {
	reportTransitions.WithLabelValues(string(r.Status)).Inc()
	s.stats.Invalidate()
	details := fmt.Sprintf("report %d status=%s", r.ID, r.Status)
	if extra != "" {
		details += " " + extra
	}
	s.audit.Record(ctx, AuditEvent{Type: event, AccountID: actor.accountRef(), Details: details})
}

// List returns the reports visible to actor, newest first.
func (s *ReportService) List(ctx context.Context, actor Actor, status models.ReportStatus, limit int) ([]models.Report, error) {
	f := store.ReportFilter{Status: status, Limit: limit}
	if !actor.IsAdmin() {
		if actor.ProviderID == nil {
			return nil, nil
		}
		f.ProviderID = actor.ProviderID
	}
	return s.st.ListReports(ctx, f)
}

// Detail loads a report with its provider, updates, aid requests and attachments.
func (s *ReportService) Detail(ctx context.Context, actor Actor, reportID uint) (*ReportDetail, error) {
	r, err := s.st.GetReport(ctx, reportID)
	if err != nil {
		return nil, notFound("report", err)
	}
	if !actor.CanActOn(r) {
		return nil, ErrForbidden
	}
	d := &ReportDetail{Report: r}
	if r.AssignedProviderID != nil {
		if d.Provider, err = s.st.GetProvider(ctx, *r.AssignedProviderID); err != nil {
			return nil, fmt.Errorf("load assigned provider: %w", err)
		}
	}
	if d.Updates, err = s.st.ListReportUpdates(ctx, r.ID); err != nil {
		return nil, err
	}
	if d.AidRequests, err = s.st.ListAidRequests(ctx, store.AidFilter{ReportID: &r.ID}); err != nil {
		return nil, err
	}
	if d.Attachments, err = s.st.ListAttachments(ctx, r.ID); err != nil {
		return nil, err
	}
	return d, nil
}

// AttachmentPath returns the on-disk path of a report attachment the actor may read.
func (s *ReportService) AttachmentPath(ctx context.Context, actor Actor, reportID uint, name string) (string, *models.ReportAttachment, error) {
	r, err := s.st.GetReport(ctx, reportID)
	if err != nil {
		return "", nil, notFound("report", err)
	}
	if !actor.CanActOn(r) {
		return "", nil, ErrForbidden
	}
	atts, err := s.st.ListAttachments(ctx, r.ID)
	if err != nil {
		return "", nil, err
	}
	for i := range atts {
		if atts[i].Filename == name {
			return s.files.Path(name), &atts[i], nil
		}
	}
	return "", nil, ErrNotFound
}
