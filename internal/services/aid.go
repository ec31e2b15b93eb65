package services

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"safenet/internal/models"
	"safenet/internal/store"
	"safenet/internal/utils"
)

type SubmitAidInput struct {
	AidType     models.AidType
	Amount      *float64
	Description string
	Urgency     models.Urgency
}

type AidService struct {
	st    store.Store
	audit *Auditor
	stats *StatsService
	now   func() time.Time
}

func NewAidService(st store.Store, audit *Auditor, stats *StatsService) *AidService {
	return &AidService{st: st, audit: audit, stats: stats, now: time.Now}
}

func validateAid(in *SubmitAidInput) error {
	in.Description = utils.SanitizeText(in.Description)
	if in.Urgency == "" {
		in.Urgency = models.UrgencyNormal
	}
	if !in.AidType.Valid() {
		return invalid("aid_type", "Please choose an aid type from the list.")
	}
	if !in.Urgency.Valid() {
		return invalid("urgency", "Unknown urgency.")
	}
	if in.Amount != nil {
		if in.AidType != models.AidFinancial {
			return invalid("amount", "An amount can only be given for financial aid.")
		}
		if math.IsNaN(*in.Amount) || math.IsInf(*in.Amount, 0) || *in.Amount <= 0 {
			return invalid("amount", "Amount must be greater than zero.")
		}
	}
	if len(in.Description) > maxDescriptionLen {
		return invalid("description", "Description is too long.")
	}
	return nil
}

// Submit attaches a new pending aid request to a report.
func (s *AidService) Submit(ctx context.Context, actor Actor, reportID uint, in SubmitAidInput) (*models.AidRequest, error) {
	var req *models.AidRequest
	err := s.st.Tx(ctx, func(tx store.Store) error {
		r, err := tx.GetReportForUpdate(ctx, reportID)
		if err != nil {
			return notFound("report", err)
		}
		if !actor.CanActOn(r) {
			return ErrForbidden
		}
		if err := validateAid(&in); err != nil {
			return err
		}
		if r.Status == models.ReportClosed {
			return invalidState("This report is closed; no new aid requests can be added.")
		}
		req = &models.AidRequest{
			ReportID:    r.ID,
			AidType:     in.AidType,
			Amount:      in.Amount,
			Description: in.Description,
			Urgency:     in.Urgency,
			Status:      models.AidPending,
		}
		return tx.CreateAidRequest(ctx, req)
	})
	if err != nil {
		return nil, err
	}
	s.changed(ctx, actor, EventAidRequested, req)
	return req, nil
}

// Decide approves or rejects a pending request.
func (s *AidService) Decide(ctx context.Context, actor Actor, aidID uint, approve bool) (*models.AidRequest, error) {
	req, err := s.transition(ctx, actor, aidID, func(a *models.AidRequest) error {
		if a.Status != models.AidPending {
			return invalidState("Only pending aid requests can be decided; this one is %s.", a.Status)
		}
		now := s.now()
		a.Status = models.AidRejected
		if approve {
			a.Status = models.AidApproved
		}
		a.DecidedAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.changed(ctx, actor, EventAidDecided, req)
	return req, nil
}

// MarkProvided closes out an approved request with a reference to the
// receipt or transfer that proves delivery.
func (s *AidService) MarkProvided(ctx context.Context, actor Actor, aidID uint, proof string) (*models.AidRequest, error) {
	proof = utils.SanitizeText(proof)
	req, err := s.transition(ctx, actor, aidID, func(a *models.AidRequest) error {
		if a.Status != models.AidApproved {
			return invalidState("Only approved aid requests can be marked provided; this one is %s.", a.Status)
		}
		if proof == "" {
			return invalid("proof_reference", "A proof reference is required.")
		}
		if len(proof) > 255 {
			return invalid("proof_reference", "Proof reference is too long.")
		}
		now := s.now()
		a.Status = models.AidProvided
		a.ProofReference = &proof
		a.ProvidedAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.changed(ctx, actor, EventAidProvided, req)
	return req, nil
}

func (s *AidService) transition(ctx context.Context, actor Actor, aidID uint, apply func(*models.AidRequest) error) (*models.AidRequest, error) {
	var req *models.AidRequest
	err := s.st.Tx(ctx, func(tx store.Store) error {
		a, err := tx.GetAidRequestForUpdate(ctx, aidID)
		if err != nil {
			return notFound("aid request", err)
		}
		r, err := tx.GetReportForUpdate(ctx, a.ReportID)
		if err != nil {
			return notFound("report", err)
		}
		if !actor.CanActOn(r) {
			return ErrForbidden
		}
		if err := apply(a); err != nil {
			return err
		}
		req = a
		return tx.UpdateAidRequest(ctx, a)
	})
	return req, err
}

func (s *AidService) changed(ctx context.Context, actor Actor, event string, a *models.AidRequest) {
	aidTransitions.WithLabelValues(string(a.Status)).Inc()
	s.stats.Invalidate()
	details := fmt.Sprintf("aid %d report %d type=%s status=%s", a.ID, a.ReportID, a.AidType, a.Status)
	if a.Amount != nil {
		details += fmt.Sprintf(" amount=%.2f", *a.Amount)
	}
	s.audit.Record(ctx, AuditEvent{Type: event, AccountID: actor.accountRef(), Details: details})
}

// ListForReport returns the aid requests of one report the actor may see.
func (s *AidService) ListForReport(ctx context.Context, actor Actor, reportID uint) ([]models.AidRequest, error) {
	r, err := s.st.GetReport(ctx, reportID)
	if err != nil {
		return nil, notFound("report", err)
	}
	if !actor.CanActOn(r) {
		return nil, ErrForbidden
	}
	return s.st.ListAidRequests(ctx, store.AidFilter{ReportID: &r.ID})
}

// ListForActor returns aid requests across every report the actor can see.
func (s *AidService) ListForActor(ctx context.Context, actor Actor, status models.AidStatus, limit int) ([]models.AidRequest, error) {
	f := store.AidFilter{Status: status, Limit: limit}
	if !actor.IsAdmin() {
		if actor.ProviderID == nil {
			return nil, nil
		}
		f.ProviderID = actor.ProviderID
	}
	return s.st.ListAidRequests(ctx, f)
}

// ParseAidType matches the form value case-insensitively.
func ParseAidType(s string) models.AidType {
	s = strings.TrimSpace(s)
	for _, t := range models.AidTypes {
		if strings.EqualFold(string(t), s) {
			return t
		}
	}
	return models.AidType(s)
}
