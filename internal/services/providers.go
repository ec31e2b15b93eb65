package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"time"

	"safenet/internal/models"
	"safenet/internal/store"
	"safenet/internal/utils"
)

const (
	minPasswordLen = 8
	// bcrypt rejects longer input
	maxPasswordBytes = 72
)

var (
	usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]{3,80}$`)
	phonePattern    = regexp.MustCompile(`^\+?[0-9 ()-]{7,20}$`)
)

type RegisterProviderInput struct {
	Name              string
	Category          string
	Address           string
	ContactPhone      string
	ContactEmail      string
	Description       string
	ResponseTimeHours int

	Username        string
	Email           string
	Password        string
	PasswordConfirm string

	IPHash string
}

// ProviderDetail is the admin view of one organization.
type ProviderDetail struct {
	Provider      *models.Provider
	Accounts      []models.Account
	Verifications []models.VerificationRecord
}

type ProviderService struct {
	st    store.Store
	audit *Auditor
	stats *StatsService
	now   func() time.Time
}

func NewProviderService(st store.Store, audit *Auditor, stats *StatsService) *ProviderService {
	return &ProviderService{st: st, audit: audit, stats: stats, now: time.Now}
}

func validEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == s
}

func validateProvider(in *RegisterProviderInput) error {
	in.Name = utils.SanitizeText(in.Name)
	in.Category = strings.TrimSpace(in.Category)
	in.Address = utils.SanitizeText(in.Address)
	in.ContactPhone = strings.TrimSpace(in.ContactPhone)
	in.ContactEmail = strings.ToLower(strings.TrimSpace(in.ContactEmail))
	in.Description = utils.SanitizeText(in.Description)

	switch {
	case in.Name == "":
		return invalid("name", "Organization name is required.")
	case len(in.Name) > 200:
		return invalid("name", "Organization name is too long.")
	case !models.IsProviderCategory(in.Category):
		return invalid("category", "Please choose a category from the list.")
	case in.Address == "":
		return invalid("address", "Address is required.")
	case !phonePattern.MatchString(in.ContactPhone):
		return invalid("contact_phone", "Please enter a valid phone number.")
	case !validEmail(in.ContactEmail):
		return invalid("contact_email", "Please enter a valid contact email.")
	case len(in.Description) > maxDescriptionLen:
		return invalid("description", "Description is too long.")
	}
	if in.ResponseTimeHours == 0 {
		in.ResponseTimeHours = 24
	}
	if in.ResponseTimeHours < 1 || in.ResponseTimeHours > 24*14 {
		return invalid("response_time_hours", "Response time must be between 1 and 336 hours.")
	}
	return nil
}

func validateAccount(username, email, password, confirm string) error {
	switch {
	case !usernamePattern.MatchString(username):
		return invalid("username", "Username must be 3-80 letters, digits, dots, dashes or underscores.")
	case !validEmail(email):
		return invalid("email", "Please enter a valid email address.")
	case len(password) < minPasswordLen:
		return invalid("password", fmt.Sprintf("Password must be at least %d characters.", minPasswordLen))
	case len(password) > maxPasswordBytes:
		return invalid("password", fmt.Sprintf("Password must be at most %d bytes.", maxPasswordBytes))
	case password != confirm:
		return invalid("password_confirm", "Passwords do not match.")
	}
	return nil
}

func newProviderAccount(username, email, password string, providerID uint) (*models.Account, error) {
	hash, err := utils.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	pid := providerID
	return &models.Account{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         models.RoleProvider,
		ProviderID:   &pid,
		IsActive:     true,
	}, nil
}

// Register creates an unverified provider and its first account atomically.
func (s *ProviderService) Register(ctx context.Context, in RegisterProviderInput) (*models.Provider, *models.Account, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := validateProvider(&in); err != nil {
		return nil, nil, err
	}
	if err := validateAccount(in.Username, in.Email, in.Password, in.PasswordConfirm); err != nil {
		return nil, nil, err
	}

	provider := &models.Provider{
		Name:              in.Name,
		Category:          in.Category,
		Address:           in.Address,
		ContactPhone:      in.ContactPhone,
		ContactEmail:      in.ContactEmail,
		Description:       in.Description,
		ResponseTimeHours: in.ResponseTimeHours,
	}
	var account *models.Account
	err := s.st.Tx(ctx, func(tx store.Store) error {
		if err := tx.CreateProvider(ctx, provider); err != nil {
			return err
		}
		a, err := newProviderAccount(in.Username, in.Email, in.Password, provider.ID)
		if err != nil {
			return err
		}
		if err := tx.CreateAccount(ctx, a); err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				return invalid("username", "That username or email is already registered.")
			}
			return err
		}
		account = a
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	s.stats.Invalidate()
	s.audit.Record(ctx, AuditEvent{
		Type:      EventProviderRegistered,
		AccountID: &account.ID,
		IPHash:    in.IPHash,
		Details:   fmt.Sprintf("provider %d %q category=%s", provider.ID, provider.Name, provider.Category),
	})
	return provider, account, nil
}

// Verify approves a provider. The first approval sets verified_at; a repeat
// approval only appends another record.
func (s *ProviderService) Verify(ctx context.Context, actor Actor, providerID uint, notes string) (*models.Provider, error) {
	return s.setVerification(ctx, actor, providerID, models.VerificationApproved, notes)
}

// Revoke withdraws verification. Reports already assigned to the provider stay assigned.
func (s *ProviderService) Revoke(ctx context.Context, actor Actor, providerID uint, notes string) (*models.Provider, error) {
	return s.setVerification(ctx, actor, providerID, models.VerificationRevoked, notes)
}

func (s *ProviderService) setVerification(ctx context.Context, actor Actor, providerID uint, status models.VerificationStatus, notes string) (*models.Provider, error) {
	if err := actor.requireAdmin(); err != nil {
		return nil, err
	}
	notes = utils.SanitizeText(notes)
	if len(notes) > maxNoteLen {
		return nil, invalid("notes", "Notes are too long.")
	}

	var provider *models.Provider
	err := s.st.Tx(ctx, func(tx store.Store) error {
		p, err := tx.GetProvider(ctx, providerID)
		if err != nil {
			return notFound("provider", err)
		}
		switch status {
		case models.VerificationApproved:
			if !p.IsVerified {
				now := s.now()
				p.IsVerified = true
				p.VerifiedAt = &now
				if err := tx.SetProviderVerification(ctx, p.ID, true, p.VerifiedAt); err != nil {
					return err
				}
			}
		case models.VerificationRevoked:
			if !p.IsVerified {
				return invalidState("%s is not verified.", p.Name)
			}
			p.IsVerified = false
			if err := tx.SetProviderVerification(ctx, p.ID, false, p.VerifiedAt); err != nil {
				return err
			}
		}
		provider = p
		return tx.CreateVerificationRecord(ctx, &models.VerificationRecord{
			ProviderID:          p.ID,
			VerifiedByAccountID: actor.AccountID,
			Status:              status,
			Notes:               notes,
		})
	})
	if err != nil {
		return nil, err
	}

	providerVerifications.WithLabelValues(string(status)).Inc()
	s.stats.Invalidate()
	event := EventProviderVerified
	if status == models.VerificationRevoked {
		event = EventProviderRevoked
	}
	s.audit.Record(ctx, AuditEvent{
		Type:      event,
		AccountID: actor.accountRef(),
		Details:   fmt.Sprintf("provider %d %q", provider.ID, provider.Name),
	})
	return provider, nil
}

// Directory lists verified providers by name, optionally for one category.
// An unknown category yields an empty list.
func (s *ProviderService) Directory(ctx context.Context, category string) ([]models.Provider, error) {
	category = strings.TrimSpace(category)
	if category != "" && !models.IsProviderCategory(category) {
		return nil, nil
	}
	return s.st.ListProviders(ctx, store.ProviderFilter{Category: category, VerifiedOnly: true})
}

// List returns every provider for the admin screens.
func (s *ProviderService) List(ctx context.Context, actor Actor, verifiedOnly bool) ([]models.Provider, error) {
	if err := actor.requireAdmin(); err != nil {
		return nil, err
	}
	return s.st.ListProviders(ctx, store.ProviderFilter{VerifiedOnly: verifiedOnly})
}

func (s *ProviderService) Detail(ctx context.Context, actor Actor, providerID uint) (*ProviderDetail, error) {
	if err := actor.requireAdmin(); err != nil {
		return nil, err
	}
	p, err := s.st.GetProvider(ctx, providerID)
	if err != nil {
		return nil, notFound("provider", err)
	}
	d := &ProviderDetail{Provider: p}
	if d.Accounts, err = s.st.ListAccountsByProvider(ctx, p.ID); err != nil {
		return nil, err
	}
	if d.Verifications, err = s.st.ListVerificationRecords(ctx, p.ID); err != nil {
		return nil, err
	}
	return d, nil
}

// Get loads one provider for the provider's own dashboard.
func (s *ProviderService) Get(ctx context.Context, id uint) (*models.Provider, error) {
	p, err := s.st.GetProvider(ctx, id)
	if err != nil {
		return nil, notFound("provider", err)
	}
	return p, nil
}
