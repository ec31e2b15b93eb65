package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"safenet/internal/models"
	"safenet/internal/store"
	"safenet/internal/utils"
)

// dummyHash is compared against when the login is unknown so both failure
// paths cost one bcrypt comparison.
const dummyHash = "$2a$10$7EqJtq98hPqEX7fNZaFWoOhi5BWX4Z1oNsQK5Ql0vGvEqmTzMpWgK"

type CreateAccountInput struct {
	Username        string
	Email           string
	Password        string
	PasswordConfirm string
}

type AccountService struct {
	st    store.Store
	audit *Auditor
	now   func() time.Time
}

func NewAccountService(st store.Store, audit *Auditor) *AccountService {
	return &AccountService{st: st, audit: audit, now: time.Now}
}

// Authenticate checks a username or email and password. Every failure,
// including an inactive account, is ErrInvalidCredentials.
func (s *AccountService) Authenticate(ctx context.Context, login, password, ipHash string) (*models.Account, error) {
	login = strings.TrimSpace(login)
	if login == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	a, err := s.st.GetAccountByLogin(ctx, login)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("load account: %w", err)
	}
	if a == nil {
		utils.CheckPasswordHash(password, dummyHash)
		s.failed(ctx, login, ipHash)
		return nil, ErrInvalidCredentials
	}
	if !utils.CheckPasswordHash(password, a.PasswordHash) || !a.IsActive {
		s.failed(ctx, login, ipHash)
		return nil, ErrInvalidCredentials
	}

	now := s.now()
	if err := s.st.TouchLastLogin(ctx, a.ID, now); err != nil {
		return nil, fmt.Errorf("record login: %w", err)
	}
	a.LastLoginAt = &now
	s.audit.Record(ctx, AuditEvent{
		Type:      EventLogin,
		AccountID: &a.ID,
		IPHash:    ipHash,
		Details:   fmt.Sprintf("role=%s", a.Role),
	})
	return a, nil
}

func (s *AccountService) failed(ctx context.Context, login, ipHash string) {
	if len(login) > 80 {
		login = login[:80]
	}
	s.audit.Record(ctx, AuditEvent{
		Type:    EventLoginFailed,
		IPHash:  ipHash,
		Details: fmt.Sprintf("login=%q", login),
	})
}

// Get returns an active account for the session middleware.
func (s *AccountService) Get(ctx context.Context, id uint) (*models.Account, error) {
	a, err := s.st.GetAccount(ctx, id)
	if err != nil {
		return nil, notFound("account", err)
	}
	if !a.IsActive {
		return nil, ErrNotFound
	}
	return a, nil
}

func (s *AccountService) RecordLogout(ctx context.Context, actor Actor, ipHash string) {
	s.audit.Record(ctx, AuditEvent{Type: EventLogout, AccountID: actor.accountRef(), IPHash: ipHash})
}

// CreateProviderAccount adds another login to an existing provider.
func (s *AccountService) CreateProviderAccount(ctx context.Context, actor Actor, providerID uint, in CreateAccountInput) (*models.Account, error) {
	if err := actor.requireAdmin(); err != nil {
		return nil, err
	}
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := validateAccount(in.Username, in.Email, in.Password, in.PasswordConfirm); err != nil {
		return nil, err
	}

	var account *models.Account
	err := s.st.Tx(ctx, func(tx store.Store) error {
		if _, err := tx.GetProvider(ctx, providerID); err != nil {
			return notFound("provider", err)
		}
		a, err := newProviderAccount(in.Username, in.Email, in.Password, providerID)
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
		return nil, err
	}
	s.audit.Record(ctx, AuditEvent{
		Type:      EventAccountCreated,
		AccountID: actor.accountRef(),
		Details:   fmt.Sprintf("account %d for provider %d", account.ID, providerID),
	})
	return account, nil
}

// EnsureAdmin creates the first admin account when none exists. It reports
// whether an account was created.
func (s *AccountService) EnsureAdmin(ctx context.Context, username, email, password string) (bool, error) {
	n, err := s.st.CountAdmins(ctx)
	if err != nil {
		return false, fmt.Errorf("count admins: %w", err)
	}
	if n > 0 {
		return false, nil
	}
	username = strings.TrimSpace(username)
	email = strings.ToLower(strings.TrimSpace(email))
	if username == "" || password == "" {
		return false, nil
	}
	if err := validateAccount(username, email, password, password); err != nil {
		return false, fmt.Errorf("initial admin: %w", err)
	}
	hash, err := utils.HashPassword(password)
	if err != nil {
		return false, fmt.Errorf("hash password: %w", err)
	}
	a := &models.Account{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         models.RoleAdmin,
		IsActive:     true,
	}
	if err := s.st.CreateAccount(ctx, a); err != nil {
		return false, fmt.Errorf("create admin: %w", err)
	}
	s.audit.Record(ctx, AuditEvent{
		Type:      EventAccountCreated,
		AccountID: &a.ID,
		Details:   "initial admin " + a.Username,
	})
	return true, nil
}
