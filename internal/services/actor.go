package services

import (
	"safenet/internal/models"
)

// Actor is the authenticated staff member performing an operation.
// It is passed explicitly to every mutating call.
type Actor struct {
	AccountID  uint
	Username   string
	Role       models.Role
	ProviderID *uint
}

func ActorFromAccount(a *models.Account) Actor {
	return Actor{
		AccountID:  a.ID,
		Username:   a.Username,
		Role:       a.Role,
		ProviderID: a.ProviderID,
	}
}

func (a Actor) IsAdmin() bool {
	return a.Role == models.RoleAdmin
}

// CanActOn is true for admins and for provider accounts of the organization
// the report is currently assigned to.
func (a Actor) CanActOn(r *models.Report) bool {
	if a.IsAdmin() {
		return true
	}
	if a.Role != models.RoleProvider || a.ProviderID == nil || r.AssignedProviderID == nil {
		return false
	}
	return *a.ProviderID == *r.AssignedProviderID
}

func (a Actor) requireAdmin() error {
	if !a.IsAdmin() {
		return ErrForbidden
	}
	return nil
}

func (a Actor) accountRef() *uint {
	if a.AccountID == 0 {
		return nil
	}
	id := a.AccountID
	return &id
}
