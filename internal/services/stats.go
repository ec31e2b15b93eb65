package services

import (
	"context"
	"fmt"
	"time"

	"safenet/internal/models"
	"safenet/internal/store"
	"safenet/internal/utils"
)

const statsCacheSize = 256

// Stats is the dashboard summary served as JSON.
type Stats struct {
	Scope             string                        `json:"scope"`
	Reports           map[models.ReportStatus]int64 `json:"reports"`
	ReportsTotal      int64                         `json:"reports_total"`
	ProvidersTotal    int64                         `json:"providers_total,omitempty"`
	ProvidersVerified int64                         `json:"providers_verified,omitempty"`
	AidPending        int64                         `json:"aid_pending"`
	GeneratedAt       time.Time                     `json:"generated_at"`
}

// StatsService caches stats per scope for a short ttl. Every mutation in
// the domain services purges the cache.
type StatsService struct {
	st    store.Store
	cache *utils.Cache
	ttl   time.Duration
}

func NewStatsService(st store.Store, ttl time.Duration) (*StatsService, error) {
	c, err := utils.NewCache(statsCacheSize)
	if err != nil {
		return nil, fmt.Errorf("stats cache: %w", err)
	}
	return &StatsService{st: st, cache: c, ttl: ttl}, nil
}

func statsScope(actor Actor) (string, *uint, error) {
	if actor.IsAdmin() {
		return "admin", nil, nil
	}
	if actor.Role == models.RoleProvider && actor.ProviderID != nil {
		return fmt.Sprintf("provider:%d", *actor.ProviderID), actor.ProviderID, nil
	}
	return "", nil, ErrForbidden
}

// Get returns global counts for admins and counts over their own
// assignments for providers.
func (s *StatsService) Get(ctx context.Context, actor Actor) (*Stats, error) {
	scope, providerID, err := statsScope(actor)
	if err != nil {
		return nil, err
	}
	if v, ok := s.cache.Get(scope).(*Stats); ok {
		return v, nil
	}

	counts, err := s.st.CountReports(ctx, providerID)
	if err != nil {
		return nil, fmt.Errorf("count reports: %w", err)
	}
	out := &Stats{
		Scope:        scope,
		Reports:      counts,
		ReportsTotal: counts.Total(),
		GeneratedAt:  time.Now().UTC(),
	}
	if out.AidPending, err = s.st.CountAidRequests(ctx, providerID, models.AidPending); err != nil {
		return nil, fmt.Errorf("count aid requests: %w", err)
	}
	if providerID == nil {
		if out.ProvidersTotal, err = s.st.CountProviders(ctx, false); err != nil {
			return nil, fmt.Errorf("count providers: %w", err)
		}
		if out.ProvidersVerified, err = s.st.CountProviders(ctx, true); err != nil {
			return nil, fmt.Errorf("count providers: %w", err)
		}
	}
	s.cache.Set(scope, out, s.ttl)
	return out, nil
}

func (s *StatsService) Invalidate() {
	s.cache.Purge()
}
