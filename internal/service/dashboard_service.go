package service

import (
	"context"
	"sort"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/noah-isme/stages-admin/internal/backend"
	"github.com/noah-isme/stages-admin/internal/models"
)

const (
	dashboardStatsKey = "dashboard:stats"
	unitUnspecified   = "Non spécifié"
	endingSoonWindow  = 7
)

type dashboardBackend interface {
	Dashboard(ctx context.Context, creds backend.Credentials) (*models.Dashboard, error)
	ListStages(ctx context.Context, creds backend.Credentials, statut string) ([]models.Stage, error)
}

// DashboardService composes the dashboard page: backend aggregates, the
// per-unit breakdown and the alert lists.
type DashboardService struct {
	backend  dashboardBackend
	cache    *CacheService
	cacheTTL time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

// NewDashboardService constructs a DashboardService. The aggregates are
// cached for cacheTTL when the cache is enabled.
func NewDashboardService(b dashboardBackend, cache *CacheService, cacheTTL time.Duration, logger *zap.Logger) *DashboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{backend: b, cache: cache, cacheTTL: cacheTTL, logger: logger, now: time.Now}
}

// View builds the dashboard for caller. The stage list is always fetched
// fresh; only the backend aggregate is cached.
func (s *DashboardService) View(ctx context.Context, caller Caller) (*models.DashboardView, error) {
	stats, cached, err := s.stats(ctx, caller)
	if err != nil {
		return nil, err
	}
	stages, err := s.backend.ListStages(ctx, caller.Credentials, "")
	if err != nil {
		return nil, err
	}
	today := s.today()
	return &models.DashboardView{
		Stats:       *stats,
		Units:       UnitShares(stages),
		EndingSoon:  EndingSoon(stages, today),
		Overdue:     Overdue(stages, today),
		CachedStats: cached,
	}, nil
}

func (s *DashboardService) stats(ctx context.Context, caller Caller) (*models.Dashboard, bool, error) {
	var cached models.Dashboard
	if hit, err := s.cache.Get(ctx, dashboardStatsKey, &cached); err == nil && hit {
		return &cached, true, nil
	}
	stats, err := s.backend.Dashboard(ctx, caller.Credentials)
	if err != nil {
		return nil, false, err
	}
	if err := s.cache.Set(ctx, dashboardStatsKey, stats, s.cacheTTL); err != nil {
		s.logger.Warn("dashboard cache write failed", zap.Error(err))
	}
	return stats, false, nil
}

func (s *DashboardService) today() time.Time {
	y, m, d := s.now().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// UnitShares counts stages per assignment unit, largest first. Stages
// without a unit are grouped under "Non spécifié".
func UnitShares(stages []models.Stage) []models.UnitShare {
	counts := lo.CountValuesBy(stages, func(st models.Stage) string {
		if st.Unite == "" {
			return unitUnspecified
		}
		return st.Unite
	})
	shares := lo.MapToSlice(counts, func(unite string, n int) models.UnitShare {
		return models.UnitShare{Unite: unite, Count: n}
	})
	sort.Slice(shares, func(i, j int) bool {
		if shares[i].Count != shares[j].Count {
			return shares[i].Count > shares[j].Count
		}
		return shares[i].Unite < shares[j].Unite
	})
	return shares
}

// EndingSoon lists running stages whose end date falls within the next
// seven days, today included, soonest first.
func EndingSoon(stages []models.Stage, today time.Time) []models.StageAlert {
	alerts := lo.FilterMap(stages, func(st models.Stage, _ int) (models.StageAlert, bool) {
		if st.Statut != models.StatutEnCours || st.DateFin.IsZero() {
			return models.StageAlert{}, false
		}
		left := daysBetween(today, st.DateFin.Time)
		return models.StageAlert{Stage: st, DaysLeft: left}, left >= 0 && left <= endingSoonWindow
	})
	sort.SliceStable(alerts, func(i, j int) bool { return alerts[i].DaysLeft < alerts[j].DaysLeft })
	return alerts
}

// Overdue lists stages past their end date that are still running or
// pending, most late first.
func Overdue(stages []models.Stage, today time.Time) []models.StageAlert {
	alerts := lo.FilterMap(stages, func(st models.Stage, _ int) (models.StageAlert, bool) {
		if (st.Statut != models.StatutEnCours && st.Statut != models.EtatEnAttente) || st.DateFin.IsZero() {
			return models.StageAlert{}, false
		}
		late := daysBetween(st.DateFin.Time, today)
		return models.StageAlert{Stage: st, DaysLate: late}, late > 0
	})
	sort.SliceStable(alerts, func(i, j int) bool { return alerts[i].DaysLate > alerts[j].DaysLate })
	return alerts
}

func daysBetween(from, to time.Time) int {
	return int(to.Sub(from).Hours() / 24)
}
