package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/stages-admin/internal/models"
)

var dashboardToday = time.Date(2025, time.June, 10, 0, 0, 0, 0, time.UTC)

func dashboardStages() []models.Stage {
	return []models.Stage{
		{ID: 1, Statut: models.StatutEnCours, DateFin: models.NewDate(2025, time.June, 10), Unite: "Unité Informatique "},
		{ID: 2, Statut: models.StatutEnCours, DateFin: models.NewDate(2025, time.June, 17), Unite: "Unité Informatique "},
		{ID: 3, Statut: models.StatutEnCours, DateFin: models.NewDate(2025, time.June, 18)},
		{ID: 4, Statut: models.StatutEnCours, DateFin: models.NewDate(2025, time.May, 31)},
		{ID: 5, Statut: models.StatutTermine, DateFin: models.NewDate(2025, time.May, 1), Unite: "Unité Cartographie et SIG"},
		{ID: 6, Statut: models.StatutEnCours, DateFin: models.NewDate(2025, time.June, 9)},
	}
}

func TestEndingSoonWindowIncludesBothEnds(t *testing.T) {
	alerts := EndingSoon(dashboardStages(), dashboardToday)
	require.Len(t, alerts, 2)
	assert.EqualValues(t, 1, alerts[0].Stage.ID)
	assert.Equal(t, 0, alerts[0].DaysLeft)
	assert.EqualValues(t, 2, alerts[1].Stage.ID)
	assert.Equal(t, 7, alerts[1].DaysLeft)
}

func TestOverdueSkipsFinishedStages(t *testing.T) {
	alerts := Overdue(dashboardStages(), dashboardToday)
	require.Len(t, alerts, 2)
	assert.EqualValues(t, 4, alerts[0].Stage.ID)
	assert.Equal(t, 10, alerts[0].DaysLate)
	assert.EqualValues(t, 6, alerts[1].Stage.ID)
	assert.Equal(t, 1, alerts[1].DaysLate)
}

func TestUnitSharesGroupsUnspecified(t *testing.T) {
	shares := UnitShares(dashboardStages())
	assert.Equal(t, []models.UnitShare{
		{Unite: "Non spécifié", Count: 3},
		{Unite: "Unité Informatique ", Count: 2},
		{Unite: "Unité Cartographie et SIG", Count: 1},
	}, shares)
}

func TestDashboardViewCachesBackendStats(t *testing.T) {
	b := &fakeBackend{stages: dashboardStages(), dashboard: models.Dashboard{TotalStages: 6, StagesEnCours: 5}}
	cache := NewCacheService(newMemoryCache(), nil, time.Minute, nil, true)
	svc := NewDashboardService(b, cache, time.Minute, nil)
	svc.now = func() time.Time { return dashboardToday.Add(9 * time.Hour) }

	first, err := svc.View(context.Background(), testCaller)
	require.NoError(t, err)
	assert.False(t, first.CachedStats)
	assert.Equal(t, 6, first.Stats.TotalStages)
	assert.Len(t, first.EndingSoon, 2)
	assert.Len(t, first.Overdue, 2)

	second, err := svc.View(context.Background(), testCaller)
	require.NoError(t, err)
	assert.True(t, second.CachedStats)
	assert.Equal(t, 5, second.Stats.StagesEnCours)
	assert.Equal(t, 1, b.dashboardCalls)
}

func TestDashboardViewWithoutCacheAlwaysHitsBackend(t *testing.T) {
	b := &fakeBackend{stages: dashboardStages()}
	svc := NewDashboardService(b, nil, 0, nil)

	for i := 0; i < 2; i++ {
		view, err := svc.View(context.Background(), testCaller)
		require.NoError(t, err)
		assert.False(t, view.CachedStats)
	}
	assert.Equal(t, 2, b.dashboardCalls)
}

func TestMutationInvalidatesDashboardCache(t *testing.T) {
	mem := newMemoryCache()
	cache := NewCacheService(mem, nil, time.Minute, nil, true)
	require.NoError(t, cache.Set(context.Background(), dashboardStatsKey, models.Dashboard{TotalStages: 1}, 0))

	b := &fakeBackend{}
	svc := NewStageService(b, gatewaysOf(&fakeGateway{}), nil, nil, cache, nil)
	require.NoError(t, svc.Delete(context.Background(), testCaller, 9))

	assert.Equal(t, []int64{9}, b.deleted)
	assert.Equal(t, []string{"dashboard:*"}, mem.invalidated)
	assert.NotContains(t, mem.items, dashboardStatsKey)
}
