package session

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/stages-admin/internal/models"
	appErrors "github.com/noah-isme/stages-admin/pkg/errors"
)

func (m *MemoryStore) sizes() (int, int) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions), len(m.drafts)
}

func TestSweepDropsExpiredSessionsAndDrafts(t *testing.T) {
	c := &clock{t: time.Now()}
	store := NewMemoryStore(time.Millisecond)
	store.now = c.now
	ctx := context.Background()

	for i := 0; i < 1000; i++ {
		id := fmt.Sprintf("s%d", i)
		require.NoError(t, store.Save(ctx, &models.Session{ID: id, ExpiresAt: c.t.Add(time.Millisecond)}))
		require.NoError(t, store.SaveDraft(ctx, id, "stage", make([]byte, 64)))
	}
	require.NoError(t, store.Save(ctx, &models.Session{ID: "live", ExpiresAt: c.t.Add(48 * time.Hour)}))

	c.t = c.t.Add(24 * time.Hour)
	sessions, drafts := store.Sweep()

	assert.Equal(t, 1000, sessions)
	assert.Equal(t, 1000, drafts)
	held, draftSets := store.sizes()
	assert.Equal(t, 1, held)
	assert.Equal(t, 0, draftSets)

	s, err := store.Load(ctx, "live")
	require.NoError(t, err)
	assert.Equal(t, "live", s.ID)
}

func TestSweepKeepsFreshDraftsOfLiveSessions(t *testing.T) {
	c := &clock{t: time.Now()}
	store := NewMemoryStore(time.Hour)
	store.now = c.now
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, &models.Session{ID: "s1", ExpiresAt: c.t.Add(12 * time.Hour)}))
	require.NoError(t, store.SaveDraft(ctx, "s1", "old", []byte("a")))
	c.t = c.t.Add(2 * time.Hour)
	require.NoError(t, store.SaveDraft(ctx, "s1", "stage", []byte("b")))

	sessions, drafts := store.Sweep()
	assert.Zero(t, sessions)
	assert.Zero(t, drafts)

	_, err := store.LoadDraft(ctx, "s1", "old")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
	data, err := store.LoadDraft(ctx, "s1", "stage")
	require.NoError(t, err)
	assert.Equal(t, []byte("b"), data)
}

func TestStartSweepRunsOnInterval(t *testing.T) {
	c := &clock{t: time.Now()}
	store := NewMemoryStore(time.Minute)
	store.now = c.now
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, &models.Session{ID: "old", ExpiresAt: c.t.Add(-time.Minute)}))
	require.NoError(t, store.SaveDraft(ctx, "old", "stage", []byte("a")))

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	store.StartSweep(runCtx, 5*time.Millisecond, zap.NewNop())
	defer store.StopSweep()

	require.Eventually(t, func() bool {
		held, draftSets := store.sizes()
		return held == 0 && draftSets == 0
	}, time.Second, 5*time.Millisecond)
}

func TestStopSweepWithoutStart(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	store.StartSweep(context.Background(), 0, nil)
	assert.NotPanics(t, store.StopSweep)
}
