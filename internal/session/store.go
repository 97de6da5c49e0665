package session

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/stages-admin/internal/models"
	appErrors "github.com/noah-isme/stages-admin/pkg/errors"
	"github.com/noah-isme/stages-admin/pkg/jobs"
)

const sweepJobType = "session_sweep"

// Store keeps server-side sessions. Load returns appErrors.ErrNotFound for
// unknown or expired ids.
type Store interface {
	Save(ctx context.Context, s *models.Session) error
	Load(ctx context.Context, id string) (*models.Session, error)
	Delete(ctx context.Context, id string) error
}

// DraftStore keeps in-progress form state per session. Drafts of a
// session are removed with DeleteDrafts on logout.
type DraftStore interface {
	SaveDraft(ctx context.Context, sessionID, name string, data []byte) error
	LoadDraft(ctx context.Context, sessionID, name string) ([]byte, error)
	DeleteDraft(ctx context.Context, sessionID, name string) error
	DeleteDrafts(ctx context.Context, sessionID string) error
}

type draftEntry struct {
	data      []byte
	expiresAt time.Time
}

// MemoryStore is the single-process Store and DraftStore.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*models.Session
	drafts   map[string]map[string]draftEntry
	draftTTL time.Duration
	now      func() time.Time

	sweeper *jobs.Queue
	logger  *zap.Logger
}

// NewMemoryStore returns an empty store. Drafts live for draftTTL.
func NewMemoryStore(draftTTL time.Duration) *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*models.Session),
		drafts:   make(map[string]map[string]draftEntry),
		draftTTL: draftTTL,
		now:      time.Now,
	}
}

func (m *MemoryStore) Save(_ context.Context, s *models.Session) error {
	clone := *s
	m.mu.Lock()
	m.sessions[s.ID] = &clone
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Load(_ context.Context, id string) (*models.Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok || s.Expired(m.now()) {
		return nil, appErrors.ErrNotFound
	}
	clone := *s
	return &clone, nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) SaveDraft(_ context.Context, sessionID, name string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.drafts[sessionID] == nil {
		m.drafts[sessionID] = make(map[string]draftEntry)
	}
	entry := draftEntry{data: append([]byte(nil), data...)}
	if m.draftTTL > 0 {
		entry.expiresAt = m.now().Add(m.draftTTL)
	}
	m.drafts[sessionID][name] = entry
	return nil
}

func (m *MemoryStore) LoadDraft(_ context.Context, sessionID, name string) ([]byte, error) {
	m.mu.RLock()
	entry, ok := m.drafts[sessionID][name]
	m.mu.RUnlock()
	if !ok || entry.expired(m.now()) {
		return nil, appErrors.ErrNotFound
	}
	return append([]byte(nil), entry.data...), nil
}

func (m *MemoryStore) DeleteDraft(_ context.Context, sessionID, name string) error {
	m.mu.Lock()
	delete(m.drafts[sessionID], name)
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) DeleteDrafts(_ context.Context, sessionID string) error {
	m.mu.Lock()
	delete(m.drafts, sessionID)
	m.mu.Unlock()
	return nil
}

func (e draftEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// Sweep drops expired sessions together with their drafts, and expired
// drafts of live sessions. It reports how many sessions and draft sets
// were removed.
func (m *MemoryStore) Sweep() (sessions, drafts int) {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, s := range m.sessions {
		if s.Expired(now) {
			delete(m.sessions, id)
			sessions++
			if _, ok := m.drafts[id]; ok {
				delete(m.drafts, id)
				drafts++
			}
		}
	}
	for id, set := range m.drafts {
		for name, entry := range set {
			if entry.expired(now) {
				delete(set, name)
			}
		}
		if len(set) == 0 {
			delete(m.drafts, id)
			drafts++
		}
	}
	return sessions, drafts
}

// StartSweep runs Sweep every interval until ctx ends or StopSweep is
// called.
func (m *MemoryStore) StartSweep(ctx context.Context, interval time.Duration, logger *zap.Logger) {
	if interval <= 0 {
		return
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	m.logger = logger
	m.sweeper = jobs.NewQueue("sessions", m.handleSweep, jobs.QueueConfig{Workers: 1, BufferSize: 1, Logger: logger})
	m.sweeper.Start(ctx)
	m.sweeper.Every(ctx, interval, sweepJobType)
}

// StopSweep stops the sweep worker.
func (m *MemoryStore) StopSweep() {
	if m.sweeper != nil {
		m.sweeper.Stop()
	}
}

func (m *MemoryStore) handleSweep(context.Context, jobs.Job) error {
	sessions, drafts := m.Sweep()
	if sessions > 0 || drafts > 0 {
		m.logger.Info("expired sessions removed", zap.Int("sessions", sessions), zap.Int("draft_sets", drafts))
	}
	return nil
}
