package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/stages-admin/internal/models"
	appErrors "github.com/noah-isme/stages-admin/pkg/errors"
)

const (
	sessionKeyPrefix = "stages-admin:session:"
	draftKeyPrefix   = "stages-admin:draft:"
)

// SessionRepository keeps sessions and form drafts in redis so several
// instances can share them. Sessions expire with their own ExpiresAt.
type SessionRepository struct {
	client   *redis.Client
	draftTTL time.Duration
	now      func() time.Time
}

// NewSessionRepository constructs the repository.
func NewSessionRepository(client *redis.Client, draftTTL time.Duration) *SessionRepository {
	return &SessionRepository{client: client, draftTTL: draftTTL, now: time.Now}
}

func sessionKey(id string) string { return sessionKeyPrefix + id }

func draftKey(sessionID, name string) string { return draftKeyPrefix + sessionID + ":" + name }

// Save stores s until its expiry.
func (r *SessionRepository) Save(ctx context.Context, s *models.Session) error {
	payload, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal session %s: %w", s.ID, err)
	}
	var ttl time.Duration
	if !s.ExpiresAt.IsZero() {
		ttl = s.ExpiresAt.Sub(r.now())
		if ttl <= 0 {
			return r.Delete(ctx, s.ID)
		}
	}
	if err := r.client.Set(ctx, sessionKey(s.ID), payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis set session %s: %w", s.ID, err)
	}
	return nil
}

// Load returns the session or appErrors.ErrNotFound.
func (r *SessionRepository) Load(ctx context.Context, id string) (*models.Session, error) {
	raw, err := r.client.Get(ctx, sessionKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, appErrors.ErrNotFound
		}
		return nil, fmt.Errorf("redis get session %s: %w", id, err)
	}
	var s models.Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("unmarshal session %s: %w", id, err)
	}
	if s.Expired(r.now()) {
		return nil, appErrors.ErrNotFound
	}
	return &s, nil
}

func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, sessionKey(id)).Err(); err != nil {
		return fmt.Errorf("redis delete session %s: %w", id, err)
	}
	return nil
}

func (r *SessionRepository) SaveDraft(ctx context.Context, sessionID, name string, data []byte) error {
	if err := r.client.Set(ctx, draftKey(sessionID, name), data, r.draftTTL).Err(); err != nil {
		return fmt.Errorf("redis set draft %s: %w", name, err)
	}
	return nil
}

func (r *SessionRepository) LoadDraft(ctx context.Context, sessionID, name string) ([]byte, error) {
	raw, err := r.client.Get(ctx, draftKey(sessionID, name)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, appErrors.ErrNotFound
		}
		return nil, fmt.Errorf("redis get draft %s: %w", name, err)
	}
	return raw, nil
}

func (r *SessionRepository) DeleteDraft(ctx context.Context, sessionID, name string) error {
	if err := r.client.Del(ctx, draftKey(sessionID, name)).Err(); err != nil {
		return fmt.Errorf("redis delete draft %s: %w", name, err)
	}
	return nil
}

// DeleteDrafts removes every draft of sessionID.
func (r *SessionRepository) DeleteDrafts(ctx context.Context, sessionID string) error {
	iter := r.client.Scan(ctx, 0, draftKey(sessionID, "*"), 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis scan drafts %s: %w", sessionID, err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis delete drafts %s: %w", sessionID, err)
	}
	return nil
}
