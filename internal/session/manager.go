// Package session holds the explicit per-browser session: who is logged in,
// which backend cookies act on their behalf, and their form drafts.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/stages-admin/internal/backend"
	"github.com/noah-isme/stages-admin/internal/models"
	appErrors "github.com/noah-isme/stages-admin/pkg/errors"
)

// Authenticator is the backend's auth surface.
type Authenticator interface {
	Login(ctx context.Context, username, password string) (*models.User, backend.Credentials, error)
	Logout(ctx context.Context, creds backend.Credentials) error
	CurrentUser(ctx context.Context, creds backend.Credentials) (*models.User, error)
}

// Config tunes the manager.
type Config struct {
	TTL             time.Duration
	RevalidateAfter time.Duration
}

// Manager creates, resolves and ends sessions.
type Manager struct {
	store     Store
	drafts    DraftStore
	signer    *TokenSigner
	auth      Authenticator
	validator *validator.Validate
	cfg       Config
	logger    *zap.Logger
	now       func() time.Time
}

// NewManager wires a manager. drafts may be nil.
func NewManager(store Store, drafts DraftStore, signer *TokenSigner, auth Authenticator, cfg Config, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 12 * time.Hour
	}
	return &Manager{
		store:     store,
		drafts:    drafts,
		signer:    signer,
		auth:      auth,
		validator: validator.New(),
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
	}
}

// Login authenticates against the backend and opens a session. It returns
// the session and the signed cookie value.
func (m *Manager) Login(ctx context.Context, req models.LoginRequest) (*models.Session, string, error) {
	if err := m.validator.Struct(req); err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "Veuillez saisir vos identifiants.")
	}
	user, creds, err := m.auth.Login(ctx, req.Username, req.Password)
	if err != nil {
		return nil, "", err
	}
	now := m.now().UTC()
	sess := &models.Session{
		ID:             uuid.NewString(),
		BackendCookies: creds.Cookies,
		User:           *user,
		CreatedAt:      now,
		ValidatedAt:    now,
		ExpiresAt:      now.Add(m.cfg.TTL),
	}
	token, _, err := m.signer.Sign(sess.ID)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, appErrors.ErrInternal.Message)
	}
	if err := m.store.Save(ctx, sess); err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, appErrors.ErrInternal.Message)
	}
	m.logger.Info("session opened", zap.String("session_id", sess.ID), zap.String("username", user.Username), zap.String("role", string(user.Role)))
	return sess, token, nil
}

// Resolve returns the live session behind token. Sessions older than the
// revalidation window are checked against the backend; a session the
// backend no longer knows is ended. When the backend cannot be reached the
// stored session is kept.
func (m *Manager) Resolve(ctx context.Context, token string) (*models.Session, error) {
	if token == "" {
		return nil, appErrors.ErrUnauthorized
	}
	claims, err := m.signer.Parse(token)
	if err != nil {
		return nil, err
	}
	sess, err := m.store.Load(ctx, claims.SessionID)
	if err != nil {
		if errors.Is(err, appErrors.ErrNotFound) {
			return nil, appErrors.ErrUnauthorized
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, appErrors.ErrInternal.Message)
	}
	now := m.now().UTC()
	if sess.Expired(now) {
		m.end(ctx, sess.ID)
		return nil, appErrors.ErrUnauthorized
	}
	if m.cfg.RevalidateAfter <= 0 || now.Sub(sess.ValidatedAt) < m.cfg.RevalidateAfter {
		return sess, nil
	}

	user, err := m.auth.CurrentUser(ctx, Credentials(sess))
	switch {
	case err == nil:
		sess.User = *user
		sess.ValidatedAt = now
		if err := m.store.Save(ctx, sess); err != nil {
			m.logger.Warn("session revalidation not persisted", zap.String("session_id", sess.ID), zap.Error(err))
		}
		return sess, nil
	case errors.Is(err, appErrors.ErrUnauthorized) || errors.Is(err, appErrors.ErrForbidden):
		m.logger.Info("session rejected by backend", zap.String("session_id", sess.ID))
		m.end(ctx, sess.ID)
		return nil, appErrors.ErrUnauthorized
	default:
		m.logger.Warn("session revalidation skipped", zap.String("session_id", sess.ID), zap.Error(err))
		return sess, nil
	}
}

// Logout ends the session behind token. The backend logout is best effort.
func (m *Manager) Logout(ctx context.Context, token string) (*models.Session, error) {
	claims, err := m.signer.Parse(token)
	if err != nil {
		return nil, err
	}
	sess, err := m.store.Load(ctx, claims.SessionID)
	if err != nil {
		return nil, nil
	}
	if err := m.auth.Logout(ctx, Credentials(sess)); err != nil {
		m.logger.Warn("backend logout failed", zap.String("session_id", sess.ID), zap.Error(err))
	}
	m.end(ctx, sess.ID)
	m.logger.Info("session closed", zap.String("session_id", sess.ID), zap.String("username", sess.User.Username))
	return sess, nil
}

func (m *Manager) end(ctx context.Context, id string) {
	if err := m.store.Delete(ctx, id); err != nil {
		m.logger.Warn("session delete failed", zap.String("session_id", id), zap.Error(err))
	}
	if m.drafts != nil {
		if err := m.drafts.DeleteDrafts(ctx, id); err != nil {
			m.logger.Warn("draft cleanup failed", zap.String("session_id", id), zap.Error(err))
		}
	}
}

// Drafts exposes the draft store, possibly nil.
func (m *Manager) Drafts() DraftStore { return m.drafts }

// Credentials returns the backend cookies of s.
func Credentials(s *models.Session) backend.Credentials {
	if s == nil {
		return backend.Credentials{}
	}
	return backend.Credentials{Cookies: s.BackendCookies}
}

// HasPermission reports whether the session's user passes permission.
func HasPermission(s *models.Session, permission string) bool {
	if s == nil {
		return false
	}
	return s.User.HasPermission(permission)
}

type ctxKey struct{}

// WithSession returns a context carrying s.
func WithSession(ctx context.Context, s *models.Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// FromContext returns the session stored by WithSession.
func FromContext(ctx context.Context) (*models.Session, bool) {
	s, ok := ctx.Value(ctxKey{}).(*models.Session)
	return s, ok && s != nil
}
