package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/stages-admin/internal/models"
	appErrors "github.com/noah-isme/stages-admin/pkg/errors"
	"github.com/noah-isme/stages-admin/pkg/jobs"
)

const auditJobType = "audit"

type auditRepository interface {
	Create(ctx context.Context, log *models.AuditLog) error
	List(ctx context.Context, filter models.AuditFilter) ([]models.AuditLog, error)
}

// AuditConfig sizes the write queue.
type AuditConfig struct {
	Workers int
	Retries int
}

// AuditService records user actions. Every entry is logged; when a
// repository is configured entries are also written to postgres through a
// background queue so requests never wait on the database.
type AuditService struct {
	repo    auditRepository
	queue   *jobs.Queue
	metrics *MetricsService
	logger  *zap.Logger
}

// NewAuditService constructs the service. repo may be nil.
func NewAuditService(repo auditRepository, cfg AuditConfig, metrics *MetricsService, logger *zap.Logger) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &AuditService{repo: repo, metrics: metrics, logger: logger}
	if repo != nil {
		s.queue = jobs.NewQueue("audit", s.handle, jobs.QueueConfig{
			Workers:    cfg.Workers,
			MaxRetries: cfg.Retries,
			Logger:     logger,
		})
	}
	return s
}

// Start launches the writers.
func (s *AuditService) Start(ctx context.Context) {
	if s != nil && s.queue != nil {
		s.queue.Start(ctx)
	}
}

// Stop waits for the writers to exit.
func (s *AuditService) Stop() {
	if s != nil && s.queue != nil {
		s.queue.Stop()
	}
}

// Record logs one action. details is marshalled to JSON when not nil.
func (s *AuditService) Record(actor models.AuditActor, action, resource, resourceID string, details map[string]interface{}) {
	if s == nil {
		return
	}
	entry := models.AuditLog{
		Username:  actor.Username,
		Role:      actor.Role,
		Action:    action,
		Resource:  resource,
		IPAddress: actor.IPAddress,
		UserAgent: actor.UserAgent,
		RequestID: actor.RequestID,
	}
	if resourceID != "" {
		entry.ResourceID = &resourceID
	}
	if details != nil {
		if raw, err := json.Marshal(details); err == nil {
			entry.Details = raw
		}
	}

	s.logger.Info("audit",
		zap.String("username", entry.Username),
		zap.String("action", action),
		zap.String("resource", resource),
		zap.String("resource_id", resourceID),
		zap.String("request_id", entry.RequestID),
	)

	if s.queue == nil {
		return
	}
	if err := s.queue.TryEnqueue(jobs.Job{Type: auditJobType, Payload: entry}); err != nil {
		if errors.Is(err, jobs.ErrQueueFull) {
			s.metrics.RecordAuditDropped()
		}
		s.logger.Warn("audit entry not queued", zap.String("action", action), zap.Error(err))
	}
}

// Recent lists stored entries, newest first.
func (s *AuditService) Recent(ctx context.Context, filter models.AuditFilter) ([]models.AuditLog, error) {
	if s == nil || s.repo == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "Journal d'audit désactivé")
	}
	logs, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list audit logs")
	}
	return logs, nil
}

func (s *AuditService) handle(ctx context.Context, job jobs.Job) error {
	entry, ok := job.Payload.(models.AuditLog)
	if !ok {
		return fmt.Errorf("unexpected audit payload %T", job.Payload)
	}
	return s.repo.Create(ctx, &entry)
}
