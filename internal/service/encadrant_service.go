package service

import (
	"context"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/noah-isme/stages-admin/internal/backend"
	"github.com/noah-isme/stages-admin/internal/form"
	"github.com/noah-isme/stages-admin/internal/models"
)

type encadrantBackend interface {
	ListEncadrants(ctx context.Context, creds backend.Credentials) ([]models.Encadrant, error)
	GetEncadrant(ctx context.Context, creds backend.Credentials, id int64) (*models.Encadrant, error)
	DeleteEncadrant(ctx context.Context, creds backend.Credentials, id int64) error
}

// EncadrantService manages supervisors.
type EncadrantService struct {
	backend  encadrantBackend
	gateways GatewayFactory
	validate *form.Validator
	audit    *AuditService
	cache    *CacheService
	logger   *zap.Logger
}

// NewEncadrantService constructs the service.
func NewEncadrantService(b encadrantBackend, gateways GatewayFactory, validate *form.Validator, audit *AuditService, cache *CacheService, logger *zap.Logger) *EncadrantService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = form.NewValidator(nil)
	}
	return &EncadrantService{backend: b, gateways: gateways, validate: validate, audit: audit, cache: cache, logger: logger}
}

// List fetches every supervisor matching search.
func (s *EncadrantService) List(ctx context.Context, caller Caller, search string) ([]models.Encadrant, error) {
	all, err := s.backend.ListEncadrants(ctx, caller.Credentials)
	if err != nil {
		return nil, err
	}
	return lo.Filter(all, func(e models.Encadrant, _ int) bool { return e.Matches(search) }), nil
}

// Get fetches one supervisor.
func (s *EncadrantService) Get(ctx context.Context, caller Caller, id int64) (*models.Encadrant, error) {
	return s.backend.GetEncadrant(ctx, caller.Credentials, id)
}

// Delete removes a supervisor.
func (s *EncadrantService) Delete(ctx context.Context, caller Caller, id int64) error {
	if err := s.backend.DeleteEncadrant(ctx, caller.Credentials, id); err != nil {
		return err
	}
	recordChange(ctx, s.audit, s.cache, caller, models.AuditActionDelete, models.ResourceEncadrant, id, nil)
	return nil
}

// Submit creates or updates the supervisor held by f.
func (s *EncadrantService) Submit(ctx context.Context, caller Caller, f *form.EncadrantForm) (*models.Encadrant, error) {
	editing := f.EditID != 0
	saved, err := f.Submit(ctx, s.validate, s.gateways(caller.Credentials))
	if err != nil {
		return nil, err
	}
	action := models.AuditActionCreate
	if editing {
		action = models.AuditActionUpdate
	}
	recordChange(ctx, s.audit, s.cache, caller, action, models.ResourceEncadrant, saved.ID, map[string]interface{}{
		"institution": saved.Institution,
	})
	return saved, nil
}
