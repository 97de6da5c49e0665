package service

import (
	"context"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/noah-isme/stages-admin/internal/backend"
	"github.com/noah-isme/stages-admin/internal/form"
	"github.com/noah-isme/stages-admin/internal/models"
	appErrors "github.com/noah-isme/stages-admin/pkg/errors"
)

type rapportBackend interface {
	ListRapports(ctx context.Context, creds backend.Credentials, filter models.RapportFilter) ([]models.Rapport, error)
	ListStages(ctx context.Context, creds backend.Credentials, statut string) ([]models.Stage, error)
	DeleteRapport(ctx context.Context, creds backend.Credentials, id int64) error
	ValiderRapport(ctx context.Context, creds backend.Credentials, id int64) (*models.Rapport, error)
	ArchiverRapport(ctx context.Context, creds backend.Credentials, id int64) (*models.Rapport, error)
	DownloadRapport(ctx context.Context, creds backend.Credentials, id int64) (*models.Document, error)
}

// RapportService manages internship reports.
type RapportService struct {
	backend  rapportBackend
	gateways GatewayFactory
	validate *form.Validator
	rule     form.FileRule
	audit    *AuditService
	cache    *CacheService
	logger   *zap.Logger
}

// NewRapportService constructs the service. rule bounds uploaded report files.
func NewRapportService(b rapportBackend, gateways GatewayFactory, validate *form.Validator, rule form.FileRule, audit *AuditService, cache *CacheService, logger *zap.Logger) *RapportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = form.NewValidator(nil)
	}
	return &RapportService{backend: b, gateways: gateways, validate: validate, rule: rule, audit: audit, cache: cache, logger: logger}
}

// Rule is the upload rule applied to report files.
func (s *RapportService) Rule() form.FileRule { return s.rule }

// List forwards filter to the backend.
func (s *RapportService) List(ctx context.Context, caller Caller, filter models.RapportFilter) ([]models.Rapport, error) {
	return s.backend.ListRapports(ctx, caller.Credentials, filter)
}

// Get returns one report. The backend has no detail endpoint, so the
// unfiltered list is searched.
func (s *RapportService) Get(ctx context.Context, caller Caller, id int64) (*models.Rapport, error) {
	rapports, err := s.backend.ListRapports(ctx, caller.Credentials, models.RapportFilter{})
	if err != nil {
		return nil, err
	}
	r, ok := lo.Find(rapports, func(r models.Rapport) bool { return r.ID == id })
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "Rapport introuvable")
	}
	return &r, nil
}

// EligibleStages lists the finished or validated stages a report can be
// attached to.
func (s *RapportService) EligibleStages(ctx context.Context, caller Caller) ([]models.Stage, error) {
	stages, err := s.backend.ListStages(ctx, caller.Credentials, "")
	if err != nil {
		return nil, err
	}
	return form.EligibleStages(stages), nil
}

// Submit deposits or replaces a report.
func (s *RapportService) Submit(ctx context.Context, caller Caller, f *form.RapportForm) (*models.Rapport, error) {
	editing := f.EditID != 0
	saved, err := f.Submit(ctx, s.validate, s.rule, s.gateways(caller.Credentials))
	if err != nil {
		return nil, err
	}
	action := models.AuditActionCreate
	if editing {
		action = models.AuditActionUpdate
	}
	details := map[string]interface{}{"stage_id": f.StageID}
	if f.File != nil {
		details["filename"] = f.File.Filename
	}
	recordChange(ctx, s.audit, s.cache, caller, action, models.ResourceRapport, saved.ID, details)
	return saved, nil
}

// Delete removes a report.
func (s *RapportService) Delete(ctx context.Context, caller Caller, id int64) error {
	if err := s.backend.DeleteRapport(ctx, caller.Credentials, id); err != nil {
		return err
	}
	recordChange(ctx, s.audit, s.cache, caller, models.AuditActionDelete, models.ResourceRapport, id, nil)
	return nil
}

// Validate marks a pending report as validated.
func (s *RapportService) Validate(ctx context.Context, caller Caller, id int64) (*models.Rapport, error) {
	r, err := s.backend.ValiderRapport(ctx, caller.Credentials, id)
	if err != nil {
		return nil, err
	}
	recordChange(ctx, s.audit, s.cache, caller, models.AuditActionValidate, models.ResourceRapport, id, nil)
	return r, nil
}

// Archive archives a validated report.
func (s *RapportService) Archive(ctx context.Context, caller Caller, id int64) (*models.Rapport, error) {
	r, err := s.backend.ArchiverRapport(ctx, caller.Credentials, id)
	if err != nil {
		return nil, err
	}
	recordChange(ctx, s.audit, s.cache, caller, models.AuditActionArchive, models.ResourceRapport, id, nil)
	return r, nil
}

// Download fetches the report file.
func (s *RapportService) Download(ctx context.Context, caller Caller, id int64) (*models.Document, error) {
	doc, err := s.backend.DownloadRapport(ctx, caller.Credentials, id)
	if err != nil {
		return nil, err
	}
	if len(doc.Data) == 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "Fichier du rapport introuvable")
	}
	return doc, nil
}

// CanValidate reports whether the validate action applies to r.
func CanValidate(r models.Rapport) bool { return r.Etat == models.EtatEnAttente }

// CanArchive reports whether the archive action applies to r.
func CanArchive(r models.Rapport) bool { return r.Etat == models.EtatValide }
