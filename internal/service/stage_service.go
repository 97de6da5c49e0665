package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/stages-admin/internal/backend"
	"github.com/noah-isme/stages-admin/internal/form"
	"github.com/noah-isme/stages-admin/internal/models"
)

type stageBackend interface {
	ListStages(ctx context.Context, creds backend.Credentials, statut string) ([]models.Stage, error)
	GetStage(ctx context.Context, creds backend.Credentials, id int64) (*models.Stage, error)
	DeleteStage(ctx context.Context, creds backend.Credentials, id int64) error
	ListStagiaires(ctx context.Context, creds backend.Credentials) ([]models.Stagiaire, error)
	ListEncadrants(ctx context.Context, creds backend.Credentials) ([]models.Encadrant, error)
}

// StageFormOptions feeds the subject and supervisor pickers.
type StageFormOptions struct {
	Stagiaires []models.Stagiaire
	Encadrants []models.Encadrant
}

// StageService lists, filters and edits stages.
type StageService struct {
	backend  stageBackend
	gateways GatewayFactory
	validate *form.Validator
	audit    *AuditService
	cache    *CacheService
	logger   *zap.Logger
}

// NewStageService constructs the service.
func NewStageService(b stageBackend, gateways GatewayFactory, validate *form.Validator, audit *AuditService, cache *CacheService, logger *zap.Logger) *StageService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = form.NewValidator(nil)
	}
	return &StageService{backend: b, gateways: gateways, validate: validate, audit: audit, cache: cache, logger: logger}
}

// List fetches every stage and applies filter in memory.
func (s *StageService) List(ctx context.Context, caller Caller, filter StageFilter) ([]models.Stage, error) {
	stages, err := s.backend.ListStages(ctx, caller.Credentials, "")
	if err != nil {
		return nil, err
	}
	return filter.Apply(stages), nil
}

// Get fetches one stage.
func (s *StageService) Get(ctx context.Context, caller Caller, id int64) (*models.Stage, error) {
	return s.backend.GetStage(ctx, caller.Credentials, id)
}

// Delete removes a stage.
func (s *StageService) Delete(ctx context.Context, caller Caller, id int64) error {
	if err := s.backend.DeleteStage(ctx, caller.Credentials, id); err != nil {
		return err
	}
	recordChange(ctx, s.audit, s.cache, caller, models.AuditActionDelete, models.ResourceStage, id, nil)
	return nil
}

// FormOptions loads the pickers of the stage form.
func (s *StageService) FormOptions(ctx context.Context, caller Caller) (StageFormOptions, error) {
	stagiaires, err := s.backend.ListStagiaires(ctx, caller.Credentials)
	if err != nil {
		return StageFormOptions{}, err
	}
	encadrants, err := s.backend.ListEncadrants(ctx, caller.Credentials)
	if err != nil {
		return StageFormOptions{}, err
	}
	return StageFormOptions{Stagiaires: stagiaires, Encadrants: encadrants}, nil
}

// Submit saves f through the caller's gateway. A subject created before a
// failed stage creation stays on the form and is reused by the next
// attempt; it is logged so it can be traced if the user gives up.
func (s *StageService) Submit(ctx context.Context, caller Caller, f *form.StageForm) (*models.Stage, error) {
	editing := f.Editing()
	stage, err := f.Submit(ctx, s.gateways(caller.Credentials))
	if err != nil {
		if orphan := f.Orphan(); orphan != 0 {
			s.logger.Warn("stage creation failed after subject creation",
				zap.Int64("stagiaire_id", orphan),
				zap.String("username", caller.Actor.Username),
				zap.Error(err),
			)
		}
		return nil, err
	}
	action := models.AuditActionCreate
	if editing {
		action = models.AuditActionUpdate
	}
	recordChange(ctx, s.audit, s.cache, caller, action, models.ResourceStage, stage.ID, map[string]interface{}{
		"stagiaire_id": stage.StagiaireID,
		"direction":    stage.Direction,
	})
	return stage, nil
}

// GenerateAttestation requests the completion certificate of f's stage and
// names the document after the intern.
func (s *StageService) GenerateAttestation(ctx context.Context, caller Caller, f *form.AttestationForm) (*models.Document, error) {
	stage, err := s.backend.GetStage(ctx, caller.Credentials, f.StageID)
	if err != nil {
		f.ApplyAPIError(err)
		return nil, err
	}
	doc, err := f.Submit(ctx, s.validate, s.gateways(caller.Credentials))
	if err != nil {
		return nil, err
	}
	doc.Filename = AttestationFilename(*stage, f.Values.Format)
	s.audit.Record(caller.Actor, models.AuditActionGenerate, models.ResourceAttestation, fmt.Sprint(stage.ID), map[string]interface{}{
		"format":     f.Values.Format,
		"signataire": f.Values.Signataire,
	})
	return doc, nil
}

// AttestationFilename is attestation_stage_<nom>_<prenom>.<pdf|docx>.
func AttestationFilename(stage models.Stage, format string) string {
	ext := "pdf"
	if format == "docx" {
		ext = "docx"
	}
	nom, prenom := "", ""
	if stage.Stagiaire != nil {
		nom, prenom = stage.Stagiaire.Nom, stage.Stagiaire.Prenom
	}
	return sanitizeFilename(fmt.Sprintf("attestation_stage_%s_%s", nom, prenom)) + "." + ext
}

const maxFilenameRunes = 100

func sanitizeFilename(raw string) string {
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".")
	result := replacer.Replace(strings.TrimSpace(raw))
	if runes := []rune(result); len(runes) > maxFilenameRunes {
		return string(runes[:maxFilenameRunes])
	}
	return result
}
