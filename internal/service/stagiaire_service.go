package service

import (
	"context"
	"fmt"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/noah-isme/stages-admin/internal/backend"
	"github.com/noah-isme/stages-admin/internal/form"
	"github.com/noah-isme/stages-admin/internal/models"
	"github.com/noah-isme/stages-admin/internal/orgunit"
	"github.com/noah-isme/stages-admin/pkg/export"
)

type stagiaireBackend interface {
	ListStagiaires(ctx context.Context, creds backend.Credentials) ([]models.Stagiaire, error)
	GetStagiaire(ctx context.Context, creds backend.Credentials, id int64) (*models.Stagiaire, error)
	DeleteStagiaire(ctx context.Context, creds backend.Credentials, id int64) error
	StagiaireDossier(ctx context.Context, creds backend.Credentials, id int64) (*models.StagiaireDossier, error)
}

type documentRenderer interface {
	RenderDocument(doc export.Document) ([]byte, error)
}

// StagiaireService manages interns and their dossiers.
type StagiaireService struct {
	backend  stagiaireBackend
	gateways GatewayFactory
	validate *form.Validator
	pdf      documentRenderer
	audit    *AuditService
	cache    *CacheService
	logger   *zap.Logger
	now      func() time.Time
}

// NewStagiaireService constructs the service.
func NewStagiaireService(b stagiaireBackend, gateways GatewayFactory, validate *form.Validator, audit *AuditService, cache *CacheService, logger *zap.Logger) *StagiaireService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = form.NewValidator(nil)
	}
	return &StagiaireService{
		backend:  b,
		gateways: gateways,
		validate: validate,
		pdf:      export.NewPDFExporter(),
		audit:    audit,
		cache:    cache,
		logger:   logger,
		now:      time.Now,
	}
}

// List fetches every intern matching search.
func (s *StagiaireService) List(ctx context.Context, caller Caller, search string) ([]models.Stagiaire, error) {
	all, err := s.backend.ListStagiaires(ctx, caller.Credentials)
	if err != nil {
		return nil, err
	}
	return lo.Filter(all, func(st models.Stagiaire, _ int) bool { return st.Matches(search) }), nil
}

// Get fetches one intern.
func (s *StagiaireService) Get(ctx context.Context, caller Caller, id int64) (*models.Stagiaire, error) {
	return s.backend.GetStagiaire(ctx, caller.Credentials, id)
}

// Dossier fetches an intern with their stage history.
func (s *StagiaireService) Dossier(ctx context.Context, caller Caller, id int64) (*models.StagiaireDossier, error) {
	return s.backend.StagiaireDossier(ctx, caller.Credentials, id)
}

// Delete removes an intern.
func (s *StagiaireService) Delete(ctx context.Context, caller Caller, id int64) error {
	if err := s.backend.DeleteStagiaire(ctx, caller.Credentials, id); err != nil {
		return err
	}
	recordChange(ctx, s.audit, s.cache, caller, models.AuditActionDelete, models.ResourceStagiaire, id, nil)
	return nil
}

// Submit creates or updates the intern held by f.
func (s *StagiaireService) Submit(ctx context.Context, caller Caller, f *form.StagiaireForm) (*models.Stagiaire, error) {
	editing := f.EditID != 0
	saved, err := f.Submit(ctx, s.validate, s.gateways(caller.Credentials))
	if err != nil {
		return nil, err
	}
	action := models.AuditActionCreate
	if editing {
		action = models.AuditActionUpdate
	}
	recordChange(ctx, s.audit, s.cache, caller, action, models.ResourceStagiaire, saved.ID, nil)
	return saved, nil
}

// SearchMatricule runs the registration number lookup.
func (s *StagiaireService) SearchMatricule(ctx context.Context, caller Caller, search *form.MatriculeSearch) (*models.Stagiaire, error) {
	return search.Run(ctx, s.validate, s.gateways(caller.Credentials))
}

// DossierPDF renders the dossier of an intern. It returns the document and
// its file name, dossier_<matricule>_<date>.pdf.
func (s *StagiaireService) DossierPDF(ctx context.Context, caller Caller, id int64) ([]byte, string, error) {
	dossier, err := s.Dossier(ctx, caller, id)
	if err != nil {
		return nil, "", err
	}
	now := s.now()
	payload, err := s.pdf.RenderDocument(DossierDocument(*dossier, now))
	if err != nil {
		s.logger.Error("dossier rendering failed", zap.Int64("stagiaire_id", id), zap.Error(err))
		return nil, "", err
	}
	s.audit.Record(caller.Actor, models.AuditActionExport, models.ResourceStagiaire, fmt.Sprint(id), map[string]interface{}{"format": "pdf"})
	name := fmt.Sprintf("dossier_%s_%s.pdf", sanitizeFilename(dossier.Matricule), now.Format("2006-01-02"))
	return payload, name, nil
}

// DossierDocument lays out a dossier: personal details, then one block per
// stage separated by blank rows.
func DossierDocument(d models.StagiaireDossier, now time.Time) export.Document {
	info := export.Section{
		Heading: "INFORMATIONS PERSONNELLES",
		Rows: [][2]string{
			{"Nom & Prénom:", d.Nom + " " + d.Prenom},
			{"Matricule:", orDefault(d.Matricule, "Non attribué")},
			{"Email:", d.Email},
			{"Téléphone:", orDefault(d.Telephone, "Non renseigné")},
			{"École:", orDefault(d.Ecole, "Non renseignée")},
			{"Spécialité:", orDefault(d.Specialite, "Non renseignée")},
			{"Niveau d'étude:", orDefault(d.NiveauEtude, "Non renseigné")},
		},
	}

	history := export.Section{
		Heading:   fmt.Sprintf("HISTORIQUE DES STAGES (%d)", len(d.Stages)),
		Emphasis:  map[int]bool{},
		EmptyText: "Aucun stage enregistré pour ce stagiaire",
	}
	for i, st := range d.Stages {
		history.Emphasis[len(history.Rows)] = true
		history.Rows = append(history.Rows,
			[2]string{fmt.Sprintf("STAGE %d", i+1), ""},
			[2]string{"Thème", st.Theme},
			[2]string{"Période", st.DateDebut.French() + " - " + st.DateFin.French()},
			[2]string{"Type", st.TypeStage},
			[2]string{"Statut", st.Statut},
			[2]string{"Direction", orgunit.DirectionFullName(st.Direction)},
		)
		if orgunit.IsDistinguished(st.Direction) {
			history.Rows = append(history.Rows,
				[2]string{"Unité d'affectation", orDefault(st.Unite, "Non définie")},
				[2]string{"Service d'affectation", orDefault(st.Service, "Non défini")},
			)
		} else {
			history.Rows = append(history.Rows,
				[2]string{"Division d'affectation", orDefault(st.Division, "Non définie")},
				[2]string{"Unité/Service", "Non applicable"},
			)
		}
		history.Rows = append(history.Rows,
			[2]string{"Encadrant", orDefault(st.EncadrantNom, "Non assigné")},
			[2]string{"Rapport", RapportSummary(st.Rapport)},
		)
		if i < len(d.Stages)-1 {
			history.Rows = append(history.Rows, [2]string{"", ""})
		}
	}

	return export.Document{
		Title:    "DOSSIER STAGIAIRE",
		Subtitle: "Généré le " + now.Format("02/01/2006"),
		Sections: []export.Section{info, history},
	}
}

// RapportSummary is the report line of a dossier stage, e.g.
// "Validé (Déposé le 02/05/2025)".
func RapportSummary(r *models.DossierRapport) string {
	if r == nil {
		return "Non Déposé"
	}
	text := orDefault(r.Statut, "Non Déposé")
	if !r.DateDepot.IsZero() {
		text += " (Déposé le " + r.DateDepot.French() + ")"
	}
	return text
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
