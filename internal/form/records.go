package form

import (
	"context"
	"strings"

	"github.com/samber/lo"

	"github.com/noah-isme/stages-admin/internal/models"
)

// StagiaireGateway saves subjects.
type StagiaireGateway interface {
	CreateStagiaire(ctx context.Context, payload models.StagiairePayload) (*models.Stagiaire, error)
	UpdateStagiaire(ctx context.Context, id int64, payload models.StagiairePayload) (*models.Stagiaire, error)
}

// StagiaireForm creates or edits one subject.
type StagiaireForm struct {
	Feedback
	EditID int64
	Values StagiaireValues
}

// StagiaireValues are the subject inputs.
type StagiaireValues struct {
	Nom         string `form:"nom" validate:"required"`
	Prenom      string `form:"prenom" validate:"required"`
	Ecole       string `form:"ecole"`
	Specialite  string `form:"specialite"`
	NiveauEtude string `form:"niveau_etude"`
	Email       string `form:"email" validate:"required,basic_email"`
	Telephone   string `form:"telephone"`
}

// NewStagiaireForm returns an empty creation form, or an edit form when s
// is non-nil.
func NewStagiaireForm(s *models.Stagiaire) *StagiaireForm {
	f := &StagiaireForm{Values: StagiaireValues{NiveauEtude: models.NiveauxEtude[0]}}
	if s != nil {
		f.EditID = s.ID
		f.Values = StagiaireValues{
			Nom: s.Nom, Prenom: s.Prenom, Ecole: s.Ecole, Specialite: s.Specialite,
			NiveauEtude: s.NiveauEtude, Email: s.Email, Telephone: s.Telephone,
		}
	}
	return f
}

// Submit validates and saves the subject.
func (f *StagiaireForm) Submit(ctx context.Context, v *Validator, gw StagiaireGateway) (*models.Stagiaire, error) {
	f.Values = StagiaireValues{
		Nom:         strings.TrimSpace(f.Values.Nom),
		Prenom:      strings.TrimSpace(f.Values.Prenom),
		Ecole:       strings.TrimSpace(f.Values.Ecole),
		Specialite:  strings.TrimSpace(f.Values.Specialite),
		NiveauEtude: f.Values.NiveauEtude,
		Email:       strings.TrimSpace(f.Values.Email),
		Telephone:   strings.TrimSpace(f.Values.Telephone),
	}
	if !f.check(v, f.Values) {
		return nil, ErrIncomplete
	}
	payload := models.StagiairePayload(f.Values)
	var (
		saved *models.Stagiaire
		err   error
	)
	if f.EditID != 0 {
		saved, err = gw.UpdateStagiaire(ctx, f.EditID, payload)
	} else {
		saved, err = gw.CreateStagiaire(ctx, payload)
	}
	if err != nil {
		f.ApplyAPIError(err)
		return nil, err
	}
	return saved, nil
}

// EncadrantGateway saves supervisors.
type EncadrantGateway interface {
	CreateEncadrant(ctx context.Context, payload models.EncadrantPayload) (*models.Encadrant, error)
	UpdateEncadrant(ctx context.Context, id int64, payload models.EncadrantPayload) (*models.Encadrant, error)
}

// EncadrantForm creates or edits one supervisor.
type EncadrantForm struct {
	Feedback
	EditID int64
	Values EncadrantValues
}

// EncadrantValues are the supervisor inputs.
type EncadrantValues struct {
	Nom            string `form:"nom" validate:"required"`
	Prenom         string `form:"prenom" validate:"required"`
	Email          string `form:"email" validate:"required,basic_email"`
	Telephone      string `form:"telephone"`
	Institution    string `form:"institution" validate:"required,oneof=Interne Externe"`
	NomInstitution string `form:"nom_institution" validate:"required_if=Institution Externe"`
}

// NewEncadrantForm returns a creation form for an internal supervisor, or
// an edit form when e is non-nil.
func NewEncadrantForm(e *models.Encadrant) *EncadrantForm {
	f := &EncadrantForm{Values: EncadrantValues{Institution: models.InstitutionInterne}}
	if e != nil {
		f.EditID = e.ID
		f.Values = EncadrantValues{
			Nom: e.Nom, Prenom: e.Prenom, Email: e.Email, Telephone: e.Telephone,
			Institution: e.Institution, NomInstitution: e.NomInstitution,
		}
	}
	return f
}

// SetInstitution switches the affiliation. Internal supervisors carry no
// institution name.
func (f *EncadrantForm) SetInstitution(institution string) {
	f.Values.Institution = institution
	if institution == models.InstitutionInterne {
		f.Values.NomInstitution = ""
	}
	f.touch("institution")
	f.touch("nom_institution")
}

// Submit validates and saves the supervisor.
func (f *EncadrantForm) Submit(ctx context.Context, v *Validator, gw EncadrantGateway) (*models.Encadrant, error) {
	vals := &f.Values
	vals.Nom, vals.Prenom = strings.TrimSpace(vals.Nom), strings.TrimSpace(vals.Prenom)
	vals.Email, vals.Telephone = strings.TrimSpace(vals.Email), strings.TrimSpace(vals.Telephone)
	vals.NomInstitution = strings.TrimSpace(vals.NomInstitution)
	if vals.Institution == models.InstitutionInterne {
		vals.NomInstitution = ""
	}
	if !f.check(v, *vals) {
		return nil, ErrIncomplete
	}
	payload := models.EncadrantPayload{
		Nom: vals.Nom, Prenom: vals.Prenom, Institution: vals.Institution,
		NomInstitution: optional(vals.NomInstitution), Email: vals.Email, Telephone: vals.Telephone,
	}
	var (
		saved *models.Encadrant
		err   error
	)
	if f.EditID != 0 {
		saved, err = gw.UpdateEncadrant(ctx, f.EditID, payload)
	} else {
		saved, err = gw.CreateEncadrant(ctx, payload)
	}
	if err != nil {
		f.ApplyAPIError(err)
		return nil, err
	}
	return saved, nil
}

// RapportGateway saves reports.
type RapportGateway interface {
	CreateRapport(ctx context.Context, stageID int64, file *models.Document) (*models.Rapport, error)
	UpdateRapport(ctx context.Context, id, stageID int64, file *models.Document) (*models.Rapport, error)
}

// RapportForm deposits a report file for a stage, or replaces one.
type RapportForm struct {
	Feedback
	EditID  int64
	StageID int64
	File    *models.Document
}

type rapportInput struct {
	Stage   int64 `form:"stage" validate:"required"`
	Editing bool  `form:"editing"`
	HasFile bool  `form:"fichier" validate:"required_if=Editing false"`
}

// NewRapportForm returns a deposit form, or an edit form when r is non-nil.
func NewRapportForm(r *models.Rapport) *RapportForm {
	f := &RapportForm{}
	if r != nil {
		f.EditID = r.ID
		f.StageID = r.StageID
		if f.StageID == 0 && r.Stage != nil {
			f.StageID = r.Stage.ID
		}
	}
	return f
}

// EligibleStages keeps the stages a report may be attached to.
func EligibleStages(stages []models.Stage) []models.Stage {
	return lo.Filter(stages, func(s models.Stage, _ int) bool {
		return s.Statut == models.StatutTermine || s.Statut == models.StatutValide
	})
}

// Submit validates the selection and the file against rule, then saves.
// The file is optional when editing.
func (f *RapportForm) Submit(ctx context.Context, v *Validator, rule FileRule, gw RapportGateway) (*models.Rapport, error) {
	ok := f.check(v, rapportInput{Stage: f.StageID, Editing: f.EditID != 0, HasFile: f.File != nil})
	if f.File != nil && !f.Errors.Has("fichier") {
		if err := rule.Check(f.File); err != nil {
			f.setField("fichier", errMessage(err))
			ok = false
		}
	}
	if !ok {
		return nil, ErrIncomplete
	}
	var (
		saved *models.Rapport
		err   error
	)
	if f.EditID != 0 {
		saved, err = gw.UpdateRapport(ctx, f.EditID, f.StageID, f.File)
	} else {
		saved, err = gw.CreateRapport(ctx, f.StageID, f.File)
	}
	if err != nil {
		f.ApplyAPIError(err)
		return nil, err
	}
	return saved, nil
}

// AttestationGateway requests certificates.
type AttestationGateway interface {
	GenerateAttestation(ctx context.Context, id int64, req models.AttestationRequest) (*models.Document, error)
}

// AttestationForm collects the signatory of a completion certificate.
type AttestationForm struct {
	Feedback
	StageID int64
	Values  AttestationValues
}

// AttestationValues are the certificate inputs.
type AttestationValues struct {
	Signataire         string `form:"signataire" validate:"required"`
	FonctionSignataire string `form:"fonction_signataire" validate:"required"`
	Format             string `form:"format" validate:"oneof=pdf docx"`
}

// NewAttestationForm pre-fills the signatory defaults.
func NewAttestationForm(stageID int64, signataire, fonction, format string) *AttestationForm {
	if format == "" {
		format = "docx"
	}
	return &AttestationForm{
		StageID: stageID,
		Values:  AttestationValues{Signataire: signataire, FonctionSignataire: fonction, Format: format},
	}
}

// Submit validates and asks the backend for the document.
func (f *AttestationForm) Submit(ctx context.Context, v *Validator, gw AttestationGateway) (*models.Document, error) {
	f.Values.Signataire = strings.TrimSpace(f.Values.Signataire)
	f.Values.FonctionSignataire = strings.TrimSpace(f.Values.FonctionSignataire)
	if !f.check(v, f.Values) {
		return nil, ErrIncomplete
	}
	doc, err := gw.GenerateAttestation(ctx, f.StageID, models.AttestationRequest(f.Values))
	if err != nil {
		f.ApplyAPIError(err)
		return nil, err
	}
	return doc, nil
}

// MatriculeGateway looks subjects up by registration number.
type MatriculeGateway interface {
	SearchByMatricule(ctx context.Context, matricule string) (*models.Stagiaire, error)
}

// MatriculeSearch is the quick lookup dialog.
type MatriculeSearch struct {
	Feedback
	Matricule string
	Result    *models.Stagiaire
}

// Run validates the input and performs the lookup. A miss is reported on
// the banner with the backend's message.
func (s *MatriculeSearch) Run(ctx context.Context, v *Validator, gw MatriculeGateway) (*models.Stagiaire, error) {
	s.Matricule = strings.TrimSpace(s.Matricule)
	s.Result = nil
	input := struct {
		Matricule string `form:"matricule" validate:"required"`
	}{s.Matricule}
	if !s.check(v, input) {
		return nil, ErrIncomplete
	}
	found, err := gw.SearchByMatricule(ctx, s.Matricule)
	if err != nil {
		s.ApplyAPIError(err)
		return nil, err
	}
	s.Result = found
	return found, nil
}

// check runs v on input and stores the result.
func (f *Feedback) check(v *Validator, input any) bool {
	if v == nil {
		v = NewValidator(nil)
	}
	f.FormError = ""
	f.Errors = v.Check(input)
	if f.Errors == nil {
		f.Errors = FieldErrors{}
	}
	return f.Valid()
}
