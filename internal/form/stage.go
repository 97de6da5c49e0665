package form

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/noah-isme/stages-admin/internal/models"
	"github.com/noah-isme/stages-admin/internal/orgunit"
	appErrors "github.com/noah-isme/stages-admin/pkg/errors"
)

// Steps of the stage form.
const (
	StepSubject = 1
	StepDetails = 2
)

// Subject modes of step one.
const (
	ModeNew      = "new"
	ModeExisting = "existing"
)

// Decision numbers always start with DecisionPrefix; anything else resets
// the input to DefaultDecision.
const (
	DecisionPrefix  = "N°"
	DefaultDecision = "N° ME/F/INS/DG/DRH/DGCFC"
)

// AttachmentField is the multipart name of the acceptance letter.
const AttachmentField = "lettre_acceptation"

// ErrIncomplete is returned when a step does not validate.
var ErrIncomplete = appErrors.Clone(appErrors.ErrValidation, "Veuillez corriger les erreurs du formulaire.")

// StageGateway is the part of the backend the stage form submits to.
type StageGateway interface {
	CreateStagiaire(ctx context.Context, payload models.StagiairePayload) (*models.Stagiaire, error)
	GetStagiaire(ctx context.Context, id int64) (*models.Stagiaire, error)
	UpdateStagiaire(ctx context.Context, id int64, payload models.StagiairePayload) (*models.Stagiaire, error)
	CreateStage(ctx context.Context, payload models.StagePayload, letter *models.Document) (*models.Stage, error)
	UpdateStage(ctx context.Context, id int64, payload models.StagePayload) (*models.Stage, error)
}

// StageValues are the inputs of both steps.
type StageValues struct {
	Nom               string `json:"nom"`
	Prenom            string `json:"prenom"`
	Email             string `json:"email"`
	Telephone         string `json:"telephone"`
	Ecole             string `json:"ecole"`
	Specialite        string `json:"specialite"`
	NiveauEtude       string `json:"niveau_etude"`
	ExistingStagiaire int64  `json:"existing_stagiaire"`

	Theme     string `json:"theme"`
	TypeStage string `json:"type_stage"`
	DateDebut string `json:"date_debut"`
	DateFin   string `json:"date_fin"`
	Direction string `json:"direction"`
	Division  string `json:"division"`
	Unite     string `json:"unite"`
	Service   string `json:"service"`
	Decision  string `json:"decision"`
	Stagiaire int64  `json:"stagiaire"`
	Encadrant int64  `json:"encadrant"`
}

// StageForm drives the two-step creation and the single-step edit of a
// stage. It is plain data so it can be kept in a draft store between
// requests; call Bind after decoding one.
type StageForm struct {
	Feedback
	Step           int              `json:"step"`
	Mode           string           `json:"mode"`
	EditID         int64            `json:"edit_id,omitempty"`
	Values         StageValues      `json:"values"`
	Attachment     *models.Document `json:"attachment,omitempty"`
	AttachmentName string           `json:"attachment_name,omitempty"`
	// CreatedStagiaireID is the subject created by a submission whose stage
	// creation then failed. A retry reuses it instead of creating another.
	CreatedStagiaireID int64 `json:"created_stagiaire_id,omitempty"`

	validator *Validator
	rule      FileRule
}

// NewStageForm starts a creation at step one for a new subject.
func NewStageForm(v *Validator, rule FileRule) *StageForm {
	f := &StageForm{
		Step: StepSubject,
		Mode: ModeNew,
		Values: StageValues{
			NiveauEtude: models.NiveauxEtude[0],
			TypeStage:   models.TypeAcademique,
			Decision:    DefaultDecision,
		},
	}
	f.Bind(v, rule)
	return f
}

// EditStageForm opens stage for edition. It starts at step two and has no
// way back to step one.
func EditStageForm(stage models.Stage, v *Validator, rule FileRule) *StageForm {
	f := &StageForm{
		Step:   StepDetails,
		Mode:   ModeExisting,
		EditID: stage.ID,
		Values: StageValues{
			Theme:     stage.Theme,
			TypeStage: stage.TypeStage,
			DateDebut: stage.DateDebut.String(),
			DateFin:   stage.DateFin.String(),
			Direction: stage.Direction,
			Division:  stage.Division,
			Unite:     stage.Unite,
			Service:   stage.Service,
			Decision:  stage.Decision,
			Stagiaire: stage.StagiaireID,
		},
	}
	if f.Values.Stagiaire == 0 && stage.Stagiaire != nil {
		f.Values.Stagiaire = stage.Stagiaire.ID
	}
	if stage.EncadrantID != nil {
		f.Values.Encadrant = *stage.EncadrantID
	} else if stage.Encadrant != nil {
		f.Values.Encadrant = stage.Encadrant.ID
	}
	if f.Values.TypeStage == "" {
		f.Values.TypeStage = models.TypeAcademique
	}
	if !strings.HasPrefix(f.Values.Decision, DecisionPrefix) {
		f.Values.Decision = DefaultDecision
	}
	f.Bind(v, rule)
	return f
}

// Bind attaches the validator and the upload rule.
func (f *StageForm) Bind(v *Validator, rule FileRule) {
	if v == nil {
		v = NewValidator(nil)
	}
	f.validator = v
	f.rule = rule
	if f.Errors == nil {
		f.Errors = FieldErrors{}
	}
}

// Editing reports whether the form updates an existing stage.
func (f *StageForm) Editing() bool { return f.EditID != 0 }

// SetMode switches between a new and an existing subject. Switching drops
// the inputs of the other branch and every error.
func (f *StageForm) SetMode(mode string) error {
	switch mode {
	case ModeNew:
		f.Values.ExistingStagiaire = 0
	case ModeExisting:
		f.Values.Nom, f.Values.Prenom, f.Values.Email, f.Values.Telephone = "", "", "", ""
	default:
		return fmt.Errorf("unknown subject mode %q", mode)
	}
	f.Mode = mode
	f.Reset()
	return nil
}

// SelectExisting picks an existing subject and copies its academic fields
// so they can be corrected before submission.
func (f *StageForm) SelectExisting(s models.Stagiaire) {
	f.Values.ExistingStagiaire = s.ID
	f.Values.Ecole = s.Ecole
	f.Values.Specialite = s.Specialite
	if s.NiveauEtude != "" {
		f.Values.NiveauEtude = s.NiveauEtude
	}
	f.touch("existing_stagiaire")
}

// Set assigns one input by its form name, clearing that input's error and
// the banner. Changing the direction or the unit clears the dependent
// inputs that may no longer be valid.
func (f *StageForm) Set(field, value string) error {
	v := &f.Values
	switch field {
	case "nom":
		v.Nom = value
	case "prenom":
		v.Prenom = value
	case "email":
		v.Email = value
	case "telephone":
		v.Telephone = value
	case "ecole":
		v.Ecole = value
	case "specialite":
		v.Specialite = value
	case "niveau_etude":
		v.NiveauEtude = value
	case "theme":
		v.Theme = value
	case "type_stage":
		v.TypeStage = value
	case "date_debut":
		v.DateDebut = value
	case "date_fin":
		v.DateFin = value
	case "direction":
		f.setDirection(value)
	case "division":
		v.Division = value
	case "unite":
		if value != v.Unite {
			v.Unite = value
			v.Service = ""
		}
	case "service":
		v.Service = value
	case "decision":
		if !strings.HasPrefix(value, DecisionPrefix) {
			value = DefaultDecision
		}
		v.Decision = value
	case "existing_stagiaire", "stagiaire", "encadrant":
		id, err := parseID(value)
		if err != nil {
			return fmt.Errorf("%s: %w", field, err)
		}
		switch field {
		case "existing_stagiaire":
			v.ExistingStagiaire = id
		case "stagiaire":
			v.Stagiaire = id
		default:
			v.Encadrant = id
		}
	default:
		return fmt.Errorf("unknown stage form field %q", field)
	}
	f.touch(field)
	return nil
}

// Value returns one input by its form name, as Set accepts it.
func (f *StageForm) Value(field string) string {
	v := f.Values
	switch field {
	case "nom":
		return v.Nom
	case "prenom":
		return v.Prenom
	case "email":
		return v.Email
	case "telephone":
		return v.Telephone
	case "ecole":
		return v.Ecole
	case "specialite":
		return v.Specialite
	case "niveau_etude":
		return v.NiveauEtude
	case "theme":
		return v.Theme
	case "type_stage":
		return v.TypeStage
	case "date_debut":
		return v.DateDebut
	case "date_fin":
		return v.DateFin
	case "direction":
		return v.Direction
	case "division":
		return v.Division
	case "unite":
		return v.Unite
	case "service":
		return v.Service
	case "decision":
		return v.Decision
	case "existing_stagiaire":
		return formatID(v.ExistingStagiaire)
	case "stagiaire":
		return formatID(v.Stagiaire)
	case "encadrant":
		return formatID(v.Encadrant)
	default:
		return ""
	}
}

func formatID(id int64) string {
	if id == 0 {
		return ""
	}
	return strconv.FormatInt(id, 10)
}

func (f *StageForm) setDirection(code string) {
	v := &f.Values
	if code == v.Direction {
		return
	}
	v.Direction = code
	if orgunit.IsDistinguished(code) {
		v.Division = ""
		return
	}
	v.Unite, v.Service = "", ""
	if !orgunit.ValidDivision(code, v.Division) {
		v.Division = ""
	}
}

// ShowsUnit reports whether the unit and service selectors replace the
// division selector.
func (f *StageForm) ShowsUnit() bool { return orgunit.IsDistinguished(f.Values.Direction) }

// DivisionOptions lists the divisions of the selected direction.
func (f *StageForm) DivisionOptions() []string {
	if f.Values.Direction == "" || f.ShowsUnit() {
		return nil
	}
	return orgunit.Divisions(f.Values.Direction)
}

// UnitOptions lists the units when the distinguished direction is selected.
func (f *StageForm) UnitOptions() []string {
	if !f.ShowsUnit() {
		return nil
	}
	return append([]string(nil), orgunit.Units...)
}

// ServiceOptions lists the sections of the selected unit.
func (f *StageForm) ServiceOptions() []string {
	if !f.ShowsUnit() || f.Values.Unite == "" {
		return nil
	}
	return orgunit.Services(f.Values.Unite)
}

// Attach sets the acceptance letter. A rejected file keeps its name for
// display, records the field error and is not retained. A nil doc removes
// the attachment.
func (f *StageForm) Attach(doc *models.Document) error {
	if doc == nil {
		f.Attachment = nil
		f.AttachmentName = ""
		f.touch(AttachmentField)
		return nil
	}
	f.AttachmentName = doc.Filename
	if err := f.rule.Check(doc); err != nil {
		f.Attachment = nil
		f.setField(AttachmentField, errMessage(err))
		f.FormError = ""
		return err
	}
	f.Attachment = doc
	f.touch(AttachmentField)
	return nil
}

type newSubjectInput struct {
	Nom    string `form:"nom" validate:"required"`
	Prenom string `form:"prenom" validate:"required"`
	Email  string `form:"email" validate:"required,basic_email"`
}

type existingSubjectInput struct {
	ExistingStagiaire int64 `form:"existing_stagiaire" validate:"required"`
}

// ValidateStep1 checks the subject branch of the current mode.
func (f *StageForm) ValidateStep1() bool {
	var input any = existingSubjectInput{ExistingStagiaire: f.Values.ExistingStagiaire}
	if f.Mode == ModeNew {
		input = newSubjectInput{
			Nom:    strings.TrimSpace(f.Values.Nom),
			Prenom: strings.TrimSpace(f.Values.Prenom),
			Email:  strings.TrimSpace(f.Values.Email),
		}
	}
	return f.check(f.validator, input)
}

type stageInput struct {
	Theme     string    `form:"theme" validate:"required"`
	DateDebut string    `form:"date_debut" validate:"required"`
	DateFin   string    `form:"date_fin" validate:"required"`
	Start     time.Time `form:"date_debut"`
	End       time.Time `form:"date_fin" validate:"omitempty,gtfield=Start"`
	Direction string    `form:"direction" validate:"required,direction"`
	Unite     string    `form:"unite" validate:"required_if=Direction BCR"`
	Editing   bool      `form:"editing"`
	Stagiaire int64     `form:"stagiaire" validate:"required_if=Editing true"`
}

// ValidateStep2 checks the stage details. An attachment error recorded by
// Attach is kept so a rejected file keeps blocking submission.
func (f *StageForm) ValidateStep2() bool {
	attachmentErr := f.Errors.Get(AttachmentField)
	v := f.Values
	input := stageInput{
		Theme:     strings.TrimSpace(v.Theme),
		DateDebut: strings.TrimSpace(v.DateDebut),
		DateFin:   strings.TrimSpace(v.DateFin),
		Direction: v.Direction,
		Unite:     v.Unite,
		Editing:   f.Editing(),
		Stagiaire: v.Stagiaire,
	}
	startErr, endErr := parseInto(input.DateDebut, &input.Start), parseInto(input.DateFin, &input.End)
	errs := f.validator.Check(input)
	if errs == nil {
		errs = FieldErrors{}
	}
	if startErr != nil && !errs.Has("date_debut") {
		errs["date_debut"] = "Date invalide"
	}
	if endErr != nil && !errs.Has("date_fin") {
		errs["date_fin"] = "Date invalide"
	}
	if v.Division != "" && !orgunit.ValidDivision(v.Direction, v.Division) && !errs.Has("division") {
		errs["division"] = "Division invalide pour cette direction"
	}
	if f.Attachment != nil {
		if err := f.rule.Check(f.Attachment); err != nil {
			attachmentErr = errMessage(err)
		}
	}
	if attachmentErr != "" {
		errs[AttachmentField] = attachmentErr
	}
	f.Errors = errs
	return f.Valid()
}

func parseInto(raw string, dst *time.Time) error {
	d, err := models.ParseDate(raw)
	if err != nil {
		return err
	}
	*dst = d.Time
	return nil
}

// Next validates step one and moves to step two.
func (f *StageForm) Next() bool {
	if f.Step != StepSubject {
		return f.Step == StepDetails
	}
	if !f.ValidateStep1() {
		return false
	}
	f.Step = StepDetails
	f.FormError = ""
	return true
}

// Previous returns to step one, keeping the values and dropping the
// errors. It is refused while editing.
func (f *StageForm) Previous() bool {
	if f.Editing() {
		return false
	}
	f.Step = StepSubject
	f.Reset()
	return true
}

// Submit validates step two and saves through gw. Edits send one JSON
// update. Creations first create or update the subject, then send the
// multipart stage creation. Any failure is recorded on the form and
// returned; the form stays open.
func (f *StageForm) Submit(ctx context.Context, gw StageGateway) (*models.Stage, error) {
	if f.Step != StepDetails || !f.ValidateStep2() {
		return nil, ErrIncomplete
	}
	f.FormError = ""

	if f.Editing() {
		stage, err := gw.UpdateStage(ctx, f.EditID, f.payload(f.Values.Stagiaire))
		if err != nil {
			f.ApplyAPIError(err)
			return nil, err
		}
		return stage, nil
	}

	subjectID, err := f.resolveSubject(ctx, gw)
	if err != nil {
		f.ApplyAPIError(err)
		return nil, err
	}
	stage, err := gw.CreateStage(ctx, f.payload(subjectID), f.Attachment)
	if err != nil {
		f.ApplyAPIError(err)
		return nil, err
	}
	f.CreatedStagiaireID = 0
	return stage, nil
}

// Orphan returns the subject created by a failed submission, or 0.
func (f *StageForm) Orphan() int64 { return f.CreatedStagiaireID }

func (f *StageForm) resolveSubject(ctx context.Context, gw StageGateway) (int64, error) {
	v := f.Values
	if f.Mode == ModeExisting {
		current, err := gw.GetStagiaire(ctx, v.ExistingStagiaire)
		if err != nil {
			return 0, err
		}
		merged := current.Payload()
		merged.Ecole, merged.Specialite, merged.NiveauEtude = v.Ecole, v.Specialite, v.NiveauEtude
		if _, err := gw.UpdateStagiaire(ctx, current.ID, merged); err != nil {
			return 0, err
		}
		return current.ID, nil
	}

	payload := models.StagiairePayload{
		Nom:         strings.TrimSpace(v.Nom),
		Prenom:      strings.TrimSpace(v.Prenom),
		Ecole:       v.Ecole,
		Specialite:  v.Specialite,
		NiveauEtude: v.NiveauEtude,
		Email:       strings.TrimSpace(v.Email),
		Telephone:   v.Telephone,
	}
	if f.CreatedStagiaireID != 0 {
		_, err := gw.UpdateStagiaire(ctx, f.CreatedStagiaireID, payload)
		if err == nil {
			return f.CreatedStagiaireID, nil
		}
		if !errors.Is(err, appErrors.ErrNotFound) {
			return 0, err
		}
		f.CreatedStagiaireID = 0
	}
	created, err := gw.CreateStagiaire(ctx, payload)
	if err != nil {
		return 0, err
	}
	f.CreatedStagiaireID = created.ID
	return created.ID, nil
}

func (f *StageForm) payload(subjectID int64) models.StagePayload {
	v := f.Values
	p := models.StagePayload{
		Theme:     strings.TrimSpace(v.Theme),
		TypeStage: v.TypeStage,
		DateDebut: strings.TrimSpace(v.DateDebut),
		DateFin:   strings.TrimSpace(v.DateFin),
		Direction: v.Direction,
		Division:  optional(v.Division),
		Unite:     optional(v.Unite),
		Service:   optional(v.Service),
		Decision:  v.Decision,
		Stagiaire: subjectID,
	}
	if v.Encadrant != 0 {
		enc := v.Encadrant
		p.Encadrant = &enc
	}
	return p
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func parseID(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	return strconv.ParseInt(raw, 10, 64)
}
