package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/noah-isme/stages-admin/internal/form"
	"github.com/noah-isme/stages-admin/internal/middleware"
	"github.com/noah-isme/stages-admin/internal/models"
	"github.com/noah-isme/stages-admin/internal/orgunit"
	"github.com/noah-isme/stages-admin/internal/service"
	"github.com/noah-isme/stages-admin/internal/session"
	"github.com/noah-isme/stages-admin/internal/table"
	"github.com/noah-isme/stages-admin/pkg/config"
	appErrors "github.com/noah-isme/stages-admin/pkg/errors"
	"github.com/noah-isme/stages-admin/pkg/export"
	"github.com/noah-isme/stages-admin/pkg/response"
)

const (
	stagesPath     = "/stages"
	stageFormPath  = "/stages/form"
	stageDraftName = "stage_form"
)

var (
	step1Fields = []string{"nom", "prenom", "email", "telephone", "ecole", "specialite", "niveau_etude", "existing_stagiaire"}
	step2Fields = []string{"theme", "type_stage", "date_debut", "date_fin", "direction", "division", "unite", "service", "decision", "stagiaire", "encadrant"}
)

type stageService interface {
	List(ctx context.Context, caller service.Caller, filter service.StageFilter) ([]models.Stage, error)
	Get(ctx context.Context, caller service.Caller, id int64) (*models.Stage, error)
	Delete(ctx context.Context, caller service.Caller, id int64) error
	FormOptions(ctx context.Context, caller service.Caller) (service.StageFormOptions, error)
	Submit(ctx context.Context, caller service.Caller, f *form.StageForm) (*models.Stage, error)
	GenerateAttestation(ctx context.Context, caller service.Caller, f *form.AttestationForm) (*models.Document, error)
}

// StageConfig carries the settings of the stage pages.
type StageConfig struct {
	PageSize       int
	Validator      *form.Validator
	AttachmentRule form.FileRule
	Attestation    config.AttestationConfig
}

// StageHandler serves the stage list, the two-step stage form and the
// completion certificate.
type StageHandler struct {
	stages  stageService
	exports exporter
	drafts  session.DraftStore
	cfg     StageConfig
	logger  *zap.Logger
	now     func() time.Time
}

// NewStageHandler constructs the handler.
func NewStageHandler(stages stageService, exports exporter, drafts session.DraftStore, cfg StageConfig, logger *zap.Logger) *StageHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StageHandler{stages: stages, exports: exports, drafts: drafts, cfg: cfg, logger: logger, now: time.Now}
}

// StageFilterPanel feeds the search box and the advanced filter dialog.
type StageFilterPanel struct {
	Filter      service.StageFilter
	Chips       []string
	DateLabel   string
	ActiveCount int
	Directions  []orgunit.Direction
	Divisions   []string
	Units       []string
	Services    []string
	Types       []string
	Statuts     []string
	Months      [12]string
	Years       []int
}

type stageListData struct {
	Table   TablePanel
	Filters StageFilterPanel
	CanEdit bool
}

func (h *StageHandler) filterPanel(f service.StageFilter) StageFilterPanel {
	year := h.now().Year()
	return StageFilterPanel{
		Filter:      f,
		Chips:       f.FieldLabels(),
		DateLabel:   f.DateLabel(),
		ActiveCount: f.ActiveCount(),
		Directions:  orgunit.Directions,
		Divisions:   orgunit.Divisions(f.Exact["direction"]),
		Units:       orgunit.Units,
		Services:    orgunit.Services(f.Exact["unite"]),
		Types:       []string{models.TypeAcademique, models.TypeProfessionnel},
		Statuts:     []string{models.StatutEnCours, models.StatutTermine, models.StatutValide},
		Months:      service.MonthNames,
		Years:       lo.RangeWithSteps(year+1, year-10, -1),
	}
}

func attestationAction() table.Action {
	validated := func(rec table.Record) bool { return asStage(rec).Statut == models.StatutValide }
	return table.Action{
		Name: "attestation",
		Icon: "file-badge",
		Title: table.Computed(func(rec table.Record) string {
			if validated(rec) {
				return "Générer attestation"
			}
			return "Stage non validé - Impossible de générer l'attestation"
		}),
		Class: table.Computed(func(rec table.Record) string {
			if validated(rec) {
				return "text-purple-600 hover:text-purple-800"
			}
			return "text-gray-400 cursor-not-allowed"
		}),
		MobileLabel: "Attestation",
		EnabledWhen: validated,
		Href:        func(rec table.Record) string { return stagesPath + "/" + rec.RecordID() + "/attestation" },
	}
}

func (h *StageHandler) table(c *gin.Context, filter service.StageFilter, run *exportRun) (*table.Table, error) {
	caller := middleware.Caller(c)
	stages, err := h.stages.List(c.Request.Context(), caller, filter)

	var t *table.Table
	cfg := table.Config{
		PageSize:     h.cfg.PageSize,
		EmptyMessage: "Aucun stage trouvé.",
		Err:          err,
		Actions:      []table.Action{attestationAction()},
		OnExport: run.handler(h.exports, caller, models.ResourceStage, filter.ExportTitle(),
			func(keys []string) export.Dataset { return t.Dataset(keys) }),
	}
	if currentUser(c).HasPermission(models.PermissionCanEdit) {
		cfg.EditURL = func(rec table.Record) string { return stagesPath + "/" + rec.RecordID() + "/edit" }
		cfg.OnDelete = func(ctx context.Context, rec table.Record) error {
			return h.stages.Delete(ctx, caller, asStage(rec).ID)
		}
	}
	t, err = table.New(StageColumns(), cfg)
	if err != nil {
		return nil, err
	}
	t.SetData(table.Records(stages))
	return t, nil
}

// List renders the filtered stage table.
func (h *StageHandler) List(c *gin.Context) {
	q := c.Request.URL.Query()
	filter := service.ParseStageFilter(q, h.now())
	t, err := h.table(c, filter, &exportRun{})
	if err != nil {
		renderError(c, err)
		return
	}
	t.Apply(table.ParseState(q))
	c.HTML(http.StatusOK, "stages", newPage(c, "Stages", "stages", stageListData{
		Table:   newPanel(t, stagesPath, filter.Values(), true),
		Filters: h.filterPanel(filter),
		CanEdit: currentUser(c).HasPermission(models.PermissionCanEdit),
	}))
}

// Delete confirms the removal of one stage.
func (h *StageHandler) Delete(c *gin.Context) {
	filter := service.ParseStageFilter(requestValues(c), h.now())
	t, err := h.table(c, filter, &exportRun{})
	if err != nil {
		renderError(c, err)
		return
	}
	confirmDelete(c, t, withQuery(stagesPath, filter.Values().Encode()), "Stage supprimé avec succès.")
}

// Export renders the selected columns of the filtered list.
func (h *StageHandler) Export(c *gin.Context) {
	values := requestValues(c)
	filter := service.ParseStageFilter(values, h.now())
	run := &exportRun{format: values.Get("format")}
	t, err := h.table(c, filter, run)
	if err != nil {
		renderError(c, err)
		return
	}
	confirmExport(c, t, run, withQuery(stagesPath, filter.Values().Encode()))
}

type stageFormData struct {
	Form       *form.StageForm
	Options    service.StageFormOptions
	Directions []orgunit.Direction
	Niveaux    []string
	Types      []string
	Rule       form.FileRule
	LoadError  string
}

// New opens an empty creation form.
func (h *StageHandler) New(c *gin.Context) {
	f := form.NewStageForm(h.cfg.Validator, h.cfg.AttachmentRule)
	if err := h.saveDraft(c, f); err != nil {
		renderError(c, err)
		return
	}
	c.Redirect(http.StatusSeeOther, stageFormPath)
}

// Edit opens the form on an existing stage.
func (h *StageHandler) Edit(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		renderError(c, err)
		return
	}
	stage, err := h.stages.Get(c.Request.Context(), middleware.Caller(c), id)
	if err != nil {
		renderError(c, err)
		return
	}
	f := form.EditStageForm(*stage, h.cfg.Validator, h.cfg.AttachmentRule)
	if err := h.saveDraft(c, f); err != nil {
		renderError(c, err)
		return
	}
	c.Redirect(http.StatusSeeOther, stageFormPath)
}

// Form shows the form in progress.
func (h *StageHandler) Form(c *gin.Context) {
	f, err := h.loadDraft(c)
	if err != nil {
		redirectWithFlash(c, stagesPath, flashError, "Aucun formulaire en cours.")
		return
	}
	h.renderForm(c, http.StatusOK, f)
}

func (h *StageHandler) renderForm(c *gin.Context, status int, f *form.StageForm) {
	data := stageFormData{
		Form:       f,
		Directions: orgunit.Directions,
		Niveaux:    models.NiveauxEtude,
		Types:      []string{models.TypeAcademique, models.TypeProfessionnel},
		Rule:       h.cfg.AttachmentRule,
	}
	opts, err := h.stages.FormOptions(c.Request.Context(), middleware.Caller(c))
	if err != nil {
		data.LoadError = userMessage(err)
	}
	data.Options = opts
	title := "Nouveau stage"
	if f.Editing() {
		title = "Modifier le stage"
	}
	c.HTML(status, "stage_form", newPage(c, title, "stages", data))
}

// Update applies one posted step of the form: field changes, a subject
// mode switch, navigation between steps, the final submission or a cancel.
func (h *StageHandler) Update(c *gin.Context) {
	values := requestValues(c)
	if values.Get("op") == "cancel" {
		h.dropDraft(c)
		c.Redirect(http.StatusSeeOther, stagesPath)
		return
	}
	f, err := h.loadDraft(c)
	if err != nil {
		redirectWithFlash(c, stagesPath, flashError, "Le formulaire a expiré, veuillez recommencer.")
		return
	}
	caller := middleware.Caller(c)

	if f.Step == form.StepSubject {
		h.applyFields(c, f, values, step1Fields)
	} else {
		h.applyFields(c, f, values, step2Fields)
		h.applyAttachment(c, f)
	}

	switch values.Get("op") {
	case "mode":
		_ = f.SetMode(values.Get("mode"))
	case "next":
		f.Next()
	case "previous":
		f.Previous()
	case "submit":
		editing := f.Editing()
		stage, err := h.stages.Submit(c.Request.Context(), caller, f)
		if err == nil {
			h.dropDraft(c)
			msg := "Stage créé avec succès."
			if editing {
				msg = "Stage modifié avec succès."
			}
			h.logger.Debug("stage saved", zap.Int64("stage_id", stage.ID), zap.Bool("editing", editing))
			redirectWithFlash(c, stagesPath, flashSuccess, msg)
			return
		}
	}

	if err := h.saveDraft(c, f); err != nil {
		renderError(c, err)
		return
	}
	c.Redirect(http.StatusSeeOther, stageFormPath)
}

// applyFields copies the posted inputs that changed. A new direction or
// unit resets its dependants, so their stale posted values are skipped.
func (h *StageHandler) applyFields(c *gin.Context, f *form.StageForm, values url.Values, fields []string) {
	skip := map[string]bool{}
	for _, field := range fields {
		if skip[field] || !values.Has(field) {
			continue
		}
		value := values.Get(field)
		if value == f.Value(field) {
			continue
		}
		switch field {
		case "direction":
			skip["division"], skip["unite"], skip["service"] = true, true, true
		case "unite":
			skip["service"] = true
		case "existing_stagiaire":
			if h.selectExisting(c, f, value) {
				continue
			}
		}
		if err := f.Set(field, value); err != nil {
			h.logger.Debug("stage form input ignored", zap.String("field", field), zap.Error(err))
		}
	}
}

func (h *StageHandler) selectExisting(c *gin.Context, f *form.StageForm, raw string) bool {
	opts, err := h.stages.FormOptions(c.Request.Context(), middleware.Caller(c))
	if err != nil {
		return false
	}
	found, ok := lo.Find(opts.Stagiaires, func(s models.Stagiaire) bool { return s.RecordID() == raw })
	if !ok {
		return false
	}
	f.SelectExisting(found)
	return true
}

func (h *StageHandler) applyAttachment(c *gin.Context, f *form.StageForm) {
	if c.PostForm("remove_attachment") == "1" {
		_ = f.Attach(nil)
		return
	}
	doc, err := uploadedDocument(c, form.AttachmentField)
	if err != nil || doc == nil {
		return
	}
	_ = f.Attach(doc)
}

// uploadedDocument reads one multipart file, or returns nil when none was
// sent.
func uploadedDocument(c *gin.Context, field string) (*models.Document, error) {
	header, err := c.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) || (err == nil && header.Size == 0 && header.Filename == "") {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	file, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		return nil, err
	}
	return &models.Document{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

func sessionID(c *gin.Context) (string, error) {
	sess, ok := middleware.CurrentSession(c)
	if !ok {
		return "", appErrors.ErrUnauthorized
	}
	return sess.ID, nil
}

func (h *StageHandler) saveDraft(c *gin.Context, f *form.StageForm) error {
	sid, err := sessionID(c)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(f)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, appErrors.ErrInternal.Message)
	}
	if err := h.drafts.SaveDraft(c.Request.Context(), sid, stageDraftName, raw); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "Impossible d'enregistrer le formulaire")
	}
	return nil
}

func (h *StageHandler) loadDraft(c *gin.Context) (*form.StageForm, error) {
	sid, err := sessionID(c)
	if err != nil {
		return nil, err
	}
	raw, err := h.drafts.LoadDraft(c.Request.Context(), sid, stageDraftName)
	if err != nil {
		return nil, err
	}
	var f form.StageForm
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "Formulaire illisible")
	}
	f.Bind(h.cfg.Validator, h.cfg.AttachmentRule)
	return &f, nil
}

func (h *StageHandler) dropDraft(c *gin.Context) {
	sid, err := sessionID(c)
	if err != nil {
		return
	}
	if err := h.drafts.DeleteDraft(c.Request.Context(), sid, stageDraftName); err != nil {
		h.logger.Warn("stage draft delete failed", zap.Error(err))
	}
}

type attestationData struct {
	Stage *models.Stage
	Form  *form.AttestationForm
}

func (h *StageHandler) validatedStage(c *gin.Context) (*models.Stage, bool) {
	id, err := parseID(c, "id")
	if err != nil {
		renderError(c, err)
		return nil, false
	}
	stage, err := h.stages.Get(c.Request.Context(), middleware.Caller(c), id)
	if err != nil {
		renderError(c, err)
		return nil, false
	}
	if stage.Statut != models.StatutValide {
		redirectWithFlash(c, stagesPath, flashError, "Stage non validé - Impossible de générer l'attestation")
		return nil, false
	}
	return stage, true
}

// AttestationForm asks for the signatory of a certificate.
func (h *StageHandler) AttestationForm(c *gin.Context) {
	stage, ok := h.validatedStage(c)
	if !ok {
		return
	}
	a := h.cfg.Attestation
	f := form.NewAttestationForm(stage.ID, a.DefaultSignatory, a.DefaultFunction, a.DefaultFormat)
	c.HTML(http.StatusOK, "attestation", newPage(c, "Générer une attestation", "stages", attestationData{Stage: stage, Form: f}))
}

// Attestation generates the certificate and sends it as a download.
func (h *StageHandler) Attestation(c *gin.Context) {
	stage, ok := h.validatedStage(c)
	if !ok {
		return
	}
	f := form.NewAttestationForm(stage.ID, "", "", "")
	_ = c.ShouldBind(&f.Values)
	doc, err := h.stages.GenerateAttestation(c.Request.Context(), middleware.Caller(c), f)
	if err != nil {
		c.HTML(formStatus(err), "attestation", newPage(c, "Générer une attestation", "stages", attestationData{Stage: stage, Form: f}))
		return
	}
	response.Attachment(c, doc.Filename, doc.ContentType, doc.Data)
}
