package handler

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/noah-isme/stages-admin/internal/form"
	"github.com/noah-isme/stages-admin/internal/middleware"
	"github.com/noah-isme/stages-admin/internal/models"
	"github.com/noah-isme/stages-admin/internal/service"
	"github.com/noah-isme/stages-admin/internal/table"
	"github.com/noah-isme/stages-admin/pkg/export"
	"github.com/noah-isme/stages-admin/pkg/response"
)

const (
	rapportsPath   = "/rapports"
	rapportFileKey = "fichier"
)

type rapportService interface {
	Rule() form.FileRule
	List(ctx context.Context, caller service.Caller, filter models.RapportFilter) ([]models.Rapport, error)
	Get(ctx context.Context, caller service.Caller, id int64) (*models.Rapport, error)
	EligibleStages(ctx context.Context, caller service.Caller) ([]models.Stage, error)
	Submit(ctx context.Context, caller service.Caller, f *form.RapportForm) (*models.Rapport, error)
	Delete(ctx context.Context, caller service.Caller, id int64) error
	Validate(ctx context.Context, caller service.Caller, id int64) (*models.Rapport, error)
	Archive(ctx context.Context, caller service.Caller, id int64) (*models.Rapport, error)
	Download(ctx context.Context, caller service.Caller, id int64) (*models.Document, error)
}

// RapportHandler serves the report pages.
type RapportHandler struct {
	rapports rapportService
	exports  exporter
	pageSize int
	logger   *zap.Logger
	now      func() time.Time
}

// NewRapportHandler constructs the handler.
func NewRapportHandler(rapports rapportService, exports exporter, pageSize int, logger *zap.Logger) *RapportHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RapportHandler{rapports: rapports, exports: exports, pageSize: pageSize, logger: logger, now: time.Now}
}

func asRapport(rec table.Record) models.Rapport {
	r, _ := rec.(models.Rapport)
	return r
}

func rapportFilter(values url.Values) models.RapportFilter {
	return models.RapportFilter{
		Query: strings.TrimSpace(values.Get(paramSearch)),
		Etat:  values.Get("etat"),
		Annee: values.Get("annee"),
	}
}

func rapportValues(f models.RapportFilter) url.Values {
	q := searchValues(f.Query)
	if f.Etat != "" {
		q.Set("etat", f.Etat)
	}
	if f.Annee != "" {
		q.Set("annee", f.Annee)
	}
	return q
}

func downloadAction() table.Action {
	hasFile := func(rec table.Record) bool { return asRapport(rec).FichierURL != "" }
	return table.Action{
		Name: "download",
		Icon: "download",
		Title: table.Computed(func(rec table.Record) string {
			if hasFile(rec) {
				return "Télécharger le rapport"
			}
			return "Aucun fichier déposé"
		}),
		Class:       table.Literal("text-blue-600 hover:text-blue-800"),
		MobileLabel: "Télécharger",
		EnabledWhen: hasFile,
		Href:        func(rec table.Record) string { return rapportsPath + "/" + rec.RecordID() + "/download" },
	}
}

func stateAction(name, icon, enabled, disabled, class string, when func(models.Rapport) bool, run func(context.Context, int64) error) table.Action {
	ok := func(rec table.Record) bool { return when(asRapport(rec)) }
	return table.Action{
		Name: name,
		Icon: icon,
		Title: table.Computed(func(rec table.Record) string {
			if ok(rec) {
				return enabled
			}
			return disabled
		}),
		Class: table.Computed(func(rec table.Record) string {
			if ok(rec) {
				return class
			}
			return "text-gray-400 cursor-not-allowed"
		}),
		MobileLabel: enabled,
		EnabledWhen: ok,
		OnInvoke: func(ctx context.Context, rec table.Record) error {
			return run(ctx, asRapport(rec).ID)
		},
	}
}

func (h *RapportHandler) table(c *gin.Context, filter models.RapportFilter, run *exportRun) (*table.Table, error) {
	caller := middleware.Caller(c)
	rapports, err := h.rapports.List(c.Request.Context(), caller, filter)
	user := currentUser(c)

	var t *table.Table
	cfg := table.Config{
		PageSize:     h.pageSize,
		EmptyMessage: "Aucun rapport trouvé.",
		Err:          err,
		Actions:      []table.Action{downloadAction()},
		ActionPath:   rapportsPath,
		OnExport: run.handler(h.exports, caller, models.ResourceRapport, "Liste des Rapports",
			func(keys []string) export.Dataset { return t.Dataset(keys) }),
	}
	if user.HasPermission(models.PermissionCanValidate) {
		cfg.Actions = append(cfg.Actions,
			stateAction("valider", "check-circle", "Valider le rapport", "Seuls les rapports en attente peuvent être validés",
				"text-green-600 hover:text-green-800", service.CanValidate,
				func(ctx context.Context, id int64) error {
					_, err := h.rapports.Validate(ctx, caller, id)
					return err
				}),
			stateAction("archiver", "archive", "Archiver le rapport", "Seuls les rapports validés peuvent être archivés",
				"text-gray-600 hover:text-gray-800", service.CanArchive,
				func(ctx context.Context, id int64) error {
					_, err := h.rapports.Archive(ctx, caller, id)
					return err
				}),
		)
	}
	if user.HasPermission(models.PermissionCanEdit) {
		cfg.EditURL = func(rec table.Record) string { return rapportsPath + "/" + rec.RecordID() + "/edit" }
		cfg.OnDelete = func(ctx context.Context, rec table.Record) error {
			return h.rapports.Delete(ctx, caller, asRapport(rec).ID)
		}
	}
	t, err = table.New(RapportColumns(), cfg)
	if err != nil {
		return nil, err
	}
	t.SetData(table.Records(rapports))
	return t, nil
}

type rapportListData struct {
	Table   TablePanel
	Filter  models.RapportFilter
	Etats   []string
	Years   []int
	CanEdit bool
}

// List renders the filtered report table.
func (h *RapportHandler) List(c *gin.Context) {
	q := c.Request.URL.Query()
	filter := rapportFilter(q)
	t, err := h.table(c, filter, &exportRun{})
	if err != nil {
		renderError(c, err)
		return
	}
	t.Apply(table.ParseState(q))
	year := h.now().Year()
	c.HTML(http.StatusOK, "rapports", newPage(c, "Rapports", "rapports", rapportListData{
		Table:   newPanel(t, rapportsPath, rapportValues(filter), true),
		Filter:  filter,
		Etats:   models.Etats,
		Years:   lo.RangeWithSteps(year, year-6, -1),
		CanEdit: currentUser(c).HasPermission(models.PermissionCanEdit),
	}))
}

// Delete confirms the removal of one report.
func (h *RapportHandler) Delete(c *gin.Context) {
	filter := rapportFilter(requestValues(c))
	t, err := h.table(c, filter, &exportRun{})
	if err != nil {
		renderError(c, err)
		return
	}
	confirmDelete(c, t, withQuery(rapportsPath, rapportValues(filter).Encode()), "Rapport supprimé avec succès.")
}

// Export renders the selected columns of the filtered list.
func (h *RapportHandler) Export(c *gin.Context) {
	values := requestValues(c)
	filter := rapportFilter(values)
	run := &exportRun{format: values.Get("format")}
	t, err := h.table(c, filter, run)
	if err != nil {
		renderError(c, err)
		return
	}
	confirmExport(c, t, run, withQuery(rapportsPath, rapportValues(filter).Encode()))
}

var actionMessages = map[string]string{
	"valider":  "Rapport validé avec succès.",
	"archiver": "Rapport archivé avec succès.",
}

// Action runs a row action posted to /rapports/:id/:action.
func (h *RapportHandler) Action(c *gin.Context) {
	filter := rapportFilter(requestValues(c))
	back := withQuery(rapportsPath, rapportValues(filter).Encode())
	t, err := h.table(c, filter, &exportRun{})
	if err != nil {
		renderError(c, err)
		return
	}
	name := c.Param("action")
	if err := t.Invoke(c.Request.Context(), name, c.Param("id")); err != nil {
		h.logger.Warn("rapport action refused", zap.String("action", name), zap.String("id", c.Param("id")), zap.Error(err))
		redirectWithFlash(c, back, flashError, userMessage(err))
		return
	}
	redirectWithFlash(c, back, flashSuccess, actionMessages[name])
}

// Download sends the report file.
func (h *RapportHandler) Download(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		renderError(c, err)
		return
	}
	doc, err := h.rapports.Download(c.Request.Context(), middleware.Caller(c), id)
	if err != nil {
		renderError(c, err)
		return
	}
	filename := doc.Filename
	if filename == "" {
		filename = "rapport_" + c.Param("id") + ".pdf"
	}
	response.Attachment(c, filename, doc.ContentType, doc.Data)
}

type rapportFormData struct {
	Form      *form.RapportForm
	Stages    []models.Stage
	Rule      form.FileRule
	LoadError string
}

func (h *RapportHandler) renderForm(c *gin.Context, status int, f *form.RapportForm) {
	data := rapportFormData{Form: f, Rule: h.rapports.Rule()}
	stages, err := h.rapports.EligibleStages(c.Request.Context(), middleware.Caller(c))
	if err != nil {
		data.LoadError = userMessage(err)
	}
	data.Stages = stages
	title := "Déposer un rapport"
	if f.EditID != 0 {
		title = "Modifier le rapport"
	}
	c.HTML(status, "rapport_form", newPage(c, title, "rapports", data))
}

// New shows an empty deposit form.
func (h *RapportHandler) New(c *gin.Context) {
	h.renderForm(c, http.StatusOK, form.NewRapportForm(nil))
}

// Edit shows the form for replacing a report.
func (h *RapportHandler) Edit(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		renderError(c, err)
		return
	}
	r, err := h.rapports.Get(c.Request.Context(), middleware.Caller(c), id)
	if err != nil {
		renderError(c, err)
		return
	}
	h.renderForm(c, http.StatusOK, form.NewRapportForm(r))
}

// Save deposits or replaces the posted report.
func (h *RapportHandler) Save(c *gin.Context) {
	f := form.NewRapportForm(nil)
	f.EditID = formID(c, "edit_id")
	f.StageID = formID(c, "stage")
	doc, err := uploadedDocument(c, rapportFileKey)
	if err != nil {
		renderError(c, err)
		return
	}
	f.File = doc
	if _, err := h.rapports.Submit(c.Request.Context(), middleware.Caller(c), f); err != nil {
		h.renderForm(c, formStatus(err), f)
		return
	}
	msg := "Rapport déposé avec succès."
	if f.EditID != 0 {
		msg = "Rapport modifié avec succès."
	}
	redirectWithFlash(c, rapportsPath, flashSuccess, msg)
}
