package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/stages-admin/internal/form"
	"github.com/noah-isme/stages-admin/internal/middleware"
	"github.com/noah-isme/stages-admin/internal/models"
	"github.com/noah-isme/stages-admin/internal/service"
	"github.com/noah-isme/stages-admin/internal/table"
	"github.com/noah-isme/stages-admin/pkg/export"
	"github.com/noah-isme/stages-admin/pkg/response"
)

const stagiairesPath = "/stagiaires"

type stagiaireService interface {
	List(ctx context.Context, caller service.Caller, search string) ([]models.Stagiaire, error)
	Get(ctx context.Context, caller service.Caller, id int64) (*models.Stagiaire, error)
	Dossier(ctx context.Context, caller service.Caller, id int64) (*models.StagiaireDossier, error)
	Delete(ctx context.Context, caller service.Caller, id int64) error
	Submit(ctx context.Context, caller service.Caller, f *form.StagiaireForm) (*models.Stagiaire, error)
	SearchMatricule(ctx context.Context, caller service.Caller, search *form.MatriculeSearch) (*models.Stagiaire, error)
	DossierPDF(ctx context.Context, caller service.Caller, id int64) ([]byte, string, error)
}

// StagiaireHandler serves the intern pages.
type StagiaireHandler struct {
	stagiaires stagiaireService
	exports    exporter
	pageSize   int
}

// NewStagiaireHandler constructs the handler.
func NewStagiaireHandler(stagiaires stagiaireService, exports exporter, pageSize int) *StagiaireHandler {
	return &StagiaireHandler{stagiaires: stagiaires, exports: exports, pageSize: pageSize}
}

type stagiaireListData struct {
	Table   TablePanel
	Search  string
	CanEdit bool
}

func (h *StagiaireHandler) table(c *gin.Context, search string, run *exportRun) (*table.Table, error) {
	caller := middleware.Caller(c)
	stagiaires, err := h.stagiaires.List(c.Request.Context(), caller, search)

	var t *table.Table
	cfg := table.Config{
		PageSize:     h.pageSize,
		EmptyMessage: "Aucun stagiaire trouvé.",
		Err:          err,
		Link:         &table.Link{Key: "matricule", Label: "Voir le dossier", Path: stagiairesPath},
		OnExport: run.handler(h.exports, caller, models.ResourceStagiaire, "Liste des Stagiaires",
			func(keys []string) export.Dataset { return t.Dataset(keys) }),
	}
	if currentUser(c).HasPermission(models.PermissionCanEdit) {
		cfg.EditURL = func(rec table.Record) string { return stagiairesPath + "/" + rec.RecordID() + "/edit" }
		cfg.OnDelete = func(ctx context.Context, rec table.Record) error {
			s, _ := rec.(models.Stagiaire)
			return h.stagiaires.Delete(ctx, caller, s.ID)
		}
	}
	t, err = table.New(StagiaireColumns(), cfg)
	if err != nil {
		return nil, err
	}
	t.SetData(table.Records(stagiaires))
	return t, nil
}

// List renders the searchable intern table.
func (h *StagiaireHandler) List(c *gin.Context) {
	q := c.Request.URL.Query()
	search := strings.TrimSpace(q.Get(paramSearch))
	t, err := h.table(c, search, &exportRun{})
	if err != nil {
		renderError(c, err)
		return
	}
	t.Apply(table.ParseState(q))
	c.HTML(http.StatusOK, "stagiaires", newPage(c, "Stagiaires", "stagiaires", stagiaireListData{
		Table:   newPanel(t, stagiairesPath, searchValues(search), true),
		Search:  search,
		CanEdit: currentUser(c).HasPermission(models.PermissionCanEdit),
	}))
}

// Delete confirms the removal of one intern.
func (h *StagiaireHandler) Delete(c *gin.Context) {
	search := strings.TrimSpace(requestValues(c).Get(paramSearch))
	t, err := h.table(c, search, &exportRun{})
	if err != nil {
		renderError(c, err)
		return
	}
	confirmDelete(c, t, withQuery(stagiairesPath, searchValues(search).Encode()), "Stagiaire supprimé avec succès.")
}

// Export renders the selected columns of the searched list.
func (h *StagiaireHandler) Export(c *gin.Context) {
	values := requestValues(c)
	search := strings.TrimSpace(values.Get(paramSearch))
	run := &exportRun{format: values.Get("format")}
	t, err := h.table(c, search, run)
	if err != nil {
		renderError(c, err)
		return
	}
	confirmExport(c, t, run, withQuery(stagiairesPath, searchValues(search).Encode()))
}

type stagiaireFormData struct {
	Form    *form.StagiaireForm
	Niveaux []string
}

func (h *StagiaireHandler) renderForm(c *gin.Context, status int, f *form.StagiaireForm) {
	title := "Nouveau stagiaire"
	if f.EditID != 0 {
		title = "Modifier le stagiaire"
	}
	c.HTML(status, "stagiaire_form", newPage(c, title, "stagiaires", stagiaireFormData{Form: f, Niveaux: models.NiveauxEtude}))
}

// New shows an empty intern form.
func (h *StagiaireHandler) New(c *gin.Context) {
	h.renderForm(c, http.StatusOK, form.NewStagiaireForm(nil))
}

// Edit shows the form filled with one intern.
func (h *StagiaireHandler) Edit(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		renderError(c, err)
		return
	}
	s, err := h.stagiaires.Get(c.Request.Context(), middleware.Caller(c), id)
	if err != nil {
		renderError(c, err)
		return
	}
	h.renderForm(c, http.StatusOK, form.NewStagiaireForm(s))
}

// Save creates or updates the posted intern.
func (h *StagiaireHandler) Save(c *gin.Context) {
	f := form.NewStagiaireForm(nil)
	_ = c.ShouldBind(&f.Values)
	f.EditID = formID(c, "edit_id")
	if _, err := h.stagiaires.Submit(c.Request.Context(), middleware.Caller(c), f); err != nil {
		h.renderForm(c, formStatus(err), f)
		return
	}
	msg := "Stagiaire ajouté avec succès."
	if f.EditID != 0 {
		msg = "Stagiaire modifié avec succès."
	}
	redirectWithFlash(c, stagiairesPath, flashSuccess, msg)
}

type dossierData struct {
	Dossier *models.StagiaireDossier
	Stages  []dossierStage
}

type dossierStage struct {
	models.StageSummary
	Affectation string
	Encadrant   string
	Rapport     string
}

// Dossier shows one intern with the history of their stages.
func (h *StagiaireHandler) Dossier(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		renderError(c, err)
		return
	}
	d, err := h.stagiaires.Dossier(c.Request.Context(), middleware.Caller(c), id)
	if err != nil {
		renderError(c, err)
		return
	}
	data := dossierData{Dossier: d}
	for _, st := range d.Stages {
		row := dossierStage{StageSummary: st, Encadrant: st.EncadrantNom, Rapport: service.RapportSummary(st.Rapport)}
		row.Affectation = affectation(st)
		if row.Encadrant == "" {
			row.Encadrant = "Non assigné"
		}
		data.Stages = append(data.Stages, row)
	}
	c.HTML(http.StatusOK, "stagiaire_dossier", newPage(c, "Dossier de "+d.FullName(), "stagiaires", data))
}

func affectation(st models.StageSummary) string {
	parts := []string{st.Direction}
	for _, v := range []string{st.Division, st.Unite, st.Service} {
		if v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, " / ")
}

// DossierPDF sends the printable dossier.
func (h *StagiaireHandler) DossierPDF(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		renderError(c, err)
		return
	}
	payload, filename, err := h.stagiaires.DossierPDF(c.Request.Context(), middleware.Caller(c), id)
	if err != nil {
		renderError(c, err)
		return
	}
	response.Attachment(c, filename, export.ContentTypePDF, payload)
}

// Search looks an intern up by registration number. Without a query it
// only shows the dialog.
func (h *StagiaireHandler) Search(c *gin.Context) {
	s := &form.MatriculeSearch{Matricule: c.Query("matricule")}
	status := http.StatusOK
	if c.Request.URL.Query().Has("matricule") {
		if _, err := h.stagiaires.SearchMatricule(c.Request.Context(), middleware.Caller(c), s); err != nil {
			status = formStatus(err)
		}
	}
	c.HTML(status, "matricule", newPage(c, "Recherche par matricule", "stagiaires", s))
}
