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
)

const encadrantsPath = "/encadrants"

type encadrantService interface {
	List(ctx context.Context, caller service.Caller, search string) ([]models.Encadrant, error)
	Get(ctx context.Context, caller service.Caller, id int64) (*models.Encadrant, error)
	Delete(ctx context.Context, caller service.Caller, id int64) error
	Submit(ctx context.Context, caller service.Caller, f *form.EncadrantForm) (*models.Encadrant, error)
}

// EncadrantHandler serves the supervisor pages. Every route sits behind
// the edit permission.
type EncadrantHandler struct {
	encadrants encadrantService
	exports    exporter
	pageSize   int
}

// NewEncadrantHandler constructs the handler.
func NewEncadrantHandler(encadrants encadrantService, exports exporter, pageSize int) *EncadrantHandler {
	return &EncadrantHandler{encadrants: encadrants, exports: exports, pageSize: pageSize}
}

func (h *EncadrantHandler) table(c *gin.Context, search string, run *exportRun) (*table.Table, error) {
	caller := middleware.Caller(c)
	encadrants, err := h.encadrants.List(c.Request.Context(), caller, search)

	var t *table.Table
	t, err = table.New(EncadrantColumns(), table.Config{
		PageSize:     h.pageSize,
		EmptyMessage: "Aucun encadrant trouvé.",
		Err:          err,
		EditURL:      func(rec table.Record) string { return encadrantsPath + "/" + rec.RecordID() + "/edit" },
		OnDelete: func(ctx context.Context, rec table.Record) error {
			e, _ := rec.(models.Encadrant)
			return h.encadrants.Delete(ctx, caller, e.ID)
		},
		OnExport: run.handler(h.exports, caller, models.ResourceEncadrant, "Liste des Encadrants",
			func(keys []string) export.Dataset { return t.Dataset(keys) }),
	})
	if err != nil {
		return nil, err
	}
	t.SetData(table.Records(encadrants))
	return t, nil
}

type encadrantListData struct {
	Table  TablePanel
	Search string
}

// List renders the supervisor table.
func (h *EncadrantHandler) List(c *gin.Context) {
	q := c.Request.URL.Query()
	search := strings.TrimSpace(q.Get(paramSearch))
	t, err := h.table(c, search, &exportRun{})
	if err != nil {
		renderError(c, err)
		return
	}
	t.Apply(table.ParseState(q))
	c.HTML(http.StatusOK, "encadrants", newPage(c, "Encadrants", "encadrants", encadrantListData{
		Table:  newPanel(t, encadrantsPath, searchValues(search), true),
		Search: search,
	}))
}

// Delete confirms the removal of one supervisor.
func (h *EncadrantHandler) Delete(c *gin.Context) {
	search := strings.TrimSpace(requestValues(c).Get(paramSearch))
	t, err := h.table(c, search, &exportRun{})
	if err != nil {
		renderError(c, err)
		return
	}
	confirmDelete(c, t, withQuery(encadrantsPath, searchValues(search).Encode()), "Encadrant supprimé avec succès.")
}

// Export renders the selected columns.
func (h *EncadrantHandler) Export(c *gin.Context) {
	values := requestValues(c)
	search := strings.TrimSpace(values.Get(paramSearch))
	run := &exportRun{format: values.Get("format")}
	t, err := h.table(c, search, run)
	if err != nil {
		renderError(c, err)
		return
	}
	confirmExport(c, t, run, withQuery(encadrantsPath, searchValues(search).Encode()))
}

type encadrantFormData struct {
	Form         *form.EncadrantForm
	Institutions []string
}

func (h *EncadrantHandler) renderForm(c *gin.Context, status int, f *form.EncadrantForm) {
	title := "Nouvel encadrant"
	if f.EditID != 0 {
		title = "Modifier l'encadrant"
	}
	c.HTML(status, "encadrant_form", newPage(c, title, "encadrants", encadrantFormData{
		Form:         f,
		Institutions: []string{models.InstitutionInterne, models.InstitutionExterne},
	}))
}

// New shows an empty supervisor form.
func (h *EncadrantHandler) New(c *gin.Context) {
	f := form.NewEncadrantForm(nil)
	if inst := c.Query("institution"); inst != "" {
		f.SetInstitution(inst)
		f.Reset()
	}
	h.renderForm(c, http.StatusOK, f)
}

// Edit shows the form filled with one supervisor.
func (h *EncadrantHandler) Edit(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		renderError(c, err)
		return
	}
	e, err := h.encadrants.Get(c.Request.Context(), middleware.Caller(c), id)
	if err != nil {
		renderError(c, err)
		return
	}
	h.renderForm(c, http.StatusOK, form.NewEncadrantForm(e))
}

// Save creates or updates the posted supervisor. Posting op=institution
// only switches the affiliation and redisplays the form.
func (h *EncadrantHandler) Save(c *gin.Context) {
	f := form.NewEncadrantForm(nil)
	_ = c.ShouldBind(&f.Values)
	f.EditID = formID(c, "edit_id")
	if c.PostForm("op") == "institution" {
		f.SetInstitution(f.Values.Institution)
		h.renderForm(c, http.StatusOK, f)
		return
	}
	if _, err := h.encadrants.Submit(c.Request.Context(), middleware.Caller(c), f); err != nil {
		h.renderForm(c, formStatus(err), f)
		return
	}
	msg := "Encadrant ajouté avec succès."
	if f.EditID != 0 {
		msg = "Encadrant modifié avec succès."
	}
	redirectWithFlash(c, encadrantsPath, flashSuccess, msg)
}
