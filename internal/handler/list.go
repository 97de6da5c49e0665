package handler

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/stages-admin/internal/service"
	"github.com/noah-isme/stages-admin/internal/table"
	"github.com/noah-isme/stages-admin/pkg/export"
)

const (
	paramSearch   = "q"
	maxFormMemory = 32 << 20
)

type exporter interface {
	Export(ctx context.Context, caller service.Caller, resource, format, title string, ds export.Dataset) (*service.ExportResult, error)
}

// TablePanel is what the table partial renders. Hidden carries the page's
// own query values into the delete and export forms.
type TablePanel struct {
	View      table.View
	BasePath  string
	Hidden    url.Values
	CanExport bool
}

func newPanel(t *table.Table, basePath string, extra url.Values, canExport bool) TablePanel {
	return TablePanel{View: t.View(extra), BasePath: basePath, Hidden: extra, CanExport: canExport}
}

// exportRun collects what the table's export handler produced.
type exportRun struct {
	format string
	result *service.ExportResult
}

func (r *exportRun) handler(exports exporter, caller service.Caller, resource, title string, dataset func([]string) export.Dataset) func(context.Context, []string) error {
	return func(ctx context.Context, keys []string) error {
		res, err := exports.Export(ctx, caller, resource, r.format, title, dataset(keys))
		if err != nil {
			return err
		}
		r.result = res
		return nil
	}
}

// requestValues merges the query and the posted body, multipart or not.
func requestValues(c *gin.Context) url.Values {
	if c.Request.Form == nil {
		_ = c.Request.ParseMultipartForm(maxFormMemory)
	}
	return c.Request.Form
}

func searchValues(search string) url.Values {
	q := url.Values{}
	if search != "" {
		q.Set(paramSearch, search)
	}
	return q
}

// confirmDelete opens then confirms the delete of the posted id and goes
// back to the list with the outcome.
func confirmDelete(c *gin.Context, t *table.Table, target, success string) {
	id := strings.TrimSpace(c.PostForm("id"))
	err := t.RequestDelete(id)
	if err == nil {
		err = t.ConfirmDelete(c.Request.Context())
	}
	if err != nil {
		redirectWithFlash(c, target, flashError, userMessage(err))
		return
	}
	redirectWithFlash(c, target, flashSuccess, success)
}

// confirmExport restores the posted column selection and runs the export.
// On success the browser is sent to the signed download link.
func confirmExport(c *gin.Context, t *table.Table, run *exportRun, back string) {
	st := table.ParseState(url.Values{
		table.ParamExport: {"1"},
		table.ParamCols:   {c.PostForm(table.ParamCols)},
	})
	t.Apply(st)
	if err := t.ConfirmExport(c.Request.Context()); err != nil {
		redirectWithFlash(c, back, flashError, userMessage(err))
		return
	}
	c.Redirect(http.StatusSeeOther, run.result.URL)
}
