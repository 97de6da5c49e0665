package handler

import (
	"context"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/stages-admin/internal/form"
	"github.com/noah-isme/stages-admin/internal/models"
	"github.com/noah-isme/stages-admin/internal/service"
	appErrors "github.com/noah-isme/stages-admin/pkg/errors"
)

type fakeEncadrants struct {
	items     []models.Encadrant
	submitted *form.EncadrantForm
}

func (f *fakeEncadrants) List(context.Context, service.Caller, string) ([]models.Encadrant, error) {
	return f.items, nil
}

func (f *fakeEncadrants) Get(_ context.Context, _ service.Caller, id int64) (*models.Encadrant, error) {
	for _, e := range f.items {
		if e.ID == id {
			return &e, nil
		}
	}
	return nil, appErrors.ErrNotFound
}

func (f *fakeEncadrants) Delete(context.Context, service.Caller, int64) error { return nil }

func (f *fakeEncadrants) Submit(_ context.Context, _ service.Caller, ef *form.EncadrantForm) (*models.Encadrant, error) {
	f.submitted = ef
	if ef.Values.Institution == models.InstitutionExterne && ef.Values.NomInstitution == "" {
		ef.Errors = form.FieldErrors{"nom_institution": "Ce champ est obligatoire"}
		return nil, form.ErrIncomplete
	}
	return &models.Encadrant{ID: 8}, nil
}

func TestEncadrantNewWithExternalInstitution(t *testing.T) {
	h := NewEncadrantHandler(&fakeEncadrants{}, &fakeExporter{}, 10)

	c, rec := newContext(t, editor(), get("/encadrants/new?institution=Externe"))
	call(c, h.New)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, body(rec), `name="nom_institution"`)
}

func TestEncadrantInstitutionSwitchOnlyRedisplays(t *testing.T) {
	svc := &fakeEncadrants{}
	h := NewEncadrantHandler(svc, &fakeExporter{}, 10)

	c, rec := newContext(t, editor(), postForm("/encadrants/save", url.Values{
		"op": {"institution"}, "institution": {models.InstitutionInterne}, "nom_institution": {"Université"}, "nom": {"Koné"},
	}))
	call(c, h.Save)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, svc.submitted)
	html := body(rec)
	assert.NotContains(t, html, `name="nom_institution"`)
	assert.Contains(t, html, `value="Koné"`)
}

func TestEncadrantSave(t *testing.T) {
	svc := &fakeEncadrants{}
	h := NewEncadrantHandler(svc, &fakeExporter{}, 10)

	c, rec := newContext(t, editor(), postForm("/encadrants/save", url.Values{
		"nom": {"Koné"}, "prenom": {"Issa"}, "email": {"issa@example.org"}, "institution": {models.InstitutionExterne},
	}))
	call(c, h.Save)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, body(rec), "Ce champ est obligatoire")

	c, rec = newContext(t, editor(), postForm("/encadrants/save", url.Values{
		"edit_id": {"8"}, "nom": {"Koné"}, "prenom": {"Issa"}, "email": {"issa@example.org"},
		"institution": {models.InstitutionExterne}, "nom_institution": {"Université de Bamako"},
	}))
	call(c, h.Save)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "success|Encadrant modifié avec succès.", flashOf(rec))
	assert.Equal(t, "Université de Bamako", svc.submitted.Values.NomInstitution)
}

func TestEncadrantListHasEditLinks(t *testing.T) {
	h := NewEncadrantHandler(&fakeEncadrants{items: []models.Encadrant{
		{ID: 2, Nom: "Koné", Prenom: "Issa", Institution: models.InstitutionInterne, StagesEncadres: 3},
	}}, &fakeExporter{}, 10)

	c, rec := newContext(t, editor(), get("/encadrants"))
	call(c, h.List)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, body(rec), `href="/encadrants/2/edit"`)
}
