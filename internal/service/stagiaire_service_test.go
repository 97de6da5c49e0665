package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/stages-admin/internal/form"
	"github.com/noah-isme/stages-admin/internal/models"
	"github.com/noah-isme/stages-admin/pkg/export"
)

type capturingRenderer struct {
	doc export.Document
}

func (r *capturingRenderer) RenderDocument(doc export.Document) ([]byte, error) {
	r.doc = doc
	return []byte("%PDF"), nil
}

func sampleDossier() *models.StagiaireDossier {
	return &models.StagiaireDossier{
		Stagiaire: models.Stagiaire{ID: 5, Nom: "Diallo", Prenom: "Awa", Email: "awa@ecole.ne", Matricule: "STG 001"},
		Stages: []models.StageSummary{
			{Theme: "Réseau", Direction: "DSI", Division: "Division du Développement", Statut: models.StatutTermine,
				DateDebut: models.NewDate(2024, time.January, 8), DateFin: models.NewDate(2024, time.March, 29),
				Rapport: &models.DossierRapport{Statut: models.EtatValide, DateDepot: models.NewDate(2024, time.April, 2)}},
			{Theme: "Cartographie", Direction: "BCR", Unite: "Unité Cartographie et SIG", Statut: models.StatutEnCours},
		},
	}
}

func TestDossierPDFNamesFileAfterMatricule(t *testing.T) {
	renderer := &capturingRenderer{}
	svc := NewStagiaireService(&fakeBackend{dossier: sampleDossier()}, nil, nil, nil, nil, nil)
	svc.pdf = renderer
	svc.now = func() time.Time { return time.Date(2025, time.May, 2, 9, 0, 0, 0, time.UTC) }

	payload, name, err := svc.DossierPDF(context.Background(), testCaller, 5)
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(payload))
	assert.Equal(t, "dossier_STG_001_2025-05-02.pdf", name)
	assert.Equal(t, "Généré le 02/05/2025", renderer.doc.Subtitle)
}

func TestDossierDocumentLayout(t *testing.T) {
	doc := DossierDocument(*sampleDossier(), time.Now())
	require.Len(t, doc.Sections, 2)

	history := doc.Sections[1]
	assert.Equal(t, "HISTORIQUE DES STAGES (2)", history.Heading)
	assert.Equal(t, [2]string{"STAGE 1", ""}, history.Rows[0])
	assert.True(t, history.Emphasis[0])

	var second int
	for i, row := range history.Rows {
		if row[0] == "STAGE 2" {
			second = i
		}
	}
	require.NotZero(t, second)
	assert.True(t, history.Emphasis[second])
	assert.Equal(t, [2]string{"", ""}, history.Rows[second-1])

	rows := map[string]string{}
	for _, row := range history.Rows[second:] {
		rows[row[0]] = row[1]
	}
	assert.Equal(t, "Unité Cartographie et SIG", rows["Unité d'affectation"])
	assert.Equal(t, "Non défini", rows["Service d'affectation"])
	assert.Equal(t, "Non assigné", rows["Encadrant"])
	assert.Equal(t, "Non Déposé", rows["Rapport"])
}

func TestRapportSummary(t *testing.T) {
	assert.Equal(t, "Non Déposé", RapportSummary(nil))
	assert.Equal(t, "Validé (Déposé le 02/04/2024)", RapportSummary(sampleDossier().Stages[0].Rapport))
}

func TestStagiaireListSearches(t *testing.T) {
	b := &fakeBackend{stagiaires: []models.Stagiaire{
		{ID: 1, Nom: "Diallo", Ecole: "EMIG"},
		{ID: 2, Nom: "Moussa", Matricule: "STG-77"},
	}}
	svc := NewStagiaireService(b, nil, nil, nil, nil, nil)

	found, err := svc.List(context.Background(), testCaller, "stg-77")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.EqualValues(t, 2, found[0].ID)
}

func TestMatriculeSearchGoesThroughGateway(t *testing.T) {
	gw := &fakeGateway{}
	svc := NewStagiaireService(&fakeBackend{}, gatewaysOf(gw), nil, nil, nil, nil)

	found, err := svc.SearchMatricule(context.Background(), testCaller, &form.MatriculeSearch{Matricule: "STG-77"})
	require.NoError(t, err)
	assert.Equal(t, "STG-77", found.Matricule)
	assert.Equal(t, []string{"search_matricule"}, gw.calls)
}

func TestEncadrantSubmitAudits(t *testing.T) {
	repo := newRecordingAuditRepo()
	gw := &fakeGateway{}
	svc := NewEncadrantService(&fakeBackend{}, gatewaysOf(gw), nil, startedAudit(t, repo), nil, nil)

	f := &form.EncadrantForm{}
	f.Values.Nom, f.Values.Prenom, f.Values.Email, f.Values.Institution = "Sani", "Ali", "ali@org.ne", "Interne"
	saved, err := svc.Submit(context.Background(), testCaller, f)
	require.NoError(t, err)
	assert.EqualValues(t, 3, saved.ID)

	waitWritten(t, repo)
	entries := repo.snapshot()
	require.Len(t, entries, 1)
	assert.Equal(t, models.ResourceEncadrant, entries[0].Resource)
	assert.True(t, strings.Contains(string(entries[0].Details), "Interne"))
}
