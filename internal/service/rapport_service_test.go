package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/stages-admin/internal/form"
	"github.com/noah-isme/stages-admin/internal/models"
	"github.com/noah-isme/stages-admin/pkg/config"
	appErrors "github.com/noah-isme/stages-admin/pkg/errors"
)

func TestRapportActionsFollowState(t *testing.T) {
	pending := models.Rapport{Etat: models.EtatEnAttente}
	validated := models.Rapport{Etat: models.EtatValide}
	archived := models.Rapport{Etat: models.EtatArchive}

	assert.True(t, CanValidate(pending))
	assert.False(t, CanArchive(pending))
	assert.False(t, CanValidate(validated))
	assert.True(t, CanArchive(validated))
	assert.False(t, CanValidate(archived))
	assert.False(t, CanArchive(archived))
}

func TestRapportEligibleStagesAreFinished(t *testing.T) {
	b := &fakeBackend{stages: []models.Stage{
		{ID: 1, Statut: models.StatutEnCours},
		{ID: 2, Statut: models.StatutTermine},
		{ID: 3, Statut: models.StatutValide},
	}}
	svc := NewRapportService(b, nil, nil, form.FileRule{}, nil, nil, nil)

	stages, err := svc.EligibleStages(context.Background(), testCaller)
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 3}, ids(stages))
}

func TestRapportValidateAndArchiveAudit(t *testing.T) {
	repo := newRecordingAuditRepo()
	b := &fakeBackend{}
	svc := NewRapportService(b, nil, nil, form.FileRule{}, startedAudit(t, repo), nil, nil)

	r, err := svc.Validate(context.Background(), testCaller, 4)
	require.NoError(t, err)
	assert.Equal(t, models.EtatValide, r.Etat)
	waitWritten(t, repo)

	r, err = svc.Archive(context.Background(), testCaller, 4)
	require.NoError(t, err)
	assert.Equal(t, models.EtatArchive, r.Etat)
	waitWritten(t, repo)

	assert.Equal(t, []int64{4}, b.validated)
	assert.Equal(t, []int64{4}, b.archived)
	entries := repo.snapshot()
	require.Len(t, entries, 2)
	assert.Equal(t, models.AuditActionValidate, entries[0].Action)
	assert.Equal(t, models.AuditActionArchive, entries[1].Action)
}

func TestRapportSubmitRequiresFileOnCreation(t *testing.T) {
	gw := &fakeGateway{}
	rule := form.ReportFileRule(config.UploadRule{})
	svc := NewRapportService(&fakeBackend{}, gatewaysOf(gw), nil, rule, nil, nil, nil)

	f := &form.RapportForm{StageID: 2}
	_, err := svc.Submit(context.Background(), testCaller, f)
	require.ErrorIs(t, err, form.ErrIncomplete)
	assert.True(t, f.Errors.Has("fichier"))
	assert.Empty(t, gw.calls)

	f = &form.RapportForm{StageID: 2, File: &models.Document{Filename: "rapport.pdf", ContentType: "application/pdf", Data: []byte("%PDF-1.4")}}
	saved, err := svc.Submit(context.Background(), testCaller, f)
	require.NoError(t, err)
	assert.EqualValues(t, 11, saved.ID)
	assert.Equal(t, []string{"create_rapport"}, gw.calls)
}

func TestRapportDownloadRejectsEmptyFile(t *testing.T) {
	b := &fakeBackend{document: &models.Document{Filename: "rapport_3.pdf"}}
	svc := NewRapportService(b, nil, nil, form.FileRule{}, nil, nil, nil)

	_, err := svc.Download(context.Background(), testCaller, 3)
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	b.document.Data = []byte("%PDF")
	doc, err := svc.Download(context.Background(), testCaller, 3)
	require.NoError(t, err)
	assert.Equal(t, "rapport_3.pdf", doc.Filename)
}
