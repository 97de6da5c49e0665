package service

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/stages-admin/pkg/errors"
	"github.com/noah-isme/stages-admin/pkg/export"
	"github.com/noah-isme/stages-admin/pkg/storage"
)

func newExportServiceForTest(t *testing.T) (*ExportService, *storage.LocalStorage) {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("secret", time.Hour)
	svc := NewExportService(store, signer, ExportConfig{BasePath: "/admin/", ResultTTL: time.Hour}, nil, NewMetricsService(), nil)
	return svc, store
}

func sampleDataset() export.Dataset {
	return export.Dataset{
		Headers: []string{"Thème", "Statut"},
		Rows: []map[string]string{
			{"Thème": "Supervision réseau", "Statut": "En cours"},
			{"Thème": "Budget", "Statut": "Terminé"},
		},
	}
}

func TestExportStoresCSVBehindSignedLink(t *testing.T) {
	svc, store := newExportServiceForTest(t)

	result, err := svc.Export(context.Background(), testCaller, "stage", "csv", "Liste des Stages", sampleDataset())
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, result.Format)
	assert.True(t, strings.HasPrefix(result.URL, "/admin/exports/"))
	assert.True(t, strings.HasPrefix(result.Filename, "stage_"))
	assert.True(t, strings.HasSuffix(result.Filename, ".csv"))

	relPath, err := svc.ParseToken(result.Token)
	require.NoError(t, err)
	f, err := svc.Open(relPath)
	require.NoError(t, err)
	defer f.Close()
	body, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Contains(t, string(body), "Supervision réseau")

	_, err = os.Stat(store.Path(relPath))
	require.NoError(t, err)
}

func TestExportRendersPDFAndXLSX(t *testing.T) {
	svc, _ := newExportServiceForTest(t)

	payload, contentType, err := svc.Render("pdf", "Liste des Stages", sampleDataset())
	require.NoError(t, err)
	assert.Equal(t, export.ContentTypePDF, contentType)
	assert.True(t, strings.HasPrefix(string(payload), "%PDF"))

	payload, contentType, err = svc.Render("excel", "Liste des Stages", sampleDataset())
	require.NoError(t, err)
	assert.Equal(t, export.ContentTypeXLSX, contentType)
	assert.True(t, strings.HasPrefix(string(payload), "PK"))
}

func TestExportRejectsEmptySelections(t *testing.T) {
	svc, _ := newExportServiceForTest(t)

	_, err := svc.Export(context.Background(), testCaller, "stage", "pdf", "t", export.Dataset{Headers: []string{"Thème"}})
	assert.True(t, errors.Is(err, appErrors.ErrExportEmpty))

	_, _, err = svc.Render("pdf", "t", export.Dataset{Rows: sampleDataset().Rows})
	assert.True(t, errors.Is(err, appErrors.ErrNoColumns))
}

func TestExportTokenTamperingIsRejected(t *testing.T) {
	svc, _ := newExportServiceForTest(t)
	result, err := svc.Export(context.Background(), testCaller, "stage", "csv", "t", sampleDataset())
	require.NoError(t, err)

	_, err = svc.ParseToken(result.Token + "00")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestParseFormatDefaultsToPDF(t *testing.T) {
	assert.Equal(t, FormatPDF, ParseFormat(""))
	assert.Equal(t, FormatPDF, ParseFormat("docx"))
	assert.Equal(t, FormatXLSX, ParseFormat(" XLSX "))
	assert.Equal(t, FormatCSV, ParseFormat("csv"))
}

func TestCleanupRemovesOldExports(t *testing.T) {
	svc, store := newExportServiceForTest(t)
	result, err := svc.Export(context.Background(), testCaller, "stage", "csv", "t", sampleDataset())
	require.NoError(t, err)
	relPath, err := svc.ParseToken(result.Token)
	require.NoError(t, err)

	old := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(store.Path(relPath), old, old))

	removed, err := svc.Cleanup(0)
	require.NoError(t, err)
	assert.Len(t, removed, 1)
	_, err = os.Stat(store.Path(relPath))
	assert.True(t, os.IsNotExist(err))
}
