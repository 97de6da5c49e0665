package export

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sampleDataset() Dataset {
	return Dataset{
		Headers: []string{"Thème/Type", "Stagiaire", "Durée"},
		Rows: []map[string]string{
			{"Thème/Type": "Migration SIG (Academique)", "Stagiaire": "Awa Diallo", "Durée": "01/03/2024 → 30/06/2024"},
			{"Thème/Type": "Audit réseau (Professionnel)", "Stagiaire": "Ali Moussa", "Durée": "01/07/2024 → 30/09/2024"},
		},
	}
}

func TestCSVRender(t *testing.T) {
	out, err := NewCSVExporter().Render(sampleDataset())
	require.NoError(t, err)

	text := strings.TrimPrefix(string(out), "\ufeff")
	lines := strings.Split(strings.TrimSpace(text), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Thème/Type;Stagiaire;Durée", lines[0])
	assert.Contains(t, lines[1], "Awa Diallo")
}

func TestCSVRequiresHeaders(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{})
	require.Error(t, err)
}

func TestPDFRender(t *testing.T) {
	out, err := NewPDFExporter().Render(sampleDataset(), PDFOptions{Title: "Liste des Stages", FontSize: 8, HeaderFill: FillBlue})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestPDFRenderManyRowsPaginates(t *testing.T) {
	data := Dataset{Headers: []string{"Nom"}}
	for i := 0; i < 200; i++ {
		data.Rows = append(data.Rows, map[string]string{"Nom": "Stagiaire"})
	}
	out, err := NewPDFExporter().Render(data, PDFOptions{})
	require.NoError(t, err)
	// one "/Type /Pages" catalogue entry plus one "/Type /Page" per page
	assert.Greater(t, bytes.Count(out, []byte("/Type /Page")), 2)
}

func TestPDFRenderDocument(t *testing.T) {
	doc := Document{
		Title:    "DOSSIER STAGIAIRE",
		Subtitle: "Généré le 01/02/2024",
		Sections: []Section{
			{Heading: "INFORMATIONS PERSONNELLES", Rows: [][2]string{{"Nom & Prénom:", "Diallo Awa"}}},
			{Heading: "HISTORIQUE DES STAGES (0)", EmptyText: "Aucun stage enregistré pour ce stagiaire"},
		},
	}
	out, err := NewPDFExporter().RenderDocument(doc)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))

	_, err = NewPDFExporter().RenderDocument(Document{})
	require.Error(t, err)
}

func TestXLSXRender(t *testing.T) {
	out, err := NewXLSXExporter().Render(sampleDataset(), "Stages", "Liste des Stages")
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(out))
	require.NoError(t, err)
	defer f.Close() //nolint:errcheck

	title, err := f.GetCellValue("Stages", "A1")
	require.NoError(t, err)
	assert.Equal(t, "Liste des Stages", title)

	header, err := f.GetCellValue("Stages", "B3")
	require.NoError(t, err)
	assert.Equal(t, "Stagiaire", header)

	value, err := f.GetCellValue("Stages", "B5")
	require.NoError(t, err)
	assert.Equal(t, "Ali Moussa", value)
	assert.Equal(t, []string{"Stages"}, f.GetSheetList())
}

func TestSheetNameTruncates(t *testing.T) {
	assert.Equal(t, "Sheet1", sheetName(""))
	assert.Len(t, []rune(sheetName(strings.Repeat("é", 40))), maxSheetNameLength)
}
