package table

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/stages-admin/pkg/errors"
)

func records(n int) []Record {
	out := make([]Record, n)
	for i := range out {
		out[i] = Map{"id": i + 1, "nom": fmt.Sprintf("Nom %d", i+1)}
	}
	return out
}

func columns() []Column {
	return []Column{
		{Key: "nom", Label: "Nom"},
		{Key: "statut", Label: "Statut", IsStatus: true, StatusStyles: map[string]string{
			"Validé":  "bg-green-100",
			"default": "bg-gray-200",
		}},
		{Key: "date_debut", Label: "Début", IsDate: true},
	}
}

func newTable(t *testing.T, cfg Config, data []Record) *Table {
	t.Helper()
	tbl, err := New(columns(), cfg)
	require.NoError(t, err)
	tbl.SetData(data)
	return tbl
}

func TestNewRejectsDuplicateKeys(t *testing.T) {
	_, err := New([]Column{{Key: "a"}, {Key: "a"}}, Config{})
	require.Error(t, err)

	_, err = New([]Column{{Label: "sans clé"}}, Config{})
	require.Error(t, err)
}

func TestNewRejectsDuplicateLabels(t *testing.T) {
	_, err := New([]Column{{Key: "debut", Label: "Date"}, {Key: "fin", Label: "Date"}}, Config{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"Date"`)
}

func TestPaginationEightRecords(t *testing.T) {
	data := []Record{Map{"id": 1, "nom": "Diallo"}, Map{"id": 2, "nom": "Sow"}}
	data = append(data, records(8)[2:]...)
	tbl := newTable(t, Config{}, data)

	assert.Equal(t, 2, tbl.TotalPages())
	page := tbl.PageItems()
	require.Len(t, page, 7)
	assert.Equal(t, "1", page[0].RecordID())
	assert.Equal(t, "7", page[6].RecordID())

	tbl.NextPage()
	page = tbl.PageItems()
	require.Len(t, page, 1)
	assert.Equal(t, "8", page[0].RecordID())

	tbl.NextPage()
	assert.Equal(t, 2, tbl.CurrentPage())
}

func TestTotalPagesAndClamping(t *testing.T) {
	for n := 0; n <= 30; n++ {
		for _, size := range []int{1, 3, 7, 10} {
			tbl := newTable(t, Config{PageSize: size}, records(n))
			want := (n + size - 1) / size
			assert.Equal(t, want, tbl.TotalPages())

			tbl.SetPage(1000)
			assert.Equal(t, max(want, 1), tbl.CurrentPage())
			tbl.SetPage(-4)
			assert.Equal(t, 1, tbl.CurrentPage())
		}
	}
}

func TestSetDataKeepsPageButClampsReads(t *testing.T) {
	tbl := newTable(t, Config{}, records(30))
	tbl.SetPage(4)
	assert.Equal(t, 4, tbl.CurrentPage())

	tbl.SetData(records(10))
	assert.Equal(t, 2, tbl.CurrentPage())
	assert.Len(t, tbl.PageItems(), 3)

	tbl.SetData(nil)
	assert.Equal(t, 1, tbl.CurrentPage())
	assert.Empty(t, tbl.PageItems())
}

func TestPageWindow(t *testing.T) {
	tbl := newTable(t, Config{PageSize: 1}, records(10))
	assert.Equal(t, []int{1, 2, 3, 4, 5}, tbl.PageWindow())
	tbl.SetPage(6)
	assert.Equal(t, []int{4, 5, 6, 7, 8}, tbl.PageWindow())
	tbl.SetPage(10)
	assert.Equal(t, []int{6, 7, 8, 9, 10}, tbl.PageWindow())

	small := newTable(t, Config{PageSize: 5}, records(12))
	assert.Equal(t, []int{1, 2, 3}, small.PageWindow())
}

func TestEmptyDataRendersMessageOnly(t *testing.T) {
	tbl := newTable(t, Config{EmptyMessage: "Aucun stagiaire."}, nil)
	v := tbl.View(nil)
	assert.True(t, v.Empty)
	assert.Empty(t, v.Rows)
	assert.Equal(t, "Aucun stagiaire.", v.EmptyMessage)
	assert.Nil(t, v.Pager)

	def := newTable(t, Config{}, nil)
	assert.Equal(t, DefaultEmptyMessage, def.View(nil).EmptyMessage)
}

func TestLoadingBeatsErrorBeatsBody(t *testing.T) {
	boom := errors.New("boom")
	v := newTable(t, Config{Loading: true, Err: boom}, records(3)).View(nil)
	assert.True(t, v.Loading)
	assert.Empty(t, v.Error)
	assert.Nil(t, v.Rows)

	v = newTable(t, Config{Err: boom}, records(3)).View(nil)
	assert.False(t, v.Loading)
	assert.Equal(t, "Erreur : boom", v.Error)
	assert.Nil(t, v.Rows)
	assert.Nil(t, v.Pager)
}

func TestRenderCellPrecedence(t *testing.T) {
	rec := Map{"id": 5, "nom": "", "statut": "Inconnu", "date_debut": "2024-03-09", "matricule": "STG-1"}
	link := &Link{Key: "nom", Path: "/stagiaires", Label: "Consulter le dossier"}
	tbl, err := New(columns(), Config{Link: link})
	require.NoError(t, err)

	cell := tbl.RenderCell(rec, Column{Key: "nom"})
	assert.Equal(t, CellLink, cell.Kind)
	assert.Equal(t, "/stagiaires/5", cell.Href)

	custom := Column{Key: "nom", IsDate: true, IsStatus: true, Render: func(v any, r Record) Cell {
		return Cell{Text: "custom " + r.RecordID()}
	}}
	cell = tbl.RenderCell(rec, custom)
	assert.Equal(t, CellCustom, cell.Kind)
	assert.Equal(t, "custom 5", cell.Text)

	cell = tbl.RenderCell(rec, Column{Key: "date_debut", IsDate: true, IsStatus: true})
	assert.Equal(t, CellDate, cell.Kind)
	assert.Equal(t, "09/03/2024", cell.Text)

	cell = tbl.RenderCell(rec, columns()[1])
	assert.Equal(t, CellStatus, cell.Kind)
	assert.Equal(t, "bg-gray-200", cell.Class)

	cell = tbl.RenderCell(rec, Column{Key: "statut", IsStatus: true})
	assert.Equal(t, NeutralStatusClass, cell.Class)

	cell = tbl.RenderCell(rec, Column{Key: "absent"})
	assert.Equal(t, CellText, cell.Kind)
	assert.Equal(t, Placeholder, cell.Text)

	cell = tbl.RenderCell(rec, Column{Key: "matricule"})
	assert.Equal(t, "STG-1", cell.Text)
}

func TestDeleteRequiresConfirmation(t *testing.T) {
	var deleted []Record
	tbl := newTable(t, Config{OnDelete: func(_ context.Context, rec Record) error {
		deleted = append(deleted, rec)
		return nil
	}}, records(3))

	require.NoError(t, tbl.RequestDelete("2"))
	assert.Empty(t, deleted)
	assert.Equal(t, "2", tbl.PendingDelete().RecordID())
	v := tbl.View(nil)
	require.NotNil(t, v.Delete)
	assert.Equal(t, DeleteMessage, v.Delete.Message)

	tbl.CancelDelete()
	assert.Empty(t, deleted)
	assert.Nil(t, tbl.PendingDelete())

	require.NoError(t, tbl.RequestDelete("2"))
	require.NoError(t, tbl.ConfirmDelete(context.Background()))
	require.Len(t, deleted, 1)
	assert.Equal(t, "2", deleted[0].RecordID())
	assert.Nil(t, tbl.PendingDelete())

	err := tbl.ConfirmDelete(context.Background())
	require.Error(t, err)
	assert.Len(t, deleted, 1)

	assert.ErrorIs(t, tbl.RequestDelete("99"), appErrors.ErrNotFound)
}

func TestDeleteDisabledWithoutHandler(t *testing.T) {
	tbl := newTable(t, Config{}, records(2))
	assert.ErrorIs(t, tbl.RequestDelete("1"), appErrors.ErrActionDisabled)
}

func TestInvokeHonoursEnabledWhen(t *testing.T) {
	var calls []string
	tbl := newTable(t, Config{
		ActionPath: "/rapports",
		Actions: []Action{{
			Name:        "valider",
			Title:       Computed(func(r Record) string { return "Valider " + r.RecordID() }),
			Class:       Literal("text-green-600"),
			EnabledWhen: func(r Record) bool { return r.RecordID() != "2" },
			OnInvoke: func(_ context.Context, r Record) error {
				calls = append(calls, r.RecordID())
				return nil
			},
		}},
	}, records(3))

	require.NoError(t, tbl.Invoke(context.Background(), "valider", "1"))
	assert.ErrorIs(t, tbl.Invoke(context.Background(), "valider", "2"), appErrors.ErrActionDisabled)
	assert.ErrorIs(t, tbl.Invoke(context.Background(), "archiver", "1"), appErrors.ErrNotFound)
	assert.Equal(t, []string{"1"}, calls)

	v := tbl.View(nil)
	require.Len(t, v.Rows, 3)
	first := v.Rows[0].Actions[0]
	assert.Equal(t, "Valider 1", first.Title)
	assert.Equal(t, "text-green-600", first.Class)
	assert.Equal(t, "/rapports/1/valider", first.Href)
	assert.True(t, first.Post)
	assert.False(t, first.Disabled)
	assert.True(t, v.Rows[1].Actions[0].Disabled)
}

func TestExportMode(t *testing.T) {
	var exported [][]string
	tbl := newTable(t, Config{OnExport: func(_ context.Context, keys []string) error {
		exported = append(exported, keys)
		return nil
	}}, records(12))

	tbl.EnterExportMode()
	assert.Equal(t, []string{"nom", "statut", "date_debut"}, tbl.SelectedColumns())
	assert.Nil(t, tbl.View(nil).Pager)

	tbl.ToggleColumn("nom")
	tbl.ToggleColumn("nom")
	tbl.ToggleColumn("statut")
	tbl.ToggleColumn("inconnue")
	assert.Equal(t, []string{"nom", "date_debut"}, tbl.SelectedColumns())

	tbl.ToggleColumn("nom")
	tbl.ToggleColumn("date_debut")
	assert.False(t, tbl.CanConfirmExport())
	assert.ErrorIs(t, tbl.ConfirmExport(context.Background()), appErrors.ErrNoColumns)
	assert.Empty(t, exported)

	tbl.SelectAllColumns()
	tbl.ToggleColumn("statut")
	require.NoError(t, tbl.ConfirmExport(context.Background()))
	assert.Equal(t, [][]string{{"nom", "date_debut"}}, exported)
	assert.False(t, tbl.ExportMode())

	tbl.EnterExportMode()
	assert.Equal(t, []string{"nom", "statut", "date_debut"}, tbl.SelectedColumns())
}

func TestDatasetCoversEveryPage(t *testing.T) {
	tbl := newTable(t, Config{}, records(10))
	ds := tbl.Dataset([]string{"date_debut", "nom", "inconnue"})
	assert.Equal(t, []string{"Début", "Nom"}, ds.Headers)
	require.Len(t, ds.Rows, 10)
	assert.Equal(t, "Nom 10", ds.Rows[9]["Nom"])
}

func TestDatasetIgnoresRepeatedKeys(t *testing.T) {
	tbl := newTable(t, Config{}, records(2))
	ds := tbl.Dataset([]string{"nom", "nom", "date_debut"})
	assert.Equal(t, []string{"Nom", "Début"}, ds.Headers)
	assert.Equal(t, "Nom 2", ds.Rows[1]["Nom"])
}

func TestViewLinksKeepFilters(t *testing.T) {
	tbl := newTable(t, Config{}, records(20))
	tbl.SetPage(2)
	v := tbl.View(url.Values{"search": {"ali"}, "page": {"9"}})
	require.NotNil(t, v.Pager)
	assert.Equal(t, "?search=ali", v.Pager.PrevHref)
	assert.Equal(t, "?page=3&search=ali", v.Pager.NextHref)
	assert.Equal(t, "?export=1&page=2&search=ali", v.EnterExport)
}

func TestApplyStateRoundTrip(t *testing.T) {
	tbl := newTable(t, Config{OnDelete: func(context.Context, Record) error { return nil }}, records(20))
	st := ParseState(url.Values{"page": {"3"}, "delete": {"4"}})
	tbl.Apply(st)
	assert.Equal(t, 3, tbl.CurrentPage())
	require.NotNil(t, tbl.PendingDelete())

	tbl.Apply(ParseState(url.Values{"export": {"1"}}))
	assert.Equal(t, []string{"nom", "statut", "date_debut"}, tbl.SelectedColumns())

	tbl.Apply(ParseState(url.Values{"export": {"1"}, "cols": {"statut,ghost"}}))
	assert.Equal(t, []string{"statut"}, tbl.SelectedColumns())

	tbl.Apply(ParseState(url.Values{"export": {"1"}, "cols": {""}}))
	assert.Empty(t, tbl.SelectedColumns())
	assert.False(t, tbl.CanConfirmExport())
}

func TestValueVariant(t *testing.T) {
	rec := Map{"id": "x"}
	assert.Equal(t, "fixe", Literal("fixe").Resolve(rec))
	assert.False(t, Literal(1).IsComputed())
	v := Computed(func(r Record) string { return "id=" + r.RecordID() })
	assert.True(t, v.IsComputed())
	assert.Equal(t, "id=x", v.Resolve(rec))
}
