package table

import (
	"context"
	"fmt"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/samber/lo"

	appErrors "github.com/noah-isme/stages-admin/pkg/errors"
	"github.com/noah-isme/stages-admin/pkg/export"
)

// Defaults applied by New.
const (
	DefaultPageSize     = 7
	DefaultEmptyMessage = "Aucune donnée trouvée."
	DeleteMessage       = "Souhaitez-vous vraiment supprimer cet élément ? Cette action est irréversible."
	maxVisiblePages     = 5
)

// Action is a custom per-row button. When EnabledWhen returns false the
// button renders disabled and Invoke refuses to run it. Actions with Href
// render as plain links; the others are posted back and dispatched by Invoke.
type Action struct {
	Name        string
	Icon        string
	Title       Value[string]
	Class       Value[string]
	MobileLabel string
	EnabledWhen func(rec Record) bool
	Href        func(rec Record) string
	OnInvoke    func(ctx context.Context, rec Record) error
}

// Enabled reports whether the action may run for rec.
func (a Action) Enabled(rec Record) bool {
	return a.EnabledWhen == nil || a.EnabledWhen(rec)
}

// Config carries the behaviour supplied by the owning page.
type Config struct {
	PageSize     int
	EmptyMessage string
	Link         *Link
	// EditURL enables the edit button; it returns the form location.
	EditURL  func(rec Record) string
	OnDelete func(ctx context.Context, rec Record) error
	Actions  []Action
	// ActionPath prefixes the POST target of custom actions:
	// ActionPath/{id}/{action}.
	ActionPath string
	OnExport   func(ctx context.Context, keys []string) error
	Loading    bool
	Err        error
}

// Table is the engine state for one rendering.
type Table struct {
	columns []Column
	cfg     Config
	data    []Record

	page          int
	exportMode    bool
	selected      mapset.Set[string]
	pendingDelete Record
}

// New validates the column set and applies configuration defaults. Keys
// and labels must be unique: exported rows are keyed by label.
func New(columns []Column, cfg Config) (*Table, error) {
	keys := mapset.NewThreadUnsafeSetWithSize[string](len(columns))
	labels := mapset.NewThreadUnsafeSetWithSize[string](len(columns))
	for _, col := range columns {
		if col.Key == "" {
			return nil, fmt.Errorf("column %q has no key", col.Label)
		}
		if !keys.Add(col.Key) {
			return nil, fmt.Errorf("duplicate column key %q", col.Key)
		}
		if !labels.Add(col.Label) {
			return nil, fmt.Errorf("duplicate column label %q", col.Label)
		}
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultPageSize
	}
	if cfg.EmptyMessage == "" {
		cfg.EmptyMessage = DefaultEmptyMessage
	}
	return &Table{
		columns:  columns,
		cfg:      cfg,
		page:     1,
		selected: mapset.NewThreadUnsafeSet[string](),
	}, nil
}

// SetData replaces the dataset. The current page is kept; reads clamp it.
func (t *Table) SetData(records []Record) {
	t.data = records
	if t.pendingDelete != nil {
		if _, ok := t.find(t.pendingDelete.RecordID()); !ok {
			t.pendingDelete = nil
		}
	}
}

// Data returns the full dataset.
func (t *Table) Data() []Record { return t.data }

// Columns returns the column set in display order.
func (t *Table) Columns() []Column { return t.columns }

// Column looks a column up by key.
func (t *Table) Column(key string) (Column, bool) {
	return lo.Find(t.columns, func(c Column) bool { return c.Key == key })
}

// Apply restores the state decoded from a request.
func (t *Table) Apply(st State) {
	t.SetPage(st.Page)
	if st.ExportMode {
		t.EnterExportMode()
		if st.Selected != nil {
			t.selected = mapset.NewThreadUnsafeSet[string]()
			for _, key := range st.Selected.ToSlice() {
				if _, ok := t.Column(key); ok {
					t.selected.Add(key)
				}
			}
		}
	} else {
		t.ExitExportMode()
	}
	t.pendingDelete = nil
	if st.PendingDelete != "" {
		_ = t.RequestDelete(st.PendingDelete)
	}
}

// State captures the current state for links and redirects.
func (t *Table) State() State {
	st := State{Page: t.CurrentPage(), ExportMode: t.exportMode}
	if t.exportMode {
		st.Selected = t.selected.Clone()
	}
	if t.pendingDelete != nil {
		st.PendingDelete = t.pendingDelete.RecordID()
	}
	return st
}

// TotalPages is ceil(len(data) / pageSize).
func (t *Table) TotalPages() int {
	return (len(t.data) + t.cfg.PageSize - 1) / t.cfg.PageSize
}

func (t *Table) lastPage() int {
	return max(t.TotalPages(), 1)
}

// CurrentPage is the requested page clamped into [1, max(totalPages, 1)].
func (t *Table) CurrentPage() int {
	return clamp(t.page, 1, t.lastPage())
}

// SetPage moves to page n, clamped into range.
func (t *Table) SetPage(n int) {
	t.page = clamp(n, 1, t.lastPage())
}

// NextPage moves forward one page, stopping at the last.
func (t *Table) NextPage() { t.SetPage(t.CurrentPage() + 1) }

// PrevPage moves back one page, stopping at the first.
func (t *Table) PrevPage() { t.SetPage(t.CurrentPage() - 1) }

// PageItems returns the records of the current page.
func (t *Table) PageItems() []Record {
	start := (t.CurrentPage() - 1) * t.cfg.PageSize
	if start >= len(t.data) {
		return nil
	}
	end := min(start+t.cfg.PageSize, len(t.data))
	return t.data[start:end]
}

// PageWindow lists the numbered page buttons: at most five, centred on the
// current page where possible.
func (t *Table) PageWindow() []int {
	total := t.TotalPages()
	if total == 0 {
		return nil
	}
	current := t.CurrentPage()
	start := max(1, current-maxVisiblePages/2)
	end := min(total, start+maxVisiblePages-1)
	if end-start+1 < maxVisiblePages {
		start = max(1, end-maxVisiblePages+1)
	}
	return lo.RangeFrom(start, end-start+1)
}

// RenderCell renders one cell of rec.
func (t *Table) RenderCell(rec Record, col Column) Cell {
	return renderCell(rec, col, t.cfg.Link)
}

// ExportText is the plain text written to documents for one cell.
func (t *Table) ExportText(rec Record, col Column) string {
	if col.Export != nil {
		return col.Export(rec)
	}
	cell := t.RenderCell(rec, col)
	if cell.Sub != "" {
		return cell.Text + " - " + cell.Sub
	}
	return cell.Text
}

func (t *Table) find(id string) (Record, bool) {
	return lo.Find(t.data, func(r Record) bool { return r.RecordID() == id })
}

// RequestDelete opens the confirmation for the record with id.
func (t *Table) RequestDelete(id string) error {
	if t.cfg.OnDelete == nil {
		return appErrors.ErrActionDisabled
	}
	rec, ok := t.find(id)
	if !ok {
		return appErrors.ErrNotFound
	}
	t.pendingDelete = rec
	return nil
}

// PendingDelete is the record awaiting confirmation, or nil.
func (t *Table) PendingDelete() Record { return t.pendingDelete }

// CancelDelete closes the confirmation without side effects.
func (t *Table) CancelDelete() { t.pendingDelete = nil }

// ConfirmDelete calls the delete handler once with the pending record and
// closes the confirmation, whatever the handler returns.
func (t *Table) ConfirmDelete(ctx context.Context) error {
	rec := t.pendingDelete
	if rec == nil {
		return appErrors.Clone(appErrors.ErrValidation, "Aucune suppression en attente")
	}
	t.pendingDelete = nil
	return t.cfg.OnDelete(ctx, rec)
}

// Invoke dispatches a custom action on the record with id.
func (t *Table) Invoke(ctx context.Context, name, id string) error {
	action, ok := lo.Find(t.cfg.Actions, func(a Action) bool { return a.Name == name })
	if !ok {
		return appErrors.Clone(appErrors.ErrNotFound, "Action inconnue")
	}
	rec, ok := t.find(id)
	if !ok {
		return appErrors.ErrNotFound
	}
	if !action.Enabled(rec) || action.OnInvoke == nil {
		return appErrors.ErrActionDisabled
	}
	return action.OnInvoke(ctx, rec)
}

// ExportMode reports whether column selection is active.
func (t *Table) ExportMode() bool { return t.exportMode }

// EnterExportMode starts column selection with every column selected.
func (t *Table) EnterExportMode() {
	t.exportMode = true
	t.SelectAllColumns()
}

// ExitExportMode leaves column selection.
func (t *Table) ExitExportMode() {
	t.exportMode = false
	t.selected.Clear()
}

// ToggleColumn flips one column in or out of the selection.
func (t *Table) ToggleColumn(key string) {
	if !t.exportMode {
		return
	}
	if _, ok := t.Column(key); !ok {
		return
	}
	if t.selected.Contains(key) {
		t.selected.Remove(key)
		return
	}
	t.selected.Add(key)
}

// SelectAllColumns resets the selection to every column.
func (t *Table) SelectAllColumns() {
	t.selected = mapset.NewThreadUnsafeSet[string](t.keys()...)
}

// SelectedColumns returns the selected keys in column order.
func (t *Table) SelectedColumns() []string {
	return lo.Filter(t.keys(), func(k string, _ int) bool { return t.selected.Contains(k) })
}

// CanConfirmExport reports whether the export button is enabled.
func (t *Table) CanConfirmExport() bool {
	return t.exportMode && t.selected.Cardinality() > 0 && t.cfg.OnExport != nil
}

// ConfirmExport hands the ordered selection to the export handler and leaves
// export mode.
func (t *Table) ConfirmExport(ctx context.Context) error {
	if !t.exportMode || t.cfg.OnExport == nil {
		return appErrors.ErrActionDisabled
	}
	if t.selected.Cardinality() == 0 {
		return appErrors.ErrNoColumns
	}
	keys := t.SelectedColumns()
	t.ExitExportMode()
	return t.cfg.OnExport(ctx, keys)
}

// Dataset renders the whole dataset, not just the current page, restricted
// to keys in the given order. Unknown keys are skipped.
func (t *Table) Dataset(keys []string) export.Dataset {
	cols := lo.FilterMap(lo.Uniq(keys), func(k string, _ int) (Column, bool) { return t.Column(k) })
	ds := export.Dataset{
		Headers: lo.Map(cols, func(c Column, _ int) string { return c.Label }),
		Rows:    make([]map[string]string, 0, len(t.data)),
	}
	for _, rec := range t.data {
		row := make(map[string]string, len(cols))
		for _, col := range cols {
			row[col.Label] = t.ExportText(rec, col)
		}
		ds.Rows = append(ds.Rows, row)
	}
	return ds
}

func (t *Table) keys() []string {
	return lo.Map(t.columns, func(c Column, _ int) string { return c.Key })
}

func clamp(v, lower, upper int) int {
	if v < lower {
		return lower
	}
	if v > upper {
		return upper
	}
	return v
}
