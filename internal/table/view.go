package table

import (
	"net/url"
	"strings"
)

// Header is one column heading. In export mode it doubles as a checkbox.
type Header struct {
	Key             string
	Label           string
	ResponsiveClass string
	Selected        bool
	ToggleHref      string
}

// ViewCell is a rendered cell with its column presentation flags.
type ViewCell struct {
	Key             string
	Label           string
	Cell            Cell
	Truncate        bool
	ResponsiveClass string
}

// ViewAction is a rendered row button.
type ViewAction struct {
	Name     string
	Icon     string
	Title    string
	Class    string
	Label    string
	Href     string
	Post     bool
	Disabled bool
}

// Row is one rendered record. Desktop rows and mobile cards both read it.
type Row struct {
	ID      string
	Cells   []ViewCell
	Actions []ViewAction
}

// Pager drives the pagination controls.
type Pager struct {
	Page       int
	TotalPages int
	Total      int
	Pages      []PageLink
	HasPrev    bool
	HasNext    bool
	PrevHref   string
	NextHref   string
}

// PageLink is one numbered page button.
type PageLink struct {
	Number  int
	Href    string
	Current bool
}

// ExportBar is the column-selection banner.
type ExportBar struct {
	SelectedCount int
	Selected      []string
	CanConfirm    bool
	SelectAllHref string
	CancelHref    string
}

// DeletePrompt is the blocking confirmation for a pending delete.
type DeletePrompt struct {
	ID         string
	Message    string
	CancelHref string
}

// View is everything the list templates need. Exactly one of Loading, Error
// or the table body is shown, in that precedence.
type View struct {
	Loading      bool
	Error        string
	Empty        bool
	EmptyMessage string
	Headers      []Header
	Rows         []Row
	HasActions   bool
	Export       *ExportBar
	Pager        *Pager
	Delete       *DeletePrompt
	EnterExport  string
	ActionPath   string
}

// View renders the current page. extra carries the page's own query
// parameters (filters, search) so generated links keep them.
func (t *Table) View(extra url.Values) View {
	if t.cfg.Loading {
		return View{Loading: true}
	}
	if t.cfg.Err != nil {
		return View{Error: "Erreur : " + t.cfg.Err.Error()}
	}

	st := t.State()
	v := View{
		EmptyMessage: t.cfg.EmptyMessage,
		HasActions:   !t.exportMode && t.hasActions(),
		ActionPath:   strings.TrimRight(t.cfg.ActionPath, "/"),
	}

	for _, col := range t.columns {
		h := Header{Key: col.Key, Label: col.Label, ResponsiveClass: col.ResponsiveClass}
		if t.exportMode {
			h.Selected = t.selected.Contains(col.Key)
			next := st
			next.Selected = t.selected.Clone()
			if h.Selected {
				next.Selected.Remove(col.Key)
			} else {
				next.Selected.Add(col.Key)
			}
			h.ToggleHref = href(extra, next)
		}
		v.Headers = append(v.Headers, h)
	}

	items := t.PageItems()
	v.Empty = len(items) == 0
	for _, rec := range items {
		v.Rows = append(v.Rows, t.row(rec, st, extra))
	}

	if t.exportMode {
		all := st
		all.Selected = nil
		cancel := st
		cancel.ExportMode = false
		cancel.Selected = nil
		v.Export = &ExportBar{
			SelectedCount: t.selected.Cardinality(),
			Selected:      t.SelectedColumns(),
			CanConfirm:    t.CanConfirmExport(),
			SelectAllHref: href(extra, all),
			CancelHref:    href(extra, cancel),
		}
	} else {
		enter := st
		enter.ExportMode = true
		enter.Selected = nil
		enter.PendingDelete = ""
		v.EnterExport = href(extra, enter)
	}

	if len(t.data) > 0 && !t.exportMode {
		v.Pager = t.pager(st, extra)
	}

	if t.pendingDelete != nil {
		cancel := st
		cancel.PendingDelete = ""
		v.Delete = &DeletePrompt{
			ID:         t.pendingDelete.RecordID(),
			Message:    DeleteMessage,
			CancelHref: href(extra, cancel),
		}
	}
	return v
}

func (t *Table) hasActions() bool {
	return t.cfg.EditURL != nil || t.cfg.OnDelete != nil || len(t.cfg.Actions) > 0
}

func (t *Table) row(rec Record, st State, extra url.Values) Row {
	r := Row{ID: rec.RecordID()}
	for _, col := range t.columns {
		r.Cells = append(r.Cells, ViewCell{
			Key:             col.Key,
			Label:           col.Label,
			Cell:            t.RenderCell(rec, col),
			Truncate:        col.IsTruncate,
			ResponsiveClass: col.ResponsiveClass,
		})
	}
	if t.exportMode {
		return r
	}
	if t.cfg.EditURL != nil {
		r.Actions = append(r.Actions, ViewAction{
			Name: "edit", Icon: "pencil", Title: "Modifier", Label: "Modifier",
			Class: "text-blue-600 hover:text-blue-800", Href: t.cfg.EditURL(rec),
		})
	}
	if t.cfg.OnDelete != nil {
		del := st
		del.PendingDelete = rec.RecordID()
		r.Actions = append(r.Actions, ViewAction{
			Name: "delete", Icon: "trash", Title: "Supprimer", Label: "Supprimer",
			Class: "text-red-600 hover:text-red-800", Href: href(extra, del),
		})
	}
	for _, a := range t.cfg.Actions {
		va := ViewAction{
			Name:     a.Name,
			Icon:     a.Icon,
			Title:    a.Title.Resolve(rec),
			Class:    a.Class.Resolve(rec),
			Label:    a.MobileLabel,
			Disabled: !a.Enabled(rec),
		}
		if va.Label == "" {
			va.Label = va.Title
		}
		if a.Href != nil {
			va.Href = a.Href(rec)
		} else {
			va.Post = true
			va.Href = strings.TrimRight(t.cfg.ActionPath, "/") + "/" + url.PathEscape(rec.RecordID()) + "/" + url.PathEscape(a.Name)
		}
		r.Actions = append(r.Actions, va)
	}
	return r
}

func (t *Table) pager(st State, extra url.Values) *Pager {
	current := t.CurrentPage()
	total := t.TotalPages()
	at := func(n int) string {
		next := st
		next.Page = n
		next.PendingDelete = ""
		return href(extra, next)
	}
	p := &Pager{
		Page:       current,
		TotalPages: total,
		Total:      len(t.data),
		HasPrev:    current > 1,
		HasNext:    current < total,
		PrevHref:   at(max(current-1, 1)),
		NextHref:   at(min(current+1, total)),
	}
	for _, n := range t.PageWindow() {
		p.Pages = append(p.Pages, PageLink{Number: n, Href: at(n), Current: n == current})
	}
	return p
}

func href(extra url.Values, st State) string {
	q := url.Values{}
	for k, vs := range extra {
		switch k {
		case ParamPage, ParamExport, ParamCols, ParamDelete:
			continue
		}
		for _, v := range vs {
			if v != "" {
				q.Add(k, v)
			}
		}
	}
	for k, vs := range st.Values() {
		q[k] = vs
	}
	if len(q) == 0 {
		return "?"
	}
	return "?" + q.Encode()
}
