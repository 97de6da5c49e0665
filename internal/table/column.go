package table

import (
	"fmt"
	"strings"
	"time"
)

// Placeholder is shown for empty cells.
const Placeholder = "N/A"

// NeutralStatusClass styles a status with no configured style.
const NeutralStatusClass = "bg-gray-100 text-gray-800"

// CellKind tells the templates how to draw a cell.
type CellKind int

const (
	CellText CellKind = iota
	CellLink
	CellDate
	CellStatus
	CellCustom
)

// Cell is a rendered cell. Text is always the plain-text form; Href and
// Class are set for links, badges and custom cells that need them.
type Cell struct {
	Kind  CellKind
	Text  string
	Sub   string
	Href  string
	Class string
	Title string
}

// Column describes how one field is labelled and rendered.
type Column struct {
	Key             string
	Label           string
	Render          func(value any, rec Record) Cell
	IsDate          bool
	IsStatus        bool
	StatusStyles    map[string]string
	IsTruncate      bool
	ResponsiveClass string
	// Export overrides the plain text written to exported documents.
	Export func(rec Record) string
}

// Link turns the cells of one column into links, typically to a detail page.
type Link struct {
	Key   string
	Label string
	Path  string
	Build func(rec Record) string
}

func (l *Link) href(rec Record) string {
	if l.Build != nil {
		return l.Build(rec)
	}
	return strings.TrimRight(l.Path, "/") + "/" + rec.RecordID()
}

// StatusClass resolves the badge style of a status value: the configured
// style, then the "default" entry, then a neutral style.
func (c Column) StatusClass(value string) string {
	if class, ok := c.StatusStyles[value]; ok {
		return class
	}
	if class, ok := c.StatusStyles["default"]; ok {
		return class
	}
	return NeutralStatusClass
}

// renderCell resolves a cell in order: custom renderer, link, date, status,
// then the raw value with the placeholder for empty values.
func renderCell(rec Record, col Column, link *Link) Cell {
	value := rec.Field(col.Key)

	if col.Render != nil {
		cell := col.Render(value, rec)
		cell.Kind = CellCustom
		return cell
	}
	if link != nil && col.Key == link.Key {
		return Cell{Kind: CellLink, Text: Text(value), Href: link.href(rec), Title: link.Label}
	}
	if col.IsDate {
		return Cell{Kind: CellDate, Text: FormatDate(value)}
	}
	if col.IsStatus {
		text := Text(value)
		return Cell{Kind: CellStatus, Text: text, Class: col.StatusClass(text)}
	}
	text := Text(value)
	if text == "" {
		text = Placeholder
	}
	return Cell{Kind: CellText, Text: text}
}

// Text is the plain string form of a field value; nil reads as "".
func Text(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case *string:
		if v == nil {
			return ""
		}
		return *v
	case *int64:
		if v == nil {
			return ""
		}
		return fmt.Sprint(*v)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

type frenchDate interface {
	French() string
}

// FormatDate renders a date value as dd/mm/yyyy. Unparseable strings are
// returned unchanged.
func FormatDate(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case frenchDate:
		return v.French()
	case time.Time:
		if v.IsZero() {
			return ""
		}
		return v.Format("02/01/2006")
	case string:
		if v == "" {
			return ""
		}
		for _, layout := range []string{"2006-01-02", time.RFC3339} {
			if t, err := time.Parse(layout, v); err == nil {
				return t.Format("02/01/2006")
			}
		}
		return v
	default:
		return Text(v)
	}
}
