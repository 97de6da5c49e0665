package service

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/noah-isme/stages-admin/internal/models"
	"github.com/noah-isme/stages-admin/internal/orgunit"
)

// Date filter modes of the stage list. Dates are matched on the start date.
const (
	DateFilterNone  = "none"
	DateFilterYear  = "year"
	DateFilterMonth = "month"
	DateFilterRange = "range"
)

// Query parameters of the stage filters.
const (
	ParamSearch   = "q"
	ParamDateMode = "date"
	ParamYear     = "annee"
	ParamMonth    = "mois"
	ParamFrom     = "du"
	ParamTo       = "au"
)

// StageListTitle heads exported stage lists.
const StageListTitle = "Liste des Stages"

// AdvancedFilterKeys are the exact-match stage fields, in display order.
var AdvancedFilterKeys = []string{"type_stage", "direction", "division", "unite", "service", "statut"}

// MonthNames are the French month names, January first.
var MonthNames = [12]string{"Janvier", "Février", "Mars", "Avril", "Mai", "Juin", "Juillet", "Août", "Septembre", "Octobre", "Novembre", "Décembre"}

// StageFilter narrows the stage list in memory: free text search, an
// optional date filter and exact matches on the advanced fields.
type StageFilter struct {
	Search   string
	DateMode string
	Year     int
	Month    int
	From     string
	To       string
	Exact    map[string]string
}

// NewStageFilter returns an empty filter whose date inputs default to the
// current month, as shown when the date panel is opened.
func NewStageFilter(now time.Time) StageFilter {
	return StageFilter{DateMode: DateFilterNone, Year: now.Year(), Month: int(now.Month()), Exact: map[string]string{}}
}

// ParseStageFilter reads a filter from query values. Unknown modes read as
// none and out-of-range years or months as unset.
func ParseStageFilter(q url.Values, now time.Time) StageFilter {
	f := NewStageFilter(now)
	f.Search = strings.TrimSpace(q.Get(ParamSearch))
	switch mode := q.Get(ParamDateMode); mode {
	case DateFilterYear, DateFilterMonth, DateFilterRange:
		f.DateMode = mode
	}
	if raw := q.Get(ParamYear); raw != "" {
		f.Year = 0
		if y, err := strconv.Atoi(raw); err == nil && validYear(y, now) {
			f.Year = y
		}
	}
	if raw := q.Get(ParamMonth); raw != "" {
		f.Month = 0
		if m, err := strconv.Atoi(raw); err == nil && m >= 1 && m <= 12 {
			f.Month = m
		}
	}
	f.From = strings.TrimSpace(q.Get(ParamFrom))
	f.To = strings.TrimSpace(q.Get(ParamTo))
	for _, key := range AdvancedFilterKeys {
		if v := strings.TrimSpace(q.Get(key)); v != "" {
			f.Exact[key] = v
		}
	}
	return f
}

func validYear(y int, now time.Time) bool {
	return y >= 1900 && y <= now.Year()+10
}

// Values encodes the filter for links. Defaults are omitted.
func (f StageFilter) Values() url.Values {
	q := url.Values{}
	if f.Search != "" {
		q.Set(ParamSearch, f.Search)
	}
	if f.DateMode != "" && f.DateMode != DateFilterNone {
		q.Set(ParamDateMode, f.DateMode)
		switch f.DateMode {
		case DateFilterYear:
			q.Set(ParamYear, strconv.Itoa(f.Year))
		case DateFilterMonth:
			q.Set(ParamYear, strconv.Itoa(f.Year))
			q.Set(ParamMonth, strconv.Itoa(f.Month))
		case DateFilterRange:
			q.Set(ParamFrom, f.From)
			q.Set(ParamTo, f.To)
		}
	}
	for _, key := range AdvancedFilterKeys {
		if v := f.Exact[key]; v != "" {
			q.Set(key, v)
		}
	}
	return q
}

// Apply returns the stages matching every part of the filter, in order.
func (f StageFilter) Apply(stages []models.Stage) []models.Stage {
	return lo.Filter(stages, func(s models.Stage, _ int) bool { return f.Match(s) })
}

// Match reports whether s passes the filter.
func (f StageFilter) Match(s models.Stage) bool {
	if !s.MatchesSearch(f.Search) {
		return false
	}
	if !f.matchDate(s.DateDebut) {
		return false
	}
	for key, want := range f.Exact {
		if want == "" {
			continue
		}
		got, _ := s.Field(key).(string)
		if got != want {
			return false
		}
	}
	return true
}

// matchDate applies the date filter. Incomplete date inputs disable it, and
// a stage without a start date fails any active date filter.
func (f StageFilter) matchDate(start models.Date) bool {
	switch f.DateMode {
	case DateFilterYear:
		if f.Year == 0 {
			return true
		}
		return !start.IsZero() && start.Year() == f.Year
	case DateFilterMonth:
		if f.Year == 0 || f.Month == 0 {
			return true
		}
		return !start.IsZero() && start.Year() == f.Year && int(start.Month()) == f.Month
	case DateFilterRange:
		from, errFrom := models.ParseDate(f.From)
		to, errTo := models.ParseDate(f.To)
		if errFrom != nil || errTo != nil || from.IsZero() || to.IsZero() {
			return true
		}
		return !start.IsZero() && !start.Before(from.Time) && !start.After(to.Time)
	default:
		return true
	}
}

// DateActive reports whether a date filter mode is selected.
func (f StageFilter) DateActive() bool {
	return f.DateMode != "" && f.DateMode != DateFilterNone
}

// ActiveCount is the badge number of the advanced filter button.
func (f StageFilter) ActiveCount() int {
	n := len(lo.PickBy(f.Exact, func(_ string, v string) bool { return v != "" }))
	if f.DateActive() {
		n++
	}
	return n
}

// DateLabel is the chip text of the date filter, or "" when inactive.
func (f StageFilter) DateLabel() string {
	switch f.DateMode {
	case DateFilterYear:
		return fmt.Sprintf("Année: %d", f.Year)
	case DateFilterMonth:
		return fmt.Sprintf("Mois: %s %d", monthName(f.Month), f.Year)
	case DateFilterRange:
		return fmt.Sprintf("Période: %s → %s", f.From, f.To)
	default:
		return ""
	}
}

// FieldLabels are the chip texts of the active exact filters, in display order.
func (f StageFilter) FieldLabels() []string {
	return lo.FilterMap(AdvancedFilterKeys, func(key string, _ int) (string, bool) {
		v := f.Exact[key]
		if v == "" {
			return "", false
		}
		return FilterLabel(key, v), true
	})
}

// FilterLabel renders one exact filter for display.
func FilterLabel(key, value string) string {
	switch key {
	case "type_stage":
		return "Type: " + value
	case "direction":
		return "Direction: " + orgunit.DirectionFullName(value)
	case "division":
		return "Division: " + value
	case "unite":
		return "Unité: " + value
	case "service":
		return "Section: " + value
	case "statut":
		return "Statut: " + value
	default:
		return key + ": " + value
	}
}

// ExportTitle is the heading of an exported stage list, naming the active
// filters.
func (f StageFilter) ExportTitle() string {
	var parts []string
	switch f.DateMode {
	case DateFilterYear:
		parts = append(parts, fmt.Sprintf("Année %d", f.Year))
	case DateFilterMonth:
		parts = append(parts, fmt.Sprintf("%s %d", monthName(f.Month), f.Year))
	case DateFilterRange:
		parts = append(parts, fmt.Sprintf("Du %s au %s", f.From, f.To))
	}
	parts = append(parts, f.FieldLabels()...)
	if len(parts) == 0 {
		return StageListTitle
	}
	return StageListTitle + " - Filtres: " + strings.Join(parts, " | ")
}

func monthName(m int) string {
	if m < 1 || m > 12 {
		return ""
	}
	return MonthNames[m-1]
}
