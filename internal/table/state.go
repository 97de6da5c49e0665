package table

import (
	"net/url"
	"sort"
	"strconv"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
)

// Query parameter names owned by the table.
const (
	ParamPage   = "page"
	ParamExport = "export"
	ParamCols   = "cols"
	ParamDelete = "delete"
)

// State is the interactive part of a table that survives between requests.
// Selected is nil until a selection has been made; a nil selection in export
// mode means every column.
type State struct {
	Page          int
	ExportMode    bool
	Selected      mapset.Set[string]
	PendingDelete string
}

// ParseState reads the table state from query values. Unknown or malformed
// values fall back to defaults.
func ParseState(q url.Values) State {
	st := State{Page: 1}
	if p, err := strconv.Atoi(q.Get(ParamPage)); err == nil && p > 0 {
		st.Page = p
	}
	st.ExportMode = q.Get(ParamExport) == "1"
	if st.ExportMode && q.Has(ParamCols) {
		st.Selected = mapset.NewThreadUnsafeSet[string]()
		for _, key := range strings.Split(q.Get(ParamCols), ",") {
			if key = strings.TrimSpace(key); key != "" {
				st.Selected.Add(key)
			}
		}
	}
	st.PendingDelete = strings.TrimSpace(q.Get(ParamDelete))
	return st
}

// Values encodes the state back to query values, omitting defaults.
func (s State) Values() url.Values {
	q := url.Values{}
	if s.Page > 1 {
		q.Set(ParamPage, strconv.Itoa(s.Page))
	}
	if s.ExportMode {
		q.Set(ParamExport, "1")
		if s.Selected != nil {
			keys := s.Selected.ToSlice()
			sort.Strings(keys)
			q.Set(ParamCols, strings.Join(keys, ","))
		}
	}
	if s.PendingDelete != "" {
		q.Set(ParamDelete, s.PendingDelete)
	}
	return q
}
