package backend

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"

	appErrors "github.com/noah-isme/stages-admin/pkg/errors"
)

// Kind tags the shape of a backend error body.
type Kind int

const (
	// KindUnknown is an empty, non-JSON or unrecognised body.
	KindUnknown Kind = iota
	// KindMessage is {"error": "..."} or {"message": "..."}.
	KindMessage
	// KindFormErrors is {"form_errors": {"field": ["..."]}}.
	KindFormErrors
	// KindFieldErrors is a bare {"field": ["..."]} map.
	KindFieldErrors
)

func (k Kind) String() string {
	switch k {
	case KindMessage:
		return "message"
	case KindFormErrors:
		return "form_errors"
	case KindFieldErrors:
		return "field_errors"
	default:
		return "unknown"
	}
}

// Field keys the backend uses for errors not tied to one input.
var generalFields = []string{"__all__", "non_field_errors"}

// APIError is a parsed non-success backend response.
type APIError struct {
	Status  int
	Kind    Kind
	Message string
	Fields  map[string][]string
}

func (e *APIError) Error() string {
	if msg := e.General(); msg != "" {
		return fmt.Sprintf("backend %d: %s", e.Status, msg)
	}
	if len(e.Fields) > 0 {
		return fmt.Sprintf("backend %d: invalid fields %s", e.Status, strings.Join(e.fieldNames(), ", "))
	}
	return fmt.Sprintf("backend %d", e.Status)
}

// FieldErrors returns one message per input field, multiple messages joined.
// General entries are excluded; see General.
func (e *APIError) FieldErrors() map[string]string {
	out := make(map[string]string, len(e.Fields))
	for field, msgs := range e.Fields {
		if isGeneral(field) || len(msgs) == 0 {
			continue
		}
		out[field] = strings.Join(msgs, ", ")
	}
	return out
}

// General is the form-level message: the explicit message, else the joined
// "__all__" and "non_field_errors" entries.
func (e *APIError) General() string {
	if e.Message != "" {
		return e.Message
	}
	var parts []string
	for _, key := range generalFields {
		parts = append(parts, e.Fields[key]...)
	}
	return strings.Join(parts, ", ")
}

func (e *APIError) fieldNames() []string {
	names := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func isGeneral(field string) bool {
	for _, g := range generalFields {
		if field == g {
			return true
		}
	}
	return false
}

// ParseErrorBody classifies a backend error body. The precedence is a
// top-level "error"/"message" string, then a "form_errors" object, then a
// bare field map.
func ParseErrorBody(status int, body []byte) *APIError {
	apiErr := &APIError{Status: status, Kind: KindUnknown}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil || len(raw) == 0 {
		return apiErr
	}

	for _, key := range []string{"error", "message"} {
		var msg string
		if v, ok := raw[key]; ok && json.Unmarshal(v, &msg) == nil && msg != "" {
			apiErr.Kind = KindMessage
			apiErr.Message = msg
			return apiErr
		}
	}

	if v, ok := raw["form_errors"]; ok {
		var nested map[string]json.RawMessage
		if json.Unmarshal(v, &nested) == nil {
			if fields := decodeFields(nested); len(fields) > 0 {
				apiErr.Kind = KindFormErrors
				apiErr.Fields = fields
				return apiErr
			}
		}
	}

	if fields := decodeFields(raw); len(fields) > 0 {
		apiErr.Kind = KindFieldErrors
		apiErr.Fields = fields
	}
	return apiErr
}

// decodeFields keeps entries whose value is a string or a list of strings.
// Django sometimes sends {"field": [{"message": "...", "code": "..."}]};
// those are flattened too.
func decodeFields(raw map[string]json.RawMessage) map[string][]string {
	fields := make(map[string][]string)
	for key, v := range raw {
		var one string
		if json.Unmarshal(v, &one) == nil {
			if one != "" {
				fields[key] = []string{one}
			}
			continue
		}
		var many []string
		if json.Unmarshal(v, &many) == nil {
			if len(many) > 0 {
				fields[key] = many
			}
			continue
		}
		var detailed []struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(v, &detailed) == nil {
			for _, d := range detailed {
				if d.Message != "" {
					fields[key] = append(fields[key], d.Message)
				}
			}
		}
	}
	return fields
}

// statusError converts a non-success response into the application error
// taxonomy. The APIError stays reachable through errors.As.
func statusError(apiErr *APIError) error {
	msg := apiErr.General()
	switch {
	case apiErr.Status >= http.StatusInternalServerError:
		return appErrors.Wrap(apiErr, appErrors.ErrBackendFailure.Code, appErrors.ErrBackendFailure.Status, appErrors.ErrBackendFailure.Message)
	case apiErr.Status == http.StatusUnauthorized:
		return appErrors.Wrap(apiErr, appErrors.ErrUnauthorized.Code, http.StatusUnauthorized, orDefault(msg, appErrors.ErrUnauthorized.Message))
	case apiErr.Status == http.StatusForbidden:
		return appErrors.Wrap(apiErr, appErrors.ErrForbidden.Code, http.StatusForbidden, orDefault(msg, appErrors.ErrForbidden.Message))
	case apiErr.Status == http.StatusNotFound:
		return appErrors.Wrap(apiErr, appErrors.ErrNotFound.Code, http.StatusNotFound, orDefault(msg, appErrors.ErrNotFound.Message))
	default:
		fallback := fmt.Sprintf("Échec de la sauvegarde (Statut %d).", apiErr.Status)
		if len(apiErr.FieldErrors()) > 0 {
			fallback = appErrors.ErrValidation.Message
		}
		return appErrors.Wrap(apiErr, appErrors.ErrValidation.Code, http.StatusBadRequest, orDefault(msg, fallback))
	}
}

// AsAPIError extracts the parsed body from an error returned by the client.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
