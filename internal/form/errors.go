// Package form holds the server-side state of the record forms: values,
// per-field errors, step navigation and submission against the backend.
package form

import (
	"github.com/noah-isme/stages-admin/internal/backend"
	appErrors "github.com/noah-isme/stages-admin/pkg/errors"
)

// FieldErrors maps an input name to its message. At most one message is
// kept per field.
type FieldErrors map[string]string

// Get returns the message for field, or "".
func (f FieldErrors) Get(field string) string { return f[field] }

// Has reports whether field carries an error.
func (f FieldErrors) Has(field string) bool { return f[field] != "" }

// Feedback is the error state every form carries: field messages plus one
// form-level banner.
type Feedback struct {
	Errors    FieldErrors `json:"errors,omitempty"`
	FormError string      `json:"form_error,omitempty"`
}

// Valid reports whether no field error is recorded.
func (f *Feedback) Valid() bool { return len(f.Errors) == 0 }

// Reset drops every error.
func (f *Feedback) Reset() {
	f.Errors = FieldErrors{}
	f.FormError = ""
}

func (f *Feedback) setField(field, msg string) {
	if f.Errors == nil {
		f.Errors = FieldErrors{}
	}
	f.Errors[field] = msg
}

// touch clears the error of an edited field along with the banner.
func (f *Feedback) touch(field string) {
	delete(f.Errors, field)
	f.FormError = ""
}

// ApplyAPIError records a failed submission. Field errors sent by the
// backend win over any generic message; "__all__" and "non_field_errors"
// become the banner. Network and server failures only set the banner.
func (f *Feedback) ApplyAPIError(err error) {
	if err == nil {
		return
	}
	f.Reset()
	apiErr, ok := backend.AsAPIError(err)
	if !ok {
		f.FormError = appErrors.FromError(err).Message
		return
	}
	if apiErr.Status >= 500 {
		f.FormError = appErrors.ErrBackendFailure.Message
		return
	}
	if fields := apiErr.FieldErrors(); len(fields) > 0 {
		for field, msg := range fields {
			f.setField(field, msg)
		}
		f.FormError = apiErr.General()
		return
	}
	f.FormError = appErrors.FromError(err).Message
}

func errMessage(err error) string { return appErrors.FromError(err).Message }
