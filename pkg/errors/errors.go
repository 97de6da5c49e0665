package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Err     error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches errors sharing the same code so clones still compare equal to
// their predefined source.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) || e == nil || t == nil {
		return false
	}
	return e.Code == t.Code
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Predefined errors for common scenarios.
var (
	ErrInvalidCredentials = New("INVALID_CREDENTIALS", http.StatusUnauthorized, "Identifiants invalides")
	ErrNotFound           = New("NOT_FOUND", http.StatusNotFound, "Ressource introuvable")
	ErrForbidden          = New("FORBIDDEN", http.StatusForbidden, "Accès refusé")
	ErrUnauthorized       = New("UNAUTHORIZED", http.StatusUnauthorized, "Authentification requise")
	ErrValidation         = New("VALIDATION_ERROR", http.StatusBadRequest, "Données invalides")
	ErrInternal           = New("INTERNAL_ERROR", http.StatusInternalServerError, "Erreur interne du serveur")
	ErrCacheMiss          = New("CACHE_MISS", http.StatusNotFound, "cache miss")
	ErrBackendUnavailable = New("BACKEND_UNAVAILABLE", http.StatusBadGateway, "Erreur de connexion réseau ou du serveur.")
	ErrBackendFailure     = New("BACKEND_FAILURE", http.StatusBadGateway, "Une erreur est survenue, veuillez réessayer plus tard.")
	ErrActionDisabled     = New("ACTION_DISABLED", http.StatusConflict, "Action indisponible pour cet élément")
	ErrExportEmpty        = New("EXPORT_EMPTY", http.StatusBadRequest, "Aucune donnée à exporter.")
	ErrNoColumns          = New("NO_COLUMNS", http.StatusBadRequest, "Sélectionnez au moins une colonne à exporter.")
)

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}
