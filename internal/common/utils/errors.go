// internal/common/utils/errors.go
// Error taxonomy shared by every feature package and its HTTP mapping

package utils

import (
	"errors"
	"log/slog"
	"net/http"
	"sort"
	"strings"
)

// GenericServerError is the only message a client ever sees for a 500.
const GenericServerError = "Server error. Please try again later."

var (
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
	ErrRateLimited  = errors.New("too many requests")
)

// ValidationError carries per-field messages for a rejected payload.
type ValidationError struct {
	Fields map[string][]string
}

// NewValidationError creates an error with a single field message.
func NewValidationError(field, message string) *ValidationError {
	v := &ValidationError{}
	v.Add(field, message)
	return v
}

// Add records a message for field.
func (v *ValidationError) Add(field, message string) {
	if v.Fields == nil {
		v.Fields = make(map[string][]string)
	}
	v.Fields[field] = append(v.Fields[field], message)
}

// Merge copies every message from other under prefix.field.
func (v *ValidationError) Merge(prefix string, other *ValidationError) {
	if other == nil {
		return
	}
	for field, msgs := range other.Fields {
		key := field
		if prefix != "" {
			key = prefix + "." + field
		}
		for _, m := range msgs {
			v.Add(key, m)
		}
	}
}

// HasErrors reports whether any message was recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.Fields) > 0
}

// Err returns v as an error, or nil when it is empty.
func (v *ValidationError) Err() error {
	if !v.HasErrors() {
		return nil
	}
	return v
}

func (v *ValidationError) Error() string {
	keys := make([]string, 0, len(v.Fields))
	for k := range v.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+strings.Join(v.Fields[k], ", "))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// AsValidationError unwraps err into a ValidationError if it is one.
func AsValidationError(err error) (*ValidationError, bool) {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr, true
	}
	var uerr *UnknownFieldsError
	if errors.As(err, &uerr) {
		return uerr.ValidationError(), true
	}
	return nil, false
}

// WriteError maps err onto the HTTP status conventions. Anything that is not
// an expected outcome is logged and answered with an opaque 500.
func WriteError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	if verr, ok := AsValidationError(err); ok {
		ValidationErrorResponse(w, verr)
		return
	}

	var tooLarge *http.MaxBytesError
	switch {
	case errors.Is(err, ErrNotFound):
		ErrorResponse(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, ErrForbidden):
		ErrorResponse(w, "You do not have permission to perform this action", http.StatusForbidden)
	case errors.Is(err, ErrUnauthorized):
		ErrorResponse(w, reason(err, ErrUnauthorized), http.StatusUnauthorized)
	case errors.Is(err, ErrRateLimited):
		ErrorResponse(w, reason(err, ErrRateLimited), http.StatusTooManyRequests)
	case errors.As(err, &tooLarge):
		ErrorResponse(w, "Request body too large", http.StatusRequestEntityTooLarge)
	default:
		logger.ErrorContext(r.Context(), "request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Any("error", err),
		)
		ErrorResponse(w, GenericServerError, http.StatusInternalServerError)
	}
}

// reason strips the ": <sentinel>" suffix left by fmt.Errorf("...: %w", sentinel).
func reason(err, sentinel error) string {
	return strings.TrimSuffix(err.Error(), ": "+sentinel.Error())
}
