package service

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/Skotchmaster/bakery_shop/internal/transport"
)

var (
	ErrNotFound             = errors.New("not found")
	ErrValidation           = errors.New("validation failed")
	ErrConflict             = errors.New("conflict")
	ErrInvalidCredentials   = errors.New("invalid username or password")
	ErrInvalidRefreshToken  = errors.New("invalid refresh token")
	ErrOrderNumberExhausted = errors.New("could not allocate a unique order number")

	// ErrSessionRotated is returned with the session's user, but no new
	// tokens, when a concurrent request already rotated the refresh token.
	ErrSessionRotated = fmt.Errorf("%w: already rotated", ErrInvalidRefreshToken)
)

// ValidationError carries field-level messages back to the form.
type ValidationError struct {
	Fields []transport.FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Field + ": " + f.Message
	}
	return fmt.Sprintf("%s: %s", ErrValidation, strings.Join(parts, "; "))
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// ByField indexes the first message per field for templates.
func (e *ValidationError) ByField() map[string]string {
	out := make(map[string]string, len(e.Fields))
	for _, f := range e.Fields {
		if _, ok := out[f.Field]; !ok {
			out[f.Field] = f.Message
		}
	}
	return out
}

func invalid(field, msg string) *ValidationError {
	return &ValidationError{Fields: []transport.FieldError{{Field: field, Message: msg}}}
}

func notFound(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %s", ErrNotFound, what)
	}
	return err
}
