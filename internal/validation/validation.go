// Package validation checks operator API input before it reaches a service.
package validation

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/ndewijer/Household-Ledger-Backend/internal/apperrors"
)

// Error reports invalid request fields by name.
type Error struct {
	Fields map[string]string
}

// fieldError builds an Error for a single field.
func fieldError(field, format string, args ...any) *Error {
	return &Error{Fields: map[string]string{field: fmt.Sprintf(format, args...)}}
}

// Error lists the fields in name order so messages are stable.
func (e *Error) Error() string {
	fields := make([]string, 0, len(e.Fields))
	for field := range e.Fields {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	msgs := make([]string, len(fields))
	for i, field := range fields {
		msgs[i] = field + ": " + e.Fields[field]
	}
	return strings.Join(msgs, "; ")
}

// ValidateUUID checks that id is a UUID, as used for run IDs.
func ValidateUUID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: %s", apperrors.ErrInvalidUUID, id)
	}
	return nil
}
