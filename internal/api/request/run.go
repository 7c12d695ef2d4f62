// Package request parses and validates operator API request parameters.
package request

import (
	"strconv"

	"github.com/ndewijer/Household-Ledger-Backend/internal/validation"
)

// ParseRunLimit parses the limit query parameter of a run listing.
// An empty value returns validation.DefaultRunLimit.
func ParseRunLimit(limitParam string) (int, error) {
	if limitParam == "" {
		return validation.DefaultRunLimit, nil
	}
	limit, err := strconv.Atoi(limitParam)
	if err != nil {
		return 0, &validation.Error{Fields: map[string]string{"limit": "must be an integer"}}
	}
	if err := validation.ValidateRunLimit(limit); err != nil {
		return 0, err
	}
	return limit, nil
}
