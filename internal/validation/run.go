package validation

// Bounds of the run listing page size.
const (
	DefaultRunLimit = 20
	MaxRunLimit     = 200
)

// ValidateRunLimit checks the page size of a run listing.
func ValidateRunLimit(limit int) error {
	if limit < 1 || limit > MaxRunLimit {
		return fieldError("limit", "must be between 1 and %d", MaxRunLimit)
	}
	return nil
}
