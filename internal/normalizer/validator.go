package normalizer

import (
	"errors"
	"fmt"
	"strings"

	"congressd/internal/models"
	"congressd/pkg/dates"
)

// Canonical record validation errors.
var (
	ErrMissingID         = errors.New("record has no id")
	ErrMissingType       = errors.New("record has no family type")
	ErrInvalidCongress   = errors.New("congress must be a positive integer")
	ErrCongressRange     = errors.New("congress outside plausible range")
	ErrMissingUpdateDate = errors.New("record has no update_date")
	ErrInvalidVersion    = errors.New("version must be at least 1")
	ErrInsecureURL       = errors.New("url must be https")
	ErrEmptyExtra        = errors.New("empty value in extras")
)

// maxPlausibleCongress bounds the congress ordinal; a new Congress
// convenes every two years, so this holds well past 2075.
const maxPlausibleCongress = 150

// Validator checks canonical record invariants.
type Validator struct{}

// NewValidator creates a new validator instance.
func NewValidator() *Validator {
	return &Validator{}
}

// Validate checks every invariant a canonical record must hold:
// required core fields, calendar-date bounds, HTTPS URLs, and the
// absence of empty values in extras.
func (v *Validator) Validate(record *models.Record) error {
	if strings.TrimSpace(record.ID) == "" {
		return ErrMissingID
	}

	if record.Type == "" {
		return ErrMissingType
	}

	if record.Congress < 1 {
		return ErrInvalidCongress
	}

	if record.Congress > maxPlausibleCongress {
		return fmt.Errorf("%w: %d", ErrCongressRange, record.Congress)
	}

	if record.UpdateDate == "" {
		return ErrMissingUpdateDate
	}

	t, err := dates.Parse(record.UpdateDate)
	if err != nil {
		return fmt.Errorf("update_date: %w", err)
	}

	if t.Before(models.MinRecordDate) {
		return fmt.Errorf("update_date: %w: %s", ErrDateTooEarly, record.UpdateDate)
	}

	if record.Version < 1 {
		return ErrInvalidVersion
	}

	if record.URL != "" && !strings.HasPrefix(record.URL, "https://") {
		return fmt.Errorf("%w: %s", ErrInsecureURL, record.URL)
	}

	return validateExtras(record.Extras)
}

// validateExtras rejects empty strings and nils anywhere in extras.
// cleanExtras should have removed them; this guards the writer path.
func validateExtras(value any) error {
	switch v := value.(type) {
	case nil:
		return ErrEmptyExtra

	case string:
		if strings.TrimSpace(v) == "" {
			return ErrEmptyExtra
		}

		if v != strings.TrimSpace(v) {
			return fmt.Errorf("%w: untrimmed string %q", ErrEmptyExtra, v)
		}

	case map[string]any:
		for key, item := range v {
			if err := validateExtras(item); err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
		}

	case []any:
		for _, item := range v {
			if err := validateExtras(item); err != nil {
				return err
			}
		}
	}

	return nil
}
