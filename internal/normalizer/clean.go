package normalizer

import (
	"errors"
	"fmt"
	"strings"

	"congressd/internal/models"
	"congressd/pkg/dates"
)

// Cleanup errors.
var (
	ErrInvalidDate    = errors.New("invalid calendar date")
	ErrDateTooEarly   = errors.New("date precedes the 1st Congress")
	ErrInvalidChamber = errors.New("chamber must be one of: house, senate, joint")
)

// chamberKeys are attribute names holding chamber values anywhere in
// a record's extras; their values are normalized and checked.
var chamberKeys = map[string]bool{
	"chamber":        true,
	"origin_chamber": true,
}

// dateKeySuffix marks extras attributes holding calendar dates.
const dateKeySuffix = "_date"

// normalizeDate converts an upstream ISO-8601 timestamp or calendar
// date into canonical YYYY-MM-DD form, rejecting invalid calendars
// and dates before the 1st Congress.
func normalizeDate(s string) (string, error) {
	t, err := dates.ParseTimestamp(s)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}

	if t.Before(models.MinRecordDate) {
		return "", fmt.Errorf("%w: %q", ErrDateTooEarly, s)
	}

	return dates.Format(t), nil
}

// normalizeChamber lowercases a chamber tag and checks the enum.
func normalizeChamber(s string) (string, error) {
	c := strings.ToLower(strings.TrimSpace(s))
	switch c {
	case models.ChamberHouse, models.ChamberSenate, models.ChamberJoint:
		return c, nil
	default:
		return "", fmt.Errorf("%w: got %q", ErrInvalidChamber, s)
	}
}

// cleanExtras trims every string, drops empty and null values, and
// normalizes chamber and *_date attributes wherever they appear.
// A chamber or date that fails normalization aborts the cleanup.
func cleanExtras(extras map[string]any) (map[string]any, error) {
	cleaned, err := cleanMap(extras)
	if err != nil {
		return nil, err
	}

	if cleaned == nil {
		cleaned = map[string]any{}
	}

	return cleaned, nil
}

// cleanMap returns nil when everything inside was empty.
func cleanMap(m map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(m))

	for key, value := range m {
		cleanedValue, err := cleanValue(key, value)
		if err != nil {
			return nil, err
		}

		if cleanedValue != nil {
			out[key] = cleanedValue
		}
	}

	if len(out) == 0 {
		return nil, nil
	}

	return out, nil
}

func cleanValue(key string, value any) (any, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil

	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return nil, nil
		}

		if chamberKeys[key] {
			return normalizeChamber(s)
		}

		if strings.HasSuffix(key, dateKeySuffix) || key == "date" {
			return normalizeDate(s)
		}

		return s, nil

	case map[string]any:
		cleaned, err := cleanMap(v)
		if err != nil {
			return nil, err
		}

		if cleaned == nil {
			return nil, nil
		}

		return cleaned, nil

	case []any:
		out := make([]any, 0, len(v))

		for _, item := range v {
			cleanedItem, err := cleanValue("", item)
			if err != nil {
				return nil, err
			}

			if cleanedItem != nil {
				out = append(out, cleanedItem)
			}
		}

		if len(out) == 0 {
			return nil, nil
		}

		return out, nil

	default:
		// Numbers and booleans pass through unchanged.
		return v, nil
	}
}
