// Package normalizer converts raw upstream records into canonical
// records, or rejects them with a recorded reason. Processing is a
// pure function of its input: no I/O, safe for concurrent use, and
// idempotent.
package normalizer

import (
	"fmt"
	"sort"
	"strings"

	"congressd/internal/models"
)

// RejectionError reports why a raw record failed normalization.
type RejectionError struct {
	Family models.Family
	Fields []string
	Reason string
}

// Error implements the error interface.
func (e *RejectionError) Error() string {
	if len(e.Fields) > 0 {
		return fmt.Sprintf("invalid %s record: missing or invalid fields: %s",
			e.Family, strings.Join(e.Fields, ", "))
	}

	return fmt.Sprintf("invalid %s record: %s", e.Family, e.Reason)
}

// Processor normalizes raw records for every family.
type Processor struct {
	validator *Validator
}

// NewProcessor creates a new processor instance.
func NewProcessor() *Processor {
	return &Processor{
		validator: NewValidator(),
	}
}

// Process converts one raw upstream record into a canonical record.
// Failures return a *RejectionError naming the offending fields.
func (p *Processor) Process(family models.Family, raw map[string]any) (*models.Record, error) {
	build, ok := builders[family]
	if !ok {
		return nil, &RejectionError{Family: family, Reason: "no extraction rules for family"}
	}

	r := newRawView(raw)
	ext := build(r)

	if !ext.hasCongress {
		// Required for every record; the schema default applies when
		// upstream omits it.
		ext.congress = 1
	}

	record := &models.Record{
		ID:       ext.id,
		Type:     family,
		Congress: ext.congress,
		Version:  models.SchemaVersion,
	}

	updateDate := r.str("updateDate", "update_date", "updateDateIncludingText")
	if updateDate == "" {
		ext.missing = append(ext.missing, "update_date")
	} else {
		normalized, err := normalizeDate(updateDate)
		if err != nil {
			return nil, &RejectionError{Family: family, Fields: []string{"update_date"}, Reason: err.Error()}
		}

		record.UpdateDate = normalized
	}

	if url := r.str("url"); strings.HasPrefix(url, "https://") {
		record.URL = url
	}

	if len(ext.missing) > 0 {
		sort.Strings(ext.missing)

		return nil, &RejectionError{Family: family, Fields: dedupeFields(ext.missing)}
	}

	extras, err := cleanExtras(ext.extras)
	if err != nil {
		return nil, &RejectionError{Family: family, Reason: err.Error()}
	}

	record.Extras = extras

	if err := p.validator.Validate(record); err != nil {
		return nil, &RejectionError{Family: family, Reason: err.Error()}
	}

	return record, nil
}

func dedupeFields(fields []string) []string {
	out := fields[:0]

	for i, f := range fields {
		if i == 0 || fields[i-1] != f {
			out = append(out, f)
		}
	}

	return out
}
