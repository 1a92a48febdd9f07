// Package export streams stored records for one family out of the
// store as JSON or CSV.
package export

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"

	"congressd/internal/logger"
	"congressd/internal/models"
	"congressd/internal/store"
)

// TypeIndex is the secondary index keyed on (type, update_date).
const TypeIndex = "type-update_date-index"

// Format selects the export encoding.
type Format string

// Supported export formats.
const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

// ErrUnknownFormat is returned for formats other than json and csv.
var ErrUnknownFormat = errors.New("format must be 'json' or 'csv'")

// ParseFormat converts a format string into a Format.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatJSON, FormatCSV:
		return Format(s), nil
	default:
		return "", fmt.Errorf("%w: got %q", ErrUnknownFormat, s)
	}
}

// priorityColumns lead the CSV header; every other attribute follows
// alphabetically.
var priorityColumns = []string{"id", "type", "congress", "update_date", "title", "number", "chamber"}

// Options selects what to export. From and To, when set, bound
// update_date (inclusive, YYYY-MM-DD).
type Options struct {
	Family models.Family
	From   string
	To     string
	Format Format
}

// Exporter reads records back out of the store.
type Exporter struct {
	store store.Store
	log   *logger.Logger
}

// New creates an exporter over the given store.
func New(st store.Store, log *logger.Logger) *Exporter {
	return &Exporter{store: st, log: log}
}

// Export writes every matching record to w in the requested format and
// reports how many records it wrote.
func (e *Exporter) Export(ctx context.Context, w io.Writer, opts Options) (int, error) {
	items, err := e.collect(ctx, opts)
	if err != nil {
		return 0, err
	}

	e.log.Info("exporting records",
		"family", string(opts.Family),
		"count", len(items),
		"format", string(opts.Format),
	)

	switch opts.Format {
	case FormatCSV:
		return len(items), writeCSV(w, items)
	case FormatJSON:
		return len(items), writeJSON(w, items)
	default:
		return 0, fmt.Errorf("%w: got %q", ErrUnknownFormat, string(opts.Format))
	}
}

func (e *Exporter) collect(ctx context.Context, opts Options) ([]map[string]any, error) {
	query := store.Query{
		Index:     TypeIndex,
		HashKey:   "type",
		HashValue: string(opts.Family),
	}

	if opts.From != "" && opts.To != "" {
		query.RangeKey = "update_date"
		query.RangeFrom = opts.From
		query.RangeTo = opts.To
	}

	var items []map[string]any

	err := e.store.QueryPrefix(ctx, query, func(item map[string]any) error {
		items = append(items, item)

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("export query: %w", err)
	}

	return items, nil
}

func writeJSON(w io.Writer, items []map[string]any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	if items == nil {
		items = []map[string]any{}
	}

	return enc.Encode(items)
}

func writeCSV(w io.Writer, items []map[string]any) error {
	columns := csvColumns(items)

	cw := csv.NewWriter(w)
	if err := cw.Write(columns); err != nil {
		return err
	}

	for _, item := range items {
		row := make([]string, len(columns))
		for i, col := range columns {
			row[i] = renderCell(item[col])
		}

		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()

	return cw.Error()
}

// csvColumns returns the priority columns present in the data followed
// by every remaining attribute in alphabetical order.
func csvColumns(items []map[string]any) []string {
	seen := make(map[string]bool)
	for _, item := range items {
		for key := range item {
			seen[key] = true
		}
	}

	columns := make([]string, 0, len(seen))

	for _, col := range priorityColumns {
		if seen[col] {
			columns = append(columns, col)
			delete(seen, col)
		}
	}

	rest := make([]string, 0, len(seen))
	for key := range seen {
		rest = append(rest, key)
	}

	sort.Strings(rest)

	return append(columns, rest...)
}

// renderCell flattens one attribute value for CSV. Nested structures
// become compact JSON.
func renderCell(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case map[string]any, []any:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}

		return string(data)
	default:
		return fmt.Sprintf("%v", v)
	}
}
