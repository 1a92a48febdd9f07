package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"testing"

	"congressd/internal/logger"
	"congressd/internal/models"
	"congressd/internal/store"
)

func seededStore(t *testing.T) *store.MemoryStore {
	t.Helper()

	st := store.NewMemoryStore()
	ctx := context.Background()

	records := []*models.Record{
		{
			ID: "118-hr-1", Type: models.FamilyBill, Congress: 118,
			UpdateDate: "2024-01-10", Version: 1,
			Extras: map[string]any{"title": "First", "bill_number": "1"},
		},
		{
			ID: "118-hr-2", Type: models.FamilyBill, Congress: 118,
			UpdateDate: "2024-02-10", Version: 1,
			Extras: map[string]any{"title": "Second, with comma", "chamber": "house"},
		},
		{
			ID: "118-nom-1", Type: models.FamilyNomination, Congress: 118,
			UpdateDate: "2024-01-15", Version: 1,
		},
	}

	for _, r := range records {
		if err := st.PutItem(ctx, r); err != nil {
			t.Fatalf("Seed failed: %v", err)
		}
	}

	return st
}

func newTestExporter(t *testing.T) *Exporter {
	t.Helper()

	return New(seededStore(t), logger.NewLogger("error"))
}

func TestExport_JSON(t *testing.T) {
	e := newTestExporter(t)

	var buf bytes.Buffer

	count, err := e.Export(context.Background(), &buf, Options{
		Family: models.FamilyBill,
		Format: FormatJSON,
	})
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	if count != 2 {
		t.Errorf("Expected 2 records, got %d", count)
	}

	var items []map[string]any
	if err := json.Unmarshal(buf.Bytes(), &items); err != nil {
		t.Fatalf("Output is not valid JSON: %v", err)
	}

	if len(items) != 2 || items[0]["id"] != "118-hr-1" {
		t.Errorf("Unexpected items: %v", items)
	}
}

func TestExport_JSON_EmptyResult(t *testing.T) {
	e := newTestExporter(t)

	var buf bytes.Buffer

	count, err := e.Export(context.Background(), &buf, Options{
		Family: models.FamilyTreaty,
		Format: FormatJSON,
	})
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	if count != 0 {
		t.Errorf("Expected 0 records, got %d", count)
	}

	var items []map[string]any
	if err := json.Unmarshal(buf.Bytes(), &items); err != nil {
		t.Fatalf("Expected an empty JSON array, got: %s", buf.String())
	}
}

func TestExport_CSV_ColumnOrder(t *testing.T) {
	e := newTestExporter(t)

	var buf bytes.Buffer

	if _, err := e.Export(context.Background(), &buf, Options{
		Family: models.FamilyBill,
		Format: FormatCSV,
	}); err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	reader := csv.NewReader(&buf)

	rows, err := reader.ReadAll()
	if err != nil {
		t.Fatalf("Output is not valid CSV: %v", err)
	}

	if len(rows) != 3 {
		t.Fatalf("Expected header + 2 rows, got %d", len(rows))
	}

	header := rows[0]

	// Priority columns first, remaining attributes alphabetical.
	want := []string{"id", "type", "congress", "update_date", "title", "chamber", "bill_number", "version"}
	if len(header) != len(want) {
		t.Fatalf("Expected header %v, got %v", want, header)
	}

	for i, col := range want {
		if header[i] != col {
			t.Errorf("Column %d: expected %s, got %s", i, col, header[i])
		}
	}

	// Values land under their columns, including the quoted comma case.
	if rows[2][4] != "Second, with comma" {
		t.Errorf("Expected quoted title round-trip, got %q", rows[2][4])
	}

	if rows[1][6] != "1" {
		t.Errorf("Expected bill_number 1, got %q", rows[1][6])
	}
}

func TestExport_DateRange(t *testing.T) {
	e := newTestExporter(t)

	var buf bytes.Buffer

	count, err := e.Export(context.Background(), &buf, Options{
		Family: models.FamilyBill,
		Format: FormatJSON,
		From:   "2024-01-01",
		To:     "2024-01-31",
	})
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	if count != 1 {
		t.Errorf("Expected 1 record in January, got %d", count)
	}
}

func TestParseFormat(t *testing.T) {
	if _, err := ParseFormat("json"); err != nil {
		t.Errorf("Expected json accepted: %v", err)
	}

	if _, err := ParseFormat("xml"); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("Expected ErrUnknownFormat, got %v", err)
	}
}
