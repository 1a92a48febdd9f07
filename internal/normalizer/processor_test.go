package normalizer

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"congressd/internal/models"
)

func rawBill() map[string]any {
	return map[string]any{
		"congress":       118,
		"type":           "HR",
		"number":         "1234",
		"title":          "  An Act of Some Kind  ",
		"originChamber":  "House",
		"introducedDate": "2024-01-15",
		"updateDate":     "2024-03-15T10:30:00Z",
		"url":            "https://api.congress.gov/v3/bill/118/hr/1234",
		"latestAction": map[string]any{
			"text":       "Referred to committee",
			"actionDate": "2024-02-01",
		},
	}
}

func TestProcess_Bill(t *testing.T) {
	p := NewProcessor()

	record, err := p.Process(models.FamilyBill, rawBill())
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	if record.ID != "118-hr-1234" {
		t.Errorf("Expected id '118-hr-1234', got '%s'", record.ID)
	}

	if record.Congress != 118 {
		t.Errorf("Expected congress 118, got %d", record.Congress)
	}

	if record.UpdateDate != "2024-03-15" {
		t.Errorf("Expected update_date 2024-03-15, got '%s'", record.UpdateDate)
	}

	if record.Version != models.SchemaVersion {
		t.Errorf("Expected version %d, got %d", models.SchemaVersion, record.Version)
	}

	if record.Extras["title"] != "An Act of Some Kind" {
		t.Errorf("Expected trimmed title, got %q", record.Extras["title"])
	}

	if record.Extras["origin_chamber"] != "house" {
		t.Errorf("Expected lowercased chamber, got %q", record.Extras["origin_chamber"])
	}

	action, ok := record.Extras["latest_action"].(map[string]any)
	if !ok || action["action_date"] != "2024-02-01" {
		t.Errorf("Latest action wrong: %v", record.Extras["latest_action"])
	}
}

func TestProcess_Idempotent(t *testing.T) {
	p := NewProcessor()

	first, err := p.Process(models.FamilyBill, rawBill())
	if err != nil {
		t.Fatalf("First pass failed: %v", err)
	}

	// Re-processing a raw view of the canonical output changes nothing.
	again := first.Item()
	again["updateDate"] = first.UpdateDate

	second, err := p.Process(models.FamilyBill, again)
	if err != nil {
		t.Fatalf("Second pass failed: %v", err)
	}

	if second.ID != first.ID || second.UpdateDate != first.UpdateDate || second.Congress != first.Congress {
		t.Errorf("Second pass diverged: %+v vs %+v", second, first)
	}
}

func TestProcess_MissingFields(t *testing.T) {
	p := NewProcessor()

	_, err := p.Process(models.FamilyBill, map[string]any{
		"congress":   118,
		"updateDate": "2024-03-15",
	})
	if err == nil {
		t.Fatal("Expected rejection, got nil")
	}

	var rej *RejectionError
	if !errors.As(err, &rej) {
		t.Fatalf("Expected RejectionError, got %T", err)
	}

	want := []string{"bill_number", "bill_type"}
	if !reflect.DeepEqual(rej.Fields, want) {
		t.Errorf("Expected fields %v, got %v", want, rej.Fields)
	}
}

func TestProcess_InvalidBillType(t *testing.T) {
	p := NewProcessor()

	raw := rawBill()
	raw["type"] = "xyz"

	_, err := p.Process(models.FamilyBill, raw)
	if err == nil {
		t.Fatal("Expected rejection for unknown bill type")
	}
}

func TestProcess_InvalidChamberRejected(t *testing.T) {
	p := NewProcessor()

	raw := rawBill()
	raw["originChamber"] = "Plenary"

	_, err := p.Process(models.FamilyBill, raw)
	if err == nil {
		t.Fatal("Expected rejection for invalid chamber, got nil")
	}

	if !strings.Contains(err.Error(), "chamber") {
		t.Errorf("Expected chamber in rejection reason, got: %v", err)
	}
}

func TestProcess_DateBeforeFirstCongress(t *testing.T) {
	p := NewProcessor()

	raw := rawBill()
	raw["updateDate"] = "1700-01-01"

	_, err := p.Process(models.FamilyBill, raw)
	if err == nil {
		t.Fatal("Expected rejection for date before the 1st Congress")
	}
}

func TestProcess_MissingUpdateDate(t *testing.T) {
	p := NewProcessor()

	raw := rawBill()
	delete(raw, "updateDate")

	_, err := p.Process(models.FamilyBill, raw)

	var rej *RejectionError
	if !errors.As(err, &rej) {
		t.Fatalf("Expected RejectionError, got %v", err)
	}

	if len(rej.Fields) != 1 || rej.Fields[0] != "update_date" {
		t.Errorf("Expected update_date missing, got %v", rej.Fields)
	}
}

func TestProcess_CongressDefaultsToOne(t *testing.T) {
	p := NewProcessor()

	record, err := p.Process(models.FamilyMember, map[string]any{
		"bioguideId": "A000360",
		"name":       "Doe, Jane",
		"updateDate": "2024-03-15",
	})
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	if record.Congress != 1 {
		t.Errorf("Expected congress default 1, got %d", record.Congress)
	}
}

func TestProcess_InsecureURLDropped(t *testing.T) {
	p := NewProcessor()

	raw := rawBill()
	raw["url"] = "http://api.congress.gov/v3/bill/118/hr/1234"

	record, err := p.Process(models.FamilyBill, raw)
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	if record.URL != "" {
		t.Errorf("Expected insecure URL dropped, got %q", record.URL)
	}
}

func TestProcess_UnknownFamily(t *testing.T) {
	p := NewProcessor()

	if _, err := p.Process(models.Family("made-up"), map[string]any{}); err == nil {
		t.Fatal("Expected rejection for unknown family")
	}
}

func TestProcess_IDConstruction(t *testing.T) {
	cases := []struct {
		family models.Family
		raw    map[string]any
		wantID string
	}{
		{
			family: models.FamilyNomination,
			raw: map[string]any{
				"congress":   118,
				"number":     "467",
				"updateDate": "2024-03-15",
			},
			wantID: "118-nom-467",
		},
		{
			family: models.FamilyTreaty,
			raw: map[string]any{
				"congressReceived": 117,
				"number":           "3",
				"suffix":           "A",
				"updateDate":       "2024-03-15",
			},
			wantID: "117-treaty-3a",
		},
		{
			family: models.FamilyCommittee,
			raw: map[string]any{
				"congress":   118,
				"chamber":    "Senate",
				"systemCode": "ssga00",
				"name":       "Homeland Security",
				"updateDate": "2024-03-15",
			},
			wantID: "118-senate-ssga00",
		},
		{
			family: models.FamilyCommitteePrint,
			raw: map[string]any{
				"congress":     118,
				"jacketNumber": "48144",
				"updateDate":   "2024-03-15",
			},
			wantID: "118-print-48144",
		},
		{
			family: models.FamilyHouseComm,
			raw: map[string]any{
				"congress":          118,
				"number":            "2057",
				"communicationType": map[string]any{"code": "EC", "name": "Executive Communication"},
				"updateDate":        "2024-03-15",
			},
			wantID: "118-hc-ec-2057",
		},
		{
			family: models.FamilyMember,
			raw: map[string]any{
				"bioguideId": "A000360",
				"name":       "Doe, Jane",
				"updateDate": "2024-03-15",
			},
			wantID: "member-a000360",
		},
		{
			family: models.FamilySummaries,
			raw: map[string]any{
				"congress":    118,
				"bill":        map[string]any{"type": "HR", "number": "1234"},
				"versionCode": "00",
				"actionDate":  "2024-02-01",
				"updateDate":  "2024-03-15",
			},
			wantID: "118-hr-1234-summary-00",
		},
		{
			family: models.FamilyCongress,
			raw: map[string]any{
				"number":     118,
				"name":       "118th Congress",
				"updateDate": "2024-03-15",
			},
			wantID: "congress-118",
		},
	}

	p := NewProcessor()

	for _, tc := range cases {
		record, err := p.Process(tc.family, tc.raw)
		if err != nil {
			t.Errorf("%s: Process failed: %v", tc.family, err)

			continue
		}

		if record.ID != tc.wantID {
			t.Errorf("%s: expected id %q, got %q", tc.family, tc.wantID, record.ID)
		}
	}
}
