// Package models defines the canonical record shape and the run-level
// request/window types shared across the ingestion pipeline.
package models

import (
	"sort"
	"time"
)

// SchemaVersion is the canonical record schema generation. Stored on
// every record and compared by the store's conditional writes.
const SchemaVersion = 1

// MinRecordDate is the earliest calendar date any record may carry:
// the first meeting of the 1st Congress.
var MinRecordDate = time.Date(1789, time.March, 4, 0, 0, 0, 0, time.UTC)

// Chamber values accepted on canonical records.
const (
	ChamberHouse  = "house"
	ChamberSenate = "senate"
	ChamberJoint  = "joint"
)

// Record is the canonical normalized form of one upstream item.
// Extras holds family-specific attributes: flat scalars plus nested
// maps and lists, already trimmed and stripped of empty values.
type Record struct {
	ID         string         `json:"id"`
	Type       Family         `json:"type"`
	Congress   int            `json:"congress"`
	UpdateDate string         `json:"update_date"`
	Version    int            `json:"version"`
	URL        string         `json:"url,omitempty"`
	Extras     map[string]any `json:"-"`
}

// Item flattens the record into a single attribute map suitable for
// the store adapter. Extras never shadow the core attributes.
func (r *Record) Item() map[string]any {
	item := make(map[string]any, len(r.Extras)+6)

	for k, v := range r.Extras {
		item[k] = v
	}

	item["id"] = r.ID
	item["type"] = string(r.Type)
	item["congress"] = r.Congress
	item["update_date"] = r.UpdateDate
	item["version"] = r.Version

	if r.URL != "" {
		item["url"] = r.URL
	}

	return item
}

// ExtraKeys returns the sorted family-specific attribute names.
func (r *Record) ExtraKeys() []string {
	keys := make([]string, 0, len(r.Extras))
	for k := range r.Extras {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}
