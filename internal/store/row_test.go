package store

import (
	"encoding/json"
	"testing"

	"github.com/kpant2190/Opportender-Backend/pkg/models"
)

func TestCoerceDate(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string // "" means nil
	}{
		{"empty", "", ""},
		{"not available marker", "N/A", ""},
		{"plain date", "2025-08-25", "2025-08-25"},
		{"timestamp trimmed", "2025-08-25T17:00:00Z", "2025-08-25"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := coerceDate(tt.in)
			if tt.want == "" {
				if got != nil {
					t.Errorf("coerceDate(%q) = %q, want nil", tt.in, *got)
				}
				return
			}
			if got == nil || *got != tt.want {
				t.Errorf("coerceDate(%q) = %v, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestCoerceRow(t *testing.T) {
	value := 1234.56
	tender := models.Tender{
		SourcePortal: "austender",
		SourceID:     "ATM-1",
		Title:        "Managed IT Services",
		PublishDate:  "2025-08-01T09:00:00Z",
		ClosingDate:  "2025-08-25",
		TenderValue:  &value,
		TenderHash:   "abc123",
		ATMID:        "legacy", // not part of the allow-listed column set
	}

	r := coerceRow(tender)
	if r.PublishDate == nil || *r.PublishDate != "2025-08-01" {
		t.Errorf("PublishDate = %v, want 2025-08-01", r.PublishDate)
	}
	if r.ClosingDate == nil || *r.ClosingDate != "2025-08-25" {
		t.Errorf("ClosingDate = %v, want 2025-08-25", r.ClosingDate)
	}
	if r.TenderValue == nil || *r.TenderValue != 1234.56 {
		t.Errorf("TenderValue = %v", r.TenderValue)
	}

	// The persisted document must not carry fields outside the allow-list.
	data, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if _, ok := doc["atm_id"]; ok {
		t.Error("atm_id should be dropped at the persistence boundary")
	}
	if _, ok := doc["notified_at"]; ok {
		t.Error("notified_at is store-managed and should not be in the upsert row")
	}
}

func TestCoerceRow_NullValue(t *testing.T) {
	r := coerceRow(models.Tender{SourcePortal: "x", TenderHash: "h"})
	if r.TenderValue != nil {
		t.Errorf("TenderValue = %v, want nil", r.TenderValue)
	}

	data, _ := json.Marshal(r)
	var doc map[string]any
	json.Unmarshal(data, &doc)
	if _, ok := doc["tender_value"]; ok {
		t.Error("nil tender_value should be omitted")
	}
}
