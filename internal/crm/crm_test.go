package crm

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kpant2190/Opportender-Backend/pkg/models"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sample() models.Tender {
	value := 50000.0
	return models.Tender{
		SourcePortal: "austender",
		SourceID:     "ATM-9",
		Title:        "Cloud Hosting Services",
		Buyer:        "Department of Example",
		ClosingTS:    "2025-08-25T17:00:00Z",
		TenderValue:  &value,
		Link:         "https://example.gov.au/atm/9",
	}
}

func TestPush_HubSpotDeal(t *testing.T) {
	var gotAuth string
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/crm/v3/objects/deals" {
			t.Errorf("path = %s", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &gotBody)
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":"deal-1"}`))
	}))
	defer server.Close()

	c := New(Config{
		HubSpotAPIKey:      "key",
		HubSpotPipelineID:  "pipe",
		HubSpotDealStageID: "stage",
	}, discardLogger())
	c.hubspotBase = server.URL

	c.Push(context.Background(), sample())

	if gotAuth != "Bearer key" {
		t.Errorf("auth header = %q", gotAuth)
	}
	props, _ := gotBody["properties"].(map[string]any)
	if props["dealname"] != "Cloud Hosting Services" {
		t.Errorf("dealname = %v", props["dealname"])
	}
	if props["amount"] != 50000.0 {
		t.Errorf("amount = %v", props["amount"])
	}
	if props["pipeline"] != "pipe" || props["dealstage"] != "stage" {
		t.Errorf("pipeline/stage = %v/%v", props["pipeline"], props["dealstage"])
	}
	// 2025-08-25T17:00:00 UTC in epoch ms.
	if props["closedate"] != 1756141200000.0 {
		t.Errorf("closedate = %v", props["closedate"])
	}
}

func TestPush_HubSpotFailureFallsBackToWebhook(t *testing.T) {
	hubspot := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer hubspot.Close()

	webhookCalled := false
	webhook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		webhookCalled = true
		var tender models.Tender
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &tender); err != nil {
			t.Errorf("webhook payload not a tender: %v", err)
		}
		if tender.SourceID != "ATM-9" {
			t.Errorf("source_id = %q", tender.SourceID)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer webhook.Close()

	c := New(Config{HubSpotAPIKey: "key", WebhookURL: webhook.URL}, discardLogger())
	c.hubspotBase = hubspot.URL

	c.Push(context.Background(), sample())
	if !webhookCalled {
		t.Error("webhook fallback not used")
	}
}

func TestPush_UnconfiguredIsDryRun(t *testing.T) {
	c := New(Config{}, discardLogger())
	// Must not panic or make network calls.
	c.Push(context.Background(), sample())
}

func TestDealName(t *testing.T) {
	tests := []struct {
		name   string
		tender models.Tender
		want   string
	}{
		{"title wins", models.Tender{Title: "Road Works", Buyer: "Council"}, "Road Works"},
		{"buyer fallback", models.Tender{Buyer: "Council"}, "Council tender"},
		{"last resort", models.Tender{}, "Tender"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := dealName(tt.tender); got != tt.want {
				t.Errorf("dealName() = %q, want %q", got, tt.want)
			}
		})
	}

	long := models.Tender{Title: strings.Repeat("x", 300)}
	if got := dealName(long); len(got) != 255 {
		t.Errorf("long dealname len = %d, want 255", len(got))
	}
}

func TestCloseDateMillis(t *testing.T) {
	tests := []struct {
		name   string
		tender models.Tender
		want   int64
		ok     bool
	}{
		{
			"full timestamp",
			models.Tender{ClosingTS: "2025-08-25T17:00:00Z"},
			1756141200000, true,
		},
		{
			"date only pins 17:00 UTC",
			models.Tender{ClosingDate: "2025-08-25"},
			1756141200000, true,
		},
		{"absent", models.Tender{}, 0, false},
		{"garbage", models.Tender{ClosingDate: "soon maybe?"}, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := closeDateMillis(tt.tender)
			if ok != tt.ok || got != tt.want {
				t.Errorf("closeDateMillis() = (%d, %v), want (%d, %v)", got, ok, tt.want, tt.ok)
			}
		})
	}
}
