package notify

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/smtp"
	"strings"
	"testing"

	"github.com/kpant2190/Opportender-Backend/pkg/models"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sample() models.Tender {
	value := 1234567.8
	return models.Tender{
		SourcePortal: "austender",
		SourceID:     "ATM-1",
		Title:        "Managed IT Services",
		Buyer:        "Department of Example",
		ClosingTS:    "2025-08-25T17:00:00Z",
		TenderValue:  &value,
		Link:         "https://example.gov.au/atm/1",
	}
}

func TestNotifyTender_Slack(t *testing.T) {
	var got map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &got)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	n := New(Config{SlackWebhookURL: server.URL}, discardLogger())
	n.NotifyTender(context.Background(), sample())

	text := got["text"]
	if !strings.Contains(text, "*New Tender*: Managed IT Services") {
		t.Errorf("missing title line: %q", text)
	}
	if !strings.Contains(text, "Buyer: Department of Example") {
		t.Errorf("missing buyer line: %q", text)
	}
	if !strings.Contains(text, "Value: $1,234,567.80") {
		t.Errorf("value formatting wrong: %q", text)
	}
	if !strings.Contains(text, "Closes: 2025-08-25T17:00:00Z") {
		t.Errorf("closes should prefer closing_ts: %q", text)
	}
}

func TestNotifyBatch_SlackTruncation(t *testing.T) {
	var got map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &got)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	n := New(Config{SlackWebhookURL: server.URL}, discardLogger())

	tender := sample()
	tender.Title = strings.Repeat("Very Long Tender Title ", 20)
	batch := make([]models.Tender, 20)
	for i := range batch {
		batch[i] = tender
	}
	n.NotifyBatch(context.Background(), batch, "")

	text := got["text"]
	if len(text) > maxSlackLen {
		t.Errorf("digest length %d exceeds limit", len(text))
	}
	if !strings.HasSuffix(text, "…(truncated)") {
		t.Error("oversized digest should carry a truncation marker")
	}
}

func TestNotifyBatch_EmptyIsNoop(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	n := New(Config{SlackWebhookURL: server.URL}, discardLogger())
	n.NotifyBatch(context.Background(), nil, "")
	if called {
		t.Error("empty batch should not post")
	}
}

func TestNotifyTender_NoDestinationsIsNoop(t *testing.T) {
	n := New(Config{}, discardLogger())
	// Must not panic or error.
	n.NotifyTender(context.Background(), sample())
}

func TestNotifyTender_SlackFailureIsSwallowed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	n := New(Config{SlackWebhookURL: server.URL}, discardLogger())
	n.NotifyTender(context.Background(), sample())
}

func TestNotifyTender_Email(t *testing.T) {
	var gotAddr, gotFrom string
	var gotTo []string
	var gotMsg []byte

	n := New(Config{
		EmailHost: "smtp.example.org",
		EmailPort: 587,
		EmailUser: "bot",
		EmailPass: "secret",
		EmailFrom: "bot@example.org",
		EmailTo:   "team@example.org",
	}, discardLogger())
	n.sendMail = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, msg
		return nil
	}

	n.NotifyTender(context.Background(), sample())

	if gotAddr != "smtp.example.org:587" {
		t.Errorf("addr = %q", gotAddr)
	}
	if gotFrom != "bot@example.org" || len(gotTo) != 1 || gotTo[0] != "team@example.org" {
		t.Errorf("envelope = %q -> %v", gotFrom, gotTo)
	}
	msg := string(gotMsg)
	if !strings.Contains(msg, "Subject: New Tender: Managed IT Services") {
		t.Errorf("subject missing: %q", msg)
	}
	if !strings.Contains(msg, "multipart/alternative") {
		t.Error("expected multipart message with HTML alternative")
	}
	if !strings.Contains(msg, "View opportunity") {
		t.Error("HTML part missing")
	}
}

func TestEmailDisabledWhenIncomplete(t *testing.T) {
	n := New(Config{EmailHost: "smtp.example.org", EmailPort: 587}, discardLogger())
	if n.emailEnabled() {
		t.Error("partial email config should not enable email")
	}
}

func TestFormatAmount(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0.00"},
		{950, "950.00"},
		{1234.5, "1,234.50"},
		{1234567.8, "1,234,567.80"},
		{-4500, "-4,500.00"},
	}
	for _, tt := range tests {
		if got := formatAmount(tt.in); got != tt.want {
			t.Errorf("formatAmount(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatText_Fallbacks(t *testing.T) {
	text := formatText(models.Tender{SourcePortal: "qtenders"})
	if !strings.Contains(text, "*New Tender*: [Untitled]") {
		t.Errorf("untitled fallback missing: %q", text)
	}
	if !strings.Contains(text, "Value: -") {
		t.Errorf("nil value should render as dash: %q", text)
	}
}
