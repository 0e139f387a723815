package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/kpant2190/Opportender-Backend/pkg/models"
)

const hubspotBaseURL = "https://api.hubapi.com"

// Config selects the CRM destination. A HubSpot API key wins over a
// generic webhook; with neither set, pushes are logged as dry runs.
type Config struct {
	HubSpotAPIKey      string
	HubSpotPipelineID  string
	HubSpotDealStageID string
	WebhookURL         string
}

// Client pushes newly inserted tenders to a CRM. Pushes are best-effort:
// a HubSpot failure falls back to the webhook, a webhook failure falls
// back to logging, and no error ever reaches the caller.
type Client struct {
	config      Config
	hubspotBase string
	httpClient  *http.Client
	logger      *slog.Logger
}

// New creates a CRM client for the configured destination.
func New(config Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Client{
		config:      config,
		hubspotBase: hubspotBaseURL,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		logger:      logger,
	}
	switch {
	case config.HubSpotAPIKey != "":
		logger.Info("crm: HubSpot configured")
	case config.WebhookURL != "":
		logger.Info("crm: webhook configured")
	default:
		logger.Debug("crm: no destination configured, pushes will be logged only")
	}
	return c
}

// Push sends a single tender to the CRM. Call only for newly inserted
// records.
func (c *Client) Push(ctx context.Context, t models.Tender) {
	if c.config.HubSpotAPIKey != "" {
		if err := c.pushHubSpotDeal(ctx, t); err == nil {
			return
		} else {
			c.logger.Error("crm: HubSpot push failed, falling back", "error", err)
		}
	}

	if c.config.WebhookURL != "" {
		if err := c.postWebhook(ctx, t); err == nil {
			return
		} else {
			c.logger.Error("crm: webhook push failed, logging only", "error", err)
		}
	}

	c.logger.Info("crm: dry-run push", "title", t.Title, "link", t.Link)
}

// dealProperties is the core HubSpot deal property set. HubSpot rejects
// unknown property names, so nothing beyond these is sent.
type dealProperties struct {
	DealName  string   `json:"dealname"`
	Amount    *float64 `json:"amount,omitempty"`
	CloseDate *int64   `json:"closedate,omitempty"`
	Pipeline  string   `json:"pipeline,omitempty"`
	DealStage string   `json:"dealstage,omitempty"`
}

func (c *Client) pushHubSpotDeal(ctx context.Context, t models.Tender) error {
	props := dealProperties{
		DealName:  dealName(t),
		Amount:    t.TenderValue,
		Pipeline:  c.config.HubSpotPipelineID,
		DealStage: c.config.HubSpotDealStageID,
	}
	if ms, ok := closeDateMillis(t); ok {
		props.CloseDate = &ms
	}

	payload, err := json.Marshal(map[string]any{"properties": props})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.hubspotBase+"/crm/v3/objects/deals", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.config.HubSpotAPIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 300 {
		return fmt.Errorf("hubspot error %d: %s", resp.StatusCode, string(body))
	}

	var created struct {
		ID string `json:"id"`
	}
	json.Unmarshal(body, &created)
	c.logger.Info("crm: HubSpot deal created", "deal_id", created.ID, "dealname", props.DealName)
	return nil
}

func (c *Client) postWebhook(ctx context.Context, t models.Tender) error {
	payload, err := json.Marshal(t)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.WebhookURL, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("webhook error %d: %s", resp.StatusCode, string(body))
	}
	c.logger.Info("crm: webhook delivered")
	return nil
}

// dealName derives HubSpot's required dealname, capped at 255 chars.
func dealName(t models.Tender) string {
	name := t.Title
	if name == "" && t.Buyer != "" {
		name = t.Buyer + " tender"
	}
	if name == "" {
		name = "Tender"
	}
	if len(name) > 255 {
		name = name[:255]
	}
	return name
}

// closeDateMillis converts the closing timestamp (or date) to the epoch
// milliseconds HubSpot expects. Date-only values are pinned to 17:00 UTC.
func closeDateMillis(t models.Tender) (int64, bool) {
	raw := t.ClosingTS
	if raw == "" {
		raw = t.ClosingDate
	}
	if raw == "" {
		return 0, false
	}

	if len(raw) >= 19 && raw[10] == 'T' {
		if ts, err := time.Parse("2006-01-02T15:04:05", raw[:19]); err == nil {
			return ts.UTC().UnixMilli(), true
		}
	}
	if len(raw) >= 10 {
		if d, err := time.Parse("2006-01-02", raw[:10]); err == nil {
			return d.Add(17 * time.Hour).UnixMilli(), true
		}
	}
	return 0, false
}
