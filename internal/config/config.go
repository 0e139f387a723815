package config

import (
	"fmt"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Elasticsearch Elasticsearch `mapstructure:"elasticsearch"`
	Embeddings    Embeddings    `mapstructure:"embeddings"`
	Relevance     Relevance     `mapstructure:"relevance"`
	Scraper       Scraper       `mapstructure:"scraper"`
	Notify        Notify        `mapstructure:"notify"`
	CRM           CRM           `mapstructure:"crm"`
	Archive       Archive       `mapstructure:"archive"`
	MCP           MCP           `mapstructure:"mcp"`
}

// Elasticsearch holds ES connection configuration.
type Elasticsearch struct {
	Addresses []string `mapstructure:"addresses"`
	Index     string   `mapstructure:"index"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
}

// Embeddings holds embedding provider configuration.
type Embeddings struct {
	APIKey    string        `mapstructure:"api_key"`
	BaseURL   string        `mapstructure:"base_url"`
	Model     string        `mapstructure:"model"`
	Dimension int           `mapstructure:"dimension"`
	BatchSize int           `mapstructure:"batch_size"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// Relevance holds the two-stage filter configuration.
type Relevance struct {
	Keywords            []string `mapstructure:"keywords"`
	SimilarityThreshold float64  `mapstructure:"similarity_threshold"`
}

// Scraper holds portal scraping and retry configuration.
type Scraper struct {
	Portals           string                   `mapstructure:"portals"` // comma-separated or "all"
	ItemsPerPage      int                      `mapstructure:"items_per_page"`
	MaxItemsPerPortal int                      `mapstructure:"max_items_per_portal"`
	Delay             time.Duration            `mapstructure:"delay"`
	Timeout           time.Duration            `mapstructure:"timeout"`
	TimeoutOverrides  map[string]time.Duration `mapstructure:"timeout_overrides"`
	RetryAttempts     int                      `mapstructure:"retry_attempts"`
	RetryBackoffBase  time.Duration            `mapstructure:"retry_backoff_base"`
	RetryJitter       time.Duration            `mapstructure:"retry_jitter"`
	UserAgent         string                   `mapstructure:"user_agent"`
}

// Notify holds notification destinations.
type Notify struct {
	SlackWebhookURL string `mapstructure:"slack_webhook_url"`
	EmailHost       string `mapstructure:"email_host"`
	EmailPort       int    `mapstructure:"email_port"`
	EmailUser       string `mapstructure:"email_user"`
	EmailPass       string `mapstructure:"email_pass"`
	EmailFrom       string `mapstructure:"email_from"`
	EmailTo         string `mapstructure:"email_to"`
}

// CRM holds CRM destination configuration.
type CRM struct {
	HubSpotAPIKey      string `mapstructure:"hubspot_api_key"`
	HubSpotPipelineID  string `mapstructure:"hubspot_pipeline_id"`
	HubSpotDealStageID string `mapstructure:"hubspot_dealstage_id"`
	WebhookURL         string `mapstructure:"webhook_url"`
}

// Archive holds S3/MinIO run-snapshot configuration.
type Archive struct {
	Enabled         bool   `mapstructure:"enabled"`
	Endpoint        string `mapstructure:"endpoint"`
	Bucket          string `mapstructure:"bucket"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
}

// MCP holds MCP server configuration.
type MCP struct {
	Name    string `mapstructure:"name"`
	Version string `mapstructure:"version"`
}

// DefaultKeywords is the built-in relevance keyword list.
var DefaultKeywords = []string{
	"it services", "computer systems", "software development", "network infrastructure",
	"cloud migration", "cybersecurity", "managed services", "data analytics",
	"it consulting", "erp implementation",
}

// Defaults returns a Config with sensible default values.
func Defaults() Config {
	return Config{
		Elasticsearch: Elasticsearch{
			Addresses: []string{"http://localhost:9200"},
			Index:     "opportender-tenders",
		},
		Embeddings: Embeddings{
			Model:     "text-embedding-3-small",
			BatchSize: 128,
			Timeout:   15 * time.Second,
		},
		Relevance: Relevance{
			Keywords:            DefaultKeywords,
			SimilarityThreshold: 0.78,
		},
		Scraper: Scraper{
			Portals:           "all",
			ItemsPerPage:      200,
			MaxItemsPerPortal: 250,
			Delay:             1 * time.Second,
			Timeout:           15 * time.Second,
			RetryAttempts:     2,
			RetryBackoffBase:  2 * time.Second,
			RetryJitter:       200 * time.Millisecond,
		},
		Notify: Notify{
			EmailPort: 587,
		},
		Archive: Archive{
			Enabled:         false,
			Endpoint:        "localhost:9000",
			Bucket:          "opportender",
			AccessKeyID:     "minioadmin",
			SecretAccessKey: "minioadmin",
			UseSSL:          false,
		},
		MCP: MCP{
			Name:    "opportender",
			Version: "1.0.0",
		},
	}
}

// IsPlaceholder reports whether a secret value looks like it was never
// filled in and should be treated as unset.
func IsPlaceholder(val string) bool {
	v := strings.ToLower(strings.TrimSpace(val))
	switch v {
	case "", "xxx", "changeme", "todo":
		return true
	}
	return strings.HasPrefix(v, "<your-")
}

// CleanSecret trims whitespace and strips wrapping quotes that sneak in
// from .env files.
func CleanSecret(val string) string {
	s := strings.TrimSpace(val)
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			s = strings.TrimSpace(s[1 : len(s)-1])
		}
	}
	return s
}

// Validate fails fast on configuration that would only surface as a
// confusing HTTP 401 mid-run.
func (c *Config) Validate() error {
	c.Embeddings.APIKey = CleanSecret(c.Embeddings.APIKey)
	c.Embeddings.BaseURL = CleanSecret(c.Embeddings.BaseURL)
	if IsPlaceholder(c.Embeddings.BaseURL) {
		c.Embeddings.BaseURL = ""
	}
	if IsPlaceholder(c.Embeddings.APIKey) {
		return fmt.Errorf("embeddings api_key is missing or a placeholder: set a real key (no quotes)")
	}
	if len(c.Elasticsearch.Addresses) == 0 {
		return fmt.Errorf("elasticsearch addresses must not be empty")
	}
	if c.Elasticsearch.Index == "" {
		return fmt.Errorf("elasticsearch index must not be empty")
	}
	if c.Relevance.SimilarityThreshold < 0 || c.Relevance.SimilarityThreshold > 1 {
		return fmt.Errorf("similarity_threshold must be in [0,1], got %v", c.Relevance.SimilarityThreshold)
	}
	return nil
}
