package cmd

import (
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kpant2190/Opportender-Backend/internal/config"
)

var (
	cfgFile string
	verbose bool
	cfg     config.Config
)

// GetConfig returns the loaded configuration.
func GetConfig() config.Config {
	return cfg
}

var rootCmd = &cobra.Command{
	Use:   "opportender",
	Short: "Opportender: government tender ingestion and relevance filtering",
	Long: `Opportender scrapes government tender portals, filters opportunities
for relevance with keywords and embeddings, dedupes by content fingerprint,
stores them in Elasticsearch, and pushes new opportunities to Slack, email,
and CRM.

Commands:
  run     Run the ingestion pipeline once or on a loop
  ingest  Replay an archived run through the pipeline
  search  Search stored tenders
  serve   Start the MCP server for tender retrieval`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig, initLogger)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
}

func initLogger() {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	slog.SetDefault(slog.New(handler))
}

func initConfig() {
	// Start with defaults
	cfg = config.Defaults()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath("./config")
		viper.AddConfigPath("/etc/opportender")
		viper.AddConfigPath(".")
	}

	// Environment variable overrides
	// OPPORTENDER_ELASTICSEARCH_ADDRESSES -> elasticsearch.addresses
	viper.SetEnvPrefix("OPPORTENDER")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Explicitly bind nested env vars
	viper.BindEnv("elasticsearch.addresses", "OPPORTENDER_ELASTICSEARCH_ADDRESSES")
	viper.BindEnv("elasticsearch.index", "OPPORTENDER_ELASTICSEARCH_INDEX")
	viper.BindEnv("elasticsearch.username", "OPPORTENDER_ELASTICSEARCH_USERNAME")
	viper.BindEnv("elasticsearch.password", "OPPORTENDER_ELASTICSEARCH_PASSWORD")
	viper.BindEnv("embeddings.api_key", "OPPORTENDER_EMBEDDINGS_API_KEY", "OPENAI_API_KEY")
	viper.BindEnv("embeddings.base_url", "OPPORTENDER_EMBEDDINGS_BASE_URL", "OPENAI_API_BASE")
	viper.BindEnv("embeddings.model", "OPPORTENDER_EMBEDDINGS_MODEL")
	viper.BindEnv("embeddings.dimension", "OPPORTENDER_EMBEDDINGS_DIMENSION")
	viper.BindEnv("relevance.similarity_threshold", "OPPORTENDER_RELEVANCE_SIMILARITY_THRESHOLD")
	viper.BindEnv("scraper.portals", "OPPORTENDER_SCRAPER_PORTALS", "SCRAPERS_TO_RUN")
	viper.BindEnv("scraper.timeout", "OPPORTENDER_SCRAPER_TIMEOUT")
	viper.BindEnv("scraper.retry_attempts", "OPPORTENDER_SCRAPER_RETRY_ATTEMPTS")
	viper.BindEnv("notify.slack_webhook_url", "OPPORTENDER_NOTIFY_SLACK_WEBHOOK_URL", "SLACK_WEBHOOK_URL")
	viper.BindEnv("notify.email_host", "OPPORTENDER_NOTIFY_EMAIL_HOST")
	viper.BindEnv("notify.email_port", "OPPORTENDER_NOTIFY_EMAIL_PORT")
	viper.BindEnv("notify.email_user", "OPPORTENDER_NOTIFY_EMAIL_USER")
	viper.BindEnv("notify.email_pass", "OPPORTENDER_NOTIFY_EMAIL_PASS")
	viper.BindEnv("notify.email_from", "OPPORTENDER_NOTIFY_EMAIL_FROM")
	viper.BindEnv("notify.email_to", "OPPORTENDER_NOTIFY_EMAIL_TO")
	viper.BindEnv("crm.hubspot_api_key", "OPPORTENDER_CRM_HUBSPOT_API_KEY", "HUBSPOT_API_KEY")
	viper.BindEnv("crm.hubspot_pipeline_id", "OPPORTENDER_CRM_HUBSPOT_PIPELINE_ID")
	viper.BindEnv("crm.hubspot_dealstage_id", "OPPORTENDER_CRM_HUBSPOT_DEALSTAGE_ID")
	viper.BindEnv("crm.webhook_url", "OPPORTENDER_CRM_WEBHOOK_URL", "CRM_WEBHOOK_URL")
	viper.BindEnv("archive.enabled", "OPPORTENDER_ARCHIVE_ENABLED")
	viper.BindEnv("archive.endpoint", "OPPORTENDER_ARCHIVE_ENDPOINT")
	viper.BindEnv("archive.bucket", "OPPORTENDER_ARCHIVE_BUCKET")
	viper.BindEnv("archive.access_key_id", "OPPORTENDER_ARCHIVE_ACCESS_KEY_ID")
	viper.BindEnv("archive.secret_access_key", "OPPORTENDER_ARCHIVE_SECRET_ACCESS_KEY")
	viper.BindEnv("mcp.name", "OPPORTENDER_MCP_NAME")
	viper.BindEnv("mcp.version", "OPPORTENDER_MCP_VERSION")

	// Read config file
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("config file error", "error", err)
		}
		// No config file - use defaults + env vars
	}

	// Unmarshal into struct (merges config file with defaults)
	if err := viper.Unmarshal(&cfg); err != nil {
		slog.Warn("failed to parse config", "error", err)
	}

	// Handle special case: addresses as comma-separated string from env
	if addrs := os.Getenv("OPPORTENDER_ELASTICSEARCH_ADDRESSES"); addrs != "" {
		cfg.Elasticsearch.Addresses = strings.Split(addrs, ",")
	}
	// Keywords as a comma-separated string from env
	if kws := os.Getenv("OPPORTENDER_RELEVANCE_KEYWORDS"); kws != "" {
		var keywords []string
		for _, k := range strings.Split(kws, ",") {
			if k = strings.TrimSpace(k); k != "" {
				keywords = append(keywords, strings.ToLower(k))
			}
		}
		if len(keywords) > 0 {
			cfg.Relevance.Keywords = keywords
		}
	}
}
