package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kpant2190/Opportender-Backend/internal/archive"
	"github.com/kpant2190/Opportender-Backend/internal/config"
	"github.com/kpant2190/Opportender-Backend/internal/crm"
	"github.com/kpant2190/Opportender-Backend/internal/embeddings"
	"github.com/kpant2190/Opportender-Backend/internal/events"
	"github.com/kpant2190/Opportender-Backend/internal/notify"
	"github.com/kpant2190/Opportender-Backend/internal/pipeline"
	"github.com/kpant2190/Opportender-Backend/internal/portal"
	"github.com/kpant2190/Opportender-Backend/internal/processor"
	"github.com/kpant2190/Opportender-Backend/internal/relevance"
	"github.com/kpant2190/Opportender-Backend/internal/retry"
	"github.com/kpant2190/Opportender-Backend/internal/store"
)

var (
	loopSeconds int
	initIndex   bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the ingestion pipeline",
	Long: `Fetch every configured portal, filter for relevance, upsert new
tenders, and push notifications for newly inserted ones.

Examples:
  # Single run
  opportender run

  # Create the index first if it doesn't exist
  opportender run --init-index

  # Run continuously every 15 minutes
  opportender run --loop 900

  # Run a subset of portals
  OPPORTENDER_SCRAPER_PORTALS=austender,qtenders opportender run`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().IntVar(&loopSeconds, "loop", 0, "Run continuously every N seconds (0 = once)")
	runCmd.Flags().BoolVar(&initIndex, "init-index", false, "Create the Elasticsearch index if missing (non-destructive)")
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := GetConfig()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	p, esClient, err := buildPipeline(ctx, &cfg)
	if err != nil {
		return err
	}

	if initIndex {
		if err := esClient.CreateIndex(ctx); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	if loopSeconds <= 0 {
		result, err := p.Run(ctx)
		printResult(cmd, result)
		return err
	}

	// Loop mode: the runner produces completion events, a reporter consumes
	// them so run output stays ordered even while the next run starts.
	runEvents := make(chan events.RunCompleteEvent)
	done := make(chan struct{})

	go func() {
		defer close(done)
		for event := range runEvents {
			fmt.Printf("[%s] found=%d upserted=%d skipped_kw=%d skipped_sim=%d duration=%v errors=%d\n",
				event.Timestamp.Format(time.RFC3339),
				event.Fetched, event.Upserted,
				event.SkippedKeyword, event.SkippedSimilarity,
				event.Duration.Round(time.Millisecond), len(event.Errors))
		}
	}()

	interval := time.Duration(loopSeconds) * time.Second
	for {
		result, err := p.Run(ctx)
		if err != nil {
			slog.Error("run failed, continuing loop", "error", err)
		}
		if result != nil {
			runEvents <- events.RunCompleteEvent{
				RunID:             result.RunID,
				Fetched:           result.Fetched,
				Upserted:          result.Upserted,
				SkippedKeyword:    result.SkippedKeyword,
				SkippedSimilarity: result.SkippedSimilarity,
				Duration:          result.Duration,
				Timestamp:         time.Now(),
				Errors:            result.Errors,
			}
		}

		select {
		case <-ctx.Done():
			close(runEvents)
			<-done
			return nil
		case <-time.After(interval):
		}
	}
}

// buildPipeline wires every collaborator from config.
func buildPipeline(ctx context.Context, cfg *config.Config) (*pipeline.Pipeline, *store.Client, error) {
	esClient, err := store.New(store.Config{
		Addresses: cfg.Elasticsearch.Addresses,
		Index:     cfg.Elasticsearch.Index,
		Username:  cfg.Elasticsearch.Username,
		Password:  cfg.Elasticsearch.Password,
		VectorDim: cfg.Embeddings.Dimension,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create elasticsearch client: %w", err)
	}

	embedClient, err := embeddings.New(embeddings.Config{
		APIKey:     cfg.Embeddings.APIKey,
		BaseURL:    cfg.Embeddings.BaseURL,
		Model:      cfg.Embeddings.Model,
		Dimensions: cfg.Embeddings.Dimension,
		BatchSize:  cfg.Embeddings.BatchSize,
		Timeout:    cfg.Embeddings.Timeout,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create embeddings client: %w", err)
	}

	filter := relevance.New(ctx, relevance.Config{
		Keywords:  cfg.Relevance.Keywords,
		Threshold: cfg.Relevance.SimilarityThreshold,
	}, embedClient)

	sources, err := portal.Build(cfg.Scraper.Portals, portal.ScrapeConfig{
		MaxItems:     cfg.Scraper.MaxItemsPerPortal,
		ItemsPerPage: cfg.Scraper.ItemsPerPage,
		Delay:        cfg.Scraper.Delay,
		Timeout:      cfg.Scraper.Timeout,
		UserAgent:    cfg.Scraper.UserAgent,
	})
	if err != nil {
		return nil, nil, err
	}

	runner := retry.NewRunner(retry.Config{
		Timeout:     cfg.Scraper.Timeout,
		Overrides:   cfg.Scraper.TimeoutOverrides,
		MaxAttempts: cfg.Scraper.RetryAttempts,
		BackoffBase: cfg.Scraper.RetryBackoffBase,
		JitterBound: cfg.Scraper.RetryJitter,
	})

	var archiver pipeline.Archiver
	if cfg.Archive.Enabled {
		archiveClient, err := archive.New(archive.Config{
			Endpoint:        cfg.Archive.Endpoint,
			Bucket:          cfg.Archive.Bucket,
			AccessKeyID:     cfg.Archive.AccessKeyID,
			SecretAccessKey: cfg.Archive.SecretAccessKey,
			UseSSL:          cfg.Archive.UseSSL,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create archive client: %w", err)
		}
		if err := archiveClient.EnsureBucket(ctx); err != nil {
			return nil, nil, fmt.Errorf("failed to ensure archive bucket: %w", err)
		}
		archiver = archiveClient
	}

	p := pipeline.New(pipeline.Config{
		Sources:   sources,
		Runner:    runner,
		Filter:    filter,
		Store:     esClient,
		Embedder:  embedClient,
		Processor: processor.New(),
		Notifier: notify.New(notify.Config{
			SlackWebhookURL: cfg.Notify.SlackWebhookURL,
			EmailHost:       cfg.Notify.EmailHost,
			EmailPort:       cfg.Notify.EmailPort,
			EmailUser:       cfg.Notify.EmailUser,
			EmailPass:       cfg.Notify.EmailPass,
			EmailFrom:       cfg.Notify.EmailFrom,
			EmailTo:         cfg.Notify.EmailTo,
		}, slog.Default()),
		CRM: crm.New(crm.Config{
			HubSpotAPIKey:      cfg.CRM.HubSpotAPIKey,
			HubSpotPipelineID:  cfg.CRM.HubSpotPipelineID,
			HubSpotDealStageID: cfg.CRM.HubSpotDealStageID,
			WebhookURL:         cfg.CRM.WebhookURL,
		}, slog.Default()),
		Archiver: archiver,
		Logger:   slog.Default(),
	})
	return p, esClient, nil
}

func printResult(cmd *cobra.Command, result *pipeline.Result) {
	if result == nil {
		return
	}
	fmt.Fprintf(cmd.OutOrStdout(), "\nRun complete:\n")
	fmt.Fprintf(cmd.OutOrStdout(), "  Found:                %d\n", result.Fetched)
	fmt.Fprintf(cmd.OutOrStdout(), "  Upserted:             %d\n", result.Upserted)
	fmt.Fprintf(cmd.OutOrStdout(), "  Skipped (keyword):    %d\n", result.SkippedKeyword)
	fmt.Fprintf(cmd.OutOrStdout(), "  Skipped (similarity): %d\n", result.SkippedSimilarity)
	fmt.Fprintf(cmd.OutOrStdout(), "  Duration:             %v\n", result.Duration.Round(time.Millisecond))
	if result.RunID != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "  Archived run:         %s\n", result.RunID)
	}
	for _, e := range result.Errors {
		fmt.Fprintf(cmd.OutOrStdout(), "  Warning: %s\n", e)
	}
}
