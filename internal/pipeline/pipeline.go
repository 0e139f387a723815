// Package pipeline drives a full ingestion run: fetch every configured
// portal under the retry policy, filter for relevance, fingerprint, batch
// upsert, then fan out embedding persistence, notifications, and CRM
// pushes for newly inserted records only.
package pipeline

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/kpant2190/Opportender-Backend/internal/archive"
	"github.com/kpant2190/Opportender-Backend/internal/relevance"
	"github.com/kpant2190/Opportender-Backend/internal/retry"
	"github.com/kpant2190/Opportender-Backend/pkg/models"
)

// Store is the persistence surface the pipeline needs. UpsertBatch must
// return exactly the newly inserted subset; identity matches are silently
// skipped.
type Store interface {
	UpsertBatch(ctx context.Context, batch []models.Tender) ([]models.Tender, error)
	UpdateEmbedding(ctx context.Context, hash string, vec []float32) error
	MarkNotified(ctx context.Context, hash string) error
}

// Embedder maps text to a fixed-dimension vector and never fails.
type Embedder interface {
	Embed(ctx context.Context, text string) []float32
}

// Relevance is the two-stage filter decision surface.
type Relevance interface {
	IsRelevant(ctx context.Context, t models.Tender) bool
	Explain(ctx context.Context, t models.Tender) relevance.Explanation
}

// Notifier delivers new-tender notifications, best-effort.
type Notifier interface {
	NotifyTender(ctx context.Context, t models.Tender)
}

// CRM pushes newly inserted tenders downstream, best-effort.
type CRM interface {
	Push(ctx context.Context, t models.Tender)
}

// Processor cleans scraped records before filtering.
type Processor interface {
	CleanTender(t models.Tender) models.Tender
}

// Archiver snapshots a run's raw fetched records.
type Archiver interface {
	PutRun(ctx context.Context, runID string, records []models.Tender) (*archive.RunMetadata, error)
}

// Config wires the pipeline's collaborators. Processor, Archiver, Notifier,
// and CRM are optional; a nil value disables that step.
type Config struct {
	Sources   []retry.Source
	Runner    *retry.Runner
	Filter    Relevance
	Store     Store
	Embedder  Embedder
	Processor Processor
	Notifier  Notifier
	CRM       CRM
	Archiver  Archiver
	Logger    *slog.Logger
}

// Pipeline executes ingestion runs.
type Pipeline struct {
	config Config
	logger *slog.Logger

	now func() time.Time
}

// Result summarizes one run.
type Result struct {
	RunID             string
	Fetched           int
	Upserted          int
	SkippedKeyword    int
	SkippedSimilarity int
	Duration          time.Duration
	Errors            []string
}

// New creates a Pipeline.
func New(config Config) *Pipeline {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{config: config, logger: logger, now: time.Now}
}

// Run executes one full run: fetch, archive, filter, upsert, fan out. It
// always emits a summary; only a store upsert failure is returned as the
// run error, after the summary.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	start := p.now()

	var fetched []models.Tender
	for _, src := range p.config.Sources {
		p.logger.Info("scraping portal", "portal", src.Name())
		records := p.config.Runner.Fetch(ctx, src)
		p.logger.Info("portal done", "portal", src.Name(), "records", len(records))
		fetched = append(fetched, records...)
	}

	runID := ""
	if p.config.Archiver != nil && len(fetched) > 0 {
		runID = archive.NewRunID(start)
		if _, err := p.config.Archiver.PutRun(ctx, runID, fetched); err != nil {
			p.logger.Error("run archive failed, continuing", "run_id", runID, "error", err)
			runID = ""
		}
	}

	result, err := p.Process(ctx, fetched)
	result.RunID = runID
	result.Duration = p.now().Sub(start)
	p.summarize(result)
	return result, err
}

// Process runs the filter/upsert/fan-out stages over already-fetched
// records. The ingest command uses it to replay archived runs.
func (p *Pipeline) Process(ctx context.Context, fetched []models.Tender) (*Result, error) {
	result := &Result{Fetched: len(fetched)}

	batch := make([]models.Tender, 0, len(fetched))
	for _, t := range fetched {
		if p.config.Processor != nil {
			t = p.config.Processor.CleanTender(t)
		}

		if !p.config.Filter.IsRelevant(ctx, t) {
			// The keyword stage never rejects on its own; classify the
			// rejection by which stage the record died in.
			if p.config.Filter.Explain(ctx, t).KeywordHit {
				result.SkippedSimilarity++
			} else {
				result.SkippedKeyword++
			}
			continue
		}

		t.TenderHash = models.Fingerprint(t)
		batch = append(batch, t)
	}

	if len(batch) == 0 {
		return result, nil
	}

	inserted, err := p.config.Store.UpsertBatch(ctx, batch)
	if err != nil {
		result.Errors = append(result.Errors, "upsert: "+err.Error())
		return result, err
	}
	result.Upserted = len(inserted)

	// Fan out per newly inserted record. Each side effect is isolated: a
	// failed push never blocks the others and never rolls back the insert.
	for _, t := range inserted {
		p.fanOut(ctx, t, result)
	}
	return result, nil
}

func (p *Pipeline) fanOut(ctx context.Context, t models.Tender, result *Result) {
	text := strings.TrimSpace(t.Title + " " + t.Description)
	if vec := p.config.Embedder.Embed(ctx, text); len(vec) > 0 {
		if err := p.config.Store.UpdateEmbedding(ctx, t.TenderHash, vec); err != nil {
			p.logger.Error("embedding persist failed", "tender_hash", t.TenderHash, "error", err)
			result.Errors = append(result.Errors, "embedding: "+err.Error())
		}
	}

	if p.config.Notifier != nil {
		p.config.Notifier.NotifyTender(ctx, t)
		if err := p.config.Store.MarkNotified(ctx, t.TenderHash); err != nil {
			p.logger.Error("notified-at update failed", "tender_hash", t.TenderHash, "error", err)
			result.Errors = append(result.Errors, "mark_notified: "+err.Error())
		}
	}

	if p.config.CRM != nil {
		p.config.CRM.Push(ctx, t)
	}
}

func (p *Pipeline) summarize(r *Result) {
	p.logger.Info("run complete",
		"found", r.Fetched,
		"upserted", r.Upserted,
		"skipped_relevance_kw", r.SkippedKeyword,
		"skipped_relevance_sim", r.SkippedSimilarity,
		"duration", r.Duration.Round(time.Millisecond),
		"errors", len(r.Errors),
	)
}
