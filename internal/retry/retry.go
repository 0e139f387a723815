// Package retry runs per-portal fetches under a timeout with bounded
// retries and exponential backoff plus jitter. A misbehaving source never
// aborts the overall run: after retries are exhausted the source simply
// contributes zero records.
package retry

import (
	"context"
	"log/slog"
	"math/rand"
	"time"

	"github.com/kpant2190/Opportender-Backend/pkg/models"
)

// Source is a single tender portal. Fetch may fail with any error,
// including a context deadline; every failure is treated as retryable.
type Source interface {
	Name() string
	Fetch(ctx context.Context) ([]models.Tender, error)
}

// Config holds retry orchestration settings.
type Config struct {
	Timeout     time.Duration            // default per-source fetch timeout
	Overrides   map[string]time.Duration // per-source timeout overrides, by name
	MaxAttempts int                      // total tries per source (>= 1)
	BackoffBase time.Duration            // first retry delay before jitter
	JitterBound time.Duration            // jitter drawn uniformly from [0, bound]
}

// Runner executes source fetches with the configured retry policy.
type Runner struct {
	config Config

	// sleep is swapped out in tests.
	sleep func(ctx context.Context, d time.Duration)
}

// NewRunner creates a Runner, filling unset config with defaults.
func NewRunner(config Config) *Runner {
	if config.MaxAttempts < 1 {
		config.MaxAttempts = 1
	}
	if config.Timeout <= 0 {
		config.Timeout = 15 * time.Second
	}
	if config.BackoffBase <= 0 {
		config.BackoffBase = 2 * time.Second
	}
	return &Runner{config: config, sleep: sleepCtx}
}

// Fetch runs a source under the retry policy. It never returns an error:
// on total failure it logs and returns an empty list. Each fetched record
// passes through models.Coerce so construction-time invariants hold.
func (r *Runner) Fetch(ctx context.Context, src Source) []models.Tender {
	timeout := r.timeoutFor(src.Name())
	attempts := r.config.MaxAttempts

	for i := 1; i <= attempts; i++ {
		fetched, err := r.fetchOnce(ctx, src, timeout)
		if err == nil {
			out := make([]models.Tender, 0, len(fetched))
			for _, t := range fetched {
				coerced, err := models.Coerce(t)
				if err != nil {
					slog.Error("dropping malformed record", "source", src.Name(), "error", err)
					continue
				}
				out = append(out, coerced)
			}
			return out
		}

		slog.Error("source fetch failed",
			"source", src.Name(), "try", i, "attempts", attempts, "timeout", timeout, "error", err)

		if ctx.Err() != nil {
			break
		}
		if i < attempts {
			delay := Backoff(r.config.BackoffBase, i) + jitter(r.config.JitterBound)
			slog.Info("retrying source", "source", src.Name(), "in", delay)
			r.sleep(ctx, delay)
		}
	}

	slog.Error("source exhausted retries, continuing", "source", src.Name())
	return []models.Tender{}
}

func (r *Runner) fetchOnce(ctx context.Context, src Source, timeout time.Duration) ([]models.Tender, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return src.Fetch(fetchCtx)
}

func (r *Runner) timeoutFor(name string) time.Duration {
	if d, ok := r.config.Overrides[name]; ok && d > 0 {
		return d
	}
	return r.config.Timeout
}

// Backoff returns the delay before the retry following attempt i (1-based):
// base * 2^(i-1), so the first retry waits exactly base.
func Backoff(base time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return base * time.Duration(1<<uint(attempt-1))
}

func jitter(bound time.Duration) time.Duration {
	if bound <= 0 {
		return 0
	}
	return time.Duration(rand.Int63n(int64(bound) + 1))
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
