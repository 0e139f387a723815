package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kpant2190/Opportender-Backend/pkg/models"
)

type fakeSource struct {
	name    string
	records []models.Tender
	errs    []error // per-attempt; nil entry means success
	calls   int
	block   bool // ignore deadline, block until ctx done
}

func (f *fakeSource) Name() string { return f.name }

func (f *fakeSource) Fetch(ctx context.Context) ([]models.Tender, error) {
	f.calls++
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.calls <= len(f.errs) && f.errs[f.calls-1] != nil {
		return nil, f.errs[f.calls-1]
	}
	return f.records, nil
}

func newTestRunner(config Config) (*Runner, *int) {
	r := NewRunner(config)
	sleeps := 0
	r.sleep = func(ctx context.Context, d time.Duration) { sleeps++ }
	return r, &sleeps
}

func TestFetch_Success(t *testing.T) {
	src := &fakeSource{
		name:    "static_example",
		records: []models.Tender{{SourcePortal: "static_example", ClosingTS: "2025-08-25T17:00:00Z"}},
	}
	r, sleeps := newTestRunner(Config{MaxAttempts: 3, Timeout: time.Second})

	got := r.Fetch(context.Background(), src)
	if len(got) != 1 {
		t.Fatalf("got %d records, want 1", len(got))
	}
	if src.calls != 1 {
		t.Errorf("calls = %d, want 1", src.calls)
	}
	if *sleeps != 0 {
		t.Errorf("sleeps = %d, want 0", *sleeps)
	}
	// Coercion applies construction-time invariants.
	if got[0].ClosingDate != "2025-08-25" {
		t.Errorf("ClosingDate = %q, want derived 2025-08-25", got[0].ClosingDate)
	}
}

func TestFetch_RetryThenSuccess(t *testing.T) {
	src := &fakeSource{
		name:    "qtenders",
		records: []models.Tender{{SourcePortal: "qtenders"}},
		errs:    []error{errors.New("markup changed"), nil},
	}
	r, sleeps := newTestRunner(Config{MaxAttempts: 3, Timeout: time.Second})

	got := r.Fetch(context.Background(), src)
	if len(got) != 1 {
		t.Fatalf("got %d records, want 1", len(got))
	}
	if src.calls != 2 {
		t.Errorf("calls = %d, want 2", src.calls)
	}
	if *sleeps != 1 {
		t.Errorf("sleeps = %d, want 1", *sleeps)
	}
}

func TestFetch_Exhaustion(t *testing.T) {
	src := &fakeSource{
		name: "austender",
		errs: []error{errors.New("boom"), errors.New("boom"), errors.New("boom")},
	}
	r, sleeps := newTestRunner(Config{MaxAttempts: 3, Timeout: time.Second})

	got := r.Fetch(context.Background(), src)
	if got == nil || len(got) != 0 {
		t.Fatalf("want non-nil empty list, got %v", got)
	}
	if src.calls != 3 {
		t.Errorf("calls = %d, want exactly MaxAttempts (3)", src.calls)
	}
	if *sleeps != 2 {
		t.Errorf("sleeps = %d, want MaxAttempts-1 (2)", *sleeps)
	}
}

func TestFetch_TimeoutIsRetryable(t *testing.T) {
	src := &fakeSource{name: "slow", block: true}
	r, sleeps := newTestRunner(Config{MaxAttempts: 2, Timeout: 10 * time.Millisecond})

	got := r.Fetch(context.Background(), src)
	if len(got) != 0 {
		t.Fatalf("got %d records, want 0", len(got))
	}
	if src.calls != 2 {
		t.Errorf("calls = %d, want 2", src.calls)
	}
	if *sleeps != 1 {
		t.Errorf("sleeps = %d, want 1", *sleeps)
	}
}

func TestFetch_ParentCancellationStopsRetries(t *testing.T) {
	src := &fakeSource{name: "slow", block: true}
	r, _ := newTestRunner(Config{MaxAttempts: 5, Timeout: time.Minute})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	got := r.Fetch(ctx, src)
	if len(got) != 0 {
		t.Fatalf("got %d records, want 0", len(got))
	}
	if src.calls != 1 {
		t.Errorf("calls = %d, want 1 (no retries after run cancellation)", src.calls)
	}
}

func TestTimeoutFor_Override(t *testing.T) {
	r := NewRunner(Config{
		Timeout:     15 * time.Second,
		Overrides:   map[string]time.Duration{"austender": 45 * time.Second},
		MaxAttempts: 1,
	})

	if got := r.timeoutFor("austender"); got != 45*time.Second {
		t.Errorf("override timeout = %v, want 45s", got)
	}
	if got := r.timeoutFor("qtenders"); got != 15*time.Second {
		t.Errorf("default timeout = %v, want 15s", got)
	}
}

func TestBackoff(t *testing.T) {
	base := 2 * time.Second
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
	}
	for _, tt := range tests {
		if got := Backoff(base, tt.attempt); got != tt.want {
			t.Errorf("Backoff(base, %d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}
