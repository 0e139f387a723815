package archive

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/kpant2190/Opportender-Backend/pkg/models"
)

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{
			name:    "empty endpoint",
			config:  Config{Endpoint: "", Bucket: "test"},
			wantErr: true,
		},
		{
			name:    "empty bucket",
			config:  Config{Endpoint: "localhost:9000", Bucket: ""},
			wantErr: true,
		},
		{
			name: "valid config",
			config: Config{
				Endpoint:        "localhost:9000",
				Bucket:          "test",
				AccessKeyID:     "minioadmin",
				SecretAccessKey: "minioadmin",
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.config)
			if (err != nil) != tt.wantErr {
				t.Errorf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNilClientIsNoop(t *testing.T) {
	var c *Client
	ctx := context.Background()

	if err := c.EnsureBucket(ctx); err != nil {
		t.Errorf("EnsureBucket() on nil = %v", err)
	}
	if meta, err := c.PutRun(ctx, "run", nil); meta != nil || err != nil {
		t.Errorf("PutRun() on nil = (%v, %v)", meta, err)
	}
	if runs, err := c.ListRuns(ctx); runs != nil || err != nil {
		t.Errorf("ListRuns() on nil = (%v, %v)", runs, err)
	}
	if records, err := c.GetRunRecords(ctx, "run"); records != nil || err != nil {
		t.Errorf("GetRunRecords() on nil = (%v, %v)", records, err)
	}
}

func TestNewRunID(t *testing.T) {
	now := time.Date(2025, 8, 25, 17, 0, 0, 0, time.UTC)
	id := NewRunID(now)

	if !strings.HasPrefix(id, "20250825T170000-") {
		t.Errorf("run ID = %q, want timestamp prefix", id)
	}
	if id == NewRunID(now) {
		t.Error("two run IDs at the same instant should differ")
	}
}

// TestIntegration_RunArchive tests actual operations against MinIO.
// Skip if MinIO is not running.
func TestIntegration_RunArchive(t *testing.T) {
	endpoint := os.Getenv("MINIO_ENDPOINT")
	if endpoint == "" {
		endpoint = "localhost:9000"
	}

	client, err := New(Config{
		Endpoint:        endpoint,
		Bucket:          "opportender-test",
		AccessKeyID:     "minioadmin",
		SecretAccessKey: "minioadmin",
		UseSSL:          false,
	})
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	ctx := context.Background()
	if err := client.EnsureBucket(ctx); err != nil {
		t.Skipf("MinIO not available, skipping integration test: %v", err)
	}

	runID := NewRunID(time.Now())
	records := []models.Tender{
		{SourcePortal: "austender", SourceID: "A1", Title: "Managed IT Services"},
		{SourcePortal: "austender", SourceID: "A2", Title: "Cloud Migration"},
		{SourcePortal: "qtenders", SourceID: "Q1", Title: "Road Maintenance"},
	}

	t.Run("PutRun", func(t *testing.T) {
		meta, err := client.PutRun(ctx, runID, records)
		if err != nil {
			t.Fatalf("PutRun() error = %v", err)
		}
		if meta.RecordCount != 3 {
			t.Errorf("RecordCount = %d, want 3", meta.RecordCount)
		}
		if meta.Portals["austender"] != 2 || meta.Portals["qtenders"] != 1 {
			t.Errorf("Portals = %v", meta.Portals)
		}
	})

	t.Run("GetMetadata", func(t *testing.T) {
		meta, err := client.GetMetadata(ctx, runID)
		if err != nil {
			t.Fatalf("GetMetadata() error = %v", err)
		}
		if meta.RunID != runID {
			t.Errorf("RunID = %q, want %q", meta.RunID, runID)
		}
	})

	t.Run("GetRunRecords", func(t *testing.T) {
		got, err := client.GetRunRecords(ctx, runID)
		if err != nil {
			t.Fatalf("GetRunRecords() error = %v", err)
		}
		if len(got) != 3 {
			t.Errorf("got %d records, want 3", len(got))
		}
	})

	t.Run("ListRuns", func(t *testing.T) {
		runs, err := client.ListRuns(ctx)
		if err != nil {
			t.Fatalf("ListRuns() error = %v", err)
		}
		found := false
		for _, r := range runs {
			if r == runID {
				found = true
			}
		}
		if !found {
			t.Errorf("run %q not listed in %v", runID, runs)
		}
	})
}
