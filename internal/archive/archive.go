package archive

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/kpant2190/Opportender-Backend/pkg/models"
)

// Config holds S3/MinIO client configuration for run snapshots.
type Config struct {
	Endpoint        string // "localhost:9000" for MinIO
	Bucket          string // "opportender"
	AccessKeyID     string
	SecretAccessKey string
	UseSSL          bool
}

// Client archives each pipeline run's raw fetched records to object
// storage so runs can be replayed through ingestion later. A nil *Client
// is a valid no-op archive.
type Client struct {
	minioClient *minio.Client
	bucket      string
}

// New creates an archive client.
func New(config Config) (*Client, error) {
	if config.Endpoint == "" {
		return nil, fmt.Errorf("endpoint is required")
	}
	if config.Bucket == "" {
		return nil, fmt.Errorf("bucket is required")
	}

	minioClient, err := minio.New(config.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(config.AccessKeyID, config.SecretAccessKey, ""),
		Secure: config.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	return &Client{
		minioClient: minioClient,
		bucket:      config.Bucket,
	}, nil
}

// EnsureBucket creates the bucket if it doesn't exist.
func (c *Client) EnsureBucket(ctx context.Context) error {
	if c == nil {
		return nil
	}
	exists, err := c.minioClient.BucketExists(ctx, c.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket: %w", err)
	}
	if exists {
		return nil
	}
	if err := c.minioClient.MakeBucket(ctx, c.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("failed to create bucket: %w", err)
	}
	return nil
}

// RunMetadata describes an archived pipeline run.
type RunMetadata struct {
	RunID       string         `json:"run_id"`
	Timestamp   string         `json:"timestamp"`
	RecordCount int            `json:"record_count"`
	Portals     map[string]int `json:"portals"` // portal name -> record count
}

// NewRunID builds a sortable run identifier: UTC timestamp plus a short
// random suffix to keep concurrent runs distinct.
func NewRunID(now time.Time) string {
	suffix := make([]byte, 3)
	rand.Read(suffix)
	return now.UTC().Format("20060102T150405") + "-" + hex.EncodeToString(suffix)
}

// PutRun writes one run's fetched records grouped per portal, plus the
// run metadata. Returns the metadata written.
func (c *Client) PutRun(ctx context.Context, runID string, records []models.Tender) (*RunMetadata, error) {
	if c == nil {
		return nil, nil
	}

	byPortal := make(map[string][]models.Tender)
	for _, t := range records {
		portal := t.SourcePortal
		if portal == "" {
			portal = "unknown"
		}
		byPortal[portal] = append(byPortal[portal], t)
	}

	meta := RunMetadata{
		RunID:       runID,
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
		RecordCount: len(records),
		Portals:     make(map[string]int, len(byPortal)),
	}

	for portal, group := range byPortal {
		data, err := json.MarshalIndent(group, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to marshal records for %s: %w", portal, err)
		}
		objectName := path.Join("runs", runID, "records", portal+".json")
		_, err = c.minioClient.PutObject(ctx, c.bucket, objectName, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
			ContentType: "application/json",
		})
		if err != nil {
			return nil, fmt.Errorf("failed to put records for %s: %w", portal, err)
		}
		meta.Portals[portal] = len(group)
	}

	if err := c.putMetadata(ctx, runID, meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

func (c *Client) putMetadata(ctx context.Context, runID string, meta RunMetadata) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}
	objectName := path.Join("runs", runID, "metadata.json")
	_, err = c.minioClient.PutObject(ctx, c.bucket, objectName, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return fmt.Errorf("failed to put metadata: %w", err)
	}
	return nil
}

// ListRuns returns archived run IDs, newest first.
func (c *Client) ListRuns(ctx context.Context) ([]string, error) {
	if c == nil {
		return nil, nil
	}

	var runs []string
	objectCh := c.minioClient.ListObjects(ctx, c.bucket, minio.ListObjectsOptions{
		Prefix: "runs/",
	})
	for object := range objectCh {
		if object.Err != nil {
			return nil, fmt.Errorf("failed to list runs: %w", object.Err)
		}
		// Common-prefix entries look like "runs/<id>/".
		id := strings.TrimSuffix(strings.TrimPrefix(object.Key, "runs/"), "/")
		if id != "" {
			runs = append(runs, id)
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(runs)))
	return runs, nil
}

// GetMetadata reads a run's metadata.
func (c *Client) GetMetadata(ctx context.Context, runID string) (*RunMetadata, error) {
	data, err := c.getObject(ctx, path.Join("runs", runID, "metadata.json"))
	if err != nil {
		return nil, err
	}
	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
	}
	return &meta, nil
}

// GetRunRecords reads every record archived for a run, across all portals.
func (c *Client) GetRunRecords(ctx context.Context, runID string) ([]models.Tender, error) {
	if c == nil {
		return nil, nil
	}

	prefix := path.Join("runs", runID, "records") + "/"
	var records []models.Tender

	objectCh := c.minioClient.ListObjects(ctx, c.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	})
	for object := range objectCh {
		if object.Err != nil {
			return nil, fmt.Errorf("failed to list records: %w", object.Err)
		}
		if !strings.HasSuffix(object.Key, ".json") {
			continue
		}
		data, err := c.getObject(ctx, object.Key)
		if err != nil {
			return nil, err
		}
		var group []models.Tender
		if err := json.Unmarshal(data, &group); err != nil {
			return nil, fmt.Errorf("failed to unmarshal %s: %w", object.Key, err)
		}
		records = append(records, group...)
	}
	return records, nil
}

func (c *Client) getObject(ctx context.Context, objectName string) ([]byte, error) {
	object, err := c.minioClient.GetObject(ctx, c.bucket, objectName, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", objectName, err)
	}
	defer object.Close()

	data, err := io.ReadAll(object)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", objectName, err)
	}
	return data, nil
}

// Bucket returns the bucket name.
func (c *Client) Bucket() string {
	if c == nil {
		return ""
	}
	return c.bucket
}
