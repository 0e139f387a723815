// Package store persists tenders in Elasticsearch. Batch upserts use the
// bulk API with create operations keyed by tender identity, which yields the
// exact "return only newly inserted" semantics the pipeline needs: a 201
// item is a new row, a 409 item is a silently-skipped duplicate.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/elastic/go-elasticsearch/v8"

	"github.com/kpant2190/Opportender-Backend/pkg/models"
)

// Config holds Elasticsearch client configuration.
type Config struct {
	Addresses []string
	Index     string
	Username  string
	Password  string
	VectorDim int // dense_vector dims for the embedding field
}

// Client wraps the Elasticsearch client with tender-specific operations.
type Client struct {
	es    *elasticsearch.Client
	index string
	dims  int
}

// New creates a new store client.
func New(config Config) (*Client, error) {
	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: config.Addresses,
		Username:  config.Username,
		Password:  config.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create ES client: %w", err)
	}

	dims := config.VectorDim
	if dims <= 0 {
		dims = 1536
	}

	return &Client{es: es, index: config.Index, dims: dims}, nil
}

// Ping checks if Elasticsearch is available.
func (c *Client) Ping(ctx context.Context) bool {
	res, err := c.es.Ping(c.es.Ping.WithContext(ctx))
	if err != nil {
		return false
	}
	defer res.Body.Close()
	return !res.IsError()
}

const indexMappingTmpl = `{
	"mappings": {
		"properties": {
			"source_portal": { "type": "keyword" },
			"source_id": { "type": "keyword" },
			"title": { "type": "text" },
			"description": { "type": "text", "analyzer": "english" },
			"category": { "type": "keyword" },
			"buyer": { "type": "text" },
			"location": { "type": "keyword" },
			"link": { "type": "keyword" },
			"publish_date": { "type": "date", "format": "yyyy-MM-dd" },
			"closing_date": { "type": "date", "format": "yyyy-MM-dd" },
			"closing_ts": { "type": "date", "format": "date_optional_time" },
			"tender_value": { "type": "double" },
			"contact_name": { "type": "keyword" },
			"contact_email": { "type": "keyword" },
			"tender_hash": { "type": "keyword" },
			"notified_at": { "type": "date" },
			"embedding": {
				"type": "dense_vector",
				"dims": %d,
				"index": true,
				"similarity": "cosine"
			}
		}
	}
}`

// CreateIndex creates the tenders index with proper mapping if it does not
// already exist.
func (c *Client) CreateIndex(ctx context.Context) error {
	res, err := c.es.Indices.Exists([]string{c.index}, c.es.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to check index: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == 200 {
		return nil
	}

	mapping := fmt.Sprintf(indexMappingTmpl, c.dims)
	res, err = c.es.Indices.Create(
		c.index,
		c.es.Indices.Create.WithContext(ctx),
		c.es.Indices.Create.WithBody(bytes.NewReader([]byte(mapping))),
	)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("error creating index: %s", res.String())
	}
	return nil
}

// DeleteIndex removes the index (for testing/cleanup).
func (c *Client) DeleteIndex(ctx context.Context) error {
	res, err := c.es.Indices.Delete([]string{c.index}, c.es.Indices.Delete.WithContext(ctx))
	if err != nil {
		return err
	}
	defer res.Body.Close()
	return nil
}

type bulkResponse struct {
	Items []map[string]struct {
		ID     int    `json:"-"`
		Status int    `json:"status"`
		Error  *struct {
			Type   string `json:"type"`
			Reason string `json:"reason"`
		} `json:"error,omitempty"`
	} `json:"items"`
}

// UpsertBatch inserts tenders that are not already known by identity and
// returns exactly the newly-inserted subset, in input order. Pre-existing
// identities are silently skipped, never updated. A transport or
// non-conflict item failure surfaces as an error alongside any rows that
// did insert.
func (c *Client) UpsertBatch(ctx context.Context, tenders []models.Tender) ([]models.Tender, error) {
	if len(tenders) == 0 {
		return nil, nil
	}

	var buf bytes.Buffer
	for _, t := range tenders {
		meta := map[string]map[string]string{
			"create": {"_index": c.index, "_id": t.IdentityKey()},
		}
		metaLine, err := json.Marshal(meta)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal bulk meta: %w", err)
		}
		docLine, err := json.Marshal(coerceRow(t))
		if err != nil {
			return nil, fmt.Errorf("failed to marshal row: %w", err)
		}
		buf.Write(metaLine)
		buf.WriteByte('\n')
		buf.Write(docLine)
		buf.WriteByte('\n')
	}

	res, err := c.es.Bulk(
		bytes.NewReader(buf.Bytes()),
		c.es.Bulk.WithContext(ctx),
		c.es.Bulk.WithIndex(c.index),
	)
	if err != nil {
		return nil, fmt.Errorf("bulk upsert failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("bulk upsert error (status %d): %s", res.StatusCode, res.String())
	}

	var br bulkResponse
	if err := json.NewDecoder(res.Body).Decode(&br); err != nil {
		return nil, fmt.Errorf("failed to decode bulk response: %w", err)
	}
	if len(br.Items) != len(tenders) {
		return nil, fmt.Errorf("bulk response has %d items for %d rows", len(br.Items), len(tenders))
	}

	var inserted []models.Tender
	var itemErr error
	for i, item := range br.Items {
		result, ok := item["create"]
		if !ok {
			continue
		}
		switch {
		case result.Status == 201:
			inserted = append(inserted, tenders[i])
		case result.Status == 409:
			// Already known by identity.
		default:
			reason := "unknown"
			if result.Error != nil {
				reason = result.Error.Reason
			}
			itemErr = fmt.Errorf("bulk item failed (status %d): %s", result.Status, reason)
		}
	}
	return inserted, itemErr
}

// UpdateEmbedding persists the embedding vector for the tender identified
// by its content hash.
func (c *Client) UpdateEmbedding(ctx context.Context, tenderHash string, vec []float32) error {
	body := map[string]any{
		"script": map[string]any{
			"source": "ctx._source.embedding = params.vec",
			"params": map[string]any{"vec": vec},
		},
		"query": termQuery("tender_hash", tenderHash),
	}
	return c.updateByQuery(ctx, body)
}

// MarkNotified stamps notified_at for the tender identified by its content
// hash. Idempotent: re-marking an already-notified tender is harmless.
func (c *Client) MarkNotified(ctx context.Context, tenderHash string) error {
	body := map[string]any{
		"script": map[string]any{
			"source": "ctx._source.notified_at = params.now",
			"params": map[string]any{"now": time.Now().UTC().Format(time.RFC3339)},
		},
		"query": termQuery("tender_hash", tenderHash),
	}
	return c.updateByQuery(ctx, body)
}

func (c *Client) updateByQuery(ctx context.Context, body map[string]any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal update: %w", err)
	}

	res, err := c.es.UpdateByQuery(
		[]string{c.index},
		c.es.UpdateByQuery.WithContext(ctx),
		c.es.UpdateByQuery.WithBody(bytes.NewReader(data)),
		c.es.UpdateByQuery.WithRefresh(true),
	)
	if err != nil {
		return fmt.Errorf("update by query failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("update by query error: %s", res.String())
	}
	return nil
}

// ExistingHashes returns the subset of the given hashes already present in
// the index. Optional preflight dedup helper.
func (c *Client) ExistingHashes(ctx context.Context, hashes []string) (map[string]bool, error) {
	if len(hashes) == 0 {
		return map[string]bool{}, nil
	}

	query := map[string]any{
		"query": map[string]any{
			"terms": map[string]any{"tender_hash": hashes},
		},
		"_source": []string{"tender_hash"},
		"size":    len(hashes),
	}
	data, err := json.Marshal(query)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal query: %w", err)
	}

	res, err := c.es.Search(
		c.es.Search.WithContext(ctx),
		c.es.Search.WithIndex(c.index),
		c.es.Search.WithBody(bytes.NewReader(data)),
	)
	if err != nil {
		return nil, fmt.Errorf("preflight select failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("preflight select error: %s", res.String())
	}

	var sr searchResponse
	if err := json.NewDecoder(res.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	existing := make(map[string]bool, len(sr.Hits.Hits))
	for _, hit := range sr.Hits.Hits {
		if hit.Source.TenderHash != "" {
			existing[hit.Source.TenderHash] = true
		}
	}
	return existing, nil
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			Source models.Tender `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// Search performs a text search over title, description, buyer and category.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]models.Tender, error) {
	searchQuery := map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":  query,
				"fields": []string{"title^2", "description", "buyer", "category"},
			},
		},
		"size": limit,
	}

	data, err := json.Marshal(searchQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal query: %w", err)
	}

	res, err := c.es.Search(
		c.es.Search.WithContext(ctx),
		c.es.Search.WithIndex(c.index),
		c.es.Search.WithBody(bytes.NewReader(data)),
	)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("search error: %s", res.String())
	}

	var sr searchResponse
	if err := json.NewDecoder(res.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	tenders := make([]models.Tender, len(sr.Hits.Hits))
	for i, hit := range sr.Hits.Hits {
		tenders[i] = hit.Source
	}
	return tenders, nil
}

// GetTender retrieves a tender by content hash. Returns nil when absent.
func (c *Client) GetTender(ctx context.Context, tenderHash string) (*models.Tender, error) {
	query := map[string]any{
		"query": termQuery("tender_hash", tenderHash),
		"size":  1,
	}
	data, err := json.Marshal(query)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal query: %w", err)
	}

	res, err := c.es.Search(
		c.es.Search.WithContext(ctx),
		c.es.Search.WithIndex(c.index),
		c.es.Search.WithBody(bytes.NewReader(data)),
	)
	if err != nil {
		return nil, fmt.Errorf("get failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("get error: %s", res.String())
	}

	var sr searchResponse
	if err := json.NewDecoder(res.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(sr.Hits.Hits) == 0 {
		return nil, nil
	}
	t := sr.Hits.Hits[0].Source
	return &t, nil
}

// Refresh forces an index refresh (useful for testing).
func (c *Client) Refresh(ctx context.Context) error {
	res, err := c.es.Indices.Refresh(
		c.es.Indices.Refresh.WithContext(ctx),
		c.es.Indices.Refresh.WithIndex(c.index),
	)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	return nil
}

func termQuery(field, value string) map[string]any {
	return map[string]any{
		"term": map[string]any{field: value},
	}
}
