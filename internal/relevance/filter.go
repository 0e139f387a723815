// Package relevance decides whether a scraped tender matches the operator's
// domain of interest. The test is a two-stage funnel: a near-zero-cost
// keyword substring check first, then embedding cosine similarity against a
// reference vector for records that are semantically relevant but worded
// differently.
package relevance

import (
	"context"
	"strings"

	"github.com/kpant2190/Opportender-Backend/pkg/models"
)

// Embedder maps text to a fixed-dimension vector. Blank text maps to the
// zero vector and provider failures are recovered internally, so the call
// never fails.
type Embedder interface {
	Embed(ctx context.Context, text string) []float32
}

// genericQuery is embedded as the reference vector when no keywords are
// configured. Broad tech + services tender phrasing.
const genericQuery = "request for tender rft rfp rfi rfq government procurement " +
	"it services software cloud cyber data analytics consulting integration managed services"

// Config holds relevance filter configuration.
type Config struct {
	Keywords  []string // matched lower-cased against title+description
	Threshold float64  // cosine similarity cutoff in [0,1]
}

// Filter applies the two-stage relevance test.
type Filter struct {
	keywords  []string
	threshold float64
	queryVec  []float32
	embedder  Embedder
}

// Explanation is the diagnostic form of a relevance decision.
type Explanation struct {
	KeywordHit   bool    `json:"keyword_hit"`
	Similarity   float64 `json:"similarity"`
	Threshold    float64 `json:"threshold"`
	Decision     bool    `json:"decision"`
	TitlePreview string  `json:"title_preview"`
}

// New builds a Filter. The reference vector is embedded once, from the
// space-joined keywords or from the built-in generic procurement phrase.
func New(ctx context.Context, config Config, embedder Embedder) *Filter {
	var keywords []string
	for _, k := range config.Keywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if k != "" {
			keywords = append(keywords, k)
		}
	}

	queryText := genericQuery
	if len(keywords) > 0 {
		queryText = strings.Join(keywords, " ")
	}

	threshold := config.Threshold
	if threshold == 0 {
		threshold = 0.78
	}

	return &Filter{
		keywords:  keywords,
		threshold: threshold,
		queryVec:  embedder.Embed(ctx, queryText),
		embedder:  embedder,
	}
}

// IsRelevant reports whether a tender passes the relevance test. A keyword
// hit short-circuits without an embedding call.
func (f *Filter) IsRelevant(ctx context.Context, t models.Tender) bool {
	if f.keywordHit(t) {
		return true
	}
	return f.similarity(ctx, t) >= f.threshold
}

// Explain returns the full decision breakdown for a tender. The decision
// logic is identical to IsRelevant; the embedding call is made even on a
// keyword hit so the similarity is always reported.
func (f *Filter) Explain(ctx context.Context, t models.Tender) Explanation {
	kwHit := f.keywordHit(t)
	sim := f.similarity(ctx, t)

	preview := t.Title
	if len(preview) > 140 {
		preview = preview[:140]
	}

	return Explanation{
		KeywordHit:   kwHit,
		Similarity:   sim,
		Threshold:    f.threshold,
		Decision:     kwHit || sim >= f.threshold,
		TitlePreview: preview,
	}
}

func (f *Filter) keywordHit(t models.Tender) bool {
	if len(f.keywords) == 0 {
		return false
	}
	hay := strings.ToLower(t.Title) + "\n" + strings.ToLower(t.Description)
	for _, k := range f.keywords {
		if strings.Contains(hay, k) {
			return true
		}
	}
	return false
}

func (f *Filter) similarity(ctx context.Context, t models.Tender) float64 {
	text := strings.TrimSpace(t.Title + " " + t.Description)
	vec := f.embedder.Embed(ctx, text)
	return Cosine(f.queryVec, vec)
}
