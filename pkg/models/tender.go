package models

import (
	"errors"
	"time"
)

// ErrInvalidShape is returned by Coerce when a raw record cannot be
// converted into a Tender.
var ErrInvalidShape = errors.New("invalid tender shape")

// Tender represents a single tender listing scraped from a portal.
// A scraper fills the descriptive fields; TenderHash, Embedding and
// NotifiedAt are derived later in the pipeline.
type Tender struct {
	SourcePortal string `json:"source_portal"`
	SourceID     string `json:"source_id,omitempty"`

	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Category    string `json:"category,omitempty"`
	Buyer       string `json:"buyer,omitempty"`
	Location    string `json:"location,omitempty"`
	Link        string `json:"link,omitempty"`

	// ATMID is the legacy AusTender identifier. New code uses SourceID;
	// New maps this onto SourceID when SourceID is empty.
	ATMID string `json:"atm_id,omitempty"`

	PublishDate string `json:"publish_date,omitempty"` // YYYY-MM-DD
	ClosingDate string `json:"closing_date,omitempty"` // YYYY-MM-DD
	ClosingTS   string `json:"closing_ts,omitempty"`   // ISO 8601 timestamp

	TenderValue  *float64 `json:"tender_value,omitempty"`
	ContactName  string   `json:"contact_name,omitempty"`
	ContactEmail string   `json:"contact_email,omitempty"`

	TenderHash string     `json:"tender_hash,omitempty"`
	Embedding  []float32  `json:"embedding,omitempty"`
	NotifiedAt *time.Time `json:"notified_at,omitempty"`
}

// New applies construction-time invariants to a tender: the legacy
// atm_id maps onto source_id, and closing_date is derived from the
// first 10 characters of closing_ts when absent.
func New(t Tender) Tender {
	if t.SourceID == "" && t.ATMID != "" {
		t.SourceID = t.ATMID
	}
	if t.ClosingDate == "" && len(t.ClosingTS) >= 10 {
		t.ClosingDate = t.ClosingTS[:10]
	}
	return t
}

// Coerce converts a value crossing the external boundary into a Tender.
// It accepts a Tender or a loosely-keyed map; anything else fails with
// ErrInvalidShape. Internal code only ever sees the canonical type.
func Coerce(v any) (Tender, error) {
	switch x := v.(type) {
	case Tender:
		return New(x), nil
	case *Tender:
		if x == nil {
			return Tender{}, ErrInvalidShape
		}
		return New(*x), nil
	case map[string]any:
		t := Tender{
			SourcePortal: str(x["source_portal"]),
			SourceID:     str(x["source_id"]),
			ATMID:        str(x["atm_id"]),
			Title:        str(x["title"]),
			Description:  str(x["description"]),
			Category:     str(x["category"]),
			Buyer:        str(x["buyer"]),
			Location:     str(x["location"]),
			Link:         str(x["link"]),
			PublishDate:  str(x["publish_date"]),
			ClosingDate:  str(x["closing_date"]),
			ClosingTS:    str(x["closing_ts"]),
			ContactName:  str(x["contact_name"]),
			ContactEmail: str(x["contact_email"]),
		}
		if t.SourcePortal == "" {
			t.SourcePortal = "unknown"
		}
		if f, ok := num(x["tender_value"]); ok {
			t.TenderValue = &f
		}
		return New(t), nil
	default:
		return Tender{}, ErrInvalidShape
	}
}

// IdentityKey returns the persistence identity for a tender: the
// (source_portal, source_id) pair when a portal identifier exists,
// otherwise the content fingerprint.
func (t Tender) IdentityKey() string {
	if t.SourceID != "" {
		return t.SourcePortal + ":" + t.SourceID
	}
	if t.TenderHash != "" {
		return t.TenderHash
	}
	return Fingerprint(t)
}

func str(v any) string {
	s, _ := v.(string)
	return s
}

func num(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
