package store

import "github.com/kpant2190/Opportender-Backend/pkg/models"

// row is the allow-listed column set persisted for a tender. Fields the
// scrapers may carry beyond this set are dropped at the persistence
// boundary; dates are coerced to YYYY-MM-DD and tender_value to
// float-or-null.
type row struct {
	SourcePortal string    `json:"source_portal"`
	SourceID     string    `json:"source_id,omitempty"`
	Title        string    `json:"title,omitempty"`
	Description  string    `json:"description,omitempty"`
	Category     string    `json:"category,omitempty"`
	Buyer        string    `json:"buyer,omitempty"`
	Location     string    `json:"location,omitempty"`
	Link         string    `json:"link,omitempty"`
	PublishDate  *string   `json:"publish_date,omitempty"`
	ClosingDate  *string   `json:"closing_date,omitempty"`
	ClosingTS    string    `json:"closing_ts,omitempty"`
	TenderValue  *float64  `json:"tender_value,omitempty"`
	ContactName  string    `json:"contact_name,omitempty"`
	ContactEmail string    `json:"contact_email,omitempty"`
	TenderHash   string    `json:"tender_hash"`
	Embedding    []float32 `json:"embedding,omitempty"`
}

// coerceDate normalizes date-ish strings to YYYY-MM-DD, treating empty and
// N/A markers as null. Assumes ISO-ish input and keeps the first 10 chars.
func coerceDate(v string) *string {
	if v == "" || v == "N/A" {
		return nil
	}
	if len(v) > 10 {
		v = v[:10]
	}
	return &v
}

func coerceRow(t models.Tender) row {
	return row{
		SourcePortal: t.SourcePortal,
		SourceID:     t.SourceID,
		Title:        t.Title,
		Description:  t.Description,
		Category:     t.Category,
		Buyer:        t.Buyer,
		Location:     t.Location,
		Link:         t.Link,
		PublishDate:  coerceDate(t.PublishDate),
		ClosingDate:  coerceDate(t.ClosingDate),
		ClosingTS:    t.ClosingTS,
		TenderValue:  t.TenderValue,
		ContactName:  t.ContactName,
		ContactEmail: t.ContactEmail,
		TenderHash:   t.TenderHash,
	}
}
