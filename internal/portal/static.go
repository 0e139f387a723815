package portal

import (
	"context"
	"time"

	"github.com/kpant2190/Opportender-Backend/pkg/models"
)

// StaticFeed is an in-memory portal used for demos and smoke tests. It
// always succeeds and returns the same two opportunities with closing
// dates relative to now.
type StaticFeed struct {
	now func() time.Time
}

// NewStaticFeed creates the static demo feed.
func NewStaticFeed() *StaticFeed {
	return &StaticFeed{now: time.Now}
}

func (s *StaticFeed) Name() string { return "static_example" }

func (s *StaticFeed) Fetch(ctx context.Context) ([]models.Tender, error) {
	today := s.now().UTC()
	publishDate := today.Format("2006-01-02")

	closeAt := func(daysFromNow int) string {
		d := today.AddDate(0, 0, daysFromNow)
		return time.Date(d.Year(), d.Month(), d.Day(), 17, 0, 0, 0, time.UTC).Format(time.RFC3339)
	}

	return []models.Tender{
		models.New(models.Tender{
			SourcePortal: s.Name(),
			SourceID:     "EX-IT-001",
			Title:        "Managed IT Services for Regional Office",
			Description:  "Seeking managed services for network monitoring, helpdesk, and cybersecurity.",
			Category:     "IT Services",
			Buyer:        "Example Council",
			Location:     "Australia",
			PublishDate:  publishDate,
			ClosingTS:    closeAt(21),
			ContactName:  "Procurement Team",
			ContactEmail: "procurement@example.org",
			Link:         "https://example.org/tenders/managed-it",
		}),
		models.New(models.Tender{
			SourcePortal: s.Name(),
			SourceID:     "EX-CLD-002",
			Title:        "Cloud Migration and ERP Integration",
			Description:  "Migrate on-prem workloads to AWS/Azure and integrate with existing ERP.",
			Category:     "Cloud / ERP",
			Buyer:        "Example Health",
			Location:     "Australia",
			PublishDate:  publishDate,
			ClosingTS:    closeAt(28),
			ContactName:  "IT Buyer",
			ContactEmail: "itbuyer@example.org",
			Link:         "https://example.org/tenders/cloud-erp",
		}),
	}, nil
}
