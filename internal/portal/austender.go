package portal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"

	"github.com/kpant2190/Opportender-Backend/pkg/models"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
	"(KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

// ScrapeConfig bounds a portal scrape.
type ScrapeConfig struct {
	MaxItems     int
	ItemsPerPage int
	Delay        time.Duration
	Timeout      time.Duration
	UserAgent    string
}

func (c *ScrapeConfig) applyDefaults() {
	if c.MaxItems == 0 {
		c.MaxItems = 400
	}
	if c.ItemsPerPage == 0 {
		c.ItemsPerPage = 100
	}
	if c.Timeout == 0 {
		c.Timeout = 30 * time.Second
	}
	if c.UserAgent == "" {
		c.UserAgent = defaultUserAgent
	}
}

// atmIDFromLink pulls an ATM-like identifier out of a detail-page URL.
var atmIDFromLink = regexp.MustCompile(`(?i)/atm/[^/]+/[^/]+/([^/?#]+)`)

// AusTender scrapes the Commonwealth AusTender open-opportunities list.
type AusTender struct {
	config  ScrapeConfig
	baseURL string
}

// NewAusTender creates the AusTender scraper.
func NewAusTender(config ScrapeConfig) *AusTender {
	config.applyDefaults()
	return &AusTender{config: config, baseURL: "https://www.tenders.gov.au"}
}

func (a *AusTender) Name() string { return "austender" }

func (a *AusTender) Fetch(ctx context.Context) ([]models.Tender, error) {
	var out []models.Tender
	var scrapeErr error

	c := a.newCollector(ctx)

	c.OnHTML(".boxEQH .row", func(e *colly.HTMLElement) {
		if len(out) >= a.config.MaxItems {
			return
		}
		if t, ok := a.parseRow(e); ok {
			out = append(out, t)
		}
	})

	// Follow the numeric pager until the item cap is reached.
	c.OnHTML("ul.pagination li.next a[href]", func(e *colly.HTMLElement) {
		if len(out) >= a.config.MaxItems {
			return
		}
		var alreadyVisited *colly.AlreadyVisitedError
		if err := e.Request.Visit(e.Attr("href")); err != nil && !errors.As(err, &alreadyVisited) {
			slog.Debug("austender pagination stopped", "error", err)
		}
	})

	c.OnError(func(r *colly.Response, err error) {
		scrapeErr = fmt.Errorf("austender fetch failed: %w", err)
	})

	startURL := fmt.Sprintf("%s/atm?%s", a.baseURL, url.Values{
		"ItemsPerPage": {fmt.Sprint(a.config.ItemsPerPage)},
		"AtmPage":      {"1"},
	}.Encode())
	if err := c.Visit(startURL); err != nil {
		return nil, fmt.Errorf("austender fetch failed: %w", err)
	}
	c.Wait()

	if scrapeErr != nil && len(out) == 0 {
		return nil, scrapeErr
	}
	return out, nil
}

// parseRow extracts one tender from a list row: the left column carries
// the title, the right column "Key: Value" meta lines.
func (a *AusTender) parseRow(e *colly.HTMLElement) (models.Tender, bool) {
	right := e.DOM.Find(".col-sm-8")
	if right.Length() == 0 {
		return models.Tender{}, false
	}
	title := models.NormalizeSpace(e.DOM.Find(".col-sm-4").Text())

	var metaLines []string
	right.Find(".list-desc").Each(func(_ int, s *goquery.Selection) {
		if t := s.Text(); t != "" {
			metaLines = append(metaLines, t)
		}
	})
	fields := KVLines(metaLines)

	closeStr := fields["close date & time"]
	if closeStr == "" {
		closeStr = fields["close date"]
	}
	if closeStr == "" {
		closeStr = fields["closing date"]
	}

	link := ""
	if href, ok := right.Find(".list-desc a").First().Attr("href"); ok {
		link = e.Request.AbsoluteURL(href)
	}

	sourceID := fields["atm id"]
	if sourceID == "" && link != "" {
		if m := atmIDFromLink.FindStringSubmatch(link); m != nil {
			sourceID = m[1]
		}
	}

	closingTS := ParseDateTime(closeStr)
	closingDate := ParseDate(closeStr)
	if closingDate == "" && len(closingTS) >= 10 {
		closingDate = closingTS[:10]
	}

	t := models.New(models.Tender{
		SourcePortal: a.Name(),
		SourceID:     sourceID,
		Title:        title,
		Description:  fields["description"],
		Category:     fields["category"],
		Buyer:        fields["agency"],
		Location:     fields["location"],
		PublishDate:  ParseDate(fields["publish date"]),
		ClosingDate:  closingDate,
		ClosingTS:    closingTS,
		TenderValue:  MoneyToFloat(fields["value"]),
		Link:         link,
	})
	return t, true
}

func (a *AusTender) newCollector(ctx context.Context) *colly.Collector {
	c := colly.NewCollector(
		colly.UserAgent(a.config.UserAgent),
	)
	c.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Delay:       a.config.Delay,
		Parallelism: 1,
	})
	c.SetRequestTimeout(a.config.Timeout)
	c.OnRequest(func(r *colly.Request) {
		if ctx.Err() != nil {
			r.Abort()
			return
		}
		r.Headers.Set("Accept-Language", "en-AU,en;q=0.9")
	})
	return c
}

// setBaseURL points the scraper at a different host, used by tests.
func (a *AusTender) setBaseURL(base string) {
	a.baseURL = strings.TrimSuffix(base, "/")
}
