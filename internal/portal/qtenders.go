package portal

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"

	"github.com/kpant2190/Opportender-Backend/pkg/models"
)

var (
	issuedByRe   = regexp.MustCompile(`(?i)Issued by\s+(.*?)(?:\s+UNSPSC:|$)`)
	unspscRe     = regexp.MustCompile(`(?i)UNSPSC:\s*(.*)$`)
	tenderCodeRe = regexp.MustCompile(`^[A-Z]{1,3}\d{4,}$`)
)

// QTenders scrapes the Queensland Government QTenders open-tender search.
type QTenders struct {
	config  ScrapeConfig
	baseURL string
}

// NewQTenders creates the QTenders scraper.
func NewQTenders(config ScrapeConfig) *QTenders {
	config.applyDefaults()
	if config.MaxItems > 50 {
		config.MaxItems = 50
	}
	return &QTenders{
		config:  config,
		baseURL: "https://qtenders.epw.qld.gov.au",
	}
}

func (q *QTenders) Name() string { return "qtenders" }

func (q *QTenders) Fetch(ctx context.Context) ([]models.Tender, error) {
	var out []models.Tender
	var scrapeErr error

	c := colly.NewCollector(colly.UserAgent(q.config.UserAgent))
	c.SetRequestTimeout(q.config.Timeout)
	c.OnRequest(func(r *colly.Request) {
		if ctx.Err() != nil {
			r.Abort()
			return
		}
		r.Headers.Set("Accept-Language", "en-AU,en;q=0.9")
	})

	// Result rows alternate two background colors; each carries an a#MSG
	// title link.
	c.OnHTML("tr", func(e *colly.HTMLElement) {
		if len(out) >= q.config.MaxItems {
			return
		}
		if t, ok := q.parseRow(e); ok {
			out = append(out, t)
		}
	})

	c.OnError(func(r *colly.Response, err error) {
		scrapeErr = fmt.Errorf("qtenders fetch failed: %w", err)
	})

	start := q.baseURL + "/qtenders/tender/search/tender-search.do?action=advanced-tender-search-open-tender"
	if err := c.Visit(start); err != nil {
		return nil, fmt.Errorf("qtenders fetch failed: %w", err)
	}
	c.Wait()

	if scrapeErr != nil && len(out) == 0 {
		return nil, scrapeErr
	}
	return out, nil
}

func (q *QTenders) parseRow(e *colly.HTMLElement) (models.Tender, bool) {
	a := e.DOM.Find("a#MSG").First()
	if a.Length() == 0 {
		return models.Tender{}, false
	}
	title := models.NormalizeSpace(a.Text())
	link := ""
	if href, ok := a.Attr("href"); ok {
		link = e.Request.AbsoluteURL(href)
	}

	// "Issued by ..." and "UNSPSC: ..." share the summary span.
	summary := models.NormalizeSpace(e.DOM.Find("span.SUMMARY_SMALL").Text())
	var buyer, category string
	if m := issuedByRe.FindStringSubmatch(summary); m != nil {
		buyer = models.NormalizeSpace(m[1])
	}
	if m := unspscRe.FindStringSubmatch(summary); m != nil {
		category = models.NormalizeSpace(m[1])
	}

	// Several closing-date spans may be present; the last non-empty wins.
	var closingRaw string
	e.DOM.Find("span.SUMMARY_CLOSINGDATE").Each(func(_ int, s *goquery.Selection) {
		if t := models.NormalizeSpace(s.Text()); t != "" {
			closingRaw = t
		}
	})

	// Tender code like VP466467 sits bold in the first cell.
	var code string
	if maybe := models.NormalizeSpace(e.DOM.Find("td[align='left'] b").First().Text()); tenderCodeRe.MatchString(maybe) {
		code = maybe
	}

	t := models.New(models.Tender{
		SourcePortal: q.Name(),
		Title:        title,
		Description:  title, // list rows carry no description
		Category:     category,
		ClosingDate:  ExtractClosingDate(closingRaw),
		Buyer:        buyer,
		Link:         link,
		ATMID:        code,
	})
	return t, true
}

// setBaseURL points the scraper at a different host, used by tests.
func (q *QTenders) setBaseURL(base string) {
	q.baseURL = strings.TrimSuffix(base, "/")
}
