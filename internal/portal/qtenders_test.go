package portal

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

const qtendersListPage = `<!DOCTYPE html>
<html><body>
<table>
  <tr bgcolor="#E7E7E6">
    <td align="left"><b>VP466467</b></td>
    <td>
      <a id="MSG" href="/qtenders/tender/display/tender-details.do?id=466467">Road Maintenance Program 2025</a>
      <span class="SUMMARY_SMALL">Issued by Department of Transport UNSPSC: 72141000 - Road construction</span>
      <span class="SUMMARY_CLOSINGDATE"></span>
      <span class="SUMMARY_CLOSINGDATE">12:00 PM , 25 Aug, 2025</span>
    </td>
  </tr>
  <tr bgcolor="#F6F6F6">
    <td align="left"><b>not-a-code</b></td>
    <td>
      <a id="MSG" href="/qtenders/tender/display/tender-details.do?id=466468">Cleaning Services</a>
      <span class="SUMMARY_SMALL">Issued by Example Hospital</span>
    </td>
  </tr>
  <tr><td>pager row without a title link</td></tr>
</table>
</body></html>`

func TestQTenders_Fetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(qtendersListPage))
	}))
	defer server.Close()

	scraper := NewQTenders(ScrapeConfig{MaxItems: 10})
	scraper.setBaseURL(server.URL)

	got, err := scraper.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d tenders, want 2", len(got))
	}

	first := got[0]
	if first.SourcePortal != "qtenders" {
		t.Errorf("SourcePortal = %q", first.SourcePortal)
	}
	if first.Title != "Road Maintenance Program 2025" {
		t.Errorf("Title = %q", first.Title)
	}
	if first.Buyer != "Department of Transport" {
		t.Errorf("Buyer = %q", first.Buyer)
	}
	if first.Category != "72141000 - Road construction" {
		t.Errorf("Category = %q", first.Category)
	}
	if first.ClosingDate != "2025-08-25" {
		t.Errorf("ClosingDate = %q (last non-empty closing span wins)", first.ClosingDate)
	}
	// Legacy code carried as atm_id maps onto source_id at construction.
	if first.SourceID != "VP466467" {
		t.Errorf("SourceID = %q, want tender code", first.SourceID)
	}
	if first.Description != first.Title {
		t.Errorf("list rows have no description, title stands in: %q", first.Description)
	}

	second := got[1]
	if second.SourceID != "" {
		t.Errorf("non-code bold text should not become SourceID: %q", second.SourceID)
	}
	if second.Buyer != "Example Hospital" {
		t.Errorf("Buyer = %q", second.Buyer)
	}
}

func TestQTenders_MaxItemsCapped(t *testing.T) {
	scraper := NewQTenders(ScrapeConfig{MaxItems: 500})
	if scraper.config.MaxItems != 50 {
		t.Errorf("MaxItems = %d, want capped at 50", scraper.config.MaxItems)
	}
}
