package processor

import (
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"golang.org/x/net/html"

	"github.com/kpant2190/Opportender-Backend/pkg/models"
)

// Processor cleans scraped tender descriptions. Portal detail pages often
// hand back raw HTML fragments; downstream filtering and notification want
// readable text.
type Processor struct{}

// New creates a description processor.
func New() *Processor {
	return &Processor{}
}

// Clean normalizes a scraped description. HTML-looking input is converted
// to Markdown; plain text gets whitespace collapsed. Conversion failures
// fall back to stripping tags so a bad fragment never loses the record.
func (p *Processor) Clean(content string) string {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return ""
	}

	if !looksLikeHTML(trimmed) {
		return models.NormalizeSpace(trimmed)
	}

	markdown, err := htmltomarkdown.ConvertString(trimmed)
	if err != nil {
		return models.NormalizeSpace(stripTags(trimmed))
	}
	return strings.TrimSpace(markdown)
}

// CleanTender returns a copy with the description cleaned.
func (p *Processor) CleanTender(t models.Tender) models.Tender {
	t.Description = p.Clean(t.Description)
	return t
}

// looksLikeHTML checks if content appears to be an HTML document or fragment.
func looksLikeHTML(content string) bool {
	lower := strings.ToLower(content)
	if strings.HasPrefix(lower, "<!doctype") ||
		strings.HasPrefix(lower, "<html") ||
		strings.HasPrefix(lower, "<head") ||
		strings.HasPrefix(lower, "<body") {
		return true
	}
	// Fragments: an opening tag with a matching closing tag somewhere.
	if strings.HasPrefix(lower, "<") && strings.Contains(lower, "</") {
		return true
	}
	return false
}

// stripTags extracts the text nodes of an HTML fragment.
func stripTags(content string) string {
	doc, err := html.Parse(strings.NewReader(content))
	if err != nil {
		return content
	}

	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteString(" ")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return b.String()
}
