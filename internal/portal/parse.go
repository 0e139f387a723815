package portal

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/kpant2190/Opportender-Backend/pkg/models"
)

// Australian tender portals publish dates in a wide spread of formats.
var dateLayouts = []string{
	"2-Jan-2006",
	"2-Jan-2006 15:04",
	"2-Jan-2006 3:04PM",
	"2/1/2006",
	"2/1/2006 15:04",
	"2/1/2006 3:04PM",
	"2006-01-02",
	"2 Jan 2006",
	"2 Jan, 2006",
	"2 January 2006",
	"2006-01-02T15:04:05",
	time.RFC3339,
}

var datetimeLayouts = []string{
	"2-Jan-2006 15:04",
	"2-Jan-2006 3:04PM",
	"2/1/2006 15:04",
	"2/1/2006 3:04PM",
	"2006-01-02 15:04",
	"2006-01-02T15:04",
	"2006-01-02T15:04:05",
	time.RFC3339,
}

// ParseDate parses common portal date formats to "YYYY-MM-DD". Returns ""
// when nothing matches.
func ParseDate(s string) string {
	txt := models.NormalizeSpace(s)
	if txt == "" {
		return ""
	}
	for _, layout := range dateLayouts {
		if d, err := time.Parse(layout, txt); err == nil {
			return d.Format("2006-01-02")
		}
	}
	return ""
}

// ParseDateTime parses common portal date/time formats to an ISO 8601
// timestamp without zone. Returns "" when nothing matches.
func ParseDateTime(s string) string {
	txt := models.NormalizeSpace(s)
	if txt == "" {
		return ""
	}
	for _, layout := range datetimeLayouts {
		if d, err := time.Parse(layout, txt); err == nil {
			return d.Format("2006-01-02T15:04:05")
		}
	}
	return ""
}

var moneyRe = regexp.MustCompile(`[^\d.\-]`)

// MoneyToFloat converts currency strings like "$1,234.56" or "AUD 12,000"
// to their numeric value. Returns nil if empty or unparsable.
func MoneyToFloat(s string) *float64 {
	raw := moneyRe.ReplaceAllString(s, "")
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil
	}
	return &v
}

// KVLines converts lines like "ATM ID: ABC123" to a map with
// case-insensitive keys. Lines without a colon are skipped.
func KVLines(lines []string) map[string]string {
	fields := make(map[string]string)
	for _, raw := range lines {
		t := models.NormalizeSpace(raw)
		if t == "" {
			continue
		}
		k, v, ok := strings.Cut(t, ":")
		if !ok {
			continue
		}
		fields[strings.ToLower(strings.TrimSpace(k))] = strings.TrimSpace(v)
	}
	return fields
}

// dayMonthYearRe matches the "25 Aug, 2025" part of closing text like
// "12:00 PM , 25 Aug, 2025".
var dayMonthYearRe = regexp.MustCompile(`(\d{1,2}\s+[A-Za-z]{3},?\s+\d{4})`)

// ExtractClosingDate pulls a day-month-year date out of free-form closing
// text and normalizes it. Returns "" when no date is found.
func ExtractClosingDate(text string) string {
	m := dayMonthYearRe.FindString(text)
	if m == "" {
		return ""
	}
	return ParseDate(strings.ReplaceAll(m, ",", ""))
}
