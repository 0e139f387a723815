package models

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"regexp"
	"sort"
	"strings"
)

var spaceRe = regexp.MustCompile(`\s+`)

// NormalizeSpace collapses whitespace runs to a single space and trims.
func NormalizeSpace(s string) string {
	return spaceRe.ReplaceAllString(strings.TrimSpace(s), " ")
}

// CanonicalizeURL normalizes a URL for hashing and dedup:
// lower-cased scheme and host, fragment stripped, query re-encoded with
// parameters sorted by key (blank values preserved). Unparseable input
// falls back to the trimmed raw string.
func CanonicalizeURL(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return strings.TrimSpace(raw)
	}

	type pair struct{ k, v string }
	var pairs []pair
	for _, part := range strings.Split(u.RawQuery, "&") {
		if part == "" {
			continue
		}
		k, v, _ := strings.Cut(part, "=")
		ku, err := url.QueryUnescape(k)
		if err != nil {
			ku = k
		}
		vu, err := url.QueryUnescape(v)
		if err != nil {
			vu = v
		}
		pairs = append(pairs, pair{ku, vu})
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].k != pairs[j].k {
			return pairs[i].k < pairs[j].k
		}
		return pairs[i].v < pairs[j].v
	})
	var q strings.Builder
	for i, p := range pairs {
		if i > 0 {
			q.WriteByte('&')
		}
		q.WriteString(url.QueryEscape(p.k))
		q.WriteByte('=')
		q.WriteString(url.QueryEscape(p.v))
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.RawQuery = q.String()
	u.Fragment = ""
	u.RawFragment = ""
	return u.String()
}

// Fingerprint computes a stable SHA-256 content identity over the
// identity-bearing fields: source_portal, source_id, title, buyer and the
// canonicalized link. Two records differing only in whitespace, query
// parameter order or a URL fragment hash identically.
func Fingerprint(t Tender) string {
	pieces := []string{
		NormalizeSpace(t.SourcePortal),
		NormalizeSpace(t.SourceID),
		NormalizeSpace(t.Title),
		NormalizeSpace(t.Buyer),
		CanonicalizeURL(t.Link),
	}
	sum := sha256.Sum256([]byte(strings.Join(pieces, "|")))
	return hex.EncodeToString(sum[:])
}
