// Package urlpattern canonicalizes page URLs and detects dynamic path
// segments so that snapshots of parameterized pages (/product/123,
// /product/456) can be matched against each other.
package urlpattern

import (
	"net/url"
	"regexp"
	"strings"
)

// Wildcard replaces dynamic path segments in a pattern URL.
const Wildcard = "*"

var (
	digitsRe = regexp.MustCompile(`^\d+$`)
	uuidRe   = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)
)

// Pattern describes the dynamic structure of a URL.
type Pattern struct {
	NormalizedURL string `json:"normalized_url"`
	PatternURL    string `json:"pattern_url"`
	IsDynamic     bool   `json:"is_dynamic"`
	OriginalURL   string `json:"original_url"`
}

// Normalize strips the query string and fragment, keeping
// scheme://host/path. Malformed input degrades to a naive strip-at-'?'.
func Normalize(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return strings.SplitN(raw, "?", 2)[0]
	}
	return u.Scheme + "://" + u.Host + u.Path
}

// Analyze segments the path and classifies the URL. A segment is dynamic if
// it is all digits or a canonical UUID; a non-empty query string also marks
// the whole URL dynamic. PatternURL has dynamic segments replaced by "*".
func Analyze(raw string) Pattern {
	if raw == "" {
		return Pattern{}
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		trimmed := strings.SplitN(raw, "?", 2)[0]
		return Pattern{NormalizedURL: trimmed, PatternURL: trimmed, OriginalURL: raw}
	}

	normalized := u.Scheme + "://" + u.Host + u.Path
	hasQuery := u.RawQuery != ""

	segments := strings.Split(u.Path, "/")
	dynamic := hasQuery
	for i, seg := range segments {
		if isDynamicSegment(seg) {
			segments[i] = Wildcard
			dynamic = true
		}
	}

	pattern := normalized
	if dynamic {
		pattern = u.Scheme + "://" + u.Host + strings.Join(segments, "/")
	}

	return Pattern{
		NormalizedURL: normalized,
		PatternURL:    pattern,
		IsDynamic:     dynamic,
		OriginalURL:   raw,
	}
}

// Match reports whether two URLs identify the same logical page: equal
// normalized URLs, or two dynamic URLs whose wildcarded path segments agree
// position by position (a wildcard matches anything). Match is symmetric.
func Match(targetURL, snapshotURL string) bool {
	target := Analyze(targetURL)
	snap := Analyze(snapshotURL)

	if target.NormalizedURL != "" && target.NormalizedURL == snap.NormalizedURL {
		return true
	}
	if !target.IsDynamic || !snap.IsDynamic {
		return false
	}

	tHost, tt := patternSegments(target.PatternURL)
	sHost, ss := patternSegments(snap.PatternURL)
	if tt == nil || ss == nil || tHost != sHost || len(tt) != len(ss) {
		return false
	}
	for i := range tt {
		if tt[i] != ss[i] && tt[i] != Wildcard && ss[i] != Wildcard {
			return false
		}
	}
	return true
}

func patternSegments(pattern string) (host string, segments []string) {
	u, err := url.Parse(pattern)
	if err != nil || u.Host == "" {
		return "", nil
	}
	return u.Scheme + "://" + u.Host, strings.Split(u.Path, "/")
}

func isDynamicSegment(seg string) bool {
	if seg == "" {
		return false
	}
	return digitsRe.MatchString(seg) || uuidRe.MatchString(strings.ToLower(seg))
}
