package locator

import (
	"fmt"
	"sort"
	"strings"
)

// Confidence tables keyed by family. The bands are a fixed policy: fewer
// matches in the live document justify a higher score, and a non-unique
// characteristic takes a flat discount.
var attrConfidence = map[string][2]int{ // [unique, non-unique]
	"id":          {95, 85},
	"data-testid": {90, 80},
	"name":        {85, 75},
	"aria-label":  {82, 72},
	"class":       {70, 60},
}

// RankCandidates synthesizes a replacement locator for every identification
// family present on the matched element and scores each by how uniquely it
// selects within the current document. Candidates come back sorted by
// confidence, highest first; ordering is stable for equal scores.
func RankCandidates(m *Match, doc *Document, dialect Dialect) []Candidate {
	if m == nil || m.Element == nil || doc == nil {
		return nil
	}
	e := m.Element
	var candidates []Candidate

	if e.ID != "" {
		candidates = appendAttrCandidate(candidates, doc, dialect, "id", e.ID)
	}
	if v := e.DataAttrs["data-testid"]; v != "" {
		candidates = appendAttrCandidate(candidates, doc, dialect, "data-testid", v)
	}
	if v := e.Attrs["name"]; v != "" {
		candidates = appendAttrCandidate(candidates, doc, dialect, "name", v)
	}
	if v := e.Attrs["aria-label"]; v != "" {
		candidates = appendAttrCandidate(candidates, doc, dialect, "aria-label", v)
	}

	if text := firstNonEmpty(m.Text, m.MatchedText, e.Text); text != "" {
		if loc := TextLocator(text, dialect); loc != "" {
			count := doc.CountTextContains(text)
			conf := 65
			switch {
			case count == 1:
				conf = 85
			case count <= 3:
				conf = 75
			}
			candidates = append(candidates, Candidate{
				Method:          "text",
				Locator:         loc,
				Confidence:      conf,
				UniquenessCount: count,
				Reason:          matchReason(fmt.Sprintf("text %q", text), count),
			})
		}
	}

	if len(e.Classes) > 0 {
		first := e.Classes[0]
		if loc := AttributeLocator("class", first, dialect); loc != "" {
			count := doc.CountClass(first)
			conf := attrConfidence["class"][1]
			if count == 1 {
				conf = attrConfidence["class"][0]
			}
			candidates = append(candidates, Candidate{
				Method:          "class",
				Locator:         loc,
				Confidence:      conf,
				UniquenessCount: count,
				Reason:          matchReason(fmt.Sprintf("class=%q", first), count),
			})
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Confidence > candidates[j].Confidence
	})
	return candidates
}

func appendAttrCandidate(candidates []Candidate, doc *Document, dialect Dialect, attr, value string) []Candidate {
	loc := AttributeLocator(attr, value, dialect)
	if loc == "" {
		return candidates
	}
	count := doc.CountAttr(attr, value)
	table, ok := attrConfidence[attr]
	if !ok {
		table = attrConfidence["name"]
	}
	conf := table[1]
	if count == 1 {
		conf = table[0]
	}
	return append(candidates, Candidate{
		Method:          attr,
		Locator:         loc,
		Confidence:      conf,
		UniquenessCount: count,
		Reason:          matchReason(fmt.Sprintf("%s=%q", attr, value), count),
	})
}

func matchReason(what string, count int) string {
	var b strings.Builder
	b.WriteString("matched by ")
	b.WriteString(what)
	if count == 1 {
		b.WriteString(" (unique)")
	} else {
		fmt.Fprintf(&b, " (%d matches)", count)
	}
	return b.String()
}
