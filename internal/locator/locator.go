// Package locator re-identifies UI elements across structural drift.
//
// Given a selector that no longer matches ("failed locator") and a historical
// document, it extracts the characteristics of the element the selector used
// to point at, finds the element carrying the same characteristics in the
// current document, and synthesizes ranked replacement locators in the
// caller's dialect.
//
// Documents come in two shapes: serialized HTML (parsed with goquery) and a
// pre-extracted element inventory captured at recording time. Both are
// normalized into the same Element form so the search cascade and the
// uniqueness counting behave identically.
package locator

// Dialect selects the syntax of generated locator expressions.
type Dialect string

const (
	DialectPlaywright Dialect = "playwright"
	DialectSelenium   Dialect = "selenium"
	DialectCSS        Dialect = "css"
	DialectText       Dialect = "text"
)

// Element is the uniform description of a document element.
type Element struct {
	Tag       string            `json:"tag,omitempty"`
	ID        string            `json:"id,omitempty"`
	Classes   []string          `json:"classes,omitempty"`
	Text      string            `json:"text,omitempty"`
	Attrs     map[string]string `json:"attrs,omitempty"`
	DataAttrs map[string]string `json:"dataAttrs,omitempty"`
}

// HasClass reports whether the element carries the class token.
func (e *Element) HasClass(name string) bool {
	for _, c := range e.Classes {
		if c == name {
			return true
		}
	}
	return false
}

// Attr returns a non-data attribute value ("" when absent). The id and
// class shorthands are resolved from their dedicated fields.
func (e *Element) Attr(name string) string {
	switch name {
	case "id":
		return e.ID
	}
	if v, ok := e.DataAttrs[name]; ok {
		return v
	}
	return e.Attrs[name]
}

// Characteristics is what FindElement extracts from a historical document:
// the trait that identified the element, plus the full descriptor when the
// source document could provide one.
type Characteristics struct {
	Kind        string   `json:"type"` // "text" or "attribute"
	Attribute   string   `json:"attribute,omitempty"`
	Value       string   `json:"value,omitempty"`
	Text        string   `json:"text,omitempty"`
	MatchedText string   `json:"matched_text,omitempty"`
	Element     *Element `json:"element,omitempty"`
}

// Candidate is one synthesized replacement locator.
type Candidate struct {
	Method          string `json:"method"`
	Locator         string `json:"locator"`
	Confidence      int    `json:"confidence"`
	UniquenessCount int    `json:"uniqueness_count"`
	Reason          string `json:"reason"`
}

// familyPriority orders identification families when several match the
// current document. Higher wins.
var familyPriority = map[string]int{
	"id":          6,
	"data-testid": 5,
	"name":        4,
	"aria-label":  3,
	"text":        2,
	"class":       1,
}
