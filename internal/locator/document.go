package locator

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Document is a searchable view over a page structure.
type Document struct {
	elements []*Element
}

// ParseHTML builds a Document from serialized markup.
func ParseHTML(rawHTML string) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return nil, fmt.Errorf("locator: parse html: %w", err)
	}

	d := &Document{}
	doc.Find("*").Each(func(_ int, s *goquery.Selection) {
		if len(s.Nodes) == 0 {
			return
		}
		d.elements = append(d.elements, fromNode(s.Nodes[0]))
	})
	return d, nil
}

// metadataPayload is the recorder's pre-extracted inventory format.
type metadataPayload struct {
	DataType string     `json:"dataType"`
	Elements []*Element `json:"elements"`
}

// ParseMetadata builds a Document from a structured element inventory.
func ParseMetadata(raw string) (*Document, error) {
	var m metadataPayload
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil, fmt.Errorf("locator: parse metadata: %w", err)
	}
	if m.Elements == nil {
		return nil, fmt.Errorf("locator: metadata has no elements")
	}
	return &Document{elements: m.Elements}, nil
}

// IsMetadataPayload reports whether raw looks like an inventory rather than
// markup, by the recorder's dataType tag.
func IsMetadataPayload(raw string) bool {
	var m struct {
		DataType string `json:"dataType"`
	}
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return false
	}
	return m.DataType == "metadata"
}

// Len returns the number of elements in the document.
func (d *Document) Len() int { return len(d.elements) }

// ByID returns the first element with the exact id.
func (d *Document) ByID(id string) *Element {
	for _, e := range d.elements {
		if e.ID == id {
			return e
		}
	}
	return nil
}

// ByClass returns the first element carrying the class token.
func (d *Document) ByClass(name string) *Element {
	for _, e := range d.elements {
		if e.HasClass(name) {
			return e
		}
	}
	return nil
}

// ByAttr returns the first element with an exact attribute/value pair.
func (d *Document) ByAttr(attr, value string) *Element {
	for _, e := range d.elements {
		if e.Attr(attr) == value {
			return e
		}
	}
	return nil
}

// ByTextContains returns the first element whose own text contains target,
// case-insensitively.
func (d *Document) ByTextContains(target string) *Element {
	lower := strings.ToLower(target)
	for _, e := range d.elements {
		if e.Text != "" && strings.Contains(strings.ToLower(e.Text), lower) {
			return e
		}
	}
	return nil
}

// CountAttr counts elements sharing an exact attribute/value pair.
func (d *Document) CountAttr(attr, value string) int {
	n := 0
	for _, e := range d.elements {
		if value != "" && e.Attr(attr) == value {
			n++
		}
	}
	return n
}

// CountClass counts elements carrying the class token.
func (d *Document) CountClass(name string) int {
	n := 0
	for _, e := range d.elements {
		if e.HasClass(name) {
			n++
		}
	}
	return n
}

// CountTextContains counts elements whose own text contains target.
func (d *Document) CountTextContains(target string) int {
	lower := strings.ToLower(target)
	n := 0
	for _, e := range d.elements {
		if e.Text != "" && strings.Contains(strings.ToLower(e.Text), lower) {
			n++
		}
	}
	return n
}

// fromNode flattens a parsed element node into the uniform Element form.
// Text is the node's own text content (direct child text nodes only), so
// that containment counts are not inflated by every ancestor of a match.
func fromNode(n *html.Node) *Element {
	e := &Element{Tag: n.Data}
	for _, a := range n.Attr {
		switch {
		case a.Key == "id":
			e.ID = a.Val
		case a.Key == "class":
			e.Classes = strings.Fields(a.Val)
		case strings.HasPrefix(a.Key, "data-"):
			if e.DataAttrs == nil {
				e.DataAttrs = map[string]string{}
			}
			e.DataAttrs[a.Key] = a.Val
		default:
			if e.Attrs == nil {
				e.Attrs = map[string]string{}
			}
			e.Attrs[a.Key] = a.Val
		}
	}

	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			sb.WriteString(c.Data)
		}
	}
	e.Text = strings.Join(strings.Fields(sb.String()), " ")
	return e
}
