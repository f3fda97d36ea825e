package locator

import (
	"regexp"
	"strings"
)

var bracketAttrRe = regexp.MustCompile(`\[([a-zA-Z][\w-]*)=['"]([^'"]+)['"]\]`)

// FindElement searches a historical document for the element a failed
// locator used to identify. The cascade runs in fixed order and the first
// hit wins: text containment, then #id, then .class, then an
// [attr="value"] bracket form. Returns nil when nothing matches.
func FindElement(doc *Document, failedLocator string, dialect Dialect) *Characteristics {
	if doc == nil || failedLocator == "" {
		return nil
	}

	if dialect == DialectText || strings.HasPrefix(failedLocator, "text=") {
		target := strings.TrimPrefix(failedLocator, "text=")
		target = strings.Trim(target, `'"`)
		if target != "" {
			if e := doc.ByTextContains(target); e != nil {
				return &Characteristics{
					Kind:        "text",
					Text:        target,
					MatchedText: e.Text,
					Element:     e,
				}
			}
		}
		return nil
	}

	if id, ok := strings.CutPrefix(failedLocator, "#"); ok && id != "" {
		if e := doc.ByID(id); e != nil {
			return &Characteristics{Kind: "attribute", Attribute: "id", Value: id, Element: e}
		}
	}

	if class, ok := strings.CutPrefix(failedLocator, "."); ok && class != "" {
		if e := doc.ByClass(class); e != nil {
			return &Characteristics{Kind: "attribute", Attribute: "class", Value: class, Element: e}
		}
	}

	if m := bracketAttrRe.FindStringSubmatch(failedLocator); m != nil {
		attr, value := m[1], m[2]
		var e *Element
		if attr == "class" {
			// Class is a token list, not a plain attribute value.
			e = doc.ByClass(value)
		} else {
			e = doc.ByAttr(attr, value)
		}
		if e != nil {
			return &Characteristics{Kind: "attribute", Attribute: attr, Value: value, Element: e}
		}
	}

	return nil
}
