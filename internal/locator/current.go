package locator

// Match is an element re-located in the current document, tagged with the
// family that found it.
type Match struct {
	Family      string   `json:"family"`
	Value       string   `json:"value,omitempty"`
	Text        string   `json:"text,omitempty"`
	MatchedText string   `json:"matched_text,omitempty"`
	Element     *Element `json:"element,omitempty"`
}

// FindInCurrent searches the current document for an element carrying the
// same characteristics extracted from a historical document. Every family
// that still matches is collected; the one with the highest fixed priority
// (id > data-testid > name > aria-label > text > class) wins. Returns nil
// when the page no longer carries any of the characteristics.
func FindInCurrent(doc *Document, ch *Characteristics) *Match {
	if doc == nil || ch == nil {
		return nil
	}

	var found []*Match

	// Text containment.
	if text := firstNonEmpty(ch.Text, ch.MatchedText); text != "" {
		if e := doc.ByTextContains(text); e != nil {
			found = append(found, &Match{
				Family:      "text",
				Text:        text,
				MatchedText: e.Text,
				Element:     e,
			})
		}
	}

	// The attribute that identified the element historically.
	if ch.Attribute != "" && ch.Value != "" {
		var e *Element
		switch ch.Attribute {
		case "id":
			e = doc.ByID(ch.Value)
		case "class":
			e = doc.ByClass(ch.Value)
		default:
			e = doc.ByAttr(ch.Attribute, ch.Value)
		}
		if e != nil {
			found = append(found, &Match{Family: ch.Attribute, Value: ch.Value, Element: e})
		}
	}

	// Secondary attributes pulled off the historical element itself: a
	// stable test attribute or a name survives redesigns that drop the id.
	if old := ch.Element; old != nil {
		if v := old.DataAttrs["data-testid"]; v != "" {
			if e := doc.ByAttr("data-testid", v); e != nil {
				found = append(found, &Match{Family: "data-testid", Value: v, Element: e})
			}
		}
		if v := old.Attrs["name"]; v != "" {
			if e := doc.ByAttr("name", v); e != nil {
				found = append(found, &Match{Family: "name", Value: v, Element: e})
			}
		}
	}

	if len(found) == 0 {
		return nil
	}

	best := found[0]
	for _, m := range found[1:] {
		if familyPriority[m.Family] > familyPriority[best.Family] {
			best = m
		}
	}
	return best
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
