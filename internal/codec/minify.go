package codec

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Minify reduces a serialized DOM for storage: script/style/noscript
// subtrees and comments are dropped and text whitespace is collapsed.
// Element attributes are preserved verbatim because locator healing
// ranks on them. Unparseable input is returned unchanged.
func Minify(rawHTML string) string {
	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return rawHTML
	}
	prune(doc)

	var buf bytes.Buffer
	if err := html.Render(&buf, doc); err != nil {
		return rawHTML
	}
	return buf.String()
}

func prune(n *html.Node) {
	var next *html.Node
	for c := n.FirstChild; c != nil; c = next {
		next = c.NextSibling
		switch {
		case c.Type == html.CommentNode:
			n.RemoveChild(c)
		case c.Type == html.ElementNode && isDroppable(c.DataAtom):
			n.RemoveChild(c)
		case c.Type == html.TextNode:
			c.Data = collapseSpace(c.Data)
			if c.Data == "" {
				n.RemoveChild(c)
			}
		default:
			prune(c)
		}
	}
}

func isDroppable(a atom.Atom) bool {
	switch a {
	case atom.Script, atom.Style, atom.Noscript:
		return true
	}
	return false
}

func collapseSpace(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	out := strings.Join(fields, " ")
	// Keep one boundary space so adjacent inline text does not fuse.
	if s[0] == ' ' || s[0] == '\n' || s[0] == '\t' {
		out = " " + out
	}
	if last := s[len(s)-1]; last == ' ' || last == '\n' || last == '\t' {
		out += " "
	}
	return out
}
