package vdom

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/agiangrant/sjik/retained"
)

// ParseHTML builds a VNode tree from markup. The contents of <body> become
// the tree; several top-level elements are wrapped in a div.
//
// Whitespace-only text is dropped and runs of whitespace collapse to a single
// space. Comments, <script> and <style> are skipped. An on<event> attribute
// registers a listener for <event> that does nothing, which is enough to make
// the element a hit-test target. A key attribute sets the VNode key.
func ParseHTML(r io.Reader) (*VNode, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	body := findBody(doc)
	if body == nil {
		return nil, fmt.Errorf("parse html: no body")
	}

	var top []*VNode
	for c := body.FirstChild; c != nil; c = c.NextSibling {
		if v := convert(c); v != nil {
			top = append(top, v)
		}
	}
	if len(top) == 1 && top[0].Kind == retained.KindElement {
		return top[0], nil
	}
	return El("div", Children(top...)), nil
}

func findBody(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == atom.Body {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if b := findBody(c); b != nil {
			return b
		}
	}
	return nil
}

func convert(n *html.Node) *VNode {
	switch n.Type {
	case html.TextNode:
		s := strings.Join(strings.Fields(n.Data), " ")
		if s == "" {
			return nil
		}
		return Text(s)

	case html.ElementNode:
		if n.DataAtom == atom.Script || n.DataAtom == atom.Style {
			return nil
		}
		v := El(n.Data)
		for _, a := range n.Attr {
			switch {
			case a.Key == "key":
				v.Key = a.Val
			case strings.HasPrefix(a.Key, "on") && len(a.Key) > 2:
				On(a.Key[2:], func(retained.Event) {})(v)
			default:
				Attr(a.Key, a.Val)(v)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if cv := convert(c); cv != nil {
				v.Children = append(v.Children, cv)
			}
		}
		return v
	}
	return nil
}
