// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package inject renders flat (v1) documents by writing their fields into
// static HTML templates. Elements opt in with a data-ai attribute naming a
// dotted path into the content, e.g. "contacto.telefono.numero1" or
// "menuItems[2].precio"; data-ai-placeholder sets the placeholder attribute
// instead of the text.
package inject

import (
	"encoding/json"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const (
	slotAttr        = "data-ai"
	placeholderAttr = "data-ai-placeholder"
	preloaderStyle  = "data-sitegen-preloader"
)

// preloaderClasses and preloaderIDs identify loading overlays shipped with
// the legacy templates.
var (
	preloaderClasses = []string{"js-preloader", "preloader"}
	preloaderIDs     = []string{"preloader"}
	lockingClasses   = []string{"no-scroll", "overflow-hidden", "loading"}
)

const preloaderCSS = ".js-preloader,#preloader,.preloader{display:none!important}body{overflow:auto!important}"

// HidePreloaders removes loading overlays and scroll locks from doc.
// Applying it more than once leaves the document unchanged.
func HidePreloaders(doc *html.Node) {
	var head, body *html.Node
	walk(doc, func(n *html.Node) {
		switch n.DataAtom {
		case atom.Head:
			head = n
		case atom.Body:
			body = n
		}
		if isPreloader(n) {
			addStyle(n, "display", "none")
		}
	})

	if body != nil {
		for _, c := range lockingClasses {
			removeClass(body, c)
		}
		addStyle(body, "overflow", "auto")
	}

	if head == nil || hasChild(head, func(c *html.Node) bool { return hasAttr(c, preloaderStyle) }) {
		return
	}
	style := &html.Node{
		Type:     html.ElementNode,
		Data:     "style",
		DataAtom: atom.Style,
		Attr:     []html.Attribute{{Key: preloaderStyle}},
	}
	style.AppendChild(&html.Node{Type: html.TextNode, Data: preloaderCSS})
	head.AppendChild(style)
}

// Inject fills every slot of doc that resolves to a string or number in
// content and returns the number of slots written. Slots whose path is
// missing keep their template text.
func Inject(doc *html.Node, content map[string]any) int {
	filled := 0
	walk(doc, func(n *html.Node) {
		if n.Type != html.ElementNode {
			return
		}
		if path, ok := attr(n, slotAttr); ok {
			if v, ok := lookup(content, path); ok {
				setText(n, v)
				filled++
			}
		}
		if path, ok := attr(n, placeholderAttr); ok {
			if v, ok := lookup(content, path); ok {
				setAttr(n, "placeholder", v)
				filled++
			}
		}
	})
	return filled
}

// lookup resolves a slot path against content. Only scalar leaves resolve.
func lookup(content map[string]any, path string) (string, bool) {
	var cur any = content
	for _, part := range strings.Split(strings.TrimSpace(path), ".") {
		name, indexes, ok := parseSegment(part)
		if !ok {
			return "", false
		}
		if name != "" {
			m, isMap := cur.(map[string]any)
			if !isMap {
				return "", false
			}
			if cur, ok = m[name]; !ok {
				return "", false
			}
		}
		for _, i := range indexes {
			list, isList := cur.([]any)
			if !isList || i >= len(list) {
				return "", false
			}
			cur = list[i]
		}
	}
	return scalar(cur)
}

// parseSegment splits "items[2][0]" into its name and indexes.
func parseSegment(s string) (string, []int, bool) {
	name, rest, _ := strings.Cut(s, "[")
	if name == "" && rest == "" {
		return "", nil, false
	}
	var indexes []int
	for rest != "" {
		num, after, ok := strings.Cut(rest, "]")
		if !ok {
			return "", nil, false
		}
		i, err := strconv.Atoi(num)
		if err != nil || i < 0 {
			return "", nil, false
		}
		indexes = append(indexes, i)
		if after == "" {
			break
		}
		if !strings.HasPrefix(after, "[") {
			return "", nil, false
		}
		rest = after[1:]
	}
	return name, indexes, true
}

func scalar(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case int:
		return strconv.Itoa(t), true
	case json.Number:
		return t.String(), true
	}
	return "", false
}

func walk(n *html.Node, fn func(*html.Node)) {
	fn(n)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, fn)
	}
}

func hasChild(n *html.Node, pred func(*html.Node) bool) bool {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if pred(c) {
			return true
		}
	}
	return false
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func hasAttr(n *html.Node, key string) bool {
	_, ok := attr(n, key)
	return ok
}

func setAttr(n *html.Node, key, val string) {
	for i := range n.Attr {
		if n.Attr[i].Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

// setText replaces the children of n with a single text node.
func setText(n *html.Node, text string) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		n.RemoveChild(c)
		c = next
	}
	n.AppendChild(&html.Node{Type: html.TextNode, Data: text})
}

func classes(n *html.Node) []string {
	v, _ := attr(n, "class")
	return strings.Fields(v)
}

func removeClass(n *html.Node, class string) {
	cs := classes(n)
	kept := cs[:0]
	for _, c := range cs {
		if c != class {
			kept = append(kept, c)
		}
	}
	if len(kept) != len(classes(n)) {
		setAttr(n, "class", strings.Join(kept, " "))
	}
}

func isPreloader(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	if id, ok := attr(n, "id"); ok {
		for _, p := range preloaderIDs {
			if id == p {
				return true
			}
		}
	}
	for _, c := range classes(n) {
		for _, p := range preloaderClasses {
			if c == p {
				return true
			}
		}
	}
	return false
}

// addStyle sets one declaration in the inline style of n unless it is
// already present.
func addStyle(n *html.Node, prop, val string) {
	decl := prop + ": " + val
	style, _ := attr(n, "style")
	for _, d := range strings.Split(style, ";") {
		if strings.TrimSpace(d) == decl {
			return
		}
	}
	style = strings.TrimSpace(style)
	if style != "" && !strings.HasSuffix(style, ";") {
		style += ";"
	}
	if style != "" {
		style += " "
	}
	setAttr(n, "style", style+decl+";")
}
