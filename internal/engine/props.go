// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package engine

import (
	"html/template"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"sitegen/internal/models"
	"sitegen/internal/slug"
)

// Props is everything a renderer receives for one block.
type Props struct {
	Type    string
	Data    map[string]any
	Variant string
	Style   map[string]any
	Actions *ActionSink
	Site    *Site
}

// Site is the document-level context shared by every block of a page.
type Site struct {
	Doc  *models.SiteDocument
	Page string

	// Link turns a page name into the address the page is served at.
	// When nil, pages are addressed as "#<name>".
	Link func(page string) string
}

// Href resolves a link target. Page names (or titles that slug to a page
// name) go through Link; addresses pass through unchanged; anything else
// becomes an in-page anchor.
func (s *Site) Href(target string) string {
	target = strings.TrimSpace(target)
	switch {
	case target == "":
		return "#"
	case strings.HasPrefix(target, "#"), strings.HasPrefix(target, "/"),
		strings.Contains(target, "://"), strings.HasPrefix(target, "mailto:"),
		strings.HasPrefix(target, "tel:"):
		return target
	}

	if s != nil && s.Doc != nil {
		if _, ok := s.Doc.Pages[target]; ok {
			return s.link(target)
		}
		if name := slug.Generate(target); name != "" {
			if _, ok := s.Doc.Pages[name]; ok {
				return s.link(name)
			}
		}
	}
	return "#" + slug.PageName(target, "top")
}

func (s *Site) link(page string) string {
	if s.Link == nil {
		return "#" + page
	}
	return s.Link(page)
}

// actionNamespace seeds action IDs so the same control gets the same ID
// on every render of a page.
var actionNamespace = uuid.MustParse("8f6f0f9e-5c2a-4b7e-9a51-3d2f1c0b7a64")

// ActionSink collects the actions emitted while rendering a page.
type ActionSink struct {
	actions []models.Action
	seen    map[string]bool
}

// NewActionSink creates an empty sink.
func NewActionSink() *ActionSink {
	return &ActionSink{seen: make(map[string]bool)}
}

// Navigate records a navigation to href and returns the action ID.
func (s *ActionSink) Navigate(target, href string) string {
	return s.emit(models.ActionNavigate, "navigate\x00"+href, map[string]any{
		"target": target,
		"href":   href,
	})
}

// AddToCart records an add-to-cart for a product and returns the action ID.
func (s *ActionSink) AddToCart(name, price string) string {
	return s.emit(models.ActionAddToCart, "cart\x00"+name+"\x00"+price, map[string]any{
		"name":  name,
		"price": price,
	})
}

func (s *ActionSink) emit(typ models.ActionType, key string, payload map[string]any) string {
	if s == nil {
		return ""
	}
	id := uuid.NewSHA1(actionNamespace, []byte(key)).String()
	if !s.seen[id] {
		s.seen[id] = true
		s.actions = append(s.actions, models.Action{ID: id, Type: typ, Payload: payload})
	}
	return id
}

// Actions returns the recorded actions in emission order.
func (s *ActionSink) Actions() []models.Action {
	if s == nil {
		return nil
	}
	return append([]models.Action(nil), s.actions...)
}

// Find returns the action with the given ID.
func (s *ActionSink) Find(id string) (models.Action, bool) {
	if s == nil {
		return models.Action{}, false
	}
	for _, a := range s.actions {
		if a.ID == id {
			return a, true
		}
	}
	return models.Action{}, false
}

// Accessors over block data. Generated data is untrusted, so every lookup
// tolerates a missing key or a value of the wrong kind.

func object(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

func list(v any) []any {
	l, _ := v.([]any)
	return l
}

func str(v any) string {
	switch s := v.(type) {
	case string:
		return strings.TrimSpace(s)
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case int:
		return strconv.Itoa(s)
	}
	return ""
}

func firstStr(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if s := str(m[k]); s != "" {
			return s
		}
	}
	return ""
}

// strs reads a list whose items are strings or objects carrying one of
// the given text keys.
func strs(v any, keys ...string) []string {
	var out []string
	for _, item := range list(v) {
		if s := str(item); s != "" {
			out = append(out, s)
			continue
		}
		if s := firstStr(object(item), keys...); s != "" {
			out = append(out, s)
		}
	}
	return out
}

var imageKeys = []string{"image_url", "image", "backgroundImage", "bgImage", "img"}

// imageURL returns the first image address in m. Keyword descriptions that
// were never resolved to an address are ignored.
func imageURL(m map[string]any) string {
	for _, k := range imageKeys {
		var s string
		switch v := m[k].(type) {
		case string:
			s = v
		case map[string]any:
			s = str(v["url"])
		}
		s = strings.TrimSpace(s)
		if strings.HasPrefix(s, "https://") || strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "/") {
			return s
		}
	}
	return ""
}

// cssValue accepts colors, lengths and simple functions such as rgb().
var cssValue = regexp.MustCompile(`^[#a-zA-Z0-9(),.%\s-]{1,64}$`)

var styleProperties = []struct{ key, property string }{
	{"background", "background"},
	{"backgroundColor", "background-color"},
	{"color", "color"},
	{"textColor", "color"},
	{"padding", "padding"},
	{"textAlign", "text-align"},
}

// inlineStyle builds a style attribute from the recognised keys of style.
// Values that do not look like plain CSS values are dropped.
func inlineStyle(style map[string]any) template.CSS {
	var b strings.Builder
	for _, p := range styleProperties {
		v := str(style[p.key])
		if v == "" || !cssValue.MatchString(v) {
			continue
		}
		b.WriteString(p.property)
		b.WriteString(": ")
		b.WriteString(v)
		b.WriteString("; ")
	}
	return template.CSS(strings.TrimSpace(b.String()))
}
