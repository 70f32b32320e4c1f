// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package inject

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"sitegen/internal/models"
)

// reinforceJS re-applies the content in the browser at the retry delays,
// covering template scripts that reset text after load.
const reinforceJS = `(function () {
  var data = JSON.parse(document.getElementById("sitegen-content").textContent);
  function get(path) {
    var cur = data.content;
    var parts = path.split(".");
    for (var i = 0; i < parts.length; i++) {
      var m = parts[i].match(/^([^\[]*)((?:\[\d+\])*)$/);
      if (!m || cur == null) return undefined;
      if (m[1]) cur = cur[m[1]];
      var idx = m[2].match(/\d+/g) || [];
      for (var j = 0; j < idx.length && cur != null; j++) cur = cur[+idx[j]];
    }
    return typeof cur === "string" || typeof cur === "number" ? String(cur) : undefined;
  }
  function apply() {
    document.querySelectorAll(".js-preloader, #preloader, .preloader").forEach(function (el) { el.style.display = "none"; });
    document.body.classList.remove("no-scroll", "overflow-hidden", "loading");
    document.body.style.overflow = "auto";
    document.querySelectorAll("[data-ai]").forEach(function (el) {
      var v = get(el.getAttribute("data-ai"));
      if (v !== undefined) el.textContent = v;
    });
    document.querySelectorAll("[data-ai-placeholder]").forEach(function (el) {
      var v = get(el.getAttribute("data-ai-placeholder"));
      if (v !== undefined) el.setAttribute("placeholder", v);
    });
  }
  data.delays.forEach(function (ms) { setTimeout(apply, ms); });
})();`

// ErrNotFlat is returned when a document without flat content is rendered.
var ErrNotFlat = errors.New("inject: document has no flat content")

// Renderer produces finished HTML for flat documents.
type Renderer struct {
	catalog *Catalog
	delays  []time.Duration
}

// NewRenderer loads the template catalog. delays are the client-side
// reinforcement offsets; nil uses DefaultRetryDelays.
func NewRenderer(delays []time.Duration) (*Renderer, error) {
	c, err := LoadCatalog()
	if err != nil {
		return nil, err
	}
	if delays == nil {
		delays = DefaultRetryDelays
	}
	return &Renderer{catalog: c, delays: delays}, nil
}

// Catalog returns the loaded template catalog.
func (r *Renderer) Catalog() *Catalog {
	return r.catalog
}

// Render selects a template for doc, injects its flat content and returns
// the serialized page with the reinforcement script appended.
func (r *Renderer) Render(ctx context.Context, doc *models.SiteDocument) ([]byte, Template, error) {
	if !doc.IsFlat() {
		return nil, Template{}, ErrNotFlat
	}

	tmpl := r.catalog.Select(doc.Meta.Title+" "+doc.Meta.Description, doc.Content)
	frame, err := r.catalog.Open(tmpl)
	if err != nil {
		return nil, tmpl, err
	}

	// The server copy is injected once; the browser repeats the passes.
	sess := NewSession(frame, doc.Content, []time.Duration{})
	sess.Loaded(ctx)
	sess.Stop()
	if sess.State() != Injected {
		return nil, tmpl, ErrInaccessible
	}

	payload, err := json.Marshal(struct {
		Content any     `json:"content"`
		Delays  []int64 `json:"delays"`
	}{doc.Content, millis(r.delays)})
	if err != nil {
		return nil, tmpl, fmt.Errorf("encoding content: %w", err)
	}

	err = frame.Access(func(root *html.Node) {
		body := find(root, atom.Body)
		if body == nil {
			return
		}
		body.AppendChild(script(string(payload), html.Attribute{Key: "type", Val: "application/json"}, html.Attribute{Key: "id", Val: "sitegen-content"}))
		body.AppendChild(script(reinforceJS))
	})
	if err != nil {
		return nil, tmpl, err
	}

	out, err := frame.Render()
	if err != nil {
		return nil, tmpl, err
	}
	return out, tmpl, nil
}

func millis(ds []time.Duration) []int64 {
	out := make([]int64, len(ds))
	for i, d := range ds {
		out[i] = d.Milliseconds()
	}
	return out
}

func find(n *html.Node, a atom.Atom) *html.Node {
	var found *html.Node
	walk(n, func(c *html.Node) {
		if found == nil && c.DataAtom == a {
			found = c
		}
	})
	return found
}

func script(body string, attrs ...html.Attribute) *html.Node {
	n := &html.Node{Type: html.ElementNode, Data: "script", DataAtom: atom.Script, Attr: attrs}
	n.AppendChild(&html.Node{Type: html.TextNode, Data: body})
	return n
}
