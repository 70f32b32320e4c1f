package engine

import (
	"errors"
	"html/template"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sitegen/internal/metrics"
	"sitegen/internal/models"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := New(nil)
	require.NoError(t, err)
	return e
}

func testSite() *Site {
	doc := &models.SiteDocument{
		SchemaVersion: models.CurrentSchemaVersion,
		Meta:          models.Meta{Title: "Café Bravíssimo"},
		Navbar: &models.Navbar{
			Logo:  "Bravíssimo",
			Links: []models.NavLink{{Label: "Home", Target: "home"}, {Label: "Menú", Target: "menu"}},
		},
		Pages: map[string]*models.Page{
			"home":    {Title: "Home", Blocks: []models.Block{{Type: "hero", Data: map[string]any{"headline": "Coffee"}}}},
			"menu":    {Title: "Menu", Blocks: []models.Block{{Type: "product-grid", Data: map[string]any{}}}},
			"contact": {Title: "Contact", Blocks: []models.Block{{Type: "contact-form", Data: map[string]any{}}}},
		},
		PageOrder: []string{"home", "menu", "contact"},
	}
	return &Site{Doc: doc, Page: "home", Link: func(page string) string { return "/sites/abc/pages/" + page }}
}

func render(t *testing.T, e *Engine, b models.Block) (string, *ActionSink) {
	t.Helper()
	sink := NewActionSink()
	return string(e.RenderBlock(b, testSite(), sink)), sink
}

func TestNewRegistersCanonicalTypes(t *testing.T) {
	e := newTestEngine(t)
	assert.ElementsMatch(t, []string{
		"hero", "navbar", "bento-grid", "marquee", "narrative", "showcase", "cta-footer",
		"product-grid", "text-content", "contact-form", "image-block", "editorial-hero", "editorial-grid",
	}, e.Types())

	for _, typ := range e.Types() {
		assert.NotNil(t, e.cache.get(typ), "template for %s", typ)
	}
}

func TestRenderBlockEveryTypeWithEmptyData(t *testing.T) {
	e := newTestEngine(t)
	for _, typ := range e.Types() {
		t.Run(typ, func(t *testing.T) {
			out, _ := render(t, e, models.Block{Type: typ})
			assert.NotContains(t, out, "[Block:")
			assert.Contains(t, out, "block-"+typ)
		})
	}
}

func TestHeroFallbacks(t *testing.T) {
	e := newTestEngine(t)

	out, sink := render(t, e, models.Block{Type: "hero", Data: map[string]any{
		"title":       "Fresh roasts",
		"subtitle":    "Since 1998",
		"actionLabel": "Visit us",
		"image_url":   "https://images.unsplash.com/photo-1",
	}})

	assert.Contains(t, out, "<h1>Fresh roasts</h1>")
	assert.Contains(t, out, "Since 1998")
	assert.Contains(t, out, "Visit us")
	assert.Contains(t, out, `href="/sites/abc/pages/contact"`)
	assert.Contains(t, out, "https://images.unsplash.com/photo-1")

	actions := sink.Actions()
	require.Len(t, actions, 1)
	assert.Equal(t, models.ActionNavigate, actions[0].Type)
	assert.Equal(t, "/sites/abc/pages/contact", actions[0].Payload["href"])
	assert.Contains(t, out, `data-action-id="`+actions[0].ID+`"`)
}

func TestHeroSplitVariant(t *testing.T) {
	e := newTestEngine(t)
	out, _ := render(t, e, models.Block{Type: "hero", Variant: "Split", Data: map[string]any{"headline": "H"}})
	assert.Contains(t, out, "hero-split")
	assert.Contains(t, out, "block-hero--split")
}

func TestRenderBlockEscapesGeneratedText(t *testing.T) {
	e := newTestEngine(t)
	out, _ := render(t, e, models.Block{Type: "hero", Data: map[string]any{
		"headline":  `<script>alert("x")</script>`,
		"cta":       "Go",
		"href":      "javascript:alert(1)",
		"image_url": "not a url",
	}})
	assert.NotContains(t, out, "<script>")
	assert.NotContains(t, out, "javascript:alert")
	assert.NotContains(t, out, "not a url")
}

func TestUnknownTypeRendersPlaceholder(t *testing.T) {
	e := newTestEngine(t)
	site := testSite()

	out := string(e.RenderBlocks([]models.Block{
		{Type: "hero", Data: map[string]any{"headline": "Before"}},
		{Type: "<hologram>", Data: map[string]any{}},
		{Type: "cta-footer", Data: map[string]any{"headline": "After"}},
	}, site, NewActionSink()))

	assert.Contains(t, out, "[Block: &lt;hologram&gt;]")
	assert.Contains(t, out, "Before")
	assert.Contains(t, out, "After")
}

func TestFailingRendererRendersPlaceholder(t *testing.T) {
	e := newTestEngine(t)
	e.Register("hero", func(Props) (template.HTML, error) { return "", errors.New("boom") })
	e.Register("marquee", func(Props) (template.HTML, error) { panic("kaboom") })

	out := string(e.RenderBlocks([]models.Block{
		{Type: "hero"},
		{Type: "marquee"},
		{Type: "text-content", Data: map[string]any{"body": "still here"}},
	}, testSite(), NewActionSink()))

	assert.Contains(t, out, "[Block: hero]")
	assert.Contains(t, out, "[Block: marquee]")
	assert.Contains(t, out, "still here")
}

func TestAliasesRenderCanonicalType(t *testing.T) {
	e := newTestEngine(t)
	tests := map[string]string{
		"features":          "block-bento-grid",
		"featured-products": "block-product-grid",
		"text":              "block-text-content",
		"image":             "block-image-block",
		"contact":           "block-contact-form",
		"form":              "block-contact-form",
		"editorial":         "block-editorial-hero",
		"nav":               "block-navbar",
		"navigation":        "block-navbar",
		"cta":               "block-cta-footer",
	}
	for alias, class := range tests {
		t.Run(alias, func(t *testing.T) {
			out, _ := render(t, e, models.Block{Type: alias})
			assert.Contains(t, out, class)
		})
	}
}

func TestProductGridEmitsAddToCart(t *testing.T) {
	e := newTestEngine(t)
	out, sink := render(t, e, models.Block{Type: "featured-products", Data: map[string]any{
		"title": "Menu",
		"products": []any{
			map[string]any{"name": "Espresso", "price": "2.50"},
			map[string]any{"name": "Croissant", "price": 3.0},
			"not an object but still a product",
		},
	}})

	actions := sink.Actions()
	require.Len(t, actions, 3)
	for _, a := range actions {
		assert.Equal(t, models.ActionAddToCart, a.Type)
		assert.Contains(t, out, `data-action-id="`+a.ID+`"`)
	}
	assert.Equal(t, "Espresso", actions[0].Payload["name"])
	assert.Equal(t, "2.50", actions[0].Payload["price"])
	assert.Equal(t, "3", actions[1].Payload["price"])
	assert.Equal(t, 3, strings.Count(out, "Add to cart"))
}

func TestActionIDsAreStable(t *testing.T) {
	e := newTestEngine(t)
	b := models.Block{Type: "product-grid", Data: map[string]any{
		"products": []any{map[string]any{"name": "Espresso", "price": "2.50"}},
	}}

	_, first := render(t, e, b)
	_, second := render(t, e, b)
	require.Len(t, first.Actions(), 1)
	assert.Equal(t, first.Actions()[0].ID, second.Actions()[0].ID)

	a, ok := second.Find(first.Actions()[0].ID)
	assert.True(t, ok)
	assert.Equal(t, "Espresso", a.Payload["name"])

	_, ok = second.Find("missing")
	assert.False(t, ok)
}

func TestNavbarFallsBackToDocumentNavbar(t *testing.T) {
	e := newTestEngine(t)

	out, sink := render(t, e, models.Block{Type: "navbar", Data: map[string]any{}})
	assert.Contains(t, out, "Bravíssimo")
	assert.Contains(t, out, `href="/sites/abc/pages/menu"`)
	assert.Contains(t, out, "Menú")
	assert.Len(t, sink.Actions(), 2)

	own, _ := render(t, e, models.Block{Type: "navbar", Data: map[string]any{
		"logo":  "Own",
		"links": []any{map[string]any{"label": "Contact", "target": "Contact"}},
	}})
	assert.Contains(t, own, "Own")
	assert.Contains(t, own, `href="/sites/abc/pages/contact"`)
	assert.NotContains(t, own, "Menú")
}

func TestTextContentRendersMarkdown(t *testing.T) {
	e := newTestEngine(t)
	out, _ := render(t, e, models.Block{Type: "text", Data: map[string]any{
		"title": "Story",
		"body":  "We roast **every morning**.\n\n- beans\n- love\n\n<img src=x onerror=alert(1)>",
	}})
	assert.Contains(t, out, "<strong>every morning</strong>")
	assert.Contains(t, out, "<li>beans</li>")
	assert.NotContains(t, out, "onerror=alert")
}

func TestNarrativeVariants(t *testing.T) {
	e := newTestEngine(t)
	data := map[string]any{"title": "Our story", "text": "One.\n\nTwo.", "image_url": "https://img/x.jpg"}

	left, _ := render(t, e, models.Block{Type: "narrative", Variant: "image-left", Data: data})
	right, _ := render(t, e, models.Block{Type: "narrative", Data: data})

	assert.Contains(t, left, "narrative--image-left")
	assert.Less(t, strings.Index(left, "<img"), strings.Index(left, "Our story"))
	assert.Contains(t, right, "narrative--image-right")
	assert.Greater(t, strings.Index(right, "<img"), strings.Index(right, "Our story"))
	assert.Contains(t, right, "<p>One.</p>")
	assert.Contains(t, right, "<p>Two.</p>")
}

func TestBentoSizes(t *testing.T) {
	e := newTestEngine(t)
	out, _ := render(t, e, models.Block{Type: "bento-grid", Data: map[string]any{
		"items": []any{"A", "B", map[string]any{"title": "C", "size": "tall"}},
	}})
	assert.Contains(t, out, "bento-item--large")
	assert.Contains(t, out, "bento-item--small")
	assert.Contains(t, out, "bento-item--tall")
}

func TestShowcaseVariants(t *testing.T) {
	e := newTestEngine(t)
	data := map[string]any{"items": []any{map[string]any{"title": "Work", "image_url": "https://img/1.jpg"}}}

	carousel, _ := render(t, e, models.Block{Type: "showcase", Variant: "carousel", Data: data})
	grid, _ := render(t, e, models.Block{Type: "showcase", Data: data})
	assert.Contains(t, carousel, "showcase-carousel")
	assert.Contains(t, grid, "showcase-grid")
}

func TestContactFormFields(t *testing.T) {
	e := newTestEngine(t)

	defaults, _ := render(t, e, models.Block{Type: "contact-form"})
	assert.Contains(t, defaults, `name="email"`)
	assert.Contains(t, defaults, "<textarea")

	custom, _ := render(t, e, models.Block{Type: "contact-form", Data: map[string]any{
		"fields": []any{"Full Name", map[string]any{"label": "Phone", "type": "tel", "required": true}, map[string]any{"type": "weird"}},
		"email":  "hola@bravissimo.test",
	}})
	assert.Contains(t, custom, `name="full_name"`)
	assert.Contains(t, custom, `type="tel" name="phone" required`)
	assert.Contains(t, custom, "mailto:hola@bravissimo.test")
	assert.NotContains(t, custom, `name="message"`)
}

func TestInlineStyle(t *testing.T) {
	got := inlineStyle(map[string]any{
		"background": "#111",
		"color":      "rgb(1, 2, 3)",
		"padding":    "url(javascript:alert(1))",
		"textAlign":  "center;position:fixed",
	})
	assert.Equal(t, template.CSS("background: #111; color: rgb(1, 2, 3);"), got)
}

func TestSiteHref(t *testing.T) {
	site := testSite()
	tests := []struct{ target, want string }{
		{"menu", "/sites/abc/pages/menu"},
		{"Menu", "/sites/abc/pages/menu"},
		{"  Contact ", "/sites/abc/pages/contact"},
		{"#top", "#top"},
		{"https://example.com", "https://example.com"},
		{"mailto:a@b.c", "mailto:a@b.c"},
		{"Opening Hours", "#opening-hours"},
		{"", "#"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, site.Href(tt.target), tt.target)
	}

	var none *Site
	assert.Equal(t, "#menu", none.Href("menu"))
	assert.Equal(t, "#menu", (&Site{Doc: site.Doc}).Href("menu"))
}

func TestRenderPage(t *testing.T) {
	m := metrics.New()
	e, err := New(m)
	require.NoError(t, err)
	site := testSite()

	home, ok := e.RenderPage(site.Doc, "", site.Link)
	require.True(t, ok)
	assert.Equal(t, "home", home.Name)
	assert.Equal(t, "Café Bravíssimo", home.Title)
	assert.Contains(t, string(home.Body), "Coffee")
	assert.False(t, home.HasNavbar)

	menu, ok := e.RenderPage(site.Doc, "menu", site.Link)
	require.True(t, ok)
	assert.Equal(t, "Menu | Café Bravíssimo", menu.Title)

	_, ok = e.RenderPage(site.Doc, "missing", site.Link)
	assert.False(t, ok)

	expected := `
# HELP sitegen_blocks_rendered_total Total number of blocks rendered by block type
# TYPE sitegen_blocks_rendered_total counter
sitegen_blocks_rendered_total{type="hero"} 1
sitegen_blocks_rendered_total{type="product-grid"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "sitegen_blocks_rendered_total"))
}

func TestRenderPageSinglePage(t *testing.T) {
	e := newTestEngine(t)
	doc := &models.SiteDocument{
		Meta:   models.Meta{Title: "Solo"},
		Blocks: []models.Block{{Type: "navbar"}, {Type: "hero", Data: map[string]any{"headline": "Hi"}}},
	}

	page, ok := e.RenderPage(doc, "", nil)
	require.True(t, ok)
	assert.Equal(t, models.HomePage, page.Name)
	assert.True(t, page.HasNavbar)

	_, ok = e.RenderPage(doc, "about", nil)
	assert.False(t, ok)
}
