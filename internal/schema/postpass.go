// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package schema

import (
	"fmt"
	"log/slog"
	"strings"

	"sitegen/internal/models"
	"sitegen/internal/slug"
)

// Fixed defaults for everything a block document may leave out.
var (
	DefaultTheme = models.Theme{
		Mode: "dark",
		Palette: models.Palette{
			Primary:    "#10b981",
			Secondary:  "#3b82f6",
			Accent:     "#f59e0b",
			Background: "#09090b",
			Surface:    "#18181b",
		},
		Typography: models.Typography{HeadingFont: "Inter", BodyFont: "Inter"},
	}
	DefaultFooterStyle = "minimal"
	DefaultTitle       = "Untitled site"
)

// imageKeys are the data keys a block may use for its image, in the order
// they are consulted.
var imageKeys = []string{"image_url", "image", "backgroundImage", "bgImage", "img"}

// finish applies defaults, enforces the blocks/pages partition and runs
// the layout pass on every page. Each step only adds what is missing.
func (n *Normalizer) finish(doc *models.SiteDocument, prompt string) {
	n.applyDefaults(doc)

	if len(doc.Pages) == 0 {
		doc.Pages, doc.PageOrder = nil, nil
	} else {
		if len(doc.Blocks) > 0 {
			slog.Debug("root blocks dropped in favor of pages", "blocks", len(doc.Blocks))
		}
		doc.Blocks = nil
		doc.PageOrder = doc.PageNames()
	}

	n.applyNavbar(doc)

	category := n.category(doc, prompt)
	if doc.Pages == nil {
		doc.Blocks = n.layout(doc, doc.Blocks, category)
		return
	}
	for _, name := range doc.PageOrder {
		p := doc.Pages[name]
		p.Blocks = n.layout(doc, p.Blocks, category)
	}
}

func (n *Normalizer) applyDefaults(doc *models.SiteDocument) {
	if doc.Meta.Title == "" && doc.Navbar != nil {
		doc.Meta.Title = doc.Navbar.Logo
	}
	if doc.Meta.Title == "" {
		doc.Meta.Title = DefaultTitle
	}

	t, d := &doc.Theme, DefaultTheme
	t.Mode = orDefault(t.Mode, d.Mode)
	t.Palette.Primary = orDefault(t.Palette.Primary, d.Palette.Primary)
	t.Palette.Secondary = orDefault(t.Palette.Secondary, d.Palette.Secondary)
	t.Palette.Accent = orDefault(t.Palette.Accent, d.Palette.Accent)
	t.Palette.Background = orDefault(t.Palette.Background, d.Palette.Background)
	t.Palette.Surface = orDefault(t.Palette.Surface, d.Palette.Surface)
	t.Typography.HeadingFont = orDefault(t.Typography.HeadingFont, d.Typography.HeadingFont)
	t.Typography.BodyFont = orDefault(t.Typography.BodyFont, d.Typography.BodyFont)

	if doc.Footer == nil {
		doc.Footer = &models.Footer{}
	}
	if doc.Footer.Text == "" {
		doc.Footer.Text = fmt.Sprintf("© %d %s", n.now().Year(), doc.Meta.Title)
	}
	doc.Footer.Style = orDefault(doc.Footer.Style, DefaultFooterStyle)
}

// applyNavbar fills the navbar and points links that name a page at the
// page's slug. A navbar without links lists every page.
func (n *Normalizer) applyNavbar(doc *models.SiteDocument) {
	if doc.Navbar == nil {
		doc.Navbar = &models.Navbar{}
	}
	nav := doc.Navbar
	nav.Logo = orDefault(nav.Logo, doc.Meta.Title)

	if doc.Pages == nil {
		return
	}
	if len(nav.Links) == 0 {
		for _, name := range doc.PageOrder {
			nav.Links = append(nav.Links, models.NavLink{
				Label:  orDefault(doc.Pages[name].Title, pageTitle(name)),
				Target: name,
			})
		}
		return
	}
	for i := range nav.Links {
		nav.Links[i].Target = n.pageTarget(doc, nav.Links[i].Target)
	}
	if nav.CTA != nil {
		nav.CTA.Target = n.pageTarget(doc, nav.CTA.Target)
	}
}

func (n *Normalizer) pageTarget(doc *models.SiteDocument, target string) string {
	if _, ok := doc.Pages[target]; ok {
		return target
	}
	if s := slug.Generate(target); s != "" {
		if _, ok := doc.Pages[s]; ok {
			return s
		}
	}
	return target
}

func (n *Normalizer) category(doc *models.SiteDocument, prompt string) string {
	if strings.TrimSpace(prompt) == "" {
		prompt = doc.Meta.Title + " " + doc.Meta.Description
	}
	return n.images.Category(prompt)
}

// layout guarantees navigation first, a hero and a closing call to action,
// then resolves imagery. Aliases count as present.
func (n *Normalizer) layout(doc *models.SiteDocument, blocks []models.Block, category string) []models.Block {
	var hasNav, hasHero, hasCTA bool
	for _, b := range blocks {
		switch models.CanonicalBlockType(b.Type) {
		case models.BlockNavbar:
			hasNav = true
		case models.BlockCTAFooter:
			hasCTA = true
		}
		if models.IsHero(b.Type) {
			hasHero = true
		}
	}

	if !hasNav {
		blocks = append([]models.Block{{Type: models.BlockNavbar, Data: map[string]any{}}}, blocks...)
	}
	if !hasHero {
		hero := map[string]any{"headline": doc.Meta.Title}
		if doc.Meta.Description != "" {
			hero["subheadline"] = doc.Meta.Description
		}
		blocks = append(blocks, models.Block{Type: models.BlockHero, Data: hero})
	}
	if !hasCTA {
		blocks = append(blocks, models.Block{
			Type:    models.BlockCTAFooter,
			Variant: doc.Footer.Style,
			Data:    map[string]any{"headline": doc.Meta.Title, "text": doc.Footer.Text},
		})
	}

	for i := range blocks {
		n.resolveBlockImages(&blocks[i], category)
	}
	return blocks
}

func (n *Normalizer) resolveBlockImages(b *models.Block, category string) {
	if b.Data == nil {
		b.Data = map[string]any{}
	}
	n.resolveImage(b.Data, category, models.IsHero(b.Type))
	for _, key := range []string{"items", "products"} {
		for _, item := range list(b.Data[key]) {
			if m := object(item); m != nil {
				n.resolveImage(m, category, false)
			}
		}
	}
}

// resolveImage writes image_url when data describes an image by keywords
// instead of an address. With force set, data without any image gets one.
func (n *Normalizer) resolveImage(data map[string]any, category string, force bool) {
	if hasResolvedImage(data) {
		return
	}
	described := str(data["image_prompt"]) != ""
	for _, k := range imageKeys {
		if s, ok := data[k].(string); ok && strings.TrimSpace(s) != "" {
			described = true
		}
	}
	if !described && !force {
		return
	}
	data["image_url"] = n.images.Pick(category)
}

func hasResolvedImage(data map[string]any) bool {
	for _, k := range imageKeys {
		switch v := data[k].(type) {
		case string:
			if isURL(v) {
				return true
			}
		case map[string]any:
			if isURL(str(v["url"])) {
				return true
			}
		}
	}
	return false
}

func isURL(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.HasPrefix(s, "https://") || strings.HasPrefix(s, "http://")
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
