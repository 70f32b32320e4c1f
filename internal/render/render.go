// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package render wraps rendered block pages in the site shell: the theme
// as CSS variables, the Google fonts, the footer with page links and the
// action manifest the page script reads.
package render

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"net/url"
	"regexp"
	"strings"

	"sitegen/internal/engine"
	"sitegen/internal/models"
	"sitegen/web"
)

//go:embed templates/*.html
var templatesFS embed.FS

// SiteData holds everything the shell template renders.
type SiteData struct {
	Lang        string
	Title       string
	Description string
	Page        string
	Home        string
	Theme       models.Theme
	Body        template.HTML

	// Navbar is set only when the page body has no navbar block of its own.
	Navbar    *models.Navbar
	Footer    *models.Footer
	PageLinks []PageLink

	Actions []models.Action
	// ActionEndpoint is the URL prefix actions are posted to. Empty for
	// published pages, where carts are not available.
	ActionEndpoint string

	CSS template.CSS
	JS  template.JS
}

// PageLink is an entry of the page list in the footer.
type PageLink struct {
	Label   string
	Href    string
	Current bool
}

// Renderer executes the site shell.
type Renderer struct {
	tmpl *template.Template
	css  template.CSS
	js   template.JS
}

var funcMap = template.FuncMap{
	"fontsHref": fontsHref,
	"themeVars": themeVars,
}

// New parses the shell template and loads the static assets it inlines.
func New() (*Renderer, error) {
	tmpl, err := template.New("site.html").Funcs(funcMap).ParseFS(templatesFS, "templates/site.html")
	if err != nil {
		return nil, fmt.Errorf("parse site template: %w", err)
	}

	css, err := fs.ReadFile(web.StaticFS, "static/site.css")
	if err != nil {
		return nil, fmt.Errorf("read site css: %w", err)
	}
	js, err := fs.ReadFile(web.StaticFS, "static/site.js")
	if err != nil {
		return nil, fmt.Errorf("read site js: %w", err)
	}

	return &Renderer{tmpl: tmpl, css: template.CSS(css), js: template.JS(js)}, nil
}

// Site writes the complete HTML page for data.
func (rn *Renderer) Site(w io.Writer, data *SiteData) error {
	if data.Lang == "" {
		data.Lang = "en"
	}
	if data.Actions == nil {
		data.Actions = []models.Action{}
	}
	data.CSS, data.JS = rn.css, rn.js

	if err := rn.tmpl.Execute(w, data); err != nil {
		return fmt.Errorf("execute site template: %w", err)
	}
	return nil
}

// PageData builds the shell data for a page rendered by the engine. link
// addresses pages the same way the engine did; endpoint is the action URL
// prefix or empty.
func PageData(doc *models.SiteDocument, page *engine.Page, link func(string) string, endpoint string) *SiteData {
	site := &engine.Site{Doc: doc, Page: page.Name, Link: link}

	data := &SiteData{
		Title:          page.Title,
		Description:    doc.Meta.Description,
		Page:           page.Name,
		Theme:          doc.Theme,
		Body:           page.Body,
		Footer:         doc.Footer,
		Actions:        page.Actions,
		ActionEndpoint: endpoint,
	}

	data.Home = "#top"
	if doc.Pages != nil {
		names := doc.PageNames()
		data.Home = site.Href(names[0])
		for _, name := range names {
			label := doc.Pages[name].Title
			if label == "" {
				label = name
			}
			data.PageLinks = append(data.PageLinks, PageLink{
				Label:   label,
				Href:    site.Href(name),
				Current: name == page.Name,
			})
		}
	}

	if !page.HasNavbar {
		nav := doc.Navbar
		if nav == nil {
			nav = &models.Navbar{}
		}
		if nav.Logo == "" {
			nav = &models.Navbar{Logo: doc.Meta.Title, Links: nav.Links, CTA: nav.CTA}
		}
		data.Navbar = nav
	}
	return data
}

// fontFamily accepts Google font family names.
var fontFamily = regexp.MustCompile(`^[A-Za-z0-9 ]{1,64}$`)

// fontsHref builds the Google Fonts stylesheet URL for the heading and body
// fonts. Names that are not plain family names are skipped.
func fontsHref(t models.Typography) string {
	q := url.Values{}
	seen := map[string]bool{}
	for _, f := range []string{t.HeadingFont, t.BodyFont} {
		f = strings.TrimSpace(f)
		if f == "" || seen[f] || !fontFamily.MatchString(f) {
			continue
		}
		seen[f] = true
		q.Add("family", f+":wght@400;600;700")
	}
	if len(q) == 0 {
		q.Add("family", "Inter:wght@400;600;700")
	}
	q.Set("display", "swap")
	return "https://fonts.googleapis.com/css2?" + q.Encode()
}

// cssColor accepts hex colors, color functions and named colors.
var cssColor = regexp.MustCompile(`^(#[0-9a-fA-F]{3,8}|(rgb|rgba|hsl|hsla)\([0-9.,%\s]+\)|[a-zA-Z]{3,20})$`)

// themeVars renders the palette and fonts as CSS custom properties.
// Invalid colors are left out, so the stylesheet fallbacks apply.
func themeVars(t models.Theme) template.CSS {
	var b strings.Builder
	for _, v := range []struct{ name, value string }{
		{"--color-primary", t.Palette.Primary},
		{"--color-secondary", t.Palette.Secondary},
		{"--color-accent", t.Palette.Accent},
		{"--color-background", t.Palette.Background},
		{"--color-surface", t.Palette.Surface},
	} {
		value := strings.TrimSpace(v.value)
		if !cssColor.MatchString(value) {
			continue
		}
		fmt.Fprintf(&b, "%s: %s; ", v.name, value)
	}
	for _, v := range []struct{ name, value string }{
		{"--font-heading", t.Typography.HeadingFont},
		{"--font-body", t.Typography.BodyFont},
	} {
		value := strings.TrimSpace(v.value)
		if !fontFamily.MatchString(value) {
			continue
		}
		fmt.Fprintf(&b, "%s: '%s'; ", v.name, value)
	}
	return template.CSS(strings.TrimSpace(b.String()))
}
