// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package engine

import (
	"html/template"
	"strings"

	"sitegen/internal/models"
)

// builtinViews maps each canonical block type to the function that turns
// its props into the value its template executes over.
var builtinViews = map[string]func(Props) any{
	models.BlockHero:          heroView,
	models.BlockNavbar:        navbarView,
	models.BlockBentoGrid:     bentoView,
	models.BlockMarquee:       marqueeView,
	models.BlockNarrative:     narrativeView,
	models.BlockShowcase:      showcaseView,
	models.BlockCTAFooter:     ctaFooterView,
	models.BlockProductGrid:   productGridView,
	models.BlockTextContent:   textContentView,
	models.BlockContactForm:   contactFormView,
	models.BlockImage:         imageView,
	models.BlockEditorialHero: editorialHeroView,
	models.BlockEditorialGrid: editorialGridView,
}

// Section is embedded in every view and carries the section attributes.
type Section struct {
	Type    string
	Variant string
	Style   template.CSS
}

func sectionOf(p Props) Section {
	return Section{Type: p.Type, Variant: p.Variant, Style: inlineStyle(p.Style)}
}

// Link is a rendered navigation control.
type Link struct {
	Label    string
	Href     string
	ActionID string
}

// navigate builds a Link for target and records its action.
func navigate(p Props, label, target string) *Link {
	if label == "" {
		return nil
	}
	href := p.Site.Href(target)
	return &Link{Label: label, Href: href, ActionID: p.Actions.Navigate(target, href)}
}

// Item is a card in a grid, showcase or list.
type Item struct {
	Title       string
	Description string
	Image       string
	Icon        string
	Size        string
	Category    string
	Price       string
	Link        *Link
	ActionID    string
}

func items(p Props, keys ...string) []Item {
	var raw []any
	for _, k := range keys {
		if raw = list(p.Data[k]); len(raw) > 0 {
			break
		}
	}

	out := make([]Item, 0, len(raw))
	for _, v := range raw {
		if s := str(v); s != "" {
			out = append(out, Item{Title: s})
			continue
		}
		m := object(v)
		if m == nil {
			continue
		}
		it := Item{
			Title:       firstStr(m, "title", "name", "headline", "label"),
			Description: firstStr(m, "description", "text", "excerpt", "body", "summary"),
			Image:       imageURL(m),
			Icon:        firstStr(m, "icon", "emoji"),
			Size:        strings.ToLower(firstStr(m, "size", "span")),
			Category:    firstStr(m, "category", "tag", "kicker"),
			Price:       firstStr(m, "price", "precio"),
		}
		if it.Title == "" && it.Description == "" && it.Image == "" {
			continue
		}
		if target := firstStr(m, "link", "href", "target", "actionTarget"); target != "" {
			it.Link = navigate(p, orDefault(firstStr(m, "linkLabel", "cta"), "Learn more"), target)
		}
		out = append(out, it)
	}
	return out
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

// ctaLink reads the primary call to action of a block, accepting the
// several names generators use for it.
func ctaLink(p Props, defaultTarget string) *Link {
	label := firstStr(p.Data, "cta_primary", "actionLabel", "cta", "buttonText", "ctaText")
	if label == "" {
		if m := object(p.Data["cta"]); m != nil {
			label = firstStr(m, "label", "text")
			if t := firstStr(m, "target", "href", "link"); t != "" {
				return navigate(p, label, t)
			}
		}
	}
	target := firstStr(p.Data, "actionTarget", "cta_link", "ctaLink", "href", "link")
	return navigate(p, label, orDefault(target, defaultTarget))
}

type heroData struct {
	Section
	Headline    string
	Subheadline string
	Image       string
	Primary     *Link
	Secondary   *Link
	Split       bool
}

func heroView(p Props) any {
	v := heroData{
		Section:     sectionOf(p),
		Headline:    firstStr(p.Data, "headline", "title"),
		Subheadline: firstStr(p.Data, "subheadline", "subtitle", "description", "tagline"),
		Image:       imageURL(p.Data),
		Primary:     ctaLink(p, "contact"),
		Split:       p.Variant == "split",
	}
	if label := firstStr(p.Data, "cta_secondary", "secondaryLabel"); label != "" {
		v.Secondary = navigate(p, label, orDefault(firstStr(p.Data, "secondaryTarget", "cta_secondary_link"), "about"))
	}
	return v
}

type navbarData struct {
	Section
	Logo  string
	Home  string
	Links []Link
	CTA   *Link
}

// navbarView renders the block's own links, or the document navbar when the
// block carries none.
func navbarView(p Props) any {
	v := navbarData{Section: sectionOf(p), Logo: firstStr(p.Data, "logo", "brand", "title")}

	var docNav *models.Navbar
	if p.Site != nil && p.Site.Doc != nil {
		docNav = p.Site.Doc.Navbar
		if names := p.Site.Doc.PageNames(); len(names) > 0 {
			v.Home = p.Site.Href(names[0])
		}
		if v.Logo == "" {
			v.Logo = p.Site.Doc.Meta.Title
		}
	}
	if v.Home == "" || v.Home == "#" {
		v.Home = "#top"
	}

	for _, raw := range list(p.Data["links"]) {
		m := object(raw)
		label := firstStr(m, "label", "text", "title")
		if l := navigate(p, label, firstStr(m, "target", "href", "link", "page")); l != nil {
			v.Links = append(v.Links, *l)
		}
	}

	if docNav != nil {
		if firstStr(p.Data, "logo", "brand", "title") == "" && docNav.Logo != "" {
			v.Logo = docNav.Logo
		}
		if len(v.Links) == 0 {
			for _, l := range docNav.Links {
				if link := navigate(p, l.Label, l.Target); link != nil {
					v.Links = append(v.Links, *link)
				}
			}
		}
		if docNav.CTA != nil {
			v.CTA = navigate(p, docNav.CTA.Label, docNav.CTA.Target)
		}
	}
	if cta := object(p.Data["cta"]); cta != nil {
		v.CTA = navigate(p, firstStr(cta, "label", "text"), firstStr(cta, "target", "href"))
	}
	return v
}

type gridData struct {
	Section
	Title    string
	Subtitle string
	Items    []Item
}

// bentoSizes is the repeating size pattern for items that do not name one.
var bentoSizes = []string{"large", "small", "small", "wide", "small", "tall"}

func bentoView(p Props) any {
	v := gridData{
		Section:  sectionOf(p),
		Title:    firstStr(p.Data, "title", "headline"),
		Subtitle: firstStr(p.Data, "subtitle", "description"),
		Items:    items(p, "items", "features", "cards"),
	}
	for i := range v.Items {
		switch v.Items[i].Size {
		case "large", "wide", "tall", "small":
		default:
			v.Items[i].Size = bentoSizes[i%len(bentoSizes)]
		}
	}
	return v
}

type marqueeData struct {
	Section
	Items   []string
	Reverse bool
}

func marqueeView(p Props) any {
	words := strs(p.Data["items"], "text", "label", "name", "title")
	if len(words) == 0 {
		words = strs(p.Data["words"], "text", "label")
	}
	if len(words) == 0 {
		words = strs(p.Data["logos"], "name", "alt")
	}
	if len(words) == 0 {
		if s := firstStr(p.Data, "text", "title"); s != "" {
			words = []string{s}
		}
	}
	return marqueeData{Section: sectionOf(p), Items: words, Reverse: p.Variant == "reverse"}
}

type narrativeData struct {
	Section
	Title      string
	Paragraphs []string
	Image      string
	ImageLeft  bool
	CTA        *Link
}

func narrativeView(p Props) any {
	paragraphs := strs(p.Data["paragraphs"], "text")
	if len(paragraphs) == 0 {
		if s := firstStr(p.Data, "text", "body", "content", "description"); s != "" {
			for _, para := range strings.Split(s, "\n\n") {
				if para = strings.TrimSpace(para); para != "" {
					paragraphs = append(paragraphs, para)
				}
			}
		}
	}
	return narrativeData{
		Section:    sectionOf(p),
		Title:      firstStr(p.Data, "title", "headline"),
		Paragraphs: paragraphs,
		Image:      imageURL(p.Data),
		ImageLeft:  p.Variant == "image-left",
		CTA:        ctaLink(p, "contact"),
	}
}

type showcaseData struct {
	gridData
	Carousel bool
}

func showcaseView(p Props) any {
	return showcaseData{
		gridData: gridData{
			Section:  sectionOf(p),
			Title:    firstStr(p.Data, "title", "headline"),
			Subtitle: firstStr(p.Data, "subtitle", "description"),
			Items:    items(p, "items", "projects", "gallery", "slides"),
		},
		Carousel: p.Variant == "carousel",
	}
}

type ctaFooterData struct {
	Section
	Headline string
	Text     string
	CTA      *Link
}

func ctaFooterView(p Props) any {
	return ctaFooterData{
		Section:  sectionOf(p),
		Headline: firstStr(p.Data, "headline", "title"),
		Text:     firstStr(p.Data, "text", "subheadline", "subtitle", "description"),
		CTA:      ctaLink(p, "contact"),
	}
}

type productGridData struct {
	gridData
	ButtonLabel string
}

// productGridView gives every product an add-to-cart control.
func productGridView(p Props) any {
	v := productGridData{
		gridData: gridData{
			Section:  sectionOf(p),
			Title:    firstStr(p.Data, "title", "headline"),
			Subtitle: firstStr(p.Data, "subtitle", "description"),
			Items:    items(p, "products", "items"),
		},
		ButtonLabel: orDefault(firstStr(p.Data, "buttonText", "actionLabel"), "Add to cart"),
	}
	for i := range v.Items {
		if v.Items[i].Title != "" {
			v.Items[i].ActionID = p.Actions.AddToCart(v.Items[i].Title, v.Items[i].Price)
		}
	}
	return v
}

type textContentData struct {
	Section
	Title string
	Body  string
}

func textContentView(p Props) any {
	body := firstStr(p.Data, "body", "text", "content", "markdown")
	if body == "" {
		body = strings.Join(strs(p.Data["paragraphs"], "text"), "\n\n")
	}
	return textContentData{Section: sectionOf(p), Title: firstStr(p.Data, "title", "headline"), Body: body}
}

// FormField is one input of a contact form.
type FormField struct {
	Name     string
	Label    string
	Type     string
	Required bool
}

type contactFormData struct {
	Section
	Title       string
	Subtitle    string
	Fields      []FormField
	SubmitLabel string
	Email       string
	Phone       string
	Address     string
}

var defaultFormFields = []FormField{
	{Name: "name", Label: "Name", Type: "text", Required: true},
	{Name: "email", Label: "Email", Type: "email", Required: true},
	{Name: "message", Label: "Message", Type: "textarea"},
}

func contactFormView(p Props) any {
	v := contactFormData{
		Section:     sectionOf(p),
		Title:       orDefault(firstStr(p.Data, "title", "headline"), "Contact"),
		Subtitle:    firstStr(p.Data, "subtitle", "description", "text"),
		SubmitLabel: orDefault(firstStr(p.Data, "submitLabel", "buttonText", "cta"), "Send"),
		Email:       firstStr(p.Data, "email"),
		Phone:       firstStr(p.Data, "phone", "telefono"),
		Address:     firstStr(p.Data, "address", "direccion"),
	}

	for _, raw := range list(p.Data["fields"]) {
		if s := str(raw); s != "" {
			v.Fields = append(v.Fields, FormField{Name: fieldName(s), Label: s, Type: "text"})
			continue
		}
		m := object(raw)
		label := firstStr(m, "label", "name", "placeholder")
		if label == "" {
			continue
		}
		typ := strings.ToLower(firstStr(m, "type"))
		switch typ {
		case "email", "tel", "textarea", "date", "number":
		default:
			typ = "text"
		}
		required, _ := m["required"].(bool)
		v.Fields = append(v.Fields, FormField{
			Name:     fieldName(orDefault(firstStr(m, "name"), label)),
			Label:    label,
			Type:     typ,
			Required: required,
		})
	}
	if len(v.Fields) == 0 {
		v.Fields = defaultFormFields
	}
	return v
}

func fieldName(label string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(label) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ', r == '-', r == '_':
			b.WriteByte('_')
		}
	}
	return orDefault(b.String(), "field")
}

type imageData struct {
	Section
	Image   string
	Alt     string
	Caption string
}

func imageView(p Props) any {
	caption := firstStr(p.Data, "caption", "title")
	return imageData{
		Section: sectionOf(p),
		Image:   imageURL(p.Data),
		Alt:     orDefault(firstStr(p.Data, "alt"), caption),
		Caption: caption,
	}
}

type editorialHeroData struct {
	Section
	Kicker      string
	Headline    string
	Subheadline string
	Image       string
	CTA         *Link
}

func editorialHeroView(p Props) any {
	return editorialHeroData{
		Section:     sectionOf(p),
		Kicker:      firstStr(p.Data, "kicker", "eyebrow", "category"),
		Headline:    firstStr(p.Data, "headline", "title"),
		Subheadline: firstStr(p.Data, "subheadline", "subtitle", "description"),
		Image:       imageURL(p.Data),
		CTA:         ctaLink(p, "contact"),
	}
}

func editorialGridView(p Props) any {
	return gridData{
		Section:  sectionOf(p),
		Title:    firstStr(p.Data, "title", "headline"),
		Subtitle: firstStr(p.Data, "subtitle", "description"),
		Items:    items(p, "articles", "items", "posts", "stories"),
	}
}
