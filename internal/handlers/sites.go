// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	qrcode "github.com/skip2/go-qrcode"

	"sitegen/internal/cache"
	"sitegen/internal/engine"
	"sitegen/internal/inject"
	"sitegen/internal/models"
	"sitegen/internal/render"
	"sitegen/internal/session"
	"sitegen/internal/storage"
	"sitegen/internal/store"
)

// Publisher uploads rendered pages. *storage.Client implements it.
type Publisher interface {
	Upload(ctx context.Context, key, contentType string, body []byte) (string, error)
}

// indexPage is the cache and object name of a site's entry page.
const indexPage = "index"

// Sites groups the handlers that serve stored documents as rendered sites.
// Rendered pages are cached in Valkey when a page cache is configured.
type Sites struct {
	documents store.Documents
	engine    *engine.Engine
	shell     *render.Renderer
	injector  *inject.Renderer
	pageCache *cache.PageCache
	publisher Publisher
	carts     store.CartStore
	baseURL   string
}

// NewSites creates the site handler group. pageCache and publisher may be
// nil; publishing then answers 503.
func NewSites(documents store.Documents, eng *engine.Engine, shell *render.Renderer, injector *inject.Renderer, pageCache *cache.PageCache, publisher Publisher, carts store.CartStore, baseURL string) *Sites {
	return &Sites{
		documents: documents,
		engine:    eng,
		shell:     shell,
		injector:  injector,
		pageCache: pageCache,
		publisher: publisher,
		carts:     carts,
		baseURL:   baseURL,
	}
}

// load resolves the {id} URL parameter to a stored document, writing the
// error response when it cannot.
func (s *Sites) load(w http.ResponseWriter, r *http.Request) (uuid.UUID, *models.SiteDocument, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, msgSiteNotFound)
		return uuid.Nil, nil, false
	}
	doc, err := s.documents.Find(r.Context(), id)
	if err != nil {
		slog.Error("find document failed", "error", err, "id", id)
		writeError(w, http.StatusInternalServerError, msgInternal)
		return uuid.Nil, nil, false
	}
	if doc == nil {
		writeError(w, http.StatusNotFound, msgSiteNotFound)
		return uuid.Nil, nil, false
	}
	return id, doc, true
}

func siteLink(id uuid.UUID) func(page string) string {
	prefix := "/sites/" + id.String() + "/pages/"
	return func(page string) string { return prefix + page }
}

// publishedLink addresses pages relative to each other in object storage.
func publishedLink(page string) string {
	return page + ".html"
}

// errPageNotFound is returned by renderPage for pages the document lacks.
var errPageNotFound = fmt.Errorf("page not found")

// renderPage renders one page of doc as a complete HTML document. Flat
// documents have a single page produced by the injection engine.
func (s *Sites) renderPage(ctx context.Context, doc *models.SiteDocument, page string, link func(string) string, endpoint string) ([]byte, error) {
	if doc.IsFlat() {
		if page != "" && page != models.HomePage {
			return nil, errPageNotFound
		}
		out, tmpl, err := s.injector.Render(ctx, doc)
		if err != nil {
			return nil, err
		}
		slog.Debug("flat document injected", "template", tmpl.ID)
		return out, nil
	}

	p, ok := s.engine.RenderPage(doc, page, link)
	if !ok {
		return nil, errPageNotFound
	}
	var buf bytes.Buffer
	if err := s.shell.Site(&buf, render.PageData(doc, p, link, endpoint)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Page handles GET /sites/{id} and GET /sites/{id}/pages/{page}.
func (s *Sites) Page(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	page := chi.URLParam(r, "page")
	cacheName := page
	if cacheName == "" {
		cacheName = indexPage
	}

	if s.pageCache != nil {
		if cached, ok := s.pageCache.Get(ctx, chi.URLParam(r, "id"), cacheName); ok {
			writeHTML(w, cached)
			return
		}
	}

	id, doc, ok := s.load(w, r)
	if !ok {
		return
	}

	out, err := s.renderPage(ctx, doc, page, siteLink(id), "/sites/"+id.String()+"/actions/")
	if err == errPageNotFound {
		writeError(w, http.StatusNotFound, msgPageNotFound)
		return
	}
	if err != nil {
		slog.Error("render site failed", "error", err, "id", id, "page", page)
		writeError(w, http.StatusInternalServerError, msgInternal)
		return
	}

	if s.pageCache != nil {
		s.pageCache.Set(ctx, id.String(), cacheName, out)
	}
	writeHTML(w, out)
}

func writeHTML(w http.ResponseWriter, body []byte) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

// Export handles GET /sites/{id}/document, returning the stored document
// as a JSON download.
func (s *Sites) Export(w http.ResponseWriter, r *http.Request) {
	id, doc, ok := s.load(w, r)
	if !ok {
		return
	}
	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		slog.Error("encode document failed", "error", err, "id", id)
		writeError(w, http.StatusInternalServerError, msgInternal)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="site-%s.json"`, id))
	w.WriteHeader(http.StatusOK)
	w.Write(out)
}

// QR handles GET /sites/{id}/qr.png with a share code for the site URL.
func (s *Sites) QR(w http.ResponseWriter, r *http.Request) {
	id, _, ok := s.load(w, r)
	if !ok {
		return
	}
	png, err := qrcode.Encode(s.baseURL+"/sites/"+id.String(), qrcode.Medium, 256)
	if err != nil {
		slog.Error("qr code generation failed", "error", err)
		writeError(w, http.StatusInternalServerError, msgInternal)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}

// publishResponse lists the public URL of every uploaded page.
type publishResponse struct {
	URL   string            `json:"url"`
	Pages map[string]string `json:"pages"`
}

// Publish handles POST /sites/{id}/publish. Every page is rendered with
// relative links and uploaded as sites/<id>/<page>.html, plus an index.
func (s *Sites) Publish(w http.ResponseWriter, r *http.Request) {
	if s.publisher == nil {
		writeError(w, http.StatusServiceUnavailable, msgStorageDisabled)
		return
	}
	id, doc, ok := s.load(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	names := []string{models.HomePage}
	if !doc.IsFlat() {
		names = doc.PageNames()
	}

	resp := publishResponse{Pages: make(map[string]string, len(names))}
	for i, name := range names {
		out, err := s.renderPage(ctx, doc, name, publishedLink, "")
		if err != nil {
			slog.Error("render page for publish failed", "error", err, "id", id, "page", name)
			writeError(w, http.StatusInternalServerError, msgInternal)
			return
		}
		url, err := s.publisher.Upload(ctx, storage.PageKey(id.String(), name), "text/html; charset=utf-8", out)
		if err != nil {
			slog.Error("upload page failed", "error", err, "id", id, "page", name)
			writeError(w, http.StatusBadGateway, "Failed to upload site")
			return
		}
		resp.Pages[name] = url

		if i == 0 {
			index, err := s.publisher.Upload(ctx, storage.PageKey(id.String(), indexPage), "text/html; charset=utf-8", out)
			if err != nil {
				slog.Error("upload index failed", "error", err, "id", id)
				writeError(w, http.StatusBadGateway, "Failed to upload site")
				return
			}
			resp.URL = index
		}
	}

	slog.Info("site published", "id", id, "pages", len(names), "url", resp.URL)
	writeJSON(w, http.StatusOK, resp)
}

// cartResponse is the visitor's cart after an ADD_TO_CART action.
type cartResponse struct {
	Action models.Action     `json:"action"`
	Cart   []models.CartItem `json:"cart"`
}

// Action handles POST /sites/{id}/actions/{actionID}. Action IDs are
// derived from the control they belong to, so the action is found again
// by rendering the document's pages.
func (s *Sites) Action(w http.ResponseWriter, r *http.Request) {
	id, doc, ok := s.load(w, r)
	if !ok {
		return
	}
	actionID := chi.URLParam(r, "actionID")

	action, found := s.findAction(doc, siteLink(id), actionID)
	if !found {
		writeError(w, http.StatusNotFound, "Action not found")
		return
	}

	switch action.Type {
	case models.ActionNavigate:
		href, _ := action.Payload["href"].(string)
		if href == "" {
			href = "/sites/" + id.String()
		}
		http.Redirect(w, r, href, http.StatusSeeOther)

	case models.ActionAddToCart:
		name, _ := action.Payload["name"].(string)
		price, _ := action.Payload["price"].(string)
		cart, err := s.carts.Add(r.Context(), id.String(), session.Visitor(w, r), models.CartItem{Name: name, Price: price})
		if err != nil {
			slog.Error("cart update failed", "error", err, "id", id)
			writeError(w, http.StatusInternalServerError, msgInternal)
			return
		}
		slog.Debug("cart updated", "site", id, "item", name, "items", len(cart))
		writeJSON(w, http.StatusOK, cartResponse{Action: action, Cart: cart})

	default:
		writeError(w, http.StatusBadRequest, "Unsupported action")
	}
}

func (s *Sites) findAction(doc *models.SiteDocument, link func(string) string, actionID string) (models.Action, bool) {
	for _, name := range doc.PageNames() {
		p, ok := s.engine.RenderPage(doc, name, link)
		if !ok {
			continue
		}
		for _, a := range p.Actions {
			if a.ID == actionID {
				return a, true
			}
		}
	}
	return models.Action{}, false
}

// Cart handles GET /sites/{id}/cart.
func (s *Sites) Cart(w http.ResponseWriter, r *http.Request) {
	id, _, ok := s.load(w, r)
	if !ok {
		return
	}
	cart, err := s.carts.Items(r.Context(), id.String(), session.Visitor(w, r))
	if err != nil {
		slog.Error("cart lookup failed", "error", err, "id", id)
		writeError(w, http.StatusInternalServerError, msgInternal)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"cart": cart})
}
