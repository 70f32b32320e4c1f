// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// handler_test.go provides shared test infrastructure for handler tests.
// Documents live in memory, the page cache and visitor carts run on
// miniredis, so no external service is needed.
package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"sitegen/internal/ai"
	"sitegen/internal/cache"
	"sitegen/internal/engine"
	"sitegen/internal/inject"
	"sitegen/internal/metrics"
	"sitegen/internal/models"
	"sitegen/internal/prompt"
	"sitegen/internal/render"
	"sitegen/internal/schema"
	"sitegen/internal/session"
	"sitegen/internal/store"
)

// mockProvider implements ai.Provider for handler tests.
type mockProvider struct {
	mu       sync.Mutex
	response string
	stream   string
	err      error
	got      []ai.Instruction
}

func (m *mockProvider) Name() string { return "mock" }

func (m *mockProvider) Complete(_ context.Context, in ai.Instruction) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.got = append(m.got, in)
	return m.response, m.err
}

func (m *mockProvider) Stream(_ context.Context, in ai.Instruction) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.got = append(m.got, in)
	if m.err != nil {
		return nil, m.err
	}
	return io.NopCloser(strings.NewReader(m.stream)), nil
}

func (m *mockProvider) instructions() []ai.Instruction {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ai.Instruction(nil), m.got...)
}

// fakePublisher records uploads instead of talking to S3.
type fakePublisher struct {
	mu      sync.Mutex
	objects map[string][]byte
	err     error
}

func (p *fakePublisher) Upload(_ context.Context, key, _ string, body []byte) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return "", p.err
	}
	if p.objects == nil {
		p.objects = make(map[string][]byte)
	}
	p.objects[key] = body
	return "https://cdn.example.com/" + key, nil
}

// testEnv holds all dependencies for handler tests.
type testEnv struct {
	Provider   *mockProvider
	Documents  *store.MemoryDocuments
	Metrics    *metrics.Metrics
	Valkey     *miniredis.Miniredis
	PageCache  *cache.PageCache
	Publisher  *fakePublisher
	Generation *Generation
	Sites      *Sites
}

// newTestEnv creates a complete test environment with all handler dependencies.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	provider := &mockProvider{}
	registry := ai.NewRegistry("mock", nil)
	registry.Register("mock", provider)
	client := ai.NewClient(registry, 2*time.Second, 5*time.Second)

	composer, err := prompt.New()
	if err != nil {
		t.Fatalf("prompt.New: %v", err)
	}
	images, err := schema.NewImagePicker(nil)
	if err != nil {
		t.Fatalf("schema.NewImagePicker: %v", err)
	}
	m := metrics.New()
	eng, err := engine.New(m)
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}
	shell, err := render.New()
	if err != nil {
		t.Fatalf("render.New: %v", err)
	}
	injector, err := inject.NewRenderer(nil)
	if err != nil {
		t.Fatalf("inject.NewRenderer: %v", err)
	}

	mr := miniredis.RunT(t)
	vk := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { vk.Close() })
	pageCache := cache.NewPageCache(vk, time.Minute)

	docs := store.NewMemoryDocuments()
	publisher := &fakePublisher{}

	return &testEnv{
		Provider:   provider,
		Documents:  docs,
		Metrics:    m,
		Valkey:     mr,
		PageCache:  pageCache,
		Publisher:  publisher,
		Generation: NewGeneration(composer, client, schema.NewNormalizer(images), docs, m, true),
		Sites:      NewSites(docs, eng, shell, injector, pageCache, publisher, session.NewStore(vk, 0), "https://sitegen.example.com"),
	}
}

// routes mounts the handlers the way the router does.
func (e *testEnv) routes() http.Handler {
	r := chi.NewRouter()
	r.Post("/generate", e.Generation.Generate)
	r.Post("/documents", e.Generation.Ingest)
	r.Route("/sites/{id}", func(r chi.Router) {
		r.Get("/", e.Sites.Page)
		r.Get("/pages/{page}", e.Sites.Page)
		r.Get("/document", e.Sites.Export)
		r.Get("/qr.png", e.Sites.QR)
		r.Get("/cart", e.Sites.Cart)
		r.Post("/actions/{actionID}", e.Sites.Action)
		r.Post("/publish", e.Sites.Publish)
	})
	return r
}

// do runs a request through the test routes.
func (e *testEnv) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	e.routes().ServeHTTP(w, req)
	return w
}

// doWithCookies is do with the given cookies attached to the request.
func (e *testEnv) doWithCookies(t *testing.T, method, target string, cookies []*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	e.routes().ServeHTTP(w, req)
	return w
}

// store saves doc and returns its ID.
func (e *testEnv) store(t *testing.T, doc *models.SiteDocument) uuid.UUID {
	t.Helper()
	id, err := e.Documents.Create(context.Background(), doc, "test")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return id
}

// decodeJSON decodes a JSON response body into a generic map.
func decodeJSON(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
	return out
}

// shopDocument is a two-page document with a product grid.
func shopDocument() *models.SiteDocument {
	return &models.SiteDocument{
		SchemaVersion: models.CurrentSchemaVersion,
		Meta:          models.Meta{Title: "Verde Atelier", Description: "Slow fashion"},
		Navbar: &models.Navbar{
			Logo:  "Verde",
			Links: []models.NavLink{{Label: "Home", Target: "home"}, {Label: "Shop", Target: "shop"}},
		},
		Pages: map[string]*models.Page{
			"home": {Title: "Home", Blocks: []models.Block{
				{Type: "hero", Data: map[string]any{"headline": "Slow fashion", "cta_primary": "Shop now", "actionTarget": "shop"}},
			}},
			"shop": {Title: "Shop", Blocks: []models.Block{
				{Type: "product-grid", Data: map[string]any{"title": "Collection", "products": []any{
					map[string]any{"name": "Linen shirt", "price": "€89"},
				}}},
			}},
		},
		PageOrder: []string{"home", "shop"},
	}
}

// flatDocument loads the legacy flat fixture as a normalized document.
func flatDocument(t *testing.T) *models.SiteDocument {
	t.Helper()
	raw := map[string]any{
		"titulo":      "Café Bravíssimo",
		"eslogan":     "Café de especialidad",
		"descripcion": "Un restaurante clásico con menú del día.",
		"menuItems": []any{
			map[string]any{"nombre": "Espresso", "descripcion": "Doble", "precio": "2€"},
		},
	}
	images, err := schema.NewImagePicker(nil)
	if err != nil {
		t.Fatalf("NewImagePicker: %v", err)
	}
	doc, err := schema.NewNormalizer(images).Normalize(raw, "restaurante")
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if !doc.IsFlat() {
		t.Fatal("fixture is not a flat document")
	}
	return doc
}
