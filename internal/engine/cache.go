// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// cache.go holds the compiled block templates. This is the L1 cache: each
// embedded template is parsed once and reused for every render of its
// block type.
package engine

import (
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"path"
	"strings"
	"sync"
)

// templateCache is a concurrency-safe cache of compiled templates keyed by
// block type.
type templateCache struct {
	mu      sync.RWMutex
	entries map[string]*template.Template
}

func newTemplateCache() *templateCache {
	return &templateCache{
		entries: make(map[string]*template.Template),
	}
}

// get retrieves a compiled template. Returns nil on miss.
func (c *templateCache) get(blockType string) *template.Template {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.entries[blockType]
}

// put stores a compiled template in the cache.
func (c *templateCache) put(blockType string, tmpl *template.Template) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[blockType] = tmpl
	slog.Debug("block template cached", "type", blockType, "size", len(c.entries))
}

// load compiles every *.html file under dir, keyed by file name without
// the extension. Shared partials live in files starting with "_" and are
// parsed into every template.
func (c *templateCache) load(fsys fs.FS, dir string, funcs template.FuncMap) error {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return fmt.Errorf("read block templates: %w", err)
	}

	var partials []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasPrefix(e.Name(), "_") {
			partials = append(partials, path.Join(dir, e.Name()))
		}
	}

	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, "_") || path.Ext(name) != ".html" {
			continue
		}
		files := append([]string{path.Join(dir, name)}, partials...)
		tmpl, err := template.New(name).Funcs(funcs).ParseFS(fsys, files...)
		if err != nil {
			return fmt.Errorf("parse block template %s: %w", name, err)
		}
		c.put(strings.TrimSuffix(name, ".html"), tmpl)
	}
	return nil
}
