// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package schema

import (
	_ "embed"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"sitegen/internal/slug"
)

//go:embed images.yaml
var imagesYAML []byte

// DefaultCategory is used when a prompt matches no category keyword.
const DefaultCategory = "default"

type imageCategory struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
	Images   []string `yaml:"images"`
}

type imageCatalog struct {
	Categories []imageCategory `yaml:"categories"`
	Default    []string        `yaml:"default"`
}

// ImagePicker chooses fallback imagery for blocks that only describe the
// image they want. Categorization is deterministic; the pick within a
// category is pseudo-random. Safe for concurrent use.
type ImagePicker struct {
	catalog imageCatalog
	// keywords maps a folded keyword to the indexes of its categories.
	keywords map[string][]int

	mu  sync.Mutex
	rng *rand.Rand
}

// NewImagePicker loads the embedded catalog. A nil src seeds the picker
// from the clock.
func NewImagePicker(src rand.Source) (*ImagePicker, error) {
	var catalog imageCatalog
	if err := yaml.Unmarshal(imagesYAML, &catalog); err != nil {
		return nil, fmt.Errorf("schema load image catalog: %w", err)
	}
	if len(catalog.Default) == 0 {
		return nil, fmt.Errorf("schema load image catalog: default pool is empty")
	}

	p := &ImagePicker{catalog: catalog, keywords: make(map[string][]int)}
	for i, c := range catalog.Categories {
		if len(c.Images) == 0 {
			return nil, fmt.Errorf("schema load image catalog: category %q has no images", c.Name)
		}
		for _, kw := range c.Keywords {
			folded := slug.Generate(kw)
			p.keywords[folded] = append(p.keywords[folded], i)
		}
	}

	if src == nil {
		seed := uint64(time.Now().UnixNano())
		src = rand.NewPCG(seed, seed>>32|seed<<32)
	}
	p.rng = rand.New(src)
	return p, nil
}

// Category returns the category whose keywords occur most often as whole
// words in prompt, or DefaultCategory.
func (p *ImagePicker) Category(prompt string) string {
	scores := make([]int, len(p.catalog.Categories))
	for _, word := range strings.Split(slug.Generate(prompt), "-") {
		for _, i := range p.keywords[word] {
			scores[i]++
		}
	}

	best, bestScore := -1, 0
	for i, s := range scores {
		if s > bestScore {
			best, bestScore = i, s
		}
	}
	if best < 0 {
		return DefaultCategory
	}
	return p.catalog.Categories[best].Name
}

// Pick returns an image URL from the category's pool. Unknown categories
// use the default pool.
func (p *ImagePicker) Pick(category string) string {
	pool := p.pool(category)
	p.mu.Lock()
	i := p.rng.IntN(len(pool))
	p.mu.Unlock()
	return pool[i]
}

// Pool returns a copy of the category's image pool.
func (p *ImagePicker) Pool(category string) []string {
	return append([]string(nil), p.pool(category)...)
}

func (p *ImagePicker) pool(category string) []string {
	for _, c := range p.catalog.Categories {
		if c.Name == category {
			return c.Images
		}
	}
	return p.catalog.Default
}
