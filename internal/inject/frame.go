// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package inject

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sync"

	"golang.org/x/net/html"
)

// ErrInaccessible is returned by a Frame whose document cannot be reached,
// for example because it was detached or never finished loading.
var ErrInaccessible = errors.New("inject: frame document is not accessible")

// Frame gives controlled access to the document of a loaded template.
type Frame interface {
	// Access runs fn with exclusive access to the document root, or
	// returns ErrInaccessible.
	Access(fn func(doc *html.Node)) error
}

// HTMLFrame is a Frame over a parsed HTML document held in memory.
type HTMLFrame struct {
	mu       sync.Mutex
	doc      *html.Node
	detached bool
}

// ParseFrame parses r into a frame.
func ParseFrame(r io.Reader) (*HTMLFrame, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parsing template: %w", err)
	}
	return &HTMLFrame{doc: doc}, nil
}

// Access implements Frame.
func (f *HTMLFrame) Access(fn func(doc *html.Node)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.detached || f.doc == nil {
		return ErrInaccessible
	}
	fn(f.doc)
	return nil
}

// Detach makes every later Access fail.
func (f *HTMLFrame) Detach() {
	f.mu.Lock()
	f.detached = true
	f.mu.Unlock()
}

// Render serializes the current document.
func (f *HTMLFrame) Render() ([]byte, error) {
	var (
		buf  bytes.Buffer
		rerr error
	)
	if err := f.Access(func(doc *html.Node) { rerr = html.Render(&buf, doc) }); err != nil {
		return nil, err
	}
	if rerr != nil {
		return nil, fmt.Errorf("rendering document: %w", rerr)
	}
	return buf.Bytes(), nil
}
