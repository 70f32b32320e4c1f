// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package store persists normalized site documents and visitor carts.
// Documents live either in process memory or in PostgreSQL; both
// implementations satisfy the Documents interface.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"sitegen/internal/models"
)

// Documents is the persistence port for generated site documents.
type Documents interface {
	// Create stores doc under a new ID and returns it.
	Create(ctx context.Context, doc *models.SiteDocument, prompt string) (uuid.UUID, error)
	// Find returns the document with the given ID, or nil when none exists.
	Find(ctx context.Context, id uuid.UUID) (*models.SiteDocument, error)
	// Count returns the number of stored documents.
	Count(ctx context.Context) (int, error)
}

// MemoryDocuments keeps documents in process memory as encoded JSON so
// callers never share a mutable document.
type MemoryDocuments struct {
	mu   sync.RWMutex
	docs map[uuid.UUID][]byte
}

// NewMemoryDocuments creates an empty in-memory document store.
func NewMemoryDocuments() *MemoryDocuments {
	return &MemoryDocuments{docs: make(map[uuid.UUID][]byte)}
}

func (s *MemoryDocuments) Create(_ context.Context, doc *models.SiteDocument, _ string) (uuid.UUID, error) {
	if doc == nil {
		return uuid.Nil, fmt.Errorf("create document: nil document")
	}
	body, err := json.Marshal(doc)
	if err != nil {
		return uuid.Nil, fmt.Errorf("encode document: %w", err)
	}

	id := uuid.New()
	s.mu.Lock()
	s.docs[id] = body
	s.mu.Unlock()
	return id, nil
}

func (s *MemoryDocuments) Find(_ context.Context, id uuid.UUID) (*models.SiteDocument, error) {
	s.mu.RLock()
	body, ok := s.docs[id]
	s.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	return decodeDocument(body)
}

func (s *MemoryDocuments) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs), nil
}

func decodeDocument(body []byte) (*models.SiteDocument, error) {
	doc := &models.SiteDocument{}
	if err := json.Unmarshal(body, doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return doc, nil
}
