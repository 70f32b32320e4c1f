// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"sitegen/internal/models"
)

// PostgresDocuments stores documents in the documents table with the
// normalized body in a JSONB column.
type PostgresDocuments struct {
	db *sql.DB
}

// NewPostgresDocuments creates a PostgresDocuments with the given database connection.
func NewPostgresDocuments(db *sql.DB) *PostgresDocuments {
	return &PostgresDocuments{db: db}
}

func (s *PostgresDocuments) Create(ctx context.Context, doc *models.SiteDocument, prompt string) (uuid.UUID, error) {
	if doc == nil {
		return uuid.Nil, fmt.Errorf("create document: nil document")
	}
	body, err := json.Marshal(doc)
	if err != nil {
		return uuid.Nil, fmt.Errorf("encode document: %w", err)
	}

	id := uuid.New()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO documents (id, source_version, title, prompt, body)
		VALUES ($1, $2, $3, $4, $5)
	`, id, doc.SourceVersion, doc.Meta.Title, prompt, body)
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert document: %w", err)
	}
	return id, nil
}

func (s *PostgresDocuments) Find(ctx context.Context, id uuid.UUID) (*models.SiteDocument, error) {
	var body []byte
	err := s.db.QueryRowContext(ctx, `SELECT body FROM documents WHERE id = $1`, id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find document: %w", err)
	}
	return decodeDocument(body)
}

func (s *PostgresDocuments) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count documents: %w", err)
	}
	return n, nil
}
