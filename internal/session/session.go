// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package session provides Valkey-backed visitor sessions for rendered
// sites. A visitor is identified by a random cookie; the carts they fill on
// each site are stored as JSON in Valkey with automatic TTL expiry.
package session

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"sitegen/internal/models"
	"sitegen/internal/store"
)

const (
	// CookieName is the name of the visitor cookie sent to the browser.
	CookieName = "sitegen_visitor"

	// DefaultTTL is how long an untouched cart lives in Valkey.
	DefaultTTL = 7 * 24 * time.Hour

	// keyPrefix namespaces cart keys in Valkey to avoid collisions.
	keyPrefix = "cart:"

	// idLength is the length of a visitor ID as produced by rand.Text.
	idLength = 26

	// maxTxRetries bounds optimistic retries when two requests update the
	// same cart at once.
	maxTxRetries = 5
)

// Visitor returns the visitor ID carried by the request cookie. Requests
// without a well-formed cookie get a new ID, set on the response.
func Visitor(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(CookieName); err == nil && validID(c.Value) {
		return c.Value
	}

	id := rand.Text()
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https",
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(DefaultTTL.Seconds()),
	})
	return id
}

func validID(id string) bool {
	if len(id) != idLength {
		return false
	}
	for _, c := range id {
		if !strings.ContainsRune("ABCDEFGHIJKLMNOPQRSTUVWXYZ234567", c) {
			return false
		}
	}
	return true
}

// Store keeps visitor carts in Valkey. It implements store.CartStore.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

var _ store.CartStore = (*Store)(nil)

// NewStore creates a cart store backed by the given Valkey client. A zero
// ttl selects DefaultTTL.
func NewStore(client *redis.Client, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{client: client, ttl: ttl}
}

func cartKey(siteID, visitor string) string {
	return keyPrefix + siteID + ":" + visitor
}

// Add merges item into the visitor's cart and returns the updated cart.
// Every write resets the TTL.
func (s *Store) Add(ctx context.Context, siteID, visitor string, item models.CartItem) ([]models.CartItem, error) {
	key := cartKey(siteID, visitor)

	var cart []models.CartItem
	update := func(tx *redis.Tx) error {
		current, err := load(ctx, tx, key)
		if err != nil {
			return err
		}
		cart = store.MergeItem(current, item)

		payload, err := json.Marshal(cart)
		if err != nil {
			return fmt.Errorf("cart marshal: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, s.ttl)
			return nil
		})
		return err
	}

	for range maxTxRetries {
		err := s.client.Watch(ctx, update, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("cart add: %w", err)
		}
		return cart, nil
	}
	return nil, fmt.Errorf("cart add: %w", redis.TxFailedErr)
}

// Items returns the visitor's cart, empty when none exists.
func (s *Store) Items(ctx context.Context, siteID, visitor string) ([]models.CartItem, error) {
	cart, err := load(ctx, s.client, cartKey(siteID, visitor))
	if err != nil {
		return nil, fmt.Errorf("cart get: %w", err)
	}
	if cart == nil {
		cart = []models.CartItem{}
	}
	return cart, nil
}

// getter is the read side shared by *redis.Client and *redis.Tx.
type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func load(ctx context.Context, c getter, key string) ([]models.CartItem, error) {
	payload, err := c.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil // Cart expired or doesn't exist
	}
	if err != nil {
		return nil, err
	}

	var cart []models.CartItem
	if err := json.Unmarshal(payload, &cart); err != nil {
		return nil, fmt.Errorf("cart unmarshal: %w", err)
	}
	return cart, nil
}
