// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"sync"

	"sitegen/internal/models"
)

// CartStore keeps one cart per site and visitor.
type CartStore interface {
	// Add puts item into the cart and returns the updated cart.
	Add(ctx context.Context, siteID, visitor string, item models.CartItem) ([]models.CartItem, error)
	// Items returns the cart, empty when none exists.
	Items(ctx context.Context, siteID, visitor string) ([]models.CartItem, error)
}

// MergeItem adds item to cart, merging with an existing line of the same
// name. A non-positive quantity counts as one unit. cart is not modified.
func MergeItem(cart []models.CartItem, item models.CartItem) []models.CartItem {
	if item.Quantity <= 0 {
		item.Quantity = 1
	}
	out := append([]models.CartItem(nil), cart...)
	for i := range out {
		if out[i].Name == item.Name {
			out[i].Quantity += item.Quantity
			return out
		}
	}
	return append(out, item)
}

// Carts holds carts in process memory.
type Carts struct {
	mu    sync.Mutex
	carts map[string][]models.CartItem
}

var _ CartStore = (*Carts)(nil)

// NewCarts creates an empty cart store.
func NewCarts() *Carts {
	return &Carts{carts: make(map[string][]models.CartItem)}
}

func cartKey(siteID, visitor string) string { return siteID + "|" + visitor }

func (c *Carts) Add(_ context.Context, siteID, visitor string, item models.CartItem) ([]models.CartItem, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := cartKey(siteID, visitor)
	cart := MergeItem(c.carts[key], item)
	c.carts[key] = cart
	return append([]models.CartItem(nil), cart...), nil
}

func (c *Carts) Items(_ context.Context, siteID, visitor string) ([]models.CartItem, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]models.CartItem{}, c.carts[cartKey(siteID, visitor)]...), nil
}
