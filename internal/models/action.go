// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

// ActionType names what a rendered control asks the page controller to do.
type ActionType string

const (
	ActionNavigate  ActionType = "NAVIGATE"
	ActionAddToCart ActionType = "ADD_TO_CART"
)

// Action is emitted by a block renderer for one interactive control. The
// rendered markup references it by ID.
type Action struct {
	ID      string         `json:"id"`
	Type    ActionType     `json:"type"`
	Payload map[string]any `json:"payload,omitempty"`
}

// CartItem is one product line in a visitor's cart.
type CartItem struct {
	Name     string `json:"name"`
	Price    string `json:"price,omitempty"`
	Quantity int    `json:"quantity"`
}
