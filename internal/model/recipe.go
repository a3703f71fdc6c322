package model

import "time"

// Recipe is the aggregate root: the recipe row plus its ingredient lines and
// tag set, which are always written and read together.
type Recipe struct {
	ID          int64
	AuthorID    int64
	Author      User
	Name        string
	Image       string // public URL of the stored image
	Text        string
	CookingTime int // minutes, >= 1
	Tags        []Tag
	Ingredients []IngredientLine
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// IngredientLine is one row of a recipe's ingredient list. Name and Unit are
// filled from the referenced ingredient when the recipe is read.
type IngredientLine struct {
	IngredientID int64  `json:"id"`
	Name         string `json:"name"`
	Unit         string `json:"measurement_unit"`
	Amount       int    `json:"amount"`
}

// RecipeSummary is the minified recipe shape returned by membership and
// subscription endpoints.
type RecipeSummary struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Image       string `json:"image"`
	CookingTime int    `json:"cooking_time"`
}

// Summary returns the minified view of r.
func (r *Recipe) Summary() RecipeSummary {
	return RecipeSummary{
		ID:          r.ID,
		Name:        r.Name,
		Image:       r.Image,
		CookingTime: r.CookingTime,
	}
}

// MembershipKind names a per-user recipe set.
type MembershipKind string

const (
	Favorite     MembershipKind = "favorite"
	ShoppingCart MembershipKind = "shopping_cart"
)

// Valid reports whether k is one of the known kinds.
func (k MembershipKind) Valid() bool {
	return k == Favorite || k == ShoppingCart
}

// ShoppingItem is one aggregated line of a shopping list.
type ShoppingItem struct {
	Name   string
	Unit   string
	Amount int64
}
