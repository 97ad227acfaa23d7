// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Storefront Contributors

// Package catalog manages the storefront's items and categories.
package catalog

import (
	"context"
	"errors"
	"time"

	"github.com/oklog/ulid/v2"
)

// Sentinel errors. Repository and Service errors wrap these.
var (
	// ErrNoResults is returned when a listing matches nothing.
	ErrNoResults = errors.New("no results returned")

	// ErrNotFound is returned when a single item or category does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput is returned for malformed ids, dates or form values.
	ErrInvalidInput = errors.New("invalid input")
)

// Item is a product listed in the shop.
type Item struct {
	ID           ulid.ULID `json:"id"`
	Title        string    `json:"title"`
	Body         string    `json:"body"`
	PostDate     time.Time `json:"postDate"`
	FeatureImage string    `json:"featureImage"`
	Published    bool      `json:"published"`
	Price        float64   `json:"price"`
	CategoryID   ulid.ULID `json:"category"` // zero when uncategorised
}

// HasCategory reports whether the item belongs to a category.
func (i *Item) HasCategory() bool {
	return !i.CategoryID.IsZero()
}

// Category groups items.
type Category struct {
	ID   ulid.ULID `json:"id"`
	Name string    `json:"category"`
}

// ItemFilter narrows ListItems. Zero values mean "no constraint".
type ItemFilter struct {
	PublishedOnly bool
	CategoryID    ulid.ULID
	MinDate       time.Time
}

// Repository persists items and categories.
type Repository interface {
	// ListItems returns items matching filter ordered by post date. An empty
	// result is an empty slice, not an error.
	ListItems(ctx context.Context, filter ItemFilter) ([]Item, error)

	// GetItem returns one item or an error wrapping ErrNotFound.
	GetItem(ctx context.Context, id ulid.ULID) (*Item, error)

	CreateItem(ctx context.Context, item *Item) error

	// DeleteItem removes an item or returns an error wrapping ErrNotFound.
	DeleteItem(ctx context.Context, id ulid.ULID) error

	ListCategories(ctx context.Context) ([]Category, error)
	CreateCategory(ctx context.Context, category *Category) error

	// DeleteCategory removes a category; its items become uncategorised.
	DeleteCategory(ctx context.Context, id ulid.ULID) error
}
