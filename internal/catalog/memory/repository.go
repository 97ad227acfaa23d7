// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Storefront Contributors

// Package memory provides an in-process catalog.Repository.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/storefront/storefront/internal/catalog"
)

// Repository implements catalog.Repository in memory.
type Repository struct {
	mu         sync.RWMutex
	items      map[ulid.ULID]catalog.Item
	categories map[ulid.ULID]catalog.Category
}

// NewRepository creates an empty Repository.
func NewRepository() *Repository {
	return &Repository{
		items:      make(map[ulid.ULID]catalog.Item),
		categories: make(map[ulid.ULID]catalog.Category),
	}
}

// ListItems returns items matching filter, newest first.
func (r *Repository) ListItems(_ context.Context, filter catalog.ItemFilter) ([]catalog.Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	items := []catalog.Item{}
	for _, item := range r.items {
		if filter.PublishedOnly && !item.Published {
			continue
		}
		if !filter.CategoryID.IsZero() && item.CategoryID != filter.CategoryID {
			continue
		}
		if !filter.MinDate.IsZero() && item.PostDate.Before(filter.MinDate) {
			continue
		}
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool {
		if !items[i].PostDate.Equal(items[j].PostDate) {
			return items[i].PostDate.After(items[j].PostDate)
		}
		return items[i].ID.Compare(items[j].ID) < 0
	})
	return items, nil
}

// GetItem retrieves one item.
func (r *Repository) GetItem(_ context.Context, id ulid.ULID) (*catalog.Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.items[id]
	if !ok {
		return nil, oops.Code("ITEM_NOT_FOUND").With("id", id.String()).Wrap(catalog.ErrNotFound)
	}
	return &item, nil
}

// CreateItem stores an item.
func (r *Repository) CreateItem(_ context.Context, item *catalog.Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.items[item.ID]; exists {
		return oops.Code("ITEM_CREATE_FAILED").With("id", item.ID.String()).Errorf("item already exists")
	}
	if item.HasCategory() {
		if _, ok := r.categories[item.CategoryID]; !ok {
			return oops.Code("ITEM_CREATE_FAILED").
				With("category_id", item.CategoryID.String()).
				Errorf("unknown category")
		}
	}
	r.items[item.ID] = *item
	return nil
}

// DeleteItem removes an item.
func (r *Repository) DeleteItem(_ context.Context, id ulid.ULID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return oops.Code("ITEM_NOT_FOUND").With("id", id.String()).Wrap(catalog.ErrNotFound)
	}
	delete(r.items, id)
	return nil
}

// ListCategories returns all categories by name.
func (r *Repository) ListCategories(_ context.Context) ([]catalog.Category, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	categories := make([]catalog.Category, 0, len(r.categories))
	for _, c := range r.categories {
		categories = append(categories, c)
	}
	sort.Slice(categories, func(i, j int) bool {
		if categories[i].Name != categories[j].Name {
			return categories[i].Name < categories[j].Name
		}
		return categories[i].ID.Compare(categories[j].ID) < 0
	})
	return categories, nil
}

// CreateCategory stores a category.
func (r *Repository) CreateCategory(_ context.Context, category *catalog.Category) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.categories[category.ID]; exists {
		return oops.Code("CATEGORY_CREATE_FAILED").With("id", category.ID.String()).Errorf("category already exists")
	}
	r.categories[category.ID] = *category
	return nil
}

// DeleteCategory removes a category and uncategorises its items.
func (r *Repository) DeleteCategory(_ context.Context, id ulid.ULID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.categories[id]; !ok {
		return oops.Code("CATEGORY_NOT_FOUND").With("id", id.String()).Wrap(catalog.ErrNotFound)
	}
	delete(r.categories, id)
	for itemID, item := range r.items {
		if item.CategoryID == id {
			item.CategoryID = ulid.ULID{}
			r.items[itemID] = item
		}
	}
	return nil
}

// Compile-time interface check.
var _ catalog.Repository = (*Repository)(nil)
