// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Storefront Contributors

// Package postgres implements catalog.Repository on PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/storefront/storefront/internal/catalog"
	"github.com/storefront/storefront/internal/store"
)

const itemColumns = `id, title, body, post_date, feature_image, published, price, category_id`

// Repository implements catalog.Repository.
type Repository struct {
	pool store.Pool
}

// NewRepository creates a new Repository.
func NewRepository(pool store.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListItems returns items matching filter, newest first.
func (r *Repository) ListItems(ctx context.Context, filter catalog.ItemFilter) ([]catalog.Item, error) {
	var (
		where []string
		args  []any
	)
	if filter.PublishedOnly {
		where = append(where, "published")
	}
	if !filter.CategoryID.IsZero() {
		args = append(args, filter.CategoryID.String())
		where = append(where, fmt.Sprintf("category_id = $%d", len(args)))
	}
	if !filter.MinDate.IsZero() {
		args = append(args, filter.MinDate)
		where = append(where, fmt.Sprintf("post_date >= $%d", len(args)))
	}

	query := `SELECT ` + itemColumns + ` FROM items`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY post_date DESC, id`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, oops.Code("ITEM_LIST_FAILED").
			With("operation", "query items").
			Wrap(err)
	}
	defer rows.Close()

	items := []catalog.Item{}
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("ITEM_LIST_FAILED").
			With("operation", "iterate items").
			Wrap(err)
	}
	return items, nil
}

// GetItem retrieves one item.
func (r *Repository) GetItem(ctx context.Context, id ulid.ULID) (*catalog.Item, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+itemColumns+` FROM items WHERE id = $1`, id.String())
	item, err := scanItem(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("ITEM_NOT_FOUND").With("id", id.String()).Wrap(catalog.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("ITEM_GET_FAILED").With("id", id.String()).Wrap(err)
	}
	return item, nil
}

// CreateItem stores an item. Empty strings and a zero category are stored as NULL.
func (r *Repository) CreateItem(ctx context.Context, item *catalog.Item) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO items (`+itemColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		item.ID.String(),
		nullText(item.Title),
		nullText(item.Body),
		item.PostDate,
		nullText(item.FeatureImage),
		item.Published,
		item.Price,
		nullID(item.CategoryID),
	)
	if err != nil {
		return oops.Code("ITEM_CREATE_FAILED").
			With("operation", "insert item").
			With("id", item.ID.String()).
			Wrap(err)
	}
	return nil
}

// DeleteItem removes an item.
func (r *Repository) DeleteItem(ctx context.Context, id ulid.ULID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM items WHERE id = $1`, id.String())
	if err != nil {
		return oops.Code("ITEM_DELETE_FAILED").With("id", id.String()).Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("ITEM_NOT_FOUND").With("id", id.String()).Wrap(catalog.ErrNotFound)
	}
	return nil
}

// ListCategories returns all categories by name.
func (r *Repository) ListCategories(ctx context.Context) ([]catalog.Category, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name FROM categories ORDER BY name, id`)
	if err != nil {
		return nil, oops.Code("CATEGORY_LIST_FAILED").Wrap(err)
	}
	defer rows.Close()

	categories := []catalog.Category{}
	for rows.Next() {
		var (
			idStr string
			name  pgtype.Text
		)
		if err := rows.Scan(&idStr, &name); err != nil {
			return nil, oops.Code("CATEGORY_SCAN_FAILED").Wrap(err)
		}
		id, err := ulid.Parse(idStr)
		if err != nil {
			return nil, oops.Code("CATEGORY_INVALID_ID").With("id", idStr).Wrap(err)
		}
		categories = append(categories, catalog.Category{ID: id, Name: name.String})
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("CATEGORY_LIST_FAILED").Wrap(err)
	}
	return categories, nil
}

// CreateCategory stores a category.
func (r *Repository) CreateCategory(ctx context.Context, category *catalog.Category) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO categories (id, name) VALUES ($1, $2)`,
		category.ID.String(), nullText(category.Name))
	if err != nil {
		return oops.Code("CATEGORY_CREATE_FAILED").
			With("id", category.ID.String()).
			Wrap(err)
	}
	return nil
}

// DeleteCategory removes a category. The foreign key sets category_id to
// NULL on its items.
func (r *Repository) DeleteCategory(ctx context.Context, id ulid.ULID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM categories WHERE id = $1`, id.String())
	if err != nil {
		return oops.Code("CATEGORY_DELETE_FAILED").With("id", id.String()).Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("CATEGORY_NOT_FOUND").With("id", id.String()).Wrap(catalog.ErrNotFound)
	}
	return nil
}

// scanItem scans a single row into an Item.
// Callers are responsible for handling pgx.ErrNoRows.
func scanItem(row pgx.Row) (*catalog.Item, error) {
	var (
		idStr        string
		title        pgtype.Text
		body         pgtype.Text
		featureImage pgtype.Text
		price        pgtype.Float8
		categoryID   pgtype.Text
		item         catalog.Item
	)
	err := row.Scan(&idStr, &title, &body, &item.PostDate, &featureImage, &item.Published, &price, &categoryID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err //nolint:wrapcheck // Callers wrap with context-specific info
		}
		return nil, oops.Code("ITEM_SCAN_FAILED").Wrap(err)
	}

	if item.ID, err = ulid.Parse(idStr); err != nil {
		return nil, oops.Code("ITEM_INVALID_ID").With("id", idStr).Wrap(err)
	}
	if categoryID.Valid {
		if item.CategoryID, err = ulid.Parse(categoryID.String); err != nil {
			return nil, oops.Code("ITEM_INVALID_CATEGORY").With("category_id", categoryID.String).Wrap(err)
		}
	}
	item.Title = title.String
	item.Body = body.String
	item.FeatureImage = featureImage.String
	item.Price = price.Float64
	return &item, nil
}

func nullText(s string) pgtype.Text {
	return pgtype.Text{String: s, Valid: s != ""}
}

func nullID(id ulid.ULID) pgtype.Text {
	if id.IsZero() {
		return pgtype.Text{}
	}
	return pgtype.Text{String: id.String(), Valid: true}
}

// Compile-time interface check.
var _ catalog.Repository = (*Repository)(nil)
