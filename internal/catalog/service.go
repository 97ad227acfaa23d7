// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Storefront Contributors

package catalog

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// MinDateLayout is the accepted format for ItemsByMinDate.
const MinDateLayout = "2006-01-02"

// NewItem carries the add-item form fields.
type NewItem struct {
	Title        string
	Body         string
	FeatureImage string
	Published    bool
	Price        float64
	CategoryID   string
}

// Service implements catalog queries and mutations on top of a Repository.
type Service struct {
	repo   Repository
	logger *slog.Logger
	now    func() time.Time
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) { s.logger = logger }
}

// WithClock overrides the time source used for post dates.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

// NewService creates a Service.
func NewService(repo Repository, opts ...ServiceOption) (*Service, error) {
	if repo == nil {
		return nil, oops.Code("CATALOG_INVALID_CONFIG").Errorf("catalog repository is required")
	}
	s := &Service{repo: repo, logger: slog.Default(), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		return nil, oops.Code("CATALOG_INVALID_CONFIG").Errorf("logger cannot be nil")
	}
	return s, nil
}

// AllItems returns every item.
func (s *Service) AllItems(ctx context.Context) ([]Item, error) {
	return s.listItems(ctx, ItemFilter{})
}

// PublishedItems returns items visible in the shop.
func (s *Service) PublishedItems(ctx context.Context) ([]Item, error) {
	return s.listItems(ctx, ItemFilter{PublishedOnly: true})
}

// PublishedItemsByCategory returns published items in one category.
func (s *Service) PublishedItemsByCategory(ctx context.Context, categoryID string) ([]Item, error) {
	id, err := parseID("category", categoryID)
	if err != nil {
		return nil, err
	}
	return s.listItems(ctx, ItemFilter{PublishedOnly: true, CategoryID: id})
}

// ItemsByCategory returns all items in one category.
func (s *Service) ItemsByCategory(ctx context.Context, categoryID string) ([]Item, error) {
	id, err := parseID("category", categoryID)
	if err != nil {
		return nil, err
	}
	return s.listItems(ctx, ItemFilter{CategoryID: id})
}

// ItemsByMinDate returns items posted on or after minDate (YYYY-MM-DD, UTC).
func (s *Service) ItemsByMinDate(ctx context.Context, minDate string) ([]Item, error) {
	t, err := time.Parse(MinDateLayout, strings.TrimSpace(minDate))
	if err != nil {
		return nil, oops.Code("CATALOG_INVALID_DATE").
			With("min_date", minDate).
			Wrapf(ErrInvalidInput, "expected %s", MinDateLayout)
	}
	return s.listItems(ctx, ItemFilter{MinDate: t})
}

func (s *Service) listItems(ctx context.Context, filter ItemFilter) ([]Item, error) {
	items, err := s.repo.ListItems(ctx, filter)
	if err != nil {
		return nil, oops.Code("CATALOG_LIST_FAILED").Wrap(err)
	}
	if len(items) == 0 {
		return nil, oops.Code("CATALOG_NO_RESULTS").Wrap(ErrNoResults)
	}
	return items, nil
}

// ItemByID returns one item.
func (s *Service) ItemByID(ctx context.Context, id string) (*Item, error) {
	itemID, err := parseID("item", id)
	if err != nil {
		return nil, err
	}
	item, err := s.repo.GetItem(ctx, itemID)
	if err != nil {
		return nil, oops.Code("CATALOG_GET_FAILED").With("item_id", id).Wrap(err)
	}
	return item, nil
}

// AddItem stores a new item posted now.
func (s *Service) AddItem(ctx context.Context, in NewItem) (*Item, error) {
	if in.Price < 0 {
		return nil, oops.Code("CATALOG_INVALID_PRICE").
			With("price", in.Price).
			Wrapf(ErrInvalidInput, "price cannot be negative")
	}
	item := &Item{
		ID:           ulid.Make(),
		Title:        strings.TrimSpace(in.Title),
		Body:         in.Body,
		PostDate:     s.now().UTC(),
		FeatureImage: in.FeatureImage,
		Published:    in.Published,
		Price:        in.Price,
	}
	if strings.TrimSpace(in.CategoryID) != "" {
		id, err := parseID("category", in.CategoryID)
		if err != nil {
			return nil, err
		}
		item.CategoryID = id
	}

	if err := s.repo.CreateItem(ctx, item); err != nil {
		return nil, oops.Code("CATALOG_ADD_ITEM_FAILED").With("title", item.Title).Wrap(err)
	}
	s.logger.InfoContext(ctx, "item added", "item_id", item.ID.String(), "published", item.Published)
	return item, nil
}

// DeleteItem removes an item.
func (s *Service) DeleteItem(ctx context.Context, id string) error {
	itemID, err := parseID("item", id)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteItem(ctx, itemID); err != nil {
		return oops.Code("CATALOG_DELETE_ITEM_FAILED").With("item_id", id).Wrap(err)
	}
	s.logger.InfoContext(ctx, "item deleted", "item_id", id)
	return nil
}

// Categories returns every category.
func (s *Service) Categories(ctx context.Context) ([]Category, error) {
	categories, err := s.repo.ListCategories(ctx)
	if err != nil {
		return nil, oops.Code("CATALOG_LIST_FAILED").Wrap(err)
	}
	if len(categories) == 0 {
		return nil, oops.Code("CATALOG_NO_RESULTS").Wrap(ErrNoResults)
	}
	return categories, nil
}

// AddCategory stores a new category.
func (s *Service) AddCategory(ctx context.Context, name string) (*Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, oops.Code("CATALOG_INVALID_CATEGORY").Wrapf(ErrInvalidInput, "category name is required")
	}
	category := &Category{ID: ulid.Make(), Name: name}
	if err := s.repo.CreateCategory(ctx, category); err != nil {
		return nil, oops.Code("CATALOG_ADD_CATEGORY_FAILED").With("name", name).Wrap(err)
	}
	s.logger.InfoContext(ctx, "category added", "category_id", category.ID.String(), "name", name)
	return category, nil
}

// DeleteCategory removes a category.
func (s *Service) DeleteCategory(ctx context.Context, id string) error {
	categoryID, err := parseID("category", id)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteCategory(ctx, categoryID); err != nil {
		return oops.Code("CATALOG_DELETE_CATEGORY_FAILED").With("category_id", id).Wrap(err)
	}
	s.logger.InfoContext(ctx, "category deleted", "category_id", id)
	return nil
}

// parseID parses a ULID path or query value. A malformed id cannot name an
// existing row, so it is reported as not found.
func parseID(kind, raw string) (ulid.ULID, error) {
	id, err := ulid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return ulid.ULID{}, oops.Code("CATALOG_INVALID_ID").
			With("kind", kind).
			With("id", raw).
			Wrap(ErrNotFound)
	}
	return id, nil
}
