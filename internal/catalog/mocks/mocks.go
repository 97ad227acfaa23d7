// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Storefront Contributors

// Package mocks provides testify mocks for the catalog interfaces.
package mocks

import (
	"context"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/mock"

	"github.com/storefront/storefront/internal/catalog"
)

// MockRepository is a mock of catalog.Repository.
type MockRepository struct {
	mock.Mock
}

// NewMockRepository creates a mock whose expectations are asserted on cleanup.
func NewMockRepository(t interface {
	mock.TestingT
	Cleanup(func())
},
) *MockRepository {
	m := &MockRepository{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// ListItems mocks catalog.Repository.ListItems.
func (m *MockRepository) ListItems(ctx context.Context, filter catalog.ItemFilter) ([]catalog.Item, error) {
	args := m.Called(ctx, filter)
	items, _ := args.Get(0).([]catalog.Item)
	return items, args.Error(1)
}

// GetItem mocks catalog.Repository.GetItem.
func (m *MockRepository) GetItem(ctx context.Context, id ulid.ULID) (*catalog.Item, error) {
	args := m.Called(ctx, id)
	item, _ := args.Get(0).(*catalog.Item)
	return item, args.Error(1)
}

// CreateItem mocks catalog.Repository.CreateItem.
func (m *MockRepository) CreateItem(ctx context.Context, item *catalog.Item) error {
	return m.Called(ctx, item).Error(0)
}

// DeleteItem mocks catalog.Repository.DeleteItem.
func (m *MockRepository) DeleteItem(ctx context.Context, id ulid.ULID) error {
	return m.Called(ctx, id).Error(0)
}

// ListCategories mocks catalog.Repository.ListCategories.
func (m *MockRepository) ListCategories(ctx context.Context) ([]catalog.Category, error) {
	args := m.Called(ctx)
	categories, _ := args.Get(0).([]catalog.Category)
	return categories, args.Error(1)
}

// CreateCategory mocks catalog.Repository.CreateCategory.
func (m *MockRepository) CreateCategory(ctx context.Context, category *catalog.Category) error {
	return m.Called(ctx, category).Error(0)
}

// DeleteCategory mocks catalog.Repository.DeleteCategory.
func (m *MockRepository) DeleteCategory(ctx context.Context, id ulid.ULID) error {
	return m.Called(ctx, id).Error(0)
}

var _ catalog.Repository = (*MockRepository)(nil)
