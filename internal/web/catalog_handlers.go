// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Storefront Contributors

package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/storefront/storefront/internal/catalog"
	"github.com/storefront/storefront/pkg/errutil"
)

const noResults = "no results"

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/shop", http.StatusFound)
}

func (s *Server) handleAbout(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "about", s.page(r, "About"))
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusNotFound, "not_found", s.page(r, "Not found"))
}

// logListError logs unexpected listing failures. An empty result is normal.
func (s *Server) logListError(r *http.Request, msg string, err error) {
	if !errors.Is(err, catalog.ErrNoResults) {
		errutil.LogErrorContext(r.Context(), s.logger, msg, err)
	}
}

func (s *Server) shopCategories(r *http.Request) []catalog.Category {
	categories, err := s.deps.Catalog.Categories(r.Context())
	if err != nil {
		s.logListError(r, "list categories failed", err)
		return nil
	}
	return categories
}

func (s *Server) handleShop(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	v := s.page(r, "Shop")
	v.Data.ViewingCategory = r.URL.Query().Get("category")

	var (
		items []catalog.Item
		err   error
	)
	if v.Data.ViewingCategory != "" {
		items, err = s.deps.Catalog.PublishedItemsByCategory(ctx, v.Data.ViewingCategory)
	} else {
		items, err = s.deps.Catalog.PublishedItems(ctx)
	}
	if err != nil {
		s.logListError(r, "list published items failed", err)
		v.Message = noResults
	}
	v.Data.Items = items
	v.Data.Categories = s.shopCategories(r)
	s.render(w, r, http.StatusOK, "shop", v)
}

func (s *Server) handleShopItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	v := s.page(r, "Shop")

	item, err := s.deps.Catalog.ItemByID(ctx, mux.Vars(r)["id"])
	if err != nil || !item.Published {
		if err != nil && !errors.Is(err, catalog.ErrNotFound) {
			errutil.LogErrorContext(ctx, s.logger, "get item failed", err)
		}
		v.Message = noResults
		v.Data.Categories = s.shopCategories(r)
		s.render(w, r, http.StatusNotFound, "shop", v)
		return
	}
	v.Title = item.Title
	v.Data.Item = item

	items, err := s.deps.Catalog.PublishedItems(ctx)
	if err != nil {
		s.logListError(r, "list published items failed", err)
	}
	v.Data.Items = items
	v.Data.Categories = s.shopCategories(r)
	s.render(w, r, http.StatusOK, "shop", v)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck // client may have gone away
	json.NewEncoder(w).Encode(body)
}

func (s *Server) handleItemJSON(w http.ResponseWriter, r *http.Request) {
	item, err := s.deps.Catalog.ItemByID(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"message": "item not found"})
			return
		}
		errutil.LogErrorContext(r.Context(), s.logger, "get item failed", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "unable to load item"})
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (s *Server) handleItems(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	v := s.page(r, "Items")
	q := r.URL.Query()

	var (
		items []catalog.Item
		err   error
	)
	switch {
	case q.Get("category") != "":
		items, err = s.deps.Catalog.ItemsByCategory(ctx, q.Get("category"))
	case q.Get("minDate") != "":
		items, err = s.deps.Catalog.ItemsByMinDate(ctx, q.Get("minDate"))
	default:
		items, err = s.deps.Catalog.AllItems(ctx)
	}
	if err != nil {
		if !errors.Is(err, catalog.ErrInvalidInput) && !errors.Is(err, catalog.ErrNotFound) {
			s.logListError(r, "list items failed", err)
		}
		v.Message = noResults
	}
	v.Data.Items = items
	s.render(w, r, http.StatusOK, "items", v)
}

func (s *Server) handleAddItemForm(w http.ResponseWriter, r *http.Request) {
	v := s.page(r, "Add item")
	v.Data.Categories = s.shopCategories(r)
	s.render(w, r, http.StatusOK, "item_add", v)
}

func (s *Server) handleAddItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	v := s.page(r, "Add item")

	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseMultipartForm(maxFormBytes); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		v.Error = "The upload is too large or malformed"
		v.Data.Categories = s.shopCategories(r)
		s.render(w, r, http.StatusBadRequest, "item_add", v)
		return
	}

	imageURL, err := s.uploadFeatureImage(r)
	if err != nil {
		s.deps.Metrics.Upload("error")
		errutil.LogErrorContext(ctx, s.logger, "feature image upload failed", err)
		v.Error = "Upload Error"
		s.render(w, r, http.StatusInternalServerError, "error", v)
		return
	}
	if imageURL != "" {
		s.deps.Metrics.Upload("ok")
	}

	price, err := parsePrice(r.FormValue("price"))
	if err != nil {
		v.Error = "Price must be a number"
		v.Data.Categories = s.shopCategories(r)
		s.render(w, r, http.StatusBadRequest, "item_add", v)
		return
	}

	_, err = s.deps.Catalog.AddItem(ctx, catalog.NewItem{
		Title:        r.FormValue("title"),
		Body:         r.FormValue("body"),
		FeatureImage: imageURL,
		Published:    parseCheckbox(r.FormValue("published")),
		Price:        price,
		CategoryID:   r.FormValue("category"),
	})
	if err != nil {
		if errors.Is(err, catalog.ErrInvalidInput) || errors.Is(err, catalog.ErrNotFound) {
			v.Error = "Item Creation Error: check the title, price and category"
			v.Data.Categories = s.shopCategories(r)
			s.render(w, r, http.StatusBadRequest, "item_add", v)
			return
		}
		errutil.LogErrorContext(ctx, s.logger, "add item failed", err)
		v.Error = "Item Creation Error"
		s.render(w, r, http.StatusInternalServerError, "error", v)
		return
	}
	http.Redirect(w, r, "/items", http.StatusSeeOther)
}

// uploadFeatureImage stores the optional featureImage part and returns its URL.
func (s *Server) uploadFeatureImage(r *http.Request) (string, error) {
	file, header, err := r.FormFile("featureImage")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return "", nil
		}
		return "", err //nolint:wrapcheck // logged by the caller with context
	}
	defer func() { _ = file.Close() }()
	return s.deps.Uploader.Upload(r.Context(), header.Filename, header.Header.Get("Content-Type"), file) //nolint:wrapcheck // oops error from media
}

func parsePrice(raw string) (float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	return strconv.ParseFloat(raw, 64) //nolint:wrapcheck // mapped to a form message
}

func parseCheckbox(raw string) bool {
	switch strings.ToLower(raw) {
	case "on", "true", "1", "yes":
		return true
	default:
		return false
	}
}

func (s *Server) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Catalog.DeleteItem(r.Context(), mux.Vars(r)["id"]); err != nil {
		s.deleteFailed(w, r, "Unable to Remove Item / Item not found", err)
		return
	}
	http.Redirect(w, r, "/items", http.StatusFound)
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	v := s.page(r, "Categories")
	categories, err := s.deps.Catalog.Categories(r.Context())
	if err != nil {
		s.logListError(r, "list categories failed", err)
		v.Message = noResults
	}
	v.Data.Categories = categories
	s.render(w, r, http.StatusOK, "categories", v)
}

func (s *Server) handleAddCategoryForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "category_add", s.page(r, "Add category"))
}

func (s *Server) handleAddCategory(w http.ResponseWriter, r *http.Request) {
	v := s.page(r, "Add category")
	if _, err := s.deps.Catalog.AddCategory(r.Context(), r.FormValue("category")); err != nil {
		if errors.Is(err, catalog.ErrInvalidInput) {
			v.Error = "Category name is required"
			s.render(w, r, http.StatusBadRequest, "category_add", v)
			return
		}
		errutil.LogErrorContext(r.Context(), s.logger, "add category failed", err)
		v.Error = "Unable to Add Category"
		s.render(w, r, http.StatusInternalServerError, "error", v)
		return
	}
	http.Redirect(w, r, "/categories", http.StatusSeeOther)
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Catalog.DeleteCategory(r.Context(), mux.Vars(r)["id"]); err != nil {
		s.deleteFailed(w, r, "Unable to Remove Category / Category not found", err)
		return
	}
	http.Redirect(w, r, "/categories", http.StatusFound)
}

func (s *Server) deleteFailed(w http.ResponseWriter, r *http.Request, message string, err error) {
	status := http.StatusNotFound
	if !errors.Is(err, catalog.ErrNotFound) {
		status = http.StatusInternalServerError
		errutil.LogErrorContext(r.Context(), s.logger, "delete failed", err)
	}
	v := s.page(r, "Error")
	v.Error = message
	s.render(w, r, status, "error", v)
}
