// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Storefront Contributors

package web

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"
	"time"

	"github.com/samber/oops"

	"github.com/storefront/storefront/internal/auth"
	"github.com/storefront/storefront/internal/catalog"
)

//go:embed templates/*.html
var templateFS embed.FS

// pages lists every content template; each is parsed together with layout.html.
var pages = []string{
	"about",
	"shop",
	"items",
	"item_add",
	"categories",
	"category_add",
	"login",
	"register",
	"user_history",
	"not_found",
	"error",
}

var templateFuncs = template.FuncMap{
	"formatDate": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.Format(catalog.MinDateLayout)
	},
	"formatDateTime": func(t time.Time) string {
		return t.Local().Format("2006-01-02 15:04:05")
	},
}

// view is the data passed to every template.
type view struct {
	Title       string
	ActiveRoute string
	Session     *auth.Session
	Message     string
	Error       string
	Success     string
	UserName    string
	Data        viewData
}

type viewData struct {
	Items           []catalog.Item
	Item            *catalog.Item
	Categories      []catalog.Category
	ViewingCategory string
}

type renderer struct {
	templates map[string]*template.Template
}

func newRenderer() (*renderer, error) {
	r := &renderer{templates: make(map[string]*template.Template, len(pages))}
	for _, name := range pages {
		t, err := template.New(name).Funcs(templateFuncs).
			ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, oops.Code("WEB_TEMPLATE_PARSE_FAILED").With("template", name).Wrap(err)
		}
		r.templates[name] = t
	}
	return r, nil
}

// render executes page into a buffer first so a template error never leaves
// a half-written response.
func (r *renderer) render(w http.ResponseWriter, status int, page string, v view) error {
	t, ok := r.templates[page]
	if !ok {
		return oops.Code("WEB_TEMPLATE_MISSING").With("template", page).Errorf("unknown template %q", page)
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", v); err != nil {
		return oops.Code("WEB_TEMPLATE_EXEC_FAILED").With("template", page).Wrap(err)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err //nolint:wrapcheck // client write errors are not actionable
}
