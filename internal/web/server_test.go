// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Storefront Contributors

package web_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"golang.org/x/crypto/bcrypt"

	"github.com/storefront/storefront/internal/auth"
	authmem "github.com/storefront/storefront/internal/auth/memory"
	"github.com/storefront/storefront/internal/catalog"
	catmem "github.com/storefront/storefront/internal/catalog/memory"
	"github.com/storefront/storefront/internal/observability"
	"github.com/storefront/storefront/internal/web"
	"github.com/storefront/storefront/pkg/errutil"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const cookieName = "storefront_session"

// clock is a settable time source shared by the auth service and guard.
type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// fakeUploader records uploads and returns a URL per file, or err.
type fakeUploader struct {
	err   error
	files []string
}

func (u *fakeUploader) Upload(_ context.Context, filename, _ string, body io.Reader) (string, error) {
	if u.err != nil {
		return "", u.err
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	u.files = append(u.files, filename+":"+string(data))
	return "https://cdn.example.test/items/" + filename, nil
}

type fixture struct {
	t        *testing.T
	handler  http.Handler
	clk      *clock
	users    *authmem.UserRepository
	sessions *authmem.SessionRepository
	catalog  *catalog.Service
	metrics  *observability.Metrics
	uploader *fakeUploader
}

type fixtureOption func(*web.Deps, *web.Options)

func withLimiter(l *auth.LoginLimiter) fixtureOption {
	return func(d *web.Deps, _ *web.Options) { d.Limiter = l }
}

func withProtectedPaths(patterns ...string) fixtureOption {
	return func(_ *web.Deps, o *web.Options) { o.ProtectedPaths = patterns }
}

func newFixture(t *testing.T, opts ...fixtureOption) *fixture {
	t.Helper()
	clk := &clock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	users := authmem.NewUserRepository()
	sessions := authmem.NewSessionRepository()

	svc, err := auth.NewService(users, sessions, auth.NewBcryptHasher(bcrypt.MinCost), auth.WithClock(clk.Now))
	require.NoError(t, err)
	guard, err := auth.NewGuard(sessions, auth.WithGuardClock(clk.Now))
	require.NoError(t, err)
	cat, err := catalog.NewService(catmem.NewRepository(), catalog.WithClock(clk.Now))
	require.NoError(t, err)

	metrics := observability.NewMetrics(prometheus.NewRegistry())
	uploader := &fakeUploader{}

	deps := web.Deps{
		Auth:     svc,
		Guard:    guard,
		Catalog:  cat,
		Uploader: uploader,
		Metrics:  metrics,
	}
	options := web.Options{
		CookieName:     cookieName,
		ProtectedPaths: []string{"/items", "/items/**", "/categories", "/categories/**", "/userHistory"},
	}
	for _, opt := range opts {
		opt(&deps, &options)
	}

	srv, err := web.New(deps, options)
	require.NoError(t, err)

	return &fixture{
		t:        t,
		handler:  srv.Handler(),
		clk:      clk,
		users:    users,
		sessions: sessions,
		catalog:  cat,
		metrics:  metrics,
		uploader: uploader,
	}
}

func (f *fixture) do(req *http.Request, session *http.Cookie) *httptest.ResponseRecorder {
	f.t.Helper()
	if session != nil {
		req.AddCookie(session)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) get(path string, session *http.Cookie) *httptest.ResponseRecorder {
	f.t.Helper()
	return f.do(httptest.NewRequest(http.MethodGet, path, nil), session)
}

func (f *fixture) postForm(path string, form url.Values, session *http.Cookie) *httptest.ResponseRecorder {
	f.t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", "test-browser/1.0")
	return f.do(req, session)
}

func (f *fixture) register(userName, password string) {
	f.t.Helper()
	rec := f.postForm("/register", url.Values{
		"userName":  {userName},
		"password":  {password},
		"password2": {password},
		"email":     {userName + "@example.test"},
	}, nil)
	require.Equal(f.t, http.StatusOK, rec.Code, rec.Body.String())
	require.Contains(f.t, rec.Body.String(), "User created")
}

func (f *fixture) login(userName, password string) *http.Cookie {
	f.t.Helper()
	rec := f.postForm("/login", url.Values{"userName": {userName}, "password": {password}}, nil)
	require.Equal(f.t, http.StatusSeeOther, rec.Code, rec.Body.String())
	require.Equal(f.t, "/items", rec.Header().Get("Location"))
	return sessionCookie(f.t, rec)
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == cookieName {
			return c
		}
	}
	t.Fatalf("response did not set %s", cookieName)
	return nil
}

func TestNew_Validation(t *testing.T) {
	_, err := web.New(web.Deps{}, web.Options{CookieName: cookieName})
	errutil.AssertErrorCode(t, err, "WEB_INVALID_CONFIG")

	users := authmem.NewUserRepository()
	sessions := authmem.NewSessionRepository()
	svc, err := auth.NewService(users, sessions, auth.NewBcryptHasher(bcrypt.MinCost))
	require.NoError(t, err)
	guard, err := auth.NewGuard(sessions)
	require.NoError(t, err)
	cat, err := catalog.NewService(catmem.NewRepository())
	require.NoError(t, err)
	deps := web.Deps{Auth: svc, Guard: guard, Catalog: cat}

	_, err = web.New(deps, web.Options{})
	errutil.AssertErrorCode(t, err, "WEB_INVALID_CONFIG")

	_, err = web.New(deps, web.Options{CookieName: cookieName, ProtectedPaths: []string{"/items/[a"}})
	errutil.AssertErrorCode(t, err, "WEB_INVALID_CONFIG")
	errutil.AssertErrorContext(t, err, "pattern", "/items/[a")
}

func TestPublicRoutes(t *testing.T) {
	f := newFixture(t)

	rec := f.get("/", nil)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/shop", rec.Header().Get("Location"))

	rec = f.get("/about", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<h1>About</h1>")

	rec = f.get("/shop", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "no results")

	rec = f.get("/no/such/page", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Page not found")
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.RequestsTotal.WithLabelValues("not_found", "404")))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.RequestsTotal.WithLabelValues("/shop", "200")))
}

func TestProtectedRoutes_DenyWithoutSession(t *testing.T) {
	f := newFixture(t)
	item, err := f.catalog.AddItem(context.Background(), catalog.NewItem{Title: "Lamp", Price: 12})
	require.NoError(t, err)

	for _, path := range []string{
		"/items",
		"/items/add",
		"/items/delete/" + item.ID.String(),
		"/categories",
		"/categories/add",
		"/userHistory",
	} {
		t.Run(path, func(t *testing.T) {
			rec := f.get(path, nil)
			assert.Equal(t, http.StatusFound, rec.Code)
			assert.Equal(t, "/login", rec.Header().Get("Location"))
		})
	}

	_, err = f.catalog.ItemByID(context.Background(), item.ID.String())
	assert.NoError(t, err, "denied request must not delete the item")

	rec := f.get("/items", &http.Cookie{Name: cookieName, Value: "forged-token"})
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
}

func TestProtectedRoutes_DenyWithoutConfiguredPaths(t *testing.T) {
	for name, patterns := range map[string][]string{
		"unrelated pattern": {"/admin/**"},
		"no patterns":       nil,
	} {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t, withProtectedPaths(patterns...))
			item, err := f.catalog.AddItem(context.Background(), catalog.NewItem{Title: "Lamp", Price: 12})
			require.NoError(t, err)
			cat, err := f.catalog.AddCategory(context.Background(), "Lighting")
			require.NoError(t, err)

			for _, path := range []string{
				"/items",
				"/items/add",
				"/items/delete/" + item.ID.String(),
				"/categories",
				"/categories/add",
				"/categories/delete/" + cat.ID.String(),
				"/userHistory",
			} {
				rec := f.get(path, nil)
				assert.Equal(t, http.StatusFound, rec.Code, path)
				assert.Equal(t, "/login", rec.Header().Get("Location"), path)
			}

			body, contentType := multipartItem(t, map[string]string{"title": "Chair", "price": "5"}, "", "")
			req := httptest.NewRequest(http.MethodPost, "/items/add", body)
			req.Header.Set("Content-Type", contentType)
			rec := f.do(req, nil)
			assert.Equal(t, http.StatusFound, rec.Code)

			rec = f.postForm("/categories/add", url.Values{"category": {"Seating"}}, nil)
			assert.Equal(t, http.StatusFound, rec.Code)

			_, err = f.catalog.ItemByID(context.Background(), item.ID.String())
			assert.NoError(t, err, "denied request must not delete the item")
			items, err := f.catalog.AllItems(context.Background())
			require.NoError(t, err)
			assert.Len(t, items, 1)
			cats, err := f.catalog.Categories(context.Background())
			require.NoError(t, err)
			assert.Len(t, cats, 1)

			rec = f.get("/shop", nil)
			assert.Equal(t, http.StatusOK, rec.Code, "public routes stay public")

			f.register("alice", "p1")
			session := f.login("alice", "p1")
			rec = f.get("/items", session)
			assert.Equal(t, http.StatusOK, rec.Code)
			rec = f.get("/userHistory", session)
			assert.Equal(t, http.StatusOK, rec.Code)
		})
	}
}

func TestRegisterLoginAndHistory(t *testing.T) {
	f := newFixture(t)
	f.register("alice", "p1")

	session := f.login("alice", "p1")
	assert.True(t, session.HttpOnly)
	assert.Equal(t, "/", session.Path)

	rec := f.get("/items", session)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "alice")

	rec = f.get("/userHistory", session)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "test-browser/1.0")
	assert.Contains(t, rec.Body.String(), "alice@example.test")

	user, err := f.users.GetByUserName(context.Background(), "alice")
	require.NoError(t, err)
	assert.Len(t, user.LoginHistory, 1)

	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.AuthAttemptsTotal.WithLabelValues("register", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.AuthAttemptsTotal.WithLabelValues("login", "ok")))
}

func TestLogin_FailuresShareOneMessage(t *testing.T) {
	f := newFixture(t)
	f.register("alice", "p1")

	tests := []struct {
		name     string
		userName string
		password string
		kind     auth.Kind
	}{
		{name: "wrong password", userName: "alice", password: "wrong", kind: auth.KindInvalidCredentials},
		{name: "unknown user", userName: "mallory", password: "p1", kind: auth.KindUserNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.postForm("/login", url.Values{"userName": {tt.userName}, "password": {tt.password}}, nil)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			body := rec.Body.String()
			assert.Contains(t, body, "Invalid user name or password")
			assert.Contains(t, body, `value="`+tt.userName+`"`, "user name is echoed")
			assert.Empty(t, rec.Result().Cookies())
			assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.AuthAttemptsTotal.WithLabelValues("login", string(tt.kind))))
		})
	}

	user, err := f.users.GetByUserName(context.Background(), "alice")
	require.NoError(t, err)
	assert.Empty(t, user.LoginHistory, "failed logins never touch the history")
}

func TestRegister_Failures(t *testing.T) {
	f := newFixture(t)
	f.register("alice", "p1")

	tests := []struct {
		name       string
		form       url.Values
		wantStatus int
		wantText   string
	}{
		{
			name:       "password mismatch",
			form:       url.Values{"userName": {"bob"}, "password": {"p1"}, "password2": {"p2"}},
			wantStatus: http.StatusBadRequest,
			wantText:   "Passwords do not match",
		},
		{
			name:       "name taken",
			form:       url.Values{"userName": {"alice"}, "password": {"other"}, "password2": {"other"}},
			wantStatus: http.StatusConflict,
			wantText:   "User Name already taken",
		},
		{
			name:       "overlong name",
			form:       url.Values{"userName": {strings.Repeat("a", auth.MaxUserNameLength+1)}, "password": {"p1"}, "password2": {"p1"}},
			wantStatus: http.StatusBadRequest,
			wantText:   "User Name must be at most 128 characters",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.postForm("/register", tt.form, nil)
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantText)
			assert.Contains(t, rec.Body.String(), `value="`+tt.form.Get("userName")+`"`)
		})
	}

	// The original account still logs in with its own password.
	f.login("alice", "p1")
}

func TestLogout_RevokesSession(t *testing.T) {
	f := newFixture(t)
	f.register("alice", "p1")
	session := f.login("alice", "p1")

	rec := f.get("/logout", session)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
	cleared := sessionCookie(t, rec)
	assert.Negative(t, cleared.MaxAge)
	assert.Equal(t, 0, f.sessions.Len())

	rec = f.get("/items", session)
	assert.Equal(t, http.StatusFound, rec.Code, "old cookie is useless well before expiry")
	assert.Equal(t, "/login", rec.Header().Get("Location"))
}

func TestSession_SlidingExpiry(t *testing.T) {
	f := newFixture(t)
	f.register("alice", "p1")
	session := f.login("alice", "p1")

	// 30s left: the request pushes expiry to now+1m.
	f.clk.Advance(90 * time.Second)
	require.Equal(t, http.StatusOK, f.get("/items", session).Code)

	// Past the original 2m, still inside the extension.
	f.clk.Advance(40 * time.Second)
	require.Equal(t, http.StatusOK, f.get("/items", session).Code)

	f.clk.Advance(2 * time.Minute)
	rec := f.get("/items", session)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
	assert.Equal(t, 0, f.sessions.Len(), "expired session is removed")
}

func TestLogin_Throttled(t *testing.T) {
	f := newFixture(t, withLimiter(auth.NewLoginLimiter(0.001, 2)))
	f.register("alice", "p1")

	form := url.Values{"userName": {"alice"}, "password": {"wrong"}}
	assert.Equal(t, http.StatusUnauthorized, f.postForm("/login", form, nil).Code)
	assert.Equal(t, http.StatusUnauthorized, f.postForm("/login", form, nil).Code)

	rec := f.postForm("/login", url.Values{"userName": {"alice"}, "password": {"p1"}}, nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, rec.Body.String(), "Too many login attempts")
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.AuthAttemptsTotal.WithLabelValues("login", "throttled")))
}

func multipartItem(t *testing.T, fields map[string]string, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if filename != "" {
		fw, err := mw.CreateFormFile("featureImage", filename)
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &body, mw.FormDataContentType()
}

func TestAddItem_WithUpload(t *testing.T) {
	f := newFixture(t)
	f.register("alice", "p1")
	session := f.login("alice", "p1")

	body, contentType := multipartItem(t, map[string]string{
		"title":     "Desk lamp",
		"body":      "Brass, works",
		"price":     "24.50",
		"published": "on",
	}, "lamp.jpg", "jpegbytes")
	req := httptest.NewRequest(http.MethodPost, "/items/add", body)
	req.Header.Set("Content-Type", contentType)

	rec := f.do(req, session)
	require.Equal(t, http.StatusSeeOther, rec.Code, rec.Body.String())
	assert.Equal(t, "/items", rec.Header().Get("Location"))
	assert.Equal(t, []string{"lamp.jpg:jpegbytes"}, f.uploader.files)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.UploadsTotal.WithLabelValues("ok")))

	items, err := f.catalog.PublishedItems(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Desk lamp", items[0].Title)
	assert.Equal(t, 24.5, items[0].Price)
	assert.Equal(t, "https://cdn.example.test/items/lamp.jpg", items[0].FeatureImage)

	rec = f.get("/shop", nil)
	assert.Contains(t, rec.Body.String(), "Desk lamp")

	rec = f.get("/item/"+items[0].ID.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), `"title":"Desk lamp"`)
}

func TestAddItem_WithoutImage(t *testing.T) {
	f := newFixture(t)
	f.register("alice", "p1")
	session := f.login("alice", "p1")

	body, contentType := multipartItem(t, map[string]string{"title": "Chair", "price": "5"}, "", "")
	req := httptest.NewRequest(http.MethodPost, "/items/add", body)
	req.Header.Set("Content-Type", contentType)

	rec := f.do(req, session)
	require.Equal(t, http.StatusSeeOther, rec.Code, rec.Body.String())
	assert.Empty(t, f.uploader.files)

	items, err := f.catalog.AllItems(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.False(t, items[0].Published)
	assert.Empty(t, items[0].FeatureImage)

	rec = f.get("/shop", nil)
	assert.NotContains(t, rec.Body.String(), "Chair", "unpublished items stay out of the shop")
}

func TestAddItem_Failures(t *testing.T) {
	f := newFixture(t)
	f.register("alice", "p1")
	session := f.login("alice", "p1")

	t.Run("upload error", func(t *testing.T) {
		f.uploader.err = errors.New("bucket unavailable")
		defer func() { f.uploader.err = nil }()

		body, contentType := multipartItem(t, map[string]string{"title": "Desk"}, "desk.png", "png")
		req := httptest.NewRequest(http.MethodPost, "/items/add", body)
		req.Header.Set("Content-Type", contentType)

		rec := f.do(req, session)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Contains(t, rec.Body.String(), "Upload Error")
		assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.UploadsTotal.WithLabelValues("error")))
	})

	t.Run("bad price", func(t *testing.T) {
		body, contentType := multipartItem(t, map[string]string{"title": "Desk", "price": "cheap"}, "", "")
		req := httptest.NewRequest(http.MethodPost, "/items/add", body)
		req.Header.Set("Content-Type", contentType)

		rec := f.do(req, session)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "Price must be a number")
	})

	t.Run("negative price", func(t *testing.T) {
		body, contentType := multipartItem(t, map[string]string{"title": "Desk", "price": "-1"}, "", "")
		req := httptest.NewRequest(http.MethodPost, "/items/add", body)
		req.Header.Set("Content-Type", contentType)

		rec := f.do(req, session)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	_, err := f.catalog.AllItems(context.Background())
	assert.ErrorIs(t, err, catalog.ErrNoResults, "failed submissions store nothing")
}

func TestItemJSON_NotFound(t *testing.T) {
	f := newFixture(t)

	rec := f.get("/item/not-a-ulid", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"message":"item not found"}`, rec.Body.String())
}

func TestCategories_AddListDelete(t *testing.T) {
	f := newFixture(t)
	f.register("alice", "p1")
	session := f.login("alice", "p1")

	rec := f.get("/categories", session)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "no results")

	rec = f.postForm("/categories/add", url.Values{"category": {"Furniture"}}, session)
	require.Equal(t, http.StatusSeeOther, rec.Code)

	rec = f.postForm("/categories/add", url.Values{"category": {"  "}}, session)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	categories, err := f.catalog.Categories(context.Background())
	require.NoError(t, err)
	require.Len(t, categories, 1)

	rec = f.get("/categories", session)
	assert.Contains(t, rec.Body.String(), "Furniture")

	rec = f.get("/categories/delete/"+categories[0].ID.String(), session)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/categories", rec.Header().Get("Location"))

	rec = f.get("/categories/delete/"+categories[0].ID.String(), session)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Category not found")
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.RequestsTotal.WithLabelValues("/categories/delete/{id}", "404")))
}

func TestItems_Filters(t *testing.T) {
	f := newFixture(t)
	f.register("alice", "p1")
	session := f.login("alice", "p1")
	ctx := context.Background()

	furniture, err := f.catalog.AddCategory(ctx, "Furniture")
	require.NoError(t, err)
	_, err = f.catalog.AddItem(ctx, catalog.NewItem{Title: "Sofa", CategoryID: furniture.ID.String(), Published: true})
	require.NoError(t, err)
	_, err = f.catalog.AddItem(ctx, catalog.NewItem{Title: "Kettle", Published: true})
	require.NoError(t, err)

	rec := f.get("/items?category="+furniture.ID.String(), session)
	assert.Contains(t, rec.Body.String(), "Sofa")
	assert.NotContains(t, rec.Body.String(), "Kettle")

	rec = f.get("/items?minDate=2026-03-02", session)
	assert.Contains(t, rec.Body.String(), "no results")

	rec = f.get("/items?minDate=yesterday", session)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "no results")

	rec = f.get("/shop?category="+furniture.ID.String(), nil)
	assert.Contains(t, rec.Body.String(), "Sofa")
	assert.NotContains(t, rec.Body.String(), "Kettle")
}

func TestServer_StartStop(t *testing.T) {
	users := authmem.NewUserRepository()
	sessions := authmem.NewSessionRepository()
	svc, err := auth.NewService(users, sessions, auth.NewBcryptHasher(bcrypt.MinCost))
	require.NoError(t, err)
	guard, err := auth.NewGuard(sessions)
	require.NoError(t, err)
	cat, err := catalog.NewService(catmem.NewRepository())
	require.NoError(t, err)

	srv, err := web.New(web.Deps{Auth: svc, Guard: guard, Catalog: cat}, web.Options{
		Addr:       "127.0.0.1:0",
		CookieName: cookieName,
	})
	require.NoError(t, err)

	errCh, err := srv.Start()
	require.NoError(t, err)
	_, err = srv.Start()
	errutil.AssertErrorCode(t, err, "WEB_ALREADY_RUNNING")

	client := &http.Client{
		Transport:     &http.Transport{DisableKeepAlives: true},
		CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse },
	}
	resp, err := client.Get("http://" + srv.Addr() + "/")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusFound, resp.StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, srv.Stop(ctx))
	require.NoError(t, srv.Stop(ctx), "second stop is a no-op")

	select {
	case err, ok := <-errCh:
		assert.False(t, ok && err != nil, "unexpected serve error: %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("error channel not closed after stop")
	}
}
