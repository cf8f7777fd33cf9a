package web

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/erazemk/pekarna/internal/config"
	"github.com/erazemk/pekarna/internal/db"
	"github.com/erazemk/pekarna/internal/devapi"
	"github.com/erazemk/pekarna/internal/entity"
	"github.com/erazemk/pekarna/internal/model"
	"github.com/erazemk/pekarna/internal/store"
)

type apiCall struct {
	Method string
	Path   string
	Body   map[string]any
}

// apiRecorder sits in front of the development API and records every call
// the back-office makes.
type apiRecorder struct {
	next  http.Handler
	mu    sync.Mutex
	calls []apiCall
}

func (a *apiRecorder) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	data, _ := io.ReadAll(r.Body)
	r.Body = io.NopCloser(bytes.NewReader(data))

	call := apiCall{Method: r.Method, Path: r.URL.Path}
	if len(data) > 0 {
		json.Unmarshal(data, &call.Body)
	}
	a.mu.Lock()
	a.calls = append(a.calls, call)
	a.mu.Unlock()

	a.next.ServeHTTP(w, r)
}

func (a *apiRecorder) reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls = nil
}

func (a *apiRecorder) recorded() []apiCall {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]apiCall(nil), a.calls...)
}

type harness struct {
	t      *testing.T
	db     *sql.DB
	api    *apiRecorder
	web    http.Handler
	cookie *http.Cookie
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	database := db.NewTestDB(t)

	rec := &apiRecorder{next: devapi.NewRouter(database, devapi.Config{TokenSecret: "test-secret"})}
	srv := httptest.NewServer(rec)
	t.Cleanup(srv.Close)

	ctx := context.Background()
	for _, u := range []struct{ name, role string }{
		{"ana", model.RoleManager},
		{"bor", model.RoleBaker},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.MinCost)
		require.NoError(t, err)
		_, err = store.CreateUser(ctx, database, u.name, string(hash), u.role)
		require.NoError(t, err)
	}

	handler, err := NewRouter(config.Web{
		APIURL:     srv.URL,
		TokenURL:   srv.URL + "/auth/token",
		ContextTTL: time.Hour,
	})
	require.NoError(t, err)

	h := &harness{t: t, db: database, api: rec, web: handler}
	h.login("ana")
	rec.reset()
	return h
}

func (h *harness) login(username string) {
	h.t.Helper()
	h.cookie = nil
	resp := h.form(http.MethodPost, "/login", url.Values{"username": {username}, "password": {"password"}})
	require.Equal(h.t, http.StatusSeeOther, resp.Code, resp.Body.String())
	for _, c := range resp.Result().Cookies() {
		if c.Name == tokenCookie {
			h.cookie = c
		}
	}
	require.NotNil(h.t, h.cookie, "no token cookie after login")
}

func (h *harness) do(req *http.Request) *httptest.ResponseRecorder {
	if h.cookie != nil {
		req.AddCookie(&http.Cookie{Name: tokenCookie, Value: h.cookie.Value})
	}
	resp := httptest.NewRecorder()
	h.web.ServeHTTP(resp, req)
	return resp
}

func (h *harness) get(target string) *httptest.ResponseRecorder {
	return h.do(httptest.NewRequest(http.MethodGet, target, nil))
}

func (h *harness) form(method, target string, values url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return h.do(req)
}

func (h *harness) commitField(target string, body fieldRequest) (*httptest.ResponseRecorder, fieldResponse) {
	h.t.Helper()
	data, err := json.Marshal(body)
	require.NoError(h.t, err)
	req := httptest.NewRequest(http.MethodPost, target, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	resp := h.do(req)

	var out fieldResponse
	require.NoError(h.t, json.Unmarshal(resp.Body.Bytes(), &out), resp.Body.String())
	return resp, out
}

func (h *harness) create(endpoint string, values map[string]any) int64 {
	h.t.Helper()
	table, ok := store.Lookup(endpoint)
	require.True(h.t, ok, endpoint)
	row, err := store.CreateRecord(context.Background(), h.db, table, values)
	require.NoError(h.t, err)
	id, _ := row[table.PrimaryKey].(int64)
	require.NotZero(h.t, id)
	return id
}

// flash decodes the notifications left for the next page.
func flash(t *testing.T, resp *httptest.ResponseRecorder) []entity.Notification {
	t.Helper()
	for _, c := range resp.Result().Cookies() {
		if c.Name != flashCookie {
			continue
		}
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(c)
		return takeFlash(httptest.NewRecorder(), req, false)
	}
	return nil
}

func TestCreateBrandNavigatesToRecord(t *testing.T) {
	h := newHarness(t)

	resp := h.form(http.MethodPost, "/buyable/brand/new", url.Values{"brand_name": {"Acme"}})

	calls := h.api.recorded()
	require.Len(t, calls, 1)
	assert.Equal(t, http.MethodPost, calls[0].Method)
	assert.Equal(t, "/buyable/brand", calls[0].Path)
	assert.Equal(t, "Acme", calls[0].Body["brand_name"])

	assert.Equal(t, http.StatusSeeOther, resp.Code)
	assert.Equal(t, "/buyable/brand/1", resp.Header().Get("Location"))
	assert.Contains(t, flash(t, resp), entity.Notification{Level: entity.LevelSuccess, Message: "Brand created"})
}

func TestBlurCommitPatchesChangedField(t *testing.T) {
	h := newHarness(t)
	id := h.create("buyable/supplier", map[string]any{"supplier_name": "Mlin", "account_number": "123"})

	resp, out := h.commitField("/buyable/supplier/1/field", fieldRequest{
		Field: "account_number", Old: "123", New: "456",
	})
	require.Equal(t, http.StatusOK, resp.Code)

	calls := h.api.recorded()
	require.Len(t, calls, 1)
	assert.Equal(t, http.MethodPatch, calls[0].Method)
	assert.Equal(t, "/buyable/supplier/1", calls[0].Path)
	assert.Equal(t, map[string]any{"account_number": "456"}, calls[0].Body)

	assert.Equal(t, "456", out.Data["account_number"])
	assert.EqualValues(t, id, out.Data["supplier_id"])
	assert.Equal(t, []entity.Notification{{Level: entity.LevelSuccess, Message: "Supplier updated"}}, out.Notifications)
}

func TestBlurWithoutChangeIsSilent(t *testing.T) {
	h := newHarness(t)
	h.create("buyable/supplier", map[string]any{"supplier_name": "Mlin", "account_number": "123"})

	_, out := h.commitField("/buyable/supplier/1/field", fieldRequest{
		Field: "account_number", Old: "123", New: "123",
	})

	assert.Empty(t, h.api.recorded())
	assert.Empty(t, out.Notifications)
	assert.Nil(t, out.Data)
}

func TestBlurComparesNumbersCoarsely(t *testing.T) {
	h := newHarness(t)
	h.create("buyable/buyable", map[string]any{"buyable_name": "Flour", "price": 2.0})

	_, out := h.commitField("/buyable/buyable/1/field", fieldRequest{Field: "price", Old: "2", New: "2.0"})
	assert.Empty(t, h.api.recorded())
	assert.Empty(t, out.Notifications)

	_, out = h.commitField("/buyable/buyable/1/field", fieldRequest{Field: "active", OldChecked: false, Checked: true})
	calls := h.api.recorded()
	require.Len(t, calls, 1)
	assert.Equal(t, map[string]any{"active": true}, calls[0].Body)
	assert.Equal(t, true, out.Data["active"])
}

func TestMissingIngredientRendersNotFound(t *testing.T) {
	h := newHarness(t)

	resp := h.get("/recipe/ingredient/99")

	assert.Equal(t, http.StatusNotFound, resp.Code)
	assert.Contains(t, resp.Body.String(), "Ingredient not found")

	calls := h.api.recorded()
	require.Len(t, calls, 1)
	assert.Equal(t, "/recipe/ingredient/99", calls[0].Path)
}

func TestNewFormMakesNoAPICalls(t *testing.T) {
	h := newHarness(t)

	resp := h.get("/buyable/brand/new")

	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `action="/buyable/brand/new"`)
	assert.Empty(t, h.api.recorded())
}

func TestCommitFailureKeepsRecordAndNotifies(t *testing.T) {
	h := newHarness(t)
	h.create("buyable/brand", map[string]any{"brand_name": "Acme"})

	_, out := h.commitField("/buyable/brand/1/field", fieldRequest{Field: "brand_name", Old: "Acme", New: " "})

	require.Len(t, out.Notifications, 1)
	assert.Equal(t, entity.LevelError, out.Notifications[0].Level)
	assert.Equal(t, "Failed to update Brand. Status: 400. Reason: invalid brand_name: required", out.Notifications[0].Message)
	assert.Nil(t, out.Data)
}

func TestSignedOutCommitAsksForLogin(t *testing.T) {
	h := newHarness(t)
	h.create("buyable/brand", map[string]any{"brand_name": "Acme"})
	h.cookie = nil

	_, out := h.commitField("/buyable/brand/1/field", fieldRequest{Field: "brand_name", Old: "Acme", New: "Acme d.o.o."})

	assert.Empty(t, h.api.recorded())
	assert.Equal(t, []entity.Notification{{Level: entity.LevelError, Message: "Please log in first"}}, out.Notifications)
}

func TestPagesRequireLogin(t *testing.T) {
	h := newHarness(t)
	h.cookie = nil

	resp := h.get("/buyable/brand")
	assert.Equal(t, http.StatusSeeOther, resp.Code)
	assert.Equal(t, "/login", resp.Header().Get("Location"))
}

func TestLoginRejectsBadPassword(t *testing.T) {
	h := newHarness(t)
	h.cookie = nil

	resp := h.form(http.MethodPost, "/login", url.Values{"username": {"ana"}, "password": {"nope"}})

	assert.Equal(t, http.StatusUnauthorized, resp.Code)
	assert.Contains(t, resp.Body.String(), errInvalidCredentials)
}

func TestListSearch(t *testing.T) {
	h := newHarness(t)
	h.create("buyable/brand", map[string]any{"brand_name": "Acme"})
	h.create("buyable/brand", map[string]any{"brand_name": "Mlinotest"})

	body := h.get("/buyable/brand?q=acm").Body.String()
	assert.Contains(t, body, "Acme")
	assert.NotContains(t, body, "Mlinotest")

	body = h.get("/buyable/brand?q=xyz").Body.String()
	assert.Contains(t, body, "no matches for &#39;xyz&#39;")
}

func TestPickerSelectionCommitsField(t *testing.T) {
	h := newHarness(t)
	h.create("buyable/brand", map[string]any{"brand_name": "Acme"})
	h.create("buyable/brand", map[string]any{"brand_name": "Mlinotest"})
	h.create("buyable/buyable", map[string]any{"buyable_name": "Flour", "brand_id": 1.0})

	page := h.get("/buyable/buyable/1?picker=brand_id").Body.String()
	assert.Contains(t, page, `role="dialog"`)
	assert.Contains(t, page, "Mlinotest")
	h.api.reset()

	resp := h.form(http.MethodPost, "/buyable/buyable/1/pick", url.Values{
		"field": {"brand_id"}, "value": {"2"}, "old": {"1"},
	})
	assert.Equal(t, http.StatusSeeOther, resp.Code)
	assert.Equal(t, "/buyable/buyable/1", resp.Header().Get("Location"))

	calls := h.api.recorded()
	require.Len(t, calls, 1)
	assert.Equal(t, http.MethodPatch, calls[0].Method)
	assert.Equal(t, map[string]any{"brand_id": 2.0}, calls[0].Body)
}

func TestCreateInsidePickerFillsLaunchingField(t *testing.T) {
	h := newHarness(t)
	h.create("buyable/buyable", map[string]any{"buyable_name": "Flour"})

	resp := h.form(http.MethodPost, "/buyable/brand/new", url.Values{
		"brand_name": {"Acme"},
		"pick_for":   {"buyable/buyable"},
		"pick_id":    {"1"},
		"pick_field": {"brand_id"},
		"pick_old":   {""},
	})

	assert.Equal(t, http.StatusSeeOther, resp.Code)
	assert.Equal(t, "/buyable/buyable/1", resp.Header().Get("Location"))

	calls := h.api.recorded()
	require.Len(t, calls, 2)
	assert.Equal(t, "/buyable/brand", calls[0].Path)
	assert.Equal(t, http.MethodPatch, calls[1].Method)
	assert.Equal(t, "/buyable/buyable/1", calls[1].Path)
	assert.Equal(t, map[string]any{"brand_id": 1.0}, calls[1].Body)

	notes := flash(t, resp)
	assert.Contains(t, notes, entity.Notification{Level: entity.LevelSuccess, Message: "Brand created"})
	assert.Contains(t, notes, entity.Notification{Level: entity.LevelSuccess, Message: "Buyable updated"})
}

func TestRecipeShowsLinesAndCreatesThem(t *testing.T) {
	h := newHarness(t)
	h.create("recipe/recipe", map[string]any{"recipe_name": "Rye bread"})
	h.create("recipe/ingredient", map[string]any{"ingredient_name": "Rye flour"})
	h.create("recipe/recipe_ingredient", map[string]any{"recipe_id": 1.0, "ingredient_id": 1.0, "quantity": 0.5})

	page := h.get("/recipe/recipe/1").Body.String()
	assert.Contains(t, page, "Rye flour")
	assert.Contains(t, page, "/recipe/recipe_ingredient/new?recipe_id=1&amp;return=%2Frecipe%2Frecipe%2F1")

	form := h.get("/recipe/recipe_ingredient/new?recipe_id=1&return=/recipe/recipe/1").Body.String()
	assert.Contains(t, form, `name="recipe_id" value="1"`)
	assert.Contains(t, form, `name="return" value="/recipe/recipe/1"`)
	h.api.reset()

	resp := h.form(http.MethodPost, "/recipe/recipe_ingredient/new", url.Values{
		"recipe_id":     {"1"},
		"ingredient_id": {"1"},
		"quantity":      {"2"},
		"return":        {"/recipe/recipe/1"},
	})
	assert.Equal(t, http.StatusSeeOther, resp.Code)
	assert.Equal(t, "/recipe/recipe/1", resp.Header().Get("Location"))

	calls := h.api.recorded()
	require.Len(t, calls, 1)
	assert.EqualValues(t, 1, calls[0].Body["recipe_id"])
	assert.EqualValues(t, 2, calls[0].Body["quantity"])
}

func TestRecipeMethodIsSanitized(t *testing.T) {
	h := newHarness(t)
	h.create("recipe/recipe", map[string]any{"recipe_name": "Rye bread"})

	h.commitField("/recipe/recipe/1/field", fieldRequest{
		Field: "method",
		New:   `<p>Knead</p><script>alert(1)</script>`,
	})

	calls := h.api.recorded()
	require.Len(t, calls, 1)
	assert.Equal(t, map[string]any{"method": "<p>Knead</p>"}, calls[0].Body)
}

func TestFailedCreateKeepsFormPopulated(t *testing.T) {
	h := newHarness(t)

	resp := h.form(http.MethodPost, "/buyable/supplier/new", url.Values{
		"supplier_name":  {" "},
		"account_number": {"SI56 0123"},
	})

	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
	assert.Contains(t, resp.Body.String(), `value="SI56 0123"`)
	assert.Contains(t, resp.Body.String(), "Failed to create Supplier. Status: 400.")
}

func TestDeleteNavigatesOnlyOnSuccess(t *testing.T) {
	h := newHarness(t)
	h.create("buyable/brand", map[string]any{"brand_name": "Acme"})

	h.login("bor")
	h.api.reset()
	resp := h.form(http.MethodPost, "/buyable/brand/1/delete", nil)
	assert.Equal(t, "/buyable/brand/1", resp.Header().Get("Location"))
	require.Len(t, flash(t, resp), 1)
	assert.Equal(t, entity.LevelError, flash(t, resp)[0].Level)

	h.login("ana")
	h.api.reset()
	resp = h.form(http.MethodPost, "/buyable/brand/1/delete", nil)
	assert.Equal(t, "/buyable/brand", resp.Header().Get("Location"))
	assert.Contains(t, flash(t, resp), entity.Notification{Level: entity.LevelSuccess, Message: "Brand deleted"})

	calls := h.api.recorded()
	require.Len(t, calls, 1)
	assert.Equal(t, http.MethodDelete, calls[0].Method)
}

func TestCreatedBrandAppearsInCachedList(t *testing.T) {
	h := newHarness(t)

	assert.Contains(t, h.get("/buyable/brand").Body.String(), "nothing found")
	h.form(http.MethodPost, "/buyable/brand/new", url.Values{"brand_name": {"Acme"}})
	assert.Contains(t, h.get("/buyable/brand").Body.String(), "Acme")
}

func TestCancelReturnsToList(t *testing.T) {
	h := newHarness(t)

	resp := h.form(http.MethodPost, "/buyable/brand/cancel", nil)
	assert.Equal(t, "/buyable/brand", resp.Header().Get("Location"))

	resp = h.form(http.MethodPost, "/recipe/recipe_labour/cancel", url.Values{"return": {"/recipe/recipe/3"}})
	assert.Equal(t, "/recipe/recipe/3", resp.Header().Get("Location"))

	resp = h.form(http.MethodPost, "/recipe/recipe_labour/cancel", url.Values{"return": {"//evil.example"}})
	assert.Equal(t, "/recipe/recipe_labour", resp.Header().Get("Location"))
	assert.Empty(t, h.api.recorded())
}

func TestMetricsExposeRequests(t *testing.T) {
	h := newHarness(t)
	h.get("/buyable/brand")

	body := h.get("/metrics").Body.String()
	assert.Contains(t, body, `pekarna_http_requests_total{method="GET",route="GET /buyable/brand",status="200"} 1`)
}
