package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/erazemk/pekarna/internal/model"
)

type recorded struct {
	method string
	path   string
	query  string
	auth   string
	body   string
}

func newTestServer(t *testing.T, status int, response string) (*httptest.Server, *[]recorded) {
	t.Helper()
	var calls []recorded
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		calls = append(calls, recorded{
			method: r.Method,
			path:   r.URL.Path,
			query:  r.URL.RawQuery,
			auth:   r.Header.Get("Authorization"),
			body:   string(body),
		})
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		io.WriteString(w, response)
	}))
	t.Cleanup(server.Close)
	return server, &calls
}

func TestListSendsBearerAndQuery(t *testing.T) {
	server, calls := newTestServer(t, http.StatusOK,
		`{"data":[{"brand_id":1,"brand_name":"Acme"}],"message":"ok"}`)
	c := New(server.URL, StaticToken("tok"))

	brands, err := List[model.Brand](context.Background(), c, "Brand", "buyable/brand", url.Values{"brand_name": {"Acme"}})
	if err != nil {
		t.Fatalf("List: %v", err)
	}

	want := []model.Brand{{BrandID: 1, BrandName: "Acme"}}
	if diff := cmp.Diff(want, brands); diff != "" {
		t.Errorf("brands mismatch (-want +got):\n%s", diff)
	}
	got := (*calls)[0]
	if got.path != "/buyable/brand" || got.query != "brand_name=Acme" {
		t.Errorf("unexpected request %s?%s", got.path, got.query)
	}
	if got.auth != "Bearer tok" {
		t.Errorf("expected bearer token, got %q", got.auth)
	}
}

func TestListNullDataIsEmpty(t *testing.T) {
	server, _ := newTestServer(t, http.StatusOK, `{"data":null,"message":"ok"}`)
	c := New(server.URL, StaticToken("tok"))

	brands, err := List[model.Brand](context.Background(), c, "Brand", "buyable/brand", nil)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if brands == nil || len(brands) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", brands)
	}
}

func TestGetNotFound(t *testing.T) {
	server, _ := newTestServer(t, http.StatusNotFound, `{"data":null,"message":"ingredient not found"}`)
	c := New(server.URL, StaticToken("tok"))

	got, err := Get[model.Ingredient](context.Background(), c, "Ingredient", "recipe/ingredient", 99)
	if err != nil {
		t.Fatalf("expected no error for missing record, got %v", err)
	}
	if got != nil {
		t.Errorf("expected nil record, got %+v", got)
	}
}

func TestPatchBodyIsSingleField(t *testing.T) {
	server, calls := newTestServer(t, http.StatusOK,
		`{"data":{"supplier_id":3,"supplier_name":"Mlin","account_number":"456"},"message":"updated"}`)
	c := New(server.URL, StaticToken("tok"))

	got, err := Patch[model.Supplier](context.Background(), c, "Supplier", "buyable/supplier", 3, "account_number", "456")
	if err != nil {
		t.Fatalf("Patch: %v", err)
	}
	if got.AccountNumber != "456" {
		t.Errorf("expected echoed account number, got %q", got.AccountNumber)
	}

	call := (*calls)[0]
	if call.method != http.MethodPatch || call.path != "/buyable/supplier/3" {
		t.Errorf("unexpected request %s %s", call.method, call.path)
	}
	var body map[string]any
	json.Unmarshal([]byte(call.body), &body)
	if diff := cmp.Diff(map[string]any{"account_number": "456"}, body); diff != "" {
		t.Errorf("body mismatch (-want +got):\n%s", diff)
	}
}

func TestErrorShapePrefersServerMessage(t *testing.T) {
	server, _ := newTestServer(t, http.StatusBadRequest, `{"data":null,"message":"brand_name required"}`)
	c := New(server.URL, StaticToken("tok"))

	_, err := Create(context.Background(), c, "Brand", "buyable/brand", model.Brand{})
	if err == nil {
		t.Fatal("expected error")
	}
	want := "Failed to create Brand. Status: 400. Reason: brand_name required"
	if err.Error() != want {
		t.Errorf("error = %q, want %q", err.Error(), want)
	}
	if StatusOf(err) != http.StatusBadRequest {
		t.Errorf("StatusOf = %d, want 400", StatusOf(err))
	}
}

func TestErrorShapeFallsBackToStatusText(t *testing.T) {
	server, _ := newTestServer(t, http.StatusInternalServerError, `oops`)
	c := New(server.URL, StaticToken("tok"))

	err := Delete(context.Background(), c, "Brand", "buyable/brand", 1)
	want := "Failed to delete Brand. Status: 500. Reason: 500 Internal Server Error"
	if err == nil || err.Error() != want {
		t.Errorf("error = %v, want %q", err, want)
	}
}

func TestNoTokenSkipsNetwork(t *testing.T) {
	server, calls := newTestServer(t, http.StatusOK, `{"data":[]}`)
	c := New(server.URL, StaticToken(""))

	_, err := List[model.Brand](context.Background(), c, "Brand", "buyable/brand", nil)
	if !errors.Is(err, ErrNotAuthenticated) {
		t.Errorf("expected ErrNotAuthenticated, got %v", err)
	}
	if len(*calls) != 0 {
		t.Errorf("expected no requests, got %d", len(*calls))
	}
}

func TestCancelledContext(t *testing.T) {
	server, _ := newTestServer(t, http.StatusOK, `{"data":[]}`)
	c := New(server.URL, StaticToken("tok"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := List[model.Brand](ctx, c, "Brand", "buyable/brand", nil)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
