package devapi

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/erazemk/pekarna/internal/db"
	"github.com/erazemk/pekarna/internal/model"
	"github.com/erazemk/pekarna/internal/store"
)

const testSecret = "test-secret"

type testEnvelope struct {
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

func setupTestServer(t *testing.T) (*httptest.Server, string) {
	t.Helper()
	database := db.NewTestDB(t)
	server := httptest.NewServer(NewRouter(database, Config{TokenSecret: testSecret}))
	t.Cleanup(server.Close)

	ctx := context.Background()
	for _, u := range []struct{ name, role string }{
		{"admin", model.RoleAdmin},
		{"baker", model.RoleBaker},
	} {
		hash, _ := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.MinCost)
		store.CreateUser(ctx, database, u.name, string(hash), u.role)
	}

	return server, login(t, server, "admin")
}

func login(t *testing.T, server *httptest.Server, username string) string {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"username": username, "password": "password"})
	resp, err := http.Post(server.URL+"/auth/token", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("token request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login failed: %d", resp.StatusCode)
	}

	var env testEnvelope
	json.NewDecoder(resp.Body).Decode(&env)
	var tok tokenResponse
	json.Unmarshal(env.Data, &tok)
	if tok.Token == "" {
		t.Fatal("empty token from login")
	}
	return tok.Token
}

func do(t *testing.T, method, url, token string, body any) (int, testEnvelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("building request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()

	var env testEnvelope
	json.NewDecoder(resp.Body).Decode(&env)
	return resp.StatusCode, env
}

func TestTokenEndpoint(t *testing.T) {
	server, _ := setupTestServer(t)

	body, _ := json.Marshal(map[string]string{"username": "admin", "password": "wrong"})
	resp, _ := http.Post(server.URL+"/auth/token", "application/json", bytes.NewReader(body))
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 for bad password, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestRecordLifecycle(t *testing.T) {
	server, token := setupTestServer(t)
	base := server.URL + "/buyable/supplier"

	status, env := do(t, "POST", base, token, map[string]any{
		"supplier_name":  "Mlin",
		"account_number": "123",
	})
	if status != http.StatusCreated {
		t.Fatalf("expected 201, got %d (%s)", status, env.Message)
	}
	var created model.Supplier
	json.Unmarshal(env.Data, &created)
	if created.SupplierID == 0 || created.AccountNumber != "123" {
		t.Fatalf("unexpected supplier %+v", created)
	}

	url := base + "/" + itoa(created.SupplierID)
	status, env = do(t, "PATCH", url, token, map[string]any{"account_number": "456"})
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", status, env.Message)
	}
	var patched model.Supplier
	json.Unmarshal(env.Data, &patched)
	if patched.AccountNumber != "456" || patched.SupplierName != "Mlin" {
		t.Errorf("expected full echo with new account number, got %+v", patched)
	}

	status, env = do(t, "GET", base, token, nil)
	var list []model.Supplier
	json.Unmarshal(env.Data, &list)
	if status != http.StatusOK || len(list) != 1 {
		t.Errorf("expected 1 supplier, got %d (status %d)", len(list), status)
	}

	status, env = do(t, "DELETE", url, token, nil)
	if status != http.StatusOK || string(env.Data) != "null" {
		t.Errorf("expected 200 with null data, got %d %s", status, env.Data)
	}

	status, env = do(t, "GET", url, token, nil)
	if status != http.StatusNotFound || string(env.Data) != "null" {
		t.Errorf("expected 404 with null data, got %d %s", status, env.Data)
	}
	if env.Message == "" {
		t.Error("expected a not found message")
	}
}

func TestEmptyListIsArray(t *testing.T) {
	server, token := setupTestServer(t)

	_, env := do(t, "GET", server.URL+"/recipe/ingredient", token, nil)
	if string(env.Data) != "[]" {
		t.Errorf("expected [], got %s", env.Data)
	}
}

func TestListFilter(t *testing.T) {
	server, token := setupTestServer(t)
	base := server.URL + "/recipe/recipe_labour"

	do(t, "POST", base, token, map[string]any{"recipe_id": 1, "minutes": 30})
	do(t, "POST", base, token, map[string]any{"recipe_id": 2, "minutes": 10})

	_, env := do(t, "GET", base+"?recipe_id=2", token, nil)
	var lines []model.RecipeLabour
	json.Unmarshal(env.Data, &lines)
	if len(lines) != 1 || lines[0].Minutes != 10 {
		t.Errorf("expected the recipe 2 line, got %+v", lines)
	}

	status, _ := do(t, "GET", base+"?colour=red", token, nil)
	if status != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown filter, got %d", status)
	}
}

func TestValidationMessage(t *testing.T) {
	server, token := setupTestServer(t)

	status, env := do(t, "POST", server.URL+"/buyable/brand", token, map[string]any{"website": "x"})
	if status != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", status)
	}
	if env.Message != "invalid brand_name: required" {
		t.Errorf("unexpected message %q", env.Message)
	}
}

func TestUnauthenticatedAccess(t *testing.T) {
	server, _ := setupTestServer(t)

	status, env := do(t, "GET", server.URL+"/buyable/brand", "", nil)
	if status != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", status)
	}
	if env.Message == "" {
		t.Error("expected an envelope message")
	}
}

func TestRoleBasedAccess(t *testing.T) {
	server, _ := setupTestServer(t)
	token := login(t, server, "baker")

	status, env := do(t, "POST", server.URL+"/buyable/brand", token, map[string]any{"brand_name": "Acme"})
	if status != http.StatusCreated {
		t.Fatalf("baker should create brands, got %d", status)
	}
	var b model.Brand
	json.Unmarshal(env.Data, &b)

	status, _ = do(t, "DELETE", server.URL+"/buyable/brand/"+itoa(b.BrandID), token, nil)
	if status != http.StatusForbidden {
		t.Errorf("baker should not delete brands, got %d", status)
	}

	status, _ = do(t, "POST", server.URL+"/buyable/unit", token, map[string]any{"unit_name": "kg"})
	if status != http.StatusForbidden {
		t.Errorf("baker should not edit reference data, got %d", status)
	}
}

func TestLogoutRevokesToken(t *testing.T) {
	server, token := setupTestServer(t)

	if status, _ := do(t, "GET", server.URL+"/auth/me", token, nil); status != http.StatusOK {
		t.Fatalf("expected 200 before logout, got %d", status)
	}
	if status, _ := do(t, "POST", server.URL+"/auth/logout", token, nil); status != http.StatusOK {
		t.Fatalf("expected 200 from logout, got %d", status)
	}
	if status, _ := do(t, "GET", server.URL+"/auth/me", token, nil); status != http.StatusUnauthorized {
		t.Errorf("expected 401 after logout, got %d", status)
	}
}

func TestBuyableImage(t *testing.T) {
	server, token := setupTestServer(t)

	_, env := do(t, "POST", server.URL+"/buyable/buyable", token, map[string]any{"buyable_name": "Flour T500"})
	var b model.Buyable
	json.Unmarshal(env.Data, &b)

	img := image.NewRGBA(image.Rect(0, 0, 40, 20))
	img.Set(1, 1, color.White)
	var buf bytes.Buffer
	png.Encode(&buf, img)

	url := server.URL + "/buyable/buyable/" + itoa(b.BuyableID) + "/image"
	req, _ := http.NewRequest("PUT", url, &buf)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 from upload, got %d", resp.StatusCode)
	}

	resp, err = http.Get(url)
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || resp.Header.Get("Content-Type") != "image/jpeg" {
		t.Errorf("expected public jpeg, got %d %s", resp.StatusCode, resp.Header.Get("Content-Type"))
	}
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
