package web

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/erazemk/pekarna/internal/auth"
)

type tokenResponse struct {
	Data struct {
		Token     string    `json:"token"`
		ExpiresAt time.Time `json:"expires_at"`
	} `json:"data"`
	Message string `json:"message"`
}

// errInvalidCredentials is shown for any rejected login.
const errInvalidCredentials = "Invalid username or password."

// requestToken exchanges credentials for a bearer token at the identity
// provider. The returned message is meant for the login page.
func (s *Server) requestToken(ctx context.Context, username, password string) (string, time.Time, string, error) {
	body, err := json.Marshal(map[string]string{"username": username, "password": password})
	if err != nil {
		return "", time.Time{}, "", fmt.Errorf("encoding credentials: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.TokenURL, bytes.NewReader(body))
	if err != nil {
		return "", time.Time{}, "", fmt.Errorf("creating token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := s.HTTP.Do(req)
	if err != nil {
		return "", time.Time{}, "Sign-in service unavailable.", fmt.Errorf("requesting token: %w", err)
	}
	defer resp.Body.Close()

	var out tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", time.Time{}, "Sign-in service unavailable.", fmt.Errorf("decoding token response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return "", time.Time{}, errInvalidCredentials, nil
	case resp.StatusCode != http.StatusOK:
		return "", time.Time{}, "Sign-in failed.", fmt.Errorf("token endpoint: status %d: %s", resp.StatusCode, out.Message)
	case out.Data.Token == "":
		return "", time.Time{}, "Sign-in failed.", fmt.Errorf("token endpoint returned no token")
	}
	return out.Data.Token, out.Data.ExpiresAt, "", nil
}

// LoginPage handles GET /login.
func (s *Server) LoginPage(w http.ResponseWriter, r *http.Request) {
	if GetSession(r.Context()).Authenticated() {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	s.Templates.Render(w, "login.html", &PageData{Title: "Sign in", Flash: takeFlash(w, r, s.SecureCookies)})
}

// LoginSubmit handles POST /login.
func (s *Server) LoginSubmit(w http.ResponseWriter, r *http.Request) {
	username := r.FormValue("username")
	password := r.FormValue("password")

	if username == "" || password == "" {
		s.Templates.RenderStatus(w, http.StatusBadRequest, "login.html", &PageData{
			Title: "Sign in",
			Error: "Enter your username and password.",
		})
		return
	}

	token, expires, msg, err := s.requestToken(r.Context(), username, password)
	if err != nil {
		slog.Error("failed to sign in", "username", username, "error", err)
	}
	if token == "" {
		if msg == "" {
			msg = errInvalidCredentials
		}
		s.Templates.RenderStatus(w, http.StatusUnauthorized, "login.html", &PageData{
			Title: "Sign in",
			Error: msg,
		})
		return
	}

	sess := auth.NewSession(token)
	if !sess.Authenticated() {
		slog.Error("identity provider issued an unusable token", "username", username)
		s.Templates.RenderStatus(w, http.StatusBadGateway, "login.html", &PageData{
			Title: "Sign in",
			Error: "Sign-in failed.",
		})
		return
	}
	if expires.IsZero() {
		expires = sess.ExpiresAt()
	}

	cookie := &http.Cookie{
		Name:     tokenCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.SecureCookies,
		SameSite: http.SameSiteStrictMode,
	}
	if !expires.IsZero() {
		cookie.Expires = expires
	}
	http.SetCookie(w, cookie)

	slog.Info("user signed in", "user", sess.Subject())
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Logout handles POST /logout. The token is revoked at the API on a best
// effort basis; the cookie is cleared regardless.
func (s *Server) Logout(w http.ResponseWriter, r *http.Request) {
	sess := GetSession(r.Context())
	if sess.Authenticated() {
		if err := s.revoke(r.Context(), sess); err != nil {
			slog.Warn("failed to revoke token", "user", sess.Subject(), "error", err)
		}
	}
	clearCookie(w, tokenCookie, s.SecureCookies)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (s *Server) revoke(ctx context.Context, sess *auth.Session) error {
	token, _ := sess.Token(ctx)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.API.BaseURL()+"/auth/logout", nil)
	if err != nil {
		return fmt.Errorf("creating logout request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := s.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("revoking token: %w", err)
	}
	resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("revoking token: status %d", resp.StatusCode)
	}
	return nil
}
