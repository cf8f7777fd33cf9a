package web

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/erazemk/pekarna/internal/auth"
	"github.com/erazemk/pekarna/internal/entity"
)

type webContextKey string

const webSessionKey webContextKey = "websession"

const (
	tokenCookie = "token"
	flashCookie = "flash"
)

// SessionMiddleware attaches the session held by the token cookie to the
// request. Requests without a usable token get a signed-out session; a stale
// cookie is cleared.
func SessionMiddleware(secure bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := ""
			if cookie, err := r.Cookie(tokenCookie); err == nil {
				token = cookie.Value
			}

			sess := auth.NewSession(token)
			if token != "" && !sess.Authenticated() {
				clearCookie(w, tokenCookie, secure)
			}

			ctx := context.WithValue(r.Context(), webSessionKey, sess)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireSession redirects signed-out users to the login page.
func RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !GetSession(r.Context()).Authenticated() {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetSession retrieves the session from the request context. It never
// returns nil.
func GetSession(ctx context.Context) *auth.Session {
	if sess, ok := ctx.Value(webSessionKey).(*auth.Session); ok {
		return sess
	}
	return auth.NewSession("")
}

// clearCookie clears a cookie with consistent attributes.
func clearCookie(w http.ResponseWriter, name string, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	})
}

// ui collects what a controller reports during one request: notifications
// and at most one navigation.
type ui struct {
	notes  []entity.Notification
	target string
}

func (u *ui) Notify(n entity.Notification) {
	u.notes = append(u.notes, n)
}

func (u *ui) Navigate(path string) {
	u.target = path
}

func (u *ui) has(level string) bool {
	for _, n := range u.notes {
		if n.Level == level {
			return true
		}
	}
	return false
}

// notifications never returns nil so JSON responses carry an empty list.
func (u *ui) notifications() []entity.Notification {
	if u.notes == nil {
		return []entity.Notification{}
	}
	return u.notes
}

// redirect stores the collected notifications for the next page and sends
// the browser to path.
func (u *ui) redirect(w http.ResponseWriter, r *http.Request, path string, secure bool) {
	setFlash(w, u.notes, secure)
	http.Redirect(w, r, path, http.StatusSeeOther)
}

func setFlash(w http.ResponseWriter, notes []entity.Notification, secure bool) {
	if len(notes) == 0 {
		return
	}
	data, err := json.Marshal(notes)
	if err != nil {
		slog.Error("failed to encode flash", "error", err)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookie,
		Value:    base64.RawURLEncoding.EncodeToString(data),
		Path:     "/",
		MaxAge:   60,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	})
}

// takeFlash reads and clears the notifications left by the previous
// request.
func takeFlash(w http.ResponseWriter, r *http.Request, secure bool) []entity.Notification {
	cookie, err := r.Cookie(flashCookie)
	if err != nil || cookie.Value == "" {
		return nil
	}
	clearCookie(w, flashCookie, secure)

	data, err := base64.RawURLEncoding.DecodeString(cookie.Value)
	if err != nil {
		return nil
	}
	var notes []entity.Notification
	if err := json.Unmarshal(data, &notes); err != nil {
		return nil
	}
	return notes
}

// safeReturn accepts only local absolute paths.
func safeReturn(path string) string {
	if !strings.HasPrefix(path, "/") || strings.HasPrefix(path, "//") || strings.Contains(path, `\`) {
		return ""
	}
	return path
}

// statusRecorder wraps http.ResponseWriter to capture the status code.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// LoggingMiddleware logs page requests and records them in m.
func LoggingMiddleware(m *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			elapsed := time.Since(start)

			route := r.Pattern
			if route == "" {
				route = "unmatched"
			}
			m.observe(r.Method, route, rec.status, elapsed)

			slog.Info("web request",
				"method", r.Method,
				"path", r.URL.RequestURI(),
				"status", rec.status,
				"duration", elapsed.Round(time.Millisecond),
			)
		})
	}
}
