// Package web is the browser-facing back-office. It renders lists and entity
// forms, commits single fields on blur and talks to the bakery API with the
// signed-in user's token.
package web

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/erazemk/pekarna/internal/catalog"
	"github.com/erazemk/pekarna/internal/client"
	"github.com/erazemk/pekarna/internal/config"
	"github.com/erazemk/pekarna/internal/entity"
	"github.com/erazemk/pekarna/internal/forms"
	webembed "github.com/erazemk/pekarna/web"
)

// Server holds all dependencies for page handlers.
type Server struct {
	Templates *Templates
	Forms     *forms.Set
	API       *client.Client
	Contexts  *catalog.Registry
	Queue     *entity.PatchQueue
	Metrics   *Metrics
	HTTP      *http.Client

	TokenURL      string
	SecureCookies bool

	nav     []NavLink
	editors map[string]editor
}

// NewRouter creates the back-office router with every page and form route
// registered.
func NewRouter(cfg config.Web) (http.Handler, error) {
	templates, err := LoadTemplates()
	if err != nil {
		return nil, err
	}

	hc := &http.Client{Timeout: cfg.RequestTimeout}
	api := client.New(cfg.APIURL, nil, client.WithTimeout(cfg.RequestTimeout))

	s := &Server{
		Templates:     templates,
		Forms:         forms.Bakery(),
		API:           api,
		Contexts:      catalog.NewRegistry(api, cfg.ContextTTL),
		Queue:         entity.NewPatchQueue(),
		Metrics:       NewMetrics(),
		HTTP:          hc,
		TokenURL:      cfg.TokenURL,
		SecureCookies: cfg.SecureCookies,
		editors:       make(map[string]editor),
	}
	for _, d := range s.Forms.Registry.All() {
		if m := d.Meta(); isTopLevel(m) {
			s.nav = append(s.nav, NavLink{Title: m.Title, Href: "/" + m.Endpoint})
		}
	}

	mux := http.NewServeMux()

	// Static assets and metrics.
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.FS(webembed.StaticFS()))))
	mux.Handle("GET /metrics", s.Metrics.Handler())

	// Public routes.
	mux.Handle("GET /login", s.session(http.HandlerFunc(s.LoginPage)))
	mux.Handle("POST /login", http.HandlerFunc(s.LoginSubmit))
	mux.Handle("POST /logout", s.session(http.HandlerFunc(s.Logout)))

	// Authenticated pages.
	mux.Handle("GET /{$}", s.page(s.Dashboard))

	f := s.Forms
	register(s, mux, f.Brands)
	register(s, mux, f.Suppliers)
	register(s, mux, f.Buyables)
	register(s, mux, f.Ingredients)
	register(s, mux, f.Recipes)
	register(s, mux, f.RecipeIngredients)
	register(s, mux, f.RecipeLabour)
	register(s, mux, f.SubRecipes)
	register(s, mux, f.Labourers)
	register(s, mux, f.ProductionLogs)
	register(s, mux, f.Invoices)
	register(s, mux, f.InvoiceLines)
	register(s, mux, f.Currencies)
	register(s, mux, f.Units)
	register(s, mux, f.ProductionTypes)

	return LoggingMiddleware(s.Metrics)(mux), nil
}

// register adds the routes of one form. Read-only forms get a list page
// only.
func register[T entity.Record](s *Server, mux *http.ServeMux, form *forms.Form[T]) {
	h := &formHandler[T]{s: s, form: form}
	meta := form.Meta()
	base := "/" + meta.Endpoint

	mux.Handle("GET "+base, s.page(h.List))
	if meta.ReadOnly {
		return
	}
	s.editors[meta.Endpoint] = h

	mux.Handle("GET "+base+"/{id}", s.page(h.Detail))
	mux.Handle("POST "+base+"/new", s.action(h.Create))
	mux.Handle("POST "+base+"/cancel", s.action(h.Cancel))
	mux.Handle("POST "+base+"/{id}/field", s.action(h.CommitField))
	mux.Handle("POST "+base+"/{id}/pick", s.action(h.Pick))
	mux.Handle("POST "+base+"/{id}/delete", s.action(h.Delete))
}

// isTopLevel reports whether a form gets its own navigation entry. Line
// forms are reached through their parent.
func isTopLevel(m forms.Meta) bool {
	if m.ReadOnly {
		return false
	}
	for _, f := range m.Fields {
		if f.Hidden {
			return false
		}
	}
	return true
}

func (s *Server) session(next http.Handler) http.Handler {
	return SessionMiddleware(s.SecureCookies)(next)
}

// page wraps a handler that needs a signed-in user.
func (s *Server) page(fn http.HandlerFunc) http.Handler {
	return s.session(RequireSession(fn))
}

// action wraps a form submission. Signed-out submissions still reach the
// controller, which reports the missing login.
func (s *Server) action(fn http.HandlerFunc) http.Handler {
	return s.session(fn)
}

// dataContext returns the cached collections of the requesting user.
func (s *Server) dataContext(r *http.Request) *catalog.Context {
	sess := GetSession(r.Context())
	return s.Contexts.For(sess.Subject(), sess)
}

// pageData fills the fields shared by every page.
func (s *Server) pageData(w http.ResponseWriter, r *http.Request, title string) PageData {
	return PageData{
		Title: title,
		User:  GetSession(r.Context()).Claims(),
		Nav:   s.nav,
		Flash: takeFlash(w, r, s.SecureCookies),
	}
}

// imageURL resolves an image path served by the API.
func (s *Server) imageURL(path string) string {
	if strings.HasPrefix(path, "/") {
		return s.API.BaseURL() + path
	}
	return path
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}
