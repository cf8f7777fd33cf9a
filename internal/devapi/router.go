// Package devapi is a development implementation of the bakery REST API:
// every endpoint answers with a {data, message} envelope, records live in
// SQLite and bearer tokens are issued by the API itself.
package devapi

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/rs/cors"

	"github.com/erazemk/pekarna/internal/model"
	"github.com/erazemk/pekarna/internal/store"
)

// Config configures the router.
type Config struct {
	TokenSecret string
	TokenTTL    time.Duration
	// AllowedOrigins lists the browser origins allowed to call the API.
	AllowedOrigins []string
}

// referenceTables are maintained by administrators only.
var referenceTables = map[string]bool{
	"buyable/currency": true,
	"buyable/unit":     true,
	"production/type":  true,
}

// NewRouter creates the API router with all endpoints registered.
func NewRouter(db *sql.DB, cfg Config) http.Handler {
	mux := http.NewServeMux()

	authHandler := &AuthHandler{DB: db, Secret: cfg.TokenSecret, TokenTTL: cfg.TokenTTL}
	imagesHandler := &ImagesHandler{DB: db}

	authMW := AuthMiddleware(cfg.TokenSecret, db)
	requireAdmin := RequireRole(model.RoleAdmin)
	requireManager := RequireRole(model.RoleManager)
	requireBaker := RequireRole(model.RoleBaker)

	// Public: token issuing and images.
	mux.HandleFunc("POST /auth/token", authHandler.Token)
	mux.HandleFunc("GET /buyable/buyable/{id}/image", imagesHandler.Get)

	mux.Handle("POST /auth/logout", authMW(http.HandlerFunc(authHandler.Logout)))
	mux.Handle("GET /auth/me", authMW(http.HandlerFunc(authHandler.Me)))

	mux.Handle("PUT /buyable/buyable/{id}/image", authMW(requireBaker(http.HandlerFunc(imagesHandler.Upload))))

	for _, table := range store.Tables {
		h := &RecordsHandler{DB: db, Table: table}
		base := "/" + table.Endpoint

		write, remove := requireBaker, requireManager
		if referenceTables[table.Endpoint] {
			write, remove = requireAdmin, requireAdmin
		}

		// Records: read (all roles), write (baker+), delete (manager+).
		mux.Handle("GET "+base, authMW(http.HandlerFunc(h.List)))
		mux.Handle("POST "+base, authMW(write(http.HandlerFunc(h.Create))))
		mux.Handle("GET "+base+"/{id}", authMW(http.HandlerFunc(h.Get)))
		mux.Handle("PATCH "+base+"/{id}", authMW(write(http.HandlerFunc(h.Patch))))
		mux.Handle("DELETE "+base+"/{id}", authMW(remove(http.HandlerFunc(h.Delete))))
	}

	return cors.New(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodPut, http.MethodDelete},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	}).Handler(mux)
}
