package web

import (
	"log/slog"
	"net/http"
	"net/url"

	"github.com/erazemk/pekarna/internal/model"
)

type dashboardTile struct {
	Title string
	Href  string
	Count int
	Err   bool
}

// Dashboard handles GET /.
func (s *Server) Dashboard(w http.ResponseWriter, r *http.Request) {
	dc := s.dataContext(r)

	var tiles []dashboardTile
	for _, d := range s.Forms.Registry.All() {
		m := d.Meta()
		if !isTopLevel(m) {
			continue
		}
		snap := d.Elements(r.Context(), dc, nil)
		if snap.Err != nil {
			slog.Error("failed to load collection for dashboard", "endpoint", m.Endpoint, "error", snap.Err)
		}
		tiles = append(tiles, dashboardTile{
			Title: m.Title,
			Href:  "/" + m.Endpoint,
			Count: len(snap.Data),
			Err:   snap.Err != nil,
		})
	}

	pending := s.Forms.Invoices.Elements(r.Context(), dc, url.Values{"status": {model.InvoiceStatusPending}})
	if pending.Err != nil {
		slog.Error("failed to list pending invoices", "error", pending.Err)
	}

	s.Templates.Render(w, "dashboard.html", &struct {
		PageData
		Tiles   []dashboardTile
		Pending any
	}{
		PageData: s.pageData(w, r, "Dashboard"),
		Tiles:    tiles,
		Pending:  pending.Data,
	})
}
