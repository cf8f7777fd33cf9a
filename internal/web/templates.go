package web

import (
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/erazemk/pekarna/internal/auth"
	"github.com/erazemk/pekarna/internal/entity"
	"github.com/erazemk/pekarna/internal/forms"
	"github.com/erazemk/pekarna/internal/model"
	webembed "github.com/erazemk/pekarna/web"
)

// Templates holds parsed HTML templates.
type Templates struct {
	templates map[string]*template.Template
}

// FuncMap returns the template function map.
func FuncMap() template.FuncMap {
	return template.FuncMap{
		"roleAtLeast": model.RoleAtLeast,
		"roleName": func(role string) string {
			switch role {
			case model.RoleAdmin:
				return "Administrator"
			case model.RoleManager:
				return "Manager"
			case model.RoleBaker:
				return "Baker"
			default:
				return role
			}
		},
		"levelClass": func(level string) string {
			switch level {
			case entity.LevelSuccess:
				return "flash-success"
			case entity.LevelError:
				return "flash-error"
			default:
				return "flash-info"
			}
		},
		"isKind": func(f fieldView, kind string) bool {
			return string(f.Kind) == kind
		},
		"richText": func(s string) template.HTML {
			return template.HTML(forms.Sanitize(s))
		},
	}
}

// LoadTemplates parses all page templates with the layout and the shared
// partials.
func LoadTemplates() (*Templates, error) {
	tfs := webembed.TemplatesFS()

	layoutBytes, err := fs.ReadFile(tfs, "layout.html")
	if err != nil {
		return nil, fmt.Errorf("reading layout template: %w", err)
	}
	partialBytes, err := fs.ReadFile(tfs, "partials.html")
	if err != nil {
		return nil, fmt.Errorf("reading partials template: %w", err)
	}

	pages := []string{
		"login.html",
		"dashboard.html",
		"list.html",
		"form.html",
		"error.html",
	}

	ts := &Templates{templates: make(map[string]*template.Template)}

	for _, page := range pages {
		pageBytes, err := fs.ReadFile(tfs, page)
		if err != nil {
			return nil, fmt.Errorf("reading template %s: %w", page, err)
		}

		tmpl := template.New(page).Funcs(FuncMap())
		for _, src := range [][]byte{layoutBytes, partialBytes, pageBytes} {
			if tmpl, err = tmpl.Parse(string(src)); err != nil {
				return nil, fmt.Errorf("parsing template %s: %w", page, err)
			}
		}

		ts.templates[page] = tmpl
	}

	return ts, nil
}

// Render renders a template with the given data.
func (ts *Templates) Render(w http.ResponseWriter, name string, data any) {
	ts.RenderStatus(w, http.StatusOK, name, data)
}

// RenderStatus renders a template with a non-200 status.
func (ts *Templates) RenderStatus(w http.ResponseWriter, status int, name string, data any) {
	tmpl, ok := ts.templates[name]
	if !ok {
		http.Error(w, "template not found", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := tmpl.ExecuteTemplate(w, "layout", data); err != nil {
		slog.Error("failed to render template", "template", name, "error", err)
	}
}

// NavLink is one entry of the navigation bar.
type NavLink struct {
	Title string
	Href  string
}

// PageData is the base data passed to all templates.
type PageData struct {
	Title string
	User  *auth.Claims
	Nav   []NavLink
	Flash []entity.Notification
	Error string
}
