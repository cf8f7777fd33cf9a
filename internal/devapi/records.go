package devapi

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/erazemk/pekarna/internal/store"
)

// RecordsHandler serves the five record operations of one table.
type RecordsHandler struct {
	DB    *sql.DB
	Table store.Table
}

func (h *RecordsHandler) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		jsonError(w, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}

func (h *RecordsHandler) notFound(w http.ResponseWriter, id int64) {
	jsonError(w, http.StatusNotFound, fmt.Sprintf("%s %d not found", h.Table.Endpoint, id))
}

// writeError maps store errors onto responses.
func (h *RecordsHandler) writeError(w http.ResponseWriter, verb string, err error) {
	var verr *store.ValidationError
	if errors.As(err, &verr) {
		jsonError(w, http.StatusBadRequest, "invalid "+verr.Error())
		return
	}
	slog.Error("record operation failed", "endpoint", h.Table.Endpoint, "verb", verb, "error", err)
	jsonError(w, http.StatusInternalServerError, "failed to "+verb+" "+h.Table.Endpoint)
}

// List handles GET /{endpoint}. Query parameters filter by equality.
func (h *RecordsHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := make(map[string]string)
	for k, v := range r.URL.Query() {
		if len(v) > 0 {
			filter[k] = v[0]
		}
	}

	rows, err := store.ListRecords(r.Context(), h.DB, h.Table, filter)
	if err != nil {
		h.writeError(w, "list", err)
		return
	}
	if rows == nil {
		rows = []store.Row{}
	}
	jsonResponse(w, http.StatusOK, rows, "")
}

// Get handles GET /{endpoint}/{id}.
func (h *RecordsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	row, err := store.GetRecord(r.Context(), h.DB, h.Table, id)
	if err != nil {
		h.writeError(w, "get", err)
		return
	}
	if row == nil {
		h.notFound(w, id)
		return
	}
	jsonResponse(w, http.StatusOK, row, "")
}

// Create handles POST /{endpoint}.
func (h *RecordsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var values map[string]any
	if err := decodeJSON(r, &values); err != nil || values == nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	row, err := store.CreateRecord(r.Context(), h.DB, h.Table, values)
	if err != nil {
		h.writeError(w, "create", err)
		return
	}

	slog.Info("record created", "endpoint", h.Table.Endpoint, "id", row[h.Table.PrimaryKey], "user", userOf(r))
	jsonResponse(w, http.StatusCreated, row, "created")
}

// Patch handles PATCH /{endpoint}/{id}. The body names the fields to change.
func (h *RecordsHandler) Patch(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	var values map[string]any
	if err := decodeJSON(r, &values); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(values) == 0 {
		jsonError(w, http.StatusBadRequest, "no fields to update")
		return
	}

	row, err := store.UpdateRecord(r.Context(), h.DB, h.Table, id, values)
	if err != nil {
		h.writeError(w, "update", err)
		return
	}
	if row == nil {
		h.notFound(w, id)
		return
	}
	jsonResponse(w, http.StatusOK, row, "updated")
}

// Delete handles DELETE /{endpoint}/{id}.
func (h *RecordsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	deleted, err := store.DeleteRecord(r.Context(), h.DB, h.Table, id)
	if err != nil {
		h.writeError(w, "delete", err)
		return
	}
	if !deleted {
		h.notFound(w, id)
		return
	}

	slog.Info("record deleted", "endpoint", h.Table.Endpoint, "id", id, "user", userOf(r))
	jsonResponse(w, http.StatusOK, nil, "deleted")
}

func userOf(r *http.Request) string {
	if claims := GetClaims(r.Context()); claims != nil {
		return claims.Username
	}
	return ""
}
