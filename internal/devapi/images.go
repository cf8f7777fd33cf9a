package devapi

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/erazemk/pekarna/internal/imaging"
	"github.com/erazemk/pekarna/internal/store"
)

// ImagesHandler stores and serves buyable thumbnails.
type ImagesHandler struct {
	DB *sql.DB
}

// Upload handles PUT /buyable/buyable/{id}/image.
func (h *ImagesHandler) Upload(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid id")
		return
	}

	thumb, err := imaging.MakeThumbnail(r.Body, imaging.ThumbnailSize)
	switch {
	case errors.Is(err, imaging.ErrTooLarge):
		jsonError(w, http.StatusRequestEntityTooLarge, err.Error())
		return
	case err != nil:
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	found, err := store.SetBuyableImage(r.Context(), h.DB, id, thumb.Data, thumb.MIME)
	if err != nil {
		slog.Error("failed to store image", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to store image")
		return
	}
	if !found {
		jsonError(w, http.StatusNotFound, "buyable not found")
		return
	}

	row, err := store.GetRecord(r.Context(), h.DB, buyables(), id)
	if err != nil {
		slog.Error("failed to get buyable", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to get buyable")
		return
	}
	jsonResponse(w, http.StatusOK, row, "image stored")
}

// Get handles GET /buyable/buyable/{id}/image. Images are public so they can
// be used directly in <img> tags.
func (h *ImagesHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	data, mime, err := store.GetBuyableImage(r.Context(), h.DB, id)
	if err != nil {
		slog.Error("failed to get image", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if data == nil {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", mime)
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	if _, err := w.Write(data); err != nil {
		slog.Error("failed to write image response", "error", err)
	}
}

func buyables() store.Table {
	t, _ := store.Lookup("buyable/buyable")
	return t
}
