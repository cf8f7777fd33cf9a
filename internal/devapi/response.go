package devapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// envelope is the shape of every response body.
type envelope struct {
	Data    any    `json:"data"`
	Message string `json:"message"`
}

// jsonResponse writes data wrapped in an envelope with the given status code.
func jsonResponse(w http.ResponseWriter, status int, data any, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(envelope{Data: data, Message: message}); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// jsonError writes an envelope with null data and message.
func jsonError(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, nil, message)
}

// decodeJSON decodes a JSON request body into the given target.
func decodeJSON(r *http.Request, target any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(target)
}
