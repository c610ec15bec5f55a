package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"unicode"

	"github.com/rs/zerolog"

	"github.com/codepad-protocol/codepad/internal/hub"
	"github.com/codepad-protocol/codepad/internal/store"
)

// Handler contains shared dependencies for all HTTP handlers.
type Handler struct {
	store  store.DataStore
	redis  *store.RedisStore
	hub    *hub.Hub
	logger zerolog.Logger
}

// NewHandler creates a new Handler with the given dependencies.
func NewHandler(dataStore store.DataStore, redis *store.RedisStore, h *hub.Hub, logger zerolog.Logger) *Handler {
	return &Handler{store: dataStore, redis: redis, hub: h, logger: logger}
}

// JSON sends a JSON response with the given status code.
func (h *Handler) JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// Error sends a JSON error response with the given status code.
func (h *Handler) Error(w http.ResponseWriter, status int, message string) {
	h.JSON(w, status, map[string]string{"error": message})
}

// sanitizeTitle trims and limits a title to 255 characters, removing
// control characters.
func sanitizeTitle(title string) string {
	title = strings.TrimSpace(title)

	title = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, title)

	if len(title) > 255 {
		title = title[:255]
	}

	return title
}
