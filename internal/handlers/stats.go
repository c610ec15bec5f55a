package handlers

import (
	"net/http"

	"github.com/codepad-protocol/codepad/internal/hub"
)

// StatsResponse represents the stats endpoint response.
type StatsResponse struct {
	Documents    int64     `json:"documents"`
	Users        int64     `json:"users"`
	Live         hub.Stats `json:"live"`
	StoreHealthy bool      `json:"store_healthy"`
}

// Stats reports store totals alongside live hub occupancy.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	resp := StatsResponse{
		Live:         h.hub.Stats(),
		StoreHealthy: true,
	}

	docs, err := h.store.CountDocuments(r.Context())
	if err != nil {
		resp.StoreHealthy = false
	} else {
		resp.Documents = docs
	}

	users, err := h.store.CountUsers(r.Context())
	if err != nil {
		resp.StoreHealthy = false
	} else {
		resp.Users = users
	}

	h.JSON(w, http.StatusOK, resp)
}
