package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/codepad-protocol/codepad/internal/models"
	"github.com/codepad-protocol/codepad/internal/store"
)

// AddCollaboratorRequest represents the add-collaborator request.
type AddCollaboratorRequest struct {
	UserID          string `json:"user_id"`
	PermissionLevel string `json:"permission_level"`
}

// CollaboratorResponse is the success/error envelope the editor page
// expects from collaborator mutations.
type CollaboratorResponse struct {
	Success      bool                 `json:"success"`
	Error        string               `json:"error,omitempty"`
	Collaborator *models.Collaborator `json:"collaborator,omitempty"`
}

// AddCollaborator grants a user access to a document.
func (h *Handler) AddCollaborator(w http.ResponseWriter, r *http.Request) {
	documentID, err := uuid.Parse(chi.URLParam(r, "documentID"))
	if err != nil {
		h.Error(w, http.StatusBadRequest, "invalid document ID format")
		return
	}

	var req AddCollaboratorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		h.Error(w, http.StatusBadRequest, "invalid user ID format")
		return
	}
	if req.PermissionLevel == "" {
		req.PermissionLevel = models.PermissionView
	}
	if !models.ValidPermission(req.PermissionLevel) {
		h.Error(w, http.StatusBadRequest, "permission_level must be 'view' or 'edit'")
		return
	}

	doc, err := h.store.GetDocument(r.Context(), documentID)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to load document")
		return
	}
	if doc == nil {
		h.Error(w, http.StatusNotFound, "document not found")
		return
	}

	user, err := h.store.GetUserByID(r.Context(), userID)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to load user")
		return
	}
	if user == nil {
		h.Error(w, http.StatusNotFound, "user not found")
		return
	}

	collab, err := h.store.AddCollaborator(r.Context(), documentID, userID, req.PermissionLevel)
	if err != nil {
		if errors.Is(err, store.ErrDuplicateCollaborator) {
			h.JSON(w, http.StatusConflict, CollaboratorResponse{Success: false, Error: "user is already a collaborator"})
			return
		}
		h.logger.Error().Err(err).Msg("add collaborator failed")
		h.JSON(w, http.StatusInternalServerError, CollaboratorResponse{Success: false, Error: "failed to add collaborator"})
		return
	}

	h.JSON(w, http.StatusCreated, CollaboratorResponse{Success: true, Collaborator: collab})
}

// UpdatePermissionRequest represents the permission update request.
type UpdatePermissionRequest struct {
	PermissionLevel string `json:"permission_level"`
}

// UpdatePermission changes a collaborator's permission level.
func (h *Handler) UpdatePermission(w http.ResponseWriter, r *http.Request) {
	documentID, err := uuid.Parse(chi.URLParam(r, "documentID"))
	if err != nil {
		h.Error(w, http.StatusBadRequest, "invalid document ID format")
		return
	}
	collaboratorID, err := uuid.Parse(chi.URLParam(r, "collaboratorID"))
	if err != nil {
		h.Error(w, http.StatusBadRequest, "invalid collaborator ID format")
		return
	}

	var req UpdatePermissionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if !models.ValidPermission(req.PermissionLevel) {
		h.Error(w, http.StatusBadRequest, "permission_level must be 'view' or 'edit'")
		return
	}

	updated, err := h.store.UpdateCollaboratorPermission(r.Context(), documentID, collaboratorID, req.PermissionLevel)
	if err != nil {
		h.logger.Error().Err(err).Msg("permission update failed")
		h.JSON(w, http.StatusInternalServerError, CollaboratorResponse{Success: false, Error: "failed to update permission"})
		return
	}
	if !updated {
		h.JSON(w, http.StatusNotFound, CollaboratorResponse{Success: false, Error: "collaborator not found"})
		return
	}

	h.JSON(w, http.StatusOK, CollaboratorResponse{Success: true})
}

// ListCollaborators lists the collaborators on a document.
func (h *Handler) ListCollaborators(w http.ResponseWriter, r *http.Request) {
	documentID, err := uuid.Parse(chi.URLParam(r, "documentID"))
	if err != nil {
		h.Error(w, http.StatusBadRequest, "invalid document ID format")
		return
	}

	collabs, err := h.store.ListCollaborators(r.Context(), documentID)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to load collaborators")
		return
	}
	if collabs == nil {
		collabs = []models.Collaborator{}
	}

	h.JSON(w, http.StatusOK, map[string][]models.Collaborator{"collaborators": collabs})
}
