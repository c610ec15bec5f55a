package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/codepad-protocol/codepad/internal/models"
)

// CreateDocumentRequest represents the document creation request.
type CreateDocumentRequest struct {
	Title    string `json:"title"`
	Language string `json:"language,omitempty"`
}

// CreateDocument creates a new document.
func (h *Handler) CreateDocument(w http.ResponseWriter, r *http.Request) {
	var req CreateDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	title := sanitizeTitle(req.Title)
	if title == "" {
		title = "Untitled"
	}
	language := req.Language
	if language == "" {
		language = "plain"
	}

	var createdBy *uuid.UUID
	if userIDStr := r.Header.Get("X-User-ID"); userIDStr != "" {
		userID, err := uuid.Parse(userIDStr)
		if err != nil {
			h.Error(w, http.StatusBadRequest, "invalid user ID format")
			return
		}
		createdBy = &userID
	}

	doc, err := h.store.CreateDocument(r.Context(), title, language, createdBy)
	if err != nil {
		h.logger.Error().Err(err).Msg("document creation failed")
		h.Error(w, http.StatusInternalServerError, "failed to create document")
		return
	}

	h.JSON(w, http.StatusCreated, doc)
}

// GetDocument retrieves one document with its collaborators.
func (h *Handler) GetDocument(w http.ResponseWriter, r *http.Request) {
	documentID, err := uuid.Parse(chi.URLParam(r, "documentID"))
	if err != nil {
		h.Error(w, http.StatusBadRequest, "invalid document ID format")
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

	collabs, err := h.store.ListCollaborators(r.Context(), documentID)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to load collaborators")
		return
	}
	if collabs == nil {
		collabs = []models.Collaborator{}
	}

	h.JSON(w, http.StatusOK, struct {
		models.Document
		Collaborators []models.Collaborator `json:"collaborators"`
	}{Document: *doc, Collaborators: collabs})
}

// DocumentsResponse represents the document listing response.
type DocumentsResponse struct {
	Documents []models.Document `json:"documents"`
	Total     int               `json:"total"`
}

// ListDocuments lists documents, most recently edited first.
func (h *Handler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			limit = l
		}
	}
	if limit > 100 {
		limit = 100
	}

	offset := 0
	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		if o, err := strconv.Atoi(offsetStr); err == nil && o >= 0 {
			offset = o
		}
	}

	docs, total, err := h.store.ListDocuments(r.Context(), limit, offset)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to list documents")
		return
	}
	if docs == nil {
		docs = []models.Document{}
	}

	h.JSON(w, http.StatusOK, DocumentsResponse{Documents: docs, Total: total})
}

// VersionsResponse represents the version listing response.
type VersionsResponse struct {
	Versions []models.DocumentVersion `json:"versions"`
}

// ListVersions lists the most recent content snapshots of a document.
func (h *Handler) ListVersions(w http.ResponseWriter, r *http.Request) {
	documentID, err := uuid.Parse(chi.URLParam(r, "documentID"))
	if err != nil {
		h.Error(w, http.StatusBadRequest, "invalid document ID format")
		return
	}

	limit := 20
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 100 {
			limit = l
		}
	}

	versions, err := h.store.ListVersions(r.Context(), documentID, limit)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to list versions")
		return
	}
	if versions == nil {
		versions = []models.DocumentVersion{}
	}

	h.JSON(w, http.StatusOK, VersionsResponse{Versions: versions})
}
