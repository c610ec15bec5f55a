package handlers

import (
	"encoding/json"
	"net/http"
	"regexp"
	"strconv"

	"github.com/codepad-protocol/codepad/internal/models"
)

// usernameRegex validates usernames: alphanumeric plus dot, hyphen,
// underscore, 2-50 chars.
var usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9._-]{2,50}$`)

// emailRegex validates email addresses per RFC 5322 (simplified).
var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// isValidEmail validates email addresses using RFC 5322 pattern.
func isValidEmail(email string) bool {
	if email == "" {
		return true // Empty is valid (optional field)
	}
	if len(email) > 254 {
		return false
	}
	return emailRegex.MatchString(email)
}

// CreateUserRequest represents the user creation request.
type CreateUserRequest struct {
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
}

// CreateUser registers a directory entry for a user.
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if !usernameRegex.MatchString(req.Username) {
		h.Error(w, http.StatusBadRequest, "invalid username")
		return
	}
	if !isValidEmail(req.Email) {
		h.Error(w, http.StatusBadRequest, "invalid email")
		return
	}

	user, err := h.store.CreateUser(r.Context(), req.Username, req.Email)
	if err != nil {
		h.logger.Error().Err(err).Msg("user creation failed")
		h.Error(w, http.StatusConflict, "username already taken")
		return
	}

	h.JSON(w, http.StatusCreated, user)
}

// SearchUsersResponse represents the user search response.
type SearchUsersResponse struct {
	Users []models.User `json:"users"`
}

// SearchUsers finds users matching a query of at least two characters.
func (h *Handler) SearchUsers(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if len(query) < 2 {
		h.Error(w, http.StatusBadRequest, "query must be at least 2 characters")
		return
	}
	if len(query) > 100 {
		h.Error(w, http.StatusBadRequest, "query too long (max 100 chars)")
		return
	}

	limit := 10
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 50 {
			limit = l
		}
	}

	users, err := h.store.SearchUsers(r.Context(), query, limit)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "search failed")
		return
	}
	if users == nil {
		users = []models.User{}
	}

	h.JSON(w, http.StatusOK, SearchUsersResponse{Users: users})
}
