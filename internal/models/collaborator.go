package models

import (
	"time"

	"github.com/google/uuid"
)

// Permission levels for collaborators.
const (
	PermissionView = "view"
	PermissionEdit = "edit"
)

// ValidPermission reports whether level is a known permission level.
func ValidPermission(level string) bool {
	return level == PermissionView || level == PermissionEdit
}

// Collaborator grants a user access to a document.
type Collaborator struct {
	ID         uuid.UUID `json:"id"`
	DocumentID uuid.UUID `json:"document_id"`
	UserID     uuid.UUID `json:"user_id"`
	Username   string    `json:"username,omitempty"`
	Permission string    `json:"permission_level"`
	AddedAt    time.Time `json:"added_at"`
}
