package models

import (
	"time"

	"github.com/google/uuid"
)

// User represents an account that can own documents and collaborate on
// them. Authentication is handled by the hosting application; this
// service only needs the directory entry.
type User struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
