package store

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/codepad-protocol/codepad/internal/models"
)

// ErrDuplicateCollaborator is returned when a user is already a
// collaborator on a document.
var ErrDuplicateCollaborator = errors.New("user is already a collaborator")

// DataStore defines the interface for persistent storage of documents,
// users and collaborators. Both PostgresStore and SQLiteStore implement
// this interface.
type DataStore interface {
	// Connection management
	Close()
	Ping(ctx context.Context) error

	// Document operations
	CreateDocument(ctx context.Context, title, language string, createdBy *uuid.UUID) (*models.Document, error)
	GetDocument(ctx context.Context, id uuid.UUID) (*models.Document, error)
	ListDocuments(ctx context.Context, limit, offset int) ([]models.Document, int, error)
	UpdateDocumentContent(ctx context.Context, id uuid.UUID, content string) error
	CountDocuments(ctx context.Context) (int64, error)

	// Version snapshots
	CreateVersion(ctx context.Context, documentID uuid.UUID, content, description string) error
	ListVersions(ctx context.Context, documentID uuid.UUID, limit int) ([]models.DocumentVersion, error)

	// User operations
	CreateUser(ctx context.Context, username, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	SearchUsers(ctx context.Context, query string, limit int) ([]models.User, error)
	CountUsers(ctx context.Context) (int64, error)

	// Collaborator operations
	AddCollaborator(ctx context.Context, documentID, userID uuid.UUID, permission string) (*models.Collaborator, error)
	UpdateCollaboratorPermission(ctx context.Context, documentID, collaboratorID uuid.UUID, permission string) (bool, error)
	ListCollaborators(ctx context.Context, documentID uuid.UUID) ([]models.Collaborator, error)
}
