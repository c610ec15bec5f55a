package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/codepad-protocol/codepad/internal/models"
)

// PostgresStore handles PostgreSQL database operations.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL store with a connection pool
// and ensures the schema exists.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, err
	}

	s := &PostgresStore{pool: pool}
	if err := s.initSchema(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// initSchema creates tables if they don't exist.
func (s *PostgresStore) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		username TEXT UNIQUE NOT NULL,
		email TEXT DEFAULT '',
		created_at TIMESTAMPTZ DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS documents (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		title TEXT NOT NULL,
		content TEXT DEFAULT '',
		language TEXT DEFAULT 'plain',
		created_by UUID REFERENCES users(id) ON DELETE SET NULL,
		created_at TIMESTAMPTZ DEFAULT NOW(),
		updated_at TIMESTAMPTZ DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS collaborators (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		document_id UUID NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
		user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		permission_level TEXT NOT NULL DEFAULT 'view',
		added_at TIMESTAMPTZ DEFAULT NOW(),
		UNIQUE (document_id, user_id)
	);

	CREATE TABLE IF NOT EXISTS document_versions (
		id BIGSERIAL PRIMARY KEY,
		document_id UUID NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
		content TEXT NOT NULL,
		description TEXT DEFAULT '',
		created_at TIMESTAMPTZ DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_documents_updated ON documents(updated_at);
	CREATE INDEX IF NOT EXISTS idx_collaborators_document ON collaborators(document_id);
	CREATE INDEX IF NOT EXISTS idx_versions_document ON document_versions(document_id);
	`
	_, err := s.pool.Exec(ctx, schema)
	return err
}

// Close closes the database connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// Ping checks the database connection.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// CreateDocument creates a new document.
func (s *PostgresStore) CreateDocument(ctx context.Context, title, language string, createdBy *uuid.UUID) (*models.Document, error) {
	doc := &models.Document{}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO documents (title, language, created_by)
		VALUES ($1, $2, $3)
		RETURNING id, title, content, language, created_by, created_at, updated_at
	`, title, language, createdBy).Scan(
		&doc.ID,
		&doc.Title,
		&doc.Content,
		&doc.Language,
		&doc.CreatedBy,
		&doc.CreatedAt,
		&doc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// GetDocument retrieves a document by ID.
func (s *PostgresStore) GetDocument(ctx context.Context, id uuid.UUID) (*models.Document, error) {
	doc := &models.Document{}
	err := s.pool.QueryRow(ctx, `
		SELECT id, title, content, language, created_by, created_at, updated_at
		FROM documents WHERE id = $1
	`, id).Scan(
		&doc.ID,
		&doc.Title,
		&doc.Content,
		&doc.Language,
		&doc.CreatedBy,
		&doc.CreatedAt,
		&doc.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return doc, nil
}

// ListDocuments retrieves documents with pagination, newest activity first.
func (s *PostgresStore) ListDocuments(ctx context.Context, limit, offset int) ([]models.Document, int, error) {
	var total int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM documents`).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, title, content, language, created_by, created_at, updated_at
		FROM documents
		ORDER BY updated_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var docs []models.Document
	for rows.Next() {
		var doc models.Document
		err := rows.Scan(
			&doc.ID,
			&doc.Title,
			&doc.Content,
			&doc.Language,
			&doc.CreatedBy,
			&doc.CreatedAt,
			&doc.UpdatedAt,
		)
		if err != nil {
			return nil, 0, err
		}
		docs = append(docs, doc)
	}

	return docs, total, nil
}

// UpdateDocumentContent overwrites a document's content and bumps its
// updated_at timestamp.
func (s *PostgresStore) UpdateDocumentContent(ctx context.Context, id uuid.UUID, content string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE documents SET content = $2, updated_at = NOW() WHERE id = $1
	`, id, content)
	return err
}

// CountDocuments returns the total number of documents.
func (s *PostgresStore) CountDocuments(ctx context.Context) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM documents`).Scan(&count)
	return count, err
}

// CreateVersion records a content snapshot for a document.
func (s *PostgresStore) CreateVersion(ctx context.Context, documentID uuid.UUID, content, description string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO document_versions (document_id, content, description)
		VALUES ($1, $2, $3)
	`, documentID, content, description)
	return err
}

// ListVersions retrieves the most recent snapshots for a document.
func (s *PostgresStore) ListVersions(ctx context.Context, documentID uuid.UUID, limit int) ([]models.DocumentVersion, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, document_id, content, description, created_at
		FROM document_versions
		WHERE document_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, documentID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var versions []models.DocumentVersion
	for rows.Next() {
		var v models.DocumentVersion
		err := rows.Scan(&v.ID, &v.DocumentID, &v.Content, &v.Description, &v.CreatedAt)
		if err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, nil
}

// CreateUser creates a new user record.
func (s *PostgresStore) CreateUser(ctx context.Context, username, email string) (*models.User, error) {
	user := &models.User{}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO users (username, email)
		VALUES ($1, $2)
		RETURNING id, username, email, created_at
	`, username, email).Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// GetUserByID retrieves a user by ID.
func (s *PostgresStore) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user := &models.User{}
	err := s.pool.QueryRow(ctx, `
		SELECT id, username, email, created_at
		FROM users WHERE id = $1
	`, id).Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return user, nil
}

// SearchUsers finds users whose username or email contains the query,
// case-insensitively.
func (s *PostgresStore) SearchUsers(ctx context.Context, query string, limit int) ([]models.User, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, username, email, created_at
		FROM users
		WHERE username ILIKE '%' || $1 || '%' OR email ILIKE '%' || $1 || '%'
		ORDER BY username
		LIMIT $2
	`, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var user models.User
		err := rows.Scan(&user.ID, &user.Username, &user.Email, &user.CreatedAt)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, nil
}

// CountUsers returns the total number of users.
func (s *PostgresStore) CountUsers(ctx context.Context) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&count)
	return count, err
}

// AddCollaborator grants a user access to a document. Returns
// ErrDuplicateCollaborator if the user already has access.
func (s *PostgresStore) AddCollaborator(ctx context.Context, documentID, userID uuid.UUID, permission string) (*models.Collaborator, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM collaborators WHERE document_id = $1 AND user_id = $2)
	`, documentID, userID).Scan(&exists)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrDuplicateCollaborator
	}

	collab := &models.Collaborator{}
	err = s.pool.QueryRow(ctx, `
		INSERT INTO collaborators (document_id, user_id, permission_level)
		VALUES ($1, $2, $3)
		RETURNING id, document_id, user_id, permission_level, added_at
	`, documentID, userID, permission).Scan(
		&collab.ID,
		&collab.DocumentID,
		&collab.UserID,
		&collab.Permission,
		&collab.AddedAt,
	)
	if err != nil {
		return nil, err
	}
	return collab, nil
}

// UpdateCollaboratorPermission changes a collaborator's permission
// level. Returns false if no such collaborator exists on the document.
func (s *PostgresStore) UpdateCollaboratorPermission(ctx context.Context, documentID, collaboratorID uuid.UUID, permission string) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE collaborators SET permission_level = $3
		WHERE document_id = $1 AND id = $2
	`, documentID, collaboratorID, permission)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// ListCollaborators retrieves the collaborators on a document with
// their usernames.
func (s *PostgresStore) ListCollaborators(ctx context.Context, documentID uuid.UUID) ([]models.Collaborator, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT c.id, c.document_id, c.user_id, u.username, c.permission_level, c.added_at
		FROM collaborators c
		JOIN users u ON u.id = c.user_id
		WHERE c.document_id = $1
		ORDER BY c.added_at
	`, documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var collabs []models.Collaborator
	for rows.Next() {
		var c models.Collaborator
		err := rows.Scan(&c.ID, &c.DocumentID, &c.UserID, &c.Username, &c.Permission, &c.AddedAt)
		if err != nil {
			return nil, err
		}
		collabs = append(collabs, c)
	}
	return collabs, nil
}
