package store

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/codepad-protocol/codepad/internal/models"
)

// SQLiteStore handles SQLite database operations. It is the local and
// development fallback when no DATABASE_URL is configured.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store.
// If dbPath is empty, defaults to "./data/codepad.db"
func NewSQLiteStore(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	if dbPath == "" {
		dbPath = "./data/codepad.db"
	}

	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, err
	}

	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	store := &SQLiteStore{db: db}

	// Initialize schema
	if err := store.initSchema(ctx); err != nil {
		return nil, err
	}

	return store, nil
}

// initSchema creates tables if they don't exist.
func (s *SQLiteStore) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		username TEXT UNIQUE NOT NULL,
		email TEXT DEFAULT '',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS documents (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		content TEXT DEFAULT '',
		language TEXT DEFAULT 'plain',
		created_by TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS collaborators (
		id TEXT PRIMARY KEY,
		document_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		permission_level TEXT NOT NULL DEFAULT 'view',
		added_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE (document_id, user_id)
	);

	CREATE TABLE IF NOT EXISTS document_versions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		document_id TEXT NOT NULL,
		content TEXT NOT NULL,
		description TEXT DEFAULT '',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_documents_updated ON documents(updated_at);
	CREATE INDEX IF NOT EXISTS idx_collaborators_document ON collaborators(document_id);
	CREATE INDEX IF NOT EXISTS idx_versions_document ON document_versions(document_id);
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() {
	s.db.Close()
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// CreateDocument creates a new document.
func (s *SQLiteStore) CreateDocument(ctx context.Context, title, language string, createdBy *uuid.UUID) (*models.Document, error) {
	id := uuid.New().String()
	now := time.Now()

	var createdByStr *string
	if createdBy != nil {
		str := createdBy.String()
		createdByStr = &str
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (id, title, content, language, created_by, created_at, updated_at)
		VALUES (?, ?, '', ?, ?, ?, ?)
	`, id, title, language, createdByStr, now, now)
	if err != nil {
		return nil, err
	}

	return s.GetDocument(ctx, uuid.MustParse(id))
}

// GetDocument retrieves a document by ID.
func (s *SQLiteStore) GetDocument(ctx context.Context, id uuid.UUID) (*models.Document, error) {
	doc := &models.Document{}
	var idStr string
	var createdByStr *string

	err := s.db.QueryRowContext(ctx, `
		SELECT id, title, content, language, created_by, created_at, updated_at
		FROM documents WHERE id = ?
	`, id.String()).Scan(
		&idStr,
		&doc.Title,
		&doc.Content,
		&doc.Language,
		&createdByStr,
		&doc.CreatedAt,
		&doc.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	doc.ID = uuid.MustParse(idStr)
	if createdByStr != nil {
		createdBy := uuid.MustParse(*createdByStr)
		doc.CreatedBy = &createdBy
	}
	return doc, nil
}

// ListDocuments retrieves documents with pagination, newest activity first.
func (s *SQLiteStore) ListDocuments(ctx context.Context, limit, offset int) ([]models.Document, int, error) {
	var total int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, content, language, created_by, created_at, updated_at
		FROM documents
		ORDER BY updated_at DESC
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var docs []models.Document
	for rows.Next() {
		var doc models.Document
		var idStr string
		var createdByStr *string

		err := rows.Scan(
			&idStr,
			&doc.Title,
			&doc.Content,
			&doc.Language,
			&createdByStr,
			&doc.CreatedAt,
			&doc.UpdatedAt,
		)
		if err != nil {
			return nil, 0, err
		}

		doc.ID = uuid.MustParse(idStr)
		if createdByStr != nil {
			createdBy := uuid.MustParse(*createdByStr)
			doc.CreatedBy = &createdBy
		}
		docs = append(docs, doc)
	}

	return docs, total, nil
}

// UpdateDocumentContent overwrites a document's content and bumps its
// updated_at timestamp.
func (s *SQLiteStore) UpdateDocumentContent(ctx context.Context, id uuid.UUID, content string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE documents SET content = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?
	`, content, id.String())
	return err
}

// CountDocuments returns the total number of documents.
func (s *SQLiteStore) CountDocuments(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&count)
	return count, err
}

// CreateVersion records a content snapshot for a document.
func (s *SQLiteStore) CreateVersion(ctx context.Context, documentID uuid.UUID, content, description string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO document_versions (document_id, content, description)
		VALUES (?, ?, ?)
	`, documentID.String(), content, description)
	return err
}

// ListVersions retrieves the most recent snapshots for a document.
func (s *SQLiteStore) ListVersions(ctx context.Context, documentID uuid.UUID, limit int) ([]models.DocumentVersion, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, document_id, content, description, created_at
		FROM document_versions
		WHERE document_id = ?
		ORDER BY created_at DESC
		LIMIT ?
	`, documentID.String(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var versions []models.DocumentVersion
	for rows.Next() {
		var v models.DocumentVersion
		var docIDStr string
		err := rows.Scan(&v.ID, &docIDStr, &v.Content, &v.Description, &v.CreatedAt)
		if err != nil {
			return nil, err
		}
		v.DocumentID = uuid.MustParse(docIDStr)
		versions = append(versions, v)
	}
	return versions, nil
}

// CreateUser creates a new user record.
func (s *SQLiteStore) CreateUser(ctx context.Context, username, email string) (*models.User, error) {
	id := uuid.New().String()
	now := time.Now()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, username, email, created_at)
		VALUES (?, ?, ?, ?)
	`, id, username, email, now)
	if err != nil {
		return nil, err
	}

	return s.GetUserByID(ctx, uuid.MustParse(id))
}

// GetUserByID retrieves a user by ID.
func (s *SQLiteStore) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user := &models.User{}
	var idStr string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, username, email, created_at
		FROM users WHERE id = ?
	`, id.String()).Scan(
		&idStr,
		&user.Username,
		&user.Email,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	user.ID = uuid.MustParse(idStr)
	return user, nil
}

// SearchUsers finds users whose username or email contains the query,
// case-insensitively.
func (s *SQLiteStore) SearchUsers(ctx context.Context, query string, limit int) ([]models.User, error) {
	pattern := "%" + query + "%"
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, username, email, created_at
		FROM users
		WHERE username LIKE ? OR email LIKE ?
		ORDER BY username
		LIMIT ?
	`, pattern, pattern, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var user models.User
		var idStr string
		err := rows.Scan(&idStr, &user.Username, &user.Email, &user.CreatedAt)
		if err != nil {
			return nil, err
		}
		user.ID = uuid.MustParse(idStr)
		users = append(users, user)
	}
	return users, nil
}

// CountUsers returns the total number of users.
func (s *SQLiteStore) CountUsers(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count)
	return count, err
}

// AddCollaborator grants a user access to a document. Returns
// ErrDuplicateCollaborator if the user already has access.
func (s *SQLiteStore) AddCollaborator(ctx context.Context, documentID, userID uuid.UUID, permission string) (*models.Collaborator, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM collaborators WHERE document_id = ? AND user_id = ?
	`, documentID.String(), userID.String()).Scan(&exists)
	if err != nil {
		return nil, err
	}
	if exists > 0 {
		return nil, ErrDuplicateCollaborator
	}

	id := uuid.New().String()
	now := time.Now()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO collaborators (id, document_id, user_id, permission_level, added_at)
		VALUES (?, ?, ?, ?, ?)
	`, id, documentID.String(), userID.String(), permission, now)
	if err != nil {
		return nil, err
	}

	return &models.Collaborator{
		ID:         uuid.MustParse(id),
		DocumentID: documentID,
		UserID:     userID,
		Permission: permission,
		AddedAt:    now,
	}, nil
}

// UpdateCollaboratorPermission changes a collaborator's permission
// level. Returns false if no such collaborator exists on the document.
func (s *SQLiteStore) UpdateCollaboratorPermission(ctx context.Context, documentID, collaboratorID uuid.UUID, permission string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE collaborators SET permission_level = ?
		WHERE document_id = ? AND id = ?
	`, permission, documentID.String(), collaboratorID.String())
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// ListCollaborators retrieves the collaborators on a document with
// their usernames.
func (s *SQLiteStore) ListCollaborators(ctx context.Context, documentID uuid.UUID) ([]models.Collaborator, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.document_id, c.user_id, u.username, c.permission_level, c.added_at
		FROM collaborators c
		JOIN users u ON u.id = c.user_id
		WHERE c.document_id = ?
		ORDER BY c.added_at
	`, documentID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var collabs []models.Collaborator
	for rows.Next() {
		var c models.Collaborator
		var idStr, docIDStr, userIDStr string
		err := rows.Scan(&idStr, &docIDStr, &userIDStr, &c.Username, &c.Permission, &c.AddedAt)
		if err != nil {
			return nil, err
		}
		c.ID = uuid.MustParse(idStr)
		c.DocumentID = uuid.MustParse(docIDStr)
		c.UserID = uuid.MustParse(userIDStr)
		collabs = append(collabs, c)
	}
	return collabs, nil
}
