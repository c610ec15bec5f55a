// Package codepad provides a client for the CodePad collaborative
// editing service: a REST client for documents and collaborators, and
// an editor session that keeps a local buffer in sync over websocket.
package codepad

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const csrfCookie = "codepad_csrf"

// Client is a CodePad API client.
type Client struct {
	BaseURL    string
	UserID     string // optional, sent as X-User-ID on document creation
	HTTPClient *http.Client

	csrfToken string
}

// NewClient creates a new CodePad client.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}

	// Mutating endpoints use double-submit: the same random token
	// goes out as a cookie and a header on every call.
	tokenBytes := make([]byte, 16)
	rand.Read(tokenBytes)

	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
		csrfToken:  hex.EncodeToString(tokenBytes),
	}
}

// WSURL returns the websocket sync endpoint for a document.
func (c *Client) WSURL(documentID string) string {
	ws := c.BaseURL
	switch {
	case strings.HasPrefix(ws, "https://"):
		ws = "wss://" + strings.TrimPrefix(ws, "https://")
	case strings.HasPrefix(ws, "http://"):
		ws = "ws://" + strings.TrimPrefix(ws, "http://")
	}
	return ws + "/ws/editor/" + documentID
}

// doRequest performs an HTTP request. Mutating requests carry the
// anti-forgery token.
func (c *Client) doRequest(method, path string, body []byte) ([]byte, error) {
	req, err := http.NewRequest(method, c.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	if c.UserID != "" {
		req.Header.Set("X-User-ID", c.UserID)
	}
	if method != "GET" && method != "HEAD" {
		req.Header.Set("X-CSRF-Token", c.csrfToken)
		req.AddCookie(&http.Cookie{Name: csrfCookie, Value: c.csrfToken})
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 400 {
		var errResp struct {
			Error string `json:"error"`
		}
		json.Unmarshal(respBody, &errResp)
		return nil, fmt.Errorf("codepad error %d: %s", resp.StatusCode, errResp.Error)
	}

	return respBody, nil
}

// Document represents a document.
type Document struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Language  string    `json:"language"`
	CreatedBy string    `json:"created_by,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateDocumentRequest is the request body for document creation.
type CreateDocumentRequest struct {
	Title    string `json:"title"`
	Language string `json:"language,omitempty"`
}

// CreateDocument creates a new document.
func (c *Client) CreateDocument(title, language string) (*Document, error) {
	body, _ := json.Marshal(CreateDocumentRequest{Title: title, Language: language})
	respBody, err := c.doRequest("POST", "/api/documents", body)
	if err != nil {
		return nil, err
	}

	var doc Document
	if err := json.Unmarshal(respBody, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// GetDocument retrieves a document by id.
func (c *Client) GetDocument(documentID string) (*Document, error) {
	respBody, err := c.doRequest("GET", "/api/documents/"+documentID, nil)
	if err != nil {
		return nil, err
	}

	var doc Document
	if err := json.Unmarshal(respBody, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// DocumentsResponse is the response from listing documents.
type DocumentsResponse struct {
	Documents []Document `json:"documents"`
	Total     int        `json:"total"`
}

// ListDocuments lists documents.
func (c *Client) ListDocuments(limit, offset int) (*DocumentsResponse, error) {
	path := fmt.Sprintf("/api/documents?limit=%d&offset=%d", limit, offset)
	respBody, err := c.doRequest("GET", path, nil)
	if err != nil {
		return nil, err
	}

	var resp DocumentsResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// User represents a directory entry.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
}

// CreateUser registers a user in the directory.
func (c *Client) CreateUser(username, email string) (*User, error) {
	body, _ := json.Marshal(map[string]string{"username": username, "email": email})
	respBody, err := c.doRequest("POST", "/api/users", body)
	if err != nil {
		return nil, err
	}

	var user User
	if err := json.Unmarshal(respBody, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// SearchUsers finds users matching a query of at least two characters.
func (c *Client) SearchUsers(query string, limit int) ([]User, error) {
	path := fmt.Sprintf("/api/users/search?q=%s&limit=%d", url.QueryEscape(query), limit)
	respBody, err := c.doRequest("GET", path, nil)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Users []User `json:"users"`
	}
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, err
	}
	return resp.Users, nil
}

// Collaborator represents a user's access to a document.
type Collaborator struct {
	ID              string `json:"id"`
	UserID          string `json:"user_id"`
	Username        string `json:"username,omitempty"`
	PermissionLevel string `json:"permission_level"`
}

// CollaboratorResponse is the envelope returned by collaborator
// mutations.
type CollaboratorResponse struct {
	Success      bool          `json:"success"`
	Error        string        `json:"error,omitempty"`
	Collaborator *Collaborator `json:"collaborator,omitempty"`
}

// AddCollaborator grants a user access to a document.
func (c *Client) AddCollaborator(documentID, userID, permission string) (*CollaboratorResponse, error) {
	body, _ := json.Marshal(map[string]string{
		"user_id":          userID,
		"permission_level": permission,
	})
	respBody, err := c.doRequest("POST", "/api/documents/"+documentID+"/collaborators", body)
	if err != nil {
		return nil, err
	}

	var resp CollaboratorResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// UpdatePermission changes a collaborator's permission level.
func (c *Client) UpdatePermission(documentID, collaboratorID, permission string) (*CollaboratorResponse, error) {
	body, _ := json.Marshal(map[string]string{"permission_level": permission})
	path := "/api/documents/" + documentID + "/collaborators/" + collaboratorID
	respBody, err := c.doRequest("PUT", path, body)
	if err != nil {
		return nil, err
	}

	var resp CollaboratorResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListCollaborators lists the collaborators on a document.
func (c *Client) ListCollaborators(documentID string) ([]Collaborator, error) {
	respBody, err := c.doRequest("GET", "/api/documents/"+documentID+"/collaborators", nil)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Collaborators []Collaborator `json:"collaborators"`
	}
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, err
	}
	return resp.Collaborators, nil
}

// HealthResponse is the response from the health endpoint.
type HealthResponse struct {
	Status    string                 `json:"status"`
	Version   string                 `json:"version"`
	Checks    map[string]interface{} `json:"checks"`
	Timestamp string                 `json:"timestamp"`
}

// Health checks server health.
func (c *Client) Health() (*HealthResponse, error) {
	respBody, err := c.doRequest("GET", "/health", nil)
	if err != nil {
		return nil, err
	}

	var resp HealthResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
