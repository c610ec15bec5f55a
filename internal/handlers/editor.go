package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/codepad-protocol/codepad/internal/hub"
)

// upgrader accepts any origin; session establishment and page-level
// access control belong to the hosting application.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// EditorSocket upgrades the connection and joins the session to the
// document's room. The room pushes the content snapshot unprompted
// once the session is registered.
func (h *Handler) EditorSocket(w http.ResponseWriter, r *http.Request) {
	documentID, err := uuid.Parse(chi.URLParam(r, "documentID"))
	if err != nil {
		h.Error(w, http.StatusBadRequest, "invalid document ID format")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		h.logger.Debug().Err(err).Msg("websocket upgrade failed")
		return
	}

	session := hub.NewSession(conn, h.logger)
	if err := h.hub.Join(r.Context(), documentID, session); err != nil {
		code := websocket.CloseInternalServerErr
		if errors.Is(err, hub.ErrDocumentNotFound) {
			code = websocket.ClosePolicyViolation
		}
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(code, err.Error()))
		conn.Close()
		return
	}

	session.Run()
}
