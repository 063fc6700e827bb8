// Chatroom HTTP handlers.
//
// This file exposes REST endpoints for the chatroom directory:
//   - GET    /chatrooms              (list, optional ?search= filter)
//   - POST   /chatrooms              (create)
//   - DELETE /chatrooms/:id          (delete, cascades into the message log)
//   - PUT    /chatrooms/:id/select   (mark active room)
//   - DELETE /chatrooms/selection    (clear active room)
package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/chatspace-dev/go-chatspace-backend/internal/domain"
	"github.com/chatspace-dev/go-chatspace-backend/internal/state"
)

//
// DTOs
//

// CreateChatroomRequest is the JSON payload for creating a chatroom.
type CreateChatroomRequest struct {
	Title string `json:"title" binding:"required"`
}

// ListChatroomsResponse wraps the (possibly filtered) directory view.
type ListChatroomsResponse struct {
	Chatrooms  []domain.Chatroom `json:"chatrooms"`
	Search     string            `json:"search,omitempty"`
	SelectedID string            `json:"selectedId,omitempty"`
}

//
// Handlers
//

// ListChatrooms returns the directory, filtered when ?search= is present.
// The filter is applied to the directory state so subsequent views share it,
// matching the live-filter semantics of the product.
func (h *Handlers) ListChatrooms(c *gin.Context) {
	if search, present := c.GetQuery("search"); present {
		h.app.Directory.SetFilter(search)
	}

	ok(c, http.StatusOK, ListChatroomsResponse{
		Chatrooms:  h.app.Directory.Filtered(),
		Search:     h.app.Directory.Query(),
		SelectedID: h.app.Directory.SelectedID(),
	})
}

// CreateChatroom creates a room and returns it. The new room is prepended to
// the directory (newest first).
func (h *Handlers) CreateChatroom(c *gin.Context) {
	var req CreateChatroomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "title required")
		return
	}

	room, err := h.app.Directory.Create(c.Request.Context(), req.Title)
	if err != nil {
		if code, msg, okV := validationStatus(err); okV {
			fail(c, http.StatusBadRequest, code, msg)
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeCreateFailed, err.Error())
		return
	}

	ok(c, http.StatusCreated, room)
}

// DeleteChatroom removes a room. The conversation log cascade runs inside
// the directory; in-flight peer replies for the room are dropped.
func (h *Handlers) DeleteChatroom(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))

	if err := h.app.Directory.Remove(c.Request.Context(), id); err != nil {
		if errors.Is(err, state.ErrChatroomNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "chatroom not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}

	noContent(c)
}

// SelectChatroom marks a room as the active one. The directory tolerates a
// dangling selection, but the API rejects ids it has never seen.
func (h *Handlers) SelectChatroom(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if !h.app.Directory.Has(id) {
		fail(c, http.StatusNotFound, ErrCodeNotFound, "chatroom not found")
		return
	}

	h.app.Directory.Select(id)
	noContent(c)
}

// ClearSelection clears the active room marker.
func (h *Handlers) ClearSelection(c *gin.Context) {
	h.app.Directory.ClearSelection()
	noContent(c)
}
