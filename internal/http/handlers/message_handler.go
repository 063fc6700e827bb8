// Message HTTP handlers.
//
// This file exposes the conversation endpoints:
//   - GET  /chatrooms/{id}/messages        (visible window + typing + cursor)
//   - POST /chatrooms/{id}/messages        (send; schedules the peer reply)
//   - POST /chatrooms/{id}/messages/older  (fetch the next older page)
//
// Idempotency: when the client supplies an Idempotency-Key and a previous
// successful send exists for (user, chatroom, key), the handler returns the
// recorded message with `Idempotency-Replayed: true` instead of appending a
// duplicate. The simulated network makes client retries routine, so this is
// load-bearing, not decoration.
package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/chatspace-dev/go-chatspace-backend/internal/domain"
	"github.com/chatspace-dev/go-chatspace-backend/internal/http/middleware"
	"github.com/chatspace-dev/go-chatspace-backend/internal/state"
	"github.com/chatspace-dev/go-chatspace-backend/internal/storage"
	"github.com/chatspace-dev/go-chatspace-backend/internal/utils"
)

//
// DTOs
//

// PostMessageRequest is the JSON payload for sending a message. Content may
// be empty when an image is attached.
type PostMessageRequest struct {
	Content  string `json:"content"`
	ImageURL string `json:"imageUrl"`
}

// PostMessageResponse is the envelope for a newly appended message. Typing
// reports whether the simulated peer is composing a reply.
type PostMessageResponse struct {
	Message *domain.Message `json:"message"`
	Typing  bool            `json:"typing"`
}

// CursorMeta is the pagination state echoed with message listings.
type CursorMeta struct {
	Page     int  `json:"page"`
	PageSize int  `json:"pageSize"`
	HasMore  bool `json:"hasMore"`
	Total    int  `json:"total"`
}

// ListMessagesResponse contains the visible message window for a chatroom.
// Messages are newest-first.
type ListMessagesResponse struct {
	Messages []domain.Message `json:"messages"`
	Typing   bool             `json:"typing"`
	Cursor   CursorMeta       `json:"cursor"`
}

//
// Helpers
//

// clampPagination parses page/page_size query params with defaults and caps.
func clampPagination(c *gin.Context, defaultPageSize int) (page, pageSize int) {
	const maxPageSize = 100
	page = utils.AtoiDefault(c.Query("page"), 1)
	if page < 1 {
		page = 1
	}
	pageSize = utils.AtoiDefault(c.Query("page_size"), defaultPageSize)
	if pageSize < 1 {
		pageSize = 1
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return
}

//
// Handlers
//

// ListMessages returns the visible window of a chatroom's log: the newest
// page*page_size messages. The window is cumulative — page 2 includes page 1
// — mirroring the grow-on-scroll reading model.
func (h *Handlers) ListMessages(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if !h.app.Directory.Has(id) {
		fail(c, http.StatusNotFound, ErrCodeNotFound, "chatroom not found")
		return
	}

	page, pageSize := clampPagination(c, h.app.Conversations.CursorInfo(id).PageSize)

	logMsgs := h.app.Conversations.Log(id)
	limit := page * pageSize
	if limit > len(logMsgs) {
		limit = len(logMsgs)
	}

	ok(c, http.StatusOK, ListMessagesResponse{
		Messages: logMsgs[:limit],
		Typing:   h.app.Conversations.Typing(id),
		Cursor: CursorMeta{
			Page:     page,
			PageSize: pageSize,
			HasMore:  h.app.Conversations.CursorInfo(id).HasMore,
			Total:    len(logMsgs),
		},
	})
}

// PostMessage appends a message and schedules the simulated peer reply.
func (h *Handlers) PostMessage(c *gin.Context) {
	ctx := c.Request.Context()
	id := strings.TrimSpace(c.Param("id"))

	var req PostMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Content) == "" && req.ImageURL == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "content or imageUrl required")
		return
	}

	currentUser := h.userID(c)

	// Replay path: serve the previously recorded message.
	idemKey, _ := middleware.GetIdempotencyKey(c)
	if idemKey != "" && h.db != nil {
		if rec, err := storage.GetIdempotency(ctx, h.db, currentUser, id, idemKey, time.Now().UTC()); err == nil && rec != nil {
			if prev, found := h.app.Conversations.Message(rec.MessageID); found {
				c.Header("Idempotency-Replayed", "true")
				ok(c, http.StatusOK, PostMessageResponse{
					Message: &prev,
					Typing:  h.app.Conversations.Typing(id),
				})
				return
			}
		}
	}

	msg, err := h.app.Conversations.Send(ctx, id, req.Content, req.ImageURL)
	if err != nil {
		if errors.Is(err, state.ErrChatroomNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "chatroom not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	if msg == nil {
		// Whitespace-only slipped past the edge guard.
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "content or imageUrl required")
		return
	}

	// Store path — best effort; a failed record only costs dedup on retry.
	if idemKey != "" && h.db != nil {
		_, _ = storage.CreateIdempotency(ctx, h.db, currentUser, id, idemKey, msg.ID, http.StatusCreated, h.idemTTL)
	}

	ok(c, http.StatusCreated, PostMessageResponse{Message: msg, Typing: true})
}

// LoadOlderMessages fetches the next synthetic older page into the log and
// returns the refreshed cursor.
func (h *Handlers) LoadOlderMessages(c *gin.Context) {
	ctx := c.Request.Context()
	id := strings.TrimSpace(c.Param("id"))

	if err := h.app.Conversations.LoadOlder(ctx, id); err != nil {
		if errors.Is(err, state.ErrChatroomNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "chatroom not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}

	info := h.app.Conversations.CursorInfo(id)
	ok(c, http.StatusOK, CursorMeta{
		Page:     info.Page,
		PageSize: info.PageSize,
		HasMore:  info.HasMore,
		Total:    len(h.app.Conversations.Log(id)),
	})
}
