package state

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/chatspace-dev/go-chatspace-backend/internal/domain"
	"github.com/chatspace-dev/go-chatspace-backend/internal/storage"
)

const (
	// DefaultPageSize is the visible-window page size.
	DefaultPageSize = 20
	// DefaultFetchSize is the synthetic older-page batch size.
	DefaultFetchSize = 10
)

// cursor is the per-room backward pagination state.
type cursor struct {
	page    int
	hasMore bool
	loading bool
}

// Cursor is the externally visible pagination state of one room.
type Cursor struct {
	Page     int  `json:"page"`
	PageSize int  `json:"pageSize"`
	HasMore  bool `json:"hasMore"`
}

// Conversations owns the per-chatroom message logs, their pagination
// cursors, the per-room typing flags, and the simulated peer-reply
// orchestration.
//
// Logs are kept newest-first; timestamps are monotonically non-increasing
// from index 0. The visible window is a pure derived view (Visible) and
// paging never mutates a log.
type Conversations struct {
	// Exists answers whether a chatroom id is still live. Deferred
	// completions (peer replies, page fetches) re-check it before writing
	// so work targeting a deleted room is discarded, never written into a
	// re-created room of the same id.
	Exists func(chatroomID string) bool

	// OnMessage, when set, receives every landed message so the directory
	// can refresh its last-message metadata.
	OnMessage func(ctx context.Context, chatroomID, content string, at time.Time)

	// FetchOlder synthesizes the next older batch, anchored strictly
	// before anchor. Swapping in a real backend only needs to replace this
	// hook. When nil, synthesizeOlder is used.
	FetchOlder func(chatroomID string, anchor time.Time, n int) []domain.Message

	// Delays and Sleep are the simulated-network knobs; Responder supplies
	// reply text and thinking time.
	Delays    Delays
	Sleep     func(time.Duration)
	Responder *Responder

	PageSize  int
	FetchSize int

	// spawn runs the deferred peer-reply delivery; tests replace it to run
	// synchronously.
	spawn func(func())

	mu      sync.Mutex
	store   storage.Store
	logs    map[string][]domain.Message
	cursors map[string]*cursor
	typing  map[string]bool
	lastErr error
}

// NewConversations builds a Conversations container over store with default
// page sizes, delays, and a time-seeded responder. Call Hydrate before use
// to restore persisted logs.
func NewConversations(store storage.Store) *Conversations {
	return &Conversations{
		Delays:    DefaultDelays(),
		Responder: NewResponder(time.Now().UnixNano()),
		PageSize:  DefaultPageSize,
		FetchSize: DefaultFetchSize,
		spawn:     func(f func()) { go f() },
		store:     store,
		logs:      make(map[string][]domain.Message),
		cursors:   make(map[string]*cursor),
		typing:    make(map[string]bool),
	}
}

// Hydrate restores persisted message logs. Cursors and typing flags are
// transient and start fresh.
func (c *Conversations) Hydrate(ctx context.Context) {
	var logs map[string][]domain.Message
	if !c.store.Load(ctx, storage.KeyMessages, &logs) || logs == nil {
		return
	}
	c.mu.Lock()
	c.logs = logs
	c.mu.Unlock()
}

// Send appends a self message and schedules the simulated peer reply.
//
// A call with empty trimmed content and no image is a silent no-op (the
// guard belongs to the input form, not to the state machine, so it is not an
// error). A missing chatroom is ErrChatroomNotFound. The returned message is
// the appended self message.
func (c *Conversations) Send(ctx context.Context, chatroomID, content, imageURL string) (*domain.Message, error) {
	tr := otel.Tracer("state/Conversations")
	ctx, span := tr.Start(ctx, "Send",
		trace.WithAttributes(attribute.String("chatroom.id", chatroomID)),
	)
	defer span.End()

	content = strings.TrimSpace(content)
	if content == "" && imageURL == "" {
		return nil, nil
	}
	if c.Exists != nil && !c.Exists(chatroomID) {
		return nil, ErrChatroomNotFound
	}

	msg := domain.Message{
		ID:         uuid.NewString(),
		ChatroomID: chatroomID,
		Content:    content,
		Sender:     domain.SenderSelf,
		Timestamp:  time.Now().UTC(),
		ImageURL:   imageURL,
	}

	c.mu.Lock()
	c.logs[chatroomID] = append([]domain.Message{msg}, c.logs[chatroomID]...)
	c.typing[chatroomID] = true
	c.lastErr = nil
	c.persistLocked(ctx)
	c.mu.Unlock()

	if c.OnMessage != nil {
		c.OnMessage(ctx, chatroomID, msg.Content, msg.Timestamp)
	}

	think := c.Responder.ThinkTime(c.Delays.ReplyMin, c.Delays.ReplyMax)
	c.spawn(func() {
		c.deliverReply(context.WithoutCancel(ctx), chatroomID, content, think)
	})

	out := msg
	return &out, nil
}

// deliverReply completes a scheduled peer reply after the thinking delay.
// The target room is re-checked under the lock: a reply whose room was
// deleted mid-flight is dropped without a trace beyond a debug log.
func (c *Conversations) deliverReply(ctx context.Context, chatroomID, prompt string, think time.Duration) {
	c.pause(think)

	reply := c.Responder.Reply(prompt)

	c.mu.Lock()
	if c.Exists != nil && !c.Exists(chatroomID) {
		delete(c.typing, chatroomID)
		c.mu.Unlock()
		log.Debug().Str("chatroom_id", chatroomID).Msg("peer reply dropped: chatroom gone")
		return
	}

	msg := domain.Message{
		ID:         uuid.NewString(),
		ChatroomID: chatroomID,
		Content:    reply,
		Sender:     domain.SenderPeer,
		Timestamp:  time.Now().UTC(),
	}
	c.logs[chatroomID] = append([]domain.Message{msg}, c.logs[chatroomID]...)
	c.typing[chatroomID] = false
	c.persistLocked(ctx)
	c.mu.Unlock()

	if c.OnMessage != nil {
		c.OnMessage(ctx, chatroomID, msg.Content, msg.Timestamp)
	}
}

// LoadOlder fetches the next synthetic older page for a room and appends it
// to the tail of the log. It is a no-op while a load is in flight or once
// hasMore has gone false; repeated calls then leave the log untouched.
func (c *Conversations) LoadOlder(ctx context.Context, chatroomID string) error {
	tr := otel.Tracer("state/Conversations")
	ctx, span := tr.Start(ctx, "LoadOlder",
		trace.WithAttributes(attribute.String("chatroom.id", chatroomID)),
	)
	defer span.End()

	if c.Exists != nil && !c.Exists(chatroomID) {
		return ErrChatroomNotFound
	}

	c.mu.Lock()
	cur := c.cursorLocked(chatroomID)
	if !cur.hasMore || cur.loading {
		c.mu.Unlock()
		return nil
	}
	cur.loading = true
	c.mu.Unlock()

	c.pause(c.Delays.PageFetch)

	c.mu.Lock()
	defer c.mu.Unlock()

	// The room may have been deleted while we were suspended; its cursor
	// is gone then and the fetched page must be discarded.
	cur, ok := c.cursors[chatroomID]
	if !ok || (c.Exists != nil && !c.Exists(chatroomID)) {
		log.Debug().Str("chatroom_id", chatroomID).Msg("older page dropped: chatroom gone")
		return nil
	}
	cur.loading = false

	anchor := time.Now().UTC()
	if logs := c.logs[chatroomID]; len(logs) > 0 {
		anchor = logs[len(logs)-1].Timestamp
	}

	n := c.FetchSize
	if n <= 0 {
		n = DefaultFetchSize
	}
	fetch := c.FetchOlder
	if fetch == nil {
		fetch = synthesizeOlder
	}
	batch := fetch(chatroomID, anchor, n)

	c.logs[chatroomID] = append(c.logs[chatroomID], batch...)
	cur.hasMore = len(batch) == n
	c.lastErr = nil
	c.persistLocked(ctx)
	return nil
}

// synthesizeOlder fabricates n historical messages with strictly decreasing
// timestamps, 60s apart, anchored before anchor. Senders alternate starting
// with self, mirroring the backend this models.
func synthesizeOlder(chatroomID string, anchor time.Time, n int) []domain.Message {
	out := make([]domain.Message, 0, n)
	for i := 0; i < n; i++ {
		sender := domain.SenderSelf
		if i%2 == 1 {
			sender = domain.SenderPeer
		}
		out = append(out, domain.Message{
			ID:         uuid.NewString(),
			ChatroomID: chatroomID,
			Content:    fmt.Sprintf("This is an older message #%d", i+1),
			Sender:     sender,
			Timestamp:  anchor.Add(-time.Duration(i+1) * time.Minute),
		})
	}
	return out
}

// NextPage widens the visible window by one page.
func (c *Conversations) NextPage(chatroomID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cursorLocked(chatroomID).page++
}

// ResetPagination rewinds a room's cursor to page 1 with hasMore true. The
// underlying log is untouched.
func (c *Conversations) ResetPagination(chatroomID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cur := c.cursorLocked(chatroomID)
	cur.page = 1
	cur.hasMore = true
}

// Visible returns the derived visible window: the first page*pageSize
// messages of the log, or the whole log when shorter.
func (c *Conversations) Visible(chatroomID string) []domain.Message {
	c.mu.Lock()
	defer c.mu.Unlock()

	logs := c.logs[chatroomID]
	limit := c.cursorLocked(chatroomID).page * c.pageSize()
	if limit > len(logs) {
		limit = len(logs)
	}
	out := make([]domain.Message, limit)
	copy(out, logs[:limit])
	return out
}

// Log returns a copy of the full, unpaginated log for a room.
func (c *Conversations) Log(chatroomID string) []domain.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	logs := c.logs[chatroomID]
	out := make([]domain.Message, len(logs))
	copy(out, logs)
	return out
}

// Message looks a message up by id across all logs (used for idempotent
// replay of message POSTs).
func (c *Conversations) Message(id string) (domain.Message, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, logMsgs := range c.logs {
		for _, m := range logMsgs {
			if m.ID == id {
				return m, true
			}
		}
	}
	return domain.Message{}, false
}

// Typing reports whether a peer reply is pending for the room.
func (c *Conversations) Typing(chatroomID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.typing[chatroomID]
}

// CursorInfo returns the room's pagination state.
func (c *Conversations) CursorInfo(chatroomID string) Cursor {
	c.mu.Lock()
	defer c.mu.Unlock()
	cur := c.cursorLocked(chatroomID)
	return Cursor{Page: cur.page, PageSize: c.pageSize(), HasMore: cur.hasMore}
}

// DropLog removes a room's log, cursor, and typing flag (the delete
// cascade) and persists the shrunken map.
func (c *Conversations) DropLog(ctx context.Context, chatroomID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.logs, chatroomID)
	delete(c.cursors, chatroomID)
	delete(c.typing, chatroomID)
	c.persistLocked(ctx)
}

// Err returns the last recorded asynchronous failure, if any.
func (c *Conversations) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

func (c *Conversations) cursorLocked(chatroomID string) *cursor {
	cur, ok := c.cursors[chatroomID]
	if !ok {
		cur = &cursor{page: 1, hasMore: true}
		c.cursors[chatroomID] = cur
	}
	return cur
}

func (c *Conversations) pageSize() int {
	if c.PageSize > 0 {
		return c.PageSize
	}
	return DefaultPageSize
}

func (c *Conversations) persistLocked(ctx context.Context) {
	c.store.Save(ctx, storage.KeyMessages, c.logs)
}

func (c *Conversations) pause(d time.Duration) {
	if c.Sleep != nil {
		c.Sleep(d)
		return
	}
	time.Sleep(d)
}
