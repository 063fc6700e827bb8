package state

import (
	"context"
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

// Directory manages the ordered chatroom collection, the live search filter,
// and the single "currently viewed" pointer.
//
// Ordering invariant: new chatrooms always sort to the front; nothing else
// reorders the collection. In particular a new message only updates the
// room's last-message metadata in place (the original product never bumped
// rooms on activity, which is a known UX gap, not a bug fixed here).
type Directory struct {
	// Delays and Sleep are the simulated-network knobs.
	Delays Delays
	Sleep  func(time.Duration)

	// Cascade, when set, is invoked after a successful Remove so the
	// owning App can drop the room's conversation log.
	Cascade func(ctx context.Context, chatroomID string)

	mu         sync.Mutex
	store      storage.Store
	rooms      []domain.Chatroom
	query      string
	selectedID string
	lastErr    error
}

// NewDirectory builds a Directory over store with the default delays. Call
// Hydrate before use to restore persisted chatrooms.
func NewDirectory(store storage.Store) *Directory {
	return &Directory{
		Delays: DefaultDelays(),
		store:  store,
	}
}

// Hydrate restores the persisted chatroom collection, if any.
func (d *Directory) Hydrate(ctx context.Context) {
	var rooms []domain.Chatroom
	if !d.store.Load(ctx, storage.KeyChatrooms, &rooms) {
		return
	}
	d.mu.Lock()
	d.rooms = rooms
	d.mu.Unlock()
}

// Create validates the title, simulates the round-trip, and prepends a new
// chatroom to the collection.
func (d *Directory) Create(ctx context.Context, title string) (*domain.Chatroom, error) {
	tr := otel.Tracer("state/Directory")
	ctx, span := tr.Start(ctx, "Create")
	defer span.End()

	title = strings.TrimSpace(title)
	if title == "" {
		return nil, &ValidationError{Field: "title", Reason: "must not be empty"}
	}

	d.pause(d.Delays.RoomMutate)

	room := domain.Chatroom{
		ID:        uuid.NewString(),
		Title:     title,
		CreatedAt: time.Now().UTC(),
	}

	d.mu.Lock()
	d.rooms = append([]domain.Chatroom{room}, d.rooms...)
	d.lastErr = nil
	d.persistLocked(ctx)
	d.mu.Unlock()

	log.Info().Str("chatroom_id", room.ID).Msg("chatroom created")
	out := room
	return &out, nil
}

// Remove deletes a chatroom, clears a selection pointing at it, and cascades
// to its conversation log. Unknown ids fail with ErrChatroomNotFound before
// any delay and without partial mutation.
func (d *Directory) Remove(ctx context.Context, id string) error {
	tr := otel.Tracer("state/Directory")
	ctx, span := tr.Start(ctx, "Remove",
		trace.WithAttributes(attribute.String("chatroom.id", id)),
	)
	defer span.End()

	if !d.Has(id) {
		return ErrChatroomNotFound
	}

	d.pause(d.Delays.RoomMutate)

	d.mu.Lock()
	idx := d.indexLocked(id)
	if idx < 0 {
		// Removed concurrently while we were suspended.
		d.mu.Unlock()
		return ErrChatroomNotFound
	}
	d.rooms = append(d.rooms[:idx:idx], d.rooms[idx+1:]...)
	if d.selectedID == id {
		d.selectedID = ""
	}
	d.lastErr = nil
	d.persistLocked(ctx)
	d.mu.Unlock()

	if d.Cascade != nil {
		d.Cascade(ctx, id)
	}
	log.Info().Str("chatroom_id", id).Msg("chatroom removed")
	return nil
}

// SetFilter records the live search term. Filtering itself is a pure derived
// view; see Filtered.
func (d *Directory) SetFilter(query string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.query = query
}

// Query returns the active search term.
func (d *Directory) Query() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.query
}

// Filtered returns the chatrooms whose title contains the active query,
// case-insensitively, preserving collection order. An empty (or blank) query
// yields the full collection.
func (d *Directory) Filtered() []domain.Chatroom {
	d.mu.Lock()
	defer d.mu.Unlock()

	if strings.TrimSpace(d.query) == "" {
		out := make([]domain.Chatroom, len(d.rooms))
		copy(out, d.rooms)
		return out
	}
	q := strings.ToLower(d.query)
	out := make([]domain.Chatroom, 0, len(d.rooms))
	for _, r := range d.rooms {
		if strings.Contains(strings.ToLower(r.Title), q) {
			out = append(out, r)
		}
	}
	return out
}

// Rooms returns a copy of the full, unfiltered collection.
func (d *Directory) Rooms() []domain.Chatroom {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]domain.Chatroom, len(d.rooms))
	copy(out, d.rooms)
	return out
}

// Select sets the currently viewed chatroom pointer. No existence check is
// performed: a dangling selection is tolerated and resolved by the consumer
// as "not found".
func (d *Directory) Select(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.selectedID = id
}

// ClearSelection drops the currently viewed pointer.
func (d *Directory) ClearSelection() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.selectedID = ""
}

// SelectedID returns the currently viewed chatroom id, or "".
func (d *Directory) SelectedID() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.selectedID
}

// Has reports whether a chatroom with the given id exists.
func (d *Directory) Has(id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.indexLocked(id) >= 0
}

// Get returns a copy of the chatroom with the given id.
func (d *Directory) Get(id string) (domain.Chatroom, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if i := d.indexLocked(id); i >= 0 {
		return d.rooms[i], true
	}
	return domain.Chatroom{}, false
}

// RecordLastMessage updates a room's last-message metadata in place. It is
// called by the conversation layer on every landed message and never
// reorders the collection. Updates for unknown rooms are ignored.
func (d *Directory) RecordLastMessage(ctx context.Context, id, content string, at time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()
	i := d.indexLocked(id)
	if i < 0 {
		return
	}
	d.rooms[i].LastMessage = content
	t := at
	d.rooms[i].LastMessageTime = &t
	d.persistLocked(ctx)
}

// Err returns the last recorded asynchronous failure, if any.
func (d *Directory) Err() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastErr
}

func (d *Directory) indexLocked(id string) int {
	for i, r := range d.rooms {
		if r.ID == id {
			return i
		}
	}
	return -1
}

func (d *Directory) persistLocked(ctx context.Context) {
	d.store.Save(ctx, storage.KeyChatrooms, d.rooms)
}

func (d *Directory) pause(dur time.Duration) {
	if d.Sleep != nil {
		d.Sleep(dur)
		return
	}
	time.Sleep(dur)
}
