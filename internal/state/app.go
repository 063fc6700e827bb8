package state

import (
	"context"
	"sync"
	"time"

	"github.com/chatspace-dev/go-chatspace-backend/internal/domain"
	"github.com/chatspace-dev/go-chatspace-backend/internal/storage"
)

// Options tunes the App's state components. The zero value selects the
// product defaults (real delays, time-seeded responder, demo verifier).
type Options struct {
	Delays    *Delays
	Sleep     func(time.Duration)
	Responder *Responder
	Verifier  Verifier
	PageSize  int
	FetchSize int
}

// App is the explicit aggregate of all state components, constructed once at
// process start from the persistent store. There is no hidden module-level
// state: everything the UI shell consumes hangs off this struct.
type App struct {
	Session       *Session
	Directory     *Directory
	Conversations *Conversations

	mu    sync.Mutex
	store storage.Store
	theme domain.ThemeMode
}

// NewApp wires the state components together and hydrates them from store:
// the directory-existence check feeds conversations' orphan detection, room
// removal cascades into the conversation logs, and landed messages refresh
// directory metadata.
func NewApp(ctx context.Context, store storage.Store, opts Options) *App {
	sess := NewSession(store, opts.Verifier)
	dir := NewDirectory(store)
	conv := NewConversations(store)

	if opts.Delays != nil {
		sess.Delays = *opts.Delays
		dir.Delays = *opts.Delays
		conv.Delays = *opts.Delays
	}
	if opts.Sleep != nil {
		sess.Sleep = opts.Sleep
		dir.Sleep = opts.Sleep
		conv.Sleep = opts.Sleep
	}
	if opts.Responder != nil {
		conv.Responder = opts.Responder
	}
	if opts.PageSize > 0 {
		conv.PageSize = opts.PageSize
	}
	if opts.FetchSize > 0 {
		conv.FetchSize = opts.FetchSize
	}

	conv.Exists = dir.Has
	conv.OnMessage = dir.RecordLastMessage
	dir.Cascade = conv.DropLog

	app := &App{
		Session:       sess,
		Directory:     dir,
		Conversations: conv,
		store:         store,
		theme:         domain.ThemeLight,
	}

	sess.Hydrate(ctx)
	dir.Hydrate(ctx)
	conv.Hydrate(ctx)

	var mode domain.ThemeMode
	if store.Load(ctx, storage.KeyTheme, &mode) && mode.Valid() {
		app.theme = mode
	}

	return app
}

// Theme returns the current display mode.
func (a *App) Theme() domain.ThemeMode {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.theme
}

// SetTheme stores and persists the display mode. Unknown modes are ignored.
func (a *App) SetTheme(ctx context.Context, mode domain.ThemeMode) {
	if !mode.Valid() {
		return
	}
	a.mu.Lock()
	a.theme = mode
	a.mu.Unlock()
	a.store.Save(ctx, storage.KeyTheme, mode)
}

// ToggleTheme flips between light and dark and persists the result.
func (a *App) ToggleTheme(ctx context.Context) domain.ThemeMode {
	a.mu.Lock()
	if a.theme == domain.ThemeLight {
		a.theme = domain.ThemeDark
	} else {
		a.theme = domain.ThemeLight
	}
	mode := a.theme
	a.mu.Unlock()
	a.store.Save(ctx, storage.KeyTheme, mode)
	return mode
}
