package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/chatspace-dev/go-chatspace-backend/internal/domain"
	"github.com/chatspace-dev/go-chatspace-backend/internal/state"
	"github.com/chatspace-dev/go-chatspace-backend/internal/storage"
)

// nopStore is a storage.Store that remembers nothing.
type nopStore struct{}

func (nopStore) Save(context.Context, string, any)      {}
func (nopStore) Load(context.Context, string, any) bool { return false }
func (nopStore) Delete(context.Context, string)         {}

// staticCountries is a CountriesSource with a fixed list, no network.
type staticCountries struct {
	list []domain.Country
}

func (s staticCountries) Load(context.Context) []domain.Country { return s.list }

var testCountries = []domain.Country{
	{Code: "CA", Name: "Canada", DialCode: "+1"},
	{Code: "US", Name: "United States", DialCode: "+1"},
}

// newTestHandlers builds a Handlers over a real SQLite file in a temp dir,
// with simulated delays disabled and a fixed responder seed.
func newTestHandlers(t *testing.T) *Handlers {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := storage.OpenSQLite(filepath.Join(t.TempDir(), "handlers_test.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := storage.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	app := state.NewApp(context.Background(), storage.NewSQLiteStore(db), state.Options{
		Sleep:     func(time.Duration) {},
		Responder: state.NewResponder(1),
	})
	return New(app, db, staticCountries{list: testCountries}, time.Hour)
}

// doJSON performs a JSON request against r and returns the recorder.
func doJSON(t *testing.T, r *gin.Engine, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// decode unmarshals the recorder body into dst.
func decode(t *testing.T, w *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), dst); err != nil {
		t.Fatalf("json: %v (body=%s)", err, w.Body.String())
	}
}

// waitReplyDelivered blocks until the simulated peer stops typing in the
// room, i.e. the background reply goroutine has landed.
func waitReplyDelivered(t *testing.T, h *Handlers, chatroomID string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if !h.app.Conversations.Typing(chatroomID) {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("peer reply never delivered for %s", chatroomID)
}
