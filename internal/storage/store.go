package storage

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Logical snapshot keys. Absent key means empty/default state.
const (
	KeyUser      = "user"      // session snapshot (single User object)
	KeyChatrooms = "chatrooms" // chatroom directory array
	KeyMessages  = "messages"  // map of chatroomID -> message array
	KeyTheme     = "theme"     // display-mode flag
)

// Store is the keyed JSON snapshot surface the state layer persists through.
// It is the only component in the core that touches a durable boundary.
//
// Save and Delete are best-effort: failures are logged and swallowed so that
// loss of persistence never fails the state operation that triggered it.
// Load treats corrupt payloads the same as absent keys.
type Store interface {
	// Save serializes value as JSON and writes it under key, overwriting
	// any existing value.
	Save(ctx context.Context, key string, value any)

	// Load deserializes the value stored under key into dst and reports
	// whether a usable value was present.
	Load(ctx context.Context, key string, dst any) bool

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string)
}

// SQLiteStore persists snapshots in the snapshots table.
type SQLiteStore struct {
	db *gorm.DB
}

// NewSQLiteStore wraps an open GORM handle. The schema must already be
// migrated (see AutoMigrate).
func NewSQLiteStore(db *gorm.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// DB exposes the underlying handle for the idempotency repository.
func (s *SQLiteStore) DB() *gorm.DB { return s.db }

// Save implements Store. Serialization or write errors are logged and
// dropped; callers keep their in-memory state either way.
func (s *SQLiteStore) Save(ctx context.Context, key string, value any) {
	raw, err := json.Marshal(value)
	if err != nil {
		log.Error().Err(err).Str("key", key).Msg("snapshot serialize failed")
		return
	}
	snap := Snapshot{Key: key, Value: string(raw)}
	err = s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(&snap).Error
	if err != nil {
		log.Error().Err(err).Str("key", key).Msg("snapshot write failed")
	}
}

// Load implements Store. Missing rows and undecodable payloads both read as
// "absent"; the latter is logged since it indicates an interrupted write or
// an incompatible schema change.
func (s *SQLiteStore) Load(ctx context.Context, key string, dst any) bool {
	var snap Snapshot
	err := s.db.WithContext(ctx).Where("key = ?", key).First(&snap).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Error().Err(err).Str("key", key).Msg("snapshot read failed")
		}
		return false
	}
	if err := json.Unmarshal([]byte(snap.Value), dst); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("corrupt snapshot treated as absent")
		return false
	}
	return true
}

// Delete implements Store.
func (s *SQLiteStore) Delete(ctx context.Context, key string) {
	if err := s.db.WithContext(ctx).Where("key = ?", key).Delete(&Snapshot{}).Error; err != nil {
		log.Error().Err(err).Str("key", key).Msg("snapshot delete failed")
	}
}
