// Package storage implements the durable boundary of the application: a
// keyed JSON snapshot surface backed by SQLite (via GORM), plus the
// idempotency records used for safe retry of message POSTs.
package storage

import "time"

// Snapshot is one keyed JSON document. The state layer serializes whole
// domain collections (user session, chatroom directory, message logs, theme)
// under well-known keys; the value column holds the UTF-8 JSON payload.
type Snapshot struct {
	Key       string    `gorm:"type:TEXT NOT NULL;primaryKey"`
	Value     string    `gorm:"type:TEXT NOT NULL"`
	UpdatedAt time.Time `gorm:"type:DATETIME NOT NULL;autoUpdateTime"`
}

// TableName implements the GORM tabler interface.
func (Snapshot) TableName() string { return "snapshots" }

// Idempotency records the outcome of a previously processed message POST,
// keyed by (user_id, chatroom_id, key). It lets retried requests return the
// originally produced message without re-running the peer-reply pipeline.
type Idempotency struct {
	ID         string    `gorm:"type:TEXT NOT NULL;primaryKey"`
	UserID     string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_user_room_key,priority:1"`
	ChatroomID string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_user_room_key,priority:2"`
	Key        string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_user_room_key,priority:3"`
	MessageID  string    `gorm:"type:TEXT NOT NULL"`
	Status     int       `gorm:"type:INTEGER NOT NULL"`
	CreatedAt  time.Time `gorm:"type:DATETIME NOT NULL;autoCreateTime"`
	ExpiresAt  time.Time `gorm:"type:DATETIME NOT NULL;index"`
}

// TableName implements the GORM tabler interface.
func (Idempotency) TableName() string { return "idempotency" }
