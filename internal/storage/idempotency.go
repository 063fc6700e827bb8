package storage

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrNotFound indicates a missing idempotency record.
var ErrNotFound = errors.New("record not found")

// ErrDuplicate indicates that an idempotency record already exists for the
// given (user_id, chatroom_id, key) tuple.
var ErrDuplicate = errors.New("duplicate")

// GetIdempotency returns a non-expired record or ErrNotFound.
func GetIdempotency(ctx context.Context, db *gorm.DB, userID, chatroomID, key string, now time.Time) (*Idempotency, error) {
	if strings.TrimSpace(chatroomID) == "" {
		return nil, ErrNotFound
	}
	var rec Idempotency
	err := db.WithContext(ctx).
		Where("user_id = ? AND chatroom_id = ? AND key = ? AND expires_at > ?", userID, chatroomID, key, now).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	return &rec, err
}

// CreateIdempotency inserts a record and returns ErrDuplicate on unique violation.
func CreateIdempotency(ctx context.Context, db *gorm.DB, userID, chatroomID, key, messageID string, status int, ttl time.Duration) (*Idempotency, error) {
	now := time.Now().UTC()
	rec := &Idempotency{
		ID:         uuid.NewString(),
		UserID:     userID,
		ChatroomID: chatroomID,
		Key:        key,
		MessageID:  messageID,
		Status:     status,
		CreatedAt:  now,
		ExpiresAt:  now.Add(ttl),
	}
	if err := db.WithContext(ctx).Create(rec).Error; err != nil {
		// glebarez/sqlite often returns plain-text errors for UNIQUE violations.
		low := strings.ToLower(err.Error())
		if errors.Is(err, gorm.ErrDuplicatedKey) ||
			strings.Contains(low, "unique constraint failed") ||
			strings.Contains(low, "constraint failed: unique") {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return rec, nil
}
