// Handler wiring.
//
// Handlers binds the HTTP endpoints to the application state aggregate.
// Endpoints are transport-thin: they validate input, call into the state
// components, and translate outcomes into HTTP responses.
package handlers

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/chatspace-dev/go-chatspace-backend/internal/domain"
	"github.com/chatspace-dev/go-chatspace-backend/internal/state"
)

// CountriesSource supplies the dial-code picker data. The production
// implementation degrades to a built-in set, so Load never fails.
type CountriesSource interface {
	Load(ctx context.Context) []domain.Country
}

// Handlers groups the HTTP endpoints for auth, chatrooms, messages,
// countries, and theme.
type Handlers struct {
	app       *state.App
	db        *gorm.DB // idempotency records; nil disables replay detection
	countries CountriesSource
	idemTTL   time.Duration
}

// New constructs a Handlers instance bound to the state aggregate. db may be
// nil when idempotency persistence is not wanted (tests); idemTTL <= 0
// selects 24h.
func New(app *state.App, db *gorm.DB, countries CountriesSource, idemTTL time.Duration) *Handlers {
	if idemTTL <= 0 {
		idemTTL = 24 * time.Hour
	}
	return &Handlers{app: app, db: db, countries: countries, idemTTL: idemTTL}
}

// userID extracts the user id of the signed-in session. The demo runs
// single-user, so an anonymous fallback keeps unauthenticated flows working.
func (h *Handlers) userID(c *gin.Context) string {
	if v, ok := c.Get("userID"); ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	if u, ok := h.app.Session.CurrentUser(); ok {
		return u.ID
	}
	if c != nil && c.Request != nil {
		if hv := strings.TrimSpace(c.GetHeader("X-User-ID")); hv != "" {
			return hv
		}
	}
	return "demo-user"
}

// validationStatus maps a state-layer error to (status, code, message) when
// it is a *ValidationError; ok is false otherwise.
func validationStatus(err error) (code, msg string, match bool) {
	var ve *state.ValidationError
	if errors.As(err, &ve) {
		return ErrCodeValidation, ve.Error(), true
	}
	return "", "", false
}
