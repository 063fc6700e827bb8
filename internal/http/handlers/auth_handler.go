// Auth HTTP handlers.
//
// This file exposes the mock phone/OTP authentication flow:
//   - POST /auth/challenge  (dispatch a one-time code)
//   - POST /auth/verify     (verify the code, establish the session)
//   - POST /auth/logout     (end the session)
//   - GET  /auth/session    (current phase and user)
//
// There is no real OTP backend: the session's Verifier decides acceptance,
// and the demo policy accepts any syntactically valid 6-digit code. These
// routes run behind the redacting logger so phone numbers and codes never
// reach the logs.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/chatspace-dev/go-chatspace-backend/internal/domain"
	"github.com/chatspace-dev/go-chatspace-backend/internal/state"
)

//
// DTOs
//

// ChallengeRequest is the JSON payload for requesting an OTP challenge.
type ChallengeRequest struct {
	PhoneNumber string `json:"phoneNumber" binding:"required"`
	CountryCode string `json:"countryCode" binding:"required"`
}

// ChallengeResponse reports the session phase after a challenge dispatch.
type ChallengeResponse struct {
	Phase string `json:"phase"`
}

// VerifyRequest is the JSON payload for verifying an OTP challenge. The
// phone fields are echoed from the challenge step; the server holds no
// per-challenge state beyond the phase.
type VerifyRequest struct {
	Code        string `json:"code" binding:"required"`
	PhoneNumber string `json:"phoneNumber" binding:"required"`
	CountryCode string `json:"countryCode" binding:"required"`
}

// SessionResponse describes the current session.
type SessionResponse struct {
	Phase string       `json:"phase"`
	User  *domain.User `json:"user,omitempty"`
}

//
// Handlers
//

// PostChallenge validates the phone number and dispatches the simulated OTP.
func (h *Handlers) PostChallenge(c *gin.Context) {
	var req ChallengeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "phoneNumber and countryCode required")
		return
	}

	if err := h.app.Session.RequestChallenge(c.Request.Context(), req.PhoneNumber, req.CountryCode); err != nil {
		if code, msg, ok := validationStatus(err); ok {
			fail(c, http.StatusBadRequest, code, msg)
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}

	ok(c, http.StatusAccepted, ChallengeResponse{Phase: h.app.Session.Phase().String()})
}

// PostVerify checks the submitted code and establishes the session.
func (h *Handlers) PostVerify(c *gin.Context) {
	var req VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "code, phoneNumber and countryCode required")
		return
	}

	user, err := h.app.Session.VerifyChallenge(c.Request.Context(), req.Code, req.PhoneNumber, req.CountryCode)
	if err != nil {
		if code, msg, okV := validationStatus(err); okV {
			fail(c, http.StatusBadRequest, code, msg)
			return
		}
		if errors.Is(err, state.ErrCodeRejected) {
			fail(c, http.StatusUnauthorized, ErrCodeCodeRejected, "verification code rejected")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}

	c.Set("userID", user.ID)
	ok(c, http.StatusOK, SessionResponse{
		Phase: h.app.Session.Phase().String(),
		User:  user,
	})
}

// PostLogout ends the session and removes the persisted user.
func (h *Handlers) PostLogout(c *gin.Context) {
	h.app.Session.EndSession(c.Request.Context())
	noContent(c)
}

// GetSession reports the current phase and, when authenticated, the user.
func (h *Handlers) GetSession(c *gin.Context) {
	resp := SessionResponse{Phase: h.app.Session.Phase().String()}
	if u, okU := h.app.Session.CurrentUser(); okU {
		resp.User = &u
	}
	ok(c, http.StatusOK, resp)
}
