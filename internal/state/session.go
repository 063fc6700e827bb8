package state

import (
	"context"
	"regexp"
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

// Phase is the session lifecycle state.
type Phase int

const (
	// PhaseAnonymous means no user is signed in and no challenge is pending.
	PhaseAnonymous Phase = iota
	// PhaseChallengeSent means an OTP challenge is outstanding.
	PhaseChallengeSent
	// PhaseAuthenticated means a user record is current.
	PhaseAuthenticated
)

// String implements fmt.Stringer.
func (p Phase) String() string {
	switch p {
	case PhaseChallengeSent:
		return "challenge_sent"
	case PhaseAuthenticated:
		return "authenticated"
	default:
		return "anonymous"
	}
}

// Verifier decides whether a verification code is acceptable for the given
// phone number. Implementations must not mutate session state; the Session
// owns the control flow around them.
type Verifier interface {
	Verify(ctx context.Context, code, phoneNumber, countryCode string) error
}

// DemoVerifier accepts every syntactically valid 6-digit code. This is the
// documented demo-mode policy: the product has no real OTP backend, and the
// interface exists so one can be substituted without touching the session
// control flow.
type DemoVerifier struct{}

// Verify implements Verifier.
func (DemoVerifier) Verify(context.Context, string, string, string) error { return nil }

var (
	phoneRE = regexp.MustCompile(`^\d{5,15}$`)
	codeRE  = regexp.MustCompile(`^\d{6}$`)
)

// Session holds the single authenticated-session lifecycle:
// Anonymous → ChallengeSent → Authenticated, back to Anonymous on reset or
// logout. At most one user record is current at any time.
type Session struct {
	// Delays and Sleep are the simulated-network knobs; zero Delays plus a
	// nil Sleep gives real time.Sleep with the product defaults.
	Delays Delays
	Sleep  func(time.Duration)

	mu       sync.Mutex
	store    storage.Store
	verifier Verifier
	phase    Phase
	user     *domain.User
	lastErr  error
}

// NewSession builds a Session over store with the given verifier and the
// default delays. Call Hydrate before use to restore a persisted user.
func NewSession(store storage.Store, verifier Verifier) *Session {
	if verifier == nil {
		verifier = DemoVerifier{}
	}
	return &Session{
		Delays:   DefaultDelays(),
		store:    store,
		verifier: verifier,
		phase:    PhaseAnonymous,
	}
}

// Hydrate restores the persisted user, if any. A stored authenticated user
// puts the session directly into PhaseAuthenticated.
func (s *Session) Hydrate(ctx context.Context) {
	var u domain.User
	if !s.store.Load(ctx, storage.KeyUser, &u) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.IsAuthenticated {
		s.user = &u
		s.phase = PhaseAuthenticated
	}
}

// RequestChallenge validates the phone number and country code, simulates
// the OTP dispatch round-trip, and marks a challenge as outstanding. Nothing
// is persisted until the challenge is verified.
func (s *Session) RequestChallenge(ctx context.Context, phoneNumber, countryCode string) error {
	tr := otel.Tracer("state/Session")
	_, span := tr.Start(ctx, "RequestChallenge",
		trace.WithAttributes(attribute.String("session.phase", s.Phase().String())),
	)
	defer span.End()

	if !phoneRE.MatchString(phoneNumber) {
		return &ValidationError{Field: "phoneNumber", Reason: "must be 5-15 digits"}
	}
	if strings.TrimSpace(countryCode) == "" {
		return &ValidationError{Field: "countryCode", Reason: "must not be empty"}
	}

	s.pause(s.Delays.ChallengeSend)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.phase = PhaseChallengeSent
	s.lastErr = nil
	return nil
}

// VerifyChallenge validates the code, simulates the verification round-trip,
// and on success creates a fresh user record, persists it, and clears the
// outstanding challenge.
func (s *Session) VerifyChallenge(ctx context.Context, code, phoneNumber, countryCode string) (*domain.User, error) {
	tr := otel.Tracer("state/Session")
	ctx, span := tr.Start(ctx, "VerifyChallenge")
	defer span.End()

	if !codeRE.MatchString(code) {
		return nil, &ValidationError{Field: "code", Reason: "must be exactly 6 digits"}
	}

	s.pause(s.Delays.ChallengeVerify)

	if err := s.verifier.Verify(ctx, code, phoneNumber, countryCode); err != nil {
		s.mu.Lock()
		s.lastErr = ErrCodeRejected
		s.mu.Unlock()
		return nil, ErrCodeRejected
	}

	u := &domain.User{
		ID:              uuid.NewString(),
		PhoneNumber:     phoneNumber,
		CountryCode:     countryCode,
		IsAuthenticated: true,
	}

	s.mu.Lock()
	s.user = u
	s.phase = PhaseAuthenticated
	s.lastErr = nil
	s.mu.Unlock()

	s.store.Save(ctx, storage.KeyUser, u)
	log.Info().Str("user_id", u.ID).Msg("session established")

	out := *u
	return &out, nil
}

// ResetChallenge abandons an outstanding challenge (the explicit back/reset
// transition). It never signs an authenticated user out.
func (s *Session) ResetChallenge() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase == PhaseChallengeSent {
		s.phase = PhaseAnonymous
	}
	s.lastErr = nil
}

// EndSession clears the current user and removes the persisted snapshot.
func (s *Session) EndSession(ctx context.Context) {
	s.mu.Lock()
	s.user = nil
	s.phase = PhaseAnonymous
	s.lastErr = nil
	s.mu.Unlock()

	s.store.Delete(ctx, storage.KeyUser)
}

// Phase returns the current lifecycle phase.
func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// CurrentUser returns a copy of the signed-in user, if any.
func (s *Session) CurrentUser() (domain.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return domain.User{}, false
	}
	return *s.user, true
}

// Err returns the last recorded asynchronous failure, if any.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

func (s *Session) pause(d time.Duration) {
	if s.Sleep != nil {
		s.Sleep(d)
		return
	}
	time.Sleep(d)
}
