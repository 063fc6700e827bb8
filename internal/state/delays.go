package state

import "time"

// Delays configures the simulated network round-trips of the state layer.
// Every "remote" operation is modeled as a plain suspension of the calling
// goroutine followed by resumption; there is no real transport underneath.
//
// In tests, inject a zero value together with a no-op sleep function to run
// the whole layer synchronously.
type Delays struct {
	// ChallengeSend is the simulated OTP dispatch round-trip.
	ChallengeSend time.Duration
	// ChallengeVerify is the simulated OTP verification round-trip.
	ChallengeVerify time.Duration
	// RoomMutate applies to chatroom create and delete.
	RoomMutate time.Duration
	// PageFetch applies to older-page loads.
	PageFetch time.Duration
	// ReplyMin/ReplyMax bound the uniform [min, max) peer thinking time.
	ReplyMin time.Duration
	ReplyMax time.Duration
}

// DefaultDelays returns the delays the original product shipped with.
func DefaultDelays() Delays {
	return Delays{
		ChallengeSend:   1 * time.Second,
		ChallengeVerify: 1500 * time.Millisecond,
		RoomMutate:      500 * time.Millisecond,
		PageFetch:       800 * time.Millisecond,
		ReplyMin:        1 * time.Second,
		ReplyMax:        3 * time.Second,
	}
}
