package state

import (
	"math/rand"
	"strings"
	"sync"
	"time"
)

// baseReplies is the fixed candidate set every reply is drawn from.
var baseReplies = []string{
	"That's an interesting point. Let me think about that.",
	"I understand what you're saying. Here's what I think...",
	"Based on my knowledge, I would suggest considering this approach.",
	"That's a great question. The answer depends on several factors.",
	"I've analyzed this and have some thoughts to share.",
}

// keywordReplies extends the candidate set when the lower-cased prompt
// contains any of the listed tokens (substring match).
var keywordReplies = []struct {
	tokens []string
	reply  string
}{
	{[]string{"hello", "hi"}, "Hello! How can I assist you today?"},
	{[]string{"help"}, "I'd be happy to help you with that. What specifically do you need assistance with?"},
	{[]string{"thanks", "thank you"}, "You're welcome! Is there anything else I can help you with?"},
}

// Responder generates the simulated peer's replies: a deterministic keyword
// scan extends the fixed candidate set, then one candidate is picked
// uniformly at random. The random source is injected so tests can force
// determinism with a fixed seed.
//
// Responder is safe for concurrent use.
type Responder struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewResponder builds a Responder seeded with the given value.
func NewResponder(seed int64) *Responder {
	return &Responder{rng: rand.New(rand.NewSource(seed))}
}

// Reply returns the peer response for prompt.
func (r *Responder) Reply(prompt string) string {
	lower := strings.ToLower(prompt)

	candidates := make([]string, len(baseReplies), len(baseReplies)+len(keywordReplies))
	copy(candidates, baseReplies)
	for _, kw := range keywordReplies {
		for _, tok := range kw.tokens {
			if strings.Contains(lower, tok) {
				candidates = append(candidates, kw.reply)
				break
			}
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return candidates[r.rng.Intn(len(candidates))]
}

// ThinkTime draws a uniform duration from [min, max). When the interval is
// empty it returns min.
func (r *Responder) ThinkTime(min, max time.Duration) time.Duration {
	span := max - min
	if span <= 0 {
		return min
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return min + time.Duration(r.rng.Int63n(int64(span)))
}
