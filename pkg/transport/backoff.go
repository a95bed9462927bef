package transport

import (
	"math/rand"
	"sync"
	"time"
)

// Accept retry delays.
const (
	// InitialAcceptDelay is the pause after the first failed Accept.
	InitialAcceptDelay = 5 * time.Millisecond

	// MaxAcceptDelay caps the pause between failed Accepts.
	MaxAcceptDelay = time.Second

	acceptJitter = 0.25
)

// backoff doubles a delay up to a maximum and adds up to 25% jitter.
type backoff struct {
	mu      sync.Mutex
	initial time.Duration
	max     time.Duration
	current time.Duration
	rng     *rand.Rand
}

func newBackoff(initial, max time.Duration) *backoff {
	return &backoff{
		initial: initial,
		max:     max,
		current: initial,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Next returns the jittered delay and advances the base delay.
func (b *backoff) Next() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()

	d := b.current + time.Duration(float64(b.current)*acceptJitter*b.rng.Float64())
	b.current *= 2
	if b.current > b.max {
		b.current = b.max
	}
	return d
}

// Reset returns to the initial delay after a successful Accept.
func (b *backoff) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.current = b.initial
}
