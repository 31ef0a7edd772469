// Package ratelimit coordinates the shared GitHub API budget across all
// concurrent workers. Every remote call waits on the gate first; responses
// feed the remaining-quota signal back. When the budget nears exhaustion all
// workers pause together until the quota resets instead of racing to drain it.
package ratelimit

import (
	"context"
	"sync"
	"time"

	logger "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const (
	// defaultPerSecond keeps a sustained pace safely under the 5000/hour
	// authenticated core budget.
	defaultPerSecond = 5
	defaultBurst     = 10

	// defaultReserve is the remaining-quota floor below which all workers
	// pause until the reset time.
	defaultReserve = 50
)

// Gate is a shared rate budget tracker.
type Gate struct {
	limiter *rate.Limiter
	reserve int

	mu          sync.Mutex
	pausedUntil time.Time
}

// NewGate creates a gate with the default pacing and reserve.
func NewGate() *Gate {
	return &Gate{
		limiter: rate.NewLimiter(rate.Limit(defaultPerSecond), defaultBurst),
		reserve: defaultReserve,
	}
}

// Wait blocks until the caller may issue one remote call, honoring both the
// pacing limiter and any coordinated pause.
func (g *Gate) Wait(ctx context.Context) error {
	for {
		g.mu.Lock()
		pause := time.Until(g.pausedUntil)
		g.mu.Unlock()

		if pause <= 0 {
			break
		}

		timer := time.NewTimer(pause)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	return g.limiter.Wait(ctx)
}

// Update feeds the remote API's remaining-quota signal back into the gate.
// When the budget drops to the reserve, all workers pause until reset.
func (g *Gate) Update(remaining int, reset time.Time) {
	if remaining > g.reserve || reset.IsZero() {
		return
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if reset.After(g.pausedUntil) {
		g.pausedUntil = reset
		logger.Warnf(
			"API budget nearly exhausted (%d remaining), pausing all workers until %s",
			remaining, reset.Format(time.RFC3339),
		)
	}
}

// PauseUntil forces a coordinated pause, used when the remote answers with a
// retry-after signal.
func (g *Gate) PauseUntil(until time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if until.After(g.pausedUntil) {
		g.pausedUntil = until
	}
}
