package session

import (
	"time"

	"github.com/a-singh09/uno-game-sub000/internal/identity"
)

// DefaultGracePeriod is how long a disconnected identity may resume its
// seat without loss.
const DefaultGracePeriod = 60 * time.Second

// GraceController tracks per-identity removal deadlines for disconnected
// seats. It is deliberately passive: deadlines are checked by the session's
// serialized loop calling ExpireDue, so a reconnect racing an expiry either
// cancels first (seat preserved) or finds the seat already freed and joins
// fresh — never a reused expired hand.
type GraceController struct {
	grace     time.Duration
	deadlines map[identity.ID]time.Time
}

// NewGraceController creates a controller with the given grace window, or
// the default when zero.
func NewGraceController(grace time.Duration) *GraceController {
	if grace <= 0 {
		grace = DefaultGracePeriod
	}
	return &GraceController{
		grace:     grace,
		deadlines: make(map[identity.ID]time.Time),
	}
}

// MarkDisconnected starts (or restarts) the removal timer for the identity.
func (g *GraceController) MarkDisconnected(id identity.ID, now time.Time) {
	g.deadlines[id] = now.Add(g.grace)
}

// Cancel stops a pending removal. Idempotent: cancelling an identity with
// no pending timer is a no-op.
func (g *GraceController) Cancel(id identity.ID) {
	delete(g.deadlines, id)
}

// Pending reports whether a removal timer is running for the identity.
func (g *GraceController) Pending(id identity.ID) bool {
	_, ok := g.deadlines[id]
	return ok
}

// ExpireDue returns the identities whose deadline has passed and clears
// their timers. A deadline hit exactly at now expires.
func (g *GraceController) ExpireDue(now time.Time) []identity.ID {
	var expired []identity.ID
	for id, deadline := range g.deadlines {
		if !now.Before(deadline) {
			expired = append(expired, id)
			delete(g.deadlines, id)
		}
	}
	return expired
}
