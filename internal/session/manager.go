// Package session binds persistent identities to seats with capacity and
// reconnection rules. All methods for one session are expected to run on
// that session's serialized loop.
package session

import (
	"errors"
	"time"

	"github.com/a-singh09/uno-game-sub000/internal/identity"
)

var (
	// ErrRoomFull indicates every seat is held and the identity is new.
	ErrRoomFull = errors.New("session is full")
	// ErrUnknownIdentity indicates the identity holds no seat here.
	ErrUnknownIdentity = errors.New("identity not seated in session")
)

// Seat is one capacity slot within a session.
type Seat struct {
	Index    int
	Occupant *identity.Identity // nil when empty
}

// Manager is the seat manager for a single session. Seat indices are stable
// for an identity for the life of the session; only explicit leave or grace
// expiry frees them.
type Manager struct {
	sessionID string
	seats     []*identity.Identity
}

// NewManager creates a seat manager with the given fixed capacity.
func NewManager(sessionID string, capacity int) *Manager {
	return &Manager{
		sessionID: sessionID,
		seats:     make([]*identity.Identity, capacity),
	}
}

// Capacity returns the fixed seat count.
func (m *Manager) Capacity() int { return len(m.seats) }

// Join seats the identity. If it already holds a seat, even while
// disconnected, that seat is reactivated in place with index and hand
// untouched. A new identity takes the lowest free seat, or ErrRoomFull.
func (m *Manager) Join(id identity.ID, displayName string, now time.Time) (int, bool, error) {
	if seat := m.SeatOf(id); seat >= 0 {
		occ := m.seats[seat]
		occ.Status = identity.StatusActive
		occ.LastSeenAt = now
		if displayName != "" {
			occ.DisplayName = displayName
		}
		return seat, true, nil
	}

	for i, occ := range m.seats {
		if occ == nil {
			m.seats[i] = &identity.Identity{
				ID:          id,
				DisplayName: displayName,
				SessionID:   m.sessionID,
				Status:      identity.StatusActive,
				LastSeenAt:  now,
			}
			return i, false, nil
		}
	}
	return -1, false, ErrRoomFull
}

// Leave is an immediate voluntary exit: the seat is freed with no grace
// period.
func (m *Manager) Leave(id identity.ID) (int, error) {
	seat := m.SeatOf(id)
	if seat < 0 {
		return -1, ErrUnknownIdentity
	}
	m.seats[seat] = nil
	return seat, nil
}

// MarkDisconnected flips the identity to Disconnected, keeping its seat.
func (m *Manager) MarkDisconnected(id identity.ID, now time.Time) (int, error) {
	seat := m.SeatOf(id)
	if seat < 0 {
		return -1, ErrUnknownIdentity
	}
	m.seats[seat].Status = identity.StatusDisconnected
	m.seats[seat].LastSeenAt = now
	return seat, nil
}

// SeatOf returns the seat index held by the identity, or -1.
func (m *Manager) SeatOf(id identity.ID) int {
	for i, occ := range m.seats {
		if occ != nil && occ.ID == id {
			return i
		}
	}
	return -1
}

// Occupant returns the identity seated at the index, or nil.
func (m *Manager) Occupant(seat int) *identity.Identity {
	if seat < 0 || seat >= len(m.seats) {
		return nil
	}
	return m.seats[seat]
}

// SeatIDs returns the ordered seat -> identity-id mapping with empty
// strings for free seats, the shape the turn engine consumes.
func (m *Manager) SeatIDs() []string {
	out := make([]string, len(m.seats))
	for i, occ := range m.seats {
		if occ != nil {
			out[i] = string(occ.ID)
		}
	}
	return out
}

// ListSeats returns the ordered seat list for display.
func (m *Manager) ListSeats() []Seat {
	out := make([]Seat, len(m.seats))
	for i, occ := range m.seats {
		out[i] = Seat{Index: i, Occupant: occ}
	}
	return out
}

// OccupiedCount returns the number of held seats.
func (m *Manager) OccupiedCount() int {
	count := 0
	for _, occ := range m.seats {
		if occ != nil {
			count++
		}
	}
	return count
}

// Restore reinstalls a previously persisted seat list, used when state is
// recovered from the store after a restart.
func (m *Manager) Restore(seats []*identity.Identity) {
	for i := range m.seats {
		if i < len(seats) {
			m.seats[i] = seats[i]
		}
	}
}

// Snapshot returns the raw seat slice for persistence.
func (m *Manager) Snapshot() []*identity.Identity {
	out := make([]*identity.Identity, len(m.seats))
	copy(out, m.seats)
	return out
}
