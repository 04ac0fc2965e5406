// Package identity defines the one normalized player identity type used at
// the session boundary. Identities are resolved exactly once on the way in;
// downstream code compares canonical IDs only and never re-normalizes.
package identity

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status is the connection status of an identity within a session.
type Status string

const (
	StatusActive       Status = "active"
	StatusDisconnected Status = "disconnected"
)

// ID is a canonical, case-normalized identity key. Comparison is exact;
// normalization happens only in Normalize.
type ID string

// Normalize resolves a raw account string to its canonical form. Nakama
// user ids are UUIDs and normalize to their canonical lowercase rendering;
// anything else falls back to trimmed lowercase so comparison stays
// case-insensitive either way.
func Normalize(raw string) ID {
	trimmed := strings.TrimSpace(raw)
	if parsed, err := uuid.Parse(trimmed); err == nil {
		return ID(parsed.String())
	}
	return ID(strings.ToLower(trimmed))
}

// Identity is a persistent player account distinct from any one connection.
type Identity struct {
	ID          ID        `json:"id"`
	DisplayName string    `json:"display_name"`
	SessionID   string    `json:"session_id,omitempty"`
	Status      Status    `json:"status"`
	LastSeenAt  time.Time `json:"last_seen_at"`
}
