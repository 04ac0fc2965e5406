package bot

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
)

// Identity is a bot account occupying a seat like any other identity.
type Identity struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
}

const botIDPrefix = "bot-"

var (
	identitiesMu sync.RWMutex
	identities   []Identity
)

// LoadIdentities loads the bot roster from a JSON file. Missing files leave
// the built-in roster in place.
func LoadIdentities(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read bot identities: %w", err)
	}
	var loaded []Identity
	if err := json.Unmarshal(data, &loaded); err != nil {
		return fmt.Errorf("failed to unmarshal bot identities: %w", err)
	}
	identitiesMu.Lock()
	identities = loaded
	identitiesMu.Unlock()
	return nil
}

// GetBotIdentity returns a roster entry for the seat index, generating a
// stable fallback when the roster is short.
func GetBotIdentity(seat int) Identity {
	identitiesMu.RLock()
	defer identitiesMu.RUnlock()
	if seat >= 0 && seat < len(identities) {
		return identities[seat]
	}
	return Identity{
		UserID:   fmt.Sprintf("%sseat-%d", botIDPrefix, seat),
		Username: fmt.Sprintf("Dealer%d", seat+1),
	}
}

// GetBotUsername returns the display name for a bot user id, or "".
func GetBotUsername(userID string) string {
	if !IsBot(userID) {
		return ""
	}
	identitiesMu.RLock()
	defer identitiesMu.RUnlock()
	for _, id := range identities {
		if id.UserID == userID {
			return id.Username
		}
	}
	return "Dealer"
}

// IsBot reports whether the user id belongs to a bot seat.
func IsBot(userID string) bool {
	return strings.HasPrefix(userID, botIDPrefix)
}
