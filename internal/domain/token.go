package domain

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	mrand "math/rand"
)

// ErrUnknownToken indicates a token with no decode-table entry. This never
// happens under correct operation and is treated as a consistency error by
// callers, not a normal miss.
var ErrUnknownToken = errors.New("unknown card token")

// Token is an opaque, session-scoped stand-in for a concrete card. Tokens
// are keyed hashes and cannot be correlated across sessions or precomputed.
type Token string

// DecodeTable is the authoritative token -> card mapping for one session.
// It lives server-side only; a participant never sees more of it than the
// cards it has legitimately drawn.
type DecodeTable struct {
	Cards map[Token]Card `json:"cards"`
}

// Decode resolves a token to its concrete card. Repeated calls with the
// same token return the same card.
func (t *DecodeTable) Decode(token Token) (Card, error) {
	card, ok := t.Cards[token]
	if !ok {
		return Card{}, fmt.Errorf("%w: %s", ErrUnknownToken, token)
	}
	return card, nil
}

// Len returns the number of tokens in the table.
func (t *DecodeTable) Len() int {
	return len(t.Cards)
}

// GenerateDeck builds the shuffled card set for a session and assigns each
// physical card instance a unique unguessable token. The shuffle order is
// taken from rng (injectable for deterministic tests); the tokens themselves
// are keyed with a fresh random secret so the shuffle is not inferable from
// token values alone.
func GenerateDeck(sessionID string, rng *mrand.Rand) ([]Token, *DecodeTable, error) {
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, nil, fmt.Errorf("failed to derive deck key: %w", err)
	}

	cards := Composition()
	rng.Shuffle(len(cards), func(i, j int) { cards[i], cards[j] = cards[j], cards[i] })

	order := make([]Token, 0, len(cards))
	table := &DecodeTable{Cards: make(map[Token]Card, len(cards))}
	for pos, card := range cards {
		token := mintToken(key, sessionID, card, pos)
		order = append(order, token)
		table.Cards[token] = card
	}
	return order, table, nil
}

func mintToken(key []byte, sessionID string, card Card, position int) Token {
	mac := hmac.New(sha256.New, key)
	fmt.Fprintf(mac, "%s|%s|%d", sessionID, card, position)
	return Token(hex.EncodeToString(mac.Sum(nil))[:32])
}
