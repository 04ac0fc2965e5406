package domain

// Phase represents the lifecycle stage of a session.
type Phase string

const (
	// PhaseWaiting is the pre-deal state where seats can fill freely.
	PhaseWaiting Phase = "waiting"
	// PhaseActive is the in-progress state where turns proceed.
	PhaseActive Phase = "active"
	// PhaseEnded is the terminal state after a hand empties.
	PhaseEnded Phase = "ended"
)

// Game is the canonical authoritative state for one session. It is the
// single source of truth for turn order, hands and piles, and the only
// record the state store persists alongside the decode table.
type Game struct {
	SessionID string `json:"session_id"`
	AltID     string `json:"alt_id"` // secondary lookup key
	Phase     Phase  `json:"phase"`

	Capacity int      `json:"capacity"`
	SeatIDs  []string `json:"seat_ids"` // occupant identity per seat at deal time, "" = vacated

	Hands       [][]Token `json:"hands"` // ordered per-seat hands, index matches SeatIDs
	DrawPile    []Token   `json:"draw_pile"`
	DiscardPile []Token   `json:"discard_pile"`

	TurnSeat    int   `json:"turn_seat"`
	Direction   int   `json:"direction"` // +1 or -1, applied mod active seat count
	ActiveColor Color `json:"active_color"`
	ActiveRank  Rank  `json:"active_rank"`
	TurnCounter int64 `json:"turn_counter"`

	WinnerSeat int    `json:"winner_seat"` // -1 until ended
	WinnerID   string `json:"winner_id"`

	// Halted marks a consistency failure; all further mutation is refused.
	Halted bool `json:"halted"`

	// One-card declaration tracking. PendingPenaltySeat is checked when the
	// next action for the session is processed, not immediately.
	DeclaredOne        []bool `json:"declared_one"`
	PendingPenaltySeat int    `json:"pending_penalty_seat"`

	// DrewPlayable is true while the turn seat holds a freshly drawn card it
	// may play in the same logical turn.
	DrewPlayable bool `json:"drew_playable"`

	// Last applied action id, for at-least-once duplicate suppression.
	LastAppliedSeat    int   `json:"last_applied_seat"`
	LastAppliedCounter int64 `json:"last_applied_counter"`
}

// NewGame constructs an empty Waiting game with the given fixed capacity.
func NewGame(sessionID, altID string, capacity int) *Game {
	return &Game{
		SessionID:          sessionID,
		AltID:              altID,
		Phase:              PhaseWaiting,
		Capacity:           capacity,
		SeatIDs:            make([]string, capacity),
		Hands:              make([][]Token, capacity),
		Direction:          1,
		WinnerSeat:         -1,
		DeclaredOne:        make([]bool, capacity),
		PendingPenaltySeat: -1,
		LastAppliedSeat:    -1,
	}
}

// ActiveSeatCount returns the number of seats still occupied in the game.
func (g *Game) ActiveSeatCount() int {
	count := 0
	for _, id := range g.SeatIDs {
		if id != "" {
			count++
		}
	}
	return count
}

// SeatOf returns the seat index held by the identity, or -1.
func (g *Game) SeatOf(identityID string) int {
	if identityID == "" {
		return -1
	}
	for i, id := range g.SeatIDs {
		if id == identityID {
			return i
		}
	}
	return -1
}

// TokenCount returns the total token count across all hands and piles.
// It is invariant across every action; draws and penalties only move
// tokens between piles and hands.
func (g *Game) TokenCount() int {
	total := len(g.DrawPile) + len(g.DiscardPile)
	for _, hand := range g.Hands {
		total += len(hand)
	}
	return total
}

// advance moves the turn pointer the given number of occupied seats in the
// current direction, skipping vacated seats.
func (g *Game) advance(steps int) {
	if g.ActiveSeatCount() == 0 {
		return
	}
	for s := 0; s < steps; s++ {
		for {
			g.TurnSeat = (g.TurnSeat + g.Direction + g.Capacity) % g.Capacity
			if g.SeatIDs[g.TurnSeat] != "" {
				break
			}
		}
	}
}

// removeToken removes one instance of the token from the seat's hand,
// reporting whether it was present.
func (g *Game) removeToken(seat int, token Token) bool {
	hand := g.Hands[seat]
	for i, t := range hand {
		if t == token {
			g.Hands[seat] = append(hand[:i], hand[i+1:]...)
			return true
		}
	}
	return false
}

// hasToken reports whether the seat's hand contains the token.
func (g *Game) hasToken(seat int, token Token) bool {
	for _, t := range g.Hands[seat] {
		if t == token {
			return true
		}
	}
	return false
}
