package domain

import (
	"errors"
	"fmt"
	mrand "math/rand"
)

var (
	// ErrInvalidMove indicates a play that does not match the active color,
	// active rank, or wild class, or an action with a malformed field.
	ErrInvalidMove = errors.New("invalid move")
	// ErrStaleTurn indicates the actor is not the seat on turn.
	ErrStaleTurn = errors.New("not the actor's turn")
	// ErrEmptyPiles indicates both piles are empty. Guarded; unreachable
	// given reshuffle-on-empty.
	ErrEmptyPiles = errors.New("draw and discard piles are both empty")
	// ErrEnded indicates the session is terminal and rejects all actions.
	ErrEnded = errors.New("session has ended")
	// ErrNotActive indicates the session has not been dealt yet.
	ErrNotActive = errors.New("session is not active")
	// ErrSessionHalted indicates a prior consistency failure froze the
	// session; it is escalated, never auto-recovered.
	ErrSessionHalted = errors.New("session halted after consistency failure")
	// ErrNotDrawn rejects a keep action when no playable card was just drawn.
	ErrNotDrawn = errors.New("no drawn card pending")
)

// ActionKind enumerates the turn actions an actor can submit.
type ActionKind string

const (
	ActionPlay    ActionKind = "play"
	ActionDraw    ActionKind = "draw"
	ActionKeep    ActionKind = "keep"
	ActionDeclare ActionKind = "declare"
)

// Action is a validated inbound game action. TurnCounter echoes the
// session's counter at send time so at-least-once redelivery can be
// suppressed as a no-op.
type Action struct {
	Kind        ActionKind `json:"kind"`
	Seat        int        `json:"seat"`
	Token       Token      `json:"token,omitempty"`
	ChosenColor Color      `json:"chosen_color,omitempty"`
	TurnCounter int64      `json:"turn_counter"`
}

// Outcome describes the state delta produced by one applied action. The
// app layer turns it into broadcast events.
type Outcome struct {
	Kind        ActionKind
	Seat        int
	Played      Card
	PlayedToken Token
	ChosenColor Color
	Drawn       map[int][]Token // tokens drawn per seat
	DrewPlayable bool
	Reshuffled  bool
	SkippedSeat int
	Reversed    bool
	NextTurn    int
	Ended       bool
	WinnerSeat  int
}

// IsDuplicate reports whether the action's (turnCounter, actor) id matches
// the last applied action, in which case it must be treated as a no-op.
func (g *Game) IsDuplicate(a Action) bool {
	return g.LastAppliedSeat >= 0 &&
		a.Seat == g.LastAppliedSeat &&
		a.TurnCounter == g.LastAppliedCounter
}

// Deal transitions a Waiting game to Active: builds the shuffled token deck,
// deals handSize tokens to every occupied seat, and flips the first discard.
// Returns the decode table, which the caller persists; it never travels to
// participants.
func (g *Game) Deal(seats []string, handSize int, rng *mrand.Rand) (*DecodeTable, error) {
	if g.Phase != PhaseWaiting {
		return nil, ErrNotActive
	}
	copy(g.SeatIDs, seats)
	if g.ActiveSeatCount() < 2 {
		return nil, fmt.Errorf("%w: need at least 2 occupied seats", ErrInvalidMove)
	}

	order, table, err := GenerateDeck(g.SessionID, rng)
	if err != nil {
		return nil, err
	}
	g.DrawPile = order

	for seat, id := range g.SeatIDs {
		if id == "" {
			continue
		}
		hand := make([]Token, 0, handSize)
		for i := 0; i < handSize; i++ {
			hand = append(hand, g.popDraw())
		}
		g.Hands[seat] = hand
		g.DeclaredOne[seat] = false
	}

	// Flip the first discard. Non-numbered cards cycle to the bottom so the
	// opening board always has a concrete color and rank.
	for {
		token := g.popDraw()
		card, err := table.Decode(token)
		if err != nil {
			return nil, err
		}
		if card.Rank >= 0 && card.Rank <= 9 {
			g.DiscardPile = append(g.DiscardPile, token)
			g.ActiveColor = card.Color
			g.ActiveRank = card.Rank
			break
		}
		g.DrawPile = append([]Token{token}, g.DrawPile...)
	}

	g.Phase = PhaseActive
	g.Direction = 1
	for seat, id := range g.SeatIDs {
		if id != "" {
			g.TurnSeat = seat
			break
		}
	}
	return table, nil
}

// Validate checks an action against the current state without mutating it.
func (g *Game) Validate(table *DecodeTable, a Action) error {
	if g.Halted {
		return ErrSessionHalted
	}
	switch g.Phase {
	case PhaseEnded:
		return ErrEnded
	case PhaseWaiting:
		return ErrNotActive
	}
	if a.Seat < 0 || a.Seat >= g.Capacity || g.SeatIDs[a.Seat] == "" {
		return ErrStaleTurn
	}

	switch a.Kind {
	case ActionDeclare:
		if len(g.Hands[a.Seat]) != 2 {
			return fmt.Errorf("%w: declare requires exactly two cards in hand", ErrInvalidMove)
		}
		return nil
	case ActionPlay:
		if a.Seat != g.TurnSeat {
			return ErrStaleTurn
		}
		if !g.hasToken(a.Seat, a.Token) {
			return fmt.Errorf("%w: token not in hand", ErrInvalidMove)
		}
		card, err := table.Decode(a.Token)
		if err != nil {
			return err
		}
		if !card.Playable(g.ActiveColor, g.ActiveRank) {
			return fmt.Errorf("%w: %s on %s %s", ErrInvalidMove, card, g.ActiveColor, g.ActiveRank)
		}
		if card.IsWildClass() && !a.ChosenColor.Valid() {
			return fmt.Errorf("%w: wild play requires a chosen color", ErrInvalidMove)
		}
		return nil
	case ActionDraw:
		if a.Seat != g.TurnSeat {
			return ErrStaleTurn
		}
		if g.DrewPlayable {
			return fmt.Errorf("%w: drawn card must be played or kept first", ErrInvalidMove)
		}
		return nil
	case ActionKeep:
		if a.Seat != g.TurnSeat {
			return ErrStaleTurn
		}
		if !g.DrewPlayable {
			return ErrNotDrawn
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown action kind %q", ErrInvalidMove, a.Kind)
	}
}

// Apply executes a validated action, mutating the game. Callers must run
// Validate first; Apply re-checks nothing beyond what it needs to stay
// consistent. Actions are processed strictly in arrival order and are never
// queued or retried.
func (g *Game) Apply(table *DecodeTable, rng *mrand.Rand, a Action) (*Outcome, error) {
	out := &Outcome{
		Kind:        a.Kind,
		Seat:        a.Seat,
		SkippedSeat: -1,
		WinnerSeat:  -1,
		Drawn:       map[int][]Token{},
	}

	switch a.Kind {
	case ActionPlay:
		if err := g.applyPlay(table, rng, a, out); err != nil {
			return nil, err
		}
	case ActionDraw:
		if err := g.applyDraw(table, rng, a, out); err != nil {
			return nil, err
		}
	case ActionKeep:
		g.DrewPlayable = false
		g.advance(1)
		g.TurnCounter++
	case ActionDeclare:
		g.DeclaredOne[a.Seat] = true
		if g.PendingPenaltySeat == a.Seat {
			g.PendingPenaltySeat = -1
		}
	}

	if a.Kind != ActionDeclare {
		g.LastAppliedSeat = a.Seat
		g.LastAppliedCounter = a.TurnCounter
	}
	out.NextTurn = g.TurnSeat
	out.Ended = g.Phase == PhaseEnded
	out.WinnerSeat = g.WinnerSeat
	return out, nil
}

func (g *Game) applyPlay(table *DecodeTable, rng *mrand.Rand, a Action, out *Outcome) error {
	card, err := table.Decode(a.Token)
	if err != nil {
		return err
	}
	if !g.removeToken(a.Seat, a.Token) {
		return fmt.Errorf("%w: token not in hand", ErrInvalidMove)
	}
	g.DiscardPile = append(g.DiscardPile, a.Token)
	g.DrewPlayable = false
	out.Played = card
	out.PlayedToken = a.Token

	if card.IsWildClass() {
		g.ActiveColor = a.ChosenColor
		g.ActiveRank = card.Rank
		out.ChosenColor = a.ChosenColor
	} else {
		g.ActiveColor = card.Color
		g.ActiveRank = card.Rank
	}

	switch card.Rank {
	case RankSkip:
		out.SkippedSeat = g.peek(1)
		g.advance(2)
	case RankReverse:
		g.Direction = -g.Direction
		out.Reversed = true
		if g.ActiveSeatCount() == 2 {
			// With two active seats a reverse behaves identically to a
			// skip: the single opponent is skipped and the actor goes again.
			out.SkippedSeat = g.peek(1)
			g.advance(2)
		} else {
			g.advance(1)
		}
	case RankDrawTwo:
		target := g.peek(1)
		if err := g.drawTo(target, 2, rng, out); err != nil {
			return err
		}
		out.SkippedSeat = target
		g.advance(2)
	case RankWildFour:
		target := g.peek(1)
		if err := g.drawTo(target, 4, rng, out); err != nil {
			return err
		}
		out.SkippedSeat = target
		g.advance(2)
	default:
		g.advance(1)
	}
	g.TurnCounter++

	if len(g.Hands[a.Seat]) == 0 {
		g.Phase = PhaseEnded
		g.WinnerSeat = a.Seat
		g.WinnerID = g.SeatIDs[a.Seat]
		return nil
	}
	if len(g.Hands[a.Seat]) == 2 && !g.DeclaredOne[a.Seat] {
		// Checked when the next action for the session is processed, not
		// immediately.
		g.PendingPenaltySeat = a.Seat
	}
	return nil
}

func (g *Game) applyDraw(table *DecodeTable, rng *mrand.Rand, a Action, out *Outcome) error {
	token, reshuffled, err := g.drawOne(rng)
	if err != nil {
		return err
	}
	out.Reshuffled = reshuffled
	g.Hands[a.Seat] = append(g.Hands[a.Seat], token)
	out.Drawn[a.Seat] = append(out.Drawn[a.Seat], token)
	if len(g.Hands[a.Seat]) > 2 {
		g.DeclaredOne[a.Seat] = false
	}

	card, err := table.Decode(token)
	if err != nil {
		return err
	}
	if card.Playable(g.ActiveColor, g.ActiveRank) {
		// The drawn card may be played immediately in the same logical turn.
		g.DrewPlayable = true
		out.DrewPlayable = true
	} else {
		g.advance(1)
	}
	g.TurnCounter++
	return nil
}

// ResolvePendingPenalty applies the deferred one-card draw penalty if the
// seat that reached two tokens never declared. Called at the processing
// point of the session's next turn action.
func (g *Game) ResolvePendingPenalty(rng *mrand.Rand) (*Outcome, error) {
	if g.PendingPenaltySeat < 0 || g.Phase != PhaseActive {
		return nil, nil
	}
	seat := g.PendingPenaltySeat
	g.PendingPenaltySeat = -1
	if g.DeclaredOne[seat] || g.SeatIDs[seat] == "" {
		return nil, nil
	}
	out := &Outcome{Kind: ActionDraw, Seat: seat, SkippedSeat: -1, WinnerSeat: -1, Drawn: map[int][]Token{}}
	if err := g.drawTo(seat, 2, rng, out); err != nil {
		return nil, err
	}
	out.NextTurn = g.TurnSeat
	return out, nil
}

// VacateSeat removes an occupant mid-session, returning their hand to the
// bottom of the draw pile so token conservation holds. If only one seat
// remains the session ends with that seat as winner.
func (g *Game) VacateSeat(seat int) {
	if seat < 0 || seat >= g.Capacity || g.SeatIDs[seat] == "" {
		return
	}
	// Terminal state is frozen; a late leave must not disturb it.
	if g.Phase == PhaseEnded || g.Halted {
		return
	}
	wasTurn := g.TurnSeat == seat
	hand := g.Hands[seat]
	g.Hands[seat] = nil
	g.SeatIDs[seat] = ""
	g.DeclaredOne[seat] = false
	if g.PendingPenaltySeat == seat {
		g.PendingPenaltySeat = -1
	}
	g.DrawPile = append(hand, g.DrawPile...)

	if g.Phase != PhaseActive {
		return
	}
	if g.ActiveSeatCount() == 1 {
		g.Phase = PhaseEnded
		for i, id := range g.SeatIDs {
			if id != "" {
				g.WinnerSeat = i
				g.WinnerID = id
				break
			}
		}
		return
	}
	if wasTurn {
		g.DrewPlayable = false
		g.advance(1)
	}
}

// peek returns the seat that would hold the turn after the given number of
// steps, without mutating state.
func (g *Game) peek(steps int) int {
	seat := g.TurnSeat
	for s := 0; s < steps; s++ {
		for {
			seat = (seat + g.Direction + g.Capacity) % g.Capacity
			if g.SeatIDs[seat] != "" {
				break
			}
		}
	}
	return seat
}

// popDraw removes and returns the top token of the draw pile. Callers must
// ensure the pile is non-empty.
func (g *Game) popDraw() Token {
	token := g.DrawPile[len(g.DrawPile)-1]
	g.DrawPile = g.DrawPile[:len(g.DrawPile)-1]
	return token
}

// drawOne takes one token from the draw pile, reshuffling the discard pile
// (all but its top card) into a fresh draw pile when empty.
func (g *Game) drawOne(rng *mrand.Rand) (Token, bool, error) {
	reshuffled := false
	if len(g.DrawPile) == 0 {
		if len(g.DiscardPile) <= 1 {
			return "", false, ErrEmptyPiles
		}
		top := g.DiscardPile[len(g.DiscardPile)-1]
		rest := g.DiscardPile[:len(g.DiscardPile)-1]
		shuffled := make([]Token, len(rest))
		copy(shuffled, rest)
		rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
		g.DrawPile = shuffled
		g.DiscardPile = []Token{top}
		reshuffled = true
	}
	return g.popDraw(), reshuffled, nil
}

func (g *Game) drawTo(seat, n int, rng *mrand.Rand, out *Outcome) error {
	for i := 0; i < n; i++ {
		token, reshuffled, err := g.drawOne(rng)
		if err != nil {
			return err
		}
		if reshuffled {
			out.Reshuffled = true
		}
		g.Hands[seat] = append(g.Hands[seat], token)
		out.Drawn[seat] = append(out.Drawn[seat], token)
	}
	if len(g.Hands[seat]) > 2 {
		g.DeclaredOne[seat] = false
	}
	return nil
}
