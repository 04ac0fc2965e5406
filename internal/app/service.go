package app

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/a-singh09/uno-game-sub000/internal/domain"
)

// ErrConsistency marks a token-conservation violation or decode miss. The
// affected session is halted fail-safe and escalated, never auto-recovered.
var ErrConsistency = errors.New("consistency failure")

// Service contains the turn-engine use-cases operating on canonical game
// state. All methods for one session must be called from that session's
// serialized loop; the service holds no per-session locks of its own.
type Service struct {
	rng      *rand.Rand
	handSize int
}

// NewService constructs a Service with the provided rng or a time-seeded
// default.
func NewService(rng *rand.Rand, handSize int) *Service {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if handSize <= 0 {
		handSize = DefaultHandSize
	}
	return &Service{rng: rng, handSize: handSize}
}

// StartGame deals a Waiting session. seats is the ordered seat->identity
// mapping; empty strings mark empty seats. Returns the decode table for
// persistence and the dealt events (private hands plus the public start).
func (s *Service) StartGame(game *domain.Game, seats []string) (*domain.DecodeTable, []Event, error) {
	table, err := game.Deal(seats, s.handSize, s.rng)
	if err != nil {
		return nil, nil, err
	}

	events := make([]Event, 0, game.ActiveSeatCount()+1)
	handCounts := make([]int, game.Capacity)
	for seat, id := range game.SeatIDs {
		if id == "" {
			continue
		}
		handCounts[seat] = len(game.Hands[seat])
		events = append(events, Event{
			Kind:       EventHandDealt,
			Payload:    HandDealtPayload{Seat: seat, Hand: game.Hands[seat]},
			Recipients: []string{id},
		})
	}
	events = append(events, Event{
		Kind: EventGameStarted,
		Payload: GameStartedPayload{
			FirstTurnSeat: game.TurnSeat,
			ActiveColor:   game.ActiveColor,
			ActiveRank:    game.ActiveRank,
			HandCounts:    handCounts,
		},
	})
	return table, events, nil
}

// HandleAction processes one inbound turn action strictly in arrival order.
// Duplicate deliveries of an already-applied action id are a no-op with no
// events. Invalid or stale actions are rejected synchronously with zero
// state mutation.
func (s *Service) HandleAction(game *domain.Game, table *domain.DecodeTable, a domain.Action) ([]Event, error) {
	if a.Kind != domain.ActionDeclare && game.IsDuplicate(a) {
		return nil, nil
	}

	var events []Event

	// The one-card penalty is evaluated at the processing point of the
	// session's next turn action, not when the hand reached two tokens.
	if a.Kind != domain.ActionDeclare {
		penaltyEvents, err := s.resolvePenalty(game)
		if err != nil {
			return nil, err
		}
		events = append(events, penaltyEvents...)
	}

	if err := game.Validate(table, a); err != nil {
		if errors.Is(err, domain.ErrUnknownToken) {
			game.Halted = true
			return events, fmt.Errorf("%w: %v", ErrConsistency, err)
		}
		return events, err
	}

	out, err := game.Apply(table, s.rng, a)
	if err != nil {
		if errors.Is(err, domain.ErrUnknownToken) || errors.Is(err, domain.ErrEmptyPiles) {
			game.Halted = true
			return events, fmt.Errorf("%w: %v", ErrConsistency, err)
		}
		return events, err
	}
	if err := s.checkConservation(game); err != nil {
		return events, err
	}

	events = append(events, s.outcomeEvents(game, out)...)
	return events, nil
}

// VacateSeat removes an occupant from the canonical state, emitting the end
// event if only one seat remains.
func (s *Service) VacateSeat(game *domain.Game, seat int) ([]Event, error) {
	wasActive := game.Phase == domain.PhaseActive
	game.VacateSeat(seat)
	if err := s.checkConservation(game); err != nil {
		return nil, err
	}
	if wasActive && game.Phase == domain.PhaseEnded {
		return []Event{{
			Kind:    EventGameEnded,
			Payload: GameEndedPayload{WinnerSeat: game.WinnerSeat, WinnerID: game.WinnerID},
		}}, nil
	}
	return nil, nil
}

func (s *Service) resolvePenalty(game *domain.Game) ([]Event, error) {
	out, err := game.ResolvePendingPenalty(s.rng)
	if err != nil {
		game.Halted = true
		return nil, fmt.Errorf("%w: %v", ErrConsistency, err)
	}
	if out == nil {
		return nil, nil
	}
	if err := s.checkConservation(game); err != nil {
		return nil, err
	}
	events := []Event{{
		Kind:    EventPenaltyApplied,
		Payload: PenaltyAppliedPayload{Seat: out.Seat, Count: len(out.Drawn[out.Seat])},
	}, {
		Kind:       EventCardDrawn,
		Payload:    CardDrawnPayload{Seat: out.Seat, Tokens: out.Drawn[out.Seat], Count: len(out.Drawn[out.Seat]), NextTurnSeat: game.TurnSeat, TurnCounter: game.TurnCounter},
		Recipients: []string{game.SeatIDs[out.Seat]},
	}}
	if out.Reshuffled {
		events = append(events, Event{Kind: EventDeckReshuffled, Payload: DeckReshuffledPayload{DrawPileSize: len(game.DrawPile)}})
	}
	return events, nil
}

func (s *Service) outcomeEvents(game *domain.Game, out *domain.Outcome) []Event {
	var events []Event
	if out.Reshuffled {
		events = append(events, Event{Kind: EventDeckReshuffled, Payload: DeckReshuffledPayload{DrawPileSize: len(game.DrawPile)}})
	}

	switch out.Kind {
	case domain.ActionPlay:
		events = append(events, Event{
			Kind: EventCardPlayed,
			Payload: CardPlayedPayload{
				Seat:         out.Seat,
				Card:         out.Played,
				Token:        out.PlayedToken,
				ChosenColor:  out.ChosenColor,
				ActiveColor:  game.ActiveColor,
				ActiveRank:   game.ActiveRank,
				SkippedSeat:  out.SkippedSeat,
				Reversed:     out.Reversed,
				NextTurnSeat: out.NextTurn,
				TurnCounter:  game.TurnCounter,
			},
		})
		// Forced draws from draw-two / wild-draw-four go privately to the
		// penalized seat.
		for seat, tokens := range out.Drawn {
			events = append(events, Event{
				Kind:       EventCardDrawn,
				Payload:    CardDrawnPayload{Seat: seat, Tokens: tokens, Count: len(tokens), NextTurnSeat: out.NextTurn, TurnCounter: game.TurnCounter},
				Recipients: []string{game.SeatIDs[seat]},
			})
		}
	case domain.ActionDraw:
		tokens := out.Drawn[out.Seat]
		events = append(events,
			Event{
				Kind:       EventCardDrawn,
				Payload:    CardDrawnPayload{Seat: out.Seat, Tokens: tokens, Count: len(tokens), Playable: out.DrewPlayable, NextTurnSeat: out.NextTurn, TurnCounter: game.TurnCounter},
				Recipients: []string{game.SeatIDs[out.Seat]},
			},
			Event{
				Kind:    EventCardDrawn,
				Payload: CardDrawnPayload{Seat: out.Seat, Count: len(tokens), NextTurnSeat: out.NextTurn, TurnCounter: game.TurnCounter},
			},
		)
	case domain.ActionKeep:
		events = append(events, Event{
			Kind:    EventCardDrawn,
			Payload: CardDrawnPayload{Seat: out.Seat, Count: 0, NextTurnSeat: out.NextTurn, TurnCounter: game.TurnCounter},
		})
	case domain.ActionDeclare:
		events = append(events, Event{Kind: EventOneDeclared, Payload: OneDeclaredPayload{Seat: out.Seat}})
	}

	if out.Ended {
		events = append(events, Event{
			Kind:    EventGameEnded,
			Payload: GameEndedPayload{WinnerSeat: game.WinnerSeat, WinnerID: game.WinnerID},
		})
	}
	return events
}

func (s *Service) checkConservation(game *domain.Game) error {
	if game.Phase == domain.PhaseWaiting {
		return nil
	}
	if count := game.TokenCount(); count != domain.DeckSize {
		game.Halted = true
		return fmt.Errorf("%w: token count %d, want %d", ErrConsistency, count, domain.DeckSize)
	}
	return nil
}
