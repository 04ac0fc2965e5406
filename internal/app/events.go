package app

import "github.com/a-singh09/uno-game-sub000/internal/domain"

// EventKind identifies emitted app events for gateway dispatch.
type EventKind string

const (
	EventSeatList           EventKind = "seat_list"
	EventGameStarted        EventKind = "game_started"
	EventHandDealt          EventKind = "hand_dealt"
	EventCardPlayed         EventKind = "card_played"
	EventCardDrawn          EventKind = "card_drawn"
	EventDeckReshuffled     EventKind = "deck_reshuffled"
	EventOneDeclared        EventKind = "one_declared"
	EventPenaltyApplied     EventKind = "penalty_applied"
	EventGameEnded          EventKind = "game_ended"
	EventPlayerDisconnected EventKind = "player_disconnected"
	EventPlayerReconnected  EventKind = "player_reconnected"
	EventPlayerRemoved      EventKind = "player_removed"
)

// Event is an app event with optional targeted recipients.
type Event struct {
	Kind       EventKind
	Payload    any
	Recipients []string // identity IDs; empty means broadcast
}

// SeatInfo is one entry of the ordered seat list.
type SeatInfo struct {
	Seat        int    `json:"seat"`
	IdentityID  string `json:"identity_id,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
	Connected   bool   `json:"connected"`
}

type SeatListPayload struct {
	Seats []SeatInfo `json:"seats"`
}

type GameStartedPayload struct {
	FirstTurnSeat int          `json:"first_turn_seat"`
	ActiveColor   domain.Color `json:"active_color"`
	ActiveRank    domain.Rank  `json:"active_rank"`
	HandCounts    []int        `json:"hand_counts"`
}

// HandDealtPayload carries a seat's private tokens; always targeted.
type HandDealtPayload struct {
	Seat int            `json:"seat"`
	Hand []domain.Token `json:"hand"`
}

type CardPlayedPayload struct {
	Seat         int          `json:"seat"`
	Card         domain.Card  `json:"card"`
	Token        domain.Token `json:"token"`
	ChosenColor  domain.Color `json:"chosen_color,omitempty"`
	ActiveColor  domain.Color `json:"active_color"`
	ActiveRank   domain.Rank  `json:"active_rank"`
	SkippedSeat  int          `json:"skipped_seat"`
	Reversed     bool         `json:"reversed"`
	NextTurnSeat int          `json:"next_turn_seat"`
	TurnCounter  int64        `json:"turn_counter"`
}

// CardDrawnPayload is emitted twice per draw: a targeted copy carrying the
// tokens, and a broadcast copy carrying only the count.
type CardDrawnPayload struct {
	Seat         int            `json:"seat"`
	Tokens       []domain.Token `json:"tokens,omitempty"`
	Count        int            `json:"count"`
	Playable     bool           `json:"playable"`
	NextTurnSeat int            `json:"next_turn_seat"`
	TurnCounter  int64          `json:"turn_counter"`
}

type DeckReshuffledPayload struct {
	DrawPileSize int `json:"draw_pile_size"`
}

type OneDeclaredPayload struct {
	Seat int `json:"seat"`
}

type PenaltyAppliedPayload struct {
	Seat  int `json:"seat"`
	Count int `json:"count"`
}

type GameEndedPayload struct {
	WinnerSeat int    `json:"winner_seat"`
	WinnerID   string `json:"winner_id"`
}

type PlayerConnectionPayload struct {
	Seat       int    `json:"seat"`
	IdentityID string `json:"identity_id"`
}
