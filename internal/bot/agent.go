// Package bot provides simple server-side agents that can hold seats when
// enabled. Agents run on the authoritative side and so may consult the
// decode table, exactly like the turn engine itself.
package bot

import (
	"fmt"

	"github.com/a-singh09/uno-game-sub000/internal/domain"
)

// Agent decides one action at a time for a bot-held seat.
type Agent struct {
	UserID string
}

// NewAgent constructs an agent for the given bot user id.
func NewAgent(userID string) (*Agent, error) {
	if !IsBot(userID) {
		return nil, fmt.Errorf("not a bot user id: %s", userID)
	}
	return &Agent{UserID: userID}, nil
}

// ChooseAction picks the bot's next action for its turn: declare when
// required, play the pending drawn card, otherwise the first legal card in
// hand, otherwise draw.
func (a *Agent) ChooseAction(game *domain.Game, table *domain.DecodeTable, seat int) (domain.Action, error) {
	hand := game.Hands[seat]

	if len(hand) == 2 && !game.DeclaredOne[seat] {
		return domain.Action{Kind: domain.ActionDeclare, Seat: seat, TurnCounter: game.TurnCounter}, nil
	}

	if game.DrewPlayable {
		// The freshly drawn token sits at the end of the hand and is known
		// playable.
		token := hand[len(hand)-1]
		return a.playAction(table, seat, token, hand, game.TurnCounter)
	}

	for _, token := range hand {
		card, err := table.Decode(token)
		if err != nil {
			return domain.Action{}, err
		}
		if card.Playable(game.ActiveColor, game.ActiveRank) {
			return a.playAction(table, seat, token, hand, game.TurnCounter)
		}
	}

	return domain.Action{Kind: domain.ActionDraw, Seat: seat, TurnCounter: game.TurnCounter}, nil
}

func (a *Agent) playAction(table *domain.DecodeTable, seat int, token domain.Token, hand []domain.Token, counter int64) (domain.Action, error) {
	card, err := table.Decode(token)
	if err != nil {
		return domain.Action{}, err
	}
	action := domain.Action{Kind: domain.ActionPlay, Seat: seat, Token: token, TurnCounter: counter}
	if card.IsWildClass() {
		action.ChosenColor = a.bestColor(table, hand, token)
	}
	return action, nil
}

// bestColor picks the color the bot holds most of, defaulting to red for a
// hand of nothing but wilds.
func (a *Agent) bestColor(table *domain.DecodeTable, hand []domain.Token, exclude domain.Token) domain.Color {
	counts := make(map[domain.Color]int, domain.NumColors)
	for _, token := range hand {
		if token == exclude {
			continue
		}
		card, err := table.Decode(token)
		if err != nil || card.IsWildClass() {
			continue
		}
		counts[card.Color]++
	}
	best := domain.ColorRed
	bestCount := -1
	for color := domain.ColorRed; color <= domain.ColorBlue; color++ {
		if counts[color] > bestCount {
			best = color
			bestCount = counts[color]
		}
	}
	return best
}
