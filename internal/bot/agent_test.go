package bot

import (
	"fmt"
	"testing"

	"github.com/a-singh09/uno-game-sub000/internal/domain"
)

type tableBuilder struct {
	table *domain.DecodeTable
	next  int
}

func newTableBuilder() *tableBuilder {
	return &tableBuilder{table: &domain.DecodeTable{Cards: make(map[domain.Token]domain.Card)}}
}

func (b *tableBuilder) mint(c domain.Card) domain.Token {
	b.next++
	tok := domain.Token(fmt.Sprintf("tok%03d", b.next))
	b.table.Cards[tok] = c
	return tok
}

func botGame(hand []domain.Token) *domain.Game {
	g := domain.NewGame("s-bot", "alt01", 2)
	g.SeatIDs[0] = GetBotIdentity(0).UserID
	g.SeatIDs[1] = "user-a"
	g.Phase = domain.PhaseActive
	g.ActiveColor = domain.ColorRed
	g.ActiveRank = 5
	g.Hands[0] = hand
	return g
}

func TestNewAgent(t *testing.T) {
	if _, err := NewAgent(GetBotIdentity(0).UserID); err != nil {
		t.Fatalf("NewAgent(bot id) error: %v", err)
	}
	if _, err := NewAgent("user-a"); err == nil {
		t.Fatalf("NewAgent accepted a human user id")
	}
}

func TestChooseAction(t *testing.T) {
	agent, err := NewAgent(GetBotIdentity(0).UserID)
	if err != nil {
		t.Fatalf("NewAgent() error: %v", err)
	}

	t.Run("DeclaresAtTwoCards", func(t *testing.T) {
		b := newTableBuilder()
		g := botGame([]domain.Token{
			b.mint(domain.Card{Color: domain.ColorRed, Rank: 1}),
			b.mint(domain.Card{Color: domain.ColorRed, Rank: 2}),
		})

		action, err := agent.ChooseAction(g, b.table, 0)
		if err != nil {
			t.Fatalf("ChooseAction() error: %v", err)
		}
		if action.Kind != domain.ActionDeclare {
			t.Fatalf("action = %s, want declare", action.Kind)
		}
	})

	t.Run("PlaysFirstLegalCard", func(t *testing.T) {
		b := newTableBuilder()
		playable := b.mint(domain.Card{Color: domain.ColorRed, Rank: 9})
		g := botGame([]domain.Token{
			b.mint(domain.Card{Color: domain.ColorBlue, Rank: 1}),
			playable,
			b.mint(domain.Card{Color: domain.ColorGreen, Rank: 2}),
		})

		action, err := agent.ChooseAction(g, b.table, 0)
		if err != nil {
			t.Fatalf("ChooseAction() error: %v", err)
		}
		if action.Kind != domain.ActionPlay || action.Token != playable {
			t.Fatalf("action = %s token %s, want play %s", action.Kind, action.Token, playable)
		}
	})

	t.Run("PlaysPendingDrawnCard", func(t *testing.T) {
		b := newTableBuilder()
		drawn := b.mint(domain.Card{Color: domain.ColorRed, Rank: 3})
		g := botGame([]domain.Token{
			b.mint(domain.Card{Color: domain.ColorBlue, Rank: 1}),
			b.mint(domain.Card{Color: domain.ColorGreen, Rank: 2}),
			drawn,
		})
		g.DrewPlayable = true

		action, err := agent.ChooseAction(g, b.table, 0)
		if err != nil {
			t.Fatalf("ChooseAction() error: %v", err)
		}
		if action.Kind != domain.ActionPlay || action.Token != drawn {
			t.Fatalf("action = %s token %s, want play pending %s", action.Kind, action.Token, drawn)
		}
	})

	t.Run("DrawsWhenStuck", func(t *testing.T) {
		b := newTableBuilder()
		g := botGame([]domain.Token{
			b.mint(domain.Card{Color: domain.ColorBlue, Rank: 1}),
			b.mint(domain.Card{Color: domain.ColorGreen, Rank: 2}),
			b.mint(domain.Card{Color: domain.ColorYellow, Rank: 3}),
		})

		action, err := agent.ChooseAction(g, b.table, 0)
		if err != nil {
			t.Fatalf("ChooseAction() error: %v", err)
		}
		if action.Kind != domain.ActionDraw {
			t.Fatalf("action = %s, want draw", action.Kind)
		}
	})

	t.Run("WildPicksMostHeldColor", func(t *testing.T) {
		b := newTableBuilder()
		wild := b.mint(domain.Card{Color: domain.ColorNone, Rank: domain.RankWild})
		g := botGame([]domain.Token{
			wild,
			b.mint(domain.Card{Color: domain.ColorBlue, Rank: 1}),
			b.mint(domain.Card{Color: domain.ColorBlue, Rank: 2}),
			b.mint(domain.Card{Color: domain.ColorGreen, Rank: 3}),
		})
		// Nothing else matches red 5, so the wild is the first legal card.

		action, err := agent.ChooseAction(g, b.table, 0)
		if err != nil {
			t.Fatalf("ChooseAction() error: %v", err)
		}
		if action.Kind != domain.ActionPlay || action.Token != wild {
			t.Fatalf("action = %s token %s, want play wild", action.Kind, action.Token)
		}
		if action.ChosenColor != domain.ColorBlue {
			t.Fatalf("chosen color = %s, want blue (most held)", action.ChosenColor)
		}
	})
}

func TestBotIdentities(t *testing.T) {
	id := GetBotIdentity(0)
	if !IsBot(id.UserID) {
		t.Fatalf("roster id %q not recognized as a bot", id.UserID)
	}
	if IsBot("6ba7b810-9dad-11d1-80b4-00c04fd430c8") {
		t.Fatalf("human uuid recognized as a bot")
	}

	// Fallback identities are stable per seat.
	if a, b := GetBotIdentity(42), GetBotIdentity(42); a != b {
		t.Fatalf("fallback identity not stable: %+v vs %+v", a, b)
	}
}
