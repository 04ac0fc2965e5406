package domain

import "fmt"

// Color identifies a card color. ColorNone is carried by wild-class cards
// until an actor chooses a color for them at play time.
type Color int8

const (
	ColorNone Color = iota - 1
	ColorRed
	ColorYellow
	ColorGreen
	ColorBlue
)

// NumColors is the number of chooseable colors.
const NumColors = 4

func (c Color) String() string {
	switch c {
	case ColorRed:
		return "red"
	case ColorYellow:
		return "yellow"
	case ColorGreen:
		return "green"
	case ColorBlue:
		return "blue"
	default:
		return "none"
	}
}

// Valid reports whether the color is one an actor may choose for a wild.
func (c Color) Valid() bool {
	return c >= ColorRed && c <= ColorBlue
}

// Rank identifies a card face. Ranks 0..9 are the numbered cards.
type Rank int8

const (
	RankSkip Rank = iota + 10
	RankReverse
	RankDrawTwo
	RankWild
	RankWildFour
)

func (r Rank) String() string {
	switch {
	case r >= 0 && r <= 9:
		return fmt.Sprintf("%d", int(r))
	case r == RankSkip:
		return "skip"
	case r == RankReverse:
		return "reverse"
	case r == RankDrawTwo:
		return "draw_two"
	case r == RankWild:
		return "wild"
	case r == RankWildFour:
		return "wild_draw_four"
	default:
		return "invalid"
	}
}

// Card is a single physical card, decoded once at deck construction and
// never re-parsed downstream.
type Card struct {
	Color Color `json:"color"`
	Rank  Rank  `json:"rank"`
}

func (c Card) String() string {
	if c.IsWildClass() {
		return c.Rank.String()
	}
	return c.Color.String() + "_" + c.Rank.String()
}

// IsWildClass reports whether the card is a wild or wild-draw-four.
func (c Card) IsWildClass() bool {
	return c.Rank == RankWild || c.Rank == RankWildFour
}

// Playable reports whether the card may legally be played on the given
// active color and rank. Wild-class cards are always playable.
func (c Card) Playable(activeColor Color, activeRank Rank) bool {
	if c.IsWildClass() {
		return true
	}
	return c.Color == activeColor || c.Rank == activeRank
}
