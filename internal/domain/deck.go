package domain

// DeckSize is the total number of physical cards in a session deck.
const DeckSize = 108

// Composition returns the full ordered card composition for one session:
// per color one 0, two each of 1..9, two each of skip/reverse/draw-two,
// plus four wilds and four wild-draw-fours.
func Composition() []Card {
	deck := make([]Card, 0, DeckSize)
	for color := ColorRed; color <= ColorBlue; color++ {
		deck = append(deck, Card{Color: color, Rank: 0})
		for r := Rank(1); r <= 9; r++ {
			deck = append(deck, Card{Color: color, Rank: r}, Card{Color: color, Rank: r})
		}
		for _, r := range []Rank{RankSkip, RankReverse, RankDrawTwo} {
			deck = append(deck, Card{Color: color, Rank: r}, Card{Color: color, Rank: r})
		}
	}
	for i := 0; i < 4; i++ {
		deck = append(deck, Card{Color: ColorNone, Rank: RankWild})
	}
	for i := 0; i < 4; i++ {
		deck = append(deck, Card{Color: ColorNone, Rank: RankWildFour})
	}
	return deck
}
