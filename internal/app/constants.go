package app

// MinPlayersToStartGame defines the minimum number of occupied seats required
// to deal a game. Keep this centralized so tests or local runs can adjust the
// rule without touching multiple call sites.
const MinPlayersToStartGame = 2

// DefaultHandSize is the number of tokens dealt to each occupied seat.
const DefaultHandSize = 7
