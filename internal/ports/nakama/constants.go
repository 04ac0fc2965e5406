package nakama

const (
	// RpcQuickMatch is the RPC id clients call to find or create an open
	// session.
	RpcQuickMatch = "quick_match"
	// RpcSessionLookup is the RPC id clients call to resolve a session by
	// its short alternate id, e.g. to rejoin after a restart.
	RpcSessionLookup = "session_lookup"

	// MatchNameUno is the authoritative match handler name registered with
	// the runtime.
	MatchNameUno = "uno_match"
)

// Op codes for client messages and server events.
const (
	// Client -> Server
	OpStartGame  int64 = 1
	OpPlayCard   int64 = 2
	OpDrawCard   int64 = 3
	OpKeepCard   int64 = 4
	OpDeclareOne int64 = 5
	OpLeave      int64 = 6

	// Server -> Client events
	OpSeatList           int64 = 101
	OpGameStarted        int64 = 102
	OpHandDealt          int64 = 103 // sent privately
	OpCardPlayed         int64 = 104
	OpCardDrawn          int64 = 105 // token-bearing copy sent privately
	OpDeckReshuffled     int64 = 106
	OpOneDeclared        int64 = 107
	OpPenaltyApplied     int64 = 108
	OpGameEnded          int64 = 109
	OpPlayerDisconnected int64 = 110
	OpPlayerReconnected  int64 = 111
	OpPlayerRemoved      int64 = 112
	OpResumeToken        int64 = 113 // sent privately
	OpGameError          int64 = 120
)
