package nakama

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/heroiclabs/nakama-common/runtime"

	"github.com/a-singh09/uno-game-sub000/internal/app"
	"github.com/a-singh09/uno-game-sub000/internal/config"
	"github.com/a-singh09/uno-game-sub000/internal/domain"
	"github.com/a-singh09/uno-game-sub000/internal/identity"
	"github.com/a-singh09/uno-game-sub000/internal/session"
	"github.com/a-singh09/uno-game-sub000/internal/store"
)

// noopLogger implements runtime.Logger for tests that only need to satisfy the interface.
type noopLogger struct{}

func (noopLogger) Debug(string, ...interface{}) {}
func (noopLogger) Info(string, ...interface{})  {}
func (noopLogger) Warn(string, ...interface{})  {}
func (noopLogger) Error(string, ...interface{}) {}
func (noopLogger) WithField(string, interface{}) runtime.Logger {
	return noopLogger{}
}
func (noopLogger) WithFields(map[string]interface{}) runtime.Logger {
	return noopLogger{}
}
func (noopLogger) Fields() map[string]interface{} {
	return nil
}

type sentMessage struct {
	opCode     int64
	data       []byte
	recipients []runtime.Presence
}

// mockDispatcher records match dispatcher calls for assertions.
type mockDispatcher struct {
	sent         []sentMessage
	labelUpdates int
	lastLabel    string
}

func (md *mockDispatcher) BroadcastMessage(opCode int64, data []byte, presences []runtime.Presence, sender runtime.Presence, reliable bool) error {
	md.sent = append(md.sent, sentMessage{
		opCode:     opCode,
		data:       append([]byte(nil), data...),
		recipients: presences,
	})
	return nil
}

func (md *mockDispatcher) BroadcastMessageDeferred(opCode int64, data []byte, presences []runtime.Presence, sender runtime.Presence, reliable bool) error {
	return nil
}

func (md *mockDispatcher) MatchKick(presences []runtime.Presence) error {
	return nil
}

func (md *mockDispatcher) MatchLabelUpdate(label string) error {
	md.labelUpdates++
	md.lastLabel = label
	return nil
}

func (md *mockDispatcher) opCount(opCode int64) int {
	count := 0
	for _, msg := range md.sent {
		if msg.opCode == opCode {
			count++
		}
	}
	return count
}

func (md *mockDispatcher) lastOp(opCode int64) *sentMessage {
	for i := len(md.sent) - 1; i >= 0; i-- {
		if md.sent[i].opCode == opCode {
			return &md.sent[i]
		}
	}
	return nil
}

// mockPresence is a minimal runtime.Presence for a connected user.
type mockPresence struct {
	userID   string
	username string
}

func (mp *mockPresence) GetUserId() string                 { return mp.userID }
func (mp *mockPresence) GetSessionId() string              { return "conn-" + mp.userID }
func (mp *mockPresence) GetNodeId() string                 { return "node-1" }
func (mp *mockPresence) GetHidden() bool                   { return false }
func (mp *mockPresence) GetPersistence() bool              { return true }
func (mp *mockPresence) GetUsername() string               { return mp.username }
func (mp *mockPresence) GetStatus() string                 { return "" }
func (mp *mockPresence) GetReason() runtime.PresenceReason { return runtime.PresenceReasonUnknown }

// mockMatchData is an inbound client message.
type mockMatchData struct {
	mockPresence
	opCode int64
	data   []byte
}

func (md *mockMatchData) GetOpCode() int64      { return md.opCode }
func (md *mockMatchData) GetData() []byte       { return md.data }
func (md *mockMatchData) GetReliable() bool     { return true }
func (md *mockMatchData) GetReceiveTime() int64 { return time.Now().UnixMilli() }

func message(userID string, opCode int64, payload any) *mockMatchData {
	var data []byte
	if payload != nil {
		data, _ = json.Marshal(payload)
	}
	return &mockMatchData{
		mockPresence: mockPresence{userID: userID, username: userID},
		opCode:       opCode,
		data:         data,
	}
}

func newTestHandler(t *testing.T) *matchHandler {
	t.Helper()
	cfg := config.GetGameConfig()
	st := store.New(noopLogger{}, store.NewLocalBackend(cfg.StoreTTL()), nil)
	snap := store.NewSnapshotter(noopLogger{}, filepath.Join(t.TempDir(), "ledger.json"), cfg.SnapshotCap, cfg.SnapshotInterval())
	return newMatchHandler(&Deps{
		Store:     st,
		Snapshots: snap,
		Config:    cfg,
		Resume:    app.NewResumeService("test-secret", cfg.ResumeIssuer, cfg.GracePeriod()),
	})
}

func initMatch(t *testing.T, mh *matchHandler) *MatchState {
	t.Helper()
	ctx := context.WithValue(context.Background(), runtime.RUNTIME_CTX_MATCH_ID, "match-1")
	raw, tickRate, label := mh.MatchInit(ctx, noopLogger{}, nil, nil, map[string]interface{}{})
	if tickRate != 1 {
		t.Fatalf("tick rate = %d, want 1", tickRate)
	}
	if label == "" {
		t.Fatalf("empty initial label")
	}
	state, ok := raw.(*MatchState)
	if !ok {
		t.Fatalf("MatchInit returned %T", raw)
	}
	return state
}

func joinUsers(t *testing.T, mh *matchHandler, state *MatchState, dispatcher *mockDispatcher, userIDs ...string) {
	t.Helper()
	presences := make([]runtime.Presence, 0, len(userIDs))
	for _, id := range userIDs {
		presences = append(presences, &mockPresence{userID: id, username: id})
	}
	if out := mh.MatchJoin(context.Background(), noopLogger{}, nil, nil, dispatcher, 1, state, presences); out == nil {
		t.Fatalf("MatchJoin terminated the match")
	}
}

func startGame(t *testing.T, mh *matchHandler, state *MatchState, dispatcher *mockDispatcher, owner string) {
	t.Helper()
	out := mh.MatchLoop(context.Background(), noopLogger{}, nil, nil, dispatcher, 2, state,
		[]runtime.MatchData{message(owner, OpStartGame, nil)})
	if out == nil {
		t.Fatalf("MatchLoop terminated during start")
	}
	if state.Game.Phase != domain.PhaseActive {
		t.Fatalf("phase = %s after start, want active", state.Game.Phase)
	}
}

func TestBuildLabel(t *testing.T) {
	mh := newTestHandler(t)
	state := initMatch(t, mh)
	dispatcher := &mockDispatcher{}
	joinUsers(t, mh, state, dispatcher, "user-a", "user-b")

	label := buildLabel(state)
	if label.Game != "uno" || label.Phase != string(domain.PhaseWaiting) {
		t.Fatalf("label = %+v, want waiting uno", label)
	}
	if want := state.Session.Capacity() - 2; label.Open != want {
		t.Fatalf("label open = %d, want %d", label.Open, want)
	}
	if label.AltID == "" {
		t.Fatalf("label missing alternate id")
	}

	startGame(t, mh, state, dispatcher, "user-a")
	label = buildLabel(state)
	if label.Open != 0 || label.Phase != string(domain.PhaseActive) {
		t.Fatalf("running label = %+v, want closed active", label)
	}
}

func TestMatchJoinAttempt(t *testing.T) {
	mh := newTestHandler(t)
	state := initMatch(t, mh)
	dispatcher := &mockDispatcher{}
	joinUsers(t, mh, state, dispatcher, "user-a", "user-b")

	t.Run("NewJoinerWhileWaiting", func(t *testing.T) {
		_, allow, _ := mh.MatchJoinAttempt(context.Background(), noopLogger{}, nil, nil, dispatcher, 1, state,
			&mockPresence{userID: "user-c"}, nil)
		if !allow {
			t.Fatalf("new joiner rejected from a waiting session")
		}
	})

	t.Run("NewJoinerAfterStart", func(t *testing.T) {
		startGame(t, mh, state, dispatcher, "user-a")
		_, allow, reason := mh.MatchJoinAttempt(context.Background(), noopLogger{}, nil, nil, dispatcher, 2, state,
			&mockPresence{userID: "user-z"}, nil)
		if allow {
			t.Fatalf("new joiner admitted into a running game")
		}
		if reason != "session_in_progress" {
			t.Fatalf("reason = %q, want session_in_progress", reason)
		}
	})

	t.Run("DisconnectedSeatHolderNeedsResumeToken", func(t *testing.T) {
		mh.MatchLeave(context.Background(), noopLogger{}, nil, nil, dispatcher, 3, state,
			[]runtime.Presence{&mockPresence{userID: "user-b"}})

		_, allow, reason := mh.MatchJoinAttempt(context.Background(), noopLogger{}, nil, nil, dispatcher, 4, state,
			&mockPresence{userID: "user-b"}, nil)
		if allow {
			t.Fatalf("disconnected active seat handed back without a resume token")
		}
		if reason != "invalid_resume_token" {
			t.Fatalf("reason = %q, want invalid_resume_token", reason)
		}

		// A token minted for a different identity proves nothing.
		stolen, err := mh.deps.Resume.GenerateToken("user-a", state.Game.SessionID, 0)
		if err != nil {
			t.Fatalf("GenerateToken() error: %v", err)
		}
		_, allow, _ = mh.MatchJoinAttempt(context.Background(), noopLogger{}, nil, nil, dispatcher, 5, state,
			&mockPresence{userID: "user-b"}, map[string]string{"resume_token": stolen})
		if allow {
			t.Fatalf("seat handed back on another identity's resume token")
		}

		token, err := mh.deps.Resume.GenerateToken("user-b", state.Game.SessionID, 1)
		if err != nil {
			t.Fatalf("GenerateToken() error: %v", err)
		}
		_, allow, _ = mh.MatchJoinAttempt(context.Background(), noopLogger{}, nil, nil, dispatcher, 6, state,
			&mockPresence{userID: "user-b"}, map[string]string{"resume_token": token})
		if !allow {
			t.Fatalf("seat holder with a valid resume token rejected")
		}
	})
}

func TestMatchJoinAttempt_FullSession(t *testing.T) {
	mh := newTestHandler(t)
	state := initMatch(t, mh)
	dispatcher := &mockDispatcher{}

	users := make([]string, state.Session.Capacity())
	for i := range users {
		users[i] = "user-" + string(rune('a'+i))
	}
	joinUsers(t, mh, state, dispatcher, users...)

	_, allow, reason := mh.MatchJoinAttempt(context.Background(), noopLogger{}, nil, nil, dispatcher, 1, state,
		&mockPresence{userID: "user-late"}, nil)
	if allow {
		t.Fatalf("joiner admitted into a full session")
	}
	if reason != "session_full" {
		t.Fatalf("reason = %q, want session_full", reason)
	}
}

func TestMatchJoin(t *testing.T) {
	mh := newTestHandler(t)
	state := initMatch(t, mh)
	dispatcher := &mockDispatcher{}
	joinUsers(t, mh, state, dispatcher, "user-a", "user-b")

	if state.Session.SeatOf("user-a") != 0 || state.Session.SeatOf("user-b") != 1 {
		t.Fatalf("seats = %d/%d, want 0/1", state.Session.SeatOf("user-a"), state.Session.SeatOf("user-b"))
	}
	if state.OwnerSeat != 0 {
		t.Fatalf("owner seat = %d, want 0", state.OwnerSeat)
	}
	if dispatcher.opCount(OpSeatList) == 0 {
		t.Fatalf("no seat list broadcast after join")
	}
	if got := dispatcher.opCount(OpResumeToken); got != 2 {
		t.Fatalf("resume tokens sent = %d, want 2", got)
	}
	// Resume tokens go to their owner only.
	for _, msg := range dispatcher.sent {
		if msg.opCode == OpResumeToken && len(msg.recipients) != 1 {
			t.Fatalf("resume token recipients = %d, want 1", len(msg.recipients))
		}
	}

	// Joins are persisted.
	rec, err := mh.deps.Store.Load(context.Background(), state.Game.SessionID)
	if err != nil || rec == nil {
		t.Fatalf("no persisted record after join: %v", err)
	}
	if len(rec.Seats) != state.Session.Capacity() {
		t.Fatalf("persisted %d seats, want %d", len(rec.Seats), state.Session.Capacity())
	}
}

func TestStartGame_DealsPrivateHands(t *testing.T) {
	mh := newTestHandler(t)
	state := initMatch(t, mh)
	dispatcher := &mockDispatcher{}
	joinUsers(t, mh, state, dispatcher, "user-a", "user-b", "user-c")
	startGame(t, mh, state, dispatcher, "user-a")

	if got := dispatcher.opCount(OpHandDealt); got != 3 {
		t.Fatalf("hand dealt messages = %d, want 3", got)
	}
	for _, msg := range dispatcher.sent {
		if msg.opCode != OpHandDealt {
			continue
		}
		if len(msg.recipients) != 1 {
			t.Fatalf("hand dealt to %d recipients, want 1", len(msg.recipients))
		}
		var payload app.HandDealtPayload
		if err := json.Unmarshal(msg.data, &payload); err != nil {
			t.Fatalf("bad hand payload: %v", err)
		}
		owner := state.Game.SeatIDs[payload.Seat]
		if got := identity.Normalize(msg.recipients[0].GetUserId()); string(got) != owner {
			t.Fatalf("hand for seat %d sent to %s", payload.Seat, got)
		}
	}

	started := dispatcher.lastOp(OpGameStarted)
	if started == nil || len(started.recipients) != 0 {
		t.Fatalf("game started must broadcast to everyone")
	}
}

func TestStartGame_Rejections(t *testing.T) {
	mh := newTestHandler(t)
	state := initMatch(t, mh)
	dispatcher := &mockDispatcher{}
	joinUsers(t, mh, state, dispatcher, "user-a", "user-b")

	t.Run("NonOwner", func(t *testing.T) {
		mh.MatchLoop(context.Background(), noopLogger{}, nil, nil, dispatcher, 2, state,
			[]runtime.MatchData{message("user-b", OpStartGame, nil)})
		if state.Game.Phase != domain.PhaseWaiting {
			t.Fatalf("non-owner started the game")
		}
		if dispatcher.opCount(OpGameError) == 0 {
			t.Fatalf("no error surfaced to the non-owner")
		}
	})

	t.Run("TooFewPlayers", func(t *testing.T) {
		solo := newTestHandler(t)
		soloState := initMatch(t, solo)
		soloDispatcher := &mockDispatcher{}
		joinUsers(t, solo, soloState, soloDispatcher, "user-a")
		solo.MatchLoop(context.Background(), noopLogger{}, nil, nil, soloDispatcher, 2, soloState,
			[]runtime.MatchData{message("user-a", OpStartGame, nil)})
		if soloState.Game.Phase != domain.PhaseWaiting {
			t.Fatalf("solo session started")
		}
	})
}

func TestMatchLoop_DrawAction(t *testing.T) {
	mh := newTestHandler(t)
	state := initMatch(t, mh)
	dispatcher := &mockDispatcher{}
	joinUsers(t, mh, state, dispatcher, "user-a", "user-b")
	startGame(t, mh, state, dispatcher, "user-a")

	turnUser := state.Game.SeatIDs[state.Game.TurnSeat]
	handBefore := len(state.Game.Hands[state.Game.TurnSeat])
	dispatcher.sent = nil

	mh.MatchLoop(context.Background(), noopLogger{}, nil, nil, dispatcher, 3, state,
		[]runtime.MatchData{message(turnUser, OpDrawCard, actionRequest{TurnCounter: state.Game.TurnCounter})})

	// Private token-bearing copy plus count-only broadcast.
	if got := dispatcher.opCount(OpCardDrawn); got != 2 {
		t.Fatalf("card drawn messages = %d, want 2", got)
	}
	sawPrivate := false
	for _, msg := range dispatcher.sent {
		if msg.opCode != OpCardDrawn {
			continue
		}
		var payload app.CardDrawnPayload
		if err := json.Unmarshal(msg.data, &payload); err != nil {
			t.Fatalf("bad drawn payload: %v", err)
		}
		if len(msg.recipients) == 1 {
			sawPrivate = true
			if len(payload.Tokens) != 1 {
				t.Fatalf("private drawn copy has %d tokens, want 1", len(payload.Tokens))
			}
		} else if len(payload.Tokens) != 0 {
			t.Fatalf("broadcast drawn copy leaks tokens")
		}
	}
	if !sawPrivate {
		t.Fatalf("no private drawn copy dispatched")
	}
	if got := len(state.Game.Hands[state.Game.SeatOf(turnUser)]); got != handBefore+1 {
		t.Fatalf("hand size = %d, want %d", got, handBefore+1)
	}
}

func TestMatchLoop_ErrorsAreTargeted(t *testing.T) {
	mh := newTestHandler(t)
	state := initMatch(t, mh)
	dispatcher := &mockDispatcher{}
	joinUsers(t, mh, state, dispatcher, "user-a", "user-b")
	startGame(t, mh, state, dispatcher, "user-a")

	notTurn := ""
	for _, id := range state.Game.SeatIDs {
		if id != "" && id != state.Game.SeatIDs[state.Game.TurnSeat] {
			notTurn = id
			break
		}
	}
	dispatcher.sent = nil

	mh.MatchLoop(context.Background(), noopLogger{}, nil, nil, dispatcher, 3, state,
		[]runtime.MatchData{message(notTurn, OpDrawCard, actionRequest{TurnCounter: state.Game.TurnCounter})})

	errMsg := dispatcher.lastOp(OpGameError)
	if errMsg == nil {
		t.Fatalf("no error dispatched for an out-of-turn draw")
	}
	if len(errMsg.recipients) != 1 || identity.Normalize(errMsg.recipients[0].GetUserId()) != identity.Normalize(notTurn) {
		t.Fatalf("error not targeted at the offender")
	}
}

func TestMatchLoop_WildRequiresChosenColor(t *testing.T) {
	mh := newTestHandler(t)
	state := initMatch(t, mh)
	dispatcher := &mockDispatcher{}
	joinUsers(t, mh, state, dispatcher, "user-a", "user-b")
	startGame(t, mh, state, dispatcher, "user-a")

	// Swap a wild into the turn seat's hand.
	seat := state.Game.TurnSeat
	userID := state.Game.SeatIDs[seat]
	wild := domain.Token("wildtok")
	state.Table.Cards[wild] = domain.Card{Color: domain.ColorNone, Rank: domain.RankWild}
	state.Game.Hands[seat][0] = wild
	colorBefore := state.Game.ActiveColor
	dispatcher.sent = nil

	// Omitting chosen_color from the payload must not decode to red.
	mh.MatchLoop(context.Background(), noopLogger{}, nil, nil, dispatcher, 3, state,
		[]runtime.MatchData{message(userID, OpPlayCard, actionRequest{Token: string(wild), TurnCounter: state.Game.TurnCounter})})

	if dispatcher.opCount(OpGameError) != 1 {
		t.Fatalf("wild without a chosen color was accepted")
	}
	if dispatcher.opCount(OpCardPlayed) != 0 {
		t.Fatalf("card-played broadcast for a rejected wild")
	}
	if state.Game.ActiveColor != colorBefore {
		t.Fatalf("active color changed to %s on a rejected wild", state.Game.ActiveColor)
	}

	// With the color present the same play goes through.
	blue := int(domain.ColorBlue)
	dispatcher.sent = nil
	mh.MatchLoop(context.Background(), noopLogger{}, nil, nil, dispatcher, 4, state,
		[]runtime.MatchData{message(userID, OpPlayCard, actionRequest{Token: string(wild), ChosenColor: &blue, TurnCounter: state.Game.TurnCounter})})

	if dispatcher.opCount(OpCardPlayed) != 1 {
		t.Fatalf("wild with a chosen color rejected")
	}
	if state.Game.ActiveColor != domain.ColorBlue {
		t.Fatalf("active color = %s, want blue", state.Game.ActiveColor)
	}
}

func TestDisconnectAndReconnect(t *testing.T) {
	mh := newTestHandler(t)
	state := initMatch(t, mh)
	dispatcher := &mockDispatcher{}
	joinUsers(t, mh, state, dispatcher, "user-a", "user-b")
	startGame(t, mh, state, dispatcher, "user-a")

	handBefore := append([]domain.Token(nil), state.Game.Hands[1]...)
	dispatcher.sent = nil

	mh.MatchLeave(context.Background(), noopLogger{}, nil, nil, dispatcher, 3, state,
		[]runtime.Presence{&mockPresence{userID: "user-b"}})

	if dispatcher.opCount(OpPlayerDisconnected) != 1 {
		t.Fatalf("no disconnect broadcast")
	}
	if state.Session.SeatOf("user-b") != 1 {
		t.Fatalf("seat freed immediately on disconnect")
	}
	if !state.Grace.Pending("user-b") {
		t.Fatalf("grace timer not started")
	}

	dispatcher.sent = nil
	joinUsers(t, mh, state, dispatcher, "user-b")

	if state.Grace.Pending("user-b") {
		t.Fatalf("grace timer survived reconnect")
	}
	if dispatcher.opCount(OpPlayerReconnected) != 1 {
		t.Fatalf("no reconnect broadcast")
	}
	// The private hand is re-synced, unchanged.
	resync := dispatcher.lastOp(OpHandDealt)
	if resync == nil || len(resync.recipients) != 1 {
		t.Fatalf("no private hand resync")
	}
	var payload app.HandDealtPayload
	if err := json.Unmarshal(resync.data, &payload); err != nil {
		t.Fatalf("bad resync payload: %v", err)
	}
	if len(payload.Hand) != len(handBefore) {
		t.Fatalf("resynced hand size = %d, want %d", len(payload.Hand), len(handBefore))
	}
	for i := range handBefore {
		if payload.Hand[i] != handBefore[i] {
			t.Fatalf("hand changed across reconnect")
		}
	}
}

func TestGraceExpiryFreesSeat(t *testing.T) {
	mh := newTestHandler(t)
	state := initMatch(t, mh)
	dispatcher := &mockDispatcher{}
	joinUsers(t, mh, state, dispatcher, "user-a", "user-b", "user-c")
	startGame(t, mh, state, dispatcher, "user-a")

	// Collapse the grace window so the next loop tick expires it.
	state.Grace = session.NewGraceController(time.Nanosecond)
	mh.MatchLeave(context.Background(), noopLogger{}, nil, nil, dispatcher, 3, state,
		[]runtime.Presence{&mockPresence{userID: "user-b"}})
	time.Sleep(time.Millisecond)
	dispatcher.sent = nil

	out := mh.MatchLoop(context.Background(), noopLogger{}, nil, nil, dispatcher, 4, state, nil)
	if out == nil {
		t.Fatalf("match terminated with seats still held")
	}

	if state.Session.SeatOf("user-b") != -1 {
		t.Fatalf("expired seat not freed")
	}
	if state.Game.SeatOf("user-b") != -1 {
		t.Fatalf("expired seat still bound in game state")
	}
	if dispatcher.opCount(OpPlayerRemoved) != 1 {
		t.Fatalf("no removal broadcast")
	}
	if state.Game.TokenCount() != domain.DeckSize {
		t.Fatalf("token count = %d after removal, want %d", state.Game.TokenCount(), domain.DeckSize)
	}
}

func TestVoluntaryLeaveEndsShortGame(t *testing.T) {
	mh := newTestHandler(t)
	state := initMatch(t, mh)
	dispatcher := &mockDispatcher{}
	joinUsers(t, mh, state, dispatcher, "user-a", "user-b")
	startGame(t, mh, state, dispatcher, "user-a")
	dispatcher.sent = nil

	mh.MatchLoop(context.Background(), noopLogger{}, nil, nil, dispatcher, 3, state,
		[]runtime.MatchData{message("user-b", OpLeave, nil)})

	if state.Session.SeatOf("user-b") != -1 {
		t.Fatalf("voluntary leaver still seated")
	}
	if dispatcher.opCount(OpPlayerRemoved) != 1 {
		t.Fatalf("no removal broadcast")
	}
	if state.Game.Phase != domain.PhaseEnded {
		t.Fatalf("phase = %s, want ended with one seat left", state.Game.Phase)
	}
	if dispatcher.opCount(OpGameEnded) != 1 {
		t.Fatalf("no game ended broadcast")
	}
	if state.Game.WinnerID != "user-a" {
		t.Fatalf("winner = %q, want user-a", state.Game.WinnerID)
	}
}

func TestBroadcastEvent_OfflineRecipientsSuppressed(t *testing.T) {
	mh := newTestHandler(t)
	state := initMatch(t, mh)
	dispatcher := &mockDispatcher{}
	joinUsers(t, mh, state, dispatcher, "user-a")
	dispatcher.sent = nil

	// Targeted at an identity with no live presence: nothing may go out,
	// least of all as a broadcast.
	mh.broadcastEvent(state, dispatcher, noopLogger{}, app.Event{
		Kind:       app.EventHandDealt,
		Payload:    app.HandDealtPayload{Seat: 1, Hand: []domain.Token{"secret"}},
		Recipients: []string{"user-gone"},
	})
	if len(dispatcher.sent) != 0 {
		t.Fatalf("targeted event for an offline identity was dispatched")
	}
}

func TestMatchLoop_TerminatesWhenEmpty(t *testing.T) {
	mh := newTestHandler(t)
	state := initMatch(t, mh)
	dispatcher := &mockDispatcher{}
	joinUsers(t, mh, state, dispatcher, "user-a", "user-b")

	out := mh.MatchLoop(context.Background(), noopLogger{}, nil, nil, dispatcher, 2, state, []runtime.MatchData{
		message("user-a", OpLeave, nil),
		message("user-b", OpLeave, nil),
	})
	if out != nil {
		t.Fatalf("match survived with zero occupants")
	}
	// The persisted record is cleaned up with the match.
	rec, err := mh.deps.Store.Load(context.Background(), state.Game.SessionID)
	if err != nil || rec != nil {
		t.Fatalf("record survived termination: %+v, %v", rec, err)
	}
}
