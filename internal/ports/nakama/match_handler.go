package nakama

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/heroiclabs/nakama-common/runtime"

	"github.com/a-singh09/uno-game-sub000/internal/app"
	"github.com/a-singh09/uno-game-sub000/internal/bot"
	"github.com/a-singh09/uno-game-sub000/internal/config"
	"github.com/a-singh09/uno-game-sub000/internal/domain"
	"github.com/a-singh09/uno-game-sub000/internal/identity"
	"github.com/a-singh09/uno-game-sub000/internal/session"
	"github.com/a-singh09/uno-game-sub000/internal/store"
)

// Deps carries the process-wide collaborators built once at module init and
// passed by reference into every match instance. No package-level mutable
// registries.
type Deps struct {
	Store     *store.Store
	Snapshots *store.Snapshotter
	Config    config.GameConfig
	Resume    *app.ResumeService
}

// MatchState holds the authoritative runtime state for one session.
type MatchState struct {
	Session   *session.Manager
	Grace     *session.GraceController
	App       *app.Service
	Game      *domain.Game
	Table     *domain.DecodeTable
	Presences map[identity.ID]runtime.Presence
	OwnerSeat int
	Tick      int64

	BotsEnabled          bool
	BotMinDelay          int
	BotMaxDelay          int
	BotAutoFillDelay     int
	BotWaitUntil         int64
	LastSinglePlayerTick int64
	Bots                 map[string]*bot.Agent
}

// matchLabel is the advertised match label used by label-query matchmaking.
type matchLabel struct {
	Open  int    `json:"open"`
	Game  string `json:"game"`
	Phase string `json:"phase"`
	AltID string `json:"alt_id"`
}

// actionRequest is the JSON payload for turn-action opcodes. ChosenColor is
// a pointer so an omitted field stays distinguishable from color 0 (red);
// absence maps to ColorNone and fails wild validation.
type actionRequest struct {
	Token       string `json:"token,omitempty"`
	ChosenColor *int   `json:"chosen_color,omitempty"`
	TurnCounter int64  `json:"turn_counter"`
}

func (r actionRequest) chosenColor() domain.Color {
	if r.ChosenColor == nil {
		return domain.ColorNone
	}
	return domain.Color(*r.ChosenColor)
}

type matchHandler struct {
	deps *Deps
}

func newMatchHandler(deps *Deps) *matchHandler {
	return &matchHandler{deps: deps}
}

// MatchInit creates a fresh Waiting session, or restores a persisted one
// when the creator passed a resume_session_id parameter (post-restart
// recovery via the snapshot ledger or durable backend).
func (mh *matchHandler) MatchInit(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, params map[string]interface{}) (interface{}, int, string) {
	cfg := mh.deps.Config

	sessionID, _ := ctx.Value(runtime.RUNTIME_CTX_MATCH_ID).(string)
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	state := &MatchState{
		Session:   session.NewManager(sessionID, cfg.SeatCapacity),
		Grace:     session.NewGraceController(cfg.GracePeriod()),
		App:       app.NewService(nil, cfg.HandSize),
		Presences: make(map[identity.ID]runtime.Presence),
		OwnerSeat: -1,
		Bots:      make(map[string]*bot.Agent),
	}

	if resumeID, ok := params["resume_session_id"].(string); ok && resumeID != "" {
		if err := mh.restore(ctx, logger, state, resumeID, sessionID); err != nil {
			logger.Warn("MatchInit: could not restore session %s, starting fresh: %v", resumeID, err)
		}
	}
	if state.Game == nil {
		altID := strings.SplitN(uuid.NewString(), "-", 2)[0]
		state.Game = domain.NewGame(sessionID, altID, cfg.SeatCapacity)
	}

	if env, ok := ctx.Value(runtime.RUNTIME_CTX_ENV).(map[string]string); ok {
		state.BotsEnabled = env["uno_bots_enabled"] == "true"
		if v, err := strconv.Atoi(env["uno_bot_min_delay_sec"]); err == nil {
			state.BotMinDelay = v
		}
		if v, err := strconv.Atoi(env["uno_bot_max_delay_sec"]); err == nil {
			state.BotMaxDelay = v
		}
		if v, err := strconv.Atoi(env["uno_bot_auto_fill_delay_sec"]); err == nil {
			state.BotAutoFillDelay = v
		}
	}
	if state.BotMinDelay == 0 {
		state.BotMinDelay = 1
	}
	if state.BotMaxDelay == 0 {
		state.BotMaxDelay = 3
	}
	if state.BotAutoFillDelay == 0 {
		state.BotAutoFillDelay = 5
	}

	labelBytes, err := json.Marshal(buildLabel(state))
	if err != nil {
		logger.Error("MatchInit: failed to marshal label: %v", err)
		return nil, 0, ""
	}

	tickRate := 1
	return state, tickRate, string(labelBytes)
}

// restore reloads a persisted record and rebinds it to this match id. All
// restored occupants start Disconnected with grace timers running; they
// keep seat and hand only by reconnecting in time.
func (mh *matchHandler) restore(ctx context.Context, logger runtime.Logger, state *MatchState, resumeID, sessionID string) error {
	rec, err := mh.deps.Store.Load(ctx, resumeID)
	if err != nil {
		return err
	}
	if rec == nil {
		return errors.New("no persisted record")
	}

	state.Game = rec.Game
	state.Game.SessionID = sessionID
	state.Table = rec.Table
	state.Session.Restore(rec.Seats)

	now := time.Now()
	for _, seat := range state.Session.ListSeats() {
		if seat.Occupant == nil {
			continue
		}
		seat.Occupant.Status = identity.StatusDisconnected
		seat.Occupant.SessionID = sessionID
		state.Grace.MarkDisconnected(seat.Occupant.ID, now)
		if state.OwnerSeat < 0 {
			state.OwnerSeat = seat.Index
		}
	}

	if resumeID != sessionID {
		if err := mh.deps.Store.Delete(ctx, resumeID); err != nil {
			logger.Warn("restore: could not drop stale record %s: %v", resumeID, err)
		}
		mh.deps.Snapshots.Drop(resumeID)
	}
	logger.Info("restore: session %s recovered as %s (phase=%s)", resumeID, sessionID, state.Game.Phase)
	return nil
}

func (mh *matchHandler) MatchJoinAttempt(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presence runtime.Presence, metadata map[string]string) (interface{}, bool, string) {
	matchState, ok := state.(*MatchState)
	if !ok {
		return state, false, "state not found"
	}

	id := identity.Normalize(presence.GetUserId())

	// Rejoin is allowed while the seat survives, but a disconnected seat in
	// a running game is only handed back on proof of ownership: the resume
	// token issued at join time. The session id can change across a restore,
	// so the token binds on identity.
	if seat := matchState.Session.SeatOf(id); seat >= 0 {
		occ := matchState.Session.Occupant(seat)
		if matchState.Game.Phase == domain.PhaseActive && occ != nil && occ.Status == identity.StatusDisconnected {
			claims, err := mh.deps.Resume.VerifyToken(metadata["resume_token"])
			if err != nil || claims.IdentityID != string(id) {
				logger.Warn("MatchJoinAttempt: %s presented no valid resume token for its seat", id)
				return state, false, "invalid_resume_token"
			}
		}
		return state, true, ""
	}

	if matchState.Game.Phase != domain.PhaseWaiting {
		return state, false, "session_in_progress"
	}

	if matchState.Session.OccupiedCount() >= matchState.Session.Capacity() && !hasBotSeat(matchState) {
		return state, false, "session_full"
	}

	return state, true, ""
}

func (mh *matchHandler) MatchJoin(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presences []runtime.Presence) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		logger.Error("MatchJoin: state not found")
		return state
	}

	now := time.Now()
	for _, p := range presences {
		id := identity.Normalize(p.GetUserId())

		// Replace a bot seat before reporting full, but only pre-deal.
		if matchState.Session.OccupiedCount() >= matchState.Session.Capacity() &&
			matchState.Game.Phase == domain.PhaseWaiting {
			mh.evictOneBot(matchState, logger)
		}

		seat, rejoined, err := matchState.Session.Join(id, p.GetUsername(), now)
		if err != nil {
			logger.Warn("MatchJoin: %s could not be seated: %v", id, err)
			continue
		}
		matchState.Presences[id] = p
		matchState.Grace.Cancel(id)

		if matchState.OwnerSeat < 0 || matchState.Session.Occupant(matchState.OwnerSeat) == nil {
			matchState.OwnerSeat = seat
		}

		if rejoined && matchState.Game.Phase == domain.PhaseActive {
			mh.sendHandSync(matchState, dispatcher, logger, id, seat)
			mh.broadcastEvent(matchState, dispatcher, logger, app.Event{
				Kind:    app.EventPlayerReconnected,
				Payload: app.PlayerConnectionPayload{Seat: seat, IdentityID: string(id)},
			})
			logger.Info("MatchJoin: %s reconnected to seat %d", id, seat)
		}

		mh.sendResumeToken(matchState, dispatcher, logger, id, seat)
	}

	mh.broadcastSeatList(matchState, dispatcher, logger)
	mh.updateLabel(matchState, dispatcher, logger)
	mh.persist(ctx, matchState, logger)
	return matchState
}

// MatchLeave fires on transport drop as well as voluntary exit. Voluntary
// exits arrive as an OpLeave message first and free the seat there; if the
// identity is still seated here, this is a drop and the grace timer starts.
func (mh *matchHandler) MatchLeave(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presences []runtime.Presence) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		logger.Error("MatchLeave: state not found")
		return state
	}

	now := time.Now()
	changed := false
	for _, p := range presences {
		id := identity.Normalize(p.GetUserId())
		delete(matchState.Presences, id)

		seat, err := matchState.Session.MarkDisconnected(id, now)
		if err != nil {
			continue // already left voluntarily
		}
		matchState.Grace.MarkDisconnected(id, now)
		changed = true
		logger.Debug("MatchLeave: %s disconnected from seat %d, grace timer started", id, seat)

		mh.broadcastEvent(matchState, dispatcher, logger, app.Event{
			Kind:    app.EventPlayerDisconnected,
			Payload: app.PlayerConnectionPayload{Seat: seat, IdentityID: string(id)},
		})
	}

	if changed {
		mh.broadcastSeatList(matchState, dispatcher, logger)
		mh.persist(ctx, matchState, logger)
	}
	return matchState
}

func (mh *matchHandler) MatchLoop(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, messages []runtime.MatchData) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		return state
	}
	matchState.Tick = tick

	// Grace expiry shares this loop, so reconnects and removals can never
	// interleave for one session.
	mh.expireGraceTimers(ctx, matchState, dispatcher, logger)

	for _, msg := range messages {
		switch msg.GetOpCode() {
		case OpStartGame:
			mh.handleStartGame(ctx, matchState, dispatcher, logger, msg)
		case OpPlayCard:
			mh.handleGameAction(ctx, matchState, dispatcher, logger, msg, domain.ActionPlay)
		case OpDrawCard:
			mh.handleGameAction(ctx, matchState, dispatcher, logger, msg, domain.ActionDraw)
		case OpKeepCard:
			mh.handleGameAction(ctx, matchState, dispatcher, logger, msg, domain.ActionKeep)
		case OpDeclareOne:
			mh.handleGameAction(ctx, matchState, dispatcher, logger, msg, domain.ActionDeclare)
		case OpLeave:
			mh.handleVoluntaryLeave(ctx, matchState, dispatcher, logger, msg)
		default:
			logger.Warn("MatchLoop: unknown opcode received: %d", msg.GetOpCode())
		}
	}

	if matchState.BotsEnabled {
		mh.processBots(ctx, matchState, dispatcher, logger)
	}

	if matchState.Session.OccupiedCount() == 0 {
		logger.Info("MatchLoop: all seats empty, terminating session %s", matchState.Game.SessionID)
		if err := mh.deps.Store.Delete(ctx, matchState.Game.SessionID); err != nil {
			logger.Warn("MatchLoop: could not delete session record: %v", err)
		}
		mh.deps.Snapshots.Drop(matchState.Game.SessionID)
		return nil
	}

	return matchState
}

func (mh *matchHandler) MatchTerminate(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, graceSeconds int) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		return state
	}
	mh.persist(ctx, matchState, logger)
	logger.Debug("MatchTerminate: session %s persisted", matchState.Game.SessionID)
	return matchState
}

func (mh *matchHandler) MatchSignal(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, data string) (interface{}, string) {
	return state, ""
}

/* ---- message handlers ---- */

func (mh *matchHandler) handleStartGame(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, msg runtime.MatchData) {
	id := identity.Normalize(msg.GetUserId())
	seat := state.Session.SeatOf(id)

	if seat != state.OwnerSeat {
		logger.Warn("StartGame: %s (seat %d) is not the owner (seat %d)", id, seat, state.OwnerSeat)
		mh.sendError(state, dispatcher, logger, id, 403, "only the session owner can start")
		return
	}
	if state.Session.OccupiedCount() < app.MinPlayersToStartGame {
		mh.sendError(state, dispatcher, logger, id, 400, "not enough players to start")
		return
	}

	table, events, err := state.App.StartGame(state.Game, state.Session.SeatIDs())
	if err != nil {
		logger.Error("StartGame: failed: %v", err)
		mh.sendError(state, dispatcher, logger, id, 400, err.Error())
		return
	}
	state.Table = table

	for _, ev := range events {
		mh.broadcastEvent(state, dispatcher, logger, ev)
	}
	mh.updateLabel(state, dispatcher, logger)
	mh.persist(ctx, state, logger)
	logger.Info("StartGame: session %s dealt to %d seats", state.Game.SessionID, state.Game.ActiveSeatCount())
}

func (mh *matchHandler) handleGameAction(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, msg runtime.MatchData, kind domain.ActionKind) {
	id := identity.Normalize(msg.GetUserId())

	if state.Table == nil {
		mh.sendError(state, dispatcher, logger, id, 400, "game not started")
		return
	}
	seat := state.Game.SeatOf(string(id))
	if seat < 0 {
		mh.sendError(state, dispatcher, logger, id, 400, "not seated in this game")
		return
	}

	var req actionRequest
	if len(msg.GetData()) > 0 {
		if err := json.Unmarshal(msg.GetData(), &req); err != nil {
			logger.Warn("handleGameAction: malformed %s payload from %s: %v", kind, id, err)
			mh.sendError(state, dispatcher, logger, id, 400, "malformed action payload")
			return
		}
	}

	action := domain.Action{
		Kind:        kind,
		Seat:        seat,
		Token:       domain.Token(req.Token),
		ChosenColor: req.chosenColor(),
		TurnCounter: req.TurnCounter,
	}

	events, err := state.App.HandleAction(state.Game, state.Table, action)
	// A deferred penalty can mutate state and emit events even when the
	// triggering action itself is rejected.
	for _, ev := range events {
		mh.broadcastEvent(state, dispatcher, logger, ev)
	}
	if err != nil {
		mh.reportActionError(state, dispatcher, logger, id, seat, kind, err)
		if len(events) > 0 {
			mh.persist(ctx, state, logger)
		}
		return
	}
	if len(events) == 0 {
		return // duplicate delivery, no-op
	}

	if state.Game.Phase == domain.PhaseEnded {
		mh.updateLabel(state, dispatcher, logger)
	}
	mh.persist(ctx, state, logger)
}

func (mh *matchHandler) handleVoluntaryLeave(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, msg runtime.MatchData) {
	id := identity.Normalize(msg.GetUserId())
	mh.removeIdentity(ctx, state, dispatcher, logger, id, "leave")
}

/* ---- grace expiry and removal ---- */

func (mh *matchHandler) expireGraceTimers(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	expired := state.Grace.ExpireDue(time.Now())
	for _, id := range expired {
		logger.Info("grace: %s expired, freeing seat", id)
		mh.removeIdentity(ctx, state, dispatcher, logger, id, "grace_expired")
	}
}

// removeIdentity frees the identity's seat, returns its hand to the draw
// pile when a game is running, and announces the permanent leave.
func (mh *matchHandler) removeIdentity(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, id identity.ID, reason string) {
	seat, err := state.Session.Leave(id)
	if err != nil {
		return
	}
	state.Grace.Cancel(id)
	delete(state.Bots, string(id))

	if state.Game.Phase != domain.PhaseWaiting {
		events, vacateErr := state.App.VacateSeat(state.Game, seat)
		if vacateErr != nil {
			logger.Error("removeIdentity: consistency failure vacating seat %d: %v", seat, vacateErr)
		}
		for _, ev := range events {
			mh.broadcastEvent(state, dispatcher, logger, ev)
		}
	}

	if state.OwnerSeat == seat {
		state.OwnerSeat = -1
		for _, s := range state.Session.ListSeats() {
			if s.Occupant != nil && !bot.IsBot(string(s.Occupant.ID)) {
				state.OwnerSeat = s.Index
				break
			}
		}
	}

	mh.broadcastEvent(state, dispatcher, logger, app.Event{
		Kind:    app.EventPlayerRemoved,
		Payload: app.PlayerConnectionPayload{Seat: seat, IdentityID: string(id)},
	})
	logger.Debug("removeIdentity: %s removed from seat %d (%s)", id, seat, reason)

	mh.broadcastSeatList(state, dispatcher, logger)
	mh.updateLabel(state, dispatcher, logger)
	mh.persist(ctx, state, logger)
}

/* ---- bots ---- */

func hasBotSeat(state *MatchState) bool {
	for _, s := range state.Session.ListSeats() {
		if s.Occupant != nil && bot.IsBot(string(s.Occupant.ID)) {
			return true
		}
	}
	return false
}

func (mh *matchHandler) evictOneBot(state *MatchState, logger runtime.Logger) {
	for _, s := range state.Session.ListSeats() {
		if s.Occupant != nil && bot.IsBot(string(s.Occupant.ID)) {
			botID := s.Occupant.ID
			if _, err := state.Session.Leave(botID); err == nil {
				delete(state.Bots, string(botID))
				logger.Info("evictOneBot: bot %s gives up seat %d for a human", botID, s.Index)
			}
			return
		}
	}
}

func (mh *matchHandler) humanCount(state *MatchState) int {
	count := 0
	for _, s := range state.Session.ListSeats() {
		if s.Occupant != nil && !bot.IsBot(string(s.Occupant.ID)) {
			count++
		}
	}
	return count
}

func (mh *matchHandler) processBots(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	// Auto-fill a lonely waiting room after a delay.
	if state.Game.Phase == domain.PhaseWaiting {
		if mh.humanCount(state) == 1 {
			if state.LastSinglePlayerTick == 0 {
				state.LastSinglePlayerTick = state.Tick
			}
			if state.Tick-state.LastSinglePlayerTick >= int64(state.BotAutoFillDelay) {
				mh.fillWithBots(state, dispatcher, logger)
				state.LastSinglePlayerTick = 0
			}
		} else {
			state.LastSinglePlayerTick = 0
		}
		return
	}

	if state.Game.Phase != domain.PhaseActive || state.Table == nil {
		return
	}

	turnID := state.Game.SeatIDs[state.Game.TurnSeat]
	if !bot.IsBot(turnID) {
		state.BotWaitUntil = 0
		return
	}
	if state.BotWaitUntil == 0 {
		delay := rand.Intn(state.BotMaxDelay-state.BotMinDelay+1) + state.BotMinDelay
		state.BotWaitUntil = state.Tick + int64(delay)
		return
	}
	if state.Tick < state.BotWaitUntil {
		return
	}
	state.BotWaitUntil = 0

	agent, exists := state.Bots[turnID]
	if !exists {
		var err error
		agent, err = bot.NewAgent(turnID)
		if err != nil {
			logger.Error("processBots: failed to create agent for %s: %v", turnID, err)
			return
		}
		state.Bots[turnID] = agent
	}

	action, err := agent.ChooseAction(state.Game, state.Table, state.Game.TurnSeat)
	if err != nil {
		logger.Error("processBots: bot %s failed to choose: %v", turnID, err)
		return
	}
	events, err := state.App.HandleAction(state.Game, state.Table, action)
	for _, ev := range events {
		mh.broadcastEvent(state, dispatcher, logger, ev)
	}
	if err != nil {
		logger.Warn("processBots: bot %s action %s rejected: %v", turnID, action.Kind, err)
		return
	}
	if len(events) > 0 {
		if state.Game.Phase == domain.PhaseEnded {
			mh.updateLabel(state, dispatcher, logger)
		}
		mh.persist(ctx, state, logger)
	}
}

func (mh *matchHandler) fillWithBots(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	now := time.Now()
	added := false
	for _, s := range state.Session.ListSeats() {
		if s.Occupant != nil {
			continue
		}
		botIdentity := bot.GetBotIdentity(s.Index)
		id := identity.Normalize(botIdentity.UserID)
		if _, _, err := state.Session.Join(id, botIdentity.Username, now); err != nil {
			break
		}
		agent, err := bot.NewAgent(string(id))
		if err != nil {
			logger.Error("fillWithBots: %v", err)
			continue
		}
		state.Bots[string(id)] = agent
		added = true
		logger.Info("fillWithBots: bot %s seated at %d", botIdentity.Username, s.Index)
	}
	if added {
		mh.broadcastSeatList(state, dispatcher, logger)
		mh.updateLabel(state, dispatcher, logger)
	}
}

/* ---- dispatch helpers ---- */

var eventOpCodes = map[app.EventKind]int64{
	app.EventSeatList:           OpSeatList,
	app.EventGameStarted:        OpGameStarted,
	app.EventHandDealt:          OpHandDealt,
	app.EventCardPlayed:         OpCardPlayed,
	app.EventCardDrawn:          OpCardDrawn,
	app.EventDeckReshuffled:     OpDeckReshuffled,
	app.EventOneDeclared:        OpOneDeclared,
	app.EventPenaltyApplied:     OpPenaltyApplied,
	app.EventGameEnded:          OpGameEnded,
	app.EventPlayerDisconnected: OpPlayerDisconnected,
	app.EventPlayerReconnected:  OpPlayerReconnected,
	app.EventPlayerRemoved:      OpPlayerRemoved,
}

func (mh *matchHandler) broadcastEvent(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, ev app.Event) {
	opCode, ok := eventOpCodes[ev.Kind]
	if !ok {
		logger.Warn("broadcastEvent: unknown event kind %v", ev.Kind)
		return
	}

	data, err := json.Marshal(ev.Payload)
	if err != nil {
		logger.Error("broadcastEvent: failed to marshal %v: %v", ev.Kind, err)
		return
	}

	var recipients []runtime.Presence
	if len(ev.Recipients) > 0 {
		for _, raw := range ev.Recipients {
			if p, ok := state.Presences[identity.ID(raw)]; ok {
				recipients = append(recipients, p)
			}
		}
		// Targeted events with no connected recipient (bots, disconnected
		// seats) must not fall through to a broadcast.
		if len(recipients) == 0 {
			return
		}
	}

	if err := dispatcher.BroadcastMessage(opCode, data, recipients, nil, true); err != nil {
		logger.Error("broadcastEvent: dispatch failed for %v: %v", ev.Kind, err)
	}
}

func (mh *matchHandler) broadcastSeatList(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	seats := make([]app.SeatInfo, 0, state.Session.Capacity())
	for _, s := range state.Session.ListSeats() {
		info := app.SeatInfo{Seat: s.Index}
		if s.Occupant != nil {
			info.IdentityID = string(s.Occupant.ID)
			info.DisplayName = s.Occupant.DisplayName
			info.Connected = s.Occupant.Status == identity.StatusActive
		}
		seats = append(seats, info)
	}
	mh.broadcastEvent(state, dispatcher, logger, app.Event{
		Kind:    app.EventSeatList,
		Payload: app.SeatListPayload{Seats: seats},
	})
}

func (mh *matchHandler) sendHandSync(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, id identity.ID, seat int) {
	mh.broadcastEvent(state, dispatcher, logger, app.Event{
		Kind:       app.EventHandDealt,
		Payload:    app.HandDealtPayload{Seat: seat, Hand: state.Game.Hands[seat]},
		Recipients: []string{string(id)},
	})
}

func (mh *matchHandler) sendResumeToken(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, id identity.ID, seat int) {
	if bot.IsBot(string(id)) {
		return
	}
	token, err := mh.deps.Resume.GenerateToken(string(id), state.Game.SessionID, seat)
	if err != nil {
		logger.Warn("sendResumeToken: %v", err)
		return
	}
	data, _ := json.Marshal(map[string]string{"resume_token": token})
	if p, ok := state.Presences[id]; ok {
		if err := dispatcher.BroadcastMessage(OpResumeToken, data, []runtime.Presence{p}, nil, true); err != nil {
			logger.Error("sendResumeToken: dispatch failed: %v", err)
		}
	}
}

func (mh *matchHandler) reportActionError(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, id identity.ID, seat int, kind domain.ActionKind, err error) {
	code := 400
	switch {
	case errors.Is(err, app.ErrConsistency), errors.Is(err, domain.ErrSessionHalted):
		code = 500
		logger.Error("action %s from seat %d: %v", kind, seat, err)
	case errors.Is(err, domain.ErrStaleTurn), errors.Is(err, domain.ErrEnded):
		code = 409
		logger.Debug("action %s from seat %d rejected: %v", kind, seat, err)
	default:
		logger.Warn("action %s from seat %d rejected: %v", kind, seat, err)
	}
	mh.sendError(state, dispatcher, logger, id, code, err.Error())
}

func (mh *matchHandler) sendError(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, id identity.ID, code int, message string) {
	p, ok := state.Presences[id]
	if !ok {
		return
	}
	data, err := json.Marshal(map[string]any{"code": code, "message": message})
	if err != nil {
		logger.Error("sendError: marshal failed: %v", err)
		return
	}
	if err := dispatcher.BroadcastMessage(OpGameError, data, []runtime.Presence{p}, nil, true); err != nil {
		logger.Error("sendError: dispatch failed: %v", err)
	}
}

func buildLabel(state *MatchState) matchLabel {
	open := 0
	if state.Game.Phase == domain.PhaseWaiting {
		open = state.Session.Capacity() - state.Session.OccupiedCount()
	}
	return matchLabel{
		Open:  open,
		Game:  "uno",
		Phase: string(state.Game.Phase),
		AltID: state.Game.AltID,
	}
}

func (mh *matchHandler) updateLabel(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	labelBytes, err := json.Marshal(buildLabel(state))
	if err != nil {
		logger.Error("updateLabel: failed to marshal: %v", err)
		return
	}
	if err := dispatcher.MatchLabelUpdate(string(labelBytes)); err != nil {
		logger.Error("updateLabel: failed to update: %v", err)
	}
}

func (mh *matchHandler) persist(ctx context.Context, state *MatchState, logger runtime.Logger) {
	rec := &store.Record{
		SessionID: state.Game.SessionID,
		AltID:     state.Game.AltID,
		Game:      state.Game,
		Table:     state.Table,
		Seats:     state.Session.Snapshot(),
	}
	if err := mh.deps.Store.Save(ctx, rec); err != nil {
		logger.Error("persist: session %s not saved: %v", state.Game.SessionID, err)
		return
	}
	mh.deps.Snapshots.Offer(rec)
}
