package nakama

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"

	"github.com/heroiclabs/nakama-common/runtime"

	"github.com/a-singh09/uno-game-sub000/internal/store"
)

// QuickMatchResponse is the payload returned to clients when requesting a
// joinable session.
type QuickMatchResponse struct {
	MatchID string `json:"match_id"`
	IsNew   bool   `json:"is_new"`
}

// SessionLookupRequest resolves a share code (alternate id) or a prior
// session id to a live session.
type SessionLookupRequest struct {
	AltID     string `json:"alt_id,omitempty"`
	SessionID string `json:"session_id,omitempty"`
}

type SessionLookupResponse struct {
	SessionID string `json:"session_id"`
	AltID     string `json:"alt_id"`
	Phase     string `json:"phase"`
	// MatchID is the live match hosting the session. When the original
	// match died with the node, a replacement is created from the persisted
	// record and its id is returned here.
	MatchID string `json:"match_id"`
	Revived bool   `json:"revived"`
}

// RegisterRPCs registers Nakama RPC endpoints.
func RegisterRPCs(initializer runtime.Initializer, deps *Deps) error {
	if err := initializer.RegisterRpc(RpcQuickMatch, rpcQuickMatch); err != nil {
		return err
	}
	return initializer.RegisterRpc(RpcSessionLookup, makeSessionLookup(deps))
}

func rpcQuickMatch(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	// Find any waiting session with an open seat.
	query := "+label.game:uno +label.phase:waiting +label.open:>0"

	limit := 10
	authoritative := true

	minSize := 0
	maxSize := 5 // below capacity so a seat is guaranteed free

	matches, err := nk.MatchList(ctx, limit, authoritative, "", &minSize, &maxSize, query)
	if err != nil {
		logger.Error("MatchList error: %v", err)
		return "", err
	}

	if len(matches) > 0 {
		resp := QuickMatchResponse{MatchID: matches[0].MatchId, IsNew: false}
		b, _ := json.Marshal(resp)
		return string(b), nil
	}

	// Create new match; seat/owner assignment happens in MatchJoin (server-authoritative).
	matchID, err := nk.MatchCreate(ctx, MatchNameUno, map[string]interface{}{})
	if err != nil {
		logger.Error("MatchCreate error: %v", err)
		return "", err
	}

	resp := QuickMatchResponse{MatchID: matchID, IsNew: true}
	b, _ := json.Marshal(resp)
	return string(b), nil
}

// makeSessionLookup resolves alternate ids via the state store, so a share
// code works even for sessions whose match the caller never saw.
func makeSessionLookup(deps *Deps) func(context.Context, runtime.Logger, *sql.DB, runtime.NakamaModule, string) (string, error) {
	return func(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
		var req SessionLookupRequest
		if err := json.Unmarshal([]byte(payload), &req); err != nil {
			return "", runtime.NewError("malformed lookup payload", 3)
		}

		var record *store.Record
		var err error
		switch {
		case req.AltID != "":
			record, err = deps.Store.LoadByAlternateID(ctx, strings.ToLower(strings.TrimSpace(req.AltID)))
		case req.SessionID != "":
			record, err = deps.Store.Load(ctx, req.SessionID)
		default:
			return "", runtime.NewError("alt_id or session_id required", 3)
		}
		if err != nil {
			logger.Error("session lookup failed: %v", err)
			return "", runtime.NewError("lookup failed", 13)
		}
		if record == nil {
			return "", runtime.NewError("session not found", 5)
		}

		// The record's session id is the id of the match that last hosted
		// it. If that match died with its node, spin up a replacement that
		// restores the persisted state.
		matchID := record.SessionID
		revived := false
		if match, err := nk.MatchGet(ctx, record.SessionID); err != nil || match == nil {
			matchID, err = nk.MatchCreate(ctx, MatchNameUno, map[string]interface{}{
				"resume_session_id": record.SessionID,
			})
			if err != nil {
				logger.Error("session revival failed for %s: %v", record.SessionID, err)
				return "", runtime.NewError("session revival failed", 13)
			}
			revived = true
			logger.Info("session %s revived as match %s", record.SessionID, matchID)
		}

		return marshalLookup(record, matchID, revived)
	}
}

func marshalLookup(record *store.Record, matchID string, revived bool) (string, error) {
	b, err := json.Marshal(SessionLookupResponse{
		SessionID: record.SessionID,
		AltID:     record.AltID,
		Phase:     string(record.Game.Phase),
		MatchID:   matchID,
		Revived:   revived,
	})
	if err != nil {
		return "", errors.New("failed to marshal lookup response")
	}
	return string(b), nil
}
