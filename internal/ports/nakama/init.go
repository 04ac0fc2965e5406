package nakama

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/heroiclabs/nakama-common/runtime"

	"github.com/a-singh09/uno-game-sub000/internal/app"
	"github.com/a-singh09/uno-game-sub000/internal/config"
	"github.com/a-singh09/uno-game-sub000/internal/store"
)

const (
	gameConfigPath = "data/game_config.json"
	sweepInterval  = 10 * time.Minute
)

// InitModule wires the state store, snapshot ledger, RPCs, hooks and match
// handler into the Nakama runtime. All collaborators are built here and
// passed by reference; nothing global.
func InitModule(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, initializer runtime.Initializer) error {
	if err := config.LoadGameConfig(gameConfigPath); err != nil {
		logger.Warn("InitModule: using default game config: %v", err)
	}
	cfg := config.GetGameConfig()

	local := store.NewLocalBackend(cfg.StoreTTL())
	durable := NewNakamaStorageAdapter(nk)
	st := store.New(logger, local, durable)

	snap := store.NewSnapshotter(logger, cfg.SnapshotPath, cfg.SnapshotCap, cfg.SnapshotInterval())

	// Re-prime the local cache from the snapshot ledger so in-flight
	// sessions survive a process restart even without the durable backend.
	records, err := snap.LoadAll()
	if err != nil {
		logger.Warn("InitModule: snapshot recovery skipped: %v", err)
	}
	for _, rec := range records {
		if err := st.Prime(ctx, rec); err != nil {
			logger.Warn("InitModule: could not prime session %s: %v", rec.SessionID, err)
		}
	}
	if len(records) > 0 {
		logger.Info("InitModule: recovered %d session(s) from snapshot ledger", len(records))
	}

	go snap.Run(context.Background())
	go sweepLoop(logger, st, cfg.StoreTTL())

	secret := cfg.ResumeSecret
	if env, ok := ctx.Value(runtime.RUNTIME_CTX_ENV).(map[string]string); ok && env["uno_resume_secret"] != "" {
		secret = env["uno_resume_secret"]
	}
	if secret == "" {
		// Random per-process secret: resume tokens then only outlive a
		// restart when the operator configures a stable one.
		secret = uuid.NewString()
		logger.Warn("InitModule: no resume secret configured, using an ephemeral one")
	}
	resume := app.NewResumeService(secret, cfg.ResumeIssuer, cfg.GracePeriod())

	deps := &Deps{
		Store:     st,
		Snapshots: snap,
		Config:    cfg,
		Resume:    resume,
	}

	if err := RegisterRPCs(initializer, deps); err != nil {
		return err
	}

	if err := initializer.RegisterAfterAuthenticateDevice(AfterAuthenticateDevice); err != nil {
		return err
	}

	if err := initializer.RegisterMatch(MatchNameUno, func(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule) (runtime.Match, error) {
		return newMatchHandler(deps), nil
	}); err != nil {
		return err
	}

	logger.Info("Uno Go module loaded.")
	return nil
}

// sweepLoop evicts state-store entries idle past the TTL. It only touches
// store copies, never live match state, so it needs no session ordering.
func sweepLoop(logger runtime.Logger, st *store.Store, maxAge time.Duration) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for range ticker.C {
		if n := st.Sweep(context.Background(), maxAge); n > 0 {
			logger.Info("sweep: evicted %d idle session(s)", n)
		}
	}
}
