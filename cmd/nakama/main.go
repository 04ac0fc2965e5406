package main

import (
	"context"
	"database/sql"

	"github.com/a-singh09/uno-game-sub000/internal/ports/nakama"

	"github.com/heroiclabs/nakama-common/runtime"
)

// InitModule proxies Nakama initialization to the nakama adapter package.
func InitModule(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, initializer runtime.Initializer) error {
	return nakama.InitModule(ctx, logger, db, nk, initializer)
}

// main is required for the package to compile as an ordinary binary; the
// Nakama runtime loads this module as a plugin and never calls it.
func main() {}
