// Package main is the entry point for the linkshelf server.
//
// MAIN PACKAGE IN GO:
// Every Go program starts execution in the main() function of the "main" package.
// The main package should be kept minimal — its job is to:
// 1. Read configuration (from env vars or a .env file)
// 2. Create dependencies (logger, database connection, cache, auth)
// 3. Start the application
//
// All actual logic lives in imported packages (internal/server, internal/handler, etc.).
//
// WHY cmd/server/?
// The cmd/ directory is a Go convention for executable entry points.
// linkshelf has two: cmd/server (this one) and cmd/shelfctl (the operator CLI).
package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/sakif/linkshelf/internal/access"
	"github.com/sakif/linkshelf/internal/auth"
	"github.com/sakif/linkshelf/internal/cache"
	"github.com/sakif/linkshelf/internal/config"
	"github.com/sakif/linkshelf/internal/logging"
	sqliteRepo "github.com/sakif/linkshelf/internal/repository/sqlite"
	"github.com/sakif/linkshelf/internal/server"
)

func main() {
	// Bootstrap logger until the configured one exists.
	boot := slog.New(slog.NewTextHandler(os.Stderr, nil))

	// === 1. READ CONFIGURATION ===
	// A .env file is optional; real environment variables win over it.
	if err := config.LoadDotEnv(); err != nil {
		fatal(boot, "failed to read .env", err)
	}
	cfg, err := config.Load()
	if err != nil {
		fatal(boot, "failed to load configuration", err)
	}

	// === 2. SET UP LOGGING ===
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stdout)
	if err != nil {
		fatal(boot, "invalid logging configuration", err)
	}

	// Fail fast: a server without credentials or an allow-list would start
	// and then reject every sign-in.
	if err := cfg.ValidateServer(); err != nil {
		fatal(logger, "invalid configuration", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	// === 3. DATABASE ===
	db, err := sqliteRepo.Open(ctx, sqliteRepo.Options{
		DatabaseURL: cfg.DatabaseURL,
		AuthToken:   cfg.DatabaseAuthToken,
	})
	if err != nil {
		fatal(logger, "failed to open database", err)
	}
	if err := db.Initialize(ctx); err != nil {
		db.Close()
		fatal(logger, "failed to initialize schema", err)
	}

	// === 4. CACHE (optional) ===
	// Without REDIS_URL every listing goes straight to the database.
	var listCache cache.ListCache
	if cfg.RedisURL != "" {
		rc, err := cache.Connect(ctx, cfg.RedisURL, cfg.CacheTTL)
		if err != nil {
			logger.Warn("Redis unavailable, listing cache disabled", slog.String("error", err.Error()))
		} else {
			listCache = rc
		}
	}

	// === 5. AUTH ===
	tokens, err := auth.NewTokenService(cfg.SessionSecret, cfg.SessionTTL)
	if err != nil {
		db.Close()
		fatal(logger, "invalid session configuration", err)
	}
	allowList := access.Parse(cfg.AllowedUsers)
	logger.Info("allow-list loaded", slog.Int("entries", allowList.Len()))

	github := auth.NewGitHubProvider(cfg.GitHubClientID, cfg.GitHubClientSecret, cfg.GitHubCallbackURL)

	// === 6. CREATE AND START THE SERVER ===
	srv, err := server.New(
		server.Config{Port: cfg.Port, SecureCookies: cfg.SecureCookies},
		server.Deps{
			DB:     db,
			Cache:  listCache,
			Tokens: tokens,
			Gate:   access.NewGate(allowList),
			GitHub: github,
		},
		logger,
	)
	if err != nil {
		db.Close()
		fatal(logger, "failed to create server", err)
	}

	// Start() blocks until the server is shut down (via Ctrl+C or SIGTERM)
	if err := srv.Start(); err != nil {
		fatal(logger, "server error", err)
	}
}

func fatal(logger *slog.Logger, msg string, err error) {
	logger.Error(msg, slog.String("error", err.Error()))
	os.Exit(1)
}
