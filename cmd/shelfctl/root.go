package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/sakif/linkshelf/internal/config"
	"github.com/sakif/linkshelf/internal/logging"
	sqliteRepo "github.com/sakif/linkshelf/internal/repository/sqlite"
	"github.com/sakif/linkshelf/internal/service"
)

// app holds what every subcommand needs. It is filled in by the root
// command's PersistentPreRunE and released by Close once Execute returns,
// whether or not the command succeeded.
type app struct {
	db     *sqliteRepo.DB
	logger *slog.Logger
}

// Close releases the database connection, if one was opened.
func (a *app) Close() error {
	if a.db == nil {
		return nil
	}
	err := a.db.Close()
	a.db = nil
	return err
}

func (a *app) links() *service.LinkService {
	return service.NewLinkService(a.db, nil, a.logger)
}

func (a *app) categories() *service.CategoryService {
	return service.NewCategoryService(a.db, nil, a.logger)
}

func (a *app) seeds() *service.SeedService {
	return service.NewSeedService(a.db, nil, a.logger)
}

func newRootCmd(a *app) *cobra.Command {
	var envFile string

	root := &cobra.Command{
		Use:          "shelfctl",
		Short:        "Manage a linkshelf collection from the command line",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.open(cmd.Context(), cmd, envFile)
		},
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file to read before the environment")

	root.AddCommand(
		newInitCmd(a),
		newSeedCmd(a),
		newCategoriesCmd(a),
		newLinksCmd(a),
	)
	return root
}

// open loads configuration and connects to the database. The CLI never
// needs the OAuth or session settings, so only the store is validated.
func (a *app) open(ctx context.Context, cmd *cobra.Command, envFile string) error {
	if err := config.LoadDotEnv(envFile); err != nil {
		return err
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.ValidateStore(); err != nil {
		return err
	}

	a.logger, err = logging.New(cfg.LogLevel, cfg.LogFormat, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	a.db, err = sqliteRepo.Open(ctx, sqliteRepo.Options{
		DatabaseURL: cfg.DatabaseURL,
		AuthToken:   cfg.DatabaseAuthToken,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	return nil
}
