package cli

import (
	"database/sql"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ndewijer/Household-Ledger-Backend/internal/config"
	"github.com/ndewijer/Household-Ledger-Backend/internal/database"
)

// app is the configuration, logger and migrated database shared by commands.
type app struct {
	cfg     *config.Config
	db      *sql.DB
	log     *logrus.Logger
	version int64
}

func openApp(cmd *cobra.Command, opts *RootOptions) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load configuration", err)
	}
	if opts.Database != "" {
		cfg.Database.Path = opts.Database
	}
	if opts.Verbose {
		cfg.Log.Level = "debug"
	}
	log := cfg.Log.NewLogger(cmd.ErrOrStderr())

	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	version, err := database.Migrate(cmd.Context(), db)
	if err != nil {
		db.Close()
		return nil, WrapExitError(ExitCommandError, "failed to migrate database", err)
	}
	log.WithFields(logrus.Fields{
		"path":           cfg.Database.Path,
		"schema_version": version,
	}).Debug("Database ready")

	return &app{cfg: cfg, db: db, log: log, version: version}, nil
}

func (a *app) Close() {
	if err := a.db.Close(); err != nil {
		a.log.WithError(err).Error("Failed to close database")
	}
}
