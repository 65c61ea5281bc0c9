package cmd

import (
	"context"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/timada-org/todos/internal/core"
	"github.com/timada-org/todos/internal/database"
	"github.com/timada-org/todos/internal/todo"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending schema migrations and exit",

	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := core.NewConfig(cfgFile)
		if err != nil {
			return err
		}

		logger := core.NewLogger(config.Log)

		db, err := openDatabase(cmd.Context(), config, logger)
		if err != nil {
			return err
		}

		return database.Close(db)
	},
}

// openDatabase acquires the pool and brings the schema up to date. The
// caller owns the returned handle.
func openDatabase(ctx context.Context, config *core.Config, logger *logrus.Logger) (*gorm.DB, error) {
	db, err := database.Open(ctx, database.Options{
		URL:            config.DatabaseURL,
		MaxConnections: config.MaxConnections,
		Logger:         logger,
	})
	if err != nil {
		return nil, err
	}

	applied, err := database.Migrate(ctx, db, todo.Migrations)
	for _, id := range applied {
		logger.WithField("migration", id).Info("Applied migration")
	}
	if err != nil {
		_ = database.Close(db)
		return nil, err
	}

	if len(applied) == 0 {
		logger.Debug("Schema is up to date")
	}

	return db, nil
}
