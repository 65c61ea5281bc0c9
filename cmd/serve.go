package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/timada-org/todos/internal/api"
	"github.com/timada-org/todos/internal/core"
	"github.com/timada-org/todos/internal/database"
	"github.com/timada-org/todos/internal/events"
	"github.com/timada-org/todos/internal/todo"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the todos HTTP server",

	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := core.NewConfig(cfgFile)
		if err != nil {
			return fmt.Errorf("load configuration: %w", err)
		}

		logger := core.NewLogger(config.Log)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		db, err := openDatabase(ctx, config, logger)
		if err != nil {
			return fmt.Errorf("prepare database: %w", err)
		}
		defer database.Close(db)

		publisher, err := newPublisher(config, logger)
		if err != nil {
			return fmt.Errorf("connect to broker: %w", err)
		}
		defer publisher.Close()

		app := api.New(api.Options{
			Addr:      config.Addr,
			Store:     todo.NewSQLStore(db),
			Publisher: publisher,
			Logger:    logger,
			Timeout:   config.Timeout(),
		})

		if err := app.Listen(ctx); err != nil {
			logger.WithError(err).Error("Server stopped")
			return err
		}

		return nil
	},
}

func newPublisher(config *core.Config, logger *logrus.Logger) (events.Publisher, error) {
	if config.Broker.URL == "" {
		logger.Debug("No broker configured, change events are dropped")
		return events.NewNopPublisher(), nil
	}

	publisher, err := events.NewPulsarPublisher(events.PulsarOptions{
		URL:   config.Broker.URL,
		Topic: config.Broker.Topic,
		Name:  config.Broker.Name,
	})
	if err != nil {
		return nil, err
	}

	logger.WithField("topic", config.Broker.Topic).Info("Publishing change events")

	return publisher, nil
}
