package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/timada-org/todos/internal/cli"
	"github.com/timada-org/todos/internal/core"
	"github.com/timada-org/todos/internal/database"
	"github.com/timada-org/todos/internal/todo"
)

var (
	addCmd = &cobra.Command{
		Use:   "add <title> [message...]",
		Short: "Add a todo",
		Args:  cobra.MinimumNArgs(1),
		RunE: withStore(func(cmd *cobra.Command, store todo.Store, args []string) error {
			if err := store.Create(cmd.Context(), todoFromArgs(args)); err != nil {
				return err
			}

			cli.OK(cmd.OutOrStdout(), "added "+args[0])
			return nil
		}),
	}

	listCmd = &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List todos",
		Args:    cobra.NoArgs,
		RunE: withStore(func(cmd *cobra.Command, store todo.Store, args []string) error {
			todos, err := store.List(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), cli.Table(todos))
			return nil
		}),
	}

	updateCmd = &cobra.Command{
		Use:   "update <title> [message...]",
		Short: "Replace the message of a todo",
		Args:  cobra.MinimumNArgs(1),
		RunE: withStore(func(cmd *cobra.Command, store todo.Store, args []string) error {
			if err := store.Update(cmd.Context(), todoFromArgs(args)); err != nil {
				return err
			}

			cli.OK(cmd.OutOrStdout(), "updated "+args[0])
			return nil
		}),
	}

	removeCmd = &cobra.Command{
		Use:     "rm <title>",
		Aliases: []string{"delete"},
		Short:   "Remove a todo",
		Args:    cobra.ExactArgs(1),
		RunE: withStore(func(cmd *cobra.Command, store todo.Store, args []string) error {
			if err := store.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}

			cli.OK(cmd.OutOrStdout(), "removed "+args[0])
			return nil
		}),
	}
)

func init() {
	for _, c := range []*cobra.Command{addCmd, listCmd, updateCmd, removeCmd} {
		c.Flags().StringVarP(&dataFile, "file", "f", "", "use this JSON file instead of the database")
	}
}

func todoFromArgs(args []string) todo.Todo {
	return todo.Todo{
		Title:   args[0],
		Message: strings.Join(args[1:], " "),
	}
}

type storeRunE func(cmd *cobra.Command, store todo.Store, args []string) error

// withStore resolves the store the command works against: the JSON file
// given by --file, otherwise the configured database.
func withStore(run storeRunE) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		store, closeStore, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer closeStore()

		return run(cmd, store, args)
	}
}

func openStore(ctx context.Context) (todo.Store, func(), error) {
	if dataFile != "" {
		return todo.NewFileStore(dataFile), func() {}, nil
	}

	config, err := core.NewConfig(cfgFile)
	if err != nil {
		return nil, nil, err
	}

	logger := core.NewLogger(config.Log)
	if !logger.IsLevelEnabled(logrus.DebugLevel) {
		logger.SetLevel(logrus.WarnLevel)
	}

	db, err := openDatabase(ctx, config, logger)
	if err != nil {
		return nil, nil, err
	}

	return todo.NewSQLStore(db), func() { _ = database.Close(db) }, nil
}
