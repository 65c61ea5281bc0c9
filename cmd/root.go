package cmd

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/timada-org/todos/internal/cli"
)

var (
	cfgFile  string
	dataFile string

	rootCmd = &cobra.Command{
		Use:           "todos",
		Short:         "A tiny persistent todo store",
		Long:          `Todos keeps short todo items in a relational store, serves them over HTTP and manages them from the command line, optionally against a local JSON file.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		cli.Fail(rootCmd.ErrOrStderr(), cli.Describe(err))
	}

	return err
}

func init() {
	cobra.OnInitialize(loadDotEnv)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file, e.g. configs/config.yml (environment only when empty)")

	rootCmd.AddCommand(serveCmd, migrateCmd)
	rootCmd.AddCommand(addCmd, listCmd, updateCmd, removeCmd)
}

// loadDotEnv makes a .env file in the working directory behave like exported
// variables. Variables already set in the environment win.
func loadDotEnv() {
	_ = godotenv.Load()
}
