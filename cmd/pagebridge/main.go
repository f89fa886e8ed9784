package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "pagebridge",
		Short: "Relay Facebook fanpage conversations into a Telegram operator group",
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the relay engine",
		Run: func(_ *cobra.Command, _ []string) {
			runServe()
		},
	}

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(_ *cobra.Command, _ []string) error {
			return runMigrate()
		},
	}

	rootCmd.AddCommand(serveCmd, migrateCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
