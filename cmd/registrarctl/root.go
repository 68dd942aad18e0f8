package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	dbPath      string
	assumeYes   bool
	maxAttempts int
)

var rootCmd = &cobra.Command{
	Use:   "registrarctl",
	Short: "Console for the registrar record store",
	Long: `registrarctl edits registrar records directly in the sqlite store.

Every edit runs a full change session: the record is loaded, validated,
saved with bounded retry, and any notification it raises is dispatched.
Destructive steps ask for confirmation unless --yes is given.`,
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	def := os.Getenv("REGISTRAR_DB_PATH")
	if def == "" {
		def = "./data/registrar.db"
	}
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", def, "sqlite database path")
	rootCmd.PersistentFlags().BoolVarP(&assumeYes, "yes", "y", false, "answer yes to every confirmation")
	rootCmd.PersistentFlags().IntVar(&maxAttempts, "max-attempts", 3, "store attempts per change")
}
