package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mini-rodalies-3d/subway/internal/config"
	"github.com/mini-rodalies-3d/subway/repository"
)

// NewRootCmd builds the subwayctl command tree. Every subcommand opens the
// store configured by the environment, with --db and --database-url taking
// precedence.
func NewRootCmd() *cobra.Command {
	cfg := config.Load()

	rootCmd := &cobra.Command{
		Use:   "subwayctl",
		Short: "Administer subway stations, lines and sections",
		Long: `subwayctl edits the same database as the subway API. Section changes go
through the same validation, so a line stays a single path of stations.`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&cfg.DatabasePath, "db", cfg.DatabasePath, "Path to SQLite database")
	rootCmd.PersistentFlags().StringVar(&cfg.DatabaseURL, "database-url", cfg.DatabaseURL, "Postgres connection string (overrides --db)")

	open := func(ctx context.Context) (repository.Store, error) {
		return repository.Open(ctx, cfg)
	}

	rootCmd.AddCommand(
		newMigrateCmd(open),
		newStationsCmd(open),
		newAddStationCmd(open),
		newLinesCmd(open),
		newLineCmd(open),
		newAddSectionCmd(open),
		newRemoveStationCmd(open),
		newImportGTFSCmd(open),
	)
	return rootCmd
}

// Execute runs the root command and exits non-zero on failure
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type storeOpener func(ctx context.Context) (repository.Store, error)

// withStore opens the store for the duration of fn
func withStore(cmd *cobra.Command, open storeOpener, fn func(ctx context.Context, store repository.Store) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	store, err := open(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	return fn(ctx, store)
}
