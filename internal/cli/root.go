// Package cli wires the receiptd commands.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"receipts-api/internal/config"
	"receipts-api/internal/db"
	"receipts-api/internal/logger"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// app is filled by the root command before any subcommand runs.
type app struct {
	cfg    config.Config
	logger zerolog.Logger
	stdin  io.Reader
	stdout io.Writer
}

func NewRootCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	rt := &app{stdin: stdin, stdout: stdout}

	rootCmd := &cobra.Command{
		Use:   "receiptd",
		Short: "Point-of-sale receipts API",
		Long: `receiptd serves the receipts HTTP API.

Without a subcommand it behaves like "receiptd serve".

Example:
  receiptd serve
  receiptd migrate
  receiptd adduser --username cashier --name "Olena Petrenko"`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			rt.cfg = config.LoadConfig()
			rt.logger = logger.InitLogger(rt.cfg.LogLevel)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.serve(cmd.Context())
		},
	}
	rootCmd.SetIn(stdin)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	rootCmd.AddCommand(newServeCommand(rt))
	rootCmd.AddCommand(newMigrateCommand(rt))
	rootCmd.AddCommand(newAddUserCommand(rt))
	return rootCmd
}

// Execute runs the command line against the process arguments.
func Execute(ctx context.Context) error {
	return NewRootCommand(os.Stdin, os.Stdout, os.Stderr).ExecuteContext(ctx)
}

func newMigrateCommand(rt *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			database, err := rt.openStorage(cmd.Context())
			if err != nil {
				return err
			}
			defer database.Close()

			fmt.Fprintln(rt.stdout, "Migrations applied")
			return nil
		},
	}
}

// openStorage connects to the configured database and applies migrations.
func (rt *app) openStorage(ctx context.Context) (*db.Database, error) {
	database, err := db.InitDB(ctx, rt.cfg.DBDriver, rt.cfg.DBUrl)
	if err != nil {
		return nil, err
	}

	if err := db.RunMigrations(ctx, database); err != nil {
		database.Close()
		return nil, err
	}

	rt.logger.Info().Str("driver", string(database.Dialect)).Msg("Database ready")
	return database, nil
}
