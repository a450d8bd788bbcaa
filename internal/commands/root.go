// Package commands wires the enough CLI.
package commands

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/enough-app/enough/internal/buildinfo"
	"github.com/enough-app/enough/internal/config"
	"github.com/enough-app/enough/internal/ledger/sqlite"
	"github.com/enough-app/enough/internal/logging"
	"github.com/enough-app/enough/internal/output"
)

// app carries what every subcommand needs once the root has loaded config.
type app struct {
	configPath string
	dbPath     string
	logLevel   string

	cfg    *config.Config
	logger *slog.Logger
	now    func() time.Time
}

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	a := &app{now: func() time.Time { return time.Now().UTC() }}

	rootCmd := &cobra.Command{
		Use:     "enough",
		Short:   "Know when you have spent enough",
		Version: buildinfo.String(),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	rootCmd.PersistentFlags().StringVar(&a.configPath, "config", config.DefaultPath(), "config file")
	rootCmd.PersistentFlags().StringVar(&a.dbPath, "db", "", "ledger database (overrides database.path)")
	rootCmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(
		newInitCommand(a),
		newAccountCommand(a),
		newImportCommand(a),
		newReviewCommand(a),
		newMerchantCommand(a),
		newTransactionCommand(a),
		newSummaryCommand(a),
		newExportCommand(a),
	)

	return rootCmd
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.dbPath != "" {
		cfg.Database.Path = a.dbPath
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg

	opts := cfg.LogOptions()
	opts.Output = cmd.ErrOrStderr()
	a.logger = logging.New(opts)
	cmd.SetContext(logging.WithLogger(cmd.Context(), a.logger))
	return nil
}

// withStore opens the ledger for the duration of fn.
func (a *app) withStore(ctx context.Context, fn func(s *sqlite.Store) error) error {
	s, err := sqlite.Open(a.cfg.Database.Path, a.logger)
	if err != nil {
		return fmt.Errorf("opening ledger: %w", err)
	}
	defer s.Close()
	return fn(s)
}

func printer(cmd *cobra.Command) *output.Printer {
	return output.New(cmd.OutOrStdout())
}
