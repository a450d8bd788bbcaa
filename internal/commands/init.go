package commands

import (
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/enough-app/enough/internal/categories"
	"github.com/enough-app/enough/internal/config"
	"github.com/enough-app/enough/internal/ledger/sqlite"
	"github.com/enough-app/enough/internal/logging"
)

func newInitCommand(a *app) *cobra.Command {
	var enoughNumber string
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the config file, ledger and default categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runInit(cmd, enoughNumber, force)
		},
	}

	cmd.Flags().StringVar(&enoughNumber, "enough-number", "", "yearly spending target (default 85000)")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config file")

	return cmd
}

func (a *app) runInit(cmd *cobra.Command, enoughNumber string, force bool) error {
	ctx := cmd.Context()
	p := printer(cmd)

	if enoughNumber != "" {
		n, err := decimal.NewFromString(enoughNumber)
		if err != nil || n.IsNegative() {
			return fmt.Errorf("--enough-number %q: want a non-negative amount", enoughNumber)
		}
		a.cfg.Budget.EnoughNumber = n
	}

	_, statErr := os.Stat(a.configPath)
	switch {
	case statErr == nil && !force:
		p.Info("keeping existing config %s", a.configPath)
	default:
		if err := config.Save(a.configPath, a.cfg); err != nil {
			return err
		}
		p.Success("wrote config %s", a.configPath)
	}

	if err := os.MkdirAll(a.cfg.Import.Inbox, 0o755); err != nil {
		return fmt.Errorf("creating inbox: %w", err)
	}

	return a.withStore(ctx, func(s *sqlite.Store) error {
		n, err := categories.Seed(ctx, s, a.now())
		if err != nil {
			return err
		}
		logging.FromContext(ctx).Debug("categories seeded", "count", n)
		p.Success("ledger ready at %s (%d categories added)", s.Path(), n)
		p.Info("drop bank exports into %s and run `enough import scan`", a.cfg.Import.Inbox)
		return nil
	})
}
