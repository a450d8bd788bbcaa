package commands

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/enough-app/enough/internal/importer"
	"github.com/enough-app/enough/internal/importlog"
	"github.com/enough-app/enough/internal/ledger"
	"github.com/enough-app/enough/internal/ledger/memory"
	"github.com/enough-app/enough/internal/ledger/sqlite"
	"github.com/enough-app/enough/internal/model"
	"github.com/enough-app/enough/internal/output"
)

func newImportCommand(a *app) *cobra.Command {
	var account string
	var yes, dryRun bool

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import a CSV or TSV bank export",
		Long: `Import a CSV or TSV bank export into an account.

Without --yes the file is parsed and previewed but nothing is written.
--dry-run runs the whole import against a copy of the ledger and reports
what would have been inserted.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runImportFile(cmd, args[0], account, yes, dryRun)
		},
	}

	cmd.Flags().StringVar(&account, "account", "", "account name or ID (default: the only account)")
	cmd.Flags().BoolVar(&yes, "yes", false, "import without stopping at the preview")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "import into a throwaway copy of the ledger")

	cmd.AddCommand(
		newImportScanCommand(a),
		newImportHistoryCommand(a),
	)

	return cmd
}

// importOptions builds pipeline options from config.
func (a *app) importOptions() importer.Options {
	opts := a.cfg.ImportOptions()
	opts.Now = a.now
	opts.Logger = a.logger
	return opts
}

// logObserver records finished imports in the configured import log.
func (a *app) logObserver() importer.Observer {
	return importlog.Observer(a.cfg.Import.LogPath, func(err error) {
		a.logger.Warn("writing import log", "path", a.cfg.Import.LogPath, "err", err)
	})
}

func (a *app) runImportFile(cmd *cobra.Command, path, accountRef string, yes, dryRun bool) error {
	ctx := cmd.Context()
	p := printer(cmd)

	src, err := importer.DefaultRegistry().Open(path)
	if err != nil {
		return err
	}

	return a.withStore(ctx, func(s *sqlite.Store) error {
		var acct model.Account
		var target ledger.Store = s
		err := s.View(ctx, func(r ledger.Reader) error {
			var err error
			if acct, err = resolveAccount(ctx, r, accountRef); err != nil {
				return err
			}
			if dryRun {
				target, err = memory.Load(ctx, r)
			}
			return err
		})
		if err != nil {
			return err
		}

		opts := a.importOptions()
		if !dryRun {
			opts.Observers = append(opts.Observers, a.logObserver())
		}
		session, err := importer.NewCoordinator(target, opts).Begin(acct.ID)
		if err != nil {
			return err
		}
		defer session.Close()

		pv, err := session.Parse(ctx, src)
		if pv != nil {
			printPreview(p, pv)
		}
		if err != nil {
			return err
		}

		if !yes && !dryRun {
			if err := session.Cancel(); err != nil {
				return err
			}
			p.Info("nothing written; rerun with --yes to import into %s", acct.Name)
			return nil
		}

		res, err := session.Confirm(ctx)
		if err != nil {
			return err
		}
		printResult(p, res, dryRun)
		return nil
	})
}

func printPreview(p *output.Printer, pv *importer.Preview) {
	p.Header(pv.Source)
	p.Line("%d transactions, %s moved", pv.Count, output.Money(pv.Total))
	for _, f := range pv.Failures {
		p.Warning("%v", f)
	}
}

func printResult(p *output.Printer, res *importer.Result, dryRun bool) {
	verb := "imported"
	if dryRun {
		verb = "would import"
	}
	p.Success("%s %d, skipped %d duplicates, matched %d merchants", verb, res.Inserted, res.Duplicates, res.Matched)
	for _, f := range res.Failures {
		p.Warning("%v", f)
	}
	if res.Cancelled {
		p.Warning("import interrupted; %d rows were saved", res.Inserted)
	}
}

func newImportScanCommand(a *app) *cobra.Command {
	var account string
	var yes bool

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Import every export waiting in the inbox",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runImportScan(cmd, account, yes)
		},
	}

	cmd.Flags().StringVar(&account, "account", "", "account name or ID (default: the only account)")
	cmd.Flags().BoolVar(&yes, "yes", false, "import the files instead of listing them")

	return cmd
}

func (a *app) runImportScan(cmd *cobra.Command, accountRef string, yes bool) error {
	ctx := cmd.Context()
	p := printer(cmd)
	inbox := a.cfg.Import.Inbox

	registry := importer.DefaultRegistry()
	files, err := registry.Scan(inbox)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		p.Info("inbox %s is empty", inbox)
		return nil
	}
	if !yes {
		p.Header("Inbox")
		for _, f := range files {
			p.Line("%s (%s, %d bytes)", f.Name, f.Format, f.Size)
		}
		p.Info("rerun with --yes to import %d files", len(files))
		return nil
	}

	return a.withStore(ctx, func(s *sqlite.Store) error {
		var acct model.Account
		err := s.View(ctx, func(r ledger.Reader) (err error) {
			acct, err = resolveAccount(ctx, r, accountRef)
			return err
		})
		if err != nil {
			return err
		}

		opts := a.importOptions()
		opts.Observers = append(opts.Observers, a.logObserver())
		coord := importer.NewCoordinator(s, opts)

		failed := 0
		for _, f := range files {
			if ctx.Err() != nil {
				return context.Cause(ctx)
			}
			src, err := registry.Open(f.Path)
			if err != nil {
				return err
			}
			res, err := coord.Import(ctx, src, acct.ID)
			if err != nil {
				failed++
				p.Warning("%s: %v", f.Name, err)
				continue
			}
			p.Success("%s: %d imported, %d duplicates", f.Name, res.Inserted, res.Duplicates)
			if res.Cancelled {
				continue
			}
			if err := importer.MarkProcessed(inbox, f.Name); err != nil {
				return err
			}
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d files failed to import", failed, len(files))
		}
		return nil
	})
}

func newImportHistoryCommand(a *app) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent imports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := importlog.Read(a.cfg.Import.LogPath)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				printer(cmd).Info("no imports yet")
				return nil
			}
			if limit > 0 && len(entries) > limit {
				entries = entries[len(entries)-limit:]
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "WHEN\tID\tSOURCE\tSTATUS\tINSERTED\tDUPLICATES\tFAILED")
			for _, e := range entries {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\t%d\n",
					e.Timestamp.Local().Format("2006-01-02 15:04"), e.ImportID, e.Source, e.Status,
					e.Inserted, e.Duplicates, e.Failed)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "number of entries to show (0 for all)")

	return cmd
}
