package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/enough-app/enough/internal/export"
	"github.com/enough-app/enough/internal/ledger/sqlite"
)

func newExportCommand(a *app) *cobra.Command {
	var account, from, to, out string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write transactions as CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return a.withStore(ctx, func(s *sqlite.Store) error {
				q, err := buildQuery(ctx, s, account, from, to)
				if err != nil {
					return err
				}
				rows, err := export.Collect(ctx, s, q)
				if err != nil {
					return err
				}

				var w io.Writer = cmd.OutOrStdout()
				if out != "" && out != "-" {
					f, err := os.Create(out)
					if err != nil {
						return fmt.Errorf("creating %s: %w", out, err)
					}
					defer f.Close()
					w = f
				}
				if err := export.WriteRows(w, rows); err != nil {
					return err
				}
				if out != "" && out != "-" {
					printer(cmd).Success("exported %d transactions to %s", len(rows), out)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&account, "account", "", "only this account")
	cmd.Flags().StringVar(&from, "from", "", "first date, YYYY-MM-DD")
	cmd.Flags().StringVar(&to, "to", "", "last date, YYYY-MM-DD")
	cmd.Flags().StringVarP(&out, "output", "o", "", "output file (default stdout)")

	return cmd
}
