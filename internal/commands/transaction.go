package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/enough-app/enough/internal/categories"
	"github.com/enough-app/enough/internal/id"
	"github.com/enough-app/enough/internal/importer"
	"github.com/enough-app/enough/internal/ledger/sqlite"
	"github.com/enough-app/enough/internal/output"
	"github.com/enough-app/enough/internal/review"
)

func newTransactionCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "transaction",
		Aliases: []string{"txn"},
		Short:   "Add, list and delete transactions",
	}
	cmd.AddCommand(
		newTransactionAddCommand(a),
		newTransactionListCommand(a),
		newTransactionDeleteCommand(a),
	)
	return cmd
}

func newTransactionAddCommand(a *app) *cobra.Command {
	var account, date, amount, description, category string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record a transaction by hand",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			day, err := parseDay(date, a.now())
			if err != nil {
				return err
			}
			amt, err := importer.ParseAmount(amount)
			if err != nil {
				return fmt.Errorf("--amount %q: %w", amount, err)
			}

			ctx := cmd.Context()
			return a.withStore(ctx, func(s *sqlite.Store) error {
				acct, err := resolveAccount(ctx, s, account)
				if err != nil {
					return err
				}
				entry := review.ManualEntry{
					AccountID:   acct.ID,
					Date:        day,
					Description: description,
					Amount:      amt,
				}
				if category != "" {
					cats, err := categories.Load(ctx, s)
					if err != nil {
						return err
					}
					c, err := cats.Resolve(category)
					if err != nil {
						return err
					}
					entry.CategoryID = id.Ptr(c.ID)
				}

				t, err := review.NewService(s, a.now).AddManual(ctx, entry)
				if err != nil {
					return err
				}
				printer(cmd).Success("added %s %s to %s (%s)", output.Money(t.Amount), t.RawDescription, acct.Name, id.Short(t.ID))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&account, "account", "", "account name or ID (default: the only account)")
	cmd.Flags().StringVar(&date, "date", "", "date as YYYY-MM-DD (default today)")
	cmd.Flags().StringVar(&amount, "amount", "", "amount; negative for spending")
	cmd.Flags().StringVar(&description, "description", "", "description")
	cmd.Flags().StringVar(&category, "category", "", "category name or ID")
	_ = cmd.MarkFlagRequired("amount")
	_ = cmd.MarkFlagRequired("description")

	return cmd
}

func newTransactionListCommand(a *app) *cobra.Command {
	var account, from, to string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List transactions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return a.withStore(ctx, func(s *sqlite.Store) error {
				q, err := buildQuery(ctx, s, account, from, to)
				if err != nil {
					return err
				}
				txns, err := s.Transactions(ctx, q)
				if err != nil {
					return err
				}
				cats, err := categories.Load(ctx, s)
				if err != nil {
					return err
				}

				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tDATE\tDESCRIPTION\tCATEGORY\tAMOUNT\tREVIEWED")
				for _, t := range txns {
					reviewed := ""
					if t.Reviewed {
						reviewed = "yes"
					}
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
						id.Short(t.ID), t.Date.Format(dateLayout), t.RawDescription,
						cats.Name(t.CategoryID), output.Money(t.Amount), reviewed)
				}
				return tw.Flush()
			})
		},
	}

	cmd.Flags().StringVar(&account, "account", "", "only this account")
	cmd.Flags().StringVar(&from, "from", "", "first date, YYYY-MM-DD")
	cmd.Flags().StringVar(&to, "to", "", "last date, YYYY-MM-DD")

	return cmd
}

func newTransactionDeleteCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <transaction>",
		Short: "Delete a transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return a.withStore(ctx, func(s *sqlite.Store) error {
				t, err := resolveTransaction(ctx, s, args[0])
				if err != nil {
					return err
				}
				if err := review.NewService(s, a.now).Delete(ctx, t.ID); err != nil {
					return err
				}
				printer(cmd).Success("deleted %s %s", t.RawDescription, output.Money(t.Amount))
				return nil
			})
		},
	}
}

