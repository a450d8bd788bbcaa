package commands

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/enough-app/enough/internal/accounts"
	"github.com/enough-app/enough/internal/id"
	"github.com/enough-app/enough/internal/ledger"
	"github.com/enough-app/enough/internal/ledger/sqlite"
	"github.com/enough-app/enough/internal/model"
	"github.com/enough-app/enough/internal/output"
)

func newAccountCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Manage bank accounts",
	}
	cmd.AddCommand(
		newAccountAddCommand(a),
		newAccountListCommand(a),
		newAccountDeleteCommand(a),
	)
	return cmd
}

func newAccountAddCommand(a *app) *cobra.Command {
	var bank, kind string

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := accounts.ParseBank(bank)
			if err != nil {
				return err
			}
			k, err := accounts.ParseKind(kind)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			return a.withStore(ctx, func(s *sqlite.Store) error {
				existing, err := s.Accounts(ctx)
				if err != nil {
					return err
				}
				svc := accounts.NewService(existing)
				acct := accounts.New(args[0], b, k, svc.NextSortOrder(), a.now())
				if err := ledger.Join(ledger.ValidateAccount(acct)); err != nil {
					return err
				}
				if err := s.CreateAccount(ctx, acct); err != nil {
					return err
				}
				printer(cmd).Success("added %s account %q (%s)", acct.Bank.DisplayName(), acct.Name, id.Short(acct.ID))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&bank, "bank", "", "bank (ing, cba, anz, westpac, nab, up, macquarie, other)")
	cmd.Flags().StringVar(&kind, "kind", "", "account kind (checking, savings, credit)")

	return cmd
}

func newAccountListCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List accounts with their reviewed balances",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return a.withStore(ctx, func(s *sqlite.Store) error {
				var (
					accts []model.Account
					txns  []model.Transaction
				)
				err := s.View(ctx, func(r ledger.Reader) (err error) {
					if accts, err = r.Accounts(ctx); err != nil {
						return err
					}
					txns, err = r.Transactions(ctx, ledger.Query{})
					return err
				})
				if err != nil {
					return err
				}
				if len(accts) == 0 {
					printer(cmd).Info("no accounts yet; add one with `enough account add`")
					return nil
				}

				byAccount := make(map[uuid.UUID][]model.Transaction, len(accts))
				for _, t := range txns {
					byAccount[t.AccountID] = append(byAccount[t.AccountID], t)
				}

				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tNAME\tBANK\tKIND\tBALANCE")
				for _, acct := range accts {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
						id.Short(acct.ID), acct.Name, acct.Bank.DisplayName(), acct.Kind.DisplayName(),
						output.Money(model.Balance(byAccount[acct.ID])))
				}
				return tw.Flush()
			})
		},
	}
}

func newAccountDeleteCommand(a *app) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <account>",
		Short: "Delete an account and all of its transactions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return a.withStore(ctx, func(s *sqlite.Store) error {
				var acct model.Account
				var count int
				err := s.View(ctx, func(r ledger.Reader) error {
					var err error
					if acct, err = resolveAccount(ctx, r, args[0]); err != nil {
						return err
					}
					txns, err := r.Transactions(ctx, ledger.Query{AccountID: &acct.ID})
					count = len(txns)
					return err
				})
				if err != nil {
					return err
				}
				if !yes {
					printer(cmd).Warning("this deletes %q and its %d transactions; rerun with --yes", acct.Name, count)
					return errors.New("not confirmed")
				}
				if err := s.DeleteAccount(ctx, acct.ID); err != nil {
					return err
				}
				printer(cmd).Success("deleted %q and %d transactions", acct.Name, count)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "confirm deletion")

	return cmd
}
