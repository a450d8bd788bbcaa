package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/enough-app/enough/internal/categories"
	"github.com/enough-app/enough/internal/id"
	"github.com/enough-app/enough/internal/ledger/sqlite"
	"github.com/enough-app/enough/internal/merchant"
	"github.com/enough-app/enough/internal/model"
	"github.com/enough-app/enough/internal/output"
	"github.com/enough-app/enough/internal/review"
)

func newReviewCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "review",
		Short: "Review imported transactions",
	}
	cmd.AddCommand(
		newReviewListCommand(a),
		newReviewAcceptCommand(a),
		newReviewCategorizeCommand(a),
		newReviewUncategorizeCommand(a),
	)
	return cmd
}

func newReviewListCommand(a *app) *cobra.Command {
	var account string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List transactions waiting for review",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return a.withStore(ctx, func(s *sqlite.Store) error {
				var accountID *uuid.UUID
				if account != "" {
					acct, err := resolveAccount(ctx, s, account)
					if err != nil {
						return err
					}
					accountID = &acct.ID
				}

				pending, err := review.NewService(s, a.now).Pending(ctx, accountID)
				if err != nil {
					return err
				}
				if len(pending) == 0 {
					printer(cmd).Success("nothing to review")
					return nil
				}

				cats, err := categories.Load(ctx, s)
				if err != nil {
					return err
				}
				merchants, err := s.Merchants(ctx)
				if err != nil {
					return err
				}
				known := make(map[uuid.UUID]model.Merchant, len(merchants))
				for _, m := range merchants {
					known[m.ID] = m
				}

				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tDATE\tDESCRIPTION\tMERCHANT\tCATEGORY\tAMOUNT")
				for _, t := range pending {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
						id.Short(t.ID), t.Date.Format(dateLayout), t.RawDescription,
						merchant.DisplayName(t, known), cats.Name(t.CategoryID), output.Money(t.Amount))
				}
				if err := tw.Flush(); err != nil {
					return err
				}
				printer(cmd).Info("%d to review", len(pending))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&account, "account", "", "only this account")

	return cmd
}

func newReviewAcceptCommand(a *app) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "accept [transaction...]",
		Short: "Mark transactions reviewed as they are",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !all && len(args) == 0 {
				return fmt.Errorf("name at least one transaction, or pass --all")
			}
			ctx := cmd.Context()
			return a.withStore(ctx, func(s *sqlite.Store) error {
				svc := review.NewService(s, a.now)

				var ids []uuid.UUID
				if all {
					pending, err := svc.Pending(ctx, nil)
					if err != nil {
						return err
					}
					for _, t := range pending {
						ids = append(ids, t.ID)
					}
				}
				for _, ref := range args {
					t, err := resolveTransaction(ctx, s, ref)
					if err != nil {
						return err
					}
					ids = append(ids, t.ID)
				}

				for _, txnID := range ids {
					if _, err := svc.Accept(ctx, txnID); err != nil {
						return err
					}
				}
				printer(cmd).Success("accepted %d transactions", len(ids))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "accept every pending transaction")

	return cmd
}

func newReviewCategorizeCommand(a *app) *cobra.Command {
	var remember bool
	var name string

	cmd := &cobra.Command{
		Use:   "categorize <transaction> <category>",
		Short: "Assign a category and mark the transaction reviewed",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return a.withStore(ctx, func(s *sqlite.Store) error {
				t, err := resolveTransaction(ctx, s, args[0])
				if err != nil {
					return err
				}
				cats, err := categories.Load(ctx, s)
				if err != nil {
					return err
				}
				cat, err := cats.Resolve(args[1])
				if err != nil {
					return err
				}

				var rem *review.Remember
				if remember || name != "" {
					rem = &review.Remember{DisplayName: name}
				}
				t, err = review.NewService(s, a.now).Categorize(ctx, t.ID, cat.ID, rem)
				if err != nil {
					return err
				}

				p := printer(cmd)
				p.Success("%s → %s", t.RawDescription, cat.Name)
				if rem != nil {
					p.Info("future imports matching this merchant will be filed under %s", cat.Name)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&remember, "remember", false, "learn the merchant so future imports get this category")
	cmd.Flags().StringVar(&name, "name", "", "display name for the learned merchant (implies --remember)")

	return cmd
}

func newReviewUncategorizeCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "uncategorize <transaction>",
		Short: "Clear a transaction's category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return a.withStore(ctx, func(s *sqlite.Store) error {
				t, err := resolveTransaction(ctx, s, args[0])
				if err != nil {
					return err
				}
				if _, err := review.NewService(s, a.now).Uncategorize(ctx, t.ID); err != nil {
					return err
				}
				printer(cmd).Success("cleared category on %s", id.Short(t.ID))
				return nil
			})
		},
	}
}
