package commands

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/enough-app/enough/internal/categories"
	"github.com/enough-app/enough/internal/id"
	"github.com/enough-app/enough/internal/ledger"
	"github.com/enough-app/enough/internal/ledger/sqlite"
	"github.com/enough-app/enough/internal/merchant"
	"github.com/enough-app/enough/internal/model"
)

func newMerchantCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "merchant",
		Short: "Manage merchant patterns",
	}
	cmd.AddCommand(
		newMerchantAddCommand(a),
		newMerchantListCommand(a),
		newMerchantDeleteCommand(a),
		newMerchantSuggestCommand(a),
	)
	return cmd
}

func newMerchantAddCommand(a *app) *cobra.Command {
	var category string

	cmd := &cobra.Command{
		Use:   "add <pattern> <name>",
		Short: "Add a merchant matched by a description substring",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return a.withStore(ctx, func(s *sqlite.Store) error {
				m := model.Merchant{
					ID:          id.New(),
					RawPattern:  strings.TrimSpace(args[0]),
					DisplayName: strings.TrimSpace(args[1]),
					CreatedAt:   a.now(),
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
					m.DefaultCategoryID = id.Ptr(c.ID)
				}
				if err := ledger.Join(ledger.ValidateMerchant(m)); err != nil {
					return err
				}
				if err := s.CreateMerchant(ctx, m); err != nil {
					return err
				}
				printer(cmd).Success("%q → %s", m.RawPattern, m.DisplayName)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&category, "category", "", "default category for matching transactions")

	return cmd
}

func newMerchantListCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List merchants",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return a.withStore(ctx, func(s *sqlite.Store) error {
				merchants, err := s.Merchants(ctx)
				if err != nil {
					return err
				}
				if len(merchants) == 0 {
					printer(cmd).Info("no merchants yet")
					return nil
				}
				cats, err := categories.Load(ctx, s)
				if err != nil {
					return err
				}

				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tPATTERN\tNAME\tCATEGORY")
				for _, m := range merchants {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
						id.Short(m.ID), m.RawPattern, m.DisplayName, cats.Name(m.DefaultCategoryID))
				}
				return tw.Flush()
			})
		},
	}
}

func newMerchantDeleteCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <merchant>",
		Short: "Delete a merchant; its transactions are kept",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return a.withStore(ctx, func(s *sqlite.Store) error {
				m, err := resolveMerchant(ctx, s, args[0])
				if err != nil {
					return err
				}
				if err := s.DeleteMerchant(ctx, m.ID); err != nil {
					return err
				}
				printer(cmd).Success("deleted merchant %s", m.DisplayName)
				return nil
			})
		},
	}
}

func newMerchantSuggestCommand(a *app) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "suggest",
		Short: "Suggest similar merchants for unmatched pending transactions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return a.withStore(ctx, func(s *sqlite.Store) error {
				var (
					merchants []model.Merchant
					txns      []model.Transaction
				)
				err := s.View(ctx, func(r ledger.Reader) (err error) {
					if merchants, err = r.Merchants(ctx); err != nil {
						return err
					}
					txns, err = r.Transactions(ctx, ledger.Query{})
					return err
				})
				if err != nil {
					return err
				}

				p := printer(cmd)
				seen := make(map[string]bool)
				shown := 0
				for _, t := range txns {
					if t.Reviewed || t.MerchantID != nil || seen[t.RawDescription] {
						continue
					}
					seen[t.RawDescription] = true
					suggestions := merchant.Suggest(t.RawDescription, merchants, limit)
					if len(suggestions) == 0 {
						continue
					}
					names := make([]string, len(suggestions))
					for i, sg := range suggestions {
						names[i] = fmt.Sprintf("%s (%s)", sg.Merchant.DisplayName, sg.Merchant.RawPattern)
					}
					p.Line("%s: %s", t.RawDescription, strings.Join(names, ", "))
					shown++
				}
				if shown == 0 {
					p.Info("no suggestions")
				}
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 3, "suggestions per transaction")

	return cmd
}

