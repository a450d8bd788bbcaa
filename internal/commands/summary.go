package commands

import (
	"github.com/spf13/cobra"

	"github.com/enough-app/enough/internal/budget"
	"github.com/enough-app/enough/internal/ledger/sqlite"
	"github.com/enough-app/enough/internal/output"
	"github.com/enough-app/enough/internal/report"
)

func newSummaryCommand(a *app) *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Show this month's spending against your enough number",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := parseDay(date, a.now())
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			return a.withStore(ctx, func(s *sqlite.Store) error {
				o, err := report.Build(ctx, s, ref, report.Options{
					MonthlyTarget: a.cfg.MonthlyTarget(),
					TopN:          a.cfg.Budget.TopCategories,
				})
				if err != nil {
					return err
				}
				a.printOverview(printer(cmd), o)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "report as of this date, YYYY-MM-DD (default today)")

	return cmd
}

func (a *app) printOverview(p *output.Printer, o report.Overview) {
	b := o.Budget

	p.Header(o.Reference.Format("January 2006"))
	p.Line("Spent      %s", output.Money(o.Spending))
	if b.HasTarget {
		p.Line("Target     %s (%s a week)", output.Money(b.Target), output.Money(budget.WeeklyTarget(a.cfg.Budget.EnoughNumber)))
		p.Line("Used       %s", output.Percent(b.Ratio))
		p.Line("Remaining  %s", output.Money(b.Remaining))
	}
	p.Line("Projected  %s", output.Money(b.Projected))
	p.Line("Status     %s", output.Status(b.Status))

	if len(o.TopCategories) > 0 {
		p.Header("Top categories")
		for _, c := range o.TopCategories {
			p.Line("%-16s %12s  %s", c.Category.Name, output.Money(c.Current), output.Trend(c.Trend))
		}
	}

	if len(o.Recent) > 0 {
		p.Header("Recent")
		for _, r := range o.Recent {
			p.Line("%s  %-24s %12s  %s", r.Transaction.Date.Format(dateLayout), r.DisplayName, output.Money(r.Transaction.Amount), r.CategoryName)
		}
	}

	if len(o.Balances) > 0 {
		p.Header("Accounts")
		for _, ab := range o.Balances {
			p.Line("%-24s %12s", ab.Account.Name, output.Money(ab.Balance))
		}
		p.Line("%-24s %12s", "Total", output.Money(o.TotalBalance))
	}

	if o.NeedsReview > 0 {
		p.Warning("%d transactions need review", o.NeedsReview)
		if day, ok := a.cfg.ReviewWeekday(); ok && o.Reference.Weekday() == day {
			p.Info("it's review day: run `enough review list`")
		}
	}
}
