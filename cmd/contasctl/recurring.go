package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"contas/internal/cli"
	"contas/internal/core"
	"contas/internal/services"
)

func recurringCmd() *cobra.Command {
	var year, month int

	cmd := &cobra.Command{
		Use:   "recurring",
		Short: "Project the recurring payables of a month into the next one",
		Long: `Copies every recurring payable due in the given month into the following
month, keeping the day of the month. Records that already exist are skipped,
so running it twice has no further effect.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSession(cmd, func(ctx context.Context, s *services.Session) error {
				today := s.Today()
				if year == 0 {
					year = today.Year()
				}
				if month == 0 {
					month = today.Month()
				}
				plan, err := s.GenerateRecurring(ctx, year, month)
				if errors.Is(err, core.ErrNoRecurring) {
					fmt.Fprintln(cmd.OutOrStdout(), cli.FormatWarning(
						fmt.Sprintf("No recurring payables due in %s/%d", core.MonthName(month), year)))
					return nil
				}
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf(
					"%d payables created for %s/%d (%d already present)",
					len(plan.Generated), core.MonthName(plan.TargetMonth), plan.TargetYear, plan.Duplicates)))
				for _, p := range plan.Generated {
					fmt.Fprintln(cmd.OutOrStdout(), cli.SubtleStyle.Render(fmt.Sprintf(
						"  %s  %s  %s", p.DueDate, p.Description, core.FormatCurrency(p.Amount))))
				}
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&year, "year", 0, "source year (default: current)")
	cmd.Flags().IntVar(&month, "month", 0, "source month 1-12 (default: current)")
	return cmd
}
