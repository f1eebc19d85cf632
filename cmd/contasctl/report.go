package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"contas/internal/cli"
	"contas/internal/core"
	"contas/internal/services"
	"contas/internal/sheets/xlsx"
)

func reportCmd() *cobra.Command {
	var (
		q                   core.ReportQuery
		mode, status, etype string
		recurring           string
		out                 string
	)

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print the DRE report, or save it as a workbook",
		Example: `  contasctl report --mode month --year 2024 --month 3
  contasctl report --mode range --start 2024-01-01 --end 2024-06-30 --xlsx semestre.xlsx`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			q.Mode = core.ReportMode(mode)
			q.Status = core.Status(status)
			q.ExpenseType = core.ExpenseType(etype)
			rec, err := parseTriState(recurring)
			if err != nil {
				return err
			}
			q.Recurring = rec

			return withSession(cmd, func(ctx context.Context, s *services.Session) error {
				fillWindow(&q, s.Today())
				if out != "" {
					if err := s.ExportReport(ctx, q, &xlsx.File{Path: out}); err != nil {
						return err
					}
					fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Report saved to "+out))
					return nil
				}
				rep, err := s.Report(q)
				if err != nil {
					return err
				}
				return cli.RenderReport(cmd.OutOrStdout(), rep)
			})
		},
	}

	cmd.Flags().StringVar(&mode, "mode", string(core.ModeMonth), "window: month, year, range")
	cmd.Flags().IntVar(&q.Year, "year", 0, "year (default: current)")
	cmd.Flags().IntVar(&q.Month, "month", 0, "month 1-12 (default: current)")
	cmd.Flags().StringVar(&q.Start, "start", "", "range start, YYYY-MM-DD")
	cmd.Flags().StringVar(&q.End, "end", "", "range end, YYYY-MM-DD")
	cmd.Flags().StringVar(&q.Group, "group", "", "group name")
	cmd.Flags().StringVar(&q.Subgroup, "subgroup", "", "subgroup name")
	cmd.Flags().StringVar(&q.Code, "code", "", "cost center code")
	cmd.Flags().StringVar(&status, "status", "", "status: paid, pending, overdue")
	cmd.Flags().StringVar(&etype, "expense-type", "", "fixed or variable")
	cmd.Flags().StringVar(&recurring, "recurring", "", "yes or no")
	cmd.Flags().StringVar(&out, "xlsx", "", "write the report workbook to this file")
	return cmd
}

// fillWindow defaults a month or year window to the current one.
func fillWindow(q *core.ReportQuery, today core.Date) {
	switch q.Mode {
	case core.ModeMonth:
		if q.Year == 0 {
			q.Year = today.Year()
		}
		if q.Month == 0 {
			q.Month = today.Month()
		}
	case core.ModeYear:
		if q.Year == 0 {
			q.Year = today.Year()
		}
	}
}

func parseTriState(s string) (*bool, error) {
	switch s {
	case "", "all":
		return nil, nil
	case "yes", "sim", "true":
		v := true
		return &v, nil
	case "no", "nao", "não", "false":
		v := false
		return &v, nil
	default:
		return nil, fmt.Errorf("invalid value %q: want yes or no", s)
	}
}
