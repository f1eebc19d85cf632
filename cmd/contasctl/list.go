package main

import (
	"context"

	"github.com/spf13/cobra"

	"contas/internal/cli"
	"contas/internal/core"
	"contas/internal/services"
)

func listCmd() *cobra.Command {
	var f core.Filter
	var period, status string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List payables with their derived status",
		Example: `  contasctl list --period month --status overdue
  contasctl list --group ESTRUTURA --search aluguel`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f.Period = core.Period(period)
			f.Status = core.Status(status)
			return withSession(cmd, func(_ context.Context, s *services.Session) error {
				listing, err := s.List(f)
				if err != nil {
					return err
				}
				return cli.RenderListing(cmd.OutOrStdout(), listing, s.Today())
			})
		},
	}

	cmd.Flags().StringVar(&period, "period", "", "due window: all, today, week, month")
	cmd.Flags().StringVar(&status, "status", "", "status: all, paid, pending, overdue")
	cmd.Flags().StringVar(&f.Group, "group", "", "group name")
	cmd.Flags().StringVar(&f.Search, "search", "", "text to look for in description or supplier")
	return cmd
}
