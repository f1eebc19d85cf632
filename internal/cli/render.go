package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"

	"contas/internal/core"
	"contas/internal/services"
)

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func writeHeader(tw *tabwriter.Writer, cols ...string) {
	styled := make([]string, len(cols))
	rule := make([]string, len(cols))
	for i, c := range cols {
		styled[i] = HeaderStyle.Render(c)
		rule[i] = strings.Repeat("-", len(c))
	}
	fmt.Fprintln(tw, strings.Join(styled, "\t"))
	fmt.Fprintln(tw, strings.Join(rule, "\t"))
}

// RenderListing prints the records of a listing followed by its totals.
func RenderListing(w io.Writer, l services.Listing, today core.Date) error {
	tw := newTable(w)
	writeHeader(tw, "ID", "VENCIMENTO", "DESCRIÇÃO", "GRUPO", "SUBGRUPO", "CTA", "VALOR", "STATUS")
	for _, p := range l.Payables {
		st := core.DeriveStatus(p, today)
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			p.ID, p.DueDate, truncate(p.Description, 40), p.GroupName, p.SubgroupName,
			p.CostCenterCode, core.FormatBRL(p.Amount), statusStyle(st).Render(st.Label()))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w, "\n"+renderTotals(l.Totals))
	return err
}

// RenderReport prints the group, subgroup and code hierarchy of a report.
func RenderReport(w io.Writer, rep core.Report) error {
	if _, err := fmt.Fprintln(w, TitleStyle.Render(rep.Title)); err != nil {
		return err
	}
	tw := newTable(w)
	writeHeader(tw, "CLASSIFICAÇÃO", "PREVISTO", "PAGO", "A PAGAR", "QTD")
	row := func(label string, t core.Totals) {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\n",
			label, core.FormatBRL(t.Projected), core.FormatBRL(t.Paid), core.FormatBRL(t.ToPay()), t.Count)
	}
	for _, g := range rep.Groups {
		row(g.Name, g.Totals)
		for _, sg := range g.Subgroups {
			row("  "+sg.Name, sg.Totals)
			for _, c := range sg.Codes {
				row("    "+c.Code, c.Totals)
			}
		}
	}
	row("TOTAL", rep.Totals)
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w, "\n"+renderTotals(rep.Totals))
	return err
}

func renderTotals(t core.Totals) string {
	return fmt.Sprintf("%s  %s  %s  %s",
		SubtleStyle.Render(fmt.Sprintf("Previsto %s", core.FormatCurrency(t.Projected))),
		SuccessStyle.Render(fmt.Sprintf("Pago %s", core.FormatCurrency(t.Paid))),
		ErrorStyle.Render(fmt.Sprintf("Vencido %s", core.FormatCurrency(t.Overdue))),
		SubtleStyle.Render(fmt.Sprintf("Realizado %.1f%%", t.PercentRealized())))
}

func statusStyle(st core.Status) lipgloss.Style {
	if s, ok := statusStyles[string(st)]; ok {
		return s
	}
	return SubtleStyle
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
