package sheets

import (
	"strconv"
	"time"

	"contas/internal/core"
)

// Sheet names of the report workbook.
const (
	SheetInfo     = "Info"
	SheetDetail   = "Detalhado"
	SheetPayables = "Contas"
)

type (
	// Sheet is a header row followed by values. Values are strings, float64
	// amounts or ints.
	Sheet struct {
		Name   string
		Header []string
		Rows   [][]any
	}

	Workbook struct {
		Sheets []Sheet
	}
)

// Sheet returns the sheet with the given name.
func (wb Workbook) Sheet(name string) (Sheet, bool) {
	for _, s := range wb.Sheets {
		if s.Name == name {
			return s, true
		}
	}
	return Sheet{}, false
}

// BuildReportWorkbook lays a report out as the three-sheet export: summary
// info, per-code totals and the matched records ordered by due date.
func BuildReportWorkbook(rep core.Report, company core.Company, generatedAt time.Time) Workbook {
	info := Sheet{
		Name:   SheetInfo,
		Header: []string{"Campo", "Valor"},
		Rows: [][]any{
			{"Empresa", company.Name},
			{"CNPJ", company.TaxID},
			{"Relatório", rep.Title},
			{"Gerado em", generatedAt.Format("02/01/2006 15:04:05")},
			{"Total Projetado", rep.Totals.Projected},
			{"Total Pago", rep.Totals.Paid},
			{"Total Pendente", rep.Totals.Pending},
			{"Total Vencido", rep.Totals.Overdue},
			{"A pagar", rep.Totals.ToPay()},
			{"% Realizado", core.RoundMoney(rep.Totals.PercentRealized())},
		},
	}

	detail := Sheet{
		Name:   SheetDetail,
		Header: []string{"Grupo DRE", "Subgrupo", "CTA", "Projetado", "Pago", "Pendente", "Vencido", "A pagar"},
	}
	for _, g := range rep.Groups {
		for _, s := range g.Subgroups {
			for _, c := range s.Codes {
				detail.Rows = append(detail.Rows, []any{
					g.Name, s.Name, c.Code,
					c.Projected, c.Paid, c.Pending, c.Overdue, c.ToPay(),
				})
			}
		}
	}

	payables := Sheet{
		Name: SheetPayables,
		Header: []string{
			"Vencimento", "Grupo DRE", "Subgrupo", "CTA", "Descrição", "Fornecedor/Pessoa",
			"Valor", "Status", "Data Pagamento", "Forma Pagamento", "Banco", "Obs",
			"Obs Pagamento", "Tipo", "Recorrente",
		},
	}
	for _, r := range rep.Rows {
		method := r.PaymentMethodUsed
		if method == "" {
			method = r.PaymentMethod
		}
		payables.Rows = append(payables.Rows, []any{
			r.DueDate, r.GroupName, r.SubgroupName, r.CostCenterCode, r.Description, r.PersonOrSupplier,
			r.Amount, r.Status.Label(), r.PaymentDate, method, r.Bank, r.Notes,
			r.PaymentNotes, r.ExpenseType.Label(), yesNo(r.IsRecurring),
		})
	}

	return Workbook{Sheets: []Sheet{info, detail, payables}}
}

// MirrorHeader is the column layout of the row-per-payable mirror.
var MirrorHeader = []string{
	"ID", "Vencimento", "Grupo DRE", "Subgrupo", "CTA", "Descrição", "Fornecedor/Pessoa",
	"Valor", "Forma Pagamento", "Banco", "Obs", "Tipo", "Recorrente",
	"Data Pagamento", "Forma Pagamento Usada", "Obs Pagamento", "Atualizado em",
}

// MirrorRow renders p in MirrorHeader order. The id is text so spreadsheets
// do not round it.
func MirrorRow(p core.Payable) []any {
	return []any{
		strconv.FormatInt(p.ID, 10), p.DueDate, p.GroupName, p.SubgroupName, p.CostCenterCode,
		p.Description, p.PersonOrSupplier, p.Amount, p.PaymentMethod, p.Bank, p.Notes,
		p.ExpenseType.Label(), yesNo(p.IsRecurring), p.PaymentDate, p.PaymentMethodUsed,
		p.PaymentNotes, p.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func yesNo(b bool) string {
	if b {
		return "Sim"
	}
	return "Não"
}
