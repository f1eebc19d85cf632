// Package sheets maps payables to and from tabular representations and
// declares the ports implemented by the storage and spreadsheet adapters.
package sheets

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"contas/internal/core"
)

// Accepted header spellings per imported column.
var (
	groupHeaders       = []string{"Grupo DRE", "GRUPO DRE", "Grupo", "GRUPO"}
	subgroupHeaders    = []string{"Subgrupo", "SUBGRUPO"}
	codeHeaders        = []string{"CTA", "Cta"}
	descriptionHeaders = []string{"DESCRIÇÃO", "Descrição", "DESCRICAO"}
	dueDayHeaders      = []string{"DIA VENC.", "DIA VENC", "Dia Venc"}
	amountHeaders      = []string{"VALOR", "Valor"}
)

// ImportResult is the outcome of mapping a spreadsheet into payables.
type ImportResult struct {
	Payables []core.Payable `json:"payables"`
	Skipped  int            `json:"skipped"`
}

// ParseImportRows maps the first-sheet cells (header row first) into
// payables due in the month of now. A row is kept when it has a
// description, an amount above zero and a due day between 1 and 31; the day
// is clamped to the month length. Everything else is counted as skipped.
// Imported payables are fixed and not recurring; nextID numbers them.
func ParseImportRows(table [][]string, now time.Time, nextID func() int64) (ImportResult, error) {
	var res ImportResult
	if len(table) == 0 {
		return res, &core.ImportFormatError{Source: "spreadsheet", Err: fmt.Errorf("empty sheet")}
	}

	header := table[0]
	cols := columns{
		group:       findColumn(header, groupHeaders),
		subgroup:    findColumn(header, subgroupHeaders),
		code:        findColumn(header, codeHeaders),
		description: findColumn(header, descriptionHeaders),
		dueDay:      findColumn(header, dueDayHeaders),
		amount:      findColumn(header, amountHeaders),
	}
	if cols.description < 0 {
		return res, &core.ImportFormatError{Source: "spreadsheet", Err: fmt.Errorf("missing description column")}
	}

	today := core.Today(now)
	for _, row := range table[1:] {
		if isBlank(row) {
			continue
		}
		p, ok := cols.payable(row, today, now)
		if !ok {
			res.Skipped++
			continue
		}
		p.ID = nextID()
		res.Payables = append(res.Payables, p)
	}
	return res, nil
}

type columns struct {
	group, subgroup, code, description, dueDay, amount int
}

func (c columns) payable(row []string, today core.Date, now time.Time) (core.Payable, bool) {
	desc := cell(row, c.description)
	if desc == "" {
		return core.Payable{}, false
	}
	day, ok := parseDay(cell(row, c.dueDay))
	if !ok || day < 1 || day > 31 {
		return core.Payable{}, false
	}
	amount := ParseCellAmount(cell(row, c.amount))
	if amount <= 0 {
		return core.Payable{}, false
	}
	if n := core.DaysIn(today.Year(), today.Month()); day > n {
		day = n
	}
	return core.Payable{
		Description:    desc,
		GroupName:      cell(row, c.group),
		SubgroupName:   cell(row, c.subgroup),
		CostCenterCode: cell(row, c.code),
		DueDate:        core.NewDate(today.Year(), today.Month(), day).String(),
		Amount:         amount,
		ExpenseType:    core.ExpenseFixed,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, true
}

// ParseCellAmount reads an amount cell. Adapters hand numeric cells over in
// Go float notation ("1234.5"), which is taken as is; anything else goes
// through the pt-BR parse.
func ParseCellAmount(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	if !strings.Contains(s, ",") {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return core.RoundMoney(f)
		}
	}
	return core.ParseMoney(s)
}

// parseDay reads the leading integer of s, the way "10", "10.0" and "10º"
// all mean day 10.
func parseDay(s string) (int, bool) {
	s = strings.TrimSpace(s)
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(s[:end])
	return n, err == nil
}

func findColumn(header []string, names []string) int {
	for _, name := range names {
		for i, h := range header {
			if strings.TrimSpace(h) == name {
				return i
			}
		}
	}
	return -1
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func isBlank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
