package sheets

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contas/internal/core"
)

func idSeq(start int64) func() int64 {
	n := start - 1
	return func() int64 { n++; return n }
}

var importNow = time.Date(2024, time.February, 10, 9, 0, 0, 0, time.UTC)

func TestParseImportRows(t *testing.T) {
	table := [][]string{
		{"Grupo DRE", "Subgrupo", "CTA", "DESCRIÇÃO", "DIA VENC.", "VALOR"},
		{"ESTRUTURA", "Água", "123", "Conta de água", "10", "1.234,56"},
		{"PESSOAL", "Salários", "", "Folha", "31", "5000"},
		{"", "", "", "", "5", "10"},
		{"X", "Y", "", "Sem valor", "5", "0"},
		{"X", "Y", "", "Dia inválido", "32", "10"},
		{"X", "Y", "", "Sem dia", "", "10"},
		{"", "", "", "", "", ""},
	}

	res, err := ParseImportRows(table, importNow, idSeq(100))
	require.NoError(t, err)
	require.Len(t, res.Payables, 2)
	assert.Equal(t, 4, res.Skipped)

	first := res.Payables[0]
	assert.Equal(t, int64(100), first.ID)
	assert.Equal(t, "ESTRUTURA", first.GroupName)
	assert.Equal(t, "Água", first.SubgroupName)
	assert.Equal(t, "123", first.CostCenterCode)
	assert.Equal(t, "2024-02-10", first.DueDate)
	assert.Equal(t, 1234.56, first.Amount)
	assert.Equal(t, core.ExpenseFixed, first.ExpenseType)
	assert.False(t, first.IsRecurring)
	assert.Equal(t, importNow, first.CreatedAt)

	assert.Equal(t, "2024-02-29", res.Payables[1].DueDate, "day clamped to month length")
	assert.Equal(t, 5000.0, res.Payables[1].Amount)
}

func TestParseImportRowsHeaderVariants(t *testing.T) {
	table := [][]string{
		{"GRUPO", "SUBGRUPO", "Cta", "DESCRICAO", "Dia Venc", "Valor"},
		{"G", "S", "9", "Item", "3.0", "99.5"},
	}
	res, err := ParseImportRows(table, importNow, idSeq(1))
	require.NoError(t, err)
	require.Len(t, res.Payables, 1)
	p := res.Payables[0]
	assert.Equal(t, "G", p.GroupName)
	assert.Equal(t, "S", p.SubgroupName)
	assert.Equal(t, "9", p.CostCenterCode)
	assert.Equal(t, "2024-02-03", p.DueDate)
	assert.Equal(t, 99.5, p.Amount)
}

func TestParseImportRowsFormatErrors(t *testing.T) {
	var fe *core.ImportFormatError

	_, err := ParseImportRows(nil, importNow, idSeq(1))
	assert.True(t, errors.As(err, &fe))

	_, err = ParseImportRows([][]string{{"Valor", "Dia Venc"}}, importNow, idSeq(1))
	assert.True(t, errors.As(err, &fe))
}

func TestParseCellAmount(t *testing.T) {
	cases := map[string]float64{
		"":          0,
		"1234.5":    1234.5,
		"1.234,56":  1234.56,
		"R$ 10,00":  10,
		"abc":       0,
		"12.345678": 12.35,
	}
	for in, want := range cases {
		assert.Equal(t, want, ParseCellAmount(in), in)
	}
}
