package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var today = NewDate(2024, 6, 15)

func payable(id int64, due string, amount float64) Payable {
	return Payable{
		ID:           id,
		Description:  "Conta",
		GroupName:    "ESTRUTURA",
		SubgroupName: "Água",
		DueDate:      due,
		Amount:       amount,
		ExpenseType:  ExpenseFixed,
	}
}

func TestStatusPaidWheneverPaymentDateSet(t *testing.T) {
	for _, due := range []string{"2020-01-01", "2024-06-15", "2030-01-01", "garbage"} {
		p := payable(1, due, 10)
		p.PaymentDate = "2024-06-01"
		assert.Equal(t, StatusPaid, DeriveStatus(p, today), "due %s", due)

		p.PaymentDate = "2099-01-01"
		assert.Equal(t, StatusPaid, DeriveStatus(p, today), "future payment date")
	}
}

func TestStatusOverdueOrPending(t *testing.T) {
	cases := []struct {
		due  string
		want Status
	}{
		{"2024-06-14", StatusOverdue},
		{"2023-12-31", StatusOverdue},
		{"2024-06-15", StatusPending},
		{"2024-06-16", StatusPending},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, DeriveStatus(payable(1, tc.due, 1), today), tc.due)
	}

	p := payable(1, "  ", 1)
	st, ok := p.Status(today)
	assert.False(t, ok)
	assert.Equal(t, StatusPending, st)
}

func TestFilterPeriods(t *testing.T) {
	recs := []Payable{
		payable(1, "2024-06-15", 1),
		payable(2, "2024-06-22", 1),
		payable(3, "2024-06-23", 1),
		payable(4, "2024-06-14", 1),
		payable(5, "2024-07-01", 1),
		payable(6, "bad", 1),
	}
	ids := func(ps []Payable) []int64 {
		var out []int64
		for _, p := range ps {
			out = append(out, p.ID)
		}
		return out
	}

	assert.Equal(t, []int64{1}, ids(Filter{Period: PeriodToday}.Apply(recs, today)))
	assert.Equal(t, []int64{1, 2}, ids(Filter{Period: PeriodWeek}.Apply(recs, today)))
	assert.Equal(t, []int64{1, 2, 3, 4}, ids(Filter{Period: PeriodMonth}.Apply(recs, today)))
	assert.Equal(t, []int64{1, 2, 3, 4, 5, 6}, ids(Filter{Period: PeriodAll}.Apply(recs, today)))
	assert.Equal(t, []int64{1, 2, 3, 4, 5, 6}, ids(Filter{}.Apply(recs, today)), "unparseable dates stay in unfiltered listings")
	assert.Equal(t, []int64{4}, ids(Filter{Status: StatusOverdue}.Apply(recs, today)))
	assert.Equal(t, []int64{1, 2, 3, 5}, ids(Filter{Status: StatusPending}.Apply(recs, today)))
}

func TestFilterGroupAndSearch(t *testing.T) {
	a := payable(1, "2024-06-15", 1)
	a.Description = "Conta de Água"
	b := payable(2, "2024-06-15", 1)
	b.GroupName = "PESSOAL"
	b.PersonOrSupplier = "SABESP Saneamento"

	recs := []Payable{a, b}
	assert.Len(t, Filter{Group: "PESSOAL"}.Apply(recs, today), 1)
	assert.Len(t, Filter{Group: All}.Apply(recs, today), 2)
	assert.Len(t, Filter{Search: "água"}.Apply(recs, today), 1)
	assert.Len(t, Filter{Search: "sabesp"}.Apply(recs, today), 1)
	assert.Len(t, Filter{Search: "CONTA"}.Apply(recs, today), 2)
	assert.Len(t, Filter{Search: "x-none"}.Apply(recs, today), 0)
}

func TestFilterValidate(t *testing.T) {
	assert.NoError(t, Filter{Period: PeriodWeek, Status: StatusPaid}.Validate())
	assert.Error(t, Filter{Period: "fortnight"}.Validate())
	assert.Error(t, Filter{Status: "late"}.Validate())
}

func TestSummarize(t *testing.T) {
	paid := payable(1, "2024-06-01", 100)
	paid.PaymentDate = "2024-06-01"
	recs := []Payable{paid, payable(2, "2024-06-01", 50.5), payable(3, "2024-06-30", 25), payable(4, "bad", 1000)}

	tot := Summarize(recs, today)
	assert.Equal(t, 175.5, tot.Projected)
	assert.Equal(t, 100.0, tot.Paid)
	assert.Equal(t, 50.5, tot.Overdue)
	assert.Equal(t, 25.0, tot.Pending)
	assert.Equal(t, 75.5, tot.ToPay())
	assert.Equal(t, 3, tot.Count)
}
