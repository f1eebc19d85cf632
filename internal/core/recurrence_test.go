package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func idSeq(start int64) func() int64 {
	next := start
	return func() int64 {
		next++
		return next
	}
}

func TestPlanRecurringClampsAndClearsPayment(t *testing.T) {
	now := time.Date(2024, 1, 20, 9, 0, 0, 0, time.UTC)
	rent := payable(1, "2024-01-31", 1500)
	rent.Description = "Aluguel"
	rent.CostCenterCode = "385"
	rent.IsRecurring = true
	rent.PaymentDate = "2024-01-30"
	rent.PaymentMethodUsed = "PIX"
	rent.PaymentNotes = "ok"
	rent.PaymentMethod = "boleto"

	plan, err := PlanRecurring([]Payable{rent, payable(2, "2024-01-10", 10)}, 2024, 1, now, idSeq(100))
	require.NoError(t, err)
	assert.Equal(t, 2024, plan.TargetYear)
	assert.Equal(t, 2, plan.TargetMonth)
	require.Len(t, plan.Generated, 1)

	got := plan.Generated[0]
	assert.Equal(t, int64(101), got.ID)
	assert.Equal(t, "2024-02-29", got.DueDate)
	assert.Empty(t, got.PaymentDate)
	assert.Empty(t, got.PaymentMethodUsed)
	assert.Empty(t, got.PaymentNotes)
	assert.Equal(t, "boleto", got.PaymentMethod)
	assert.True(t, got.IsRecurring)
	assert.Equal(t, now, got.CreatedAt)
	assert.Equal(t, now, got.UpdatedAt)
	assert.Equal(t, "2024-01-30", rent.PaymentDate, "source record untouched")
}

func TestPlanRecurringIsIdempotent(t *testing.T) {
	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	a := payable(1, "2024-05-10", 100)
	a.IsRecurring = true
	b := payable(2, "2024-05-31", 200)
	b.Description = "Internet"
	b.IsRecurring = true
	recs := []Payable{a, b}

	first, err := PlanRecurring(recs, 2024, 5, now, idSeq(10))
	require.NoError(t, err)
	require.Len(t, first.Generated, 2)
	assert.Equal(t, "2024-06-30", first.Generated[1].DueDate)

	recs = append(recs, first.Generated...)
	second, err := PlanRecurring(recs, 2024, 5, now, idSeq(20))
	require.NoError(t, err)
	assert.Empty(t, second.Generated)
	assert.Equal(t, 2, second.Duplicates)
}

func TestPlanRecurringOnlyAdvancesTheReferenceMonth(t *testing.T) {
	now := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	march := payable(1, "2024-03-10", 100)
	march.IsRecurring = true
	april := march
	april.ID = 2
	april.DueDate = "2024-04-10"

	plan, err := PlanRecurring([]Payable{march, april}, 2024, 4, now, idSeq(10))
	require.NoError(t, err)
	assert.Equal(t, 2, plan.Recurring)
	require.Len(t, plan.Generated, 1, "earlier links of the chain are not copied again")
	assert.Equal(t, "2024-05-10", plan.Generated[0].DueDate)
	assert.Zero(t, plan.Duplicates)
}

func TestPlanRecurringDedupKey(t *testing.T) {
	now := time.Now()
	a := payable(1, "2024-05-10", 100)
	a.CostCenterCode = "391"
	a.IsRecurring = true

	existing := payable(2, "2024-06-10", 100)
	existing.CostCenterCode = "391"

	plan, err := PlanRecurring([]Payable{a, existing}, 2024, 5, now, idSeq(0))
	require.NoError(t, err)
	assert.Empty(t, plan.Generated)

	existing.Amount = 100.01
	plan, err = PlanRecurring([]Payable{a, existing}, 2024, 5, now, idSeq(0))
	require.NoError(t, err)
	assert.Len(t, plan.Generated, 1, "different amount is not a duplicate")

	existing.Amount = 100
	existing.CostCenterCode = "390"
	plan, err = PlanRecurring([]Payable{a, existing}, 2024, 5, now, idSeq(0))
	require.NoError(t, err)
	assert.Len(t, plan.Generated, 1, "different code is not a duplicate")
}

func TestPlanRecurringOutcomes(t *testing.T) {
	now := time.Now()

	_, err := PlanRecurring([]Payable{payable(1, "2024-05-10", 1)}, 2024, 5, now, idSeq(0))
	assert.ErrorIs(t, err, ErrNoRecurring)

	other := payable(2, "2024-03-10", 1)
	other.IsRecurring = true
	plan, err := PlanRecurring([]Payable{other}, 2024, 5, now, idSeq(0))
	require.NoError(t, err, "flagged records exist, nothing to generate is not an error")
	assert.Empty(t, plan.Generated)
	assert.Equal(t, 1, plan.Recurring)
}

func TestPlanRecurringYearRollover(t *testing.T) {
	a := payable(1, "2024-12-31", 10)
	a.IsRecurring = true
	plan, err := PlanRecurring([]Payable{a}, 2024, 12, time.Now(), idSeq(0))
	require.NoError(t, err)
	require.Len(t, plan.Generated, 1)
	assert.Equal(t, "2025-01-31", plan.Generated[0].DueDate)
	assert.Equal(t, 2025, plan.TargetYear)
	assert.Equal(t, 1, plan.TargetMonth)
}
