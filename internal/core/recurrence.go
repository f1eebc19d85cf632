package core

import (
	"time"
)

// RecurrencePlan is the outcome of projecting recurring records one month
// ahead.
type RecurrencePlan struct {
	TargetYear  int       `json:"targetYear"`
	TargetMonth int       `json:"targetMonth"`
	Recurring   int       `json:"recurring"`
	Duplicates  int       `json:"duplicates"`
	Generated   []Payable `json:"generated"`
}

type recurrenceKey struct {
	description string
	dueDate     string
	cents       int64
	code        string
}

func keyOf(p Payable) recurrenceKey {
	return recurrenceKey{
		description: p.Description,
		dueDate:     p.DueDate,
		cents:       Cents(p.Amount),
		code:        p.CostCenterCode,
	}
}

// PlanRecurring projects every recurring record due in the reference month
// into the following month. The next due date adds one calendar month with
// day clamping. A candidate is skipped when any record already has the same
// description, next due date, amount and code, which makes planning the same
// month twice generate nothing the second time.
//
// ErrNoRecurring is returned when no record is flagged at all. Generated
// records get ids from nextID, cleared payment fields and now as timestamps.
func PlanRecurring(records []Payable, refYear, refMonth int, now time.Time, nextID func() int64) (RecurrencePlan, error) {
	target := NewDate(refYear, refMonth, 1).AddMonthsClamped(1)
	plan := RecurrencePlan{TargetYear: target.Year(), TargetMonth: target.Month()}

	existing := make(map[recurrenceKey]struct{}, len(records))
	for _, p := range records {
		existing[keyOf(p)] = struct{}{}
	}

	for _, p := range records {
		if !p.IsRecurring {
			continue
		}
		plan.Recurring++

		due, ok := p.Due()
		if !ok {
			continue
		}
		next := due.AddMonthsClamped(1)
		if !next.SameMonth(target) {
			continue
		}

		np := p
		np.DueDate = next.String()
		if _, dup := existing[keyOf(np)]; dup {
			plan.Duplicates++
			continue
		}

		np.ID = nextID()
		np.PaymentDate = ""
		np.PaymentMethodUsed = ""
		np.PaymentNotes = ""
		np.CreatedAt = now
		np.UpdatedAt = now

		existing[keyOf(np)] = struct{}{}
		plan.Generated = append(plan.Generated, np)
	}

	if plan.Recurring == 0 {
		return plan, ErrNoRecurring
	}
	return plan, nil
}
