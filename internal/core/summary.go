package core

// Totals are the running sums of a set of records. Paid, Pending and Overdue
// partition Projected.
type Totals struct {
	Projected float64 `json:"projected"`
	Paid      float64 `json:"paid"`
	Pending   float64 `json:"pending"`
	Overdue   float64 `json:"overdue"`
	Count     int     `json:"count"`
}

// Add accounts one record of the given status.
func (t *Totals) Add(amount float64, status Status) {
	t.Projected = AddMoney(t.Projected, amount)
	switch status {
	case StatusPaid:
		t.Paid = AddMoney(t.Paid, amount)
	case StatusOverdue:
		t.Overdue = AddMoney(t.Overdue, amount)
	default:
		t.Pending = AddMoney(t.Pending, amount)
	}
	t.Count++
}

// ToPay is what is still open: pending plus overdue.
func (t Totals) ToPay() float64 {
	return AddMoney(t.Pending, t.Overdue)
}

// PercentRealized is paid over projected in percent, 0 when nothing is
// projected.
func (t Totals) PercentRealized() float64 {
	if t.Projected == 0 {
		return 0
	}
	return t.Paid / t.Projected * 100
}

// Summarize totals the records whose status can be derived.
func Summarize(records []Payable, today Date) Totals {
	var t Totals
	for _, p := range records {
		st, ok := p.Status(today)
		if !ok {
			continue
		}
		t.Add(p.Amount, st)
	}
	return t
}
