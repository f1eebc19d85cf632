package core

import (
	"strings"
)

// Status is derived from a record and the current day; it is never stored.
type Status string

const (
	StatusPaid    Status = "paid"
	StatusPending Status = "pending"
	StatusOverdue Status = "overdue"
)

// Label returns the pt-BR label used in exports.
func (s Status) Label() string {
	switch s {
	case StatusPaid:
		return "Pago"
	case StatusOverdue:
		return "Vencido"
	default:
		return "Pendente"
	}
}

// Period narrows a listing by due date relative to today.
type Period string

const (
	PeriodAll   Period = "all"
	PeriodToday Period = "today"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
)

// All is the wildcard accepted by every filter field.
const All = "all"

// Status derives the lifecycle status. A record with a payment date is paid
// whatever its due date. Otherwise it is overdue when due strictly before
// today. ok is false when the due date does not parse and no payment exists.
func (p Payable) Status(today Date) (st Status, ok bool) {
	if p.IsPaid() {
		return StatusPaid, true
	}
	due, ok := p.Due()
	if !ok {
		return StatusPending, false
	}
	if due.Before(today.Time) {
		return StatusOverdue, true
	}
	return StatusPending, true
}

// DeriveStatus is Status without the parse flag.
func DeriveStatus(p Payable, today Date) Status {
	st, _ := p.Status(today)
	return st
}

// Filter is the listing predicate. Empty fields and "all" match everything;
// the fields combine with AND.
type Filter struct {
	Period Period `json:"period"`
	Status Status `json:"status"`
	Group  string `json:"group"`
	Search string `json:"search"`
}

func isAll(s string) bool {
	return s == "" || s == All
}

// Matches reports whether p passes the filter. Records with an unparseable
// due date only pass when neither period nor status constrain the view.
func (f Filter) Matches(p Payable, today Date) bool {
	periodSet := !isAll(string(f.Period))
	statusSet := !isAll(string(f.Status))

	if periodSet || statusSet {
		due, ok := p.Due()
		if !ok {
			return false
		}
		switch f.Period {
		case PeriodToday:
			if !due.Equal(today.Time) {
				return false
			}
		case PeriodWeek:
			if due.Before(today.Time) || due.After(today.AddDays(7).Time) {
				return false
			}
		case PeriodMonth:
			if !due.SameMonth(today) {
				return false
			}
		}
		if statusSet && DeriveStatus(p, today) != f.Status {
			return false
		}
	}

	if !isAll(f.Group) && p.GroupName != f.Group {
		return false
	}

	if q := strings.ToLower(strings.TrimSpace(f.Search)); q != "" {
		if !strings.Contains(strings.ToLower(p.Description), q) &&
			!strings.Contains(strings.ToLower(p.PersonOrSupplier), q) {
			return false
		}
	}
	return true
}

// Apply returns the records that match, in their original order.
func (f Filter) Apply(records []Payable, today Date) []Payable {
	out := make([]Payable, 0, len(records))
	for _, p := range records {
		if f.Matches(p, today) {
			out = append(out, p)
		}
	}
	return out
}

// Validate rejects unknown period or status values.
func (f Filter) Validate() error {
	switch f.Period {
	case "", PeriodAll, PeriodToday, PeriodWeek, PeriodMonth:
	default:
		return invalid("period", "unknown period "+string(f.Period))
	}
	switch f.Status {
	case "", Status(All), StatusPaid, StatusPending, StatusOverdue:
	default:
		return invalid("status", "unknown status "+string(f.Status))
	}
	return nil
}
