package services

import (
	"context"
	"encoding/json"
	"strconv"

	"contas/internal/core"
	"contas/internal/log"
)

// Listing is a filtered view of the record set with its summary cards.
type Listing struct {
	Payables []core.Payable `json:"payables"`
	Totals   core.Totals    `json:"totals"`
}

// Create validates in and adds a new record. Amount text that does not
// parse is stored as 0 and logged.
func (s *Session) Create(ctx context.Context, in core.PayableInput) (core.Payable, error) {
	if err := in.Validate(); err != nil {
		return core.Payable{}, err
	}
	if !in.AmountParses() {
		s.log.WarnContext(ctx, "Amount did not parse, storing zero",
			log.FieldAmount, in.Amount,
			log.FieldDescription, in.Description)
	}

	s.mu.Lock()
	p := core.NewPayable(s.nextIDLocked(), in, s.now())
	s.payables = append(s.payables, p)
	s.changedLocked()
	s.mu.Unlock()

	s.persistUpsert(ctx, []core.Payable{p}, nil)
	log.NewStructuredLogger(s.log).LogPayableCreated(ctx, p.ID, p.Description, p.Amount, p.DueDate,
		p.GroupName, p.SubgroupName, p.CostCenterCode)
	return p, nil
}

// Get returns the record with the given id.
func (s *Session) Get(id int64) (core.Payable, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(id)
	if i < 0 {
		return core.Payable{}, notFound(id)
	}
	return s.payables[i], nil
}

// Update merges u into the record, clearing subgroup and code when the new
// classification no longer holds them.
func (s *Session) Update(ctx context.Context, id int64, u core.PayableUpdate) (core.Payable, error) {
	s.mu.Lock()
	i := s.indexLocked(id)
	if i < 0 {
		s.mu.Unlock()
		return core.Payable{}, notFound(id)
	}
	next, err := core.ApplyUpdate(s.payables[i], u, s.tax, s.now())
	if err != nil {
		s.mu.Unlock()
		return core.Payable{}, err
	}
	s.payables[i] = next
	s.changedLocked()
	s.mu.Unlock()

	s.persistUpsert(ctx, []core.Payable{next}, nil)
	s.log.InfoContext(ctx, "Payable updated", log.NewFields().
		WithOperation(log.OpUpdate).
		WithPayable(next.ID, next.Description, next.Amount, next.DueDate).
		Args()...)
	return next, nil
}

// ConfirmPayment records the payment of a record.
func (s *Session) ConfirmPayment(ctx context.Context, id int64, in core.PaymentInput) (core.Payable, error) {
	if err := in.Validate(); err != nil {
		return core.Payable{}, err
	}

	s.mu.Lock()
	i := s.indexLocked(id)
	if i < 0 {
		s.mu.Unlock()
		return core.Payable{}, notFound(id)
	}
	paid, err := core.ApplyPayment(s.payables[i], in, s.now())
	if err != nil {
		s.mu.Unlock()
		return core.Payable{}, err
	}
	s.payables[i] = paid
	s.changedLocked()
	s.mu.Unlock()

	s.persistUpsert(ctx, []core.Payable{paid}, nil)
	s.log.InfoContext(ctx, "Payment confirmed",
		log.FieldOperation, log.OpPay,
		log.FieldPayableID, id,
		"payment_date", paid.PaymentDate)
	return paid, nil
}

// Delete removes a record. Deleting a missing id does nothing.
func (s *Session) Delete(ctx context.Context, id int64) {
	s.mu.Lock()
	i := s.indexLocked(id)
	if i < 0 {
		s.mu.Unlock()
		return
	}
	s.payables = append(s.payables[:i], s.payables[i+1:]...)
	s.changedLocked()
	s.mu.Unlock()

	s.persistDelete(ctx, []int64{id})
	s.log.InfoContext(ctx, "Payable deleted", log.FieldOperation, log.OpDelete, log.FieldPayableID, id)
}

// List returns the records passing f, ordered by due date, with totals over
// the filtered set.
func (s *Session) List(f core.Filter) (Listing, error) {
	if err := f.Validate(); err != nil {
		return Listing{}, err
	}
	today := s.Today()

	s.mu.Lock()
	matched := f.Apply(s.payables, today)
	s.mu.Unlock()

	return Listing{Payables: matched, Totals: core.Summarize(matched, today)}, nil
}

// Report aggregates the records selected by q. Results are cached until the
// next mutation or the next day; callers must not modify the returned tree.
func (s *Session) Report(q core.ReportQuery) (core.Report, error) {
	if err := q.Validate(); err != nil {
		return core.Report{}, err
	}
	today := s.Today()
	key := reportKey(q, today)

	s.mu.Lock()
	defer s.mu.Unlock()
	if rep, ok := s.reports.Get(key); ok {
		return rep, nil
	}
	rep := core.BuildReport(s.payables, q, today)
	s.reports.Set(key, rep)
	return rep, nil
}

// GenerateRecurring projects the recurring records due in the reference
// month into the following month. Running it again for the same month adds
// nothing.
func (s *Session) GenerateRecurring(ctx context.Context, year, month int) (core.RecurrencePlan, error) {
	if month < 1 || month > 12 {
		return core.RecurrencePlan{}, &core.ValidationError{Fields: []string{"month"}, Msg: "month out of range"}
	}

	s.mu.Lock()
	plan, err := core.PlanRecurring(s.payables, year, month, s.now(), s.nextIDLocked)
	if err != nil {
		s.mu.Unlock()
		return plan, err
	}
	if len(plan.Generated) > 0 {
		s.payables = append(s.payables, plan.Generated...)
		s.changedLocked()
	}
	s.mu.Unlock()

	s.persistUpsert(ctx, plan.Generated, nil)
	s.log.InfoContext(ctx, "Recurring payables generated",
		log.FieldYear, plan.TargetYear,
		log.FieldMonth, plan.TargetMonth,
		log.FieldCount, len(plan.Generated),
		"duplicates", plan.Duplicates)
	return plan, nil
}

func reportKey(q core.ReportQuery, today core.Date) string {
	b, _ := json.Marshal(q)
	return today.String() + "|" + string(b)
}

func notFound(id int64) error {
	return &core.NotFoundError{Kind: "payable", Key: strconv.FormatInt(id, 10)}
}
