package core

import (
	"strings"
	"time"
)

const (
	ExpenseFixed    ExpenseType = "fixed"
	ExpenseVariable ExpenseType = "variable"
)

type (
	// ExpenseType tells fixed costs from variable ones.
	ExpenseType string

	// Payable is one bill. Status is never stored: see Payable.Status.
	Payable struct {
		ID                int64       `json:"id"`
		Description       string      `json:"description"`
		GroupName         string      `json:"groupName"`
		SubgroupName      string      `json:"subgroupName"`
		CostCenterCode    string      `json:"costCenterCode"`
		PersonOrSupplier  string      `json:"personOrSupplier"`
		DueDate           string      `json:"dueDate"`
		Amount            float64     `json:"amount"`
		PaymentMethod     string      `json:"paymentMethod"`
		Bank              string      `json:"bank"`
		Notes             string      `json:"notes"`
		ExpenseType       ExpenseType `json:"expenseType"`
		IsRecurring       bool        `json:"isRecurring"`
		PaymentDate       string      `json:"paymentDate"`
		PaymentMethodUsed string      `json:"paymentMethodUsed"`
		PaymentNotes      string      `json:"paymentNotes"`
		CreatedAt         time.Time   `json:"createdAt"`
		UpdatedAt         time.Time   `json:"updatedAt"`
	}

	// PayableInput carries the fields of a new record. Amount is the text as
	// typed by the user.
	PayableInput struct {
		Description      string      `json:"description"`
		GroupName        string      `json:"groupName"`
		SubgroupName     string      `json:"subgroupName"`
		CostCenterCode   string      `json:"costCenterCode"`
		PersonOrSupplier string      `json:"personOrSupplier"`
		DueDate          string      `json:"dueDate"`
		Amount           string      `json:"amount"`
		PaymentMethod    string      `json:"paymentMethod"`
		Bank             string      `json:"bank"`
		Notes            string      `json:"notes"`
		ExpenseType      ExpenseType `json:"expenseType"`
		IsRecurring      bool        `json:"isRecurring"`
	}

	// PayableUpdate holds the fields to merge into an existing record; nil
	// means unchanged.
	PayableUpdate struct {
		Description       *string      `json:"description,omitempty"`
		GroupName         *string      `json:"groupName,omitempty"`
		SubgroupName      *string      `json:"subgroupName,omitempty"`
		CostCenterCode    *string      `json:"costCenterCode,omitempty"`
		PersonOrSupplier  *string      `json:"personOrSupplier,omitempty"`
		DueDate           *string      `json:"dueDate,omitempty"`
		Amount            *float64     `json:"amount,omitempty"`
		PaymentMethod     *string      `json:"paymentMethod,omitempty"`
		Bank              *string      `json:"bank,omitempty"`
		Notes             *string      `json:"notes,omitempty"`
		ExpenseType       *ExpenseType `json:"expenseType,omitempty"`
		IsRecurring       *bool        `json:"isRecurring,omitempty"`
		PaymentDate       *string      `json:"paymentDate,omitempty"`
		PaymentMethodUsed *string      `json:"paymentMethodUsed,omitempty"`
		PaymentNotes      *string      `json:"paymentNotes,omitempty"`
	}

	// PaymentInput confirms the payment of a record.
	PaymentInput struct {
		PaymentDate       string `json:"paymentDate"`
		Bank              string `json:"bank"`
		PaymentMethodUsed string `json:"paymentMethodUsed"`
		PaymentNotes      string `json:"paymentNotes"`
	}
)

// Valid reports whether t is a known expense type.
func (t ExpenseType) Valid() bool {
	return t == ExpenseFixed || t == ExpenseVariable
}

// Label returns the pt-BR label of the expense type.
func (t ExpenseType) Label() string {
	if t == ExpenseVariable {
		return "Variável"
	}
	return "Fixa"
}

// Validate checks the required fields. Amount text that does not parse is
// accepted (it becomes 0); a negative amount is not.
func (in PayableInput) Validate() error {
	var fields []string
	if strings.TrimSpace(in.Description) == "" {
		fields = append(fields, "description")
	}
	if strings.TrimSpace(in.GroupName) == "" {
		fields = append(fields, "groupName")
	}
	if strings.TrimSpace(in.SubgroupName) == "" {
		fields = append(fields, "subgroupName")
	}
	if strings.TrimSpace(in.DueDate) == "" {
		fields = append(fields, "dueDate")
	}
	if strings.TrimSpace(in.Amount) == "" {
		fields = append(fields, "amount")
	}
	if len(fields) > 0 {
		return missing(fields...)
	}
	if ParseMoney(in.Amount) < 0 {
		return invalid("amount", "amount must not be negative")
	}
	if in.ExpenseType != "" && !in.ExpenseType.Valid() {
		return invalid("expenseType", "unknown expense type "+string(in.ExpenseType))
	}
	return nil
}

// AmountParses reports whether the amount text is a well formed number.
func (in PayableInput) AmountParses() bool {
	_, err := ParseMoneyStrict(in.Amount)
	return err == nil
}

// NewPayable builds a record from validated input.
func NewPayable(id int64, in PayableInput, now time.Time) Payable {
	et := in.ExpenseType
	if et == "" {
		et = ExpenseFixed
	}
	return Payable{
		ID:               id,
		Description:      strings.TrimSpace(in.Description),
		GroupName:        strings.TrimSpace(in.GroupName),
		SubgroupName:     strings.TrimSpace(in.SubgroupName),
		CostCenterCode:   strings.TrimSpace(in.CostCenterCode),
		PersonOrSupplier: strings.TrimSpace(in.PersonOrSupplier),
		DueDate:          strings.TrimSpace(in.DueDate),
		Amount:           ParseMoney(in.Amount),
		PaymentMethod:    in.PaymentMethod,
		Bank:             in.Bank,
		Notes:            in.Notes,
		ExpenseType:      et,
		IsRecurring:      in.IsRecurring,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// Due parses the due date.
func (p Payable) Due() (Date, bool) {
	d, err := ParseDate(p.DueDate)
	return d, err == nil
}

// IsPaid reports whether a payment date has been recorded.
func (p Payable) IsPaid() bool {
	return strings.TrimSpace(p.PaymentDate) != ""
}

// Validate rejects updates that would break record invariants.
func (u PayableUpdate) Validate() error {
	if u.Description != nil && strings.TrimSpace(*u.Description) == "" {
		return missing("description")
	}
	if u.DueDate != nil && strings.TrimSpace(*u.DueDate) == "" {
		return missing("dueDate")
	}
	if u.Amount != nil && *u.Amount < 0 {
		return invalid("amount", "amount must not be negative")
	}
	if u.ExpenseType != nil && !u.ExpenseType.Valid() {
		return invalid("expenseType", "unknown expense type "+string(*u.ExpenseType))
	}
	return nil
}

// ApplyUpdate merges u into p. When the group changes the subgroup is cleared
// unless the new group has it; when the subgroup changes (or was cleared) the
// code is cleared unless the resulting subgroup lists it. Values supplied
// explicitly in u are never cleared.
func ApplyUpdate(p Payable, u PayableUpdate, tax Taxonomy, now time.Time) (Payable, error) {
	if err := u.Validate(); err != nil {
		return p, err
	}
	next := p
	setString(&next.Description, u.Description)
	setString(&next.GroupName, u.GroupName)
	setString(&next.SubgroupName, u.SubgroupName)
	setString(&next.CostCenterCode, u.CostCenterCode)
	setString(&next.PersonOrSupplier, u.PersonOrSupplier)
	setString(&next.DueDate, u.DueDate)
	setString(&next.PaymentMethod, u.PaymentMethod)
	setString(&next.Bank, u.Bank)
	setString(&next.Notes, u.Notes)
	setString(&next.PaymentDate, u.PaymentDate)
	setString(&next.PaymentMethodUsed, u.PaymentMethodUsed)
	setString(&next.PaymentNotes, u.PaymentNotes)
	if u.Amount != nil {
		next.Amount = RoundMoney(*u.Amount)
	}
	if u.ExpenseType != nil {
		next.ExpenseType = *u.ExpenseType
	}
	if u.IsRecurring != nil {
		next.IsRecurring = *u.IsRecurring
	}

	groupChanged := next.GroupName != p.GroupName
	if groupChanged && u.SubgroupName == nil && !tax.HasSubgroup(next.GroupName, next.SubgroupName) {
		next.SubgroupName = ""
	}
	subgroupChanged := groupChanged || next.SubgroupName != p.SubgroupName
	if subgroupChanged && u.CostCenterCode == nil && !tax.HasCode(next.GroupName, next.SubgroupName, next.CostCenterCode) {
		next.CostCenterCode = ""
	}

	next.UpdatedAt = now
	return next, nil
}

// Validate requires a payment date.
func (in PaymentInput) Validate() error {
	if strings.TrimSpace(in.PaymentDate) == "" {
		return missing("paymentDate")
	}
	return nil
}

// ApplyPayment records a confirmed payment. An empty bank keeps the planned one.
func ApplyPayment(p Payable, in PaymentInput, now time.Time) (Payable, error) {
	if err := in.Validate(); err != nil {
		return p, err
	}
	p.PaymentDate = strings.TrimSpace(in.PaymentDate)
	if b := strings.TrimSpace(in.Bank); b != "" {
		p.Bank = b
	}
	p.PaymentMethodUsed = in.PaymentMethodUsed
	p.PaymentNotes = in.PaymentNotes
	p.UpdatedAt = now
	return p, nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = strings.TrimSpace(*v)
	}
}
