package core

import (
	"strconv"
	"strings"
)

// Editable field names, as they appear on the wire.
const (
	FieldDescription       = "description"
	FieldGroupName         = "groupName"
	FieldSubgroupName      = "subgroupName"
	FieldCostCenterCode    = "costCenterCode"
	FieldPersonOrSupplier  = "personOrSupplier"
	FieldDueDate           = "dueDate"
	FieldAmount            = "amount"
	FieldPaymentMethod     = "paymentMethod"
	FieldBank              = "bank"
	FieldNotes             = "notes"
	FieldExpenseType       = "expenseType"
	FieldIsRecurring       = "isRecurring"
	FieldPaymentDate       = "paymentDate"
	FieldPaymentMethodUsed = "paymentMethodUsed"
	FieldPaymentNotes      = "paymentNotes"
)

// FieldValue returns the text form of one field of p.
func FieldValue(p Payable, field string) (string, bool) {
	switch field {
	case FieldDescription:
		return p.Description, true
	case FieldGroupName:
		return p.GroupName, true
	case FieldSubgroupName:
		return p.SubgroupName, true
	case FieldCostCenterCode:
		return p.CostCenterCode, true
	case FieldPersonOrSupplier:
		return p.PersonOrSupplier, true
	case FieldDueDate:
		return p.DueDate, true
	case FieldAmount:
		return FormatBRL(p.Amount), true
	case FieldPaymentMethod:
		return p.PaymentMethod, true
	case FieldBank:
		return p.Bank, true
	case FieldNotes:
		return p.Notes, true
	case FieldExpenseType:
		if p.ExpenseType == "" {
			return string(ExpenseFixed), true
		}
		return string(p.ExpenseType), true
	case FieldIsRecurring:
		return strconv.FormatBool(p.IsRecurring), true
	case FieldPaymentDate:
		return p.PaymentDate, true
	case FieldPaymentMethodUsed:
		return p.PaymentMethodUsed, true
	case FieldPaymentNotes:
		return p.PaymentNotes, true
	}
	return "", false
}

// FieldUpdate turns a single-field text edit into a PayableUpdate. Amounts
// use the lenient pt-BR parse.
func FieldUpdate(field, value string) (PayableUpdate, error) {
	v := strings.TrimSpace(value)
	var u PayableUpdate
	switch field {
	case FieldDescription:
		u.Description = &v
	case FieldGroupName:
		u.GroupName = &v
	case FieldSubgroupName:
		u.SubgroupName = &v
	case FieldCostCenterCode:
		u.CostCenterCode = &v
	case FieldPersonOrSupplier:
		u.PersonOrSupplier = &v
	case FieldDueDate:
		u.DueDate = &v
	case FieldAmount:
		a := ParseMoney(v)
		u.Amount = &a
	case FieldPaymentMethod:
		u.PaymentMethod = &v
	case FieldBank:
		u.Bank = &v
	case FieldNotes:
		u.Notes = &v
	case FieldExpenseType:
		et := ExpenseType(v)
		u.ExpenseType = &et
	case FieldIsRecurring:
		b, err := strconv.ParseBool(v)
		if err != nil {
			return u, invalid(field, "expected true or false")
		}
		u.IsRecurring = &b
	case FieldPaymentDate:
		u.PaymentDate = &v
	case FieldPaymentMethodUsed:
		u.PaymentMethodUsed = &v
	case FieldPaymentNotes:
		u.PaymentNotes = &v
	default:
		return u, invalid(field, "unknown field")
	}
	return u, u.Validate()
}
