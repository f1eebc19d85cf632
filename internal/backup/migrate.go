package backup

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"contas/internal/core"
)

// Field aliases per canonical field, canonical name first. Older files used
// the Portuguese names, the row store used snake_case.
var aliases = map[string][]string{
	core.FieldGroupName:         {"groupName", "groupDre", "group", "group_dre"},
	core.FieldSubgroupName:      {"subgroupName", "subgroup", "subCategory"},
	core.FieldCostCenterCode:    {"costCenterCode", "cta", "account"},
	core.FieldPersonOrSupplier:  {"personOrSupplier", "personSupplier", "supplier", "person_supplier"},
	core.FieldDueDate:           {"dueDate", "due_date"},
	core.FieldPaymentMethod:     {"paymentMethod", "payment_method"},
	core.FieldNotes:             {"notes", "obs"},
	core.FieldExpenseType:       {"expenseType", "expense_type"},
	core.FieldIsRecurring:       {"isRecurring", "recurring"},
	core.FieldPaymentDate:       {"paymentDate", "payment_date"},
	core.FieldPaymentMethodUsed: {"paymentMethodUsed"},
	core.FieldPaymentNotes:      {"paymentNotes", "paymentObs", "payment_obs"},
	"createdAt":                 {"createdAt", "created_at"},
	"updatedAt":                 {"updatedAt", "updated_at"},
}

// MigrateRecords maps raw records in any known shape to payables. Missing
// text fields become empty, amounts given as text go through the lenient
// pt-BR parse and missing timestamps become now.
func MigrateRecords(raw []map[string]any, now time.Time) []core.Payable {
	out := make([]core.Payable, 0, len(raw))
	for _, r := range raw {
		out = append(out, MigrateRecord(r, now))
	}
	return out
}

// MigrateRecord maps one raw record.
func MigrateRecord(r map[string]any, now time.Time) core.Payable {
	return core.Payable{
		ID:                toID(r["id"]),
		Description:       text(r["description"]),
		GroupName:         pick(r, core.FieldGroupName),
		SubgroupName:      pick(r, core.FieldSubgroupName),
		CostCenterCode:    pick(r, core.FieldCostCenterCode),
		PersonOrSupplier:  pick(r, core.FieldPersonOrSupplier),
		DueDate:           pick(r, core.FieldDueDate),
		Amount:            toAmount(r["amount"]),
		PaymentMethod:     pick(r, core.FieldPaymentMethod),
		Bank:              text(r["bank"]),
		Notes:             pick(r, core.FieldNotes),
		ExpenseType:       ParseExpenseType(pick(r, core.FieldExpenseType)),
		IsRecurring:       ParseRecurring(pickAny(r, core.FieldIsRecurring)),
		PaymentDate:       pick(r, core.FieldPaymentDate),
		PaymentMethodUsed: pick(r, core.FieldPaymentMethodUsed),
		PaymentNotes:      pick(r, core.FieldPaymentNotes),
		CreatedAt:         toTime(pick(r, "createdAt"), now),
		UpdatedAt:         toTime(pick(r, "updatedAt"), now),
	}
}

// ParseExpenseType maps stored labels (fixa, variavel, fixed, variable) to
// the canonical type; anything else is fixed.
func ParseExpenseType(s string) core.ExpenseType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "variavel", "variável", "variable":
		return core.ExpenseVariable
	default:
		return core.ExpenseFixed
	}
}

// StoredExpenseType is the label the row store keeps.
func StoredExpenseType(t core.ExpenseType) string {
	if t == core.ExpenseVariable {
		return "variavel"
	}
	return "fixa"
}

// ParseRecurring accepts a bool or the stored sim/nao labels.
func ParseRecurring(v any) bool {
	switch b := v.(type) {
	case bool:
		return b
	case string:
		switch strings.ToLower(strings.TrimSpace(b)) {
		case "sim", "true", "yes", "1":
			return true
		}
	}
	return false
}

// StoredRecurring is the sim/nao label of the row store.
func StoredRecurring(b bool) string {
	if b {
		return "sim"
	}
	return "nao"
}

func pickAny(r map[string]any, field string) any {
	for _, k := range aliases[field] {
		if v, ok := r[k]; ok && v != nil && text(v) != "" {
			return v
		}
	}
	return nil
}

func pick(r map[string]any, field string) string {
	return text(pickAny(r, field))
}

func text(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}

func toAmount(v any) float64 {
	switch t := v.(type) {
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return 0
		}
		return core.RoundMoney(f)
	case float64:
		return core.RoundMoney(t)
	case string:
		return core.ParseMoney(t)
	}
	return 0
}

func toID(v any) int64 {
	s := text(v)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return int64(f)
	}
	return 0
}

func toTime(s string, fallback time.Time) time.Time {
	if s == "" {
		return fallback
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05", core.DateLayout} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return fallback
}
