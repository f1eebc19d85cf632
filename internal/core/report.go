package core

import (
	"fmt"
	"sort"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// ReportMode selects the time window of a report.
type ReportMode string

const (
	ModeRange ReportMode = "range"
	ModeMonth ReportMode = "month"
	ModeYear  ReportMode = "year"
)

// Placeholders for records whose classification is blank.
const (
	NoGroup    = "SEM GRUPO"
	NoSubgroup = "SEM SUBGRUPO"
	NoCode     = "SEM CTA"
)

type (
	// ReportQuery selects the records of a report. String filters accept ""
	// or "all" as wildcard; a nil Recurring matches both.
	ReportQuery struct {
		Mode        ReportMode  `json:"mode"`
		Start       string      `json:"start,omitempty"`
		End         string      `json:"end,omitempty"`
		Year        int         `json:"year,omitempty"`
		Month       int         `json:"month,omitempty"`
		Group       string      `json:"group,omitempty"`
		Subgroup    string      `json:"subgroup,omitempty"`
		Code        string      `json:"code,omitempty"`
		Status      Status      `json:"status,omitempty"`
		ExpenseType ExpenseType `json:"expenseType,omitempty"`
		Recurring   *bool       `json:"recurring,omitempty"`
	}

	CodeNode struct {
		Code string `json:"code"`
		Totals
	}

	SubgroupNode struct {
		Name string `json:"name"`
		Totals
		Codes []*CodeNode `json:"codes"`
	}

	GroupNode struct {
		Name string `json:"name"`
		Totals
		Subgroups []*SubgroupNode `json:"subgroups"`
	}

	// ReportRow is a matched record with its derived status.
	ReportRow struct {
		Payable
		Status Status `json:"status"`
	}

	// Report is recomputed on demand and never stored.
	Report struct {
		Query  ReportQuery  `json:"query"`
		Title  string       `json:"title"`
		Totals Totals       `json:"totals"`
		Groups []*GroupNode `json:"groups"`
		Rows   []ReportRow  `json:"rows"`
	}
)

// Validate checks the window parameters.
func (q ReportQuery) Validate() error {
	switch q.Mode {
	case ModeMonth:
		if q.Month < 1 || q.Month > 12 {
			return invalid("month", fmt.Sprintf("month %d out of range", q.Month))
		}
		if q.Year < 1 {
			return missing("year")
		}
	case ModeYear:
		if q.Year < 1 {
			return missing("year")
		}
	case ModeRange:
	default:
		return invalid("mode", "unknown report mode "+string(q.Mode))
	}
	if q.Status != "" && q.Status != Status(All) &&
		q.Status != StatusPaid && q.Status != StatusPending && q.Status != StatusOverdue {
		return invalid("status", "unknown status "+string(q.Status))
	}
	return nil
}

// Title renders the human title of the window.
func (q ReportQuery) Title() string {
	switch q.Mode {
	case ModeMonth:
		return fmt.Sprintf("Mensal %s/%d", MonthName(q.Month), q.Year)
	case ModeYear:
		return fmt.Sprintf("Anual %d", q.Year)
	default:
		return fmt.Sprintf("Período %s até %s", FormatDateBR(q.Start), FormatDateBR(q.End))
	}
}

// inWindow applies the time window. Records without a valid due date never
// match. In range mode an unparseable bound leaves the window open.
func (q ReportQuery) inWindow(p Payable) bool {
	due, ok := p.Due()
	if !ok {
		return false
	}
	switch q.Mode {
	case ModeMonth:
		return due.Year() == q.Year && due.Month() == q.Month
	case ModeYear:
		return due.Year() == q.Year
	default:
		start, errS := ParseDate(q.Start)
		end, errE := ParseDate(q.End)
		if errS != nil || errE != nil {
			return true
		}
		return !due.Before(start.Time) && !due.After(end.Time)
	}
}

// Matches applies the window and the equality filters.
func (q ReportQuery) Matches(p Payable, today Date) bool {
	if !q.inWindow(p) {
		return false
	}
	if !isAll(q.Group) && p.GroupName != q.Group {
		return false
	}
	if !isAll(q.Subgroup) && p.SubgroupName != q.Subgroup {
		return false
	}
	if !isAll(q.Code) && p.CostCenterCode != q.Code {
		return false
	}
	if !isAll(string(q.Status)) && DeriveStatus(p, today) != q.Status {
		return false
	}
	if !isAll(string(q.ExpenseType)) {
		et := p.ExpenseType
		if et == "" {
			et = ExpenseFixed
		}
		if et != q.ExpenseType {
			return false
		}
	}
	if q.Recurring != nil && p.IsRecurring != *q.Recurring {
		return false
	}
	return true
}

// BuildReport selects the matching records and aggregates them into the
// group/subgroup/code tree. Only paths with at least one record appear.
func BuildReport(records []Payable, q ReportQuery, today Date) Report {
	rep := Report{Query: q, Title: q.Title()}

	groups := map[string]*GroupNode{}
	subs := map[[2]string]*SubgroupNode{}
	codes := map[[3]string]*CodeNode{}

	for _, p := range records {
		if !q.Matches(p, today) {
			continue
		}
		st := DeriveStatus(p, today)
		rep.Rows = append(rep.Rows, ReportRow{Payable: p, Status: st})
		rep.Totals.Add(p.Amount, st)

		g, s, c := placeholder(p.GroupName, NoGroup), placeholder(p.SubgroupName, NoSubgroup), placeholder(p.CostCenterCode, NoCode)

		gn, ok := groups[g]
		if !ok {
			gn = &GroupNode{Name: g}
			groups[g] = gn
			rep.Groups = append(rep.Groups, gn)
		}
		sn, ok := subs[[2]string{g, s}]
		if !ok {
			sn = &SubgroupNode{Name: s}
			subs[[2]string{g, s}] = sn
			gn.Subgroups = append(gn.Subgroups, sn)
		}
		cn, ok := codes[[3]string{g, s, c}]
		if !ok {
			cn = &CodeNode{Code: c}
			codes[[3]string{g, s, c}] = cn
			sn.Codes = append(sn.Codes, cn)
		}
		gn.Add(p.Amount, st)
		sn.Add(p.Amount, st)
		cn.Add(p.Amount, st)
	}

	sortTree(rep.Groups)
	sort.SliceStable(rep.Rows, func(i, j int) bool {
		return rep.Rows[i].DueDate < rep.Rows[j].DueDate
	})
	return rep
}

// Find returns the code node at the given path, or nil.
func (r Report) Find(group, subgroup, code string) *CodeNode {
	for _, g := range r.Groups {
		if g.Name != group {
			continue
		}
		for _, s := range g.Subgroups {
			if s.Name != subgroup {
				continue
			}
			for _, c := range s.Codes {
				if c.Code == code {
					return c
				}
			}
		}
	}
	return nil
}

func placeholder(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func sortTree(groups []*GroupNode) {
	c := collate.New(language.BrazilianPortuguese)
	less := func(a, b string) bool { return c.CompareString(a, b) < 0 }

	sort.Slice(groups, func(i, j int) bool { return less(groups[i].Name, groups[j].Name) })
	for _, g := range groups {
		sort.Slice(g.Subgroups, func(i, j int) bool { return less(g.Subgroups[i].Name, g.Subgroups[j].Name) })
		for _, s := range g.Subgroups {
			sort.Slice(s.Codes, func(i, j int) bool { return less(s.Codes[i].Code, s.Codes[j].Code) })
		}
	}
}
