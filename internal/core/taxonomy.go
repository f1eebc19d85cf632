package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Taxonomy is the DRE classification: group -> subgroup -> cost-center codes.
// Code lists are kept de-duplicated and sorted with pt-BR collation. A
// subgroup with no codes is valid.
type Taxonomy map[string]map[string][]string

// Groups returns the group names in pt-BR order.
func (t Taxonomy) Groups() []string {
	names := make([]string, 0, len(t))
	for g := range t {
		names = append(names, g)
	}
	SortNames(names)
	return names
}

// Subgroups returns the subgroup names of group in pt-BR order.
func (t Taxonomy) Subgroups(group string) []string {
	subs := t[group]
	names := make([]string, 0, len(subs))
	for s := range subs {
		names = append(names, s)
	}
	SortNames(names)
	return names
}

// Codes returns the codes of group/subgroup.
func (t Taxonomy) Codes(group, subgroup string) []string {
	return t[group][subgroup]
}

func (t Taxonomy) HasGroup(group string) bool {
	_, ok := t[group]
	return ok
}

func (t Taxonomy) HasSubgroup(group, subgroup string) bool {
	_, ok := t[group][subgroup]
	return ok
}

func (t Taxonomy) HasCode(group, subgroup, code string) bool {
	for _, c := range t[group][subgroup] {
		if c == code {
			return true
		}
	}
	return false
}

// AddGroup creates an empty group.
func (t Taxonomy) AddGroup(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return missing("group")
	}
	if t.HasGroup(name) {
		return &DuplicateNameError{Level: LevelGroup, Name: name}
	}
	t[name] = map[string][]string{}
	return nil
}

// RenameGroup moves a group under a new name. Renaming to the same name is a
// no-op.
func (t Taxonomy) RenameGroup(oldName, newName string) error {
	newName = strings.TrimSpace(newName)
	if newName == "" {
		return missing("group")
	}
	if !t.HasGroup(oldName) {
		return &NotFoundError{Kind: string(LevelGroup), Key: oldName}
	}
	if newName == oldName {
		return nil
	}
	if t.HasGroup(newName) {
		return &DuplicateNameError{Level: LevelGroup, Name: newName}
	}
	t[newName] = t[oldName]
	delete(t, oldName)
	return nil
}

// DeleteGroup removes a group with all its subgroups. Deleting a missing
// group is a no-op.
func (t Taxonomy) DeleteGroup(name string) {
	delete(t, name)
}

func (t Taxonomy) AddSubgroup(group, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return missing("subgroup")
	}
	subs, ok := t[group]
	if !ok {
		return &NotFoundError{Kind: string(LevelGroup), Key: group}
	}
	if _, dup := subs[name]; dup {
		return &DuplicateNameError{Level: LevelSubgroup, Name: name}
	}
	subs[name] = []string{}
	return nil
}

func (t Taxonomy) RenameSubgroup(group, oldName, newName string) error {
	newName = strings.TrimSpace(newName)
	if newName == "" {
		return missing("subgroup")
	}
	subs, ok := t[group]
	if !ok {
		return &NotFoundError{Kind: string(LevelGroup), Key: group}
	}
	codes, ok := subs[oldName]
	if !ok {
		return &NotFoundError{Kind: string(LevelSubgroup), Key: oldName}
	}
	if newName == oldName {
		return nil
	}
	if _, dup := subs[newName]; dup {
		return &DuplicateNameError{Level: LevelSubgroup, Name: newName}
	}
	subs[newName] = codes
	delete(subs, oldName)
	return nil
}

func (t Taxonomy) DeleteSubgroup(group, name string) {
	if subs, ok := t[group]; ok {
		delete(subs, name)
	}
}

func (t Taxonomy) AddCode(group, subgroup, code string) error {
	code = strings.TrimSpace(code)
	if code == "" {
		return missing("code")
	}
	subs, ok := t[group]
	if !ok {
		return &NotFoundError{Kind: string(LevelGroup), Key: group}
	}
	codes, ok := subs[subgroup]
	if !ok {
		return &NotFoundError{Kind: string(LevelSubgroup), Key: subgroup}
	}
	for _, c := range codes {
		if c == code {
			return &DuplicateNameError{Level: LevelCode, Name: code}
		}
	}
	subs[subgroup] = normalizeCodes(append(codes, code))
	return nil
}

func (t Taxonomy) RemoveCode(group, subgroup, code string) {
	codes, ok := t[group][subgroup]
	if !ok {
		return
	}
	out := make([]string, 0, len(codes))
	for _, c := range codes {
		if c != code {
			out = append(out, c)
		}
	}
	t[group][subgroup] = out
}

// Clone returns a deep copy.
func (t Taxonomy) Clone() Taxonomy {
	out := make(Taxonomy, len(t))
	for g, subs := range t {
		cp := make(map[string][]string, len(subs))
		for s, codes := range subs {
			cp[s] = append([]string{}, codes...)
		}
		out[g] = cp
	}
	return out
}

// Normalize returns a copy with trimmed, de-duplicated and sorted codes.
func (t Taxonomy) Normalize() Taxonomy {
	out := t.Clone()
	for _, subs := range out {
		for s, codes := range subs {
			subs[s] = normalizeCodes(codes)
		}
	}
	return out
}

// Merge unions incoming into a copy of base. Nodes only in base are kept
// as they are; code lists touched by incoming are re-normalized. Merge never
// removes anything and Merge(x, x) equals x for a normalized x.
func Merge(base, incoming Taxonomy) Taxonomy {
	out := base.Clone()
	for g, subs := range incoming {
		if _, ok := out[g]; !ok {
			out[g] = map[string][]string{}
		}
		for s, codes := range subs {
			out[g][s] = normalizeCodes(append(append([]string{}, out[g][s]...), codes...))
		}
	}
	return out
}

// DecodeTaxonomy parses a taxonomy document: an object of objects of arrays.
// Numeric codes are accepted and kept as their literal text.
func DecodeTaxonomy(data []byte) (Taxonomy, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, &ValidationError{Msg: fmt.Sprintf("taxonomy is not valid JSON: %v", err)}
	}
	return TaxonomyFromAny(raw)
}

// TaxonomyFromAny validates a decoded JSON value as a taxonomy.
func TaxonomyFromAny(raw any) (Taxonomy, error) {
	groups, ok := raw.(map[string]any)
	if !ok {
		return nil, &ValidationError{Msg: "taxonomy must be an object of groups"}
	}
	out := make(Taxonomy, len(groups))
	for g, rawSubs := range groups {
		subs, ok := rawSubs.(map[string]any)
		if !ok {
			return nil, &ValidationError{Fields: []string{g}, Msg: "group must be an object of subgroups"}
		}
		out[g] = make(map[string][]string, len(subs))
		for s, rawCodes := range subs {
			list, ok := rawCodes.([]any)
			if !ok {
				return nil, &ValidationError{Fields: []string{g + "/" + s}, Msg: "subgroup must be a list of codes"}
			}
			codes := make([]string, 0, len(list))
			for _, c := range list {
				switch v := c.(type) {
				case string:
					codes = append(codes, v)
				case json.Number:
					codes = append(codes, v.String())
				case float64:
					codes = append(codes, fmt.Sprint(v))
				default:
					return nil, &ValidationError{Fields: []string{g + "/" + s}, Msg: "codes must be strings or numbers"}
				}
			}
			out[g][s] = normalizeCodes(codes)
		}
	}
	return out, nil
}

// SortNames sorts names in place with pt-BR collation.
func SortNames(names []string) {
	c := collate.New(language.BrazilianPortuguese)
	sort.SliceStable(names, func(i, j int) bool {
		return c.CompareString(names[i], names[j]) < 0
	})
}

func normalizeCodes(codes []string) []string {
	seen := make(map[string]struct{}, len(codes))
	out := make([]string, 0, len(codes))
	for _, c := range codes {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	SortNames(out)
	return out
}
