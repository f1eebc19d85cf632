package services

import (
	"context"
	"strings"

	"contas/internal/core"
	"contas/internal/log"
)

// mutateTaxonomy applies fn to a copy of the taxonomy and adopts the copy
// only when fn succeeds, so a rejected change leaves no trace.
func (s *Session) mutateTaxonomy(ctx context.Context, op string, fn func(core.Taxonomy) error) error {
	s.mu.Lock()
	next := s.tax.Clone()
	if err := fn(next); err != nil {
		s.mu.Unlock()
		return err
	}
	s.tax = next
	s.reports.Purge()
	saved := next.Clone()
	s.mu.Unlock()

	s.persistTaxonomy(ctx, saved, nil)
	s.log.InfoContext(ctx, "Taxonomy changed", log.FieldOperation, op)
	return nil
}

func (s *Session) AddGroup(ctx context.Context, name string) error {
	return s.mutateTaxonomy(ctx, "add_group", func(t core.Taxonomy) error {
		return t.AddGroup(name)
	})
}

func (s *Session) AddSubgroup(ctx context.Context, group, name string) error {
	return s.mutateTaxonomy(ctx, "add_subgroup", func(t core.Taxonomy) error {
		return t.AddSubgroup(group, name)
	})
}

func (s *Session) AddCode(ctx context.Context, group, subgroup, code string) error {
	return s.mutateTaxonomy(ctx, "add_code", func(t core.Taxonomy) error {
		return t.AddCode(group, subgroup, code)
	})
}

func (s *Session) RemoveCode(ctx context.Context, group, subgroup, code string) error {
	return s.mutateTaxonomy(ctx, "remove_code", func(t core.Taxonomy) error {
		t.RemoveCode(group, subgroup, code)
		return nil
	})
}

// DeleteGroup removes a group and its subtree. Records keep pointing at it.
func (s *Session) DeleteGroup(ctx context.Context, name string) error {
	return s.mutateTaxonomy(ctx, "delete_group", func(t core.Taxonomy) error {
		t.DeleteGroup(name)
		return nil
	})
}

// DeleteSubgroup removes a subgroup and its codes. Records keep pointing at it.
func (s *Session) DeleteSubgroup(ctx context.Context, group, name string) error {
	return s.mutateTaxonomy(ctx, "delete_subgroup", func(t core.Taxonomy) error {
		t.DeleteSubgroup(group, name)
		return nil
	})
}

// RenameGroup renames a group. With cascade every record filed under the
// old name moves to the new one; without it they are left orphaned.
// It returns the number of records moved.
func (s *Session) RenameGroup(ctx context.Context, oldName, newName string, cascade bool) (int, error) {
	return s.rename(ctx, "rename_group", func(t core.Taxonomy) error {
		return t.RenameGroup(oldName, newName)
	}, cascade, func(p *core.Payable, to string) bool {
		if p.GroupName != oldName {
			return false
		}
		p.GroupName = to
		return true
	}, newName)
}

// RenameSubgroup renames a subgroup of group, cascading like RenameGroup.
// Only records under the same group are moved.
func (s *Session) RenameSubgroup(ctx context.Context, group, oldName, newName string, cascade bool) (int, error) {
	return s.rename(ctx, "rename_subgroup", func(t core.Taxonomy) error {
		return t.RenameSubgroup(group, oldName, newName)
	}, cascade, func(p *core.Payable, to string) bool {
		if p.GroupName != group || p.SubgroupName != oldName {
			return false
		}
		p.SubgroupName = to
		return true
	}, newName)
}

func (s *Session) rename(
	ctx context.Context,
	op string,
	renameNode func(core.Taxonomy) error,
	cascade bool,
	move func(p *core.Payable, to string) bool,
	newName string,
) (int, error) {
	s.mu.Lock()
	next := s.tax.Clone()
	if err := renameNode(next); err != nil {
		s.mu.Unlock()
		return 0, err
	}
	s.tax = next
	savedTax := next.Clone()

	var moved []core.Payable
	if cascade {
		now := s.now()
		to := strings.TrimSpace(newName)
		for i := range s.payables {
			p := s.payables[i]
			if move(&p, to) && p != s.payables[i] {
				p.UpdatedAt = now
				s.payables[i] = p
				moved = append(moved, p)
			}
		}
	}
	s.changedLocked()
	s.mu.Unlock()

	s.persistTaxonomy(ctx, savedTax, nil)
	s.persistUpsert(ctx, moved, nil)
	s.log.InfoContext(ctx, "Taxonomy renamed",
		log.FieldOperation, op,
		"cascade", cascade,
		log.FieldCount, len(moved))
	return len(moved), nil
}

// MergeTaxonomy unions incoming into the current taxonomy.
func (s *Session) MergeTaxonomy(ctx context.Context, incoming core.Taxonomy) error {
	return s.mutateTaxonomy(ctx, "merge", func(t core.Taxonomy) error {
		merged := core.Merge(t, incoming)
		for g := range t {
			delete(t, g)
		}
		for g, subs := range merged {
			t[g] = subs
		}
		return nil
	})
}

// ReplaceTaxonomy discards the current taxonomy and adopts incoming.
func (s *Session) ReplaceTaxonomy(ctx context.Context, incoming core.Taxonomy) error {
	if incoming == nil {
		return &core.ValidationError{Msg: "taxonomy must be an object of groups"}
	}
	return s.mutateTaxonomy(ctx, "replace", func(t core.Taxonomy) error {
		for g := range t {
			delete(t, g)
		}
		for g, subs := range incoming.Normalize() {
			t[g] = subs
		}
		return nil
	})
}
