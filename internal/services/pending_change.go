package services

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"contas/internal/backup"
	"contas/internal/core"
	"contas/internal/log"
)

// ChangeKind names a destructive action awaiting confirmation.
type ChangeKind string

const (
	ChangeDeletePayable   ChangeKind = "delete_payable"
	ChangeEditField       ChangeKind = "edit_field"
	ChangeRenameGroup     ChangeKind = "rename_group"
	ChangeRenameSubgroup  ChangeKind = "rename_subgroup"
	ChangeDeleteGroup     ChangeKind = "delete_group"
	ChangeDeleteSubgroup  ChangeKind = "delete_subgroup"
	ChangeReplacePayables ChangeKind = "replace_payables"
	ChangeReplaceTaxonomy ChangeKind = "replace_taxonomy"
	ChangeRestoreBackup   ChangeKind = "restore_backup"
)

// PendingChange describes a proposed change. Nothing happens until it is
// committed; discarding it leaves the session untouched.
type PendingChange struct {
	ID        string     `json:"id"`
	Kind      ChangeKind `json:"kind"`
	RecordID  int64      `json:"recordId,omitempty"`
	Field     string     `json:"field,omitempty"`
	OldValue  string     `json:"oldValue"`
	NewValue  string     `json:"newValue"`
	Affected  int        `json:"affected"`
	CreatedAt time.Time  `json:"createdAt"`

	apply func(ctx context.Context) error
}

func (s *Session) propose(pc PendingChange, apply func(ctx context.Context) error) PendingChange {
	pc.ID = uuid.NewString()
	pc.CreatedAt = s.now()
	pc.apply = apply

	s.mu.Lock()
	s.pending[pc.ID] = &pc
	s.mu.Unlock()

	s.log.Info("Change proposed",
		log.FieldChangeID, pc.ID,
		log.FieldChangeKind, string(pc.Kind),
		log.FieldPayableID, pc.RecordID)
	return pc
}

// Commit applies a proposal and forgets it. A proposal can be committed
// once; the second attempt is a NotFoundError.
func (s *Session) Commit(ctx context.Context, id string) (PendingChange, error) {
	s.mu.Lock()
	pc, ok := s.pending[id]
	if ok {
		delete(s.pending, id)
	}
	s.mu.Unlock()
	if !ok {
		return PendingChange{}, &core.NotFoundError{Kind: "pending change", Key: id}
	}

	if err := pc.apply(ctx); err != nil {
		return *pc, err
	}
	log.NewStructuredLogger(s.log).LogChange(ctx, "Change committed", pc.ID, string(pc.Kind), pc.Affected)
	return *pc, nil
}

// Discard drops a proposal without applying it.
func (s *Session) Discard(id string) error {
	s.mu.Lock()
	pc, ok := s.pending[id]
	delete(s.pending, id)
	s.mu.Unlock()
	if !ok {
		return &core.NotFoundError{Kind: "pending change", Key: id}
	}
	log.NewStructuredLogger(s.log).LogChange(context.Background(), "Change discarded", id, string(pc.Kind), pc.Affected)
	return nil
}

// PendingChanges lists open proposals, oldest first.
func (s *Session) PendingChanges() []PendingChange {
	s.mu.Lock()
	out := make([]PendingChange, 0, len(s.pending))
	for _, pc := range s.pending {
		out = append(out, *pc)
	}
	s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// ProposeDelete asks to delete a record.
func (s *Session) ProposeDelete(id int64) (PendingChange, error) {
	p, err := s.Get(id)
	if err != nil {
		return PendingChange{}, err
	}
	return s.propose(PendingChange{
		Kind:     ChangeDeletePayable,
		RecordID: id,
		OldValue: p.Description,
		Affected: 1,
	}, func(ctx context.Context) error {
		s.Delete(ctx, id)
		return nil
	}), nil
}

// ProposeEdit asks to set one field of a record. The value is checked now
// with the same rules Update applies on commit.
func (s *Session) ProposeEdit(id int64, field, value string) (PendingChange, error) {
	p, err := s.Get(id)
	if err != nil {
		return PendingChange{}, err
	}
	old, ok := core.FieldValue(p, field)
	if !ok {
		return PendingChange{}, &core.ValidationError{Fields: []string{field}, Msg: "unknown field"}
	}
	u, err := core.FieldUpdate(field, value)
	if err != nil {
		return PendingChange{}, err
	}
	if _, err := core.ApplyUpdate(p, u, s.Taxonomy(), s.now()); err != nil {
		return PendingChange{}, err
	}
	return s.propose(PendingChange{
		Kind:     ChangeEditField,
		RecordID: id,
		Field:    field,
		OldValue: old,
		NewValue: value,
		Affected: 1,
	}, func(ctx context.Context) error {
		_, err := s.Update(ctx, id, u)
		return err
	}), nil
}

// ProposeRenameGroup validates a group rename now. Without cascade the
// rename needs no confirmation and is applied at once; the returned
// proposal is nil in that case.
func (s *Session) ProposeRenameGroup(ctx context.Context, oldName, newName string, cascade bool) (*PendingChange, error) {
	if err := s.Taxonomy().RenameGroup(oldName, newName); err != nil {
		return nil, err
	}
	if !cascade {
		_, err := s.RenameGroup(ctx, oldName, newName, false)
		return nil, err
	}
	affected := s.countRecords(func(p core.Payable) bool { return p.GroupName == oldName })
	pc := s.propose(PendingChange{
		Kind:     ChangeRenameGroup,
		Field:    core.FieldGroupName,
		OldValue: oldName,
		NewValue: strings.TrimSpace(newName),
		Affected: affected,
	}, func(ctx context.Context) error {
		_, err := s.RenameGroup(ctx, oldName, newName, true)
		return err
	})
	return &pc, nil
}

// ProposeRenameSubgroup is ProposeRenameGroup one level down.
func (s *Session) ProposeRenameSubgroup(ctx context.Context, group, oldName, newName string, cascade bool) (*PendingChange, error) {
	if err := s.Taxonomy().RenameSubgroup(group, oldName, newName); err != nil {
		return nil, err
	}
	if !cascade {
		_, err := s.RenameSubgroup(ctx, group, oldName, newName, false)
		return nil, err
	}
	affected := s.countRecords(func(p core.Payable) bool {
		return p.GroupName == group && p.SubgroupName == oldName
	})
	pc := s.propose(PendingChange{
		Kind:     ChangeRenameSubgroup,
		Field:    core.FieldSubgroupName,
		OldValue: group + "/" + oldName,
		NewValue: group + "/" + strings.TrimSpace(newName),
		Affected: affected,
	}, func(ctx context.Context) error {
		_, err := s.RenameSubgroup(ctx, group, oldName, newName, true)
		return err
	})
	return &pc, nil
}

// ProposeDeleteGroup asks to remove a group and everything under it.
func (s *Session) ProposeDeleteGroup(name string) (PendingChange, error) {
	if !s.Taxonomy().HasGroup(name) {
		return PendingChange{}, &core.NotFoundError{Kind: string(core.LevelGroup), Key: name}
	}
	affected := s.countRecords(func(p core.Payable) bool { return p.GroupName == name })
	return s.propose(PendingChange{
		Kind:     ChangeDeleteGroup,
		Field:    core.FieldGroupName,
		OldValue: name,
		Affected: affected,
	}, func(ctx context.Context) error {
		return s.DeleteGroup(ctx, name)
	}), nil
}

// ProposeDeleteSubgroup asks to remove a subgroup and its codes.
func (s *Session) ProposeDeleteSubgroup(group, name string) (PendingChange, error) {
	if !s.Taxonomy().HasSubgroup(group, name) {
		return PendingChange{}, &core.NotFoundError{Kind: string(core.LevelSubgroup), Key: group + "/" + name}
	}
	affected := s.countRecords(func(p core.Payable) bool {
		return p.GroupName == group && p.SubgroupName == name
	})
	return s.propose(PendingChange{
		Kind:     ChangeDeleteSubgroup,
		Field:    core.FieldSubgroupName,
		OldValue: group + "/" + name,
		Affected: affected,
	}, func(ctx context.Context) error {
		return s.DeleteSubgroup(ctx, group, name)
	}), nil
}

// ProposeReplacePayables asks to swap the record set for ps.
func (s *Session) ProposeReplacePayables(ps []core.Payable) PendingChange {
	incoming := append([]core.Payable(nil), ps...)
	return s.propose(PendingChange{
		Kind:     ChangeReplacePayables,
		OldValue: strconv.Itoa(s.countRecords(nil)),
		NewValue: strconv.Itoa(len(incoming)),
		Affected: len(incoming),
	}, func(ctx context.Context) error {
		s.ReplacePayables(ctx, incoming)
		return nil
	})
}

// ProposeReplaceTaxonomy asks to adopt incoming in place of the taxonomy.
func (s *Session) ProposeReplaceTaxonomy(incoming core.Taxonomy) (PendingChange, error) {
	if incoming == nil {
		return PendingChange{}, &core.ValidationError{Msg: "taxonomy must be an object of groups"}
	}
	tax := incoming.Normalize()
	return s.propose(PendingChange{
		Kind:     ChangeReplaceTaxonomy,
		OldValue: fmt.Sprintf("%d groups", len(s.Taxonomy())),
		NewValue: fmt.Sprintf("%d groups", len(tax)),
		Affected: len(tax),
	}, func(ctx context.Context) error {
		return s.ReplaceTaxonomy(ctx, tax)
	}), nil
}

// ProposeRestore asks to restore a decoded backup.
func (s *Session) ProposeRestore(b backup.Backup) PendingChange {
	return s.propose(PendingChange{
		Kind:     ChangeRestoreBackup,
		OldValue: strconv.Itoa(s.countRecords(nil)),
		NewValue: strconv.Itoa(len(b.Accounts)),
		Affected: len(b.Accounts),
	}, func(ctx context.Context) error {
		s.RestoreBackup(ctx, b)
		return nil
	})
}

// countRecords counts records matching keep; a nil keep counts all.
func (s *Session) countRecords(keep func(core.Payable) bool) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if keep == nil {
		return len(s.payables)
	}
	n := 0
	for _, p := range s.payables {
		if keep(p) {
			n++
		}
	}
	return n
}
