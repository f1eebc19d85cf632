package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contas/internal/core"
)

func TestCommitAndDiscard(t *testing.T) {
	ctx := context.Background()
	f := loaded(t)
	p, err := f.session.Create(ctx, waterInput())
	require.NoError(t, err)

	pc, err := f.session.ProposeDelete(p.ID)
	require.NoError(t, err)
	assert.Equal(t, ChangeDeletePayable, pc.Kind)
	assert.Equal(t, p.ID, pc.RecordID)
	assert.Equal(t, "Conta de água", pc.OldValue)
	assert.Len(t, f.session.Payables(), 1, "proposing changes nothing")
	assert.Equal(t, stripApply([]PendingChange{pc}), stripApply(f.session.PendingChanges()))

	require.NoError(t, f.session.Discard(pc.ID))
	assert.Len(t, f.session.Payables(), 1)
	assert.Empty(t, f.session.PendingChanges())

	var nf *core.NotFoundError
	assert.ErrorAs(t, f.session.Discard(pc.ID), &nf)
	_, err = f.session.Commit(ctx, pc.ID)
	assert.ErrorAs(t, err, &nf, "a discarded proposal cannot be committed")

	pc, err = f.session.ProposeDelete(p.ID)
	require.NoError(t, err)
	_, err = f.session.Commit(ctx, pc.ID)
	require.NoError(t, err)
	assert.Empty(t, f.session.Payables())

	_, err = f.session.Commit(ctx, pc.ID)
	assert.ErrorAs(t, err, &nf, "a proposal commits once")

	_, err = f.session.ProposeDelete(p.ID)
	assert.ErrorAs(t, err, &nf)
}

func stripApply(pcs []PendingChange) []PendingChange {
	for i := range pcs {
		pcs[i].apply = nil
	}
	return pcs
}

func TestProposeEdit(t *testing.T) {
	ctx := context.Background()
	f := loaded(t)
	p, err := f.session.Create(ctx, waterInput())
	require.NoError(t, err)

	_, err = f.session.ProposeEdit(p.ID, "color", "blue")
	var verr *core.ValidationError
	assert.ErrorAs(t, err, &verr)

	_, err = f.session.ProposeEdit(p.ID, core.FieldDescription, "   ")
	assert.ErrorAs(t, err, &verr, "values are checked before proposing")

	pc, err := f.session.ProposeEdit(p.ID, core.FieldSubgroupName, "Luz")
	require.NoError(t, err)
	assert.Equal(t, ChangeEditField, pc.Kind)
	assert.Equal(t, "Água", pc.OldValue)
	assert.Equal(t, "Luz", pc.NewValue)

	got, err := f.session.Get(p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Água", got.SubgroupName)

	_, err = f.session.Commit(ctx, pc.ID)
	require.NoError(t, err)
	got, err = f.session.Get(p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Luz", got.SubgroupName)
	assert.Empty(t, got.CostCenterCode, "code 391 does not exist under Luz")

	_, err = f.session.ProposeEdit(404, core.FieldDescription, "x")
	var nf *core.NotFoundError
	assert.ErrorAs(t, err, &nf)
}

func TestRenameGroupCascade(t *testing.T) {
	ctx := context.Background()

	t.Run("cascade moves every record after commit", func(t *testing.T) {
		f := loaded(t)
		a, err := f.session.Create(ctx, waterInput())
		require.NoError(t, err)
		other := waterInput()
		other.GroupName = "PESSOAL"
		other.SubgroupName = "Pro Labore"
		b, err := f.session.Create(ctx, other)
		require.NoError(t, err)

		pc, err := f.session.ProposeRenameGroup(ctx, "ESTRUTURA", "INFRA", true)
		require.NoError(t, err)
		require.NotNil(t, pc)
		assert.Equal(t, 1, pc.Affected)
		assert.True(t, f.session.Taxonomy().HasGroup("ESTRUTURA"), "nothing renamed before commit")

		_, err = f.session.Commit(ctx, pc.ID)
		require.NoError(t, err)
		flush(t, f.session)

		tax := f.session.Taxonomy()
		assert.True(t, tax.HasGroup("INFRA"))
		assert.False(t, tax.HasGroup("ESTRUTURA"))

		got, err := f.session.Get(a.ID)
		require.NoError(t, err)
		assert.Equal(t, "INFRA", got.GroupName)
		assert.Equal(t, "Água", got.SubgroupName)
		got, err = f.session.Get(b.ID)
		require.NoError(t, err)
		assert.Equal(t, "PESSOAL", got.GroupName)

		for _, p := range storedPayables(t, f.store) {
			assert.NotEqual(t, "ESTRUTURA", p.GroupName)
		}
	})

	t.Run("without cascade records keep the old name", func(t *testing.T) {
		f := loaded(t)
		a, err := f.session.Create(ctx, waterInput())
		require.NoError(t, err)

		pc, err := f.session.ProposeRenameGroup(ctx, "ESTRUTURA", "INFRA", false)
		require.NoError(t, err)
		assert.Nil(t, pc, "plain renames need no confirmation")
		assert.True(t, f.session.Taxonomy().HasGroup("INFRA"))

		got, err := f.session.Get(a.ID)
		require.NoError(t, err)
		assert.Equal(t, "ESTRUTURA", got.GroupName)

		group := "INFRA"
		edited, err := f.session.Update(ctx, a.ID, core.PayableUpdate{GroupName: &group})
		require.NoError(t, err, "orphaned records stay editable")
		assert.Equal(t, "Água", edited.SubgroupName)
	})

	t.Run("collisions are rejected up front", func(t *testing.T) {
		f := loaded(t)
		_, err := f.session.ProposeRenameGroup(ctx, "ESTRUTURA", "PESSOAL", true)
		var dup *core.DuplicateNameError
		assert.ErrorAs(t, err, &dup)
		assert.Empty(t, f.session.PendingChanges())

		_, err = f.session.ProposeRenameGroup(ctx, "NOPE", "X", true)
		var nf *core.NotFoundError
		assert.ErrorAs(t, err, &nf)
	})
}

func TestRenameSubgroupCascade(t *testing.T) {
	ctx := context.Background()
	f := loaded(t)
	a, err := f.session.Create(ctx, waterInput())
	require.NoError(t, err)

	pc, err := f.session.ProposeRenameSubgroup(ctx, "ESTRUTURA", "Água", "Água e Esgoto", true)
	require.NoError(t, err)
	require.NotNil(t, pc)
	assert.Equal(t, "ESTRUTURA/Água e Esgoto", pc.NewValue)

	_, err = f.session.Commit(ctx, pc.ID)
	require.NoError(t, err)
	got, err := f.session.Get(a.ID)
	require.NoError(t, err)
	assert.Equal(t, "Água e Esgoto", got.SubgroupName)
	assert.Equal(t, []string{"391"}, f.session.Taxonomy().Codes("ESTRUTURA", "Água e Esgoto"))
}

func TestDeleteGroupLeavesRecordsOrphaned(t *testing.T) {
	ctx := context.Background()
	f := loaded(t)
	a, err := f.session.Create(ctx, waterInput())
	require.NoError(t, err)

	pc, err := f.session.ProposeDeleteGroup("ESTRUTURA")
	require.NoError(t, err)
	assert.Equal(t, 1, pc.Affected)
	_, err = f.session.Commit(ctx, pc.ID)
	require.NoError(t, err)

	assert.False(t, f.session.Taxonomy().HasGroup("ESTRUTURA"))
	got, err := f.session.Get(a.ID)
	require.NoError(t, err)
	assert.Equal(t, "ESTRUTURA", got.GroupName)

	_, err = f.session.ProposeDeleteGroup("ESTRUTURA")
	var nf *core.NotFoundError
	assert.ErrorAs(t, err, &nf)

	pc, err = f.session.ProposeDeleteSubgroup("PESSOAL", "Pro Labore")
	require.NoError(t, err)
	_, err = f.session.Commit(ctx, pc.ID)
	require.NoError(t, err)
	assert.False(t, f.session.Taxonomy().HasSubgroup("PESSOAL", "Pro Labore"))
}

func TestTaxonomyEditsRejectBeforeApply(t *testing.T) {
	ctx := context.Background()
	f := loaded(t)
	before := f.session.Taxonomy()

	var dup *core.DuplicateNameError
	assert.ErrorAs(t, f.session.AddGroup(ctx, "ESTRUTURA"), &dup)
	assert.ErrorAs(t, f.session.AddCode(ctx, "ESTRUTURA", "Água", "391"), &dup)
	var verr *core.ValidationError
	assert.ErrorAs(t, f.session.AddSubgroup(ctx, "ESTRUTURA", "  "), &verr)
	var nf *core.NotFoundError
	assert.ErrorAs(t, f.session.AddSubgroup(ctx, "NOPE", "x"), &nf)
	assert.Equal(t, before, f.session.Taxonomy())

	require.NoError(t, f.session.AddSubgroup(ctx, "ESTRUTURA", "Gás"))
	require.NoError(t, f.session.AddCode(ctx, "ESTRUTURA", "Gás", "12"))
	require.NoError(t, f.session.AddCode(ctx, "ESTRUTURA", "Gás", "2"))
	assert.Equal(t, []string{"12", "2"}, f.session.Taxonomy().Codes("ESTRUTURA", "Gás"))
	require.NoError(t, f.session.RemoveCode(ctx, "ESTRUTURA", "Gás", "12"))
	assert.Equal(t, []string{"2"}, f.session.Taxonomy().Codes("ESTRUTURA", "Gás"))

	flush(t, f.session)
	saved, _, err := f.store.LoadTaxonomy(ctx)
	require.NoError(t, err)
	assert.Equal(t, f.session.Taxonomy(), saved)
}

func TestMergeAndReplaceTaxonomy(t *testing.T) {
	ctx := context.Background()
	f := loaded(t)
	incoming := core.Taxonomy{"ESCOLA": {"Material": {"900"}}, "ESTRUTURA": {"Água": {"392"}}}

	require.NoError(t, f.session.MergeTaxonomy(ctx, incoming))
	tax := f.session.Taxonomy()
	assert.True(t, tax.HasGroup("PESSOAL"), "merge keeps base-only groups")
	assert.Equal(t, []string{"391", "392"}, tax.Codes("ESTRUTURA", "Água"))

	require.NoError(t, f.session.MergeTaxonomy(ctx, tax))
	assert.Equal(t, tax, f.session.Taxonomy(), "merging the same taxonomy is idempotent")

	pc, err := f.session.ProposeReplaceTaxonomy(incoming)
	require.NoError(t, err)
	assert.Equal(t, ChangeReplaceTaxonomy, pc.Kind)
	assert.True(t, f.session.Taxonomy().HasGroup("PESSOAL"))

	_, err = f.session.Commit(ctx, pc.ID)
	require.NoError(t, err)
	assert.Equal(t, incoming.Normalize(), f.session.Taxonomy())

	_, err = f.session.ProposeReplaceTaxonomy(nil)
	assert.Error(t, err)
}

func importTable() [][]string {
	return [][]string{
		{"Grupo DRE", "Subgrupo", "CTA", "DESCRIÇÃO", "DIA VENC.", "VALOR"},
		{"ESTRUTURA", "Luz", "390", "Energia", "10", "320,50"},
		{"ESTRUTURA", "Água", "391", "Água", "31", "150"},
		{"ESTRUTURA", "Água", "391", "", "5", "10"},
		{"ESTRUTURA", "Água", "391", "Sem valor", "5", "0"},
	}
}

func TestImportSpreadsheet(t *testing.T) {
	ctx := context.Background()

	t.Run("append", func(t *testing.T) {
		f := loaded(t)
		existing, err := f.session.Create(ctx, waterInput())
		require.NoError(t, err)

		out, err := f.session.ImportSpreadsheet(ctx, importTable(), ImportAppend)
		require.NoError(t, err)
		assert.Equal(t, 2, out.Imported)
		assert.Equal(t, 2, out.Skipped)
		assert.Nil(t, out.Pending)

		ps := f.session.Payables()
		require.Len(t, ps, 3)
		ids := map[int64]bool{}
		for _, p := range ps {
			ids[p.ID] = true
		}
		assert.Len(t, ids, 3, "imported ids never collide")
		assert.True(t, ids[existing.ID])

		var energy core.Payable
		for _, p := range ps {
			if p.Description == "Energia" {
				energy = p
			}
		}
		assert.Equal(t, "2024-03-10", energy.DueDate)
		assert.Equal(t, 320.5, energy.Amount)
	})

	t.Run("replace waits for commit", func(t *testing.T) {
		f := loaded(t)
		old, err := f.session.Create(ctx, waterInput())
		require.NoError(t, err)
		flush(t, f.session)

		out, err := f.session.ImportSpreadsheet(ctx, importTable(), ImportReplace)
		require.NoError(t, err)
		require.NotNil(t, out.Pending)
		assert.Equal(t, ChangeReplacePayables, out.Pending.Kind)
		assert.Len(t, f.session.Payables(), 1)

		_, err = f.session.Commit(ctx, out.Pending.ID)
		require.NoError(t, err)
		flush(t, f.session)

		ps := f.session.Payables()
		require.Len(t, ps, 2)
		for _, p := range ps {
			assert.NotEqual(t, old.ID, p.ID)
		}
		assert.Len(t, storedPayables(t, f.store), 2)
		assert.Contains(t, f.publisher.deletes, old.ID)
	})

	t.Run("malformed table changes nothing", func(t *testing.T) {
		f := loaded(t)
		_, err := f.session.ImportSpreadsheet(ctx, [][]string{{"foo", "bar"}, {"1", "2"}}, ImportAppend)
		var ierr *core.ImportFormatError
		assert.ErrorAs(t, err, &ierr)
		assert.Empty(t, f.session.Payables())
	})

	t.Run("unknown mode", func(t *testing.T) {
		f := loaded(t)
		_, err := f.session.ImportSpreadsheet(ctx, importTable(), "merge")
		var verr *core.ValidationError
		assert.ErrorAs(t, err, &verr)
	})
}

type tableFunc func(context.Context) ([][]string, error)

func (f tableFunc) ReadTable(ctx context.Context) ([][]string, error) { return f(ctx) }

func TestImportSpreadsheetFromReader(t *testing.T) {
	ctx := context.Background()
	f := loaded(t)
	out, err := f.session.ImportSpreadsheetFrom(ctx, tableFunc(func(context.Context) ([][]string, error) {
		return importTable(), nil
	}), ImportAppend)
	require.NoError(t, err)
	assert.Equal(t, 2, out.Imported)

	_, err = f.session.ImportSpreadsheetFrom(ctx, tableFunc(func(context.Context) ([][]string, error) {
		return nil, &core.ImportFormatError{Source: "x.xlsx", Err: assert.AnError}
	}), ImportAppend)
	assert.ErrorIs(t, err, assert.AnError)
}
