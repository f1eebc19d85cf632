package memory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contas/internal/core"
)

func TestMemoryStorePayables(t *testing.T) {
	ctx := context.Background()
	s := New()

	require.NoError(t, s.UpsertPayables(ctx, core.Payable{ID: 2, Description: "b"}, core.Payable{ID: 1, Description: "a"}))
	require.NoError(t, s.UpsertPayables(ctx, core.Payable{ID: 2, Description: "b2"}))

	got, err := s.ListPayables(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(1), got[0].ID)
	assert.Equal(t, "b2", got[1].Description)

	require.NoError(t, s.DeletePayable(ctx, 1))
	require.NoError(t, s.DeletePayable(ctx, 1))
	got, _ = s.ListPayables(ctx)
	assert.Len(t, got, 1)
	assert.Equal(t, 4, s.Writes())
}

func TestMemoryStoreTaxonomy(t *testing.T) {
	ctx := context.Background()
	s := New()

	_, found, err := s.LoadTaxonomy(ctx)
	require.NoError(t, err)
	assert.False(t, found)

	tax := core.DefaultTaxonomy()
	require.NoError(t, s.SaveTaxonomy(ctx, tax))
	tax.DeleteGroup("PESSOAL")

	loaded, found, err := s.LoadTaxonomy(ctx)
	require.NoError(t, err)
	assert.True(t, found)
	assert.True(t, loaded.HasGroup("PESSOAL"), "store keeps its own copy")
}

func TestMemoryStoreFail(t *testing.T) {
	ctx := context.Background()
	s := New()
	boom := errors.New("boom")
	s.Fail(boom)

	assert.ErrorIs(t, s.UpsertPayables(ctx, core.Payable{ID: 1}), boom)
	_, err := s.ListPayables(ctx)
	assert.ErrorIs(t, err, boom)
	_, _, err = s.LoadTaxonomy(ctx)
	assert.ErrorIs(t, err, boom)

	s.Fail(nil)
	assert.NoError(t, s.UpsertPayables(ctx, core.Payable{ID: 1}))
}

func TestNewFromFilesSeedsTaxonomy(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFromFiles(dir)
	require.NoError(t, err)
	_, found, _ := s.LoadTaxonomy(context.Background())
	assert.False(t, found, "no seed file means nothing saved")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "seed_taxonomy.json"), []byte(`{"INFRA":{"Servidores":["900"]}}`), 0o644))
	s, err = NewFromFiles(dir)
	require.NoError(t, err)
	tax, found, err := s.LoadTaxonomy(context.Background())
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []string{"900"}, tax.Codes("INFRA", "Servidores"))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "seed_taxonomy.json"), []byte(`[]`), 0o644))
	_, err = NewFromFiles(dir)
	assert.Error(t, err)
}
