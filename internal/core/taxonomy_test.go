package core

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTaxonomy() Taxonomy {
	return Taxonomy{
		"ESTRUTURA": {
			"Água":     {"391"},
			"Luz":      {"390"},
			"Presente": {},
		},
		"PESSOAL": {
			"Pro Labore": {"382"},
		},
	}.Normalize()
}

func TestTaxonomyAdd(t *testing.T) {
	tax := sampleTaxonomy()

	require.NoError(t, tax.AddGroup("INFRA"))
	assert.True(t, tax.HasGroup("INFRA"))

	var dup *DuplicateNameError
	require.ErrorAs(t, tax.AddGroup("ESTRUTURA"), &dup)
	assert.Equal(t, LevelGroup, dup.Level)

	var verr *ValidationError
	require.ErrorAs(t, tax.AddGroup("   "), &verr)

	require.NoError(t, tax.AddSubgroup("INFRA", "Servidores"))
	require.ErrorAs(t, tax.AddSubgroup("INFRA", "Servidores"), &dup)
	assert.Equal(t, LevelSubgroup, dup.Level)

	var nf *NotFoundError
	require.ErrorAs(t, tax.AddSubgroup("NOPE", "X"), &nf)

	require.NoError(t, tax.AddCode("ESTRUTURA", "Água", "100"))
	assert.Equal(t, []string{"100", "391"}, tax.Codes("ESTRUTURA", "Água"))
	require.ErrorAs(t, tax.AddCode("ESTRUTURA", "Água", "391"), &dup)
	assert.Equal(t, LevelCode, dup.Level)
	require.ErrorAs(t, tax.AddCode("ESTRUTURA", "Água", ""), &verr)
}

func TestTaxonomyAddIsCaseSensitive(t *testing.T) {
	tax := sampleTaxonomy()
	require.NoError(t, tax.AddGroup("Estrutura"))
	assert.True(t, tax.HasGroup("ESTRUTURA"))
	assert.True(t, tax.HasGroup("Estrutura"))
}

func TestTaxonomyRename(t *testing.T) {
	tax := sampleTaxonomy()

	require.NoError(t, tax.RenameGroup("ESTRUTURA", "ESTRUTURA"))
	assert.True(t, tax.HasGroup("ESTRUTURA"))

	var dup *DuplicateNameError
	require.ErrorAs(t, tax.RenameGroup("ESTRUTURA", "PESSOAL"), &dup)
	assert.True(t, tax.HasGroup("ESTRUTURA"), "failed rename must not mutate")

	require.NoError(t, tax.RenameGroup("ESTRUTURA", "INFRA"))
	assert.False(t, tax.HasGroup("ESTRUTURA"))
	assert.Equal(t, []string{"391"}, tax.Codes("INFRA", "Água"))

	require.NoError(t, tax.RenameSubgroup("INFRA", "Água", "Água e Esgoto"))
	assert.True(t, tax.HasCode("INFRA", "Água e Esgoto", "391"))
	require.ErrorAs(t, tax.RenameSubgroup("INFRA", "Luz", "Água e Esgoto"), &dup)

	var nf *NotFoundError
	require.ErrorAs(t, tax.RenameSubgroup("INFRA", "Gás", "Gás Natural"), &nf)
}

func TestTaxonomyDelete(t *testing.T) {
	tax := sampleTaxonomy()
	tax.RemoveCode("ESTRUTURA", "Água", "391")
	assert.Empty(t, tax.Codes("ESTRUTURA", "Água"))
	assert.True(t, tax.HasSubgroup("ESTRUTURA", "Água"))

	tax.DeleteSubgroup("ESTRUTURA", "Água")
	assert.False(t, tax.HasSubgroup("ESTRUTURA", "Água"))

	tax.DeleteGroup("ESTRUTURA")
	assert.False(t, tax.HasGroup("ESTRUTURA"))
	tax.DeleteGroup("ESTRUTURA")
}

func TestMergeProperties(t *testing.T) {
	for name, x := range map[string]Taxonomy{
		"sample":  sampleTaxonomy(),
		"default": DefaultTaxonomy(),
		"empty":   {},
	} {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, x, Merge(x, x), "merge(x, x)")
			assert.Equal(t, x, Merge(x, Taxonomy{}), "merge(x, {})")
		})
	}
}

func TestMergeUnions(t *testing.T) {
	base := sampleTaxonomy()
	incoming := Taxonomy{
		"ESTRUTURA": {"Água": {"391", " 392 ", ""}, "Gás": {"400"}},
		"NOVO":      {"Sub": {}},
	}
	got := Merge(base, incoming)

	assert.Equal(t, []string{"391", "392"}, got.Codes("ESTRUTURA", "Água"))
	assert.Equal(t, []string{"400"}, got.Codes("ESTRUTURA", "Gás"))
	assert.True(t, got.HasSubgroup("NOVO", "Sub"))
	assert.Equal(t, []string{"390"}, got.Codes("ESTRUTURA", "Luz"))
	assert.Equal(t, []string{"382"}, got.Codes("PESSOAL", "Pro Labore"))

	// never removes
	for _, g := range base.Groups() {
		for _, s := range base.Subgroups(g) {
			for _, c := range base.Codes(g, s) {
				assert.True(t, got.HasCode(g, s, c), "%s/%s/%s", g, s, c)
			}
		}
	}
	// inputs untouched
	assert.Equal(t, sampleTaxonomy(), base)
}

func TestDecodeTaxonomy(t *testing.T) {
	tax, err := DecodeTaxonomy([]byte(`{"ESTRUTURA":{"Água":[391,"100","391"],"Presente":[]}}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"100", "391"}, tax.Codes("ESTRUTURA", "Água"))
	assert.Equal(t, []string{}, tax.Codes("ESTRUTURA", "Presente"))

	for _, bad := range []string{
		`[]`,
		`{"G":[]}`,
		`{"G":{"S":"391"}}`,
		`{"G":{"S":[{"x":1}]}}`,
		`not json`,
	} {
		_, err := DecodeTaxonomy([]byte(bad))
		var verr *ValidationError
		assert.True(t, errors.As(err, &verr), "input %s", bad)
	}
}

func TestDefaultTaxonomy(t *testing.T) {
	tax := DefaultTaxonomy()
	assert.Equal(t, []string{"CARTÕES", "ESTRUTURA", "FORNECEDORES", "IMPOSTOS", "PESSOAL"}, tax.Groups())
	assert.Equal(t, []string{"391"}, tax.Codes("ESTRUTURA", "Água"))
	assert.Equal(t, []string{"376", "406"}, tax.Codes("FORNECEDORES", "Serviços Profissionais"))

	tax.DeleteGroup("PESSOAL")
	assert.True(t, DefaultTaxonomy().HasGroup("PESSOAL"), "each call returns a fresh copy")
}
