package backend

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contas/internal/config"
	"contas/internal/core"
)

func TestFromAppConfig(t *testing.T) {
	t.Run("nil config", func(t *testing.T) {
		_, err := FromAppConfig(nil)
		assert.Error(t, err)
	})

	t.Run("invalid backend", func(t *testing.T) {
		_, err := FromAppConfig(&config.Config{DataBackend: "sheets"})
		assert.Error(t, err)
	})

	t.Run("copies storage and broker settings", func(t *testing.T) {
		cfg, err := FromAppConfig(&config.Config{
			DataBackend:   "postgres",
			DatabaseURL:   "postgres://localhost/contas",
			AMQPURL:       "amqp://localhost/",
			AMQPExchange:  "contas",
			AMQPQueue:     "sync_payables",
			MemorySeedDir: "seed",
		})
		require.NoError(t, err)
		assert.Equal(t, PostgresBackend, cfg.Type)
		assert.Equal(t, "postgres://localhost/contas", cfg.DatabaseURL)
		assert.Equal(t, "contas", cfg.AMQPExchange)
		assert.Equal(t, "seed", cfg.SeedDir)
	})
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{"memory", Config{Type: MemoryBackend}, false},
		{"sqlite", Config{Type: SQLiteBackend, SQLiteDBPath: "x.db"}, false},
		{"sqlite without path", Config{Type: SQLiteBackend}, true},
		{"postgres without url", Config{Type: PostgresBackend}, true},
		{"unknown type", Config{Type: "sheets"}, true},
		{"amqp without queue", Config{Type: MemoryBackend, AMQPURL: "amqp://x/", AMQPExchange: "e"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestBackendTypes(t *testing.T) {
	for bt := range openers {
		assert.True(t, bt.IsValid(), "opener registered for %s", bt)
	}
	assert.False(t, BackendType("sheets").IsValid())
	assert.True(t, SQLiteBackend.IsSQL())
	assert.True(t, PostgresBackend.IsSQL())
	assert.False(t, MemoryBackend.IsSQL())
}

func TestFactory_CreateBackend(t *testing.T) {
	ctx := context.Background()
	factory := NewFactory(nil)

	t.Run("memory", func(t *testing.T) {
		result, err := factory.CreateBackend(ctx, Config{Type: MemoryBackend, SeedDir: t.TempDir()})
		require.NoError(t, err)
		assert.NotNil(t, result.Backend)
		assert.Nil(t, result.Repository)
		assert.Nil(t, result.Publisher)
		assert.Nil(t, result.Cleanup)
	})

	t.Run("memory without seed dir", func(t *testing.T) {
		result, err := factory.CreateBackend(ctx, Config{Type: MemoryBackend})
		require.NoError(t, err)
		_, found, err := result.Backend.LoadTaxonomy(ctx)
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("sqlite without broker", func(t *testing.T) {
		result, err := factory.CreateBackend(ctx, Config{
			Type:         SQLiteBackend,
			SQLiteDBPath: filepath.Join(t.TempDir(), "contas.db"),
		})
		require.NoError(t, err)
		require.NotNil(t, result.Repository)
		assert.Nil(t, result.Publisher)
		t.Cleanup(func() { _ = result.Cleanup() })

		p := core.Payable{ID: 1, Description: "Luz", DueDate: "2024-01-10", Amount: 10, ExpenseType: core.ExpenseFixed}
		require.NoError(t, result.Backend.UpsertPayables(ctx, p))
		list, err := result.Backend.ListPayables(ctx)
		require.NoError(t, err)
		assert.Len(t, list, 1)
	})

	t.Run("invalid config", func(t *testing.T) {
		_, err := factory.CreateBackend(ctx, Config{Type: SQLiteBackend})
		assert.Error(t, err)
	})
}

func TestOpenRepository(t *testing.T) {
	repo, err := OpenRepository(Config{Type: SQLiteBackend, SQLiteDBPath: filepath.Join(t.TempDir(), "contas.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	assert.NoError(t, repo.Ping(context.Background()))

	_, err = OpenRepository(Config{Type: MemoryBackend})
	assert.Error(t, err)
}
