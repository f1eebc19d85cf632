package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"contas/internal/amqp"
	"contas/internal/sheets/memory"
	"contas/internal/storage"
)

type opener func(f *Factory, ctx context.Context, config Config) (*BackendResult, error)

var openers = map[BackendType]opener{
	SQLiteBackend:   (*Factory).openSQL,
	PostgresBackend: (*Factory).openSQL,
	MemoryBackend:   (*Factory).openMemory,
}

// Factory opens backends and logs what it wired.
type Factory struct {
	logger *slog.Logger
}

func NewFactory(logger *slog.Logger) *Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &Factory{logger: logger}
}

func (f *Factory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return openers[config.Type](f, ctx, config)
}

func (f *Factory) openSQL(ctx context.Context, config Config) (*BackendResult, error) {
	repo, err := OpenRepository(config)
	if err != nil {
		return nil, err
	}
	f.logger.InfoContext(ctx, "Initialized SQL backend", "type", config.Type)

	result := &BackendResult{Backend: repo, Repository: repo, Cleanup: repo.Close}
	if config.AMQPURL == "" {
		return result, nil
	}

	// An unreachable broker is not fatal: the sync queue still feeds the mirror.
	client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
	if err != nil {
		f.logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without notifications", "error", err)
		return result, nil
	}
	f.logger.InfoContext(ctx, "Initialized AMQP client",
		"exchange", config.AMQPExchange,
		"queue", config.AMQPQueue)

	result.Publisher = client
	result.Cleanup = func() error {
		return errors.Join(client.Close(), repo.Close())
	}
	return result, nil
}

func (f *Factory) openMemory(ctx context.Context, config Config) (*BackendResult, error) {
	var (
		store *memory.Store
		err   error
	)
	if config.SeedDir == "" {
		store = memory.New()
	} else if store, err = memory.NewFromFiles(config.SeedDir); err != nil {
		return nil, fmt.Errorf("failed to initialize memory backend: %w", err)
	}
	f.logger.InfoContext(ctx, "Initialized memory backend", "seed_dir", config.SeedDir)
	return &BackendResult{Backend: store}, nil
}

// OpenRepository opens and migrates the database of a SQL backend. The mirror
// worker uses it to reach the sync queue without a full session.
func OpenRepository(config Config) (*storage.Repository, error) {
	if !config.Type.IsSQL() {
		return nil, fmt.Errorf("backend %s has no database", config.Type)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		repo *storage.Repository
		err  error
	)
	if config.Type == PostgresBackend {
		repo, err = storage.NewPostgresRepository(config.DatabaseURL)
	} else {
		repo, err = storage.NewSQLiteRepository(config.SQLiteDBPath)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize %s repository: %w", config.Type, err)
	}
	return repo, nil
}
