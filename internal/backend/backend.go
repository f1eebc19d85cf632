// Package backend turns DATA_BACKEND into an opened store. SQL backends also
// expose their Repository, which owns the mirror sync queue, and attach an
// AMQP publisher when a broker is configured.
package backend

import (
	"errors"
	"fmt"

	"contas/internal/config"
	"contas/internal/services"
	"contas/internal/sheets"
	"contas/internal/storage"
)

type BackendType string

const (
	SQLiteBackend   BackendType = "sqlite"
	PostgresBackend BackendType = "postgres"
	MemoryBackend   BackendType = "memory"
)

func (bt BackendType) String() string { return string(bt) }

func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, PostgresBackend, MemoryBackend:
		return true
	}
	return false
}

// IsSQL reports whether the backend keeps a database sync queue.
func (bt BackendType) IsSQL() bool {
	return bt == SQLiteBackend || bt == PostgresBackend
}

type Config struct {
	Type BackendType

	SQLiteDBPath string
	DatabaseURL  string

	// AMQP is optional and only used by SQL backends.
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// SeedDir is where the memory backend looks for seed_taxonomy.json.
	SeedDir string
}

func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, errors.New("app config is nil")
	}
	bt := BackendType(appConfig.DataBackend)
	if !bt.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}
	return Config{
		Type:         bt,
		SQLiteDBPath: appConfig.SQLiteDBPath,
		DatabaseURL:  appConfig.DatabaseURL,
		AMQPURL:      appConfig.AMQPURL,
		AMQPExchange: appConfig.AMQPExchange,
		AMQPQueue:    appConfig.AMQPQueue,
		SeedDir:      appConfig.MemorySeedDir,
	}, nil
}

func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}
	if c.Type == SQLiteBackend && c.SQLiteDBPath == "" {
		return errors.New("SQLite database path is required for sqlite backend")
	}
	if c.Type == PostgresBackend && c.DatabaseURL == "" {
		return errors.New("database URL is required for postgres backend")
	}
	if c.AMQPURL != "" && (c.AMQPExchange == "" || c.AMQPQueue == "") {
		return errors.New("AMQP exchange and queue are required when AMQP URL is set")
	}
	return nil
}

// BackendResult is an opened backend. Repository is nil for the memory
// backend; Publisher is nil unless a broker answered. Cleanup, when set,
// releases everything that was opened.
type BackendResult struct {
	Backend    sheets.Store
	Repository *storage.Repository
	Publisher  services.Publisher
	Cleanup    func() error
}
