package backup

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"contas/internal/core"
)

// Legacy file names, one per key of the old local store.
const (
	LegacyAccountsFile = "accounts-payable-data.json"
	LegacyTaxonomyFile = "cq-dre-config.json"
	LegacySchemaFile   = "cq-schema-version.json"
)

// LegacyDir is the local fallback store left by older versions. An empty
// Path disables it.
type LegacyDir struct {
	Path string
}

// Accounts reads and migrates the legacy records. A missing or unreadable
// file yields no records; only I/O failures other than absence are errors.
func (d LegacyDir) Accounts(now time.Time) ([]core.Payable, error) {
	if d.Path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(filepath.Join(d.Path, LegacyAccountsFile))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read legacy accounts: %w", err)
	}
	var raw []map[string]any
	if err := decodeNumbers(data, &raw); err != nil {
		return nil, &core.ImportFormatError{Source: LegacyAccountsFile, Err: err}
	}
	return MigrateRecords(raw, now), nil
}

// Taxonomy reads the legacy taxonomy; found is false when there is none.
func (d LegacyDir) Taxonomy() (core.Taxonomy, bool, error) {
	if d.Path == "" {
		return nil, false, nil
	}
	data, err := os.ReadFile(filepath.Join(d.Path, LegacyTaxonomyFile))
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read legacy taxonomy: %w", err)
	}
	tax, err := core.DecodeTaxonomy(data)
	if err != nil {
		return nil, false, &core.ImportFormatError{Source: LegacyTaxonomyFile, Err: err}
	}
	return tax, true, nil
}

// SchemaVersion returns the version recorded next to the legacy records, 0
// when absent.
func (d LegacyDir) SchemaVersion() int {
	if d.Path == "" {
		return 0
	}
	data, err := os.ReadFile(filepath.Join(d.Path, LegacySchemaFile))
	if err != nil {
		return 0
	}
	var v int
	if err := json.Unmarshal(data, &v); err != nil {
		return 0
	}
	return v
}

// ClearAccounts removes the legacy records and their schema version once
// they were migrated.
func (d LegacyDir) ClearAccounts() error {
	return d.remove(LegacyAccountsFile, LegacySchemaFile)
}

// ClearTaxonomy removes the legacy taxonomy once it was migrated.
func (d LegacyDir) ClearTaxonomy() error {
	return d.remove(LegacyTaxonomyFile)
}

// WriteAccounts stores records in the legacy layout. Used to seed the
// fallback directory and by tests.
func (d LegacyDir) WriteAccounts(records []core.Payable) error {
	if err := os.MkdirAll(d.Path, 0o755); err != nil {
		return err
	}
	data, err := json.Marshal(records)
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(d.Path, LegacyAccountsFile), data, 0o644); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(d.Path, LegacySchemaFile), []byte(fmt.Sprint(SchemaVersion)), 0o644)
}

func (d LegacyDir) remove(names ...string) error {
	if d.Path == "" {
		return nil
	}
	var errs []error
	for _, n := range names {
		if err := os.Remove(filepath.Join(d.Path, n)); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
