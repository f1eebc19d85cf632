// Package backup reads and writes the JSON backup and taxonomy files and
// migrates legacy record shapes into core.Payable.
package backup

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"contas/internal/core"
)

// SchemaVersion tags files written by Encode.
const SchemaVersion = 2

// Backup is the full record set plus the taxonomy and company identity.
// DREConfig is nil when a restored file carried no taxonomy.
type Backup struct {
	SchemaVersion int            `json:"schemaVersion"`
	ExportedAt    time.Time      `json:"exportedAt"`
	Accounts      []core.Payable `json:"accounts"`
	DREConfig     core.Taxonomy  `json:"dreConfig"`
	Company       core.Company   `json:"company"`
}

// Encode writes an indented backup document.
func Encode(w io.Writer, accounts []core.Payable, tax core.Taxonomy, company core.Company, now time.Time) error {
	if accounts == nil {
		accounts = []core.Payable{}
	}
	b := Backup{
		SchemaVersion: SchemaVersion,
		ExportedAt:    now.UTC(),
		Accounts:      accounts,
		DREConfig:     tax,
		Company:       company,
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(b); err != nil {
		return fmt.Errorf("encode backup: %w", err)
	}
	return nil
}

// Decode reads a backup. A bare array is accepted as a record list without
// taxonomy. Records in any legacy shape are migrated; now fills missing
// timestamps.
func Decode(r io.Reader, now time.Time) (Backup, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Backup{}, &core.ImportFormatError{Source: "backup", Err: err}
	}
	data = bytes.TrimSpace(data)

	var rawAccounts []map[string]any
	var out Backup

	if len(data) > 0 && data[0] == '[' {
		if err := decodeNumbers(data, &rawAccounts); err != nil {
			return Backup{}, &core.ImportFormatError{Source: "backup", Err: err}
		}
	} else {
		var doc struct {
			SchemaVersion int               `json:"schemaVersion"`
			ExportedAt    time.Time         `json:"exportedAt"`
			Accounts      *[]map[string]any `json:"accounts"`
			DREConfig     json.RawMessage   `json:"dreConfig"`
			Company       *core.Company     `json:"company"`
		}
		if err := decodeNumbers(data, &doc); err != nil {
			return Backup{}, &core.ImportFormatError{Source: "backup", Err: err}
		}
		if doc.Accounts == nil {
			return Backup{}, &core.ImportFormatError{Source: "backup", Err: errors.New("missing accounts list")}
		}
		rawAccounts = *doc.Accounts
		out.SchemaVersion = doc.SchemaVersion
		out.ExportedAt = doc.ExportedAt
		if doc.Company != nil {
			out.Company = *doc.Company
		}
		if raw := bytes.TrimSpace(doc.DREConfig); len(raw) > 0 && !bytes.Equal(raw, []byte("null")) {
			tax, err := core.DecodeTaxonomy(raw)
			if err != nil {
				return Backup{}, &core.ImportFormatError{Source: "backup", Err: err}
			}
			out.DREConfig = tax
		}
	}

	out.Accounts = MigrateRecords(rawAccounts, now)
	return out, nil
}

// DecodeTaxonomyFile reads a taxonomy-only file.
func DecodeTaxonomyFile(r io.Reader) (core.Taxonomy, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &core.ImportFormatError{Source: "taxonomy", Err: err}
	}
	tax, err := core.DecodeTaxonomy(data)
	if err != nil {
		return nil, &core.ImportFormatError{Source: "taxonomy", Err: err}
	}
	return tax, nil
}

// EncodeTaxonomyFile writes the taxonomy alone, indented.
func EncodeTaxonomyFile(w io.Writer, t core.Taxonomy) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(t.Normalize()); err != nil {
		return fmt.Errorf("encode taxonomy: %w", err)
	}
	return nil
}

func decodeNumbers(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(v)
}
