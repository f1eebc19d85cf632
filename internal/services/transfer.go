package services

import (
	"context"
	"io"

	"contas/internal/backup"
	"contas/internal/core"
	"contas/internal/log"
	"contas/internal/sheets"
)

// ImportMode tells whether imported records join or replace the record set.
type ImportMode string

const (
	ImportAppend  ImportMode = "append"
	ImportReplace ImportMode = "replace"
)

// ImportOutcome reports a spreadsheet import. Pending is set in replace
// mode: nothing changes until it is committed.
type ImportOutcome struct {
	Imported int            `json:"imported"`
	Skipped  int            `json:"skipped"`
	Pending  *PendingChange `json:"pending,omitempty"`
}

// ImportSpreadsheet parses a table read from the first sheet of a
// spreadsheet. Append mode adds the rows at once; replace mode returns a
// proposal. A malformed table changes nothing.
func (s *Session) ImportSpreadsheet(ctx context.Context, table [][]string, mode ImportMode) (ImportOutcome, error) {
	switch mode {
	case ImportAppend, ImportReplace:
	default:
		return ImportOutcome{}, &core.ValidationError{Fields: []string{"mode"}, Msg: "unknown import mode " + string(mode)}
	}

	s.mu.Lock()
	res, err := sheets.ParseImportRows(table, s.now(), s.nextIDLocked)
	s.mu.Unlock()
	if err != nil {
		s.log.WarnContext(ctx, "Spreadsheet import rejected", log.FieldOperation, log.OpImport, log.FieldError, err)
		return ImportOutcome{}, err
	}

	out := ImportOutcome{Imported: len(res.Payables), Skipped: res.Skipped}
	if mode == ImportReplace {
		pc := s.ProposeReplacePayables(res.Payables)
		out.Pending = &pc
		return out, nil
	}

	s.AppendPayables(ctx, res.Payables)
	s.log.InfoContext(ctx, "Spreadsheet imported",
		log.FieldOperation, log.OpImport,
		log.FieldCount, out.Imported,
		"skipped", out.Skipped)
	return out, nil
}

// ImportSpreadsheetFrom reads the table through r and imports it.
func (s *Session) ImportSpreadsheetFrom(ctx context.Context, r sheets.TableReader, mode ImportMode) (ImportOutcome, error) {
	table, err := r.ReadTable(ctx)
	if err != nil {
		return ImportOutcome{}, err
	}
	return s.ImportSpreadsheet(ctx, table, mode)
}

// AppendPayables adds records, giving new ids to those without one or whose
// id is taken.
func (s *Session) AppendPayables(ctx context.Context, ps []core.Payable) []core.Payable {
	if len(ps) == 0 {
		return nil
	}
	s.mu.Lock()
	taken := make(map[int64]struct{}, len(s.payables))
	for _, p := range s.payables {
		taken[p.ID] = struct{}{}
	}
	added := s.assignIDsLocked(ps, taken)
	s.payables = append(s.payables, added...)
	s.changedLocked()
	s.mu.Unlock()

	s.persistUpsert(ctx, added, nil)
	return added
}

// ReplacePayables swaps the whole record set for ps.
func (s *Session) ReplacePayables(ctx context.Context, ps []core.Payable) []core.Payable {
	s.mu.Lock()
	added := s.assignIDsLocked(ps, map[int64]struct{}{})
	keep := make(map[int64]struct{}, len(added))
	for _, p := range added {
		keep[p.ID] = struct{}{}
	}
	// Ids reused by the new set are overwritten, not deleted, so the two
	// background writes cannot race on them.
	var stale []int64
	for _, p := range s.payables {
		if _, ok := keep[p.ID]; !ok {
			stale = append(stale, p.ID)
		}
	}
	removed := len(s.payables)
	s.payables = added
	s.changedLocked()
	s.mu.Unlock()

	s.persistDelete(ctx, stale)
	s.persistUpsert(ctx, added, nil)
	s.log.InfoContext(ctx, "Record set replaced",
		"removed", removed,
		log.FieldCount, len(added))
	return added
}

func (s *Session) assignIDsLocked(ps []core.Payable, taken map[int64]struct{}) []core.Payable {
	out := make([]core.Payable, 0, len(ps))
	for _, p := range ps {
		if _, dup := taken[p.ID]; p.ID <= 0 || dup {
			p.ID = s.nextIDLocked()
		} else if p.ID > s.lastID {
			s.lastID = p.ID
		}
		taken[p.ID] = struct{}{}
		out = append(out, p)
	}
	return out
}

// ExportBackup writes the record set, the taxonomy and the company identity.
func (s *Session) ExportBackup(w io.Writer) error {
	s.mu.Lock()
	records := append([]core.Payable(nil), s.payables...)
	tax := s.tax.Clone()
	s.mu.Unlock()

	if err := backup.Encode(w, records, tax, s.company, s.now()); err != nil {
		return err
	}
	s.log.Info("Backup exported", log.FieldOperation, log.OpExport, log.FieldCount, len(records))
	return nil
}

// ExportTaxonomy writes the taxonomy file.
func (s *Session) ExportTaxonomy(w io.Writer) error {
	return backup.EncodeTaxonomyFile(w, s.Taxonomy())
}

// ReadBackup decodes a backup document without touching the session.
func (s *Session) ReadBackup(r io.Reader) (backup.Backup, error) {
	return backup.Decode(r, s.now())
}

// RestoreBackup replaces the record set and, when the file carries one, the
// taxonomy.
func (s *Session) RestoreBackup(ctx context.Context, b backup.Backup) {
	s.ReplacePayables(ctx, b.Accounts)
	if b.DREConfig != nil {
		if err := s.ReplaceTaxonomy(ctx, b.DREConfig); err != nil {
			s.log.WarnContext(ctx, "Backup taxonomy ignored", log.FieldError, err)
		}
	}
	s.log.InfoContext(ctx, "Backup restored",
		log.FieldOperation, log.OpImport,
		log.FieldCount, len(b.Accounts),
		"with_taxonomy", b.DREConfig != nil)
}

// ReportWorkbook builds the three-sheet export of the report selected by q.
func (s *Session) ReportWorkbook(q core.ReportQuery) (sheets.Workbook, error) {
	rep, err := s.Report(q)
	if err != nil {
		return sheets.Workbook{}, err
	}
	return sheets.BuildReportWorkbook(rep, s.company, s.now()), nil
}

// ExportReport renders the report workbook through w.
func (s *Session) ExportReport(ctx context.Context, q core.ReportQuery, w sheets.WorkbookWriter) error {
	wb, err := s.ReportWorkbook(q)
	if err != nil {
		return err
	}
	if err := w.WriteWorkbook(ctx, wb); err != nil {
		return err
	}
	s.log.InfoContext(ctx, "Report exported", log.FieldOperation, log.OpExport, "title", q.Title())
	return nil
}
