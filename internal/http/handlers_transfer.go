package http

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"contas/internal/core"
	"contas/internal/log"
	"contas/internal/services"
	"contas/internal/sheets/xlsx"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	var q core.ReportQuery
	if err := decodeJSON(w, r, &q); err != nil {
		s.fail(w, r, log.OpRead, err)
		return
	}
	rep, err := s.session.Report(q)
	if err != nil {
		s.fail(w, r, log.OpRead, err)
		return
	}
	NewResponse().JSON(rep).Write(w)
}

func (s *Server) handleReportWorkbook(w http.ResponseWriter, r *http.Request) {
	var q core.ReportQuery
	if err := decodeJSON(w, r, &q); err != nil {
		s.fail(w, r, log.OpExport, err)
		return
	}
	wb, err := s.session.ReportWorkbook(q)
	if err != nil {
		s.fail(w, r, log.OpExport, err)
		return
	}
	var buf bytes.Buffer
	if err := xlsx.Write(&buf, wb); err != nil {
		s.fail(w, r, log.OpExport, err)
		return
	}
	NewResponse().
		Attachment(reportFileName(q, s.session.Today())).
		Bytes(xlsxContentType, buf.Bytes()).
		Write(w)
}

// reportFileName names the export after its window.
func reportFileName(q core.ReportQuery, today core.Date) string {
	switch q.Mode {
	case core.ModeMonth:
		return fmt.Sprintf("relatorio-dre-%04d-%02d.xlsx", q.Year, q.Month)
	case core.ModeYear:
		return fmt.Sprintf("relatorio-dre-%04d.xlsx", q.Year)
	default:
		return "relatorio-dre-" + today.String() + ".xlsx"
	}
}

// handleImportSpreadsheet reads the first sheet of an uploaded workbook.
// mode=append (default) adds the rows; mode=replace returns a proposal.
func (s *Server) handleImportSpreadsheet(w http.ResponseWriter, r *http.Request) {
	mode := services.ImportMode(strings.TrimSpace(r.URL.Query().Get("mode")))
	if mode == "" {
		mode = services.ImportAppend
	}
	data, err := readUpload(w, r)
	if err != nil {
		s.fail(w, r, log.OpImport, err)
		return
	}
	table, err := xlsx.ReadTableFrom(bytes.NewReader(data))
	if err != nil {
		s.fail(w, r, log.OpImport, err)
		return
	}
	out, err := s.session.ImportSpreadsheet(r.Context(), table, mode)
	if err != nil {
		s.fail(w, r, log.OpImport, err)
		return
	}
	status := http.StatusOK
	if out.Pending != nil {
		status = http.StatusAccepted
	}
	NewResponse().Status(status).JSON(out).Write(w)
}

func (s *Server) handleExportBackup(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := s.session.ExportBackup(&buf); err != nil {
		s.fail(w, r, log.OpExport, err)
		return
	}
	name := "contas-backup-" + s.session.Today().String() + ".json"
	NewResponse().
		Attachment(name).
		Bytes("application/json", buf.Bytes()).
		Write(w)
}

// handleRestoreBackup decodes the uploaded backup and proposes to restore
// it. A malformed file is rejected before any proposal exists.
func (s *Server) handleRestoreBackup(w http.ResponseWriter, r *http.Request) {
	data, err := readUpload(w, r)
	if err != nil {
		s.fail(w, r, log.OpImport, err)
		return
	}
	b, err := s.session.ReadBackup(bytes.NewReader(data))
	if err != nil {
		s.fail(w, r, log.OpImport, err)
		return
	}
	pc := s.session.ProposeRestore(b)
	NewResponse().Status(http.StatusAccepted).JSON(pc).Write(w)
}

func (s *Server) handleListPending(w http.ResponseWriter, r *http.Request) {
	NewResponse().JSON(s.session.PendingChanges()).Write(w)
}

func (s *Server) handleCommitPending(w http.ResponseWriter, r *http.Request) {
	pc, err := s.session.Commit(r.Context(), chi.URLParam(r, "changeID"))
	if err != nil {
		s.fail(w, r, log.OpUpdate, err)
		return
	}
	NewResponse().JSON(pc).Write(w)
}

func (s *Server) handleDiscardPending(w http.ResponseWriter, r *http.Request) {
	if err := s.session.Discard(chi.URLParam(r, "changeID")); err != nil {
		s.fail(w, r, log.OpDelete, err)
		return
	}
	NewResponse().Status(http.StatusNoContent).Write(w)
}
