package http

import (
	"bytes"
	"net/http"
	"strings"

	"contas/internal/backup"
	"contas/internal/log"
)

type nameRequest struct {
	Name string `json:"name"`
}

type codeRequest struct {
	Code string `json:"code"`
}

type renameRequest struct {
	Name    string `json:"name"`
	Cascade bool   `json:"cascade"`
}

func (s *Server) writeTaxonomy(w http.ResponseWriter, status int) {
	NewResponse().Status(status).JSON(s.session.Taxonomy()).Write(w)
}

func (s *Server) handleGetTaxonomy(w http.ResponseWriter, r *http.Request) {
	s.writeTaxonomy(w, http.StatusOK)
}

func (s *Server) handleExportTaxonomy(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := s.session.ExportTaxonomy(&buf); err != nil {
		s.fail(w, r, log.OpExport, err)
		return
	}
	NewResponse().
		Attachment("dre-config.json").
		Bytes("application/json", buf.Bytes()).
		Write(w)
}

// handleImportTaxonomy merges an uploaded taxonomy file at once, or
// proposes to replace the taxonomy with it when mode=replace.
func (s *Server) handleImportTaxonomy(w http.ResponseWriter, r *http.Request) {
	mode := strings.TrimSpace(r.URL.Query().Get("mode"))
	if mode == "" {
		mode = "merge"
	}
	if mode != "merge" && mode != "replace" {
		s.fail(w, r, log.OpImport, badRequest("unknown mode %q", mode))
		return
	}

	data, err := readUpload(w, r)
	if err != nil {
		s.fail(w, r, log.OpImport, err)
		return
	}
	tax, err := backup.DecodeTaxonomyFile(bytes.NewReader(data))
	if err != nil {
		s.fail(w, r, log.OpImport, err)
		return
	}

	if mode == "replace" {
		pc, err := s.session.ProposeReplaceTaxonomy(tax)
		if err != nil {
			s.fail(w, r, log.OpImport, err)
			return
		}
		NewResponse().Status(http.StatusAccepted).JSON(pc).Write(w)
		return
	}

	if err := s.session.MergeTaxonomy(r.Context(), tax); err != nil {
		s.fail(w, r, log.OpImport, err)
		return
	}
	s.writeTaxonomy(w, http.StatusOK)
}

func (s *Server) handleAddGroup(w http.ResponseWriter, r *http.Request) {
	var req nameRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, log.OpCreate, err)
		return
	}
	if err := s.session.AddGroup(r.Context(), sanitizeInput(req.Name)); err != nil {
		s.fail(w, r, log.OpCreate, err)
		return
	}
	s.writeTaxonomy(w, http.StatusCreated)
}

// handleRenameGroup applies a plain rename at once. A cascading rename
// touches records and is returned as a proposal.
func (s *Server) handleRenameGroup(w http.ResponseWriter, r *http.Request) {
	var req renameRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, log.OpUpdate, err)
		return
	}
	pc, err := s.session.ProposeRenameGroup(r.Context(), pathParam(r, "group"), sanitizeInput(req.Name), req.Cascade)
	if err != nil {
		s.fail(w, r, log.OpUpdate, err)
		return
	}
	if pc != nil {
		NewResponse().Status(http.StatusAccepted).JSON(pc).Write(w)
		return
	}
	s.writeTaxonomy(w, http.StatusOK)
}

func (s *Server) handleDeleteGroup(w http.ResponseWriter, r *http.Request) {
	pc, err := s.session.ProposeDeleteGroup(pathParam(r, "group"))
	if err != nil {
		s.fail(w, r, log.OpDelete, err)
		return
	}
	NewResponse().Status(http.StatusAccepted).JSON(pc).Write(w)
}

func (s *Server) handleAddSubgroup(w http.ResponseWriter, r *http.Request) {
	var req nameRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, log.OpCreate, err)
		return
	}
	if err := s.session.AddSubgroup(r.Context(), pathParam(r, "group"), sanitizeInput(req.Name)); err != nil {
		s.fail(w, r, log.OpCreate, err)
		return
	}
	s.writeTaxonomy(w, http.StatusCreated)
}

func (s *Server) handleRenameSubgroup(w http.ResponseWriter, r *http.Request) {
	var req renameRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, log.OpUpdate, err)
		return
	}
	pc, err := s.session.ProposeRenameSubgroup(r.Context(),
		pathParam(r, "group"), pathParam(r, "subgroup"), sanitizeInput(req.Name), req.Cascade)
	if err != nil {
		s.fail(w, r, log.OpUpdate, err)
		return
	}
	if pc != nil {
		NewResponse().Status(http.StatusAccepted).JSON(pc).Write(w)
		return
	}
	s.writeTaxonomy(w, http.StatusOK)
}

func (s *Server) handleDeleteSubgroup(w http.ResponseWriter, r *http.Request) {
	pc, err := s.session.ProposeDeleteSubgroup(pathParam(r, "group"), pathParam(r, "subgroup"))
	if err != nil {
		s.fail(w, r, log.OpDelete, err)
		return
	}
	NewResponse().Status(http.StatusAccepted).JSON(pc).Write(w)
}

func (s *Server) handleAddCode(w http.ResponseWriter, r *http.Request) {
	var req codeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, log.OpCreate, err)
		return
	}
	group, subgroup := pathParam(r, "group"), pathParam(r, "subgroup")
	if err := s.session.AddCode(r.Context(), group, subgroup, sanitizeInput(req.Code)); err != nil {
		s.fail(w, r, log.OpCreate, err)
		return
	}
	NewResponse().Status(http.StatusCreated).JSON(map[string]any{
		"group":    group,
		"subgroup": subgroup,
		"codes":    s.session.Taxonomy().Codes(group, subgroup),
	}).Write(w)
}

func (s *Server) handleRemoveCode(w http.ResponseWriter, r *http.Request) {
	group, subgroup := pathParam(r, "group"), pathParam(r, "subgroup")
	if err := s.session.RemoveCode(r.Context(), group, subgroup, pathParam(r, "code")); err != nil {
		s.fail(w, r, log.OpDelete, err)
		return
	}
	codes := s.session.Taxonomy().Codes(group, subgroup)
	if codes == nil {
		codes = []string{}
	}
	NewResponse().JSON(map[string]any{
		"group":    group,
		"subgroup": subgroup,
		"codes":    codes,
	}).Write(w)
}
