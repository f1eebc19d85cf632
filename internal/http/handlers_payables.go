package http

import (
	"errors"
	"net/http"

	"contas/internal/core"
	"contas/internal/log"
)

// PayableView is a record with its status derived for today.
type PayableView struct {
	core.Payable
	Status core.Status `json:"status"`
}

type fieldEditRequest struct {
	Value string `json:"value"`
}

func (s *Server) view(p core.Payable) PayableView {
	return PayableView{Payable: p, Status: core.DeriveStatus(p, s.session.Today())}
}

func (s *Server) handleListPayables(w http.ResponseWriter, r *http.Request) {
	listing, err := s.session.List(parseFilter(r.URL.Query()))
	if err != nil {
		s.fail(w, r, log.OpList, err)
		return
	}
	NewResponse().JSON(listing).Write(w)
}

func (s *Server) handleCreatePayable(w http.ResponseWriter, r *http.Request) {
	var in core.PayableInput
	if err := decodeJSON(w, r, &in); err != nil {
		s.fail(w, r, log.OpCreate, err)
		return
	}
	p, err := s.session.Create(r.Context(), in)
	if err != nil {
		s.fail(w, r, log.OpCreate, err)
		return
	}
	NewResponse().Status(http.StatusCreated).JSON(s.view(p)).Write(w)
}

func (s *Server) handleGetPayable(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		s.fail(w, r, log.OpRead, err)
		return
	}
	p, err := s.session.Get(id)
	if err != nil {
		s.fail(w, r, log.OpRead, err)
		return
	}
	NewResponse().JSON(s.view(p)).Write(w)
}

func (s *Server) handleUpdatePayable(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		s.fail(w, r, log.OpUpdate, err)
		return
	}
	var u core.PayableUpdate
	if err := decodeJSON(w, r, &u); err != nil {
		s.fail(w, r, log.OpUpdate, err)
		return
	}
	p, err := s.session.Update(r.Context(), id, u)
	if err != nil {
		s.fail(w, r, log.OpUpdate, err)
		return
	}
	NewResponse().JSON(s.view(p)).Write(w)
}

// handleDeletePayable only proposes the deletion; it happens on commit.
// Deleting an absent record is a no-op.
func (s *Server) handleDeletePayable(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		s.fail(w, r, log.OpDelete, err)
		return
	}
	pc, err := s.session.ProposeDelete(id)
	var nf *core.NotFoundError
	if errors.As(err, &nf) {
		NewResponse().Status(http.StatusNoContent).Write(w)
		return
	}
	if err != nil {
		s.fail(w, r, log.OpDelete, err)
		return
	}
	NewResponse().Status(http.StatusAccepted).JSON(pc).Write(w)
}

func (s *Server) handleConfirmPayment(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		s.fail(w, r, log.OpPay, err)
		return
	}
	var in core.PaymentInput
	if err := decodeJSON(w, r, &in); err != nil {
		s.fail(w, r, log.OpPay, err)
		return
	}
	p, err := s.session.ConfirmPayment(r.Context(), id, in)
	if err != nil {
		s.fail(w, r, log.OpPay, err)
		return
	}
	NewResponse().JSON(s.view(p)).Write(w)
}

func (s *Server) handleEditField(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		s.fail(w, r, log.OpUpdate, err)
		return
	}
	var req fieldEditRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, log.OpUpdate, err)
		return
	}
	pc, err := s.session.ProposeEdit(id, pathParam(r, "field"), req.Value)
	if err != nil {
		s.fail(w, r, log.OpUpdate, err)
		return
	}
	NewResponse().Status(http.StatusAccepted).JSON(pc).Write(w)
}

// handleGenerateRecurring projects the recurring records of the given
// month (default: this month) into the next one.
func (s *Server) handleGenerateRecurring(w http.ResponseWriter, r *http.Request) {
	params, err := parseMonthParams(r.URL.Query(), s.session.Today())
	if err != nil {
		s.fail(w, r, log.OpCreate, err)
		return
	}
	plan, err := s.session.GenerateRecurring(r.Context(), params.Year, params.Month)
	if err != nil {
		s.fail(w, r, log.OpCreate, err)
		return
	}
	status := http.StatusOK
	if len(plan.Generated) > 0 {
		status = http.StatusCreated
	}
	NewResponse().Status(status).JSON(plan).Write(w)
}
