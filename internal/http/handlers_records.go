package http

import (
	"net/http"

	"labcash/internal/core"
	"labcash/internal/finance"
)

func (s *Server) handleListRevenue(w http.ResponseWriter, r *http.Request) {
	m, ok := s.monthFromRequest(w, r)
	if !ok {
		return
	}
	snap, err := s.records.Snapshot(r.Context())
	if err != nil {
		errorResponseFor(r, err).Write(w)
		return
	}
	NewJSONResponse().Body(finance.InMonth(m, snap.Revenue)).Write(w)
}

func (s *Server) handleAddRevenue(w http.ResponseWriter, r *http.Request) {
	p, ok := parseBody(w, r)
	if !ok {
		return
	}
	date, err := s.dateField(p)
	if err != nil {
		errorResponseFor(r, err).Write(w)
		return
	}
	shift, err := core.ParseShift(p.Get("shift"))
	if err != nil {
		errorResponseFor(r, err).Write(w)
		return
	}
	amount, err := amountField(p)
	if err != nil {
		errorResponseFor(r, err).Write(w)
		return
	}

	entry, _, err := s.records.AddRevenue(r.Context(), date, shift, amount)
	if err != nil {
		errorResponseFor(r, err).Write(w)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(entry).Write(w)
}

func (s *Server) handleDeleteRevenue(w http.ResponseWriter, r *http.Request) {
	if _, err := s.records.DeleteRevenue(r.Context(), r.PathValue("id")); err != nil {
		errorResponseFor(r, err).Write(w)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	m, ok := s.monthFromRequest(w, r)
	if !ok {
		return
	}
	snap, err := s.records.Snapshot(r.Context())
	if err != nil {
		errorResponseFor(r, err).Write(w)
		return
	}
	NewJSONResponse().Body(finance.InMonth(m, snap.Expenses)).Write(w)
}

func (s *Server) handleAddExpense(w http.ResponseWriter, r *http.Request) {
	p, ok := parseBody(w, r)
	if !ok {
		return
	}
	date, err := s.dateField(p)
	if err != nil {
		errorResponseFor(r, err).Write(w)
		return
	}
	amount, err := amountField(p)
	if err != nil {
		errorResponseFor(r, err).Write(w)
		return
	}

	exp, _, err := s.records.AddExpense(r.Context(), date, amount, p.Get("description"), p.Get("remarks"))
	if err != nil {
		errorResponseFor(r, err).Write(w)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(exp).Write(w)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	if _, err := s.records.DeleteExpense(r.Context(), r.PathValue("id")); err != nil {
		errorResponseFor(r, err).Write(w)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListAdvances(w http.ResponseWriter, r *http.Request) {
	m, ok := s.monthFromRequest(w, r)
	if !ok {
		return
	}
	snap, err := s.records.Snapshot(r.Context())
	if err != nil {
		errorResponseFor(r, err).Write(w)
		return
	}
	NewJSONResponse().Body(finance.InMonth(m, snap.Advances)).Write(w)
}

// handleAddAdvance requires a staffId from the current roster.
func (s *Server) handleAddAdvance(w http.ResponseWriter, r *http.Request) {
	p, ok := parseBody(w, r)
	if !ok {
		return
	}
	date, err := s.dateField(p)
	if err != nil {
		errorResponseFor(r, err).Write(w)
		return
	}
	amount, err := amountField(p)
	if err != nil {
		errorResponseFor(r, err).Write(w)
		return
	}

	adv, _, err := s.records.AddAdvance(r.Context(), date, amount, p.Get("staffId"), p.Get("remarks"))
	if err != nil {
		errorResponseFor(r, err).Write(w)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(adv).Write(w)
}

func (s *Server) handleDeleteAdvance(w http.ResponseWriter, r *http.Request) {
	if _, err := s.records.DeleteAdvance(r.Context(), r.PathValue("id")); err != nil {
		errorResponseFor(r, err).Write(w)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListStaff(w http.ResponseWriter, r *http.Request) {
	snap, err := s.records.Snapshot(r.Context())
	if err != nil {
		errorResponseFor(r, err).Write(w)
		return
	}
	NewJSONResponse().Body(nonNil(snap.Staff)).Write(w)
}

func (s *Server) handleAddStaff(w http.ResponseWriter, r *http.Request) {
	p, ok := parseBody(w, r)
	if !ok {
		return
	}
	member, _, err := s.records.AddStaff(r.Context(), p.Get("name"), p.Get("role"))
	if err != nil {
		errorResponseFor(r, err).Write(w)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(member).Write(w)
}

// handleRemoveStaff leaves the member's advances in place; they show up as
// orphan advances in reports.
func (s *Server) handleRemoveStaff(w http.ResponseWriter, r *http.Request) {
	if _, err := s.records.RemoveStaff(r.Context(), r.PathValue("id")); err != nil {
		errorResponseFor(r, err).Write(w)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// nonNil makes empty lists encode as [] rather than null.
func nonNil[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return in
}
