package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"labcash/internal/finance"
)

func (s *Server) handleStatement(w http.ResponseWriter, r *http.Request) {
	m, ok := s.monthFromRequest(w, r)
	if !ok {
		return
	}
	rep, err := s.reports.MonthlyReport(r.Context(), m)
	if err != nil {
		errorResponseFor(r, err).Write(w)
		return
	}
	NewJSONResponse().Body(rep.Statement).Write(w)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	m, ok := s.monthFromRequest(w, r)
	if !ok {
		return
	}
	rep, err := s.reports.MonthlyReport(r.Context(), m)
	if err != nil {
		errorResponseFor(r, err).Write(w)
		return
	}
	NewJSONResponse().Body(rep).Write(w)
}

func (s *Server) handleLedger(w http.ResponseWriter, r *http.Request) {
	m, ok := s.monthFromRequest(w, r)
	if !ok {
		return
	}
	ledger, err := s.reports.StaffLedger(r.Context(), m, r.PathValue("staffID"))
	if err != nil {
		errorResponseFor(r, err).Write(w)
		return
	}
	NewJSONResponse().Body(ledger).Write(w)
}

type dailyResponse struct {
	Month     string               `json:"month"`
	Days      []finance.DayTotal   `json:"days"`
	Groups    []finance.DayGroup   `json:"groups"`
	Shifts    []finance.ShiftTotal `json:"shifts"`
	BestShift *finance.ShiftTotal  `json:"bestShift,omitempty"`
}

func (s *Server) handleDaily(w http.ResponseWriter, r *http.Request) {
	m, ok := s.monthFromRequest(w, r)
	if !ok {
		return
	}
	rep, err := s.reports.MonthlyReport(r.Context(), m)
	if err != nil {
		errorResponseFor(r, err).Write(w)
		return
	}

	resp := dailyResponse{
		Month:  m.String(),
		Days:   nonNil(rep.DailyTotals),
		Groups: nonNil(rep.DayGroups),
		Shifts: nonNil(rep.ShiftTotals),
	}
	if best, ok := finance.BestShift(rep.ShiftTotals); ok {
		resp.BestShift = &best
	}
	NewJSONResponse().Body(resp).Write(w)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	m, ok := s.monthFromRequest(w, r)
	if !ok {
		return
	}
	res, err := s.reports.Summary(r.Context(), m)
	if err != nil {
		errorResponseFor(r, err).Write(w)
		return
	}
	NewJSONResponse().Body(res).Write(w)
}

// handleCashCount accepts {"counts": {"5000": 3, "1000": 2}} or
// {"text": "5000=3 1000=2"}. Form bodies may use the text field too.
func (s *Server) handleCashCount(w http.ResponseWriter, r *http.Request) {
	p, ok := parseBody(w, r)
	if !ok {
		return
	}

	var counts map[int]int64
	if raw, ok := p.Value("counts"); ok {
		parsed, err := countsFromJSON(raw)
		if err != nil {
			errorResponseFor(r, err).Write(w)
			return
		}
		counts = parsed
	} else {
		parsed, err := finance.ParseCounts(p.Get("text"))
		if err != nil {
			errorResponseFor(r, err).Write(w)
			return
		}
		counts = parsed
	}

	res, err := finance.CountCash(counts)
	if err != nil {
		errorResponseFor(r, err).Write(w)
		return
	}
	NewJSONResponse().Body(res).Write(w)
}

func countsFromJSON(raw any) (map[int]int64, error) {
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: counts must be an object", finance.ErrInvalidCount)
	}
	counts := make(map[int]int64, len(obj))
	for k, v := range obj {
		denom, err := strconv.Atoi(k)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", finance.ErrUnknownDenomination, k)
		}
		num, ok := v.(json.Number)
		if !ok {
			return nil, fmt.Errorf("%w: %v", finance.ErrInvalidCount, v)
		}
		n, err := num.Int64()
		if err != nil {
			return nil, fmt.Errorf("%w: %s", finance.ErrInvalidCount, num)
		}
		counts[denom] = n
	}
	return counts, nil
}
