package http

import (
	"net/http"

	"github.com/shopspring/decimal"

	"labcash/internal/core"
)

// monthFromRequest resolves ?month= against the current month. On error it
// has already written a 400.
func (s *Server) monthFromRequest(w http.ResponseWriter, r *http.Request) (core.Month, bool) {
	m, err := ParseMonthParam(r.URL.Query(), s.reports.CurrentMonth())
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return core.Month{}, false
	}
	return m, true
}

// parseBody reads a JSON or form body. On error it has already written a 400.
func parseBody(w http.ResponseWriter, r *http.Request) (*RequestBodyParser, bool) {
	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		BadRequestError("malformed request body").Write(w)
		return nil, false
	}
	return p, true
}

// dateField parses the "date" field. An absent date means today.
func (s *Server) dateField(p *RequestBodyParser) (core.Date, error) {
	v := p.Get("date")
	if v == "" {
		return core.DateOf(s.now()), nil
	}
	return core.ParseDate(v)
}

func amountField(p *RequestBodyParser) (decimal.Decimal, error) {
	return core.ParseAmount(p.Get("amount"))
}
