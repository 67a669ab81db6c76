package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"labcash/internal/store"
)

// handleExport returns every record as a native snapshot. The same document
// is accepted by /api/import.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	snap, err := s.records.Snapshot(r.Context())
	if err != nil {
		errorResponseFor(r, err).Write(w)
		return
	}
	name := fmt.Sprintf("labcash-backup-%s.json", s.now().Format("2006-01-02"))
	NewJSONResponse().
		Header("Content-Disposition", `attachment; filename="`+name+`"`).
		Body(withEmptyLists(snap)).
		Write(w)
}

// handleImport replaces all four collections. Both native exports and dumps
// of the old browser storage are accepted.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			ErrorResponse(http.StatusRequestEntityTooLarge, "backup too large").Write(w)
			return
		}
		BadRequestError("malformed request body").Write(w)
		return
	}

	var snap store.Snapshot
	if store.IsLegacy(raw) {
		snap, err = store.DecodeLegacy(bytes.NewReader(raw))
	} else {
		err = json.Unmarshal(raw, &snap)
	}
	if err != nil {
		if StatusFor(err) == http.StatusUnprocessableEntity {
			errorResponseFor(r, err).Write(w)
			return
		}
		BadRequestError(fmt.Sprintf("invalid backup: %v", err)).Write(w)
		return
	}

	imported, err := s.records.Import(r.Context(), snap)
	if err != nil {
		errorResponseFor(r, err).Write(w)
		return
	}
	NewJSONResponse().Body(importResult{
		Revenue:  len(imported.Revenue),
		Expenses: len(imported.Expenses),
		Advances: len(imported.Advances),
		Staff:    len(imported.Staff),
	}).Write(w)
}

type importResult struct {
	Revenue  int `json:"revenue"`
	Expenses int `json:"expenses"`
	Advances int `json:"advances"`
	Staff    int `json:"staff"`
}

func withEmptyLists(s store.Snapshot) store.Snapshot {
	s.Revenue = nonNil(s.Revenue)
	s.Expenses = nonNil(s.Expenses)
	s.Advances = nonNil(s.Advances)
	s.Staff = nonNil(s.Staff)
	return s
}
