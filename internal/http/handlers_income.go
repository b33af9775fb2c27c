package http

import (
	"net/http"
	"strings"

	"fintrack/internal/core"
	"fintrack/internal/ledger"
)

func (s *Server) handleListIncome(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	rng, err := parseRange(q, s.engine.Location())
	if err != nil {
		writeError(w, r, err)
		return
	}
	page, size, err := parsePagination(q, s.defaultPageSize)
	if err != nil {
		writeError(w, r, err)
		return
	}
	filter := ledger.IncomeFilter{
		Range:  rng,
		Source: core.Source(strings.TrimSpace(q.Get("source"))),
		Search: strings.TrimSpace(q.Get("search")),
	}

	result, err := s.ledger.ListIncomes(r.Context(), ownerID(r), filter, page, size)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleCreateIncome(w http.ResponseWriter, r *http.Request) {
	var req incomeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	patch, err := req.patch(s.engine.Location())
	if err != nil {
		writeError(w, r, err)
		return
	}
	income, err := s.ledger.CreateIncome(r.Context(), ownerID(r), patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, income)
}

func (s *Server) handleUpdateIncome(w http.ResponseWriter, r *http.Request) {
	var req incomeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	patch, err := req.patch(s.engine.Location())
	if err != nil {
		writeError(w, r, err)
		return
	}
	income, err := s.ledger.UpdateIncome(r.Context(), ownerID(r), r.PathValue("id"), patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, income)
}

func (s *Server) handleDeleteIncome(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.DeleteIncome(r.Context(), ownerID(r), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Income deleted."})
}
