package http

import (
	"net/http"
)

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	month, year, err := parseMonthParams(r.URL.Query(), s.now(), s.engine.Location())
	if err != nil {
		writeError(w, r, err)
		return
	}
	progress, err := s.engine.GetBudgetProgress(r.Context(), ownerID(r), month, year)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, progress)
}

// handleUpsertBudget creates the budget for its category and month or
// replaces the limit of the existing one.
func (s *Server) handleUpsertBudget(w http.ResponseWriter, r *http.Request) {
	var req budgetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	key, limit, err := req.key(ownerID(r), s.now(), s.engine.Location())
	if err != nil {
		writeError(w, r, err)
		return
	}
	budget, err := s.ledger.UpsertBudget(r.Context(), key, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, budget)
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.DeleteBudget(r.Context(), ownerID(r), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Budget deleted."})
}
