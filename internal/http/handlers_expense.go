package http

import (
	"net/http"
	"strings"

	"fintrack/internal/core"
	"fintrack/internal/ledger"
)

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
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
	filter := ledger.ExpenseFilter{
		Range:    rng,
		Category: core.Category(strings.TrimSpace(q.Get("category"))),
		Search:   strings.TrimSpace(q.Get("search")),
	}

	result, err := s.ledger.ListExpenses(r.Context(), ownerID(r), filter, page, size)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleExpenseSummary returns the month's spending per category, largest
// first.
func (s *Server) handleExpenseSummary(w http.ResponseWriter, r *http.Request) {
	month, year, err := parseMonthParams(r.URL.Query(), s.now(), s.engine.Location())
	if err != nil {
		writeError(w, r, err)
		return
	}
	summary, err := s.engine.GetCategorySummary(r.Context(), ownerID(r), month, year)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	patch, err := req.patch(s.engine.Location())
	if err != nil {
		writeError(w, r, err)
		return
	}
	expense, err := s.ledger.CreateExpense(r.Context(), ownerID(r), patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, expense)
}

// handleUpdateExpense applies the fields present in the body and keeps the
// rest.
func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	patch, err := req.patch(s.engine.Location())
	if err != nil {
		writeError(w, r, err)
		return
	}
	expense, err := s.ledger.UpdateExpense(r.Context(), ownerID(r), r.PathValue("id"), patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, expense)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.DeleteExpense(r.Context(), ownerID(r), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Expense deleted."})
}
