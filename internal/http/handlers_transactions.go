package http

import (
	"net/http"
	"strings"

	"fintrack/internal/core"
	"fintrack/internal/report"
)

// handleTransactionFeed returns one page of expenses and incomes merged
// newest first.
func (s *Server) handleTransactionFeed(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	entryType, err := core.ParseEntryType(q.Get("type"))
	if err != nil {
		writeError(w, r, err)
		return
	}
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

	feed, err := s.engine.GetTransactionFeed(r.Context(), ownerID(r), report.FeedQuery{
		Type:     entryType,
		Range:    rng,
		Search:   strings.TrimSpace(q.Get("search")),
		Page:     page,
		PageSize: size,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, feed)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	dashboard, err := s.engine.GetDashboard(r.Context(), ownerID(r), s.now())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dashboard)
}
