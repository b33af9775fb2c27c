package http

import (
	"net/http"

	"fintrack/internal/core"
)

type taxonomyResponse struct {
	Categories  []core.Category  `json:"categories"`
	Sources     []core.Source    `json:"sources"`
	Frequencies []core.Frequency `json:"frequencies"`
}

// handleTaxonomy lists the values accepted for category, source and
// frequency.
func handleTaxonomy(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, taxonomyResponse{
		Categories:  core.Categories(),
		Sources:     core.Sources(),
		Frequencies: core.Frequencies(),
	})
}
