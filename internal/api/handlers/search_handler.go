package handlers

import (
	"coldcall-api/internal/middleware"
	"coldcall-api/internal/models"
	apperrors "coldcall-api/internal/pkg/errors"
	"encoding/json"
	"net/http"
)

type SearchHandler struct {
	outreach Outreach
}

func NewSearchHandler(outreach Outreach) *SearchHandler {
	return &SearchHandler{outreach: outreach}
}

// Search runs a business search for the caller's session.
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityOrError(w, r)
	if !ok {
		return
	}

	var params models.SearchParams
	r.Body = http.MaxBytesReader(w, r.Body, 1<<16)
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		respondWithError(w, r, apperrors.InvalidInput("Invalid search request body"), nil)
		return
	}

	result, err := h.outreach.Search(r.Context(), identity, params)
	if err != nil {
		usage := h.outreach.Usage(identity)
		middleware.SetRateLimitHeaders(w, usage)
		respondWithError(w, r, err, &usage)
		return
	}

	middleware.SetRateLimitHeaders(w, result.Decision)
	respondWithJSON(w, http.StatusOK, result)
}
