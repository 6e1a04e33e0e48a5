package handlers

import (
	"coldcall-api/internal/middleware"
	"net/http"
)

type UsageHandler struct {
	outreach Outreach
}

func NewUsageHandler(outreach Outreach) *UsageHandler {
	return &UsageHandler{outreach: outreach}
}

func (h *UsageHandler) GetCurrentUsage(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityOrError(w, r)
	if !ok {
		return
	}

	stats := h.outreach.Usage(identity)
	middleware.SetRateLimitHeaders(w, stats)
	respondWithJSON(w, http.StatusOK, stats)
}
