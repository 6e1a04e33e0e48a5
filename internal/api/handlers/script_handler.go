package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

type ScriptHandler struct {
	outreach Outreach
}

func NewScriptHandler(outreach Outreach) *ScriptHandler {
	return &ScriptHandler{outreach: outreach}
}

// GenerateScript writes a cold call script for one business in the current
// results. A failure affects only that row.
func (h *ScriptHandler) GenerateScript(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityOrError(w, r)
	if !ok {
		return
	}

	placeID := chi.URLParam(r, "placeID")
	if placeID == "" {
		http.Error(w, "Invalid place ID", http.StatusBadRequest)
		return
	}

	row, err := h.outreach.GenerateScript(r.Context(), identity, placeID)
	if err != nil {
		respondWithError(w, r, err, nil)
		return
	}

	respondWithJSON(w, http.StatusOK, row)
}
