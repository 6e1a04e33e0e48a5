package handlers

import (
	"coldcall-api/internal/models"
	apperrors "coldcall-api/internal/pkg/errors"
	"encoding/json"
	"net/http"
)

type SessionHandler struct {
	outreach Outreach
}

func NewSessionHandler(outreach Outreach) *SessionHandler {
	return &SessionHandler{outreach: outreach}
}

type sessionResponse struct {
	models.Session
	Usage      models.Decision `json:"usage"`
	DemoSearch bool            `json:"demo_search"`
	DemoScript bool            `json:"demo_scripts"`
}

func (h *SessionHandler) respondWithSession(w http.ResponseWriter, identity string, sess models.Session) {
	demoSearch, demoScripts := h.outreach.DemoMode()
	respondWithJSON(w, http.StatusOK, sessionResponse{
		Session:    sess,
		Usage:      h.outreach.Usage(identity),
		DemoSearch: demoSearch,
		DemoScript: demoScripts,
	})
}

func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityOrError(w, r)
	if !ok {
		return
	}
	h.respondWithSession(w, identity, h.outreach.Session(identity))
}

type serviceRequest struct {
	Description string `json:"description"`
}

// UpdateService sets the service description used for every later script.
func (h *SessionHandler) UpdateService(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityOrError(w, r)
	if !ok {
		return
	}

	var req serviceRequest
	r.Body = http.MaxBytesReader(w, r.Body, 1<<16)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, r, apperrors.InvalidInput("Invalid request body"), nil)
		return
	}

	sess, err := h.outreach.SetServiceDescription(identity, req.Description)
	if err != nil {
		respondWithError(w, r, err, nil)
		return
	}
	h.respondWithSession(w, identity, sess)
}

func (h *SessionHandler) ClearResults(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityOrError(w, r)
	if !ok {
		return
	}
	h.respondWithSession(w, identity, h.outreach.ClearResults(identity))
}

// DeleteSession drops the stored session. The usage count survives.
func (h *SessionHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityOrError(w, r)
	if !ok {
		return
	}
	h.outreach.EndSession(identity)
	w.WriteHeader(http.StatusNoContent)
}

// ListServices returns the preset service descriptions.
func (h *SessionHandler) ListServices(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string][]string{"services": models.ServicePresets})
}
