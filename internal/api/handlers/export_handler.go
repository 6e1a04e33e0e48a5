package handlers

import (
	"net/http"
	"strconv"
)

type ExportHandler struct {
	outreach Outreach
}

func NewExportHandler(outreach Outreach) *ExportHandler {
	return &ExportHandler{outreach: outreach}
}

// Export downloads the current results as CSV.
func (h *ExportHandler) Export(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityOrError(w, r)
	if !ok {
		return
	}

	data, filename, err := h.outreach.Export(identity)
	if err != nil {
		respondWithError(w, r, err, nil)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
