package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/sipwell/agent/internal/domain"
)

type ActivityHandler struct {
	activityStore domain.ActivityStore
}

func NewActivityHandler(s domain.ActivityStore) *ActivityHandler {
	return &ActivityHandler{activityStore: s}
}

type ingestSampleRequest struct {
	Timestamp   *time.Time `json:"timestamp,omitempty"`
	Active      bool       `json:"active"`
	AppCategory *string    `json:"app_category,omitempty"`
}

// Ingest accepts one activity sample from the signal source. A missing
// timestamp means "now".
func (h *ActivityHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	var req ingestSampleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ts := time.Now()
	if req.Timestamp != nil {
		ts = *req.Timestamp
	}

	sample := &domain.ActivitySample{
		Timestamp:   ts,
		Active:      req.Active,
		AppCategory: req.AppCategory,
	}

	if err := h.activityStore.Append(r.Context(), sample); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to record sample")
		return
	}

	writeJSON(w, http.StatusCreated, sample)
}
