package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/sipwell/agent/internal/domain"
	"github.com/sipwell/agent/internal/service"
)

type ReminderHandler struct {
	scheduler     *service.Scheduler
	reminderStore domain.ReminderStore
}

func NewReminderHandler(scheduler *service.Scheduler, store domain.ReminderStore) *ReminderHandler {
	return &ReminderHandler{scheduler: scheduler, reminderStore: store}
}

type respondRequest struct {
	Action        string `json:"action"`
	SnoozeMinutes int    `json:"snooze_minutes,omitempty"`
}

// Respond is the entry point for dismiss/snooze/ignore actions
// originating from any delivery surface.
func (h *ReminderHandler) Respond(w http.ResponseWriter, r *http.Request) {
	recordID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid reminder id")
		return
	}

	var req respondRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var resp domain.UserResponse
	switch req.Action {
	case "dismiss":
		resp.Kind = domain.ResponseDismissed
	case "snooze":
		resp.Kind = domain.ResponseSnoozed
		resp.SnoozeFor = time.Duration(req.SnoozeMinutes) * time.Minute
	case "ignore":
		resp.Kind = domain.ResponseIgnored
	default:
		writeError(w, http.StatusBadRequest, "action must be dismiss, snooze or ignore")
		return
	}

	if err := h.scheduler.RespondTo(r.Context(), recordID, resp); err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidResponse), errors.Is(err, service.ErrInvalidSnooze):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrNoOutstandingReminder):
			writeError(w, http.StatusConflict, err.Error())
		case errors.Is(err, service.ErrReminderMismatch):
			writeError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, service.ErrSchedulerStopped):
			writeError(w, http.StatusServiceUnavailable, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "failed to apply response")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "applied"})
}

// Current returns the outstanding reminder record, if any.
func (h *ReminderHandler) Current(w http.ResponseWriter, r *http.Request) {
	rec := h.scheduler.Current()
	if rec == nil {
		writeError(w, http.StatusNotFound, "no outstanding reminder")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// List returns recent reminder history, newest first.
func (h *ReminderHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 200 {
			limit = l
		}
	}

	records, err := h.reminderStore.ListRecent(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list reminders")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"reminders": records,
		"count":     len(records),
	})
}
