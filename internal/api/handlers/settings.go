package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/sipwell/agent/internal/domain"
	"github.com/sipwell/agent/internal/store"
)

type SettingsHandler struct {
	settingsStore domain.SettingsStore
}

func NewSettingsHandler(s domain.SettingsStore) *SettingsHandler {
	return &SettingsHandler{settingsStore: s}
}

func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	settings, err := h.settingsStore.Load(r.Context())
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			defaults := domain.DefaultSettings()
			writeJSON(w, http.StatusOK, defaults)
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load settings")
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

type updateSettingsRequest struct {
	MinIntervalMinutes int               `json:"min_interval_minutes"`
	MaxIntervalMinutes int               `json:"max_interval_minutes"`
	QuietHours         domain.QuietHours `json:"quiet_hours"`
	DisruptionLevel    string            `json:"disruption_level"`
	StartMinimized     bool              `json:"start_minimized"`
	RetentionDays      int               `json:"retention_days"`
}

// Update replaces the settings snapshot. The scheduler reads a fresh
// snapshot on its next cycle.
func (h *SettingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req updateSettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	settings := domain.ReminderSettings{
		MinInterval:    time.Duration(req.MinIntervalMinutes) * time.Minute,
		MaxInterval:    time.Duration(req.MaxIntervalMinutes) * time.Minute,
		QuietHours:     req.QuietHours,
		Disruption:     domain.DisruptionLevel(req.DisruptionLevel),
		StartMinimized: req.StartMinimized,
		RetentionDays:  req.RetentionDays,
	}

	if err := settings.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.settingsStore.Save(r.Context(), &settings); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to save settings")
		return
	}

	writeJSON(w, http.StatusOK, settings)
}
