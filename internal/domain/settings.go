package domain

import (
	"errors"
	"time"
)

type DisruptionLevel string

const (
	DisruptionGentle    DisruptionLevel = "gentle"
	DisruptionNormal    DisruptionLevel = "normal"
	DisruptionAssertive DisruptionLevel = "assertive"
)

func ValidDisruptionLevel(s string) bool {
	switch DisruptionLevel(s) {
	case DisruptionGentle, DisruptionNormal, DisruptionAssertive:
		return true
	}
	return false
}

var (
	ErrIntervalNotPositive = errors.New("reminder intervals must be positive")
	ErrIntervalOrder       = errors.New("minimum interval must not exceed maximum interval")
	ErrInvalidQuietHours   = errors.New("quiet hours minutes must be within a day")
	ErrInvalidDisruption   = errors.New("invalid disruption level")
	ErrInvalidRetention    = errors.New("retention days must be positive")
)

// QuietHours is a daily window [StartMinute, EndMinute) expressed in
// minutes from midnight. The window may cross midnight. A window with
// equal start and end is disabled.
type QuietHours struct {
	StartMinute int `json:"start_minute"`
	EndMinute   int `json:"end_minute"`
}

func (q QuietHours) Enabled() bool {
	return q.StartMinute != q.EndMinute
}

// Contains reports whether t falls inside the window.
func (q QuietHours) Contains(t time.Time) bool {
	if !q.Enabled() {
		return false
	}
	m := t.Hour()*60 + t.Minute()
	if q.StartMinute < q.EndMinute {
		return m >= q.StartMinute && m < q.EndMinute
	}
	// Window crosses midnight.
	return m >= q.StartMinute || m < q.EndMinute
}

// ShiftOut returns t unchanged when it is outside the window, otherwise
// the nearest window end at or after t. The result is on the EndMinute
// boundary, which is outside the half-open window.
func (q QuietHours) ShiftOut(t time.Time) time.Time {
	if !q.Contains(t) {
		return t
	}
	end := time.Date(t.Year(), t.Month(), t.Day(), q.EndMinute/60, q.EndMinute%60, 0, 0, t.Location())
	if !end.After(t) {
		end = end.AddDate(0, 0, 1)
	}
	return end
}

// ReminderSettings is the user configuration snapshot the scheduling
// engine reads. Consumers treat it as immutable; updates replace the
// whole snapshot.
type ReminderSettings struct {
	MinInterval    time.Duration   `json:"min_interval"`
	MaxInterval    time.Duration   `json:"max_interval"`
	QuietHours     QuietHours      `json:"quiet_hours"`
	Disruption     DisruptionLevel `json:"disruption_level"`
	StartMinimized bool            `json:"start_minimized"`
	RetentionDays  int             `json:"retention_days"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

func (s ReminderSettings) Validate() error {
	if s.MinInterval <= 0 || s.MaxInterval <= 0 {
		return ErrIntervalNotPositive
	}
	if s.MinInterval > s.MaxInterval {
		return ErrIntervalOrder
	}
	if s.QuietHours.StartMinute < 0 || s.QuietHours.StartMinute >= 24*60 ||
		s.QuietHours.EndMinute < 0 || s.QuietHours.EndMinute >= 24*60 {
		return ErrInvalidQuietHours
	}
	if !ValidDisruptionLevel(string(s.Disruption)) {
		return ErrInvalidDisruption
	}
	if s.RetentionDays <= 0 {
		return ErrInvalidRetention
	}
	return nil
}

// DefaultSettings is the fallback snapshot used when the settings store
// is unavailable at bootstrap.
func DefaultSettings() ReminderSettings {
	return ReminderSettings{
		MinInterval:   30 * time.Minute,
		MaxInterval:   120 * time.Minute,
		QuietHours:    QuietHours{StartMinute: 23 * 60, EndMinute: 7 * 60},
		Disruption:    DisruptionNormal,
		RetentionDays: 30,
	}
}
