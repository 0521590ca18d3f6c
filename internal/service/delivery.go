package service

import (
	"context"
	"errors"
	"time"

	"github.com/sipwell/agent/internal/domain"
	"go.uber.org/zap"
)

const (
	defaultEscalateAfter   = 2
	defaultDispatchTimeout = 10 * time.Second
)

// ErrNoChannelAvailable is returned when both delivery surfaces refuse
// a dispatch. The scheduler records the cycle as ignored and moves on.
var ErrNoChannelAvailable = errors.New("no delivery channel available")

// Delivery chooses a surface per disruption level, escalates after
// repeated ignores, and retries the alternate surface when a dispatch
// fails. Every attempt is reported through the sink, success or not.
type Delivery struct {
	notification domain.DeliveryChannel
	overlay      domain.DeliveryChannel
	sink         domain.ReportSink
	logger       *zap.Logger

	escalateAfter   int
	dispatchTimeout time.Duration
}

func NewDelivery(notification, overlay domain.DeliveryChannel, sink domain.ReportSink, logger *zap.Logger) *Delivery {
	return &Delivery{
		notification:    notification,
		overlay:         overlay,
		sink:            sink,
		logger:          logger,
		escalateAfter:   defaultEscalateAfter,
		dispatchTimeout: defaultDispatchTimeout,
	}
}

// SetEscalateAfter overrides how many consecutive ignores promote the
// normal disruption level to the overlay.
func (d *Delivery) SetEscalateAfter(n int) {
	if n > 0 {
		d.escalateAfter = n
	}
}

func (d *Delivery) SetDispatchTimeout(timeout time.Duration) {
	if timeout > 0 {
		d.dispatchTimeout = timeout
	}
}

// Deliver dispatches the record to the chosen surface and returns the
// channel kind that accepted it. On a failed dispatch it retries once
// against the alternate surface before giving up.
func (d *Delivery) Deliver(ctx context.Context, rec domain.ReminderRecord, settings domain.ReminderSettings, ignoreStreak int) (domain.ChannelKind, error) {
	primary := d.channelFor(d.chooseKind(settings.Disruption, ignoreStreak))
	alternate := d.other(primary)

	msg := domain.ReminderMessage{
		RecordID:   rec.ID,
		Title:      "Time to hydrate",
		Body:       "Have a glass of water.",
		Disruption: settings.Disruption,
	}

	err := d.attempt(ctx, primary, msg)
	if err == nil {
		return primary.Kind(), nil
	}
	d.logger.Warn("dispatch failed, retrying alternate channel",
		zap.String("record_id", rec.ID.String()),
		zap.String("channel", string(primary.Kind())),
		zap.Error(err))

	if err := d.attempt(ctx, alternate, msg); err != nil {
		return "", ErrNoChannelAvailable
	}
	return alternate.Kind(), nil
}

func (d *Delivery) attempt(ctx context.Context, ch domain.DeliveryChannel, msg domain.ReminderMessage) error {
	dispatchCtx, cancel := context.WithTimeout(ctx, d.dispatchTimeout)
	defer cancel()

	err := ch.Show(dispatchCtx, msg)

	if reportErr := d.sink.ReportDispatch(ctx, msg.RecordID, ch.Kind(), err); reportErr != nil {
		d.logger.Warn("failed to report dispatch attempt",
			zap.String("record_id", msg.RecordID.String()),
			zap.Error(reportErr))
	}
	return err
}

// chooseKind applies the escalation table: gentle never escalates,
// assertive is already maximal, normal promotes to the overlay after
// escalateAfter consecutive ignores.
func (d *Delivery) chooseKind(level domain.DisruptionLevel, ignoreStreak int) domain.ChannelKind {
	switch level {
	case domain.DisruptionAssertive:
		return domain.ChannelOverlay
	case domain.DisruptionNormal:
		if ignoreStreak >= d.escalateAfter {
			return domain.ChannelOverlay
		}
	}
	return domain.ChannelNotification
}

func (d *Delivery) channelFor(kind domain.ChannelKind) domain.DeliveryChannel {
	if kind == domain.ChannelOverlay {
		return d.overlay
	}
	return d.notification
}

func (d *Delivery) other(ch domain.DeliveryChannel) domain.DeliveryChannel {
	if ch == d.overlay {
		return d.notification
	}
	return d.overlay
}
