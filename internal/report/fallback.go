package report

import (
	"context"

	"github.com/google/uuid"
	"github.com/sipwell/agent/internal/domain"
	"go.uber.org/zap"
)

// FallbackSink writes reports straight to the log. It is the path of
// last resort when the durable sink is down and it never fails.
type FallbackSink struct {
	logger *zap.Logger
}

func NewFallbackSink(logger *zap.Logger) *FallbackSink {
	return &FallbackSink{logger: logger}
}

func (s *FallbackSink) ReportRecoverable(ctx context.Context, reportErr error, hints []string) error {
	s.logger.Warn("recoverable error",
		zap.Error(reportErr),
		zap.Strings("hints", hints))
	return nil
}

func (s *FallbackSink) ReportCritical(ctx context.Context, reportErr error, fatal bool) error {
	s.logger.Error("critical error",
		zap.Error(reportErr),
		zap.Bool("fatal", fatal))
	return nil
}

func (s *FallbackSink) ReportDispatch(ctx context.Context, recordID uuid.UUID, channel domain.ChannelKind, dispatchErr error) error {
	if dispatchErr != nil {
		s.logger.Warn("dispatch attempt failed",
			zap.String("record_id", recordID.String()),
			zap.String("channel", string(channel)),
			zap.Error(dispatchErr))
		return nil
	}
	s.logger.Info("dispatch attempt",
		zap.String("record_id", recordID.String()),
		zap.String("channel", string(channel)))
	return nil
}
