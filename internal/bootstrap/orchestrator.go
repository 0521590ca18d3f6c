// Package bootstrap sequences the startup of dependent services. Each
// initializer runs under an isolated failure boundary so one failing
// service never prevents the rest from coming up.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sipwell/agent/internal/domain"
	"go.uber.org/zap"
)

// Initializer brings one service online. Run returns the outcome and,
// for degraded or failed outcomes, the underlying error. Hints are the
// remediation steps attached to a failure report.
type Initializer struct {
	Service string
	Hints   []string
	Run     func(ctx context.Context) (domain.BootstrapOutcome, error)
}

// Orchestrator runs the bootstrap sequence and reports failures. When
// the reporting sink itself is down, reports divert to the fallback
// direct-log sink instead of being dropped.
type Orchestrator struct {
	sink     domain.ReportSink
	fallback domain.ReportSink
	logger   *zap.Logger
}

func New(sink, fallback domain.ReportSink, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{sink: sink, fallback: fallback, logger: logger}
}

// Bootstrap attempts every initializer exactly once. Initializers run
// concurrently, each to completion behind its own panic boundary, and
// the result list preserves input order. No failure, including a
// failure of the reporting step itself, escapes this call.
func (o *Orchestrator) Bootstrap(ctx context.Context, inits []Initializer) []domain.ServiceBootstrapResult {
	results := make([]domain.ServiceBootstrapResult, len(inits))

	var wg sync.WaitGroup
	for i, init := range inits {
		wg.Add(1)
		go func(i int, init Initializer) {
			defer wg.Done()
			results[i] = o.runOne(ctx, init)
		}(i, init)
	}
	wg.Wait()

	o.report(ctx, results)
	return results
}

func (o *Orchestrator) runOne(ctx context.Context, init Initializer) (res domain.ServiceBootstrapResult) {
	defer func() {
		if r := recover(); r != nil {
			err := domain.NewInitializationError(init.Service, "init-panic",
				fmt.Errorf("initializer panicked: %v", r), init.Hints...)
			res = domain.ServiceBootstrapResult{
				Service: init.Service,
				Outcome: domain.OutcomeFailed,
				Err:     err,
				Error:   err.Error(),
				Hints:   init.Hints,
			}
		}
	}()

	outcome, err := init.Run(ctx)
	res = domain.ServiceBootstrapResult{Service: init.Service, Outcome: outcome, Hints: init.Hints}
	if err != nil {
		res.Err = wrap(init.Service, err, init.Hints)
		res.Error = res.Err.Error()
		if outcome == domain.OutcomeSuccess {
			res.Outcome = domain.OutcomeFailed
		}
	}

	switch res.Outcome {
	case domain.OutcomeSuccess:
		o.logger.Info("service started", zap.String("service", init.Service))
	case domain.OutcomeDegraded:
		o.logger.Warn("service degraded", zap.String("service", init.Service), zap.Error(res.Err))
	default:
		o.logger.Error("service failed to start", zap.String("service", init.Service), zap.Error(res.Err))
	}
	return res
}

// report sends one recoverable report per degraded or failed service.
// Reporting failures divert to the fallback sink; a panic anywhere in
// this step is swallowed after a direct log, never re-raised to the
// bootstrap caller.
func (o *Orchestrator) report(ctx context.Context, results []domain.ServiceBootstrapResult) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("bootstrap reporting panicked", zap.Any("panic", r))
		}
	}()

	sinkDown := false
	for _, res := range results {
		if res.Outcome == domain.OutcomeFailed && res.Service == ServiceReporting {
			sinkDown = true
		}
	}

	for _, res := range results {
		if res.Outcome == domain.OutcomeSuccess || res.Err == nil {
			continue
		}

		if res.Service == ServiceReporting || sinkDown {
			// Loss of the reporting path escalates to the direct-log
			// fallback instead of being silently dropped.
			_ = o.fallback.ReportCritical(ctx, res.Err, false)
			continue
		}

		if err := o.sink.ReportRecoverable(ctx, res.Err, res.Hints); err != nil {
			_ = o.fallback.ReportCritical(ctx, res.Err, false)
			o.logger.Warn("reporting sink unavailable, used fallback",
				zap.String("service", res.Service),
				zap.Error(err))
		}
	}
}

// wrap classifies an initializer failure. Errors already carrying a
// taxonomy kind keep it; plain errors become initialization errors
// tagged with the service name.
func wrap(service string, err error, hints []string) error {
	var derr *domain.Error
	if errors.As(err, &derr) {
		return err
	}
	return domain.NewInitializationError(service, "init-failed", err, hints...)
}
