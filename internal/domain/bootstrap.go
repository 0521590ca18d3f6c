package domain

type BootstrapOutcome string

const (
	OutcomeSuccess  BootstrapOutcome = "success"
	OutcomeDegraded BootstrapOutcome = "degraded"
	OutcomeFailed   BootstrapOutcome = "failed"
)

// ServiceBootstrapResult records how one service came up during the
// startup sequence. Held only for the duration of one startup; the
// health endpoint keeps the last sequence for diagnostics.
type ServiceBootstrapResult struct {
	Service string           `json:"service"`
	Outcome BootstrapOutcome `json:"outcome"`
	Err     error            `json:"-"`
	Error   string           `json:"error,omitempty"`
	Hints   []string         `json:"hints,omitempty"`
}
