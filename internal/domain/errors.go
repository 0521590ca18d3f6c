package domain

import "fmt"

type ErrorKind string

const (
	KindInitialization    ErrorKind = "initialization"
	KindSystemIntegration ErrorKind = "system-integration"
	KindUserInterface     ErrorKind = "user-interface"
)

// Error is a classified failure with a stable diagnostic code and
// optional remediation hints. Errors from a single service initializer
// or a single delivery attempt are caught at that boundary, wrapped
// into one of these, and reported; they never crash a cycle.
type Error struct {
	Kind    ErrorKind
	Code    string
	Service string
	Hints   []string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s [%s/%s]: %v", e.Service, e.Kind, e.Code, e.Err)
	}
	return fmt.Sprintf("%s [%s/%s]", e.Service, e.Kind, e.Code)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func NewInitializationError(service, code string, err error, hints ...string) *Error {
	return &Error{Kind: KindInitialization, Code: code, Service: service, Err: err, Hints: hints}
}

func NewSystemIntegrationError(service, code string, err error, hints ...string) *Error {
	return &Error{Kind: KindSystemIntegration, Code: code, Service: service, Err: err, Hints: hints}
}

func NewUserInterfaceError(service, code string, err error, hints ...string) *Error {
	return &Error{Kind: KindUserInterface, Code: code, Service: service, Err: err, Hints: hints}
}
