// Package stratumerr defines the error kinds callers branch on, so the
// live client's reconnect loop and the CLI's exit-code logic switch on a
// stable kind rather than on concrete error values or message text.
package stratumerr

import "fmt"

// Kind classifies a failure by how the caller should react to it.
type Kind int

const (
	// ProtocolFraming covers partial/invalid JSON, an oversized line
	// (> 1 MiB), or EOF before a line terminator.
	ProtocolFraming Kind = iota
	// ProtocolSemantics covers a well-framed message whose shape doesn't
	// match the expected Stratum reply (bad subscribe result, authorize
	// result != true, non-boolean submit result).
	ProtocolSemantics
	// NetworkTransient covers recv/send timeouts and connection resets.
	NetworkTransient
	// ProgrammerError covers invariant violations that should never occur
	// at runtime: header length != 76, extranonce2_size outside [1,8],
	// difficulty <= 0.
	ProgrammerError
)

func (k Kind) String() string {
	switch k {
	case ProtocolFraming:
		return "protocol_framing"
	case ProtocolSemantics:
		return "protocol_semantics"
	case NetworkTransient:
		return "network_transient"
	case ProgrammerError:
		return "programmer_error"
	default:
		return "unknown"
	}
}

// Error wraps an underlying cause with a Kind so callers can dispatch on
// the kind without string-matching or type-switching on the concrete
// stdlib/network error.
type Error struct {
	Kind     Kind
	Endpoint string
	Err      error
}

func (e *Error) Error() string {
	if e.Endpoint != "" {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Endpoint, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an Error of the given kind.
func New(kind Kind, endpoint string, err error) *Error {
	return &Error{Kind: kind, Endpoint: endpoint, Err: err}
}

// Framingf builds a ProtocolFraming error.
func Framingf(endpoint, format string, args ...interface{}) *Error {
	return New(ProtocolFraming, endpoint, fmt.Errorf(format, args...))
}

// Semanticsf builds a ProtocolSemantics error.
func Semanticsf(endpoint, format string, args ...interface{}) *Error {
	return New(ProtocolSemantics, endpoint, fmt.Errorf(format, args...))
}

// Transientf builds a NetworkTransient error.
func Transientf(endpoint string, err error) *Error {
	return New(NetworkTransient, endpoint, err)
}

// Programmerf builds a ProgrammerError.
func Programmerf(format string, args ...interface{}) *Error {
	return New(ProgrammerError, "", fmt.Errorf(format, args...))
}
