// Package apperror defines the error kinds surfaced to the user-facing layer.
// Every error type reports a stable Kind so callers can react without string
// matching.
package apperror

import (
	"errors"
	"fmt"
)

// Error kinds
const (
	KindMalformedInput  = "malformed_input"
	KindCorruptSession  = "corrupt_session"
	KindInvalidState    = "invalid_state"
	KindExportFailed    = "export_failed"
	KindNoSession       = "no_session"
	KindUnknownCategory = "unknown_category"
	KindBusy            = "busy"
	KindInternal        = "internal"
)

// Kinded is implemented by every error in this package.
type Kinded interface {
	error
	Kind() string
}

// KindOf returns the kind of the first Kinded error in err's chain, or
// KindInternal when there is none.
func KindOf(err error) string {
	var k Kinded
	if errors.As(err, &k) {
		return k.Kind()
	}
	return KindInternal
}

// MalformedInputError rejects a whole CSV file.
type MalformedInputError struct {
	Line   int // 1-based line number, 0 when not tied to a line
	Field  string
	Value  string
	Reason string
	Err    error
}

func (e *MalformedInputError) Error() string {
	msg := "malformed input"
	if e.Line > 0 {
		msg = fmt.Sprintf("%s at line %d", msg, e.Line)
	}
	if e.Field != "" {
		msg = fmt.Sprintf("%s: field %s='%s'", msg, e.Field, e.Value)
	}
	if e.Reason != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Reason)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *MalformedInputError) Unwrap() error { return e.Err }
func (e *MalformedInputError) Kind() string  { return KindMalformedInput }

// CorruptSessionError means persisted state could not be read back. The
// session must be reset explicitly; it is never discarded silently.
type CorruptSessionError struct {
	User   string
	Reason string
	Err    error
}

func (e *CorruptSessionError) Error() string {
	msg := fmt.Sprintf("session for %s is corrupt, session reset required: %s", e.User, e.Reason)
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *CorruptSessionError) Unwrap() error { return e.Err }
func (e *CorruptSessionError) Kind() string  { return KindCorruptSession }

// InvalidStateError is returned for a command the current state does not
// support.
type InvalidStateError struct {
	Operation string
	State     string
	Reason    string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("cannot %s in state %s: %s", e.Operation, e.State, e.Reason)
}

func (e *InvalidStateError) Kind() string { return KindInvalidState }

// ExportError wraps a failure of the export sink. The session is retained.
// IncomeWritten and ExpensesWritten tell which list reached the sink in full
// before the failure, so a retry can leave it out.
type ExportError struct {
	Target          string
	Err             error
	IncomeWritten   bool
	ExpensesWritten bool
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("export to %s failed, session kept for retry: %v", e.Target, e.Err)
}

func (e *ExportError) Unwrap() error { return e.Err }
func (e *ExportError) Kind() string  { return KindExportFailed }

// NoSessionError is returned when a command needs a session and none exists.
type NoSessionError struct {
	User string
}

func (e *NoSessionError) Error() string {
	return fmt.Sprintf("no session for %s", e.User)
}

func (e *NoSessionError) Kind() string { return KindNoSession }

// UnknownCategoryError is returned when typed input resolves to no category
// or to more than one.
type UnknownCategoryError struct {
	Input      string
	Polarity   string
	Candidates []string
}

func (e *UnknownCategoryError) Error() string {
	if len(e.Candidates) > 1 {
		return fmt.Sprintf("ambiguous %s category '%s', matches %v", e.Polarity, e.Input, e.Candidates)
	}
	return fmt.Sprintf("unknown %s category '%s'", e.Polarity, e.Input)
}

func (e *UnknownCategoryError) Kind() string { return KindUnknownCategory }

// BusyError rejects a command while another one for the same user is in
// flight.
type BusyError struct {
	User      string
	Operation string
}

func (e *BusyError) Error() string {
	return fmt.Sprintf("cannot %s: another operation for %s is in progress", e.Operation, e.User)
}

func (e *BusyError) Kind() string { return KindBusy }
