package apperror

import (
	"errors"
	"fmt"
)

// AppError is the error type shared by the bus, transports and executors.
type AppError struct {
	Code    ErrorCode // broad category, e.g. TIMEOUT
	Reason  Reason    // specific condition, e.g. REQUEST_TIMEOUT
	Message string
	Details any
	Inner   error
}

func (e *AppError) Error() string {
	if e.Inner != nil {
		return e.Message + ": " + e.Inner.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Inner }

// WithDetails sets Details and returns the receiver.
func (e *AppError) WithDetails(details any) *AppError {
	e.Details = details
	return e
}

// New creates an AppError.
func New(code ErrorCode, reason Reason, message string) *AppError {
	return &AppError{Code: code, Reason: reason, Message: message}
}

// Wrap creates an AppError around inner.
func Wrap(inner error, code ErrorCode, reason Reason, message string) *AppError {
	return &AppError{Code: code, Reason: reason, Message: message, Inner: inner}
}

// From derives a new error carrying the same Code and Reason as sentinel, so
// that errors.Is(err, sentinel) holds, with inner attached as the cause.
func From(sentinel *AppError, inner error) *AppError {
	return &AppError{
		Code:    sentinel.Code,
		Reason:  sentinel.Reason,
		Message: sentinel.Message,
		Inner:   inner,
	}
}

// Is matches on Code and Reason, ignoring Message.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Reason == t.Reason
}

// CodeOf returns the code of the first AppError in err's chain, or
// CodeInternal when there is none.
func CodeOf(err error) ErrorCode {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return CodeInternal
}

// Format implements fmt.Formatter; %+v prints every field.
func (e *AppError) Format(f fmt.State, verb rune) {
	switch verb {
	case 'v':
		if f.Flag('+') {
			_, _ = fmt.Fprintf(f, "Code: %s, Reason: %s, Message: %s", e.Code, e.Reason, e.Message)
			if e.Inner != nil {
				_, _ = fmt.Fprintf(f, "\nCaused by: %+v", e.Inner)
			}
			if e.Details != nil {
				_, _ = fmt.Fprintf(f, "\nDetails: %+v", e.Details)
			}
			return
		}
		_, _ = fmt.Fprint(f, e.Error())
	case 's':
		_, _ = fmt.Fprint(f, e.Error())
	}
}
