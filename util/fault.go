package util

import (
	"errors"
	"fmt"
)

// FaultKind is the machine-checkable error category carried on every
// domain error the API surfaces.
type FaultKind string

const (
	KindValidation             FaultKind = "validation"
	KindAuthorization          FaultKind = "authorization"
	KindInvalidStateTransition FaultKind = "invalid_state_transition"
	KindReferentialIntegrity   FaultKind = "referential_integrity"
	KindNotFound               FaultKind = "not_found"
	KindAuthentication         FaultKind = "authentication"
	KindInternal               FaultKind = "internal"
)

// Fault is the single tagged error type used across the service.
// Fields carries per-field validation messages when present.
type Fault struct {
	Kind    FaultKind         `json:"kind"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func (f *Fault) Error() string {
	return fmt.Sprintf("%s: %s", f.Kind, f.Message)
}

// AsFault unwraps err into a *Fault when possible.
func AsFault(err error) (*Fault, bool) {
	var f *Fault
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}

// Invalid builds a validation fault.
func Invalid(format string, args ...interface{}) *Fault {
	return &Fault{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// InvalidFields builds a validation fault with per-field messages.
func InvalidFields(msg string, fields map[string]string) *Fault {
	return &Fault{Kind: KindValidation, Message: msg, Fields: fields}
}

// Forbidden builds an authorization fault.
func Forbidden(format string, args ...interface{}) *Fault {
	return &Fault{Kind: KindAuthorization, Message: fmt.Sprintf(format, args...)}
}

// InvalidTransition builds a lifecycle fault naming the current state
// and the attempted transition.
func InvalidTransition(current string, attempted string) *Fault {
	return &Fault{
		Kind:    KindInvalidStateTransition,
		Message: fmt.Sprintf("cannot %s from status %s", attempted, current),
	}
}

// IntegrityViolation builds a referential-integrity fault.
func IntegrityViolation(format string, args ...interface{}) *Fault {
	return &Fault{Kind: KindReferentialIntegrity, Message: fmt.Sprintf(format, args...)}
}

// NotFound builds a not-found fault for the named resource.
func NotFound(resource string) *Fault {
	return &Fault{Kind: KindNotFound, Message: fmt.Sprintf("%s not found", resource)}
}

// Unauthenticated builds an authentication fault.
func Unauthenticated(format string, args ...interface{}) *Fault {
	return &Fault{Kind: KindAuthentication, Message: fmt.Sprintf(format, args...)}
}

// Internal wraps an unexpected error without leaking its text to
// callers; RespondError surfaces only the generic message.
func Internal(err error) *Fault {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &Fault{Kind: KindInternal, Message: msg}
}
