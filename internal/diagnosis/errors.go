package diagnosis

import (
	"errors"
	"fmt"
)

// Kind classifies why a request could not be answered.
type Kind string

const (
	KindInvalidPayload       Kind = "invalid_payload"
	KindValidation           Kind = "validation_error"
	KindEmptySymptomSet      Kind = "empty_symptom_set"
	KindNoRecognizedSymptoms Kind = "no_recognized_symptoms"
	KindInference            Kind = "inference_error"
)

// Error is returned by every request-path operation in this package.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

// Sentinels for errors.Is. Only the Kind is compared.
var (
	ErrInvalidPayload       = &Error{Kind: KindInvalidPayload}
	ErrValidation           = &Error{Kind: KindValidation}
	ErrEmptySymptomSet      = &Error{Kind: KindEmptySymptomSet}
	ErrNoRecognizedSymptoms = &Error{Kind: KindNoRecognizedSymptoms}
	ErrInference            = &Error{Kind: KindInference}
)

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	if e.Msg == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// IsClientError reports whether err was caused by the request rather than the
// service.
func IsClientError(err error) bool {
	var de *Error
	if !errors.As(err, &de) {
		return false
	}
	return de.Kind != KindInference
}

func newError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}
