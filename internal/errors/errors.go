// Package errors holds the failure taxonomy shared by the normalizer, the OCR
// backends and the HTTP/CLI entry points.
package errors

import "fmt"

// Kind classifies a recognition failure.
type Kind string

const (
	// KindUnrecognizedFormat means the input bytes are not a decodable image.
	KindUnrecognizedFormat Kind = "UNRECOGNIZED_FORMAT"
	// KindEngineFailure means the OCR backend could not produce text.
	KindEngineFailure Kind = "ENGINE_FAILURE"
	// KindClipboardEmpty means the capture source held no image.
	KindClipboardEmpty Kind = "CLIPBOARD_EMPTY"
)

// Sentinels for errors.Is matching on kind alone.
var (
	ErrUnrecognizedFormat = &Error{Kind: KindUnrecognizedFormat}
	ErrEngineFailure      = &Error{Kind: KindEngineFailure}
	ErrClipboardEmpty     = &Error{Kind: KindClipboardEmpty}
)

// Error is a classified failure. Code carries a backend-reported status code
// when there is one (Vision rpc code, HTTP status), otherwise zero.
type Error struct {
	Kind   Kind
	Detail string
	Code   int
	Engine string
	Cause  error
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Engine != "" {
		msg = fmt.Sprintf("%s [%s]", msg, e.Engine)
	}
	if e.Detail != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Detail)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s (caused by: %v)", msg, e.Cause)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports kind equality so callers can match against the sentinels.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// UnrecognizedFormat wraps a decoder failure.
func UnrecognizedFormat(detail string, cause error) *Error {
	return &Error{
		Kind:   KindUnrecognizedFormat,
		Detail: detail,
		Cause:  cause,
	}
}

// EngineFailure reports that the named backend could not produce text.
func EngineFailure(engine string, code int, detail string, cause error) *Error {
	return &Error{
		Kind:   KindEngineFailure,
		Detail: detail,
		Code:   code,
		Engine: engine,
		Cause:  cause,
	}
}

// ClipboardEmpty reports that no image was available to capture.
func ClipboardEmpty(detail string) *Error {
	return &Error{
		Kind:   KindClipboardEmpty,
		Detail: detail,
	}
}
