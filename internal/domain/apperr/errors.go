// Package apperr defines the closed error taxonomy surfaced to callers of the
// invoice backend. Every failure that crosses a gateway boundary is turned
// into an *Error carrying a Kind and a fixed, user-safe message; the
// technical cause is kept for logs only.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure.
type Kind string

const (
	KindAuth        Kind = "auth"
	KindNotFound    Kind = "not_found"
	KindRateLimited Kind = "rate_limited"
	KindForbidden   Kind = "forbidden"
	KindNetwork     Kind = "network"
	KindTimeout     Kind = "timeout"
	KindValidation  Kind = "validation"
	KindUnknown     Kind = "unknown"
)

var messages = map[Kind]string{
	KindAuth:        "Notion API 인증에 실패했습니다. API 키를 확인하세요.",
	KindNotFound:    "요청한 데이터를 찾을 수 없습니다.",
	KindRateLimited: "API 요청 제한을 초과했습니다. 잠시 후 다시 시도하세요.",
	KindForbidden:   "Notion 데이터베이스에 접근 권한이 없습니다.",
	KindNetwork:     "Notion 서버에 연결할 수 없습니다. 네트워크를 확인해주세요.",
	KindTimeout:     "요청이 너무 오래 걸립니다. 다시 시도하세요.",
	KindValidation:  "데이터 검증에 실패했습니다.",
	KindUnknown:     "Notion 서버에 문제가 발생했습니다. 잠시 후 다시 시도해주세요.",
}

// UserMessage returns the fixed user-facing message for k.
func UserMessage(k Kind) string {
	if msg, ok := messages[k]; ok {
		return msg
	}
	return messages[KindUnknown]
}

// Error is a classified failure.
type Error struct {
	Kind    Kind
	Op      string // operation that failed, e.g. "invoice.get"
	Message string // user-safe message
	Field   string // offending field for validation failures
	Err     error  // technical cause, may be nil
}

// Error returns the user-safe message so that it can be shown directly.
func (e *Error) Error() string {
	return e.Message
}

// Unwrap returns the technical cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Detail returns a log-oriented description including the cause.
func (e *Error) Detail() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

// New creates an error of the given kind with its standard message.
func New(kind Kind, op string, cause error) *Error {
	return &Error{Kind: kind, Op: op, Message: UserMessage(kind), Err: cause}
}

// NotFound creates a not-found error with a custom message.
func NotFound(op, message string) *Error {
	if message == "" {
		message = UserMessage(KindNotFound)
	}
	return &Error{Kind: KindNotFound, Op: op, Message: message}
}

// Forbidden creates a forbidden error with a custom message.
func Forbidden(op, message string) *Error {
	if message == "" {
		message = UserMessage(KindForbidden)
	}
	return &Error{Kind: KindForbidden, Op: op, Message: message}
}

// Unauthorized creates an auth error with a custom message.
func Unauthorized(op, message string) *Error {
	if message == "" {
		message = UserMessage(KindAuth)
	}
	return &Error{Kind: KindAuth, Op: op, Message: message}
}

// Validation creates a validation error for one field.
func Validation(op, field, message string) *Error {
	return &Error{Kind: KindValidation, Op: op, Field: field, Message: message}
}

// KindOf returns the Kind of err, or KindUnknown when err is not classified.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Is reports whether err is an *Error of kind k.
func Is(err error, k Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == k
}

// IsRetryable reports whether a failure of kind k may succeed when repeated.
func IsRetryable(k Kind) bool {
	switch k {
	case KindRateLimited, KindNetwork, KindTimeout:
		return true
	}
	return false
}
