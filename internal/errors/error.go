package errors

import (
	stderrors "errors"
	"strings"

	"github.com/pkg/errors"
)

var (
	// source errors
	ErrConnection = errors.New("connection error")
	ErrAuth       = errors.New("authentication error")
	ErrProtocol   = errors.New("protocol error")

	// model errors
	ErrModelUnavailable = errors.New("model unavailable")
	ErrQuotaExceeded    = errors.New("quota exceeded")

	// input errors
	ErrValidation = errors.New("validation error")
	ErrSchema     = errors.New("schema validation error")
)

// kindOrder is the precedence used by KindOf. Quota and auth come before
// ErrModelUnavailable because model errors usually wrap one of them.
var kindOrder = []error{
	ErrQuotaExceeded,
	ErrAuth,
	ErrValidation,
	ErrSchema,
	ErrConnection,
	ErrProtocol,
	ErrModelUnavailable,
}

// Error is a classified failure. Both Kind and Cause take part in errors.Is.
type Error struct {
	Kind    error
	Message string
	Cause   error
}

func (e *Error) Error() string {
	var sb strings.Builder
	if e.Message != "" {
		sb.WriteString(e.Message)
	} else if e.Kind != nil {
		sb.WriteString(e.Kind.Error())
	}
	if e.Cause != nil {
		if sb.Len() > 0 {
			sb.WriteString(": ")
		}
		sb.WriteString(e.Cause.Error())
	}
	return sb.String()
}

func (e *Error) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Cause != nil {
		errs = append(errs, e.Cause)
	}
	return errs
}

func New(kind error, message string) error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind error, cause error, message string) error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// KindOf returns the most specific sentinel found in err's chain, or nil.
func KindOf(err error) error {
	if err == nil {
		return nil
	}
	for _, kind := range kindOrder {
		if stderrors.Is(err, kind) {
			return kind
		}
	}
	return nil
}

func IsQuota(err error) bool {
	return stderrors.Is(err, ErrQuotaExceeded)
}

func IsAuth(err error) bool {
	return stderrors.Is(err, ErrAuth)
}

// Redact replaces every non-empty secret in msg with a placeholder.
func Redact(msg string, secrets ...string) string {
	for _, secret := range secrets {
		if len(secret) < 4 {
			continue
		}
		msg = strings.ReplaceAll(msg, secret, "[REDACTED]")
	}
	return msg
}
