package retry

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/mavryk-network/activity-history/internal/circuitbreaker"
)

type Class string

const (
	ClassTerminal  Class = "terminal"
	ClassTransient Class = "transient"
)

// Decision tells callers whether a failed page load is worth re-issuing.
// Nothing in the engine retries on its own apart from the single
// rate-limit back-off of the indexer client.
type Decision struct {
	Class  Class
	Reason string
}

func (d Decision) IsTransient() bool {
	return d.Class == ClassTransient
}

type classifiedError struct {
	err    error
	class  Class
	reason string
}

func (e *classifiedError) Error() string {
	return e.err.Error()
}

func (e *classifiedError) Unwrap() error {
	return e.err
}

func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &classifiedError{
		err:    err,
		class:  ClassTransient,
		reason: "explicit_transient",
	}
}

func Terminal(err error) error {
	if err == nil {
		return nil
	}
	return &classifiedError{
		err:    err,
		class:  ClassTerminal,
		reason: "explicit_terminal",
	}
}

type httpStatusError interface {
	HTTPStatus() int
}

// HTTPStatus extracts the response status carried by err, if any.
func HTTPStatus(err error) (int, bool) {
	var statusErr httpStatusError
	if errors.As(err, &statusErr) {
		return statusErr.HTTPStatus(), true
	}
	return 0, false
}

// IsRateLimited reports whether err is an HTTP 429 response.
func IsRateLimited(err error) bool {
	code, ok := HTTPStatus(err)
	return ok && code == http.StatusTooManyRequests
}

func Classify(err error) Decision {
	if err == nil {
		return Decision{Class: ClassTerminal, Reason: "nil_error"}
	}

	var marked *classifiedError
	if errors.As(err, &marked) {
		return Decision{Class: marked.class, Reason: marked.reason}
	}

	if errors.Is(err, context.Canceled) {
		return Decision{Class: ClassTerminal, Reason: "context_canceled"}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return Decision{Class: ClassTransient, Reason: "context_deadline_exceeded"}
	}
	if errors.Is(err, circuitbreaker.ErrCircuitOpen) {
		return Decision{Class: ClassTransient, Reason: "circuit_open"}
	}

	if code, ok := HTTPStatus(err); ok {
		return classifyHTTPStatus(code)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return Decision{Class: ClassTransient, Reason: "net_timeout"}
		}
	}

	lower := strings.ToLower(err.Error())
	if containsAny(lower, terminalMessageTokens) {
		return Decision{Class: ClassTerminal, Reason: "message_terminal"}
	}
	if containsAny(lower, transientMessageTokens) {
		return Decision{Class: ClassTransient, Reason: "message_transient"}
	}

	return Decision{Class: ClassTerminal, Reason: "unknown_terminal_default"}
}

func classifyHTTPStatus(code int) Decision {
	reason := "http_" + strconv.Itoa(code)
	switch {
	case code == http.StatusTooManyRequests, code == http.StatusRequestTimeout:
		return Decision{Class: ClassTransient, Reason: reason}
	case code >= 500:
		return Decision{Class: ClassTransient, Reason: reason}
	default:
		return Decision{Class: ClassTerminal, Reason: reason}
	}
}

func containsAny(msg string, tokens []string) bool {
	for _, token := range tokens {
		if strings.Contains(msg, token) {
			return true
		}
	}
	return false
}

var transientMessageTokens = []string{
	"timeout",
	"timed out",
	"temporar",
	"unavailable",
	"connection reset",
	"connection refused",
	"broken pipe",
	"econnreset",
	"econnrefused",
	"too many requests",
	"rate limit",
	"no such host",
	"server closed idle connection",
}

var terminalMessageTokens = []string{
	"invalid query",
	"invalid argument",
	"unsupported chain",
	"parse error",
	"unmarshal",
	"not found",
}
