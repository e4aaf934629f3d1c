package gateway

import (
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/api/googleapi"

	"github.com/imthebreezy247/gmail-mcp/internal/auth"
)

// Kind classifies a gateway failure for callers that need to decide
// between retrying, re-authorizing, and giving up.
type Kind int

const (
	// KindAuthRequired means no usable credential exists; an interactive
	// grant must run before any operation can succeed.
	KindAuthRequired Kind = iota

	// KindAuthExpired means the credential was rejected by the remote end
	// and cannot be refreshed.
	KindAuthExpired

	// KindRemoteRejected means Gmail understood and refused the request;
	// retrying the same request will fail the same way.
	KindRemoteRejected

	// KindRemoteUnavailable means the request never got a usable answer:
	// transport failure, server error, or rate-limit pushback.
	KindRemoteUnavailable

	// KindLocalIO means a local filesystem operation failed.
	KindLocalIO

	// KindValidation means the request was malformed before it left the
	// process.
	KindValidation
)

func (k Kind) String() string {
	switch k {
	case KindAuthRequired:
		return "auth-required"
	case KindAuthExpired:
		return "auth-expired"
	case KindRemoteRejected:
		return "remote-rejected"
	case KindRemoteUnavailable:
		return "remote-unavailable"
	case KindLocalIO:
		return "local-io"
	case KindValidation:
		return "validation"
	default:
		return "unknown"
	}
}

// Error is the gateway failure type. Op names the operation that failed,
// Ref the remote object involved (message ID, label ID) when there is one.
type Error struct {
	Kind Kind
	Op   string
	Ref  string
	Err  error
}

func (e *Error) Error() string {
	if e.Ref != "" {
		return fmt.Sprintf("%s %s: %s: %v", e.Op, e.Ref, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf extracts the failure kind, defaulting to RemoteUnavailable for
// errors that did not pass through the gateway taxonomy.
func KindOf(err error) Kind {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Kind
	}
	return KindRemoteUnavailable
}

func validationErr(op string, format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Op: op, Err: fmt.Errorf(format, args...)}
}

func localErr(op, ref string, err error) *Error {
	return &Error{Kind: KindLocalIO, Op: op, Ref: ref, Err: err}
}

// mapRemoteError folds an API call failure into the taxonomy. Status codes
// drive the classification: 401 means the credential was rejected upstream,
// 429 and 5xx mean the request may succeed later, everything else in the
// 4xx range is a definitive refusal.
func mapRemoteError(op, ref string, err error) *Error {
	if err == nil {
		return nil
	}

	if errors.Is(err, auth.ErrAuthRequired) {
		return &Error{Kind: KindAuthRequired, Op: op, Ref: ref, Err: err}
	}
	if errors.Is(err, auth.ErrAuthExpired) {
		return &Error{Kind: KindAuthExpired, Op: op, Ref: ref, Err: err}
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == http.StatusUnauthorized:
			return &Error{Kind: KindAuthExpired, Op: op, Ref: ref, Err: err}
		case apiErr.Code == http.StatusTooManyRequests:
			return &Error{Kind: KindRemoteUnavailable, Op: op, Ref: ref, Err: err}
		case apiErr.Code >= 500:
			return &Error{Kind: KindRemoteUnavailable, Op: op, Ref: ref, Err: err}
		case apiErr.Code >= 400:
			return &Error{Kind: KindRemoteRejected, Op: op, Ref: ref, Err: err}
		}
	}

	// Transport-level failures never produced a status code.
	return &Error{Kind: KindRemoteUnavailable, Op: op, Ref: ref, Err: err}
}
