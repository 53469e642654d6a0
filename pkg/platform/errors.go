package platform

import (
	"errors"
	"net/http"
)

// Kind classifies errors surfaced to gateway callers.
type Kind int

const (
	KindUpstream Kind = iota
	KindAuth
	KindNotFound
	KindAccessDenied
	KindNetwork
	KindTimeout
	KindEmptyResult
	KindRunFailed
	KindInvalid
)

func (k Kind) String() string {
	switch k {
	case KindAuth:
		return "auth"
	case KindNotFound:
		return "not_found"
	case KindAccessDenied:
		return "access_denied"
	case KindNetwork:
		return "network"
	case KindTimeout:
		return "timeout"
	case KindEmptyResult:
		return "empty_result"
	case KindRunFailed:
		return "run_failed"
	case KindInvalid:
		return "invalid"
	default:
		return "upstream"
	}
}

// Error is a caller-facing failure. Status mirrors the most relevant upstream
// status and is what the gateway responds with.
type Error struct {
	Kind    Kind
	Status  int
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func NewError(kind Kind, status int, message string) *Error {
	if status == 0 {
		status = defaultStatus(kind)
	}
	return &Error{Kind: kind, Status: status, Message: message}
}

// KindForStatus maps an upstream HTTP status onto the error taxonomy.
func KindForStatus(status int) Kind {
	switch status {
	case http.StatusUnauthorized:
		return KindAuth
	case http.StatusForbidden:
		return KindAccessDenied
	case http.StatusNotFound:
		return KindNotFound
	default:
		return KindUpstream
	}
}

// StatusOf returns the HTTP status for err, 500 for anything that is not an
// *Error.
func StatusOf(err error) int {
	var perr *Error
	if errors.As(err, &perr) {
		return perr.Status
	}
	return http.StatusInternalServerError
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var perr *Error
	return errors.As(err, &perr) && perr.Kind == kind
}

func defaultStatus(kind Kind) int {
	switch kind {
	case KindAuth:
		return http.StatusUnauthorized
	case KindNotFound, KindEmptyResult:
		return http.StatusNotFound
	case KindAccessDenied:
		return http.StatusForbidden
	case KindTimeout:
		return http.StatusRequestTimeout
	case KindRunFailed, KindInvalid:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
