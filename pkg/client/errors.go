package client

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	pkgerrors "github.com/pkg/errors"
)

var (
	// ErrDaemonNotRunning is returned when the daemon is not running
	ErrDaemonNotRunning = errors.New("daemon not running")

	// ErrPermissionDenied is returned when the user does not have permission to perform the requested action
	ErrPermissionDenied = errors.New("permission denied")

	// ErrNotFound is returned when 404 is returned from the daemon
	ErrNotFound = errors.New("404 not found")

	// ErrNoDevice is returned when the daemon has no battery reading to
	// offer, because the headset is missing or has not been polled yet.
	ErrNoDevice = errors.New("no headset reading available")

	// ErrPollInProgress is returned when a forced poll overlaps a running one.
	ErrPollInProgress = errors.New("poll already in progress")
)

// statusError maps a non-2xx response to an error. The daemon replies with
// a JSON string describing the problem.
func statusError(code int, body string) error {
	msg := strings.TrimSpace(body)
	if unquoted, err := strconv.Unquote(msg); err == nil {
		msg = unquoted
	}

	switch code {
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusServiceUnavailable:
		return pkgerrors.Wrap(ErrNoDevice, msg)
	case http.StatusConflict:
		return pkgerrors.Wrap(ErrPollInProgress, msg)
	default:
		return pkgerrors.Errorf("got %d: %s", code, msg)
	}
}
