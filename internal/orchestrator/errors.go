package orchestrator

import (
	"errors"
	"fmt"
	"net"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
)

// ErrNotFound is returned when an orchestration resource does not exist.
// Delete and cleanup paths tolerate it as already-done; everywhere else it is
// a real error.
var ErrNotFound = errors.New("orchestration resource not found")

// ErrUnsupportedResize is returned when a resize would cross the boundary
// between the operator-managed and single-node deployment strategies
var ErrUnsupportedResize = errors.New("resize across deployment strategies is not supported")

// TransientError wraps a network error or a 5xx from the orchestration API.
// Jobs failing with a transient error are worth retrying.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient orchestration failure during %s: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err represents a missing orchestration resource
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || apierrors.IsNotFound(err)
}

// classify maps a Kubernetes API error onto the local error taxonomy
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if apierrors.IsNotFound(err) {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	if apierrors.IsServerTimeout(err) ||
		apierrors.IsTimeout(err) ||
		apierrors.IsTooManyRequests(err) ||
		apierrors.IsServiceUnavailable(err) ||
		apierrors.IsInternalError(err) {
		return &TransientError{Op: op, Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return &TransientError{Op: op, Err: err}
	}
	return fmt.Errorf("%s: %w", op, err)
}
