package patroni

import (
	"errors"
	"fmt"
)

var (
	// ErrMemberNotFound reports a topology lookup for a name the cluster
	// does not contain.
	ErrMemberNotFound = errors.New("member not found in cluster topology")
)

// UnavailableError reports that cluster topology could not be read within
// the retry budget. It is transient by nature; callers on read-only paths
// usually degrade to "not ready" instead of propagating it.
type UnavailableError struct {
	Err error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("cluster unavailable: %v", e.Err)
}

func (e *UnavailableError) Unwrap() error {
	return e.Err
}

// SwitchoverError reports a switchover the manager rejected or that never
// reached it. StatusCode carries the final rejection status; it is 0 when
// no HTTP response was ever received, in which case Err holds the
// transport cause.
type SwitchoverError struct {
	StatusCode int
	Err        error
}

func (e *SwitchoverError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("switchover failed: received status code %d", e.StatusCode)
	}
	return fmt.Sprintf("switchover failed: %v", e.Err)
}

func (e *SwitchoverError) Unwrap() error {
	return e.Err
}

// ReloadError reports configuration reload exhaustion. Reloads ride out
// connection resets during a service restart, so only a fully spent budget
// produces one.
type ReloadError struct {
	Err error
}

func (e *ReloadError) Error() string {
	return fmt.Sprintf("configuration reload failed: %v", e.Err)
}

func (e *ReloadError) Unwrap() error {
	return e.Err
}
