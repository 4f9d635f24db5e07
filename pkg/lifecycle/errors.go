package lifecycle

import "errors"

var (
	// ErrNotReady means the cluster has not converged yet: members still
	// starting or no leader elected. It gates follow-up work; it is not a
	// failure and is never wrapped around another error.
	ErrNotReady = errors.New("cluster is not ready")
)
