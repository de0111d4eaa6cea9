package supervisor

import "errors"

// Lifecycle errors returned by Controller.
var (
	ErrAlreadyRunning  = errors.New("supervisor already running")
	ErrNotRunning      = errors.New("supervisor not running")
	ErrShutdownTimeout = errors.New("supervisor did not stop in time")
)
