package trace

import "fmt"

// RemoteJobError reports a non-success status from the remote job API,
// either at job creation or while polling.
type RemoteJobError struct {
	StatusCode int
	Message    string
}

func (e *RemoteJobError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("remote job returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("remote job returned status %d: %s", e.StatusCode, e.Message)
}

// SubprocessError reports a failed local analyzer invocation: a non-zero
// exit or a missing/unreadable output artifact.
type SubprocessError struct {
	Command string
	Stderr  string
	Err     error
}

func (e *SubprocessError) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("%s failed: %v", e.Command, e.Err)
	}
	return fmt.Sprintf("%s failed: %v: %s", e.Command, e.Err, e.Stderr)
}

func (e *SubprocessError) Unwrap() error {
	return e.Err
}
