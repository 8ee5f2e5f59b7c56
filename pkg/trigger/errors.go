package trigger

import "fmt"

// FailedError names the trigger and package that failed, and its exit
// status, so a transaction abort message can point at the offending
// program.
type FailedError struct {
	Trigger  Trigger
	ExitCode int
	Err      error
}

func (e *FailedError) Error() string {
	return fmt.Sprintf("trigger: %s exited %d: %v", e.Trigger.Program, e.ExitCode, e.Err)
}

func (e *FailedError) Unwrap() error {
	return e.Err
}
