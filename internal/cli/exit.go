package cli

import (
	"errors"
	"fmt"
)

// exitError carries a process exit status through cobra's error return.
type exitError struct {
	code int
	msg  string
}

func (e *exitError) Error() string {
	return e.msg
}

// invalidf reports a usage or configuration error; those exit with status 2.
func invalidf(format string, args ...any) error {
	return &exitError{code: 2, msg: fmt.Sprintf(format, args...)}
}

// exitWith reports a sweep or collaborator failure with the given status.
func exitWith(code int, format string, args ...any) error {
	return &exitError{code: code, msg: fmt.Sprintf(format, args...)}
}

// ExitCode maps a command error to the process exit status: nil is 0, an
// exitError carries its own code, anything else is 1.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return 1
}
