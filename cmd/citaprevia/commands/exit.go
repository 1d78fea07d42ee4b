package commands

import (
	"errors"
	"fmt"
)

const (
	ExitOk = 0
	// ExitFault covers both argument errors and failures while talking to the upstream.
	ExitFault = 1
	// ExitUnsatisfied means the command worked but found nothing, like no appointments.
	ExitUnsatisfied = 2
)

// exitError carries the exit code a command wants the process to end with.
type exitError struct {
	code int
	err  error
}

func (e exitError) Error() string {
	return e.err.Error()
}

func (e exitError) Unwrap() error {
	return e.err
}

func unsatisfied(format string, args ...any) error {
	return exitError{code: ExitUnsatisfied, err: fmt.Errorf(format, args...)}
}

// quietUnsatisfied ends with ExitUnsatisfied without printing anything.
var quietUnsatisfied = exitError{code: ExitUnsatisfied, err: errors.New("")}

func exitCode(err error) int {
	if err == nil {
		return ExitOk
	}
	var exit exitError
	if errors.As(err, &exit) {
		return exit.code
	}
	return ExitFault
}
