package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/syssam/magicbox"
	"github.com/syssam/magicbox/driver"
)

// Exit codes.
const (
	exitGeneral    = 1
	exitConfig     = 2
	exitDBConnect  = 3
	exitNotFound   = 4
	exitConstraint = 5
)

// exitError wraps an error with an exit code.
type exitError struct {
	code int
	msg  string
	err  error
}

func (e *exitError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.err)
	}
	return e.msg
}

func (e *exitError) Unwrap() error {
	return e.err
}

func configError(msg string, err error) *exitError {
	return &exitError{code: exitConfig, msg: msg, err: err}
}

func dbConnectError(msg string, err error) *exitError {
	return &exitError{code: exitDBConnect, msg: msg, err: err}
}

// commandError classifies an engine error.
func commandError(msg string, err error) *exitError {
	switch {
	case magicbox.IsNotFound(err):
		return &exitError{code: exitNotFound, msg: msg, err: err}
	case magicbox.IsConfigError(err):
		return configError(msg, err)
	case driver.IsConstraintError(err):
		return &exitError{code: exitConstraint, msg: fmt.Sprintf("%s (%s violation)", msg, driver.Classify(err)), err: err}
	default:
		return &exitError{code: exitGeneral, msg: msg, err: err}
	}
}

// exitWithError prints the error and exits with the appropriate code.
func exitWithError(err error) {
	fmt.Fprintln(os.Stderr, "Error:", err)
	var e *exitError
	if errors.As(err, &e) {
		os.Exit(e.code)
	}
	os.Exit(exitGeneral)
}
