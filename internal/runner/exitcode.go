// Package runner maps the outcome of a documentation run to a process exit
// status.
package runner

import (
	"fmt"

	"github.com/julianshen/autodoc/internal/docgen"
)

// Exit codes reported by the CLI.
const (
	ExitOK          = 0
	ExitFailure     = 1
	ExitUnitsFailed = 2
)

// ExitError is returned when the CLI should exit with a non-zero code.
// Using a typed error instead of os.Exit ensures deferred cleanup runs.
type ExitError struct {
	Code   int
	Reason string
}

func (e *ExitError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("exit code %d: %s", e.Code, e.Reason)
	}
	return fmt.Sprintf("exit code %d", e.Code)
}

// ExitCodeFromReport returns ExitUnitsFailed when failOnError is set and at
// least one file could not be documented, ExitOK otherwise.
func ExitCodeFromReport(rep *docgen.Report, failOnError bool) int {
	if !failOnError || rep == nil {
		return ExitOK
	}
	if len(rep.Failed()) > 0 {
		return ExitUnitsFailed
	}
	return ExitOK
}

// CheckReport wraps ExitCodeFromReport into an *ExitError, or nil.
func CheckReport(rep *docgen.Report, failOnError bool) error {
	code := ExitCodeFromReport(rep, failOnError)
	if code == ExitOK {
		return nil
	}
	return &ExitError{Code: code, Reason: fmt.Sprintf("%d files failed", len(rep.Failed()))}
}
