package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"

	"github.com/corey/scoreweb/internal/app"
)

// Exit codes.
const (
	exitError   = 1 // command failed
	exitPartial = 3 // ranking finished but some documents could not be read
)

// partialError marks a ranking that was printed despite unreadable documents.
type partialError struct{ err *multierror.Error }

func (e partialError) Error() string {
	return fmt.Sprintf("%d document(s) could not be read", len(e.err.Errors))
}

func (e partialError) Unwrap() error { return e.err }

// ExitCode maps a command error to the process exit code.
func ExitCode(err error) int {
	var pe partialError
	if errors.As(err, &pe) {
		return exitPartial
	}
	return exitError
}

// isDBLockError returns true if the error chain contains a bbolt lock timeout.
// bbolt returns the string "timeout" when it cannot acquire the file lock
// within the configured deadline.
func isDBLockError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "timeout")
}

// diagnoseDBLock returns actionable guidance when the history database is
// held by another process, usually a running `scoreweb watch`. command is
// the subcommand that failed; only rank and watch can skip history.
func diagnoseDBLock(paths *app.Paths, command string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "history database %s is locked by another process\n", paths.DB)
	sb.WriteString("  → a `scoreweb watch` may be running in this workspace; stop it first\n")
	if command == "rank" || command == "watch" {
		sb.WriteString("  → or skip history for this command:  --no-history\n")
	}
	sb.WriteString("  → find the process:  ps aux | grep scoreweb")
	return sb.String()
}
