package engine

import (
	"errors"
	"fmt"

	"github.com/pancake-cli/pancake/internal/git"
	"github.com/pancake-cli/pancake/internal/model"
	"github.com/pancake-cli/pancake/internal/store"
)

// NeedsResolutionError reports an operation suspended on a rebase conflict.
// The journal entry stays on disk; --continue or --abort picks it up.
type NeedsResolutionError struct {
	Branch string
	Paths  []string
	Hint   string
}

func (e *NeedsResolutionError) Error() string {
	return fmt.Sprintf("rebase of '%s' hit conflicts; %s", e.Branch, e.Hint)
}

// StackInconsistentError reports drift that blocks the requested operation.
type StackInconsistentError struct {
	Details string
}

func (e *StackInconsistentError) Error() string {
	return fmt.Sprintf("stack metadata is inconsistent with the repository: %s", e.Details)
}

// RemoteDivergedError reports a push lease failure.
type RemoteDivergedError struct {
	Branch string
}

func (e *RemoteDivergedError) Error() string {
	return fmt.Sprintf("remote branch '%s' has newer commits; pull and resolve before retrying", e.Branch)
}

// OrphanBranchError reports an operation on a tracked branch whose ref is gone.
type OrphanBranchError struct {
	Branch string
}

func (e *OrphanBranchError) Error() string {
	return fmt.Sprintf("branch '%s' is tracked but its ref is gone; delete it or restore the branch", e.Branch)
}

// UsageError reports invalid user input.
type UsageError struct {
	Msg string
}

func (e *UsageError) Error() string { return e.Msg }

// Usagef builds a UsageError.
func Usagef(format string, args ...interface{}) error {
	return &UsageError{Msg: fmt.Sprintf(format, args...)}
}

// Exit codes for the pk process.
const (
	ExitOK                = 0
	ExitFailure           = 1
	ExitUsage             = 2
	ExitNeedsResolution   = 3
	ExitBusy              = 4
	ExitStackInconsistent = 5
	ExitRemoteDiverged    = 6
)

// ExitCode classifies an error into the pk exit code contract.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var (
		busy         *store.BusyError
		needs        *NeedsResolutionError
		inconsistent *StackInconsistentError
		diverged     *RemoteDivergedError
		gitDiverged  *git.DivergedError
		usage        *UsageError
		ambiguous    *model.AmbiguousMatchError
		depth        *model.DepthExceededError
	)
	switch {
	case errors.As(err, &busy):
		return ExitBusy
	case errors.As(err, &needs):
		return ExitNeedsResolution
	case errors.As(err, &inconsistent):
		return ExitStackInconsistent
	case errors.As(err, &diverged), errors.As(err, &gitDiverged):
		return ExitRemoteDiverged
	case errors.As(err, &usage), errors.As(err, &ambiguous), errors.As(err, &depth):
		return ExitUsage
	default:
		return ExitFailure
	}
}
