/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: types.go
Description: Core types for the Akaylee Validator state machine. Defines attempt
states, terminal outcomes with human-readable reasons, and the typed errors the
engine surfaces to its caller.
*/

package validation

import (
	"fmt"
	"time"

	"github.com/kleascm/akaylee-validator/pkg/coverage"
	"github.com/kleascm/akaylee-validator/pkg/interfaces"
)

// State represents a stage in one candidate's validation lifecycle.
// PENDING -> MODIFIED -> EXECUTED -> {PASSED, FAILED, TIMED_OUT} ->
// {ACCEPTED, ROLLED_BACK}. ACCEPTED and ROLLED_BACK are terminal.
type State string

const (
	StatePending    State = "PENDING"
	StateModified   State = "MODIFIED"
	StateExecuted   State = "EXECUTED"
	StatePassed     State = "PASSED"
	StateFailed     State = "FAILED"
	StateTimedOut   State = "TIMED_OUT"
	StateAccepted   State = "ACCEPTED"
	StateRolledBack State = "ROLLED_BACK"
)

// Rollback reasons attached to terminal outcomes.
const (
	ReasonTestFailed           = "Test failed"
	ReasonTimedOut             = "Test run exceeded the time limit"
	ReasonCoverageNotIncreased = "Coverage did not increase"
	ReasonFlaky                = "Test is flaky: failed on a repeated run"
	ReasonReportUnreadable     = "coverage report missing/unreadable"
	ReasonInsertionOutOfBounds = "Insertion point out of file bounds"
)

// Attempt is the full record of one candidate-test trial. Created when a
// candidate is dequeued and discarded after the caller logs the outcome;
// only the rolling baseline survives between attempts.
type Attempt struct {
	ID        string                   `json:"id"`
	Candidate interfaces.Candidate     `json:"candidate"`
	Baseline  *coverage.CoverageReport `json:"baseline"`
	NewReport *coverage.CoverageReport `json:"new_report"` // nil if no report was produced

	Stdout   string        `json:"stdout"`
	Stderr   string        `json:"stderr"`
	ExitCode int           `json:"exit_code"`
	Duration time.Duration `json:"duration"`

	Status State  `json:"status"` // ACCEPTED or ROLLED_BACK
	Reason string `json:"reason"` // human-readable explanation for the status
}

// Accepted reports whether the candidate was kept.
func (a *Attempt) Accepted() bool { return a.Status == StateAccepted }

// InsertionBoundsError indicates a candidate's insertion line falls outside
// the test file. Fatal to that candidate only; the session continues.
type InsertionBoundsError struct {
	Line      int
	FileLines int
}

// Error implements the error interface
func (e *InsertionBoundsError) Error() string {
	return fmt.Sprintf("insertion line %d is out of bounds for a %d-line file", e.Line, e.FileLines)
}
