/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: validator.go
Description: Validation state machine for the Akaylee Validator. Orchestrates one
candidate attempt end to end: splice into the test file, run the test command
under the deadline, parse and compare coverage against the rolling baseline, and
accept or roll back. The test file is restored on every exit path.
*/

package validation

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/kleascm/akaylee-validator/pkg/coverage"
	"github.com/kleascm/akaylee-validator/pkg/interfaces"
)

// Validator drives coverage-guided acceptance of candidate tests. Attempts
// are strictly sequential: one rolling baseline, one test file, never two
// candidates in flight.
type Validator struct {
	config        *interfaces.ValidatorConfig
	format        coverage.Format
	runner        interfaces.Runner
	parser        *coverage.Parser
	diffSource    interfaces.DiffSource
	failureParser interfaces.FailureParser
	logger        *logrus.Logger

	baseline         *coverage.CoverageReport
	baselineFailures map[string]bool
}

// NewValidator creates a validation engine for the given configuration.
func NewValidator(config *interfaces.ValidatorConfig, runner interfaces.Runner, logger *logrus.Logger) (*Validator, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if config.TestCommand == "" {
		return nil, errors.New("test command must not be empty")
	}
	if config.TestFilePath == "" {
		return nil, errors.New("test file path must not be empty")
	}
	if config.CoverageReportPath == "" {
		return nil, errors.New("coverage report path must not be empty")
	}
	if config.MaxRunTime <= 0 {
		return nil, errors.New("max run time must be positive")
	}
	if config.UseDiffCoverage && config.ComparisonBranch == "" {
		return nil, errors.New("diff coverage requires a comparison branch")
	}
	format, err := coverage.ParseFormat(config.CoverageFormat)
	if err != nil {
		return nil, err
	}
	if runner == nil {
		return nil, errors.New("runner must not be nil")
	}

	return &Validator{
		config:           config,
		format:           format,
		runner:           runner,
		parser:           coverage.NewParser(logger),
		logger:           logger,
		baselineFailures: make(map[string]bool),
	}, nil
}

// SetDiffSource wires the version-control diff source used when diff
// coverage is enabled.
func (v *Validator) SetDiffSource(source interfaces.DiffSource) {
	v.diffSource = source
}

// SetFailureParser wires per-test failure attribution. Without a parser,
// exit code alone decides pass/fail.
func (v *Validator) SetFailureParser(parser interfaces.FailureParser) {
	v.failureParser = parser
}

// SetBaseline installs a baseline report obtained elsewhere.
func (v *Validator) SetBaseline(report *coverage.CoverageReport) {
	v.baseline = report
}

// BaselineReport returns the current rolling baseline, or nil before the
// first baseline run.
func (v *Validator) BaselineReport() *coverage.CoverageReport {
	return v.baseline
}

// EstablishBaseline runs the test command once against the unmodified test
// file and installs the resulting report as the rolling baseline. A failing
// baseline run is fatal: nothing can be validated against a broken suite.
func (v *Validator) EstablishBaseline(ctx context.Context) (*coverage.CoverageReport, error) {
	v.logger.WithField("command", v.config.TestCommand).Info("Running baseline test command")

	run, err := v.runner.Run(ctx, v.config.TestCommand, v.config.TestCommandDir, v.config.MaxRunTime)
	if err != nil {
		return nil, fmt.Errorf("baseline run failed: %w", err)
	}
	if run.TimedOut {
		return nil, fmt.Errorf("baseline run exceeded the %s time limit", v.config.MaxRunTime)
	}
	if run.ExitCode != 0 {
		return nil, fmt.Errorf("baseline test command exited with code %d; stdout:\n%s\nstderr:\n%s",
			run.ExitCode, run.Stdout, run.Stderr)
	}

	report, err := v.parser.ParseFresh(v.config.CoverageReportPath, v.format, run.StartedAt)
	if err != nil {
		return nil, fmt.Errorf("baseline coverage: %w", err)
	}
	if v.config.UseDiffCoverage {
		report, err = v.diffReport(report)
		if err != nil {
			return nil, fmt.Errorf("baseline diff coverage: %w", err)
		}
	}

	if v.failureParser != nil {
		for _, id := range v.failureParser(run.Stdout, run.Stderr) {
			v.baselineFailures[id] = true
		}
	}

	v.baseline = report
	v.logger.WithField("coverage", fmt.Sprintf("%.2f%%", report.TotalCoverage*100)).Info("Baseline established")
	return report, nil
}

// Validate runs one candidate through the full state machine and returns a
// terminal attempt. Per-attempt failures become ROLLED_BACK outcomes; only
// unrecoverable I/O errors propagate as errors, and the test file is
// restored before they do.
func (v *Validator) Validate(ctx context.Context, candidate interfaces.Candidate) (attempt *Attempt, err error) {
	if v.baseline == nil {
		return nil, errors.New("no baseline report: call EstablishBaseline or SetBaseline first")
	}
	if candidate.ID == "" {
		candidate.ID = uuid.NewString()
	}

	attempt = &Attempt{
		ID:        candidate.ID,
		Candidate: candidate,
		Baseline:  v.baseline,
		Status:    StatePending,
	}

	guard, err := newFileGuard(v.config.TestFilePath)
	if err != nil {
		return nil, err
	}
	// Restore-on-all-exit-paths: the rollback must complete before any
	// outcome leaves this function.
	defer func() {
		if rerr := guard.restore(); rerr != nil && err == nil {
			err = rerr
		}
	}()

	// PENDING -> MODIFIED
	if serr := guard.splice(candidate); serr != nil {
		var bounds *InsertionBoundsError
		if errors.As(serr, &bounds) {
			v.logger.WithField("candidate", candidate.ID).Warn(bounds.Error())
			return v.rollBack(attempt, ReasonInsertionOutOfBounds), nil
		}
		return nil, serr
	}
	attempt.Status = StateModified

	// MODIFIED -> EXECUTED
	run, err := v.runner.Run(ctx, v.config.TestCommand, v.config.TestCommandDir, v.config.MaxRunTime)
	if err != nil {
		return nil, err
	}
	attempt.Status = StateExecuted
	attempt.Stdout = run.Stdout
	attempt.Stderr = run.Stderr
	attempt.ExitCode = run.ExitCode
	attempt.Duration = run.Duration

	// EXECUTED -> TIMED_OUT | FAILED | PASSED
	if run.TimedOut {
		attempt.Status = StateTimedOut
		return v.rollBack(attempt, ReasonTimedOut), nil
	}
	if v.runFailed(run) {
		attempt.Status = StateFailed
		return v.rollBack(attempt, ReasonTestFailed), nil
	}
	attempt.Status = StatePassed

	// Repeated runs demote a flaky candidate before coverage is consulted.
	if v.config.RunTestsMultipleTimes > 1 {
		for i := 1; i <= v.config.RunTestsMultipleTimes; i++ {
			repeat, rerr := v.runner.Run(ctx, v.config.TestCommand, v.config.TestCommandDir, v.config.MaxRunTime)
			if rerr != nil {
				return nil, rerr
			}
			if repeat.TimedOut || v.runFailed(repeat) {
				v.logger.WithFields(logrus.Fields{
					"candidate":  candidate.ID,
					"repetition": i,
				}).Warn("Candidate failed on a repeated run")
				return v.rollBack(attempt, ReasonFlaky), nil
			}
			run = repeat
		}
	}

	// PASSED -> ACCEPTED | ROLLED_BACK, decided by coverage.
	report, perr := v.parser.ParseFresh(v.config.CoverageReportPath, v.format, run.StartedAt)
	if perr != nil {
		v.logger.WithError(perr).Warn("Run passed but coverage artifact is unusable")
		return v.rollBack(attempt, ReasonReportUnreadable), nil
	}
	if v.config.UseDiffCoverage {
		report, perr = v.diffReport(report)
		if perr != nil {
			v.logger.WithError(perr).Warn("Could not compute diff coverage")
			return v.rollBack(attempt, ReasonReportUnreadable), nil
		}
	}
	attempt.NewReport = report

	if report.TotalCoverage <= v.baseline.TotalCoverage {
		return v.rollBack(attempt, ReasonCoverageNotIncreased), nil
	}

	guard.keep()
	v.baseline = report
	attempt.Status = StateAccepted
	attempt.Reason = fmt.Sprintf("Coverage increased from %.2f%% to %.2f%%",
		attempt.Baseline.TotalCoverage*100, report.TotalCoverage*100)
	v.logger.WithFields(logrus.Fields{
		"candidate": candidate.ID,
		"coverage":  fmt.Sprintf("%.2f%%", report.TotalCoverage*100),
	}).Info("Candidate accepted")
	return attempt, nil
}

// runFailed decides whether a non-zero exit belongs to the candidate. When
// the framework exposes per-test identifiers, failures already present in
// the baseline are not held against the candidate; otherwise exit code is
// the signal.
func (v *Validator) runFailed(run *interfaces.RunResult) bool {
	if run.ExitCode == 0 {
		return false
	}
	if v.failureParser == nil {
		return true
	}
	failures := v.failureParser(run.Stdout, run.Stderr)
	if len(failures) == 0 {
		// No identifiers in the output; fall back to the exit code.
		return true
	}
	for _, id := range failures {
		if !v.baselineFailures[id] {
			return true
		}
	}
	return false
}

// diffReport restricts report to the lines changed against the comparison
// branch.
func (v *Validator) diffReport(report *coverage.CoverageReport) (*coverage.CoverageReport, error) {
	if v.diffSource == nil {
		return nil, errors.New("diff coverage enabled but no diff source configured")
	}
	changed, err := v.diffSource.ChangedLines(v.config.TestCommandDir, v.config.ComparisonBranch)
	if err != nil {
		return nil, err
	}
	return coverage.DiffCoverage(report, changed), nil
}

// rollBack finalizes an attempt as ROLLED_BACK with the given reason.
func (v *Validator) rollBack(attempt *Attempt, reason string) *Attempt {
	attempt.Status = StateRolledBack
	attempt.Reason = reason
	v.logger.WithFields(logrus.Fields{
		"candidate": attempt.ID,
		"reason":    reason,
		"exit_code": attempt.ExitCode,
	}).Info("Candidate rolled back")
	return attempt
}
