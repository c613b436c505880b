/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: interfaces.go
Description: Shared interfaces for the Akaylee Validator. Defines the contracts
between the validation engine, the command runner, the version-control diff source,
and the model-call transport to break import cycles and enable proper modular design.
*/

package interfaces

import (
	"context"
	"time"
)

// Candidate represents a single generated test awaiting acceptance.
// The insertion lines are produced by a separate analysis step and
// consumed here as-is.
type Candidate struct {
	ID               string
	TestCode         string // test body to splice into the test file
	NewImportsCode   string // optional import block required by the test
	InsertAfterLine  int    // 1-based line after which TestCode is spliced
	ImportsAfterLine int    // 1-based line after which NewImportsCode is spliced (0 = none)
}

// RunResult captures everything observed from one invocation of the
// external test command.
type RunResult struct {
	Stdout    string
	Stderr    string
	ExitCode  int
	Duration  time.Duration
	StartedAt time.Time
	TimedOut  bool
}

// Runner executes an external test command with a hard wall-clock deadline.
// Implementations must forcibly terminate the whole process tree when the
// deadline fires.
type Runner interface {
	// Run executes command inside workdir, blocking until the process
	// exits or the timeout elapses.
	Run(ctx context.Context, command string, workdir string, timeout time.Duration) (*RunResult, error)
}

// DiffSource supplies the line numbers changed relative to a comparison
// branch, keyed by repository-relative file path.
type DiffSource interface {
	ChangedLines(workdir string, comparisonBranch string) (map[string][]int, error)
}

// ModelCaller is the prompt/response transport. The response cache
// substitutes for a live implementation in replay mode.
type ModelCaller interface {
	// Call sends a rendered prompt and returns the response text together
	// with the prompt and completion token counts.
	Call(ctx context.Context, prompt string) (text string, promptTokens int, completionTokens int, err error)
}

// FailureParser extracts per-test failure identifiers from test command
// output, when the test framework exposes them. A nil parser means exit
// code alone is the pass/fail signal.
type FailureParser func(stdout, stderr string) []string

// ValidatorConfig contains all configuration parameters for the validation
// engine. Behavior toggles like diff coverage are explicit fields, never
// environment-gated.
type ValidatorConfig struct {
	// Target files
	SourceFilePath string `json:"source_file_path"` // Source file under test; informational to the engine, consumed by cache file hashing
	TestFilePath   string `json:"test_file_path"`   // Test file candidates are spliced into

	// Test command configuration
	TestCommand    string        `json:"test_command"`     // Command that runs the suite and emits coverage
	TestCommandDir string        `json:"test_command_dir"` // Working directory for the command
	MaxRunTime     time.Duration `json:"max_run_time"`     // Hard wall-clock deadline per run

	// Coverage configuration
	CoverageReportPath    string `json:"coverage_report_path"`     // Artifact the command writes
	CoverageFormat        string `json:"coverage_format"`          // cobertura, lcov, or jacoco-csv
	UseDiffCoverage       bool   `json:"use_diff_coverage"`        // Compare diff-only coverage instead of whole-repo
	ComparisonBranch      string `json:"comparison_branch"`        // Branch diff coverage is computed against
	RunTestsMultipleTimes int    `json:"run_tests_multiple_times"` // Extra repetitions to shake out flakiness

	// Logging configuration
	LogLevel string `json:"log_level"` // Logging level (debug, info, warn, error)
	LogDir   string `json:"log_dir"`   // Log output directory
	JSONLogs bool   `json:"json_logs"` // Use JSON log format
}
