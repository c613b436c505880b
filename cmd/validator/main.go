/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: main.go
Description: Main command-line interface for the Akaylee Validator. Provides
commands for establishing a coverage baseline and for running candidate tests
through the coverage-driven validation engine, with comprehensive configuration
and logging options.
*/

package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kleascm/akaylee-validator/cmd/validator/commands"
)

var (
	// Configuration
	configFile string
	logLevel   string
	jsonLogs   bool

	// Target configuration
	sourceFile string
	testFile   string

	// Test command configuration
	testCommand    string
	testCommandDir string
	maxRunTime     time.Duration

	// Coverage configuration
	coverageReport string
	coverageFormat string
	diffCoverage   bool
	branch         string
	runMultiple    int
	filePattern    string

	// Candidate configuration
	candidatesDir string

	// Logging configuration
	logDir      string
	logFormat   string
	logMaxFiles int
)

func main() {
	// Create root command
	rootCmd := &cobra.Command{
		Use:   "akaylee-validator",
		Short: "Akaylee Validator - Coverage-driven acceptance engine for generated tests",
		Long: `Akaylee Validator drives iterative, coverage-guided acceptance of machine-generated
test candidates against a real test suite. Each candidate is spliced into the test
file, executed under a hard deadline, and kept only when it passes and strictly
increases coverage; everything else is rolled back byte-for-byte.`,
		Version: "1.0.0",
	}

	// Add persistent flags
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Configuration file path")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Logging level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&jsonLogs, "json-logs", false, "Use JSON log format")
	rootCmd.PersistentFlags().StringVar(&logDir, "log-dir", "./logs", "Log output directory")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "custom", "Log format (text, json, custom)")
	rootCmd.PersistentFlags().IntVar(&logMaxFiles, "log-max-files", 10, "Maximum number of log files to keep")

	viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("json_logs", rootCmd.PersistentFlags().Lookup("json-logs"))
	viper.BindPFlag("log_dir", rootCmd.PersistentFlags().Lookup("log-dir"))
	viper.BindPFlag("log_format", rootCmd.PersistentFlags().Lookup("log-format"))
	viper.BindPFlag("log_max_files", rootCmd.PersistentFlags().Lookup("log-max-files"))

	// Add validate command
	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate candidate tests against the coverage baseline",
		Long: `Run each candidate test through the validation state machine: splice it into
the test file, execute the test command, parse the coverage artifact, and accept the
candidate only when the suite passes and coverage strictly increases.`,
		RunE: commands.RunValidate,
	}

	validateCmd.Flags().StringVar(&sourceFile, "source-file", "", "Path to the source file under test (informational; recorded with the session)")
	validateCmd.Flags().StringVar(&testFile, "test-file", "", "Path to the test file candidates are spliced into (required)")
	validateCmd.Flags().StringVar(&testCommand, "test-command", "", "Command that runs the suite and emits coverage (required)")
	validateCmd.Flags().StringVar(&testCommandDir, "test-command-dir", ".", "Working directory for the test command")
	validateCmd.Flags().DurationVar(&maxRunTime, "max-run-time", 30*time.Second, "Hard wall-clock deadline per test run")
	validateCmd.Flags().StringVar(&coverageReport, "coverage-report", "", "Path to the coverage artifact the command writes (required)")
	validateCmd.Flags().StringVar(&coverageFormat, "coverage-format", "cobertura", "Coverage artifact format (cobertura, lcov, jacoco-csv)")
	validateCmd.Flags().BoolVar(&diffCoverage, "diff-coverage", false, "Compare diff-only coverage instead of whole-repo coverage")
	validateCmd.Flags().StringVar(&branch, "branch", "main", "Comparison branch for diff coverage")
	validateCmd.Flags().IntVar(&runMultiple, "run-tests-multiple-times", 0, "Extra repetitions for a passing candidate to shake out flakiness")
	validateCmd.Flags().StringVar(&candidatesDir, "candidates", "", "Directory containing candidate JSON files (required)")

	validateCmd.MarkFlagRequired("test-file")
	validateCmd.MarkFlagRequired("test-command")
	validateCmd.MarkFlagRequired("coverage-report")
	validateCmd.MarkFlagRequired("candidates")

	// Both subcommands share viper keys, so each binds its own flag set
	// just before running.
	validateCmd.PreRun = func(cmd *cobra.Command, args []string) {
		viper.BindPFlag("source_file_path", cmd.Flags().Lookup("source-file"))
		viper.BindPFlag("test_file_path", cmd.Flags().Lookup("test-file"))
		viper.BindPFlag("test_command", cmd.Flags().Lookup("test-command"))
		viper.BindPFlag("test_command_dir", cmd.Flags().Lookup("test-command-dir"))
		viper.BindPFlag("max_run_time", cmd.Flags().Lookup("max-run-time"))
		viper.BindPFlag("coverage_report_path", cmd.Flags().Lookup("coverage-report"))
		viper.BindPFlag("coverage_format", cmd.Flags().Lookup("coverage-format"))
		viper.BindPFlag("use_diff_coverage", cmd.Flags().Lookup("diff-coverage"))
		viper.BindPFlag("comparison_branch", cmd.Flags().Lookup("branch"))
		viper.BindPFlag("run_tests_multiple_times", cmd.Flags().Lookup("run-tests-multiple-times"))
		viper.BindPFlag("candidates_dir", cmd.Flags().Lookup("candidates"))
	}

	rootCmd.AddCommand(validateCmd)

	// Add baseline command
	baselineCmd := &cobra.Command{
		Use:   "baseline",
		Short: "Run the test command once and print the coverage baseline",
		Long: `Run the configured test command against the unmodified test file, parse the
coverage artifact, and print the resulting per-file and aggregate coverage. Useful for
verifying the command and artifact configuration before a validation session.`,
		RunE: commands.RunBaseline,
	}

	baselineCmd.Flags().StringVar(&testCommand, "test-command", "", "Command that runs the suite and emits coverage (required)")
	baselineCmd.Flags().StringVar(&testCommandDir, "test-command-dir", ".", "Working directory for the test command")
	baselineCmd.Flags().DurationVar(&maxRunTime, "max-run-time", 30*time.Second, "Hard wall-clock deadline for the run")
	baselineCmd.Flags().StringVar(&coverageReport, "coverage-report", "", "Path to the coverage artifact the command writes (required)")
	baselineCmd.Flags().StringVar(&coverageFormat, "coverage-format", "cobertura", "Coverage artifact format (cobertura, lcov, jacoco-csv)")
	baselineCmd.Flags().BoolVar(&diffCoverage, "diff-coverage", false, "Restrict the baseline to lines changed against the comparison branch")
	baselineCmd.Flags().StringVar(&branch, "branch", "main", "Comparison branch for diff coverage")
	baselineCmd.Flags().StringVar(&filePattern, "file-pattern", "", "Only count files whose path contains this pattern")

	baselineCmd.MarkFlagRequired("test-command")
	baselineCmd.MarkFlagRequired("coverage-report")

	baselineCmd.PreRun = func(cmd *cobra.Command, args []string) {
		viper.BindPFlag("test_command", cmd.Flags().Lookup("test-command"))
		viper.BindPFlag("test_command_dir", cmd.Flags().Lookup("test-command-dir"))
		viper.BindPFlag("max_run_time", cmd.Flags().Lookup("max-run-time"))
		viper.BindPFlag("coverage_report_path", cmd.Flags().Lookup("coverage-report"))
		viper.BindPFlag("coverage_format", cmd.Flags().Lookup("coverage-format"))
		viper.BindPFlag("use_diff_coverage", cmd.Flags().Lookup("diff-coverage"))
		viper.BindPFlag("comparison_branch", cmd.Flags().Lookup("branch"))
		viper.BindPFlag("file_pattern", cmd.Flags().Lookup("file-pattern"))
	}

	rootCmd.AddCommand(baselineCmd)

	// Execute root command
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
