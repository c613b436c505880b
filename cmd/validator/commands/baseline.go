/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: baseline.go
Description: Baseline command implementation for the Akaylee Validator. Runs
the test command once, parses the coverage report, and prints per-file and
aggregate coverage, optionally filtered to files matching a pattern.
*/

package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kleascm/akaylee-validator/pkg/execution"
	"github.com/kleascm/akaylee-validator/pkg/validation"
	"github.com/kleascm/akaylee-validator/pkg/vcs"
)

// RunBaseline executes the baseline command
func RunBaseline(cmd *cobra.Command, args []string) error {
	fmt.Println("📊 Akaylee Validator - Baseline Coverage")
	fmt.Println("=========================================")
	fmt.Println()

	if err := LoadConfig(); err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := SetupLogging(); err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	defer logger.Close()

	config := createValidatorConfig()
	// The baseline command never touches the test file, but the engine
	// still requires a path for its configuration to validate.
	if config.TestFilePath == "" {
		config.TestFilePath = config.CoverageReportPath
	}
	log := logger.GetLogger()

	runner := execution.NewCommandRunner(log)
	validator, err := validation.NewValidator(config, runner, log)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if config.UseDiffCoverage {
		validator.SetDiffSource(vcs.NewGitDiffSource(log))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	report, err := validator.EstablishBaseline(ctx)
	if err != nil {
		return fmt.Errorf("failed to establish baseline: %w", err)
	}

	if pattern := viper.GetString("file_pattern"); pattern != "" {
		report = report.Filter(pattern)
	}

	paths := make([]string, 0, len(report.FileCoverage))
	for path := range report.FileCoverage {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	for _, path := range paths {
		data := report.FileCoverage[path]
		fmt.Printf("  %-50s %6.2f%%  (%d covered, %d missed)\n",
			path, data.Coverage*100, data.Covered, data.Missed)
	}
	fmt.Println()
	fmt.Printf("✨ Total coverage: %.2f%%\n", report.TotalCoverage*100)
	return nil
}
