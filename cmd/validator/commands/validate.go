/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: validate.go
Description: Validate command implementation for the Akaylee Validator. Loads
candidate tests from disk, establishes the coverage baseline, and drives each
candidate through the validation state machine, reporting accepted and rolled
back candidates.
*/

package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kleascm/akaylee-validator/pkg/execution"
	"github.com/kleascm/akaylee-validator/pkg/interfaces"
	"github.com/kleascm/akaylee-validator/pkg/validation"
	"github.com/kleascm/akaylee-validator/pkg/vcs"
)

// candidateFile is the on-disk JSON shape of one candidate test.
type candidateFile struct {
	TestCode         string `json:"test_code"`
	NewImportsCode   string `json:"new_imports_code"`
	InsertAfterLine  int    `json:"insert_after_line"`
	ImportsAfterLine int    `json:"imports_after_line"`
}

// RunValidate executes the validation session
func RunValidate(cmd *cobra.Command, args []string) error {
	fmt.Println("🚀 Akaylee Validator - Starting Validation Session")
	fmt.Println("===================================================")
	fmt.Println()

	// Load configuration first
	if err := LoadConfig(); err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Setup logging
	if err := SetupLogging(); err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	defer logger.Close()

	config := createValidatorConfig()
	log := logger.GetLogger()

	// Create the engine and wire its collaborators
	runner := execution.NewCommandRunner(log)
	validator, err := validation.NewValidator(config, runner, log)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if config.UseDiffCoverage {
		validator.SetDiffSource(vcs.NewGitDiffSource(log))
	}
	validator.SetFailureParser(validation.PytestFailureParser)

	candidates, err := loadCandidates(viper.GetString("candidates_dir"))
	if err != nil {
		return err
	}
	if len(candidates) == 0 {
		return fmt.Errorf("no candidate files found in %q", viper.GetString("candidates_dir"))
	}

	// Cancel cleanly on SIGINT/SIGTERM; the attempt in flight still
	// restores the test file before the engine returns.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\n🛑 Received shutdown signal, stopping validation...")
		cancel()
	}()

	// Establish the baseline
	baseline, err := validator.EstablishBaseline(ctx)
	if err != nil {
		return fmt.Errorf("failed to establish baseline: %w", err)
	}
	fmt.Printf("📊 Baseline coverage: %.2f%%\n\n", baseline.TotalCoverage*100)

	accepted, rolledBack := 0, 0
	for _, candidate := range candidates {
		if ctx.Err() != nil {
			break
		}

		attempt, err := validator.Validate(ctx, candidate)
		if err != nil {
			return fmt.Errorf("validation aborted on candidate %s: %w", candidate.ID, err)
		}

		logger.LogAttempt(attempt.ID, string(attempt.Status), attempt.Reason, attempt.ExitCode, attempt.Duration)
		if attempt.NewReport != nil {
			logger.LogCoverage(attempt.Baseline.TotalCoverage, attempt.NewReport.TotalCoverage, config.UseDiffCoverage)
		}
		if attempt.Accepted() {
			accepted++
			fmt.Printf("✅ %s accepted (coverage %.2f%%)\n", attempt.ID, attempt.NewReport.TotalCoverage*100)
		} else {
			rolledBack++
			fmt.Printf("↩️  %s rolled back: %s\n", attempt.ID, attempt.Reason)
		}
	}

	fmt.Println()
	fmt.Printf("✨ Validation session completed: %d accepted, %d rolled back, final coverage %.2f%%\n",
		accepted, rolledBack, validator.BaselineReport().TotalCoverage*100)
	return nil
}

// loadCandidates reads every candidate JSON file in dir, ordered by name so
// sessions are reproducible.
func loadCandidates(dir string) ([]interfaces.Candidate, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot read candidates directory %q: %w", dir, err)
	}

	var names []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".json") {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	var candidates []interfaces.Candidate
	for _, name := range names {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("cannot read candidate %q: %w", path, err)
		}
		var cf candidateFile
		if err := json.Unmarshal(data, &cf); err != nil {
			return nil, fmt.Errorf("cannot parse candidate %q: %w", path, err)
		}
		candidates = append(candidates, interfaces.Candidate{
			ID:               strings.TrimSuffix(name, ".json"),
			TestCode:         cf.TestCode,
			NewImportsCode:   cf.NewImportsCode,
			InsertAfterLine:  cf.InsertAfterLine,
			ImportsAfterLine: cf.ImportsAfterLine,
		})
	}
	return candidates, nil
}
