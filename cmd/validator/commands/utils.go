/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: utils.go
Description: Shared utilities for the Akaylee Validator commands. Provides common
configuration loading, logging setup, and validator configuration assembly used
across all command implementations.
*/

package commands

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/kleascm/akaylee-validator/pkg/interfaces"
	"github.com/kleascm/akaylee-validator/pkg/logging"
)

// Global logger shared by the commands
var logger *logging.Logger

// LoadConfig loads configuration from files and environment
func LoadConfig() error {
	if configFile := viper.GetString("config"); configFile != "" {
		viper.SetConfigFile(configFile)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}

	viper.SetEnvPrefix("AKAYLEE")
	viper.AutomaticEnv()

	return nil
}

// SetupLogging configures the logging system from viper settings
func SetupLogging() error {
	format := logging.LogFormat(viper.GetString("log_format"))
	if viper.GetBool("json_logs") {
		format = logging.LogFormatJSON
	}

	config := &logging.LoggerConfig{
		Level:     logging.LogLevel(viper.GetString("log_level")),
		Format:    format,
		OutputDir: viper.GetString("log_dir"),
		MaxFiles:  viper.GetInt("log_max_files"),
		Timestamp: true,
		Colors:    true,
	}
	if err := config.Validate(); err != nil {
		return fmt.Errorf("invalid logging configuration: %w", err)
	}

	l, err := logging.NewLogger(config)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	logger = l

	return nil
}

// createValidatorConfig assembles the validator configuration from viper
func createValidatorConfig() *interfaces.ValidatorConfig {
	return &interfaces.ValidatorConfig{
		SourceFilePath:        viper.GetString("source_file_path"),
		TestFilePath:          viper.GetString("test_file_path"),
		TestCommand:           viper.GetString("test_command"),
		TestCommandDir:        viper.GetString("test_command_dir"),
		MaxRunTime:            viper.GetDuration("max_run_time"),
		CoverageReportPath:    viper.GetString("coverage_report_path"),
		CoverageFormat:        viper.GetString("coverage_format"),
		UseDiffCoverage:       viper.GetBool("use_diff_coverage"),
		ComparisonBranch:      viper.GetString("comparison_branch"),
		RunTestsMultipleTimes: viper.GetInt("run_tests_multiple_times"),
		LogLevel:              viper.GetString("log_level"),
		LogDir:                viper.GetString("log_dir"),
		JSONLogs:              viper.GetBool("json_logs"),
	}
}
