/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: logger_test.go
Description: Unit tests for the logging system. Verifies configuration
validation, log file creation, level mapping, and old-file cleanup.
*/

package logging_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kleascm/akaylee-validator/pkg/logging"
)

func TestLoggerConfigValidate(t *testing.T) {
	valid := &logging.LoggerConfig{Level: logging.LogLevelInfo, Format: logging.LogFormatJSON}
	assert.NoError(t, valid.Validate())
	// A zero MaxFiles means "use the default", never "keep zero files".
	assert.Positive(t, valid.MaxFiles)

	explicit := &logging.LoggerConfig{Level: logging.LogLevelInfo, Format: logging.LogFormatJSON, MaxFiles: 3}
	require.NoError(t, explicit.Validate())
	assert.Equal(t, 3, explicit.MaxFiles)

	negative := &logging.LoggerConfig{Level: logging.LogLevelInfo, Format: logging.LogFormatJSON, MaxFiles: -1}
	assert.Error(t, negative.Validate())

	badLevel := &logging.LoggerConfig{Level: "loud", Format: logging.LogFormatJSON}
	assert.Error(t, badLevel.Validate())

	badFormat := &logging.LoggerConfig{Level: logging.LogLevelInfo, Format: "xml"}
	assert.Error(t, badFormat.Validate())
}

func TestNewLoggerWithoutFileOutput(t *testing.T) {
	logger, err := logging.NewLogger(&logging.LoggerConfig{
		Level:  logging.LogLevelInfo,
		Format: logging.LogFormatCustom,
	})
	require.NoError(t, err)
	defer logger.Close()

	assert.NotNil(t, logger.GetLogger())
	assert.Equal(t, logrus.InfoLevel, logger.GetLogger().GetLevel())
}

func TestNewLoggerCreatesLogFile(t *testing.T) {
	dir := t.TempDir()
	logger, err := logging.NewLogger(&logging.LoggerConfig{
		Level:     logging.LogLevelDebug,
		Format:    logging.LogFormatJSON,
		OutputDir: dir,
	})
	require.NoError(t, err)

	logger.GetLogger().Info("hello")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.NotEmpty(t, entries)
	assert.Contains(t, entries[0].Name(), "akaylee-validator")

	// Close prunes beyond MaxFiles; an unset MaxFiles must not mean zero.
	require.NoError(t, logger.Close())
	entries, err = os.ReadDir(dir)
	require.NoError(t, err)
	assert.NotEmpty(t, entries)
}

func TestLoggerCleanupPrunesOldFiles(t *testing.T) {
	dir := t.TempDir()

	// Seed stale log files older than anything the logger will create.
	for i, name := range []string{"akaylee-validator_a.log", "akaylee-validator_b.log", "akaylee-validator_c.log"} {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte("old"), 0644))
		old := time.Now().Add(-time.Duration(10-i) * time.Hour)
		require.NoError(t, os.Chtimes(path, old, old))
	}

	logger, err := logging.NewLogger(&logging.LoggerConfig{
		Level:     logging.LogLevelInfo,
		Format:    logging.LogFormatText,
		OutputDir: dir,
		MaxFiles:  2,
	})
	require.NoError(t, err)
	logger.GetLogger().Info("new session")
	require.NoError(t, logger.Close())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestLoggerHelpers(t *testing.T) {
	logger, err := logging.NewLogger(&logging.LoggerConfig{
		Level:  logging.LogLevelDebug,
		Format: logging.LogFormatCustom,
	})
	require.NoError(t, err)
	defer logger.Close()

	// Helpers must not panic regardless of arguments.
	logger.LogAttempt("cand-1", "ACCEPTED", "Coverage increased from 50.00% to 75.00%", 0, 120*time.Millisecond)
	logger.LogAttempt("cand-2", "ROLLED_BACK", "Test failed", 1, time.Second)
	logger.LogCoverage(0.5, 0.75, false)
	logger.LogCoverage(0.5, 1.0, true)
}
