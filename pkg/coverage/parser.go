/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: parser.go
Description: Coverage report parser for the Akaylee Validator. Dispatches over the
configured report format, validates that the artifact exists and is fresh, and
normalizes every format into the shared CoverageReport model.
*/

package coverage

import (
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
)

// ParseError indicates a missing, empty, or structurally invalid coverage
// artifact. Fatal to the attempt that produced it, not to the session.
type ParseError struct {
	Path   string
	Format Format
	Reason string
	Err    error
}

// Error implements the error interface
func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("coverage report %q (%s): %s: %v", e.Path, e.Format, e.Reason, e.Err)
	}
	return fmt.Sprintf("coverage report %q (%s): %s", e.Path, e.Format, e.Reason)
}

// Unwrap returns the underlying error
func (e *ParseError) Unwrap() error { return e.Err }

// Parser reads coverage artifacts and produces normalized reports.
type Parser struct {
	logger *logrus.Logger
}

// NewParser creates a parser. A nil logger falls back to the logrus
// standard logger.
func NewParser(logger *logrus.Logger) *Parser {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Parser{logger: logger}
}

// Parse reads the artifact at path and normalizes it according to format.
// Returns a *ParseError when the artifact is missing, empty, or invalid.
func (p *Parser) Parse(path string, format Format) (*CoverageReport, error) {
	return p.ParseFresh(path, format, time.Time{})
}

// ParseFresh is Parse with an additional staleness check: an artifact whose
// modification time predates ranAt was left over from a previous run and is
// rejected, since it cannot be evidence for the run that just finished.
func (p *Parser) ParseFresh(path string, format Format, ranAt time.Time) (*CoverageReport, error) {
	stat, err := os.Stat(path)
	if err != nil {
		return nil, &ParseError{Path: path, Format: format, Reason: "artifact not found", Err: err}
	}
	if stat.Size() == 0 {
		return nil, &ParseError{Path: path, Format: format, Reason: "artifact is empty"}
	}
	if !ranAt.IsZero() && stat.ModTime().Before(ranAt) {
		return nil, &ParseError{Path: path, Format: format, Reason: "artifact is outdated"}
	}

	var files map[string]CoverageData
	var total float64
	hasTotal := false

	switch format {
	case FormatCobertura:
		files, total, hasTotal, err = parseCobertura(path)
	case FormatLcov:
		files, err = parseLcov(path)
	case FormatJacocoCSV:
		files, err = parseJacocoCSV(path)
	default:
		return nil, &ParseError{Path: path, Format: format, Reason: "unsupported format"}
	}
	if err != nil {
		if pe, ok := err.(*ParseError); ok {
			return nil, pe
		}
		return nil, &ParseError{Path: path, Format: format, Reason: "malformed artifact", Err: err}
	}

	report := NewCoverageReport(files)
	if hasTotal {
		report.TotalCoverage = total
	}

	p.logger.WithFields(logrus.Fields{
		"path":     path,
		"format":   format,
		"files":    len(report.FileCoverage),
		"coverage": fmt.Sprintf("%.2f%%", report.TotalCoverage*100),
	}).Debug("Coverage report parsed")

	return report, nil
}
