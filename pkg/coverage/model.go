/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: model.go
Description: Normalized coverage model for the Akaylee Validator. Defines the
CoverageData and CoverageReport types that every report format is parsed into,
so downstream code never branches on the originating format again.
*/

package coverage

import (
	"fmt"
	"sort"
	"strings"
)

// Format selects which parser strategy is applied to a coverage artifact.
// Set once at configuration time and never inspected after parsing.
type Format string

const (
	FormatCobertura Format = "cobertura"
	FormatLcov      Format = "lcov"
	FormatJacocoCSV Format = "jacoco-csv"
)

// ParseFormat converts a configuration string into a Format.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatCobertura, FormatLcov, FormatJacocoCSV:
		return Format(s), nil
	default:
		return "", fmt.Errorf("unsupported coverage format: %q", s)
	}
}

// CoverageData holds normalized coverage for a single source file.
// When the underlying artifact provides only aggregate counts (jacoco-csv)
// the line sets are empty; an empty line set means "no line-level detail
// available", not zero coverage.
type CoverageData struct {
	CoveredLines []int   `json:"covered_lines"` // Sorted line numbers executed at least once
	Covered      int     `json:"covered"`       // Number of covered lines
	MissedLines  []int   `json:"missed_lines"`  // Sorted line numbers never executed
	Missed       int     `json:"missed"`        // Number of missed lines
	Coverage     float64 `json:"coverage"`      // covered / (covered + missed), 0 when empty
}

// NewCoverageData builds line-set-based coverage data. The input slices are
// copied and sorted; counts and the fraction are derived from them.
func NewCoverageData(coveredLines, missedLines []int) CoverageData {
	covered := append([]int(nil), coveredLines...)
	missed := append([]int(nil), missedLines...)
	sort.Ints(covered)
	sort.Ints(missed)
	return CoverageData{
		CoveredLines: covered,
		Covered:      len(covered),
		MissedLines:  missed,
		Missed:       len(missed),
		Coverage:     fraction(len(covered), len(missed)),
	}
}

// NewAggregateCoverageData builds count-only coverage data for formats that
// do not enumerate individual lines.
func NewAggregateCoverageData(covered, missed int) CoverageData {
	return CoverageData{
		Covered:  covered,
		Missed:   missed,
		Coverage: fraction(covered, missed),
	}
}

// CoverageReport is the aggregate coverage across one run of the test
// command. Constructed fresh by the parser on every run and never mutated
// in place; the previous report is retained only as the baseline.
type CoverageReport struct {
	TotalCoverage float64                 `json:"total_coverage"`
	FileCoverage  map[string]CoverageData `json:"file_coverage"`
}

// NewCoverageReport assembles a report and recomputes the aggregate
// fraction from the per-file tallies.
func NewCoverageReport(files map[string]CoverageData) *CoverageReport {
	if files == nil {
		files = make(map[string]CoverageData)
	}
	report := &CoverageReport{FileCoverage: files}
	totalCovered, totalMissed := 0, 0
	for _, data := range files {
		totalCovered += data.Covered
		totalMissed += data.Missed
	}
	report.TotalCoverage = fraction(totalCovered, totalMissed)
	return report
}

// Filter returns a new report restricted to files whose path contains
// pattern, with the aggregate recomputed over the surviving files.
func (r *CoverageReport) Filter(pattern string) *CoverageReport {
	filtered := make(map[string]CoverageData)
	for file, data := range r.FileCoverage {
		if pattern == "" || strings.Contains(file, pattern) {
			filtered[file] = data
		}
	}
	return NewCoverageReport(filtered)
}

func fraction(covered, missed int) float64 {
	total := covered + missed
	if total == 0 {
		return 0
	}
	return float64(covered) / float64(total)
}
