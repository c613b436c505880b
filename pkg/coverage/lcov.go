/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: lcov.go
Description: LCOV info parser for the Akaylee Validator. Scans the line-oriented
format section by section: SF: opens a file record, DA:line,count marks an
instrumented line, end_of_record closes the section.
*/

package coverage

import (
	"bufio"
	"os"
	"strconv"
	"strings"
)

// parseLcov normalizes an lcov .info artifact into per-file coverage data.
func parseLcov(path string) (map[string]CoverageData, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	files := make(map[string]CoverageData)
	var filename string
	var covered, missed []int
	inRecord := false

	flush := func() {
		if inRecord && filename != "" {
			files[filename] = NewCoverageData(covered, missed)
		}
		filename, covered, missed = "", nil, nil
		inRecord = false
	}

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case strings.HasPrefix(line, "SF:"):
			flush()
			filename = strings.TrimPrefix(line, "SF:")
			inRecord = true

		case strings.HasPrefix(line, "DA:"):
			if !inRecord {
				continue
			}
			parts := strings.SplitN(strings.TrimPrefix(line, "DA:"), ",", 3)
			if len(parts) < 2 {
				return nil, &ParseError{Path: path, Format: FormatLcov, Reason: "malformed DA record: " + line}
			}
			number, err := strconv.Atoi(parts[0])
			if err != nil {
				return nil, &ParseError{Path: path, Format: FormatLcov, Reason: "malformed DA line number", Err: err}
			}
			count, err := strconv.Atoi(parts[1])
			if err != nil {
				return nil, &ParseError{Path: path, Format: FormatLcov, Reason: "malformed DA execution count", Err: err}
			}
			if count > 0 {
				covered = append(covered, number)
			} else {
				missed = append(missed, number)
			}

		case line == "end_of_record":
			flush()
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	flush() // tolerate a final section without end_of_record

	return files, nil
}
