/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: jacoco.go
Description: JaCoCo CSV parser for the Akaylee Validator. The CSV enumerates one
row per class with aggregate missed/covered line counts only, so rows are summed
into count-based coverage data keyed by a path-like package/class name. Line
sets stay empty: no line-level detail exists in this format.
*/

package coverage

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"
)

// Required jacoco CSV columns. GROUP is present in real reports but unused.
const (
	jacocoColPackage     = "PACKAGE"
	jacocoColClass       = "CLASS"
	jacocoColLineMissed  = "LINE_MISSED"
	jacocoColLineCovered = "LINE_COVERED"
)

// parseJacocoCSV normalizes a jacoco CSV artifact into aggregate-count
// coverage data, one entry per class file.
func parseJacocoCSV(path string) (map[string]CoverageData, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	header, err := reader.Read()
	if err != nil {
		return nil, &ParseError{Path: path, Format: FormatJacocoCSV, Reason: "missing header row", Err: err}
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.TrimSpace(name)] = i
	}
	for _, required := range []string{jacocoColPackage, jacocoColClass, jacocoColLineMissed, jacocoColLineCovered} {
		if _, ok := columns[required]; !ok {
			return nil, &ParseError{Path: path, Format: FormatJacocoCSV, Reason: "missing required column " + required}
		}
	}

	type tally struct{ covered, missed int }
	tallies := make(map[string]*tally)

	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &ParseError{Path: path, Format: FormatJacocoCSV, Reason: "malformed CSV row", Err: err}
		}

		missed, err := strconv.Atoi(strings.TrimSpace(row[columns[jacocoColLineMissed]]))
		if err != nil {
			return nil, &ParseError{Path: path, Format: FormatJacocoCSV, Reason: "non-numeric LINE_MISSED", Err: err}
		}
		covered, err := strconv.Atoi(strings.TrimSpace(row[columns[jacocoColLineCovered]]))
		if err != nil {
			return nil, &ParseError{Path: path, Format: FormatJacocoCSV, Reason: "non-numeric LINE_COVERED", Err: err}
		}

		// Inner classes (Foo$Bar) roll up into the enclosing source file.
		class := row[columns[jacocoColClass]]
		if idx := strings.Index(class, "$"); idx >= 0 {
			class = class[:idx]
		}
		key := jacocoFileKey(row[columns[jacocoColPackage]], class)

		t := tallies[key]
		if t == nil {
			t = &tally{}
			tallies[key] = t
		}
		t.covered += covered
		t.missed += missed
	}

	files := make(map[string]CoverageData, len(tallies))
	for key, t := range tallies {
		files[key] = NewAggregateCoverageData(t.covered, t.missed)
	}
	return files, nil
}

// jacocoFileKey maps a package/class row onto a source-path-like key so
// jacoco reports address files the same way the line-based formats do.
func jacocoFileKey(pkg, class string) string {
	if pkg == "" {
		return class + ".java"
	}
	return strings.ReplaceAll(pkg, ".", "/") + "/" + class + ".java"
}
