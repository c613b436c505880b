/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: cobertura.go
Description: Cobertura XML parser for the Akaylee Validator. Walks the
package/class/line element tree, marks a line covered when its hit count is
positive, and prefers the document's own line-rate summary when present.
*/

package coverage

import (
	"encoding/xml"
	"os"
	"strconv"
)

// coberturaDocument mirrors the subset of the cobertura schema we consume.
type coberturaDocument struct {
	XMLName  xml.Name `xml:"coverage"`
	LineRate string   `xml:"line-rate,attr"`
	Packages []struct {
		Classes []coberturaClass `xml:"classes>class"`
	} `xml:"packages>package"`
	// Some producers emit classes directly under <coverage>.
	Classes []coberturaClass `xml:"classes>class"`
}

type coberturaClass struct {
	Filename string `xml:"filename,attr"`
	Lines    []struct {
		Number int    `xml:"number,attr"`
		Hits   string `xml:"hits,attr"`
	} `xml:"lines>line"`
}

// parseCobertura returns the per-file coverage map plus the document's own
// aggregate line-rate when the attribute is present and numeric.
func parseCobertura(path string) (map[string]CoverageData, float64, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, false, err
	}

	var doc coberturaDocument
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, 0, false, &ParseError{Path: path, Format: FormatCobertura, Reason: "malformed XML", Err: err}
	}

	classes := doc.Classes
	for _, pkg := range doc.Packages {
		classes = append(classes, pkg.Classes...)
	}

	// A file can appear as several <class> elements; merge their line sets,
	// letting a covered observation win over a missed one so the sets stay
	// disjoint.
	hitsByFile := make(map[string]map[int]bool)
	for _, cls := range classes {
		if cls.Filename == "" {
			continue
		}
		lines := hitsByFile[cls.Filename]
		if lines == nil {
			lines = make(map[int]bool)
			hitsByFile[cls.Filename] = lines
		}
		for _, line := range cls.Lines {
			hits, err := strconv.Atoi(line.Hits)
			if err != nil {
				return nil, 0, false, &ParseError{
					Path: path, Format: FormatCobertura,
					Reason: "non-numeric hits attribute", Err: err,
				}
			}
			lines[line.Number] = lines[line.Number] || hits > 0
		}
	}

	files := make(map[string]CoverageData)
	for filename, lines := range hitsByFile {
		var covered, missed []int
		for number, hit := range lines {
			if hit {
				covered = append(covered, number)
			} else {
				missed = append(missed, number)
			}
		}
		files[filename] = NewCoverageData(covered, missed)
	}

	if doc.LineRate != "" {
		if rate, err := strconv.ParseFloat(doc.LineRate, 64); err == nil {
			return files, rate, true, nil
		}
	}
	return files, 0, false, nil
}
