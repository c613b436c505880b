/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: diff.go
Description: Diff coverage calculator for the Akaylee Validator. Restricts a full
coverage report to the lines changed relative to a comparison branch, so a
candidate is judged only on the code it could plausibly have exercised.
*/

package coverage

// DiffCoverage restricts report to the changed lines supplied per file.
// Files with no changed lines are excluded entirely. The aggregate is
// covered-changed-lines / total-changed-lines across the included files;
// when nothing changed at all the diff coverage is vacuously 1.0 so an
// empty diff never fails an iteration.
func DiffCoverage(report *CoverageReport, changed map[string][]int) *CoverageReport {
	files := make(map[string]CoverageData)
	totalChanged := 0

	for file, lines := range changed {
		if len(lines) == 0 {
			continue
		}
		data, ok := report.FileCoverage[file]
		if !ok {
			continue
		}
		changedSet := make(map[int]bool, len(lines))
		for _, line := range lines {
			changedSet[line] = true
		}

		var covered, missed []int
		for _, line := range data.CoveredLines {
			if changedSet[line] {
				covered = append(covered, line)
			}
		}
		for _, line := range data.MissedLines {
			if changedSet[line] {
				missed = append(missed, line)
			}
		}
		if len(covered)+len(missed) == 0 {
			continue
		}
		files[file] = NewCoverageData(covered, missed)
		totalChanged += len(covered) + len(missed)
	}

	diff := NewCoverageReport(files)
	if totalChanged == 0 {
		diff.TotalCoverage = 1.0
	}
	return diff
}
