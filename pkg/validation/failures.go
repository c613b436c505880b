/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: failures.go
Description: Per-test failure attribution for the Akaylee Validator. Extracts
failing test identifiers from test framework output so a candidate's own failure
can be told apart from a pre-existing unrelated one. Exit code remains the
documented fallback when no parser applies.
*/

package validation

import "regexp"

// pytest prints one "FAILED path::test_name[ - reason]" line per failing
// test in its short summary.
var pytestFailedPattern = regexp.MustCompile(`(?m)^FAILED\s+(\S+)`)

// PytestFailureParser extracts failing test identifiers from pytest output.
// Returns nil when the output carries no per-test identifiers, in which case
// the engine falls back to exit-code attribution.
func PytestFailureParser(stdout, stderr string) []string {
	seen := make(map[string]bool)
	var failures []string
	for _, output := range []string{stdout, stderr} {
		for _, match := range pytestFailedPattern.FindAllStringSubmatch(output, -1) {
			if !seen[match[1]] {
				seen[match[1]] = true
				failures = append(failures, match[1])
			}
		}
	}
	return failures
}
