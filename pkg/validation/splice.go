/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: splice.go
Description: Test-file guard for the Akaylee Validator. Captures the original
file content before a candidate is spliced in and guarantees byte-exact
restoration on every exit path, so a crash mid-validation never leaves the
test file corrupted.
*/

package validation

import (
	"fmt"
	"os"
	"strings"

	"github.com/kleascm/akaylee-validator/pkg/interfaces"
)

// fileGuard is the single owner of the test file for the duration of one
// attempt. It is never shared across attempts.
type fileGuard struct {
	path     string
	original []byte
	mode     os.FileMode
	modified bool
	kept     bool
}

// newFileGuard reads and retains the current file content for rollback.
func newFileGuard(path string) (*fileGuard, error) {
	stat, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("cannot stat test file %q: %w", path, err)
	}
	original, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read test file %q: %w", path, err)
	}
	return &fileGuard{path: path, original: original, mode: stat.Mode().Perm()}, nil
}

// splice inserts the candidate's test code (and optional import block) after
// the externally supplied insertion lines. Bounds are checked for both
// blocks before the file is touched, so an invalid candidate fails fast
// with the file still pristine.
func (g *fileGuard) splice(candidate interfaces.Candidate) error {
	lines := splitLines(string(g.original))

	if candidate.InsertAfterLine < 0 || candidate.InsertAfterLine > len(lines) {
		return &InsertionBoundsError{Line: candidate.InsertAfterLine, FileLines: len(lines)}
	}
	if candidate.NewImportsCode != "" &&
		(candidate.ImportsAfterLine < 0 || candidate.ImportsAfterLine > len(lines)) {
		return &InsertionBoundsError{Line: candidate.ImportsAfterLine, FileLines: len(lines)}
	}

	// Insert the higher position first so the lower index stays valid.
	lines = insertBlock(lines, candidate.InsertAfterLine, candidate.TestCode)
	if candidate.NewImportsCode != "" && candidate.ImportsAfterLine <= candidate.InsertAfterLine {
		lines = insertBlock(lines, candidate.ImportsAfterLine, candidate.NewImportsCode)
	} else if candidate.NewImportsCode != "" {
		// Imports land below the test block; account for the lines just added.
		offset := len(splitLines(strings.Trim(candidate.TestCode, "\n")))
		lines = insertBlock(lines, candidate.ImportsAfterLine+offset, candidate.NewImportsCode)
	}

	content := strings.Join(lines, "\n") + "\n"
	if err := os.WriteFile(g.path, []byte(content), g.mode); err != nil {
		return fmt.Errorf("cannot write test file %q: %w", g.path, err)
	}
	g.modified = true
	return nil
}

// keep marks the modification as accepted; restore becomes a no-op.
func (g *fileGuard) keep() {
	g.kept = true
}

// restore writes the original content back. Must run to completion before
// any outcome is reported; a failure here is an unrecoverable I/O error.
func (g *fileGuard) restore() error {
	if !g.modified || g.kept {
		return nil
	}
	if err := os.WriteFile(g.path, g.original, g.mode); err != nil {
		return fmt.Errorf("cannot restore test file %q: %w", g.path, err)
	}
	g.modified = false
	return nil
}

// insertBlock splices block's lines after the 1-based line number `after`
// (0 inserts at the top of the file).
func insertBlock(lines []string, after int, block string) []string {
	blockLines := splitLines(strings.Trim(block, "\n"))
	out := make([]string, 0, len(lines)+len(blockLines))
	out = append(out, lines[:after]...)
	out = append(out, blockLines...)
	out = append(out, lines[after:]...)
	return out
}

// splitLines splits on newlines without manufacturing a trailing empty line.
func splitLines(s string) []string {
	s = strings.TrimSuffix(s, "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}
