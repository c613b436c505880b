/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: gitdiff.go
Description: Git-backed changed-line source for the Akaylee Validator. Runs
git diff against the comparison branch with zero context lines and parses the
unified diff into a per-file set of changed line numbers in the working tree.
*/

package vcs

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/sourcegraph/go-diff/diff"
)

// GitDiffSource implements interfaces.DiffSource on top of the git CLI.
type GitDiffSource struct {
	logger *logrus.Logger
}

// NewGitDiffSource creates a git diff source. A nil logger falls back to
// the logrus standard logger.
func NewGitDiffSource(logger *logrus.Logger) *GitDiffSource {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &GitDiffSource{logger: logger}
}

// ChangedLines returns the working-tree line numbers that differ from
// comparisonBranch, keyed by repository-relative file path.
func (g *GitDiffSource) ChangedLines(workdir string, comparisonBranch string) (map[string][]int, error) {
	cmd := exec.CommandContext(context.Background(), "git", "diff", "--no-color", "--unified=0", comparisonBranch)
	cmd.Dir = workdir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("git diff against %q failed: %w (stderr: %s)",
			comparisonBranch, err, strings.TrimSpace(stderr.String()))
	}

	changed, err := ParseChangedLines(stdout.Bytes())
	if err != nil {
		return nil, err
	}

	g.logger.WithFields(logrus.Fields{
		"branch": comparisonBranch,
		"files":  len(changed),
	}).Debug("Computed changed lines from git diff")

	return changed, nil
}

// ParseChangedLines extracts added and modified working-tree line numbers
// from a unified diff. Deleted files and pure deletions contribute nothing,
// since no new-side line exists to cover.
func ParseChangedLines(unifiedDiff []byte) (map[string][]int, error) {
	changed := make(map[string][]int)
	if len(bytes.TrimSpace(unifiedDiff)) == 0 {
		return changed, nil
	}

	fileDiffs, err := diff.NewMultiFileDiffReader(bytes.NewReader(unifiedDiff)).ReadAllFiles()
	if err != nil {
		return nil, fmt.Errorf("failed to parse unified diff: %w", err)
	}

	for _, fd := range fileDiffs {
		name := strings.TrimPrefix(fd.NewName, "b/")
		if fd.NewName == "/dev/null" || name == "" {
			continue // deleted file
		}
		var lines []int
		for _, hunk := range fd.Hunks {
			newLine := int(hunk.NewStartLine)
			for _, body := range strings.Split(string(hunk.Body), "\n") {
				if body == "" || strings.HasPrefix(body, "\\") {
					continue
				}
				switch body[0] {
				case '+':
					lines = append(lines, newLine)
					newLine++
				case ' ':
					newLine++
				}
				// '-' lines belong to the old side only.
			}
		}
		if len(lines) > 0 {
			changed[name] = lines
		}
	}
	return changed, nil
}
