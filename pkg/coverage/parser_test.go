/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: parser_test.go
Description: Unit tests for the coverage report parser. Exercises all three
report formats against realistic fixtures, plus the freshness checks and the
error paths for missing, empty, and malformed artifacts.
*/

package coverage_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kleascm/akaylee-validator/pkg/coverage"
)

const coberturaFixture = `<?xml version="1.0"?>
<coverage line-rate="0.5">
  <packages>
    <package name="app">
      <classes>
        <class filename="app/calc.py" name="calc">
          <lines>
            <line number="1" hits="3"/>
            <line number="2" hits="0"/>
            <line number="5" hits="1"/>
          </lines>
        </class>
        <class filename="app/util.py" name="util">
          <lines>
            <line number="10" hits="0"/>
            <line number="11" hits="0"/>
          </lines>
        </class>
      </classes>
    </package>
  </packages>
</coverage>
`

func writeFixture(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestParseCobertura(t *testing.T) {
	path := writeFixture(t, "coverage.xml", coberturaFixture)

	report, err := coverage.NewParser(nil).Parse(path, coverage.FormatCobertura)
	require.NoError(t, err)

	calc, ok := report.FileCoverage["app/calc.py"]
	require.True(t, ok)
	assert.Equal(t, []int{1, 5}, calc.CoveredLines)
	assert.Equal(t, []int{2}, calc.MissedLines)
	assert.Equal(t, 2, calc.Covered)
	assert.Equal(t, 1, calc.Missed)
	assert.InDelta(t, 2.0/3.0, calc.Coverage, 1e-9)

	util, ok := report.FileCoverage["app/util.py"]
	require.True(t, ok)
	assert.Empty(t, util.CoveredLines)
	assert.Equal(t, []int{10, 11}, util.MissedLines)
	assert.Equal(t, 0.0, util.Coverage)

	// The document's own line-rate wins over the recomputed ratio.
	assert.InDelta(t, 0.5, report.TotalCoverage, 1e-9)
}

func TestParseCoberturaRecomputesTotalWithoutLineRate(t *testing.T) {
	fixture := `<coverage>
  <packages><package><classes>
    <class filename="a.py"><lines>
      <line number="1" hits="1"/>
      <line number="2" hits="1"/>
      <line number="3" hits="0"/>
      <line number="4" hits="0"/>
    </lines></class>
  </classes></package></packages>
</coverage>`
	path := writeFixture(t, "coverage.xml", fixture)

	report, err := coverage.NewParser(nil).Parse(path, coverage.FormatCobertura)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, report.TotalCoverage, 1e-9)
}

func TestParseCoberturaMergesClassesForSameFile(t *testing.T) {
	// The same file reported from two <class> elements: a covered
	// observation wins over a missed one, and the sets stay disjoint.
	fixture := `<coverage>
  <packages><package><classes>
    <class filename="a.py"><lines>
      <line number="1" hits="0"/>
      <line number="2" hits="1"/>
    </lines></class>
    <class filename="a.py"><lines>
      <line number="1" hits="2"/>
      <line number="3" hits="0"/>
    </lines></class>
  </classes></package></packages>
</coverage>`
	path := writeFixture(t, "coverage.xml", fixture)

	report, err := coverage.NewParser(nil).Parse(path, coverage.FormatCobertura)
	require.NoError(t, err)

	data := report.FileCoverage["a.py"]
	assert.Equal(t, []int{1, 2}, data.CoveredLines)
	assert.Equal(t, []int{3}, data.MissedLines)
}

func TestParseCoberturaRejectsNonNumericHits(t *testing.T) {
	fixture := `<coverage><packages><package><classes>
    <class filename="a.py"><lines><line number="1" hits="lots"/></lines></class>
  </classes></package></packages></coverage>`
	path := writeFixture(t, "coverage.xml", fixture)

	_, err := coverage.NewParser(nil).Parse(path, coverage.FormatCobertura)
	var pe *coverage.ParseError
	require.ErrorAs(t, err, &pe)
	assert.Contains(t, pe.Reason, "non-numeric")
}

func TestParseCoberturaMalformedXML(t *testing.T) {
	path := writeFixture(t, "coverage.xml", "<coverage><unclosed>")

	_, err := coverage.NewParser(nil).Parse(path, coverage.FormatCobertura)
	var pe *coverage.ParseError
	require.ErrorAs(t, err, &pe)
}

func TestParseLcov(t *testing.T) {
	fixture := "SF:a.py\nDA:1,1\nDA:2,0\nend_of_record\nSF:b.py\nDA:7,5\nDA:8,1\nend_of_record\n"
	path := writeFixture(t, "lcov.info", fixture)

	report, err := coverage.NewParser(nil).Parse(path, coverage.FormatLcov)
	require.NoError(t, err)

	a := report.FileCoverage["a.py"]
	assert.Equal(t, []int{1}, a.CoveredLines)
	assert.Equal(t, []int{2}, a.MissedLines)
	assert.InDelta(t, 0.5, a.Coverage, 1e-9)

	b := report.FileCoverage["b.py"]
	assert.Equal(t, []int{7, 8}, b.CoveredLines)
	assert.Empty(t, b.MissedLines)

	assert.InDelta(t, 0.75, report.TotalCoverage, 1e-9)
}

func TestParseLcovMissingFinalEndOfRecord(t *testing.T) {
	path := writeFixture(t, "lcov.info", "SF:a.py\nDA:1,1\n")

	report, err := coverage.NewParser(nil).Parse(path, coverage.FormatLcov)
	require.NoError(t, err)
	assert.Equal(t, []int{1}, report.FileCoverage["a.py"].CoveredLines)
}

func TestParseLcovMalformedLine(t *testing.T) {
	path := writeFixture(t, "lcov.info", "SF:a.py\nDA:notaline\nend_of_record\n")

	_, err := coverage.NewParser(nil).Parse(path, coverage.FormatLcov)
	var pe *coverage.ParseError
	require.ErrorAs(t, err, &pe)
}

func TestParseJacocoCSV(t *testing.T) {
	fixture := "GROUP,PACKAGE,CLASS,INSTRUCTION_MISSED,INSTRUCTION_COVERED,LINE_MISSED,LINE_COVERED\n" +
		"app,com.example.app,Calculator,10,40,2,8\n" +
		"app,com.example.app,Calculator$Inner,5,5,1,1\n" +
		"app,com.example.util,Strings,0,20,0,4\n"
	path := writeFixture(t, "jacoco.csv", fixture)

	report, err := coverage.NewParser(nil).Parse(path, coverage.FormatJacocoCSV)
	require.NoError(t, err)

	// Inner classes roll up into the enclosing class's source file.
	calc, ok := report.FileCoverage["com/example/app/Calculator.java"]
	require.True(t, ok)
	assert.Equal(t, 9, calc.Covered)
	assert.Equal(t, 3, calc.Missed)
	assert.InDelta(t, 0.75, calc.Coverage, 1e-9)

	strs := report.FileCoverage["com/example/util/Strings.java"]
	assert.Equal(t, 4, strs.Covered)
	assert.Equal(t, 1.0, strs.Coverage)

	assert.InDelta(t, 13.0/16.0, report.TotalCoverage, 1e-9)
}

func TestParseJacocoCSVMissingColumn(t *testing.T) {
	path := writeFixture(t, "jacoco.csv", "GROUP,PACKAGE,CLASS,LINE_MISSED\napp,com.example,Foo,1\n")

	_, err := coverage.NewParser(nil).Parse(path, coverage.FormatJacocoCSV)
	var pe *coverage.ParseError
	require.ErrorAs(t, err, &pe)
	assert.Contains(t, pe.Reason, "LINE_COVERED")
}

func TestParseFreshArtifactStates(t *testing.T) {
	parser := coverage.NewParser(nil)

	t.Run("missing", func(t *testing.T) {
		_, err := parser.Parse(filepath.Join(t.TempDir(), "nope.xml"), coverage.FormatCobertura)
		var pe *coverage.ParseError
		require.ErrorAs(t, err, &pe)
		assert.Contains(t, pe.Reason, "not found")
	})

	t.Run("empty", func(t *testing.T) {
		path := writeFixture(t, "coverage.xml", "")
		_, err := parser.Parse(path, coverage.FormatCobertura)
		var pe *coverage.ParseError
		require.ErrorAs(t, err, &pe)
		assert.Contains(t, pe.Reason, "empty")
	})

	t.Run("stale", func(t *testing.T) {
		path := writeFixture(t, "coverage.xml", coberturaFixture)
		_, err := parser.ParseFresh(path, coverage.FormatCobertura, time.Now().Add(time.Hour))
		var pe *coverage.ParseError
		require.ErrorAs(t, err, &pe)
		assert.Contains(t, pe.Reason, "outdated")
	})

	t.Run("fresh", func(t *testing.T) {
		path := writeFixture(t, "coverage.xml", coberturaFixture)
		stat, err := os.Stat(path)
		require.NoError(t, err)
		_, err = parser.ParseFresh(path, coverage.FormatCobertura, stat.ModTime().Add(-time.Hour))
		assert.NoError(t, err)
	})
}

func TestParseErrorUnwrap(t *testing.T) {
	inner := errors.New("boom")
	pe := &coverage.ParseError{Path: "x", Format: coverage.FormatLcov, Reason: "r", Err: inner}
	assert.ErrorIs(t, pe, inner)
	assert.Contains(t, pe.Error(), "boom")
}
