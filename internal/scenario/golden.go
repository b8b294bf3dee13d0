package scenario

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/kata/internal/runner"
)

// GoldenPath returns the golden file for a scenario file: a sibling golden/
// directory holding <name>.golden.
func GoldenPath(scenarioFile string) string {
	dir := filepath.Dir(scenarioFile)
	base := filepath.Base(scenarioFile)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(dir, "golden", name+".golden")
}

// UpdateGolden writes res.Stdout as the golden stream for scenarioFile.
func UpdateGolden(scenarioFile string, res *runner.Result) error {
	path := GoldenPath(scenarioFile)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create golden directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(res.Stdout), 0644); err != nil {
		return fmt.Errorf("failed to write golden file: %w", err)
	}
	return nil
}

// CompareGolden reports whether res.Stdout matches the golden stream.
// A missing golden file is an error wrapping os.ErrNotExist.
func CompareGolden(scenarioFile string, res *runner.Result) (bool, error) {
	want, err := os.ReadFile(GoldenPath(scenarioFile))
	if err != nil {
		return false, fmt.Errorf("failed to read golden file: %w", err)
	}
	return bytes.Equal(want, []byte(res.Stdout)), nil
}

// AssertGolden compares res.Stdout with testdata/golden/<name>.golden.
// Regenerate with go test -update.
func AssertGolden(t *testing.T, name string, res *runner.Result) {
	t.Helper()
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, []byte(res.Stdout))
}
