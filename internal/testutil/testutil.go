// Package testutil provides common test utilities for the tropeshelf
// project.
package testutil

import (
	"path/filepath"
	"strings"
	"testing"
)

// TestEnv provides a sandboxed test environment that validates all paths
// stay within a temporary directory. It automatically cleans up when the
// test completes.
type TestEnv struct {
	t       *testing.T
	rootDir string
}

// NewTestEnv creates a new sandboxed test environment.
func NewTestEnv(t *testing.T) *TestEnv {
	t.Helper()
	return &TestEnv{
		t:       t,
		rootDir: t.TempDir(),
	}
}

// RootDir returns the root directory of the test environment.
func (e *TestEnv) RootDir() string {
	return e.rootDir
}

// Path returns an absolute path within the test environment, validating
// that the path does not escape the sandbox.
func (e *TestEnv) Path(elem ...string) string {
	e.t.Helper()

	full := filepath.Join(append([]string{e.rootDir}, elem...)...)
	cleaned := filepath.Clean(full)
	if !strings.HasPrefix(cleaned, e.rootDir) {
		e.t.Fatalf("path %q escapes test environment %q", cleaned, e.rootDir)
	}
	return cleaned
}
