// Package support holds the step definitions and shared state for the
// CLI integration features.
package support

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/MeKo-Tech/platekit/cmd/platekit/cmd"
)

// TestContext carries the state of one scenario: the tensor file under
// test and the outcome of the last command run.
type TestContext struct {
	TempDir    string
	TensorPath string

	LastOutput string
	LastError  error
}

// NewTestContext creates a scenario context with a fresh temp directory.
func NewTestContext() (*TestContext, error) {
	tempDir, err := os.MkdirTemp("", "platekit-cli-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}
	return &TestContext{TempDir: tempDir}, nil
}

// Cleanup removes the scenario's temp directory.
func (testCtx *TestContext) Cleanup() error {
	if testCtx.TempDir == "" {
		return nil
	}
	return os.RemoveAll(testCtx.TempDir)
}

// writeTensorFile writes the scenario's tensor input and records its path.
func (testCtx *TestContext) writeTensorFile(content []byte) error {
	path := filepath.Join(testCtx.TempDir, "tensors.json")
	if err := os.WriteFile(path, content, 0o600); err != nil {
		return fmt.Errorf("failed to write tensor file: %w", err)
	}
	testCtx.TensorPath = path
	return nil
}

// runCommand executes the CLI in-process and captures its output.
func (testCtx *TestContext) runCommand(args ...string) {
	root := cmd.GetRootCommand()
	var buf bytes.Buffer
	root.SetOut(&buf)
	root.SetErr(&buf)
	root.SetArgs(args)
	testCtx.LastError = root.Execute()
	testCtx.LastOutput = buf.String()
}
