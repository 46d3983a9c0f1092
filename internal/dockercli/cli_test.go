package dockercli

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// The CLI tests substitute harmless binaries for docker so they run without
// a daemon.

func TestCLI_ExecuteSuccess(t *testing.T) {
	cli := New(WithBinary("/bin/echo"))

	result, err := cli.Execute(context.Background(), "listContainers", nil)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.Failed {
		t.Fatalf("failed: %s", result.Message)
	}
	if !strings.Contains(result.Output, "ps --format json") {
		t.Errorf("output = %q", result.Output)
	}
	if result.Empty {
		t.Error("non-empty output flagged empty")
	}
}

func TestCLI_ExecuteFailureIsResultNotError(t *testing.T) {
	cli := New(WithBinary("/bin/false"))

	result, err := cli.Execute(context.Background(), "listImages", nil)
	if err != nil {
		t.Fatalf("tool failure must come back as a result: %v", err)
	}
	if !result.Failed {
		t.Error("expected failed result")
	}
	if result.Message == "" {
		t.Error("failed result carries no message")
	}
}

func TestCLI_ExecuteMissingBinary(t *testing.T) {
	cli := New(WithBinary("/nonexistent/docker"))

	result, err := cli.Execute(context.Background(), "listImages", nil)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !result.Failed {
		t.Error("missing binary must yield a failed result")
	}
}

func TestCLI_ExecuteTimeout(t *testing.T) {
	script := filepath.Join(t.TempDir(), "slow-docker")
	if err := os.WriteFile(script, []byte("#!/bin/sh\nsleep 5\n"), 0755); err != nil {
		t.Fatalf("write script: %v", err)
	}
	cli := New(WithBinary(script), WithTimeout(50*time.Millisecond))

	start := time.Now()
	result, err := cli.Execute(context.Background(), "dockerVersion", nil)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if time.Since(start) > 5*time.Second {
		t.Fatal("timeout did not bound the invocation")
	}
	if !result.Failed {
		t.Error("timed-out invocation must be a failed result")
	}
	if !strings.Contains(result.Message, "timed out") {
		t.Errorf("message = %q", result.Message)
	}
}

func TestCLI_ExecuteUnmappedCommand(t *testing.T) {
	cli := New(WithBinary("/bin/echo"))
	if _, err := cli.Execute(context.Background(), "systemPrune", nil); err == nil {
		t.Error("expected error for unmapped command")
	}
}
