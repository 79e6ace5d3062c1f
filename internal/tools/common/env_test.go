package common

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadEnvFileMissingIsNoop(t *testing.T) {
	if err := LoadEnvFile(filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Fatalf("missing env file should be ignored: %v", err)
	}
}

func TestLoadEnvFileLoadsAndPreservesExisting(t *testing.T) {
	t.Setenv("EXISTING_KEY", "from-env")
	t.Setenv("NEW_KEY", "")
	_ = os.Unsetenv("NEW_KEY")
	t.Setenv("QUOTED", "")
	_ = os.Unsetenv("QUOTED")
	file := filepath.Join(t.TempDir(), "test.env")
	content := "# comment\nEXISTING_KEY=from-file\nNEW_KEY=hello\nQUOTED=\"x\"\n"
	if err := os.WriteFile(file, []byte(content), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}

	if err := LoadEnvFile(file); err != nil {
		t.Fatalf("load env file: %v", err)
	}
	if got := os.Getenv("EXISTING_KEY"); got != "from-env" {
		t.Fatalf("expected existing var to be preserved, got %q", got)
	}
	if got := os.Getenv("NEW_KEY"); got != "hello" {
		t.Fatalf("unexpected NEW_KEY=%q", got)
	}
	if got := os.Getenv("QUOTED"); got != "x" {
		t.Fatalf("unexpected QUOTED=%q", got)
	}
}

func TestLoadEnvFileDirectoryFails(t *testing.T) {
	err := LoadEnvFile(t.TempDir())
	if err == nil {
		t.Fatal("expected error when path is a directory")
	}
	if !strings.Contains(err.Error(), "env file:") {
		t.Fatalf("unexpected error %v", err)
	}
}

func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	orig := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	os.Stdout = w
	fn()
	_ = w.Close()
	os.Stdout = orig
	var buf bytes.Buffer
	_, _ = io.Copy(&buf, r)
	return buf.String()
}

func TestExecuteCIPrintsJSONLine(t *testing.T) {
	out := captureStdout(t, func() {
		_, err := Execute(true, "prune-tokens", time.Second, func(context.Context) ([]string, error) {
			return []string{"removed=3"}, nil
		})
		if err != nil {
			t.Errorf("execute: %v", err)
		}
	})
	if !strings.Contains(out, `"ok":true`) || !strings.Contains(out, `"removed=3"`) {
		t.Fatalf("unexpected ci output %q", out)
	}

	out = captureStdout(t, func() {
		_, _ = Execute(true, "smoke", time.Second, func(context.Context) ([]string, error) {
			return nil, errors.New("boom")
		})
	})
	if !strings.Contains(out, `"ok":false`) || !strings.Contains(out, `"error":"boom"`) || !strings.Contains(out, `"details":[]`) {
		t.Fatalf("unexpected failure output %q", out)
	}
}
