package extraction

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// Runner executes external tools; tests substitute a fake
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)
}

// ExecRunner runs commands with os/exec
type ExecRunner struct {
	Logger *slog.Logger
}

// Run executes the command and captures its output
func (r ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}

	start := time.Now()
	cmd := exec.CommandContext(ctx, name, args...)
	var out, errb bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errb

	err := cmd.Run()
	if err != nil {
		logger.Debug("Command failed",
			slog.String("cmd", name),
			slog.Duration("elapsed", time.Since(start)),
			slog.String("stderr", truncate(errb.String(), 4<<10)),
			slog.Any("error", err),
		)
		return out.Bytes(), errb.Bytes(), fmt.Errorf("%s: %w", name, err)
	}

	logger.Debug("Command finished",
		slog.String("cmd", name),
		slog.String("args", strings.Join(args, " ")),
		slog.Duration("elapsed", time.Since(start)),
		slog.Int("stdout_bytes", out.Len()),
	)
	return out.Bytes(), errb.Bytes(), nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "...(truncated)"
}

// writeTempPDF stores the document in a fresh temp dir for the command line tools.
// The returned cleanup removes the directory.
func writeTempPDF(data []byte) (dir, path string, cleanup func(), err error) {
	dir, err = os.MkdirTemp("", "resume-extract-*")
	if err != nil {
		return "", "", nil, fmt.Errorf("create temp dir: %w", err)
	}
	cleanup = func() { _ = os.RemoveAll(dir) }

	path = filepath.Join(dir, "input.pdf")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		cleanup()
		return "", "", nil, fmt.Errorf("write temp pdf: %w", err)
	}
	return dir, path, cleanup, nil
}
