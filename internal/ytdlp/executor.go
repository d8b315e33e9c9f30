// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package ytdlp

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/ManuGH/tubetext/internal/procgroup"
)

// waitDelay bounds how long a cancelled yt-dlp may linger after the group
// SIGTERM before os/exec kills the leader outright.
const waitDelay = 5 * time.Second

// CommandExecutor runs an external command and returns its stdout. Tests
// substitute a stub so no real subprocess is spawned.
type CommandExecutor interface {
	Execute(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner is the production CommandExecutor backed by os/exec.
type ExecRunner struct{}

// Execute runs the command and surfaces stderr in the returned error so
// callers can classify upstream refusals. The command starts as a process
// group leader and cancellation signals the whole group, not just yt-dlp
// itself.
func (ExecRunner) Execute(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	procgroup.Set(cmd)
	cmd.Cancel = func() error {
		return procgroup.Terminate(cmd)
	}
	cmd.WaitDelay = waitDelay

	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			stderr := strings.TrimSpace(string(exitErr.Stderr))
			if stderr != "" {
				return out, fmt.Errorf("%s exited: %w: %s", name, err, stderr)
			}
		}
		return out, fmt.Errorf("%s: %w", name, err)
	}
	return out, nil
}
