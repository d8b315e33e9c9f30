// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package procgroup places subprocesses in their own process group so that
// cancellation reaches the whole tree. yt-dlp forks helpers (fragment
// downloaders, ffmpeg for merges); killing only the leader orphans them.
package procgroup

import "os/exec"

// Set configures the command to start as a process group leader.
// It must be called before the command starts.
func Set(cmd *exec.Cmd) {
	set(cmd)
}

// Terminate asks the command's whole process group to exit. A group that is
// already gone is not an error. Callers should pair this with a WaitDelay so
// a leader that ignores the signal still gets killed.
func Terminate(cmd *exec.Cmd) error {
	if cmd == nil || cmd.Process == nil {
		return nil
	}
	return terminate(cmd.Process.Pid)
}
