// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

//go:build !unix

package procgroup

import (
	"os"
	"os/exec"
)

func set(_ *exec.Cmd) {
	// Process groups are a unix concept; elsewhere the leader kill from
	// os/exec has to do.
}

func terminate(pid int) error {
	if pid <= 0 {
		return nil
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return nil
	}
	return proc.Kill()
}
