// SPDX-License-Identifier: MIT

package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/renameio/v2"
)

// WriteVersion stamps dir with the build that produced the cache contents.
// The write is atomic + durable so a crash never leaves a torn stamp file.
func WriteVersion(dir, version string) error {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}

	pendingFile, err := renameio.NewPendingFile(filepath.Join(dir, "VERSION"))
	if err != nil {
		return fmt.Errorf("create pending VERSION file: %w", err)
	}
	defer func() {
		// renameio removes the temp file if not committed.
		_ = pendingFile.Cleanup()
	}()

	if _, err := fmt.Fprintln(pendingFile, version); err != nil {
		return fmt.Errorf("write VERSION data: %w", err)
	}

	// CloseAtomicallyReplace: fsync + rename (durable + atomic)
	if err := pendingFile.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("atomically replace VERSION file: %w", err)
	}
	return nil
}

// ReadVersion returns the stamped build, or "" when no stamp exists yet.
func ReadVersion(dir string) (string, error) {
	buf, err := os.ReadFile(filepath.Join(dir, "VERSION")) // #nosec G304 -- path is operator-configured
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(string(buf)), nil
}
