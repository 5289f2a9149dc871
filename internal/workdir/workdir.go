// Package workdir provides a save/restore helper for temporarily changing
// the process's working directory, grounded on
// original_source/fashion/util.py's `cd` context manager — used by the
// runway around module code loading, schema loading and module init so
// relative paths inside a segment resolve against the segment's own
// directory. Transform execution does not change the working directory.
package workdir

import (
	"log/slog"
	"os"
)

// Push changes the working directory to dir and returns a restore function
// that changes it back. Call sites use it as:
//
//	restore, err := workdir.Push(segDir)
//	if err != nil { ... }
//	defer restore()
func Push(dir string) (restore func(), err error) {
	saved, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	if err := os.Chdir(dir); err != nil {
		return nil, err
	}
	slog.Debug("workdir push", "from", saved, "to", dir)
	return func() {
		if err := os.Chdir(saved); err != nil {
			slog.Error("workdir restore failed", "to", saved, "error", err)
		}
		slog.Debug("workdir pop", "to", saved)
	}, nil
}
