// Package mirror implements the change-aware file write gate: a shadow copy
// of every file the generator has written, used to detect whether the user
// hand-edited a generated file since the last write.
package mirror

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Mirror tracks a shadow directory alongside a project directory.
type Mirror struct {
	ProjectDir string
	MirrorDir  string
	Force      bool
}

// New constructs a Mirror rooted at projectDir, shadowing into mirrorDir.
func New(projectDir, mirrorDir string, force bool) *Mirror {
	return &Mirror{ProjectDir: projectDir, MirrorDir: mirrorDir, Force: force}
}

// RelativePath returns filename's path relative to the project directory.
func (m *Mirror) RelativePath(filename string) (string, error) {
	abs, err := filepath.Abs(filename)
	if err != nil {
		return "", fmt.Errorf("mirror: resolve %s: %w", filename, err)
	}
	rel, err := filepath.Rel(m.ProjectDir, abs)
	if err != nil {
		return "", fmt.Errorf("mirror: relativize %s: %w", filename, err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("mirror: %s is outside project root %s", filename, m.ProjectDir)
	}
	return rel, nil
}

// MirrorPath returns the shadow path for filename.
func (m *Mirror) MirrorPath(filename string) (string, error) {
	rel, err := m.RelativePath(filename)
	if err != nil {
		return "", err
	}
	return filepath.Join(m.MirrorDir, rel), nil
}

// IsChanged reports whether filename is strictly newer than its mirrored
// snapshot, meaning the user edited it since the last generation.
//
// A missing mirror snapshot (first generation) or a missing target file is
// not a change. Force mode always reports no change, since the caller has
// asked to overwrite regardless.
func (m *Mirror) IsChanged(filename string) (bool, error) {
	if m.Force {
		return false, nil
	}
	mirPath, err := m.MirrorPath(filename)
	if err != nil {
		return false, err
	}
	mirInfo, err := os.Stat(mirPath)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("mirror: stat snapshot %s: %w", mirPath, err)
	}
	fileInfo, err := os.Stat(filename)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("mirror: stat target %s: %w", filename, err)
	}
	return fileInfo.ModTime().After(mirInfo.ModTime()), nil
}

// CopyToMirror snapshots filename into the mirror directory, preserving
// modification time the way shutil.copy2 does.
func (m *Mirror) CopyToMirror(filename string) error {
	mirPath, err := m.MirrorPath(filename)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(mirPath), 0o755); err != nil {
		return fmt.Errorf("mirror: mkdir %s: %w", filepath.Dir(mirPath), err)
	}
	if err := copyFilePreservingMtime(filename, mirPath); err != nil {
		return fmt.Errorf("mirror: snapshot %s: %w", filename, err)
	}
	return nil
}

func copyFilePreservingMtime(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	mtime := info.ModTime()
	return os.Chtimes(dst, mtime, mtime)
}

// WriteGated writes content to filename only if the user has not edited the
// target since the last generation (or force is set), then snapshots the
// result into the mirror. It reports whether the write happened.
func (m *Mirror) WriteGated(filename string, content []byte) (wrote bool, err error) {
	changed, err := m.IsChanged(filename)
	if err != nil {
		return false, err
	}
	if changed {
		return false, nil
	}
	if err := os.MkdirAll(filepath.Dir(filename), 0o755); err != nil {
		return false, fmt.Errorf("mirror: mkdir %s: %w", filepath.Dir(filename), err)
	}
	if err := os.WriteFile(filename, content, 0o644); err != nil {
		return false, fmt.Errorf("mirror: write %s: %w", filename, err)
	}
	now := time.Now()
	if err := os.Chtimes(filename, now, now); err != nil {
		return false, fmt.Errorf("mirror: touch %s: %w", filename, err)
	}
	if err := m.CopyToMirror(filename); err != nil {
		return false, err
	}
	return true, nil
}
