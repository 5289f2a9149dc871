package workdir

import (
	"os"
	"path/filepath"
	"testing"
)

func TestPushChangesDirAndRestores(t *testing.T) {
	original, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd: %v", err)
	}
	target := t.TempDir()
	resolvedTarget, err := filepath.EvalSymlinks(target)
	if err != nil {
		t.Fatalf("EvalSymlinks: %v", err)
	}

	restore, err := Push(target)
	if err != nil {
		t.Fatalf("Push: %v", err)
	}
	cur, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd: %v", err)
	}
	if cur != resolvedTarget {
		t.Fatalf("expected cwd %s, got %s", resolvedTarget, cur)
	}

	restore()
	cur, err = os.Getwd()
	if err != nil {
		t.Fatalf("Getwd: %v", err)
	}
	if cur != original {
		t.Fatalf("expected restored cwd %s, got %s", original, cur)
	}
}

func TestPushFailsForMissingDir(t *testing.T) {
	if _, err := Push(filepath.Join(t.TempDir(), "does-not-exist")); err == nil {
		t.Fatalf("expected Push to a nonexistent directory to fail")
	}
}
