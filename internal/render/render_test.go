package render

import (
	"os"
	"path/filepath"
	"testing"
)

func TestRenderFindsTemplateInFirstMatchingDir(t *testing.T) {
	first := t.TempDir()
	second := t.TempDir()
	os.WriteFile(filepath.Join(second, "g.tmpl"), []byte("second:{{.text}}"), 0o644)
	os.WriteFile(filepath.Join(first, "g.tmpl"), []byte("first:{{.text}}"), 0o644)

	out, err := NewTextTemplateRenderer().Render([]string{first, second}, "g.tmpl", map[string]any{"text": "hi"})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if out != "first:hi" {
		t.Fatalf("expected the first matching directory to win, got %q", out)
	}
}

func TestRenderFallsThroughToSecondDir(t *testing.T) {
	first := t.TempDir()
	second := t.TempDir()
	os.WriteFile(filepath.Join(second, "g.tmpl"), []byte("second:{{.text}}"), 0o644)

	out, err := NewTextTemplateRenderer().Render([]string{first, second}, "g.tmpl", map[string]any{"text": "hi"})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if out != "second:hi" {
		t.Fatalf("expected fallback to second directory, got %q", out)
	}
}

func TestRenderMissingTemplateErrors(t *testing.T) {
	dir := t.TempDir()
	if _, err := NewTextTemplateRenderer().Render([]string{dir}, "missing.tmpl", nil); err == nil {
		t.Fatalf("expected a missing template to error")
	}
}

func TestRenderMissingKeyErrors(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "g.tmpl"), []byte("{{.missing}}"), 0o644)
	if _, err := NewTextTemplateRenderer().Render([]string{dir}, "g.tmpl", map[string]any{"text": "hi"}); err == nil {
		t.Fatalf("expected missingkey=error to fail on an undefined binding")
	}
}
