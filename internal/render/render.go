// Package render provides the pluggable template-rendering abstraction the
// generator service uses, grounded on the teacher's
// internal/templates/render.go (text/template, missingkey=error) and
// generalized from a single render function into a swappable Renderer so a
// segment's template path resolution is independent of which template
// language its files use.
package render

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"text/template"
)

// Renderer renders a named template file, found by searching dirs in
// order, against data.
type Renderer interface {
	Render(dirs []string, templateName string, data map[string]any) (string, error)
}

// TextTemplateRenderer is the default Renderer, built on text/template.
type TextTemplateRenderer struct{}

// NewTextTemplateRenderer constructs the default renderer.
func NewTextTemplateRenderer() *TextTemplateRenderer {
	return &TextTemplateRenderer{}
}

// Render locates templateName in the first of dirs that contains it and
// renders it with data. A miss in every directory is a TemplateNotFound
// condition, reported as an error for the caller to classify.
func (TextTemplateRenderer) Render(dirs []string, templateName string, data map[string]any) (string, error) {
	var path string
	for _, dir := range dirs {
		candidate := filepath.Join(dir, templateName)
		if _, err := os.Stat(candidate); err == nil {
			path = candidate
			break
		}
	}
	if path == "" {
		return "", fmt.Errorf("render: template %q not found in %v", templateName, dirs)
	}
	body, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("render: read %s: %w", path, err)
	}
	tmpl, err := template.New(templateName).Option("missingkey=error").Parse(string(body))
	if err != nil {
		return "", fmt.Errorf("render: parse %s: %w", path, err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render: execute %s: %w", path, err)
	}
	return buf.String(), nil
}
