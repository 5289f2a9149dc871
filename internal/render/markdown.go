package render

import (
	"bytes"
	"fmt"

	"github.com/yuin/goldmark"
)

// MarkdownPostProcessor runs rendered output that is itself Markdown
// through goldmark to HTML. Off by default (spec.md's model kinds don't
// require it); a segment opts in by setting the producing transform
// module's configuration parameters["markdown"] to true (SPEC_FULL.md §11).
type MarkdownPostProcessor struct {
	md goldmark.Markdown
}

// NewMarkdownPostProcessor constructs a goldmark-backed post processor with
// default extensions.
func NewMarkdownPostProcessor() *MarkdownPostProcessor {
	return &MarkdownPostProcessor{md: goldmark.New()}
}

// Convert renders markdown source to HTML.
func (p *MarkdownPostProcessor) Convert(source string) (string, error) {
	var buf bytes.Buffer
	if err := p.md.Convert([]byte(source), &buf); err != nil {
		return "", fmt.Errorf("markdown postprocess: %w", err)
	}
	return buf.String(), nil
}
