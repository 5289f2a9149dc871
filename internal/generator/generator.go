// Package generator implements the built-in Generator Service: the
// fashion.core xform object that consumes fashion.core.generate.jinja2.spec
// models and the fashion.core.mirror singleton, renders each one, and
// writes it through the Mirror's change-aware gate. Grounded on
// original_source/fashion/warehouse/fashion.core/xform/generateJinja2.py,
// restructured as a Go xformmodule.Object instead of a loaded Python module
// since it is compiled directly into this binary (see
// internal/xformmodule.RegisterFactory).
package generator

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fashionforge/fashion/internal/ferrors"
	"github.com/fashionforge/fashion/internal/kinds"
	"github.com/fashionforge/fashion/internal/mirror"
	"github.com/fashionforge/fashion/internal/modelaccess"
	"github.com/fashionforge/fashion/internal/render"
	"github.com/fashionforge/fashion/internal/xformmodule"
)

// Name is this built-in object's registered name.
const Name = "fashion.core.generate"

// Service is the built-in generator xform object.
type Service struct {
	name     string
	version  string
	tags     []string
	renderer render.Renderer
	markdown *render.MarkdownPostProcessor

	// OnFileWritten, if set, is called after each target file is
	// successfully rendered and written. Used by buildrun to publish
	// eventbus.GenerateWritten without this package importing eventbus.
	OnFileWritten func(targetFile string)
	// OnFileSkipped, if set, is called whenever a pending generate spec is
	// skipped instead of written. reason is one of the SkipReason constants.
	OnFileSkipped func(targetFile string, reason SkipReason)
}

// SkipReason names why a pending generate spec was not written.
type SkipReason string

const (
	SkipTargetModified SkipReason = "target_modified"
	SkipTemplateFailed SkipReason = "template_failed"
)

// New constructs the generator service object for registration into the
// Code Registry.
func New(version string, tags []string, renderer render.Renderer) *Service {
	if renderer == nil {
		renderer = render.NewTextTemplateRenderer()
	}
	return &Service{
		name:     Name,
		version:  version,
		tags:     tags,
		renderer: renderer,
		markdown: render.NewMarkdownPostProcessor(),
	}
}

func (s *Service) Name() string          { return s.name }
func (s *Service) Version() string       { return s.version }
func (s *Service) TemplatePath() []string { return nil }

func (s *Service) InputKinds() []string {
	return []string{kinds.GenerateTemplate, kinds.Mirror}
}

func (s *Service) OutputKinds() []string {
	return []string{kinds.OutputFile}
}

type mirrorConfig struct {
	ProjectPath string `json:"projectPath"`
	MirrorPath  string `json:"mirrorPath"`
	Force       bool   `json:"force"`
}

// Execute renders and writes every pending generate spec, skipping any
// whose target the user has hand-edited since the last generation
// (TargetModified: skip write, warn) and any whose template can't be found
// (TemplateNotFound: skip that request, log).
func (s *Service) Execute(ctx context.Context, access *modelaccess.Access, run xformmodule.RunArgs) error {
	if !xformmodule.MatchTags(run.Tags, s.tags) {
		return nil
	}
	mirDoc, _, ok := access.GetSingleton(ctx, kinds.Mirror)
	if !ok {
		slog.Warn("generator: no mirror configuration bound, skipping this run")
		return nil
	}
	var mirCfg mirrorConfig
	if err := json.Unmarshal(mirDoc, &mirCfg); err != nil {
		return fmt.Errorf("generator: parse mirror config: %w", err)
	}
	mir := mirror.New(mirCfg.ProjectPath, mirCfg.MirrorPath, mirCfg.Force)

	rows, ok := access.GetByKind(ctx, kinds.GenerateTemplate)
	if !ok {
		return nil
	}
	for _, row := range rows {
		var spec modelaccess.GenerateSpec
		if err := json.Unmarshal(row.Doc, &spec); err != nil {
			slog.Error("generator: malformed generate spec", "id", row.ID, "error", err)
			continue
		}
		s.renderOne(ctx, access, mir, spec, run.Verbose)
	}
	return nil
}

func (s *Service) renderOne(ctx context.Context, access *modelaccess.Access, mir *mirror.Mirror, spec modelaccess.GenerateSpec, verbose bool) {
	targetFile := spec.TargetFile
	if spec.ProjectRoot != "" && !filepath.IsAbs(targetFile) {
		targetFile = filepath.Join(spec.ProjectRoot, targetFile)
	}
	if verbose {
		slog.Info("generator: rendering", "template", spec.Template, "target", targetFile)
	}

	changed, err := mir.IsChanged(targetFile)
	if err != nil {
		slog.Error("generator: mirror check failed", "target", targetFile, "error", err)
		return
	}
	if changed {
		ce := ferrors.NewTargetModified("target modified since last generation, skipping").
			With("target", targetFile).Build()
		slog.Warn(ce.Error())
		if s.OnFileSkipped != nil {
			s.OnFileSkipped(targetFile, SkipTargetModified)
		}
		return
	}

	// The model is the sole binding set: its keys are flattened directly into
	// the template namespace (so "{{.text}}" binds against {"text": ...}),
	// matching generateJinja2.py's template.render(gs.model). A non-object
	// model has nowhere to flatten to, so it's bound under "model" instead.
	data := map[string]any{}
	if m, ok := spec.Model.(map[string]any); ok {
		for k, v := range m {
			data[k] = v
		}
	} else if spec.Model != nil {
		data["model"] = spec.Model
	}
	for k, v := range spec.TemplateDict {
		data[k] = v
	}
	output, err := s.renderer.Render(spec.TemplatePath, spec.Template, data)
	if err != nil {
		ce := ferrors.Wrap(err, ferrors.TemplateNotFound, "template not found or render error").
			With("template", spec.Template).Build()
		slog.Error(ce.Error())
		if s.OnFileSkipped != nil {
			s.OnFileSkipped(targetFile, SkipTemplateFailed)
		}
		return
	}

	if spec.Markdown {
		converted, err := s.markdown.Convert(output)
		if err != nil {
			ce := ferrors.Wrap(err, ferrors.TransformFailure, "markdown post-process failed").
				With("target", targetFile).Build()
			slog.Error(ce.Error())
			if s.OnFileSkipped != nil {
				s.OnFileSkipped(targetFile, SkipTemplateFailed)
			}
			return
		}
		output = converted
	}

	if err := os.MkdirAll(filepath.Dir(targetFile), 0o755); err != nil {
		slog.Error("generator: mkdir failed", "target", targetFile, "error", err)
		return
	}
	if err := os.WriteFile(targetFile, []byte(output), 0o644); err != nil {
		slog.Error("generator: write failed", "target", targetFile, "error", err)
		return
	}
	if err := mir.CopyToMirror(targetFile); err != nil {
		slog.Error("generator: mirror snapshot failed", "target", targetFile, "error", err)
		return
	}
	access.OutputFile(ctx, targetFile)
	if s.OnFileWritten != nil {
		s.OnFileWritten(targetFile)
	}
}
