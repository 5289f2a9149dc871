// Package segment loads and validates segment.json descriptors — packages
// of models, schemas, templates, and transform modules that compose into a
// portfolio's warehouse. Grounded on original_source/fashion/segment.py.
package segment

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fashionforge/fashion/internal/ferrors"
	"github.com/fashionforge/fashion/internal/schema"
)

// SchemaRef binds a JSON-Schema file to a model kind.
type SchemaRef struct {
	Kind     string `json:"kind"`
	Filename string `json:"filename"`
}

// ModuleDef declares one transform module's code location.
type ModuleDef struct {
	ModuleName string   `json:"moduleName"`
	Filename   string   `json:"filename"`
	Tags       []string `json:"tags,omitempty"`
}

// ModuleConfigEntry configures an already-defined transform module: which
// tags it runs under, what parameters it receives, and optional overrides of
// the module's declared input/output kinds and template search path.
type ModuleConfigEntry struct {
	ModuleName   string         `json:"moduleName"`
	Tags         []string       `json:"tags,omitempty"`
	Parameters   map[string]any `json:"parameters,omitempty"`
	InputKinds   []string       `json:"inputKinds,omitempty"`
	OutputKinds  []string       `json:"outputKinds,omitempty"`
	TemplatePath []string       `json:"templatePath,omitempty"`
}

// Descriptor is the parsed contents of a segment.json file.
type Descriptor struct {
	Name         string              `json:"name"`
	Version      string              `json:"version"`
	Description  string              `json:"description,omitempty"`
	TemplatePath []string            `json:"templatePath,omitempty"`
	Schema       []SchemaRef         `json:"schema,omitempty"`
	XformModules []ModuleDef         `json:"xformModules,omitempty"`
	XformConfig  []ModuleConfigEntry `json:"xformConfig,omitempty"`
	SegmentRefs  []string            `json:"segmentRefs,omitempty"`
	ExtraFiles   []string            `json:"extraFiles,omitempty"`
}

// metaSchema is the JSON-Schema that validates a segment.json document
// itself, ported field-for-field from the Python original's segmentSchema.
const metaSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["name", "version"],
  "properties": {
    "name": {"type": "string", "minLength": 1},
    "version": {"type": "string", "minLength": 1},
    "description": {"type": "string"},
    "templatePath": {"type": "array", "items": {"type": "string"}},
    "schema": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["kind", "filename"],
        "properties": {"kind": {"type": "string"}, "filename": {"type": "string"}}
      }
    },
    "xformModules": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["moduleName", "filename"],
        "properties": {
          "moduleName": {"type": "string"},
          "filename": {"type": "string"},
          "tags": {"type": "array", "items": {"type": "string"}}
        }
      }
    },
    "xformConfig": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["moduleName"],
        "properties": {
          "moduleName": {"type": "string"},
          "tags": {"type": "array", "items": {"type": "string"}},
          "parameters": {"type": "object"},
          "inputKinds": {"type": "array", "items": {"type": "string"}},
          "outputKinds": {"type": "array", "items": {"type": "string"}},
          "templatePath": {"type": "array", "items": {"type": "string"}}
        }
      }
    },
    "segmentRefs": {"type": "array", "items": {"type": "string"}},
    "extraFiles": {"type": "array", "items": {"type": "string"}}
  }
}`

const metaSchemaKind = "fashion.core.segment.descriptor"

// Segment is a loaded segment.json bound to the directory it came from.
type Segment struct {
	Descriptor Descriptor
	Dir        string // absolute directory containing segment.json
}

// Load reads and meta-schema-validates the segment.json file in dir.
// A SegmentDescriptorInvalid failure here means the caller should skip the
// segment and log, per spec's error taxonomy — it does not abort the build.
func Load(dir string, schemas *schema.Repository) (*Segment, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("segment: resolve dir %s: %w", dir, err)
	}
	path := filepath.Join(absDir, "segment.json")
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("segment: read %s: %w", path, err)
	}

	if !schemas.Exists(metaSchemaKind) {
		if err := schemas.AddFromDescription(metaSchemaKind, []byte(metaSchema)); err != nil {
			return nil, fmt.Errorf("segment: bind meta-schema: %w", err)
		}
	}
	if err := schemas.Validate(metaSchemaKind, raw); err != nil {
		return nil, ferrors.Wrap(err, ferrors.SegmentDescriptorInvalid, "segment descriptor failed meta-schema validation").
			With("path", path).Build()
	}

	var descr Descriptor
	if err := json.Unmarshal(raw, &descr); err != nil {
		return nil, fmt.Errorf("segment: parse %s: %w", path, err)
	}
	if len(descr.TemplatePath) == 0 {
		descr.TemplatePath = []string{"./template"}
	}
	return &Segment{Descriptor: descr, Dir: absDir}, nil
}

// ResolvePath resolves a path that's relative to the segment's directory
// (as segment.json fields like "schema[].filename" are) into an absolute
// path.
func (s *Segment) ResolvePath(relative string) string {
	if filepath.IsAbs(relative) {
		return relative
	}
	return filepath.Join(s.Dir, relative)
}

// TemplateDirs returns the segment's template search path as absolute
// directories.
func (s *Segment) TemplateDirs() []string {
	dirs := make([]string, 0, len(s.Descriptor.TemplatePath))
	for _, p := range s.Descriptor.TemplatePath {
		dirs = append(dirs, s.ResolvePath(p))
	}
	return dirs
}

// New creates a minimal segment.json descriptor for a fresh, empty segment
// directory — the `segment new` operation's payload.
func New(name, version, description string) Descriptor {
	return Descriptor{
		Name:         name,
		Version:      version,
		Description:  description,
		TemplatePath: []string{"./template"},
	}
}

// Write serializes descr as segment.json inside dir.
func Write(dir string, descr Descriptor) error {
	raw, err := json.MarshalIndent(descr, "", "  ")
	if err != nil {
		return fmt.Errorf("segment: marshal descriptor: %w", err)
	}
	path := filepath.Join(dir, "segment.json")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("segment: mkdir %s: %w", dir, err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("segment: write %s: %w", path, err)
	}
	return nil
}
