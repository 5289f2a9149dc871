// Package warehouse manages a layered library of segments: a project's
// local warehouse shadowing a shared, installed fallback warehouse.
// Grounded on original_source/fashion/warehouse.py.
package warehouse

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fashionforge/fashion/internal/schema"
	"github.com/fashionforge/fashion/internal/segment"
)

// Warehouse manages a directory of named segment subdirectories, with an
// optional fallback warehouse consulted for segments missing locally.
type Warehouse struct {
	Dir      string
	Fallback *Warehouse

	cache    map[string]*segment.Segment
	segments []*segment.Segment
}

// New constructs a Warehouse rooted at dir, optionally shadowing fallback.
func New(dir string, fallback *Warehouse) *Warehouse {
	return &Warehouse{Dir: dir, Fallback: fallback, cache: make(map[string]*segment.Segment)}
}

// ListSegments returns the names of segment subdirectories present in this
// warehouse (not including the fallback's).
func (w *Warehouse) ListSegments() ([]string, error) {
	entries, err := os.ReadDir(w.Dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

// LoadSegment loads a segment by name from this warehouse, falling back to
// Fallback if it isn't found locally. Results are cached.
func (w *Warehouse) LoadSegment(name string, schemas *schema.Repository) (*segment.Segment, bool) {
	if seg, ok := w.cache[name]; ok {
		return seg, seg != nil
	}
	segDir := filepath.Join(w.Dir, name)
	if _, err := os.Stat(filepath.Join(segDir, "segment.json")); err == nil {
		seg, err := segment.Load(segDir, schemas)
		if err != nil {
			slog.Error("segment descriptor invalid, skipping", "segment", name, "error", err)
			w.cache[name] = nil
			return nil, false
		}
		w.cache[name] = seg
		return seg, true
	}
	if w.Fallback != nil {
		seg, ok := w.Fallback.LoadSegment(name, schemas)
		w.cache[name] = seg
		return seg, ok
	}
	w.cache[name] = nil
	return nil, false
}

// LoadSegments loads every segment in this warehouse and its fallback
// chain, with local segments shadowing fallback segments of the same name.
func (w *Warehouse) LoadSegments(schemas *schema.Repository) []*segment.Segment {
	names, err := w.ListSegments()
	if err != nil {
		slog.Error("warehouse: list segments failed", "dir", w.Dir, "error", err)
	}
	seen := make(map[string]bool, len(names))
	var segs []*segment.Segment
	for _, name := range names {
		seg, ok := w.LoadSegment(name, schemas)
		seen[name] = true
		if ok {
			segs = append(segs, seg)
		}
	}
	if w.Fallback != nil {
		for _, seg := range w.Fallback.LoadSegments(schemas) {
			if !seen[seg.Descriptor.Name] {
				segs = append(segs, seg)
			}
		}
	}
	w.segments = segs
	return segs
}

// NewSegment creates and loads a fresh, empty segment named name in this
// warehouse.
func (w *Warehouse) NewSegment(name string, schemas *schema.Repository) (*segment.Segment, error) {
	names, err := w.ListSegments()
	if err != nil {
		return nil, err
	}
	for _, n := range names {
		if n == name {
			slog.Error("segment already exists", "segment", name)
			return nil, nil
		}
	}
	segDir := filepath.Join(w.Dir, name)
	descr := segment.New(name, "1.0.0", "")
	if err := segment.Write(segDir, descr); err != nil {
		return nil, err
	}
	seg, ok := w.LoadSegment(name, schemas)
	if !ok {
		return nil, nil
	}
	return seg, nil
}

// ModuleDefinitionEntry is a resolved module definition ready to become a
// xformmodule.Descriptor, annotated with the segment it came from.
type ModuleDefinitionEntry struct {
	segment.ModuleDef
	TemplatePath  []string
	AbsDirname    string
	SegmentName   string
}

// GetModuleDefinitions collects every declared xform module across all
// loaded segments. A module name collision keeps the first definition seen
// and logs the duplicate — it is not fatal.
func (w *Warehouse) GetModuleDefinitions() map[string]ModuleDefinitionEntry {
	defs := make(map[string]ModuleDefinitionEntry)
	for _, seg := range w.segments {
		for _, m := range seg.Descriptor.XformModules {
			if _, exists := defs[m.ModuleName]; exists {
				slog.Error("xform module name collision", "module", m.ModuleName)
				continue
			}
			templatePath := seg.TemplateDirs()
			defs[m.ModuleName] = ModuleDefinitionEntry{
				ModuleDef:    m,
				TemplatePath: templatePath,
				AbsDirname:   seg.Dir,
				SegmentName:  seg.Descriptor.Name,
			}
		}
	}
	return defs
}

// ModuleConfigEntry is a resolved module configuration, defaulted and
// annotated with its owning segment.
type ModuleConfigEntry struct {
	segment.ModuleConfigEntry
	Name         string
	SegmentName  string
	AbsDirname   string
	TemplatePath []string
	InputKinds   []string
	OutputKinds  []string
}

// GetModuleConfigs collects every xformConfig entry whose moduleName is
// present in moduleNames, applying the descriptor's defaults. Configs
// naming a module with no matching definition are logged and skipped.
func (w *Warehouse) GetModuleConfigs(moduleNames map[string]ModuleDefinitionEntry) []ModuleConfigEntry {
	var cfgs []ModuleConfigEntry
	for _, seg := range w.segments {
		for _, c := range seg.Descriptor.XformConfig {
			if _, ok := moduleNames[c.ModuleName]; !ok {
				slog.Error("no module for config", "module", c.ModuleName)
				continue
			}
			entry := ModuleConfigEntry{
				ModuleConfigEntry: c,
				Name:              c.ModuleName,
				SegmentName:       seg.Descriptor.Name,
				AbsDirname:        seg.Dir,
				InputKinds:        c.InputKinds,
				OutputKinds:       c.OutputKinds,
			}
			if entry.InputKinds == nil {
				entry.InputKinds = []string{}
			}
			if entry.OutputKinds == nil {
				entry.OutputKinds = []string{}
			}
			if len(c.Tags) == 0 {
				entry.ModuleConfigEntry.Tags = []string{}
			}
			// Composite search path: the configuration's own template
			// override (resolved against its segment) first, then the
			// module definition's template path (the segment default) as a
			// fallback tier — spec §4.8 step 1's "configuration-path first,
			// then definition-path".
			var configPath []string
			for _, p := range c.TemplatePath {
				configPath = append(configPath, seg.ResolvePath(p))
			}
			entry.TemplatePath = append(configPath, seg.TemplateDirs()...)
			cfgs = append(cfgs, entry)
		}
	}
	return cfgs
}

// SchemaDefinitionEntry binds a schema file to the segment directory it
// must be resolved against.
type SchemaDefinitionEntry struct {
	Kind       string
	Filename   string
	AbsDirname string
}

// GetSchemaDefinitions collects every schema declaration across all loaded
// segments. A kind declared by more than one segment keeps the first and
// logs the duplicate.
func (w *Warehouse) GetSchemaDefinitions() map[string]SchemaDefinitionEntry {
	defs := make(map[string]SchemaDefinitionEntry)
	for _, seg := range w.segments {
		for _, sch := range seg.Descriptor.Schema {
			if _, exists := defs[sch.Kind]; exists {
				slog.Error("duplicate schema definition", "kind", sch.Kind)
				continue
			}
			defs[sch.Kind] = SchemaDefinitionEntry{Kind: sch.Kind, Filename: sch.Filename, AbsDirname: seg.Dir}
		}
	}
	return defs
}
