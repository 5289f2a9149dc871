// Package xformmodule represents transform modules: units of loadable code
// that, once initialised, register one or more transform objects into the
// Code Registry. Grounded on original_source/fashion/xforms.py
// (XformModule, matchTags) and the teacher's internal/plugin (Plugin,
// PluginMetadata.Validate) generalized to fashion's single plugin kind.
package xformmodule

import (
	"context"
	"fmt"
	"log/slog"
	"plugin"

	"github.com/fashionforge/fashion/internal/ferrors"
	"github.com/fashionforge/fashion/internal/modelaccess"
	"github.com/fashionforge/fashion/internal/registry"
)

// RunArgs carries the run-scoped values spec.md §4.7 step 9 passes to every
// xform object's execute: the Code Registry (for getService/addService
// lookups of other registered objects), the verbose flag, and the run's
// requested tag filter.
type RunArgs struct {
	Registry *registry.Registry
	Verbose  bool
	Tags     []string
}

// MatchTags reports whether moduleTags satisfies requestedTags. Nil
// requested tags match everything; an empty requested set matches only an
// equally empty module tag set, otherwise requested must be a subset of the
// module's tags.
func MatchTags(requestedTags, moduleTags []string) bool {
	if requestedTags == nil {
		return true
	}
	req := toSet(requestedTags)
	has := toSet(moduleTags)
	if len(req) == 0 && len(has) == 0 {
		return true
	}
	if len(req) == 0 {
		return false
	}
	for t := range req {
		if !has[t] {
			return false
		}
	}
	return true
}

func toSet(items []string) map[string]bool {
	s := make(map[string]bool, len(items))
	for _, i := range items {
		s[i] = true
	}
	return s
}

// Descriptor is the on-disk or in-process identity of one transform module,
// as declared by a segment's module definitions.
type Descriptor struct {
	ModuleName string
	// Filename, if set, is a path to a Go plugin (.so) exposing an
	// InitXformModule symbol. Mutually exclusive with FactoryKey.
	Filename string
	// FactoryKey, if set, names a module registered in-process via
	// RegisterFactory — the path used by modules bundled into this binary
	// (e.g. the fallback fashion.core warehouse), which cannot be loaded
	// as a plugin since the host binary and the plugin must be built with
	// the exact same toolchain and dependency versions.
	FactoryKey string
}

// Config is the per-module configuration bound when a module is
// initialised — its declared tags gate whether Init runs at all. InputKinds,
// OutputKinds, and TemplatePath carry the segment's xformConfig overrides
// (or the module definition's own declared defaults) through to Init, so a
// module can register XformObjects bound to the resolved values rather than
// hardcoding its own.
type Config struct {
	ModuleName   string
	Tags         []string
	Settings     map[string]any
	InputKinds   []string
	OutputKinds  []string
	TemplatePath []string
}

// InitFunc is the shape every transform module must expose: given its
// configuration, the build's Code Registry, and the build's requested tag
// filter, it registers XformObjects into reg.
type InitFunc func(cfg Config, reg *registry.Registry, requestedTags []string) error

var factories = map[string]InitFunc{}

// RegisterFactory binds an in-process transform module under name, for
// modules compiled directly into this binary instead of loaded as a Go
// plugin.
func RegisterFactory(name string, fn InitFunc) {
	factories[name] = fn
}

// Module is a loaded transform module, ready to be initialised.
type Module struct {
	Descriptor Descriptor
	isLoaded   bool
	initFunc   InitFunc
}

// New constructs an unloaded Module from its descriptor.
func New(d Descriptor) *Module {
	return &Module{Descriptor: d}
}

// LoadCode loads the module's code — either from a registered in-process
// factory or from a Go plugin file — without running its Init. A failure
// here is a ModuleLoadFailure: it marks the module unloaded and is logged,
// never fatal to the build.
func (m *Module) LoadCode() bool {
	if m.isLoaded {
		return true
	}
	if m.Descriptor.FactoryKey != "" {
		fn, ok := factories[m.Descriptor.FactoryKey]
		if !ok {
			ce := ferrors.NewModuleLoadFailure("no such factory registered").
				With("module", m.Descriptor.ModuleName).With("factory", m.Descriptor.FactoryKey).Build()
			slog.Error(ce.Error())
			return false
		}
		m.initFunc = fn
		m.isLoaded = true
		return true
	}
	if m.Descriptor.Filename != "" {
		fn, err := loadPluginInit(m.Descriptor.Filename)
		if err != nil {
			ce := ferrors.Wrap(err, ferrors.ModuleLoadFailure, "failed to load plugin").
				With("module", m.Descriptor.ModuleName).With("file", m.Descriptor.Filename).Build()
			slog.Error(ce.Error())
			return false
		}
		m.initFunc = fn
		m.isLoaded = true
		return true
	}
	ce := ferrors.NewModuleLoadFailure("module descriptor has neither filename nor factory key").
		With("module", m.Descriptor.ModuleName).Build()
	slog.Error(ce.Error())
	return false
}

func loadPluginInit(filename string) (InitFunc, error) {
	p, err := plugin.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("open plugin: %w", err)
	}
	sym, err := p.Lookup("InitXformModule")
	if err != nil {
		return nil, fmt.Errorf("lookup InitXformModule: %w", err)
	}
	fn, ok := sym.(func(Config, *registry.Registry, []string) error)
	if !ok {
		return nil, fmt.Errorf("InitXformModule has unexpected signature")
	}
	return InitFunc(fn), nil
}

// Init runs the module's InitFunc if its declared tags match the requested
// tag filter. A panic or error inside Init is contained and logged
// (ModuleLoadFailure), never propagated to the Runway.
func (m *Module) Init(cfg Config, reg *registry.Registry, requestedTags []string) (ran bool) {
	if !m.isLoaded {
		ce := ferrors.NewModuleLoadFailure("can't init a module whose code never loaded").
			With("module", m.Descriptor.ModuleName).Build()
		slog.Error(ce.Error())
		return false
	}
	if !MatchTags(requestedTags, cfg.Tags) {
		return false
	}
	defer func() {
		if r := recover(); r != nil {
			ce := ferrors.NewModuleLoadFailure("init panicked").
				With("module", cfg.ModuleName).With("panic", r).Build()
			slog.Error(ce.Error())
			ran = false
		}
	}()
	if err := m.initFunc(cfg, reg, requestedTags); err != nil {
		ce := ferrors.Wrap(err, ferrors.ModuleLoadFailure, "init returned an error").
			With("module", cfg.ModuleName).Build()
		slog.Error(ce.Error())
		return false
	}
	return true
}

// Object is the domain shape of an xform object: a named, versioned
// transform bound to declared input/output kinds and a template path, with
// an Execute entry point the Runway invokes in planned order.
type Object interface {
	Name() string
	Version() string
	InputKinds() []string
	OutputKinds() []string
	TemplatePath() []string
	Execute(ctx context.Context, access *modelaccess.Access, run RunArgs) error
}
