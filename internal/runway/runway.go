// Package runway orchestrates one build: loading transform module code,
// binding schemas, initialising modules into xform objects, planning their
// execution order, and executing that plan. Grounded on
// original_source/fashion/runway.py (Runway.loadModules/loadSchemas/
// initModules/initMirror/plan/execute).
package runway

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fashionforge/fashion/internal/ferrors"
	"github.com/fashionforge/fashion/internal/kinds"
	"github.com/fashionforge/fashion/internal/modelaccess"
	"github.com/fashionforge/fashion/internal/modelstore"
	"github.com/fashionforge/fashion/internal/planner"
	"github.com/fashionforge/fashion/internal/registry"
	"github.com/fashionforge/fashion/internal/schema"
	"github.com/fashionforge/fashion/internal/warehouse"
	"github.com/fashionforge/fashion/internal/workdir"
	"github.com/fashionforge/fashion/internal/xformmodule"
)

// Runway holds the loaded modules, objects, and plan for one build run.
type Runway struct {
	Store     *modelstore.Store
	Schemas   *schema.Repository
	Warehouse *warehouse.Warehouse
	Registry  *registry.Registry

	modules map[string]*xformmodule.Module
	Plan    planner.Result

	// OnXformExecuted, if set, is called after each planned xform object
	// runs (err is nil on success). Used by buildrun to publish
	// eventbus.XformExecuted and record per-xform metrics without runway
	// importing eventbus or metrics itself.
	OnXformExecuted func(name string, d time.Duration, err error)
}

// New constructs a Runway over an already-open model store and warehouse.
func New(store *modelstore.Store, wh *warehouse.Warehouse) *Runway {
	return &Runway{
		Store:     store,
		Schemas:   schema.NewRepository(),
		Warehouse: wh,
		Registry:  registry.New(),
		modules:   make(map[string]*xformmodule.Module),
	}
}

// factoryPrefix marks a segment.json xformModules[].filename as naming an
// in-process factory (see xformmodule.RegisterFactory) instead of a Go
// plugin file to open — e.g. "factory:fashion.core.generate.jinja2".
const factoryPrefix = "factory:"

func descriptorFor(name string, def warehouse.ModuleDefinitionEntry) xformmodule.Descriptor {
	if len(def.Filename) > len(factoryPrefix) && def.Filename[:len(factoryPrefix)] == factoryPrefix {
		return xformmodule.Descriptor{ModuleName: name, FactoryKey: def.Filename[len(factoryPrefix):]}
	}
	return xformmodule.Descriptor{ModuleName: name, Filename: filepath.Join(def.AbsDirname, def.Filename)}
}

// LoadModules loads every xform module definition from the warehouse whose
// declared tags match requestedTags. A module that fails to load is logged
// and skipped (ModuleLoadFailure), never fatal.
func (r *Runway) LoadModules(requestedTags []string) {
	defs := r.Warehouse.GetModuleDefinitions()
	for name, def := range defs {
		if !xformmodule.MatchTags(requestedTags, def.Tags) {
			continue
		}
		restore, err := workdir.Push(def.AbsDirname)
		if err != nil {
			slog.Error("runway: cannot enter segment directory", "module", name, "dir", def.AbsDirname, "error", err)
			continue
		}
		mod := xformmodule.New(descriptorFor(name, def))
		if mod.LoadCode() {
			r.modules[name] = mod
		}
		restore()
	}
}

// LoadSchemas binds every schema declared across all loaded segments.
func (r *Runway) LoadSchemas() {
	defs := r.Warehouse.GetSchemaDefinitions()
	for kind, def := range defs {
		restore, err := workdir.Push(def.AbsDirname)
		if err != nil {
			slog.Error("runway: cannot enter segment directory for schema", "kind", kind, "error", err)
			continue
		}
		raw, err := os.ReadFile(filepath.Join(def.AbsDirname, def.Filename))
		if err == nil {
			if err := r.Schemas.AddFromDescription(kind, raw); err != nil {
				slog.Error("runway: schema bind failed", "kind", kind, "error", err)
			}
		} else {
			slog.Error("runway: schema file read failed", "kind", kind, "error", err)
		}
		restore()
	}
}

// InitModules initialises every loaded module from its configuration,
// resetting and replaying each module's access context. A duplicate object
// name across modules is logged and the later registration rejected.
func (r *Runway) InitModules(ctx context.Context, requestedTags []string) {
	defs := r.Warehouse.GetModuleDefinitions()
	cfgs := r.Warehouse.GetModuleConfigs(defs)
	for _, cfg := range cfgs {
		mod, ok := r.modules[cfg.Name]
		if !ok {
			continue
		}
		restore, err := workdir.Push(cfg.AbsDirname)
		if err != nil {
			slog.Error("runway: cannot enter segment directory for init", "module", cfg.Name, "error", err)
			continue
		}
		r.Registry.SetObjectConfig(cfg)
		access := modelaccess.New(r.Store, r.Schemas, modelaccess.ContextSpec{
			Name:         cfg.Name,
			TemplatePath: cfg.TemplatePath,
			InputKinds:   cfg.InputKinds,
			OutputKinds:  cfg.OutputKinds,
		})
		if err := access.Open(ctx); err != nil {
			slog.Error("runway: model access open failed", "module", cfg.Name, "error", err)
			restore()
			continue
		}
		mod.Init(xformmodule.Config{
			ModuleName:   cfg.Name,
			Tags:         cfg.ModuleConfigEntry.Tags,
			Settings:     cfg.Parameters,
			InputKinds:   cfg.InputKinds,
			OutputKinds:  cfg.OutputKinds,
			TemplatePath: cfg.TemplatePath,
		}, r.Registry, requestedTags)
		if err := access.Close(ctx); err != nil {
			slog.Error("runway: model access close failed", "module", cfg.Name, "error", err)
		}
		restore()
	}
}

// InitMirror binds the fashion.core.mirror singleton every build depends on.
func (r *Runway) InitMirror(ctx context.Context, projectDir, mirrorDir string, force bool) error {
	access := modelaccess.New(r.Store, r.Schemas, modelaccess.ContextSpec{
		Name:        "fashion.core.runway",
		OutputKinds: []string{kinds.Mirror},
	})
	if err := access.Open(ctx); err != nil {
		return err
	}
	access.SetSingleton(ctx, kinds.Mirror, map[string]any{
		"projectPath": projectDir,
		"mirrorPath":  mirrorDir,
		"force":       force,
	})
	return access.Close(ctx)
}

// BuildPlan builds the execution order from every registered xform object.
func (r *Runway) BuildPlan() {
	objs := r.Registry.AllXformObjects()
	planObjs := make([]planner.Object, 0, len(objs))
	for _, obj := range objs {
		xo, ok := obj.(xformmodule.Object)
		if !ok {
			continue
		}
		planObjs = append(planObjs, planner.Object{
			Name:        xo.Name(),
			InputKinds:  xo.InputKinds(),
			OutputKinds: xo.OutputKinds(),
		})
	}
	r.Plan = planner.Plan(planObjs)
	if !r.Plan.Valid {
		ce := ferrors.NewCycleDetected("xform dependency cycle detected, plan marked invalid").Build()
		slog.Warn(ce.Error())
	}
}

// Execute runs every xform object in planned order. A failure inside one
// object's Execute is contained to that object and logged
// (TransformFailure): the build continues with the remaining objects.
func (r *Runway) Execute(ctx context.Context, requestedTags []string) {
	r.ExecuteVerbose(ctx, requestedTags, false)
}

// ExecuteVerbose is Execute with the verbose flag spec.md §4.7 step 9
// forwards to every xform object's Execute alongside the Code Registry and
// the run's requested tags.
func (r *Runway) ExecuteVerbose(ctx context.Context, requestedTags []string, verbose bool) {
	run := xformmodule.RunArgs{Registry: r.Registry, Verbose: verbose, Tags: requestedTags}
	for _, name := range r.Plan.Order {
		obj, ok := r.Registry.GetXformObject(name)
		if !ok {
			continue
		}
		xo, ok := obj.(xformmodule.Object)
		if !ok {
			continue
		}
		// cfg.TemplatePath is already the composite, segment-resolved
		// search path GetModuleConfigs built (configuration-path dirs
		// before definition-path dirs); objects with no registered
		// configuration (e.g. the built-in generator) fall back to their
		// own declared path.
		cfgAny, _ := r.Registry.GetObjectConfig(name)
		templatePath := xo.TemplatePath()
		var parameters map[string]any
		if cfg, ok := cfgAny.(warehouse.ModuleConfigEntry); ok {
			templatePath = cfg.TemplatePath
			parameters = cfg.Parameters
		}
		access := modelaccess.New(r.Store, r.Schemas, modelaccess.ContextSpec{
			Name:         name,
			TemplatePath: templatePath,
			InputKinds:   xo.InputKinds(),
			OutputKinds:  xo.OutputKinds(),
			Parameters:   parameters,
		})
		r.runOne(ctx, name, xo, access, run)
	}
}

func (r *Runway) runOne(ctx context.Context, name string, xo xformmodule.Object, access *modelaccess.Access, run xformmodule.RunArgs) {
	start := time.Now()
	var runErr error
	defer func() {
		if rec := recover(); rec != nil {
			runErr = fmt.Errorf("panic: %v", rec)
			ce := ferrors.NewTransformFailure(runErr, "xform object panicked").With("xform", name).Build()
			slog.Error(ce.Error())
		}
		if r.OnXformExecuted != nil {
			r.OnXformExecuted(name, time.Since(start), runErr)
		}
	}()
	if err := access.Open(ctx); err != nil {
		slog.Error("runway: model access open failed", "xform", name, "error", err)
		runErr = err
		return
	}
	defer func() {
		if err := access.Close(ctx); err != nil {
			slog.Error("runway: model access close failed", "xform", name, "error", err)
		}
	}()
	runErr = xo.Execute(ctx, access, run)
	if runErr != nil {
		ce := ferrors.NewTransformFailure(runErr, "xform object returned an error").With("xform", name).Build()
		slog.Error(ce.Error())
	}
}

// RunwayError wraps any of runway's phases with enough context for the CLI
// to report a fatal MissingProject-class failure distinctly from a
// contained per-transform one.
type RunwayError struct {
	Phase string
	Err   error
}

func (e *RunwayError) Error() string {
	return fmt.Sprintf("runway: %s: %v", e.Phase, e.Err)
}

func (e *RunwayError) Unwrap() error { return e.Err }
