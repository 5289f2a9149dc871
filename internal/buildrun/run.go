// Package buildrun wires a portfolio's runway phases into one build, and
// is the single code path shared by the `fashion build` command and the
// daemon's scheduled/watch-triggered rebuilds. Grounded on the shape of the
// teacher's internal/daemon.Builder interface (Build(ctx, job) (report,
// error)), adapted to fashion's portfolio/runway/manifest domain.
package buildrun

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/fashionforge/fashion/internal/eventbus"
	"github.com/fashionforge/fashion/internal/generator"
	"github.com/fashionforge/fashion/internal/manifest"
	"github.com/fashionforge/fashion/internal/metrics"
	"github.com/fashionforge/fashion/internal/portfolio"
	"github.com/fashionforge/fashion/internal/runway"
)

// Options configures one build run.
type Options struct {
	Force   bool
	Tags    []string
	Verbose bool
}

// Run builds a fresh runway for the portfolio, executes every phase, and
// returns a populated manifest. A cycle in the computed plan is reported in
// the manifest (Plan.Valid == false) rather than returned as an error,
// matching the CycleDetected policy of marking the plan invalid and
// continuing with whatever prefix order was resolved.
func Run(ctx context.Context, p *portfolio.Portfolio, opts Options, bus *eventbus.Bus, recorder metrics.Recorder) (*manifest.BuildManifest, error) {
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}
	if bus == nil {
		bus = eventbus.New()
	}
	start := time.Now()
	_ = bus.Publish(eventbus.NewBuildStarted(p.ProjectPath, start))

	rw := p.NewRunway()

	phase := func(name string, fn func()) {
		t0 := time.Now()
		fn()
		recorder.ObservePhaseDuration(name, time.Since(t0))
	}

	var segs []*segmentSummary
	phase("load_segments", func() {
		for _, seg := range rw.Warehouse.LoadSegments(rw.Schemas) {
			prov, _ := seg.GitProvenance()
			segs = append(segs, &segmentSummary{
				Name: seg.Descriptor.Name, Version: seg.Descriptor.Version,
				Dir: seg.Dir, CommitHash: prov.CommitHash,
			})
		}
	})
	rw.OnXformExecuted = func(name string, d time.Duration, err error) {
		errMsg := ""
		if err != nil {
			errMsg = err.Error()
			recorder.IncXformFailure(name)
		}
		recorder.ObserveXformDuration(name, d, err == nil)
		_ = bus.Publish(eventbus.NewXformExecuted(name, errMsg))
	}

	var filesWritten, filesSkipped int
	phase("load_modules", func() { rw.LoadModules(opts.Tags) })
	phase("load_schemas", rw.LoadSchemas)
	phase("init_modules", func() { rw.InitModules(ctx, opts.Tags) })
	if svc, ok := rw.Registry.GetXformObject(generator.Name); ok {
		if gs, ok := svc.(*generator.Service); ok {
			gs.OnFileWritten = func(targetFile string) {
				filesWritten++
				recorder.IncGenerateWrite(targetFile)
				_ = bus.Publish(eventbus.NewGenerateWritten(targetFile))
			}
			gs.OnFileSkipped = func(targetFile string, reason generator.SkipReason) {
				filesSkipped++
				if reason == generator.SkipTargetModified {
					recorder.IncMirrorSkip(targetFile)
				} else {
					recorder.IncGenerateFailure(targetFile)
				}
			}
		}
	}
	if err := rw.InitMirror(ctx, p.ProjectPath, p.MirrorPath, opts.Force); err != nil {
		_ = bus.Publish(eventbus.NewBuildFailed(err.Error()))
		return nil, fmt.Errorf("buildrun: init mirror: %w", err)
	}
	phase("plan", rw.BuildPlan)
	recorder.SetPlanValid(rw.Plan.Valid)
	recorder.SetPlanLength(len(rw.Plan.Order))
	_ = bus.Publish(eventbus.NewPlanComputed(rw.Plan.Order, rw.Plan.Valid))

	phase("execute", func() { rw.ExecuteVerbose(ctx, opts.Tags, opts.Verbose) })

	m := buildManifest(p, rw, segs, start, filesWritten, filesSkipped)
	if !m.Plan.Valid {
		recorder.IncBuildOutcome(metrics.BuildOutcomeWarning)
	} else {
		recorder.IncBuildOutcome(metrics.BuildOutcomeSuccess)
	}
	recorder.ObserveBuildDuration(time.Since(start))

	hash, err := m.Hash()
	if err == nil {
		_ = bus.Publish(eventbus.NewBuildCompleted(m.ID, hash, m.Outputs.FilesWritten))
	}
	return m, nil
}

type segmentSummary struct {
	Name, Version, Dir, CommitHash string
}

func buildManifest(p *portfolio.Portfolio, rw *runway.Runway, segs []*segmentSummary, start time.Time, filesWritten, filesSkipped int) *manifest.BuildManifest {
	inputs := manifest.Inputs{}
	for _, s := range segs {
		inputs.Segments = append(inputs.Segments, manifest.SegmentInput{
			Name: s.Name, Version: s.Version, Dir: s.Dir, CommitHash: s.CommitHash,
		})
	}

	objs := rw.Registry.AllXformObjects()
	modules := manifest.Modules{}
	for _, o := range objs {
		modules.Objects = append(modules.Objects, manifest.ModuleVersion{Name: o.Name(), Version: o.Version()})
	}
	for name := range rw.Warehouse.GetModuleDefinitions() {
		modules.Loaded = append(modules.Loaded, name)
	}
	sort.Strings(modules.Loaded)

	return &manifest.BuildManifest{
		ID:          uuid.NewString(),
		ProjectPath: p.ProjectPath,
		Timestamp:   start,
		Inputs:      inputs,
		Plan: manifest.Plan{
			Order:      rw.Plan.Order,
			Valid:      rw.Plan.Valid,
			LeafInputs: rw.Plan.LeafInputs,
		},
		Modules:  modules,
		Outputs:  manifest.Outputs{FilesWritten: filesWritten, FilesSkipped: filesSkipped},
		Status:   statusFor(rw.Plan.Valid),
		Duration: time.Since(start).Milliseconds(),
	}
}

func statusFor(planValid bool) string {
	if planValid {
		return "ok"
	}
	return "plan_invalid"
}
