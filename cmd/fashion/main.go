// Command fashion is the CLI entry point: init/build/plan a project
// portfolio, run segment housekeeping, and run the daemon. Grounded on the
// teacher's cmd/docbuilder/main.go (Kong root CLI + Global context +
// AfterApply logging setup) and original_source/fashion/fashionCmds.py
// (init/build/kill/version command set).
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/fashionforge/fashion/internal/builtin"
	"github.com/fashionforge/fashion/internal/buildrun"
	"github.com/fashionforge/fashion/internal/config"
	"github.com/fashionforge/fashion/internal/daemon"
	"github.com/fashionforge/fashion/internal/eventbus"
	"github.com/fashionforge/fashion/internal/ferrors"
	_ "github.com/fashionforge/fashion/internal/generator"
	"github.com/fashionforge/fashion/internal/metrics"
	"github.com/fashionforge/fashion/internal/portfolio"
	"github.com/fashionforge/fashion/internal/schema"
)

// Set at build time with: -ldflags "-X main.version=1.0.0"
var version = "dev"

// CLI is the root command set and global flags.
type CLI struct {
	Project string           `short:"p" help:"Project directory" default:"."`
	Config  string           `short:"c" help:"Run configuration file path" default:"fashion.yaml"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Init    InitCmd    `cmd:"" help:"Initialize a new fashion project in the project directory"`
	Build   BuildCmd   `cmd:"" help:"Run a full build: load segments, plan, execute transforms"`
	Plan    PlanCmd    `cmd:"" help:"Compute and print the execution plan without running it"`
	Daemon  DaemonCmd  `cmd:"" help:"Run scheduled and watch-triggered rebuilds"`
	Segment SegmentCmd `cmd:"" help:"Work with warehouse segments"`
}

// Global carries shared state constructed once in AfterApply.
type Global struct {
	Logger *slog.Logger
}

func (c *CLI) AfterApply() error {
	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	return nil
}

func installWarehousePath() (string, error) {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		cacheDir = os.TempDir()
	}
	dir := filepath.Join(cacheDir, "fashion", "install-warehouse")
	if err := builtin.ExtractInstallWarehouse(dir); err != nil {
		return "", fmt.Errorf("extract install warehouse: %w", err)
	}
	return dir, nil
}

func openPortfolio(root *CLI) (*portfolio.Portfolio, error) {
	installDir, err := installWarehousePath()
	if err != nil {
		return nil, err
	}
	p, err := portfolio.New(root.Project, installDir)
	if err != nil {
		return nil, err
	}
	if !p.Exists() {
		return nil, ferrors.NewMissingProject("no fashion project here, run `fashion init` first").
			With("project", root.Project).Build()
	}
	if err := p.Load(); err != nil {
		return nil, err
	}
	return p, nil
}

// InitCmd creates a new fashion project in the project directory.
type InitCmd struct{}

func (i *InitCmd) Run(_ *Global, root *CLI) error {
	installDir, err := installWarehousePath()
	if err != nil {
		return err
	}
	p, err := portfolio.New(root.Project, installDir)
	if err != nil {
		return err
	}
	if p.Exists() {
		fmt.Println("project already exists")
		return nil
	}
	if err := p.Create(); err != nil {
		return fmt.Errorf("init: %w", err)
	}
	if err := config.Init(root.Config, false); err != nil {
		slog.Warn("init: could not write run configuration", "path", root.Config, "error", err)
	}
	fmt.Printf("initialized fashion project at %s\n", p.FashionPath)
	return nil
}

// BuildCmd runs one full build.
type BuildCmd struct {
	Force bool     `short:"f" help:"Force overwrite even if targets were modified since the last generation"`
	Tags  []string `help:"Only run xform modules matching these tags"`
}

func (b *BuildCmd) Run(_ *Global, root *CLI) error {
	p, err := openPortfolio(root)
	if err != nil {
		return err
	}
	m, err := buildrun.Run(context.Background(), p, buildrun.Options{Force: b.Force, Tags: b.Tags, Verbose: root.Verbose}, eventbus.New(), metrics.NoopRecorder{})
	if err != nil {
		return err
	}
	if !m.Plan.Valid {
		fmt.Println("warning: xform dependency cycle detected, plan is partial")
	}
	fmt.Printf("build %s: %d xforms executed, status=%s\n", m.ID, len(m.Plan.Order), m.Status)
	return nil
}

// PlanCmd computes and prints the plan without executing it.
type PlanCmd struct {
	Tags []string `help:"Only consider xform modules matching these tags"`
}

func (pc *PlanCmd) Run(_ *Global, root *CLI) error {
	p, err := openPortfolio(root)
	if err != nil {
		return err
	}
	rw := p.NewRunway()
	rw.Warehouse.LoadSegments(rw.Schemas)
	rw.LoadSchemas()
	rw.LoadModules(pc.Tags)
	rw.InitModules(context.Background(), pc.Tags)
	rw.BuildPlan()

	if !rw.Plan.Valid {
		fmt.Println("plan invalid: dependency cycle detected")
	}
	for i, name := range rw.Plan.Order {
		fmt.Printf("%d. %s\n", i+1, name)
	}
	return nil
}

// DaemonCmd runs the fashion daemon.
type DaemonCmd struct{}

func (d *DaemonCmd) Run(_ *Global, root *CLI) error {
	p, err := openPortfolio(root)
	if err != nil {
		return err
	}
	cfg, err := config.Load(root.Config)
	if err != nil {
		slog.Warn("daemon: no run configuration found, using defaults", "path", root.Config, "error", err)
		cfg = &config.Config{Daemon: config.DaemonConfig{Interval: 10 * time.Minute, Watch: true, DebounceDelay: 2 * time.Second}}
	}

	var recorder metrics.Recorder = metrics.NoopRecorder{}
	if cfg.Metrics.Addr != "" {
		reg := prom.NewRegistry()
		recorder = metrics.NewPrometheusRecorder(reg)
		srv := &http.Server{Addr: cfg.Metrics.Addr, Handler: metrics.HTTPHandler(reg)}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				slog.Warn("daemon: metrics server stopped", "error", err)
			}
		}()
		defer srv.Close()
	}

	bus := eventbus.New()
	if cfg.NATS.URL != "" {
		mctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		mirror, err := eventbus.NewNATSMirror(mctx, cfg.NATS.URL, cfg.NATS.Stream, "fashion-build-hashes")
		cancel()
		if err != nil {
			slog.Warn("daemon: NATS mirror unavailable, continuing without it", "error", err)
		} else {
			bus.WithMirror(mirror)
			defer mirror.Close()
		}
	}

	build := func(ctx context.Context) error {
		_, err := buildrun.Run(ctx, p, buildrun.Options{Force: cfg.Daemon.Force, Tags: cfg.Tags, Verbose: root.Verbose}, bus, recorder)
		return err
	}

	var watchDirs []string
	watchDirs = append(watchDirs, p.Properties.Warehouses...)

	dm, err := daemon.New(cfg.Daemon, watchDirs, build, bus)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	if err := dm.Start(ctx); err != nil {
		return err
	}
	slog.Info("daemon started, waiting for shutdown signal")
	<-ctx.Done()

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer stopCancel()
	return dm.Stop(stopCtx)
}

// SegmentCmd groups segment housekeeping subcommands.
type SegmentCmd struct {
	New  SegmentNewCmd  `cmd:"" help:"Create a new empty segment in the project's local warehouse"`
	List SegmentListCmd `cmd:"" help:"List segments visible to the project"`
}

// SegmentNewCmd creates a new segment.
type SegmentNewCmd struct {
	Name string `arg:"" help:"Segment name"`
}

func (s *SegmentNewCmd) Run(_ *Global, root *CLI) error {
	p, err := openPortfolio(root)
	if err != nil {
		return err
	}
	seg, err := p.Warehouse.NewSegment(s.Name, rwSchemas(p))
	if err != nil {
		return err
	}
	if seg == nil {
		return fmt.Errorf("segment %q already exists", s.Name)
	}
	fmt.Printf("created segment %s at %s\n", s.Name, seg.Dir)
	return nil
}

// SegmentListCmd lists every segment name visible to the project (local
// warehouse, shadowing the fallback chain).
type SegmentListCmd struct{}

func (s *SegmentListCmd) Run(_ *Global, root *CLI) error {
	p, err := openPortfolio(root)
	if err != nil {
		return err
	}
	for _, seg := range p.Warehouse.LoadSegments(rwSchemas(p)) {
		fmt.Printf("%s\t%s\t%s\n", seg.Descriptor.Name, seg.Descriptor.Version, seg.Dir)
	}
	return nil
}

func rwSchemas(p *portfolio.Portfolio) *schema.Repository {
	return p.NewRunway().Schemas
}

func main() {
	cli := &CLI{}
	parser := kong.Parse(cli,
		kong.Name("fashion"),
		kong.Description("fashion: a model-driven code generation engine."),
		kong.Vars{"version": version},
	)

	globals := &Global{Logger: slog.Default()}
	parser.FatalIfErrorf(parser.Run(globals, cli))
}
