// Package portfolio represents a fashion-enhanced user project: the
// ./fashion directory created by `fashion init`, its warehouse chain, and
// its model store. Grounded on original_source/fashion/portfolio.py.
package portfolio

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fashionforge/fashion/internal/kinds"
	"github.com/fashionforge/fashion/internal/modelstore"
	"github.com/fashionforge/fashion/internal/runway"
	"github.com/fashionforge/fashion/internal/schema"
	"github.com/fashionforge/fashion/internal/warehouse"
)

// Properties is the content of portfolio.json.
type Properties struct {
	Name           string   `json:"name"`
	DefaultSegment string   `json:"defaultSegment"`
	Warehouses     []string `json:"warehouses"`
}

// Portfolio is a loaded (or not-yet-created) fashion project.
type Portfolio struct {
	ProjectPath  string
	FashionPath  string
	MirrorPath   string
	PortfolioPath string
	ModelDBPath  string

	// InstallWarehousePath is the bundled fallback warehouse shipped with
	// the fashion binary itself, consulted after every project warehouse
	// in Warehouses.
	InstallWarehousePath string

	Properties Properties
	Store      *modelstore.Store
	Warehouse  *warehouse.Warehouse
}

// New maps a Portfolio onto projectDir, whether or not it exists yet.
func New(projectDir, installWarehousePath string) (*Portfolio, error) {
	abs, err := filepath.Abs(projectDir)
	if err != nil {
		return nil, fmt.Errorf("portfolio: resolve %s: %w", projectDir, err)
	}
	fashionPath := filepath.Join(abs, "fashion")
	return &Portfolio{
		ProjectPath:          abs,
		FashionPath:          fashionPath,
		MirrorPath:           filepath.Join(fashionPath, "mirror"),
		PortfolioPath:        filepath.Join(fashionPath, "portfolio.json"),
		ModelDBPath:          filepath.Join(fashionPath, "database.sqlite"),
		InstallWarehousePath: installWarehousePath,
	}, nil
}

// Exists reports whether this project has been initialised.
func (p *Portfolio) Exists() bool {
	_, err := os.Stat(p.FashionPath)
	return err == nil
}

func (p *Portfolio) defaultProperties() Properties {
	return Properties{
		Name:           "fashion",
		DefaultSegment: "local",
		Warehouses:     []string{filepath.Join(p.FashionPath, "warehouse")},
	}
}

// Create initialises a brand-new project: directory layout, model store,
// warehouse chain, and a fresh "local" segment.
func (p *Portfolio) Create() error {
	if p.Exists() {
		return nil
	}
	if err := os.MkdirAll(filepath.Join(p.FashionPath, "warehouse"), 0o755); err != nil {
		return fmt.Errorf("portfolio: mkdir: %w", err)
	}
	p.Properties = p.defaultProperties()

	store, err := modelstore.Open(p.ModelDBPath)
	if err != nil {
		return fmt.Errorf("portfolio: open model store: %w", err)
	}
	p.Store = store

	p.LoadWarehouses()
	if _, err := p.Warehouse.NewSegment("local", schema.NewRepository()); err != nil {
		return fmt.Errorf("portfolio: create local segment: %w", err)
	}
	return p.Save()
}

// Save writes portfolio.json.
func (p *Portfolio) Save() error {
	raw, err := json.MarshalIndent(p.Properties, "", "  ")
	if err != nil {
		return fmt.Errorf("portfolio: marshal: %w", err)
	}
	if err := os.WriteFile(p.PortfolioPath, raw, 0o644); err != nil {
		return fmt.Errorf("portfolio: write %s: %w", p.PortfolioPath, err)
	}
	return nil
}

// Load reads portfolio.json and opens the model store, then loads the
// warehouse chain.
func (p *Portfolio) Load() error {
	raw, err := os.ReadFile(p.PortfolioPath)
	if err != nil {
		return fmt.Errorf("portfolio: read %s: %w", p.PortfolioPath, err)
	}
	if err := json.Unmarshal(raw, &p.Properties); err != nil {
		return fmt.Errorf("portfolio: parse %s: %w", p.PortfolioPath, err)
	}
	store, err := modelstore.Open(p.ModelDBPath)
	if err != nil {
		return fmt.Errorf("portfolio: open model store: %w", err)
	}
	p.Store = store
	p.LoadWarehouses()
	return nil
}

// LoadWarehouses builds the warehouse fallback chain: each project
// warehouse entry, then the bundled install warehouse last.
func (p *Portfolio) LoadWarehouses() {
	dirs := append(append([]string{}, p.Properties.Warehouses...), p.InstallWarehousePath)
	var chain *warehouse.Warehouse
	for i := len(dirs) - 1; i >= 0; i-- {
		chain = warehouse.New(dirs[i], chain)
	}
	p.Warehouse = chain
}

// DefaultSegmentName returns the configured default segment name.
func (p *Portfolio) DefaultSegmentName() string {
	return p.Properties.DefaultSegment
}

// SetDefaultSegment updates the configured default segment name.
func (p *Portfolio) SetDefaultSegment(name string) {
	p.Properties.DefaultSegment = name
}

// NewRunway constructs a Runway bound to this portfolio's model store and
// warehouse.
func (p *Portfolio) NewRunway() *runway.Runway {
	return runway.New(p.Store, p.Warehouse)
}

// MirrorConfigKind documents which reserved kind InitMirror populates, kept
// here for readers jumping from portfolio setup to the generator service.
const MirrorConfigKind = kinds.Mirror
