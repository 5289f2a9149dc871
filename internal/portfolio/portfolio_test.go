package portfolio

import (
	"path/filepath"
	"testing"
)

func TestCreateThenLoadRoundTrip(t *testing.T) {
	projectDir := t.TempDir()
	installDir := t.TempDir()

	p, err := New(projectDir, installDir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if p.Exists() {
		t.Fatalf("expected fresh project directory to report not existing")
	}
	if err := p.Create(); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !p.Exists() {
		t.Fatalf("expected project to exist after Create")
	}
	p.Store.Close()

	loaded, err := New(projectDir, installDir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := loaded.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	defer loaded.Store.Close()

	if loaded.Properties.Name != "fashion" || loaded.Properties.DefaultSegment != "local" {
		t.Fatalf("unexpected loaded properties: %+v", loaded.Properties)
	}
	if loaded.Warehouse == nil {
		t.Fatalf("expected warehouse chain to be built on load")
	}
}

func TestCreateIsIdempotent(t *testing.T) {
	projectDir := t.TempDir()
	installDir := t.TempDir()
	p, _ := New(projectDir, installDir)
	if err := p.Create(); err != nil {
		t.Fatalf("Create: %v", err)
	}
	p.Store.Close()

	p2, _ := New(projectDir, installDir)
	if err := p2.Create(); err != nil {
		t.Fatalf("second Create should be a no-op, got error: %v", err)
	}
}

func TestLoadWarehousesAppendsInstallWarehouseLast(t *testing.T) {
	projectDir := t.TempDir()
	installDir := t.TempDir()
	p, _ := New(projectDir, installDir)
	p.Properties = Properties{
		Name:           "fashion",
		DefaultSegment: "local",
		Warehouses:     []string{filepath.Join(p.FashionPath, "warehouse")},
	}
	p.LoadWarehouses()

	if p.Warehouse == nil {
		t.Fatalf("expected a warehouse chain")
	}
	if p.Warehouse.Dir != filepath.Join(p.FashionPath, "warehouse") {
		t.Fatalf("expected local warehouse first, got %s", p.Warehouse.Dir)
	}
	if p.Warehouse.Fallback == nil || p.Warehouse.Fallback.Dir != installDir {
		t.Fatalf("expected install warehouse appended as the fallback")
	}
}

func TestSetDefaultSegment(t *testing.T) {
	p, _ := New(t.TempDir(), t.TempDir())
	p.SetDefaultSegment("widgets")
	if p.DefaultSegmentName() != "widgets" {
		t.Fatalf("expected default segment widgets, got %s", p.DefaultSegmentName())
	}
}
