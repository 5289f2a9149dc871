package manifest

import (
	"testing"
	"time"
)

func sampleManifest() *BuildManifest {
	return &BuildManifest{
		ID:          "build-1",
		ProjectPath: "/tmp/project",
		Timestamp:   time.Unix(0, 0).UTC(),
		Inputs: Inputs{
			Segments: []SegmentInput{
				{Name: "local", Version: "1.0.0", Dir: "/tmp/project/fashion/warehouse/local"},
				{Name: "fashion.core", Version: "1.0.0", Dir: "/opt/fashion/warehouse/fashion.core"},
			},
		},
		Plan: Plan{
			Order:      []string{"fashion.core.generate"},
			Valid:      true,
			LeafInputs: []string{"fashion.prime.portfolio"},
		},
		Modules: Modules{
			Loaded:  []string{"fashion.core.generate.jinja2"},
			Objects: []ModuleVersion{{Name: "fashion.core.generate", Version: "1.0.0"}},
		},
		Outputs: Outputs{FilesWritten: 3, FilesSkipped: 1},
		Status:  "ok",
	}
}

func TestManifestRoundTrip(t *testing.T) {
	m := sampleManifest()
	raw, err := m.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}
	decoded, err := FromJSON(raw)
	if err != nil {
		t.Fatalf("FromJSON: %v", err)
	}
	if decoded.ID != m.ID || len(decoded.Inputs.Segments) != 2 {
		t.Fatalf("round trip mismatch: %+v", decoded)
	}
}

func TestManifestHashStable(t *testing.T) {
	a := sampleManifest()
	b := sampleManifest()
	b.ID = "build-2" // ID must not affect the hash
	b.Timestamp = time.Now()

	ha, err := a.Hash()
	if err != nil {
		t.Fatalf("hash a: %v", err)
	}
	hb, err := b.Hash()
	if err != nil {
		t.Fatalf("hash b: %v", err)
	}
	if ha != hb {
		t.Fatalf("expected identical hashes for same inputs/plan/modules, got %s vs %s", ha, hb)
	}
}

func TestManifestHashChangesWithPlan(t *testing.T) {
	a := sampleManifest()
	b := sampleManifest()
	b.Plan.Order = append(b.Plan.Order, "fashion.core.extra")

	ha, _ := a.Hash()
	hb, _ := b.Hash()
	if ha == hb {
		t.Fatalf("expected different hashes for different plans")
	}
}
