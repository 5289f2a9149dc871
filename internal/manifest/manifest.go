// Package manifest records one build's inputs, plan, and outputs so a
// caller can tell whether a later build with identical segments, plan, and
// modules would produce the same result. Adapted from the teacher's
// internal/manifest/manifest.go (BuildManifest/Hash/ToJSON/FromJSON shape),
// renamed from docbuilder's repo/theme/plugin domain to fashion's
// segment/plan/module domain.
package manifest

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"time"
)

// BuildManifest is a complete record of one build.
type BuildManifest struct {
	ID         string    `json:"id"`
	ProjectPath string   `json:"project_path"`
	Timestamp  time.Time `json:"timestamp"`
	Inputs     Inputs    `json:"inputs"`
	Plan       Plan      `json:"plan"`
	Modules    Modules   `json:"modules"`
	Outputs    Outputs   `json:"outputs"`
	Status     string    `json:"status"`
	Duration   int64     `json:"duration_ms"`
}

// Inputs captures the segments that composed the warehouse for this build.
type Inputs struct {
	Segments []SegmentInput `json:"segments"`
}

// SegmentInput identifies one segment contributing to the build, with
// optional git provenance (internal/segment.GitProvenance).
type SegmentInput struct {
	Name       string `json:"name"`
	Version    string `json:"version"`
	Dir        string `json:"dir"`
	CommitHash string `json:"commit_hash,omitempty"`
}

// Plan captures the computed execution order and whether it was valid (no
// dependency cycle).
type Plan struct {
	Order      []string `json:"order"`
	Valid      bool     `json:"valid"`
	LeafInputs []string `json:"leaf_inputs"`
}

// ModuleVersion records one transform module or object exercised in the
// build.
type ModuleVersion struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Modules captures every module and object loaded for the build.
type Modules struct {
	Loaded  []string        `json:"loaded"`
	Objects []ModuleVersion `json:"objects"`
}

// Outputs captures what the build actually wrote.
type Outputs struct {
	FilesWritten  int               `json:"files_written"`
	FilesSkipped  int               `json:"files_skipped"`
	ArtifactHashes map[string]string `json:"artifact_hashes,omitempty"`
}

// ToJSON serializes the manifest.
func (m *BuildManifest) ToJSON() ([]byte, error) {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("manifest: marshal: %w", err)
	}
	return data, nil
}

// FromJSON deserializes a manifest.
func FromJSON(data []byte) (*BuildManifest, error) {
	var m BuildManifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("manifest: unmarshal: %w", err)
	}
	return &m, nil
}

// Hash computes a deterministic hash over the manifest's inputs, plan, and
// modules, letting a caller detect whether an identical build has run
// before.
func (m *BuildManifest) Hash() (string, error) {
	hashInput := struct {
		Segments []SegmentInput `json:"segments"`
		Order    []string       `json:"order"`
		Objects  []ModuleVersion `json:"objects"`
	}{
		Segments: m.Inputs.Segments,
		Order:    m.Plan.Order,
		Objects:  m.Modules.Objects,
	}
	data, err := json.Marshal(hashInput)
	if err != nil {
		return "", fmt.Errorf("manifest: marshal for hash: %w", err)
	}
	hash := sha256.Sum256(data)
	return fmt.Sprintf("%x", hash), nil
}
