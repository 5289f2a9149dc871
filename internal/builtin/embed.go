// Package builtin embeds the fashion.core segment shipped with the fashion
// binary itself — the install warehouse every portfolio falls back to when
// a project warehouse doesn't provide a segment. Extracted to disk on
// first use since warehouse.Warehouse reads segments from a directory.
package builtin

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

//go:embed warehouse
var warehouseFS embed.FS

// ExtractInstallWarehouse writes the embedded install warehouse to dir,
// skipping files that already exist with the same size (cheap idempotence
// check — the embedded warehouse never changes at runtime).
func ExtractInstallWarehouse(dir string) error {
	return fs.WalkDir(warehouseFS, "warehouse", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel("warehouse", path)
		if err != nil {
			return err
		}
		target := filepath.Join(dir, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		data, err := warehouseFS.ReadFile(path)
		if err != nil {
			return fmt.Errorf("builtin: read %s: %w", path, err)
		}
		if info, statErr := os.Stat(target); statErr == nil && info.Size() == int64(len(data)) {
			return nil
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}
		return os.WriteFile(target, data, 0o644)
	})
}
