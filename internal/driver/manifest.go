package driver

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// writeManifest atomically writes paths.json under root, mapping every
// exported map's on-disk path to its element type name (spec.md §6), using
// the same temp-file-then-rename discipline as state.Export and every
// mapstore map's own export path.
func writeManifest(root string, manifest map[string]string) error {
	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}

	if err := os.MkdirAll(root, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", root, err)
	}
	tmp, err := os.CreateTemp(root, ".tmp-paths-*")
	if err != nil {
		return fmt.Errorf("create temp manifest file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write manifest: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close manifest temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(root, "paths.json")); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("rename manifest into place: %w", err)
	}
	return nil
}
