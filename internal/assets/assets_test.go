package assets

import (
	"os"
	"path/filepath"
	"testing"
)

func TestResolvePrefersModelDirEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "classes.json")
	if err := os.WriteFile(path, []byte(`["eczema"]`), 0o644); err != nil {
		t.Fatalf("failed to write asset: %v", err)
	}
	t.Setenv("MODEL_DIR", dir)

	got, err := Resolve("classes.json")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != path {
		t.Fatalf("expected %s, got %s", path, got)
	}
}

func TestResolveMissingAsset(t *testing.T) {
	t.Setenv("MODEL_DIR", t.TempDir())
	if _, err := Resolve("no_such_model.onnx"); err == nil {
		t.Fatal("expected error for missing asset")
	}
}
