package core

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfigValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("DefaultConfig: %v", err)
	}
	r := cfg.Renderer
	if r.Lights != 100 || r.XSlices != 15 || r.YSlices != 15 || r.ZSlices != 15 {
		t.Errorf("renderer defaults: got %+v", r)
	}
	if r.MaxLightsPerCluster != 100 || r.SpecialNear != 5 || r.GBuffers != 2 {
		t.Errorf("cluster defaults: got %+v", r)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"zero window", func(c *Config) { c.Window.Width = 0 }},
		{"negative lights", func(c *Config) { c.Renderer.Lights = -1 }},
		{"one g-buffer", func(c *Config) { c.Renderer.GBuffers = 1 }},
		{"no z slices", func(c *Config) { c.Renderer.ZSlices = 0 }},
		{"no cluster capacity", func(c *Config) { c.Renderer.MaxLightsPerCluster = 0 }},
		{"far before near", func(c *Config) { c.Camera.Far = 0.05 }},
		{"special near below near", func(c *Config) { c.Renderer.SpecialNear = 0.05 }},
		{"special near beyond far", func(c *Config) { c.Renderer.SpecialNear = 200 }},
		{"zero light radius", func(c *Config) { c.Scene.LightRadius = 0 }},
	}
	for _, tt := range tests {
		cfg := DefaultConfig()
		tt.modify(&cfg)
		if err := cfg.Validate(); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("%s: expected ErrInvalidConfig, got %v", tt.name, err)
		}
	}

	cfg := DefaultConfig()
	cfg.Renderer.Lights = 0
	if err := cfg.Validate(); err != nil {
		t.Errorf("zero lights: expected valid, got %v", err)
	}
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := `
renderer:
  lights: 250
  z_slices: 24
camera:
  fov: 60
  position: [1, 2, 3]
scene:
  model: models/sponza.gltf
  seed: 42
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Renderer.Lights != 250 || cfg.Renderer.ZSlices != 24 {
		t.Errorf("renderer: expected 250 lights and 24 z slices, got %+v", cfg.Renderer)
	}
	if cfg.Renderer.XSlices != 15 {
		t.Errorf("unset x_slices: expected default 15, got %d", cfg.Renderer.XSlices)
	}
	if cfg.Camera.FOV != 60 || cfg.Camera.Position != [3]float32{1, 2, 3} {
		t.Errorf("camera: got %+v", cfg.Camera)
	}
	if cfg.Camera.Far != 100 {
		t.Errorf("unset far: expected default 100, got %v", cfg.Camera.Far)
	}
	if cfg.Scene.Model != "models/sponza.gltf" || cfg.Scene.Seed != 42 {
		t.Errorf("scene: got %+v", cfg.Scene)
	}
	if cfg.Window.Width != 1280 {
		t.Errorf("window: expected default width 1280, got %d", cfg.Window.Width)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	dir := t.TempDir()

	if _, err := LoadConfig(filepath.Join(dir, "missing.yaml")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing file: expected os.ErrNotExist, got %v", err)
	}

	bad := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(bad, []byte("renderer: [not, a, map"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(bad); err == nil {
		t.Error("malformed yaml: expected error")
	}

	invalid := filepath.Join(dir, "invalid.yaml")
	if err := os.WriteFile(invalid, []byte("renderer:\n  gbuffers: 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(invalid); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("invalid values: expected ErrInvalidConfig, got %v", err)
	}
}

func TestMeshDataTriangles(t *testing.T) {
	indexed := &MeshData{Vertices: make([]Vertex, 4), Indices: []uint32{0, 1, 2, 0, 2, 3}}
	if indexed.TriangleCount() != 2 {
		t.Errorf("indexed TriangleCount: expected 2, got %d", indexed.TriangleCount())
	}
	if a, b, c := indexed.Triangle(1); a != 0 || b != 2 || c != 3 {
		t.Errorf("indexed Triangle(1): expected (0,2,3), got (%d,%d,%d)", a, b, c)
	}
	flat := &MeshData{Vertices: make([]Vertex, 6)}
	if flat.TriangleCount() != 2 {
		t.Errorf("flat TriangleCount: expected 2, got %d", flat.TriangleCount())
	}
	if a, b, c := flat.Triangle(1); a != 3 || b != 4 || c != 5 {
		t.Errorf("flat Triangle(1): expected (3,4,5), got (%d,%d,%d)", a, b, c)
	}
}
