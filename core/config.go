package core

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is returned by Config.Validate.
var ErrInvalidConfig = errors.New("invalid config")

// Config is the on-disk configuration for the demo binaries. Renderer
// constants are fixed once the renderer is built from it.
type Config struct {
	Window   WindowConfig   `yaml:"window"`
	Renderer RendererConfig `yaml:"renderer"`
	Camera   CameraConfig   `yaml:"camera"`
	Scene    SceneConfig    `yaml:"scene"`
}

type RendererConfig struct {
	Lights              int     `yaml:"lights"`
	GBuffers            int     `yaml:"gbuffers"`
	XSlices             int     `yaml:"x_slices"`
	YSlices             int     `yaml:"y_slices"`
	ZSlices             int     `yaml:"z_slices"`
	MaxLightsPerCluster int     `yaml:"max_lights_per_cluster"`
	SpecialNear         float32 `yaml:"special_near"`
	Ambient             float32 `yaml:"ambient"`
	BrightThreshold     float32 `yaml:"bright_threshold"`
	BloomStrength       float32 `yaml:"bloom_strength"`
	FlareStrength       float32 `yaml:"flare_strength"`
	Exposure            float32 `yaml:"exposure"`
}

type CameraConfig struct {
	FOV      float32    `yaml:"fov"` // degrees
	Near     float32    `yaml:"near"`
	Far      float32    `yaml:"far"`
	Position [3]float32 `yaml:"position"`
	Target   [3]float32 `yaml:"target"`
}

type SceneConfig struct {
	Model       string     `yaml:"model"` // optional .gltf, .glb or .obj path
	LightMin    [3]float32 `yaml:"light_min"`
	LightMax    [3]float32 `yaml:"light_max"`
	LightRadius float32    `yaml:"light_radius"`
	LightSpeed  float32    `yaml:"light_speed"` // units per second along -Y
	Seed        int64      `yaml:"seed"`
}

func DefaultConfig() Config {
	return Config{
		Window: DefaultWindowConfig(),
		Renderer: RendererConfig{
			Lights:              100,
			GBuffers:            2,
			XSlices:             15,
			YSlices:             15,
			ZSlices:             15,
			MaxLightsPerCluster: 100,
			SpecialNear:         5.0,
			Ambient:             0.05,
			BrightThreshold:     1.0,
			BloomStrength:       0.8,
			FlareStrength:       0.3,
			Exposure:            1.0,
		},
		Camera: CameraConfig{
			FOV:      75,
			Near:     0.1,
			Far:      100,
			Position: [3]float32{-10, 8, 0},
			Target:   [3]float32{0, 2, 0},
		},
		Scene: SceneConfig{
			LightMin:    [3]float32{-14, 0, -6},
			LightMax:    [3]float32{14, 20, 6},
			LightRadius: 5.0,
			LightSpeed:  1.8,
			Seed:        1,
		},
	}
}

// LoadConfig reads a YAML file on top of DefaultConfig and validates it.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %q: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %q: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	r := c.Renderer
	switch {
	case c.Window.Width <= 0 || c.Window.Height <= 0:
		return fmt.Errorf("%w: window size %dx%d", ErrInvalidConfig, c.Window.Width, c.Window.Height)
	case r.Lights < 0:
		return fmt.Errorf("%w: negative light count %d", ErrInvalidConfig, r.Lights)
	case r.GBuffers < 2:
		return fmt.Errorf("%w: need at least 2 g-buffers, got %d", ErrInvalidConfig, r.GBuffers)
	case r.XSlices <= 0 || r.YSlices <= 0 || r.ZSlices <= 0:
		return fmt.Errorf("%w: cluster slices %dx%dx%d", ErrInvalidConfig, r.XSlices, r.YSlices, r.ZSlices)
	case r.MaxLightsPerCluster <= 0:
		return fmt.Errorf("%w: max lights per cluster %d", ErrInvalidConfig, r.MaxLightsPerCluster)
	case c.Camera.Near <= 0 || c.Camera.Far <= c.Camera.Near:
		return fmt.Errorf("%w: camera planes near=%v far=%v", ErrInvalidConfig, c.Camera.Near, c.Camera.Far)
	case r.SpecialNear <= c.Camera.Near || r.SpecialNear >= c.Camera.Far:
		return fmt.Errorf("%w: special near %v outside (%v, %v)", ErrInvalidConfig, r.SpecialNear, c.Camera.Near, c.Camera.Far)
	case c.Scene.LightRadius <= 0:
		return fmt.Errorf("%w: light radius %v", ErrInvalidConfig, c.Scene.LightRadius)
	}
	return nil
}
