// Command render draws the demo scene on the CPU device and writes the
// display of selected frames as PNG files.
package main

import (
	"flag"
	"fmt"
	"image/png"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"clustered-deferred/clusters"
	"clustered-deferred/core"
	"clustered-deferred/internal/logger"
	"clustered-deferred/internal/soft"
	"clustered-deferred/renderer"
	"clustered-deferred/scene"
)

func main() {
	configPath := flag.String("config", "", "YAML config file (defaults are used when empty)")
	outDir := flag.String("out", ".", "directory for the PNG files")
	frames := flag.Int("frames", 1, "number of frames to render")
	every := flag.Int("every", 1, "write every Nth frame")
	width := flag.Int("width", 0, "output width (config window width when 0)")
	height := flag.Int("height", 0, "output height (config window height when 0)")
	dt := flag.Float64("dt", 1.0/30, "seconds of light animation per frame")
	workers := flag.Int("workers", 0, "goroutines per fullscreen pass (GOMAXPROCS when 0)")
	debug := flag.Bool("debug", false, "log every render pass")
	flag.Parse()

	if err := logger.Init(*debug); err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	job := renderJob{
		configPath: *configPath,
		outDir:     *outDir,
		frames:     *frames,
		every:      max(*every, 1),
		width:      *width,
		height:     *height,
		dt:         float32(*dt),
		workers:    *workers,
	}
	if err := job.run(logger.Log); err != nil {
		logger.Log.Error("render failed", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
}

type renderJob struct {
	configPath    string
	outDir        string
	frames, every int
	width, height int
	dt            float32
	workers       int
}

func (j renderJob) run(log *zap.Logger) error {
	cfg := core.DefaultConfig()
	if j.configPath != "" {
		var err error
		if cfg, err = core.LoadConfig(j.configPath); err != nil {
			return err
		}
	}
	if j.width > 0 {
		cfg.Window.Width = j.width
	}
	if j.height > 0 {
		cfg.Window.Height = j.height
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(j.outDir, 0o755); err != nil {
		return fmt.Errorf("output dir: %w", err)
	}

	dev := soft.New(cfg.Window.Width, cfg.Window.Height,
		soft.WithLogger(log.Named("soft")), soft.WithWorkers(j.workers))

	opts := renderer.OptionsFromConfig(cfg.Renderer)
	opts.Logger = log.Named("renderer")
	assigner, err := clusters.NewAssigner(dev, opts.Grid, log.Named("clusters"))
	if err != nil {
		return err
	}
	defer assigner.Destroy()
	r, err := renderer.New(dev, assigner, opts)
	if err != nil {
		return err
	}
	defer r.Destroy()

	s := scene.New(cfg.Scene, cfg.Renderer.Lights)
	s.AddDemoGeometry()
	if cfg.Scene.Model != "" {
		if err := s.LoadModel(cfg.Scene.Model, log); err != nil {
			return err
		}
	}
	camera := scene.NewCameraFromConfig(cfg.Camera, cfg.Window.Width, cfg.Window.Height)

	for i := 0; i < j.frames; i++ {
		if i > 0 {
			s.Update(j.dt)
		}
		if err := r.RenderFrame(camera, s); err != nil {
			return fmt.Errorf("frame %d: %w", i, err)
		}
		if i%j.every != 0 && i != j.frames-1 {
			continue
		}
		path := filepath.Join(j.outDir, fmt.Sprintf("frame_%04d.png", i))
		if err := writePNG(path, dev); err != nil {
			return err
		}
		log.Info("frame written", zap.Int("frame", i), zap.String("path", path),
			zap.Int("cluster_overflows", assigner.Overflows()))
	}
	return nil
}

func writePNG(path string, dev *soft.Device) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := png.Encode(f, dev.Image()); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}
