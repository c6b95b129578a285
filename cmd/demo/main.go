package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"clustered-deferred/clusters"
	"clustered-deferred/core"
	"clustered-deferred/internal/logger"
	"clustered-deferred/internal/opengl"
	"clustered-deferred/renderer"
	"clustered-deferred/scene"
)

func main() {
	configPath := flag.String("config", "", "YAML config file (defaults are used when empty)")
	debug := flag.Bool("debug", false, "log every render pass")
	flag.Parse()

	if err := logger.Init(*debug); err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(*configPath); err != nil {
		logger.Log.Error("demo failed", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
}

func loadConfig(path string) (core.Config, error) {
	if path == "" {
		cfg := core.DefaultConfig()
		return cfg, cfg.Validate()
	}
	return core.LoadConfig(path)
}

func run(configPath string) error {
	log := logger.Log
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	window, err := core.NewWindow(cfg.Window)
	if err != nil {
		return err
	}
	defer window.Destroy()

	dev, err := opengl.New(window.GetFramebufferSize, log.Named("gl"))
	if err != nil {
		return err
	}
	defer dev.Destroy()

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

	// ── Scene setup ───────────────────────────────────────────────────────────
	s := scene.New(cfg.Scene, cfg.Renderer.Lights)
	s.AddDemoGeometry()
	if cfg.Scene.Model != "" {
		if err := s.LoadModel(cfg.Scene.Model, log); err != nil {
			log.Warn("model not loaded, continuing with demo geometry",
				zap.String("path", cfg.Scene.Model), zap.Error(err))
		}
	}

	fbW, fbH := window.GetFramebufferSize()
	camera := scene.NewCameraFromConfig(cfg.Camera, fbW, fbH)
	controller := NewCameraController(window, camera, mgl32.Vec3(cfg.Camera.Target))

	log.Info("controls",
		zap.String("orbit", "right mouse drag"),
		zap.String("zoom", "scroll"),
		zap.String("pan", "W/A/S/D, Q/E"),
		zap.String("pause lights", "Space"),
		zap.String("light markers", "M"),
		zap.String("quit", "Escape"))

	var (
		status       StatusLine
		paused       bool
		spaceWasDown bool
		mWasDown     bool
		frameCount   int
		startTime    = time.Now()
		fpsLastTime  = time.Now()
		prevFrame    = time.Now()
	)

	for !window.ShouldClose() {
		now := time.Now()
		deltaTime := float32(now.Sub(prevFrame).Seconds())
		prevFrame = now

		window.PollEvents()
		if window.IsKeyPressed(core.KeyEscape) {
			window.Handle.SetShouldClose(true)
		}
		// Toggles fire once per press.
		spaceDown := window.IsKeyPressed(core.KeySpace)
		if spaceDown && !spaceWasDown {
			paused = !paused
		}
		spaceWasDown = spaceDown
		mDown := window.IsKeyPressed(core.KeyM)
		if mDown && !mWasDown {
			s.ShowLightMarkers = !s.ShowLightMarkers
		}
		mWasDown = mDown

		w, h := window.GetFramebufferSize()
		if w == 0 || h == 0 {
			// Minimised: nothing to draw into.
			continue
		}
		camera.UpdateAspectRatio(float32(w), float32(h))
		controller.Update(window, camera, deltaTime)
		if !paused {
			s.Update(deltaTime)
		}

		if err := r.RenderFrame(camera, s); err != nil {
			return err
		}
		window.SwapBuffers()

		frameCount++
		if elapsed := now.Sub(fpsLastTime); elapsed >= time.Second {
			fps := float64(frameCount) / elapsed.Seconds()
			status.Clear()
			status.Add("%s", cfg.Window.Title)
			status.Add("FPS: %.0f", fps)
			status.Add("lights: %d", len(s.Lights()))
			status.Add("%dx%d", w, h)
			if paused {
				status.Add("paused")
			}
			window.SetTitle(status.String())

			stats := r.Stats()
			log.Info("frame",
				zap.Float64("fps", fps),
				zap.Int("frames", stats.Frames),
				zap.Int("resizes", stats.Resizes),
				zap.Int("cluster_overflows", assigner.Overflows()),
				zap.Duration("uptime", now.Sub(startTime).Round(time.Second)))
			frameCount = 0
			fpsLastTime = now
		}
	}

	log.Info("exiting", zap.Int("frames", r.Stats().Frames))
	return nil
}
