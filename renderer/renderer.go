package renderer

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"clustered-deferred/core"
)

// Camera supplies the transforms the frame is rendered from.
type Camera interface {
	// WorldMatrix places the camera in the world; the view matrix is its inverse.
	WorldMatrix() mgl32.Mat4
	ProjectionMatrix() mgl32.Mat4
	Near() float32
	Far() float32
}

// Scene supplies lights and submits its own geometry.
type Scene interface {
	// Lights returns the scene's lights. The length never changes.
	Lights() []core.Light
	// Draw submits geometry for the geometry pass.
	Draw(dl core.DrawList)
	// DrawEffect binds lens textures and submits flare-source geometry for
	// the composite pass.
	DrawEffect(dl core.DrawList)
}

// Options are the construction-time constants of a Renderer.
type Options struct {
	NumLights       int
	NumGBuffers     int
	Grid            ClusterGrid
	Ambient         float32
	BrightThreshold float32
	BloomStrength   float32
	FlareStrength   float32
	Exposure        float32
	Logger          *zap.Logger
}

// OptionsFromConfig maps the renderer section of a config file.
func OptionsFromConfig(cfg core.RendererConfig) Options {
	return Options{
		NumLights:   cfg.Lights,
		NumGBuffers: cfg.GBuffers,
		Grid: ClusterGrid{
			X:                   cfg.XSlices,
			Y:                   cfg.YSlices,
			Z:                   cfg.ZSlices,
			MaxLightsPerCluster: cfg.MaxLightsPerCluster,
			SpecialNear:         cfg.SpecialNear,
		},
		Ambient:         cfg.Ambient,
		BrightThreshold: cfg.BrightThreshold,
		BloomStrength:   cfg.BloomStrength,
		FlareStrength:   cfg.FlareStrength,
		Exposure:        cfg.Exposure,
	}
}

// Constants returns the program specialization constants for these options.
func (o Options) Constants() ProgramConstants {
	return ProgramConstants{
		NumLights:       o.NumLights,
		NumGBuffers:     o.NumGBuffers,
		Grid:            o.Grid,
		Ambient:         o.Ambient,
		BrightThreshold: o.BrightThreshold,
		BloomStrength:   o.BloomStrength,
		FlareStrength:   o.FlareStrength,
		Exposure:        o.Exposure,
	}
}

// Stats describes the work done so far.
type Stats struct {
	Frames     int
	Resizes    int
	LastPasses []string
}

// Renderer is the frame orchestrator of the clustered deferred pipeline.
type Renderer struct {
	dev      Device
	clusters ClusterProvider
	opts     Options
	log      *zap.Logger

	bindings BindingTables
	programs map[ProgramKind]ProgramID
	targets  *TargetSet
	lights   *LightBuffer

	matrices CameraMatrices
	viewport Viewport
	width    int
	height   int

	stats Stats
}

var allPrograms = []ProgramKind{
	ProgramGeometry,
	ProgramClusteredShading,
	ProgramExtractHDR,
	ProgramBlurHorizontal,
	ProgramBlurVertical,
	ProgramComposite,
}

// New builds programs, targets sized to the device output and the light
// buffer. Every error here is a configuration or allocation failure.
func New(dev Device, clusters ClusterProvider, opts Options) (*Renderer, error) {
	if opts.NumLights < 0 {
		return nil, fmt.Errorf("renderer: %w: %d lights", ErrLightCount, opts.NumLights)
	}
	if err := opts.Grid.Validate(); err != nil {
		return nil, fmt.Errorf("renderer: %w", err)
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	r := &Renderer{
		dev:      dev,
		clusters: clusters,
		opts:     opts,
		log:      log,
		bindings: DefaultBindings(opts.NumGBuffers),
		programs: make(map[ProgramKind]ProgramID, len(allPrograms)),
	}
	if err := r.bindings.Validate(); err != nil {
		return nil, fmt.Errorf("renderer: %w", err)
	}

	consts := opts.Constants()
	for _, kind := range allPrograms {
		id, err := dev.CreateProgram(kind, consts)
		if err != nil {
			r.Destroy()
			return nil, fmt.Errorf("renderer: %s program: %w", kind, err)
		}
		r.programs[kind] = id
	}

	r.width, r.height = dev.OutputSize()
	targets, err := NewTargetSet(dev, r.width, r.height, opts.NumGBuffers)
	if err != nil {
		r.Destroy()
		return nil, fmt.Errorf("renderer: %w", err)
	}
	r.targets = targets

	lights, err := NewLightBuffer(dev, opts.NumLights)
	if err != nil {
		r.Destroy()
		return nil, fmt.Errorf("renderer: %w", err)
	}
	r.lights = lights

	log.Info("renderer initialized",
		zap.Int("width", r.width),
		zap.Int("height", r.height),
		zap.Int("lights", opts.NumLights),
		zap.Int("gbuffers", opts.NumGBuffers),
		zap.Int("clusters", opts.Grid.Count()),
	)
	return r, nil
}

// RenderFrame renders one frame to the display. Passes run in a fixed order;
// an error from any of them is a programming or configuration error.
func (r *Renderer) RenderFrame(cam Camera, scene Scene) error {
	if err := r.syncOutputSize(); err != nil {
		return err
	}

	r.matrices = ComputeCameraMatrices(cam)
	r.viewport = Viewport{Width: r.width, Height: r.height}
	r.stats.LastPasses = r.stats.LastPasses[:0]

	if err := r.execute(r.GeometryPass(scene)); err != nil {
		return err
	}
	if err := r.lights.Update(scene.Lights()); err != nil {
		return fmt.Errorf("light buffer: %w", err)
	}
	if err := r.clusters.Refresh(cam, r.matrices.View, scene); err != nil {
		return fmt.Errorf("cluster refresh: %w", err)
	}
	for _, p := range []*Pass{
		r.ShadingPass(),
		r.ExtractPass(),
		r.BlurPass(true),
		r.BlurPass(false),
		r.CompositePass(scene),
	} {
		if err := r.execute(p); err != nil {
			return err
		}
	}
	r.stats.Frames++
	return nil
}

// syncOutputSize resizes every target before any pass when the display size
// changed since the last frame.
func (r *Renderer) syncOutputSize() error {
	w, h := r.dev.OutputSize()
	if w == r.width && h == r.height {
		return nil
	}
	r.log.Info("resizing render targets",
		zap.Int("from_width", r.width), zap.Int("from_height", r.height),
		zap.Int("to_width", w), zap.Int("to_height", h))
	if err := r.targets.Resize(w, h); err != nil {
		return fmt.Errorf("resize %dx%d: %w", w, h, err)
	}
	r.width, r.height = w, h
	r.stats.Resizes++
	return nil
}

// Execute runs a pass built by one of the pass methods.
func (r *Renderer) Execute(p *Pass) error { return r.execute(p) }

func (r *Renderer) execute(p *Pass) error {
	r.log.Debug("pass",
		zap.String("name", p.Name),
		zap.Uint32("target", uint32(p.Target)),
		zap.Int("textures", len(p.Textures)))
	if err := r.dev.Execute(p); err != nil {
		return fmt.Errorf("%s pass: %w", p.Name, err)
	}
	r.stats.LastPasses = append(r.stats.LastPasses, p.Name)
	return nil
}

// Matrices returns the camera matrix set of the last frame.
func (r *Renderer) Matrices() CameraMatrices { return r.matrices }

func (r *Renderer) Targets() *TargetSet { return r.targets }

func (r *Renderer) LightBuffer() *LightBuffer { return r.lights }

func (r *Renderer) Bindings() BindingTables { return r.bindings }

func (r *Renderer) Options() Options { return r.opts }

// Size is the output size the targets are allocated for.
func (r *Renderer) Size() (int, int) { return r.width, r.height }

func (r *Renderer) Stats() Stats {
	s := r.stats
	s.LastPasses = append([]string(nil), r.stats.LastPasses...)
	return s
}

// Destroy releases every resource owned by the renderer. The cluster
// provider belongs to the caller.
func (r *Renderer) Destroy() {
	if r.lights != nil {
		r.lights.Destroy()
		r.lights = nil
	}
	if r.targets != nil {
		r.targets.Destroy()
		r.targets = nil
	}
	for kind, id := range r.programs {
		r.dev.DeleteProgram(id)
		delete(r.programs, kind)
	}
}
