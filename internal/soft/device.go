// Package soft is a CPU implementation of renderer.Device. It runs every
// program of the pipeline in Go with float render targets, so whole frames
// can be rendered and inspected without a GPU.
package soft

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"clustered-deferred/core"
	"clustered-deferred/renderer"
)

var (
	// ErrUnknownResource is returned for texture or framebuffer ids the device
	// never created or already deleted.
	ErrUnknownResource = errors.New("unknown resource")
	// ErrFeedbackLoop is returned when a pass samples a texture it renders to.
	ErrFeedbackLoop = errors.New("pass samples its own target")
	// ErrProgram is returned when program constants cannot be specialised.
	ErrProgram = errors.New("program rejected")
)

type framebuffer struct {
	label  string
	depth  renderer.TextureID
	colors []renderer.TextureID
}

type program struct {
	kind     renderer.ProgramKind
	consts   renderer.ProgramConstants
	samplers renderer.SlotTable
	uniforms map[string]bool
}

// Device renders on the CPU. Like a GL context it must be used from one
// goroutine; fullscreen passes fan out over rows internally and return
// only once complete.
type Device struct {
	log     *zap.Logger
	workers int

	next         uint32
	textures     map[renderer.TextureID]*texture
	framebuffers map[renderer.FramebufferID]*framebuffer
	programs     map[renderer.ProgramID]*program
	uploads      map[*core.Texture]*texture

	display      *texture
	displayDepth *texture
}

// Option configures a Device.
type Option func(*Device)

// WithLogger sets the device logger.
func WithLogger(log *zap.Logger) Option {
	return func(d *Device) { d.log = log }
}

// WithWorkers bounds the goroutines used by fullscreen passes.
func WithWorkers(n int) Option {
	return func(d *Device) {
		if n > 0 {
			d.workers = n
		}
	}
}

// New creates a device whose display is width×height.
func New(width, height int, opts ...Option) *Device {
	d := &Device{
		log:          zap.NewNop(),
		workers:      runtime.GOMAXPROCS(0),
		textures:     make(map[renderer.TextureID]*texture),
		framebuffers: make(map[renderer.FramebufferID]*framebuffer),
		programs:     make(map[renderer.ProgramID]*program),
		uploads:      make(map[*core.Texture]*texture),
	}
	for _, o := range opts {
		o(d)
	}
	d.SetOutputSize(width, height)
	return d
}

// SetOutputSize resizes the display, as a window resize would. The display
// contents are discarded.
func (d *Device) SetOutputSize(width, height int) {
	d.display = newTexture(renderer.TextureDesc{Label: "display", Width: width, Height: height, Format: renderer.FormatRGBA32F})
	d.displayDepth = newTexture(renderer.TextureDesc{Label: "display-depth", Width: width, Height: height, Format: renderer.FormatDepth32F})
}

func (d *Device) OutputSize() (int, int) { return d.display.width(), d.display.height() }

func (d *Device) id() uint32 {
	d.next++
	return d.next
}

func (d *Device) CreateTexture(desc renderer.TextureDesc) (renderer.TextureID, error) {
	if desc.Width <= 0 || desc.Height <= 0 {
		return 0, fmt.Errorf("texture %q %dx%d: %w", desc.Label, desc.Width, desc.Height, renderer.ErrInvalidSize)
	}
	id := renderer.TextureID(d.id())
	d.textures[id] = newTexture(desc)
	return id, nil
}

func (d *Device) WriteTexture(id renderer.TextureID, data []float32) error {
	t, ok := d.textures[id]
	if !ok {
		return fmt.Errorf("write texture %d: %w", id, ErrUnknownResource)
	}
	if len(data) != len(t.data) {
		return fmt.Errorf("write texture %q: %d floats for %dx%d: %w",
			t.desc.Label, len(data), t.width(), t.height(), renderer.ErrInvalidSize)
	}
	copy(t.data, data)
	return nil
}

func (d *Device) DeleteTexture(id renderer.TextureID) { delete(d.textures, id) }

func (d *Device) CreateFramebuffer(label string, depth renderer.TextureID, colors []renderer.TextureID) (renderer.FramebufferID, error) {
	if len(colors) == 0 && depth == 0 {
		return 0, fmt.Errorf("framebuffer %s: no attachments: %w", label, renderer.ErrIncompleteFramebuffer)
	}
	w, h := -1, -1
	check := func(id renderer.TextureID, wantDepth bool) error {
		t, ok := d.textures[id]
		if !ok {
			return fmt.Errorf("framebuffer %s: attachment %d: %w", label, id, renderer.ErrIncompleteFramebuffer)
		}
		if t.desc.Format.IsDepth() != wantDepth {
			return fmt.Errorf("framebuffer %s: %s attachment %q: %w", label, t.desc.Format, t.desc.Label, renderer.ErrIncompleteFramebuffer)
		}
		if w < 0 {
			w, h = t.width(), t.height()
		} else if t.width() != w || t.height() != h {
			return fmt.Errorf("framebuffer %s: mismatched attachment sizes: %w", label, renderer.ErrIncompleteFramebuffer)
		}
		return nil
	}
	if depth != 0 {
		if err := check(depth, true); err != nil {
			return 0, err
		}
	}
	for _, c := range colors {
		if err := check(c, false); err != nil {
			return 0, err
		}
	}
	id := renderer.FramebufferID(d.id())
	d.framebuffers[id] = &framebuffer{label: label, depth: depth, colors: append([]renderer.TextureID(nil), colors...)}
	return id, nil
}

func (d *Device) DeleteFramebuffer(id renderer.FramebufferID) { delete(d.framebuffers, id) }

func (d *Device) CreateProgram(kind renderer.ProgramKind, consts renderer.ProgramConstants) (renderer.ProgramID, error) {
	declared, ok := renderer.ProgramUniforms[kind]
	if !ok {
		return 0, fmt.Errorf("%s: %w", kind, renderer.ErrUnknownProgram)
	}
	if consts.NumGBuffers < 2 {
		return 0, fmt.Errorf("%s: %d g-buffers, need 2: %w", kind, consts.NumGBuffers, ErrProgram)
	}
	if kind == renderer.ProgramClusteredShading {
		if err := consts.Grid.Validate(); err != nil {
			return 0, fmt.Errorf("%s: %w: %w", kind, ErrProgram, err)
		}
	}
	p := &program{
		kind:     kind,
		consts:   consts,
		samplers: renderer.DefaultBindings(consts.NumGBuffers)[kind],
		uniforms: make(map[string]bool, len(declared)),
	}
	for _, u := range declared {
		p.uniforms[u] = true
	}
	id := renderer.ProgramID(d.id())
	d.programs[id] = p
	d.log.Debug("program created", zap.Stringer("kind", kind), zap.Uint32("id", uint32(id)))
	return id, nil
}

func (d *Device) DeleteProgram(id renderer.ProgramID) { delete(d.programs, id) }

// target is a resolved framebuffer.
type target struct {
	colors []*texture
	depth  *texture
	ids    map[renderer.TextureID]bool
}

func (t *target) width() int {
	if len(t.colors) > 0 {
		return t.colors[0].width()
	}
	return t.depth.width()
}

func (t *target) height() int {
	if len(t.colors) > 0 {
		return t.colors[0].height()
	}
	return t.depth.height()
}

func (d *Device) resolve(id renderer.FramebufferID) (*target, error) {
	if id == renderer.DisplayFramebuffer {
		return &target{colors: []*texture{d.display}, depth: d.displayDepth}, nil
	}
	fb, ok := d.framebuffers[id]
	if !ok {
		return nil, fmt.Errorf("framebuffer %d: %w", id, ErrUnknownResource)
	}
	t := &target{ids: make(map[renderer.TextureID]bool)}
	if fb.depth != 0 {
		dt, ok := d.textures[fb.depth]
		if !ok {
			return nil, fmt.Errorf("framebuffer %s depth: %w", fb.label, ErrUnknownResource)
		}
		t.depth = dt
		t.ids[fb.depth] = true
	}
	for _, c := range fb.colors {
		ct, ok := d.textures[c]
		if !ok {
			return nil, fmt.Errorf("framebuffer %s color: %w", fb.label, ErrUnknownResource)
		}
		t.colors = append(t.colors, ct)
		t.ids[c] = true
	}
	return t, nil
}

// Execute runs one pass: clear, scene draws, then the fullscreen program.
func (d *Device) Execute(p *renderer.Pass) error {
	prog, ok := d.programs[p.Program]
	if !ok {
		return fmt.Errorf("program %d: %w", p.Program, renderer.ErrUnknownProgram)
	}
	if prog.kind != p.Kind {
		return fmt.Errorf("program %d is %s, pass wants %s: %w", p.Program, prog.kind, p.Kind, renderer.ErrUnknownProgram)
	}
	for _, name := range p.Uniforms.Names() {
		if !prog.uniforms[name] {
			return fmt.Errorf("%s: uniform %q: %w", prog.kind, name, renderer.ErrUnknownUniform)
		}
	}
	tgt, err := d.resolve(p.Target)
	if err != nil {
		return err
	}

	inputs := make(map[string]*texture, len(p.Textures))
	for _, b := range p.Textures {
		slot, ok := prog.samplers[b.Sampler]
		if !ok {
			return fmt.Errorf("%s: sampler %q: %w", prog.kind, b.Sampler, renderer.ErrUnknownUniform)
		}
		if slot != b.Slot {
			return fmt.Errorf("%s: sampler %q bound to slot %d, declared %d: %w",
				prog.kind, b.Sampler, b.Slot, slot, renderer.ErrSlotCollision)
		}
		t, ok := d.textures[b.Texture]
		if !ok {
			return fmt.Errorf("%s: sampler %q texture %d: %w", prog.kind, b.Sampler, b.Texture, ErrUnknownResource)
		}
		if tgt.ids[b.Texture] {
			return fmt.Errorf("%s: sampler %q: %w", prog.kind, b.Sampler, ErrFeedbackLoop)
		}
		inputs[b.Sampler] = t
	}

	if p.Clear&renderer.ClearColor != 0 {
		for _, c := range tgt.colors {
			c.fill(mgl32.Vec4{})
		}
	}
	if p.Clear&renderer.ClearDepth != 0 && tgt.depth != nil {
		tgt.depth.fill(mgl32.Vec4{1, 1, 1, 1})
	}

	vp := clipViewport(p.Viewport, tgt.width(), tgt.height())
	dl := &drawList{
		dev:    d,
		pass:   p,
		prog:   prog,
		target: tgt,
		vp:     vp,
		inputs: inputs,
		colors: make(map[string]core.Color),
		floats: make(map[string]float32),
	}
	if p.Draw != nil {
		p.Draw(dl)
		if dl.err != nil {
			return dl.err
		}
	}
	if p.Fullscreen {
		frag, err := d.fragmentProgram(prog, p, dl)
		if err != nil {
			return err
		}
		return d.fullscreen(tgt, vp, p.Additive, frag)
	}
	return nil
}

// clipViewport intersects vp with the target; an empty viewport means the
// whole target.
func clipViewport(vp renderer.Viewport, w, h int) renderer.Viewport {
	if vp.Width <= 0 || vp.Height <= 0 {
		return renderer.Viewport{Width: w, Height: h}
	}
	x0, y0 := clampInt(vp.X, 0, w), clampInt(vp.Y, 0, h)
	x1, y1 := clampInt(vp.X+vp.Width, 0, w), clampInt(vp.Y+vp.Height, 0, h)
	return renderer.Viewport{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}
}

// upload returns the float copy of a scene texture, converting it once.
func (d *Device) upload(src *core.Texture) *texture {
	if t, ok := d.uploads[src]; ok {
		return t
	}
	t := newSceneTexture(src)
	d.uploads[src] = t
	return t
}

// ReadTexture returns a copy of a texture's texels and its size.
func (d *Device) ReadTexture(id renderer.TextureID) ([]float32, int, int, error) {
	t, ok := d.textures[id]
	if !ok {
		return nil, 0, 0, fmt.Errorf("read texture %d: %w", id, ErrUnknownResource)
	}
	return append([]float32(nil), t.data...), t.width(), t.height(), nil
}

// Texel reads one texel of a texture. Row 0 is the bottom row.
func (d *Device) Texel(id renderer.TextureID, x, y int) (mgl32.Vec4, error) {
	t, ok := d.textures[id]
	if !ok {
		return mgl32.Vec4{}, fmt.Errorf("texel %d: %w", id, ErrUnknownResource)
	}
	return t.fetch(x, y), nil
}

// DisplayPixel reads the display. Row 0 is the bottom row.
func (d *Device) DisplayPixel(x, y int) mgl32.Vec4 { return d.display.fetch(x, y) }

// LiveTextures is the number of textures created and not yet deleted.
func (d *Device) LiveTextures() int { return len(d.textures) }

// LiveFramebuffers is the number of framebuffers created and not yet deleted.
func (d *Device) LiveFramebuffers() int { return len(d.framebuffers) }
