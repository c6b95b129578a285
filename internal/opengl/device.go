// Package opengl implements renderer.Device on an OpenGL 4.1 core context.
package opengl

import (
	"errors"
	"fmt"
	"strings"

	gl "github.com/go-gl/gl/v4.1-core/gl"
	"go.uber.org/zap"

	"clustered-deferred/core"
	"clustered-deferred/renderer"
)

var (
	// ErrUnknownResource is returned for ids the device never created.
	ErrUnknownResource = errors.New("unknown resource")
	// ErrFeedbackLoop is returned when a pass samples a texture it renders to.
	ErrFeedbackLoop = errors.New("pass samples its own target")
	// ErrGL wraps a glGetError code raised while a pass ran.
	ErrGL = errors.New("gl error")
)

type glTexture struct {
	id   uint32
	desc renderer.TextureDesc
}

type glFramebuffer struct {
	id       uint32
	label    string
	attached map[renderer.TextureID]bool
}

type glProgram struct {
	id       uint32
	kind     renderer.ProgramKind
	samplers renderer.SlotTable
	// locations holds every declared uniform and sampler. A location of -1
	// means the compiler dropped an unused input.
	locations map[string]int32
	modelLoc  int32
	overlay   int32
}

// Device issues renderer passes to OpenGL. It must be created and used on
// the goroutine that owns the current context.
type Device struct {
	log  *zap.Logger
	size func() (int, int)

	textures     map[renderer.TextureID]*glTexture
	framebuffers map[renderer.FramebufferID]*glFramebuffer
	programs     map[renderer.ProgramID]*glProgram
	meshes       map[*core.MeshData]*gpuMesh
	uploads      map[*core.Texture]uint32

	emptyVAO uint32
	white    uint32
}

// New initialises OpenGL. size reports the drawable size of the window in
// pixels and is polled once per frame.
// Must be called after the GLFW window context is made current.
func New(size func() (int, int), log *zap.Logger) (*Device, error) {
	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize OpenGL: %w", err)
	}
	if log == nil {
		log = zap.NewNop()
	}
	log.Info("opengl ready",
		zap.String("version", gl.GoStr(gl.GetString(gl.VERSION))),
		zap.String("renderer", gl.GoStr(gl.GetString(gl.RENDERER))))

	d := &Device{
		log:          log,
		size:         size,
		textures:     make(map[renderer.TextureID]*glTexture),
		framebuffers: make(map[renderer.FramebufferID]*glFramebuffer),
		programs:     make(map[renderer.ProgramID]*glProgram),
		meshes:       make(map[*core.MeshData]*gpuMesh),
		uploads:      make(map[*core.Texture]uint32),
	}
	// Core profile refuses draws without a bound VAO, even attribute-less ones.
	gl.GenVertexArrays(1, &d.emptyVAO)
	d.white = uploadRGBA8("white", 1, 1, []uint8{255, 255, 255, 255})
	gl.DepthFunc(gl.LESS)
	return d, nil
}

func (d *Device) OutputSize() (int, int) { return d.size() }

// ── Programs ──────────────────────────────────────────────────────────────────

func (d *Device) CreateProgram(kind renderer.ProgramKind, consts renderer.ProgramConstants) (renderer.ProgramID, error) {
	declared, ok := renderer.ProgramUniforms[kind]
	if !ok {
		return 0, fmt.Errorf("%s: %w", kind, renderer.ErrUnknownProgram)
	}
	if kind == renderer.ProgramClusteredShading {
		if err := consts.Grid.Validate(); err != nil {
			return 0, fmt.Errorf("%s: %w", kind, err)
		}
	}
	vert, frag, err := programSources(kind, consts)
	if err != nil {
		return 0, err
	}
	id, err := newProgram(vert, frag)
	if err != nil {
		return 0, fmt.Errorf("%s shader compile: %w", kind, err)
	}

	p := &glProgram{
		id:        id,
		kind:      kind,
		samplers:  renderer.DefaultBindings(consts.NumGBuffers)[kind],
		locations: make(map[string]int32, len(declared)),
		modelLoc:  uniformLocation(id, "u_model"),
		overlay:   uniformLocation(id, "u_overlay"),
	}
	for _, name := range declared {
		p.locations[name] = uniformLocation(id, name)
	}
	gl.UseProgram(id)
	for name, slot := range p.samplers {
		loc := uniformLocation(id, name)
		p.locations[name] = loc
		if loc >= 0 {
			gl.Uniform1i(loc, int32(slot))
		}
	}
	gl.UseProgram(0)

	d.programs[renderer.ProgramID(id)] = p
	d.log.Debug("program created", zap.Stringer("kind", kind), zap.Uint32("id", id))
	return renderer.ProgramID(id), nil
}

func (d *Device) DeleteProgram(id renderer.ProgramID) {
	if p, ok := d.programs[id]; ok {
		gl.DeleteProgram(p.id)
		delete(d.programs, id)
	}
}

func uniformLocation(prog uint32, name string) int32 {
	return gl.GetUniformLocation(prog, gl.Str(name+"\x00"))
}

// ── Execute ───────────────────────────────────────────────────────────────────

// Execute runs one pass: clear, scene draws, then the fullscreen triangle.
func (d *Device) Execute(p *renderer.Pass) error {
	prog, ok := d.programs[p.Program]
	if !ok {
		return fmt.Errorf("program %d: %w", p.Program, renderer.ErrUnknownProgram)
	}
	if prog.kind != p.Kind {
		return fmt.Errorf("program %d is %s, pass wants %s: %w", p.Program, prog.kind, p.Kind, renderer.ErrUnknownProgram)
	}

	var attached map[renderer.TextureID]bool
	width, height := d.OutputSize()
	if p.Target != renderer.DisplayFramebuffer {
		fb, ok := d.framebuffers[p.Target]
		if !ok {
			return fmt.Errorf("framebuffer %d: %w", p.Target, ErrUnknownResource)
		}
		attached = fb.attached
		for id := range fb.attached {
			width, height = d.textures[id].desc.Width, d.textures[id].desc.Height
			break
		}
	}

	gl.UseProgram(prog.id)
	if err := d.setUniforms(prog, p); err != nil {
		return err
	}
	if err := d.bindTextures(prog, p, attached); err != nil {
		return err
	}

	gl.BindFramebuffer(gl.FRAMEBUFFER, uint32(p.Target))
	vp := p.Viewport
	if vp.Width <= 0 || vp.Height <= 0 {
		vp = renderer.Viewport{Width: width, Height: height}
	}
	gl.Viewport(int32(vp.X), int32(vp.Y), int32(vp.Width), int32(vp.Height))

	var mask uint32
	if p.Clear&renderer.ClearColor != 0 {
		gl.ClearColor(0, 0, 0, 0)
		mask |= gl.COLOR_BUFFER_BIT
	}
	if p.Clear&renderer.ClearDepth != 0 {
		gl.ClearDepth(1)
		gl.DepthMask(true)
		mask |= gl.DEPTH_BUFFER_BIT
	}
	if mask != 0 {
		gl.Clear(mask)
	}
	if p.DepthTest {
		gl.Enable(gl.DEPTH_TEST)
	} else {
		gl.Disable(gl.DEPTH_TEST)
	}
	if p.Additive {
		gl.Enable(gl.BLEND)
		gl.BlendFunc(gl.ONE, gl.ONE)
	} else {
		gl.Disable(gl.BLEND)
	}

	if p.Draw != nil {
		dl := &drawList{dev: d, prog: prog, pass: p}
		p.Draw(dl)
		if dl.err != nil {
			return dl.err
		}
	}
	if p.Fullscreen {
		if prog.overlay >= 0 {
			gl.Uniform1i(prog.overlay, 0)
		}
		gl.Disable(gl.DEPTH_TEST)
		gl.BindVertexArray(d.emptyVAO)
		gl.DrawArrays(gl.TRIANGLES, 0, 3)
		gl.BindVertexArray(0)
	}
	return checkError(p.Name)
}

// setUniforms uploads the pass uniforms and the draw-list defaults.
func (d *Device) setUniforms(prog *glProgram, p *renderer.Pass) error {
	if loc, ok := prog.locations[renderer.InputAlbedo]; ok && loc >= 0 {
		gl.Uniform4f(loc, 1, 1, 1, 1)
	}
	if loc, ok := prog.locations[renderer.InputShininess]; ok && loc >= 0 {
		gl.Uniform1f(loc, 32)
	}
	for _, name := range p.Uniforms.Names() {
		loc, ok := prog.locations[name]
		if !ok {
			return fmt.Errorf("%s: uniform %q: %w", prog.kind, name, renderer.ErrUnknownUniform)
		}
		if loc < 0 {
			continue
		}
		v, _ := p.Uniforms.Get(name)
		switch {
		case v.Mat4 != nil:
			gl.UniformMatrix4fv(loc, 1, false, &v.Mat4[0])
		case v.Vec4 != nil:
			gl.Uniform4f(loc, v.Vec4[0], v.Vec4[1], v.Vec4[2], v.Vec4[3])
		case len(v.Floats) > 0:
			gl.Uniform1fv(loc, int32(len(v.Floats)), &v.Floats[0])
		}
	}
	return nil
}

// bindTextures puts white in every declared slot, then the pass bindings.
func (d *Device) bindTextures(prog *glProgram, p *renderer.Pass, attached map[renderer.TextureID]bool) error {
	for _, slot := range prog.samplers {
		gl.ActiveTexture(gl.TEXTURE0 + uint32(slot))
		gl.BindTexture(gl.TEXTURE_2D, d.white)
	}
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
		if attached[b.Texture] {
			return fmt.Errorf("%s: sampler %q: %w", prog.kind, b.Sampler, ErrFeedbackLoop)
		}
		gl.ActiveTexture(gl.TEXTURE0 + uint32(slot))
		gl.BindTexture(gl.TEXTURE_2D, t.id)
	}
	gl.ActiveTexture(gl.TEXTURE0)
	return nil
}

// checkError drains the GL error queue.
func checkError(pass string) error {
	var codes []string
	for code := gl.GetError(); code != gl.NO_ERROR; code = gl.GetError() {
		codes = append(codes, fmt.Sprintf("0x%X", code))
	}
	if len(codes) == 0 {
		return nil
	}
	return fmt.Errorf("%s: %w %s", pass, ErrGL, strings.Join(codes, ","))
}

// Destroy frees every resource the device still owns.
func (d *Device) Destroy() {
	for _, m := range d.meshes {
		m.release()
	}
	for _, id := range d.uploads {
		gl.DeleteTextures(1, &id)
	}
	for id := range d.framebuffers {
		d.DeleteFramebuffer(id)
	}
	for id := range d.textures {
		d.DeleteTexture(id)
	}
	for id := range d.programs {
		d.DeleteProgram(id)
	}
	gl.DeleteTextures(1, &d.white)
	gl.DeleteVertexArrays(1, &d.emptyVAO)
	d.meshes = map[*core.MeshData]*gpuMesh{}
	d.uploads = map[*core.Texture]uint32{}
}

// ── Shader helpers ────────────────────────────────────────────────────────────

func newProgram(vertSrc, fragSrc string) (uint32, error) {
	vert, err := compileShader(vertSrc, gl.VERTEX_SHADER)
	if err != nil {
		return 0, fmt.Errorf("vertex: %w", err)
	}
	frag, err := compileShader(fragSrc, gl.FRAGMENT_SHADER)
	if err != nil {
		gl.DeleteShader(vert)
		return 0, fmt.Errorf("fragment: %w", err)
	}

	prog := gl.CreateProgram()
	gl.AttachShader(prog, vert)
	gl.AttachShader(prog, frag)
	gl.LinkProgram(prog)
	gl.DeleteShader(vert)
	gl.DeleteShader(frag)

	var status int32
	gl.GetProgramiv(prog, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLen int32
		gl.GetProgramiv(prog, gl.INFO_LOG_LENGTH, &logLen)
		log := strings.Repeat("\x00", int(logLen+1))
		gl.GetProgramInfoLog(prog, logLen, nil, gl.Str(log))
		gl.DeleteProgram(prog)
		return 0, fmt.Errorf("link failed: %v", log)
	}
	return prog, nil
}

func compileShader(src string, shaderType uint32) (uint32, error) {
	shader := gl.CreateShader(shaderType)
	csrc, free := gl.Strs(src + "\x00")
	gl.ShaderSource(shader, 1, csrc, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLen int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLen)
		log := strings.Repeat("\x00", int(logLen+1))
		gl.GetShaderInfoLog(shader, logLen, nil, gl.Str(log))
		gl.DeleteShader(shader)
		return 0, fmt.Errorf("compile failed: %v", log)
	}
	return shader, nil
}
