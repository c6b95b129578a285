package renderer

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"clustered-deferred/core"
)

var (
	// ErrIncompleteFramebuffer is returned when a backend cannot render to a
	// framebuffer's attachment set. It is a configuration error.
	ErrIncompleteFramebuffer = errors.New("framebuffer incomplete")
	// ErrAllocation is returned when a texture or framebuffer cannot be created.
	ErrAllocation = errors.New("gpu allocation failed")
	// ErrInvalidSize is returned for non-positive target dimensions.
	ErrInvalidSize = errors.New("invalid target size")
	// ErrUnknownProgram is returned by Execute for a program that was never created.
	ErrUnknownProgram = errors.New("unknown program")
	// ErrUnknownUniform is returned when a pass sets an input the program does not declare.
	ErrUnknownUniform = errors.New("unknown program input")
)

// TextureID names a backend texture. Zero is never a valid texture.
type TextureID uint32

// FramebufferID names a backend framebuffer. Zero is the display.
type FramebufferID uint32

// DisplayFramebuffer is the presentation target.
const DisplayFramebuffer FramebufferID = 0

type TextureFormat int

const (
	FormatRGBA32F TextureFormat = iota
	FormatDepth32F
)

func (f TextureFormat) String() string {
	switch f {
	case FormatRGBA32F:
		return "RGBA32F"
	case FormatDepth32F:
		return "DEPTH32F"
	}
	return fmt.Sprintf("TextureFormat(%d)", int(f))
}

// IsDepth reports whether the format stores depth.
func (f TextureFormat) IsDepth() bool { return f == FormatDepth32F }

type Filter int

const (
	FilterNearest Filter = iota
	FilterLinear
)

type Wrap int

const (
	WrapClampToEdge Wrap = iota
)

type TextureDesc struct {
	Label  string
	Width  int
	Height int
	Format TextureFormat
	Filter Filter
	Wrap   Wrap
}

// ProgramKind selects one of the pipeline's shading programs.
type ProgramKind int

const (
	ProgramGeometry ProgramKind = iota
	ProgramClusteredShading
	ProgramExtractHDR
	ProgramBlurHorizontal
	ProgramBlurVertical
	ProgramComposite
)

var programNames = [...]string{
	ProgramGeometry:         "geometry",
	ProgramClusteredShading: "clustered-shading",
	ProgramExtractHDR:       "extract-hdr",
	ProgramBlurHorizontal:   "blur-horizontal",
	ProgramBlurVertical:     "blur-vertical",
	ProgramComposite:        "composite",
}

func (k ProgramKind) String() string {
	if int(k) >= 0 && int(k) < len(programNames) {
		return programNames[k]
	}
	return fmt.Sprintf("ProgramKind(%d)", int(k))
}

// ProgramConstants are the specialization constants baked into every program
// at creation time. The same value must be given to all programs and to the
// cluster provider.
type ProgramConstants struct {
	NumLights       int
	NumGBuffers     int
	Grid            ClusterGrid
	Ambient         float32
	BrightThreshold float32
	BloomStrength   float32
	FlareStrength   float32
	Exposure        float32
}

// ProgramID names a backend program.
type ProgramID uint32

// ClearFlags select which attachments a pass clears before drawing.
type ClearFlags uint8

const (
	ClearColor ClearFlags = 1 << iota
	ClearDepth
)

type Viewport struct {
	X, Y, Width, Height int
}

// TextureBinding places a texture in a sampler slot for one pass.
type TextureBinding struct {
	Slot    int
	Sampler string
	Texture TextureID
}

// Pass is a self-contained description of one render pass. Backends hold no
// state between passes other than resources, so everything a pass reads or
// writes is listed here.
type Pass struct {
	Name      string
	Program   ProgramID
	Kind      ProgramKind
	Target    FramebufferID
	Viewport  Viewport
	Clear     ClearFlags
	DepthTest bool
	// Additive blends the pass output onto the target instead of replacing it.
	Additive bool
	Textures []TextureBinding
	Uniforms Uniforms
	// Draw, when set, lets a collaborator submit geometry through the pass.
	Draw func(core.DrawList)
	// Fullscreen draws one screen-covering triangle after Draw returns.
	Fullscreen bool
}

// Reads returns the textures sampled by the pass.
func (p *Pass) Reads() []TextureID {
	ids := make([]TextureID, 0, len(p.Textures))
	for _, b := range p.Textures {
		ids = append(ids, b.Texture)
	}
	return ids
}

// Device is the graphics backend the core issues commands to. All methods are
// called from one goroutine, in order.
type Device interface {
	CreateTexture(desc TextureDesc) (TextureID, error)
	// WriteTexture replaces the full contents of a RGBA32F texture. len(data)
	// must be 4*width*height.
	WriteTexture(id TextureID, data []float32) error
	DeleteTexture(id TextureID)
	// CreateFramebuffer attaches depth (may be zero) and colors in order and
	// validates the result, returning ErrIncompleteFramebuffer when the set is
	// not renderable.
	CreateFramebuffer(label string, depth TextureID, colors []TextureID) (FramebufferID, error)
	DeleteFramebuffer(id FramebufferID)
	CreateProgram(kind ProgramKind, consts ProgramConstants) (ProgramID, error)
	DeleteProgram(id ProgramID)
	// OutputSize is the current display size in pixels.
	OutputSize() (width, height int)
	Execute(p *Pass) error
}

// ── Uniforms ──────────────────────────────────────────────────────────────────

// UniformValue holds exactly one of its fields.
type UniformValue struct {
	Mat4   *mgl32.Mat4
	Vec4   *mgl32.Vec4
	Floats []float32
}

// Uniforms is an ordered set of named program inputs.
type Uniforms struct {
	names  []string
	values map[string]UniformValue
}

func (u *Uniforms) set(name string, v UniformValue) {
	if u.values == nil {
		u.values = make(map[string]UniformValue)
	}
	if _, ok := u.values[name]; !ok {
		u.names = append(u.names, name)
	}
	u.values[name] = v
}

func (u *Uniforms) SetMat4(name string, m mgl32.Mat4) { u.set(name, UniformValue{Mat4: &m}) }

func (u *Uniforms) SetVec4(name string, v mgl32.Vec4) { u.set(name, UniformValue{Vec4: &v}) }

func (u *Uniforms) SetFloats(name string, f []float32) {
	u.set(name, UniformValue{Floats: append([]float32(nil), f...)})
}

// Names returns uniform names in the order they were first set.
func (u *Uniforms) Names() []string { return u.names }

func (u *Uniforms) Get(name string) (UniformValue, bool) {
	v, ok := u.values[name]
	return v, ok
}

// Mat4 returns a matrix uniform or the identity when absent.
func (u *Uniforms) Mat4(name string) mgl32.Mat4 {
	if v, ok := u.values[name]; ok && v.Mat4 != nil {
		return *v.Mat4
	}
	return mgl32.Ident4()
}

// Vec4 returns a vector uniform or zero when absent.
func (u *Uniforms) Vec4(name string) mgl32.Vec4 {
	if v, ok := u.values[name]; ok && v.Vec4 != nil {
		return *v.Vec4
	}
	return mgl32.Vec4{}
}

// Floats returns a float array uniform or nil when absent.
func (u *Uniforms) Floats(name string) []float32 {
	if v, ok := u.values[name]; ok {
		return v.Floats
	}
	return nil
}
