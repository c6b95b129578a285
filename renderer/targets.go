package renderer

import (
	"fmt"
)

// TargetName identifies one render target of the set.
type TargetName string

const (
	TargetDepth       TargetName = "depth"
	TargetLighting    TargetName = "lighting"
	TargetHDRExtract  TargetName = "hdr-extract"
	TargetBlurH       TargetName = "blur-horizontal"
	TargetBlurV       TargetName = "blur-vertical"
	gbufferTargetName            = "gbuffer"
)

// GBufferTarget names g-buffer i.
func GBufferTarget(i int) TargetName {
	return TargetName(fmt.Sprintf("%s%d", gbufferTargetName, i))
}

// RenderTarget is one off-screen texture and how it is sampled.
type RenderTarget struct {
	Name    TargetName
	Texture TextureID
	Format  TextureFormat
	Filter  Filter
	Wrap    Wrap
	Width   int
	Height  int
}

func (rt *RenderTarget) desc(width, height int) TextureDesc {
	return TextureDesc{
		Label:  string(rt.Name),
		Width:  width,
		Height: height,
		Format: rt.Format,
		Filter: rt.Filter,
		Wrap:   rt.Wrap,
	}
}

// framebufferLayout records which targets a framebuffer attaches, so resize
// can rebuild it identically.
type framebufferLayout struct {
	label  string
	depth  TargetName
	colors []TargetName
	id     FramebufferID
}

// TargetSet owns every off-screen target of the pipeline and their
// framebuffers.
type TargetSet struct {
	dev         Device
	numGBuffers int
	width       int
	height      int

	targets map[TargetName]*RenderTarget
	order   []TargetName

	gbufferFB  *framebufferLayout
	lightingFB *framebufferLayout
	extractFB  *framebufferLayout
	blurHFB    *framebufferLayout
	blurVFB    *framebufferLayout
}

// NewTargetSet allocates the full set at width×height. Any incomplete
// framebuffer is returned as an error wrapping ErrIncompleteFramebuffer.
func NewTargetSet(dev Device, width, height, numGBuffers int) (*TargetSet, error) {
	if numGBuffers <= 0 {
		return nil, fmt.Errorf("target set: %d g-buffers: %w", numGBuffers, ErrInvalidSize)
	}
	ts := &TargetSet{
		dev:         dev,
		numGBuffers: numGBuffers,
		targets:     make(map[TargetName]*RenderTarget),
	}

	// Data buffers are sampled texel-exact; continuous-tone buffers feeding
	// the blur and composite are filtered.
	ts.define(TargetDepth, FormatDepth32F, FilterNearest)
	gbuffers := make([]TargetName, numGBuffers)
	for i := range gbuffers {
		gbuffers[i] = GBufferTarget(i)
		ts.define(gbuffers[i], FormatRGBA32F, FilterNearest)
	}
	ts.define(TargetLighting, FormatRGBA32F, FilterNearest)
	ts.define(TargetHDRExtract, FormatRGBA32F, FilterLinear)
	ts.define(TargetBlurH, FormatRGBA32F, FilterLinear)
	ts.define(TargetBlurV, FormatRGBA32F, FilterLinear)

	ts.gbufferFB = &framebufferLayout{label: "gbuffer", depth: TargetDepth, colors: gbuffers}
	ts.lightingFB = &framebufferLayout{label: "lighting", colors: []TargetName{TargetLighting}}
	ts.extractFB = &framebufferLayout{label: "hdr-extract", colors: []TargetName{TargetHDRExtract}}
	ts.blurHFB = &framebufferLayout{label: "blur-horizontal", colors: []TargetName{TargetBlurH}}
	ts.blurVFB = &framebufferLayout{label: "blur-vertical", colors: []TargetName{TargetBlurV}}

	if err := ts.allocate(width, height); err != nil {
		ts.release()
		return nil, err
	}
	return ts, nil
}

func (ts *TargetSet) define(name TargetName, format TextureFormat, filter Filter) {
	ts.targets[name] = &RenderTarget{Name: name, Format: format, Filter: filter, Wrap: WrapClampToEdge}
	ts.order = append(ts.order, name)
}

func (ts *TargetSet) layouts() []*framebufferLayout {
	return []*framebufferLayout{ts.gbufferFB, ts.lightingFB, ts.extractFB, ts.blurHFB, ts.blurVFB}
}

func (ts *TargetSet) allocate(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("target set %dx%d: %w", width, height, ErrInvalidSize)
	}
	for _, name := range ts.order {
		rt := ts.targets[name]
		id, err := ts.dev.CreateTexture(rt.desc(width, height))
		if err != nil {
			return fmt.Errorf("target %s: %w", name, err)
		}
		rt.Texture, rt.Width, rt.Height = id, width, height
	}
	for _, fb := range ts.layouts() {
		var depth TextureID
		if fb.depth != "" {
			depth = ts.targets[fb.depth].Texture
		}
		colors := make([]TextureID, len(fb.colors))
		for i, c := range fb.colors {
			colors[i] = ts.targets[c].Texture
		}
		id, err := ts.dev.CreateFramebuffer(fb.label, depth, colors)
		if err != nil {
			return fmt.Errorf("framebuffer %s: %w", fb.label, err)
		}
		fb.id = id
	}
	ts.width, ts.height = width, height
	return nil
}

func (ts *TargetSet) release() {
	for _, fb := range ts.layouts() {
		if fb.id != 0 {
			ts.dev.DeleteFramebuffer(fb.id)
			fb.id = 0
		}
	}
	for _, name := range ts.order {
		rt := ts.targets[name]
		if rt.Texture != 0 {
			ts.dev.DeleteTexture(rt.Texture)
			rt.Texture = 0
		}
		rt.Width, rt.Height = 0, 0
	}
	ts.width, ts.height = 0, 0
}

// Resize reallocates every target at the new size, keeping formats, filters
// and attachment layouts. Resizing to the current size does nothing.
func (ts *TargetSet) Resize(width, height int) error {
	if width == ts.width && height == ts.height {
		return nil
	}
	if width <= 0 || height <= 0 {
		return fmt.Errorf("target set %dx%d: %w", width, height, ErrInvalidSize)
	}
	ts.release()
	if err := ts.allocate(width, height); err != nil {
		ts.release()
		return err
	}
	return nil
}

// Destroy releases every texture and framebuffer.
func (ts *TargetSet) Destroy() { ts.release() }

func (ts *TargetSet) Size() (int, int) { return ts.width, ts.height }

func (ts *TargetSet) NumGBuffers() int { return ts.numGBuffers }

// Target returns the named target, or nil.
func (ts *TargetSet) Target(name TargetName) *RenderTarget { return ts.targets[name] }

// Targets returns every target in allocation order.
func (ts *TargetSet) Targets() []*RenderTarget {
	out := make([]*RenderTarget, 0, len(ts.order))
	for _, n := range ts.order {
		out = append(out, ts.targets[n])
	}
	return out
}

func (ts *TargetSet) Texture(name TargetName) TextureID { return ts.targets[name].Texture }

func (ts *TargetSet) GBufferFramebuffer() FramebufferID  { return ts.gbufferFB.id }
func (ts *TargetSet) LightingFramebuffer() FramebufferID { return ts.lightingFB.id }
func (ts *TargetSet) ExtractFramebuffer() FramebufferID  { return ts.extractFB.id }
func (ts *TargetSet) BlurHFramebuffer() FramebufferID    { return ts.blurHFB.id }
func (ts *TargetSet) BlurVFramebuffer() FramebufferID    { return ts.blurVFB.id }
