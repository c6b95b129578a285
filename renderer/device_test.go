package renderer

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"clustered-deferred/core"
)

// fakeDevice records every call and tracks live resources.
type fakeDevice struct {
	width, height int

	nextID       uint32
	textures     map[TextureID]TextureDesc
	writes       map[TextureID][]float32
	framebuffers map[FramebufferID][]TextureID
	programs     map[ProgramID]ProgramKind
	consts       []ProgramConstants

	passes []*Pass
	// events is the ordered call log ("execute geometry", "create texture gbuffer0", ...).
	events []string

	failFramebuffer bool
	failExecute     string
}

func newFakeDevice(w, h int) *fakeDevice {
	return &fakeDevice{
		width:        w,
		height:       h,
		textures:     make(map[TextureID]TextureDesc),
		writes:       make(map[TextureID][]float32),
		framebuffers: make(map[FramebufferID][]TextureID),
		programs:     make(map[ProgramID]ProgramKind),
	}
}

func (d *fakeDevice) id() uint32 {
	d.nextID++
	return d.nextID
}

func (d *fakeDevice) CreateTexture(desc TextureDesc) (TextureID, error) {
	if desc.Width <= 0 || desc.Height <= 0 {
		return 0, ErrInvalidSize
	}
	id := TextureID(d.id())
	d.textures[id] = desc
	d.events = append(d.events, "create texture "+desc.Label)
	return id, nil
}

func (d *fakeDevice) WriteTexture(id TextureID, data []float32) error {
	desc, ok := d.textures[id]
	if !ok {
		return fmt.Errorf("write to texture %d: %w", id, ErrAllocation)
	}
	if len(data) != 4*desc.Width*desc.Height {
		return fmt.Errorf("write %d floats to %dx%d: %w", len(data), desc.Width, desc.Height, ErrInvalidSize)
	}
	d.writes[id] = append([]float32(nil), data...)
	d.events = append(d.events, "write "+desc.Label)
	return nil
}

func (d *fakeDevice) DeleteTexture(id TextureID) {
	delete(d.textures, id)
	delete(d.writes, id)
}

func (d *fakeDevice) CreateFramebuffer(label string, depth TextureID, colors []TextureID) (FramebufferID, error) {
	if d.failFramebuffer {
		return 0, ErrIncompleteFramebuffer
	}
	id := FramebufferID(d.id())
	d.framebuffers[id] = append([]TextureID{depth}, colors...)
	d.events = append(d.events, "create framebuffer "+label)
	return id, nil
}

func (d *fakeDevice) DeleteFramebuffer(id FramebufferID) { delete(d.framebuffers, id) }

func (d *fakeDevice) CreateProgram(kind ProgramKind, consts ProgramConstants) (ProgramID, error) {
	id := ProgramID(d.id())
	d.programs[id] = kind
	d.consts = append(d.consts, consts)
	return id, nil
}

func (d *fakeDevice) DeleteProgram(id ProgramID) { delete(d.programs, id) }

func (d *fakeDevice) OutputSize() (int, int) { return d.width, d.height }

func (d *fakeDevice) Execute(p *Pass) error {
	if p.Name == d.failExecute {
		return ErrUnknownUniform
	}
	if kind, ok := d.programs[p.Program]; !ok || kind != p.Kind {
		return fmt.Errorf("%s: %w", p.Name, ErrUnknownProgram)
	}
	d.passes = append(d.passes, p)
	d.events = append(d.events, "execute "+p.Name)
	if p.Draw != nil {
		p.Draw(&fakeDrawList{prog: p.Kind.String()})
	}
	return nil
}

func (d *fakeDevice) live() (textures, framebuffers, programs int) {
	return len(d.textures), len(d.framebuffers), len(d.programs)
}

func (d *fakeDevice) pass(name string) *Pass {
	for _, p := range d.passes {
		if p.Name == name {
			return p
		}
	}
	return nil
}

type fakeDrawList struct {
	prog  string
	draws int
}

func (dl *fakeDrawList) Program() string                     { return dl.prog }
func (dl *fakeDrawList) SetTexture(string, *core.Texture)    {}
func (dl *fakeDrawList) SetColor(string, core.Color)         {}
func (dl *fakeDrawList) SetFloat(string, float32)            {}
func (dl *fakeDrawList) DrawMesh(*core.MeshData, mgl32.Mat4) { dl.draws++ }

// fakeCamera looks down -Z from the origin.
type fakeCamera struct {
	world     mgl32.Mat4
	near, far float32
	aspect    float32
}

func newFakeCamera() *fakeCamera {
	return &fakeCamera{world: mgl32.Ident4(), near: 0.1, far: 100, aspect: 4.0 / 3.0}
}

func (c *fakeCamera) WorldMatrix() mgl32.Mat4 { return c.world }
func (c *fakeCamera) ProjectionMatrix() mgl32.Mat4 {
	return mgl32.Perspective(mgl32.DegToRad(60), c.aspect, c.near, c.far)
}
func (c *fakeCamera) Near() float32 { return c.near }
func (c *fakeCamera) Far() float32  { return c.far }

type fakeScene struct {
	lights  []core.Light
	draws   int
	effects int
}

func (s *fakeScene) Lights() []core.Light     { return s.lights }
func (s *fakeScene) Draw(core.DrawList)       { s.draws++ }
func (s *fakeScene) DrawEffect(core.DrawList) { s.effects++ }

// fakeClusters records refreshes and owns one texture.
type fakeClusters struct {
	dev       *fakeDevice
	tex       TextureID
	refreshes int
}

func newFakeClusters(dev *fakeDevice) *fakeClusters {
	tex, _ := dev.CreateTexture(TextureDesc{Label: "clusters", Width: 1, Height: 1})
	return &fakeClusters{dev: dev, tex: tex}
}

func (c *fakeClusters) Refresh(Camera, mgl32.Mat4, Scene) error {
	c.refreshes++
	c.dev.events = append(c.dev.events, "refresh clusters")
	return nil
}

func (c *fakeClusters) Texture() TextureID { return c.tex }
