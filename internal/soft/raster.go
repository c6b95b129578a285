package soft

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"clustered-deferred/core"
	"clustered-deferred/renderer"
)

// drawList carries scene draws into the active pass. Inputs set through it
// persist until the pass ends, including into the fullscreen draw.
type drawList struct {
	dev    *Device
	pass   *renderer.Pass
	prog   *program
	target *target
	vp     renderer.Viewport

	inputs map[string]*texture
	colors map[string]core.Color
	floats map[string]float32
	err    error
}

func (dl *drawList) Program() string { return dl.prog.kind.String() }

// SetTexture binds a scene texture. Samplers the program does not declare
// are ignored so one scene can feed several programs.
func (dl *drawList) SetTexture(sampler string, tex *core.Texture) {
	if tex == nil {
		return
	}
	if _, ok := dl.prog.samplers[sampler]; !ok {
		return
	}
	dl.inputs[sampler] = dl.dev.upload(tex)
}

func (dl *drawList) SetColor(uniform string, c core.Color) {
	if dl.prog.uniforms[uniform] {
		dl.colors[uniform] = c
	}
}

func (dl *drawList) SetFloat(uniform string, v float32) {
	if dl.prog.uniforms[uniform] {
		dl.floats[uniform] = v
	}
}

func (dl *drawList) color(name string) core.Color {
	if c, ok := dl.colors[name]; ok {
		return c
	}
	return core.ColorWhite
}

func (dl *drawList) float(name string, def float32) float32 {
	if v, ok := dl.floats[name]; ok {
		return v
	}
	return def
}

// DrawMesh rasterises mesh with the program's surface shader.
func (dl *drawList) DrawMesh(mesh *core.MeshData, model mgl32.Mat4) {
	if dl.err != nil || mesh == nil {
		return
	}
	var shade fragmentFunc
	switch dl.prog.kind {
	case renderer.ProgramGeometry:
		shade = dl.geometryFragment()
	case renderer.ProgramComposite:
		shade = dl.overlayFragment()
	default:
		dl.err = fmt.Errorf("%s: program has no surface stage: %w", dl.prog.kind, renderer.ErrUnknownProgram)
		return
	}
	mvp := dl.pass.Uniforms.Mat4(renderer.UniformViewProjection).Mul4(model)
	normalMat := model.Mat3().Inv().Transpose()
	rasterize(dl.target, dl.vp, dl.pass.DepthTest, mesh, mvp, normalMat, shade)
}

// fragmentFunc shades one covered pixel with interpolated attributes.
type fragmentFunc func(x, y int, normal mgl32.Vec3, uv mgl32.Vec2)

type clipVertex struct {
	pos    mgl32.Vec4
	normal mgl32.Vec3
	uv     mgl32.Vec2
}

func lerpVertex(a, b clipVertex, t float32) clipVertex {
	return clipVertex{
		pos:    a.pos.Add(b.pos.Sub(a.pos).Mul(t)),
		normal: a.normal.Add(b.normal.Sub(a.normal).Mul(t)),
		uv:     a.uv.Add(b.uv.Sub(a.uv).Mul(t)),
	}
}

// clipNear clips a triangle against the near plane z = -w.
func clipNear(in []clipVertex, out []clipVertex) []clipVertex {
	out = out[:0]
	for i := range in {
		a, b := in[i], in[(i+1)%len(in)]
		da, db := a.pos.Z()+a.pos.W(), b.pos.Z()+b.pos.W()
		if da >= 0 {
			out = append(out, a)
		}
		if (da >= 0) != (db >= 0) {
			out = append(out, lerpVertex(a, b, da/(da-db)))
		}
	}
	return out
}

type screenVertex struct {
	x, y, z float32
	invW    float32
	normal  mgl32.Vec3 // pre-divided by w
	uv      mgl32.Vec2 // pre-divided by w
}

func toScreen(v clipVertex, vp renderer.Viewport) screenVertex {
	invW := 1 / v.pos.W()
	return screenVertex{
		x:      float32(vp.X) + (v.pos.X()*invW*0.5+0.5)*float32(vp.Width),
		y:      float32(vp.Y) + (v.pos.Y()*invW*0.5+0.5)*float32(vp.Height),
		z:      v.pos.Z()*invW*0.5 + 0.5,
		invW:   invW,
		normal: v.normal.Mul(invW),
		uv:     v.uv.Mul(invW),
	}
}

func edge(ax, ay, bx, by, px, py float32) float32 {
	return (bx-ax)*(py-ay) - (by-ay)*(px-ax)
}

// rasterize draws every triangle of mesh. Pixels are sampled at their
// centres; both windings are filled.
func rasterize(t *target, vp renderer.Viewport, depthTest bool, mesh *core.MeshData, mvp mgl32.Mat4, normalMat mgl32.Mat3, shade fragmentFunc) {
	var tri [3]clipVertex
	poly := make([]clipVertex, 0, 4)
	for i := 0; i < mesh.TriangleCount(); i++ {
		i0, i1, i2 := mesh.Triangle(i)
		for k, idx := range [3]uint32{i0, i1, i2} {
			v := mesh.Vertices[idx]
			tri[k] = clipVertex{
				pos:    mvp.Mul4x1(v.Position.Vec4(1)),
				normal: normalMat.Mul3x1(v.Normal),
				uv:     v.UV,
			}
		}
		poly = clipNear(tri[:], poly)
		for k := 1; k+1 < len(poly); k++ {
			drawTriangle(t, vp, depthTest,
				toScreen(poly[0], vp), toScreen(poly[k], vp), toScreen(poly[k+1], vp), shade)
		}
	}
}

func drawTriangle(t *target, vp renderer.Viewport, depthTest bool, a, b, c screenVertex, shade fragmentFunc) {
	area := edge(a.x, a.y, b.x, b.y, c.x, c.y)
	if area == 0 {
		return
	}
	minX := clampInt(int(floor(min(a.x, b.x, c.x))), vp.X, vp.X+vp.Width-1)
	maxX := clampInt(int(floor(max(a.x, b.x, c.x))), vp.X, vp.X+vp.Width-1)
	minY := clampInt(int(floor(min(a.y, b.y, c.y))), vp.Y, vp.Y+vp.Height-1)
	maxY := clampInt(int(floor(max(a.y, b.y, c.y))), vp.Y, vp.Y+vp.Height-1)

	for y := minY; y <= maxY; y++ {
		py := float32(y) + 0.5
		for x := minX; x <= maxX; x++ {
			px := float32(x) + 0.5
			w0 := edge(b.x, b.y, c.x, c.y, px, py) / area
			w1 := edge(c.x, c.y, a.x, a.y, px, py) / area
			w2 := edge(a.x, a.y, b.x, b.y, px, py) / area
			if w0 < 0 || w1 < 0 || w2 < 0 {
				continue
			}
			z := w0*a.z + w1*b.z + w2*c.z
			if z < 0 || z > 1 {
				continue
			}
			if depthTest && t.depth != nil {
				if z >= t.depth.depth(x, y) {
					continue
				}
				t.depth.setDepth(x, y, z)
			}
			invW := w0*a.invW + w1*b.invW + w2*c.invW
			n := a.normal.Mul(w0).Add(b.normal.Mul(w1)).Add(c.normal.Mul(w2)).Mul(1 / invW)
			uv := a.uv.Mul(w0).Add(b.uv.Mul(w1)).Add(c.uv.Mul(w2)).Mul(1 / invW)
			shade(x, y, n, uv)
		}
	}
}
