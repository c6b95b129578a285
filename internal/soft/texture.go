package soft

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"clustered-deferred/core"
	"clustered-deferred/renderer"
)

// texture stores four floats per texel for every format; depth lives in the
// first component. Row 0 is the bottom row.
type texture struct {
	desc renderer.TextureDesc
	data []float32
}

func newTexture(desc renderer.TextureDesc) *texture {
	return &texture{desc: desc, data: make([]float32, 4*desc.Width*desc.Height)}
}

// newSceneTexture converts an 8-bit scene image to a linearly filtered float
// texture.
func newSceneTexture(src *core.Texture) *texture {
	t := newTexture(renderer.TextureDesc{
		Label:  src.Name,
		Width:  src.Width,
		Height: src.Height,
		Format: renderer.FormatRGBA32F,
		Filter: renderer.FilterLinear,
	})
	n := min(len(src.Pixels), len(t.data))
	for i, b := range src.Pixels[:n] {
		t.data[i] = float32(b) / 255
	}
	return t
}

func (t *texture) width() int  { return t.desc.Width }
func (t *texture) height() int { return t.desc.Height }

func (t *texture) fill(v mgl32.Vec4) {
	for i := 0; i < len(t.data); i += 4 {
		t.data[i], t.data[i+1], t.data[i+2], t.data[i+3] = v[0], v[1], v[2], v[3]
	}
}

// fetch reads one texel, clamping the coordinate to the edge.
func (t *texture) fetch(x, y int) mgl32.Vec4 {
	x = clampInt(x, 0, t.desc.Width-1)
	y = clampInt(y, 0, t.desc.Height-1)
	i := 4 * (y*t.desc.Width + x)
	return mgl32.Vec4{t.data[i], t.data[i+1], t.data[i+2], t.data[i+3]}
}

func (t *texture) set(x, y int, v mgl32.Vec4) {
	i := 4 * (y*t.desc.Width + x)
	t.data[i], t.data[i+1], t.data[i+2], t.data[i+3] = v[0], v[1], v[2], v[3]
}

func (t *texture) add(x, y int, v mgl32.Vec4) {
	i := 4 * (y*t.desc.Width + x)
	t.data[i] += v[0]
	t.data[i+1] += v[1]
	t.data[i+2] += v[2]
	t.data[i+3] += v[3]
}

func (t *texture) depth(x, y int) float32 { return t.data[4*(y*t.desc.Width+x)] }

func (t *texture) setDepth(x, y int, d float32) { t.data[4*(y*t.desc.Width+x)] = d }

// sample reads at normalised coordinates with the texture's filter and
// clamp-to-edge wrapping.
func (t *texture) sample(u, v float32) mgl32.Vec4 {
	w, h := float32(t.desc.Width), float32(t.desc.Height)
	if t.desc.Filter == renderer.FilterNearest {
		return t.fetch(int(floor(u*w)), int(floor(v*h)))
	}
	fx, fy := u*w-0.5, v*h-0.5
	x0, y0 := floor(fx), floor(fy)
	tx, ty := fx-x0, fy-y0
	ix, iy := int(x0), int(y0)
	a := t.fetch(ix, iy).Mul(1 - tx).Add(t.fetch(ix+1, iy).Mul(tx))
	b := t.fetch(ix, iy+1).Mul(1 - tx).Add(t.fetch(ix+1, iy+1).Mul(tx))
	return a.Mul(1 - ty).Add(b.Mul(ty))
}

func floor(v float32) float32 { return float32(math.Floor(float64(v))) }

func fract(v float32) float32 { return v - floor(v) }

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
