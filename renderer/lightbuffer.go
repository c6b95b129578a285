package renderer

import (
	"errors"
	"fmt"

	"clustered-deferred/core"
)

// ErrLightCount is returned when the scene's light list does not match the
// count the light buffer was built for.
var ErrLightCount = errors.New("light count mismatch")

// lightElementSize is two texels: {position.xyz, radius} and {color.rgb, 0}.
const lightElementSize = 8

// LightBuffer packs scene lights into a texture the shading program decodes.
type LightBuffer struct {
	tb *TextureBuffer
}

func NewLightBuffer(dev Device, count int) (*LightBuffer, error) {
	tb, err := NewTextureBuffer(dev, "lights", count, lightElementSize)
	if err != nil {
		return nil, err
	}
	return &LightBuffer{tb: tb}, nil
}

// Count is the fixed number of lights.
func (lb *LightBuffer) Count() int { return lb.tb.Elements }

// Texture is the packed light texture.
func (lb *LightBuffer) Texture() TextureID { return lb.tb.Texture }

// Size returns the texture dimensions in texels.
func (lb *LightBuffer) Size() (int, int) { return lb.tb.Width, lb.tb.Height }

// Update rewrites every record and uploads the full buffer.
func (lb *LightBuffer) Update(lights []core.Light) error {
	if len(lights) != lb.tb.Elements {
		return fmt.Errorf("%w: buffer holds %d, scene has %d", ErrLightCount, lb.tb.Elements, len(lights))
	}
	buf := lb.tb.Buffer
	for i, l := range lights {
		p := lb.tb.Index(i, 0)
		buf[p+0] = l.Position[0]
		buf[p+1] = l.Position[1]
		buf[p+2] = l.Position[2]
		buf[p+3] = l.Radius

		c := lb.tb.Index(i, 1)
		buf[c+0] = l.Color[0]
		buf[c+1] = l.Color[1]
		buf[c+2] = l.Color[2]
		buf[c+3] = 0
	}
	return lb.tb.Upload()
}

// Decode reads light i back from the CPU copy of the buffer.
func (lb *LightBuffer) Decode(i int) core.Light {
	return DecodeLight(lb.tb.Buffer, lb.tb.Width, i)
}

// DecodeLight reads light i from packed texel data of the given width. It is
// the inverse of LightBuffer.Update and mirrors the shading program's fetch.
func DecodeLight(data []float32, width, i int) core.Light {
	p := 4 * i
	c := 4*i + 4*width
	var l core.Light
	l.Position[0], l.Position[1], l.Position[2] = data[p], data[p+1], data[p+2]
	l.Radius = data[p+3]
	l.Color[0], l.Color[1], l.Color[2] = data[c], data[c+1], data[c+2]
	return l
}

func (lb *LightBuffer) Destroy() { lb.tb.Destroy() }
