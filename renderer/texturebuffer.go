package renderer

import "fmt"

// TextureBuffer is a CPU float buffer mirrored into an RGBA32F texture. Each
// element occupies one texel column; consecutive groups of four components
// of an element live in consecutive texel rows.
type TextureBuffer struct {
	Elements    int
	ElementSize int // floats per element
	Width       int
	Height      int
	Buffer      []float32
	Texture     TextureID

	dev Device
}

// NewTextureBuffer allocates a buffer for count elements of elementSize
// floats. A count of zero still allocates one column so the texture is a
// valid sampler input.
func NewTextureBuffer(dev Device, label string, count, elementSize int) (*TextureBuffer, error) {
	if count < 0 || elementSize <= 0 {
		return nil, fmt.Errorf("texture buffer %q: %w: %d elements of %d floats", label, ErrInvalidSize, count, elementSize)
	}
	width := count
	if width == 0 {
		width = 1
	}
	height := (elementSize + 3) / 4
	tex, err := dev.CreateTexture(TextureDesc{
		Label:  label,
		Width:  width,
		Height: height,
		Format: FormatRGBA32F,
		Filter: FilterNearest,
		Wrap:   WrapClampToEdge,
	})
	if err != nil {
		return nil, fmt.Errorf("texture buffer %q: %w", label, err)
	}
	return &TextureBuffer{
		Elements:    count,
		ElementSize: elementSize,
		Width:       width,
		Height:      height,
		Buffer:      make([]float32, 4*width*height),
		Texture:     tex,
		dev:         dev,
	}, nil
}

// Index returns the offset of the first component of texel row for element.
func (tb *TextureBuffer) Index(element, row int) int {
	return 4*element + 4*row*tb.Width
}

// Upload copies the whole CPU buffer to the texture.
func (tb *TextureBuffer) Upload() error {
	return tb.dev.WriteTexture(tb.Texture, tb.Buffer)
}

// Destroy releases the texture.
func (tb *TextureBuffer) Destroy() {
	if tb.Texture != 0 {
		tb.dev.DeleteTexture(tb.Texture)
		tb.Texture = 0
	}
}
