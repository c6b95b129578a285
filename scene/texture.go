package scene

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"sync"

	"clustered-deferred/core"
)

// TextureCache loads each image file once, so materials naming the same file
// share one texture and backends upload it once.
type TextureCache struct {
	mu       sync.RWMutex
	textures map[string]*core.Texture
}

func NewTextureCache() *TextureCache {
	return &TextureCache{textures: make(map[string]*core.Texture)}
}

// Load returns the cached texture for path, reading it on first use.
func (c *TextureCache) Load(path string) (*core.Texture, error) {
	path = filepath.Clean(path)
	c.mu.RLock()
	if tex, ok := c.textures[path]; ok {
		c.mu.RUnlock()
		return tex, nil
	}
	c.mu.RUnlock()

	tex, err := LoadTexture(path)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if prev, ok := c.textures[path]; ok {
		return prev, nil
	}
	c.textures[path] = tex
	return tex, nil
}

func (c *TextureCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.textures)
}

// LoadTexture reads a PNG or JPEG file from disk and returns an RGBA8 texture.
func LoadTexture(path string) (*core.Texture, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open texture %q: %w", path, err)
	}
	defer f.Close()

	tex, err := decodeTexture(path, f)
	if err != nil {
		return nil, fmt.Errorf("texture %q: %w", path, err)
	}
	return tex, nil
}

func decodeImageBytes(name string, data []byte) (*core.Texture, error) {
	return decodeTexture(name, bytes.NewReader(data))
}

func decodeTexture(name string, r io.Reader) (*core.Texture, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	b := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	return &core.Texture{
		Name:   name,
		Width:  b.Dx(),
		Height: b.Dy(),
		Pixels: rgba.Pix,
	}, nil
}

// NewSolidTexture creates a 1x1 texture with the given RGBA color values (0–255).
func NewSolidTexture(name string, r, g, b, a uint8) *core.Texture {
	return &core.Texture{
		Name:   name,
		Width:  1,
		Height: 1,
		Pixels: []byte{r, g, b, a},
	}
}

// NewDirtTexture scatters soft specks over a dark size×size texture. It
// modulates the lens-flare term as grime on the lens would.
func NewDirtTexture(size int, seed int64) *core.Texture {
	rng := rand.New(rand.NewSource(seed))
	field := make([]float32, size*size)
	for i := range field {
		field[i] = 0.15
	}
	specks := size * size / 64
	for s := 0; s < specks; s++ {
		cx, cy := rng.Float32()*float32(size), rng.Float32()*float32(size)
		r := 1 + rng.Float32()*float32(size)/24
		a := 0.3 + 0.7*rng.Float32()
		x0, x1 := max(0, int(cx-r)), min(size-1, int(cx+r))
		y0, y1 := max(0, int(cy-r)), min(size-1, int(cy+r))
		for y := y0; y <= y1; y++ {
			for x := x0; x <= x1; x++ {
				dx, dy := float32(x)+0.5-cx, float32(y)+0.5-cy
				d := float32(math.Sqrt(float64(dx*dx+dy*dy))) / r
				if d < 1 {
					field[y*size+x] += a * (1 - d*d)
				}
			}
		}
	}
	return grayTexture("lens-dirt", size, field)
}

// NewStarburstTexture draws radial spokes that fade from the centre.
func NewStarburstTexture(size, spokes int) *core.Texture {
	field := make([]float32, size*size)
	c := float64(size) / 2
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			dx, dy := float64(x)+0.5-c, float64(y)+0.5-c
			r := math.Sqrt(dx*dx+dy*dy) / c
			if r >= 1 {
				continue
			}
			angle := math.Atan2(dy, dx)
			spoke := math.Pow(math.Abs(math.Cos(angle*float64(spokes)/2)), 24)
			field[y*size+x] = float32((0.25 + 0.75*spoke) * (1 - r) * (1 - r))
		}
	}
	return grayTexture("lens-starburst", size, field)
}

func grayTexture(name string, size int, field []float32) *core.Texture {
	px := make([]byte, 4*size*size)
	for i, v := range field {
		g := uint8(min(1, max(0, v)) * 255)
		px[4*i], px[4*i+1], px[4*i+2], px[4*i+3] = g, g, g, 255
	}
	return &core.Texture{Name: name, Width: size, Height: size, Pixels: px}
}
