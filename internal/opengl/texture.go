package opengl

import (
	"fmt"

	gl "github.com/go-gl/gl/v4.1-core/gl"

	"clustered-deferred/core"
	"clustered-deferred/renderer"
)

func (d *Device) CreateTexture(desc renderer.TextureDesc) (renderer.TextureID, error) {
	if desc.Width <= 0 || desc.Height <= 0 {
		return 0, fmt.Errorf("texture %q %dx%d: %w", desc.Label, desc.Width, desc.Height, renderer.ErrInvalidSize)
	}
	internal, format := uint32(gl.RGBA32F), uint32(gl.RGBA)
	if desc.Format.IsDepth() {
		internal, format = gl.DEPTH_COMPONENT32F, gl.DEPTH_COMPONENT
	}
	filter := int32(gl.NEAREST)
	if desc.Filter == renderer.FilterLinear {
		filter = gl.LINEAR
	}

	var id uint32
	gl.GenTextures(1, &id)
	if id == 0 {
		return 0, fmt.Errorf("texture %q: %w", desc.Label, renderer.ErrAllocation)
	}
	gl.BindTexture(gl.TEXTURE_2D, id)
	gl.TexImage2D(gl.TEXTURE_2D, 0, int32(internal),
		int32(desc.Width), int32(desc.Height), 0, format, gl.FLOAT, nil)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, filter)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, filter)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	gl.BindTexture(gl.TEXTURE_2D, 0)

	if code := gl.GetError(); code != gl.NO_ERROR {
		gl.DeleteTextures(1, &id)
		return 0, fmt.Errorf("texture %q: 0x%X: %w", desc.Label, code, renderer.ErrAllocation)
	}
	d.textures[renderer.TextureID(id)] = &glTexture{id: id, desc: desc}
	return renderer.TextureID(id), nil
}

func (d *Device) WriteTexture(id renderer.TextureID, data []float32) error {
	t, ok := d.textures[id]
	if !ok {
		return fmt.Errorf("texture %d: %w", id, ErrUnknownResource)
	}
	if want := 4 * t.desc.Width * t.desc.Height; len(data) != want || t.desc.Format.IsDepth() {
		return fmt.Errorf("texture %q: %d floats, want %d: %w", t.desc.Label, len(data), want, renderer.ErrInvalidSize)
	}
	gl.BindTexture(gl.TEXTURE_2D, t.id)
	gl.TexSubImage2D(gl.TEXTURE_2D, 0, 0, 0,
		int32(t.desc.Width), int32(t.desc.Height), gl.RGBA, gl.FLOAT, gl.Ptr(data))
	gl.BindTexture(gl.TEXTURE_2D, 0)
	return nil
}

func (d *Device) DeleteTexture(id renderer.TextureID) {
	if t, ok := d.textures[id]; ok {
		gl.DeleteTextures(1, &t.id)
		delete(d.textures, id)
	}
}

// upload returns the GL copy of a scene texture, creating it on first use.
// Textures with no pixels read as white.
func (d *Device) upload(tex *core.Texture) uint32 {
	if id, ok := d.uploads[tex]; ok {
		return id
	}
	if tex.Width <= 0 || tex.Height <= 0 || len(tex.Pixels) < 4*tex.Width*tex.Height {
		return d.white
	}
	id := uploadRGBA8(tex.Name, tex.Width, tex.Height, tex.Pixels)
	d.uploads[tex] = id
	return id
}

// uploadRGBA8 creates a mipmapped, linearly filtered texture from 8-bit
// RGBA rows stored bottom row first.
func uploadRGBA8(name string, width, height int, pixels []uint8) uint32 {
	var id uint32
	gl.GenTextures(1, &id)
	gl.BindTexture(gl.TEXTURE_2D, id)

	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR_MIPMAP_LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)

	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA8,
		int32(width), int32(height), 0, gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(pixels))
	gl.GenerateMipmap(gl.TEXTURE_2D)
	gl.BindTexture(gl.TEXTURE_2D, 0)
	return id
}
