package opengl

import (
	"fmt"

	gl "github.com/go-gl/gl/v4.1-core/gl"
	"go.uber.org/zap"

	"clustered-deferred/renderer"
)

// CreateFramebuffer attaches depth and colors in order and enables one draw
// buffer per color attachment.
func (d *Device) CreateFramebuffer(label string, depth renderer.TextureID, colors []renderer.TextureID) (renderer.FramebufferID, error) {
	fb := &glFramebuffer{label: label, attached: make(map[renderer.TextureID]bool, len(colors)+1)}

	var w, h int
	check := func(id renderer.TextureID, wantDepth bool) (*glTexture, error) {
		t, ok := d.textures[id]
		if !ok {
			return nil, fmt.Errorf("framebuffer %q attachment %d: %w", label, id, ErrUnknownResource)
		}
		if t.desc.Format.IsDepth() != wantDepth {
			return nil, fmt.Errorf("framebuffer %q: %s attached as wrong kind: %w", label, t.desc.Format, renderer.ErrIncompleteFramebuffer)
		}
		if w == 0 {
			w, h = t.desc.Width, t.desc.Height
		} else if t.desc.Width != w || t.desc.Height != h {
			return nil, fmt.Errorf("framebuffer %q: attachment sizes differ: %w", label, renderer.ErrIncompleteFramebuffer)
		}
		fb.attached[id] = true
		return t, nil
	}

	gl.GenFramebuffers(1, &fb.id)
	gl.BindFramebuffer(gl.FRAMEBUFFER, fb.id)
	defer gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	fail := func(err error) (renderer.FramebufferID, error) {
		gl.DeleteFramebuffers(1, &fb.id)
		return 0, err
	}

	if depth != 0 {
		t, err := check(depth, true)
		if err != nil {
			return fail(err)
		}
		gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.DEPTH_ATTACHMENT, gl.TEXTURE_2D, t.id, 0)
	}
	buffers := make([]uint32, len(colors))
	for i, c := range colors {
		t, err := check(c, false)
		if err != nil {
			return fail(err)
		}
		buffers[i] = gl.COLOR_ATTACHMENT0 + uint32(i)
		gl.FramebufferTexture2D(gl.FRAMEBUFFER, buffers[i], gl.TEXTURE_2D, t.id, 0)
	}
	if len(buffers) > 0 {
		gl.DrawBuffers(int32(len(buffers)), &buffers[0])
	} else {
		gl.DrawBuffer(gl.NONE)
		gl.ReadBuffer(gl.NONE)
	}

	if status := gl.CheckFramebufferStatus(gl.FRAMEBUFFER); status != gl.FRAMEBUFFER_COMPLETE {
		return fail(fmt.Errorf("framebuffer %q: status=0x%X: %w", label, status, renderer.ErrIncompleteFramebuffer))
	}
	d.framebuffers[renderer.FramebufferID(fb.id)] = fb
	d.log.Debug("framebuffer created", zap.String("label", label), zap.Int("colors", len(colors)), zap.Int("width", w), zap.Int("height", h))
	return renderer.FramebufferID(fb.id), nil
}

func (d *Device) DeleteFramebuffer(id renderer.FramebufferID) {
	if fb, ok := d.framebuffers[id]; ok {
		gl.DeleteFramebuffers(1, &fb.id)
		delete(d.framebuffers, id)
	}
}
