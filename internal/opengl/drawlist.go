package opengl

import (
	"fmt"

	gl "github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/mathgl/mgl32"

	"clustered-deferred/core"
	"clustered-deferred/renderer"
)

// drawList forwards scene draws to the program bound for the pass. Inputs
// the program does not declare are ignored.
type drawList struct {
	dev  *Device
	prog *glProgram
	pass *renderer.Pass
	err  error
}

func (dl *drawList) Program() string { return dl.prog.kind.String() }

func (dl *drawList) SetTexture(sampler string, tex *core.Texture) {
	if tex == nil {
		return
	}
	slot, ok := dl.prog.samplers[sampler]
	if !ok {
		return
	}
	gl.ActiveTexture(gl.TEXTURE0 + uint32(slot))
	gl.BindTexture(gl.TEXTURE_2D, dl.dev.upload(tex))
	gl.ActiveTexture(gl.TEXTURE0)
}

func (dl *drawList) SetColor(uniform string, c core.Color) {
	if loc, ok := dl.prog.locations[uniform]; ok && loc >= 0 {
		gl.Uniform4f(loc, c.R, c.G, c.B, c.A)
	}
}

func (dl *drawList) SetFloat(uniform string, v float32) {
	if loc, ok := dl.prog.locations[uniform]; ok && loc >= 0 {
		gl.Uniform1f(loc, v)
	}
}

// DrawMesh draws mesh with the program's surface stage: g-buffer output for
// the geometry program, flat u_albedo for the composite overlay.
func (dl *drawList) DrawMesh(mesh *core.MeshData, model mgl32.Mat4) {
	if dl.err != nil || mesh == nil {
		return
	}
	switch dl.prog.kind {
	case renderer.ProgramGeometry:
	case renderer.ProgramComposite:
		gl.Uniform1i(dl.prog.overlay, 1)
	default:
		dl.err = fmt.Errorf("%s: program has no surface stage: %w", dl.prog.kind, renderer.ErrUnknownProgram)
		return
	}
	gpu := dl.dev.ensureUploaded(mesh)
	if gpu == nil {
		return
	}
	if dl.prog.modelLoc >= 0 {
		gl.UniformMatrix4fv(dl.prog.modelLoc, 1, false, &model[0])
	}
	gl.BindVertexArray(gpu.vao)
	if gpu.indexed {
		gl.DrawElements(gl.TRIANGLES, gpu.count, gl.UNSIGNED_INT, nil)
	} else {
		gl.DrawArrays(gl.TRIANGLES, 0, gpu.count)
	}
	gl.BindVertexArray(0)
}
