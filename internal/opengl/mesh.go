package opengl

import (
	"unsafe"

	gl "github.com/go-gl/gl/v4.1-core/gl"

	"clustered-deferred/core"
)

// gpuMesh holds the OpenGL buffer objects for an uploaded mesh.
type gpuMesh struct {
	vao, vbo, ebo uint32
	count         int32
	indexed       bool
}

func (m *gpuMesh) release() {
	gl.DeleteVertexArrays(1, &m.vao)
	gl.DeleteBuffers(1, &m.vbo)
	if m.ebo != 0 {
		gl.DeleteBuffers(1, &m.ebo)
	}
}

// ensureUploaded returns the GPU copy of mesh, uploading it on first draw.
// Attribute locations: 0 position, 1 normal, 2 uv.
func (d *Device) ensureUploaded(mesh *core.MeshData) *gpuMesh {
	if gpu, ok := d.meshes[mesh]; ok {
		return gpu
	}
	if len(mesh.Vertices) == 0 {
		return nil
	}

	stride := int32(unsafe.Sizeof(core.Vertex{}))
	gpu := &gpuMesh{indexed: len(mesh.Indices) > 0}
	if gpu.indexed {
		gpu.count = int32(len(mesh.Indices))
	} else {
		gpu.count = int32(len(mesh.Vertices))
	}

	gl.GenVertexArrays(1, &gpu.vao)
	gl.GenBuffers(1, &gpu.vbo)
	gl.BindVertexArray(gpu.vao)

	gl.BindBuffer(gl.ARRAY_BUFFER, gpu.vbo)
	gl.BufferData(gl.ARRAY_BUFFER, len(mesh.Vertices)*int(stride), gl.Ptr(mesh.Vertices), gl.STATIC_DRAW)

	var v core.Vertex
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointer(0, 3, gl.FLOAT, false, stride, gl.PtrOffset(int(unsafe.Offsetof(v.Position))))
	gl.EnableVertexAttribArray(1)
	gl.VertexAttribPointer(1, 3, gl.FLOAT, false, stride, gl.PtrOffset(int(unsafe.Offsetof(v.Normal))))
	gl.EnableVertexAttribArray(2)
	gl.VertexAttribPointer(2, 2, gl.FLOAT, false, stride, gl.PtrOffset(int(unsafe.Offsetof(v.UV))))

	if gpu.indexed {
		gl.GenBuffers(1, &gpu.ebo)
		gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, gpu.ebo)
		gl.BufferData(gl.ELEMENT_ARRAY_BUFFER, len(mesh.Indices)*4, gl.Ptr(mesh.Indices), gl.STATIC_DRAW)
	}
	gl.BindVertexArray(0)

	d.meshes[mesh] = gpu
	return gpu
}

// ReleaseMesh frees the GPU copy of mesh, if any.
func (d *Device) ReleaseMesh(mesh *core.MeshData) {
	if gpu, ok := d.meshes[mesh]; ok {
		gpu.release()
		delete(d.meshes, mesh)
	}
}
