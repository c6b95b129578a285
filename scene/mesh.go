package scene

import (
	"github.com/go-gl/mathgl/mgl32"

	"clustered-deferred/core"
)

// AABB is an axis-aligned box.
type AABB struct {
	Min, Max mgl32.Vec3
}

// Mesh pairs geometry with the material it is drawn with.
type Mesh struct {
	Data *core.MeshData
	// Material defaults to DefaultMaterial when nil.
	Material *Material

	LocalAABB    AABB
	HasLocalAABB bool
}

// CreateMeshFromData builds a Mesh and pre-computes its local-space AABB.
func CreateMeshFromData(name string, vertices []core.Vertex, indices []uint32) *Mesh {
	m := &Mesh{
		Data: &core.MeshData{Name: name, Vertices: vertices, Indices: indices},
	}
	if len(vertices) > 0 {
		m.LocalAABB = computeLocalAABB(vertices)
		m.HasLocalAABB = true
	}
	return m
}

func (m *Mesh) Name() string { return m.Data.Name }

// computeLocalAABB returns the tight AABB of the given vertex positions.
func computeLocalAABB(vertices []core.Vertex) AABB {
	b := AABB{Min: vertices[0].Position, Max: vertices[0].Position}
	for _, v := range vertices[1:] {
		for i := 0; i < 3; i++ {
			b.Min[i] = min(b.Min[i], v.Position[i])
			b.Max[i] = max(b.Max[i], v.Position[i])
		}
	}
	return b
}

// Draw binds the material and submits the mesh with the given model matrix.
func (m *Mesh) Draw(dl core.DrawList, model mgl32.Mat4) {
	mat := m.Material
	if mat == nil {
		mat = defaultMaterial
	}
	mat.Bind(dl)
	dl.DrawMesh(m.Data, model)
}
