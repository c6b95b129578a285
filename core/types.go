package core

import (
	"github.com/go-gl/mathgl/mgl32"
)

type Color struct {
	R, G, B, A float32
}

var (
	ColorWhite = Color{1, 1, 1, 1}
	ColorBlack = Color{0, 0, 0, 1}
)

// Vec3 returns the colour's RGB channels.
func (c Color) Vec3() mgl32.Vec3 {
	return mgl32.Vec3{c.R, c.G, c.B}
}

type Vertex struct {
	Position mgl32.Vec3
	Normal   mgl32.Vec3
	UV       mgl32.Vec2
}

// MeshData is CPU-side triangle geometry. Backends upload it lazily and key
// their GPU copies by pointer, so a MeshData must not be copied once drawn.
type MeshData struct {
	Name     string
	Vertices []Vertex
	Indices  []uint32
}

// TriangleCount returns the number of triangles described by the mesh.
func (m *MeshData) TriangleCount() int {
	if len(m.Indices) > 0 {
		return len(m.Indices) / 3
	}
	return len(m.Vertices) / 3
}

// Triangle returns the vertex indices of triangle i.
func (m *MeshData) Triangle(i int) (uint32, uint32, uint32) {
	if len(m.Indices) > 0 {
		return m.Indices[3*i], m.Indices[3*i+1], m.Indices[3*i+2]
	}
	n := uint32(3 * i)
	return n, n + 1, n + 2
}

// Texture is an 8-bit RGBA image owned by the scene. Backends upload it on
// first use.
type Texture struct {
	Name   string
	Width  int
	Height int
	Pixels []uint8
}

// Light is a point light record. Position is in world space.
type Light struct {
	Position mgl32.Vec3
	Radius   float32
	Color    mgl32.Vec3
}

// DrawList receives draw submissions from a scene while a pass is active.
// Texture and uniform names refer to inputs declared by the bound program.
type DrawList interface {
	// Program names the program the pass has bound (e.g. "geometry", "composite").
	Program() string
	SetTexture(sampler string, tex *Texture)
	SetColor(uniform string, c Color)
	SetFloat(uniform string, v float32)
	DrawMesh(mesh *MeshData, model mgl32.Mat4)
}
