package scene

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"clustered-deferred/core"
)

// CreatePlane generates a horizontal square facing +Y, centred on the origin,
// subdivided into divisions² cells.
func CreatePlane(size float32, divisions int) *Mesh {
	if divisions < 1 {
		divisions = 1
	}
	half := size / 2
	step := size / float32(divisions)

	var vertices []core.Vertex
	var indices []uint32
	for j := 0; j <= divisions; j++ {
		for i := 0; i <= divisions; i++ {
			vertices = append(vertices, core.Vertex{
				Position: mgl32.Vec3{-half + float32(i)*step, 0, -half + float32(j)*step},
				Normal:   mgl32.Vec3{0, 1, 0},
				UV:       mgl32.Vec2{float32(i) / float32(divisions), float32(j) / float32(divisions)},
			})
		}
	}
	row := uint32(divisions + 1)
	for j := 0; j < divisions; j++ {
		for i := 0; i < divisions; i++ {
			a := uint32(j)*row + uint32(i)
			b := a + row
			indices = append(indices, a, b, a+1, a+1, b, b+1)
		}
	}
	return CreateMeshFromData("Plane", vertices, indices)
}

// CreateQuad is a unit square in the XY plane facing +Z.
func CreateQuad() *Mesh {
	n := mgl32.Vec3{0, 0, 1}
	vertices := []core.Vertex{
		{Position: mgl32.Vec3{-0.5, -0.5, 0}, Normal: n, UV: mgl32.Vec2{0, 0}},
		{Position: mgl32.Vec3{0.5, -0.5, 0}, Normal: n, UV: mgl32.Vec2{1, 0}},
		{Position: mgl32.Vec3{0.5, 0.5, 0}, Normal: n, UV: mgl32.Vec2{1, 1}},
		{Position: mgl32.Vec3{-0.5, 0.5, 0}, Normal: n, UV: mgl32.Vec2{0, 1}},
	}
	return CreateMeshFromData("Quad", vertices, []uint32{0, 1, 2, 2, 3, 0})
}

// CreateCube generates an axis-aligned cube with per-face normals.
func CreateCube(size float32) *Mesh {
	s := size / 2
	faces := []struct {
		normal, u, v mgl32.Vec3
	}{
		{mgl32.Vec3{0, 0, 1}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 1, 0}},
		{mgl32.Vec3{0, 0, -1}, mgl32.Vec3{-1, 0, 0}, mgl32.Vec3{0, 1, 0}},
		{mgl32.Vec3{0, 1, 0}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 0, -1}},
		{mgl32.Vec3{0, -1, 0}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 0, 1}},
		{mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 0, -1}, mgl32.Vec3{0, 1, 0}},
		{mgl32.Vec3{-1, 0, 0}, mgl32.Vec3{0, 0, 1}, mgl32.Vec3{0, 1, 0}},
	}
	corners := [4][2]float32{{-1, -1}, {1, -1}, {1, 1}, {-1, 1}}

	var vertices []core.Vertex
	var indices []uint32
	for _, f := range faces {
		base := uint32(len(vertices))
		for _, c := range corners {
			p := f.normal.Add(f.u.Mul(c[0])).Add(f.v.Mul(c[1])).Mul(s)
			vertices = append(vertices, core.Vertex{
				Position: p,
				Normal:   f.normal,
				UV:       mgl32.Vec2{(c[0] + 1) / 2, (c[1] + 1) / 2},
			})
		}
		indices = append(indices, base, base+1, base+2, base+2, base+3, base)
	}
	return CreateMeshFromData("Cube", vertices, indices)
}

// CreateSphere generates a UV-sphere mesh
func CreateSphere(radius float32, segments, rings int) *Mesh {
	if segments < 3 {
		segments = 3
	}
	if rings < 2 {
		rings = 2
	}

	var vertices []core.Vertex
	var indices []uint32

	for ring := 0; ring <= rings; ring++ {
		phi := float64(ring) * math.Pi / float64(rings)
		sinPhi := float32(math.Sin(phi))
		cosPhi := float32(math.Cos(phi))

		for seg := 0; seg <= segments; seg++ {
			theta := float64(seg) * 2.0 * math.Pi / float64(segments)
			sinTheta := float32(math.Sin(theta))
			cosTheta := float32(math.Cos(theta))

			normal := mgl32.Vec3{sinPhi * cosTheta, cosPhi, sinPhi * sinTheta}
			vertices = append(vertices, core.Vertex{
				Position: normal.Mul(radius),
				Normal:   normal,
				UV:       mgl32.Vec2{float32(seg) / float32(segments), float32(ring) / float32(rings)},
			})
		}
	}

	for ring := 0; ring < rings; ring++ {
		for seg := 0; seg < segments; seg++ {
			current := uint32(ring*(segments+1) + seg)
			next := current + uint32(segments+1)

			indices = append(indices, current, current+1, next)
			indices = append(indices, current+1, next+1, next)
		}
	}

	return CreateMeshFromData("Sphere", vertices, indices)
}
