// Package clusters assigns point lights to the froxel grid on the CPU and
// publishes the result as the cluster lookup texture.
package clusters

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"clustered-deferred/renderer"
)

// Bounds is a view-space axis-aligned box.
type Bounds struct {
	Min, Max mgl32.Vec3
}

// Assigner is the reference renderer.ClusterProvider. Each refresh tests every
// light's view-space sphere against the boxes of the clusters its depth range
// overlaps.
type Assigner struct {
	grid renderer.ClusterGrid
	tb   *renderer.TextureBuffer
	log  *zap.Logger

	lists     [][]int
	overflows int
}

// NewAssigner allocates the cluster texture for grid on dev.
func NewAssigner(dev renderer.Device, grid renderer.ClusterGrid, log *zap.Logger) (*Assigner, error) {
	tb, err := renderer.NewClusterBuffer(dev, grid)
	if err != nil {
		return nil, fmt.Errorf("clusters: %w", err)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Assigner{
		grid:  grid,
		tb:    tb,
		log:   log,
		lists: make([][]int, grid.Count()),
	}, nil
}

func (a *Assigner) Grid() renderer.ClusterGrid { return a.grid }

// Texture is the cluster lookup texture.
func (a *Assigner) Texture() renderer.TextureID { return a.tb.Texture }

// Overflows is the number of clusters truncated at MaxLightsPerCluster in
// the last refresh.
func (a *Assigner) Overflows() int { return a.overflows }

// Lights returns the light indices stored for cluster (x, y, z).
func (a *Assigner) Lights(x, y, z int) []int {
	return renderer.DecodeCluster(a.tb.Buffer, a.tb.Width, a.grid.Index(x, y, z), a.grid.MaxLightsPerCluster, nil)
}

// Refresh rebuilds every cluster list from the scene's lights and uploads the
// texture once.
func (a *Assigner) Refresh(cam renderer.Camera, view mgl32.Mat4, scene renderer.Scene) error {
	for i := range a.lists {
		a.lists[i] = a.lists[i][:0]
	}
	proj := cam.ProjectionMatrix()
	near, far := cam.Near(), cam.Far()

	for li, l := range scene.Lights() {
		center := view.Mul4x1(l.Position.Vec4(1)).Vec3()
		depth := -center.Z()
		if depth+l.Radius < near || depth-l.Radius > far {
			continue
		}
		z0 := a.grid.Slice(max(depth-l.Radius, near), near, far)
		z1 := a.grid.Slice(min(depth+l.Radius, far), near, far)
		for z := z0; z <= z1; z++ {
			for y := 0; y < a.grid.Y; y++ {
				for x := 0; x < a.grid.X; x++ {
					b := ClusterBounds(a.grid, proj, near, far, x, y, z)
					if SphereIntersects(b, center, l.Radius) {
						idx := a.grid.Index(x, y, z)
						a.lists[idx] = append(a.lists[idx], li)
					}
				}
			}
		}
	}

	a.overflows = 0
	for i, list := range a.lists {
		if n := renderer.EncodeCluster(a.tb, i, a.grid.MaxLightsPerCluster, list); n < len(list) {
			a.overflows++
		}
	}
	if a.overflows > 0 {
		a.log.Debug("cluster light lists truncated",
			zap.Int("clusters", a.overflows),
			zap.Int("max_lights", a.grid.MaxLightsPerCluster))
	}
	if err := a.tb.Upload(); err != nil {
		return fmt.Errorf("clusters: upload: %w", err)
	}
	return nil
}

// Destroy releases the cluster texture.
func (a *Assigner) Destroy() { a.tb.Destroy() }

// ClusterBounds returns the view-space box enclosing cluster (x, y, z) for a
// perspective projection. View space looks down -Z.
func ClusterBounds(g renderer.ClusterGrid, proj mgl32.Mat4, near, far float32, x, y, z int) Bounds {
	d0, d1 := g.SliceRange(z, near, far)
	nx0 := 2*float32(x)/float32(g.X) - 1
	nx1 := 2*float32(x+1)/float32(g.X) - 1
	ny0 := 2*float32(y)/float32(g.Y) - 1
	ny1 := 2*float32(y+1)/float32(g.Y) - 1

	// ndc.x = (P00*x + P02*z) / -z, so at depth d: x = (ndc.x + P02) * d / P00.
	p00, p02 := proj.At(0, 0), proj.At(0, 2)
	p11, p12 := proj.At(1, 1), proj.At(1, 2)
	xs := [4]float32{
		(nx0 + p02) * d0 / p00, (nx1 + p02) * d0 / p00,
		(nx0 + p02) * d1 / p00, (nx1 + p02) * d1 / p00,
	}
	ys := [4]float32{
		(ny0 + p12) * d0 / p11, (ny1 + p12) * d0 / p11,
		(ny0 + p12) * d1 / p11, (ny1 + p12) * d1 / p11,
	}
	b := Bounds{
		Min: mgl32.Vec3{xs[0], ys[0], -d1},
		Max: mgl32.Vec3{xs[0], ys[0], -d0},
	}
	for i := 1; i < 4; i++ {
		b.Min[0] = min(b.Min[0], xs[i])
		b.Max[0] = max(b.Max[0], xs[i])
		b.Min[1] = min(b.Min[1], ys[i])
		b.Max[1] = max(b.Max[1], ys[i])
	}
	return b
}

// SphereIntersects reports whether a sphere touches the box.
func SphereIntersects(b Bounds, center mgl32.Vec3, radius float32) bool {
	var d2 float32
	for i := 0; i < 3; i++ {
		c := center[i]
		if c < b.Min[i] {
			d := b.Min[i] - c
			d2 += d * d
		} else if c > b.Max[i] {
			d := c - b.Max[i]
			d2 += d * d
		}
	}
	return d2 <= radius*radius
}
