package renderer

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// ClusterProvider assigns lights to clusters and owns the texture the shading
// pass reads. It must partition space with the same ClusterGrid the shading
// program was created with.
type ClusterProvider interface {
	Refresh(cam Camera, view mgl32.Mat4, scene Scene) error
	Texture() TextureID
}

// ClusterGrid is the froxel partition shared by the cluster provider and the
// shading program. X and Y slice the screen uniformly. Z slice 0 covers view
// depths [near, SpecialNear); slices 1..Z-1 split [SpecialNear, far] evenly.
type ClusterGrid struct {
	X, Y, Z             int
	MaxLightsPerCluster int
	SpecialNear         float32
}

func (g ClusterGrid) Validate() error {
	if g.X <= 0 || g.Y <= 0 || g.Z <= 0 {
		return fmt.Errorf("cluster grid %dx%dx%d: %w", g.X, g.Y, g.Z, ErrInvalidSize)
	}
	if g.MaxLightsPerCluster <= 0 {
		return fmt.Errorf("cluster grid: max lights per cluster %d: %w", g.MaxLightsPerCluster, ErrInvalidSize)
	}
	if g.SpecialNear <= 0 {
		return fmt.Errorf("cluster grid: special near %v: %w", g.SpecialNear, ErrInvalidSize)
	}
	return nil
}

// Count is the number of clusters.
func (g ClusterGrid) Count() int { return g.X * g.Y * g.Z }

// ElementSize is the number of floats per cluster: the count then the indices.
func (g ClusterGrid) ElementSize() int { return g.MaxLightsPerCluster + 1 }

// Index linearises a cluster coordinate.
func (g ClusterGrid) Index(x, y, z int) int { return x + y*g.X + z*g.X*g.Y }

// Slice returns the z slice containing a positive view depth.
func (g ClusterGrid) Slice(depth, near, far float32) int {
	if depth < g.SpecialNear || g.Z == 1 {
		return 0
	}
	span := far - g.SpecialNear
	if span <= 0 {
		return g.Z - 1
	}
	z := 1 + int((depth-g.SpecialNear)/span*float32(g.Z-1))
	return clampInt(z, 0, g.Z-1)
}

// SliceRange returns the view-depth interval covered by slice z.
func (g ClusterGrid) SliceRange(z int, near, far float32) (float32, float32) {
	if z == 0 {
		if g.Z == 1 {
			return near, far
		}
		return near, g.SpecialNear
	}
	step := (far - g.SpecialNear) / float32(g.Z-1)
	return g.SpecialNear + float32(z-1)*step, g.SpecialNear + float32(z)*step
}

// Cell returns the cluster containing a fragment at pixel centre (fx, fy),
// origin bottom-left, with positive view depth.
func (g ClusterGrid) Cell(fx, fy float32, width, height int, depth, near, far float32) (int, int, int) {
	x := clampInt(int(fx/float32(width)*float32(g.X)), 0, g.X-1)
	y := clampInt(int(fy/float32(height)*float32(g.Y)), 0, g.Y-1)
	return x, y, g.Slice(depth, near, far)
}

// NewClusterBuffer allocates the lookup texture for the grid.
func NewClusterBuffer(dev Device, g ClusterGrid) (*TextureBuffer, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return NewTextureBuffer(dev, "clusters", g.Count(), g.ElementSize())
}

// DecodeCluster appends the light indices stored for cluster to dst. It
// mirrors the shading program's fetch loop and tolerates empty clusters.
func DecodeCluster(data []float32, width, cluster, maxLights int, dst []int) []int {
	n := int(data[4*cluster])
	if n > maxLights {
		n = maxLights
	}
	for k := 1; k <= n; k++ {
		row, comp := k/4, k%4
		dst = append(dst, int(data[4*cluster+4*row*width+comp]))
	}
	return dst
}

// EncodeCluster writes indices for cluster into tb, truncating to maxLights.
// It returns the number of indices stored.
func EncodeCluster(tb *TextureBuffer, cluster, maxLights int, indices []int) int {
	n := len(indices)
	if n > maxLights {
		n = maxLights
	}
	tb.Buffer[tb.Index(cluster, 0)] = float32(n)
	for k := 1; k <= n; k++ {
		row, comp := k/4, k%4
		tb.Buffer[tb.Index(cluster, row)+comp] = float32(indices[k-1])
	}
	return n
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
