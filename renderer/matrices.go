package renderer

import "github.com/go-gl/mathgl/mgl32"

// CameraMatrices is the per-frame matrix set. Column-vector convention:
// clip = ViewProjection * world.
type CameraMatrices struct {
	View              mgl32.Mat4
	Projection        mgl32.Mat4
	ViewProjection    mgl32.Mat4
	InvProjection     mgl32.Mat4
	InvViewProjection mgl32.Mat4
	Near, Far         float32
}

// ComputeCameraMatrices derives the whole set from the camera in one step.
func ComputeCameraMatrices(cam Camera) CameraMatrices {
	view := cam.WorldMatrix().Inv()
	proj := cam.ProjectionMatrix()
	vp := proj.Mul4(view)
	return CameraMatrices{
		View:              view,
		Projection:        proj,
		ViewProjection:    vp,
		InvProjection:     proj.Inv(),
		InvViewProjection: vp.Inv(),
		Near:              cam.Near(),
		Far:               cam.Far(),
	}
}

// ReconstructWorld maps a UV in [0,1]² and a depth-buffer value in [0,1] back
// to world space.
func (m CameraMatrices) ReconstructWorld(u, v, depth float32) mgl32.Vec3 {
	ndc := mgl32.Vec4{u*2 - 1, v*2 - 1, depth*2 - 1, 1}
	p := m.InvViewProjection.Mul4x1(ndc)
	return p.Vec3().Mul(1 / p.W())
}
