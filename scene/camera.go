package scene

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"clustered-deferred/core"
)

// Camera is a perspective camera placed by position, yaw and pitch. At zero
// yaw and pitch it looks down -Z with +Y up.
type Camera struct {
	Position    mgl32.Vec3
	Yaw         float32 // radians about +Y
	Pitch       float32 // radians about the camera's right axis
	FOV         float32 // vertical, radians
	AspectRatio float32
	NearPlane   float32
	FarPlane    float32
}

func NewCamera(fov, aspectRatio, nearPlane, farPlane float32) *Camera {
	return &Camera{
		FOV:         fov,
		AspectRatio: aspectRatio,
		NearPlane:   nearPlane,
		FarPlane:    farPlane,
	}
}

// NewCameraFromConfig builds the camera described by cfg for a width×height
// output.
func NewCameraFromConfig(cfg core.CameraConfig, width, height int) *Camera {
	c := NewCamera(mgl32.DegToRad(cfg.FOV), 1, cfg.Near, cfg.Far)
	c.UpdateAspectRatio(float32(width), float32(height))
	c.Position = mgl32.Vec3(cfg.Position)
	c.LookAt(mgl32.Vec3(cfg.Target))
	return c
}

func (c *Camera) UpdateAspectRatio(width, height float32) {
	if height > 0 {
		c.AspectRatio = width / height
	}
}

func (c *Camera) Translate(delta mgl32.Vec3) {
	c.Position = c.Position.Add(delta)
}

// LookAt turns the camera toward target. Looking straight up or down keeps
// the current yaw.
func (c *Camera) LookAt(target mgl32.Vec3) {
	dir := target.Sub(c.Position)
	if dir.Len() == 0 {
		return
	}
	dir = dir.Normalize()
	c.Pitch = float32(math.Asin(float64(mgl32.Clamp(dir.Y(), -1, 1))))
	if math.Abs(float64(dir.Y())) < 0.9999 {
		c.Yaw = float32(math.Atan2(float64(-dir.X()), float64(-dir.Z())))
	}
}

func (c *Camera) rotation() mgl32.Mat4 {
	return mgl32.HomogRotate3DY(c.Yaw).Mul4(mgl32.HomogRotate3DX(c.Pitch))
}

// WorldMatrix places the camera in the world.
func (c *Camera) WorldMatrix() mgl32.Mat4 {
	return mgl32.Translate3D(c.Position.X(), c.Position.Y(), c.Position.Z()).Mul4(c.rotation())
}

func (c *Camera) ViewMatrix() mgl32.Mat4 {
	return c.WorldMatrix().Inv()
}

func (c *Camera) ProjectionMatrix() mgl32.Mat4 {
	return mgl32.Perspective(c.FOV, c.AspectRatio, c.NearPlane, c.FarPlane)
}

func (c *Camera) Near() float32 { return c.NearPlane }

func (c *Camera) Far() float32 { return c.FarPlane }

func (c *Camera) Forward() mgl32.Vec3 {
	return c.rotation().Mul4x1(mgl32.Vec4{0, 0, -1, 0}).Vec3()
}

func (c *Camera) Right() mgl32.Vec3 {
	return c.rotation().Mul4x1(mgl32.Vec4{1, 0, 0, 0}).Vec3()
}

func (c *Camera) Up() mgl32.Vec3 {
	return c.rotation().Mul4x1(mgl32.Vec4{0, 1, 0, 0}).Vec3()
}

// OrbitController drives a Camera around a target point.
type OrbitController struct {
	Target   mgl32.Vec3
	Distance float32
	Yaw      float32
	Pitch    float32
}

// NewOrbitController starts orbiting from the camera's current placement.
func NewOrbitController(cam *Camera, target mgl32.Vec3) *OrbitController {
	offset := cam.Position.Sub(target)
	o := &OrbitController{Target: target, Distance: offset.Len()}
	if o.Distance > 0 {
		o.Pitch = float32(math.Asin(float64(mgl32.Clamp(offset.Y()/o.Distance, -1, 1))))
		o.Yaw = float32(math.Atan2(float64(offset.X()), float64(offset.Z())))
	}
	return o
}

// Apply moves cam onto the orbit and points it at the target.
func (o *OrbitController) Apply(cam *Camera) {
	// Clamp pitch
	if o.Pitch > 1.5 {
		o.Pitch = 1.5
	}
	if o.Pitch < -1.5 {
		o.Pitch = -1.5
	}

	cosPitch := float32(math.Cos(float64(o.Pitch)))
	sinPitch := float32(math.Sin(float64(o.Pitch)))
	cosYaw := float32(math.Cos(float64(o.Yaw)))
	sinYaw := float32(math.Sin(float64(o.Yaw)))

	offset := mgl32.Vec3{
		o.Distance * cosPitch * sinYaw,
		o.Distance * sinPitch,
		o.Distance * cosPitch * cosYaw,
	}
	cam.Position = o.Target.Add(offset)
	cam.LookAt(o.Target)
}

func (o *OrbitController) Orbit(deltaYaw, deltaPitch float32) {
	o.Yaw += deltaYaw
	o.Pitch += deltaPitch
}

func (o *OrbitController) Zoom(delta float32) {
	o.Distance += delta
	if o.Distance < 0.1 {
		o.Distance = 0.1
	}
}
