package main

import (
	"github.com/go-gl/mathgl/mgl32"

	"clustered-deferred/core"
	"clustered-deferred/scene"
)

// CameraController maps mouse and keyboard input onto an orbit camera:
// right-drag orbits, scroll zooms, WASD/QE pan the orbit target.
type CameraController struct {
	orbit      *scene.OrbitController
	moveSpeed  float32
	lookSpeed  float32
	zoomSpeed  float32
	lastMouseX float64
	lastMouseY float64
	firstMouse bool
	scroll     float64
}

func NewCameraController(window *core.Window, cam *scene.Camera, target mgl32.Vec3) *CameraController {
	cc := &CameraController{
		orbit:      scene.NewOrbitController(cam, target),
		moveSpeed:  8.0,
		lookSpeed:  0.005,
		zoomSpeed:  1.0,
		firstMouse: true,
	}
	window.SetScrollCallback(func(_, yoff float64) { cc.scroll += yoff })
	return cc
}

func (cc *CameraController) Update(window *core.Window, cam *scene.Camera, deltaTime float32) {
	// Cap deltaTime so a hitch does not fling the camera
	if deltaTime > 0.05 {
		deltaTime = 0.05
	}

	if window.IsMouseButtonPressed(1) {
		mouseX, mouseY := window.GetCursorPos()
		if cc.firstMouse {
			cc.lastMouseX, cc.lastMouseY = mouseX, mouseY
			cc.firstMouse = false
		}
		cc.orbit.Orbit(
			-float32(mouseX-cc.lastMouseX)*cc.lookSpeed,
			float32(mouseY-cc.lastMouseY)*cc.lookSpeed)
		cc.lastMouseX, cc.lastMouseY = mouseX, mouseY
	} else {
		cc.firstMouse = true
	}

	if cc.scroll != 0 {
		cc.orbit.Zoom(-float32(cc.scroll) * cc.zoomSpeed)
		cc.scroll = 0
	}

	// Pan along the camera's level forward and right axes.
	forward := cam.Forward()
	forward = mgl32.Vec3{forward.X(), 0, forward.Z()}
	if forward.Len() > 0 {
		forward = forward.Normalize()
	}
	right := cam.Right()
	step := cc.moveSpeed * deltaTime
	var move mgl32.Vec3
	if window.IsKeyPressed(core.KeyW) {
		move = move.Add(forward.Mul(step))
	}
	if window.IsKeyPressed(core.KeyS) {
		move = move.Sub(forward.Mul(step))
	}
	if window.IsKeyPressed(core.KeyD) {
		move = move.Add(right.Mul(step))
	}
	if window.IsKeyPressed(core.KeyA) {
		move = move.Sub(right.Mul(step))
	}
	if window.IsKeyPressed(core.KeyE) {
		move = move.Add(mgl32.Vec3{0, step, 0})
	}
	if window.IsKeyPressed(core.KeyQ) {
		move = move.Sub(mgl32.Vec3{0, step, 0})
	}
	cc.orbit.Target = cc.orbit.Target.Add(move)
	cc.orbit.Apply(cam)
}
