package main

import (
	"github.com/go-gl/mathgl/mgl32"

	"voxel-renderer/core"
	"voxel-renderer/input"
	"voxel-renderer/scene"
)

// cameraController flies the camera: WASD to move, Space and Left Shift
// for up and down, right mouse drag to look, scroll wheel for speed.
type cameraController struct {
	moveSpeed float32
	lookSpeed float32
}

var controllerKeys = []int{
	core.KeyW, core.KeyA, core.KeyS, core.KeyD,
	core.KeySpace, core.KeyLeftShift, core.KeyEscape,
}

func newCameraController() *cameraController {
	return &cameraController{
		moveSpeed: 8.0,
		lookSpeed: 0.003,
	}
}

func (cc *cameraController) Update(in *input.Handler, camera *scene.Camera, deltaTime float32) {
	// Cap deltaTime so a hitch does not teleport the camera
	if deltaTime > 0.05 {
		deltaTime = 0.05
	}

	if in.ScrollDelta != 0 {
		cc.moveSpeed = mgl32.Clamp(cc.moveSpeed*(1+float32(in.ScrollDelta)*0.1), 0.5, 100)
	}

	if in.IsMouseDown(input.MouseRight) {
		camera.Rotate(float32(in.MouseDeltaX)*cc.lookSpeed, -float32(in.MouseDeltaY)*cc.lookSpeed)
	}

	forward := camera.Forward()
	// Strafing and walking stay level regardless of pitch
	forward = mgl32.Vec3{forward.X(), 0, forward.Z()}
	if forward.Len() > 0 {
		forward = forward.Normalize()
	}
	right := camera.Right()

	var move mgl32.Vec3
	if in.IsKeyDown(core.KeyW) {
		move = move.Add(forward)
	}
	if in.IsKeyDown(core.KeyS) {
		move = move.Sub(forward)
	}
	if in.IsKeyDown(core.KeyD) {
		move = move.Add(right)
	}
	if in.IsKeyDown(core.KeyA) {
		move = move.Sub(right)
	}
	if in.IsKeyDown(core.KeySpace) {
		move = move.Add(mgl32.Vec3{0, 1, 0})
	}
	if in.IsKeyDown(core.KeyLeftShift) {
		move = move.Sub(mgl32.Vec3{0, 1, 0})
	}
	if move.Len() == 0 {
		return
	}
	camera.Translate(move.Normalize().Mul(cc.moveSpeed * deltaTime))
}
