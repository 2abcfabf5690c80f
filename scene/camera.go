package scene

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Camera is a first-person view camera. Matrices are rebuilt lazily after a
// change; the frustum only when RecalculateFrustum is called, once per frame.
type Camera struct {
	Position    mgl32.Vec3
	Yaw         float32 // radians around +Y, zero looks down -Z
	Pitch       float32 // radians, clamped to just under ±90°
	FOV         float32 // vertical, degrees
	AspectRatio float32
	NearPlane   float32
	FarPlane    float32

	viewMatrix       mgl32.Mat4
	projectionMatrix mgl32.Mat4
	frustum          Frustum
	dirty            bool
}

func NewCamera(fov, aspectRatio, nearPlane, farPlane float32) *Camera {
	return &Camera{
		FOV:         fov,
		AspectRatio: aspectRatio,
		NearPlane:   nearPlane,
		FarPlane:    farPlane,
		dirty:       true,
	}
}

func (c *Camera) UpdateAspectRatio(width, height float32) {
	if height > 0 {
		c.AspectRatio = width / height
		c.dirty = true
	}
}

func (c *Camera) SetPosition(pos mgl32.Vec3) {
	c.Position = pos
	c.dirty = true
}

func (c *Camera) Translate(delta mgl32.Vec3) {
	c.Position = c.Position.Add(delta)
	c.dirty = true
}

// Rotate turns the camera by the given yaw and pitch deltas in radians.
func (c *Camera) Rotate(deltaYaw, deltaPitch float32) {
	const limit = math.Pi/2 - 0.01
	c.Yaw += deltaYaw
	c.Pitch = mgl32.Clamp(c.Pitch+deltaPitch, -limit, limit)
	c.dirty = true
}

func (c *Camera) Forward() mgl32.Vec3 {
	cp, sp := float32(math.Cos(float64(c.Pitch))), float32(math.Sin(float64(c.Pitch)))
	cy, sy := float32(math.Cos(float64(c.Yaw))), float32(math.Sin(float64(c.Yaw)))
	return mgl32.Vec3{sy * cp, sp, -cy * cp}
}

func (c *Camera) Right() mgl32.Vec3 {
	return c.Forward().Cross(mgl32.Vec3{0, 1, 0}).Normalize()
}

func (c *Camera) ViewMatrix() mgl32.Mat4 {
	if c.dirty {
		c.updateMatrices()
	}
	return c.viewMatrix
}

func (c *Camera) ProjectionMatrix() mgl32.Mat4 {
	if c.dirty {
		c.updateMatrices()
	}
	return c.projectionMatrix
}

// RecalculateFrustum rebuilds the culling planes from the current matrices.
func (c *Camera) RecalculateFrustum() {
	c.frustum = FrustumFromVP(c.ProjectionMatrix().Mul4(c.ViewMatrix()))
}

// Frustum returns the planes computed by the last RecalculateFrustum.
func (c *Camera) Frustum() *Frustum {
	return &c.frustum
}

func (c *Camera) updateMatrices() {
	c.viewMatrix = mgl32.LookAtV(c.Position, c.Position.Add(c.Forward()), mgl32.Vec3{0, 1, 0})
	c.projectionMatrix = mgl32.Perspective(mgl32.DegToRad(c.FOV), c.AspectRatio, c.NearPlane, c.FarPlane)
	c.dirty = false
}
