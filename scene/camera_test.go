package scene

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
)

func TestFrustumCulling(t *testing.T) {
	cam := NewCamera(70, 16.0/9.0, 0.1, 100)
	cam.SetPosition(mgl32.Vec3{0, 0, 0})
	cam.RecalculateFrustum()
	f := cam.Frustum()

	ahead := AABB{Min: mgl32.Vec3{-1, -1, -11}, Max: mgl32.Vec3{1, 1, -9}}
	behind := ahead.Translate(mgl32.Vec3{0, 0, 20})
	tooFar := ahead.Translate(mgl32.Vec3{0, 0, -200})
	straddling := AABB{Min: mgl32.Vec3{-1, -1, -1}, Max: mgl32.Vec3{1, 1, 1}}

	assert.True(t, ahead.IntersectsFrustum(f))
	assert.False(t, behind.IntersectsFrustum(f))
	assert.False(t, tooFar.IntersectsFrustum(f))
	assert.True(t, straddling.IntersectsFrustum(f))
}

func TestFrustumFollowsRecalculation(t *testing.T) {
	cam := NewCamera(70, 1, 0.1, 100)
	cam.RecalculateFrustum()
	box := AABB{Min: mgl32.Vec3{-1, -1, 9}, Max: mgl32.Vec3{1, 1, 11}}
	assert.False(t, box.IntersectsFrustum(cam.Frustum()))

	cam.Rotate(mgl32.DegToRad(180), 0)
	assert.False(t, box.IntersectsFrustum(cam.Frustum()), "planes change only on RecalculateFrustum")
	cam.RecalculateFrustum()
	assert.True(t, box.IntersectsFrustum(cam.Frustum()))
}

func TestBoundsOf(t *testing.T) {
	b := BoundsOf([]mgl32.Vec3{{1, 5, -2}, {-3, 0, 4}, {2, 2, 2}})
	assert.Equal(t, AABB{Min: mgl32.Vec3{-3, 0, -2}, Max: mgl32.Vec3{2, 5, 4}}, b)
	assert.Equal(t, AABB{}, BoundsOf(nil))
}
