package mesh

import (
	"fmt"
	"sync"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voxel-renderer/gpu/gputest"
)

func TestUploadDrainsQueueIntoBuckets(t *testing.T) {
	dev := gputest.New()
	s := NewStore(dev)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s.AddChunk(Chunk{Filter: "block", Data: CreateCube(1), ParentID: int64(i % 2)})
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 8, s.Pending())
	assert.Empty(t, s.MeshesForFilter("block"), "nothing is visible before upload")

	assert.Equal(t, 8, s.UploadNewGeometry())
	assert.Zero(t, s.Pending())
	assert.Zero(t, s.UploadNewGeometry())

	bucket := s.MeshesForFilter("block")
	require.Len(t, bucket, 8)
	for _, r := range bucket {
		assert.True(t, r.HasData())
		assert.Equal(t, int32(36), r.Geometry.Count)
	}
	assert.Empty(t, s.MeshesForFilter("water"))
}

func TestEmptyChunkHasNoData(t *testing.T) {
	s := NewStore(gputest.New())
	s.AddChunk(Chunk{Filter: "block"})
	s.UploadNewGeometry()
	require.Len(t, s.MeshesForFilter("block"), 1)
	assert.False(t, s.MeshesForFilter("block")[0].HasData())
}

func TestBoundsFollowPosition(t *testing.T) {
	s := NewStore(gputest.New())
	s.AddChunk(Chunk{Filter: "block", Data: CreateCube(2), Position: mgl32.Vec3{10, 0, 0}})
	s.UploadNewGeometry()
	b := s.MeshesForFilter("block")[0].Bounds
	assert.Equal(t, mgl32.Vec3{9, -1, -1}, b.Min)
	assert.Equal(t, mgl32.Vec3{11, 1, 1}, b.Max)
}

func TestRemoveWithParent(t *testing.T) {
	dev := gputest.New()
	s := NewStore(dev)
	for i := 0; i < 6; i++ {
		s.AddChunk(Chunk{Filter: []string{"block", "water"}[i%2], Data: CreateCube(1), ParentID: int64(i % 3)})
	}
	s.UploadNewGeometry()

	assert.Equal(t, 2, s.RemoveWithParent(1))
	assert.Equal(t, 2, dev.Count("DeleteMesh"))
	for _, f := range []string{"block", "water"} {
		for _, r := range s.MeshesForFilter(f) {
			assert.NotEqual(t, int64(1), r.ParentID)
		}
	}
	assert.Len(t, s.MeshesForFilter("block"), 2)
	assert.Len(t, s.MeshesForFilter("water"), 2)
}

func TestGUIGeometryIsReplaced(t *testing.T) {
	dev := gputest.New()
	s := NewStore(dev)
	s.SetGUIGeometry(Rect(0, 0, 100, 20), "gui_atlas")
	first := s.MeshesForFilter(GUIFilter)[0].Geometry

	s.SetGUIGeometry(Rect(0, 0, 50, 50), "gui_atlas")
	require.Len(t, s.MeshesForFilter(GUIFilter), 1)
	assert.Equal(t, []string{"DeleteMesh " + itoa(first.VAO)}, dev.Filter("DeleteMesh"))
	assert.Equal(t, "gui_atlas", s.MeshesForFilter(GUIFilter)[0].ColorTexture)

	s.Destroy()
	assert.Equal(t, 2, dev.Count("DeleteMesh"))
	assert.Empty(t, s.MeshesForFilter(GUIFilter))
}

func TestPrimitives(t *testing.T) {
	cube := CreateCube(1)
	assert.Len(t, cube.Vertices, 24)
	assert.Len(t, cube.Indices, 36)

	quad := FullscreenQuad()
	assert.Equal(t, mgl32.Vec3{-1, -1, 0}, quad.Vertices[0].Position)
	assert.Equal(t, mgl32.Vec3{1, 1, 0}, quad.Vertices[2].Position)
	assert.Equal(t, mgl32.Vec3{0, 0, 1}, quad.Vertices[0].Normal)
}

func itoa(v uint32) string {
	return fmt.Sprint(v)
}
