package mesh

import (
	"github.com/go-gl/mathgl/mgl32"

	"voxel-renderer/gpu"
)

var white = mgl32.Vec4{1, 1, 1, 1}

// CreateCube generates a cube of the given edge length centred on the
// origin, four vertices per face.
func CreateCube(size float32) gpu.MeshData {
	s := size / 2
	faces := []struct {
		normal  mgl32.Vec3
		tangent mgl32.Vec4
		corners [4]mgl32.Vec3
	}{
		{mgl32.Vec3{0, 0, 1}, mgl32.Vec4{1, 0, 0, 1}, [4]mgl32.Vec3{{-s, -s, s}, {s, -s, s}, {s, s, s}, {-s, s, s}}},
		{mgl32.Vec3{0, 0, -1}, mgl32.Vec4{-1, 0, 0, 1}, [4]mgl32.Vec3{{s, -s, -s}, {-s, -s, -s}, {-s, s, -s}, {s, s, -s}}},
		{mgl32.Vec3{0, 1, 0}, mgl32.Vec4{1, 0, 0, 1}, [4]mgl32.Vec3{{-s, s, s}, {s, s, s}, {s, s, -s}, {-s, s, -s}}},
		{mgl32.Vec3{0, -1, 0}, mgl32.Vec4{1, 0, 0, 1}, [4]mgl32.Vec3{{-s, -s, -s}, {s, -s, -s}, {s, -s, s}, {-s, -s, s}}},
		{mgl32.Vec3{1, 0, 0}, mgl32.Vec4{0, 0, -1, 1}, [4]mgl32.Vec3{{s, -s, s}, {s, -s, -s}, {s, s, -s}, {s, s, s}}},
		{mgl32.Vec3{-1, 0, 0}, mgl32.Vec4{0, 0, 1, 1}, [4]mgl32.Vec3{{-s, -s, -s}, {-s, -s, s}, {-s, s, s}, {-s, s, -s}}},
	}
	uvs := [4]mgl32.Vec2{{0, 0}, {1, 0}, {1, 1}, {0, 1}}

	var data gpu.MeshData
	for _, f := range faces {
		base := uint32(len(data.Vertices))
		for i, p := range f.corners {
			data.Vertices = append(data.Vertices, gpu.Vertex{
				Position:    p,
				Color:       white,
				MainUV:      uvs[i],
				LightmapUV:  mgl32.Vec2{1, 1},
				Normal:      f.normal,
				Tangent:     f.tangent,
				MidTexCoord: mgl32.Vec2{0.5, 0.5},
			})
		}
		data.Indices = append(data.Indices, base, base+1, base+2, base+2, base+3, base)
	}
	return data
}

// FullscreenQuad covers clip space; composite and final passes draw it.
func FullscreenQuad() gpu.MeshData {
	return Rect(-1, -1, 2, 2)
}

// Rect is a quad in the XY plane with its lower-left corner at (x, y).
func Rect(x, y, w, h float32) gpu.MeshData {
	corners := [4]mgl32.Vec3{{x, y, 0}, {x + w, y, 0}, {x + w, y + h, 0}, {x, y + h, 0}}
	uvs := [4]mgl32.Vec2{{0, 0}, {1, 0}, {1, 1}, {0, 1}}
	var data gpu.MeshData
	for i := range corners {
		data.Vertices = append(data.Vertices, gpu.Vertex{
			Position: corners[i],
			Color:    white,
			MainUV:   uvs[i],
			Normal:   mgl32.Vec3{0, 0, 1},
		})
	}
	data.Indices = []uint32{0, 1, 2, 2, 3, 0}
	return data
}
