package gpu

import (
	"github.com/go-gl/mathgl/mgl32"

	"voxel-renderer/materials"
)

// Color is a linear RGBA colour.
type Color struct {
	R, G, B, A float32
}

// SkyColor is the default clear colour.
var SkyColor = Color{R: 135.0 / 255, G: 206.0 / 255, B: 235.0 / 255, A: 1}

// Vertex is the interleaved layout every uploaded mesh uses. Attribute
// locations follow the field order here, which is also the order of
// materials.VertexField.
type Vertex struct {
	Position         mgl32.Vec3
	Color            mgl32.Vec4
	MainUV           mgl32.Vec2
	LightmapUV       mgl32.Vec2
	Normal           mgl32.Vec3
	Tangent          mgl32.Vec4
	MidTexCoord      mgl32.Vec2
	VirtualTextureID float32
	EntityID         float32
}

// MeshData is CPU-side geometry waiting for upload.
type MeshData struct {
	Vertices []Vertex
	Indices  []uint32
}

// Mesh holds the buffer objects of an uploaded mesh. The zero value is an
// empty mesh with nothing to draw.
type Mesh struct {
	VAO        uint32
	VBO        uint32
	EBO        uint32
	Count      int32
	HasIndices bool
}

// Uploaded reports whether the mesh has GPU storage to draw from.
func (m Mesh) Uploaded() bool { return m.VAO != 0 && m.Count > 0 }

// Attribute binds a vertex shader input to an attribute location before
// linking. Field selects which Vertex member feeds the location.
type Attribute struct {
	Location uint32
	Name     string
	Field    materials.VertexField
}

// FramebufferTargets are the GPU objects backing one framebuffer. Color is
// indexed by attachment slot; zero means the slot is unused.
type FramebufferTargets struct {
	FBO   uint32
	Color [8]uint32
	Depth uint32
}

// ClearMask selects which buffers Clear resets.
type ClearMask uint8

const (
	ClearColor ClearMask = 1 << iota
	ClearDepth
	ClearStencil
)

// InvalidIndex is returned by UniformBlockIndex for blocks a program does not
// declare.
const InvalidIndex = ^uint32(0)
