// Package gpu defines the narrow device interface the pipeline drives. The
// OpenGL implementation lives in internal/opengl; tests use gputest.
package gpu

import (
	"github.com/go-gl/mathgl/mgl32"

	"voxel-renderer/materials"
)

// Device is the set of native graphics operations the pipeline needs. All
// calls must come from the thread owning the context.
type Device interface {
	// CompileShader compiles one stage. On failure the shader object is
	// already released and log holds the driver diagnostics.
	CompileShader(stage materials.ShaderStage, source string) (shader uint32, log string, ok bool)
	DeleteShader(shader uint32)
	// LinkProgram binds attributes, links the shaders and detaches them. On
	// failure the program object is already released.
	LinkProgram(shaders []uint32, attributes []Attribute) (program uint32, log string, ok bool)
	DeleteProgram(program uint32)
	UseProgram(program uint32)

	UniformLocation(program uint32, name string) int32
	UniformMatrix4(location int32, m mgl32.Mat4)
	UniformInt(location int32, v int32)
	UniformBlockIndex(program uint32, name string) uint32
	UniformBlockBinding(program, blockIndex, binding uint32)

	CreateUniformBuffer(size int) uint32
	UpdateUniformBuffer(buffer uint32, data []byte)
	BindUniformBuffer(binding, buffer uint32)
	DeleteBuffer(buffer uint32)

	CreateFramebuffer(width, height int, attachments []int) (FramebufferTargets, error)
	DeleteFramebuffer(fb FramebufferTargets)
	// BindFramebuffer makes fbo the draw target; zero is the window.
	BindFramebuffer(fbo uint32)
	// DrawBuffers routes fragment output i to attachments[i]; negative
	// entries discard the output.
	DrawBuffers(attachments []int)
	BlitToDefault(fbo uint32, attachment int, srcWidth, srcHeight, dstWidth, dstHeight int)
	Viewport(x, y, width, height int)
	Clear(mask ClearMask)
	SetRasterizerState(states materials.StateFlags)

	CreateTexture(width, height int, rgba []byte, mipmaps bool) uint32
	DeleteTexture(texture uint32)
	BindTexture(unit, texture uint32)
	SetSampler(unit uint32, filter materials.Filter, wrap materials.WrapMode)

	CreateMesh(data MeshData) Mesh
	DrawMesh(m Mesh)
	DeleteMesh(m Mesh)

	// InitState applies the default pipeline state used at start-up.
	InitState(clear Color)
	SetDebugHandler(fn func(DebugMessage))
}
