// Package gputest provides a recording gpu.Device for tests.
package gputest

import (
	"fmt"
	"strings"

	"github.com/go-gl/mathgl/mgl32"

	"voxel-renderer/gpu"
	"voxel-renderer/materials"
)

// Device records every call it receives and hands out increasing handles.
// Compile and link results can be scripted through the hook fields.
type Device struct {
	// Calls is the ordered call log, one formatted line per call.
	Calls []string

	// CompileHook decides the outcome of CompileShader. Nil compiles
	// everything.
	CompileHook func(stage materials.ShaderStage, source string) (log string, ok bool)
	// LinkHook decides the outcome of LinkProgram. Nil links everything.
	LinkHook func(shaders []uint32) (log string, ok bool)

	// Uniforms maps uniform names to locations; absent names resolve to -1.
	Uniforms map[string]int32
	// Blocks maps uniform block names to block indices for every program.
	Blocks map[string]uint32

	// FramebufferErr fails every CreateFramebuffer call when set.
	FramebufferErr error

	Sources       map[uint32]string
	Attributes    map[uint32][]gpu.Attribute
	Uploads       map[uint32][]byte
	LiveShaders   map[uint32]bool
	LivePrograms  map[uint32]bool
	LiveBuffers   map[uint32]bool
	LiveTextures  map[uint32]bool
	LiveFBOs      map[uint32]bool
	UniformQuery  map[string]int
	Matrices      map[int32]mgl32.Mat4
	Framebuffers  []Framebuffer
	DebugHandler  func(gpu.DebugMessage)
	BoundTextures map[uint32]uint32

	next uint32
}

// Framebuffer records one CreateFramebuffer request.
type Framebuffer struct {
	FBO           uint32
	Width, Height int
	Attachments   []int
}

func New() *Device {
	return &Device{
		Uniforms:      map[string]int32{},
		Blocks:        map[string]uint32{},
		Sources:       map[uint32]string{},
		Attributes:    map[uint32][]gpu.Attribute{},
		Uploads:       map[uint32][]byte{},
		LiveShaders:   map[uint32]bool{},
		LivePrograms:  map[uint32]bool{},
		LiveBuffers:   map[uint32]bool{},
		LiveTextures:  map[uint32]bool{},
		LiveFBOs:      map[uint32]bool{},
		UniformQuery:  map[string]int{},
		Matrices:      map[int32]mgl32.Mat4{},
		BoundTextures: map[uint32]uint32{},
	}
}

func (d *Device) handle() uint32 {
	d.next++
	return d.next
}

func (d *Device) record(format string, args ...any) {
	d.Calls = append(d.Calls, fmt.Sprintf(format, args...))
}

// Count returns how many recorded calls start with prefix.
func (d *Device) Count(prefix string) int {
	n := 0
	for _, c := range d.Calls {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

// Filter returns the recorded calls starting with any of the prefixes.
func (d *Device) Filter(prefixes ...string) []string {
	var out []string
	for _, c := range d.Calls {
		for _, p := range prefixes {
			if strings.HasPrefix(c, p) {
				out = append(out, c)
				break
			}
		}
	}
	return out
}

// Reset clears the call log but keeps live object bookkeeping.
func (d *Device) Reset() {
	d.Calls = nil
}

func (d *Device) CompileShader(stage materials.ShaderStage, source string) (uint32, string, bool) {
	d.record("CompileShader %v", stage)
	if d.CompileHook != nil {
		if log, ok := d.CompileHook(stage, source); !ok {
			return 0, log, false
		}
	}
	h := d.handle()
	d.Sources[h] = source
	d.LiveShaders[h] = true
	return h, "", true
}

func (d *Device) DeleteShader(shader uint32) {
	d.record("DeleteShader %d", shader)
	delete(d.LiveShaders, shader)
}

func (d *Device) LinkProgram(shaders []uint32, attributes []gpu.Attribute) (uint32, string, bool) {
	d.record("LinkProgram %v", shaders)
	if d.LinkHook != nil {
		if log, ok := d.LinkHook(shaders); !ok {
			return 0, log, false
		}
	}
	h := d.handle()
	d.LivePrograms[h] = true
	d.Attributes[h] = attributes
	return h, "", true
}

func (d *Device) DeleteProgram(program uint32) {
	d.record("DeleteProgram %d", program)
	delete(d.LivePrograms, program)
}

func (d *Device) UseProgram(program uint32) {
	d.record("UseProgram %d", program)
}

func (d *Device) UniformLocation(program uint32, name string) int32 {
	d.record("UniformLocation %d %s", program, name)
	d.UniformQuery[fmt.Sprintf("%d/%s", program, name)]++
	if loc, ok := d.Uniforms[name]; ok {
		return loc
	}
	return -1
}

func (d *Device) UniformMatrix4(location int32, m mgl32.Mat4) {
	d.record("UniformMatrix4 %d", location)
	d.Matrices[location] = m
}

func (d *Device) UniformInt(location int32, v int32) {
	d.record("UniformInt %d %d", location, v)
}

func (d *Device) UniformBlockIndex(program uint32, name string) uint32 {
	d.record("UniformBlockIndex %d %s", program, name)
	if idx, ok := d.Blocks[name]; ok {
		return idx
	}
	return gpu.InvalidIndex
}

func (d *Device) UniformBlockBinding(program, blockIndex, binding uint32) {
	d.record("UniformBlockBinding %d %d %d", program, blockIndex, binding)
}

func (d *Device) CreateUniformBuffer(size int) uint32 {
	h := d.handle()
	d.record("CreateUniformBuffer %d", size)
	d.LiveBuffers[h] = true
	return h
}

func (d *Device) UpdateUniformBuffer(buffer uint32, data []byte) {
	d.record("UpdateUniformBuffer %d %d", buffer, len(data))
	d.Uploads[buffer] = append([]byte(nil), data...)
}

func (d *Device) BindUniformBuffer(binding, buffer uint32) {
	d.record("BindUniformBuffer %d %d", binding, buffer)
}

func (d *Device) DeleteBuffer(buffer uint32) {
	d.record("DeleteBuffer %d", buffer)
	delete(d.LiveBuffers, buffer)
}

func (d *Device) CreateFramebuffer(width, height int, attachments []int) (gpu.FramebufferTargets, error) {
	d.record("CreateFramebuffer %dx%d %v", width, height, attachments)
	if d.FramebufferErr != nil {
		return gpu.FramebufferTargets{}, d.FramebufferErr
	}
	fb := gpu.FramebufferTargets{FBO: d.handle(), Depth: d.handle()}
	for _, a := range attachments {
		fb.Color[a] = d.handle()
	}
	d.LiveFBOs[fb.FBO] = true
	d.Framebuffers = append(d.Framebuffers, Framebuffer{
		FBO: fb.FBO, Width: width, Height: height,
		Attachments: append([]int(nil), attachments...),
	})
	return fb, nil
}

func (d *Device) DeleteFramebuffer(fb gpu.FramebufferTargets) {
	d.record("DeleteFramebuffer %d", fb.FBO)
	delete(d.LiveFBOs, fb.FBO)
}

func (d *Device) BindFramebuffer(fbo uint32) {
	d.record("BindFramebuffer %d", fbo)
}

func (d *Device) DrawBuffers(attachments []int) {
	d.record("DrawBuffers %v", attachments)
}

func (d *Device) BlitToDefault(fbo uint32, attachment int, srcWidth, srcHeight, dstWidth, dstHeight int) {
	d.record("BlitToDefault %d %d %dx%d %dx%d", fbo, attachment, srcWidth, srcHeight, dstWidth, dstHeight)
}

func (d *Device) Viewport(x, y, width, height int) {
	d.record("Viewport %d %d %d %d", x, y, width, height)
}

func (d *Device) Clear(mask gpu.ClearMask) {
	var parts []string
	if mask&gpu.ClearColor != 0 {
		parts = append(parts, "color")
	}
	if mask&gpu.ClearDepth != 0 {
		parts = append(parts, "depth")
	}
	if mask&gpu.ClearStencil != 0 {
		parts = append(parts, "stencil")
	}
	d.record("Clear %s", strings.Join(parts, "|"))
}

func (d *Device) SetRasterizerState(states materials.StateFlags) {
	d.record("SetRasterizerState %v", states)
}

func (d *Device) CreateTexture(width, height int, rgba []byte, mipmaps bool) uint32 {
	h := d.handle()
	d.record("CreateTexture %dx%d mipmaps=%t", width, height, mipmaps)
	d.LiveTextures[h] = true
	return h
}

func (d *Device) DeleteTexture(texture uint32) {
	d.record("DeleteTexture %d", texture)
	delete(d.LiveTextures, texture)
}

func (d *Device) BindTexture(unit, texture uint32) {
	d.record("BindTexture %d %d", unit, texture)
	d.BoundTextures[unit] = texture
}

func (d *Device) SetSampler(unit uint32, filter materials.Filter, wrap materials.WrapMode) {
	d.record("SetSampler %d %v %v", unit, filter, wrap)
}

func (d *Device) CreateMesh(data gpu.MeshData) gpu.Mesh {
	d.record("CreateMesh %d %d", len(data.Vertices), len(data.Indices))
	if len(data.Vertices) == 0 {
		return gpu.Mesh{}
	}
	m := gpu.Mesh{VAO: d.handle(), VBO: d.handle(), Count: int32(len(data.Vertices))}
	if len(data.Indices) > 0 {
		m.EBO = d.handle()
		m.HasIndices = true
		m.Count = int32(len(data.Indices))
	}
	return m
}

func (d *Device) DrawMesh(m gpu.Mesh) {
	d.record("DrawMesh %d", m.VAO)
}

func (d *Device) DeleteMesh(m gpu.Mesh) {
	d.record("DeleteMesh %d", m.VAO)
}

func (d *Device) InitState(clear gpu.Color) {
	d.record("InitState")
}

func (d *Device) SetDebugHandler(fn func(gpu.DebugMessage)) {
	d.record("SetDebugHandler")
	d.DebugHandler = fn
}

var _ gpu.Device = (*Device)(nil)
