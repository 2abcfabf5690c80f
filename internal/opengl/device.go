// Package opengl implements gpu.Device on an OpenGL 4.5 core context.
package opengl

import (
	"fmt"
	"strings"
	"unsafe"

	gl "github.com/go-gl/gl/v4.5-core/gl"
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"voxel-renderer/gpu"
	"voxel-renderer/internal/logger"
	"voxel-renderer/materials"
)

// Device drives the context current on the calling thread.
type Device struct {
	// layouts holds the attribute bindings each linked program was built with.
	layouts map[uint32][]gpu.Attribute
	// meshLayout records which program's layout a VAO is currently set up for.
	meshLayout map[uint32]uint32
	current    uint32

	samplers     map[samplerKey]uint32
	defaultBlend bool
	debug        func(gpu.DebugMessage)
}

type samplerKey struct {
	filter materials.Filter
	wrap   materials.WrapMode
}

// NewDevice loads the GL entry points. The context must already be current.
func NewDevice() (*Device, error) {
	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize OpenGL: %w", err)
	}
	logger.Log.Info("OpenGL initialized",
		zap.String("version", gl.GoStr(gl.GetString(gl.VERSION))),
		zap.String("renderer", gl.GoStr(gl.GetString(gl.RENDERER))))
	return &Device{
		layouts:    make(map[uint32][]gpu.Attribute),
		meshLayout: make(map[uint32]uint32),
		samplers:   make(map[samplerKey]uint32),
	}, nil
}

var stageTypes = map[materials.ShaderStage]uint32{
	materials.StageVertex:      gl.VERTEX_SHADER,
	materials.StageFragment:    gl.FRAGMENT_SHADER,
	materials.StageGeometry:    gl.GEOMETRY_SHADER,
	materials.StageTessControl: gl.TESS_CONTROL_SHADER,
	materials.StageTessEval:    gl.TESS_EVALUATION_SHADER,
}

func (d *Device) CompileShader(stage materials.ShaderStage, source string) (uint32, string, bool) {
	shaderType, ok := stageTypes[stage]
	if !ok {
		return 0, fmt.Sprintf("unknown shader stage %v", stage), false
	}
	shader := gl.CreateShader(shaderType)
	csrc, free := gl.Strs(source + "\x00")
	gl.ShaderSource(shader, 1, csrc, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLen int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLen)
		log := strings.Repeat("\x00", int(logLen+1))
		gl.GetShaderInfoLog(shader, logLen, nil, gl.Str(log))
		gl.DeleteShader(shader)
		return 0, log, false
	}
	return shader, "", true
}

func (d *Device) DeleteShader(shader uint32) {
	gl.DeleteShader(shader)
}

func (d *Device) LinkProgram(shaders []uint32, attributes []gpu.Attribute) (uint32, string, bool) {
	prog := gl.CreateProgram()
	for _, a := range attributes {
		gl.BindAttribLocation(prog, a.Location, gl.Str(a.Name+"\x00"))
	}
	for _, s := range shaders {
		gl.AttachShader(prog, s)
	}
	gl.LinkProgram(prog)
	for _, s := range shaders {
		gl.DetachShader(prog, s)
	}

	var status int32
	gl.GetProgramiv(prog, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLen int32
		gl.GetProgramiv(prog, gl.INFO_LOG_LENGTH, &logLen)
		log := strings.Repeat("\x00", int(logLen+1))
		gl.GetProgramInfoLog(prog, logLen, nil, gl.Str(log))
		gl.DeleteProgram(prog)
		return 0, log, false
	}
	d.layouts[prog] = append([]gpu.Attribute(nil), attributes...)
	return prog, "", true
}

func (d *Device) DeleteProgram(program uint32) {
	gl.DeleteProgram(program)
	delete(d.layouts, program)
	for vao, p := range d.meshLayout {
		if p == program {
			delete(d.meshLayout, vao)
		}
	}
	if d.current == program {
		d.current = 0
	}
}

func (d *Device) UseProgram(program uint32) {
	gl.UseProgram(program)
	d.current = program
}

func (d *Device) UniformLocation(program uint32, name string) int32 {
	return gl.GetUniformLocation(program, gl.Str(name+"\x00"))
}

func (d *Device) UniformMatrix4(location int32, m mgl32.Mat4) {
	gl.UniformMatrix4fv(location, 1, false, &m[0])
}

func (d *Device) UniformInt(location int32, v int32) {
	gl.Uniform1i(location, v)
}

func (d *Device) UniformBlockIndex(program uint32, name string) uint32 {
	return gl.GetUniformBlockIndex(program, gl.Str(name+"\x00"))
}

func (d *Device) UniformBlockBinding(program, blockIndex, binding uint32) {
	gl.UniformBlockBinding(program, blockIndex, binding)
}

func (d *Device) CreateUniformBuffer(size int) uint32 {
	var buf uint32
	gl.CreateBuffers(1, &buf)
	gl.NamedBufferData(buf, size, nil, gl.DYNAMIC_DRAW)
	return buf
}

func (d *Device) UpdateUniformBuffer(buffer uint32, data []byte) {
	if len(data) == 0 {
		return
	}
	gl.NamedBufferSubData(buffer, 0, len(data), gl.Ptr(data))
}

func (d *Device) BindUniformBuffer(binding, buffer uint32) {
	gl.BindBufferBase(gl.UNIFORM_BUFFER, binding, buffer)
}

func (d *Device) DeleteBuffer(buffer uint32) {
	gl.DeleteBuffers(1, &buffer)
}

// CreateFramebuffer allocates one RGBA16F texture per attachment and a
// sampleable depth texture.
func (d *Device) CreateFramebuffer(width, height int, attachments []int) (gpu.FramebufferTargets, error) {
	var fb gpu.FramebufferTargets
	gl.GenFramebuffers(1, &fb.FBO)
	gl.BindFramebuffer(gl.FRAMEBUFFER, fb.FBO)

	drawBuffers := make([]uint32, 0, len(attachments))
	for _, a := range attachments {
		gl.GenTextures(1, &fb.Color[a])
		gl.BindTexture(gl.TEXTURE_2D, fb.Color[a])
		gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA16F,
			int32(width), int32(height), 0, gl.RGBA, gl.HALF_FLOAT, nil)
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
		gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0+uint32(a),
			gl.TEXTURE_2D, fb.Color[a], 0)
		drawBuffers = append(drawBuffers, gl.COLOR_ATTACHMENT0+uint32(a))
	}

	gl.GenTextures(1, &fb.Depth)
	gl.BindTexture(gl.TEXTURE_2D, fb.Depth)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.DEPTH_COMPONENT32F,
		int32(width), int32(height), 0, gl.DEPTH_COMPONENT, gl.FLOAT, nil)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.NEAREST)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.NEAREST)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.DEPTH_ATTACHMENT, gl.TEXTURE_2D, fb.Depth, 0)

	if len(drawBuffers) > 0 {
		gl.DrawBuffers(int32(len(drawBuffers)), &drawBuffers[0])
	} else {
		gl.DrawBuffer(gl.NONE)
		gl.ReadBuffer(gl.NONE)
	}

	status := gl.CheckFramebufferStatus(gl.FRAMEBUFFER)
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	gl.BindTexture(gl.TEXTURE_2D, 0)

	if status != gl.FRAMEBUFFER_COMPLETE {
		d.DeleteFramebuffer(fb)
		return gpu.FramebufferTargets{}, fmt.Errorf("framebuffer incomplete: status=0x%X", status)
	}
	return fb, nil
}

func (d *Device) DeleteFramebuffer(fb gpu.FramebufferTargets) {
	for i := range fb.Color {
		if fb.Color[i] != 0 {
			gl.DeleteTextures(1, &fb.Color[i])
		}
	}
	if fb.Depth != 0 {
		gl.DeleteTextures(1, &fb.Depth)
	}
	if fb.FBO != 0 {
		gl.DeleteFramebuffers(1, &fb.FBO)
	}
}

func (d *Device) BindFramebuffer(fbo uint32) {
	gl.BindFramebuffer(gl.FRAMEBUFFER, fbo)
}

// DrawBuffers routes fragment output i to attachments[i] of the bound
// framebuffer. Negative entries discard that output; an empty list disables
// colour output.
func (d *Device) DrawBuffers(attachments []int) {
	if len(attachments) == 0 {
		gl.DrawBuffer(gl.NONE)
		return
	}
	bufs := make([]uint32, len(attachments))
	for i, a := range attachments {
		bufs[i] = gl.NONE
		if a >= 0 {
			bufs[i] = gl.COLOR_ATTACHMENT0 + uint32(a)
		}
	}
	gl.DrawBuffers(int32(len(bufs)), &bufs[0])
}

func (d *Device) BlitToDefault(fbo uint32, attachment int, srcWidth, srcHeight, dstWidth, dstHeight int) {
	gl.NamedFramebufferReadBuffer(fbo, gl.COLOR_ATTACHMENT0+uint32(attachment))
	gl.BlitNamedFramebuffer(fbo, 0,
		0, 0, int32(srcWidth), int32(srcHeight),
		0, 0, int32(dstWidth), int32(dstHeight),
		gl.COLOR_BUFFER_BIT, gl.LINEAR)
}

func (d *Device) Viewport(x, y, width, height int) {
	gl.Viewport(int32(x), int32(y), int32(width), int32(height))
}

// Clear clears the selected buffers of the bound framebuffer. The write
// mask of each selected buffer is opened first, since glClear honours it.
func (d *Device) Clear(mask gpu.ClearMask) {
	var bits uint32
	if mask&gpu.ClearColor != 0 {
		gl.ColorMask(true, true, true, true)
		bits |= gl.COLOR_BUFFER_BIT
	}
	if mask&gpu.ClearDepth != 0 {
		gl.DepthMask(true)
		bits |= gl.DEPTH_BUFFER_BIT
	}
	if mask&gpu.ClearStencil != 0 {
		gl.StencilMask(0xFF)
		bits |= gl.STENCIL_BUFFER_BIT
	}
	gl.Clear(bits)
}

func enable(capability uint32, on bool) {
	if on {
		gl.Enable(capability)
	} else {
		gl.Disable(capability)
	}
}

// SetRasterizerState applies states on top of the InitState defaults.
func (d *Device) SetRasterizerState(states materials.StateFlags) {
	enable(gl.BLEND, d.defaultBlend || states.Has(materials.Blending))
	gl.BlendFunc(gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA)

	enable(gl.CULL_FACE, !states.Has(materials.DisableCulling))
	if states.Has(materials.InvertCulling) {
		gl.CullFace(gl.FRONT)
	} else {
		gl.CullFace(gl.BACK)
	}

	gl.DepthMask(!states.Has(materials.DisableDepthWrite))

	enable(gl.STENCIL_TEST, states.Has(materials.EnableStencilTest))
	if states.Has(materials.StencilWrite) {
		gl.StencilMask(0xFF)
	} else {
		gl.StencilMask(0x00)
	}

	color := !states.Has(materials.DisableColorWrite)
	gl.ColorMask(color, color, color, color)

	enable(gl.SAMPLE_ALPHA_TO_COVERAGE, states.Has(materials.EnableAlphaToCoverage))
}

func (d *Device) CreateTexture(width, height int, rgba []byte, mipmaps bool) uint32 {
	var id uint32
	gl.GenTextures(1, &id)
	gl.BindTexture(gl.TEXTURE_2D, id)

	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.REPEAT)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.REPEAT)
	if mipmaps {
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR_MIPMAP_LINEAR)
	} else {
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
	}
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)

	var pixels unsafe.Pointer
	if len(rgba) > 0 {
		pixels = unsafe.Pointer(&rgba[0])
	}
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA8, int32(width), int32(height), 0,
		gl.RGBA, gl.UNSIGNED_BYTE, pixels)
	if mipmaps {
		gl.GenerateMipmap(gl.TEXTURE_2D)
	}
	gl.BindTexture(gl.TEXTURE_2D, 0)
	return id
}

func (d *Device) DeleteTexture(texture uint32) {
	if texture == 0 {
		return
	}
	gl.DeleteTextures(1, &texture)
}

func (d *Device) BindTexture(unit, texture uint32) {
	gl.BindTextureUnit(unit, texture)
}

var filterModes = map[materials.Filter][2]int32{
	materials.FilterTexelAA:  {gl.LINEAR_MIPMAP_LINEAR, gl.NEAREST},
	materials.FilterBilinear: {gl.LINEAR_MIPMAP_LINEAR, gl.LINEAR},
	materials.FilterPoint:    {gl.NEAREST_MIPMAP_NEAREST, gl.NEAREST},
}

var wrapModes = map[materials.WrapMode]int32{
	materials.WrapRepeat: gl.REPEAT,
	materials.WrapClamp:  gl.CLAMP_TO_EDGE,
}

// SetSampler binds a shared sampler object for the filter and wrap pair.
func (d *Device) SetSampler(unit uint32, filter materials.Filter, wrap materials.WrapMode) {
	key := samplerKey{filter, wrap}
	s, ok := d.samplers[key]
	if !ok {
		gl.CreateSamplers(1, &s)
		modes := filterModes[filter]
		gl.SamplerParameteri(s, gl.TEXTURE_MIN_FILTER, modes[0])
		gl.SamplerParameteri(s, gl.TEXTURE_MAG_FILTER, modes[1])
		gl.SamplerParameteri(s, gl.TEXTURE_WRAP_S, wrapModes[wrap])
		gl.SamplerParameteri(s, gl.TEXTURE_WRAP_T, wrapModes[wrap])
		d.samplers[key] = s
	}
	gl.BindSampler(unit, s)
}

type fieldFormat struct {
	components int32
	offset     uint32
}

var fieldFormats = func() map[materials.VertexField]fieldFormat {
	var v gpu.Vertex
	return map[materials.VertexField]fieldFormat{
		materials.FieldPosition:         {3, uint32(unsafe.Offsetof(v.Position))},
		materials.FieldColor:            {4, uint32(unsafe.Offsetof(v.Color))},
		materials.FieldMainUV:           {2, uint32(unsafe.Offsetof(v.MainUV))},
		materials.FieldLightmapUV:       {2, uint32(unsafe.Offsetof(v.LightmapUV))},
		materials.FieldNormal:           {3, uint32(unsafe.Offsetof(v.Normal))},
		materials.FieldTangent:          {4, uint32(unsafe.Offsetof(v.Tangent))},
		materials.FieldMidTexCoord:      {2, uint32(unsafe.Offsetof(v.MidTexCoord))},
		materials.FieldVirtualTextureID: {1, uint32(unsafe.Offsetof(v.VirtualTextureID))},
		materials.FieldEntityID:         {1, uint32(unsafe.Offsetof(v.EntityID))},
	}
}()

// canonicalLayout feeds every Vertex member to the location of its field.
var canonicalLayout = func() []gpu.Attribute {
	var out []gpu.Attribute
	for f := materials.FieldPosition; f < materials.FieldEmpty; f++ {
		out = append(out, gpu.Attribute{Location: uint32(f), Name: f.AttributeName(), Field: f})
	}
	return out
}()

const maxVertexAttribs = 16

func (d *Device) CreateMesh(data gpu.MeshData) gpu.Mesh {
	if len(data.Vertices) == 0 {
		return gpu.Mesh{}
	}
	stride := int32(unsafe.Sizeof(gpu.Vertex{}))

	m := gpu.Mesh{Count: int32(len(data.Vertices))}
	gl.CreateVertexArrays(1, &m.VAO)
	gl.CreateBuffers(1, &m.VBO)
	gl.NamedBufferData(m.VBO, len(data.Vertices)*int(stride), gl.Ptr(data.Vertices), gl.STATIC_DRAW)
	gl.VertexArrayVertexBuffer(m.VAO, 0, m.VBO, 0, stride)

	if len(data.Indices) > 0 {
		gl.CreateBuffers(1, &m.EBO)
		gl.NamedBufferData(m.EBO, len(data.Indices)*4, gl.Ptr(data.Indices), gl.STATIC_DRAW)
		gl.VertexArrayElementBuffer(m.VAO, m.EBO)
		m.HasIndices = true
		m.Count = int32(len(data.Indices))
	}

	setLayout(m.VAO, canonicalLayout)
	d.meshLayout[m.VAO] = 0
	return m
}

func setLayout(vao uint32, attrs []gpu.Attribute) {
	for loc := uint32(0); loc < maxVertexAttribs; loc++ {
		gl.DisableVertexArrayAttrib(vao, loc)
	}
	for _, a := range attrs {
		f, ok := fieldFormats[a.Field]
		if !ok {
			continue
		}
		gl.VertexArrayAttribFormat(vao, a.Location, f.components, gl.FLOAT, false, f.offset)
		gl.VertexArrayAttribBinding(vao, a.Location, 0)
		gl.EnableVertexArrayAttrib(vao, a.Location)
	}
}

// DrawMesh draws m with the attribute layout of the bound program.
func (d *Device) DrawMesh(m gpu.Mesh) {
	if !m.Uploaded() {
		return
	}
	if prog, ok := d.meshLayout[m.VAO]; !ok || prog != d.current {
		if attrs, linked := d.layouts[d.current]; linked {
			setLayout(m.VAO, attrs)
			d.meshLayout[m.VAO] = d.current
		}
	}
	gl.BindVertexArray(m.VAO)
	if m.HasIndices {
		gl.DrawElements(gl.TRIANGLES, m.Count, gl.UNSIGNED_INT, gl.PtrOffset(0))
	} else {
		gl.DrawArrays(gl.TRIANGLES, 0, m.Count)
	}
	gl.BindVertexArray(0)
}

func (d *Device) DeleteMesh(m gpu.Mesh) {
	if m.EBO != 0 {
		gl.DeleteBuffers(1, &m.EBO)
	}
	if m.VBO != 0 {
		gl.DeleteBuffers(1, &m.VBO)
	}
	if m.VAO != 0 {
		gl.DeleteVertexArrays(1, &m.VAO)
		delete(d.meshLayout, m.VAO)
	}
}

func (d *Device) InitState(clear gpu.Color) {
	gl.ClearColor(clear.R, clear.G, clear.B, clear.A)

	gl.Enable(gl.DEPTH_TEST)
	gl.DepthFunc(gl.LESS)
	gl.ClearDepth(1.0)

	gl.Enable(gl.BLEND)
	gl.BlendFunc(gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA)
	d.defaultBlend = true

	gl.Enable(gl.CULL_FACE)
	gl.CullFace(gl.BACK)
	gl.FrontFace(gl.CCW)
}

// SetDebugHandler routes KHR_debug output to fn. The context must have been
// created with the debug flag for drivers to report anything.
func (d *Device) SetDebugHandler(fn func(gpu.DebugMessage)) {
	d.debug = fn
	if fn == nil {
		gl.Disable(gl.DEBUG_OUTPUT)
		return
	}
	gl.Enable(gl.DEBUG_OUTPUT)
	gl.Enable(gl.DEBUG_OUTPUT_SYNCHRONOUS)
	gl.DebugMessageCallback(func(source, gltype, id, severity uint32, length int32, message string, userParam unsafe.Pointer) {
		if d.debug == nil {
			return
		}
		d.debug(gpu.DebugMessage{
			Source:   debugSource(source),
			Type:     debugType(gltype),
			Severity: debugSeverity(severity),
			ID:       id,
			Text:     message,
		})
	}, nil)
}

// Destroy releases objects the device created for itself.
func (d *Device) Destroy() {
	for key, s := range d.samplers {
		gl.DeleteSamplers(1, &s)
		delete(d.samplers, key)
	}
}

func debugSource(s uint32) gpu.DebugSource {
	switch s {
	case gl.DEBUG_SOURCE_API:
		return gpu.SourceAPI
	case gl.DEBUG_SOURCE_WINDOW_SYSTEM:
		return gpu.SourceWindowSystem
	case gl.DEBUG_SOURCE_SHADER_COMPILER:
		return gpu.SourceShaderCompiler
	case gl.DEBUG_SOURCE_THIRD_PARTY:
		return gpu.SourceThirdParty
	case gl.DEBUG_SOURCE_APPLICATION:
		return gpu.SourceApplication
	case gl.DEBUG_SOURCE_OTHER:
		return gpu.SourceOther
	}
	return gpu.SourceUnknown
}

func debugType(t uint32) gpu.DebugType {
	switch t {
	case gl.DEBUG_TYPE_ERROR:
		return gpu.TypeError
	case gl.DEBUG_TYPE_DEPRECATED_BEHAVIOR:
		return gpu.TypeDeprecatedBehavior
	case gl.DEBUG_TYPE_UNDEFINED_BEHAVIOR:
		return gpu.TypeUndefinedBehavior
	case gl.DEBUG_TYPE_PORTABILITY:
		return gpu.TypePortability
	case gl.DEBUG_TYPE_PERFORMANCE:
		return gpu.TypePerformance
	case gl.DEBUG_TYPE_MARKER:
		return gpu.TypeMarker
	case gl.DEBUG_TYPE_PUSH_GROUP:
		return gpu.TypePushGroup
	case gl.DEBUG_TYPE_POP_GROUP:
		return gpu.TypePopGroup
	case gl.DEBUG_TYPE_OTHER:
		return gpu.TypeOther
	}
	return gpu.TypeUnknown
}

func debugSeverity(s uint32) gpu.DebugSeverity {
	switch s {
	case gl.DEBUG_SEVERITY_HIGH:
		return gpu.SeverityHigh
	case gl.DEBUG_SEVERITY_MEDIUM:
		return gpu.SeverityMedium
	case gl.DEBUG_SEVERITY_LOW:
		return gpu.SeverityLow
	case gl.DEBUG_SEVERITY_NOTIFICATION:
		return gpu.SeverityNotification
	}
	return gpu.SeverityUnknown
}

var _ gpu.Device = (*Device)(nil)
