// Package shader compiles pipeline states into GPU programs.
package shader

import (
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"voxel-renderer/gpu"
	"voxel-renderer/internal/logger"
	"voxel-renderer/materials"
)

// NotFound is the location of a uniform the program does not declare.
const NotFound int32 = -1

// Loader supplies the provenance-tagged source of one stage of a state.
type Loader interface {
	LoadShaderSource(state *materials.PipelineState, stage materials.ShaderStage) ([]SourceLine, error)
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(state *materials.PipelineState, stage materials.ShaderStage) ([]SourceLine, error)

func (f LoaderFunc) LoadShaderSource(state *materials.PipelineState, stage materials.ShaderStage) ([]SourceLine, error) {
	return f(state, stage)
}

// Descriptor is the link-time configuration of a program. It owns no GPU
// resources and may be copied freely.
type Descriptor struct {
	Name       string
	Filter     string
	Defines    []string
	Attributes []gpu.Attribute
}

// NewDescriptor derives the descriptor of a resolved state. Vertex fields
// bind to the attribute location equal to their list position.
func NewDescriptor(state *materials.PipelineState) Descriptor {
	d := Descriptor{
		Name:    state.Name,
		Filter:  state.Filters,
		Defines: append([]string(nil), state.Defines...),
	}
	for i, f := range state.VertexFields {
		if name := f.AttributeName(); name != "" {
			d.Attributes = append(d.Attributes, gpu.Attribute{Location: uint32(i), Name: name, Field: f})
		}
	}
	return d
}

// Clone copies d including its slices.
func (d Descriptor) Clone() Descriptor {
	d.Defines = append([]string(nil), d.Defines...)
	d.Attributes = append([]gpu.Attribute(nil), d.Attributes...)
	return d
}

// Program is a linked GPU program. It owns its handle: copy the pointer,
// never the value, and hand ownership on with Take.
type Program struct {
	dev      gpu.Device
	handle   uint32
	desc     Descriptor
	uniforms map[string]int32
	sources  map[materials.ShaderStage][]SourceLine
}

// Compile builds and links every stage state declares.
func Compile(dev gpu.Device, state *materials.PipelineState, loader Loader) (*Program, error) {
	desc := NewDescriptor(state)
	sources := make(map[materials.ShaderStage][]SourceLine)
	var shaders []uint32
	release := func() {
		for _, s := range shaders {
			dev.DeleteShader(s)
		}
	}

	for _, stage := range state.DeclaredStages() {
		lines, err := loader.LoadShaderSource(state, stage)
		if err != nil {
			release()
			return nil, &SourceError{Program: desc.Name, Stage: stage, Err: err}
		}
		at, err := checkVersion(desc.Name, stage, lines)
		if err != nil {
			release()
			return nil, err
		}
		lines = injectDefines(lines, at, desc.Defines)

		sh, log, ok := dev.CompileShader(stage, Join(lines))
		if !ok {
			release()
			return nil, &CompilationError{
				Program:     desc.Name,
				Stage:       stage,
				Log:         log,
				Diagnostics: Remap(log, lines),
			}
		}
		shaders = append(shaders, sh)
		sources[stage] = lines
	}

	handle, log, ok := dev.LinkProgram(shaders, desc.Attributes)
	release()
	if !ok {
		return nil, &LinkError{Program: desc.Name, Log: log}
	}

	logger.Log.Debug("Linked program",
		zap.String("program", desc.Name),
		zap.Uint32("handle", handle),
		zap.Int("stages", len(shaders)))

	return &Program{
		dev:      dev,
		handle:   handle,
		desc:     desc,
		uniforms: make(map[string]int32),
		sources:  sources,
	}, nil
}

// Name is the pass name the program was built for.
func (p *Program) Name() string { return p.desc.Name }

// Filter selects the geometry bucket the program draws.
func (p *Program) Filter() string { return p.desc.Filter }

// Descriptor returns a copy of the link-time configuration.
func (p *Program) Descriptor() Descriptor { return p.desc.Clone() }

// Handle is the native program object, zero once moved or destroyed.
func (p *Program) Handle() uint32 { return p.handle }

// Valid reports whether the program still owns a GPU handle.
func (p *Program) Valid() bool { return p.handle != 0 }

// Provenance returns the compiled text of stage, line by line.
func (p *Program) Provenance(stage materials.ShaderStage) []SourceLine {
	return p.sources[stage]
}

// Bind makes the program current.
func (p *Program) Bind() {
	if p.handle == 0 {
		return
	}
	p.dev.UseProgram(p.handle)
}

// UniformLocation returns the location of name, querying the driver only
// the first time a name is asked for. Unknown names yield NotFound.
func (p *Program) UniformLocation(name string) int32 {
	if loc, ok := p.uniforms[name]; ok {
		return loc
	}
	loc := NotFound
	if p.handle != 0 {
		loc = p.dev.UniformLocation(p.handle, name)
	}
	p.uniforms[name] = loc
	return loc
}

// SetMatrix uploads m to the named uniform when the program declares it.
func (p *Program) SetMatrix(name string, m mgl32.Mat4) bool {
	loc := p.UniformLocation(name)
	if loc == NotFound {
		return false
	}
	p.dev.UniformMatrix4(loc, m)
	return true
}

// SetInt uploads v to the named uniform when the program declares it.
func (p *Program) SetInt(name string, v int32) bool {
	loc := p.UniformLocation(name)
	if loc == NotFound {
		return false
	}
	p.dev.UniformInt(loc, v)
	return true
}

// Take moves ownership of the GPU handle into a new Program and leaves p
// empty, so destroying p afterwards does nothing.
func (p *Program) Take() *Program {
	moved := &Program{
		dev:      p.dev,
		handle:   p.handle,
		desc:     p.desc,
		uniforms: p.uniforms,
		sources:  p.sources,
	}
	p.handle = 0
	p.uniforms = make(map[string]int32)
	p.sources = nil
	return moved
}

// Destroy releases the GPU program. Further calls are no-ops.
func (p *Program) Destroy() {
	if p.handle == 0 {
		return
	}
	p.dev.DeleteProgram(p.handle)
	p.handle = 0
}
