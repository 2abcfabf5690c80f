// Package shaderpack compiles a named collection of material states into
// ordered, ready-to-run passes.
package shaderpack

import (
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"voxel-renderer/gpu"
	"voxel-renderer/internal/logger"
	"voxel-renderer/materials"
	"voxel-renderer/shader"
)

// ErrNotFound is wrapped by lookups of unknown pass names.
var ErrNotFound = errors.New("not found")

// ErrNoShaders marks a state that declares no vertex and fragment shader
// of its own and must rely on its fallback.
var ErrNoShaders = errors.New("no vertex and fragment shader declared")

// Pass is a compiled program with the resolved state it was built from.
type Pass struct {
	State   *materials.PipelineState
	Program *shader.Program
	Stage   PassStage
	// FallbackFrom names the state whose shaders replaced this pass's own,
	// empty when the pass compiled itself.
	FallbackFrom string
}

func (p *Pass) Name() string { return p.State.Name }

// Omission records a state left out of the pack and why.
type Omission struct {
	Name string
	Err  error
}

// Shaderpack is immutable once loaded.
type Shaderpack struct {
	name    string
	passes  map[string]*Pass
	ordered []*Pass
	omitted []Omission
}

type loadOptions struct {
	rules StageRules
}

// Option customises Load.
type Option func(*loadOptions)

// WithStageRules replaces the pass-name-to-stage mapping.
func WithStageRules(r StageRules) Option {
	return func(o *loadOptions) { o.rules = r }
}

// Load parses, resolves and compiles every state of pack. States that fail
// at any step are omitted and reported through Omitted; the error return is
// reserved for a pack whose documents cannot be read at all.
func Load(dev gpu.Device, pack string, loader SourceLoader, opts ...Option) (*Shaderpack, error) {
	o := loadOptions{rules: DefaultStageRules}
	for _, opt := range opts {
		opt(&o)
	}

	decls, err := loader.LoadMaterialDocuments(pack)
	if err != nil {
		return nil, fmt.Errorf("load shaderpack %q: %w", pack, err)
	}

	sp := &Shaderpack{name: pack, passes: make(map[string]*Pass)}

	states, errs := materials.Resolve(decls)
	for _, err := range errs {
		name := ""
		var pe *materials.ParseError
		if errors.As(err, &pe) {
			name = pe.State
		}
		sp.omit(name, err)
	}

	byName := make(map[string]*materials.PipelineState, len(states))
	// Parents and fallbacks may be unstaged: they exist to be borrowed from.
	borrowed := make(map[string]bool)
	for _, st := range states {
		byName[st.Name] = st
		borrowed[st.Parent] = true
		borrowed[st.Fallback] = true
	}
	source := shader.LoaderFunc(func(st *materials.PipelineState, stage materials.ShaderStage) ([]shader.SourceLine, error) {
		return loader.LoadShaderSource(pack, st, stage)
	})

	for _, st := range states {
		st = withDefaultFilter(st)
		prog, from, err := compileWithFallback(dev, st, byName, source)
		if err != nil {
			sp.omit(st.Name, err)
			continue
		}
		p := &Pass{State: st, Program: prog, Stage: o.rules.Classify(st.Name), FallbackFrom: from}
		if from != "" {
			logger.Log.Warn("Pass uses fallback shaders",
				zap.String("pack", pack), zap.String("pass", st.Name), zap.String("fallback", from))
		}
		if p.Stage == StageNone && !borrowed[st.Name] {
			logger.Log.Warn("Pass matches no frame stage and will not run",
				zap.String("pack", pack), zap.String("pass", st.Name))
		}
		sp.passes[st.Name] = p
		sp.ordered = append(sp.ordered, p)
	}

	sort.SliceStable(sp.ordered, func(i, j int) bool {
		return sp.ordered[i].State.Pass() < sp.ordered[j].State.Pass()
	})

	logger.Log.Info("Loaded shaderpack",
		zap.String("pack", pack),
		zap.Int("passes", len(sp.ordered)),
		zap.Int("omitted", len(sp.omitted)))
	return sp, nil
}

func (sp *Shaderpack) omit(name string, err error) {
	sp.omitted = append(sp.omitted, Omission{Name: name, Err: err})
	logger.Log.Warn("Omitting pass", zap.String("pack", sp.name), zap.String("pass", name), zap.Error(err))
}

// withDefaultFilter gives a state without a filter its own name as filter.
func withDefaultFilter(st *materials.PipelineState) *materials.PipelineState {
	if st.Filters != "" {
		return st
	}
	cp := *st
	cp.Filters = st.Name
	return &cp
}

// compileWithFallback compiles st, then each state on its fallback chain
// in turn. A fallback lends its shaders and defines; the pass keeps its own
// name, filter and outputs.
func compileWithFallback(dev gpu.Device, st *materials.PipelineState, byName map[string]*materials.PipelineState, source shader.Loader) (*shader.Program, string, error) {
	var errs []error
	visited := map[string]bool{}
	cur, from := st, ""
	for {
		visited[cur.Name] = true
		prog, err := compileOwn(dev, st, cur, source)
		if err == nil {
			return prog, from, nil
		}
		errs = append(errs, err)

		next := cur.Fallback
		if next == "" {
			break
		}
		if visited[next] {
			errs = append(errs, fmt.Errorf("fallback %q already tried", next))
			break
		}
		fb, ok := byName[next]
		if !ok {
			errs = append(errs, fmt.Errorf("fallback %q: %w", next, ErrNotFound))
			break
		}
		cur, from = fb, next
	}
	return nil, "", fmt.Errorf("pass %q has no working shader: %w", st.Name, errors.Join(errs...))
}

func compileOwn(dev gpu.Device, pass, shaders *materials.PipelineState, source shader.Loader) (*shader.Program, error) {
	if shaders.VertexShader == "" || shaders.FragmentShader == "" {
		return nil, fmt.Errorf("state %q: %w", shaders.Name, ErrNoShaders)
	}
	if pass == shaders {
		return shader.Compile(dev, pass, source)
	}
	hybrid := *shaders
	hybrid.Name = pass.Name
	hybrid.Filters = pass.Filters
	lender := shader.LoaderFunc(func(_ *materials.PipelineState, stage materials.ShaderStage) ([]shader.SourceLine, error) {
		return source.LoadShaderSource(shaders, stage)
	})
	return shader.Compile(dev, &hybrid, lender)
}

// Name is the pack name the shaderpack was loaded from.
func (sp *Shaderpack) Name() string { return sp.name }

// Get returns the pass called name.
func (sp *Shaderpack) Get(name string) (*Pass, error) {
	p, ok := sp.passes[name]
	if !ok {
		return nil, fmt.Errorf("pass %q: %w", name, ErrNotFound)
	}
	return p, nil
}

// GetShader returns the program of the pass called name.
func (sp *Shaderpack) GetShader(name string) (*shader.Program, error) {
	p, err := sp.Get(name)
	if err != nil {
		return nil, err
	}
	return p.Program, nil
}

// Passes returns every pass by ascending pass index; equal indices keep
// discovery order.
func (sp *Shaderpack) Passes() []*Pass {
	return append([]*Pass(nil), sp.ordered...)
}

// PassesIn returns the ordered passes of one stage.
func (sp *Shaderpack) PassesIn(stage PassStage) []*Pass {
	var out []*Pass
	for _, p := range sp.ordered {
		if p.Stage == stage {
			out = append(out, p)
		}
	}
	return out
}

// Programs returns every compiled program in pass order.
func (sp *Shaderpack) Programs() []*shader.Program {
	out := make([]*shader.Program, len(sp.ordered))
	for i, p := range sp.ordered {
		out[i] = p.Program
	}
	return out
}

// Omitted lists the states left out of the pack.
func (sp *Shaderpack) Omitted() []Omission {
	return append([]Omission(nil), sp.omitted...)
}

// Destroy releases every program.
func (sp *Shaderpack) Destroy() {
	for _, p := range sp.ordered {
		p.Program.Destroy()
	}
}
