// Package materials parses shaderpack material declarations into pipeline
// states and resolves their parent inheritance.
package materials

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// MaxColorAttachments bounds framebuffer attachment indices.
const MaxColorAttachments = 8

// Document is one loosely typed material body as decoded from a material
// file.
type Document map[string]any

// Declaration is a material body together with the names its file key gave it.
type Declaration struct {
	Name     string
	Parent   string
	Document Document
}

// Output routes one fragment shader output location to a framebuffer
// attachment.
type Output struct {
	Location int
	Index    int
	Format   string
}

// SamplerState configures the sampler bound to one texture unit.
type SamplerState struct {
	SamplerIndex int
	Filter       Filter
	WrapMode     WrapMode
}

// TextureBinding names a texture sampled by the pass at a binding index.
type TextureBinding struct {
	Index            int
	Location         TextureLocation
	Name             string
	CalculateMipmaps bool
}

// PipelineState is the configuration of one named pass. Before resolution
// only the fields the declaration sets are populated; unset scalars are
// zero and unset lists are nil, except PassIndex which is nil when unset.
type PipelineState struct {
	Name   string
	Parent string

	Defines []string
	States  StateFlags

	VertexShader      string
	FragmentShader    string
	GeometryShader    string
	TessControlShader string
	TessEvalShader    string

	VertexFields  []VertexField
	SamplerStates []SamplerState
	Textures      []TextureBinding

	Filters  string
	Fallback string

	PassIndex *int

	Outputs      []Output
	OutputWidth  int
	OutputHeight int
}

// Pass returns the pass index, or -1 when none is set.
func (p *PipelineState) Pass() int {
	if p.PassIndex == nil {
		return -1
	}
	return *p.PassIndex
}

// ShaderHint returns the extension-less source hint for stage.
func (p *PipelineState) ShaderHint(stage ShaderStage) string {
	switch stage {
	case StageVertex:
		return p.VertexShader
	case StageFragment:
		return p.FragmentShader
	case StageGeometry:
		return p.GeometryShader
	case StageTessControl:
		return p.TessControlShader
	case StageTessEval:
		return p.TessEvalShader
	}
	return ""
}

// DeclaredStages lists the stages with a source hint, in link order.
func (p *PipelineState) DeclaredStages() []ShaderStage {
	var out []ShaderStage
	for _, s := range AllStages {
		if p.ShaderHint(s) != "" {
			out = append(out, s)
		}
	}
	return out
}

// ErrInheritanceCycle is wrapped by the ParseError of every state on a
// parent cycle.
var ErrInheritanceCycle = errors.New("inheritance cycle")

// ParseError reports a configuration problem with one pipeline state.
type ParseError struct {
	State string
	Key   string
	Err   error
}

func (e *ParseError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("material %q: %v", e.State, e.Err)
	}
	return fmt.Sprintf("material %q: key %q: %v", e.State, e.Key, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Parse converts a material document into a pipeline state. A state without
// a parent must be complete on its own; states with a parent are validated
// after resolution.
func Parse(doc Document, name, parent string) (*PipelineState, error) {
	p := &parser{state: name}
	st := &PipelineState{Name: name, Parent: parent}

	st.Defines = p.stringList(doc, "defines")
	for i, s := range p.stringList(doc, "states") {
		f, err := ParseStateFlag(s)
		if err != nil {
			p.fail(fmt.Sprintf("states[%d]", i), err)
			continue
		}
		st.States |= f
	}

	st.VertexShader = p.str(doc, "vertexShader")
	st.FragmentShader = p.str(doc, "fragmentShader")
	st.GeometryShader = p.str(doc, "geometryShader")
	st.TessControlShader = p.str(doc, "tessellationControlShader")
	st.TessEvalShader = p.str(doc, "tessellationEvaluationShader")

	for i, s := range p.stringList(doc, "vertexFields") {
		f, err := ParseVertexField(s)
		if err != nil {
			p.fail(fmt.Sprintf("vertexFields[%d]", i), err)
			continue
		}
		st.VertexFields = append(st.VertexFields, f)
	}

	for i, m := range p.objects(doc, "samplerStates") {
		key := fmt.Sprintf("samplerStates[%d]", i)
		ss := SamplerState{SamplerIndex: p.intAt(m, key, "samplerIndex", i)}
		if s := p.str(m, "filter"); s != "" {
			f, err := ParseFilter(s)
			p.check(key+".filter", err)
			ss.Filter = f
		}
		if s := p.str(m, "wrapMode"); s != "" {
			w, err := ParseWrapMode(s)
			p.check(key+".wrapMode", err)
			ss.WrapMode = w
		}
		st.SamplerStates = append(st.SamplerStates, ss)
	}

	for i, m := range p.objects(doc, "textures") {
		key := fmt.Sprintf("textures[%d]", i)
		tb := TextureBinding{
			Index: p.intAt(m, key, "index", i),
			Name:  p.str(m, "textureName"),
		}
		if s := p.str(m, "textureLocation"); s != "" {
			l, err := ParseTextureLocation(s)
			p.check(key+".textureLocation", err)
			tb.Location = l
		}
		if v, ok := m["calculateMipmaps"]; ok {
			b, isBool := v.(bool)
			if !isBool {
				p.fail(key+".calculateMipmaps", fmt.Errorf("expected bool, got %T", v))
			}
			tb.CalculateMipmaps = b
		}
		if tb.Name == "" {
			p.fail(key+".textureName", errors.New("missing"))
		}
		st.Textures = append(st.Textures, tb)
	}

	st.Filters = p.str(doc, "filters")
	st.Fallback = p.str(doc, "fallback")

	if _, ok := doc["passIndex"]; ok {
		idx := p.integer(doc, "passIndex")
		st.PassIndex = &idx
	}

	for i, m := range p.objects(doc, "outputs") {
		key := fmt.Sprintf("outputs[%d]", i)
		st.Outputs = append(st.Outputs, Output{
			Location: p.intAt(m, key, "location", i),
			Index:    p.intAt(m, key, "index", i),
			Format:   p.str(m, "format"),
		})
	}

	st.OutputWidth = p.integer(doc, "outputWidth")
	st.OutputHeight = p.integer(doc, "outputHeight")

	if p.err != nil {
		return nil, p.err
	}
	if parent == "" {
		if err := st.Validate(); err != nil {
			return nil, err
		}
	}
	return st, nil
}

// Validate checks the invariants of a fully resolved state.
func (p *PipelineState) Validate() error {
	fail := func(key string, err error) error {
		return &ParseError{State: p.Name, Key: key, Err: err}
	}
	if p.Name == "" {
		return fail("name", errors.New("missing"))
	}
	if p.Fallback == "" {
		if p.VertexShader == "" {
			return fail("vertexShader", errors.New("missing required shader"))
		}
		if p.FragmentShader == "" {
			return fail("fragmentShader", errors.New("missing required shader"))
		}
	}
	if (p.TessControlShader == "") != (p.TessEvalShader == "") {
		key := "tessellationEvaluationShader"
		if p.TessControlShader == "" {
			key = "tessellationControlShader"
		}
		return fail(key, errors.New("tessellation stages must be declared together"))
	}
	if p.PassIndex == nil {
		return fail("passIndex", errors.New("missing"))
	}
	if *p.PassIndex < 0 {
		return fail("passIndex", fmt.Errorf("must be non-negative, got %d", *p.PassIndex))
	}
	for i, o := range p.Outputs {
		if o.Index < 0 || o.Index >= MaxColorAttachments {
			return fail(fmt.Sprintf("outputs[%d].index", i),
				fmt.Errorf("attachment %d out of range [0,%d]", o.Index, MaxColorAttachments-1))
		}
		if o.Location < 0 || o.Location >= MaxColorAttachments {
			return fail(fmt.Sprintf("outputs[%d].location", i),
				fmt.Errorf("location %d out of range [0,%d]", o.Location, MaxColorAttachments-1))
		}
	}
	if p.OutputWidth < 0 || p.OutputHeight < 0 {
		return fail("outputWidth", errors.New("output size must be non-negative"))
	}
	return nil
}

// Encode converts a state back into a document Parse accepts.
func Encode(st *PipelineState) Document {
	doc := Document{}
	if len(st.Defines) > 0 {
		doc["defines"] = toAnyList(st.Defines)
	}
	if st.States != 0 {
		doc["states"] = toAnyList(st.States.Names())
	}
	putStr := func(key, v string) {
		if v != "" {
			doc[key] = v
		}
	}
	putStr("vertexShader", st.VertexShader)
	putStr("fragmentShader", st.FragmentShader)
	putStr("geometryShader", st.GeometryShader)
	putStr("tessellationControlShader", st.TessControlShader)
	putStr("tessellationEvaluationShader", st.TessEvalShader)
	putStr("filters", st.Filters)
	putStr("fallback", st.Fallback)

	if len(st.VertexFields) > 0 {
		fields := make([]any, len(st.VertexFields))
		for i, f := range st.VertexFields {
			fields[i] = f.String()
		}
		doc["vertexFields"] = fields
	}
	if len(st.SamplerStates) > 0 {
		list := make([]any, len(st.SamplerStates))
		for i, s := range st.SamplerStates {
			list[i] = map[string]any{
				"samplerIndex": s.SamplerIndex,
				"filter":       s.Filter.String(),
				"wrapMode":     s.WrapMode.String(),
			}
		}
		doc["samplerStates"] = list
	}
	if len(st.Textures) > 0 {
		list := make([]any, len(st.Textures))
		for i, t := range st.Textures {
			list[i] = map[string]any{
				"index":            t.Index,
				"textureLocation":  t.Location.String(),
				"textureName":      t.Name,
				"calculateMipmaps": t.CalculateMipmaps,
			}
		}
		doc["textures"] = list
	}
	if st.PassIndex != nil {
		doc["passIndex"] = *st.PassIndex
	}
	if len(st.Outputs) > 0 {
		list := make([]any, len(st.Outputs))
		for i, o := range st.Outputs {
			m := map[string]any{"location": o.Location, "index": o.Index}
			if o.Format != "" {
				m["format"] = o.Format
			}
			list[i] = m
		}
		doc["outputs"] = list
	}
	if st.OutputWidth != 0 {
		doc["outputWidth"] = st.OutputWidth
	}
	if st.OutputHeight != 0 {
		doc["outputHeight"] = st.OutputHeight
	}
	return doc
}

func toAnyList(s []string) []any {
	out := make([]any, len(s))
	for i, v := range s {
		out[i] = v
	}
	return out
}

// parser keeps the first error encountered so Parse can report the
// offending key.
type parser struct {
	state string
	err   error
}

func (p *parser) fail(key string, err error) {
	if p.err == nil {
		p.err = &ParseError{State: p.state, Key: key, Err: err}
	}
}

func (p *parser) check(key string, err error) {
	if err != nil {
		p.fail(key, err)
	}
}

func (p *parser) str(m map[string]any, key string) string {
	v, ok := m[key]
	if !ok || v == nil {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		p.fail(key, fmt.Errorf("expected string, got %T", v))
		return ""
	}
	return strings.TrimSpace(s)
}

func (p *parser) integer(m map[string]any, key string) int {
	v, ok := m[key]
	if !ok || v == nil {
		return 0
	}
	n, err := toInt(v)
	p.check(key, err)
	return n
}

// intAt reads an integer member of a list element, defaulting to def.
func (p *parser) intAt(m map[string]any, prefix, key string, def int) int {
	v, ok := m[key]
	if !ok || v == nil {
		return def
	}
	n, err := toInt(v)
	p.check(prefix+"."+key, err)
	return n
}

func (p *parser) list(m map[string]any, key string) []any {
	v, ok := m[key]
	if !ok || v == nil {
		return nil
	}
	l, ok := v.([]any)
	if !ok {
		p.fail(key, fmt.Errorf("expected list, got %T", v))
		return nil
	}
	return l
}

func (p *parser) stringList(m map[string]any, key string) []string {
	var out []string
	for i, v := range p.list(m, key) {
		s, ok := v.(string)
		if !ok {
			p.fail(fmt.Sprintf("%s[%d]", key, i), fmt.Errorf("expected string, got %T", v))
			continue
		}
		out = append(out, s)
	}
	return out
}

func (p *parser) objects(m map[string]any, key string) []map[string]any {
	var out []map[string]any
	for i, v := range p.list(m, key) {
		obj, ok := asObject(v)
		if !ok {
			p.fail(fmt.Sprintf("%s[%d]", key, i), fmt.Errorf("expected object, got %T", v))
			continue
		}
		out = append(out, obj)
	}
	return out
}

func asObject(v any) (map[string]any, bool) {
	switch o := v.(type) {
	case map[string]any:
		return o, true
	case Document:
		return o, true
	}
	return nil, false
}

func toInt(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case uint64:
		return int(n), nil
	case float64:
		if n != math.Trunc(n) {
			return 0, fmt.Errorf("expected integer, got %v", n)
		}
		return int(n), nil
	}
	return 0, fmt.Errorf("expected integer, got %T", v)
}
