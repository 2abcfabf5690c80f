package materials

import (
	"fmt"
	"strings"
)

// StateFlags is the set of rasterizer state overrides a material declares.
// A zero value means the default GPU state.
type StateFlags uint16

const (
	Blending StateFlags = 1 << iota
	InvertCulling
	DisableCulling
	DisableDepthWrite
	EnableStencilTest
	StencilWrite
	DisableColorWrite
	EnableAlphaToCoverage
)

var stateNames = []struct {
	flag StateFlags
	name string
}{
	{Blending, "Blending"},
	{InvertCulling, "InvertCulling"},
	{DisableCulling, "DisableCulling"},
	{DisableDepthWrite, "DisableDepthWrite"},
	{EnableStencilTest, "EnableStencilTest"},
	{StencilWrite, "StencilWrite"},
	{DisableColorWrite, "DisableColorWrite"},
	{EnableAlphaToCoverage, "EnableAlphaToCoverage"},
}

// Has reports whether every flag in f is set.
func (s StateFlags) Has(f StateFlags) bool { return s&f == f }

// Names lists the set flags in declaration order.
func (s StateFlags) Names() []string {
	var out []string
	for _, sn := range stateNames {
		if s.Has(sn.flag) {
			out = append(out, sn.name)
		}
	}
	return out
}

func (s StateFlags) String() string {
	if s == 0 {
		return "Default"
	}
	return strings.Join(s.Names(), "|")
}

// ParseStateFlag resolves a single state name. Matching ignores case.
func ParseStateFlag(name string) (StateFlags, error) {
	for _, sn := range stateNames {
		if strings.EqualFold(sn.name, name) {
			return sn.flag, nil
		}
	}
	return 0, fmt.Errorf("unknown state %q", name)
}

// Filter selects texture minification/magnification behaviour.
type Filter int

const (
	FilterTexelAA Filter = iota
	FilterBilinear
	FilterPoint
)

var filterNames = []string{"TexelAA", "Bilinear", "Point"}

func (f Filter) String() string {
	if f < 0 || int(f) >= len(filterNames) {
		return fmt.Sprintf("Filter(%d)", int(f))
	}
	return filterNames[f]
}

func ParseFilter(s string) (Filter, error) {
	i, ok := lookupFold(filterNames, s)
	if !ok {
		return 0, fmt.Errorf("unknown filter %q", s)
	}
	return Filter(i), nil
}

// WrapMode selects texture coordinate wrapping.
type WrapMode int

const (
	WrapRepeat WrapMode = iota
	WrapClamp
)

var wrapNames = []string{"Repeat", "Clamp"}

func (w WrapMode) String() string {
	if w < 0 || int(w) >= len(wrapNames) {
		return fmt.Sprintf("WrapMode(%d)", int(w))
	}
	return wrapNames[w]
}

func ParseWrapMode(s string) (WrapMode, error) {
	i, ok := lookupFold(wrapNames, s)
	if !ok {
		return 0, fmt.Errorf("unknown wrap mode %q", s)
	}
	return WrapMode(i), nil
}

// VertexField is the semantic kind of one vertex attribute. Its position in
// a material's vertex field list is the attribute binding index.
type VertexField int

const (
	FieldPosition VertexField = iota
	FieldColor
	FieldMainUV
	FieldLightmapUV
	FieldNormal
	FieldTangent
	FieldMidTexCoord
	FieldVirtualTextureID
	FieldEntityID
	FieldEmpty
)

var fieldNames = []string{
	"Position", "Color", "UV0", "UV1", "Normal", "Tangent",
	"MidTexCoord", "VirtualTextureId", "McEntityId", "Empty",
}

var fieldAliases = map[string]VertexField{
	"mainuv":     FieldMainUV,
	"lightmapuv": FieldLightmapUV,
	"entityid":   FieldEntityID,
}

// attributeNames are the GLSL input names bound to each field.
var attributeNames = []string{
	"position", "color", "uv0", "uv1", "normal", "tangent",
	"midTexCoord", "virtualTextureId", "mcEntity", "",
}

func (v VertexField) String() string {
	if v < 0 || int(v) >= len(fieldNames) {
		return fmt.Sprintf("VertexField(%d)", int(v))
	}
	return fieldNames[v]
}

// AttributeName is the shader input variable the field binds to, or ""
// for FieldEmpty.
func (v VertexField) AttributeName() string {
	if v < 0 || int(v) >= len(attributeNames) {
		return ""
	}
	return attributeNames[v]
}

func ParseVertexField(s string) (VertexField, error) {
	if i, ok := lookupFold(fieldNames, s); ok {
		return VertexField(i), nil
	}
	if f, ok := fieldAliases[strings.ToLower(s)]; ok {
		return f, nil
	}
	return 0, fmt.Errorf("unknown vertex field %q", s)
}

// TextureLocation says where a material texture comes from.
type TextureLocation int

const (
	// LocationDynamic textures are render targets produced by earlier passes.
	LocationDynamic TextureLocation = iota
	// LocationUserPackage textures ship with the shaderpack.
	LocationUserPackage
)

var locationNames = []string{"Dynamic", "InUserPackage"}

func (l TextureLocation) String() string {
	if l < 0 || int(l) >= len(locationNames) {
		return fmt.Sprintf("TextureLocation(%d)", int(l))
	}
	return locationNames[l]
}

func ParseTextureLocation(s string) (TextureLocation, error) {
	i, ok := lookupFold(locationNames, s)
	if !ok {
		return 0, fmt.Errorf("unknown texture location %q", s)
	}
	return TextureLocation(i), nil
}

// ShaderStage is one programmable pipeline stage.
type ShaderStage int

const (
	StageVertex ShaderStage = iota
	StageFragment
	StageGeometry
	StageTessControl
	StageTessEval
)

// AllStages lists the stages in link order.
var AllStages = []ShaderStage{StageVertex, StageTessControl, StageTessEval, StageGeometry, StageFragment}

var stageNames = []string{"vertex", "fragment", "geometry", "tessellation control", "tessellation evaluation"}

func (s ShaderStage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return fmt.Sprintf("ShaderStage(%d)", int(s))
	}
	return stageNames[s]
}

func lookupFold(names []string, s string) (int, bool) {
	for i, n := range names {
		if strings.EqualFold(n, s) {
			return i, true
		}
	}
	return 0, false
}
