package materials

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const terrainYAML = `
defines: [USE_FOG]
states: [blending, DisableCulling]
vertexShader: gbuffers_terrain
fragmentShader: gbuffers_terrain
vertexFields: [Position, Color, UV0, UV1, Normal, Tangent, MidTexCoord, VirtualTextureId, McEntityId]
samplerStates:
  - {samplerIndex: 0, filter: Point, wrapMode: Clamp}
textures:
  - {index: 0, textureLocation: InUserPackage, textureName: noise, calculateMipmaps: true}
filters: block
passIndex: 3
outputs:
  - {index: 0, format: RGBA8}
  - {location: 1, index: 4, format: RGBA16F}
outputWidth: 512
outputHeight: 256
`

func decode(t *testing.T, src string) Document {
	t.Helper()
	var doc Document
	require.NoError(t, yaml.Unmarshal([]byte(src), &doc))
	return doc
}

func TestParseReadsEveryField(t *testing.T) {
	st, err := Parse(decode(t, terrainYAML), "gbuffers_terrain", "")
	require.NoError(t, err)

	assert.Equal(t, []string{"USE_FOG"}, st.Defines)
	assert.True(t, st.States.Has(Blending|DisableCulling))
	assert.False(t, st.States.Has(StencilWrite))
	assert.Equal(t, "gbuffers_terrain", st.VertexShader)
	assert.Equal(t, FieldMainUV, st.VertexFields[2])
	assert.Equal(t, FieldEntityID, st.VertexFields[8])
	assert.Equal(t, []SamplerState{{SamplerIndex: 0, Filter: FilterPoint, WrapMode: WrapClamp}}, st.SamplerStates)
	assert.Equal(t, []TextureBinding{{Index: 0, Location: LocationUserPackage, Name: "noise", CalculateMipmaps: true}}, st.Textures)
	assert.Equal(t, "block", st.Filters)
	assert.Equal(t, 3, st.Pass())
	assert.Equal(t, []Output{{Location: 0, Index: 0, Format: "RGBA8"}, {Location: 1, Index: 4, Format: "RGBA16F"}}, st.Outputs)
	assert.Equal(t, 512, st.OutputWidth)
	assert.Equal(t, 256, st.OutputHeight)
	assert.Equal(t, []ShaderStage{StageVertex, StageFragment}, st.DeclaredStages())
}

func TestParseRejectsBadValues(t *testing.T) {
	cases := []struct {
		name string
		doc  string
		key  string
	}{
		{"unknown state", "vertexShader: a\nfragmentShader: a\npassIndex: 0\nstates: [Wobbly]", "states[0]"},
		{"bad filter", "vertexShader: a\nfragmentShader: a\npassIndex: 0\nsamplerStates: [{samplerIndex: 0, filter: Cubic}]", "samplerStates[0].filter"},
		{"bad vertex field", "vertexShader: a\nfragmentShader: a\npassIndex: 0\nvertexFields: [Position, Bone]", "vertexFields[1]"},
		{"fractional pass", "vertexShader: a\nfragmentShader: a\npassIndex: 1.5", "passIndex"},
		{"missing fragment", "vertexShader: a\npassIndex: 0", "fragmentShader"},
		{"missing pass", "vertexShader: a\nfragmentShader: a", "passIndex"},
		{"negative pass", "vertexShader: a\nfragmentShader: a\npassIndex: -2", "passIndex"},
		{"lone tessellation", "vertexShader: a\nfragmentShader: a\npassIndex: 0\ntessellationControlShader: t", "tessellationEvaluationShader"},
		{"attachment range", "vertexShader: a\nfragmentShader: a\npassIndex: 0\noutputs: [{index: 8}]", "outputs[0].index"},
		{"output location range", "vertexShader: a\nfragmentShader: a\npassIndex: 0\noutputs: [{location: 9, index: 0}]", "outputs[0].location"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse(decode(t, tc.doc), "broken", "")
			var pe *ParseError
			require.True(t, errors.As(err, &pe), "got %v", err)
			assert.Equal(t, "broken", pe.State)
			assert.Equal(t, tc.key, pe.Key)
		})
	}
}

func TestParseAllowsMissingShadersWithFallback(t *testing.T) {
	st, err := Parse(decode(t, "fallback: basic\npassIndex: 2"), "fancy", "")
	require.NoError(t, err)
	assert.Equal(t, "basic", st.Fallback)
}

func TestParseChildDefersValidation(t *testing.T) {
	st, err := Parse(decode(t, "fragmentShader: water"), "gbuffers_water", "gbuffers_terrain")
	require.NoError(t, err)
	assert.Nil(t, st.PassIndex)
	assert.Equal(t, -1, st.Pass())
}

func TestEncodeRoundTrip(t *testing.T) {
	st, err := Parse(decode(t, terrainYAML), "gbuffers_terrain", "")
	require.NoError(t, err)

	out, err := yaml.Marshal(Encode(st))
	require.NoError(t, err)

	again, err := Parse(decode(t, string(out)), "gbuffers_terrain", "")
	require.NoError(t, err)
	assert.Equal(t, st.Pass(), again.Pass())
	assert.Equal(t, st.Outputs, again.Outputs)
	assert.Equal(t, st.VertexFields, again.VertexFields)
	assert.Equal(t, st, again)
}

func TestStateFlagsString(t *testing.T) {
	assert.Equal(t, "Default", StateFlags(0).String())
	assert.Equal(t, "Blending|StencilWrite", (StencilWrite | Blending).String())
}
