package ubo

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voxel-renderer/gpu/gputest"
	"voxel-renderer/materials"
	"voxel-renderer/shader"
)

func program(t *testing.T, dev *gputest.Device, name string) *shader.Program {
	t.Helper()
	pass := 0
	st := &materials.PipelineState{Name: name, VertexShader: name, FragmentShader: name, PassIndex: &pass}
	p, err := shader.Compile(dev, st, shader.LoaderFunc(func(*materials.PipelineState, materials.ShaderStage) ([]shader.SourceLine, error) {
		return shader.Lines(name, "#version 450\nvoid main() {}"), nil
	}))
	require.NoError(t, err)
	return p
}

func TestPerFrameLayoutIsStd140(t *testing.T) {
	assert.Equal(t, 4*64+16, binary.Size(PerFrameUniforms{}))
}

func TestStoreBindsPerFrameBuffer(t *testing.T) {
	dev := gputest.New()
	s := NewStore(dev)

	b := s.PerFrameUniforms()
	assert.Equal(t, PerFrameBlock, b.Name())
	assert.Equal(t, uint32(0), b.Binding())
	assert.Equal(t, 272, b.Size())
	assert.Equal(t, []string{"CreateUniformBuffer 272", "BindUniformBuffer 0 1"}, dev.Calls)

	s.Destroy()
	s.Destroy()
	assert.Equal(t, 1, dev.Count("DeleteBuffer"))
	assert.Empty(t, dev.LiveBuffers)
}

func TestRegisterOnlyDeclaredBlocks(t *testing.T) {
	dev := gputest.New()
	s := NewStore(dev)
	withBlock := program(t, dev, "gbuffers_terrain")

	dev.Blocks[PerFrameBlock] = 3
	dev.Reset()
	assert.Equal(t, 1, s.RegisterAllBuffersWithShader(withBlock))
	assert.Equal(t, []string{"UniformBlockBinding 4 3 0"}, dev.Filter("UniformBlockBinding"))

	delete(dev.Blocks, PerFrameBlock)
	dev.Reset()
	assert.Zero(t, s.RegisterAllBuffersWithShader(withBlock))
	assert.Zero(t, dev.Count("UniformBlockBinding"))
}

func TestSendDataUploadsLittleEndian(t *testing.T) {
	dev := gputest.New()
	s := NewStore(dev)

	proj := mgl32.Perspective(mgl32.DegToRad(70), 16.0/9.0, 0.1, 1000)
	view := mgl32.Translate3D(1, 2, 3)
	u := NewPerFrameUniforms(proj, view, 1920, 1080, 7)
	require.NoError(t, s.PerFrameUniforms().SendData(u))

	data := dev.Uploads[s.PerFrameUniforms().Handle()]
	require.Len(t, data, 272)
	f := func(i int) float32 { return math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:])) }
	assert.Equal(t, view[12], f(12))
	assert.Equal(t, proj[0], f(32))
	assert.Equal(t, float32(1920), f(64))
	assert.Equal(t, float32(1080), f(65))
	assert.InDelta(t, 16.0/9.0, f(66), 1e-6)
	assert.Equal(t, float32(7), f(67))
	assert.InDelta(t, -1, f(16+12), 1e-6, "inverse model-view undoes the translation")
}

func TestSendDataRejectsOversizedValues(t *testing.T) {
	dev := gputest.New()
	s := NewStore(dev)
	type tooBig struct{ M [5]mgl32.Mat4 }
	assert.Error(t, s.PerFrameUniforms().SendData(tooBig{}))
	assert.Error(t, s.PerFrameUniforms().SendData(map[string]int{}))
	assert.Zero(t, dev.Count("UpdateUniformBuffer"))
}
