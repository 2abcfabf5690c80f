// Package ubo owns the uniform buffers shared by every program of a
// shaderpack.
package ubo

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"voxel-renderer/gpu"
	"voxel-renderer/internal/logger"
	"voxel-renderer/shader"
)

// PerFrameBlock is the GLSL uniform block name of the per-frame buffer.
const PerFrameBlock = "per_frame_uniforms"

// PerFrameUniforms is the std140 layout of the per-frame block:
//
//	layout(std140) uniform per_frame_uniforms {
//	    mat4 gbufferModelView;
//	    mat4 gbufferModelViewInverse;
//	    mat4 gbufferProjection;
//	    mat4 gbufferProjectionInverse;
//	    float viewWidth;
//	    float viewHeight;
//	    float aspectRatio;
//	    float frameCounter;
//	};
type PerFrameUniforms struct {
	ModelView         mgl32.Mat4
	ModelViewInverse  mgl32.Mat4
	Projection        mgl32.Mat4
	ProjectionInverse mgl32.Mat4
	ViewWidth         float32
	ViewHeight        float32
	AspectRatio       float32
	FrameCounter      float32
}

// NewPerFrameUniforms fills the derived fields from the camera matrices and
// view size.
func NewPerFrameUniforms(projection, modelView mgl32.Mat4, width, height int, frame uint64) PerFrameUniforms {
	u := PerFrameUniforms{
		ModelView:         modelView,
		ModelViewInverse:  modelView.Inv(),
		Projection:        projection,
		ProjectionInverse: projection.Inv(),
		ViewWidth:         float32(width),
		ViewHeight:        float32(height),
		FrameCounter:      float32(frame % 720720),
	}
	if height > 0 {
		u.AspectRatio = float32(width) / float32(height)
	}
	return u
}

// Buffer is one uniform buffer bound to a fixed binding point.
type Buffer struct {
	dev     gpu.Device
	name    string
	binding uint32
	size    int
	handle  uint32
}

func (b *Buffer) Name() string { return b.name }
func (b *Buffer) Binding() uint32 { return b.binding }
func (b *Buffer) Handle() uint32 { return b.handle }
func (b *Buffer) Size() int { return b.size }

// SendData uploads v, which must be a fixed-size value laid out for std140
// and no larger than the buffer.
func (b *Buffer) SendData(v any) error {
	var buf bytes.Buffer
	buf.Grow(b.size)
	if err := binary.Write(&buf, binary.LittleEndian, v); err != nil {
		return fmt.Errorf("encode %s: %w", b.name, err)
	}
	if buf.Len() > b.size {
		return fmt.Errorf("encode %s: %d bytes exceed buffer size %d", b.name, buf.Len(), b.size)
	}
	b.dev.UpdateUniformBuffer(b.handle, buf.Bytes())
	return nil
}

// Store owns the shared uniform buffers.
type Store struct {
	dev      gpu.Device
	buffers  []*Buffer
	perFrame *Buffer
}

// NewStore allocates the per-frame buffer and binds it at binding point 0.
func NewStore(dev gpu.Device) *Store {
	s := &Store{dev: dev}
	s.perFrame = s.add(PerFrameBlock, binary.Size(PerFrameUniforms{}))
	return s
}

func (s *Store) add(name string, size int) *Buffer {
	b := &Buffer{
		dev:     s.dev,
		name:    name,
		binding: uint32(len(s.buffers)),
		size:    size,
		handle:  s.dev.CreateUniformBuffer(size),
	}
	s.dev.BindUniformBuffer(b.binding, b.handle)
	s.buffers = append(s.buffers, b)
	return b
}

// PerFrameUniforms returns the buffer updated once per frame.
func (s *Store) PerFrameUniforms() *Buffer { return s.perFrame }

// Buffers lists every owned buffer in binding order.
func (s *Store) Buffers() []*Buffer { return append([]*Buffer(nil), s.buffers...) }

// RegisterAllBuffersWithShader points each block the program declares at
// the binding point of the matching buffer. It returns the number of blocks
// bound.
func (s *Store) RegisterAllBuffersWithShader(p *shader.Program) int {
	bound := 0
	for _, b := range s.buffers {
		idx := s.dev.UniformBlockIndex(p.Handle(), b.name)
		if idx == gpu.InvalidIndex {
			continue
		}
		s.dev.UniformBlockBinding(p.Handle(), idx, b.binding)
		bound++
	}
	logger.Log.Debug("Registered uniform buffers",
		zap.String("program", p.Name()), zap.Int("blocks", bound))
	return bound
}

// Destroy releases every buffer.
func (s *Store) Destroy() {
	for _, b := range s.buffers {
		if b.handle != 0 {
			s.dev.DeleteBuffer(b.handle)
			b.handle = 0
		}
	}
}
