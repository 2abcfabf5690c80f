// Package framebuffer builds the fixed-size render targets passes draw into.
package framebuffer

import (
	"errors"
	"fmt"
	"sort"

	"voxel-renderer/gpu"
	"voxel-renderer/materials"
)

var (
	// ErrNoSize is returned by Build when SetSize was never called.
	ErrNoSize = errors.New("framebuffer size not set")
	// ErrAttachmentRange is returned by Build when an enabled colour
	// attachment index was outside [0,7].
	ErrAttachmentRange = errors.New("colour attachment out of range")
)

// Builder accumulates a size and a set of colour attachments. It is not
// consumed by Build and can be reused to rebuild at another size.
type Builder struct {
	width, height int
	sized         bool
	enabled       [materials.MaxColorAttachments]bool
	outOfRange    []int
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{}
}

func (b *Builder) SetSize(width, height int) *Builder {
	b.width, b.height = width, height
	b.sized = true
	return b
}

// EnableColorAttachment marks index for allocation. Enabling an index twice
// has no further effect. Indices outside [0,7] are remembered and fail Build.
func (b *Builder) EnableColorAttachment(index int) *Builder {
	if index < 0 || index >= materials.MaxColorAttachments {
		b.outOfRange = append(b.outOfRange, index)
		return b
	}
	b.enabled[index] = true
	return b
}

// Attachments lists the enabled indices in ascending order.
func (b *Builder) Attachments() []int {
	var out []int
	for i, on := range b.enabled {
		if on {
			out = append(out, i)
		}
	}
	return out
}

// Build allocates storage for exactly the enabled attachments.
func (b *Builder) Build(dev gpu.Device) (*Framebuffer, error) {
	if !b.sized {
		return nil, ErrNoSize
	}
	if len(b.outOfRange) > 0 {
		return nil, fmt.Errorf("%w: %v", ErrAttachmentRange, b.outOfRange)
	}
	if b.width <= 0 || b.height <= 0 {
		return nil, fmt.Errorf("framebuffer size %dx%d is not positive", b.width, b.height)
	}
	attachments := b.Attachments()
	targets, err := dev.CreateFramebuffer(b.width, b.height, attachments)
	if err != nil {
		return nil, fmt.Errorf("create %dx%d framebuffer: %w", b.width, b.height, err)
	}
	return &Framebuffer{
		dev:         dev,
		targets:     targets,
		width:       b.width,
		height:      b.height,
		attachments: attachments,
	}, nil
}

// Framebuffer is an immutable set of render targets.
type Framebuffer struct {
	dev           gpu.Device
	targets       gpu.FramebufferTargets
	width, height int
	attachments   []int
}

func (f *Framebuffer) Size() (width, height int) { return f.width, f.height }

// Attachments lists the allocated colour attachment indices in ascending order.
func (f *Framebuffer) Attachments() []int {
	return append([]int(nil), f.attachments...)
}

// HasAttachment reports whether index was allocated.
func (f *Framebuffer) HasAttachment(index int) bool {
	i := sort.SearchInts(f.attachments, index)
	return i < len(f.attachments) && f.attachments[i] == index
}

// ColorTexture returns the texture behind attachment index, or zero.
func (f *Framebuffer) ColorTexture(index int) uint32 {
	if index < 0 || index >= len(f.targets.Color) {
		return 0
	}
	return f.targets.Color[index]
}

// FBO is the native framebuffer object.
func (f *Framebuffer) FBO() uint32 { return f.targets.FBO }

// Bind makes the framebuffer the draw target and covers it with the viewport.
func (f *Framebuffer) Bind() {
	f.dev.BindFramebuffer(f.targets.FBO)
	f.dev.Viewport(0, 0, f.width, f.height)
}

// Destroy releases the GPU objects. Further calls are no-ops.
func (f *Framebuffer) Destroy() {
	if f.targets.FBO == 0 {
		return
	}
	f.dev.DeleteFramebuffer(f.targets)
	f.targets = gpu.FramebufferTargets{}
}
