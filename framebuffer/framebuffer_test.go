package framebuffer

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voxel-renderer/gpu/gputest"
)

func TestDuplicateAttachmentIsIdempotent(t *testing.T) {
	dev := gputest.New()
	fb, err := NewBuilder().
		SetSize(1920, 1080).
		EnableColorAttachment(0).
		EnableColorAttachment(0).
		Build(dev)
	require.NoError(t, err)

	w, h := fb.Size()
	assert.Equal(t, 1920, w)
	assert.Equal(t, 1080, h)
	assert.Equal(t, []int{0}, fb.Attachments())
	require.Len(t, dev.Framebuffers, 1)
	assert.Equal(t, []int{0}, dev.Framebuffers[0].Attachments)
	assert.NotZero(t, fb.ColorTexture(0))
	assert.Zero(t, fb.ColorTexture(1))
}

func TestBuildWithoutSizeFails(t *testing.T) {
	dev := gputest.New()
	_, err := NewBuilder().EnableColorAttachment(3).Build(dev)
	assert.ErrorIs(t, err, ErrNoSize)
	assert.Zero(t, dev.Count("CreateFramebuffer"))
}

func TestBuilderIsReusable(t *testing.T) {
	dev := gputest.New()
	b := NewBuilder().SetSize(800, 600)
	for i := 7; i >= 0; i-- {
		b.EnableColorAttachment(i)
	}
	first, err := b.Build(dev)
	require.NoError(t, err)

	second, err := b.SetSize(1024, 768).Build(dev)
	require.NoError(t, err)

	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7}, first.Attachments())
	assert.Equal(t, first.Attachments(), second.Attachments())
	w, _ := first.Size()
	assert.Equal(t, 800, w)
	w, _ = second.Size()
	assert.Equal(t, 1024, w)
	assert.NotEqual(t, first.FBO(), second.FBO())
	assert.True(t, second.HasAttachment(5))
}

func TestBuildPropagatesDeviceErrors(t *testing.T) {
	dev := gputest.New()
	dev.FramebufferErr = errors.New("incomplete: status=0x8CD6")
	_, err := NewBuilder().SetSize(4, 4).EnableColorAttachment(0).Build(dev)
	assert.ErrorIs(t, err, dev.FramebufferErr)
}

func TestAttachmentRangeIsChecked(t *testing.T) {
	dev := gputest.New()
	b := NewBuilder().SetSize(4, 4).EnableColorAttachment(0).EnableColorAttachment(8).EnableColorAttachment(-1)
	assert.Equal(t, []int{0}, b.Attachments())

	_, err := b.Build(dev)
	assert.ErrorIs(t, err, ErrAttachmentRange)
	assert.ErrorContains(t, err, "[8 -1]")
	assert.Zero(t, dev.Count("CreateFramebuffer"))
}

func TestDestroyIsIdempotent(t *testing.T) {
	dev := gputest.New()
	fb, err := NewBuilder().SetSize(16, 16).EnableColorAttachment(1).Build(dev)
	require.NoError(t, err)
	fb.Destroy()
	fb.Destroy()
	assert.Equal(t, 1, dev.Count("DeleteFramebuffer"))
	assert.Empty(t, dev.LiveFBOs)
}
