package textures

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voxel-renderer/gpu/gputest"
)

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestLoadFile(t *testing.T) {
	dev := gputest.New()
	m := NewManager(dev)
	fsys := fstest.MapFS{
		"textures/lightmap.png": {Data: encodePNG(t, 16, 8)},
		"textures/broken.png":   {Data: []byte("not a png")},
	}

	tex, err := m.LoadFile("lightmap", fsys, "textures/lightmap.png", true)
	require.NoError(t, err)
	assert.Equal(t, 16, tex.Width)
	assert.Equal(t, 8, tex.Height)
	assert.Equal(t, "textures/lightmap.png", tex.Path)
	assert.Equal(t, []string{"CreateTexture 16x8 mipmaps=true"}, dev.Filter("CreateTexture"))

	h, err := m.Texture("lightmap")
	require.NoError(t, err)
	assert.Equal(t, tex.Handle, h)

	_, err = m.LoadFile("broken", fsys, "textures/broken.png", false)
	assert.Error(t, err)
	_, err = m.LoadFile("missing", fsys, "textures/missing.png", false)
	assert.Error(t, err)
	assert.Equal(t, 1, m.Len())
}

func TestUnknownTexture(t *testing.T) {
	m := NewManager(gputest.New())
	_, err := m.Texture("lightmap")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), `"lightmap"`)
}

func TestAddReplacesAndReleases(t *testing.T) {
	dev := gputest.New()
	m := NewManager(dev)
	first := m.AddSolidColor("gui_atlas", color.RGBA{255, 0, 0, 255})
	second := m.AddSolidColor("gui_atlas", color.RGBA{0, 255, 0, 255})

	assert.NotEqual(t, first.Handle, second.Handle)
	assert.False(t, dev.LiveTextures[first.Handle])
	assert.True(t, dev.LiveTextures[second.Handle])
	assert.Equal(t, 1, m.Len())

	m.Bind(second.Handle, 3)
	assert.Equal(t, second.Handle, dev.BoundTextures[3])

	m.Destroy()
	assert.Empty(t, dev.LiveTextures)
	assert.Zero(t, m.Len())
}

func TestToRGBAHandlesOffsetBounds(t *testing.T) {
	src := image.NewGray(image.Rect(2, 2, 4, 3))
	src.SetGray(3, 2, color.Gray{Y: 128})
	pix, w, h := toRGBA(src)
	assert.Equal(t, 2, w)
	assert.Equal(t, 1, h)
	assert.Equal(t, []byte{0, 0, 0, 255, 128, 128, 128, 255}, pix)
}
