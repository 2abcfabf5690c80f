// Package textures keeps named GPU textures for passes and renderables.
package textures

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"io/fs"
	"sync"

	"go.uber.org/zap"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"voxel-renderer/gpu"
	"voxel-renderer/internal/logger"
)

// ErrNotFound is returned for names that were never added.
var ErrNotFound = errors.New("texture not found")

// Texture is one uploaded texture.
type Texture struct {
	Name    string
	Handle  uint32
	Width   int
	Height  int
	Mipmaps bool
	Path    string // empty for generated textures
}

// Manager maps texture names to GPU textures.
type Manager struct {
	dev      gpu.Device
	mu       sync.RWMutex
	textures map[string]*Texture
}

func NewManager(dev gpu.Device) *Manager {
	return &Manager{
		dev:      dev,
		textures: make(map[string]*Texture),
	}
}

// Add uploads img under name, replacing and releasing any texture already
// registered with that name.
func (m *Manager) Add(name string, img image.Image, mipmaps bool) *Texture {
	pixels, w, h := toRGBA(img)
	tex := &Texture{
		Name:    name,
		Handle:  m.dev.CreateTexture(w, h, pixels, mipmaps),
		Width:   w,
		Height:  h,
		Mipmaps: mipmaps,
	}

	m.mu.Lock()
	old := m.textures[name]
	m.textures[name] = tex
	m.mu.Unlock()

	if old != nil {
		m.dev.DeleteTexture(old.Handle)
	}
	return tex
}

// LoadFile decodes path from fsys (png, jpeg, bmp, tiff or webp) and adds
// it under name.
func (m *Manager) LoadFile(name string, fsys fs.FS, path string, mipmaps bool) (*Texture, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open texture %s: %w", path, err)
	}
	defer f.Close()

	img, format, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode texture %s: %w", path, err)
	}
	tex := m.Add(name, img, mipmaps)
	tex.Path = path
	logger.Log.Debug("Loaded texture",
		zap.String("name", name),
		zap.String("path", path),
		zap.String("format", format),
		zap.Int("width", tex.Width),
		zap.Int("height", tex.Height))
	return tex, nil
}

// AddSolidColor registers a 1x1 texture of colour c.
func (m *Manager) AddSolidColor(name string, c color.RGBA) *Texture {
	img := image.NewRGBA(image.Rect(0, 0, 1, 1))
	img.SetRGBA(0, 0, c)
	return m.Add(name, img, false)
}

// Get returns the texture registered as name.
func (m *Manager) Get(name string) (*Texture, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	tex, ok := m.textures[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return tex, nil
}

// Texture returns the GPU handle of name.
func (m *Manager) Texture(name string) (uint32, error) {
	tex, err := m.Get(name)
	if err != nil {
		return 0, err
	}
	return tex.Handle, nil
}

// Bind attaches handle to texture unit.
func (m *Manager) Bind(handle, unit uint32) {
	m.dev.BindTexture(unit, handle)
}

// Len returns the number of registered textures.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.textures)
}

// Destroy releases every texture.
func (m *Manager) Destroy() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, tex := range m.textures {
		m.dev.DeleteTexture(tex.Handle)
	}
	m.textures = make(map[string]*Texture)
}

func toRGBA(img image.Image) ([]byte, int, int) {
	b := img.Bounds()
	if rgba, ok := img.(*image.RGBA); ok && rgba.Stride == 4*b.Dx() && b.Min == (image.Point{}) {
		return rgba.Pix, b.Dx(), b.Dy()
	}
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst.Pix, b.Dx(), b.Dy()
}
