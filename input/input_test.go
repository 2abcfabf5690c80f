package input

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeSource struct {
	keys    map[int]bool
	buttons map[int]bool
	x, y    float64
}

func (f *fakeSource) IsKeyPressed(key int) bool { return f.keys[key] }
func (f *fakeSource) IsMouseButtonPressed(button int) bool { return f.buttons[button] }
func (f *fakeSource) GetCursorPos() (float64, float64) { return f.x, f.y }

func TestKeyTransitions(t *testing.T) {
	src := &fakeSource{keys: map[int]bool{}, buttons: map[int]bool{}}
	h := NewHandler(src)
	h.Watch(87, 256, 9999)

	src.keys[87] = true
	src.keys[65] = true
	h.Update()
	assert.True(t, h.IsKeyPressed(87))
	assert.True(t, h.IsKeyDown(87))
	assert.False(t, h.IsKeyDown(65), "unwatched keys are not polled")
	assert.False(t, h.IsKeyDown(9999))

	h.Update()
	assert.False(t, h.IsKeyPressed(87))
	assert.True(t, h.IsKeyDown(87))

	src.keys[87] = false
	h.Update()
	assert.False(t, h.IsKeyDown(87))
}

func TestMouse(t *testing.T) {
	src := &fakeSource{keys: map[int]bool{}, buttons: map[int]bool{}, x: 10, y: 20}
	h := NewHandler(src)

	h.Update()
	assert.Zero(t, h.MouseDeltaX, "first frame has no delta")

	src.x, src.y = 15, 18
	src.buttons[MouseLeft] = true
	h.Update()
	assert.Equal(t, 5.0, h.MouseDeltaX)
	assert.Equal(t, -2.0, h.MouseDeltaY)
	assert.True(t, h.IsMousePressed(MouseLeft))

	src.buttons[MouseLeft] = false
	h.Update()
	assert.True(t, h.IsMouseReleased(MouseLeft))
	assert.False(t, h.IsMouseDown(-1))

	h.AddScroll(1.5)
	assert.Equal(t, 1.5, h.ScrollDelta)
	h.EndFrame()
	assert.Zero(t, h.ScrollDelta)
}
