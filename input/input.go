// Package input turns polled window state into per-frame key and mouse
// transitions.
package input

// Source is the window state the handler polls once per frame.
type Source interface {
	IsKeyPressed(key int) bool
	IsMouseButtonPressed(button int) bool
	GetCursorPos() (float64, float64)
}

const (
	MouseLeft   = 0
	MouseRight  = 1
	MouseMiddle = 2
)

const (
	maxKeys    = 512
	maxButtons = 8
)

// Handler tracks mouse and watched-key state across frames.
type Handler struct {
	MouseX, MouseY           float64
	MouseDeltaX, MouseDeltaY float64
	ScrollDelta              float64
	lastMouseX, lastMouseY   float64

	mouseButtons     [maxButtons]bool
	mouseButtonsPrev [maxButtons]bool

	keys     [maxKeys]bool
	keysPrev [maxKeys]bool
	watched  []int

	src        Source
	firstFrame bool
}

func NewHandler(src Source) *Handler {
	return &Handler{
		src:        src,
		firstFrame: true,
	}
}

// Watch adds keys to the set polled by Update. Out of range keys are ignored.
func (h *Handler) Watch(keys ...int) {
	for _, k := range keys {
		if k >= 0 && k < maxKeys {
			h.watched = append(h.watched, k)
		}
	}
}

// AddScroll accumulates a scroll offset until the next EndFrame.
func (h *Handler) AddScroll(yoff float64) {
	h.ScrollDelta += yoff
}

// Update polls the source. Call it once per frame before querying.
func (h *Handler) Update() {
	x, y := h.src.GetCursorPos()
	if h.firstFrame {
		h.lastMouseX, h.lastMouseY = x, y
		h.firstFrame = false
	}
	h.MouseDeltaX = x - h.lastMouseX
	h.MouseDeltaY = y - h.lastMouseY
	h.lastMouseX, h.lastMouseY = x, y
	h.MouseX, h.MouseY = x, y

	h.mouseButtonsPrev = h.mouseButtons
	h.keysPrev = h.keys

	for _, b := range []int{MouseLeft, MouseRight, MouseMiddle} {
		h.mouseButtons[b] = h.src.IsMouseButtonPressed(b)
	}
	for _, k := range h.watched {
		h.keys[k] = h.src.IsKeyPressed(k)
	}
}

// EndFrame clears per-frame state.
func (h *Handler) EndFrame() {
	h.ScrollDelta = 0
}

func (h *Handler) IsMouseDown(button int) bool {
	if button < 0 || button >= maxButtons {
		return false
	}
	return h.mouseButtons[button]
}

func (h *Handler) IsMousePressed(button int) bool {
	if button < 0 || button >= maxButtons {
		return false
	}
	return h.mouseButtons[button] && !h.mouseButtonsPrev[button]
}

func (h *Handler) IsMouseReleased(button int) bool {
	if button < 0 || button >= maxButtons {
		return false
	}
	return !h.mouseButtons[button] && h.mouseButtonsPrev[button]
}

func (h *Handler) IsKeyDown(key int) bool {
	if key < 0 || key >= maxKeys {
		return false
	}
	return h.keys[key]
}

// IsKeyPressed reports a key that went down this frame.
func (h *Handler) IsKeyPressed(key int) bool {
	if key < 0 || key >= maxKeys {
		return false
	}
	return h.keys[key] && !h.keysPrev[key]
}
