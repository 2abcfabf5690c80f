// Package core owns the GLFW window and its OpenGL context.
package core

import (
	"fmt"
	"runtime"

	"github.com/go-gl/glfw/v3.3/glfw"
	"go.uber.org/zap"

	"voxel-renderer/config"
	"voxel-renderer/internal/logger"
)

func init() {
	runtime.LockOSThread()
}

type Window struct {
	Handle *glfw.Window
	Width  int
	Height int
	Title  string

	onScroll func(xoff, yoff float64)
}

type WindowConfig struct {
	Width     int
	Height    int
	Title     string
	Resizable bool
	VSync     bool
	Debug     bool
}

// WindowConfigFrom derives window settings from the renderer options.
func WindowConfigFrom(opts config.Options) WindowConfig {
	return WindowConfig{
		Width:     opts.ViewWidth,
		Height:    opts.ViewHeight,
		Title:     opts.Title,
		Resizable: true,
		VSync:     opts.VSync,
		Debug:     opts.Debug,
	}
}

// NewWindow creates a window with a current OpenGL 4.5 core context.
func NewWindow(cfg WindowConfig) (*Window, error) {
	if err := glfw.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize GLFW: %w", err)
	}

	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 5)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)
	glfw.WindowHint(glfw.OpenGLDebugContext, boolToInt(cfg.Debug))
	glfw.WindowHint(glfw.Resizable, boolToInt(cfg.Resizable))

	handle, err := glfw.CreateWindow(cfg.Width, cfg.Height, cfg.Title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, fmt.Errorf("failed to create window: %w", err)
	}
	handle.MakeContextCurrent()
	if cfg.VSync {
		glfw.SwapInterval(1)
	} else {
		glfw.SwapInterval(0)
	}

	window := &Window{
		Handle: handle,
		Width:  cfg.Width,
		Height: cfg.Height,
		Title:  cfg.Title,
	}

	handle.SetFramebufferSizeCallback(func(w *glfw.Window, width, height int) {
		window.Width = width
		window.Height = height
	})
	handle.SetScrollCallback(func(w *glfw.Window, xoff, yoff float64) {
		if window.onScroll != nil {
			window.onScroll(xoff, yoff)
		}
	})

	return window, nil
}

// EndFrame presents the frame and processes pending events.
func (w *Window) EndFrame() {
	w.Handle.SwapBuffers()
	glfw.PollEvents()
}

func (w *Window) ShouldClose() bool {
	return w.Handle.ShouldClose()
}

func (w *Window) SetShouldClose(v bool) {
	w.Handle.SetShouldClose(v)
}

func (w *Window) GetFramebufferSize() (int, int) {
	return w.Handle.GetFramebufferSize()
}

func (w *Window) Destroy() {
	w.Handle.Destroy()
	glfw.Terminate()
}

func (w *Window) IsKeyPressed(key int) bool {
	return w.Handle.GetKey(glfw.Key(key)) == glfw.Press
}

func (w *Window) IsMouseButtonPressed(button int) bool {
	return w.Handle.GetMouseButton(glfw.MouseButton(button)) == glfw.Press
}

func (w *Window) GetCursorPos() (float64, float64) {
	return w.Handle.GetCursorPos()
}

func (w *Window) SetTitle(title string) {
	w.Handle.SetTitle(title)
	w.Title = title
}

// SetScrollCallback replaces the scroll handler.
func (w *Window) SetScrollCallback(cb func(xoff, yoff float64)) {
	w.onScroll = cb
}

func (w *Window) OnConfigLoaded(opts config.Options) {}

// OnConfigChanged resizes the window and applies title and vsync.
func (w *Window) OnConfigChanged(opts config.Options) {
	if opts.ViewWidth != w.Width || opts.ViewHeight != w.Height {
		logger.Log.Debug("Resizing window",
			zap.Int("width", opts.ViewWidth),
			zap.Int("height", opts.ViewHeight))
		w.Handle.SetSize(opts.ViewWidth, opts.ViewHeight)
		w.Width, w.Height = opts.ViewWidth, opts.ViewHeight
	}
	if opts.Title != "" && opts.Title != w.Title {
		w.SetTitle(opts.Title)
	}
	if opts.VSync {
		glfw.SwapInterval(1)
	} else {
		glfw.SwapInterval(0)
	}
}

func boolToInt(b bool) int {
	if b {
		return glfw.True
	}
	return glfw.False
}

const (
	KeySpace        = int(glfw.KeySpace)
	KeyA            = int(glfw.KeyA)
	KeyD            = int(glfw.KeyD)
	KeyE            = int(glfw.KeyE)
	KeyQ            = int(glfw.KeyQ)
	KeyR            = int(glfw.KeyR)
	KeyS            = int(glfw.KeyS)
	KeyW            = int(glfw.KeyW)
	KeyEscape       = int(glfw.KeyEscape)
	KeyF3           = int(glfw.KeyF3)
	KeyLeftShift    = int(glfw.KeyLeftShift)
	KeyLeftControl  = int(glfw.KeyLeftControl)
	KeyRight        = int(glfw.KeyRight)
	KeyLeft         = int(glfw.KeyLeft)
	KeyDown         = int(glfw.KeyDown)
	KeyUp           = int(glfw.KeyUp)
	KeyRightShift   = int(glfw.KeyRightShift)
	KeyRightControl = int(glfw.KeyRightControl)
)
