// Package renderer drives the loaded shaderpack once per frame: shadow,
// gbuffer, composite, final and GUI passes, then present.
package renderer

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"voxel-renderer/config"
	"voxel-renderer/framebuffer"
	"voxel-renderer/gpu"
	"voxel-renderer/input"
	"voxel-renderer/internal/logger"
	"voxel-renderer/mesh"
	"voxel-renderer/scene"
	"voxel-renderer/shaderpack"
	"voxel-renderer/textures"
	"voxel-renderer/ubo"
)

// ErrNoShaderpack is returned by RenderFrame before any pack has loaded.
var ErrNoShaderpack = errors.New("no shaderpack loaded")

// LightmapTexture is bound at LightmapUnit for every gbuffer draw.
const LightmapTexture = "lightmap"

// Fixed texture units for per-renderable textures.
const (
	ColorUnit    = 0
	NormalUnit   = 1
	DataUnit     = 2
	LightmapUnit = 3
)

// ModelUniform receives the per-object model matrix, and the viewport
// transform in the GUI pass.
const ModelUniform = "gbufferModel"

const (
	mainAttachments   = 8
	shadowAttachments = 4
)

// Window is the presentation surface the renderer hands frames to.
type Window interface {
	input.Source
	EndFrame()
	ShouldClose() bool
}

// FrameStats counts what the last frame drew.
type FrameStats struct {
	Passes  int
	Draws   int
	Skipped int
	Culled  int
}

// Renderer owns the active shaderpack and its framebuffers together with
// the geometry, texture and uniform stores the passes read.
type Renderer struct {
	dev    gpu.Device
	window Window
	cfg    *config.Store
	loader shaderpack.SourceLoader

	camera   *scene.Camera
	meshes   *mesh.Store
	textures *textures.Manager
	input    *input.Handler
	ubos     *ubo.Store

	pack       *shaderpack.Shaderpack
	shadowFB   *framebuffer.Framebuffer
	mainFB     *framebuffer.Framebuffer
	fullscreen gpu.Mesh

	packOpts       []shaderpack.Option
	frustumCulling bool
	frame          uint64
	stats          FrameStats
	lastErr        error

	// frameErr is the message of the failure the last frame reported.
	frameErr string
}

// Option customises New.
type Option func(*Renderer)

// WithStageRules changes how pass names map to frame stages.
func WithStageRules(rules shaderpack.StageRules) Option {
	return func(r *Renderer) {
		r.packOpts = append(r.packOpts, shaderpack.WithStageRules(rules))
	}
}

// WithFrustumCulling skips renderables whose bounds lie outside the view.
func WithFrustumCulling(enabled bool) Option {
	return func(r *Renderer) { r.frustumCulling = enabled }
}

// WithCamera replaces the default camera.
func WithCamera(c *scene.Camera) Option {
	return func(r *Renderer) { r.camera = c }
}

// New sets up the default GPU state and the collaborators, and subscribes
// to cfg. No shaderpack is loaded until the first change notification.
func New(dev gpu.Device, window Window, cfg *config.Store, loader shaderpack.SourceLoader, opts ...Option) *Renderer {
	o := cfg.Options()
	r := &Renderer{
		dev:      dev,
		window:   window,
		cfg:      cfg,
		loader:   loader,
		camera:   scene.NewCamera(70, float32(o.ViewWidth)/float32(o.ViewHeight), 0.1, 1000),
		meshes:   mesh.NewStore(dev),
		textures: textures.NewManager(dev),
		input:    input.NewHandler(window),
	}
	for _, opt := range opts {
		opt(r)
	}

	dev.InitState(gpu.SkyColor)
	r.ubos = ubo.NewStore(dev)
	r.fullscreen = dev.CreateMesh(mesh.FullscreenQuad())
	cfg.RegisterChangeListener(r)
	return r
}

// OnConfigLoaded is reserved for first-time setup.
func (r *Renderer) OnConfigLoaded(opts config.Options) {}

// OnConfigChanged loads the configured shaderpack when it differs from the
// active one, and rebuilds the framebuffers when the view size changed.
func (r *Renderer) OnConfigChanged(opts config.Options) {
	r.camera.UpdateAspectRatio(float32(opts.ViewWidth), float32(opts.ViewHeight))

	if r.pack != nil && r.pack.Name() == opts.LoadedShaderpack {
		if r.framebuffersMatch(opts) {
			return
		}
		shadow, main, err := buildFramebuffers(r.dev, opts)
		if err != nil {
			r.fail("Failed to rebuild framebuffers", err)
			return
		}
		r.swapFramebuffers(shadow, main)
		return
	}

	if r.pack == nil {
		logger.Log.Debug("No shaderpack loaded yet", zap.String("pack", opts.LoadedShaderpack))
	} else {
		logger.Log.Debug("Replacing shaderpack",
			zap.String("old", r.pack.Name()), zap.String("new", opts.LoadedShaderpack))
	}
	if err := r.loadShaderpack(opts); err != nil {
		r.fail("Failed to load shaderpack", err)
	}
}

func (r *Renderer) fail(msg string, err error) {
	r.lastErr = err
	logger.Log.Error(msg, zap.Error(err))
}

// loadShaderpack builds the new pack, its uniform wiring and framebuffers
// before releasing the old ones, so a failed load keeps the previous pipeline.
func (r *Renderer) loadShaderpack(opts config.Options) error {
	pack, err := shaderpack.Load(r.dev, opts.LoadedShaderpack, r.loader, r.packOpts...)
	if err != nil {
		return err
	}
	for _, p := range pack.Programs() {
		r.ubos.RegisterAllBuffersWithShader(p)
	}
	shadow, main, err := buildFramebuffers(r.dev, opts)
	if err != nil {
		pack.Destroy()
		return err
	}

	old := r.pack
	r.pack = pack
	r.swapFramebuffers(shadow, main)
	if old != nil {
		old.Destroy()
	}
	r.lastErr = nil
	logger.Log.Info("Shaderpack active", zap.String("pack", pack.Name()))
	return nil
}

func buildFramebuffers(dev gpu.Device, opts config.Options) (shadow, main *framebuffer.Framebuffer, err error) {
	mb := framebuffer.NewBuilder().SetSize(opts.ViewWidth, opts.ViewHeight)
	for i := 0; i < mainAttachments; i++ {
		mb.EnableColorAttachment(i)
	}
	main, err = mb.Build(dev)
	if err != nil {
		return nil, nil, fmt.Errorf("main framebuffer: %w", err)
	}

	sb := framebuffer.NewBuilder().SetSize(opts.ShadowMapResolution, opts.ShadowMapResolution)
	for i := 0; i < shadowAttachments; i++ {
		sb.EnableColorAttachment(i)
	}
	shadow, err = sb.Build(dev)
	if err != nil {
		main.Destroy()
		return nil, nil, fmt.Errorf("shadow framebuffer: %w", err)
	}
	return shadow, main, nil
}

func (r *Renderer) swapFramebuffers(shadow, main *framebuffer.Framebuffer) {
	oldShadow, oldMain := r.shadowFB, r.mainFB
	r.shadowFB, r.mainFB = shadow, main
	if oldShadow != nil {
		oldShadow.Destroy()
	}
	if oldMain != nil {
		oldMain.Destroy()
	}
}

func (r *Renderer) framebuffersMatch(opts config.Options) bool {
	if r.mainFB == nil || r.shadowFB == nil {
		return false
	}
	w, h := r.mainFB.Size()
	s, _ := r.shadowFB.Size()
	return w == opts.ViewWidth && h == opts.ViewHeight && s == opts.ShadowMapResolution
}

// RenderFrame runs every stage of one frame and presents it. A failing
// stage stops the frame; the window is still presented so the event loop
// keeps running. Failures are logged at Error once per distinct error.
func (r *Renderer) RenderFrame() error {
	err := r.renderFrame()
	r.reportFrame(err)
	r.window.EndFrame()
	r.frame++
	return err
}

func (r *Renderer) reportFrame(err error) {
	switch {
	case err == nil && r.frameErr != "":
		logger.Log.Info("Rendering resumed", zap.Uint64("frame", r.frame), zap.String("after", r.frameErr))
		r.frameErr = ""
	case err != nil && err.Error() != r.frameErr:
		logger.Log.Error("Frame failed", zap.Uint64("frame", r.frame), zap.Error(err))
		r.frameErr = err.Error()
	}
}

func (r *Renderer) renderFrame() error {
	if r.pack == nil {
		return ErrNoShaderpack
	}
	opts := r.cfg.Options()
	r.stats = FrameStats{}

	r.camera.RecalculateFrustum()
	r.meshes.UploadNewGeometry()

	r.shadowFB.Bind()
	r.dev.DrawBuffers(r.shadowFB.Attachments())
	r.clear(gpu.ClearColor | gpu.ClearDepth)
	for _, p := range r.pack.PassesIn(shaderpack.StageShadow) {
		if err := r.renderPass(p, r.shadowFB, opts, false); err != nil {
			return err
		}
	}

	r.mainFB.Bind()
	r.dev.DrawBuffers(r.mainFB.Attachments())
	r.clear(gpu.ClearColor | gpu.ClearDepth)

	frameUniforms := ubo.NewPerFrameUniforms(r.camera.ProjectionMatrix(), r.camera.ViewMatrix(),
		opts.ViewWidth, opts.ViewHeight, r.frame)
	if err := r.ubos.PerFrameUniforms().SendData(frameUniforms); err != nil {
		return fmt.Errorf("per-frame uniforms: %w", err)
	}

	for _, p := range r.pack.PassesIn(shaderpack.StageGBuffer) {
		if err := r.renderPass(p, r.mainFB, opts, false); err != nil {
			return err
		}
	}
	for _, p := range r.pack.PassesIn(shaderpack.StageComposite) {
		if err := r.renderPass(p, r.mainFB, opts, true); err != nil {
			return err
		}
	}

	final := r.pack.PassesIn(shaderpack.StageFinal)
	if len(final) == 0 {
		w, h := r.mainFB.Size()
		r.dev.BlitToDefault(r.mainFB.FBO(), 0, w, h, opts.ViewWidth, opts.ViewHeight)
	} else {
		r.dev.BindFramebuffer(0)
		r.clear(gpu.ClearColor | gpu.ClearDepth)
	}
	for _, p := range final {
		if err := r.renderPass(p, nil, opts, true); err != nil {
			return err
		}
	}

	return r.renderGUI(opts)
}

// ShouldEnd reports whether the window asked to close.
func (r *Renderer) ShouldEnd() bool {
	return r.window.ShouldClose()
}

func (r *Renderer) Shaderpack() *shaderpack.Shaderpack { return r.pack }

func (r *Renderer) Textures() *textures.Manager { return r.textures }

func (r *Renderer) Meshes() *mesh.Store { return r.meshes }

func (r *Renderer) Input() *input.Handler { return r.input }

func (r *Renderer) Camera() *scene.Camera { return r.camera }

func (r *Renderer) Config() *config.Store { return r.cfg }

func (r *Renderer) UniformBuffers() *ubo.Store { return r.ubos }

// Framebuffers returns the shadow and main targets of the active pack.
func (r *Renderer) Framebuffers() (shadow, main *framebuffer.Framebuffer) {
	return r.shadowFB, r.mainFB
}

// Stats returns the counters of the last rendered frame.
func (r *Renderer) Stats() FrameStats { return r.stats }

// LastError returns the error of the most recent failed configuration
// change, nil once a pack loads.
func (r *Renderer) LastError() error { return r.lastErr }

// Destroy releases every GPU object the renderer owns.
func (r *Renderer) Destroy() {
	if r.pack != nil {
		r.pack.Destroy()
		r.pack = nil
	}
	r.swapFramebuffers(nil, nil)
	r.ubos.Destroy()
	r.meshes.Destroy()
	r.textures.Destroy()
	if r.fullscreen.VAO != 0 {
		r.dev.DeleteMesh(r.fullscreen)
		r.fullscreen = gpu.Mesh{}
	}
}
