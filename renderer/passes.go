package renderer

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"voxel-renderer/config"
	"voxel-renderer/framebuffer"
	"voxel-renderer/gpu"
	"voxel-renderer/internal/logger"
	"voxel-renderer/materials"
	"voxel-renderer/mesh"
	"voxel-renderer/shaderpack"
)

// renderPass draws the filter bucket of p into target, or into the window
// when target is nil. Passes with an empty bucket draw the fullscreen quad
// when quadFallback is set.
func (r *Renderer) renderPass(p *shaderpack.Pass, target *framebuffer.Framebuffer, opts config.Options, quadFallback bool) error {
	st := p.State
	if target != nil {
		target.Bind()
		r.dev.DrawBuffers(drawBuffersFor(st))
	} else {
		r.dev.BindFramebuffer(0)
		r.dev.Viewport(0, 0, opts.ViewWidth, opts.ViewHeight)
	}
	if st.OutputWidth > 0 && st.OutputHeight > 0 {
		r.dev.Viewport(0, 0, st.OutputWidth, st.OutputHeight)
	}
	r.dev.SetRasterizerState(st.States)

	p.Program.Bind()
	r.bindPassTextures(p)
	r.stats.Passes++

	renderables := r.meshes.MeshesForFilter(p.Program.Filter())
	if len(renderables) == 0 && quadFallback {
		p.Program.SetMatrix(ModelUniform, mgl32.Ident4())
		r.dev.DrawMesh(r.fullscreen)
		r.stats.Draws++
		return nil
	}

	var lightmap uint32
	for _, geom := range renderables {
		if !geom.HasData() {
			r.stats.Skipped++
			continue
		}
		if r.frustumCulling && !geom.Bounds.IntersectsFrustum(r.camera.Frustum()) {
			r.stats.Culled++
			continue
		}
		if lightmap == 0 {
			h, err := r.textures.Texture(LightmapTexture)
			if err != nil {
				return fmt.Errorf("pass %s: %w", p.Name(), err)
			}
			lightmap = h
		}

		r.bindNamedTexture(geom.ColorTexture, ColorUnit)
		r.bindNamedTexture(geom.NormalMap, NormalUnit)
		r.bindNamedTexture(geom.DataTexture, DataUnit)
		r.textures.Bind(lightmap, LightmapUnit)

		p.Program.SetMatrix(ModelUniform, mgl32.Translate3D(geom.Position.X(), geom.Position.Y(), geom.Position.Z()))
		r.dev.DrawMesh(geom.Geometry)
		r.stats.Draws++
	}
	return nil
}

// clear restores the default write masks before clearing the bound target.
// glClear honours the masks the previous pass left behind.
func (r *Renderer) clear(mask gpu.ClearMask) {
	r.dev.SetRasterizerState(0)
	r.dev.Clear(mask)
}

// bindNamedTexture binds a renderable's optional texture. Unknown names
// leave the unit as it was.
func (r *Renderer) bindNamedTexture(name string, unit uint32) {
	if name == "" {
		return
	}
	h, err := r.textures.Texture(name)
	if err != nil {
		logger.Log.Debug("Renderable texture missing", zap.String("texture", name), zap.Error(err))
		return
	}
	r.textures.Bind(h, unit)
}

// drawBuffersFor maps fragment output locations to attachments. Without
// declared outputs a pass writes location 0 to attachment 0.
func drawBuffersFor(st *materials.PipelineState) []int {
	if len(st.Outputs) == 0 {
		return []int{0}
	}
	outputs := append([]materials.Output(nil), st.Outputs...)
	sort.SliceStable(outputs, func(i, j int) bool { return outputs[i].Location < outputs[j].Location })

	bufs := make([]int, outputs[len(outputs)-1].Location+1)
	for i := range bufs {
		bufs[i] = -1
	}
	for _, o := range outputs {
		bufs[o.Location] = o.Index
	}
	return bufs
}

// bindPassTextures binds the pass's sampler states and material textures.
// A sampler uniform named after a texture is pointed at its unit.
func (r *Renderer) bindPassTextures(p *shaderpack.Pass) {
	st := p.State
	for _, s := range st.SamplerStates {
		r.dev.SetSampler(uint32(s.SamplerIndex), s.Filter, s.WrapMode)
	}
	for _, t := range st.Textures {
		var h uint32
		switch t.Location {
		case materials.LocationDynamic:
			h = r.dynamicTexture(t.Name)
		case materials.LocationUserPackage:
			h, _ = r.textures.Texture(t.Name)
		}
		if h == 0 {
			logger.Log.Debug("Pass texture unavailable",
				zap.String("pass", st.Name), zap.String("texture", t.Name), zap.Stringer("location", t.Location))
			continue
		}
		r.dev.BindTexture(uint32(t.Index), h)
		p.Program.SetInt(t.Name, int32(t.Index))
	}
}

// dynamicTexture resolves colortexN and shadowcolorN to framebuffer
// attachments.
func (r *Renderer) dynamicTexture(name string) uint32 {
	for prefix, fb := range map[string]*framebuffer.Framebuffer{"colortex": r.mainFB, "shadowcolor": r.shadowFB} {
		rest, ok := strings.CutPrefix(name, prefix)
		if !ok {
			continue
		}
		i, err := strconv.Atoi(rest)
		if err != nil || fb == nil {
			return 0
		}
		return fb.ColorTexture(i)
	}
	return 0
}

// GUIMatrix maps GUI pixel coordinates, origin top-left and scaled by
// scaleFactor, to clip space.
func GUIMatrix(viewWidth, viewHeight int, scaleFactor float32) mgl32.Mat4 {
	m := mgl32.Translate3D(-1, 1, 0)
	m = m.Mul4(mgl32.Scale3D(scaleFactor, scaleFactor, 1))
	m = m.Mul4(mgl32.Scale3D(1/float32(viewWidth), 1/float32(viewHeight), 1))
	return m.Mul4(mgl32.Scale3D(1, -1, 1))
}

// renderGUI draws the gui bucket over the finished frame with the gui
// program. A pack without a gui pass draws no GUI.
func (r *Renderer) renderGUI(opts config.Options) error {
	p, err := r.pack.Get(shaderpack.GUIPass)
	if err != nil {
		logger.Log.Debug("Shaderpack has no GUI pass", zap.String("pack", r.pack.Name()))
		return nil
	}
	r.dev.BindFramebuffer(0)
	r.dev.Viewport(0, 0, opts.ViewWidth, opts.ViewHeight)
	r.clear(gpu.ClearDepth)
	r.dev.SetRasterizerState(p.State.States)

	p.Program.Bind()
	p.Program.SetMatrix(ModelUniform, GUIMatrix(opts.ViewWidth, opts.ViewHeight, opts.ScaleFactor))
	r.stats.Passes++

	for _, geom := range r.meshes.MeshesForFilter(mesh.GUIFilter) {
		if !geom.HasData() {
			r.stats.Skipped++
			continue
		}
		r.bindNamedTexture(geom.ColorTexture, ColorUnit)
		r.dev.DrawMesh(geom.Geometry)
		r.stats.Draws++
	}
	return nil
}
