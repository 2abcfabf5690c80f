// Command demo opens a window and renders a few voxel chunks through the
// configured shaderpack. Editing the config file switches packs live.
package main

import (
	"fmt"
	"image/color"
	"os"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"voxel-renderer/config"
	"voxel-renderer/core"
	"voxel-renderer/gpu"
	"voxel-renderer/internal/logger"
	"voxel-renderer/internal/opengl"
	"voxel-renderer/mesh"
	"voxel-renderer/renderer"
	"voxel-renderer/shaderpack"
)

func main() {
	var (
		configPath  = pflag.StringP("config", "c", "config.toml", "path to the renderer config file")
		packDir     = pflag.StringP("shaderpacks", "s", "shaderpacks", "directory holding shaderpacks")
		modelPath   = pflag.String("model", "", "optional glTF model drawn with the terrain filter")
		debug       = pflag.Bool("debug", false, "enable development logging and the GL debug context")
		noCulling   = pflag.Bool("no-culling", false, "draw every renderable regardless of the view frustum")
		chunkRadius = pflag.Int("chunks", 4, "half width of the demo chunk grid")
	)
	pflag.Parse()

	if err := run(*configPath, *packDir, *modelPath, *debug, !*noCulling, *chunkRadius); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(configPath, packDir, modelPath string, debug, culling bool, chunkRadius int) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if debug {
		if err := cfg.Update(func(o *config.Options) { o.Debug = true }); err != nil {
			return err
		}
	}
	if err := logger.Init(cfg.Options().Debug); err != nil {
		return err
	}
	defer logger.Sync()

	if err := cfg.Watch(); err != nil {
		logger.Log.Warn("Config hot reload disabled", zap.Error(err))
	}
	defer cfg.Close()

	window, err := core.NewWindow(core.WindowConfigFrom(cfg.Options()))
	if err != nil {
		return err
	}
	defer window.Destroy()

	dev, err := opengl.NewDevice()
	if err != nil {
		return err
	}
	defer dev.Destroy()
	if cfg.Options().Debug {
		dev.SetDebugHandler(func(m gpu.DebugMessage) {
			gpu.LogDebugMessage(logger.Log, m)
		})
	}

	r := renderer.New(dev, window, cfg, shaderpack.NewDirLoader(os.DirFS(packDir)),
		renderer.WithFrustumCulling(culling))
	defer r.Destroy()
	cfg.RegisterChangeListener(window)
	window.SetScrollCallback(func(_, yoff float64) { r.Input().AddScroll(yoff) })

	cfg.UpdateConfigLoaded()
	cfg.UpdateConfigChanged()
	if err := r.LastError(); err != nil {
		logger.Log.Error("Initial shaderpack failed to load", zap.Error(err))
	}

	r.Textures().AddSolidColor(renderer.LightmapTexture, color.RGBA{R: 255, G: 255, B: 255, A: 255})
	r.Textures().AddSolidColor("stone", color.RGBA{R: 128, G: 128, B: 128, A: 255})
	r.Textures().AddSolidColor("hud", color.RGBA{R: 255, G: 255, B: 255, A: 160})

	queueDemoChunks(r.Meshes(), chunkRadius)
	if modelPath != "" {
		chunks, err := mesh.LoadGLTF(modelPath, "block", 1)
		if err != nil {
			logger.Log.Warn("Skipping model", zap.String("path", modelPath), zap.Error(err))
		}
		for _, c := range chunks {
			c.Position = mgl32.Vec3{0, 4, 0}
			c.ColorTexture = "stone"
			r.Meshes().AddChunk(c)
		}
	}
	r.Meshes().SetGUIGeometry(mesh.Rect(8, 8, 64, 16), "hud")

	r.Camera().SetPosition(mgl32.Vec3{0, 6, float32(chunkRadius) * 4})
	r.Input().Watch(controllerKeys...)
	controller := newCameraController()

	last := time.Now()
	for !r.ShouldEnd() {
		now := time.Now()
		dt := float32(now.Sub(last).Seconds())
		last = now

		if _, err := cfg.Poll(); err != nil {
			logger.Log.Warn("Ignoring config edit", zap.Error(err))
		}

		in := r.Input()
		in.Update()
		if in.IsKeyPressed(core.KeyEscape) {
			window.SetShouldClose(true)
		}
		controller.Update(in, r.Camera(), dt)

		// The renderer logs failed frames itself.
		_ = r.RenderFrame()
		in.EndFrame()
	}
	return nil
}

// queueDemoChunks lays a flat grid of one-block chunks around the origin
// with a column in the middle.
func queueDemoChunks(store *mesh.Store, radius int) {
	const size = 2
	for x := -radius; x <= radius; x++ {
		for z := -radius; z <= radius; z++ {
			store.AddChunk(mesh.Chunk{
				Filter:       "block",
				Data:         mesh.CreateCube(size),
				Position:     mgl32.Vec3{float32(x * size), 0, float32(z * size)},
				ColorTexture: "stone",
			})
		}
	}
	for y := 1; y <= 3; y++ {
		store.AddChunk(mesh.Chunk{
			Filter:       "block",
			Data:         mesh.CreateCube(size),
			Position:     mgl32.Vec3{0, float32(y * size), 0},
			ColorTexture: "stone",
		})
	}
}
