package mesh

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"go.uber.org/zap"

	"voxel-renderer/gpu"
	"voxel-renderer/internal/logger"
)

// LoadGLTF reads a .glb or .gltf file and returns one chunk per mesh
// primitive referenced by a node, placed at the node's translation and
// tagged with filter. Primitives that fail to decode are logged and skipped.
func LoadGLTF(path, filter string, parentID int64) ([]Chunk, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("gltf open %q: %w", path, err)
	}

	var chunks []Chunk
	for ni, node := range doc.Nodes {
		if node.Mesh == nil || *node.Mesh >= len(doc.Meshes) {
			continue
		}
		t := node.TranslationOrDefault()
		pos := mgl32.Vec3{float32(t[0]), float32(t[1]), float32(t[2])}

		for pi, prim := range doc.Meshes[*node.Mesh].Primitives {
			data, err := readPrimitive(doc, prim)
			if err != nil {
				logger.Log.Warn("Skipping glTF primitive",
					zap.String("file", path), zap.Int("node", ni), zap.Int("primitive", pi), zap.Error(err))
				continue
			}
			chunks = append(chunks, Chunk{
				Filter:   filter,
				Data:     data,
				Position: pos,
				ParentID: parentID,
			})
		}
	}
	return chunks, nil
}

// readPrimitive converts one glTF primitive into the shared vertex layout.
func readPrimitive(doc *gltf.Document, prim *gltf.Primitive) (gpu.MeshData, error) {
	posIdx, ok := prim.Attributes["POSITION"]
	if !ok {
		return gpu.MeshData{}, fmt.Errorf("no POSITION attribute")
	}
	positions, err := modeler.ReadPosition(doc, doc.Accessors[posIdx], nil)
	if err != nil {
		return gpu.MeshData{}, fmt.Errorf("positions: %w", err)
	}

	var (
		normals [][3]float32
		uvs     [][2]float32
		colors  [][4]uint8
	)
	if idx, ok := prim.Attributes["NORMAL"]; ok {
		normals, err = modeler.ReadNormal(doc, doc.Accessors[idx], nil)
		warnAttribute("NORMAL", err)
	}
	if idx, ok := prim.Attributes["TEXCOORD_0"]; ok {
		uvs, err = modeler.ReadTextureCoord(doc, doc.Accessors[idx], nil)
		warnAttribute("TEXCOORD_0", err)
	}
	if idx, ok := prim.Attributes["COLOR_0"]; ok {
		colors, err = modeler.ReadColor(doc, doc.Accessors[idx], nil)
		warnAttribute("COLOR_0", err)
	}

	verts := make([]gpu.Vertex, len(positions))
	for i, p := range positions {
		v := gpu.Vertex{
			Position:    mgl32.Vec3{p[0], p[1], p[2]},
			Normal:      mgl32.Vec3{0, 1, 0},
			Color:       white,
			LightmapUV:  mgl32.Vec2{1, 1},
			MidTexCoord: mgl32.Vec2{0.5, 0.5},
		}
		if i < len(normals) {
			v.Normal = mgl32.Vec3{normals[i][0], normals[i][1], normals[i][2]}
		}
		if i < len(uvs) {
			v.MainUV = mgl32.Vec2{uvs[i][0], uvs[i][1]}
		}
		if i < len(colors) {
			c := colors[i]
			v.Color = mgl32.Vec4{float32(c[0]) / 255, float32(c[1]) / 255, float32(c[2]) / 255, float32(c[3]) / 255}
		}
		verts[i] = v
	}

	var indices []uint32
	if prim.Indices != nil {
		indices, err = modeler.ReadIndices(doc, doc.Accessors[*prim.Indices], nil)
		if err != nil {
			return gpu.MeshData{}, fmt.Errorf("indices: %w", err)
		}
	}
	return gpu.MeshData{Vertices: verts, Indices: indices}, nil
}

// warnAttribute reports an optional attribute that could not be decoded.
// The primitive keeps the default value for it.
func warnAttribute(name string, err error) {
	if err != nil {
		logger.Log.Warn("Ignoring glTF attribute", zap.String("attribute", name), zap.Error(err))
	}
}
