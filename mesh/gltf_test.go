package mesh

import (
	"path/filepath"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"voxel-renderer/internal/logger"
)

func observeLogs(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	prev := logger.Log
	logger.Log = zap.New(core)
	t.Cleanup(func() { logger.Log = prev })
	return logs
}

func triangleDoc() (*gltf.Document, *gltf.Primitive) {
	doc := gltf.NewDocument()
	pos := modeler.WritePosition(doc, [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}})
	idx := modeler.WriteIndices(doc, []uint32{0, 1, 2})
	prim := &gltf.Primitive{
		Indices:    gltf.Index(idx),
		Attributes: gltf.PrimitiveAttributes{"POSITION": pos},
	}
	return doc, prim
}

func TestLoadGLTFPlacesPrimitivesAtNode(t *testing.T) {
	doc, prim := triangleDoc()
	doc.Meshes = []*gltf.Mesh{{Primitives: []*gltf.Primitive{prim}}}
	doc.Nodes = []*gltf.Node{{Mesh: gltf.Index(0), Translation: [3]float64{4, 5, 6}}}
	doc.Scenes = []*gltf.Scene{{Nodes: []int{0}}}
	path := filepath.Join(t.TempDir(), "tri.glb")
	require.NoError(t, gltf.SaveBinary(doc, path))

	chunks, err := LoadGLTF(path, "block", 7)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	c := chunks[0]
	assert.Equal(t, "block", c.Filter)
	assert.Equal(t, int64(7), c.ParentID)
	assert.Equal(t, mgl32.Vec3{4, 5, 6}, c.Position)
	assert.Equal(t, []uint32{0, 1, 2}, c.Data.Indices)
	require.Len(t, c.Data.Vertices, 3)
	assert.Equal(t, mgl32.Vec3{1, 0, 0}, c.Data.Vertices[1].Position)
}

func TestUndecodableAttributeIsReported(t *testing.T) {
	logs := observeLogs(t)
	doc, prim := triangleDoc()
	// The index accessor is scalar, not a normal.
	prim.Attributes["NORMAL"] = *prim.Indices

	data, err := readPrimitive(doc, prim)
	require.NoError(t, err)
	require.Len(t, data.Vertices, 3)
	assert.Equal(t, mgl32.Vec3{0, 1, 0}, data.Vertices[0].Normal, "default normal kept")

	warned := logs.FilterMessage("Ignoring glTF attribute").All()
	require.Len(t, warned, 1)
	assert.Equal(t, zapcore.WarnLevel, warned[0].Level)
	assert.Equal(t, "NORMAL", warned[0].ContextMap()["attribute"])
}

func TestPrimitiveWithoutPositionFails(t *testing.T) {
	doc, prim := triangleDoc()
	delete(prim.Attributes, "POSITION")
	_, err := readPrimitive(doc, prim)
	assert.Error(t, err)
}
