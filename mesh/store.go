// Package mesh queues CPU-built geometry for upload and groups uploaded
// geometry into the buckets passes draw from.
package mesh

import (
	"sync"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"voxel-renderer/gpu"
	"voxel-renderer/internal/logger"
	"voxel-renderer/scene"
)

// GUIFilter is the bucket the GUI pass draws.
const GUIFilter = "gui"

// Chunk is geometry built off the render thread, waiting for upload.
type Chunk struct {
	Filter       string
	Data         gpu.MeshData
	Position     mgl32.Vec3
	ColorTexture string
	NormalMap    string
	DataTexture  string
	ParentID     int64
}

// Renderable is one uploaded object in a filter bucket. A zero Geometry
// means nothing was uploaded for it yet.
type Renderable struct {
	Geometry     gpu.Mesh
	Position     mgl32.Vec3
	ColorTexture string
	NormalMap    string
	DataTexture  string
	Bounds       scene.AABB
	ParentID     int64
}

// HasData reports whether the renderable can be drawn.
func (r *Renderable) HasData() bool { return r.Geometry.Uploaded() }

// Store owns uploaded geometry. AddChunk may be called from any goroutine;
// every other method belongs to the render thread.
type Store struct {
	dev gpu.Device

	mu      sync.Mutex
	pending []Chunk

	buckets map[string][]*Renderable
}

func NewStore(dev gpu.Device) *Store {
	return &Store{
		dev:     dev,
		buckets: make(map[string][]*Renderable),
	}
}

// AddChunk queues geometry for the next UploadNewGeometry.
func (s *Store) AddChunk(c Chunk) {
	s.mu.Lock()
	s.pending = append(s.pending, c)
	s.mu.Unlock()
}

// Pending returns the number of queued chunks.
func (s *Store) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// UploadNewGeometry flushes the queue to the GPU and returns how many chunks
// it uploaded.
func (s *Store) UploadNewGeometry() int {
	s.mu.Lock()
	batch := s.pending
	s.pending = nil
	s.mu.Unlock()

	for _, c := range batch {
		positions := make([]mgl32.Vec3, len(c.Data.Vertices))
		for i, v := range c.Data.Vertices {
			positions[i] = v.Position
		}
		r := &Renderable{
			Geometry:     s.dev.CreateMesh(c.Data),
			Position:     c.Position,
			ColorTexture: c.ColorTexture,
			NormalMap:    c.NormalMap,
			DataTexture:  c.DataTexture,
			Bounds:       scene.BoundsOf(positions).Translate(c.Position),
			ParentID:     c.ParentID,
		}
		s.buckets[c.Filter] = append(s.buckets[c.Filter], r)
	}
	if len(batch) > 0 {
		logger.Log.Debug("Uploaded geometry", zap.Int("chunks", len(batch)))
	}
	return len(batch)
}

// MeshesForFilter returns the bucket for filter in insertion order.
func (s *Store) MeshesForFilter(filter string) []*Renderable {
	return s.buckets[filter]
}

// RemoveWithParent releases every renderable created for parent and
// returns how many were removed.
func (s *Store) RemoveWithParent(parent int64) int {
	removed := 0
	for filter, bucket := range s.buckets {
		kept := bucket[:0]
		for _, r := range bucket {
			if r.ParentID == parent {
				s.release(r)
				removed++
				continue
			}
			kept = append(kept, r)
		}
		for i := len(kept); i < len(bucket); i++ {
			bucket[i] = nil
		}
		s.buckets[filter] = kept
	}
	return removed
}

// SetGUIGeometry replaces the GUI bucket with data.
func (s *Store) SetGUIGeometry(data gpu.MeshData, colorTexture string) {
	for _, r := range s.buckets[GUIFilter] {
		s.release(r)
	}
	s.buckets[GUIFilter] = []*Renderable{{
		Geometry:     s.dev.CreateMesh(data),
		ColorTexture: colorTexture,
	}}
}

func (s *Store) release(r *Renderable) {
	if r.Geometry.VAO != 0 {
		s.dev.DeleteMesh(r.Geometry)
	}
	r.Geometry = gpu.Mesh{}
}

// Destroy releases all uploaded geometry and drops the queue.
func (s *Store) Destroy() {
	for filter, bucket := range s.buckets {
		for _, r := range bucket {
			s.release(r)
		}
		delete(s.buckets, filter)
	}
	s.mu.Lock()
	s.pending = nil
	s.mu.Unlock()
}
