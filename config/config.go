// Package config holds the renderer settings and notifies listeners when
// they change.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/pelletier/go-toml/v2"
	"go.uber.org/zap"

	"voxel-renderer/internal/logger"
)

// Options are the settings read by the renderer and its collaborators.
type Options struct {
	ViewWidth           int     `toml:"viewWidth"`
	ViewHeight          int     `toml:"viewHeight"`
	ShadowMapResolution int     `toml:"shadowMapResolution"`
	ScaleFactor         float32 `toml:"scalefactor"`
	LoadedShaderpack    string  `toml:"loadedShaderpack"`
	Title               string  `toml:"title"`
	VSync               bool    `toml:"vsync"`
	Debug               bool    `toml:"debug"`
}

func Default() Options {
	return Options{
		ViewWidth:           1280,
		ViewHeight:          720,
		ShadowMapResolution: 2048,
		ScaleFactor:         2,
		LoadedShaderpack:    "default",
		Title:               "Voxel Renderer",
		VSync:               true,
	}
}

// Validate rejects settings no render target can be built from.
func (o Options) Validate() error {
	switch {
	case o.ViewWidth <= 0 || o.ViewHeight <= 0:
		return fmt.Errorf("invalid view size %dx%d", o.ViewWidth, o.ViewHeight)
	case o.ShadowMapResolution <= 0:
		return fmt.Errorf("invalid shadow map resolution %d", o.ShadowMapResolution)
	case o.ScaleFactor <= 0:
		return fmt.Errorf("invalid scale factor %g", o.ScaleFactor)
	}
	return nil
}

// Listener receives configuration notifications on the thread that
// triggered them.
type Listener interface {
	OnConfigLoaded(opts Options)
	OnConfigChanged(opts Options)
}

// Store owns the current Options and the listener list. Everything except
// the file watcher goroutine runs on the render thread.
type Store struct {
	mu        sync.Mutex
	opts      Options
	path      string
	listeners []Listener

	watcher *fsnotify.Watcher
	dirty   atomic.Bool
	done    chan struct{}
	wg      sync.WaitGroup
}

func NewStore(opts Options) *Store {
	return &Store{opts: opts}
}

// Load reads path on top of the defaults. A missing file leaves the
// defaults in place and is written out so it can be edited.
func Load(path string) (*Store, error) {
	s := NewStore(Default())
	s.path = path

	opts, err := readFile(path, Default())
	switch {
	case errors.Is(err, fs.ErrNotExist):
		logger.Log.Info("No config file, writing defaults", zap.String("path", path))
		if err := s.Save(); err != nil {
			return nil, err
		}
		return s, nil
	case err != nil:
		return nil, err
	}
	s.opts = opts
	logger.Log.Info("Loaded config", zap.String("path", path))
	return s, nil
}

func readFile(path string, base Options) (Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return base, err
	}
	opts := base
	if err := toml.Unmarshal(data, &opts); err != nil {
		return base, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := opts.Validate(); err != nil {
		return base, fmt.Errorf("config %s: %w", path, err)
	}
	return opts, nil
}

// Path returns the backing file, empty for in-memory stores.
func (s *Store) Path() string {
	return s.path
}

// Options returns a copy of the current settings.
func (s *Store) Options() Options {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opts
}

// RegisterChangeListener appends l; notifications go out in registration
// order.
func (s *Store) RegisterChangeListener(l Listener) {
	s.listeners = append(s.listeners, l)
}

// UpdateConfigLoaded sends the initial-load notification.
func (s *Store) UpdateConfigLoaded() {
	opts := s.Options()
	for _, l := range s.listeners {
		l.OnConfigLoaded(opts)
	}
}

// UpdateConfigChanged sends a change notification with the current settings.
func (s *Store) UpdateConfigChanged() {
	opts := s.Options()
	for _, l := range s.listeners {
		l.OnConfigChanged(opts)
	}
}

// Update applies fn to the settings and notifies listeners. Invalid results
// are rejected and the previous settings kept.
func (s *Store) Update(fn func(*Options)) error {
	s.mu.Lock()
	next := s.opts
	fn(&next)
	if err := next.Validate(); err != nil {
		s.mu.Unlock()
		return err
	}
	s.opts = next
	s.mu.Unlock()

	s.UpdateConfigChanged()
	return nil
}

// Save writes the settings to the backing file.
func (s *Store) Save() error {
	if s.path == "" {
		return nil
	}
	data, err := toml.Marshal(s.Options())
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config %s: %w", s.path, err)
	}
	return nil
}

// Watch starts watching the backing file. Edits only mark the store dirty;
// Poll applies them.
func (s *Store) Watch() error {
	if s.path == "" || s.watcher != nil {
		return nil
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create config watcher: %w", err)
	}
	// Editors often replace the file, so watch the directory.
	if err := w.Add(filepath.Dir(s.path)); err != nil {
		w.Close()
		return fmt.Errorf("failed to watch %s: %w", s.path, err)
	}
	s.watcher = w
	s.done = make(chan struct{})

	target := filepath.Clean(s.path)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			select {
			case <-s.done:
				return
			case event, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
					s.dirty.Store(true)
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				logger.Log.Warn("Config watcher error", zap.Error(err))
			}
		}
	}()
	return nil
}

// MarkDirty forces the next Poll to reload the file.
func (s *Store) MarkDirty() {
	s.dirty.Store(true)
}

// Poll reloads the file if it changed since the last call and notifies
// listeners. It reports whether a change was applied. A file that fails to
// parse keeps the previous settings.
func (s *Store) Poll() (bool, error) {
	if !s.dirty.Swap(false) {
		return false, nil
	}
	opts, err := readFile(s.path, Default())
	if err != nil {
		logger.Log.Warn("Ignoring config reload", zap.Error(err))
		return false, err
	}
	s.mu.Lock()
	unchanged := opts == s.opts
	s.opts = opts
	s.mu.Unlock()
	if unchanged {
		return false, nil
	}
	logger.Log.Info("Config changed", zap.String("path", s.path))
	s.UpdateConfigChanged()
	return true, nil
}

// Close stops the watcher.
func (s *Store) Close() error {
	if s.watcher == nil {
		return nil
	}
	close(s.done)
	err := s.watcher.Close()
	s.wg.Wait()
	s.watcher = nil
	return err
}
