package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	name   string
	events *[]string
	last   Options
}

func (r *recorder) OnConfigLoaded(opts Options) {
	*r.events = append(*r.events, r.name+" loaded")
	r.last = opts
}

func (r *recorder) OnConfigChanged(opts Options) {
	*r.events = append(*r.events, r.name+" changed")
	r.last = opts
}

func TestLoadMergesOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("loadedShaderpack = \"sildurs\"\nviewWidth = 800\n"), 0o644))

	s, err := Load(path)
	require.NoError(t, err)
	opts := s.Options()
	assert.Equal(t, "sildurs", opts.LoadedShaderpack)
	assert.Equal(t, 800, opts.ViewWidth)
	assert.Equal(t, Default().ViewHeight, opts.ViewHeight)
	assert.Equal(t, Default().ShadowMapResolution, opts.ShadowMapResolution)
}

func TestLoadWritesDefaultsWhenMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Default(), s.Options())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	reloaded, err := readFile(path, Options{})
	require.NoError(t, err, string(data))
	assert.Equal(t, Default(), reloaded)
}

func TestLoadRejectsInvalidFiles(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.toml")
	require.NoError(t, os.WriteFile(bad, []byte("viewWidth = \"wide\""), 0o644))
	_, err := Load(bad)
	assert.Error(t, err)

	zero := filepath.Join(dir, "zero.toml")
	require.NoError(t, os.WriteFile(zero, []byte("shadowMapResolution = 0"), 0o644))
	_, err = Load(zero)
	assert.ErrorContains(t, err, "shadow map resolution")
}

func TestNotificationOrder(t *testing.T) {
	var events []string
	s := NewStore(Default())
	a := &recorder{name: "ubo", events: &events}
	b := &recorder{name: "window", events: &events}
	c := &recorder{name: "renderer", events: &events}
	for _, l := range []Listener{a, b, c} {
		s.RegisterChangeListener(l)
	}

	s.UpdateConfigLoaded()
	s.UpdateConfigChanged()
	assert.Equal(t, []string{
		"ubo loaded", "window loaded", "renderer loaded",
		"ubo changed", "window changed", "renderer changed",
	}, events)
}

func TestUpdate(t *testing.T) {
	var events []string
	s := NewStore(Default())
	r := &recorder{name: "r", events: &events}
	s.RegisterChangeListener(r)

	require.NoError(t, s.Update(func(o *Options) { o.LoadedShaderpack = "bsl" }))
	assert.Equal(t, "bsl", r.last.LoadedShaderpack)
	assert.Equal(t, "bsl", s.Options().LoadedShaderpack)

	err := s.Update(func(o *Options) { o.ViewWidth = 0 })
	assert.Error(t, err)
	assert.Equal(t, Default().ViewWidth, s.Options().ViewWidth)
	assert.Len(t, events, 1)
}

func TestPollAppliesFileEdits(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	s, err := Load(path)
	require.NoError(t, err)
	var events []string
	r := &recorder{name: "r", events: &events}
	s.RegisterChangeListener(r)

	changed, err := s.Poll()
	require.NoError(t, err)
	assert.False(t, changed, "clean store does nothing")

	require.NoError(t, s.Watch())
	t.Cleanup(func() { s.Close() })
	require.NoError(t, os.WriteFile(path, []byte("loadedShaderpack = \"bsl\"\n"), 0o644))

	assert.Eventually(t, func() bool {
		changed, _ := s.Poll()
		return changed
	}, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, "bsl", r.last.LoadedShaderpack)
	assert.Equal(t, []string{"r changed"}, events)
}

func TestPollKeepsSettingsOnBadEdit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	s, err := Load(path)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("viewWidth = -1"), 0o644))
	s.MarkDirty()
	changed, err := s.Poll()
	assert.Error(t, err)
	assert.False(t, changed)
	assert.Equal(t, Default(), s.Options())
}
