package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spaghettifunk/geostore/engine/core"
	"github.com/spaghettifunk/geostore/engine/renderer/geometry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
[application]
name = "soak"
log_level = "debug"
renderer = "software"
work_delay_ms = 2
checksums = true

[store]
frame_buffer_count = 3
initial_vertex_capacity = 1024
validate = true

[soak]
frames = 500
seed = 99
`

func TestParse(t *testing.T) {
	c, err := Parse([]byte(sample))
	require.NoError(t, err)

	assert.Equal(t, "soak", c.Application.Name)
	assert.Equal(t, core.DebugLevel, c.Application.LogLevel)
	assert.True(t, c.Application.Checksums)
	assert.Equal(t, 2*time.Millisecond, c.WorkDelay())

	assert.Equal(t, 3, c.Store.FrameBufferCount)
	assert.Equal(t, 1024, c.Store.InitialVertexCapacity)
	assert.Equal(t, geometry.DefaultInitialIndexCapacity, c.Store.InitialIndexCapacity)
	assert.True(t, c.Store.Validate)

	assert.Equal(t, 500, c.Soak.Frames)
	assert.Equal(t, uint64(99), c.Soak.Seed)
	assert.Equal(t, DefaultMaxSlots, c.Soak.MaxSlots)
	assert.Equal(t, DefaultVerifyEvery, c.Soak.VerifyEvery)
}

func TestParseRejectsUnknownKeys(t *testing.T) {
	_, err := Parse([]byte("[store]\nframe_buffers = 2\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "frame_buffers")
}

func TestDefaults(t *testing.T) {
	c := Default()
	assert.Equal(t, DefaultName, c.Application.Name)
	assert.Equal(t, "software", c.Application.Renderer)
	assert.Equal(t, geometry.DefaultFrameBufferCount, c.Store.FrameBufferCount)
	assert.Zero(t, c.Soak.Frames)

	loaded, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, c, loaded)
}

func TestWorkDelayClamped(t *testing.T) {
	c, err := Parse([]byte("[application]\nwork_delay_ms = 5000\n"))
	require.NoError(t, err)
	assert.Equal(t, MaxWorkDelayMS, c.Application.WorkDelayMS)

	c, err = Parse([]byte("[application]\nwork_delay_ms = -3\n"))
	require.NoError(t, err)
	assert.Zero(t, c.WorkDelay())
}

func TestEncodeRoundTrip(t *testing.T) {
	c, err := Parse([]byte(sample))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, c.Encode(&buf))

	decoded, err := Parse(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, c, decoded)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestWatcherReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "geostore.toml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))

	w, err := NewWatcher(path)
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, os.WriteFile(path, []byte("[store]\nvalidate = false\n[application]\nlog_level = \"warn\"\n"), 0o644))

	// A write may be observed half done; wait for the final contents.
	deadline := time.After(5 * time.Second)
	for reloaded := false; !reloaded; {
		select {
		case c := <-w.Updates():
			reloaded = c.Application.LogLevel == core.WarnLevel
			if reloaded {
				assert.False(t, c.Store.Validate)
			}
		case <-deadline:
			t.Fatal("no configuration update received")
		}
	}

	require.NoError(t, os.WriteFile(path, []byte("[store\n"), 0o644))
	select {
	case err := <-w.Errors():
		assert.Error(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("no reload error received")
	}

	require.NoError(t, w.Close())
	require.NoError(t, w.Close())
}
