package engine

import (
	"context"
	"testing"

	"github.com/spaghettifunk/geostore/engine/config"
	"github.com/spaghettifunk/geostore/engine/renderer/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngineRunsWithBareConfig(t *testing.T) {
	var updates, renders int
	g := &Game{
		ApplicationConfig: &ApplicationConfig{Config: config.Config{
			Soak: config.SoakConfig{Frames: 3},
		}},
		FnUpdate: func(float64) error {
			updates++
			return nil
		},
		FnRender: func(*metadata.RenderPacket, float64) error {
			renders++
			return nil
		},
	}

	e, err := New(g)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultStatsEvery, g.ApplicationConfig.Config.Soak.StatsEvery)

	require.NoError(t, e.Initialize(context.Background()))
	require.NoError(t, e.Run())
	assert.Equal(t, uint64(3), g.Renderer.Frame())
	assert.Equal(t, 3, updates)
	assert.Equal(t, 3, renders)
	require.NoError(t, e.Shutdown())
	assert.Equal(t, EngineStageShuttingDown, e.Stage())
}

func TestEngineRequiresUpdateAndRender(t *testing.T) {
	_, err := New(&Game{ApplicationConfig: &ApplicationConfig{}})
	assert.Error(t, err)
}
