package software

import (
	"context"
	"testing"
	"time"

	"github.com/spaghettifunk/geostore/engine/math"
	"github.com/spaghettifunk/geostore/engine/renderer/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func triangle(x float32) metadata.DrawCall {
	vertices := []math.Vertex3D{
		{Position: math.NewVec3(x, 0, 0)},
		{Position: math.NewVec3(x, 1, 0)},
		{Position: math.NewVec3(x, 0, 1)},
	}
	return metadata.DrawCall{
		Slot: metadata.NewSlot(0, 0),
		Type: metadata.GeometryTypeTriangles,
		Parameters: metadata.RenderParameters{
			BufferStart: vertices,
			IndexBuffer: []uint32{0, 1, 2},
			IndexCount:  3,
			VertexCount: 3,
		},
	}
}

func TestBackendSignalsFencesInOrder(t *testing.T) {
	backend := New(2, time.Millisecond)
	require.NoError(t, backend.Initialize(context.Background()))

	provider := backend.SyncObjectProvider()
	for frame := uint64(1); frame <= 5; frame++ {
		packet := &metadata.RenderPacket{Frame: frame, DrawCalls: []metadata.DrawCall{triangle(float32(frame))}}
		packet.ExpectedChecksum = packet.Checksum()
		require.NoError(t, backend.Submit(packet))

		sync := provider.CreateSyncObject()
		sync.WaitUntilCompleted()
		assert.True(t, sync.HasCompleted())
	}

	require.NoError(t, backend.Shutdown())
	assert.Equal(t, uint64(5), backend.Frames())
	assert.Equal(t, uint64(5), backend.DrawCalls())
	assert.Zero(t, backend.Mismatches())
}

func TestBackendCountsMismatches(t *testing.T) {
	backend := New(1, 0)
	require.NoError(t, backend.Initialize(context.Background()))

	packet := &metadata.RenderPacket{Frame: 1, DrawCalls: []metadata.DrawCall{triangle(1)}}
	packet.ExpectedChecksum = packet.Checksum() + 1
	require.NoError(t, backend.Submit(packet))
	require.NoError(t, backend.Shutdown())

	assert.Equal(t, uint64(1), backend.Mismatches())
	assert.Equal(t, packet.Checksum(), backend.LastChecksum())
}

func TestBackendRejectsSubmitWhenStopped(t *testing.T) {
	backend := New(1, 0)
	assert.ErrorIs(t, backend.Submit(&metadata.RenderPacket{}), ErrNotRunning)

	require.NoError(t, backend.Initialize(context.Background()))
	require.NoError(t, backend.Shutdown())
	require.NoError(t, backend.Shutdown())
	assert.ErrorIs(t, backend.Submit(&metadata.RenderPacket{}), ErrNotRunning)
}

func TestBackendReleasesFramesAfterCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	backend := New(2, 0)
	require.NoError(t, backend.Initialize(ctx))
	cancel()

	provider := backend.SyncObjectProvider()
	packet := &metadata.RenderPacket{Frame: 1, DrawCalls: []metadata.DrawCall{triangle(1)}}
	packet.ExpectedChecksum = packet.Checksum() + 1
	require.NoError(t, backend.Submit(packet))
	provider.CreateSyncObject().WaitUntilCompleted()

	require.NoError(t, backend.Shutdown())
	assert.Equal(t, uint64(1), backend.Frames())
	assert.Zero(t, backend.DrawCalls())
	assert.Zero(t, backend.Mismatches())
}
