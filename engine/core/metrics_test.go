package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFrameMetricsAverages(t *testing.T) {
	m := NewFrameMetrics()

	for i := 0; i < int(AVG_COUNT); i++ {
		m.Update(10*time.Millisecond, 2*time.Millisecond)
	}

	assert.InDelta(t, 10.0, m.FrameTime(), 0.001)
	assert.InDelta(t, 2.0, m.FenceWaitTime(), 0.001)
	assert.Equal(t, uint64(AVG_COUNT), m.TotalFrames)
}

func TestFrameMetricsFPS(t *testing.T) {
	m := NewFrameMetrics()

	// 101 frames of 10ms cross the one second mark once.
	for i := 0; i < 101; i++ {
		m.Update(10*time.Millisecond, 0)
	}

	assert.InDelta(t, 100.0, m.FPSValue(), 0.001)
}
