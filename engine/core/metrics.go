package core

import "time"

const AVG_COUNT uint8 = 30

// FrameMetrics keeps a rolling average of frame and fence-wait times over
// AVG_COUNT frames, and a frames-per-second counter.
type FrameMetrics struct {
	FrameAVGCounter    uint8
	MStimes            [AVG_COUNT]float64
	MSavg              float64
	WaitMStimes        [AVG_COUNT]float64
	WaitMSavg          float64
	Frames             int32
	TotalFrames        uint64
	AccumulatedFrameMS float64
	FPS                float64
}

func NewFrameMetrics() *FrameMetrics {
	return &FrameMetrics{
		MStimes:     [AVG_COUNT]float64{0},
		WaitMStimes: [AVG_COUNT]float64{0},
	}
}

// Update records one frame. frameElapsed is the full frame time, fenceWait the
// part of it spent blocked on a sync object.
func (m *FrameMetrics) Update(frameElapsed, fenceWait time.Duration) {
	// Calculate frame ms average
	frameMS := float64(frameElapsed) / float64(time.Millisecond)
	waitMS := float64(fenceWait) / float64(time.Millisecond)
	m.MStimes[m.FrameAVGCounter] = frameMS
	m.WaitMStimes[m.FrameAVGCounter] = waitMS
	if m.FrameAVGCounter == AVG_COUNT-1 {
		m.MSavg = 0
		m.WaitMSavg = 0
		for i := uint8(0); i < AVG_COUNT; i++ {
			m.MSavg += m.MStimes[i]
			m.WaitMSavg += m.WaitMStimes[i]
		}

		m.MSavg /= float64(AVG_COUNT)
		m.WaitMSavg /= float64(AVG_COUNT)
	}
	m.FrameAVGCounter++
	m.FrameAVGCounter %= AVG_COUNT

	// Calculate Frames per second.
	m.AccumulatedFrameMS += frameMS
	if m.AccumulatedFrameMS > 1000 {
		m.FPS = float64(m.Frames)
		m.AccumulatedFrameMS -= 1000
		m.Frames = 0
	}

	// Count all Frames.
	m.Frames++
	m.TotalFrames++
}

func (m *FrameMetrics) FPSValue() float64 {
	return m.FPS
}

func (m *FrameMetrics) FrameTime() float64 {
	return m.MSavg
}

func (m *FrameMetrics) FenceWaitTime() float64 {
	return m.WaitMSavg
}
