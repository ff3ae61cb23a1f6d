package videostream

import "time"

// Stats accumulates fps and timing information over a rolling 10-second
// window, reset each time the window elapses.
type Stats struct {
	windowStart    time.Time
	frames         int
	capturedTotal  time.Duration
	renderedTotal  time.Duration
	windowDuration time.Duration

	currentFPS     int
	lastFPSSample  time.Time
	framesSinceFPS int
}

// NewStats constructs a Stats with a 10-second aggregation window.
func NewStats() *Stats {
	now := time.Time{}
	return &Stats{windowStart: now, windowDuration: 10 * time.Second}
}

// RecordFrame accounts one decoded frame's capture and render durations
// against the current window, stamped with now (callers own the clock
// so tests can drive it deterministically).
func (s *Stats) RecordFrame(now time.Time, captured, rendered time.Duration) {
	if s.windowStart.IsZero() {
		s.windowStart = now
		s.lastFPSSample = now
	}
	if now.Sub(s.windowStart) >= s.windowDuration {
		s.windowStart = now
		s.frames = 0
		s.capturedTotal = 0
		s.renderedTotal = 0
	}

	s.frames++
	s.framesSinceFPS++
	s.capturedTotal += captured
	s.renderedTotal += rendered

	if now.Sub(s.lastFPSSample) >= time.Second {
		s.currentFPS = s.framesSinceFPS
		s.framesSinceFPS = 0
		s.lastFPSSample = now
	}
}

// FrameCount returns the number of frames recorded in the current window.
func (s *Stats) FrameCount() int {
	return s.frames
}

// CapturedTimeShare returns the fraction of the window's elapsed time
// spent in capture, 0 if no frames have been recorded yet.
func (s *Stats) CapturedTimeShare(elapsed time.Duration) float64 {
	if elapsed <= 0 {
		return 0
	}
	return float64(s.capturedTotal) / float64(elapsed)
}

// RenderTimeShare returns the fraction of the window's elapsed time
// spent rendering.
func (s *Stats) RenderTimeShare(elapsed time.Duration) float64 {
	if elapsed <= 0 {
		return 0
	}
	return float64(s.renderedTotal) / float64(elapsed)
}

// CurrentFPS returns the most recently memoized once-per-second frame
// rate.
func (s *Stats) CurrentFPS() int {
	return s.currentFPS
}
