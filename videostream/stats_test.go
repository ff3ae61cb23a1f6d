package videostream

import (
	"testing"
	"time"
)

func TestStatsFrameCountResetsPerWindow(t *testing.T) {
	s := NewStats()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		s.RecordFrame(base.Add(time.Duration(i)*time.Second), time.Millisecond, time.Millisecond)
	}
	if s.FrameCount() != 5 {
		t.Fatalf("expected 5 frames, got %d", s.FrameCount())
	}

	s.RecordFrame(base.Add(11*time.Second), time.Millisecond, time.Millisecond)
	if s.FrameCount() != 1 {
		t.Fatalf("expected window reset to 1 frame, got %d", s.FrameCount())
	}
}

func TestStatsCurrentFPSMemoizedOncePerSecond(t *testing.T) {
	s := NewStats()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 30; i++ {
		s.RecordFrame(base.Add(time.Duration(i)*35*time.Millisecond), 0, 0)
	}
	if s.CurrentFPS() == 0 {
		t.Fatalf("expected a nonzero fps sample after a second of frames")
	}
}

func TestTimeSharesAreFractionsOfElapsed(t *testing.T) {
	s := NewStats()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s.RecordFrame(base, 100*time.Millisecond, 50*time.Millisecond)

	elapsed := time.Second
	if share := s.CapturedTimeShare(elapsed); share <= 0 || share > 1 {
		t.Fatalf("captured share out of range: %f", share)
	}
	if share := s.RenderTimeShare(elapsed); share <= 0 || share > 1 {
		t.Fatalf("render share out of range: %f", share)
	}
}
