package uvc

import "testing"

func vf(fourcc string, w, h, fps int) VideoFormat {
	g := gcd(w, h)
	if g == 0 {
		g = 1
	}
	return VideoFormat{FourCC: fourcc, Width: w, Height: h, FPS: fps, AspectRatioW: w / g, AspectRatioH: h / g}
}

// ms2130Formats mirrors an MS2130-class 4K-capable device with YUY2 up
// to 60fps at 1080p.
func ms2130Formats() []VideoFormat {
	return []VideoFormat{
		vf("YUY2", 3840, 2160, 30),
		vf("YUY2", 1920, 1080, 60),
		vf("YUY2", 1920, 1080, 30),
		vf("MJPG", 3840, 2160, 30),
	}
}

func TestSelectExactMatch60Fps(t *testing.T) {
	got, ok := Select(ms2130Formats(), Target{1920, 1080})
	if !ok {
		t.Fatalf("expected a match")
	}
	if got.FourCC != "YUY2" || got.Width != 1920 || got.Height != 1080 || got.FPS != 60 {
		t.Fatalf("got %+v, want YUY2 1920x1080@60", got)
	}
}

func camLink4KFormats() []VideoFormat {
	return []VideoFormat{
		vf("NV12", 3840, 2160, 24),
		vf("NV12", 1920, 1080, 60),
		vf("MJPG", 3840, 2160, 30),
	}
}

func TestSelectCamLink4KNV12(t *testing.T) {
	got, ok := Select(camLink4KFormats(), Target{3840, 2160})
	if !ok {
		t.Fatalf("expected a match")
	}
	if got.FourCC != "NV12" || got.Width != 3840 || got.Height != 2160 || got.FPS != 24 {
		t.Fatalf("got %+v, want NV12 3840x2160@24", got)
	}
}

func camLinkVariantFormats() []VideoFormat {
	return []VideoFormat{
		vf("YUY2", 1920, 1080, 59),
		vf("YUY2", 1280, 720, 60),
	}
}

func TestSelectCamLinkVariantNo60(t *testing.T) {
	got, ok := Select(camLinkVariantFormats(), Target{1920, 1080})
	if !ok {
		t.Fatalf("expected a match")
	}
	if got.FourCC != "YUY2" || got.Width != 1920 || got.Height != 1080 || got.FPS != 59 {
		t.Fatalf("got %+v, want YUY2 1920x1080@59", got)
	}
}

func hagibisFormats() []VideoFormat {
	return []VideoFormat{
		vf("YUY2", 1920, 1080, 60),
		vf("MJPG", 1920, 1080, 60),
	}
}

func TestSelectHagibis(t *testing.T) {
	got, ok := Select(hagibisFormats(), Target{1920, 1080})
	if !ok {
		t.Fatalf("expected a match")
	}
	if got.FourCC != "YUY2" || got.Width != 1920 || got.Height != 1080 || got.FPS != 60 {
		t.Fatalf("got %+v, want YUY2 1920x1080@60", got)
	}
}

func TestSelectEmptyFormatsReturnsFalse(t *testing.T) {
	_, ok := Select(nil, Target{1920, 1080})
	if ok {
		t.Fatalf("expected no match on empty format list")
	}
}

func TestSelectIsTotalOnNonEmptyList(t *testing.T) {
	formats := []VideoFormat{vf("YUY2", 640, 480, 30)}
	_, ok := Select(formats, Target{4096, 2160})
	if !ok {
		t.Fatalf("selector must return a result for any non-empty list")
	}
}
