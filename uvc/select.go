package uvc

// Target is the resolution the format selector ranks supported formats
// against.
type Target struct {
	Width  int
	Height int
}

func (t Target) area() int {
	return t.Width * t.Height
}

func (t Target) aspectRatio() (int, int) {
	g := gcd(t.Width, t.Height)
	if g == 0 {
		g = 1
	}
	return t.Width / g, t.Height / g
}

func (t Target) aspectRatioFloat() float64 {
	w, h := t.aspectRatio()
	if h == 0 {
		return 0
	}
	return float64(w) / float64(h)
}

// Select picks the best matching format from formats for target, using
// a five-tier ranking: exact match at 60fps, exact match at any fps,
// same aspect ratio, closest aspect ratio, closest area. Ties within a
// tier are broken by first-found order. Returns false if formats is
// empty.
func Select(formats []VideoFormat, target Target) (VideoFormat, bool) {
	if len(formats) == 0 {
		return VideoFormat{}, false
	}

	if f, ok := selectExact(formats, target, 60); ok {
		return f, true
	}
	if f, ok := selectExact(formats, target, -1); ok {
		return f, true
	}
	if f, ok := selectSameAspectRatio(formats, target); ok {
		return f, true
	}
	if f, ok := selectClosestAspectRatio(formats, target); ok {
		return f, true
	}
	return selectClosestArea(formats, target), true
}

// selectExact returns the first format matching target's (w,h) exactly,
// and fps exactly when fps >= 0; fps < 0 means "any fps".
func selectExact(formats []VideoFormat, target Target, fps int) (VideoFormat, bool) {
	for _, f := range formats {
		if f.Width == target.Width && f.Height == target.Height {
			if fps < 0 || f.FPS == fps {
				return f, true
			}
		}
	}
	return VideoFormat{}, false
}

// selectSameAspectRatio considers formats whose reduced aspect ratio
// equals target's. Among those, prefers the smallest whose area is
// greater than or equal to target's area; otherwise the largest
// available.
func selectSameAspectRatio(formats []VideoFormat, target Target) (VideoFormat, bool) {
	tw, th := target.aspectRatio()
	var candidates []VideoFormat
	for _, f := range formats {
		if f.AspectRatioW == tw && f.AspectRatioH == th {
			candidates = append(candidates, f)
		}
	}
	if len(candidates) == 0 {
		return VideoFormat{}, false
	}

	targetArea := target.area()
	best, haveBest := VideoFormat{}, false
	for _, f := range candidates {
		if f.Area() >= targetArea {
			if !haveBest || f.Area() < best.Area() {
				best, haveBest = f, true
			}
		}
	}
	if haveBest {
		return best, true
	}

	largest := candidates[0]
	for _, f := range candidates[1:] {
		if f.Area() > largest.Area() {
			largest = f
		}
	}
	return largest, true
}

// selectClosestAspectRatio considers formats with w >= target.w or
// h >= target.h. Among those whose ratio is strictly greater than
// target's, picks the minimum; otherwise, among those with ratio <=
// target's, picks the maximum.
func selectClosestAspectRatio(formats []VideoFormat, target Target) (VideoFormat, bool) {
	targetRatio := target.aspectRatioFloat()
	var eligible []VideoFormat
	for _, f := range formats {
		if f.Width >= target.Width || f.Height >= target.Height {
			eligible = append(eligible, f)
		}
	}
	if len(eligible) == 0 {
		return VideoFormat{}, false
	}

	best, haveBest := VideoFormat{}, false
	for _, f := range eligible {
		if f.AspectRatio() > targetRatio {
			if !haveBest || f.AspectRatio() < best.AspectRatio() {
				best, haveBest = f, true
			}
		}
	}
	if haveBest {
		return best, true
	}

	haveBest = false
	for _, f := range eligible {
		if f.AspectRatio() <= targetRatio {
			if !haveBest || f.AspectRatio() > best.AspectRatio() {
				best, haveBest = f, true
			}
		}
	}
	if haveBest {
		return best, true
	}
	return eligible[0], true
}

// selectClosestArea picks the largest format with area <= target's;
// otherwise the smallest format with area > target's.
func selectClosestArea(formats []VideoFormat, target Target) VideoFormat {
	targetArea := target.area()

	best, haveBest := VideoFormat{}, false
	for _, f := range formats {
		if f.Area() <= targetArea {
			if !haveBest || f.Area() > best.Area() {
				best, haveBest = f, true
			}
		}
	}
	if haveBest {
		return best
	}

	smallest := formats[0]
	for _, f := range formats[1:] {
		if f.Area() < smallest.Area() {
			smallest = f
		}
	}
	return smallest
}
