// Package sinks defines the host audio output contract the audio
// streamer pulls PCM samples through, and a silence-producing
// implementation used where no real platform backend (PortAudio, ALSA)
// is wired. Sink is a pure callback boundary, not a concrete driver.
package sinks

// Sink is the host audio output stream contract: block-based pull
// driven by the sink's own thread, requesting numFrames frames per
// callback.
type Sink interface {
	// Configure prepares the sink for the given format. Must be called
	// before Start.
	Configure(sampleRate uint32, channels uint8, bitsPerSample uint8) error

	// Start begins calling pull periodically on the sink's own thread,
	// requesting frames and reporting whether streaming should continue.
	// Start returns once the sink has reached its STARTED state or the
	// attempt times out.
	Start(pull func(dst []int16, numFrames int) (cont bool)) error

	// Stop halts callbacks. Idempotent.
	Stop() error

	// Close releases the sink's resources. Idempotent.
	Close() error
}

// NullSink is a Sink that never calls pull on its own; tests and
// headless operation drive it explicitly via PullOnce. It never
// produces audible output, only the silence the ring buffer itself
// would substitute for missing samples.
type NullSink struct {
	sampleRate uint32
	channels   uint8
	bits       uint8
	pull       func(dst []int16, numFrames int) bool
	started    bool
}

// Configure implements Sink.
func (s *NullSink) Configure(sampleRate uint32, channels uint8, bitsPerSample uint8) error {
	s.sampleRate = sampleRate
	s.channels = channels
	s.bits = bitsPerSample
	return nil
}

// Start implements Sink. It records pull for PullOnce to drive later;
// it never schedules callbacks on its own, since there is no real audio
// hardware thread behind it.
func (s *NullSink) Start(pull func(dst []int16, numFrames int) bool) error {
	s.pull = pull
	s.started = true
	return nil
}

// Stop implements Sink.
func (s *NullSink) Stop() error {
	s.started = false
	return nil
}

// Close implements Sink.
func (s *NullSink) Close() error {
	s.started = false
	s.pull = nil
	return nil
}

// PullOnce drives one callback iteration as if the (nonexistent)
// hardware thread had requested numFrames frames, for tests that
// exercise the audio streamer's USB event pump without real hardware.
func (s *NullSink) PullOnce(numFrames int) ([]int16, bool) {
	if !s.started || s.pull == nil {
		return nil, false
	}
	dst := make([]int16, numFrames*int(s.channels))
	cont := s.pull(dst, numFrames)
	return dst, cont
}
