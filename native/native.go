// Package native is the typed facade the device state machine drives:
// thin wrappers around audiostream.Streamer and videostream.Streamer
// that translate high-level connection records into the underlying
// streamers' calls and reduce every failure to an (ok, message) pair,
// so the state machine can surface per-stream status without
// inspecting errno or unwrapping Go errors itself.
package native

import (
	"log/slog"

	"github.com/usbmedia/uvccapture/audiostream"
	"github.com/usbmedia/uvccapture/uvc"
	"github.com/usbmedia/uvccapture/videostream"
)

// streamDevice is the USB device surface both streamers depend on.
// *device.Device satisfies it structurally.
type streamDevice interface {
	FD() int
	ClaimInterface(iface uint32) error
	ReleaseInterface(iface uint32) error
	SetAltSetting(iface, setting uint32) error
	GetDriver(iface uint32) (string, error)
	DetachKernelDriver(iface uint32) error
	ReattachKernelDriver(iface uint32) error
	ConfigurationDescriptorBytes() ([]byte, error)
}

// audioSink is the host audio output contract. sinks.Sink satisfies it
// structurally.
type audioSink interface {
	Configure(sampleRate uint32, channels uint8, bitsPerSample uint8) error
	Start(pull func(dst []int16, numFrames int) (cont bool)) error
	Stop() error
	Close() error
}

// AudioFacade wraps one audiostream.Streamer's lifecycle.
type AudioFacade struct {
	streamer *audiostream.Streamer
}

// NewAudioFacade constructs a facade around a Streamer that has not yet
// been opened.
func NewAudioFacade(dev streamDevice, sink audioSink, params audiostream.Params, logger *slog.Logger) *AudioFacade {
	return &AudioFacade{streamer: audiostream.New(dev, sink, params, logger)}
}

// Connect opens the audio streaming interface. Returns (true, "") on
// success, (false, reason) otherwise.
func (f *AudioFacade) Connect() (bool, string) {
	if err := f.streamer.Open(); err != nil {
		return false, err.Error()
	}
	return true, ""
}

// Start begins audio capture.
func (f *AudioFacade) Start() (bool, string) {
	if !f.streamer.Start() {
		return false, "audio streamer failed to reach STARTED"
	}
	return true, ""
}

// Stop halts audio capture.
func (f *AudioFacade) Stop() (bool, string) {
	if !f.streamer.Stop() {
		return false, "audio streamer failed to stop cleanly"
	}
	return true, ""
}

// Disconnect releases the audio streamer's resources.
func (f *AudioFacade) Disconnect() {
	f.streamer.Destroy()
}

// VideoFacade wraps one videostream.Streamer's lifecycle.
type VideoFacade struct {
	streamer *videostream.Streamer
}

// NewVideoFacade constructs a facade around a Streamer that has not yet
// been negotiated.
func NewVideoFacade(dev streamDevice, surface videostream.Surface, logger *slog.Logger) *VideoFacade {
	return &VideoFacade{streamer: videostream.New(dev, surface, logger)}
}

// Connect negotiates a stream control record for the requested
// resolution.
func (f *VideoFacade) Connect(width, height int) (bool, string) {
	if err := f.streamer.Negotiate(uvc.Target{Width: width, Height: height}); err != nil {
		return false, err.Error()
	}
	return true, ""
}

// Start begins video capture.
func (f *VideoFacade) Start() (bool, string) {
	if err := f.streamer.Start(); err != nil {
		return false, err.Error()
	}
	return true, ""
}

// Stop halts video capture.
func (f *VideoFacade) Stop() (bool, string) {
	if err := f.streamer.Stop(); err != nil {
		return false, err.Error()
	}
	return true, ""
}

// Disconnect releases the video streamer's resources.
func (f *VideoFacade) Disconnect() {
	f.streamer.Destroy()
}
