package native

import (
	"image"
	"testing"

	"github.com/usbmedia/uvccapture/audiostream"
	"github.com/usbmedia/uvccapture/sinks"
)

type fakeDevice struct {
	descriptor []byte
}

func (f *fakeDevice) FD() int                                     { return -1 }
func (f *fakeDevice) ClaimInterface(iface uint32) error           { return nil }
func (f *fakeDevice) ReleaseInterface(iface uint32) error         { return nil }
func (f *fakeDevice) SetAltSetting(iface, setting uint32) error   { return nil }
func (f *fakeDevice) GetDriver(iface uint32) (string, error)      { return "", nil }
func (f *fakeDevice) DetachKernelDriver(iface uint32) error       { return nil }
func (f *fakeDevice) ReattachKernelDriver(iface uint32) error     { return nil }
func (f *fakeDevice) ConfigurationDescriptorBytes() ([]byte, error) {
	return f.descriptor, nil
}

func TestAudioFacadeConnectFailsWithoutAudioInterface(t *testing.T) {
	dev := &fakeDevice{descriptor: nil}
	sink := &sinks.NullSink{}
	params := audiostream.Params{SampleRate: 48000, Channels: 2, BitsPerSample: 16, FramesPerBurst: 64, BufferCapacityInFrames: 512}
	facade := NewAudioFacade(dev, sink, params, nil)

	ok, msg := facade.Connect()
	if ok {
		t.Fatalf("expected Connect to fail on a device with no audio interface")
	}
	if msg == "" {
		t.Fatalf("expected a non-empty failure message")
	}
}

type fakeSurface struct {
	buf *image.RGBA
}

func (s *fakeSurface) Lock() (*image.RGBA, error) { return s.buf, nil }
func (s *fakeSurface) Unlock()                    {}
func (s *fakeSurface) Post()                      {}

func TestVideoFacadeConnectFailsWithoutVideoInterface(t *testing.T) {
	dev := &fakeDevice{descriptor: nil}
	surf := &fakeSurface{buf: image.NewRGBA(image.Rect(0, 0, 640, 480))}
	facade := NewVideoFacade(dev, surf, nil)

	ok, msg := facade.Connect(640, 480)
	if ok {
		t.Fatalf("expected Connect to fail on a device with no video interface")
	}
	if msg == "" {
		t.Fatalf("expected a non-empty failure message")
	}
}
