package audiostream

import (
	"errors"
	"sync/atomic"
	"syscall"
	"testing"

	"github.com/usbmedia/uvccapture/sinks"
	"github.com/usbmedia/uvccapture/usbfs"
)

// fakeDevice satisfies deviceHandle without touching real hardware.
type fakeDevice struct {
	descriptor []byte
	claimed    uint32
	detached   bool
	reattached bool
}

func (f *fakeDevice) FD() int                                     { return -1 }
func (f *fakeDevice) ClaimInterface(iface uint32) error           { f.claimed = iface; return nil }
func (f *fakeDevice) ReleaseInterface(iface uint32) error         { return nil }
func (f *fakeDevice) SetAltSetting(iface, setting uint32) error   { return nil }
func (f *fakeDevice) GetDriver(iface uint32) (string, error)      { return "uvcvideo", nil }
func (f *fakeDevice) DetachKernelDriver(iface uint32) error       { f.detached = true; return nil }
func (f *fakeDevice) ReattachKernelDriver(iface uint32) error     { f.reattached = true; return nil }
func (f *fakeDevice) ConfigurationDescriptorBytes() ([]byte, error) {
	return f.descriptor, nil
}

// fakeTransfer is a transferBackend that never touches ioctls.
type fakeTransfer struct {
	ptr       uintptr
	submitted int32
	discarded bool
}

func (t *fakeTransfer) Submit() error {
	atomic.StoreInt32(&t.submitted, 1)
	return nil
}
func (t *fakeTransfer) Discard() error {
	t.discarded = true
	atomic.StoreInt32(&t.submitted, 0)
	return nil
}
func (t *fakeTransfer) Result() (int32, int32, []usbfs.IsoPacketDescriptor) {
	return 0, 4, []usbfs.IsoPacketDescriptor{{Length: 4, ActualLength: 4, Status: 0}}
}
func (t *fakeTransfer) PacketData(idx int, packets []usbfs.IsoPacketDescriptor) ([]byte, error) {
	return []byte{0x01, 0x02, 0x03, 0x04}, nil
}
func (t *fakeTransfer) Ptr() uintptr { return t.ptr }

func newTestStreamer(t *testing.T) (*Streamer, *sinks.NullSink) {
	t.Helper()
	dev := &fakeDevice{descriptor: buildMinimalAudioDescriptor()}
	sink := &sinks.NullSink{}
	params := Params{SampleRate: 48000, Channels: 2, BitsPerSample: 16, FramesPerBurst: 64, BufferCapacityInFrames: 512}
	s := New(dev, sink, params, nil)

	ptrCounter := uintptr(1)
	s.newTransferBackend = func(endpoint uint8, numPackets, packetSize int) transferBackend {
		tr := &fakeTransfer{ptr: ptrCounter}
		ptrCounter++
		return tr
	}
	return s, sink
}

func TestOpenReachesReadyToStart(t *testing.T) {
	s, _ := newTestStreamer(t)
	if err := s.Open(); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if s.State() != ReadyToStart {
		t.Fatalf("expected READY_TO_START, got %v", s.State())
	}
}

func TestStartReachesStarted(t *testing.T) {
	s, _ := newTestStreamer(t)
	if err := s.Open(); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if !s.Start() {
		t.Fatalf("Start should succeed")
	}
	if s.State() != Started {
		t.Fatalf("expected STARTED, got %v", s.State())
	}
}

func TestStartFromStartedFails(t *testing.T) {
	s, _ := newTestStreamer(t)
	s.Open()
	s.Start()
	if s.Start() {
		t.Fatalf("Start from STARTED should return false")
	}
}

func TestStopReturnsToReadyToStart(t *testing.T) {
	s, _ := newTestStreamer(t)
	s.Open()
	s.Start()
	if !s.Stop() {
		t.Fatalf("Stop should succeed")
	}
	if s.State() != ReadyToStart {
		t.Fatalf("expected READY_TO_START after Stop, got %v", s.State())
	}
}

func TestDestroyReachesDestroyed(t *testing.T) {
	s, _ := newTestStreamer(t)
	s.Open()
	s.Start()
	s.Stop()
	s.Destroy()
	if s.State() != Destroyed {
		t.Fatalf("expected DESTROYED, got %v", s.State())
	}
}

func TestPumpFillsSilenceWhenRingEmpty(t *testing.T) {
	s, sink := newTestStreamer(t)
	s.Open()
	s.Start()

	dst, cont := sink.PullOnce(32)
	if !cont {
		t.Fatalf("expected pump to report continue=true while running")
	}
	if len(dst) != 64 {
		t.Fatalf("expected %d samples (32 frames * 2 channels), got %d", 64, len(dst))
	}
	for i, v := range dst {
		if v != 0 {
			t.Fatalf("expected silence, got sample %d = %d", i, v)
		}
	}
}

func TestOpenFailsWithoutAudioStreamingInterface(t *testing.T) {
	dev := &fakeDevice{descriptor: nil}
	sink := &sinks.NullSink{}
	params := Params{SampleRate: 48000, Channels: 2, BitsPerSample: 16, FramesPerBurst: 64, BufferCapacityInFrames: 512}
	s := New(dev, sink, params, nil)
	if err := s.Open(); err == nil {
		t.Fatalf("expected Open to fail on a device with no audio streaming interface")
	}
	if s.State() != Error {
		t.Fatalf("expected ERROR, got %v", s.State())
	}
}

// buildMinimalAudioDescriptor builds a configuration descriptor blob
// with one standard audio streaming interface (class 1, subclass 2)
// followed by a class-specific AS_GENERAL descriptor, a format type I
// descriptor (PCM16, 1 channel, 2 bytes/sample, 48kHz discrete), and an
// isochronous IN endpoint — just enough for uac.Parse to resolve a
// usable Connection.
func buildMinimalAudioDescriptor() []byte {
	le16 := func(v uint16) []byte { return []byte{byte(v), byte(v >> 8)} }
	le24 := func(v uint32) []byte { return []byte{byte(v), byte(v >> 8), byte(v >> 16)} }

	iface := []byte{9, 0x04, 1, 1, 1, 1, 2, 0, 0} // bInterfaceNumber=1, class=1 (AUDIO), subclass=2 (STREAMING)

	asGeneral := []byte{7, 0x24, 0x01, 0, 1, 0x01, 0x00} // wFormatTag=PCM16
	asGeneral[0] = byte(len(asGeneral))

	formatType := []byte{8, 0x24, 0x02, 0x01, 1, 2, 16, 1}
	formatType = append(formatType, le24(48000)...)
	formatType[0] = byte(len(formatType))

	ep := append([]byte{9, 0x05, 0x81, 0x01}, le16(192)...)
	ep = append(ep, 1, 0, 0)

	var blob []byte
	blob = append(blob, iface...)
	blob = append(blob, asGeneral...)
	blob = append(blob, formatType...)
	blob = append(blob, ep...)
	return blob
}

func TestErrorsIsMatchesENODEV(t *testing.T) {
	var err error = syscall.ENODEV
	if !errors.Is(err, syscall.ENODEV) {
		t.Fatalf("sanity check failed")
	}
}
