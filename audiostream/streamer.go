package audiostream

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"syscall"
	"time"

	"github.com/usbmedia/uvccapture/internal/lograte"
	"github.com/usbmedia/uvccapture/ringbuffer"
	"github.com/usbmedia/uvccapture/sinks"
	"github.com/usbmedia/uvccapture/uac"
	"github.com/usbmedia/uvccapture/usbfs"
)

// deviceHandle is the subset of *device.Device the streamer depends on.
// *device.Device satisfies this structurally; tests substitute a fake
// that never touches real hardware.
type deviceHandle interface {
	FD() int
	ClaimInterface(iface uint32) error
	ReleaseInterface(iface uint32) error
	SetAltSetting(iface, setting uint32) error
	GetDriver(iface uint32) (string, error)
	DetachKernelDriver(iface uint32) error
	ReattachKernelDriver(iface uint32) error
	ConfigurationDescriptorBytes() ([]byte, error)
}

// Params are the PCM parameters the host audio sink is configured with.
type Params struct {
	SampleRate      uint32
	Channels        uint8
	BitsPerSample   uint8
	FramesPerBurst  int
	BufferCapacityInFrames int
}

// Streamer drives one audio capture session end to end.
type Streamer struct {
	dev    deviceHandle
	sink   sinks.Sink
	params Params

	state atomicState

	mu           sync.Mutex
	stoppingCond *sync.Cond
	stopFlag     bool

	ring *ringbuffer.Buffer
	pool *pool

	ifaceNumber     uint8
	endpointAddress uint8
	maxPacketSize   uint16
	kernelDetached  bool

	logger   *slog.Logger
	rate     *lograte.Limiter
	loopCount uint64

	newTransferBackend func(endpoint uint8, numPackets, packetSize int) transferBackend
}

// New constructs a Streamer in state INITIAL. dev wraps the USB device
// file descriptor; sink is the host audio output. Construction does not
// claim any interface until Open is called.
func New(dev deviceHandle, sink sinks.Sink, params Params, logger *slog.Logger) *Streamer {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Streamer{
		dev:    dev,
		sink:   sink,
		params: params,
		logger: logger.With("component", "audiostream"),
		rate:   lograte.New(60 * time.Second),
	}
	s.stoppingCond = sync.NewCond(&s.mu)
	s.newTransferBackend = func(endpoint uint8, numPackets, packetSize int) transferBackend {
		return usbfs.NewIsoTransfer(dev.FD(), endpoint, numPackets, packetSize)
	}
	return s
}

// Open reads the active configuration descriptor, configures the sink,
// resolves and claims the audio streaming interface, and sizes the
// isochronous transfer pool. On success the streamer enters
// READY_TO_START.
func (s *Streamer) Open() error {
	if !s.state.compareAndSwap(Initial, ReadyToStart) {
		return fmt.Errorf("audiostream: Open called outside INITIAL (state=%s)", s.state.load())
	}

	blob, err := s.dev.ConfigurationDescriptorBytes()
	if err != nil {
		s.state.store(Error)
		return fmt.Errorf("audiostream: read configuration descriptor: %w", err)
	}

	conn := uac.Parse(blob)
	if !conn.SupportsAudioStreaming() {
		s.state.store(Error)
		return fmt.Errorf("audiostream: %s", conn.FailureReason())
	}
	ifaceNum, _ := conn.InterfaceNumber()
	s.ifaceNumber = ifaceNum
	s.endpointAddress = conn.EndpointAddress
	s.maxPacketSize = conn.MaxPacketSize

	if err := s.sink.Configure(s.params.SampleRate, s.params.Channels, s.params.BitsPerSample); err != nil {
		s.state.store(Error)
		return fmt.Errorf("audiostream: configure sink: %w", err)
	}

	if driver, err := s.dev.GetDriver(uint32(ifaceNum)); err == nil && driver != "" {
		if err := s.dev.DetachKernelDriver(uint32(ifaceNum)); err != nil {
			s.state.store(Error)
			return fmt.Errorf("audiostream: detach kernel driver: %w", err)
		}
		s.kernelDetached = true
	}
	if err := s.dev.ClaimInterface(uint32(ifaceNum)); err != nil {
		s.state.store(Error)
		return fmt.Errorf("audiostream: claim interface: %w", err)
	}
	if err := s.dev.SetAltSetting(uint32(ifaceNum), 1); err != nil {
		s.dev.ReleaseInterface(uint32(ifaceNum))
		s.state.store(Error)
		return fmt.Errorf("audiostream: set alt setting: %w", err)
	}

	numPackets, bufferSize, numTransfers := poolSizing(
		s.params.FramesPerBurst, int(s.bytesPerSample()), int(s.params.Channels),
		int(s.maxPacketSize), s.params.BufferCapacityInFrames)
	_ = bufferSize
	s.pool = newPool(numTransfers, func() transferBackend {
		return s.newTransferBackend(s.endpointAddress, numPackets, int(s.maxPacketSize))
	})

	ringSize := ringbuffer.Size(s.params.FramesPerBurst, int(s.bytesPerSample()),
		int(s.params.Channels), int(s.maxPacketSize), s.params.BufferCapacityInFrames)
	s.ring = ringbuffer.New(ringSize)

	return nil
}

func (s *Streamer) bytesPerSample() uint8 {
	return s.params.BitsPerSample / 8
}

// Start submits every transfer in the pool and requests the sink to
// start. Returns false (without transitioning) if called outside
// READY_TO_START.
func (s *Streamer) Start() bool {
	if !s.state.compareAndSwap(ReadyToStart, Starting) {
		return false
	}

	s.stopFlag = false
	submitted := s.pool.submitAll()
	if submitted == 0 {
		s.state.store(Error)
		return false
	}

	started := make(chan struct{}, 1)
	err := s.sink.Start(func(dst []int16, numFrames int) bool {
		return s.pump(dst, numFrames)
	})
	if err == nil {
		started <- struct{}{}
	}

	select {
	case <-started:
		s.state.store(Started)
		return true
	case <-time.After(500 * time.Millisecond):
		s.state.store(Error)
		return false
	}
}

// pump is the USB event pump callback driven by the sink's own thread:
// it services completed transfers with a bounded timeout, then drains
// the ring buffer into the sink's requested buffer, filling with
// silence when insufficient samples are queued.
func (s *Streamer) pump(dst []int16, numFrames int) bool {
	s.loopCount++
	s.reapOnce(100 * time.Microsecond)

	want := numFrames * int(s.params.Channels)
	if want > len(dst) {
		want = len(dst)
	}
	n := s.ring.Read(dst[:want])
	for i := n; i < want; i++ {
		dst[i] = 0
	}
	return !s.stopFlag
}

// reapOnce reaps and processes completed URBs one after another until
// none is pending, a reap fails, or timeout elapses; each reap is
// non-blocking, so timeout only bounds how long this pump cycle spends
// draining completions.
func (s *Streamer) reapOnce(timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		ptr, err := usbfs.ReapURBNonBlocking(s.dev.FD())
		if err != nil {
			return
		}
		if ptr == 0 {
			return
		}
		s.onTransferComplete(ptr)
	}
}

// onTransferComplete handles one reaped URB: it drops events arriving
// after the device has gone away or during shutdown, converts good
// packets into samples for the ring buffer, rate-limits logging of bad
// packet statuses, and resubmits the transfer for another cycle.
func (s *Streamer) onTransferComplete(ptr uintptr) {
	t := s.pool.find(ptr)
	if t == nil {
		return
	}
	status, _, packets := t.backend.Result()

	if status == int32(-syscall.ENODEV) {
		t.isSubmitted = false
		return
	}

	switch s.state.load() {
	case Stopping:
		t.isSubmitted = false
		if s.pool.activeCount() == 0 {
			s.mu.Lock()
			s.stoppingCond.Broadcast()
			s.mu.Unlock()
		}
		return
	case Destroying, Destroyed:
		t.isSubmitted = false
		return
	}

	for i, pkt := range packets {
		if pkt.Status != 0 {
			s.rate.Log(s.logger, slog.LevelWarn, fmt.Sprintf("pkt-%d", i),
				"audiostream: packet error status", "status", pkt.Status)
			continue
		}
		data, err := t.backend.PacketData(i, packets)
		if err != nil {
			continue
		}
		samples := make([]int16, len(data)/2)
		for j := range samples {
			samples[j] = int16(data[2*j]) | int16(data[2*j+1])<<8
		}
		s.ring.Write(samples)
	}

	if err := t.backend.Submit(); err != nil {
		if errors.Is(err, syscall.ENODEV) {
			t.isSubmitted = false
		}
	} else {
		t.isSubmitted = true
	}
}

// Stop transitions to STOPPING, waits up to 5x100ms for all transfers
// to drain, then requests the sink to stop.
func (s *Streamer) Stop() bool {
	if !s.state.compareAndSwap(Started, Stopping) {
		return s.state.load() == ReadyToStart // idempotent if already stopped
	}

	s.mu.Lock()
	deadline := time.Now().Add(5 * 100 * time.Millisecond)
	for s.pool.activeCount() > 0 && time.Now().Before(deadline) {
		waitCh := make(chan struct{})
		go func() {
			s.mu.Lock()
			s.stoppingCond.Wait()
			s.mu.Unlock()
			close(waitCh)
		}()
		s.mu.Unlock()
		select {
		case <-waitCh:
		case <-time.After(100 * time.Millisecond):
		}
		s.mu.Lock()
	}
	s.mu.Unlock()

	s.stopFlag = true
	if err := s.sink.Stop(); err != nil {
		s.state.store(Error)
		return false
	}
	s.state.store(ReadyToStart)
	return true
}

// Destroy closes the sink, discards any in-flight transfers, releases
// the claimed interface, reattaches any detached kernel driver, and
// drops the ring buffer.
func (s *Streamer) Destroy() {
	s.sink.Close()
	s.state.store(Destroying)
	if s.pool != nil {
		s.pool.discardAll()
	}
	s.dev.ReleaseInterface(uint32(s.ifaceNumber))
	if s.kernelDetached {
		s.dev.ReattachKernelDriver(uint32(s.ifaceNumber))
	}
	s.ring = nil
	s.state.store(Destroyed)
}

// State returns the streamer's current lifecycle state.
func (s *Streamer) State() State {
	return s.state.load()
}
