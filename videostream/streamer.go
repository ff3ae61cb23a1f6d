package videostream

import (
	"fmt"
	"image"
	"log/slog"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/usbmedia/uvccapture/internal/lograte"
	"github.com/usbmedia/uvccapture/uvc"
	"github.com/usbmedia/uvccapture/usbfs"
)

// State is the video streamer's lifecycle state.
type State int32

const (
	Initial State = iota
	Negotiated
	Started
	Stopped
	Destroying
	Destroyed
	Error
)

func (s State) String() string {
	switch s {
	case Initial:
		return "INITIAL"
	case Negotiated:
		return "NEGOTIATED"
	case Started:
		return "STARTED"
	case Stopped:
		return "STOPPED"
	case Destroying:
		return "DESTROYING"
	case Destroyed:
		return "DESTROYED"
	case Error:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// deviceHandle is the subset of *device.Device this streamer depends
// on; structural satisfaction lets tests substitute a fake.
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

// Surface is the caller-provided render target: Lock returns the pixel
// buffer to draw into, Unlock releases it, and Post signals the frame is
// ready for display.
type Surface interface {
	Lock() (*image.RGBA, error)
	Unlock()
	Post()
}

// transferBackend is the subset of *usbfs.IsoTransfer the video
// streamer drives, mirroring audiostream's abstraction so tests can
// substitute a fake.
type transferBackend interface {
	Submit() error
	Discard() error
	Result() (status int32, actualLength int32, packets []usbfs.IsoPacketDescriptor)
	PacketData(packetIndex int, packets []usbfs.IsoPacketDescriptor) ([]byte, error)
	Ptr() uintptr
}

type videoTransfer struct {
	backend     transferBackend
	isSubmitted bool
}

// Streamer negotiates a UVC stream at a chosen format, delivers decoded
// frames to a Surface, and tracks fps/timing statistics.
type Streamer struct {
	dev     deviceHandle
	surface Surface

	state atomicState

	ifaceNumber uint8
	format      uvc.VideoFormat

	transfers []*videoTransfer
	assembly  []byte
	lastFID   int8

	stats *Stats
	clock func() time.Time

	logger *slog.Logger
	rate   *lograte.Limiter

	stopFlag bool

	newTransferBackend func(endpoint uint8, numPackets, packetSize int) transferBackend
}

type atomicState struct{ v int32 }

// New constructs a Streamer in state INITIAL.
func New(dev deviceHandle, surface Surface, logger *slog.Logger) *Streamer {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Streamer{
		dev:     dev,
		surface: surface,
		stats:   NewStats(),
		clock:   time.Now,
		logger:  logger.With("component", "videostream"),
		rate:    lograte.New(60 * time.Second),
		lastFID: -1,
	}
	s.newTransferBackend = func(endpoint uint8, numPackets, packetSize int) transferBackend {
		return usbfs.NewIsoTransfer(dev.FD(), endpoint, numPackets, packetSize)
	}
	return s
}

// Negotiate resolves the video streaming interface, selects target
// against the device's advertised formats, claims the interface, and
// allocates the isochronous transfer pool. On success the streamer
// enters NEGOTIATED.
func (s *Streamer) Negotiate(target uvc.Target) error {
	blob, err := s.dev.ConfigurationDescriptorBytes()
	if err != nil {
		s.state.store(int32(Error))
		return fmt.Errorf("videostream: read configuration descriptor: %w", err)
	}

	conn := uvc.Parse(blob)
	if !conn.SupportsVideoStreaming() {
		s.state.store(int32(Error))
		return fmt.Errorf("videostream: no video streaming interface")
	}
	format, ok := uvc.Select(conn.Formats, target)
	if !ok {
		s.state.store(int32(Error))
		return fmt.Errorf("videostream: no format matches target %+v", target)
	}
	s.format = format
	ifaceNum, _ := conn.InterfaceNumber()
	s.ifaceNumber = ifaceNum

	if driver, err := s.dev.GetDriver(uint32(ifaceNum)); err == nil && driver != "" {
		if err := s.dev.DetachKernelDriver(uint32(ifaceNum)); err != nil {
			s.state.store(int32(Error))
			return fmt.Errorf("videostream: detach kernel driver: %w", err)
		}
	}
	if err := s.dev.ClaimInterface(uint32(ifaceNum)); err != nil {
		s.state.store(int32(Error))
		return fmt.Errorf("videostream: claim interface: %w", err)
	}
	if err := s.dev.SetAltSetting(uint32(ifaceNum), 1); err != nil {
		s.dev.ReleaseInterface(uint32(ifaceNum))
		s.state.store(int32(Error))
		return fmt.Errorf("videostream: set alt setting: %w", err)
	}

	const numTransfers = 4
	const numPackets = 32
	const packetSize = 1024
	s.transfers = make([]*videoTransfer, numTransfers)
	for i := range s.transfers {
		s.transfers[i] = &videoTransfer{backend: s.newTransferBackend(0x81, numPackets, packetSize)}
	}

	s.state.store(int32(Negotiated))
	return nil
}

// Start submits the transfer pool. Idempotent against a null stream
// (no-op if already STARTED).
func (s *Streamer) Start() error {
	if s.state.load() == int32(Started) {
		return nil
	}
	if s.state.load() != int32(Negotiated) && s.state.load() != int32(Stopped) {
		return fmt.Errorf("videostream: Start called outside NEGOTIATED/STOPPED (state=%s)", State(s.state.load()))
	}
	s.stopFlag = false
	submitted := 0
	for _, t := range s.transfers {
		if err := t.backend.Submit(); err == nil {
			t.isSubmitted = true
			submitted++
		}
	}
	if submitted == 0 {
		s.state.store(int32(Error))
		return fmt.Errorf("videostream: no transfer submitted")
	}
	s.state.store(int32(Started))
	return nil
}

// Stop discards any submitted transfers. Idempotent against a null
// stream.
func (s *Streamer) Stop() error {
	if s.state.load() != int32(Started) {
		return nil
	}
	s.stopFlag = true
	for _, t := range s.transfers {
		if t.isSubmitted {
			t.backend.Discard()
			t.isSubmitted = false
		}
	}
	s.state.store(int32(Stopped))
	return nil
}

// Destroy releases the claimed interface and reattaches any detached
// kernel driver.
func (s *Streamer) Destroy() {
	s.Stop()
	s.state.store(int32(Destroying))
	s.dev.ReleaseInterface(uint32(s.ifaceNumber))
	s.dev.ReattachKernelDriver(uint32(s.ifaceNumber))
	s.state.store(int32(Destroyed))
}

// State returns the streamer's current lifecycle state.
func (s *Streamer) State() State {
	return State(s.state.load())
}

// Pump reaps completed transfers, reassembling payloads into frames and
// dispatching captureFrameCallback for each completed frame. Callers
// drive this from the event loop's own pacing.
func (s *Streamer) Pump() {
	for _, t := range s.transfers {
		if !t.isSubmitted {
			continue
		}
		status, _, packets := t.backend.Result()
		if status == int32(-syscall.ENODEV) {
			t.isSubmitted = false
			continue
		}
		if s.stopFlag {
			continue
		}
		for i := range packets {
			data, err := t.backend.PacketData(i, packets)
			if err != nil || len(data) == 0 {
				continue
			}
			s.consumePayload(data)
		}
		if err := t.backend.Submit(); err == nil {
			t.isSubmitted = true
		}
	}
}

// consumePayload parses one UVC payload header and accumulates its data
// into the in-progress frame, dispatching captureFrameCallback when the
// EOF bit (bmHeaderInfo bit 1) is set.
func (s *Streamer) consumePayload(payload []byte) {
	if len(payload) < 2 {
		return
	}
	headerLen := int(payload[0])
	if headerLen < 2 || headerLen > len(payload) {
		return
	}
	info := payload[1]
	fid := int8(info & 0x01)
	eof := info&0x02 != 0

	if s.lastFID != -1 && fid != s.lastFID {
		s.assembly = s.assembly[:0]
	}
	s.lastFID = fid

	s.assembly = append(s.assembly, payload[headerLen:]...)
	if eof {
		s.captureFrameCallback(s.assembly)
		s.assembly = s.assembly[:0]
	}
}

// captureFrameCallback validates, converts, and posts one complete
// frame, recording timing stats.
func (s *Streamer) captureFrameCallback(data []byte) {
	captureStart := s.clock()
	fourcc := FourCC(s.format.FourCC)
	if err := ValidateFrameSize(fourcc, s.format.Width, s.format.Height, data); err != nil {
		s.rate.Log(s.logger, slog.LevelWarn, "bad-frame", "videostream: rejecting frame", "err", err)
		return
	}
	captured := s.clock().Sub(captureStart)

	renderStart := s.clock()
	dst, err := s.surface.Lock()
	if err != nil {
		s.rate.Log(s.logger, slog.LevelWarn, "lock-surface", "videostream: lock surface failed", "err", err)
		return
	}
	if err := DecodeFrame(fourcc, s.format.Width, s.format.Height, data, dst); err != nil {
		s.rate.Log(s.logger, slog.LevelWarn, "decode-frame", "videostream: decode failed", "err", err)
	}
	s.surface.Unlock()
	s.surface.Post()
	rendered := s.clock().Sub(renderStart)

	s.stats.RecordFrame(s.clock(), captured, rendered)
}

func (a *atomicState) load() int32 {
	return atomic.LoadInt32(&a.v)
}
func (a *atomicState) store(v int32) {
	atomic.StoreInt32(&a.v, v)
}
