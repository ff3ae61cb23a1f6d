// Package device implements the USB transport boundary: a Device handle
// opens a node under /dev/bus/usb, performs control/bulk transfers
// through the usbfs ioctl ABI, and tracks kernel-driver detach/reattach
// bookkeeping for the interfaces the audio/video streamers claim.
package device

import (
	"fmt"
	"log/slog"
	"sync"
	"syscall"

	"github.com/usbmedia/uvccapture/usbfs"
	"github.com/usbmedia/uvccapture/usbproto"
)

// Device is a handle to a USB device node. The zero value is not
// usable; obtain one from EnumerateDevices or FindDevices, then call Open.
type Device struct {
	fd           int
	open         bool
	BusNumber    int
	DeviceNumber int

	// DeviceDescriptor is the parsed 18-byte device descriptor.
	DeviceDescriptor *usbproto.DeviceDescriptor

	// RawConfigDescriptor holds a raw descriptor blob: after enumeration,
	// the sysfs descriptors attribute (the device record followed by the
	// configuration, interface, endpoint and class-specific records);
	// after ConfigurationDescriptorBytes, the blob that request returned
	// (configuration record onward, no device record). The standard registry in usbproto cannot walk this
	// blob safely once a class-specific (UAC/UVC) record is reached, so
	// it is handed instead to the raw bLength-driven tokenizer that walks
	// audio/video class descriptors.
	RawConfigDescriptor []byte

	mu             sync.Mutex
	detachedKernel map[uint32]bool
}

// GetDeviceDescriptor returns the parsed device descriptor.
func (d *Device) GetDeviceDescriptor() *usbproto.DeviceDescriptor {
	return d.DeviceDescriptor
}

// Open opens the device node for BusNumber/DeviceNumber and selects
// configuration 1, since a freshly attached device may still be sitting
// in the address state. Calling Open on an already-open Device returns
// an error.
func (d *Device) Open() error {
	if d.open {
		return fmt.Errorf("device: already open")
	}
	fd, err := usbfs.OpenDevice(d.BusNumber, d.DeviceNumber)
	if err != nil {
		return fmt.Errorf("device: open bus=%d dev=%d: %w", d.BusNumber, d.DeviceNumber, err)
	}
	d.fd = fd
	d.open = true
	d.detachedKernel = map[uint32]bool{}

	if cur, err := d.GetConfiguration(); err != nil || cur == 0 {
		if err := d.SetConfiguration(1); err != nil {
			return fmt.Errorf("device: set configuration 1: %w", err)
		}
	}
	return nil
}

// FD returns the underlying file descriptor. Native streaming backends
// take this raw value rather than the Device itself, so they can issue
// ioctls directly without re-deriving the descriptor from bus/device
// numbers.
func (d *Device) FD() int {
	return d.fd
}

func (d *Device) IsOpen() bool {
	return d.open
}

// GetDriver returns the kernel driver name currently bound to iface, or
// an empty string if none is bound.
func (d *Device) GetDriver(iface uint32) (string, error) {
	return usbfs.GetDriver(d.fd, iface)
}

// IsLowSpeed reports whether the device negotiated low-speed (1.5 Mbit/s)
// USB, which no UVC/UAC device uses for streaming; logged at connect time
// so an unexpectedly slow enumeration is visible before stream negotiation
// fails for bandwidth reasons.
func (d *Device) IsLowSpeed() (bool, error) {
	slow, err := usbfs.GetConnectInfo(d.fd)
	return slow != 0, err
}

// DetachKernelDriver disconnects whatever kernel driver is bound to
// iface, remembering that it must be reattached at Close so that
// interface-claiming callers can unwind cleanly.
func (d *Device) DetachKernelDriver(iface uint32) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := usbfs.Disconnect(d.fd, iface); err != nil {
		return fmt.Errorf("device: detach kernel driver iface=%d: %w", iface, err)
	}
	d.detachedKernel[iface] = true
	return nil
}

// ReattachKernelDriver reverses a prior DetachKernelDriver, if any was
// recorded for iface.
func (d *Device) ReattachKernelDriver(iface uint32) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.detachedKernel[iface] {
		return nil
	}
	delete(d.detachedKernel, iface)
	return usbfs.Connect(d.fd, iface)
}

// ReattachAllKernelDrivers reverses every DetachKernelDriver call made
// since Open, in no particular order. Invoked from Close.
func (d *Device) ReattachAllKernelDrivers() {
	d.mu.Lock()
	ifaces := make([]uint32, 0, len(d.detachedKernel))
	for iface := range d.detachedKernel {
		ifaces = append(ifaces, iface)
	}
	d.mu.Unlock()
	for _, iface := range ifaces {
		if err := d.ReattachKernelDriver(iface); err != nil {
			slog.Warn("device: failed to reattach kernel driver", "iface", iface, "err", err)
		}
	}
}

// ClaimInterface claims iface for exclusive access by this process.
func (d *Device) ClaimInterface(iface uint32) error {
	if err := usbfs.ClaimInterface(d.fd, int(iface)); err != nil {
		return fmt.Errorf("device: claim interface %d: %w", iface, err)
	}
	return nil
}

// ReleaseInterface releases a previously claimed interface.
func (d *Device) ReleaseInterface(iface uint32) error {
	return usbfs.ReleaseInterface(d.fd, int(iface))
}

// SetAltSetting selects the alternate setting for iface.
func (d *Device) SetAltSetting(iface, setting uint32) error {
	if err := usbfs.SetInterface(d.fd, iface, setting); err != nil {
		return fmt.Errorf("device: set alt setting iface=%d setting=%d: %w", iface, setting, err)
	}
	return nil
}

// Ctrl issues a control transfer with the default 1000ms timeout.
func (d *Device) Ctrl(typ usbproto.RequestType, req uint8, value, index uint16, payload []byte) (int, error) {
	return usbfs.ControlTransfer(d.fd, uint8(typ), req, value, index, 1000, payload)
}

// CtrlTimeout issues a control transfer with an explicit timeout.
func (d *Device) CtrlTimeout(typ usbproto.RequestType, req uint8, value, index uint16, payload []byte, timeout uint32) (int, error) {
	return usbfs.ControlTransfer(d.fd, uint8(typ), req, value, index, timeout, payload)
}

// Bulk issues a bulk transfer with the default 1000ms timeout. The
// streamers do not use it (they drive isochronous URBs through usbfs
// directly), and the configuration descriptor is read through
// GetDescriptor rather than this call.
func (d *Device) Bulk(ep uint8, data []byte) (int, error) {
	return usbfs.BulkTransfer(d.fd, uint32(ep)&0xFF, 1000, data)
}

// BulkTimeout issues a bulk transfer with an explicit timeout.
func (d *Device) BulkTimeout(ep uint8, data []byte, timeout uint32) (int, error) {
	return usbfs.BulkTransfer(d.fd, uint32(ep)&0xFF, timeout, data)
}

// ConfigurationDescriptorBytes returns the raw bytes of the device's
// active configuration descriptor, as consumed by the descriptor
// tokenizer and the audio/video connection parsers.
func (d *Device) ConfigurationDescriptorBytes() ([]byte, error) {
	buff := make([]byte, 9)
	if _, err := d.GetDescriptor(usbproto.DescriptorTypeConfig, 0, 0, buff); err != nil {
		return nil, fmt.Errorf("device: read configuration descriptor header: %w", err)
	}
	total := int(buff[2]) | int(buff[3])<<8
	if total < 9 {
		return nil, fmt.Errorf("device: configuration descriptor reports implausible length %d", total)
	}
	full := make([]byte, total)
	if _, err := d.GetDescriptor(usbproto.DescriptorTypeConfig, 0, 0, full); err != nil {
		return nil, fmt.Errorf("device: read configuration descriptor: %w", err)
	}
	d.RawConfigDescriptor = full
	return full, nil
}

// Close reattaches any kernel drivers detached during this session and
// closes the file descriptor: every detach performed while claiming an
// interface must be reversed at destruction.
func (d *Device) Close() error {
	d.ReattachAllKernelDrivers()
	err := syscall.Close(d.fd)
	d.fd = 0
	d.open = false
	return err
}
