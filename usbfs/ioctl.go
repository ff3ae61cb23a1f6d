package usbfs

// Ioctl numbers and wire structs this package actually issues, mirroring
// the subset of /usr/include/linux/usbdevice_fs.h that a control/bulk/
// isochronous capture client needs: standard transfers, interface
// claim/alt-setting/driver management, and the URB submit/discard/reap
// cycle isochronous.go drives. USBDEVFS_RESET is declared here as well,
// but no function in this package issues it. usbdevfs exposes a much larger surface
// (hub port info, streams, privilege dropping, USBDEVFS_RESETEP, ...)
// that nothing here ever calls; ioctl_test.go cross-checks only the
// numbers below against the kernel header's _IOC encoding.

import (
	ioctl "github.com/daedaluz/goioctl"
	"strings"
	"unsafe"
)

var (
	USBDEVFS_CONTROL          = ioctl.IOWR('U', 0, unsafe.Sizeof(usbdevfs_ctrltransfer{}))
	USBDEVFS_BULK             = ioctl.IOWR('U', 2, unsafe.Sizeof(usbdevfs_bulktransfer{}))
	USBDEVFS_SETINTERFACE     = ioctl.IOR('U', 4, unsafe.Sizeof(usbdevfs_setinterface{}))
	USBDEVFS_GETDRIVER        = ioctl.IOW('U', 8, unsafe.Sizeof(usbdevfs_getdriver{}))
	USBDEVFS_SUBMITURB        = ioctl.IOR('U', 10, unsafe.Sizeof(usbdevfs_urb{}))
	USBDEVFS_DISCARDURB       = ioctl.IO('U', 11)
	USBDEVFS_REAPURBNDELAY    = ioctl.IOW('U', 13, unsafe.Sizeof(uintptr(0)))
	USBDEVFS_CLAIMINTERFACE   = ioctl.IOR('U', 15, unsafe.Sizeof(uint32(0)))
	USBDEVFS_RELEASEINTERFACE = ioctl.IOR('U', 16, unsafe.Sizeof(uint32(0)))
	USBDEVFS_CONNECTINFO      = ioctl.IOW('U', 17, unsafe.Sizeof(usbdevfs_connectinfo{}))
	USBDEVFS_IOCTL            = ioctl.IOWR('U', 18, unsafe.Sizeof(usbdevfs_ioctl{}))
	USBDEVFS_RESET            = ioctl.IO('U', 20)
	USBDEVFS_DISCONNECT       = ioctl.IO('U', 22)
	USBDEVFS_CONNECT          = ioctl.IO('U', 23)
)

type (
	usbdevfs_ctrltransfer struct {
		RequestType uint8
		Request     uint8
		Value       uint16
		Index       uint16
		Length      uint16
		Timeout     uint32
		Data        uintptr
	}
	usbdevfs_bulktransfer struct {
		Endpoint uint32
		Length   uint32
		Timeout  uint32
		Data     uintptr
	}

	usbdevfs_setinterface struct {
		Interface  uint32
		AltSetting uint32
	}

	usbdevfs_getdriver struct {
		Interface uint32
		Driver    [nUSBDEVFS_MAXDRIVERNAME + 1]byte
	}

	usbdevfs_urb struct {
		Type            uint8
		Endpoint        uint8
		Status          int32
		Flags           uint32
		Buffer          uintptr
		BufferLength    int32
		ActualLength    int32
		StartFrame      int32
		PacketsOrStream uint32 /* StreamID if bulk, number of packets if isoc */
		ErrorCount      int32
		SigNumber       uint32
		UserContext     uintptr
		/* iso_frame_desc follows for isochronous URBs, see IsoPacketDescriptor */
	}

	// usbdevfs_iso_packet_desc mirrors struct usbdevfs_iso_packet_desc from
	// usbdevice_fs.h. NumberOfPackets of these trail a usbdevfs_urb with
	// Type == USBDEVFS_URB_TYPE_ISO in the flat buffer submitted to the
	// kernel.
	usbdevfs_iso_packet_desc struct {
		Length       uint32
		ActualLength uint32
		Status       uint32
	}

	// usbdevfs_connectinfo reports the negotiated link speed; GetConnectInfo
	// surfaces Slow for connect-time diagnostics.
	usbdevfs_connectinfo struct {
		DevNum uint32
		Slow   uint8
	}

	usbdevfs_ioctl struct {
		Interface int32
		IoctlCode int32
		Data      uintptr
	}
)

func (d *usbdevfs_getdriver) String() string {
	buff := strings.Builder{}
	for _, x := range d.Driver {
		if x == 0 {
			break
		}
		buff.WriteByte(x)
	}
	return buff.String()
}

func slicePtr(s []byte) uintptr {
	return uintptr(unsafe.Pointer(&s[0]))
}
