package usbfs

import (
	"testing"
	"unsafe"
)

const (
	iocNrBits   = 8
	iocTypeBits = 8
	iocSizeBits = 14
	iocDirBits  = 2

	iocNrShift   = 0
	iocTypeShift = iocNrShift + iocNrBits
	iocSizeShift = iocTypeShift + iocTypeBits
	iocDirShift  = iocSizeShift + iocSizeBits

	iocNone  = 0
	iocWrite = 1
	iocRead  = 2
)

func _IO(t, nr uintptr) uintptr {
	return _IOC(iocNone, t, nr, 0)
}

func _IOR(t, nr, size uintptr) uintptr {
	return _IOC(iocRead, t, nr, size)
}

func _IOW(t, nr, size uintptr) uintptr {
	return _IOC(iocWrite, t, nr, size)
}

func _IOWR(t, nr, size uintptr) uintptr {
	return _IOC(iocRead|iocWrite, t, nr, size)
}

func _IOC(dir, t, nr, size uintptr) uintptr {
	return (dir << iocDirShift) | (t << iocTypeShift) | (nr << iocNrShift) | (size << iocSizeShift)
}

type ioctlstruct struct {
	name   string
	number uintptr
	target uintptr
}

// ioctls lists only the numbers declared in ioctl.go, all of which
// usbfs.go/isochronous.go issue except USBDEVFS_RESET;
// the full usbdevice_fs.h surface is much larger (hub port info, USB/IP
// streams, USBDEVFS_RESETEP, ...) but nothing in this module calls those.
var ioctls = []ioctlstruct{
	{"USBDEVFS_CONTROL", _IOWR('U', 0, unsafe.Sizeof(usbdevfs_ctrltransfer{})), 0xC0185500},
	{"USBDEVFS_BULK", _IOWR('U', 2, unsafe.Sizeof(usbdevfs_bulktransfer{})), 0xC0185502},
	{"USBDEVFS_SETINTERFACE", _IOR('U', 4, unsafe.Sizeof(usbdevfs_setinterface{})), 0x80085504},
	{"USBDEVFS_GETDRIVER", _IOW('U', 8, unsafe.Sizeof(usbdevfs_getdriver{})), 0x41045508},
	{"USBDEVFS_SUBMITURB", _IOR('U', 10, unsafe.Sizeof(usbdevfs_urb{})), 0x8038550A},
	{"USBDEVFS_DISCARDURB", _IO('U', 11), 0x0000550B},
	{"USBDEVFS_REAPURBNDELAY", _IOW('U', 13, unsafe.Sizeof(uintptr(0))), 0x4008550D},
	{"USBDEVFS_CLAIMINTERFACE", _IOR('U', 15, unsafe.Sizeof(uint32(0))), 0x8004550F},
	{"USBDEVFS_RELEASEINTERFACE", _IOR('U', 16, unsafe.Sizeof(uint32(0))), 0x80045510},
	{"USBDEVFS_CONNECTINFO", _IOW('U', 17, unsafe.Sizeof(usbdevfs_connectinfo{})), 0x40085511},
	{"USBDEVFS_IOCTL", _IOWR('U', 18, unsafe.Sizeof(usbdevfs_ioctl{})), 0xC0105512},
	{"USBDEVFS_RESET", _IO('U', 20), 0x00005514},
	{"USBDEVFS_DISCONNECT", _IO('U', 22), 0x00005516},
	{"USBDEVFS_CONNECT", _IO('U', 23), 0x00005517},
}

func TestIOCTLNumbers(t *testing.T) {
	for _, ctl := range ioctls {
		if ctl.number != ctl.target {
			t.Errorf("WRONG NUMBER - %s, %.8X != %.8X", ctl.name, ctl.number, ctl.target)
			continue
		}
		t.Logf("%s = 0x%.8X", ctl.name, ctl.number)
	}
}

/* usbdevice_fs.h, subset actually wired in ioctl.go:
#define USBDEVFS_CONTROL           _IOWR('U', 0, struct usbdevfs_ctrltransfer)
#define USBDEVFS_BULK              _IOWR('U', 2, struct usbdevfs_bulktransfer)
#define USBDEVFS_SETINTERFACE      _IOR('U', 4, struct usbdevfs_setinterface)
#define USBDEVFS_GETDRIVER         _IOW('U', 8, struct usbdevfs_getdriver)
#define USBDEVFS_SUBMITURB         _IOR('U', 10, struct usbdevfs_urb)
#define USBDEVFS_DISCARDURB        _IO('U', 11)
#define USBDEVFS_REAPURBNDELAY     _IOW('U', 13, void *)
#define USBDEVFS_CLAIMINTERFACE    _IOR('U', 15, unsigned int)
#define USBDEVFS_RELEASEINTERFACE  _IOR('U', 16, unsigned int)
#define USBDEVFS_CONNECTINFO       _IOW('U', 17, struct usbdevfs_connectinfo)
#define USBDEVFS_IOCTL             _IOWR('U', 18, struct usbdevfs_ioctl)
#define USBDEVFS_RESET             _IO('U', 20)
#define USBDEVFS_DISCONNECT        _IO('U', 22)
#define USBDEVFS_CONNECT           _IO('U', 23)
*/
