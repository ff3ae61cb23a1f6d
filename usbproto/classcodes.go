package usbproto

import "fmt"

// ClassCode/SubClass back DeviceDescriptor.BDeviceClass and
// InterfaceDescriptor.BInterfaceClass/BInterfaceSubClass. The constant set
// below is trimmed to the handful of USB-IF class codes a UVC/UAC capture
// device actually shows up as: audio/video class interfaces, a zero class
// code device (each interface declares its own class, the common case for
// composite webcams), Misc/IAD for multi-interface functions, and
// vendor-specific as a catch-all. uac/audio.go and uvc/video.go match the
// raw interface-descriptor bytes against their own class/subclass
// constants directly rather than against this table; it exists for
// logging and device discovery, not for gating the audio/video parsers.
type (
	ClassCode uint8
	SubClass  uint8
)

func (code ClassCode) String() string {
	if codeString, exist := classCodeMap[code]; exist {
		return codeString
	}
	return fmt.Sprintf("Unknown(%.2X)", uint8(code))
}

const (
	ClassCodeInterfaceAudio      = ClassCode(0x01)
	ClassCodeInterfaceVideo      = ClassCode(0x0E)
	ClassCodeInterfaceAudioVideo = ClassCode(0x10)
	ClassCodeMisc                = ClassCode(0xEF)
	ClassCodeVendorSpecific      = ClassCode(0xFF)
	ClassCodeDeviceHub           = ClassCode(0x09)
)

var classCodeMap = map[ClassCode]string{
	0x00:                         "UseInterfaceDescriptors",
	ClassCodeInterfaceAudio:      "InterfaceAudio",
	ClassCodeInterfaceVideo:      "InterfaceVideo",
	ClassCodeInterfaceAudioVideo: "InterfaceAudioVideo",
	ClassCodeMisc:                "Misc",
	ClassCodeVendorSpecific:      "VendorSpecific",
	ClassCodeDeviceHub:           "DeviceHub",
}
