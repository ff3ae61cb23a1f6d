// Package devicestate implements a sole-writer device lifecycle state
// machine: a tagged-variant device state, transitions triggered by
// attach/detach/permission events and explicit stop/restart commands,
// and a broadcast Hub that fans the current state out to readers.
package devicestate

import (
	"github.com/google/uuid"
	"github.com/usbmedia/uvccapture/device"
	"github.com/usbmedia/uvccapture/uac"
	"github.com/usbmedia/uvccapture/uvc"
)

// Kind discriminates the UsbDeviceState tagged variant.
type Kind int

const (
	NotFound Kind = iota
	Attached
	Detached
	PermissionRequired
	PermissionRequested
	PermissionGranted
	PermissionDenied
	Connected
	Streaming
	StreamingStop
	StreamingStopped
	StreamingRestart
)

func (k Kind) String() string {
	switch k {
	case NotFound:
		return "NotFound"
	case Attached:
		return "Attached"
	case Detached:
		return "Detached"
	case PermissionRequired:
		return "PermissionRequired"
	case PermissionRequested:
		return "PermissionRequested"
	case PermissionGranted:
		return "PermissionGranted"
	case PermissionDenied:
		return "PermissionDenied"
	case Connected:
		return "Connected"
	case Streaming:
		return "Streaming"
	case StreamingStop:
		return "StreamingStop"
	case StreamingStopped:
		return "StreamingStopped"
	case StreamingRestart:
		return "StreamingRestart"
	default:
		return "Unknown"
	}
}

// State is one immutable snapshot of the device lifecycle. Only the
// fields relevant to Kind are populated; the tagged-variant payloads
// (device, audio/video connections, ok/message pairs) are folded into
// this single struct rather than modeled as a Go interface hierarchy,
// since the state machine only ever pattern-matches on Kind.
type State struct {
	Kind Kind

	// SessionID correlates all states produced for one physical device
	// attach-to-detach lifetime, regenerated on every Attached transition.
	SessionID uuid.UUID

	Device *device.Device

	AudioConn *uac.Connection
	VideoConn *uvc.Connection

	AudioOK  bool
	AudioMsg string
	VideoOK  bool
	VideoMsg string
}

// isUvc classifies a device as UVC/UAC-relevant: deviceClass in
// {VIDEO, AUDIO}, or MISC with at least one VIDEO/AUDIO interface
// (detected via the raw configuration descriptor since the device
// descriptor alone does not enumerate interfaces).
func isUvc(d *device.Device) bool {
	dd := d.GetDeviceDescriptor()
	if dd == nil {
		return false
	}
	const (
		classAudio = 0x01
		classVideo = 0x0E
		classMisc  = 0xEF
	)
	switch uint8(dd.BDeviceClass) {
	case classAudio, classVideo:
		return true
	case classMisc:
		return deviceHasAudioOrVideoInterface(d)
	default:
		return false
	}
}

func deviceHasAudioOrVideoInterface(d *device.Device) bool {
	audio := uac.Parse(d.RawConfigDescriptor)
	if audio.SupportsAudioStreaming() {
		return true
	}
	video := uvc.Parse(d.RawConfigDescriptor)
	return video.SupportsVideoStreaming()
}
