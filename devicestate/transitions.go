package devicestate

import (
	"log/slog"

	"github.com/google/uuid"
	"github.com/usbmedia/uvccapture/device"
	"github.com/usbmedia/uvccapture/uac"
	"github.com/usbmedia/uvccapture/uvc"
)

// OnAttach handles a USB_DEVICE_ATTACHED broadcast. Non-UVC devices are
// ignored. An attach while already Connected or PermissionGranted for
// the same device is an idempotent no-op, since many hosts redeliver
// attach events on reconnect races.
func (h *Hub) OnAttach(d *device.Device, hasPermission bool) {
	if !isUvc(d) {
		return
	}

	cur := h.Current()
	if cur.Device == d && (cur.Kind == Connected || cur.Kind == PermissionGranted) {
		return
	}

	s := State{
		Kind:      Attached,
		SessionID: uuid.New(),
		Device:    d,
	}
	h.publish(s)

	if hasPermission {
		h.publish(State{Kind: PermissionGranted, SessionID: s.SessionID, Device: d})
		return
	}

	// Some hosts report stale permission bits on a raw attach; the
	// caller is expected to re-scan and call OnAttach again with the
	// corrected hasPermission before acting on PermissionRequired.
	h.publish(State{Kind: PermissionRequired, SessionID: s.SessionID, Device: d})
}

// OnPermissionRequested records that a permission prompt has been issued
// for the current device, after the caller's 1000ms debounce.
func (h *Hub) OnPermissionRequested() {
	cur := h.Current()
	if cur.Kind != PermissionRequired {
		return
	}
	h.publish(State{Kind: PermissionRequested, SessionID: cur.SessionID, Device: cur.Device})
}

// OnPermissionResult records the user's response to a permission
// prompt.
func (h *Hub) OnPermissionResult(approved bool) {
	cur := h.Current()
	if cur.Kind != PermissionRequested && cur.Kind != PermissionRequired {
		return
	}
	if approved {
		h.publish(State{Kind: PermissionGranted, SessionID: cur.SessionID, Device: cur.Device})
	} else {
		h.publish(State{Kind: PermissionDenied, SessionID: cur.SessionID, Device: cur.Device})
	}
}

// OnConnect opens audio and video handles for the granted device and
// parses its configuration descriptor, transitioning to Connected on
// success. openDevice is invoked twice, once for the audio handle and
// once for the video handle; failures leave the state unchanged so the
// caller can retry.
func (h *Hub) OnConnect(openDevice func() error, logger *slog.Logger) bool {
	cur := h.Current()
	if cur.Kind != PermissionGranted || cur.Device == nil {
		return false
	}

	if err := openDevice(); err != nil {
		if logger != nil {
			logger.Warn("devicestate: first device open failed", "err", err)
		}
		return false
	}
	if err := openDevice(); err != nil {
		if logger != nil {
			logger.Warn("devicestate: second device open failed", "err", err)
		}
		return false
	}

	raw := cur.Device.RawConfigDescriptor
	audioConn := uac.Parse(raw)
	videoConn := uvc.Parse(raw)

	h.publish(State{
		Kind:      Connected,
		SessionID: cur.SessionID,
		Device:    cur.Device,
		AudioConn: audioConn,
		VideoConn: videoConn,
	})
	return true
}

// OnStreamStart opens both streams via startAudio/startVideo, each
// returning (ok, message), and transitions to Streaming carrying both
// results regardless of either succeeding: a one-sided failure still
// reports status and message for the side that failed rather than
// failing the transition outright.
func (h *Hub) OnStreamStart(startAudio, startVideo func() (bool, string)) {
	cur := h.Current()
	if cur.Kind != Connected && cur.Kind != StreamingRestart {
		return
	}

	audioOK, audioMsg := startAudio()
	videoOK, videoMsg := startVideo()

	h.publish(State{
		Kind:      Streaming,
		SessionID: cur.SessionID,
		Device:    cur.Device,
		AudioConn: cur.AudioConn,
		VideoConn: cur.VideoConn,
		AudioOK:   audioOK,
		AudioMsg:  audioMsg,
		VideoOK:   videoOK,
		VideoMsg:  videoMsg,
	})
}

// OnStreamStopRequest transitions Streaming -> StreamingStop, a
// transient request that the caller must resolve with OnStreamStopped
// exactly once.
func (h *Hub) OnStreamStopRequest() {
	cur := h.Current()
	if cur.Kind != Streaming {
		return
	}
	h.publish(State{Kind: StreamingStop, SessionID: cur.SessionID, Device: cur.Device,
		AudioConn: cur.AudioConn, VideoConn: cur.VideoConn})
}

// OnStreamStopped completes a pending StreamingStop after both streams
// have been stopped.
func (h *Hub) OnStreamStopped(stopAudio, stopVideo func()) {
	cur := h.Current()
	if cur.Kind != StreamingStop {
		return
	}
	stopAudio()
	stopVideo()
	h.publish(State{Kind: StreamingStopped, SessionID: cur.SessionID, Device: cur.Device,
		AudioConn: cur.AudioConn, VideoConn: cur.VideoConn})
}

// OnStreamRestartRequest transitions StreamingStopped -> StreamingRestart.
// The caller drives the actual restart via a subsequent OnStreamStart
// call; this transition itself unconditionally succeeds, deferring any
// sink-health check to that subsequent call.
func (h *Hub) OnStreamRestartRequest() {
	cur := h.Current()
	if cur.Kind != StreamingStopped {
		return
	}
	h.publish(State{Kind: StreamingRestart, SessionID: cur.SessionID, Device: cur.Device,
		AudioConn: cur.AudioConn, VideoConn: cur.VideoConn})
}

// OnDetach handles a USB_DEVICE_DETACHED broadcast, stopping any active
// streams and releasing resources before transitioning to Detached.
func (h *Hub) OnDetach(d *device.Device, teardown func()) {
	cur := h.Current()
	if cur.Device != d {
		return
	}
	if teardown != nil {
		teardown()
	}
	h.publish(State{Kind: Detached, SessionID: cur.SessionID, Device: d})
}

// OnNotFound transitions to NotFound, used at boot when no UVC device
// is present.
func (h *Hub) OnNotFound() {
	h.publish(State{Kind: NotFound})
}
