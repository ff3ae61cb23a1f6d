package usbproto

// StatusType selects which GetStatus() variant a request targets. Only the
// standard device/interface/endpoint status is used here; PTM precision-time
// status (USB 3.1 Annex) has no bearing on UVC/UAC transfers and is left out.
type StatusType uint8

const (
	StatusStandard = StatusType(0x00)
)

// RequestType packs the bmRequestType byte of a control transfer: transfer
// direction, request class, and recipient. The standard requests on
// device.Device OR these together before calling Ctrl.
type RequestType uint8

const (
	RequestDirectionIn  = RequestType(0b10000000)
	RequestDirectionOut = RequestType(0b00000000)

	RequestTypeStandard = RequestType(0b00000000)
	RequestTypeClass    = RequestType(0b00100000)
	RequestTypeVendor   = RequestType(0b01000000)

	RequestRecipientDevice    = RequestType(0b00000000)
	RequestRecipientInterface = RequestType(0b00000001)
	RequestRecipientEndpoint  = RequestType(0b00000010)
)
