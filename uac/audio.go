// Package uac extracts a USB Audio Class streaming connection from a
// configuration descriptor blob: the AS_GENERAL format tag, the
// FORMAT_TYPE sample-rate table, and the bulk/isochronous IN endpoint
// that carries PCM data.
package uac

import "github.com/usbmedia/uvccapture/descriptor"

const (
	classAudio          = 0x01
	subclassAudioStream = 0x02

	subtypeASGeneral  = 0x01
	subtypeFormatType = 0x02
)

// Format tags carried by AudioStreamingGeneralDescriptor.wFormatTag.
const (
	FormatTagPCM16     = 0x0001
	FormatTagPCMFloat  = 0x0003
)

// SampleFormat names the decoded format tag.
type SampleFormat int

const (
	SampleFormatUnknown SampleFormat = iota
	SampleFormatPCM16
	SampleFormatPCMFloat
)

// Connection is the result of walking a configuration descriptor blob
// once, capturing the first match of each required audio-streaming
// record. A zero Connection (no successful matches) reports false from
// every predicate, letting callers surface a specific failure reason.
type Connection struct {
	interfaceNumber  uint8
	haveInterface    bool
	haveASGeneral    bool
	haveFormatType   bool
	haveEndpointIn   bool

	TerminalLink uint8
	Delay        uint8
	FormatTag    uint16

	FormatType    uint8
	NumChannels   uint8
	SubFrameSize  uint8
	BitResolution uint8
	SampleRates   []uint32 // decoded 24-bit frequencies, Hz

	EndpointAddress uint8
	MaxPacketSize   uint16
}

// Parse walks blob once, capturing the first interface with
// class=AUDIO/subclass=AUDIO_STREAMING with at least one endpoint, the
// first AS_GENERAL and FORMAT_TYPE class-specific descriptors that
// follow it, and the first IN endpoint after it.
func Parse(blob []byte) *Connection {
	c := &Connection{}
	afterStreamingInterface := false

	descriptor.Walk(blob, func(d descriptor.Descriptor) {
		switch {
		case d.Type == descriptor.TypeInterface:
			if c.haveInterface {
				return
			}
			if d.IsInterfaceWithAtLeastOneEndpoint() &&
				d.Byte(5) == classAudio && d.Byte(6) == subclassAudioStream {
				c.haveInterface = true
				c.interfaceNumber = d.Byte(2)
				afterStreamingInterface = true
			}

		case d.IsClassSpecificInterface() && afterStreamingInterface:
			switch d.Subtype() {
			case subtypeASGeneral:
				if !c.haveASGeneral {
					c.haveASGeneral = true
					c.TerminalLink = d.Byte(3)
					c.Delay = d.Byte(4)
					c.FormatTag = d.Word(5)
				}
			case subtypeFormatType:
				if !c.haveFormatType {
					c.haveFormatType = true
					c.FormatType = d.Byte(3)
					c.NumChannels = d.Byte(4)
					c.SubFrameSize = d.Byte(5)
					c.BitResolution = d.Byte(6)
					c.SampleRates = decodeSampleRates(d)
				}
			}

		case d.IsEndpointWithDirIN() && afterStreamingInterface:
			if c.haveEndpointIn {
				return
			}
			c.haveEndpointIn = true
			c.EndpointAddress = d.Byte(2)
			c.MaxPacketSize = d.Word(4)
		}
	})

	return c
}

// decodeSampleRates reads the samFreqType/samFreq[] trailer of a
// FORMAT_TYPE descriptor. When samFreqType == 0 the descriptor encodes a
// continuous range as two 3-byte values (min, max); only the first
// (min) value is consulted when picking a rate, matching known device
// firmware that reports a continuous range but only actually streams at
// its minimum.
func decodeSampleRates(d descriptor.Descriptor) []uint32 {
	const samFreqTypeOffset = 7
	const firstFreqOffset = 8

	samFreqType := d.Byte(samFreqTypeOffset)
	if samFreqType == 0 {
		if len(d.Bytes) < firstFreqOffset+3 {
			return nil
		}
		return []uint32{d.Triplet(firstFreqOffset)}
	}
	rates := make([]uint32, 0, samFreqType)
	for i := 0; i < int(samFreqType); i++ {
		off := firstFreqOffset + i*3
		if len(d.Bytes) < off+3 {
			break
		}
		rates = append(rates, d.Triplet(off))
	}
	return rates
}

// SupportsAudioStreaming reports whether an audio streaming interface
// with an IN endpoint was found.
func (c *Connection) SupportsAudioStreaming() bool {
	return c.haveInterface && c.haveEndpointIn
}

// HasFormatTypeDescriptor reports whether a FORMAT_TYPE descriptor was
// captured.
func (c *Connection) HasFormatTypeDescriptor() bool {
	return c.haveFormatType
}

// HasGeneralDescriptor reports whether an AS_GENERAL descriptor was
// captured.
func (c *Connection) HasGeneralDescriptor() bool {
	return c.haveASGeneral
}

// InterfaceNumber returns the matched interface's bInterfaceNumber and
// whether an interface was matched at all.
func (c *Connection) InterfaceNumber() (uint8, bool) {
	return c.interfaceNumber, c.haveInterface
}

// SampleRate returns the sample rate this connection will actually use:
// the first entry of SampleRates (preserving the source's min-of-range
// behavior for continuous-range descriptors).
func (c *Connection) SampleRate() (uint32, bool) {
	if len(c.SampleRates) == 0 {
		return 0, false
	}
	return c.SampleRates[0], true
}

// SupportedFormat resolves FormatTag to a SampleFormat, or
// SampleFormatUnknown if neither PCM16 nor PCM_FLOAT.
func (c *Connection) SupportedFormat() SampleFormat {
	switch c.FormatTag {
	case FormatTagPCM16:
		return SampleFormatPCM16
	case FormatTagPCMFloat:
		return SampleFormatPCMFloat
	default:
		return SampleFormatUnknown
	}
}

// FailureReason returns a human-readable reason why this connection
// cannot stream, or "" if it can.
func (c *Connection) FailureReason() string {
	switch {
	case !c.haveInterface:
		return "No Audio Streaming Interface"
	case !c.haveASGeneral:
		return "No Audio Streaming General Descriptor"
	case !c.haveFormatType:
		return "No Format Type Descriptor"
	case len(c.SampleRates) == 0:
		return "No Sample Rate"
	case !c.haveEndpointIn:
		return "No IN Endpoint"
	case c.SupportedFormat() == SampleFormatUnknown:
		return "Unsupported Format Tag"
	default:
		return ""
	}
}
