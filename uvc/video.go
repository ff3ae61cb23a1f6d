// Package uvc extracts USB Video Class streaming interfaces and formats
// from a configuration descriptor blob, and ranks them against a target
// resolution to pick a streaming profile.
package uvc

import "github.com/usbmedia/uvccapture/descriptor"

const (
	classVideo          = 0x0E
	subclassVideoStream = 0x02
	subclassVideoControl = 0x01

	functionClassVideo          = 0x0E
	functionSubclassVideoInterfaceCollection = 0x03

	subtypeFormatUncompressed = 0x04
	subtypeFrameUncompressed  = 0x05
	subtypeFormatMJPEG        = 0x06
	subtypeFrameMJPEG         = 0x07
)

// VideoFormat is one supported streaming profile.
type VideoFormat struct {
	FourCC string
	Width  int
	Height int
	FPS    int

	// AspectRatioW/H are the reduced aspect ratio (w/g, h/g), g=gcd(w,h).
	AspectRatioW int
	AspectRatioH int
}

// Area returns Width*Height.
func (f VideoFormat) Area() int {
	return f.Width * f.Height
}

// AspectRatio returns the reduced aspect ratio as a float64, for
// tier-4 closest-ratio comparisons.
func (f VideoFormat) AspectRatio() float64 {
	if f.AspectRatioH == 0 {
		return 0
	}
	return float64(f.AspectRatioW) / float64(f.AspectRatioH)
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	if a < 0 {
		return -a
	}
	return a
}

func newVideoFormat(fourcc string, width, height, interval uint32) VideoFormat {
	w, h := int(width), int(height)
	g := gcd(w, h)
	if g == 0 {
		g = 1
	}
	fps := 0
	if interval > 0 {
		fps = int(10_000_000 / interval)
	}
	return VideoFormat{
		FourCC:       fourcc,
		Width:        w,
		Height:       h,
		FPS:          fps,
		AspectRatioW: w / g,
		AspectRatioH: h / g,
	}
}

// Connection is the result of walking a configuration descriptor blob
// for a video capture function.
type Connection struct {
	haveIAD       bool
	haveInterface bool
	interfaceNumber uint8

	Formats []VideoFormat
}

// SupportsVideoStreaming reports whether a video streaming interface was
// matched.
func (c *Connection) SupportsVideoStreaming() bool {
	return c.haveInterface
}

// InterfaceNumber returns the matched streaming interface number and
// whether one was matched.
func (c *Connection) InterfaceNumber() (uint8, bool) {
	return c.interfaceNumber, c.haveInterface
}

// Parse walks blob once, tracking a pending fourcc (the most recently
// seen format descriptor) and emitting a VideoFormat for every frame
// descriptor that follows a format descriptor. Processing stops at the
// first IAD that follows the video function's IAD, since the remaining
// bytes belong to another USB function.
func Parse(blob []byte) *Connection {
	c := &Connection{}
	var pendingFourCC string
	havePending := false
	stopped := false

	descriptor.Walk(blob, func(d descriptor.Descriptor) {
		if stopped {
			return
		}

		switch {
		case d.IsIAD():
			if c.haveIAD {
				stopped = true
			} else if d.Byte(3) == functionClassVideo && d.Byte(4) == functionSubclassVideoInterfaceCollection {
				c.haveIAD = true
			}

		case d.Type == descriptor.TypeInterface:
			if c.haveInterface {
				return
			}
			if d.IsInterfaceWithAtLeastOneEndpoint() &&
				d.Byte(5) == classVideo && d.Byte(6) == subclassVideoStream {
				c.haveInterface = true
				c.interfaceNumber = d.Byte(2)
			}

		case d.IsClassSpecificInterface():
			switch d.Subtype() {
			case subtypeFormatUncompressed:
				pendingFourCC = decodeGUIDFourCC(d)
				havePending = true
			case subtypeFormatMJPEG:
				pendingFourCC = "MJPG"
				havePending = true
			case subtypeFrameUncompressed, subtypeFrameMJPEG:
				if !havePending {
					return // orphan frame descriptor, discarded
				}
				// Frame descriptor layout (UVC 1.1 §3.9.2.1/3.9.2.2):
				// wWidth@5, wHeight@7, dwMinBitRate@9, dwMaxBitRate@13,
				// dwMaxVideoFrameBufferSize@17, dwDefaultFrameInterval@21.
				width := d.Word(5)
				height := d.Word(7)
				defaultInterval := decodeDWord(d, 21)
				c.Formats = append(c.Formats, newVideoFormat(pendingFourCC, uint32(width), uint32(height), defaultInterval))
			}
		}
	})

	return c
}

// decodeGUIDFourCC reads the first 4 bytes of guidFormat (offset 5 in a
// Format Uncompressed descriptor) as an ASCII fourcc, skipping the
// remaining 12 GUID bytes.
func decodeGUIDFourCC(d descriptor.Descriptor) string {
	const guidOffset = 5
	if len(d.Bytes) < guidOffset+4 {
		return ""
	}
	return string(d.Bytes[guidOffset : guidOffset+4])
}

// decodeDWord reads an unsigned 32-bit little-endian field at offset, as
// used by dwDefaultFrameInterval.
func decodeDWord(d descriptor.Descriptor, offset int) uint32 {
	if offset < 0 || offset+3 >= len(d.Bytes) {
		return 0
	}
	return uint32(d.Bytes[offset]) | uint32(d.Bytes[offset+1])<<8 |
		uint32(d.Bytes[offset+2])<<16 | uint32(d.Bytes[offset+3])<<24
}
