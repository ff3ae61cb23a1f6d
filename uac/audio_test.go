package uac

import "testing"

// buildAudioBlob assembles a minimal synthetic configuration descriptor:
// interface(AUDIO,AUDIO_STREAMING,1ep) -> AS_GENERAL -> FORMAT_TYPE -> endpoint IN.
func buildAudioBlob() []byte {
	iface := []byte{9, 0x04, 0x01, 0x00, 0x01, 0x01, 0x02, 0x00, 0x00}
	asGeneral := []byte{7, 0x24, 0x01, 0x00, 0x01, 0x01, 0x00}
	formatType := []byte{
		11, 0x24, 0x02, 0x01, 0x02, 0x02, 0x10,
		0x01,             // samFreqType = 1 discrete rate
		0x80, 0xBB, 0x00, // 48000 little-endian 24-bit
	}
	endpoint := []byte{9, 0x05, 0x81, 0x01, 0x40, 0x00, 0x01, 0x00, 0x00}

	var blob []byte
	blob = append(blob, iface...)
	blob = append(blob, asGeneral...)
	blob = append(blob, formatType...)
	blob = append(blob, endpoint...)
	return blob
}

func TestParseCapturesAudioConnection(t *testing.T) {
	c := Parse(buildAudioBlob())

	if !c.SupportsAudioStreaming() {
		t.Fatalf("expected SupportsAudioStreaming true, reason=%q", c.FailureReason())
	}
	if !c.HasFormatTypeDescriptor() {
		t.Fatalf("expected HasFormatTypeDescriptor true")
	}
	if got := c.SupportedFormat(); got != SampleFormatPCM16 {
		t.Fatalf("SupportedFormat = %v, want PCM16", got)
	}
	rate, ok := c.SampleRate()
	if !ok || rate != 48000 {
		t.Fatalf("SampleRate = %d, ok=%v, want 48000", rate, ok)
	}
	if c.EndpointAddress != 0x81 {
		t.Fatalf("EndpointAddress = 0x%02X, want 0x81", c.EndpointAddress)
	}
	if c.MaxPacketSize != 0x40 {
		t.Fatalf("MaxPacketSize = %d, want 64", c.MaxPacketSize)
	}
}

func TestParseEmptyBlobReportsFailure(t *testing.T) {
	c := Parse(nil)
	if c.SupportsAudioStreaming() {
		t.Fatalf("expected SupportsAudioStreaming false on empty blob")
	}
	if c.FailureReason() != "No Audio Streaming Interface" {
		t.Fatalf("FailureReason = %q", c.FailureReason())
	}
}

func TestParseContinuousRangeUsesMin(t *testing.T) {
	iface := []byte{9, 0x04, 0x01, 0x00, 0x01, 0x01, 0x02, 0x00, 0x00}
	asGeneral := []byte{7, 0x24, 0x01, 0x00, 0x01, 0x01, 0x00}
	formatType := []byte{
		14, 0x24, 0x02, 0x01, 0x02, 0x02, 0x10,
		0x00,             // samFreqType = 0, continuous range
		0x80, 0xBB, 0x00, // min = 48000
		0x00, 0x77, 0x01, // max = 96000 (unused)
	}
	endpoint := []byte{9, 0x05, 0x81, 0x01, 0x40, 0x00, 0x01, 0x00, 0x00}

	var blob []byte
	blob = append(blob, iface...)
	blob = append(blob, asGeneral...)
	blob = append(blob, formatType...)
	blob = append(blob, endpoint...)

	c := Parse(blob)
	rate, ok := c.SampleRate()
	if !ok || rate != 48000 {
		t.Fatalf("SampleRate = %d, ok=%v, want min=48000", rate, ok)
	}
}
