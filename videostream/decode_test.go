package videostream

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"testing"
)

func TestValidateFrameSizeNV12(t *testing.T) {
	data := make([]byte, 4*2*3/2)
	if err := ValidateFrameSize(FourCCNV12, 4, 2, data); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := ValidateFrameSize(FourCCNV12, 4, 2, data[:len(data)-1]); err == nil {
		t.Fatalf("expected error for short NV12 buffer")
	}
}

func TestValidateFrameSizeYUY2(t *testing.T) {
	data := make([]byte, 4*2*2)
	if err := ValidateFrameSize(FourCCYUY2, 4, 2, data); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateFrameSizeMJPGRequiresSOI(t *testing.T) {
	good := []byte{0xFF, 0xD8, 0, 0, 0, 0}
	if err := ValidateFrameSize(FourCCMJPG, 4, 2, good); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	bad := []byte{0x00, 0x00, 0, 0, 0, 0}
	if err := ValidateFrameSize(FourCCMJPG, 4, 2, bad); err == nil {
		t.Fatalf("expected error for missing SOI marker")
	}
}

func TestDecodeFrameNV12ProducesOpaquePixels(t *testing.T) {
	width, height := 4, 2
	data := make([]byte, width*height*3/2)
	for i := 0; i < width*height; i++ {
		data[i] = 200 // luma
	}
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	if err := DecodeFrame(FourCCNV12, width, height, data, dst); err != nil {
		t.Fatalf("DecodeFrame: %v", err)
	}
	if dst.RGBAAt(0, 0).A != 0xFF {
		t.Fatalf("expected opaque pixel, got alpha=%d", dst.RGBAAt(0, 0).A)
	}
}

func TestDecodeFrameMJPGDecodesRealImage(t *testing.T) {
	width, height := 4, 2
	src := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			src.Set(x, y, color.RGBA{R: 10, G: 20, B: 30, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, src, nil); err != nil {
		t.Fatalf("jpeg.Encode: %v", err)
	}

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	if err := DecodeFrame(FourCCMJPG, width, height, buf.Bytes(), dst); err != nil {
		t.Fatalf("DecodeFrame: %v", err)
	}
}

func TestDecodeFrameMJPGZeroesSurfaceOnDecodeError(t *testing.T) {
	width, height := 2, 2
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	for i := range dst.Pix {
		dst.Pix[i] = 0xAB
	}
	garbage := []byte{0xFF, 0xD8, 0xFF, 0xFF, 0x00, 0x01}
	if err := DecodeFrame(FourCCMJPG, width, height, garbage, dst); err == nil {
		t.Fatalf("expected decode error from garbage JPEG data")
	}
	for _, b := range dst.Pix {
		if b != 0 {
			t.Fatalf("expected surface zeroed after decode error, found byte %d", b)
		}
	}
}

func TestDecodeFrameRejectsMismatchedSurfaceSize(t *testing.T) {
	dst := image.NewRGBA(image.Rect(0, 0, 4, 4))
	data := make([]byte, 2*2*3/2)
	if err := DecodeFrame(FourCCNV12, 2, 2, data, dst); err == nil {
		t.Fatalf("expected error for mismatched surface size")
	}
}
