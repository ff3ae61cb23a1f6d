// Package videostream opens a UVC video stream at a negotiated format,
// converts each incoming frame into an RGBA surface, and collects
// fps/timing statistics. Pixel conversion is grounded in the standard
// image/image/draw packages rather than a third-party dependency: no
// library in the corpus supplies YUV-to-RGBA conversion more directly
// than the standard library already does.
package videostream

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"
)

// FourCC identifies the wire pixel format of an incoming frame.
type FourCC string

const (
	FourCCNV12 FourCC = "NV12"
	FourCCYUY2 FourCC = "YUY2"
	FourCCMJPG FourCC = "MJPG"
)

// ValidateFrameSize checks a raw frame buffer's length (and, for MJPG,
// its leading SOI marker) against what fourcc/width/height require.
func ValidateFrameSize(fourcc FourCC, width, height int, data []byte) error {
	switch fourcc {
	case FourCCNV12:
		want := width * height * 3 / 2
		if len(data) != want {
			return fmt.Errorf("videostream: NV12 frame size %d, want %d", len(data), want)
		}
	case FourCCYUY2:
		want := width * height * 2
		if len(data) != want {
			return fmt.Errorf("videostream: YUY2 frame size %d, want %d", len(data), want)
		}
	case FourCCMJPG:
		if len(data) < 6 || data[0] != 0xFF || data[1] != 0xD8 {
			return fmt.Errorf("videostream: MJPG frame missing SOI marker")
		}
	default:
		return fmt.Errorf("videostream: unsupported fourcc %q", fourcc)
	}
	return nil
}

// DecodeFrame converts data (already size-validated by ValidateFrameSize)
// into dst, an RGBA surface of exactly width x height. On an MJPG decode
// error dst is zeroed (black frame) rather than returning stale pixels,
// matching the caller-visible contract that every callback either
// posts a valid frame or a blank one.
func DecodeFrame(fourcc FourCC, width, height int, data []byte, dst *image.RGBA) error {
	if dst.Bounds().Dx() != width || dst.Bounds().Dy() != height {
		return fmt.Errorf("videostream: surface is %dx%d, want %dx%d",
			dst.Bounds().Dx(), dst.Bounds().Dy(), width, height)
	}

	switch fourcc {
	case FourCCNV12:
		decodeNV12(width, height, data, dst)
		return nil
	case FourCCYUY2:
		decodeYUY2(width, height, data, dst)
		return nil
	case FourCCMJPG:
		img, err := jpeg.Decode(bytes.NewReader(data))
		if err != nil {
			zeroRGBA(dst)
			return fmt.Errorf("videostream: decode MJPG: %w", err)
		}
		draw.Draw(dst, dst.Bounds(), img, img.Bounds().Min, draw.Src)
		return nil
	default:
		return fmt.Errorf("videostream: unsupported fourcc %q", fourcc)
	}
}

func zeroRGBA(dst *image.RGBA) {
	for i := range dst.Pix {
		dst.Pix[i] = 0
	}
}

// decodeNV12 builds a 4:2:0 planar image.YCbCr from the NV12 layout (one
// luma plane followed by an interleaved CbCr plane) and draws it into
// dst, which performs the YCbCr->RGBA conversion.
func decodeNV12(width, height int, data []byte, dst *image.RGBA) {
	ySize := width * height
	yuv := &image.YCbCr{
		Y:              data[:ySize],
		Cb:             make([]byte, (width/2)*(height/2)),
		Cr:             make([]byte, (width/2)*(height/2)),
		YStride:        width,
		CStride:        width / 2,
		SubsampleRatio: image.YCbCrSubsampleRatio420,
		Rect:           image.Rect(0, 0, width, height),
	}
	cbcr := data[ySize:]
	for i := 0; i < len(yuv.Cb); i++ {
		idx := i * 2
		if idx+1 >= len(cbcr) {
			break
		}
		yuv.Cb[i] = cbcr[idx]
		yuv.Cr[i] = cbcr[idx+1]
	}
	draw.Draw(dst, dst.Bounds(), yuv, image.Point{}, draw.Src)
}

// decodeYUY2 builds a 4:2:2 planar image.YCbCr from the YUY2
// (Y0 Cb Y1 Cr ...) packed layout and draws it into dst.
func decodeYUY2(width, height int, data []byte, dst *image.RGBA) {
	yuv := &image.YCbCr{
		Y:              make([]byte, width*height),
		Cb:             make([]byte, (width/2)*height),
		Cr:             make([]byte, (width/2)*height),
		YStride:        width,
		CStride:        width / 2,
		SubsampleRatio: image.YCbCrSubsampleRatio422,
		Rect:           image.Rect(0, 0, width, height),
	}
	row := width * 2
	for y := 0; y < height; y++ {
		base := y * row
		for x := 0; x < width/2; x++ {
			p := base + x*4
			if p+3 >= len(data) {
				break
			}
			yi := y*width + x*2
			ci := y*(width/2) + x
			yuv.Y[yi] = data[p]
			yuv.Cb[ci] = data[p+1]
			yuv.Y[yi+1] = data[p+2]
			yuv.Cr[ci] = data[p+3]
		}
	}
	draw.Draw(dst, dst.Bounds(), yuv, image.Point{}, draw.Src)
}
