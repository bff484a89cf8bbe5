// Package blob loads image frames into input tensor memory. The
// destination layout is planar channel-major: for batch slot b, channel
// c, row y, column x the flat offset is
//
//	b*w*h*channels + c*w*h + y*w + x
//
// matching what image-input networks expect of their input blob.
package blob

import (
	"fmt"
	"image"

	"github.com/nfnt/resize"

	"github.com/argusvision/inferd/internal/tensor"
)

// Load writes frame into buf's batch slot batchIndex, scaling each
// 8-bit channel value by scale and converting to the buffer's element
// type. Frames whose spatial dimensions differ from the buffer's are
// first resized with deterministic bilinear resampling; aspect ratio is
// not preserved. The transform is destructive and has no failure path —
// malformed buffer shapes and out-of-range batch indices are
// programming errors and panic.
func Load(frame image.Image, buf *tensor.Buffer, scale float32, batchIndex int) {
	n, channels, height, width := buf.NCHW()
	if batchIndex < 0 || batchIndex >= n {
		panic(fmt.Sprintf("blob: batch index %d outside capacity %d", batchIndex, n))
	}
	if channels != 1 && channels != 3 {
		panic(fmt.Sprintf("blob: unsupported channel count %d", channels))
	}

	bounds := frame.Bounds()
	if bounds.Dx() != width || bounds.Dy() != height {
		frame = resize.Resize(uint(width), uint(height), frame, resize.Bilinear)
		bounds = frame.Bounds()
	}

	plane := width * height
	batchOffset := batchIndex * plane * channels

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r, g, b, _ := frame.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			px := [3]float32{float32(r >> 8), float32(g >> 8), float32(b >> 8)}
			base := batchOffset + y*width + x
			for c := 0; c < channels; c++ {
				buf.Put(base+c*plane, px[c]*scale)
			}
		}
	}
}
