package blob

import (
	"image"
	"image/color"
	"testing"

	"github.com/argusvision/inferd/internal/tensor"
)

func grayImage(values [][]uint8) *image.Gray {
	h := len(values)
	w := len(values[0])
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetGray(x, y, color.Gray{Y: values[y][x]})
		}
	}
	return img
}

func TestLoadRowMajorLayout(t *testing.T) {
	img := grayImage([][]uint8{{10, 20}, {30, 40}})
	buf := tensor.New("data", tensor.F32, 1, 1, 2, 2)

	Load(img, buf, 1.0, 0)

	expected := []float32{10, 20, 30, 40}
	for i, want := range expected {
		if got := buf.At(i); got != want {
			t.Errorf("buf[%d] = %f, expected %f", i, got, want)
		}
	}
}

func TestLoadScaleFactor(t *testing.T) {
	img := grayImage([][]uint8{{10, 20}, {30, 40}})
	buf := tensor.New("data", tensor.F32, 1, 1, 2, 2)

	Load(img, buf, 2.0, 0)

	expected := []float32{20, 40, 60, 80}
	for i, want := range expected {
		if got := buf.At(i); got != want {
			t.Errorf("buf[%d] = %f, expected %f", i, got, want)
		}
	}
}

func TestLoadResizeUniform(t *testing.T) {
	img := grayImage([][]uint8{
		{100, 100, 100, 100},
		{100, 100, 100, 100},
		{100, 100, 100, 100},
		{100, 100, 100, 100},
	})
	buf := tensor.New("data", tensor.F32, 1, 1, 2, 2)

	Load(img, buf, 1.0, 0)

	for i := 0; i < 4; i++ {
		got := buf.At(i)
		if got < 98 || got > 102 {
			t.Errorf("buf[%d] = %f, expected ~100 after resampling", i, got)
		}
	}
}

func TestLoadBatchOffsetAndChannels(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 1, 1))
	img.Set(0, 0, color.RGBA{R: 11, G: 22, B: 33, A: 255})
	buf := tensor.New("data", tensor.F32, 2, 3, 1, 1)

	Load(img, buf, 1.0, 1)

	// Slot 0 untouched.
	for i := 0; i < 3; i++ {
		if buf.At(i) != 0 {
			t.Errorf("slot 0 buf[%d] = %f, expected 0", i, buf.At(i))
		}
	}
	// Slot 1 holds the planar channels.
	want := []float32{11, 22, 33}
	for c, v := range want {
		if got := buf.At(3 + c); got != v {
			t.Errorf("slot 1 channel %d = %f, expected %f", c, got, v)
		}
	}
}

func TestLoadSubImageOffsetBounds(t *testing.T) {
	full := image.NewGray(image.Rect(0, 0, 4, 4))
	full.SetGray(2, 2, color.Gray{Y: 50})
	full.SetGray(3, 2, color.Gray{Y: 60})
	full.SetGray(2, 3, color.Gray{Y: 70})
	full.SetGray(3, 3, color.Gray{Y: 80})
	crop := full.SubImage(image.Rect(2, 2, 4, 4))

	buf := tensor.New("data", tensor.F32, 1, 1, 2, 2)
	Load(crop, buf, 1.0, 0)

	expected := []float32{50, 60, 70, 80}
	for i, want := range expected {
		if got := buf.At(i); got != want {
			t.Errorf("buf[%d] = %f, expected %f", i, got, want)
		}
	}
}

func TestLoadElementTruncation(t *testing.T) {
	img := grayImage([][]uint8{{100}})
	buf := tensor.New("data", tensor.U8, 1, 1, 1, 1)

	Load(img, buf, 0.5, 0)

	if got := buf.At(0); got != 50 {
		t.Errorf("u8 buf[0] = %f, expected 50", got)
	}
}

func TestLoadBadBatchIndexPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for out-of-range batch index")
		}
	}()
	Load(grayImage([][]uint8{{1}}), tensor.New("data", tensor.F32, 1, 1, 1, 1), 1.0, 1)
}
