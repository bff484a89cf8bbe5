package tensor

import "testing"

func TestBufferPutAt(t *testing.T) {
	b := New("data", F32, 1, 1, 2, 2)

	if b.Len() != 4 {
		t.Fatalf("Len = %d, expected 4", b.Len())
	}

	b.Put(2, 30.5)
	if got := b.At(2); got != 30.5 {
		t.Errorf("At(2) = %f, expected 30.5", got)
	}
}

func TestBufferIntegerTruncation(t *testing.T) {
	u8 := New("data", U8, 4)
	u8.Put(0, 200.9)
	if got := u8.At(0); got != 200 {
		t.Errorf("u8 At(0) = %f, expected 200", got)
	}

	i16 := New("data", I16, 4)
	i16.Put(0, -3.7)
	if got := i16.At(0); got != -3 {
		t.Errorf("i16 At(0) = %f, expected -3", got)
	}
}

func TestBufferNCHW(t *testing.T) {
	b := New("data", F32, 2, 3, 24, 94)
	n, c, h, w := b.NCHW()
	if n != 2 || c != 3 || h != 24 || w != 94 {
		t.Errorf("NCHW = (%d,%d,%d,%d), expected (2,3,24,94)", n, c, h, w)
	}
}

func TestBufferNCHWPanicsOnWrongRank(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for rank-2 buffer")
		}
	}()
	New("seq", F32, 88, 1).NCHW()
}

func TestBufferBadShapePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for non-positive dimension")
		}
	}()
	New("data", F32, 1, 0, 2)
}

func TestWrapFloat32SharesStorage(t *testing.T) {
	backing := make([]float32, 6)
	b := WrapFloat32("data", backing, 1, 2, 3)

	b.Put(4, 7)
	if backing[4] != 7 {
		t.Errorf("backing[4] = %f, expected 7 (write did not reach wrapped storage)", backing[4])
	}
	if b.Float32s()[4] != 7 {
		t.Errorf("Float32s()[4] = %f, expected 7", b.Float32s()[4])
	}
}

func TestWrapLengthMismatchPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for storage/shape mismatch")
		}
	}()
	WrapUint8("data", make([]uint8, 5), 2, 3)
}

func TestFill(t *testing.T) {
	b := New("seq", F32, 4)
	b.Fill(1)
	for i := 0; i < 4; i++ {
		if b.At(i) != 1 {
			t.Fatalf("At(%d) = %f after Fill(1)", i, b.At(i))
		}
	}
}
