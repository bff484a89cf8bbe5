// Package tensor provides named, fixed-shape buffers used as network
// inputs and outputs. Element types are carried as an explicit tag and
// the typed accessors branch on it, so callers never need to know the
// concrete numeric type of the memory they are filling.
package tensor

import "fmt"

// ElemType identifies the numeric element type of a Buffer.
type ElemType uint8

const (
	// U8 is an unsigned 8-bit element.
	U8 ElemType = iota
	// I16 is a signed 16-bit element.
	I16
	// F32 is a 32-bit float element.
	F32
)

func (e ElemType) String() string {
	switch e {
	case U8:
		return "u8"
	case I16:
		return "i16"
	case F32:
		return "f32"
	default:
		return fmt.Sprintf("elemtype(%d)", uint8(e))
	}
}

// Buffer is a named tensor buffer. The shape is fixed at construction;
// for image inputs it is NCHW. Storage may be owned by the buffer or
// wrapped around externally owned memory (e.g. a runtime-bound tensor),
// in which case writes land directly in the external memory.
type Buffer struct {
	name  string
	elem  ElemType
	shape []int

	u8  []uint8
	i16 []int16
	f32 []float32
}

// New allocates a buffer with its own storage. It panics if the shape
// has no dimensions or a non-positive dimension; buffer shapes come
// from model descriptors and a malformed one is a programming error.
func New(name string, elem ElemType, shape ...int) *Buffer {
	n := checkShape(name, shape)
	b := &Buffer{name: name, elem: elem, shape: append([]int(nil), shape...)}
	switch elem {
	case U8:
		b.u8 = make([]uint8, n)
	case I16:
		b.i16 = make([]int16, n)
	case F32:
		b.f32 = make([]float32, n)
	default:
		panic(fmt.Sprintf("tensor %q: unknown element type %v", name, elem))
	}
	return b
}

// WrapFloat32 builds an F32 buffer around externally owned storage.
// len(data) must equal the shape's element count.
func WrapFloat32(name string, data []float32, shape ...int) *Buffer {
	n := checkShape(name, shape)
	if len(data) != n {
		panic(fmt.Sprintf("tensor %q: storage holds %d elements, shape wants %d", name, len(data), n))
	}
	return &Buffer{name: name, elem: F32, shape: append([]int(nil), shape...), f32: data}
}

// WrapUint8 builds a U8 buffer around externally owned storage.
func WrapUint8(name string, data []uint8, shape ...int) *Buffer {
	n := checkShape(name, shape)
	if len(data) != n {
		panic(fmt.Sprintf("tensor %q: storage holds %d elements, shape wants %d", name, len(data), n))
	}
	return &Buffer{name: name, elem: U8, shape: append([]int(nil), shape...), u8: data}
}

func checkShape(name string, shape []int) int {
	if len(shape) == 0 {
		panic(fmt.Sprintf("tensor %q: empty shape", name))
	}
	n := 1
	for _, d := range shape {
		if d <= 0 {
			panic(fmt.Sprintf("tensor %q: non-positive dimension in shape %v", name, shape))
		}
		n *= d
	}
	return n
}

// Name returns the tensor name the buffer is registered under.
func (b *Buffer) Name() string { return b.name }

// Elem returns the element-type tag.
func (b *Buffer) Elem() ElemType { return b.elem }

// Shape returns a copy of the buffer shape.
func (b *Buffer) Shape() []int { return append([]int(nil), b.shape...) }

// Len returns the total element count.
func (b *Buffer) Len() int {
	n := 1
	for _, d := range b.shape {
		n *= d
	}
	return n
}

// NCHW returns the batch, channel, height and width dimensions. It
// panics unless the buffer is rank 4.
func (b *Buffer) NCHW() (n, c, h, w int) {
	if len(b.shape) != 4 {
		panic(fmt.Sprintf("tensor %q: NCHW on rank-%d shape %v", b.name, len(b.shape), b.shape))
	}
	return b.shape[0], b.shape[1], b.shape[2], b.shape[3]
}

// Put writes v at flat index i, converting to the element type.
// Integer targets truncate toward zero, matching a plain numeric cast.
func (b *Buffer) Put(i int, v float32) {
	switch b.elem {
	case U8:
		b.u8[i] = uint8(v)
	case I16:
		b.i16[i] = int16(v)
	case F32:
		b.f32[i] = v
	}
}

// At reads the element at flat index i as a float32.
func (b *Buffer) At(i int) float32 {
	switch b.elem {
	case U8:
		return float32(b.u8[i])
	case I16:
		return float32(b.i16[i])
	case F32:
		return b.f32[i]
	}
	panic(fmt.Sprintf("tensor %q: unknown element type %v", b.name, b.elem))
}

// Fill sets every element to v.
func (b *Buffer) Fill(v float32) {
	for i, n := 0, b.Len(); i < n; i++ {
		b.Put(i, v)
	}
}

// Float32s returns the underlying float32 storage, or nil for other
// element types. Used to hand the raw slice to a runtime binding.
func (b *Buffer) Float32s() []float32 { return b.f32 }

// Uint8s returns the underlying uint8 storage, or nil for other
// element types.
func (b *Buffer) Uint8s() []uint8 { return b.u8 }
