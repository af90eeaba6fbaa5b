package mic

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
)

func TestHighLowHalf(t *testing.T) {
	// 0x0001FFFE: high16 = 0x0001 (arithmetic shift, positive), low16 = 0xFFFE (-2 as int16)
	x := int32(0x0001FFFE)
	assert.Equal(t, int16(0x0001), highHalf(x))
	assert.Equal(t, int16(-2), lowHalf(x))
}

func TestHighHalfArithmeticShift(t *testing.T) {
	// A negative 32-bit value must shift in sign bits, not zeros.
	x := int32(-1) // 0xFFFFFFFF
	assert.Equal(t, int16(-1), highHalf(x))
	assert.Equal(t, int16(-1), lowHalf(x))
}

func TestInterleaveFormats(t *testing.T) {
	dst := make([]int16, 2)
	interleave(FormatMR, 11, 22, dst)
	assert.Equal(t, []int16{11, 22}, dst)

	interleave(FormatRM, 11, 22, dst)
	assert.Equal(t, []int16{22, 11}, dst)
}

func TestAlignedInt16Buffer(t *testing.T) {
	buf := alignedInt16Buffer(100)
	assert.Len(t, buf, 100)
	addr := uintptr(unsafe.Pointer(&buf[0]))
	assert.Zero(t, addr%16, "buffer must start 16-byte aligned")
}

func TestDecodeFrameLittleEndian(t *testing.T) {
	b := []byte{0x02, 0x00, 0x00, 0x00, 0x03, 0x00, 0x00, 0x00}
	f := decodeFrame(b)
	assert.Equal(t, int32(2), f.L)
	assert.Equal(t, int32(3), f.R)
}
