package mic

import (
	"encoding/binary"
	"unsafe"
)

// frameBytes is the size in bytes of one stereo I2S frame: two 32-bit
// words, L then R.
const frameBytes = 8

// stereoFrame is one 8-byte I2S frame decoded into its two 32-bit words.
type stereoFrame struct {
	L int32
	R int32
}

// decodeFrame parses one 8-byte little-endian stereo frame (the ESP32 I2S
// DMA byte order for this peripheral).
func decodeFrame(b []byte) stereoFrame {
	return stereoFrame{
		L: int32(binary.LittleEndian.Uint32(b[0:4])),
		R: int32(binary.LittleEndian.Uint32(b[4:8])),
	}
}

// highHalf extracts the high 16 bits of a 32-bit sample as a signed
// sample: an arithmetic right shift, matching a second microphone or
// voice channel packed into the upper half of the word.
func highHalf(x int32) int16 {
	return int16(x >> 16)
}

// lowHalf extracts the low 16 bits of a 32-bit sample, reinterpreting the
// bit pattern as signed: the AEC reference or a companion voice channel
// packed into the lower half of the word.
func lowHalf(x int32) int16 {
	return int16(uint32(x) & 0xFFFF)
}

// interleave writes mic/ref pairs into dst in the order format specifies.
// dst must have room for 2 samples per frame.
func interleave(format Format, mic, ref int16, dst []int16) {
	if format == FormatRM {
		dst[0], dst[1] = ref, mic
	} else {
		dst[0], dst[1] = mic, ref
	}
}

// alignedInt16Buffer returns a slice of n int16s whose backing address is
// 16-byte aligned, satisfying the AEC output buffer's DMA-friendly
// alignment invariant. The slice over-allocates enough slack to find an
// aligned starting element.
func alignedInt16Buffer(n int) []int16 {
	const align = 16
	raw := make([]int16, n+align/2)
	addr := uintptr(unsafe.Pointer(&raw[0]))
	pad := (align - int(addr%align)) % align
	offset := pad / 2
	return raw[offset : offset+n]
}
