package xproto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestHeaderRoundTrip(t *testing.T) {
	// Testable property 1: for all (total, seq) with 1 <= seq <= total <= 4095,
	// decode(encode(h)) == h.
	rapid.Check(t, func(t *rapid.T) {
		total := rapid.Uint16Range(1, MaxChunksPerTransfer).Draw(t, "total")
		seq := rapid.Uint16Range(1, total).Draw(t, "seq")
		h := Header{Total: total, Seq: seq}

		got := DecodeHeader(h.Encode())
		assert.Equal(t, h, got)
		require.NoError(t, got.Validate())
	})
}

func TestHeaderValidate(t *testing.T) {
	assert.NoError(t, Header{Total: 1, Seq: 1}.Validate())
	assert.NoError(t, Header{Total: 4095, Seq: 4095}.Validate())
	assert.ErrorIs(t, Header{Total: 0, Seq: 0}.Validate(), ErrInvalidHeader)
	assert.ErrorIs(t, Header{Total: 5, Seq: 6}.Validate(), ErrInvalidHeader)
	assert.ErrorIs(t, Header{Total: 4096, Seq: 1}.Validate(), ErrInvalidHeader)
}

func TestIsStartMagic(t *testing.T) {
	assert.True(t, IsStartMagic([]byte{0xFF, 0xFF, 0x00, 0x01}))
	assert.True(t, IsStartMagic([]byte{0xFF, 0xFF, 0x00, 0x01, 0x99, 0x99})) // trailing bytes tolerated
	assert.False(t, IsStartMagic([]byte{0xFF, 0xFF, 0x00}))                 // too short
	assert.False(t, IsStartMagic([]byte{0xFF, 0xFF, 0x00, 0x02}))
}

func TestIsAck(t *testing.T) {
	assert.True(t, IsAck([]byte{0xFF, 0xFF}))
	assert.True(t, IsAck([]byte{0xFF, 0xFF, 0x00, 0x01})) // the START frame also satisfies the looser ACK check
	assert.False(t, IsAck([]byte{0xFF}))
	assert.False(t, IsAck([]byte{0x00, 0xFF}))
}

func TestDataChunkSize(t *testing.T) {
	assert.Equal(t, 44, DataChunkSize(50))
	assert.Equal(t, 1, DataChunkSize(7))
	assert.Equal(t, 1, DataChunkSize(0)) // floored at 1 even for nonsensical MTU
	assert.Equal(t, 511, DataChunkSize(517))
}

func TestChunksNeeded(t *testing.T) {
	assert.Equal(t, 0, ChunksNeeded(0, 50))
	assert.Equal(t, 1, ChunksNeeded(17, 50))  // S1
	assert.Equal(t, 3, ChunksNeeded(52, 30))  // S2
	assert.Equal(t, 1, ChunksNeeded(40, 50))  // S3
	assert.Equal(t, 3, ChunksNeeded(49, 30)) // S4
}

func TestLossListRoundTrip(t *testing.T) {
	// Testable property 3: for any sequence of u16s that fits, decode(encode(seqs))
	// returns the same seqs in order.
	rapid.Check(t, func(t *rapid.T) {
		seqs := rapid.SliceOfN(rapid.Uint16(), 0, 200).Draw(t, "seqs")

		buf := make([]byte, len(seqs)*2)
		wire := EncodeLossList(seqs, buf)
		assert.Equal(t, len(seqs)*2, len(wire))

		out := make([]uint16, len(seqs))
		n := DecodeLossList(wire, out)
		assert.Equal(t, seqs, out[:n])
	})
}

func TestLossListTruncation(t *testing.T) {
	seqs := []uint16{1, 2, 3, 4, 5}
	buf := make([]byte, 7) // room for 3 full u16s, one odd trailing byte
	wire := EncodeLossList(seqs, buf)
	assert.Equal(t, []byte{0, 1, 0, 2, 0, 3}, wire, "truncates to whole u16 entries")
}
