package xproto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestBitmaskCompleteness(t *testing.T) {
	// Testable property 2: after init_clear + setting every seq in [1, total],
	// is_complete == true. Clearing any single bit returns false. Unused high
	// bits of the last byte never affect the verdict.
	rapid.Check(t, func(t *rapid.T) {
		total := rapid.Uint16Range(1, MaxChunksPerTransfer).Draw(t, "total")

		var m Bitmask
		m.InitClear(total)
		assert.False(t, m.IsComplete())

		for seq := uint16(1); seq <= total; seq++ {
			m.Set(seq)
		}
		assert.True(t, m.IsComplete())

		victim := rapid.Uint16Range(1, total).Draw(t, "victim")
		m.Clear(victim)
		assert.False(t, m.IsComplete())
		m.Set(victim)
		assert.True(t, m.IsComplete())
	})
}

func TestBitmaskInitAllSetClearsUnusedHighBits(t *testing.T) {
	var m Bitmask
	m.InitAllSet(3) // needs 1 byte, only 3 bits meaningful
	assert.Equal(t, byte(0b0000_0111), m.bytes[0])
	assert.True(t, m.IsComplete())
}

func TestBitmaskCollectMissing(t *testing.T) {
	var m Bitmask
	m.InitClear(5)
	m.Set(1)
	m.Set(3)
	m.Set(5)

	out := make([]uint16, 5)
	n := m.CollectMissing(out)
	assert.Equal(t, []uint16{2, 4}, out[:n])
}

func TestBitmaskSetClearOutOfRangeIgnored(t *testing.T) {
	var m Bitmask
	m.InitClear(4)
	m.Set(0)
	m.Set(5)
	assert.False(t, m.IsSet(0))
	assert.False(t, m.IsSet(5))
	assert.False(t, m.IsComplete())
}
