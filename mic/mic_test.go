package mic

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeI2s replays a scripted sequence of stereo frames. Each Read call
// returns as many whole frames as fit in buf, fewer when the script runs
// short, or 0 once exhausted.
type fakeI2s struct {
	frames   []stereoFrame // L,R pairs in playback order
	pos      int
	rxCount  int
	disabled int
	readErr  error
}

func newFakeI2s(frames []stereoFrame) *fakeI2s {
	return &fakeI2s{frames: frames}
}

func (f *fakeI2s) Read(buf []byte) (int, error) {
	if f.readErr != nil {
		return 0, f.readErr
	}
	n := len(buf) / frameBytes
	written := 0
	for written < n && f.pos < len(frames(f)) {
		fr := f.frames[f.pos]
		binary.LittleEndian.PutUint32(buf[written*frameBytes:], uint32(fr.L))
		binary.LittleEndian.PutUint32(buf[written*frameBytes+4:], uint32(fr.R))
		f.pos++
		written++
	}
	return written * frameBytes, nil
}

func frames(f *fakeI2s) []stereoFrame { return f.frames }

func (f *fakeI2s) EnableRx() error  { f.rxCount++; return nil }
func (f *fakeI2s) DisableRx() error { f.disabled++; return nil }
func (f *fakeI2s) BitsPerSample() int { return 32 }

// fakeAec is a deterministic stand-in: one mono sample per input frame,
// equal to the "mic" half of the pair (found per its stored format).
type fakeAec struct {
	format    Format
	chunk     int
	destroyed bool
	failNext  bool
}

func (a *fakeAec) Process(in []int16, out []int16) int {
	if a.failNext {
		return 0
	}
	n := len(in) / 2
	for i := 0; i < n; i++ {
		var mic int16
		if a.format == FormatRM {
			mic = in[i*2+1]
		} else {
			mic = in[i*2]
		}
		out[i] = mic
	}
	return n
}

func (a *fakeAec) ChunkSizeSamples() int { return a.chunk }
func (a *fakeAec) Destroy()              { a.destroyed = true }

func fakeAecFactory(chunk int, shouldFail bool) AecFactory {
	return func(format Format, filterLength int, mode AecMode, perf PerfMode) (Aec, error) {
		if shouldFail {
			return nil, errors.New("engine unavailable")
		}
		return &fakeAec{format: format, chunk: chunk}, nil
	}
}

func mkFrame(mic, ref int16) stereoFrame {
	return stereoFrame{L: int32(mic)<<16 | int32(uint16(ref)), R: 0}
}

func TestMicWithAecPassesMonoThrough(t *testing.T) {
	frames := []stereoFrame{mkFrame(100, 1), mkFrame(101, 2), mkFrame(102, 3), mkFrame(103, 4)}
	i2s := newFakeI2s(frames)

	cfg := Config{Channels: [ChannelCount]ChannelRole{Voice, AecReference, Disabled, Disabled}}
	aecCfg := AecConfig{Enabled: true, Format: FormatMR, FilterLength: 4, Mode: SpeechRecognition, PerfMode: LowCost}

	m, err := Init(i2s, cfg, aecCfg, fakeAecFactory(4, false))
	require.NoError(t, err)
	require.True(t, m.HasAec())

	out := make([]int16, 4)
	n, err := m.Read(out)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, []int16{100, 101, 102, 103}, out)
	assert.Equal(t, 1, i2s.rxCount, "Read auto-starts capture")
}

func TestMicWithoutAecVoiceOnly(t *testing.T) {
	frames := []stereoFrame{
		{L: int32(10) << 16, R: int32(20) << 16},
		{L: int32(11) << 16, R: int32(21) << 16},
	}
	i2s := newFakeI2s(frames)

	cfg := Config{Channels: [ChannelCount]ChannelRole{Voice, Disabled, Voice, Disabled}}
	m, err := Init(i2s, cfg, AecConfig{Enabled: false}, nil)
	require.NoError(t, err)
	require.False(t, m.HasAec())

	out := make([]int16, 4)
	n, err := m.Read(out)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, []int16{10, 20, 11, 21}, out)
}

func TestMicNoVoiceChannelsErrors(t *testing.T) {
	i2s := newFakeI2s(nil)
	cfg := Config{Channels: [ChannelCount]ChannelRole{Disabled, Disabled, Disabled, Disabled}}
	m, err := Init(i2s, cfg, AecConfig{Enabled: false}, nil)
	require.NoError(t, err)

	out := make([]int16, 4)
	_, err = m.Read(out)
	assert.ErrorIs(t, err, ErrNoVoiceChannels)
}

func TestMicAecCreateFailureFallsBackToVoiceOnly(t *testing.T) {
	frames := []stereoFrame{{L: int32(5) << 16, R: 0}}
	i2s := newFakeI2s(frames)

	cfg := Config{Channels: [ChannelCount]ChannelRole{Voice, AecReference, Disabled, Disabled}}
	aecCfg := AecConfig{Enabled: true, Format: FormatMR}
	m, err := Init(i2s, cfg, aecCfg, fakeAecFactory(4, true))
	require.NoError(t, err, "AEC construction failure at Init is non-fatal")
	assert.False(t, m.HasAec())

	out := make([]int16, 1)
	n, err := m.Read(out)
	require.NoError(t, err)
	assert.Equal(t, []int16{5}, out[:n])
}

func TestMicEnableAecAtRuntimeRequiresRefChannel(t *testing.T) {
	i2s := newFakeI2s(nil)
	cfg := Config{Channels: [ChannelCount]ChannelRole{Voice, Disabled, Disabled, Disabled}}
	m, err := Init(i2s, cfg, AecConfig{Enabled: false}, fakeAecFactory(4, false))
	require.NoError(t, err)

	err = m.EnableAecAtRuntime()
	assert.ErrorIs(t, err, ErrNoRefChannel)
}

func TestMicEnableAecAtRuntimeSucceeds(t *testing.T) {
	i2s := newFakeI2s(nil)
	cfg := Config{Channels: [ChannelCount]ChannelRole{Voice, AecReference, Disabled, Disabled}}
	m, err := Init(i2s, cfg, AecConfig{Enabled: false, Format: FormatMR}, fakeAecFactory(4, false))
	require.NoError(t, err)
	require.False(t, m.HasAec())

	require.NoError(t, m.EnableAecAtRuntime())
	assert.True(t, m.HasAec())
}

func TestMicReadNotInitializedAfterDeinit(t *testing.T) {
	i2s := newFakeI2s(nil)
	cfg := Config{Channels: [ChannelCount]ChannelRole{Voice, Disabled, Disabled, Disabled}}
	m, err := Init(i2s, cfg, AecConfig{Enabled: false}, nil)
	require.NoError(t, err)

	require.NoError(t, m.Deinit())
	_, err = m.Read(make([]int16, 1))
	assert.ErrorIs(t, err, ErrNotInitialized)
}

func TestMicDeinitIdempotent(t *testing.T) {
	i2s := newFakeI2s(nil)
	cfg := Config{Channels: [ChannelCount]ChannelRole{Voice, AecReference, Disabled, Disabled}}
	m, err := Init(i2s, cfg, AecConfig{Enabled: true, Format: FormatMR}, fakeAecFactory(4, false))
	require.NoError(t, err)
	require.NoError(t, m.Start())

	require.NoError(t, m.Deinit())
	require.NoError(t, m.Deinit()) // safe to call twice
	assert.Equal(t, 1, i2s.disabled)
}

func TestMicStartStopIdempotent(t *testing.T) {
	i2s := newFakeI2s(nil)
	cfg := Config{Channels: [ChannelCount]ChannelRole{Voice, Disabled, Disabled, Disabled}}
	m, err := Init(i2s, cfg, AecConfig{Enabled: false}, nil)
	require.NoError(t, err)

	require.NoError(t, m.Start())
	require.NoError(t, m.Start())
	assert.Equal(t, 1, i2s.rxCount)

	require.NoError(t, m.Stop())
	require.NoError(t, m.Stop())
	assert.Equal(t, 1, i2s.disabled)
}

func TestMicAecProcessZeroSamplesEndsReadEarly(t *testing.T) {
	frames := []stereoFrame{mkFrame(1, 1), mkFrame(2, 2)}
	i2s := newFakeI2s(frames)
	cfg := Config{Channels: [ChannelCount]ChannelRole{Voice, AecReference, Disabled, Disabled}}
	aecCfg := AecConfig{Enabled: true, Format: FormatMR}

	failFactory := func(format Format, filterLength int, mode AecMode, perf PerfMode) (Aec, error) {
		return &fakeAec{format: format, chunk: 2, failNext: true}, nil
	}
	m, err := Init(i2s, cfg, aecCfg, failFactory)
	require.NoError(t, err)

	out := make([]int16, 4)
	n, err := m.Read(out)
	require.NoError(t, err, "AEC returning <= 0 samples is not a hard error")
	assert.Equal(t, 0, n)
}
