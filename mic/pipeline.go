package mic

import "github.com/doismellburning/samoyed-hal/internal/logx"

var micLog = logx.For("mic")

// Mic is the real-time capture pipeline: one I2S peripheral, an optional
// AEC engine, and the buffers needed to carry frames between them.
type Mic struct {
	i2s I2s
	cfg Config

	aecCfg     AecConfig
	aecFactory AecFactory
	aec        Aec
	aecOutBuf  []int16

	voiceChannelMask uint8
	refChannel       uint8
	hasRefChannel    bool

	initialized bool
	started     bool

	rawBuf         []byte
	interleaveBuf  []int16
}

// Init analyzes cfg to derive the voice-channel mask and reference
// channel, then - if aecCfg.Enabled and a reference channel is configured
// - attempts to construct the AEC engine. A construction failure is
// logged and treated as non-fatal: the pipeline still delivers voice-only
// audio through the without-AEC path.
func Init(i2s I2s, cfg Config, aecCfg AecConfig, aecFactory AecFactory) (*Mic, error) {
	m := &Mic{
		i2s:        i2s,
		cfg:        cfg,
		aecCfg:     aecCfg,
		aecFactory: aecFactory,
	}

	for ch, role := range cfg.Channels {
		switch role {
		case Voice:
			m.voiceChannelMask |= 1 << uint(ch)
		case AecReference:
			if !m.hasRefChannel {
				m.refChannel = uint8(ch)
				m.hasRefChannel = true
			}
		}
	}

	if aecCfg.Enabled && m.hasRefChannel {
		aec, err := aecFactory(aecCfg.Format, aecCfg.FilterLength, aecCfg.Mode, aecCfg.PerfMode)
		if err != nil {
			micLog.Warn("AEC engine creation failed, continuing voice-only", "err", err)
		} else {
			m.aec = aec
			m.aecOutBuf = alignedInt16Buffer(aec.ChunkSizeSamples())
		}
	}

	m.initialized = true
	return m, nil
}

// Start enables I2S RX. Idempotent.
func (m *Mic) Start() error {
	if m.started {
		return nil
	}
	if err := m.i2s.EnableRx(); err != nil {
		return err
	}
	m.started = true
	return nil
}

// Stop disables I2S RX. Idempotent.
func (m *Mic) Stop() error {
	if !m.started {
		return nil
	}
	if err := m.i2s.DisableRx(); err != nil {
		return err
	}
	m.started = false
	return nil
}

// HasAec reports whether the AEC engine is currently active.
func (m *Mic) HasAec() bool { return m.aec != nil }

// EnableAecAtRuntime constructs the AEC engine using the format and
// parameters fixed at construction time. It only succeeds if a reference
// channel is configured.
func (m *Mic) EnableAecAtRuntime() error {
	if !m.hasRefChannel {
		return ErrNoRefChannel
	}
	if m.aec != nil {
		return nil
	}
	aec, err := m.aecFactory(m.aecCfg.Format, m.aecCfg.FilterLength, m.aecCfg.Mode, m.aecCfg.PerfMode)
	if err != nil {
		return ErrAecCreateFailed
	}
	m.aec = aec
	m.aecOutBuf = alignedInt16Buffer(aec.ChunkSizeSamples())
	return nil
}

// Deinit stops capture if started, then frees the AEC engine and the
// aligned output buffer, in that order. Safe to call more than once.
func (m *Mic) Deinit() error {
	if !m.initialized {
		return nil
	}
	if err := m.Stop(); err != nil {
		return err
	}
	if m.aec != nil {
		m.aec.Destroy()
		m.aec = nil
	}
	m.aecOutBuf = nil
	m.initialized = false
	return nil
}

// Read fills out with processed mono audio, auto-starting capture on
// first use. With an active AEC engine it repeatedly pulls one engine
// chunk of raw frames, routes them into the engine in the configured
// interleave order, and copies the mono result into out. Without one, it
// emits the configured voice channels directly, frame by frame.
func (m *Mic) Read(out []int16) (int, error) {
	if !m.initialized {
		return 0, ErrNotInitialized
	}
	if !m.started {
		if err := m.Start(); err != nil {
			return 0, err
		}
	}

	if m.aec != nil {
		return m.readWithAec(out)
	}
	return m.readWithoutAec(out)
}

func (m *Mic) readWithAec(out []int16) (int, error) {
	chunk := m.aec.ChunkSizeSamples()
	need := chunk * frameBytes
	if len(m.rawBuf) < need {
		m.rawBuf = make([]byte, need)
	}
	if len(m.interleaveBuf) < chunk*2 {
		m.interleaveBuf = make([]int16, chunk*2)
	}

	copied := 0
	for copied < len(out) {
		n, err := m.i2s.Read(m.rawBuf[:need])
		if err != nil {
			return copied, err
		}
		if n < frameBytes {
			break // zero bytes, or fewer than one frame: stop early.
		}

		framesRead := n / frameBytes
		for i := 0; i < framesRead; i++ {
			f := decodeFrame(m.rawBuf[i*frameBytes : (i+1)*frameBytes])
			mic := highHalf(f.L)
			ref := lowHalf(f.L)
			interleave(m.aecCfg.Format, mic, ref, m.interleaveBuf[i*2:i*2+2])
		}

		n2 := m.aec.Process(m.interleaveBuf[:framesRead*2], m.aecOutBuf[:chunk])
		if n2 <= 0 {
			micLog.Warn("AEC process returned no samples, ending read early", "n", n2)
			break
		}

		toCopy := n2
		if remaining := len(out) - copied; toCopy > remaining {
			toCopy = remaining
		}
		copy(out[copied:copied+toCopy], m.aecOutBuf[:toCopy])
		copied += toCopy

		if framesRead < chunk {
			break // short I2S read; don't spin re-requesting a partial chunk.
		}
	}
	return copied, nil
}

func (m *Mic) readWithoutAec(out []int16) (int, error) {
	if m.voiceChannelMask == 0 {
		return 0, ErrNoVoiceChannels
	}

	var frame [frameBytes]byte
	copied := 0
	for copied < len(out) {
		n, err := m.i2s.Read(frame[:])
		if err != nil {
			return copied, err
		}
		if n < frameBytes {
			break
		}
		f := decodeFrame(frame[:])

		if m.voiceChannelMask&0x1 != 0 {
			if copied >= len(out) {
				break
			}
			out[copied] = highHalf(f.L)
			copied++
		}
		if m.voiceChannelMask&0x4 != 0 {
			if copied >= len(out) {
				break
			}
			out[copied] = highHalf(f.R)
			copied++
		}
	}
	return copied, nil
}

// VoiceChannelMask reports which TDM slots are configured as Voice.
func (m *Mic) VoiceChannelMask() uint8 { return m.voiceChannelMask }

// RefChannel reports the first TDM slot configured as AecReference, if any.
func (m *Mic) RefChannel() (uint8, bool) { return m.refChannel, m.hasRefChannel }
