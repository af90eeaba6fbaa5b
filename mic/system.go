package mic

// GainConfig holds a gain, in dB, per TDM channel slot.
type GainConfig struct {
	ChannelGainDB [ChannelCount]float32
}

// SystemConfig bundles everything AudioSystem needs to bring a board's
// audio front-end up.
type SystemConfig struct {
	Channels Config
	Aec      AecConfig
	Gains    GainConfig
}

// AudioSystem is the board-level owner of the capture pipeline plus the
// codec's gain control, the layer above Mic that a board-bringup file
// would own.
type AudioSystem struct {
	mic *Mic
	adc Adc
}

// NewAudioSystem brings up the Mic pipeline and applies configured
// per-channel gain to the codec. A gain-set failure is logged and does
// not prevent the system from starting - it's not one of the failure
// modes spec'd for the capture path itself.
func NewAudioSystem(i2s I2s, adc Adc, aecFactory AecFactory, cfg SystemConfig) (*AudioSystem, error) {
	m, err := Init(i2s, cfg.Channels, cfg.Aec, aecFactory)
	if err != nil {
		return nil, err
	}

	as := &AudioSystem{mic: m, adc: adc}
	if adc != nil {
		count := adc.ChannelCount()
		for ch := 0; ch < count && ch < ChannelCount; ch++ {
			g := GainFromDB(cfg.Gains.ChannelGainDB[ch])
			if err := adc.SetChannelGain(ch, g); err != nil {
				micLog.Warn("failed to set channel gain", "channel", ch, "err", err)
			}
		}
	}
	return as, nil
}

// SetChannelGain is a direct pass-through to the codec, validating the
// channel index against the codec's reported channel count.
func (as *AudioSystem) SetChannelGain(ch int, db float32) error {
	if as.adc == nil {
		return ErrInvalidChannel
	}
	if ch < 0 || ch >= as.adc.ChannelCount() {
		return ErrInvalidChannel
	}
	return as.adc.SetChannelGain(ch, GainFromDB(db))
}

// Start enables capture.
func (as *AudioSystem) Start() error { return as.mic.Start() }

// Stop disables capture.
func (as *AudioSystem) Stop() error { return as.mic.Stop() }

// Read delivers processed mono audio; see Mic.Read.
func (as *AudioSystem) Read(out []int16) (int, error) { return as.mic.Read(out) }

// EnableAecAtRuntime enables AEC on a system that didn't request it at
// construction time.
func (as *AudioSystem) EnableAecAtRuntime() error { return as.mic.EnableAecAtRuntime() }

// HasAec reports whether AEC is currently active.
func (as *AudioSystem) HasAec() bool { return as.mic.HasAec() }

// Deinit tears the system down.
func (as *AudioSystem) Deinit() error { return as.mic.Deinit() }
