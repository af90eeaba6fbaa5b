package mic

// I2s is the raw capture collaborator: a TDM/I2S peripheral delivering
// 8-byte stereo frames (two 32-bit words, L then R), each packing two
// 16-bit channels as described in the package doc.
type I2s interface {
	Read(buf []byte) (int, error)
	EnableRx() error
	DisableRx() error
	BitsPerSample() int
}

// Gain is an opaque codec gain setting, constructed from a dB value.
type Gain struct {
	db float32
}

// GainFromDB builds a Gain from a decibel value.
func GainFromDB(db float32) Gain { return Gain{db: db} }

// DB returns the gain's decibel value.
func (g Gain) DB() float32 { return g.db }

// Adc is the codec gain-control collaborator.
type Adc interface {
	SetChannelGain(ch int, g Gain) error
	ChannelCount() int
	MaxGainDB() float32
}

// Aec is an opaque, already-constructed AEC engine handle.
type Aec interface {
	// Process consumes up to one chunk's worth of interleaved input
	// samples (fewer after a short I2S read; len(in)/2 frames in all)
	// and writes mono output to out, returning the number of
	// samples written. A return <= 0 signals the caller to stop this
	// read's inner loop without treating it as a hard error.
	Process(in []int16, out []int16) int
	// ChunkSizeSamples is the number of mono frames this engine consumes
	// per Process call.
	ChunkSizeSamples() int
	Destroy()
}

// AecFactory constructs an Aec engine. format, filterLength, mode, and
// perf are fixed at construction time and never change afterward.
type AecFactory func(format Format, filterLength int, mode AecMode, perf PerfMode) (Aec, error)
