// Command mic-monitor captures audio via AudioSystem, against a host sound
// card through hostsim/i2s, and reports peak levels per block. With --aec it
// also routes a reference channel through a mock echo-cancellation engine,
// and with --out it writes the captured mono PCM to a file.
//
// Purpose:	Bring up Mic/AudioSystem end to end without board hardware.
package main

import (
	"encoding/binary"
	"fmt"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/doismellburning/samoyed-hal/hostsim/i2s"
	"github.com/doismellburning/samoyed-hal/internal/cfgfile"
	"github.com/doismellburning/samoyed-hal/internal/logx"
	"github.com/doismellburning/samoyed-hal/mic"
)

var log = logx.For("mic-monitor")

type monitorConfig struct {
	SampleRate      float64    `yaml:"sample_rate"`
	FramesPerBuffer int        `yaml:"frames_per_buffer"`
	Gains           [4]float32 `yaml:"channel_gain_db"`
}

func defaultConfig() monitorConfig {
	return monitorConfig{SampleRate: 16000, FramesPerBuffer: 256}
}

func main() {
	cfgPath := flag.String("config", "", "optional YAML config overriding defaults")
	blocks := flag.Int("blocks", 100, "number of read blocks to report before exiting")
	useAec := flag.Bool("aec", false, "route a reference channel through a mock AEC engine")
	outPath := flag.String("out", "", "optional path to write captured mono PCM (16-bit little-endian)")
	flag.Parse()

	cfg := defaultConfig()
	if *cfgPath != "" {
		if err := cfgfile.Load(*cfgPath, &cfg); err != nil {
			log.Fatal("loading config", "err", err)
		}
	}

	dev, err := i2s.Open(cfg.SampleRate, cfg.FramesPerBuffer)
	if err != nil {
		log.Fatal("opening host audio device", "err", err)
	}
	defer dev.Close()

	var out *os.File
	if *outPath != "" {
		out, err = os.Create(*outPath)
		if err != nil {
			log.Fatal("creating output file", "err", err)
		}
		defer out.Close()
	}

	// No concrete production Aec engine ships in this module - Aec is an
	// external collaborator interface a board integration supplies. With
	// --aec we wire in mockAecFactory so both code paths are exercised;
	// without it this monitor runs the voice-only path.
	var channels mic.Config
	var aecCfg mic.AecConfig
	var factory mic.AecFactory
	if *useAec {
		channels = mic.Config{Channels: [mic.ChannelCount]mic.ChannelRole{mic.Voice, mic.AecReference, mic.Disabled, mic.Disabled}}
		aecCfg = mic.AecConfig{Enabled: true, Format: mic.FormatMR, FilterLength: cfg.FramesPerBuffer, Mode: mic.SpeechRecognition, PerfMode: mic.LowCost}
		factory = mockAecFactory(cfg.FramesPerBuffer)
	} else {
		channels = mic.Config{Channels: [mic.ChannelCount]mic.ChannelRole{mic.Voice, mic.Disabled, mic.Disabled, mic.Disabled}}
		aecCfg = mic.AecConfig{Enabled: false}
	}

	sys, err := mic.NewAudioSystem(dev, nil, factory, mic.SystemConfig{
		Channels: channels,
		Aec:      aecCfg,
		Gains:    mic.GainConfig{ChannelGainDB: cfg.Gains},
	})
	if err != nil {
		log.Fatal("initializing audio system", "err", err)
	}
	defer sys.Deinit()

	if err := sys.Start(); err != nil {
		log.Fatal("starting capture", "err", err)
	}

	buf := make([]int16, cfg.FramesPerBuffer)
	for i := 0; i < *blocks; i++ {
		n, err := sys.Read(buf)
		if err != nil {
			log.Fatal("read failed", "err", err)
		}
		fmt.Printf("block %d: %d samples, peak=%d, aec=%v\n", i, n, peak(buf[:n]), *useAec)

		if out != nil {
			if err := writePCM16(out, buf[:n]); err != nil {
				log.Fatal("writing PCM output", "err", err)
			}
		}
	}
	os.Exit(0)
}

func peak(samples []int16) int16 {
	var max int16
	for _, s := range samples {
		if s < 0 {
			s = -s
		}
		if s > max {
			max = s
		}
	}
	return max
}

// writePCM16 appends samples as raw signed 16-bit little-endian PCM, the
// format most host tooling (sox, audacity's raw import) expects by default.
func writePCM16(w *os.File, samples []int16) error {
	buf := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(s))
	}
	_, err := w.Write(buf)
	return err
}

// mockAecFactory builds a trivial stand-in AEC engine: out = mic - ref/4,
// clamped to int16 range. It demonstrates the with-AEC code path end to end
// without depending on a real acoustic echo cancellation library.
func mockAecFactory(chunk int) mic.AecFactory {
	return func(format mic.Format, filterLength int, mode mic.AecMode, perf mic.PerfMode) (mic.Aec, error) {
		return &mockAec{chunk: chunk, format: format}, nil
	}
}

type mockAec struct {
	chunk  int
	format mic.Format
}

func (a *mockAec) Process(in []int16, out []int16) int {
	n := len(in) / 2
	for i := 0; i < n; i++ {
		var micSample, refSample int16
		if a.format == mic.FormatRM {
			refSample, micSample = in[i*2], in[i*2+1]
		} else {
			micSample, refSample = in[i*2], in[i*2+1]
		}
		out[i] = clampInt16(int32(micSample) - int32(refSample)/4)
	}
	return n
}

func (a *mockAec) ChunkSizeSamples() int { return a.chunk }
func (a *mockAec) Destroy()              {}

func clampInt16(v int32) int16 {
	switch {
	case v > 32767:
		return 32767
	case v < -32768:
		return -32768
	default:
		return int16(v)
	}
}
