// Package i2s implements mic.I2s on top of a host sound card via PortAudio,
// letting the capture pipeline and its AEC path run against a laptop
// microphone instead of an on-chip I2S peripheral.
package i2s

import (
	"fmt"

	"github.com/gordonklaus/portaudio"

	"github.com/doismellburning/samoyed-hal/internal/logx"
)

var log = logx.For("hostsim.i2s")

// Device drives one PortAudio stereo input stream, packing each pair of
// host samples into the same 32-bit-word-per-channel layout the real I2S
// peripheral produces, so mic.Mic can't tell the difference.
type Device struct {
	stream     *portaudio.Stream
	sampleRate float64
	frames     []int32 // interleaved L,R host samples, one portaudio.Stream buffer
	pending    []byte  // encoded bytes not yet claimed by Read
	enabled    bool
}

// Open initializes PortAudio and opens a stereo input stream at sampleRate
// with framesPerBuffer frames per callback.
func Open(sampleRate float64, framesPerBuffer int) (*Device, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("hostsim/i2s: portaudio init: %w", err)
	}

	d := &Device{
		sampleRate: sampleRate,
		frames:     make([]int32, framesPerBuffer*2),
	}

	stream, err := portaudio.OpenDefaultStream(2, 0, sampleRate, framesPerBuffer, d.frames)
	if err != nil {
		_ = portaudio.Terminate()
		return nil, fmt.Errorf("hostsim/i2s: opening stream: %w", err)
	}
	d.stream = stream
	return d, nil
}

// EnableRx starts the underlying PortAudio stream. Idempotent.
func (d *Device) EnableRx() error {
	if d.enabled {
		return nil
	}
	if err := d.stream.Start(); err != nil {
		return fmt.Errorf("hostsim/i2s: starting stream: %w", err)
	}
	d.enabled = true
	return nil
}

// DisableRx stops the stream. Idempotent.
func (d *Device) DisableRx() error {
	if !d.enabled {
		return nil
	}
	if err := d.stream.Stop(); err != nil {
		return fmt.Errorf("hostsim/i2s: stopping stream: %w", err)
	}
	d.enabled = false
	return nil
}

// BitsPerSample reports the word size this device packs samples into,
// matching the real peripheral's 32-bit TDM slot.
func (d *Device) BitsPerSample() int { return 32 }

// Read fills buf with 8-byte stereo frames, pulling fresh samples from
// PortAudio as needed and placing each host int32 sample's high 16 bits in
// the position highHalf() expects, so hostsim output decodes identically
// to real hardware capture.
func (d *Device) Read(buf []byte) (int, error) {
	const frameBytes = 8
	written := 0
	for written+frameBytes <= len(buf) {
		if len(d.pending) < frameBytes {
			if err := d.refill(); err != nil {
				return written, err
			}
			if len(d.pending) < frameBytes {
				break
			}
		}
		n := copy(buf[written:written+frameBytes], d.pending[:frameBytes])
		d.pending = d.pending[n:]
		written += n
	}
	return written, nil
}

func (d *Device) refill() error {
	if err := d.stream.Read(); err != nil {
		return fmt.Errorf("hostsim/i2s: reading stream: %w", err)
	}

	buf := make([]byte, len(d.frames)/2*8)
	for i := 0; i < len(d.frames)/2; i++ {
		l := d.frames[i*2]
		r := d.frames[i*2+1]
		putLE32(buf[i*8:], uint32(l))
		putLE32(buf[i*8+4:], uint32(r))
	}
	d.pending = buf
	return nil
}

func putLE32(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}

// Close stops the stream, closes it, and terminates PortAudio.
func (d *Device) Close() error {
	if err := d.DisableRx(); err != nil {
		log.Warn("error stopping stream during close", "err", err)
	}
	if err := d.stream.Close(); err != nil {
		return fmt.Errorf("hostsim/i2s: closing stream: %w", err)
	}
	return portaudio.Terminate()
}
