// Package adc provides a deterministic adcbutton.AdcReader for demos and
// local testing without a real resistor ladder attached. Its voltage is set
// by Press/Release, with optional caller-supplied jitter via SetNoise; it
// has no random seed of its own.
package adc

import (
	"sync"

	"github.com/doismellburning/samoyed-hal/internal/logx"
)

var log = logx.For("hostsim.adc")

// Simulator is an AdcReader whose voltage is driven programmatically, by
// tests or by a CLI's stdin-driven demo loop, rather than sampled from
// hardware. A CLI driving Press/Release from a stdin-reading goroutine
// while the poll loop calls ReadMV from another needs this safe to use
// concurrently, so access is mutex-guarded.
type Simulator struct {
	mu      sync.Mutex
	mv      uint32
	idleMv  uint32
	noiseFn func() int32 // optional per-sample jitter, in millivolts
}

// NewSimulator starts the simulator reporting idleMv, the configured
// idle-rail voltage (spec.md's REF_VALUE_MV is typically driven at idle).
func NewSimulator(idleMv uint32) *Simulator {
	return &Simulator{mv: idleMv, idleMv: idleMv}
}

// SetNoise installs a jitter function applied on every ReadMV call, useful
// for exercising the decoder's debounce logic under simulated noise.
func (s *Simulator) SetNoise(fn func() int32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.noiseFn = fn
}

// Press sets the simulated ladder voltage to mv, as if a button were held.
func (s *Simulator) Press(mv uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mv = mv
}

// Release returns the simulated voltage to the idle rail.
func (s *Simulator) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mv = s.idleMv
}

// ReadMV implements adcbutton.AdcReader.
func (s *Simulator) ReadMV() uint32 {
	s.mu.Lock()
	v := int64(s.mv)
	noiseFn := s.noiseFn
	s.mu.Unlock()

	if noiseFn != nil {
		v += int64(noiseFn())
	}
	if v < 0 {
		v = 0
	}
	log.Debug("sampled voltage", "mv", v)
	return uint32(v)
}
