package adcbutton

import "github.com/doismellburning/samoyed-hal/internal/logx"

var decLog = logx.For("adcbutton")

// Range is an inclusive voltage band, in millivolts, for one button's
// position on the ladder. Ranges may be contiguous (one button's Max+1
// equal to the next button's Min).
type Range struct {
	MinMV uint32
	MaxMV uint32
}

func (r Range) contains(mv uint32) bool {
	return mv >= r.MinMV && mv <= r.MaxMV
}

// AdcReader is the sole sampling collaborator.
type AdcReader interface {
	ReadMV() uint32
}

// ChangeFunc is invoked synchronously, once per button whose decoded state
// just changed, with a snapshot of that button's derived state. buttonID is
// always a concrete, non-negative button index - negative ids are reserved
// by the wire/ctx convention but never produced by the decoder itself.
type ChangeFunc func(buttonID int8, state State, ctx any)

// Config parameterizes a Decoder.
type Config struct {
	Ranges []Range

	RefValueMV     uint32
	RefToleranceMV uint32

	// ChangeToleranceMV is accepted for configuration compatibility but is
	// never consulted by the decoder; its semantics are unspecified.
	ChangeToleranceMV uint32

	PollIntervalMs uint32
	ClickGapMs     uint64

	OnChange ChangeFunc
	UserCtx  any

	// TimeFn returns monotonic milliseconds. Required.
	TimeFn func() uint64
	// SleepFn sleeps for the given number of milliseconds. Optional - its
	// absence disables the multi-sample debounce path, and a single
	// sample is used as-is.
	SleepFn func(ms uint32)
}

// Decoder is the ladder state machine: "first button locks" between ref
// crossings, with debounce, per-button event rings, and derived state.
type Decoder struct {
	cfg   Config
	adc   AdcReader
	rings []Ring

	currentButton int8 // valid iff hasCurrent
	hasCurrent    bool
	isAtRef       bool
	stateStartMs  uint64
	startValueMV  uint32
	lastValueMV   uint32
}

// NewDecoder builds a Decoder for the given ranges/config, starting in the
// ref (released) state.
func NewDecoder(adc AdcReader, cfg Config) *Decoder {
	return &Decoder{
		cfg:     cfg,
		adc:     adc,
		rings:   make([]Ring, len(cfg.Ranges)),
		isAtRef: true,
	}
}

// Poll reads one ADC sample and runs the crossing/debounce/classification
// logic described by the ladder state machine. It never errors; a poll
// that can't make sense of a crossing simply leaves the current button
// unchanged.
func (d *Decoder) Poll() {
	mv := d.adc.ReadMV()
	now := d.cfg.TimeFn()

	curIsRef := d.isInRefWindow(mv)
	crossed := curIsRef != d.isAtRef
	if !crossed {
		return
	}

	var newButton int8
	var hasNew bool

	if curIsRef {
		// non-ref -> ref: release. No button is decoded at rest.
	} else {
		stable := d.readStable(mv)
		if idx, ok := d.classify(stable); ok {
			newButton, hasNew = int8(idx), true
		}
	}

	if hasNew != d.hasCurrent || (hasNew && newButton != d.currentButton) {
		if d.hasCurrent {
			d.closeButton(d.currentButton, now)
		}
		if hasNew {
			d.openButton(newButton, now)
		}
	}

	d.hasCurrent = hasNew
	d.currentButton = newButton
	d.isAtRef = curIsRef
	d.startValueMV = mv
	d.lastValueMV = mv
	d.stateStartMs = now
}

func (d *Decoder) closeButton(idx int8, now uint64) {
	d.rings[idx].RecordUp(now)
	decLog.Debug("button released", "button", idx, "at_ms", now)
	d.fireChange(idx, now)
}

func (d *Decoder) openButton(idx int8, now uint64) {
	d.rings[idx].RecordDown(now)
	decLog.Debug("button pressed", "button", idx, "at_ms", now)
	d.fireChange(idx, now)
}

func (d *Decoder) fireChange(idx int8, now uint64) {
	if d.cfg.OnChange == nil {
		return
	}
	// The callback is best-effort: the decoder must not fail because a
	// caller-supplied callback panics.
	defer func() { _ = recover() }()
	state := d.rings[idx].CalcState(now, d.cfg.ClickGapMs)
	d.cfg.OnChange(idx, state, d.cfg.UserCtx)
}

// readStable takes the already-sampled first reading plus, if SleepFn is
// configured, two more 5ms-spaced samples, and returns the minimum of all
// of them.
func (d *Decoder) readStable(first uint32) uint32 {
	min := first
	if d.cfg.SleepFn == nil {
		return min
	}
	for i := 0; i < 2; i++ {
		d.cfg.SleepFn(5)
		s := d.adc.ReadMV()
		if s < min {
			min = s
		}
	}
	return min
}

func (d *Decoder) classify(mv uint32) (int, bool) {
	for i, r := range d.cfg.Ranges {
		if r.contains(mv) {
			return i, true
		}
	}
	return 0, false
}

func (d *Decoder) isInRefWindow(mv uint32) bool {
	lower := satSub32(d.cfg.RefValueMV, d.cfg.RefToleranceMV)
	upper := d.cfg.RefValueMV + d.cfg.RefToleranceMV
	return mv >= lower && mv <= upper
}

// CurrentButton reports the currently decoded button, if any.
func (d *Decoder) CurrentButton() (int8, bool) {
	return d.currentButton, d.hasCurrent
}

// State returns the derived State for buttonID at nowMs.
func (d *Decoder) State(buttonID int8, nowMs uint64) (State, error) {
	if buttonID < 0 || int(buttonID) >= len(d.rings) {
		return State{}, ErrInvalidChannel
	}
	return d.rings[buttonID].CalcState(nowMs, d.cfg.ClickGapMs), nil
}

// Ring exposes a button's raw event history for inspection/testing.
func (d *Decoder) Ring(buttonID int8) (*Ring, error) {
	if buttonID < 0 || int(buttonID) >= len(d.rings) {
		return nil, ErrInvalidChannel
	}
	return &d.rings[buttonID], nil
}

func satSub32(a, b uint32) uint32 {
	if a >= b {
		return a - b
	}
	return 0
}
