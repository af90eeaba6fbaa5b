// Command button-monitor decodes a resistor-ladder multi-button ADC stream
// and prints each state change with a formatted timestamp.
//
// Purpose:	Drive adcbutton.Decoder against a simulated ladder whose
//		voltage follows a user-supplied script read from stdin, for
//		bench verification without a real ladder attached.
package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/lestrrat-go/strftime"
	flag "github.com/spf13/pflag"

	"github.com/doismellburning/samoyed-hal/adcbutton"
	"github.com/doismellburning/samoyed-hal/hostsim/adc"
	"github.com/doismellburning/samoyed-hal/internal/cfgfile"
	"github.com/doismellburning/samoyed-hal/internal/logx"
)

var log = logx.For("button-monitor")

// rangesConfig is the YAML shape for the ladder's voltage ranges, one entry
// per button, loaded via --config.
type rangesConfig struct {
	Ranges []rangeEntry `yaml:"ranges"`
}

type rangeEntry struct {
	MinMV uint32 `yaml:"min_mv"`
	MaxMV uint32 `yaml:"max_mv"`
}

// defaultRanges mirrors a typical 4-button resistor ladder, used when
// --config isn't given.
func defaultRanges() rangesConfig {
	return rangesConfig{Ranges: []rangeEntry{
		{MinMV: 0, MaxMV: 400},
		{MinMV: 401, MaxMV: 900},
		{MinMV: 1400, MaxMV: 1900},
		{MinMV: 2400, MaxMV: 2900},
	}}
}

func main() {
	idleMv := flag.Uint32("idle-mv", 3300, "idle ladder voltage, millivolts")
	refMv := flag.Uint32("ref-mv", 3300, "reference (no button pressed) voltage")
	refToleranceMv := flag.Uint32("ref-tolerance-mv", 50, "reference window half-width")
	changeToleranceMv := flag.Uint32("change-tolerance-mv", 20, "configured change tolerance (informational only)")
	clickGapMs := flag.Uint64("click-gap-ms", 400, "max gap between clicks counted as consecutive")
	pollMs := flag.Uint32("poll-ms", 10, "poll interval in milliseconds")
	timeFmt := flag.String("time-format", "%Y-%m-%d %H:%M:%S", "strftime pattern for event timestamps")
	cfgPath := flag.String("config", "", "optional YAML file listing button voltage ranges (see rangesConfig)")
	flag.Parse()

	formatter, err := strftime.New(*timeFmt)
	if err != nil {
		log.Fatal("invalid --time-format", "err", err)
	}

	rcfg := defaultRanges()
	if *cfgPath != "" {
		if err := cfgfile.Load(*cfgPath, &rcfg); err != nil {
			log.Fatal("loading config", "err", err)
		}
	}

	ranges := make([]adcbutton.Range, len(rcfg.Ranges))
	for i, r := range rcfg.Ranges {
		ranges[i] = adcbutton.Range{MinMV: r.MinMV, MaxMV: r.MaxMV}
	}

	sim := adc.NewSimulator(*idleMv)

	cfg := adcbutton.Config{
		Ranges:            ranges,
		RefValueMV:        *refMv,
		RefToleranceMV:    *refToleranceMv,
		ChangeToleranceMV: *changeToleranceMv,
		PollIntervalMs:    *pollMs,
		ClickGapMs:        *clickGapMs,
		TimeFn: func() uint64 {
			return uint64(time.Now().UnixMilli())
		},
		SleepFn: func(ms uint32) {
			time.Sleep(time.Duration(ms) * time.Millisecond)
		},
		OnChange: func(buttonID int8, state adcbutton.State, ctx any) {
			ts := formatter.FormatString(time.Now())
			fmt.Printf("[%s] button=%d pressed=%v clicks=%d press_ms=%d release_ms=%d\n",
				ts, buttonID, state.IsPressed, state.ConsecutiveClicks,
				state.PressDurationMs, state.ReleaseDurationMs)
		},
	}

	dec := adcbutton.NewDecoder(sim, cfg)

	log.Info("reading voltage scripts from stdin: one 'press <mv>' or 'release' per line")
	go readStdinScript(sim)

	for {
		dec.Poll()
		time.Sleep(time.Duration(*pollMs) * time.Millisecond)
	}
}

func readStdinScript(sim *adc.Simulator) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := scanner.Text()
		var cmd string
		var arg string
		fmt.Sscanf(line, "%s %s", &cmd, &arg)
		switch cmd {
		case "press":
			mv, err := strconv.ParseUint(arg, 10, 32)
			if err != nil {
				log.Warn("bad press value", "line", line)
				continue
			}
			sim.Press(uint32(mv))
		case "release":
			sim.Release()
		default:
			log.Warn("unrecognized command", "line", line)
		}
	}
}
