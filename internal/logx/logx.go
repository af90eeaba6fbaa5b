/*------------------------------------------------------------------
 *
 * Purpose:	Structured, level-gated logging shared by all three cores
 *		and the cmd/ binaries.
 *
 * Description:	Generalizes the teacher's textcolor.go - a single global
 *		level gate plus a category tag per call site - into a
 *		charmbracelet/log logger with one named sub-logger per
 *		subsystem, so a caller can turn up "xproto.writex" debug
 *		output without drowning in "mic" traffic.
 *
 *------------------------------------------------------------------*/
package logx

import (
	"os"
	"sync"

	"github.com/charmbracelet/log"
)

var (
	mu      sync.Mutex
	root    = log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: true})
	loggers = map[string]*log.Logger{}
)

// SetLevel sets the minimum level reported by every sub-logger, including
// ones not yet created by For.
func SetLevel(level log.Level) {
	mu.Lock()
	defer mu.Unlock()
	root.SetLevel(level)
	for _, l := range loggers {
		l.SetLevel(level)
	}
}

// For returns the named sub-logger, creating it on first use. name is
// typically a dotted subsystem path, e.g. "xproto.readx" or "mic".
func For(name string) *log.Logger {
	mu.Lock()
	defer mu.Unlock()
	if l, ok := loggers[name]; ok {
		return l
	}
	l := root.WithPrefix(name)
	loggers[name] = l
	return l
}
