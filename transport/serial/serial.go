// Package serial implements xproto.Transport over a real or virtual serial
// line, and discovers candidate serial devices via udev the way a bench rig
// would enumerate an attached board without a hardcoded /dev path.
package serial

import (
	"fmt"
	"strings"
	"time"

	"github.com/creack/pty"
	"github.com/jochenvg/go-udev"
	"github.com/pkg/term"

	"github.com/doismellburning/samoyed-hal/internal/logx"
)

var log = logx.For("transport.serial")

// rwc is the minimal surface Port needs from its underlying device. Both
// *term.Term (a real serial line) and *os.File (a pty pair, for local
// testing) satisfy it.
type rwc interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Close() error
}

// Port is a length-prefixed framed Transport over a serial device. Framing
// mirrors transport/tcp since neither a real UART nor a pty carries native
// message boundaries.
//
// Recv's timeout is implemented with a background goroutine rather than a
// read deadline, the same "separate thread so the main application doesn't
// block" shape the teacher's kissserial_init uses - the underlying
// *term.Term, unlike a net.Conn or (on most platforms) an *os.File pipe,
// exposes no SetReadDeadline.
type Port struct {
	dev rwc
}

// OpenPTY allocates a new pty pair for local testing, returning the
// controller side wrapped as a Port and the device side's path.
func OpenPTY() (*Port, string, error) {
	ptmx, tty, err := pty.Open()
	if err != nil {
		return nil, "", fmt.Errorf("serial: opening pty: %w", err)
	}
	_ = tty.Close() // the controller side alone is enough to drive our framed protocol
	return &Port{dev: ptmx}, tty.Name(), nil
}

// Open attaches to a real serial device node, such as one returned by
// DiscoverCandidates, putting it into raw mode and setting its speed the
// way serial_port_open does. baudBps of 0 leaves the device's current
// speed alone.
func Open(path string, baudBps int) (*Port, error) {
	fd, err := term.Open(path, term.RawMode)
	if err != nil {
		return nil, fmt.Errorf("serial: opening %s: %w", path, err)
	}

	switch baudBps {
	case 0: // leave it alone
	case 1200, 2400, 4800, 9600, 19200, 38400, 57600, 115200:
		if err := fd.SetSpeed(baudBps); err != nil {
			_ = fd.Close()
			return nil, fmt.Errorf("serial: setting speed %d on %s: %w", baudBps, path, err)
		}
	default:
		log.Warn("unsupported baud rate, using 4800", "requested", baudBps, "device", path)
		if err := fd.SetSpeed(4800); err != nil {
			_ = fd.Close()
			return nil, fmt.Errorf("serial: setting fallback speed on %s: %w", path, err)
		}
	}

	return &Port{dev: fd}, nil
}

// Close releases the underlying device.
func (p *Port) Close() error { return p.dev.Close() }

// Send writes one length-prefixed frame.
func (p *Port) Send(b []byte) error {
	var hdr [4]byte
	n := len(b)
	hdr[0], hdr[1], hdr[2], hdr[3] = byte(n>>24), byte(n>>16), byte(n>>8), byte(n)
	if _, err := p.dev.Write(hdr[:]); err != nil {
		return fmt.Errorf("serial: writing length prefix: %w", err)
	}
	if _, err := p.dev.Write(b); err != nil {
		return fmt.Errorf("serial: writing frame: %w", err)
	}
	return nil
}

// Recv reads one length-prefixed frame, returning ok=false on timeout.
func (p *Port) Recv(buf []byte, timeoutMs uint32) (int, bool, error) {
	var hdr [4]byte
	if err := p.readFullTimeout(hdr[:], timeoutMs); err != nil {
		if err == errTimeout {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("serial: reading length prefix: %w", err)
	}

	n := int(hdr[0])<<24 | int(hdr[1])<<16 | int(hdr[2])<<8 | int(hdr[3])
	if n > len(buf) {
		return 0, false, fmt.Errorf("serial: frame of %d bytes exceeds buffer of %d", n, len(buf))
	}

	if err := p.readFullTimeout(buf[:n], timeoutMs); err != nil {
		if err == errTimeout {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("serial: reading frame body: %w", err)
	}
	return n, true, nil
}

type readResult struct {
	n   int
	err error
}

// readFullTimeout fills buf completely or returns errTimeout, running the
// blocking Read calls on a background goroutine. A goroutine that's still
// blocked in Read when the timeout fires is abandoned - the underlying
// device has no way to interrupt it, the same limitation the teacher's
// dedicated serial-reader thread lives with.
func (p *Port) readFullTimeout(buf []byte, timeoutMs uint32) error {
	resultCh := make(chan readResult, 1)
	go func() {
		total := 0
		for total < len(buf) {
			n, err := p.dev.Read(buf[total:])
			total += n
			if err != nil {
				resultCh <- readResult{n: total, err: err}
				return
			}
		}
		resultCh <- readResult{n: total, err: nil}
	}()

	select {
	case res := <-resultCh:
		return res.err
	case <-time.After(time.Duration(timeoutMs) * time.Millisecond):
		return errTimeout
	}
}

var errTimeout = fmt.Errorf("serial: read timed out")

// Candidate describes a serial-capable device node discovered via udev.
type Candidate struct {
	DevNode string
	Vendor  string
	Model   string
}

// DiscoverCandidates enumerates tty devices under the "tty" subsystem that
// carry USB vendor/model properties, the signature of a board attached over
// USB-serial rather than a system console port.
func DiscoverCandidates() ([]Candidate, error) {
	u := udev.Udev{}
	e := u.NewEnumerate()

	if err := e.AddMatchSubsystem("tty"); err != nil {
		return nil, fmt.Errorf("serial: udev match subsystem: %w", err)
	}

	devices, err := e.Devices()
	if err != nil {
		return nil, fmt.Errorf("serial: udev enumerate: %w", err)
	}

	var out []Candidate
	for _, d := range devices {
		vendor := d.PropertyValue("ID_VENDOR")
		model := d.PropertyValue("ID_MODEL")
		if vendor == "" && model == "" {
			continue // system console ports carry no USB vendor/model properties
		}
		devNode := d.Devnode()
		if devNode == "" || !strings.HasPrefix(devNode, "/dev/tty") {
			continue
		}
		out = append(out, Candidate{DevNode: devNode, Vendor: vendor, Model: model})
	}

	log.Debug("discovered serial candidates", "count", len(out))
	return out, nil
}
