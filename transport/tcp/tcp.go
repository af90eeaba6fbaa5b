// Package tcp implements xproto.Transport over a plain TCP connection, the
// network-KISS-TNC style of transport the teacher's nettnc.go attaches to,
// generalized from a line-oriented KISS stream to the X-Protocol's
// discrete-frame chunking.
package tcp

import (
	"context"
	"fmt"
	"net"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"github.com/doismellburning/samoyed-hal/internal/logx"
)

var log = logx.For("transport.tcp")

// Conn adapts a net.Conn (TCP or anything stream-oriented) to
// xproto.Transport. Each Send/Recv call is length-prefixed with a 4-byte
// big-endian frame length so that Recv returns exactly one X-Protocol frame
// per call, matching the BLE characteristic-write semantics X-Protocol was
// designed against.
type Conn struct {
	nc net.Conn
}

// Dial connects to addr and enables TCP_NODELAY, since X-Protocol's small
// ACK/NACK frames should not wait on Nagle coalescing.
func Dial(addr string) (*Conn, error) {
	nc, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("tcp: dial %s: %w", addr, err)
	}
	if tc, ok := nc.(*net.TCPConn); ok {
		_ = tc.SetNoDelay(true)
	}
	return &Conn{nc: nc}, nil
}

// Wrap adapts an already-connected net.Conn.
func Wrap(nc net.Conn) *Conn { return &Conn{nc: nc} }

// Close closes the underlying connection.
func (c *Conn) Close() error { return c.nc.Close() }

// Send writes one length-prefixed frame.
func (c *Conn) Send(b []byte) error {
	var hdr [4]byte
	n := len(b)
	hdr[0] = byte(n >> 24)
	hdr[1] = byte(n >> 16)
	hdr[2] = byte(n >> 8)
	hdr[3] = byte(n)

	if _, err := c.nc.Write(hdr[:]); err != nil {
		return fmt.Errorf("tcp: writing length prefix: %w", err)
	}
	if _, err := c.nc.Write(b); err != nil {
		return fmt.Errorf("tcp: writing frame: %w", err)
	}
	return nil
}

// Recv reads one length-prefixed frame into buf, blocking up to timeoutMs.
// ok is false on a timeout with no error; Transport callers treat that as a
// retriable absence of data, matching the BLE characteristic-read timeout
// behavior X-Protocol's state machines are written against.
func (c *Conn) Recv(buf []byte, timeoutMs uint32) (int, bool, error) {
	deadline := time.Now().Add(time.Duration(timeoutMs) * time.Millisecond)
	if err := c.nc.SetReadDeadline(deadline); err != nil {
		return 0, false, fmt.Errorf("tcp: set read deadline: %w", err)
	}

	var hdr [4]byte
	if _, err := readFull(c.nc, hdr[:]); err != nil {
		if isTimeout(err) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("tcp: reading length prefix: %w", err)
	}

	n := int(hdr[0])<<24 | int(hdr[1])<<16 | int(hdr[2])<<8 | int(hdr[3])
	if n > len(buf) {
		return 0, false, fmt.Errorf("tcp: frame of %d bytes exceeds buffer of %d", n, len(buf))
	}

	if _, err := readFull(c.nc, buf[:n]); err != nil {
		if isTimeout(err) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("tcp: reading frame body: %w", err)
	}
	return n, true, nil
}

func readFull(nc net.Conn, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := nc.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func isTimeout(err error) bool {
	var ne net.Error
	if e, ok := err.(net.Error); ok {
		ne = e
		return ne.Timeout()
	}
	return false
}

// Listen binds addr for accepting bridge connections with SO_REUSEADDR set
// via golang.org/x/sys/unix, so a restarted bridge doesn't have to wait out
// TIME_WAIT on the listening port - the same low-level socket-option
// pattern the teacher reaches for around its serial/HID device handles.
func Listen(addr string) (net.Listener, error) {
	lc := net.ListenConfig{
		Control: func(network, address string, c syscall.RawConn) error {
			var sockErr error
			ctrlErr := c.Control(func(fd uintptr) {
				sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
			})
			if ctrlErr != nil {
				return ctrlErr
			}
			if sockErr != nil {
				log.Warn("failed to set SO_REUSEADDR", "err", sockErr)
			}
			return nil
		},
	}

	ln, err := lc.Listen(context.Background(), "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("tcp: listen %s: %w", addr, err)
	}
	return ln, nil
}
