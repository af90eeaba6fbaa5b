package xproto

// Transport is the sole I/O collaborator for both ReadX and WriteX. It is
// exclusively owned by the state machine for the duration of a ReadX or
// WriteX call: neither
// side spawns tasks or blocks outside Send/Recv.
type Transport interface {
	// Send is fire-and-forget: there is no per-packet ACK at this layer.
	// A permanent failure of the underlying medium is reported as a
	// *SendError by the caller, not by Send itself - Send returns the
	// raw error and callers wrap it.
	Send(b []byte) error

	// Recv blocks for up to timeoutMs waiting for one frame. It returns
	// the number of bytes written into buf, or ok=false on timeout. A
	// non-nil error indicates a permanent transport failure, not a
	// timeout.
	Recv(buf []byte, timeoutMs uint32) (n int, ok bool, err error)
}
