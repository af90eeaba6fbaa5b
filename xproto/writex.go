package xproto

import "github.com/doismellburning/samoyed-hal/internal/logx"

var writeLog = logx.For("xproto.writex")

// WriteXConfig parameterizes a single WriteX transfer.
type WriteXConfig struct {
	MTU        int
	TimeoutMs  uint32
	MaxRetries int
}

// WriteX runs the server-receiver half of the X-Protocol: it accepts
// chunks in any order (including duplicates), tracks completion with a
// Bitmask, requests retransmission of missing chunks on timeout, and ACKs
// exactly once on the first completion detection.
//
// recvBuf must be large enough to hold the reconstructed data; its
// required size (total*data_chunk_size) is only known once the first
// chunk arrives. WriteX returns the subslice of recvBuf holding the
// reassembled data.
func WriteX(t Transport, recvBuf []byte, cfg WriteXConfig) ([]byte, error) {
	dcs := DataChunkSize(cfg.MTU)
	maxFrame := cfg.MTU - 3

	var (
		mask         Bitmask
		total        uint16
		learned      bool
		lastChunkLen int
		timeouts     int
	)

	frame := make([]byte, maxFrame)

	for {
		n, ok, err := t.Recv(frame, cfg.TimeoutMs)
		if err != nil {
			return nil, &RecvError{Err: err}
		}
		if !ok {
			timeouts++
			if timeouts > cfg.MaxRetries {
				return nil, ErrTimeout
			}
			if !learned {
				continue // total unknown - nothing to NACK yet.
			}
			if err := sendLossList(t, &mask, total, cfg.MTU); err != nil {
				return nil, err
			}
			continue
		}
		timeouts = 0

		pkt := frame[:n]
		if len(pkt) < HeaderSize {
			return nil, ErrInvalidPacket
		}
		if len(pkt) > maxFrame {
			return nil, ErrChunkTooLarge
		}

		var hb [HeaderSize]byte
		copy(hb[:], pkt[:HeaderSize])
		hdr := DecodeHeader(hb)
		if err := hdr.Validate(); err != nil {
			return nil, err
		}

		if !learned {
			total = hdr.Total
			needed := int(total) * dcs
			if needed > len(recvBuf) {
				return nil, ErrBufferTooSmall
			}
			mask.InitClear(total)
			learned = true
		}
		if hdr.Total != total {
			return nil, ErrTotalMismatch
		}

		payload := pkt[HeaderSize:]
		off := int(hdr.Seq-1) * dcs
		copy(recvBuf[off:], payload)
		if hdr.Seq == total {
			lastChunkLen = len(payload)
		}
		mask.Set(hdr.Seq)

		if mask.IsComplete() {
			if err := t.Send(AckFrame()); err != nil {
				return nil, &SendError{Err: err}
			}
			end := int(total-1)*dcs + lastChunkLen
			writeLog.Debug("transfer complete", "total", total, "bytes", end)
			return recvBuf[:end], nil
		}
	}
}

func sendLossList(t Transport, mask *Bitmask, total uint16, mtu int) error {
	maxEntries := (mtu - 3) / 2
	if maxEntries < 1 {
		maxEntries = 1
	}
	missing := make([]uint16, maxEntries)
	n := mask.CollectMissing(missing)
	buf := make([]byte, n*2)
	wire := EncodeLossList(missing[:n], buf)
	if err := t.Send(wire); err != nil {
		return &SendError{Err: err}
	}
	return nil
}
