package xproto

import "github.com/doismellburning/samoyed-hal/internal/logx"

var readLog = logx.For("xproto.readx")

// ReadXConfig parameterizes a single ReadX transfer.
type ReadXConfig struct {
	MTU            int
	SendRedundancy int
	StartTimeoutMs uint32
	AckTimeoutMs   uint32
}

// ReadX runs the server-sender half of the X-Protocol: it waits for the
// client's START magic, then pushes chunks in ascending seq order, honoring
// loss lists until the client ACKs or a phase times out.
//
// data must be non-empty and must fit within MaxChunksPerTransfer chunks at
// cfg.MTU.
func ReadX(t Transport, data []byte, cfg ReadXConfig) error {
	if len(data) == 0 {
		return ErrEmptyData
	}
	if cfg.SendRedundancy < 1 {
		return ErrInvalidRedundancy
	}

	dcs := DataChunkSize(cfg.MTU)
	total := ChunksNeeded(len(data), cfg.MTU)
	if total > MaxChunksPerTransfer {
		return ErrTooManyChunks
	}

	if err := waitForStart(t, cfg.StartTimeoutMs); err != nil {
		return err
	}

	var mask Bitmask
	mask.InitClear(uint16(total))
	for seq := uint16(1); seq <= uint16(total); seq++ {
		mask.Set(seq) // "all pending" means every chunk is due to be sent.
	}

	respBuf := make([]byte, maxResponseFrame(cfg.MTU))
	missing := make([]uint16, 0, total)

	for {
		if err := sendRound(t, data, dcs, uint16(total), &mask, cfg.SendRedundancy); err != nil {
			return err
		}

		n, ok, err := t.Recv(respBuf, cfg.AckTimeoutMs)
		if err != nil {
			return &RecvError{Err: err}
		}
		if !ok {
			return ErrTimeout
		}
		resp := respBuf[:n]

		if IsAck(resp) {
			readLog.Debug("transfer complete", "total", total)
			return nil
		}

		missing = missing[:0]
		missing = appendDecodedLossList(resp, missing, cap(missing))
		if len(missing) == 0 {
			return ErrInvalidResponse
		}

		mask.InitClear(uint16(total))
		for _, seq := range missing {
			if seq >= 1 && seq <= uint16(total) {
				mask.Set(seq)
			}
		}
	}
}

func maxResponseFrame(mtu int) int {
	f := mtu - 3
	if f < 2 {
		f = 2
	}
	return f
}

func appendDecodedLossList(resp []byte, missing []uint16, capHint int) []uint16 {
	buf := make([]uint16, len(resp)/2)
	n := DecodeLossList(resp, buf)
	return append(missing, buf[:n]...)
}

func waitForStart(t Transport, timeoutMs uint32) error {
	buf := make([]byte, 4)
	n, ok, err := t.Recv(buf, timeoutMs)
	if err != nil {
		return &RecvError{Err: err}
	}
	if !ok {
		return ErrTimeout
	}
	if !IsStartMagic(buf[:n]) {
		return ErrInvalidStartMagic
	}
	return nil
}

func sendRound(t Transport, data []byte, dcs int, total uint16, mask *Bitmask, redundancy int) error {
	frame := make([]byte, HeaderSize+dcs)
	for seq := uint16(1); seq <= total; seq++ {
		if !mask.IsSet(seq) {
			continue
		}
		payload := chunkPayload(data, dcs, seq)
		hdr := Header{Total: total, Seq: seq}.Encode()
		n := copy(frame, hdr[:])
		n += copy(frame[n:], payload)
		for i := 0; i < redundancy; i++ {
			if err := t.Send(frame[:n]); err != nil {
				return &SendError{Err: err}
			}
		}
	}
	return nil
}

func chunkPayload(data []byte, dcs int, seq uint16) []byte {
	start := int(seq-1) * dcs
	if start >= len(data) {
		return nil
	}
	end := start + dcs
	if end > len(data) {
		end = len(data)
	}
	return data[start:end]
}
