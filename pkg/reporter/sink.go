package reporter

import (
	"fmt"
	"io"
	"sync"

	"vnic-go/pkg/log"
)

// Sink receives every reported event with its rendered line.
type Sink interface {
	Emit(e Event, line string)
}

// WriterSink writes one line per event.
type WriterSink struct {
	mu sync.Mutex
	w  io.Writer
}

func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{w: w}
}

func (s *WriterSink) Emit(_ Event, line string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintln(s.w, line)
}

// LogSink logs events through the package logger with structured fields.
type LogSink struct{}

func (LogSink) Emit(e Event, line string) {
	ev := log.Info()
	if _, ok := e.(DecodeError); ok {
		ev = log.Warn()
	}
	switch v := e.(type) {
	case ARPRequestObserved:
		ev = ev.Stringer("sender_mac", v.SenderMAC).Stringer("sender_ip", v.SenderIP).Stringer("target_ip", v.TargetIP)
	case ARPReplySent:
		ev = ev.Stringer("mac", v.MAC).Stringer("ip", v.IP).Stringer("target_ip", v.TargetIP)
	case UDPPacketObserved:
		ev = ev.Str("src", fmt.Sprintf("%s:%d", v.SrcIP, v.SrcPort)).
			Str("dst", fmt.Sprintf("%s:%d", v.DstIP, v.DstPort)).
			Int("len", len(v.Payload))
	case DecodeError:
		ev = ev.Str("layer", v.Layer).Int("len", v.Len).AnErr("decode_err", v.Err)
	}
	ev.Str("event", string(e.Kind())).Msg(line)
}

// FuncSink adapts a function.
type FuncSink func(e Event, line string)

func (f FuncSink) Emit(e Event, line string) { f(e, line) }
