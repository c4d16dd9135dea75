// Package transport carries raw Ethernet frames as UDP datagrams, one frame
// per datagram, in the style of QEMU's "-netdev socket,udp=" backend.
package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"vnic-go/pkg/buffers"
	"vnic-go/pkg/log"
)

var (
	// ErrOpen means the session could not be set up. It is fatal for startup.
	ErrOpen = errors.New("transport: open failed")
	// ErrSend means one datagram could not be sent.
	ErrSend = errors.New("transport: send failed")
)

// Session owns the receive socket bound to the listen port and an unbound
// socket used to send to the peer.
type Session struct {
	recv *net.UDPConn
	send *net.UDPConn
	peer *net.UDPAddr
	pool *buffers.BufferPool
	max  int

	closeOnce sync.Once
	closed    atomic.Bool

	RecvErrors atomic.Uint64
}

// Open binds 0.0.0.0:listenPort and resolves peerHost:peerPort.
// listenPort 0 picks an ephemeral port.
func Open(listenPort int, peerHost string, peerPort int) (*Session, error) {
	if listenPort < 0 || listenPort > 65535 {
		return nil, fmt.Errorf("%w: listen port %d out of range", ErrOpen, listenPort)
	}
	if peerPort <= 0 || peerPort > 65535 {
		return nil, fmt.Errorf("%w: peer port %d out of range", ErrOpen, peerPort)
	}
	peer, err := net.ResolveUDPAddr("udp4", net.JoinHostPort(peerHost, strconv.Itoa(peerPort)))
	if err != nil {
		return nil, fmt.Errorf("%w: resolving peer: %w", ErrOpen, err)
	}

	lc := net.ListenConfig{Control: reuseAddrControl}
	pc, err := lc.ListenPacket(context.Background(), "udp4", net.JoinHostPort("0.0.0.0", strconv.Itoa(listenPort)))
	if err != nil {
		return nil, fmt.Errorf("%w: binding port %d: %w", ErrOpen, listenPort, err)
	}
	recv := pc.(*net.UDPConn)

	send, err := net.ListenUDP("udp4", nil)
	if err != nil {
		recv.Close()
		return nil, fmt.Errorf("%w: opening send socket: %w", ErrOpen, err)
	}

	return &Session{
		recv: recv,
		send: send,
		peer: peer,
		pool: buffers.DatagramPool,
		max:  buffers.DatagramSize,
	}, nil
}

// SetMaxDatagramSize caps how much of each datagram is read; the rest is
// discarded by the kernel. Values outside 1..DatagramSize are ignored. It
// must be called before ReceiveLoop.
func (s *Session) SetMaxDatagramSize(n int) {
	if n > 0 && n <= buffers.DatagramSize {
		s.max = n
	}
}

// LocalAddr is the bound receive address.
func (s *Session) LocalAddr() *net.UDPAddr { return s.recv.LocalAddr().(*net.UDPAddr) }

// PeerAddr is where Send delivers.
func (s *Session) PeerAddr() *net.UDPAddr { return s.peer }

// ReceiveLoop reads datagrams and hands each one to onFrame until ctx is
// cancelled or the session is closed. The slice passed to onFrame is only
// valid for the duration of the call. Read errors are logged and counted.
func (s *Session) ReceiveLoop(ctx context.Context, onFrame func([]byte)) {
	s.recv.SetReadDeadline(time.Time{})
	stop := context.AfterFunc(ctx, func() {
		// Force a blocked read to return.
		s.recv.SetReadDeadline(time.Now())
	})
	defer stop()

	for {
		if ctx.Err() != nil || s.closed.Load() {
			return
		}

		buf := s.pool.Get()
		n, from, err := s.recv.ReadFromUDP(buf[:s.max])
		if err != nil {
			s.pool.Put(buf)
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return
			}
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			s.RecvErrors.Add(1)
			log.Warn().Err(err).Msg("transport: receive error")
			continue
		}

		log.Debug().Int("len", n).Stringer("from", from).Msg("transport: datagram received")
		onFrame(buf[:n])
		s.pool.Put(buf)
	}
}

// Send writes one frame as one datagram to the peer.
func (s *Session) Send(frame []byte) error {
	if _, err := s.send.WriteToUDP(frame, s.peer); err != nil {
		return fmt.Errorf("%w: %w", ErrSend, err)
	}
	return nil
}

// Close releases both sockets. It is safe to call more than once.
func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		err = errors.Join(s.recv.Close(), s.send.Close())
	})
	return err
}
