package oscnet

import (
	"context"
	"net"
	"os"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/hypebeast/go-osc/osc"
	"github.com/pkg/errors"
)

// maxPacketSize is the largest UDP payload.
const maxPacketSize = 65535

type Server struct {
	Addr string

	dispatcher *Dispatcher
	conn       net.PacketConn
	logger     *log.Logger

	lock sync.Mutex
}

func NewServer(addr string, dispatcher *Dispatcher) *Server {
	return &Server{
		Addr:       addr,
		dispatcher: dispatcher,
		logger: log.NewWithOptions(os.Stderr, log.Options{
			Prefix: "OscServer 🎛: ",
			Level:  log.GetLevel(),
		}),
	}
}

// Listen binds the UDP socket. It is separate from Serve so the caller
// learns about bind errors before the serving goroutine starts.
func (s *Server) Listen() error {
	s.lock.Lock()
	defer s.lock.Unlock()

	conn, err := net.ListenPacket("udp", s.Addr)
	if err != nil {
		return errors.Wrapf(err, "failed to listen on %s", s.Addr)
	}
	s.conn = conn
	s.logger.Info("listening", "addr", conn.LocalAddr().String())

	return nil
}

func (s *Server) LocalAddr() net.Addr {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.conn == nil {
		return nil
	}
	return s.conn.LocalAddr()
}

// Serve reads packets until ctx is done or the server is closed. Packets
// are dispatched one at a time in arrival order; malformed packets are
// logged and dropped.
func (s *Server) Serve(ctx context.Context) error {
	s.lock.Lock()
	conn := s.conn
	s.lock.Unlock()
	if conn == nil {
		return errors.New("osc server is not listening")
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			s.Close()
		case <-done:
		}
	}()

	buf := make([]byte, maxPacketSize)
	for {
		n, from, err := conn.ReadFrom(buf)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return errors.Wrap(err, "osc server stopped")
		}

		packet, err := parsePacket(buf[:n])
		if err != nil {
			s.logger.Warn("dropping malformed packet", "from", from, "err", err)
			continue
		}
		s.dispatcher.Dispatch(packet)
	}
}

// parsePacket also turns a decoder panic (go-osc trusts blob lengths) into
// an error.
func parsePacket(data []byte) (packet osc.Packet, err error) {
	defer func() {
		if r := recover(); r != nil {
			packet, err = nil, errors.Errorf("osc decoder panic: %v", r)
		}
	}()

	packet, err = osc.ParsePacket(string(data))
	if err == nil && packet == nil {
		err = errors.New("empty packet")
	}
	return
}

func (s *Server) Close() error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	return err
}
