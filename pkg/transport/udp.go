package transport

import (
	"context"
	"fmt"
	"net"
	"net/netip"

	"go.uber.org/zap"

	"github.com/openoutcry/pit/pkg/exchange/account"
	"github.com/openoutcry/pit/pkg/wire"
)

// Server owns the datagram socket: it decodes inbound datagrams into typed
// requests for the processing loop and sends encoded responses back out.
// The receive path touches nothing but the client registry (first-contact
// account creation and disconnects); the order book belongs to the engine.
type Server struct {
	conn *net.UDPConn
	reg  *account.Registry
	log  *zap.SugaredLogger
	q    *queue
}

// Listen binds the UDP socket.
func Listen(addr string, reg *account.Registry, log *zap.SugaredLogger) (*Server, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", addr, err)
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", addr, err)
	}

	return &Server{
		conn: conn,
		reg:  reg,
		log:  log,
		q:    newQueue(),
	}, nil
}

// Requests is the ordered stream of decoded requests. Closed when the
// receive loop exits.
func (s *Server) Requests() <-chan wire.Envelope {
	return s.q.out
}

// Send delivers one encoded message to an origin. Send failures are
// logged and dropped; the protocol has no retries.
func (s *Server) Send(to netip.AddrPort, payload []byte) {
	if _, err := s.conn.WriteToUDPAddrPort(payload, to); err != nil {
		s.log.Debugw("send_failed", "to", to.String(), "err", err)
	}
}

// Run receives datagrams until ctx is cancelled. Malformed datagrams are
// dropped silently at this boundary, per protocol.
func (s *Server) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		s.conn.Close()
	}()
	defer close(s.q.in)

	buf := make([]byte, wire.MaxDatagram)
	for {
		n, from, err := s.conn.ReadFromUDPAddrPort(buf)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("udp read: %w", err)
		}
		if n < 1 || n >= wire.MaxDatagram {
			continue
		}

		// Normalize IPv4-mapped origins so loopback detection and map
		// identity are stable across socket families.
		from = netip.AddrPortFrom(from.Addr().Unmap(), from.Port())

		if buf[0] == wire.TagDisconnect {
			if s.reg.Remove(from) {
				s.log.Infow("client_disconnected", "addr", from.String())
			}
			continue
		}

		marketMaker := s.reg.Ensure(from)

		req := wire.DecodeRequest(buf[:n], marketMaker)
		if req == nil {
			continue
		}

		s.q.in <- wire.Envelope{From: from, Req: req}
	}
}
