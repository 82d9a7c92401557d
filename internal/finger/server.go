package finger

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"

	"github.com/fingertools/go-finger/internal/metrics"
)

// DeniedResponse is the fixed line sent back when a forward request arrives
// and ForwardDeny is set.
const DeniedResponse = "finger forwarding service denied"

// Handler receives every transaction the forwarding policy does not
// intercept. It alone decides when the response is done, via Emit and
// Complete; the server never times a connection out on its behalf.
type Handler func(tx *Transaction)

// Server owns one listening socket and serves one finger request per
// accepted connection.
type Server struct {
	Addr string // bind host, empty for all interfaces
	Port int    // 0 binds an ephemeral port

	Handler Handler

	// ForwardDeny rejects any request carrying a host chain with
	// DeniedResponse. Checked before Forward; the handler never sees the
	// request.
	ForwardDeny bool
	// Forward relays host-chain requests to their next hop instead of
	// handing them to Handler.
	Forward bool
	// Client performs forward-hop exchanges; nil gets a zero Client.
	Client *Client

	// OnBind, when set, is called once per Start with the resolved port.
	// With Port 0 this is the only way to learn which port the OS picked.
	OnBind func(port int)
	// OnError, when set, receives per-connection transport failures. They
	// are never fatal to the listener.
	OnError func(err error)

	mu       sync.Mutex
	listener net.Listener
	started  bool
	fwd      *forwarder
}

// Start binds the listener, fires OnBind and begins accepting connections in
// the background. Starting an already-started server is a usage error.
// Cancelling ctx closes the listener, like Stop.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return ErrServerStarted
	}
	addr := net.JoinHostPort(s.Addr, strconv.Itoa(s.Port))
	l, err := net.Listen("tcp", addr)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	s.listener = l
	s.started = true
	s.mu.Unlock()

	log.Debugf("finger server listening on %v", l.Addr())
	if s.OnBind != nil {
		s.OnBind(l.Addr().(*net.TCPAddr).Port)
	}

	go s.acceptLoop(ctx, l)
	return nil
}

// Stop releases the listening socket. In-flight connections are not touched;
// they finish on their own terms.
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return nil
	}
	s.started = false
	err := s.listener.Close()
	s.listener = nil
	return err
}

func (s *Server) acceptLoop(ctx context.Context, l net.Listener) {
	go func() {
		<-ctx.Done()
		_ = l.Close()
	}()

	var wg sync.WaitGroup
	sem := make(chan struct{}, 1000)

	defer wg.Wait()

	for {
		conn, err := l.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				log.Debug("finger listener closed")
				return
			}
			s.reportError(fmt.Errorf("accept: %w", err))
			continue
		}

		sem <- struct{}{}
		wg.Add(1)

		go func(conn net.Conn) {
			defer func() {
				wg.Done()
				<-sem
			}()
			s.serveConn(conn)
		}(conn)
	}
}

// serveConn reads the single request line and dispatches it. The connection
// is closed here only on a failed read or by the deny/forward paths; once a
// transaction reaches the handler, closing is the handler's job.
func (s *Server) serveConn(conn net.Conn) {
	remote := conn.RemoteAddr().(*net.TCPAddr)
	labels := prometheus.Labels{"host": remote.IP.String()}
	metrics.ConnectGauge.With(labels).Inc()
	metrics.ConnectCounter.With(labels).Inc()
	defer metrics.ConnectGauge.With(labels).Dec()

	line, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil {
		// No full request line arrived; no transaction to speak of.
		_ = conn.Close()
		s.reportError(fmt.Errorf("read query from %v: %w", conn.RemoteAddr(), err))
		return
	}

	req := Parse(line)
	tx := &Transaction{
		Request:    req,
		Response:   newResponseWriter(conn),
		RemoteAddr: remote.IP.String(),
		RemotePort: remote.Port,
		LocalPort:  conn.LocalAddr().(*net.TCPAddr).Port,
	}
	log.Debugf("query %q from %s:%d", req.Raw, tx.RemoteAddr, tx.RemotePort)

	switch {
	case s.ForwardDeny && req.IsForward():
		metrics.DeniedCounter.With(labels).Inc()
		if err := tx.Response.Emit(DeniedResponse); err != nil {
			s.reportError(err)
		}
		_ = tx.Response.Complete()
	case s.Forward && req.IsForward():
		s.forwarder().relay(tx)
	default:
		if s.Handler == nil {
			_ = tx.Response.Complete()
			return
		}
		s.Handler(tx)
	}
}

func (s *Server) forwarder() *forwarder {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fwd == nil {
		c := s.Client
		if c == nil {
			c = &Client{}
		}
		s.fwd = newForwarder(c, s.reportError)
	}
	return s.fwd
}

func (s *Server) reportError(err error) {
	log.Warnf("finger: %v", err)
	if s.OnError != nil {
		s.OnError(err)
	}
}
