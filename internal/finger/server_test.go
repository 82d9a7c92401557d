package finger

import (
	"context"
	"errors"
	"fmt"
	"net"
	"reflect"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
)

func startTestServer(t *testing.T, s *Server) int {
	t.Helper()
	bound := make(chan int, 1)
	s.OnBind = func(port int) { bound <- port }
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("start server: %v", err)
	}
	t.Cleanup(func() { _ = s.Stop() })
	return <-bound
}

// echoHandler reports the raw request and the connection endpoints.
func echoHandler(tx *Transaction) {
	_ = tx.Response.Emit(
		fmt.Sprintf("request = '%s'", tx.Request.Raw),
		fmt.Sprintf("remote port = %d", tx.RemotePort),
		fmt.Sprintf("local port = %d", tx.LocalPort),
	)
	_ = tx.Response.Complete()
}

func TestServeListingRequest(t *testing.T) {
	s := &Server{Handler: echoHandler}
	port := startTestServer(t, s)

	c := &Client{Port: port}
	lines, err := c.Finger(context.Background(), "127.0.0.1", "")
	if err != nil {
		t.Fatalf("finger: %v", err)
	}
	if len(lines) != 3 {
		t.Fatalf("got %d lines: %v", len(lines), lines)
	}
	if lines[0] != "request = ''" {
		t.Errorf("line 0 = %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "remote port = ") {
		t.Errorf("line 1 = %q", lines[1])
	}
	if want := fmt.Sprintf("local port = %d", port); lines[2] != want {
		t.Errorf("line 2 = %q, want %q", lines[2], want)
	}
}

func TestServeUserRequest(t *testing.T) {
	s := &Server{Handler: echoHandler}
	port := startTestServer(t, s)

	c := &Client{Port: port}
	lines, err := c.Finger(context.Background(), "127.0.0.1", "grimlock")
	if err != nil {
		t.Fatalf("finger: %v", err)
	}
	if len(lines) != 3 || lines[0] != "request = 'grimlock'" {
		t.Errorf("got %v", lines)
	}
}

func TestForwardDeny(t *testing.T) {
	var called atomic.Bool
	s := &Server{
		ForwardDeny: true,
		Handler: func(tx *Transaction) {
			called.Store(true)
			_ = tx.Response.Complete()
		},
	}
	port := startTestServer(t, s)

	c := &Client{Port: port}
	lines, err := c.Finger(context.Background(), "127.0.0.1", "grimlock@elsewhere")
	if err != nil {
		t.Fatalf("finger: %v", err)
	}
	if len(lines) != 1 || lines[0] != DeniedResponse {
		t.Errorf("got %v, want exactly [%q]", lines, DeniedResponse)
	}
	if called.Load() {
		t.Error("handler invoked for a denied forward request")
	}
}

// TestForwardChain sends a 4-hop chain back into the same server: each hop
// must dial the last hostname and re-issue the query with that hostname
// removed, until the bare query reaches the handler, whose lines are then
// relayed verbatim all the way back.
func TestForwardChain(t *testing.T) {
	var port atomic.Int32
	var mu sync.Mutex
	var dialed []string

	s := &Server{
		Forward: true,
		Handler: func(tx *Transaction) {
			_ = tx.Response.Emit(
				fmt.Sprintf("verbose = %t", tx.Request.Verbose),
				fmt.Sprintf("username = '%s'", tx.Request.Username),
			)
			_ = tx.Response.Complete()
		},
		Client: &Client{
			DialContext: func(ctx context.Context, network, address string) (net.Conn, error) {
				mu.Lock()
				dialed = append(dialed, address)
				mu.Unlock()
				var d net.Dialer
				return d.DialContext(ctx, network, fmt.Sprintf("127.0.0.1:%d", port.Load()))
			},
		},
	}
	p := startTestServer(t, s)
	port.Store(int32(p))

	c := &Client{Port: p}
	lines, err := c.Finger(context.Background(), "127.0.0.1", "/W grimlock@localhost@foo@bar@baz")
	if err != nil {
		t.Fatalf("finger: %v", err)
	}

	want := []string{"verbose = true", "username = 'grimlock'"}
	if !reflect.DeepEqual(lines, want) {
		t.Errorf("relayed lines = %v, want %v", lines, want)
	}

	mu.Lock()
	defer mu.Unlock()
	wantDialed := []string{"baz:79", "bar:79", "foo:79", "localhost:79"}
	if !reflect.DeepEqual(dialed, wantDialed) {
		t.Errorf("hops dialed %v, want %v", dialed, wantDialed)
	}
}

// An empty hostname from adjacent @ characters is attempted like any other
// host; the failed hop surfaces through OnError and the origin peer just
// sees an empty response.
func TestForwardEmptyHostnameHop(t *testing.T) {
	var mu sync.Mutex
	var dialed []string
	errCh := make(chan error, 1)

	s := &Server{
		Forward: true,
		Client: &Client{
			DialContext: func(ctx context.Context, network, address string) (net.Conn, error) {
				mu.Lock()
				dialed = append(dialed, address)
				mu.Unlock()
				return nil, errors.New("no route")
			},
		},
		OnError: func(err error) {
			select {
			case errCh <- err:
			default:
			}
		},
	}
	port := startTestServer(t, s)

	c := &Client{Port: port}
	lines, err := c.Finger(context.Background(), "127.0.0.1", "user@@")
	if err != nil {
		t.Fatalf("finger: %v", err)
	}
	if len(lines) != 0 {
		t.Errorf("failed forward produced response lines %v", lines)
	}

	mu.Lock()
	if !reflect.DeepEqual(dialed, []string{":79"}) {
		t.Errorf("empty hop dialed as %v, want [\":79\"]", dialed)
	}
	mu.Unlock()

	select {
	case err := <-errCh:
		if err == nil {
			t.Error("nil error reported")
		}
	default:
		t.Error("failed forward hop reported no error")
	}
}

func TestStartTwice(t *testing.T) {
	s := &Server{}
	startTestServer(t, s)

	if err := s.Start(context.Background()); !errors.Is(err, ErrServerStarted) {
		t.Fatalf("second start: %v, want ErrServerStarted", err)
	}
	if err := s.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("restart after stop: %v", err)
	}
	_ = s.Stop()
}
