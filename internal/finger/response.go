package finger

import (
	"fmt"
	"net"
	"sync"
)

// ResponseWriter delivers response lines for one connection. Lines go out in
// Emit order, each CRLF-terminated; Complete closes the connection and is the
// only end-of-response signal the protocol has. Using a writer after
// Complete is a programming error and reports ErrResponseClosed.
type ResponseWriter struct {
	mu     sync.Mutex
	conn   net.Conn
	closed bool
}

func newResponseWriter(conn net.Conn) *ResponseWriter {
	return &ResponseWriter{conn: conn}
}

// Emit writes each line followed by CRLF.
func (w *ResponseWriter) Emit(lines ...string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrResponseClosed
	}
	for _, line := range lines {
		if _, err := w.conn.Write([]byte(line + "\r\n")); err != nil {
			return fmt.Errorf("write response line: %w", err)
		}
	}
	return nil
}

// Complete closes the connection. A response with zero emitted lines is
// valid: the peer just sees EOF.
func (w *ResponseWriter) Complete() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrResponseClosed
	}
	w.closed = true
	return w.conn.Close()
}

// Closed reports whether the response has been completed or aborted.
func (w *ResponseWriter) Closed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closed
}

// abort tears the connection down without a response, for transport
// failures. Safe to call at any point.
func (w *ResponseWriter) abort() {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		_ = w.conn.Close()
	}
	w.mu.Unlock()
}
