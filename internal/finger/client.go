package finger

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
)

// DefaultPort is the IANA-assigned finger port.
const DefaultPort = 79

// Client performs finger exchanges. The zero value dials with a plain
// net.Dialer on the default port. One Client serves any number of concurrent
// exchanges; calls share nothing but the dial hook.
type Client struct {
	// Port is used for hosts that carry no explicit port. 0 means
	// DefaultPort.
	Port int

	// DialContext overrides the dialer, e.g. to route hostnames in tests.
	DialContext func(ctx context.Context, network, address string) (net.Conn, error)
}

// Finger writes one query line to host and collects response lines until the
// peer closes the connection; EOF is the protocol's only end-of-response
// signal. A failure to connect or to read is an error, not an empty result.
func (c *Client) Finger(ctx context.Context, host, query string) ([]string, error) {
	addr := host
	if _, _, err := net.SplitHostPort(host); err != nil {
		port := c.Port
		if port == 0 {
			port = DefaultPort
		}
		addr = net.JoinHostPort(host, strconv.Itoa(port))
	}

	dial := c.DialContext
	if dial == nil {
		var d net.Dialer
		dial = d.DialContext
	}
	conn, err := dial(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", addr, err)
	}
	defer func() { _ = conn.Close() }()

	log.Debugf("finger %q @ %s", query, addr)
	if _, err := conn.Write([]byte(query + "\r\n")); err != nil {
		return nil, fmt.Errorf("send query to %s: %w", addr, err)
	}

	var lines []string
	r := bufio.NewReader(conn)
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				// A trailing unterminated fragment still belongs to the
				// response.
				if line != "" {
					lines = append(lines, strings.TrimRight(line, "\r"))
				}
				return lines, nil
			}
			return nil, fmt.Errorf("read response from %s: %w", addr, err)
		}
		lines = append(lines, strings.TrimRight(line, "\r\n"))
	}
}
