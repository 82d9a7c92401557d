package finger

import "strings"

// Request is one parsed finger query line, as defined by RFC 1288:
//
//	[/W ]<username>[@<host>[@<host>...]]
//
// An empty username asks for a listing of known users; a non-empty host
// chain asks for the query to be relayed, rightmost host first.
type Request struct {
	// Raw is the original line with its terminator stripped.
	Raw string
	// Verbose is set by the /W prefix.
	Verbose bool
	// Username may be empty; empty means a listing request.
	Username string
	// Hostnames is the forward chain in wire order. Segments between
	// adjacent @ characters are kept, even when empty.
	Hostnames []string
}

// Parse turns one raw query line into a Request. It is total: any line,
// including an empty or malformed one, parses to a valid Request.
func Parse(line string) *Request {
	line = strings.TrimRight(line, "\r\n")
	req := &Request{Raw: line}

	rest := line
	if strings.HasPrefix(rest, "/W ") || strings.HasPrefix(rest, "/W\t") {
		req.Verbose = true
		rest = strings.TrimLeft(rest[2:], " \t")
	}

	parts := strings.Split(rest, "@")
	req.Username = parts[0]
	if len(parts) > 1 {
		req.Hostnames = parts[1:]
	}
	return req
}

// IsListing reports whether this is a listing request (empty username).
func (r *Request) IsListing() bool {
	return r.Username == ""
}

// IsForward reports whether the request carries a forward chain.
func (r *Request) IsForward() bool {
	return len(r.Hostnames) > 0
}

// HostChain returns the forward chain joined with "@", empty when there is
// none.
func (r *Request) HostChain() string {
	return strings.Join(r.Hostnames, "@")
}

// NextHop splits a forward request into the host to contact and the query
// line to send it. The last hostname is the next hop; the rest of the chain
// rides along in the re-issued query so that hop can keep relaying. Only
// valid when IsForward is true.
func (r *Request) NextHop() (host, query string) {
	n := len(r.Hostnames)
	host = r.Hostnames[n-1]
	query = r.Username
	if n > 1 {
		query += "@" + strings.Join(r.Hostnames[:n-1], "@")
	}
	if r.Verbose {
		query = "/W " + query
	}
	return host, query
}
