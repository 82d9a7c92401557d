package finger

// Transaction binds one parsed request to its response writer and the
// endpoints of the connection that carried it. There is exactly one
// transaction per connection; the protocol is not pipelined.
type Transaction struct {
	Request  *Request
	Response *ResponseWriter

	RemoteAddr string
	RemotePort int
	LocalPort  int
}
