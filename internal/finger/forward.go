package finger

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"

	"github.com/fingertools/go-finger/internal/hoststat"
	"github.com/fingertools/go-finger/internal/metrics"
)

// forwarder re-issues host-chain requests against their next hop and relays
// the hop's response, verbatim, to the original peer. Chains are followed to
// whatever depth they name: the protocol has no hop limit and no cycle
// detection, so a chain that refers back to a host already on the path keeps
// forwarding until a transport error breaks it.
type forwarder struct {
	client  *Client
	stats   *hoststat.Stats
	onError func(err error)
}

func newForwarder(c *Client, onError func(err error)) *forwarder {
	return &forwarder{
		client:  c,
		stats:   hoststat.New(),
		onError: onError,
	}
}

// relay runs one hop exchange for tx and finishes its response either way:
// relayed lines plus Complete on success, a bare close on transport failure.
// A hop that answers "no such user" is a success here; only the transport
// can fail a forward.
func (f *forwarder) relay(tx *Transaction) {
	host, query := tx.Request.NextHop()
	log.Debugf("forwarding %q to %q", query, host)
	metrics.ForwardCounter.With(prometheus.Labels{"next_hop": host}).Inc()

	lines, err := f.client.Finger(context.Background(), host, query)
	if err != nil {
		f.stats.Update(host, 0)
		metrics.ForwardErrorCounter.With(prometheus.Labels{"next_hop": host}).Inc()
		st := f.stats.Get(host)
		log.Warnf("next hop %q health %.2f over %d exchanges", host, st.Value, st.Count)
		f.onError(fmt.Errorf("forward to %q: %w", host, err))
		tx.Response.abort()
		return
	}
	f.stats.Update(host, 1)

	if err := tx.Response.Emit(lines...); err != nil {
		f.onError(fmt.Errorf("relay from %q: %w", host, err))
	}
	_ = tx.Response.Complete()
}
