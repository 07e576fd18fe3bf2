package transport

import (
	"errors"
	"log/slog"

	"github.com/casualjim/relay/pkg/slogx"
	"github.com/casualjim/relay/pkg/uuidx"
	"github.com/nats-io/nats.go"
)

// Header names used to annotate relay traffic on a NATS subject. Origin is
// what the receiving side gates on, Reply is the subject confirmations are
// published back to.
const (
	HeaderOrigin = "Relay-Origin"
	HeaderReply  = "Relay-Reply"
)

// NATSEndpoint adapts a NATS subject to the transport contract. Deliveries
// are plain publishes, so the fire-and-forget, no-ordering-across-sends
// semantics come for free.
type NATSEndpoint struct {
	nc      *nats.Conn
	subject string
	origin  string
}

// NATS binds an endpoint to a subject. The origin is stamped on every
// outbound message so the remote side can gate on it.
func NATS(nc *nats.Conn, subject, origin string) *NATSEndpoint {
	return &NATSEndpoint{nc: nc, subject: subject, origin: origin}
}

// Peer returns a handle publishing to the given remote subject. Replies to
// messages sent through it come back on this endpoint's subject.
func (e *NATSEndpoint) Peer(subject string) Peer {
	return &natsPeer{nc: e.nc, subject: subject, origin: e.origin, reply: e.subject}
}

func (e *NATSEndpoint) Subscribe(fn func(Message)) (Subscription, error) {
	if fn == nil {
		return nil, errors.New("subscriber function is required")
	}
	nsub, err := e.nc.Subscribe(e.subject, func(msg *nats.Msg) {
		var source Peer
		if reply := msg.Header.Get(HeaderReply); reply != "" {
			source = &natsPeer{nc: e.nc, subject: reply, origin: e.origin, reply: e.subject}
		}
		fn(Message{
			Data:   msg.Data,
			Origin: msg.Header.Get(HeaderOrigin),
			Source: source,
		})
	})
	if err != nil {
		return nil, err
	}
	return &natsSubscription{id: uuidx.NewString(), sub: nsub}, nil
}

type natsPeer struct {
	nc      *nats.Conn
	subject string
	origin  string
	reply   string
}

func (p *natsPeer) Deliver(data []byte) error {
	msg := &nats.Msg{
		Subject: p.subject,
		Header: nats.Header{
			HeaderOrigin: []string{p.origin},
			HeaderReply:  []string{p.reply},
		},
		Data: data,
	}
	return p.nc.PublishMsg(msg)
}

type natsSubscription struct {
	id  string
	sub *nats.Subscription
}

func (n *natsSubscription) ID() string {
	return n.id
}

func (n *natsSubscription) Unsubscribe() {
	if err := n.sub.Unsubscribe(); err != nil {
		slog.Error("failed to unsubscribe", slogx.Error(err), slog.String("subscription", n.id))
	}
}
