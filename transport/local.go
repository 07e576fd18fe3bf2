package transport

import (
	"errors"
	"sync"
	"time"

	"github.com/alphadose/haxmap"
	"github.com/casualjim/relay/pkg/uuidx"
)

const defaultSlowSubscriberTimeout = 100 * time.Millisecond

// LocalEndpoint is an in-memory transport endpoint. Two linked endpoints
// behave like isolated execution contexts: deliveries hop to the other side
// on a separate goroutine, so nothing is ever received inline with a send.
type LocalEndpoint struct {
	origin                string
	remote                *LocalEndpoint
	subscriptions         *haxmap.Map[string, *localSubscription]
	slowSubscriberTimeout time.Duration
}

// Pair links two in-memory endpoints. Each side reports the other side's
// origin on inbound messages.
func Pair(originA, originB string) (*LocalEndpoint, *LocalEndpoint) {
	a := newLocalEndpoint(originA)
	b := newLocalEndpoint(originB)
	a.remote, b.remote = b, a
	return a, b
}

func newLocalEndpoint(origin string) *LocalEndpoint {
	return &LocalEndpoint{
		origin:                origin,
		subscriptions:         haxmap.New[string, *localSubscription](),
		slowSubscriberTimeout: defaultSlowSubscriberTimeout,
	}
}

// Origin returns the origin this endpoint reports to its peer.
func (e *LocalEndpoint) Origin() string {
	return e.origin
}

// Remote returns the fire-and-forget handle for the linked endpoint.
func (e *LocalEndpoint) Remote() Peer {
	return &localPeer{from: e, to: e.remote}
}

func (e *LocalEndpoint) Subscribe(fn func(Message)) (Subscription, error) {
	if fn == nil {
		return nil, errors.New("subscriber function is required")
	}
	id := uuidx.NewString()
	sub := &localSubscription{
		id:      id,
		channel: make(chan Message, 50),
		onClose: func() { e.subscriptions.Del(id) },
		fn:      fn,
	}
	e.subscriptions.Set(id, sub)
	go sub.forward()
	return sub, nil
}

func (e *LocalEndpoint) deliver(msg Message) {
	e.subscriptions.ForEach(func(_ string, sub *localSubscription) bool {
		sub.push(msg, e.slowSubscriberTimeout)
		return true
	})
}

type localPeer struct {
	from *LocalEndpoint
	to   *LocalEndpoint
}

func (p *localPeer) Deliver(data []byte) error {
	if p.to == nil {
		return errors.New("endpoint is not linked")
	}
	p.to.deliver(Message{
		Data:   data,
		Origin: p.from.origin,
		Source: &localPeer{from: p.to, to: p.from},
	})
	return nil
}

type localSubscription struct {
	id        string
	mu        sync.RWMutex
	closed    bool
	channel   chan Message
	closeOnce sync.Once
	onClose   func()
	fn        func(Message)
}

func (s *localSubscription) ID() string {
	return s.id
}

func (s *localSubscription) push(msg Message, timeout time.Duration) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return
	}
	select {
	case s.channel <- msg:
	case <-time.After(timeout):
		// Fire-and-forget: a full subscriber just loses the message.
	}
}

func (s *localSubscription) Unsubscribe() {
	s.closeOnce.Do(func() {
		if s.onClose != nil {
			s.onClose()
		}
		s.mu.Lock()
		s.closed = true
		close(s.channel)
		s.mu.Unlock()
	})
}

func (s *localSubscription) forward() {
	for msg := range s.channel {
		s.fn(msg)
	}
}
