// Package transport defines the delivery boundary the messenger core builds
// on: an asynchronous, unordered, fire-and-forget exchange of opaque byte
// messages between two execution contexts. Nothing here acknowledges,
// orders, or retries; those semantics are layered on top by the relay
// package.
//
// Design decisions:
//   - Injectable: the receiving surface is an explicit Endpoint collaborator,
//     so multiple messengers can share one endpoint and tests can run fully
//     in-memory
//   - Annotated inbound: every delivery carries the reported origin and a
//     reply handle for the source context
//   - Explicit subscriptions: subscribing returns a handle with a unique ID
//     and an Unsubscribe for cleanup
package transport

// Peer is a fire-and-forget destination handle. Deliver never waits for the
// remote side and gives no delivery guarantee.
type Peer interface {
	Deliver(data []byte) error
}

// Message is a single inbound delivery, annotated with the origin the
// transport reports for the sender and a handle for replying to it.
type Message struct {
	Data   []byte
	Origin string
	Source Peer
}

// Endpoint is the local receiving surface of a context.
type Endpoint interface {
	Subscribe(fn func(Message)) (Subscription, error)
}

type Subscription interface {
	ID() string
	Unsubscribe()
}
