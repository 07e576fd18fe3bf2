/*
Package relay implements a lightweight request/response messaging protocol on
top of an asynchronous, unordered, fire-and-forget transport. The transport
only moves opaque bytes between two execution contexts; relay layers
confirmable request/response semantics, multi-listener event dispatch and
channel namespacing on top of it.

Each peer runs the same Messenger type and is simultaneously a publisher, a
subscriber and a correlation tracker:

  - Envelope codec (wire package): builds and parses the wire message
  - Channel namespace: prefixes event types so unrelated messengers can share
    one transport without cross-talk
  - Dispatch table: ordered handler lists per namespaced event type
  - Correlation table: pending confirmations keyed by generated id, routing a
    confirmation reply back to the request that produced it
  - Listener lifecycle: idempotent Listen/Stop around the transport
    subscription

# Basic Usage

Two linked in-memory endpoints stand in for the cross-context boundary:

	endA, endB := transport.Pair("https://a.example.com", "https://b.example.com")

	a, _ := relay.New(endA, endA.Remote(), endB.Origin(), relay.Channel("app"))
	b, _ := relay.New(endB, endB.Remote(), endA.Origin(), relay.Channel("app"))

	b.On(func(ctx context.Context, ev relay.Event) {
		_ = ev.Confirm(true, map[string]any{"n": ev.Payload.Get("n").Int() + 1})
	}, "ping")

	_ = a.Listen()
	_ = b.Listen()

	fut, _ := a.Request(ctx, "ping", map[string]any{"n": 1})
	result, err := fut.Get() // {"n":2}

Fire-and-forget events use Send; nobody needs to be listening for them:

	_ = a.Send(ctx, "log", map[string]any{"level": "info"})

# Error model

Malformed inbound messages, events nobody registered for, foreign-origin
traffic and stale confirmation ids are all dropped silently; a shared
transport makes every one of those an expected steady state. Application
failures travel as confirmations with success=false and surface on the
requester as a *RequestFailedError carrying the failure payload. The
transport has no delivery error channel, so a request whose reply never
arrives stays pending unless a RequestTimeout is configured.
*/
package relay
