package relay

import (
	"context"
	"log/slog"

	"github.com/casualjim/relay/pkg/slogx"
	json "github.com/goccy/go-json"
	"github.com/tidwall/gjson"
)

// Handler processes one inbound event. Handlers registered for the same type
// run in registration order; a handler may call back into the messenger
// (Send, Request, On) freely.
type Handler func(ctx context.Context, ev Event)

// Event is an inbound protocol event as seen by a handler: the logical
// (un-namespaced) type, the sender's configured name and the parsed payload.
type Event struct {
	Type    string
	Sender  string
	Payload gjson.Result

	confirm func(success bool, extra any) error
}

// Confirm replies to the originating request with a confirmation envelope
// carrying {success, ...extra}. On the requester, success=true resolves the
// pending future and success=false fails it with the payload. When the event
// did not ask for a confirmation this is a no-op.
//
// A request is expected to have exactly one confirming handler; if several
// handlers confirm the same event, the requester keeps the first reply that
// arrives and drops the rest.
func (e Event) Confirm(success bool, extra any) error {
	if e.confirm == nil {
		return nil
	}
	return e.confirm(success, extra)
}

// Typed adapts a handler taking a concrete payload type. The payload shape
// per event type is an out-of-band contract between the peers; when an
// inbound payload does not unmarshal into T it is dropped like any other
// malformed message.
func Typed[T any](fn func(ctx context.Context, payload T, ev Event)) Handler {
	return func(ctx context.Context, ev Event) {
		var v T
		if err := json.Unmarshal([]byte(ev.Payload.Raw), &v); err != nil {
			slog.Debug("dropping payload with unexpected shape",
				slog.String("type", ev.Type), slogx.Error(err))
			return
		}
		fn(ctx, v, ev)
	}
}
