package relay

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/alphadose/haxmap"
	"github.com/casualjim/relay/pkg/slogx"
	"github.com/casualjim/relay/pkg/uuidx"
	"github.com/casualjim/relay/transport"
	"github.com/casualjim/relay/wire"
	"github.com/fogfish/opts"
	json "github.com/goccy/go-json"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

const defaultName = "relay"

// Messenger is one peer of the protocol. It publishes events to its target
// context, dispatches inbound events to registered handlers and correlates
// confirmable requests with their replies.
//
// The dispatch table only grows: there is no way to unregister a handler.
// The correlation table holds one entry per in-flight request and drops the
// entry when the matching confirmation arrives (or when the optional request
// timeout fires).
type Messenger struct {
	local        transport.Endpoint
	target       transport.Peer
	targetOrigin string

	name           string
	channel        string
	debug          bool
	strictOrigin   bool
	requestTimeout time.Duration
	log            *slog.Logger

	mu        sync.Mutex
	listening bool
	sub       transport.Subscription
	handlers  map[string][]Handler

	pending *haxmap.Map[string, promise]
}

// New wires a messenger to its local endpoint and the peer it talks to.
// Inbound traffic is only accepted when its reported origin matches
// targetOrigin (prefix match by default, exact with StrictOrigin).
func New(local transport.Endpoint, target transport.Peer, targetOrigin string, options ...opts.Option[Messenger]) (*Messenger, error) {
	var err error
	if local == nil {
		err = errors.Join(err, errors.New("local endpoint is required"))
	}
	if target == nil {
		err = errors.Join(err, errors.New("target peer is required"))
	}
	if targetOrigin == "" {
		err = errors.Join(err, errors.New("target origin is required"))
	}
	if err != nil {
		return nil, err
	}

	m := &Messenger{
		local:        local,
		target:       target,
		targetOrigin: targetOrigin,
		name:         defaultName,
		log:          slog.Default(),
		handlers:     make(map[string][]Handler),
		pending:      haxmap.New[string, promise](),
	}
	if err := opts.Apply(m, options); err != nil {
		return nil, err
	}
	return m, nil
}

// Name returns the sender identity stamped on outbound envelopes.
func (m *Messenger) Name() string {
	return m.name
}

// Listen subscribes to the local endpoint. Calling it while already
// listening is a no-op; any stale subscription from a previous cycle is
// dropped before re-subscribing, so repeated Stop/Listen cycles never stack
// duplicate subscriptions.
func (m *Messenger) Listen() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listening {
		return nil
	}
	if m.sub != nil {
		m.sub.Unsubscribe()
		m.sub = nil
	}
	sub, err := m.local.Subscribe(m.receive)
	if err != nil {
		return err
	}
	m.sub = sub
	m.listening = true
	m.trace("listening", slog.String("name", m.name), slog.String("subscription", sub.ID()))
	return nil
}

// Stop drops the inbound subscription. Idempotent.
func (m *Messenger) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.listening {
		return
	}
	m.sub.Unsubscribe()
	m.sub = nil
	m.listening = false
	m.trace("stopped", slog.String("name", m.name))
}

// On registers a handler for one or more logical event types. Registration
// appends: earlier handlers for the same type keep running, in registration
// order. Registrations made while an event is being dispatched apply to
// future events only.
func (m *Messenger) On(handler Handler, types ...string) {
	if handler == nil || len(types) == 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range types {
		key := m.namespaced(t)
		m.handlers[key] = append(m.handlers[key], handler)
	}
}

// Send publishes a fire-and-forget event to the target context. Nothing
// reports whether anyone was listening; an unhandled event on the other side
// is an expected steady state.
func (m *Messenger) Send(ctx context.Context, eventType string, data any) error {
	return m.publish(ctx, m.target, m.namespaced(eventType), data, false, "")
}

// Request publishes a confirmable event and returns the deferred result. The
// future resolves when the peer's handler confirms with success=true, fails
// with *RequestFailedError on success=false, and with ErrRequestTimeout when
// the RequestTimeout option is set and no reply arrives in time. Without a
// timeout an unanswered request stays pending forever.
func (m *Messenger) Request(ctx context.Context, eventType string, data any) (Future[gjson.Result], error) {
	id := uuidx.NewString()
	fut := newFuture(func(s string) (gjson.Result, error) {
		return gjson.Parse(s), nil
	})
	m.pending.Set(id, fut)

	if err := m.publish(ctx, m.target, m.namespaced(eventType), data, false, id); err != nil {
		m.pending.Del(id)
		return nil, err
	}

	if m.requestTimeout > 0 {
		time.AfterFunc(m.requestTimeout, func() {
			if p, ok := m.pending.GetAndDel(id); ok {
				m.trace("request timed out", slog.String("confirmationId", id))
				p.fail(ErrRequestTimeout)
			}
		})
	}
	return fut, nil
}

func (m *Messenger) namespaced(eventType string) string {
	if m.channel == "" {
		return eventType
	}
	return m.channel + ":" + eventType
}

func (m *Messenger) logical(namespacedType string) string {
	if m.channel == "" {
		return namespacedType
	}
	return strings.TrimPrefix(namespacedType, m.channel+":")
}

func (m *Messenger) publish(ctx context.Context, dest transport.Peer, namespacedType string, data any, isConfirmation bool, confirmationID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	env, err := wire.New(namespacedType, m.name, data)
	if err != nil {
		return err
	}
	env.IsConfirmation = isConfirmation
	env.ConfirmationID = confirmationID

	raw, err := json.Marshal(env)
	if err != nil {
		return err
	}
	m.trace("sending", slog.String("name", m.name), slogx.ByteString("envelope", raw))
	return dest.Deliver(raw)
}

// receive is the single inbound pipeline: origin check, decode, namespace
// check, then the confirmation-vs-event branch. Every rejection on this path
// is silent; a shared transport makes foreign and malformed traffic normal.
func (m *Messenger) receive(msg transport.Message) {
	if !m.originAllowed(msg.Origin) {
		m.trace("dropping message from foreign origin", slog.String("origin", msg.Origin))
		return
	}

	env, err := wire.Decode(msg.Data)
	if err != nil {
		m.trace("dropping undecodable message", slogx.Error(err))
		return
	}

	if m.channel != "" && !strings.HasPrefix(env.Type, m.channel+":") {
		m.trace("dropping message outside channel", slog.String("type", env.Type))
		return
	}

	m.trace("received", slog.String("name", m.name), slogx.ByteString("envelope", msg.Data))

	if env.IsConfirmation {
		m.settle(env)
		return
	}
	m.dispatch(context.Background(), env, msg.Source)
}

func (m *Messenger) originAllowed(origin string) bool {
	if m.strictOrigin {
		return origin == m.targetOrigin
	}
	return strings.HasPrefix(origin, m.targetOrigin)
}

// settle routes a confirmation envelope to the request that produced it.
// GetAndDel makes resolution at-most-once: a duplicate or stale confirmation
// finds no entry and is dropped.
func (m *Messenger) settle(env wire.Envelope) {
	p, ok := m.pending.GetAndDel(env.ConfirmationID)
	if !ok {
		m.trace("dropping confirmation with unknown id", slog.String("confirmationId", env.ConfirmationID))
		return
	}

	payload := env.Payload()
	rest, err := sjson.Delete(payload.Raw, "success")
	if err != nil {
		rest = payload.Raw
	}
	if payload.Get("success").Bool() {
		p.complete(rest)
		return
	}
	p.fail(&RequestFailedError{Payload: gjson.Parse(rest)})
}

func (m *Messenger) dispatch(ctx context.Context, env wire.Envelope, source transport.Peer) {
	m.mu.Lock()
	handlers := slices.Clone(m.handlers[env.Type])
	m.mu.Unlock()

	if len(handlers) == 0 {
		m.trace("no handlers registered", slog.String("type", env.Type))
		return
	}

	ev := Event{
		Type:    m.logical(env.Type),
		Sender:  env.Name,
		Payload: env.Payload(),
		confirm: m.confirmer(ctx, env, source),
	}
	for _, h := range handlers {
		h(ctx, ev)
	}
}

// confirmer binds a confirm callback to the originating envelope's
// correlation id and source handle. Envelopes that did not ask for a
// confirmation get no callback; Event.Confirm turns that into a no-op.
func (m *Messenger) confirmer(ctx context.Context, env wire.Envelope, source transport.Peer) func(bool, any) error {
	if env.ConfirmationID == "" {
		return nil
	}
	dest := source
	if dest == nil {
		dest = m.target
	}
	return func(success bool, extra any) error {
		payload, err := confirmationPayload(success, extra)
		if err != nil {
			return err
		}
		return m.publish(ctx, dest, env.Type, json.RawMessage(payload), true, env.ConfirmationID)
	}
}

// confirmationPayload merges the success flag into the handler-provided
// data. Object payloads get a "success" member; anything else is wrapped as
// {"success": ..., "data": ...} so scalars survive the merge.
func confirmationPayload(success bool, extra any) (string, error) {
	raw, err := wire.EncodePayload(extra)
	if err != nil {
		return "", err
	}
	if gjson.Parse(raw).IsObject() {
		return sjson.Set(raw, "success", success)
	}
	out, err := sjson.Set(`{}`, "success", success)
	if err != nil {
		return "", err
	}
	if raw != "null" {
		out, err = sjson.SetRaw(out, "data", raw)
		if err != nil {
			return "", err
		}
	}
	return out, nil
}

func (m *Messenger) trace(msg string, attrs ...slog.Attr) {
	if !m.debug {
		return
	}
	m.log.LogAttrs(context.Background(), slog.LevelDebug, msg, attrs...)
}
