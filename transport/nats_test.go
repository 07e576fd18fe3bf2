package transport

import (
	"fmt"
	"testing"
	"time"

	"github.com/casualjim/relay/pkg/uuidx"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupNATS(t *testing.T) *nats.Conn {
	nc, err := nats.Connect(nats.DefaultURL)
	if err != nil {
		t.Skipf("no NATS server available: %v", err)
	}
	t.Cleanup(func() {
		nc.Close()
	})
	return nc
}

func natsEndpoints(t *testing.T) (*NATSEndpoint, *NATSEndpoint) {
	nc := setupNATS(t)
	// Unique subjects per test run so parallel runs don't cross-talk.
	subjA := fmt.Sprintf("relay.test.%s.a", uuidx.NewString())
	subjB := fmt.Sprintf("relay.test.%s.b", uuidx.NewString())
	a := NATS(nc, subjA, "https://a.example.com")
	b := NATS(nc, subjB, "https://b.example.com")
	return a, b
}

func TestNATSDeliveryCarriesOriginAndReply(t *testing.T) {
	a, b := natsEndpoints(t)

	rec := &recorder{}
	sub, err := b.Subscribe(rec.record)
	require.NoError(t, err)
	defer sub.Unsubscribe()

	require.NoError(t, a.Peer(b.subject).Deliver([]byte("hello")))

	require.Eventually(t, func() bool { return rec.len() == 1 }, 2*time.Second, 10*time.Millisecond)
	msg := rec.last()
	assert.Equal(t, []byte("hello"), msg.Data)
	assert.Equal(t, "https://a.example.com", msg.Origin)
	require.NotNil(t, msg.Source)
}

func TestNATSReplyViaSource(t *testing.T) {
	a, b := natsEndpoints(t)

	recA := &recorder{}
	subA, err := a.Subscribe(recA.record)
	require.NoError(t, err)
	defer subA.Unsubscribe()

	recB := &recorder{}
	subB, err := b.Subscribe(recB.record)
	require.NoError(t, err)
	defer subB.Unsubscribe()

	require.NoError(t, a.Peer(b.subject).Deliver([]byte("ping")))
	require.Eventually(t, func() bool { return recB.len() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, recB.last().Source.Deliver([]byte("pong")))
	require.Eventually(t, func() bool { return recA.len() == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, []byte("pong"), recA.last().Data)
	assert.Equal(t, "https://b.example.com", recA.last().Origin)
}

func TestNATSSubscribeRequiresFunc(t *testing.T) {
	a, _ := natsEndpoints(t)
	_, err := a.Subscribe(nil)
	assert.Error(t, err)
}

func TestNATSMessageWithoutHeaders(t *testing.T) {
	_, b := natsEndpoints(t)

	rec := &recorder{}
	sub, err := b.Subscribe(rec.record)
	require.NoError(t, err)
	defer sub.Unsubscribe()

	// Raw publish without relay headers: delivered with empty origin and no
	// reply handle, which the messenger's origin gate then rejects.
	nc := setupNATS(t)
	require.NoError(t, nc.Publish(b.subject, []byte("bare")))

	require.Eventually(t, func() bool { return rec.len() == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Empty(t, rec.last().Origin)
	assert.Nil(t, rec.last().Source)
}
