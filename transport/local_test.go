package transport

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu       sync.Mutex
	messages []Message
}

func (r *recorder) record(msg Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, msg)
}

func (r *recorder) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.messages)
}

func (r *recorder) last() Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.messages[len(r.messages)-1]
}

func TestPairDelivery(t *testing.T) {
	a, b := Pair("https://a.example.com", "https://b.example.com")

	rec := &recorder{}
	sub, err := b.Subscribe(rec.record)
	require.NoError(t, err)
	defer sub.Unsubscribe()

	require.NoError(t, a.Remote().Deliver([]byte("hello")))

	require.Eventually(t, func() bool { return rec.len() == 1 }, time.Second, 5*time.Millisecond)
	msg := rec.last()
	assert.Equal(t, []byte("hello"), msg.Data)
	assert.Equal(t, "https://a.example.com", msg.Origin)
	require.NotNil(t, msg.Source)
}

func TestPairReplyViaSource(t *testing.T) {
	a, b := Pair("https://a.example.com", "https://b.example.com")

	recA := &recorder{}
	subA, err := a.Subscribe(recA.record)
	require.NoError(t, err)
	defer subA.Unsubscribe()

	recB := &recorder{}
	subB, err := b.Subscribe(recB.record)
	require.NoError(t, err)
	defer subB.Unsubscribe()

	require.NoError(t, a.Remote().Deliver([]byte("ping")))
	require.Eventually(t, func() bool { return recB.len() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, recB.last().Source.Deliver([]byte("pong")))
	require.Eventually(t, func() bool { return recA.len() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []byte("pong"), recA.last().Data)
	assert.Equal(t, "https://b.example.com", recA.last().Origin)
}

func TestMultipleSubscribersShareOneEndpoint(t *testing.T) {
	a, b := Pair("https://a.example.com", "https://b.example.com")

	rec1 := &recorder{}
	rec2 := &recorder{}
	sub1, err := b.Subscribe(rec1.record)
	require.NoError(t, err)
	defer sub1.Unsubscribe()
	sub2, err := b.Subscribe(rec2.record)
	require.NoError(t, err)
	defer sub2.Unsubscribe()

	assert.NotEqual(t, sub1.ID(), sub2.ID())

	require.NoError(t, a.Remote().Deliver([]byte("broadcast")))
	require.Eventually(t, func() bool { return rec1.len() == 1 && rec2.len() == 1 }, time.Second, 5*time.Millisecond)
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	a, b := Pair("https://a.example.com", "https://b.example.com")

	rec := &recorder{}
	sub, err := b.Subscribe(rec.record)
	require.NoError(t, err)

	sub.Unsubscribe()
	sub.Unsubscribe() // idempotent

	require.NoError(t, a.Remote().Deliver([]byte("into the void")))
	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, rec.len())
}

func TestSubscribeRequiresFunc(t *testing.T) {
	a, _ := Pair("https://a.example.com", "https://b.example.com")
	_, err := a.Subscribe(nil)
	assert.Error(t, err)
}
