package relay

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestConfirmWithoutCallbackIsNoop(t *testing.T) {
	ev := Event{Type: "evt"}
	assert.NoError(t, ev.Confirm(true, map[string]any{"n": 1}))
}

func TestTypedHandler(t *testing.T) {
	type pingPayload struct {
		N int `json:"n"`
	}

	t.Run("unmarshals the payload", func(t *testing.T) {
		var got pingPayload
		h := Typed(func(_ context.Context, p pingPayload, _ Event) {
			got = p
		})
		h(context.Background(), Event{Type: "ping", Payload: gjson.Parse(`{"n":7}`)})
		assert.Equal(t, 7, got.N)
	})

	t.Run("drops payloads with the wrong shape", func(t *testing.T) {
		called := false
		h := Typed(func(_ context.Context, _ pingPayload, _ Event) {
			called = true
		})
		h(context.Background(), Event{Type: "ping", Payload: gjson.Parse(`{"n":"not a number"}`)})
		assert.False(t, called)
	})
}

func TestConfirmationPayload(t *testing.T) {
	t.Run("merges into object extras", func(t *testing.T) {
		payload, err := confirmationPayload(true, map[string]any{"n": 2})
		require.NoError(t, err)
		parsed := gjson.Parse(payload)
		assert.True(t, parsed.Get("success").Bool())
		assert.EqualValues(t, 2, parsed.Get("n").Int())
	})

	t.Run("wraps scalar extras", func(t *testing.T) {
		payload, err := confirmationPayload(false, "nope")
		require.NoError(t, err)
		parsed := gjson.Parse(payload)
		assert.False(t, parsed.Get("success").Bool())
		assert.Equal(t, "nope", parsed.Get("data").String())
	})

	t.Run("nil extra is just the flag", func(t *testing.T) {
		payload, err := confirmationPayload(true, nil)
		require.NoError(t, err)
		assert.Equal(t, `{"success":true}`, payload)
	})
}
