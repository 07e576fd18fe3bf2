package relay

import (
	"log/slog"
	"time"

	"github.com/fogfish/opts"
)

var (
	// Name sets the human-readable identity stamped on every outbound
	// envelope. Defaults to "relay".
	Name = opts.ForName[Messenger, string]("name")

	// Channel namespaces every event type as "<channel>:<type>" on the wire
	// and in the dispatch table, so unrelated messengers can share one
	// transport. Inbound envelopes outside the channel are ignored entirely.
	Channel = opts.ForName[Messenger, string]("channel")

	// Debug enables trace output for every send, receive and confirmation.
	// It never alters control flow.
	Debug = opts.ForName[Messenger, bool]("debug")

	// Logger replaces the default slog logger.
	Logger = opts.ForName[Messenger, *slog.Logger]("log")

	// RequestTimeout bounds how long a confirmable request stays pending.
	// When it expires the correlation entry is evicted and the future fails
	// with ErrRequestTimeout. Zero (the default) means pending forever.
	RequestTimeout = opts.ForName[Messenger, time.Duration]("requestTimeout")

	// StrictOrigin switches origin gating from prefix match to exact match.
	StrictOrigin = opts.ForName[Messenger, bool]("strictOrigin")
)
