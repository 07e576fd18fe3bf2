package slogx

import (
	"fmt"
	"log/slog"
)

// Error returns a slog.Attr with the key "error" and the error's message as
// the value.
func Error(err error) slog.Attr {
	return slog.String("error", err.Error())
}

// ByteString returns a slog.Attr rendering the byte slice as a string. Handy
// for logging raw wire messages.
func ByteString(key string, value []byte) slog.Attr {
	return slog.String(key, string(value))
}

// Stringer returns a slog.Attr with the string representation of the given
// fmt.Stringer value.
func Stringer(key string, value fmt.Stringer) slog.Attr {
	return slog.String(key, value.String())
}
