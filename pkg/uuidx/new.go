package uuidx

import "github.com/google/uuid"

// New returns a fresh v7 UUID. v7 ids are time-ordered, which keeps
// correlation tables and log output roughly chronological for free.
// It panics if the UUID generation fails.
func New() uuid.UUID {
	return uuid.Must(uuid.NewV7())
}

// NewString returns a fresh v7 UUID in its canonical string form.
func NewString() string {
	return New().String()
}
