package stdx

// Must0 panics if the provided error is not nil. For call sites where an
// error genuinely cannot occur.
func Must0(err error) {
	if err != nil {
		panic(err)
	}
}

// Must1 returns the value if err is nil and panics otherwise.
func Must1[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}
