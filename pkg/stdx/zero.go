package stdx

// Zero returns the zero value for T.
func Zero[T any]() T {
	var zero T
	return zero
}
