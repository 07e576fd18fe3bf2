package relay

import (
	"sync"
	"sync/atomic"

	"github.com/casualjim/relay/pkg/stdx"
)

// Future is the deferred result of a confirmable request. Get blocks until
// the matching confirmation envelope arrives and is dispatched, then keeps
// returning the same outcome on every subsequent call.
type Future[T any] interface {
	Get() (T, error)
}

type promise interface {
	complete(string)
	fail(error)
}

type completableFuture[T any] interface {
	Future[T]
	promise
}

type futState struct {
	value string
	err   error
}

type futResult[T any] struct {
	result T
	err    error
	done   bool
}

type future[T any] struct {
	unmarshal func(string) (T, error)
	ch        chan futState
	result    atomic.Value // holds *futResult[T]
	once      sync.Once
	mu        sync.Mutex
}

func newFuture[T any](unmarshal func(string) (T, error)) completableFuture[T] {
	f := &future[T]{
		unmarshal: unmarshal,
		ch:        make(chan futState, 1),
	}
	f.result.Store(&futResult[T]{})
	return f
}

func (f *future[T]) Get() (T, error) {
	res := f.result.Load().(*futResult[T])
	if res.done {
		return res.result, res.err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	// Double-check after acquiring lock
	res = f.result.Load().(*futResult[T])
	if res.done {
		return res.result, res.err
	}

	r := <-f.ch
	var newResult futResult[T]
	if r.err != nil {
		newResult = futResult[T]{
			result: stdx.Zero[T](),
			err:    r.err,
			done:   true,
		}
	} else {
		result, err := f.unmarshal(r.value)
		newResult = futResult[T]{
			result: result,
			err:    err,
			done:   true,
		}
	}
	f.result.Store(&newResult)
	return newResult.result, newResult.err
}

// complete and fail are each effective at most once; whichever lands first
// wins and everything after is a no-op.
func (f *future[T]) complete(data string) {
	f.once.Do(func() {
		f.ch <- futState{value: data}
	})
}

func (f *future[T]) fail(err error) {
	f.once.Do(func() {
		f.ch <- futState{err: err}
	})
}
