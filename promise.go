package tapz

import "context"

// Promise is the settled-later outcome of a PromiseStyle invocation.
// It settles exactly once: fulfilled with the waterfall result, or
// rejected with the error that stopped it.
type Promise[T any] struct {
	err   error
	done  chan struct{}
	value T
}

func newPromise[T any]() *Promise[T] {
	return &Promise[T]{done: make(chan struct{})}
}

// rejected returns a promise that is already rejected with err.
func rejected[T any](err error) *Promise[T] {
	p := newPromise[T]()
	var zero T
	p.settle(zero, err)
	return p
}

func (p *Promise[T]) settle(value T, err error) {
	p.value = value
	p.err = err
	close(p.done)
}

// Done returns a channel that is closed once the promise settles.
func (p *Promise[T]) Done() <-chan struct{} {
	return p.done
}

// Await blocks until the promise settles or ctx is done.
// Giving up on ctx does not stop the taps; they always run to completion.
func (p *Promise[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-p.done:
		return p.value, p.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Then calls onFulfilled or onRejected on a new goroutine once the promise
// settles. Either callback may be nil.
func (p *Promise[T]) Then(onFulfilled func(T), onRejected func(error)) {
	go func() {
		<-p.done
		if p.err != nil {
			if onRejected != nil {
				onRejected(p.err)
			}
			return
		}
		if onFulfilled != nil {
			onFulfilled(p.value)
		}
	}()
}
