package store

import "context"

// Intent is a handle to an operation issued against the store. The outcome
// is also recorded in the affected slice; the handle only lets callers wait.
type Intent struct {
	done chan struct{}
	err  error
}

func newIntent() *Intent {
	return &Intent{done: make(chan struct{})}
}

func (i *Intent) finish(err error) {
	i.err = err
	close(i.done)
}

// Done is closed once the intent has settled and its slice was updated.
func (i *Intent) Done() <-chan struct{} {
	return i.done
}

// Wait blocks until the intent settles or ctx is done. It returns the
// settlement error, or ctx.Err() if ctx ended first.
func (i *Intent) Wait(ctx context.Context) error {
	select {
	case <-i.done:
		return i.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Err returns the settlement error, or nil while the intent is in flight.
func (i *Intent) Err() error {
	select {
	case <-i.done:
		return i.err
	default:
		return nil
	}
}
