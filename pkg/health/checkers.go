package health

import (
	"context"
	"runtime"

	"github.com/go-faster/errors"
)

// Pinger is implemented by the backend client.
type Pinger interface {
	Ping(ctx context.Context) error
}

// BackendCheck fails while the REST backend does not answer.
func BackendCheck(p Pinger) CheckFunc {
	return func(ctx context.Context) error {
		if err := p.Ping(ctx); err != nil {
			return errors.Wrap(err, "backend")
		}
		return nil
	}
}

// GoroutineCountCheck fails when more than threshold goroutines run. Every
// store intent holds one until it settles, so a stuck backend shows up here.
func GoroutineCountCheck(threshold int) CheckFunc {
	return func(context.Context) error {
		if n := runtime.NumGoroutine(); n > threshold {
			return errors.Errorf("%d goroutines exceed threshold %d", n, threshold)
		}
		return nil
	}
}
