package fence

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"
)

// Fence is a CPU side sync object. It completes once, when signalled, and
// stays completed.
type Fence struct {
	value uint64
	done  chan struct{}
	once  sync.Once
}

// New creates an unsignalled fence.
func New() *Fence {
	return newFence(0)
}

func newFence(value uint64) *Fence {
	return &Fence{
		value: value,
		done:  make(chan struct{}),
	}
}

// Value is the timeline value the fence waits for. Standalone fences have value 0.
func (f *Fence) Value() uint64 {
	return f.value
}

// Signal completes the fence. Signalling twice has no further effect.
func (f *Fence) Signal() {
	f.once.Do(func() {
		close(f.done)
	})
}

func (f *Fence) HasCompleted() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

func (f *Fence) WaitUntilCompleted() {
	<-f.done
}

// Wait blocks until the fence completes or ctx is done.
func (f *Fence) Wait(ctx context.Context) error {
	select {
	case <-f.done:
		return nil
	case <-ctx.Done():
		return errors.Wrapf(ctx.Err(), "waiting for fence %d", f.value)
	}
}

// Done returns a channel that is closed when the fence completes.
func (f *Fence) Done() <-chan struct{} {
	return f.done
}
