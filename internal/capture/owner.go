package capture

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"runtime/debug"
	"sync"
)

var ErrOwnerClosed = errors.New("surface owner is closed")

type ownerContextKey struct{}

type task struct {
	ctx    context.Context
	fn     func(ctx context.Context) error
	result chan error
}

// Owner serializes work onto the single goroutine that owns rendering
// surfaces. Work submitted from any other goroutine is handed over and the
// caller blocks until it finishes.
type Owner struct {
	tasks     chan task
	done      chan struct{}
	closeOnce sync.Once
}

func NewOwner() *Owner {
	return &Owner{
		tasks: make(chan task),
		done:  make(chan struct{}),
	}
}

// Loop executes submitted work until Close is called. It locks the calling
// goroutine to its OS thread for the duration.
func (o *Owner) Loop() {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	for {
		select {
		case t := <-o.tasks:
			t.result <- o.execute(t)
		case <-o.done:
			return
		}
	}
}

func (o *Owner) Close() {
	o.closeOnce.Do(func() {
		close(o.done)
	})
}

// Run executes fn on the owner goroutine. Calls made from the owner itself run
// inline. Only Close aborts the wait; ctx is handed to fn untouched.
func (o *Owner) Run(ctx context.Context, fn func(ctx context.Context) error) error {
	if owner, ok := ctx.Value(ownerContextKey{}).(*Owner); ok && owner == o {
		return fn(ctx)
	}

	t := task{
		ctx:    ctx,
		fn:     fn,
		result: make(chan error, 1),
	}

	select {
	case o.tasks <- t:
	case <-o.done:
		return ErrOwnerClosed
	}

	return o.await(t)
}

// await blocks until t finishes or the owner closes. A result that is already
// available wins over a concurrent Close.
func (o *Owner) await(t task) error {
	select {
	case err := <-t.result:
		return err
	case <-o.done:
		select {
		case err := <-t.result:
			return err
		default:
			return ErrOwnerClosed
		}
	}
}

func (o *Owner) execute(t task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic on surface owner: %v\n%s", r, debug.Stack())
		}
	}()

	return t.fn(context.WithValue(t.ctx, ownerContextKey{}, o))
}
