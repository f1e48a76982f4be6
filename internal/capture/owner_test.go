package capture_test

import (
	"context"
	"errors"
	"screenshot-tests/internal/capture"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestOwnerRun(t *testing.T) {
	o := capture.NewOwner()
	go o.Loop()
	defer o.Close()

	t.Run("SerializesCallers", func(t *testing.T) {
		var wg sync.WaitGroup
		active := 0
		overlap := false
		total := 0
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_ = o.Run(context.Background(), func(ctx context.Context) error {
					active++
					if active > 1 {
						overlap = true
					}
					total++
					active--
					return nil
				})
			}()
		}
		wg.Wait()

		if overlap {
			t.Error("Expected work to run one task at a time")
		}
		if diff := cmp.Diff(20, total); diff != "" {
			t.Errorf("(-want +got):\n%s", diff)
		}
	})

	t.Run("NestedRunIsInline", func(t *testing.T) {
		err := o.Run(context.Background(), func(ctx context.Context) error {
			return o.Run(ctx, func(ctx context.Context) error {
				return errors.New("inner")
			})
		})
		if err == nil || err.Error() != "inner" {
			t.Errorf("Expected inner error, got %v", err)
		}
	})

	t.Run("RecoversPanics", func(t *testing.T) {
		err := o.Run(context.Background(), func(ctx context.Context) error {
			panic("boom")
		})
		if err == nil {
			t.Error("Expected error from panicking task")
		}
		if err := o.Run(context.Background(), func(ctx context.Context) error { return nil }); err != nil {
			t.Errorf("Expected owner to survive panic, got %v", err)
		}
	})
}

func TestOwnerClosed(t *testing.T) {
	o := capture.NewOwner()
	o.Close()

	err := o.Run(context.Background(), func(ctx context.Context) error { return nil })
	if !errors.Is(err, capture.ErrOwnerClosed) {
		t.Errorf("Expected ErrOwnerClosed, got %v", err)
	}
}

func TestOwnerCloseWhileWaiting(t *testing.T) {
	o := capture.NewOwner()
	go o.Loop()

	started := make(chan struct{})
	release := make(chan struct{})
	defer close(release)

	result := make(chan error, 1)
	go func() {
		result <- o.Run(context.Background(), func(ctx context.Context) error {
			close(started)
			<-release
			return nil
		})
	}()

	<-started
	o.Close()
	if err := <-result; !errors.Is(err, capture.ErrOwnerClosed) {
		t.Errorf("Expected ErrOwnerClosed, got %v", err)
	}
}
