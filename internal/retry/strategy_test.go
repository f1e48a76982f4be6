package retry_test

import (
	"fmt"
	"math"
	"runtime"
	"screenshot-tests/internal/retry"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func identity(n int64) int64 {
	return n
}

func TestSleep(t *testing.T) {
	type result struct {
		Sleep    time.Duration
		Exceeded bool
	}

	tests := []struct {
		name       string
		receiver   retry.Strategy
		retryCount uint
		want       result
	}{
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			retry.Never{},
			0,
			result{0, true},
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			retry.BackOff{Max: math.MaxInt64},
			0,
			result{0, true},
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			retry.BackOff{Max: math.MaxInt64, MaxRetries: 1},
			0,
			result{0, false},
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			retry.BackOff{Base: time.Second, Max: math.MaxInt64, MaxRetries: 3, Entropy: identity},
			2,
			result{4 * time.Second, false},
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			retry.BackOff{Base: time.Second, Max: time.Second, MaxRetries: 3, Entropy: identity},
			2,
			result{time.Second, false},
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			retry.BackOff{Base: time.Second, Max: math.MaxInt64, MaxRetries: 64, Entropy: identity},
			63,
			result{time.Second, false},
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			retry.BackOff{Base: 100 * time.Second, Max: math.MaxInt64, MaxRetries: 64, Entropy: identity},
			40,
			result{math.MaxInt64, false},
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			retry.StorageBackOff,
			5,
			result{0, true},
		},
	}
	for _, tt := range tests {
		name := tt.name
		receiver := tt.receiver
		retryCount := tt.retryCount
		want := tt.want
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			sleep, exceeded := receiver.Sleep(retryCount)
			if diff := cmp.Diff(want, result{sleep, exceeded}); diff != "" {
				t.Errorf("(-want +got):\n%s", diff)
			}
		})
	}
}

func TestSleepJitter(t *testing.T) {
	b := retry.StorageBackOff
	for n := uint(0); n < b.MaxRetries; n++ {
		sleep, exceeded := b.Sleep(n)
		if exceeded {
			t.Fatalf("retry %d: expected budget to remain", n)
		}
		ceiling := min(b.Base<<n, b.Max)
		if sleep < 0 || sleep >= ceiling {
			t.Errorf("retry %d: sleep %v outside [0, %v)", n, sleep, ceiling)
		}
	}
}
