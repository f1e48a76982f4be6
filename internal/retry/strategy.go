package retry

import (
	"math"
	"math/rand"
	"time"
)

// Strategy reports how long to wait before the given retry and whether the
// retry budget is exhausted.
type Strategy interface {
	Sleep(retryCount uint) (time.Duration, bool)
}

// Never gives up on the first failure.
type Never struct{}

func (Never) Sleep(uint) (time.Duration, bool) {
	return 0, true
}

// BackOff waits a random duration below min(Base*2^n, Max) before retry n,
// for at most MaxRetries retries.
type BackOff struct {
	Base       time.Duration
	Max        time.Duration
	MaxRetries uint
	// Entropy returns a value in [0, n). Defaults to rand.Int63n.
	Entropy func(n int64) int64
}

// StorageBackOff is the policy used for remote storage calls unless
// configured otherwise.
var StorageBackOff = BackOff{
	Base:       100 * time.Millisecond,
	Max:        5 * time.Second,
	MaxRetries: 5,
}

func (b BackOff) Sleep(retryCount uint) (time.Duration, bool) {
	if retryCount >= b.MaxRetries {
		return 0, true
	}

	ceiling := b.ceiling(retryCount)
	if ceiling <= 0 {
		return 0, false
	}
	entropy := b.Entropy
	if entropy == nil {
		entropy = rand.Int63n
	}
	return time.Duration(entropy(ceiling)), false
}

func (b BackOff) ceiling(retryCount uint) int64 {
	limit := int64(b.Max)
	if retryCount >= 63 || b.Base <= 0 {
		return min(limit, max(int64(b.Base), 0))
	}
	factor := int64(1) << retryCount
	if int64(b.Base) > math.MaxInt64/factor {
		return limit
	}
	return min(int64(b.Base)*factor, limit)
}
