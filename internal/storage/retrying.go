package storage

import (
	"context"
	"screenshot-tests/internal/retry"

	"github.com/go-logr/logr"
)

type retryingStorage struct {
	base     Storage
	strategy retry.Strategy
	on       *retry.On
	log      logr.Logger
}

// WithRetry retries failed calls on base according to strategy and on.
func WithRetry(base Storage, strategy retry.Strategy, on *retry.On, log logr.Logger) Storage {
	return &retryingStorage{
		base:     base,
		strategy: strategy,
		on:       on,
		log:      log,
	}
}

func (r *retryingStorage) do(ctx context.Context, op string, key string, fn func(ctx context.Context) error) error {
	attempt := 0
	return retry.Do(ctx, r.strategy, r.on, func(ctx context.Context) error {
		attempt++
		err := fn(ctx)
		if err != nil {
			r.log.V(1).Info("storage call failed", "op", op, "key", key, "attempt", attempt, "error", err.Error())
		}
		return err
	})
}

func (r *retryingStorage) Put(ctx context.Context, key string, data []byte) (string, error) {
	var url string
	err := r.do(ctx, "put", key, func(ctx context.Context) error {
		var err error
		url, err = r.base.Put(ctx, key, data)
		return err
	})
	return url, err
}

func (r *retryingStorage) Get(ctx context.Context, key string) ([]byte, error) {
	var data []byte
	err := r.do(ctx, "get", key, func(ctx context.Context) error {
		var err error
		data, err = r.base.Get(ctx, key)
		return err
	})
	return data, err
}

func (r *retryingStorage) Clear(ctx context.Context) error {
	return r.do(ctx, "clear", "", func(ctx context.Context) error {
		return Clear(ctx, r.base)
	})
}

func (r *retryingStorage) List(ctx context.Context) ([]string, error) {
	var keys []string
	err := r.do(ctx, "list", "", func(ctx context.Context) error {
		var err error
		keys, err = List(ctx, r.base)
		return err
	})
	return keys, err
}
