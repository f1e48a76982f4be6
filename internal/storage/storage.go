package storage

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound is wrapped by Get when nothing is stored under the key.
var ErrNotFound = errors.New("not found")

type Storage interface {
	// Put stores data with the given key and returns the storage URL
	Put(ctx context.Context, key string, data []byte) (string, error)
	// Get retrieves the data stored with the given key
	Get(ctx context.Context, key string) ([]byte, error)
}

// Clearer is implemented by backends that can drop everything they hold.
type Clearer interface {
	Clear(ctx context.Context) error
}

// Lister is implemented by backends that can enumerate their keys.
type Lister interface {
	List(ctx context.Context) ([]string, error)
}

func Clear(ctx context.Context, s Storage) error {
	c, ok := s.(Clearer)
	if !ok {
		return fmt.Errorf("storage %T does not support clearing", s)
	}
	return c.Clear(ctx)
}

func List(ctx context.Context, s Storage) ([]string, error) {
	l, ok := s.(Lister)
	if !ok {
		return nil, fmt.Errorf("storage %T does not support listing", s)
	}
	return l.List(ctx)
}

// Exists reports whether key is present, treating any error other than
// ErrNotFound as a failure.
func Exists(ctx context.Context, s Storage, key string) (bool, error) {
	if _, err := s.Get(ctx, key); err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
