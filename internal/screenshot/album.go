package screenshot

import (
	"context"
	"screenshot-tests/internal/capture"
	"screenshot-tests/internal/hierarchy"
	"screenshot-tests/internal/metadata"
	"screenshot-tests/internal/storage"

	"github.com/go-logr/logr"
)

// Album is the recording session of one test process. Tiles, dumps and
// metadata.json all land in the same storage.
type Album struct {
	Coordinator *capture.Coordinator
	Store       *metadata.Store
	Storage     storage.Storage
	Dumper      *hierarchy.Dumper
	Log         logr.Logger
}

func NewAlbum(s storage.Storage, owner *capture.Owner) *Album {
	return &Album{
		Coordinator: capture.NewCoordinator(s, owner),
		Store:       metadata.NewStore(s),
		Storage:     s,
		Dumper:      hierarchy.NewDumper(),
		Log:         logr.Discard(),
	}
}

// WithLogger sets l on the album and everything it owns.
func (a *Album) WithLogger(l logr.Logger) *Album {
	a.Log = l
	a.Coordinator.Log = l.WithName("capture")
	a.Store.Log = l.WithName("metadata")
	return a
}

// Snap starts describing a screenshot of surface. Nothing is captured until
// Record is called on the returned builder.
func (a *Album) Snap(surface capture.Surface) *RecordBuilder {
	return &RecordBuilder{
		album:     a,
		surface:   surface,
		maxPixels: a.Coordinator.MaxPixels,
	}
}

// Flush writes metadata.json.
func (a *Album) Flush(ctx context.Context) error {
	return a.Store.Flush(ctx)
}

func (a *Album) run(ctx context.Context, fn func(ctx context.Context) error) error {
	if a.Coordinator.Owner == nil {
		return fn(ctx)
	}
	return a.Coordinator.Owner.Run(ctx, fn)
}
