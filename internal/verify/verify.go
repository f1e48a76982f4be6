package verify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"runtime"
	"screenshot-tests/internal/artifact"
	diffimage "screenshot-tests/internal/diff/image"
	"screenshot-tests/internal/metadata"
	"screenshot-tests/internal/storage"
	"screenshot-tests/internal/tiling"

	"github.com/go-logr/logr"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"golang.org/x/xerrors"
)

var tracer = otel.Tracer("screenshot-tests/verify")

type Verifier struct {
	// Recorded holds the tiles, dumps and metadata of the latest capture run.
	Recorded  storage.Storage
	Reference storage.Storage
	Failures  *artifact.Writer
	Method    diffimage.Method
	Log       logr.Logger
}

func NewVerifier(recorded storage.Storage, reference storage.Storage, failures storage.Storage, method diffimage.Method) *Verifier {
	return &Verifier{
		Recorded:  recorded,
		Reference: reference,
		Failures:  artifact.NewWriter(failures),
		Method:    method,
		Log:       logr.Discard(),
	}
}

type pair struct {
	record    metadata.Record
	reference image.Image
	recorded  image.Image
}

// Verify compares every successfully captured record against its reference
// image. Reference images without a record are ignored.
func (v *Verifier) Verify(ctx context.Context, records []metadata.Record) (*Outcome, error) {
	ctx, span := tracer.Start(ctx, "Verify", trace.WithAttributes(
		attribute.String("method", string(v.Method.Kind)),
		attribute.Int("records", len(records)),
	))
	defer span.End()

	var comparable []metadata.Record
	for _, r := range records {
		if r.Failed() {
			v.Log.Info("skipping screenshot that failed to capture", "name", r.Name, "error", r.Error)
			continue
		}
		comparable = append(comparable, r)
	}

	pairs, err := v.load(ctx, comparable)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	if err := v.Failures.Clear(ctx); err != nil {
		return nil, xerrors.Errorf("failed to prepare failure storage: %w", err)
	}

	if len(pairs) == 0 {
		return &Outcome{Kind: NoImages}, nil
	}

	scores := make([]float64, len(pairs))
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(runtime.GOMAXPROCS(0))
	for i, p := range pairs {
		eg.Go(func() error {
			scores[i] = v.Method.Compare(p.reference, p.recorded)
			if !v.Method.Exceeds(scores[i]) {
				return nil
			}
			v.Log.Info("Image has changed", "key", p.record.Name, "difference", scores[i])
			return v.writeArtifacts(ctx, p)
		})
	}
	if err := eg.Wait(); err != nil {
		span.RecordError(err)
		return nil, xerrors.Errorf("failed to write diff artifacts: %w", err)
	}

	var items []MismatchItem
	for i, p := range pairs {
		if v.Method.Exceeds(scores[i]) {
			items = append(items, MismatchItem{Key: p.record.Name, Difference: scores[i]})
		}
	}
	span.SetAttributes(attribute.Int("mismatches", len(items)))

	if len(items) > 0 {
		return &Outcome{Kind: Mismatch, Items: items}, nil
	}
	return &Outcome{Kind: Success}, nil
}

func (v *Verifier) load(ctx context.Context, records []metadata.Record) ([]pair, error) {
	pairs := make([]pair, len(records))
	missing := make([]bool, len(records))

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(runtime.GOMAXPROCS(0))
	for i, r := range records {
		pairs[i].record = r
		eg.Go(func() error {
			reference, err := LoadReference(ctx, v.Reference, r.Name)
			if err != nil && !errors.Is(err, storage.ErrNotFound) {
				return err
			}
			recorded, rerr := LoadRecorded(ctx, v.Recorded, r)
			if rerr != nil && !errors.Is(rerr, storage.ErrNotFound) {
				return rerr
			}
			if reference == nil || recorded == nil {
				missing[i] = true
				return nil
			}
			pairs[i].reference = reference
			pairs[i].recorded = recorded
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, xerrors.Errorf("failed to load images: %w", err)
	}

	var names []string
	for i, m := range missing {
		if m {
			names = append(names, records[i].Name)
		}
	}
	if len(names) > 0 {
		return nil, &MissingImageError{Names: names}
	}
	return pairs, nil
}

func (v *Verifier) writeArtifacts(ctx context.Context, p pair) error {
	if err := v.Failures.Write(ctx, p.record.Name, p.reference, p.recorded, v.Method); err != nil {
		return err
	}
	if p.record.ViewHierarchy == "" {
		return nil
	}

	recorded, err := v.Recorded.Get(ctx, p.record.ViewHierarchy)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil
		}
		return err
	}
	reference, err := v.Reference.Get(ctx, p.record.ViewHierarchy)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil
		}
		return err
	}
	return v.Failures.WriteHierarchyDiff(ctx, p.record.Name, reference, recorded)
}

// Record writes the assembled image of every successfully captured record,
// and its hierarchy dump when present, into the reference storage.
func (v *Verifier) Record(ctx context.Context, records []metadata.Record) error {
	ctx, span := tracer.Start(ctx, "Record", trace.WithAttributes(attribute.Int("records", len(records))))
	defer span.End()

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(runtime.GOMAXPROCS(0))
	for _, r := range records {
		if r.Failed() {
			continue
		}
		eg.Go(func() error {
			img, err := LoadRecorded(ctx, v.Recorded, r)
			if err != nil {
				return err
			}

			var buffer bytes.Buffer
			if err := png.Encode(&buffer, img); err != nil {
				return fmt.Errorf("failed to encode %s: %w", r.Name, err)
			}
			if _, err := v.Reference.Put(ctx, tiling.FileName(r.Name), buffer.Bytes()); err != nil {
				return err
			}

			if r.ViewHierarchy != "" {
				dump, err := v.Recorded.Get(ctx, r.ViewHierarchy)
				if err != nil && !errors.Is(err, storage.ErrNotFound) {
					return err
				}
				if err == nil {
					if _, err := v.Reference.Put(ctx, r.ViewHierarchy, dump); err != nil {
						return err
					}
				}
			}

			v.Log.V(1).Info("recorded reference image", "name", r.Name)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		span.RecordError(err)
		return xerrors.Errorf("failed to record reference images: %w", err)
	}
	return nil
}

// LoadReference decodes {name}.png from s.
func LoadReference(ctx context.Context, s storage.Storage, name string) (image.Image, error) {
	data, err := s.Get(ctx, tiling.FileName(name))
	if err != nil {
		return nil, err
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", tiling.FileName(name), err)
	}
	return img, nil
}

// LoadRecorded reassembles the tiles of r stored in s.
func LoadRecorded(ctx context.Context, s storage.Storage, r metadata.Record) (*image.NRGBA, error) {
	if r.TileWidth < 1 || r.TileHeight < 1 {
		return nil, fmt.Errorf("record %s has an empty tiling %dx%d", r.Name, r.TileWidth, r.TileHeight)
	}
	return tiling.Assemble(ctx, tiling.Restore(r.Name, r.TileWidth, r.TileHeight), func(ctx context.Context, name string) (image.Image, error) {
		return LoadReference(ctx, s, name)
	})
}
