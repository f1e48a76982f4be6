package verify_test

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	diffimage "screenshot-tests/internal/diff/image"
	"screenshot-tests/internal/metadata"
	"screenshot-tests/internal/storage"
	"screenshot-tests/internal/verify"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type fixture struct {
	recorded  storage.Storage
	reference storage.Storage
	failures  storage.Storage
	verifier  *verify.Verifier
}

func newFixture(method diffimage.Method) *fixture {
	f := &fixture{
		recorded:  storage.NewMemoryStorage(),
		reference: storage.NewMemoryStorage(),
		failures:  storage.NewMemoryStorage(),
	}
	f.verifier = verify.NewVerifier(f.recorded, f.reference, f.failures, method)
	return f
}

func (f *fixture) put(t *testing.T, s storage.Storage, key string, img image.Image) {
	t.Helper()
	var buffer bytes.Buffer
	if err := png.Encode(&buffer, img); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Put(context.Background(), key, buffer.Bytes()); err != nil {
		t.Fatal(err)
	}
}

func solid(width int, height int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func record(name string) metadata.Record {
	return metadata.Record{Name: name, TestClass: "T", TestName: name, TileWidth: 1, TileHeight: 1}
}

var (
	white = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	black = color.NRGBA{A: 255}
)

func TestVerify(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		f := newFixture(diffimage.DefaultMethod())
		f.put(t, f.recorded, "a.png", solid(8, 8, white))
		f.put(t, f.reference, "a.png", solid(8, 8, white))
		if _, err := f.failures.Put(ctx, "stale_expected.png", []byte("old")); err != nil {
			t.Fatal(err)
		}

		got, err := f.verifier.Verify(ctx, []metadata.Record{record("a")})
		if err != nil {
			t.Fatalf("Verify failed: %v", err)
		}
		if diff := cmp.Diff(&verify.Outcome{Kind: verify.Success}, got); diff != "" {
			t.Errorf("(-want +got):\n%s", diff)
		}
		keys, err := storage.List(ctx, f.failures)
		if err != nil {
			t.Fatal(err)
		}
		if len(keys) != 0 {
			t.Errorf("Expected failure storage to be cleared, got %v", keys)
		}
	})

	t.Run("Mismatch", func(t *testing.T) {
		f := newFixture(diffimage.DefaultMethod())
		changed := solid(8, 8, white)
		changed.SetNRGBA(3, 3, black)
		f.put(t, f.recorded, "a.png", changed)
		f.put(t, f.reference, "a.png", solid(8, 8, white))
		f.put(t, f.recorded, "b.png", solid(4, 4, black))
		f.put(t, f.reference, "b.png", solid(4, 4, black))

		got, err := f.verifier.Verify(ctx, []metadata.Record{record("a"), record("b")})
		if err != nil {
			t.Fatalf("Verify failed: %v", err)
		}
		if got.Kind != verify.Mismatch {
			t.Fatalf("Expected Mismatch, got %v", got.Kind)
		}
		if len(got.Items) != 1 || got.Items[0].Key != "a" || got.Items[0].Difference <= 0 {
			t.Errorf("Unexpected mismatch items %+v", got.Items)
		}

		keys, err := storage.List(ctx, f.failures)
		if err != nil {
			t.Fatal(err)
		}
		want := []string{"a_actual.png", "a_diff_border.png", "a_diff_red.png", "a_expected.png"}
		if diff := cmp.Diff(want, keys); diff != "" {
			t.Errorf("(-want +got):\n%s", diff)
		}
	})

	t.Run("DimensionMismatch", func(t *testing.T) {
		f := newFixture(diffimage.DefaultMethod())
		f.put(t, f.recorded, "a.png", solid(8, 9, white))
		f.put(t, f.reference, "a.png", solid(8, 8, white))

		got, err := f.verifier.Verify(ctx, []metadata.Record{record("a")})
		if err != nil {
			t.Fatalf("Verify failed: %v", err)
		}
		want := &verify.Outcome{Kind: verify.Mismatch, Items: []verify.MismatchItem{{Key: "a", Difference: diffimage.MaxDifference}}}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("(-want +got):\n%s", diff)
		}
	})

	t.Run("MissingImages", func(t *testing.T) {
		f := newFixture(diffimage.DefaultMethod())
		f.put(t, f.recorded, "a.png", solid(2, 2, white))
		f.put(t, f.reference, "a.png", solid(2, 2, white))
		f.put(t, f.recorded, "b.png", solid(2, 2, white))
		f.put(t, f.reference, "c.png", solid(2, 2, white))
		if _, err := f.failures.Put(ctx, "kept.png", []byte("x")); err != nil {
			t.Fatal(err)
		}

		_, err := f.verifier.Verify(ctx, []metadata.Record{record("a"), record("b"), record("c")})
		var missing *verify.MissingImageError
		if !errors.As(err, &missing) {
			t.Fatalf("Expected MissingImageError, got %v", err)
		}
		if diff := cmp.Diff([]string{"b", "c"}, missing.Names); diff != "" {
			t.Errorf("(-want +got):\n%s", diff)
		}
		if ok, _ := storage.Exists(ctx, f.failures, "kept.png"); !ok {
			t.Error("Expected failure storage to be left untouched")
		}
	})

	t.Run("NoImages", func(t *testing.T) {
		f := newFixture(diffimage.DefaultMethod())
		failed := record("broken")
		failed.Error = "failed to capture broken: View too large: (1, 100000000)"

		got, err := f.verifier.Verify(ctx, []metadata.Record{failed})
		if err != nil {
			t.Fatalf("Verify failed: %v", err)
		}
		if diff := cmp.Diff(&verify.Outcome{Kind: verify.NoImages}, got); diff != "" {
			t.Errorf("(-want +got):\n%s", diff)
		}
	})

	t.Run("ExtraReferenceIgnored", func(t *testing.T) {
		f := newFixture(diffimage.RMS(0))
		f.put(t, f.recorded, "a.png", solid(2, 2, white))
		f.put(t, f.reference, "a.png", solid(2, 2, white))
		f.put(t, f.reference, "orphan.png", solid(2, 2, black))

		got, err := f.verifier.Verify(ctx, []metadata.Record{record("a")})
		if err != nil {
			t.Fatalf("Verify failed: %v", err)
		}
		if got.Kind != verify.Success {
			t.Errorf("Expected Success, got %v", got.Kind)
		}
	})

	t.Run("HierarchyDiff", func(t *testing.T) {
		f := newFixture(diffimage.DefaultMethod())
		r := record("a")
		r.ViewHierarchy = "a_dump.json"
		f.put(t, f.recorded, "a.png", solid(2, 2, white))
		f.put(t, f.reference, "a.png", solid(2, 2, black))
		if _, err := f.recorded.Put(ctx, r.ViewHierarchy, []byte("{\n  \"version\": 1,\n  \"x\": 2\n}")); err != nil {
			t.Fatal(err)
		}
		if _, err := f.reference.Put(ctx, r.ViewHierarchy, []byte("{\n  \"version\": 1,\n  \"x\": 1\n}")); err != nil {
			t.Fatal(err)
		}

		if _, err := f.verifier.Verify(ctx, []metadata.Record{r}); err != nil {
			t.Fatalf("Verify failed: %v", err)
		}
		if ok, _ := storage.Exists(ctx, f.failures, "a_dump.diff"); !ok {
			t.Error("Expected a_dump.diff to be written")
		}
	})
}

func TestRecord(t *testing.T) {
	ctx := context.Background()
	f := newFixture(diffimage.DefaultMethod())

	r := metadata.Record{Name: "tall", TileWidth: 1, TileHeight: 2, ViewHierarchy: "tall_dump.json"}
	f.put(t, f.recorded, "tall.png", solid(3, 2, white))
	f.put(t, f.recorded, "tall_0_1.png", solid(3, 1, black))
	if _, err := f.recorded.Put(ctx, r.ViewHierarchy, []byte(`{"version":1}`)); err != nil {
		t.Fatal(err)
	}
	failed := record("failed")
	failed.Error = "boom"

	if err := f.verifier.Record(ctx, []metadata.Record{r, failed}); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	img, err := verify.LoadReference(ctx, f.reference, "tall")
	if err != nil {
		t.Fatalf("LoadReference failed: %v", err)
	}
	if diff := cmp.Diff(image.Rect(0, 0, 3, 3), img.Bounds()); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
	if ok, _ := storage.Exists(ctx, f.reference, "tall_dump.json"); !ok {
		t.Error("Expected dump to be copied into reference storage")
	}
	if ok, _ := storage.Exists(ctx, f.reference, "failed.png"); ok {
		t.Error("Expected failed record to be skipped")
	}

	outcome, err := f.verifier.Verify(ctx, []metadata.Record{r})
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if outcome.Kind != verify.Success {
		t.Errorf("Expected Success after Record, got %v", outcome.Kind)
	}
}
