package artifact

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	diffimage "screenshot-tests/internal/diff/image"
	"screenshot-tests/internal/diff/text"
	"screenshot-tests/internal/storage"

	"github.com/fogleman/gg"
	"github.com/go-logr/logr"
)

const borderWidth = 5

type output struct {
	suffix string
	render func() image.Image
}

// Writer materializes the diff artifacts of mismatched screenshots into the
// failure storage.
type Writer struct {
	Storage storage.Storage
	Log     logr.Logger
}

func NewWriter(s storage.Storage) *Writer {
	return &Writer{
		Storage: s,
		Log:     logr.Discard(),
	}
}

// Clear empties the failure storage.
func (w *Writer) Clear(ctx context.Context) error {
	if err := storage.Clear(ctx, w.Storage); err != nil {
		return fmt.Errorf("failed to clear failure storage: %w", err)
	}
	return nil
}

// Write stores {key}_expected.png and {key}_actual.png and, unless method is
// exact, {key}_diff_red.png and {key}_diff_border.png.
func (w *Writer) Write(ctx context.Context, key string, reference image.Image, incoming image.Image, method diffimage.Method) error {
	outputs := []output{
		{"_expected", func() image.Image { return reference }},
		{"_actual", func() image.Image { return incoming }},
	}
	if method.Kind != diffimage.KindExact {
		outputs = append(outputs,
			output{"_diff_red", func() image.Image { return diffimage.RedHighlight(reference, incoming) }},
			output{"_diff_border", func() image.Image { return Border(reference, incoming) }},
		)
	}

	for _, o := range outputs {
		if err := w.put(ctx, key+o.suffix+".png", o.render()); err != nil {
			return err
		}
	}

	w.Log.V(1).Info("wrote diff artifacts", "key", key, "count", len(outputs))
	return nil
}

// WriteHierarchyDiff stores a line diff of two hierarchy dumps as {key}_dump.diff.
func (w *Writer) WriteHierarchyDiff(ctx context.Context, key string, reference []byte, recorded []byte) error {
	differ := &text.LineDiff{
		BaselineLabel: "reference/" + key + "_dump.json",
		TargetLabel:   "recorded/" + key + "_dump.json",
	}
	result, err := differ.Calculate(reference, recorded)
	if err != nil {
		return fmt.Errorf("failed to diff hierarchy of %s: %w", key, err)
	}
	if !result.Changed() {
		return nil
	}

	if _, err := w.Storage.Put(ctx, key+"_dump.diff", result.Diff); err != nil {
		return fmt.Errorf("failed to write hierarchy diff of %s: %w", key, err)
	}
	return nil
}

// Border draws a red rectangle around every pixel of incoming that differs
// from reference. Incoming is returned unmarked when nothing differs.
func Border(reference image.Image, incoming image.Image) image.Image {
	dc := gg.NewContextForImage(incoming)

	bounds, ok := diffimage.DiffBounds(reference, incoming)
	if !ok {
		return dc.Image()
	}

	dc.SetRGB(1, 0, 0)
	dc.SetLineWidth(borderWidth)
	dc.DrawRectangle(float64(bounds.Min.X), float64(bounds.Min.Y), float64(bounds.Dx()), float64(bounds.Dy()))
	dc.Stroke()
	return dc.Image()
}

func (w *Writer) put(ctx context.Context, name string, img image.Image) error {
	var buffer bytes.Buffer
	if err := png.Encode(&buffer, img); err != nil {
		return fmt.Errorf("failed to encode %s: %w", name, err)
	}
	if _, err := w.Storage.Put(ctx, name, buffer.Bytes()); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	return nil
}
