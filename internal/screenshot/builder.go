package screenshot

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"screenshot-tests/internal/capture"
	"screenshot-tests/internal/hierarchy"
	"screenshot-tests/internal/metadata"
	"screenshot-tests/internal/tiling"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/xerrors"
)

var ErrAlreadyRecorded = errors.New("screenshot has already been recorded")

// HierarchySurface is a surface that can report the document it renders.
type HierarchySurface interface {
	capture.Surface
	Hierarchy(ctx context.Context) (*html.Node, error)
}

type InvalidNameError struct {
	Name   string
	Reason string
}

func (e *InvalidNameError) Error() string {
	return fmt.Sprintf("invalid screenshot name %q: %s", e.Name, e.Reason)
}

// RecordBuilder collects the attributes of one screenshot.
type RecordBuilder struct {
	album   *Album
	surface capture.Surface

	name        string
	description string
	group       string
	extras      metadata.Extras
	maxPixels   int
	includeAx   bool
	testClass   string
	testName    string

	err      error
	recorded bool
}

// SetName overrides the default {testClass}_{testName} name. The name must be
// Latin-1 and must not contain a path separator.
func (b *RecordBuilder) SetName(name string) *RecordBuilder {
	if err := validateName(name); err != nil {
		b.err = err
		return b
	}
	b.name = name
	return b
}

func (b *RecordBuilder) SetDescription(description string) *RecordBuilder {
	b.description = description
	return b
}

func (b *RecordBuilder) AddExtra(key string, value string) *RecordBuilder {
	b.extras = b.extras.Set(key, value)
	return b
}

func (b *RecordBuilder) SetGroup(group string) *RecordBuilder {
	b.group = group
	return b
}

// SetMaxPixels bounds the captured area. Zero or less disables the check.
func (b *RecordBuilder) SetMaxPixels(maxPixels int) *RecordBuilder {
	b.maxPixels = maxPixels
	return b
}

func (b *RecordBuilder) SetIncludeAccessibilityInfo(include bool) *RecordBuilder {
	b.includeAx = include
	return b
}

func (b *RecordBuilder) SetTestClass(testClass string) *RecordBuilder {
	b.testClass = testClass
	return b
}

func (b *RecordBuilder) SetTestName(testName string) *RecordBuilder {
	b.testName = testName
	return b
}

func validateName(name string) error {
	if name == "" {
		return &InvalidNameError{Name: name, Reason: "name must not be empty"}
	}
	if strings.ContainsRune(name, '/') || strings.ContainsRune(name, os.PathSeparator) {
		return &InvalidNameError{Name: name, Reason: "name must not contain a path separator"}
	}
	for _, r := range name {
		if r > 0xff {
			return &InvalidNameError{Name: name, Reason: fmt.Sprintf("%q is not a Latin-1 character", r)}
		}
	}
	return nil
}

func (b *RecordBuilder) identity() (string, string) {
	testClass, testName := b.testClass, b.testName
	if testClass == "" || testName == "" {
		detectedClass, detectedName := detectTest()
		if testClass == "" {
			testClass = detectedClass
		}
		if testName == "" {
			testName = detectedName
		}
	}
	return testClass, testName
}

// Record captures the surface and adds its record to the album. A surface
// that cannot be captured is still recorded, with Error set, and the
// *capture.CaptureError is returned.
func (b *RecordBuilder) Record(ctx context.Context) (*metadata.Record, error) {
	if b.err != nil {
		return nil, b.err
	}
	if b.recorded {
		return nil, ErrAlreadyRecorded
	}

	testClass, testName := b.identity()
	r := metadata.Record{
		Name:         b.name,
		Description:  b.description,
		TestClass:    testClass,
		TestName:     testName,
		Group:        b.group,
		Extras:       b.extras,
		ExplicitName: b.name != "",
	}
	if r.Name == "" {
		r.Name = testClass + "_" + testName
	}

	coordinator := *b.album.Coordinator
	coordinator.MaxPixels = b.maxPixels

	var captureErr *capture.CaptureError
	err := b.album.run(ctx, func(ctx context.Context) error {
		t, err := coordinator.Capture(ctx, b.surface, r.Name)
		if err != nil {
			return err
		}
		if err := checkState(t); err != nil {
			return err
		}
		r.TileWidth = t.Width()
		r.TileHeight = t.Height()

		return b.dumpHierarchy(ctx, &r)
	})
	if err != nil && !errors.As(err, &captureErr) {
		return nil, xerrors.Errorf("failed to record %s: %w", r.Name, err)
	}
	if captureErr != nil {
		r.Error = captureErr.Error()
		r.TileWidth = 0
		r.TileHeight = 0
	}

	if err := b.album.Store.Add(ctx, r); err != nil {
		return nil, err
	}
	b.recorded = true
	b.album.Log.V(1).Info("recorded screenshot", "name", r.Name, "tileWidth", r.TileWidth, "tileHeight", r.TileHeight, "failed", r.Failed())

	if captureErr != nil {
		return &r, captureErr
	}
	return &r, nil
}

// checkState guards the invariant that every stored record without an error
// points at a complete tiling.
func checkState(t *tiling.Tiling) error {
	if !t.Complete() {
		return errors.New("capture produced an incomplete tiling")
	}
	return nil
}

func (b *RecordBuilder) dumpHierarchy(ctx context.Context, r *metadata.Record) error {
	h, ok := b.surface.(HierarchySurface)
	if !ok {
		return nil
	}
	root, err := h.Hierarchy(ctx)
	if err != nil {
		return fmt.Errorf("failed to read hierarchy: %w", err)
	}
	if root == nil {
		return nil
	}

	dump, err := b.album.Dumper.DumpJSON(root)
	if err != nil {
		return err
	}
	r.ViewHierarchy = r.Name + "_dump.json"
	if _, err := b.album.Storage.Put(ctx, r.ViewHierarchy, dump); err != nil {
		return fmt.Errorf("failed to write %s: %w", r.ViewHierarchy, err)
	}

	if !b.includeAx {
		return nil
	}
	issues, err := hierarchy.IssuesJSON(root)
	if err != nil {
		return err
	}
	r.AxIssues = r.Name + "_issues.json"
	if _, err := b.album.Storage.Put(ctx, r.AxIssues, issues); err != nil {
		return fmt.Errorf("failed to write %s: %w", r.AxIssues, err)
	}
	return nil
}

// Image renders the whole surface without recording it.
func (b *RecordBuilder) Image(ctx context.Context) (*image.NRGBA, error) {
	if b.recorded {
		return nil, ErrAlreadyRecorded
	}

	var img *image.NRGBA
	err := b.album.run(ctx, func(ctx context.Context) error {
		size, err := b.surface.Size(ctx)
		if err != nil {
			return fmt.Errorf("failed to measure surface: %w", err)
		}
		name := b.name
		if name == "" {
			name = "image"
		}
		if size.X <= 0 || size.Y <= 0 {
			return &capture.CaptureError{Name: name, Reason: "View is not measured, call Measure() before capturing"}
		}
		if b.maxPixels > 0 && int64(size.X)*int64(size.Y) > int64(b.maxPixels) {
			return &capture.CaptureError{Name: name, Reason: fmt.Sprintf("View too large: (%d, %d)", size.X, size.Y)}
		}
		img, err = b.surface.Render(ctx, image.Rectangle{Max: size})
		return err
	})
	if err != nil {
		return nil, err
	}
	return img, nil
}
