package tiling

import (
	"fmt"

	"golang.org/x/exp/constraints"
)

// DefaultTileSize is the edge length of a square tile in pixels.
const DefaultTileSize = 512

// Tiling is the grid of tile names describing how one captured surface was split.
// Cell (i, j) is column i, row j.
type Tiling struct {
	width  int
	height int
	cells  []string
}

func New(width int, height int) *Tiling {
	if width < 1 || height < 1 {
		panic(fmt.Sprintf("invalid tiling dimensions %dx%d", width, height))
	}

	return &Tiling{
		width:  width,
		height: height,
		cells:  make([]string, width*height),
	}
}

// Restore rebuilds the tiling of a recorded screenshot from its grid dimensions.
func Restore(name string, width int, height int) *Tiling {
	t := New(width, height)
	for i := 0; i < width; i++ {
		for j := 0; j < height; j++ {
			t.Set(i, j, TileName(name, i, j))
		}
	}
	return t
}

func (t *Tiling) Width() int {
	return t.width
}

func (t *Tiling) Height() int {
	return t.height
}

// Get returns the tile name at (i, j), or "" if the cell has not been filled.
func (t *Tiling) Get(i int, j int) string {
	return t.cells[t.index(i, j)]
}

func (t *Tiling) Set(i int, j int, name string) {
	t.cells[t.index(i, j)] = name
}

// Complete reports whether every cell holds a tile name.
func (t *Tiling) Complete() bool {
	for _, c := range t.cells {
		if c == "" {
			return false
		}
	}
	return true
}

// Names lists the filled cells in row-major order.
func (t *Tiling) Names() []string {
	names := make([]string, 0, len(t.cells))
	for j := 0; j < t.height; j++ {
		for i := 0; i < t.width; i++ {
			if name := t.Get(i, j); name != "" {
				names = append(names, name)
			}
		}
	}
	return names
}

func (t *Tiling) index(i int, j int) int {
	if i < 0 || i >= t.width || j < 0 || j >= t.height {
		panic(fmt.Sprintf("tile (%d, %d) out of range for %dx%d tiling", i, j, t.width, t.height))
	}
	return i*t.height + j
}

// TileName keeps the bare record name for the first tile so single-tile
// screenshots stay addressable by the record name alone.
func TileName(name string, i int, j int) string {
	if i == 0 && j == 0 {
		return name
	}
	return fmt.Sprintf("%s_%d_%d", name, i, j)
}

// FileName is the storage key of a tile or assembled image.
func FileName(name string) string {
	return name + ".png"
}

// Count returns how many tiles of edge size are needed to cover length.
func Count[T constraints.Integer](length T, size T) T {
	return (length + size - 1) / size
}
