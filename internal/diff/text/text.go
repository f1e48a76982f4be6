// Package text diffs textual artifacts such as hierarchy dumps.
package text

// Result is a rendered diff together with its size.
type Result struct {
	Diff    []byte
	Added   int
	Removed int
	// Amount is the share of changed lines among all lines of both inputs, in [0, 1].
	Amount float64
}

func (r *Result) Changed() bool {
	return r.Added+r.Removed > 0
}
