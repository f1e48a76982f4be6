package verify

import (
	"fmt"
	"strings"
)

type Kind int

const (
	Success Kind = iota
	NoImages
	Mismatch
)

func (k Kind) String() string {
	switch k {
	case Success:
		return "Success"
	case NoImages:
		return "NoImages"
	case Mismatch:
		return "Mismatch"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

type MismatchItem struct {
	Key        string  `json:"key"`
	Difference float64 `json:"difference"`
}

type Outcome struct {
	Kind  Kind           `json:"-"`
	Items []MismatchItem `json:"items,omitempty"`
}

// MissingImageError lists every recorded name lacking a reference image, a
// recorded image, or both.
type MissingImageError struct {
	Names []string
}

func (e *MissingImageError) Error() string {
	return fmt.Sprintf("Missing image(s) for:\n%s\nDid you forget to call `record`?", strings.Join(e.Names, "\n"))
}
