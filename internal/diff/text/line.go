package text

import (
	"bytes"
	"fmt"
)

// LineDiff compares documents line by line through their longest common
// subsequence. Kept lines are prefixed "  ", added "+ " and removed "- ".
type LineDiff struct {
	// BaselineLabel and TargetLabel, when set, are written as a
	// "--- baseline" / "+++ target" header.
	BaselineLabel string
	TargetLabel   string
}

func NewLineDiff() *LineDiff {
	return &LineDiff{}
}

func (h *LineDiff) Calculate(baseline []byte, target []byte) (*Result, error) {
	beforeLines := splitLines(baseline)
	afterLines := splitLines(target)

	lcs := longestCommonSubsequence(beforeLines, afterLines)
	lines, addedCount, removedCount := h.backtrack(beforeLines, afterLines, lcs)

	var result bytes.Buffer
	if h.BaselineLabel != "" || h.TargetLabel != "" {
		fmt.Fprintf(&result, "--- %s\n+++ %s\n", h.BaselineLabel, h.TargetLabel)
	}
	result.Write(bytes.Join(lines, []byte("\n")))

	totalLines := len(beforeLines) + len(afterLines)

	diffAmount := 0.0
	if totalLines > 0 {
		diffAmount = min(float64(addedCount+removedCount)/float64(totalLines), 1.0)
	}

	return &Result{
		Diff:    result.Bytes(),
		Added:   addedCount,
		Removed: removedCount,
		Amount:  diffAmount,
	}, nil
}

func splitLines(data []byte) [][]byte {
	data = bytes.TrimSuffix(data, []byte("\n"))
	if len(data) == 0 {
		return [][]byte{}
	}
	return bytes.Split(data, []byte("\n"))
}

func longestCommonSubsequence(before [][]byte, after [][]byte) [][]int {
	m, n := len(before), len(after)
	lcs := make([][]int, m+1)
	for i := range lcs {
		lcs[i] = make([]int, n+1)
	}

	for i := 1; i <= m; i++ {
		for j := 1; j <= n; j++ {
			if bytes.Equal(before[i-1], after[j-1]) {
				lcs[i][j] = lcs[i-1][j-1] + 1
			} else {
				lcs[i][j] = max(lcs[i-1][j], lcs[i][j-1])
			}
		}
	}

	return lcs
}

// backtrack walks the table from the end and returns the diff lines in order.
func (h *LineDiff) backtrack(before [][]byte, after [][]byte, lcs [][]int) ([][]byte, int, int) {
	i, j := len(before), len(after)

	var reversed [][]byte
	addedCount := 0
	removedCount := 0

	for i > 0 || j > 0 {
		switch {
		case i > 0 && j > 0 && bytes.Equal(before[i-1], after[j-1]):
			reversed = append(reversed, prefixed("  ", before[i-1]))
			i--
			j--
		case j > 0 && (i == 0 || lcs[i][j-1] >= lcs[i-1][j]):
			reversed = append(reversed, prefixed("+ ", after[j-1]))
			j--
			addedCount++
		default:
			reversed = append(reversed, prefixed("- ", before[i-1]))
			i--
			removedCount++
		}
	}

	lines := make([][]byte, len(reversed))
	for k, line := range reversed {
		lines[len(reversed)-1-k] = line
	}
	return lines, addedCount, removedCount
}

func prefixed(prefix string, line []byte) []byte {
	return append([]byte(prefix), line...)
}
