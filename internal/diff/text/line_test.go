package text_test

import (
	"fmt"
	"runtime"
	"screenshot-tests/internal/diff/text"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestLineDiff(t *testing.T) {
	type in struct {
		baseline string
		target   string
	}

	type want struct {
		diff    string
		amount  float64
		changed bool
	}

	tests := []struct {
		name     string
		receiver *text.LineDiff
		in       in
		want     want
	}{
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			text.NewLineDiff(),
			in{
				"a\nb\nc\n",
				"a\nb\nc\n",
			},
			want{
				"  a\n  b\n  c",
				0,
				false,
			},
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			text.NewLineDiff(),
			in{
				"a\nb\nc",
				"a\nx\nc",
			},
			want{
				"  a\n- b\n+ x\n  c",
				2.0 / 6.0,
				true,
			},
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			&text.LineDiff{BaselineLabel: "reference/home_dump.json", TargetLabel: "recorded/home_dump.json"},
			in{
				"",
				"a",
			},
			want{
				"--- reference/home_dump.json\n+++ recorded/home_dump.json\n+ a",
				1,
				true,
			},
		},
	}
	for _, tt := range tests {
		name := tt.name
		receiver := tt.receiver
		in := tt.in
		want := tt.want
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			got, err := receiver.Calculate([]byte(in.baseline), []byte(in.target))
			if err != nil {
				t.Fatalf("Calculate failed: %v", err)
			}
			if diff := cmp.Diff(want.diff, string(got.Diff)); diff != "" {
				t.Errorf("(-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(want.amount, got.Amount); diff != "" {
				t.Errorf("(-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(want.changed, got.Changed()); diff != "" {
				t.Errorf("(-want +got):\n%s", diff)
			}
		})
	}
}
