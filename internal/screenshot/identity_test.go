package screenshot

import (
	"fmt"
	"runtime"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestTestFunction(t *testing.T) {
	tests := []struct {
		name   string
		symbol string
		want   string
	}{
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			"screenshot-tests/internal/screenshot_test.TestRecord",
			"TestRecord",
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			"example.com/a/b.TestLogin.func1.2",
			"TestLogin",
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			"example.com/a/b.helper",
			"",
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			"main",
			"",
		},
	}
	for _, tt := range tests {
		name := tt.name
		symbol := tt.symbol
		want := tt.want
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			if diff := cmp.Diff(want, testFunction(symbol)); diff != "" {
				t.Errorf("(-want +got):\n%s", diff)
			}
		})
	}
}

func TestDetectTest(t *testing.T) {
	testClass, testName := detectTest()
	if diff := cmp.Diff([2]string{"identity", "TestDetectTest"}, [2]string{testClass, testName}); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}
