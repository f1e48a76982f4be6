package screenshot

import (
	"path/filepath"
	"runtime"
	"strings"
)

const unknown = "unknown"

// detectTest walks the stack for the innermost Test function declared in a
// _test.go file and returns the file's base name and the function name.
func detectTest() (string, string) {
	pcs := make([]uintptr, 64)
	n := runtime.Callers(2, pcs)
	frames := runtime.CallersFrames(pcs[:n])
	for {
		frame, more := frames.Next()
		if strings.HasSuffix(frame.File, "_test.go") {
			if name := testFunction(frame.Function); name != "" {
				return strings.TrimSuffix(filepath.Base(frame.File), "_test.go"), name
			}
		}
		if !more {
			break
		}
	}
	return unknown, unknown
}

// testFunction extracts TestX from a symbol such as
// "example.com/pkg_test.TestX.func1.2".
func testFunction(symbol string) string {
	if i := strings.LastIndex(symbol, "/"); i >= 0 {
		symbol = symbol[i+1:]
	}
	_, rest, ok := strings.Cut(symbol, ".")
	if !ok {
		return ""
	}
	name, _, _ := strings.Cut(rest, ".")
	if !strings.HasPrefix(name, "Test") {
		return ""
	}
	return name
}
