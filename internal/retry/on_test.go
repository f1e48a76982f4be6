package retry_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"runtime"
	"screenshot-tests/internal/retry"
	"testing"

	"github.com/aws/smithy-go"
	"github.com/google/go-cmp/cmp"
)

type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("status %d", e.code)
}

func (e *statusError) HTTPStatusCode() int {
	return e.code
}

func TestNewRetryOnFromString(t *testing.T) {
	if _, err := retry.NewRetryOnFromString("5xx,,throttling"); err == nil {
		t.Error("Expected error for empty entry")
	}
	if _, err := retry.NewRetryOnFromString("5xx, throttling,InternalError"); err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
}

func TestCheckError(t *testing.T) {
	type in struct {
		first error
	}

	type want struct {
		first bool
	}

	mustOn := func(s string) *retry.On {
		o, err := retry.NewRetryOnFromString(s)
		if err != nil {
			panic(err)
		}
		return o
	}

	tests := []struct {
		name     string
		receiver *retry.On
		in       in
		want     want
	}{
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			mustOn("5xx"),
			in{
				io.EOF,
			},
			want{
				true,
			},
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			mustOn("connect-failure"),
			in{
				fmt.Errorf("failed to upload to S3: %w", &net.DNSError{IsTemporary: true}),
			},
			want{
				true,
			},
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			mustOn("throttling"),
			in{
				io.EOF,
			},
			want{
				false,
			},
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			mustOn("5xx"),
			in{
				&statusError{503},
			},
			want{
				true,
			},
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			mustOn("gateway-error"),
			in{
				&statusError{500},
			},
			want{
				false,
			},
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			retry.NewDefaultRetryOn(),
			in{
				&smithy.GenericAPIError{Code: "SlowDown"},
			},
			want{
				true,
			},
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			mustOn("InternalError"),
			in{
				fmt.Errorf("wrapped: %w", &smithy.GenericAPIError{Code: "InternalError"}),
			},
			want{
				true,
			},
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			retry.NewDefaultRetryOn(),
			in{
				&smithy.GenericAPIError{Code: "NoSuchKey"},
			},
			want{
				false,
			},
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			retry.NewDefaultRetryOn(),
			in{
				fmt.Errorf("failed: %w", context.Canceled),
			},
			want{
				false,
			},
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			retry.NewDefaultRetryOn(),
			in{
				errors.New(""),
			},
			want{
				false,
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

			got := receiver.CheckError(in.first)
			if diff := cmp.Diff(want.first, got); diff != "" {
				t.Errorf("(-want +got):\n%s", diff)
			}
		})
	}
}
