package retry

import (
	"context"
	"errors"
	"io"
	"slices"
	"strings"

	"github.com/aws/smithy-go"
	"golang.org/x/xerrors"
)

// On decides which storage errors are worth another attempt.
type On struct {
	_5xx           bool
	gatewayError   bool
	connectFailure bool
	throttling     bool
	errorCodes     []string
}

func NewDefaultRetryOn() *On {
	return &On{
		_5xx:           false,
		gatewayError:   true,
		connectFailure: true,
		throttling:     true,
		errorCodes:     []string{},
	}
}

// NewRetryOnFromString parses a comma separated policy such as
// "5xx,connect-failure,throttling,InternalError". Unknown entries are treated as
// service error codes.
func NewRetryOnFromString(s string) (*On, error) {
	o := &On{}
	for _, s := range strings.Split(s, ",") {
		s = strings.TrimSpace(s)
		switch s {
		case "":
			return nil, xerrors.Errorf("invalid retryOn: empty entry")
		case "5xx":
			o._5xx = true
		case "gateway-error":
			o.gatewayError = true
		case "connect-failure":
			o.connectFailure = true
		case "throttling":
			o.throttling = true
		default:
			o.errorCodes = append(o.errorCodes, s)
		}
	}
	return o, nil
}

var throttlingCodes = []string{
	"Throttling",
	"ThrottlingException",
	"ThrottledException",
	"RequestThrottledException",
	"TooManyRequestsException",
	"RequestLimitExceeded",
	"SlowDown",
	"RequestTimeout",
}

func (o *On) CheckError(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	type temporary interface{ Temporary() bool }
	var terr temporary
	if (errors.As(err, &terr) && terr.Temporary()) || errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		if o.connectFailure || o._5xx {
			return true
		}
	}

	type statusCoder interface{ HTTPStatusCode() int }
	var serr statusCoder
	if errors.As(err, &serr) {
		code := serr.HTTPStatusCode()
		if (o._5xx && code >= 500 && code < 600) ||
			(o.gatewayError && code >= 502 && code < 505) {
			return true
		}
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		if o.throttling && slices.Contains(throttlingCodes, apiErr.ErrorCode()) {
			return true
		}
		if slices.Contains(o.errorCodes, apiErr.ErrorCode()) {
			return true
		}
	}

	return false
}
