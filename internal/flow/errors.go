package flow

import (
	"context"
	"errors"
)

var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrNoGeocodeResults = errors.New("no address results")
	ErrIndexOutOfRange  = errors.New("index out of range")
	ErrNoLocation       = errors.New("no location selected")
	ErrNeedLocation     = errors.New("need an address or coordinates for stop lookup")
	ErrUnresolvableStop = errors.New("can't determine stop id")
	ErrNoRealtimeLines  = errors.New("no realtime lines")
	ErrNoMatchingLines  = errors.New("no lines match the filter")
	ErrLineWithoutStop  = errors.New("line filter specified but no stop id context")
)

// Kind classifies flow errors for exit codes, HTTP statuses and metrics.
type Kind string

const (
	KindNone             Kind = ""
	KindUserInputInvalid Kind = "user_input_invalid"
	KindUnresolvableStop Kind = "unresolvable_stop"
	KindNotFound         Kind = "not_found"
	KindCanceled         Kind = "canceled"
	KindUnknown          Kind = "unknown"
)

// KindOf returns the kind of err. Upstream failures never reach this point:
// they have already been turned into empty results.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCanceled
	case errors.Is(err, ErrUnresolvableStop):
		return KindUnresolvableStop
	case errors.Is(err, ErrNoGeocodeResults),
		errors.Is(err, ErrNoRealtimeLines),
		errors.Is(err, ErrNoMatchingLines):
		return KindNotFound
	case errors.Is(err, ErrInvalidInput),
		errors.Is(err, ErrIndexOutOfRange),
		errors.Is(err, ErrNoLocation),
		errors.Is(err, ErrNeedLocation),
		errors.Is(err, ErrLineWithoutStop):
		return KindUserInputInvalid
	default:
		return KindUnknown
	}
}
